package workflow

import (
	"sync"
	"testing"

	"angelamos-operations/pkg/studio"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreNotifiesSubscribers(t *testing.T) {
	store := NewStore(Initial(), DefaultBounds())

	var seen []Stage
	unsubscribe := store.Subscribe(func(s State) { seen = append(seen, s.CurrentStage) })

	store.StartWorkflow(ModeGenerateIdeas, "")
	store.Dispatch(func(s State) State { return s.GoToStage(StageHooks) })
	unsubscribe()
	store.GoBack()

	assert.Equal(t, []Stage{StageIdeas, StageHooks}, seen)
	assert.Equal(t, StageIdeas, store.State().CurrentStage)
}

func TestStoreCommitAppliesCurrentTicket(t *testing.T) {
	store := NewStore(Initial(), DefaultBounds())
	store.StartWorkflow(ModeGenerateIdeas, "")

	ticket, err := store.Ticket()
	require.NoError(t, err)
	assert.True(t, store.InFlight(StageIdeas))

	s, err := store.Commit(ticket, func(s State) State { return s.SaveIdeasResult(tenIdeas()) })
	require.NoError(t, err)
	assert.NotNil(t, s.Ideas)
	assert.False(t, store.InFlight(StageIdeas))
}

func TestStoreRejectsStaleResponses(t *testing.T) {
	tests := []struct {
		name  string
		after func(*Store)
	}{
		{"reset", func(s *Store) { s.ResetWorkflow() }},
		{"restart", func(s *Store) { s.StartWorkflow(ModeGenerateIdeas, "") }},
		{"reset from stage", func(s *Store) { s.ResetFromStage(StageIdeas) }},
		{"navigated away", func(s *Store) { s.Dispatch(func(st State) State { return st.GoToStage(StageHooks) }) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewStore(Initial(), DefaultBounds())
			store.StartWorkflow(ModeGenerateIdeas, "")
			ticket, err := store.Ticket()
			require.NoError(t, err)

			tt.after(store)

			assert.False(t, store.Current(ticket))
			_, err = store.Commit(ticket, func(s State) State { return s.SaveIdeasResult(tenIdeas()) })
			assert.ErrorIs(t, err, ErrStaleResponse)
			assert.Nil(t, store.State().Ideas)
		})
	}
}

func TestStoreOneRequestPerStage(t *testing.T) {
	store := NewStore(Initial(), DefaultBounds())
	store.StartWorkflow(ModeUserSuppliedIdea, "T")

	first, err := store.Ticket()
	require.NoError(t, err)

	_, err = store.Ticket()
	assert.ErrorIs(t, err, ErrRequestInFlight)

	store.Release(first)
	_, err = store.Ticket()
	assert.NoError(t, err)
}

func TestStoreToggleUsesBounds(t *testing.T) {
	store := NewStore(Initial(), Bounds{Min: 1, Max: 2})
	store.StartWorkflow(ModeUserSuppliedIdea, "T")
	store.Dispatch(func(s State) State {
		return s.SaveHooksResult(&studio.HooksResponse{SessionId: "s", Hooks: []studio.Hook{{Id: 1}, {Id: 2}, {Id: 3}}})
	})

	for id := 1; id <= 3; id++ {
		store.ToggleHookSelection(id)
	}
	assert.Equal(t, []int{1, 2}, store.State().SelectedHookIds)
}

func TestStoreConcurrentDispatch(t *testing.T) {
	store := NewStore(Initial(), Bounds{Min: 1, Max: 5})
	store.StartWorkflow(ModeUserSuppliedIdea, "T")

	var wg sync.WaitGroup
	for id := 1; id <= 50; id++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			store.ToggleHookSelection(id)
		}(id)
	}
	wg.Wait()

	assert.Len(t, store.State().SelectedHookIds, 5)
}

func TestStoreFailRecordsOnlyCurrentErrors(t *testing.T) {
	store := NewStore(Initial(), DefaultBounds())
	store.StartWorkflow(ModeGenerateIdeas, "")

	ticket, err := store.Ticket()
	require.NoError(t, err)
	assert.True(t, store.Fail(ticket, "upstream down"))
	assert.Equal(t, "upstream down", store.State().ErrorMessage)
	assert.False(t, store.InFlight(StageIdeas))

	stale, err := store.Ticket()
	require.NoError(t, err)
	store.ResetWorkflow()
	assert.False(t, store.Fail(stale, "too late"))
	assert.Empty(t, store.State().ErrorMessage)
}

func TestStoreAdoptReplacesStateSilently(t *testing.T) {
	store := NewStore(Initial(), DefaultBounds())
	store.StartWorkflow(ModeGenerateIdeas, "")
	ticket, err := store.Ticket()
	require.NoError(t, err)

	notified := 0
	store.Subscribe(func(State) { notified++ })

	store.Adopt(State{Mode: ModeUserSuppliedIdea, CurrentStage: StageHooks, ManualTopic: "elsewhere"})

	st := store.State()
	assert.Equal(t, StageHooks, st.CurrentStage)
	assert.NotNil(t, st.SelectedHookIds)
	assert.NotNil(t, st.VariationChoices)
	assert.Zero(t, notified)
	assert.False(t, store.InFlight(StageIdeas))

	_, err = store.Commit(ticket, func(s State) State { return s.SaveIdeasResult(tenIdeas()) })
	assert.ErrorIs(t, err, ErrStaleResponse)

	store.Adopt(State{CurrentStage: "nowhere"})
	assert.Equal(t, StageModeSelection, store.State().CurrentStage)
}
