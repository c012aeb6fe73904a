package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"angelamos-operations/internal/config"
	"angelamos-operations/internal/dto"
	"angelamos-operations/internal/pkg/logger"
	"angelamos-operations/internal/repository/memory"
	"angelamos-operations/internal/workflow"
	"angelamos-operations/pkg/events"
	pktNats "angelamos-operations/pkg/nats"
	"angelamos-operations/pkg/studio"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStudio answers every stage from canned responses unless a hook overrides it.
type fakeStudio struct {
	mu    sync.Mutex
	calls map[string]int

	hooks        func(ctx context.Context, req *studio.HooksRequest) (*studio.HooksResponse, error)
	lastHooksReq *studio.HooksRequest
	lastFinalReq *studio.FinalReviewRequest
}

func newFakeStudio() *fakeStudio {
	return &fakeStudio{calls: map[string]int{}}
}

func (f *fakeStudio) count(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[name]++
}

func (f *fakeStudio) GenerateIdeas(ctx context.Context, req *studio.IdeasRequest) (*studio.IdeasResponse, error) {
	f.count("ideas")
	return &studio.IdeasResponse{
		SessionId: "sess-1",
		Ideas: []studio.Idea{
			{Id: 1, Topic: "Cold starts", Category: "devops", Format: "talking_head", VideoLengthTarget: "30s"},
			{Id: 2, Topic: "Rust vs Go", Category: "languages"},
		},
	}, nil
}

func (f *fakeStudio) GenerateHooks(ctx context.Context, req *studio.HooksRequest) (*studio.HooksResponse, error) {
	f.count("hooks")
	f.mu.Lock()
	f.lastHooksReq = req
	override := f.hooks
	f.mu.Unlock()
	if override != nil {
		return override(ctx, req)
	}
	return &studio.HooksResponse{
		GenerationId: "gen-hooks",
		SessionId:    "sess-1",
		Hooks: []studio.Hook{
			{Id: 1, VisualHook: "terminal", TextHook: "Stop", VerbalHook: "Stop doing this"},
			{Id: 2, VisualHook: "graph", TextHook: "Faster", VerbalHook: "Ten times faster"},
			{Id: 3, VisualHook: "desk", TextHook: "Why", VerbalHook: "Nobody tells you why"},
		},
	}, nil
}

func (f *fakeStudio) AnalyzeHooks(ctx context.Context, req *studio.HookAnalysisRequest) (*studio.HookAnalysisResponse, error) {
	f.count("hook_analysis")
	return &studio.HookAnalysisResponse{
		GenerationId: "gen-analysis",
		SessionId:    req.SessionId,
		Analysis:     map[string]studio.HookAnalysis{"1": {HookId: 1}},
	}, nil
}

func (f *fakeStudio) GenerateScript(ctx context.Context, req *studio.ScriptRequest) (*studio.ScriptResponse, error) {
	f.count("script")
	return &studio.ScriptResponse{
		GenerationId: "gen-script",
		SessionId:    req.SessionId,
		Script: studio.Script{Sections: []studio.ScriptSection{
			{Sentences: []studio.ScriptSentence{
				{SentenceNumber: 1, Variations: []string{"First A.", "First B."}},
				{SentenceNumber: 2, Variations: []string{"Second A.", "Second B."}},
			}},
		}},
	}, nil
}

func (f *fakeStudio) AnalyzeScript(ctx context.Context, req *studio.ScriptAnalysisRequest) (*studio.ScriptAnalysisResponse, error) {
	f.count("script_analysis")
	return &studio.ScriptAnalysisResponse{GenerationId: "gen-sa", SessionId: req.SessionId}, nil
}

func (f *fakeStudio) FinalReview(ctx context.Context, req *studio.FinalReviewRequest) (*studio.FinalReviewResponse, error) {
	f.count("final_review")
	f.mu.Lock()
	f.lastFinalReq = req
	f.mu.Unlock()
	return &studio.FinalReviewResponse{
		GenerationId:   "gen-final",
		SessionId:      req.SessionId,
		GoNoGoDecision: map[string]any{"decision": "GO"},
	}, nil
}

type recordingPublisher struct {
	mu       sync.Mutex
	messages []dto.WorkflowSnapshotMessage
}

func (p *recordingPublisher) Publish(ctx context.Context, payload []byte) error {
	var msg dto.WorkflowSnapshotMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, msg)
	return nil
}

func (p *recordingPublisher) last() dto.WorkflowSnapshotMessage {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.messages[len(p.messages)-1]
}

type recordingPusher struct {
	mu     sync.Mutex
	pushes map[uuid.UUID]int
}

func (p *recordingPusher) Send(userID uuid.UUID, msgType string, data interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pushes == nil {
		p.pushes = map[uuid.UUID]int{}
	}
	p.pushes[userID]++
}

func (p *recordingPusher) count(userID uuid.UUID) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pushes[userID]
}

type recordingEvents struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recordingEvents) Publish(ctx context.Context, event events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *recordingEvents) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.EventType())
	}
	return out
}

// update returns the WORKFLOW_UPDATED event with the given sequence number.
func (r *recordingEvents) update(seq uint64) (events.WorkflowEvent, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.events {
		if we, ok := e.(events.WorkflowEvent); ok && we.Kind == events.WorkflowUpdated && we.Seq == seq {
			return we, true
		}
	}
	return events.WorkflowEvent{}, false
}

type workflowFixture struct {
	svc       IWorkflowService
	studio    *fakeStudio
	repo      *memory.WorkflowSnapshotRepository
	snapshots *recordingPublisher
	pusher    *recordingPusher
	events    *recordingEvents
}

func testWorkflowConfig() config.WorkflowConfig {
	return config.WorkflowConfig{
		HookSelectionMin: 1,
		HookSelectionMax: 2,
		SessionIdleTTL:   time.Hour,
		IdeaCount:        10,
		HookCount:        20,
		VideoLength:      30,
	}
}

func newWorkflowFixture(t *testing.T) *workflowFixture {
	t.Helper()
	return newWorkflowFixtureAt(t, "instance-a")
}

func newWorkflowFixtureAt(t *testing.T, origin string) *workflowFixture {
	t.Helper()
	f := &workflowFixture{
		studio:    newFakeStudio(),
		repo:      memory.NewWorkflowSnapshotRepository(time.Hour),
		snapshots: &recordingPublisher{},
		pusher:    &recordingPusher{},
		events:    &recordingEvents{},
	}
	f.svc = NewWorkflowService(f.studio, f.repo, f.snapshots, f.pusher, f.events, testWorkflowConfig(), origin, logger.NewNopLogger())
	return f
}

func intPtr(v int) *int { return &v }

func TestWorkflowFullRunGenerateIdeasMode(t *testing.T) {
	f := newWorkflowFixture(t)
	ctx := context.Background()
	user := uuid.New()

	res, err := f.svc.Start(ctx, user, &dto.StartWorkflowRequest{Mode: "give_me_ideas"})
	require.NoError(t, err)
	assert.Equal(t, workflow.StageIdeas, res.State.CurrentStage)

	res, err = f.svc.GenerateIdeas(ctx, user, &dto.GenerateIdeasRequest{})
	require.NoError(t, err)
	assert.Equal(t, "sess-1", res.State.SessionId)
	assert.Len(t, res.State.Ideas.Ideas, 2)

	res, err = f.svc.SelectIdea(ctx, user, &dto.SelectIdeaRequest{IdeaId: intPtr(1)})
	require.NoError(t, err)
	assert.Equal(t, "Cold starts", res.Topic)

	res, err = f.svc.GenerateHooks(ctx, user, &dto.GenerateHooksRequest{})
	require.NoError(t, err)
	assert.Equal(t, workflow.StageHooks, res.State.CurrentStage, "hooks generation advances from ideas")
	assert.Equal(t, "devops", f.studio.lastHooksReq.Category, "idea fills blanks in the hooks request")
	assert.Equal(t, 20, f.studio.lastHooksReq.Count)

	_, err = f.svc.ToggleHook(ctx, user, &dto.HookIdRequest{HookId: intPtr(1)})
	require.NoError(t, err)
	res, err = f.svc.ToggleHook(ctx, user, &dto.HookIdRequest{HookId: intPtr(2)})
	require.NoError(t, err)
	assert.Equal(t, 2, res.HookSelection.Selected)

	res, err = f.svc.AnalyzeHooks(ctx, user, &dto.AnalyzeHooksRequest{})
	require.NoError(t, err)
	assert.Equal(t, workflow.StageHookAnalysis, res.State.CurrentStage)

	res, err = f.svc.ChooseHook(ctx, user, &dto.HookIdRequest{HookId: intPtr(2)})
	require.NoError(t, err)
	assert.Equal(t, 2, res.State.ChosenHook.Id)

	res, err = f.svc.GenerateScript(ctx, user, &dto.GenerateScriptRequest{})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, res.MissingVariations)
	assert.Empty(t, res.FinalizedScript)

	_, err = f.svc.SelectVariation(ctx, user, &dto.SelectVariationRequest{SentenceNumber: intPtr(1), VariationIndex: intPtr(1)})
	require.NoError(t, err)
	res, err = f.svc.SelectVariation(ctx, user, &dto.SelectVariationRequest{SentenceNumber: intPtr(2), VariationIndex: intPtr(0)})
	require.NoError(t, err)
	assert.Empty(t, res.MissingVariations)
	assert.Equal(t, "First B. Second A.", res.FinalizedScript)

	res, err = f.svc.AnalyzeScript(ctx, user, &dto.AnalyzeScriptRequest{})
	require.NoError(t, err)
	assert.Equal(t, workflow.StageScriptAnalysis, res.State.CurrentStage)

	res, err = f.svc.FinalReview(ctx, user, &dto.FinalReviewRequest{})
	require.NoError(t, err)
	assert.Equal(t, workflow.StageFinalReview, res.State.CurrentStage)
	assert.Equal(t, "GO", res.Decision)
	assert.Equal(t, "First B. Second A.", f.studio.lastFinalReq.FinalizedScript)
	assert.Equal(t, "talking_head", f.studio.lastFinalReq.Format)
	assert.Equal(t, "Ten times faster", f.studio.lastFinalReq.ChosenHook["verbal"])

	last := f.snapshots.last()
	assert.Equal(t, user, last.UserId)
	require.NotNil(t, last.Snapshot)
	assert.Equal(t, workflow.StageFinalReview, last.Snapshot.CurrentStage)
	assert.Greater(t, f.pusher.count(user), 10)

	assert.Eventually(t, func() bool {
		for _, typ := range f.events.types() {
			if typ == events.WorkflowCompleted {
				return true
			}
		}
		return false
	}, time.Second, 10*time.Millisecond)
}

func TestUserSuppliedIdeaStartsAtHooksWithoutSession(t *testing.T) {
	f := newWorkflowFixture(t)
	ctx := context.Background()
	user := uuid.New()

	_, err := f.svc.Start(ctx, user, &dto.StartWorkflowRequest{Mode: "i_have_idea"})
	assert.ErrorIs(t, err, ErrInvalidInput, "topic is required")

	res, err := f.svc.Start(ctx, user, &dto.StartWorkflowRequest{Mode: "i_have_idea", Topic: "My topic"})
	require.NoError(t, err)
	assert.Equal(t, workflow.StageHooks, res.State.CurrentStage)

	_, err = f.svc.GenerateIdeas(ctx, user, &dto.GenerateIdeasRequest{})
	assert.ErrorIs(t, err, ErrStageMismatch)

	res, err = f.svc.GenerateHooks(ctx, user, &dto.GenerateHooksRequest{})
	require.NoError(t, err)
	assert.Empty(t, f.studio.lastHooksReq.SessionId, "first hooks call opens the session")
	assert.Equal(t, "My topic", f.studio.lastHooksReq.Topic)
	assert.Equal(t, "sess-1", res.State.SessionId)
}

func TestUserSuppliedIdeaCanGoBackAndForward(t *testing.T) {
	f := newWorkflowFixture(t)
	ctx := context.Background()
	user := uuid.New()

	_, err := f.svc.Start(ctx, user, &dto.StartWorkflowRequest{Mode: "i_have_idea", Topic: "T"})
	require.NoError(t, err)

	res, err := f.svc.GoBack(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, workflow.StageIdeas, res.State.CurrentStage)

	res, err = f.svc.GoToStage(ctx, user, &dto.StageRequest{Stage: string(workflow.StageHooks)})
	require.NoError(t, err)
	assert.Equal(t, workflow.StageHooks, res.State.CurrentStage)

	_, err = f.svc.GoBack(ctx, user)
	require.NoError(t, err)
	res, err = f.svc.GenerateHooks(ctx, user, &dto.GenerateHooksRequest{})
	require.NoError(t, err, "hooks generation advances from ideas on the manual topic")
	assert.Equal(t, workflow.StageHooks, res.State.CurrentStage)
	assert.Equal(t, "T", f.studio.lastHooksReq.Topic)
}

func TestSelectionOperationsRequireTheirStage(t *testing.T) {
	f := newWorkflowFixture(t)
	ctx := context.Background()
	user := uuid.New()

	_, err := f.svc.Start(ctx, user, &dto.StartWorkflowRequest{Mode: "give_me_ideas"})
	require.NoError(t, err)

	_, err = f.svc.SelectIdea(ctx, user, &dto.SelectIdeaRequest{IdeaId: intPtr(1)})
	assert.ErrorIs(t, err, ErrUnknownIdea, "nothing generated yet")

	_, err = f.svc.ToggleHook(ctx, user, &dto.HookIdRequest{HookId: intPtr(1)})
	assert.ErrorIs(t, err, ErrStageMismatch)

	_, err = f.svc.GenerateIdeas(ctx, user, &dto.GenerateIdeasRequest{})
	require.NoError(t, err)
	_, err = f.svc.SelectIdea(ctx, user, &dto.SelectIdeaRequest{IdeaId: intPtr(99)})
	assert.ErrorIs(t, err, ErrUnknownIdea)

	_, err = f.svc.GenerateHooks(ctx, user, &dto.GenerateHooksRequest{})
	assert.ErrorIs(t, err, workflow.ErrIdeaNotChosen, "cannot advance to hooks without an idea")
}

func TestToggleHookBeyondMaxIsNoop(t *testing.T) {
	f := newWorkflowFixture(t)
	ctx := context.Background()
	user := uuid.New()

	_, err := f.svc.Start(ctx, user, &dto.StartWorkflowRequest{Mode: "i_have_idea", Topic: "t"})
	require.NoError(t, err)
	_, err = f.svc.GenerateHooks(ctx, user, &dto.GenerateHooksRequest{})
	require.NoError(t, err)

	for _, id := range []int{1, 2, 3} {
		_, err = f.svc.ToggleHook(ctx, user, &dto.HookIdRequest{HookId: intPtr(id)})
		require.NoError(t, err)
	}
	res, err := f.svc.Get(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, res.State.SelectedHookIds)

	_, err = f.svc.ToggleHook(ctx, user, &dto.HookIdRequest{HookId: intPtr(42)})
	assert.ErrorIs(t, err, ErrUnknownHook)

	_, err = f.svc.AnalyzeHooks(ctx, user, &dto.AnalyzeHooksRequest{})
	require.NoError(t, err)
	_, err = f.svc.ChooseHook(ctx, user, &dto.HookIdRequest{HookId: intPtr(3)})
	assert.ErrorIs(t, err, ErrHookNotPicked)
}

func TestStaleHooksResponseIsDiscardedAfterGoingBack(t *testing.T) {
	f := newWorkflowFixture(t)
	ctx := context.Background()
	user := uuid.New()

	_, err := f.svc.Start(ctx, user, &dto.StartWorkflowRequest{Mode: "give_me_ideas"})
	require.NoError(t, err)
	_, err = f.svc.GenerateIdeas(ctx, user, &dto.GenerateIdeasRequest{})
	require.NoError(t, err)
	_, err = f.svc.SelectIdea(ctx, user, &dto.SelectIdeaRequest{IdeaId: intPtr(1)})
	require.NoError(t, err)

	entered := make(chan struct{})
	release := make(chan struct{})
	f.studio.hooks = func(ctx context.Context, req *studio.HooksRequest) (*studio.HooksResponse, error) {
		close(entered)
		<-release
		return &studio.HooksResponse{GenerationId: "late", Hooks: []studio.Hook{{Id: 1}}}, nil
	}

	done := make(chan error, 1)
	go func() {
		_, err := f.svc.GenerateHooks(ctx, user, &dto.GenerateHooksRequest{})
		done <- err
	}()
	<-entered

	_, err = f.svc.GenerateHooks(ctx, user, &dto.GenerateHooksRequest{})
	assert.ErrorIs(t, err, workflow.ErrRequestInFlight)

	res, err := f.svc.GoBack(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, workflow.StageIdeas, res.State.CurrentStage)

	close(release)
	assert.ErrorIs(t, <-done, workflow.ErrStaleResponse)

	res, err = f.svc.Get(ctx, user)
	require.NoError(t, err)
	assert.Nil(t, res.State.Hooks)
	assert.Equal(t, workflow.StageIdeas, res.State.CurrentStage)
}

func TestGenerationFailureLandsInErrorSlot(t *testing.T) {
	f := newWorkflowFixture(t)
	ctx := context.Background()
	user := uuid.New()

	_, err := f.svc.Start(ctx, user, &dto.StartWorkflowRequest{Mode: "i_have_idea", Topic: "t"})
	require.NoError(t, err)

	f.studio.hooks = func(ctx context.Context, req *studio.HooksRequest) (*studio.HooksResponse, error) {
		return nil, &studio.APIError{StatusCode: 429, Detail: "rate limited"}
	}
	_, err = f.svc.GenerateHooks(ctx, user, &dto.GenerateHooksRequest{})
	var apiErr *studio.APIError
	require.True(t, errors.As(err, &apiErr))

	res, err := f.svc.Get(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, "Generating hooks failed: rate limited", res.State.ErrorMessage)

	f.studio.hooks = nil
	res, err = f.svc.GenerateHooks(ctx, user, &dto.GenerateHooksRequest{})
	require.NoError(t, err, "ticket was released by the failure")
	assert.Empty(t, res.State.ErrorMessage, "success clears the error")

	assert.Eventually(t, func() bool {
		for _, typ := range f.events.types() {
			if typ == events.WorkflowFailed {
				return true
			}
		}
		return false
	}, time.Second, 10*time.Millisecond)
}

func TestGoToStageChecksPrerequisites(t *testing.T) {
	f := newWorkflowFixture(t)
	ctx := context.Background()
	user := uuid.New()

	_, err := f.svc.GoToStage(ctx, user, &dto.StageRequest{Stage: "hooks"})
	assert.ErrorIs(t, err, workflow.ErrNotStarted)

	_, err = f.svc.GoToStage(ctx, user, &dto.StageRequest{Stage: "nowhere"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = f.svc.Start(ctx, user, &dto.StartWorkflowRequest{Mode: "i_have_idea", Topic: "t"})
	require.NoError(t, err)
	_, err = f.svc.GoToStage(ctx, user, &dto.StageRequest{Stage: "hook_analysis"})
	assert.ErrorIs(t, err, workflow.ErrHooksNotGenerated)

	_, err = f.svc.GoToStage(ctx, user, &dto.StageRequest{Stage: "final_review"})
	assert.ErrorIs(t, err, workflow.ErrStageSkipped)

	res, err := f.svc.GoToStage(ctx, user, &dto.StageRequest{Stage: "mode_selection"})
	require.NoError(t, err)
	assert.Equal(t, workflow.StageModeSelection, res.State.CurrentStage)
}

func TestResetFromStageKeepsEarlierResults(t *testing.T) {
	f := newWorkflowFixture(t)
	ctx := context.Background()
	user := uuid.New()

	_, err := f.svc.Start(ctx, user, &dto.StartWorkflowRequest{Mode: "give_me_ideas"})
	require.NoError(t, err)
	_, err = f.svc.GenerateIdeas(ctx, user, &dto.GenerateIdeasRequest{})
	require.NoError(t, err)
	_, err = f.svc.SelectIdea(ctx, user, &dto.SelectIdeaRequest{IdeaId: intPtr(1)})
	require.NoError(t, err)
	_, err = f.svc.GenerateHooks(ctx, user, &dto.GenerateHooksRequest{})
	require.NoError(t, err)

	res, err := f.svc.ResetFromStage(ctx, user, &dto.StageRequest{Stage: "hooks"})
	require.NoError(t, err)
	assert.Equal(t, workflow.StageHooks, res.State.CurrentStage)
	assert.Nil(t, res.State.Hooks)
	assert.NotNil(t, res.State.Ideas)
	assert.NotNil(t, res.State.ChosenIdea)
}

func TestResetDiscardsSnapshot(t *testing.T) {
	f := newWorkflowFixture(t)
	ctx := context.Background()
	user := uuid.New()

	_, err := f.svc.Start(ctx, user, &dto.StartWorkflowRequest{Mode: "give_me_ideas"})
	require.NoError(t, err)
	first := f.snapshots.last()
	assert.False(t, first.Discard)

	res, err := f.svc.Reset(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, workflow.StageModeSelection, res.State.CurrentStage)

	last := f.snapshots.last()
	assert.True(t, last.Discard)
	assert.Nil(t, last.Snapshot)
	assert.Greater(t, last.Version, first.Version)
}

func TestSessionResumesFromStoredSnapshot(t *testing.T) {
	f := newWorkflowFixture(t)
	ctx := context.Background()
	user := uuid.New()

	resumed := workflow.Initial().StartWorkflow(workflow.ModeUserSuppliedIdea, "resumed topic")
	resumed.SessionId = "sess-9"
	require.NoError(t, f.repo.Save(ctx, user, resumed.Snapshot()))

	res, err := f.svc.Get(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, workflow.StageHooks, res.State.CurrentStage)
	assert.Equal(t, "resumed topic", res.Topic)
	assert.Equal(t, "sess-9", res.State.SessionId)
}

// relay returns the latest state update of the fixture as another instance
// receives it from NATS.
func relay(t *testing.T, from *workflowFixture) events.Event {
	t.Helper()
	want := from.snapshots.last().Version
	var update events.WorkflowEvent
	require.Eventually(t, func() bool {
		var ok bool
		update, ok = from.events.update(want)
		return ok
	}, time.Second, 5*time.Millisecond)

	raw, err := json.Marshal(update.Payload())
	require.NoError(t, err)
	decoded, err := pktNats.Decode(pktNats.Subject(update.EventType()), raw)
	require.NoError(t, err)
	return decoded
}

func TestHandleEventAdoptsForeignSessions(t *testing.T) {
	a := newWorkflowFixtureAt(t, "instance-a")
	b := newWorkflowFixtureAt(t, "instance-b")
	ctx := context.Background()
	user := uuid.New()

	_, err := a.svc.Start(ctx, user, &dto.StartWorkflowRequest{Mode: "give_me_ideas"})
	require.NoError(t, err)

	// The user's next requests land on instance b.
	_, err = b.svc.Start(ctx, user, &dto.StartWorkflowRequest{Mode: "i_have_idea", Topic: "shared topic"})
	require.NoError(t, err)
	started := relay(t, b)
	_, err = b.svc.GenerateHooks(ctx, user, &dto.GenerateHooksRequest{})
	require.NoError(t, err)
	withHooks := relay(t, b)

	require.NoError(t, a.svc.HandleEvent(ctx, withHooks))
	res, err := a.svc.ToggleHook(ctx, user, &dto.HookIdRequest{HookId: intPtr(1)})
	require.NoError(t, err, "generated hooks travel with the update")
	assert.Equal(t, "shared topic", res.Topic)
	assert.Equal(t, []int{1}, res.State.SelectedHookIds)

	// An older update from the same instance arriving late changes nothing.
	require.NoError(t, a.svc.HandleEvent(ctx, started))
	res, err = a.svc.Get(ctx, user)
	require.NoError(t, err)
	require.NotNil(t, res.State.Hooks)
	assert.Equal(t, []int{1}, res.State.SelectedHookIds)

	// Own updates are ignored.
	require.NoError(t, a.svc.HandleEvent(ctx, relay(t, a)))

	// An instance that never saw the user takes the session over as well.
	c := newWorkflowFixtureAt(t, "instance-c")
	require.NoError(t, c.svc.HandleEvent(ctx, withHooks))
	_, err = c.svc.ToggleHook(ctx, user, &dto.HookIdRequest{HookId: intPtr(2)})
	assert.NoError(t, err)
}

func TestHandleEventIgnoresLifecycleEvents(t *testing.T) {
	f := newWorkflowFixture(t)
	ctx := context.Background()
	user := uuid.New()

	_, err := f.svc.Start(ctx, user, &dto.StartWorkflowRequest{Mode: "give_me_ideas"})
	require.NoError(t, err)

	reset := events.WorkflowEvent{Kind: events.WorkflowReset, UserId: user, Origin: "instance-b", At: time.Now()}
	require.NoError(t, f.svc.HandleEvent(ctx, reset))
	res, err := f.svc.Get(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, workflow.StageIdeas, res.State.CurrentStage)
}
