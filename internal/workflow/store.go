package workflow

import (
	"errors"
	"sync"

	"github.com/google/uuid"
)

var (
	// ErrStaleResponse means the session moved on (reset, went back, restarted)
	// while a generation request was outstanding. The response is dropped.
	ErrStaleResponse = errors.New("response no longer matches the workflow state")

	// ErrRequestInFlight means a generation request for the current stage is already outstanding.
	ErrRequestInFlight = errors.New("a generation request for this stage is already in flight")
)

// Ticket tags an outgoing generation request with the state it was issued against.
type Ticket struct {
	Id    uuid.UUID
	Epoch uint64
	Stage Stage
}

type Listener func(State)

// Store is the single authoritative copy of one user's session. It is passed
// by reference to whoever needs it; State itself stays a plain value.
//
// Listeners run under the store lock, in dispatch order, and must not call
// back into the store.
type Store struct {
	mu        sync.Mutex
	state     State
	bounds    Bounds
	epoch     uint64
	inFlight  map[Stage]uuid.UUID
	listeners map[int]Listener
	nextId    int
}

func NewStore(initial State, b Bounds) *Store {
	return &Store{
		state:     initial,
		bounds:    b,
		inFlight:  make(map[Stage]uuid.UUID),
		listeners: make(map[int]Listener),
	}
}

func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Store) Bounds() Bounds {
	return s.bounds
}

// Subscribe registers fn for every subsequent state change and returns its unsubscribe func.
func (s *Store) Subscribe(fn Listener) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextId
	s.nextId++
	s.listeners[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}

// Dispatch applies a transition and notifies listeners.
func (s *Store) Dispatch(fn func(State) State) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.apply(fn)
}

// Rewind applies a transition that abandons outstanding generation requests:
// any ticket issued before it will fail to commit.
func (s *Store) Rewind(fn func(State) State) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.epoch++
	s.inFlight = make(map[Stage]uuid.UUID)
	return s.apply(fn)
}

func (s *Store) StartWorkflow(mode Mode, topic string) State {
	return s.Rewind(func(st State) State { return st.StartWorkflow(mode, topic) })
}

func (s *Store) ResetWorkflow() State {
	return s.Rewind(State.ResetWorkflow)
}

func (s *Store) ResetFromStage(stage Stage) State {
	return s.Rewind(func(st State) State { return st.ResetFromStage(stage) })
}

func (s *Store) GoBack() State {
	return s.Rewind(State.GoBack)
}

func (s *Store) ToggleHookSelection(hookId int) State {
	return s.Dispatch(func(st State) State { return st.ToggleHookSelection(hookId, s.bounds) })
}

// Adopt replaces the session with one produced by another instance.
// Outstanding tickets go stale. Listeners are not notified: the producer
// already persisted and pushed this state.
func (s *Store) Adopt(st State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.epoch++
	s.inFlight = make(map[Stage]uuid.UUID)
	s.state = st.normalized()
}

// Ticket marks the current stage as having a request in flight.
func (s *Store) Ticket() (Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stage := s.state.CurrentStage
	if _, busy := s.inFlight[stage]; busy {
		return Ticket{}, ErrRequestInFlight
	}
	t := Ticket{Id: uuid.New(), Epoch: s.epoch, Stage: stage}
	s.inFlight[stage] = t.Id
	return t, nil
}

// Commit applies fn only if the session is still where t was issued.
// The ticket is released either way.
func (s *Store) Commit(t Ticket, fn func(State) State) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.release(t)
	if t.Epoch != s.epoch || t.Stage != s.state.CurrentStage {
		return s.state, ErrStaleResponse
	}
	return s.apply(fn), nil
}

// Release frees the ticket without applying anything, for failed requests.
func (s *Store) Release(t Ticket) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.release(t)
}

// Fail frees the ticket and records msg in the error slot, unless the
// session has moved on since t was issued. It reports whether msg was recorded.
func (s *Store) Fail(t Ticket, msg string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.release(t)
	if t.Epoch != s.epoch || t.Stage != s.state.CurrentStage {
		return false
	}
	s.apply(func(st State) State { return st.SetError(msg) })
	return true
}

// Current reports whether t still matches the session.
func (s *Store) Current(t Ticket) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return t.Epoch == s.epoch && t.Stage == s.state.CurrentStage
}

func (s *Store) InFlight(stage Stage) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, busy := s.inFlight[stage]
	return busy
}

func (s *Store) release(t Ticket) {
	if id, ok := s.inFlight[t.Stage]; ok && id == t.Id {
		delete(s.inFlight, t.Stage)
	}
}

func (s *Store) apply(fn func(State) State) State {
	s.state = fn(s.state)
	for _, l := range s.listeners {
		l(s.state)
	}
	return s.state
}
