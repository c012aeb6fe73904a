package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"angelamos-operations/internal/config"
	"angelamos-operations/internal/dto"
	"angelamos-operations/internal/pkg/logger"
	"angelamos-operations/internal/repository/contract"
	"angelamos-operations/internal/workflow"
	"angelamos-operations/pkg/events"
	"angelamos-operations/pkg/studio"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

const MessageTypeWorkflowState = "workflow_state"

// IStudioGenerator is the part of the studio API the wizard drives.
type IStudioGenerator interface {
	GenerateIdeas(ctx context.Context, req *studio.IdeasRequest) (*studio.IdeasResponse, error)
	GenerateHooks(ctx context.Context, req *studio.HooksRequest) (*studio.HooksResponse, error)
	AnalyzeHooks(ctx context.Context, req *studio.HookAnalysisRequest) (*studio.HookAnalysisResponse, error)
	GenerateScript(ctx context.Context, req *studio.ScriptRequest) (*studio.ScriptResponse, error)
	AnalyzeScript(ctx context.Context, req *studio.ScriptAnalysisRequest) (*studio.ScriptAnalysisResponse, error)
	FinalReview(ctx context.Context, req *studio.FinalReviewRequest) (*studio.FinalReviewResponse, error)
}

// IStatePusher delivers a message to every live connection of a user.
type IStatePusher interface {
	Send(userID uuid.UUID, msgType string, data interface{})
}

type IEventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

type IWorkflowService interface {
	Get(ctx context.Context, userId uuid.UUID) (*dto.WorkflowResponse, error)
	Start(ctx context.Context, userId uuid.UUID, req *dto.StartWorkflowRequest) (*dto.WorkflowResponse, error)
	GenerateIdeas(ctx context.Context, userId uuid.UUID, req *dto.GenerateIdeasRequest) (*dto.WorkflowResponse, error)
	SelectIdea(ctx context.Context, userId uuid.UUID, req *dto.SelectIdeaRequest) (*dto.WorkflowResponse, error)
	GenerateHooks(ctx context.Context, userId uuid.UUID, req *dto.GenerateHooksRequest) (*dto.WorkflowResponse, error)
	ToggleHook(ctx context.Context, userId uuid.UUID, req *dto.HookIdRequest) (*dto.WorkflowResponse, error)
	AnalyzeHooks(ctx context.Context, userId uuid.UUID, req *dto.AnalyzeHooksRequest) (*dto.WorkflowResponse, error)
	ChooseHook(ctx context.Context, userId uuid.UUID, req *dto.HookIdRequest) (*dto.WorkflowResponse, error)
	GenerateScript(ctx context.Context, userId uuid.UUID, req *dto.GenerateScriptRequest) (*dto.WorkflowResponse, error)
	SelectVariation(ctx context.Context, userId uuid.UUID, req *dto.SelectVariationRequest) (*dto.WorkflowResponse, error)
	AnalyzeScript(ctx context.Context, userId uuid.UUID, req *dto.AnalyzeScriptRequest) (*dto.WorkflowResponse, error)
	FinalReview(ctx context.Context, userId uuid.UUID, req *dto.FinalReviewRequest) (*dto.WorkflowResponse, error)
	GoToStage(ctx context.Context, userId uuid.UUID, req *dto.StageRequest) (*dto.WorkflowResponse, error)
	GoBack(ctx context.Context, userId uuid.UUID) (*dto.WorkflowResponse, error)
	ResetFromStage(ctx context.Context, userId uuid.UUID, req *dto.StageRequest) (*dto.WorkflowResponse, error)
	Reset(ctx context.Context, userId uuid.UUID) (*dto.WorkflowResponse, error)
	ClearError(ctx context.Context, userId uuid.UUID) (*dto.WorkflowResponse, error)

	// HandleEvent adopts the session of a user whose workflow changed on another instance.
	HandleEvent(ctx context.Context, event events.Event) error
}

type workflowSession struct {
	store *workflow.Store
}

type workflowService struct {
	client    IStudioGenerator
	repo      contract.WorkflowSnapshotRepository
	snapshots IPublisherService
	pusher    IStatePusher
	events    IEventPublisher
	cfg       config.WorkflowConfig
	bounds    workflow.Bounds
	origin    string
	logger    logger.ILogger

	// sessions maps user id -> *workflowSession; idle sessions expire.
	sessions *cache.Cache
	// seen maps "user|origin" -> last applied update sequence.
	seen     *cache.Cache
	mu       sync.Mutex
	now      func() time.Time

	// seq orders snapshot messages across every session of this process.
	seq atomic.Uint64
}

func NewWorkflowService(
	client IStudioGenerator,
	repo contract.WorkflowSnapshotRepository,
	snapshots IPublisherService,
	pusher IStatePusher,
	eventPublisher IEventPublisher,
	cfg config.WorkflowConfig,
	origin string,
	log logger.ILogger,
) IWorkflowService {
	bounds := workflow.Bounds{Min: cfg.HookSelectionMin, Max: cfg.HookSelectionMax}
	if bounds.Min < 0 || bounds.Max < 1 || bounds.Min > bounds.Max {
		bounds = workflow.DefaultBounds()
	}
	return &workflowService{
		client:    client,
		repo:      repo,
		snapshots: snapshots,
		pusher:    pusher,
		events:    eventPublisher,
		cfg:       cfg,
		bounds:    bounds,
		origin:    origin,
		logger:    log,
		sessions:  cache.New(cfg.SessionIdleTTL, 10*time.Minute),
		seen:      cache.New(cfg.SessionIdleTTL, 10*time.Minute),
		now:       time.Now,
	}
}

// --- session registry ---

func (s *workflowService) session(ctx context.Context, userId uuid.UUID) (*workflowSession, error) {
	key := userId.String()

	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.sessions.Get(key); ok {
		s.sessions.Set(key, v, cache.DefaultExpiration)
		return v.(*workflowSession), nil
	}

	initial := workflow.Initial()
	snap, err := s.repo.Load(ctx, userId)
	if err != nil {
		return nil, fmt.Errorf("load workflow snapshot: %w", err)
	}
	if snap != nil {
		initial = workflow.Restore(*snap)
	}
	sess := s.newSession(userId, initial)

	s.logger.Debug("WorkflowService", "Session loaded", map[string]interface{}{
		"user_id": userId,
		"stage":   initial.CurrentStage,
		"resumed": snap != nil,
	})
	return sess, nil
}

// newSession caches a store for the user. Callers hold s.mu.
func (s *workflowService) newSession(userId uuid.UUID, initial workflow.State) *workflowSession {
	sess := &workflowSession{store: workflow.NewStore(initial, s.bounds)}
	sess.store.Subscribe(func(st workflow.State) { s.onChange(userId, st) })
	s.sessions.Set(userId.String(), sess, cache.DefaultExpiration)
	return sess
}

// onChange runs under the store lock for every transition.
func (s *workflowService) onChange(userId uuid.UUID, st workflow.State) {
	msg := dto.WorkflowSnapshotMessage{UserId: userId, Version: s.seq.Add(1)}
	if st.Started() {
		snap := st.Snapshot()
		msg.Snapshot = &snap
	} else {
		msg.Discard = true
	}

	payload, err := json.Marshal(msg)
	if err == nil {
		err = s.snapshots.Publish(context.Background(), payload)
	}
	if err != nil {
		s.logger.Warn("WorkflowService", "Snapshot not queued", map[string]interface{}{"user_id": userId, "error": err.Error()})
	}

	s.pusher.Send(userId, MessageTypeWorkflowState, s.view(userId, st))
	s.share(userId, st, msg.Version)
}

// share hands the full state to the other instances.
func (s *workflowService) share(userId uuid.UUID, st workflow.State, seq uint64) {
	if s.events == nil {
		return
	}
	raw, err := json.Marshal(st)
	if err != nil {
		s.logger.Warn("WorkflowService", "State not shared", map[string]interface{}{"user_id": userId, "error": err.Error()})
		return
	}
	s.publish(events.WorkflowEvent{
		Kind:      events.WorkflowUpdated,
		UserId:    userId,
		SessionId: st.SessionId,
		Mode:      string(st.Mode),
		Stage:     string(st.CurrentStage),
		Origin:    s.origin,
		At:        s.now(),
		Seq:       seq,
		State:     raw,
	})
}

func (s *workflowService) view(userId uuid.UUID, st workflow.State) *dto.WorkflowResponse {
	missing := st.MissingVariations()
	if missing == nil {
		missing = []int{}
	}
	res := &dto.WorkflowResponse{
		UserId: userId,
		State:  st,
		Stages: workflow.Stages(),
		Topic:  st.Topic(),
		HookSelection: dto.HookSelectionInfo{
			Min:      s.bounds.Min,
			Max:      s.bounds.Max,
			Selected: len(st.SelectedHookIds),
		},
		MissingVariations: missing,
	}
	if st.Script != nil && len(missing) == 0 {
		res.FinalizedScript = workflow.AssembleScript(st.Script.Script, st.VariationChoices)
	}
	if st.FinalReview != nil {
		res.Decision = st.FinalReview.Decision()
	}
	return res
}

func (s *workflowService) emit(userId uuid.UUID, kind string, st workflow.State, from workflow.Stage, message string) {
	if s.events == nil {
		return
	}
	s.publish(events.WorkflowEvent{
		Kind:      kind,
		UserId:    userId,
		SessionId: st.SessionId,
		Mode:      string(st.Mode),
		Stage:     string(st.CurrentStage),
		From:      string(from),
		Message:   message,
		Origin:    s.origin,
		At:        s.now(),
	})
}

func (s *workflowService) publish(event events.WorkflowEvent) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.events.Publish(ctx, event); err != nil {
			s.logger.Warn("WorkflowService", "Event not published", map[string]interface{}{"type": event.Kind, "error": err.Error()})
		}
	}()
}

// HandleEvent takes over sessions updated on other instances. Each origin's
// updates are applied in sequence order; older ones are dropped.
func (s *workflowService) HandleEvent(ctx context.Context, event events.Event) error {
	if event.EventType() != events.WorkflowUpdated {
		return nil
	}
	payload := event.Payload()
	origin, _ := payload["origin"].(string)
	if origin == "" || origin == s.origin {
		return nil
	}
	raw, _ := payload["user_id"].(string)
	userId, err := uuid.Parse(raw)
	if err != nil {
		s.logger.Warn("WorkflowService", "Event without user id", map[string]interface{}{"type": event.EventType()})
		return nil
	}
	seq, _ := payload["seq"].(float64)

	encoded, err := json.Marshal(payload["state"])
	var st workflow.State
	if err == nil && payload["state"] != nil {
		err = json.Unmarshal(encoded, &st)
	}
	if err != nil || payload["state"] == nil {
		s.logger.Warn("WorkflowService", "Update without usable state", map[string]interface{}{"user_id": userId, "origin": origin})
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	seenKey := userId.String() + "|" + origin
	if last, ok := s.seen.Get(seenKey); ok && uint64(seq) <= last.(uint64) {
		return nil
	}
	s.seen.Set(seenKey, uint64(seq), cache.DefaultExpiration)

	if v, ok := s.sessions.Get(userId.String()); ok {
		v.(*workflowSession).store.Adopt(st)
		s.sessions.Set(userId.String(), v, cache.DefaultExpiration)
	} else {
		s.newSession(userId, workflow.Initial()).store.Adopt(st)
	}

	s.logger.Debug("WorkflowService", "Adopted session from another instance", map[string]interface{}{
		"user_id": userId,
		"origin":  origin,
		"stage":   st.CurrentStage,
	})
	return nil
}

// --- reads and simple transitions ---

func (s *workflowService) Get(ctx context.Context, userId uuid.UUID) (*dto.WorkflowResponse, error) {
	sess, err := s.session(ctx, userId)
	if err != nil {
		return nil, err
	}
	return s.view(userId, sess.store.State()), nil
}

func (s *workflowService) Start(ctx context.Context, userId uuid.UUID, req *dto.StartWorkflowRequest) (*dto.WorkflowResponse, error) {
	mode, err := workflow.ParseMode(req.Mode)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if mode == workflow.ModeUserSuppliedIdea && req.Topic == "" {
		return nil, fmt.Errorf("%w: topic is required for %s", ErrInvalidInput, mode)
	}

	sess, err := s.session(ctx, userId)
	if err != nil {
		return nil, err
	}
	st := sess.store.StartWorkflow(mode, req.Topic)

	s.logger.Info("WorkflowService", "Workflow started", map[string]interface{}{"user_id": userId, "mode": mode})
	s.emit(userId, events.WorkflowStarted, st, workflow.StageModeSelection, "")
	return s.view(userId, st), nil
}

func (s *workflowService) SelectIdea(ctx context.Context, userId uuid.UUID, req *dto.SelectIdeaRequest) (*dto.WorkflowResponse, error) {
	sess, err := s.session(ctx, userId)
	if err != nil {
		return nil, err
	}
	st := sess.store.State()
	if err := requireStage(st, workflow.StageIdeas); err != nil {
		return nil, err
	}
	if st.Ideas == nil {
		return nil, fmt.Errorf("%w: no ideas generated yet", ErrUnknownIdea)
	}

	for _, idea := range st.Ideas.Ideas {
		if idea.Id == *req.IdeaId {
			next := sess.store.Dispatch(func(cur workflow.State) workflow.State { return cur.SelectIdea(idea) })
			return s.view(userId, next), nil
		}
	}
	return nil, fmt.Errorf("%w: %d", ErrUnknownIdea, *req.IdeaId)
}

// ToggleHook adds or removes a hook from the analysis selection. Adding past
// the upper bound is a no-op, not an error.
func (s *workflowService) ToggleHook(ctx context.Context, userId uuid.UUID, req *dto.HookIdRequest) (*dto.WorkflowResponse, error) {
	sess, err := s.session(ctx, userId)
	if err != nil {
		return nil, err
	}
	st := sess.store.State()
	if err := requireStage(st, workflow.StageHooks); err != nil {
		return nil, err
	}
	if _, ok := findHook(st.Hooks, *req.HookId); !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownHook, *req.HookId)
	}

	next := sess.store.ToggleHookSelection(*req.HookId)
	return s.view(userId, next), nil
}

func (s *workflowService) ChooseHook(ctx context.Context, userId uuid.UUID, req *dto.HookIdRequest) (*dto.WorkflowResponse, error) {
	sess, err := s.session(ctx, userId)
	if err != nil {
		return nil, err
	}
	st := sess.store.State()
	if err := requireStage(st, workflow.StageHookAnalysis); err != nil {
		return nil, err
	}
	hook, ok := findHook(st.Hooks, *req.HookId)
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownHook, *req.HookId)
	}
	if !st.IsHookSelected(hook.Id) {
		return nil, fmt.Errorf("%w: %d", ErrHookNotPicked, hook.Id)
	}

	next := sess.store.Dispatch(func(cur workflow.State) workflow.State { return cur.SelectFinalHook(hook) })
	return s.view(userId, next), nil
}

func (s *workflowService) SelectVariation(ctx context.Context, userId uuid.UUID, req *dto.SelectVariationRequest) (*dto.WorkflowResponse, error) {
	sess, err := s.session(ctx, userId)
	if err != nil {
		return nil, err
	}
	st := sess.store.State()
	if err := requireStage(st, workflow.StageScript); err != nil {
		return nil, err
	}
	if st.Script == nil {
		return nil, fmt.Errorf("%w: no script generated yet", ErrUnknownChoice)
	}

	sentenceNumber, variationIndex := *req.SentenceNumber, *req.VariationIndex
	for _, sentence := range st.Script.Script.Sentences() {
		if sentence.SentenceNumber != sentenceNumber {
			continue
		}
		if variationIndex < 0 || variationIndex >= len(sentence.Variations) {
			return nil, fmt.Errorf("%w: sentence %d has %d variations", ErrUnknownChoice, sentenceNumber, len(sentence.Variations))
		}
		next := sess.store.Dispatch(func(cur workflow.State) workflow.State {
			return cur.SelectVariation(sentenceNumber, variationIndex)
		})
		return s.view(userId, next), nil
	}
	return nil, fmt.Errorf("%w: sentence %d", ErrUnknownChoice, sentenceNumber)
}

// GoToStage moves forward when the target's prerequisites hold, or back to
// any earlier stage. Moving back abandons outstanding generation requests.
func (s *workflowService) GoToStage(ctx context.Context, userId uuid.UUID, req *dto.StageRequest) (*dto.WorkflowResponse, error) {
	target, err := workflow.ParseStage(req.Stage)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	sess, err := s.session(ctx, userId)
	if err != nil {
		return nil, err
	}

	st := sess.store.State()
	from := st.CurrentStage
	if err := workflow.Prerequisites(st, target, s.bounds); err != nil {
		return nil, err
	}

	move := func(cur workflow.State) workflow.State { return cur.GoToStage(target) }
	if target.Before(from) {
		st = sess.store.Rewind(move)
	} else {
		st = sess.store.Dispatch(move)
	}

	if from != target {
		s.emit(userId, events.WorkflowStageChanged, st, from, "")
	}
	return s.view(userId, st), nil
}

func (s *workflowService) GoBack(ctx context.Context, userId uuid.UUID) (*dto.WorkflowResponse, error) {
	sess, err := s.session(ctx, userId)
	if err != nil {
		return nil, err
	}
	from := sess.store.State().CurrentStage
	st := sess.store.GoBack()
	if from != st.CurrentStage {
		s.emit(userId, events.WorkflowStageChanged, st, from, "")
	}
	return s.view(userId, st), nil
}

func (s *workflowService) ResetFromStage(ctx context.Context, userId uuid.UUID, req *dto.StageRequest) (*dto.WorkflowResponse, error) {
	stage, err := workflow.ParseStage(req.Stage)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	sess, err := s.session(ctx, userId)
	if err != nil {
		return nil, err
	}

	from := sess.store.State().CurrentStage
	st := sess.store.ResetFromStage(stage)
	s.logger.Info("WorkflowService", "Workflow reset from stage", map[string]interface{}{"user_id": userId, "stage": stage})
	s.emit(userId, events.WorkflowReset, st, from, "")
	return s.view(userId, st), nil
}

func (s *workflowService) Reset(ctx context.Context, userId uuid.UUID) (*dto.WorkflowResponse, error) {
	sess, err := s.session(ctx, userId)
	if err != nil {
		return nil, err
	}
	from := sess.store.State().CurrentStage
	st := sess.store.ResetWorkflow()
	s.logger.Info("WorkflowService", "Workflow reset", map[string]interface{}{"user_id": userId})
	s.emit(userId, events.WorkflowReset, st, from, "")
	return s.view(userId, st), nil
}

func (s *workflowService) ClearError(ctx context.Context, userId uuid.UUID) (*dto.WorkflowResponse, error) {
	sess, err := s.session(ctx, userId)
	if err != nil {
		return nil, err
	}
	st := sess.store.Dispatch(workflow.State.ClearError)
	return s.view(userId, st), nil
}

// --- generation ---

func (s *workflowService) GenerateIdeas(ctx context.Context, userId uuid.UUID, req *dto.GenerateIdeasRequest) (*dto.WorkflowResponse, error) {
	return runStage(ctx, s, userId, workflow.StageIdeas,
		func(st workflow.State) (*studio.IdeasRequest, error) {
			if st.Mode != workflow.ModeGenerateIdeas {
				return nil, fmt.Errorf("%w: ideas are only generated in %s mode", ErrStageMismatch, workflow.ModeGenerateIdeas)
			}
			return &studio.IdeasRequest{
				Mode:          studio.ModeGiveMeIdeas,
				Count:         orDefault(req.Count, s.cfg.IdeaCount),
				TopicFocus:    req.TopicFocus,
				RiskTolerance: req.RiskTolerance,
				VideoType:     req.VideoType,
			}, nil
		},
		s.client.GenerateIdeas,
		workflow.State.SaveIdeasResult,
	)
}

func (s *workflowService) GenerateHooks(ctx context.Context, userId uuid.UUID, req *dto.GenerateHooksRequest) (*dto.WorkflowResponse, error) {
	return runStage(ctx, s, userId, workflow.StageHooks,
		func(st workflow.State) (*studio.HooksRequest, error) {
			out := &studio.HooksRequest{
				SessionId:          st.SessionId,
				Topic:              st.Topic(),
				Category:           req.Category,
				TargetLength:       req.TargetLength,
				Format:             req.Format,
				CredibilitySignals: req.CredibilitySignals,
				TargetAudience:     req.TargetAudience,
				Count:              orDefault(req.Count, s.cfg.HookCount),
			}
			if idea := st.ChosenIdea; idea != nil {
				out.Category = orDefaultString(out.Category, idea.Category)
				out.TargetLength = orDefaultString(out.TargetLength, idea.VideoLengthTarget)
				out.Format = orDefaultString(out.Format, idea.Format)
			}
			if strings.TrimSpace(out.Topic) == "" {
				if st.Mode == workflow.ModeUserSuppliedIdea {
					return nil, workflow.ErrTopicMissing
				}
				return nil, workflow.ErrIdeaNotChosen
			}
			return out, nil
		},
		s.client.GenerateHooks,
		workflow.State.SaveHooksResult,
	)
}

func (s *workflowService) AnalyzeHooks(ctx context.Context, userId uuid.UUID, req *dto.AnalyzeHooksRequest) (*dto.WorkflowResponse, error) {
	return runStage(ctx, s, userId, workflow.StageHookAnalysis,
		func(st workflow.State) (*studio.HookAnalysisRequest, error) {
			if st.Hooks == nil {
				return nil, workflow.ErrHooksNotGenerated
			}
			return &studio.HookAnalysisRequest{
				SessionId:       st.SessionId,
				GenerationId:    st.Hooks.GenerationId,
				SelectedHookIds: append([]int{}, st.SelectedHookIds...),
				Question:        req.Question,
			}, nil
		},
		s.client.AnalyzeHooks,
		workflow.State.SaveHookAnalysisResult,
	)
}

func (s *workflowService) GenerateScript(ctx context.Context, userId uuid.UUID, req *dto.GenerateScriptRequest) (*dto.WorkflowResponse, error) {
	return runStage(ctx, s, userId, workflow.StageScript,
		func(st workflow.State) (*studio.ScriptRequest, error) {
			if st.ChosenHook == nil {
				return nil, workflow.ErrHookNotChosen
			}
			format := req.Format
			if format == "" && st.ChosenIdea != nil {
				format = st.ChosenIdea.Format
			}
			return &studio.ScriptRequest{
				SessionId:              st.SessionId,
				ChosenHookId:           st.ChosenHook.Id,
				VideoLength:            orDefault(req.VideoLength, s.cfg.VideoLength),
				Topic:                  st.Topic(),
				Format:                 format,
				CredibilityToEstablish: req.CredibilityToEstablish,
				CarterExpertise:        req.CarterExpertise,
			}, nil
		},
		s.client.GenerateScript,
		workflow.State.SaveScriptResult,
	)
}

func (s *workflowService) AnalyzeScript(ctx context.Context, userId uuid.UUID, req *dto.AnalyzeScriptRequest) (*dto.WorkflowResponse, error) {
	return runStage(ctx, s, userId, workflow.StageScriptAnalysis,
		func(st workflow.State) (*studio.ScriptAnalysisRequest, error) {
			if missing := st.MissingVariations(); len(missing) > 0 {
				return nil, fmt.Errorf("%w: sentences %v", workflow.ErrVariationsMissing, missing)
			}
			choices := make(map[int]int, len(st.VariationChoices))
			for k, v := range st.VariationChoices {
				choices[k] = v
			}
			return &studio.ScriptAnalysisRequest{
				SessionId:        st.SessionId,
				ChosenVariations: choices,
				Questions:        req.Questions,
			}, nil
		},
		s.client.AnalyzeScript,
		workflow.State.SaveScriptAnalysisResult,
	)
}

func (s *workflowService) FinalReview(ctx context.Context, userId uuid.UUID, req *dto.FinalReviewRequest) (*dto.WorkflowResponse, error) {
	res, err := runStage(ctx, s, userId, workflow.StageFinalReview,
		func(st workflow.State) (*studio.FinalReviewRequest, error) {
			if st.Script == nil {
				return nil, workflow.ErrScriptNotGenerated
			}
			if st.ChosenHook == nil {
				return nil, workflow.ErrHookNotChosen
			}
			format := req.Format
			if format == "" && st.ChosenIdea != nil {
				format = st.ChosenIdea.Format
			}
			return &studio.FinalReviewRequest{
				SessionId:       st.SessionId,
				FinalizedScript: workflow.AssembleScript(st.Script.Script, st.VariationChoices),
				ChosenHook: map[string]string{
					"visual": st.ChosenHook.VisualHook,
					"text":   st.ChosenHook.TextHook,
					"verbal": st.ChosenHook.VerbalHook,
				},
				TargetLength: orDefault(req.TargetLength, s.cfg.VideoLength),
				Format:       orDefaultString(format, "talking_head"),
			}, nil
		},
		s.client.FinalReview,
		workflow.State.SaveFinalReviewResult,
	)
	if err == nil {
		s.emit(userId, events.WorkflowCompleted, res.State, workflow.StageFinalReview, res.Decision)
	}
	return res, err
}

// runStage performs one generation round trip for stage: enter the stage if
// the session is one step before it, take the stage's ticket, call the API
// and commit the result only if the session has not moved on meanwhile.
// Failures land in the session's error slot.
func runStage[Req, Res any](
	ctx context.Context,
	s *workflowService,
	userId uuid.UUID,
	stage workflow.Stage,
	build func(workflow.State) (*Req, error),
	call func(context.Context, *Req) (*Res, error),
	save func(workflow.State, *Res) workflow.State,
) (*dto.WorkflowResponse, error) {
	sess, err := s.session(ctx, userId)
	if err != nil {
		return nil, err
	}
	if err := s.enterStage(userId, sess.store, stage); err != nil {
		return nil, err
	}

	ticket, err := sess.store.Ticket()
	if err != nil {
		return nil, err
	}
	if ticket.Stage != stage {
		sess.store.Release(ticket)
		return nil, fmt.Errorf("%w: at %s", ErrStageMismatch, ticket.Stage)
	}

	req, err := build(sess.store.State())
	if err != nil {
		sess.store.Release(ticket)
		return nil, err
	}

	started := s.now()
	res, err := call(ctx, req)
	if err != nil {
		msg := failureMessage(stage, err)
		recorded := sess.store.Fail(ticket, msg)
		s.logger.Error("WorkflowService", "Generation failed", map[string]interface{}{
			"user_id":  userId,
			"stage":    stage,
			"error":    err,
			"recorded": recorded,
		})
		if recorded {
			s.emit(userId, events.WorkflowFailed, sess.store.State(), stage, msg)
		}
		return nil, err
	}

	st, err := sess.store.Commit(ticket, func(cur workflow.State) workflow.State {
		return save(cur, res).ClearError()
	})
	if err != nil {
		s.logger.Info("WorkflowService", "Discarded stale response", map[string]interface{}{"user_id": userId, "stage": stage})
		return nil, err
	}

	s.logger.Info("WorkflowService", "Stage generated", map[string]interface{}{
		"user_id":     userId,
		"stage":       stage,
		"duration_ms": s.now().Sub(started).Milliseconds(),
	})
	return s.view(userId, st), nil
}

// enterStage accepts a session already at stage, or advances it there from
// the previous stage when the prerequisites hold.
func (s *workflowService) enterStage(userId uuid.UUID, store *workflow.Store, stage workflow.Stage) error {
	st := store.State()
	if st.CurrentStage == stage {
		return nil
	}
	if !st.Started() {
		return workflow.ErrNotStarted
	}
	if stage.Before(st.CurrentStage) {
		return fmt.Errorf("%w: session is already at %s", ErrStageMismatch, st.CurrentStage)
	}
	if err := workflow.Prerequisites(st, stage, s.bounds); err != nil {
		return err
	}

	from := st.CurrentStage
	next := store.Dispatch(func(cur workflow.State) workflow.State {
		if cur.CurrentStage != from {
			return cur
		}
		return cur.GoToStage(stage)
	})
	if next.CurrentStage != stage {
		return fmt.Errorf("%w: at %s", ErrStageMismatch, next.CurrentStage)
	}
	s.emit(userId, events.WorkflowStageChanged, next, from, "")
	return nil
}

func requireStage(st workflow.State, stage workflow.Stage) error {
	if st.CurrentStage != stage {
		return fmt.Errorf("%w: expected %s, session is at %s", ErrStageMismatch, stage, st.CurrentStage)
	}
	return nil
}

func findHook(hooks *studio.HooksResponse, id int) (studio.Hook, bool) {
	if hooks == nil {
		return studio.Hook{}, false
	}
	for _, h := range hooks.Hooks {
		if h.Id == id {
			return h, true
		}
	}
	return studio.Hook{}, false
}

// failureMessage is what the user sees in the error slot.
func failureMessage(stage workflow.Stage, err error) string {
	var apiErr *studio.APIError
	switch {
	case errors.As(err, &apiErr):
		return fmt.Sprintf("Generating %s failed: %s", stage, apiErr.Detail)
	case errors.Is(err, studio.ErrMalformedResponse):
		return fmt.Sprintf("Generating %s failed: the studio returned an unexpected response", stage)
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Sprintf("Generating %s timed out", stage)
	default:
		return fmt.Sprintf("Generating %s failed: %v", stage, err)
	}
}

func orDefault(v, fallback int) int {
	if v > 0 {
		return v
	}
	return fallback
}

func orDefaultString(v, fallback string) string {
	if v != "" {
		return v
	}
	return fallback
}
