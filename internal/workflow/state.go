// Package workflow holds the content-generation wizard: the ordered stages,
// the session state with its per-stage result caches, and the transitions
// between them.
//
// Every transition is a method on State with a value receiver that returns
// the next State. Nothing here performs I/O or fails; preconditions are the
// caller's job (see Prerequisites). Results stored in the caches are treated
// as immutable once saved.
package workflow

import "angelamos-operations/pkg/studio"

type State struct {
	SessionId    string `json:"session_id,omitempty"`
	Mode         Mode   `json:"mode,omitempty"`
	CurrentStage Stage  `json:"current_stage"`
	ManualTopic  string `json:"manual_topic,omitempty"`

	Ideas      *studio.IdeasResponse `json:"ideas,omitempty"`
	ChosenIdea *studio.Idea          `json:"chosen_idea,omitempty"`

	Hooks           *studio.HooksResponse `json:"hooks,omitempty"`
	SelectedHookIds []int                 `json:"selected_hook_ids"`

	HookAnalysis *studio.HookAnalysisResponse `json:"hook_analysis,omitempty"`
	ChosenHook   *studio.Hook                 `json:"chosen_hook,omitempty"`

	Script           *studio.ScriptResponse `json:"script,omitempty"`
	VariationChoices map[int]int            `json:"variation_choices"`

	ScriptAnalysis *studio.ScriptAnalysisResponse `json:"script_analysis,omitempty"`
	FinalReview    *studio.FinalReviewResponse    `json:"final_review,omitempty"`

	ErrorMessage string `json:"error_message,omitempty"`
}

// Initial is the state before any mode has been picked.
func Initial() State {
	return State{
		CurrentStage:     StageModeSelection,
		SelectedHookIds:  []int{},
		VariationChoices: map[int]int{},
	}
}

func (s State) clone() State {
	out := s
	out.SelectedHookIds = append([]int{}, s.SelectedHookIds...)
	out.VariationChoices = make(map[int]int, len(s.VariationChoices))
	for k, v := range s.VariationChoices {
		out.VariationChoices[k] = v
	}
	return out
}

// normalized repairs a decoded state: nil collections become empty and an
// unknown stage falls back to the initial one.
func (s State) normalized() State {
	out := s.clone()
	if !out.CurrentStage.Valid() {
		out.CurrentStage = StageModeSelection
	}
	return out
}

// StartWorkflow discards any previous session and enters the mode's entry stage.
// The topic is kept only for user-supplied ideas.
func (s State) StartWorkflow(mode Mode, topic string) State {
	next := Initial()
	next.Mode = mode
	next.CurrentStage = mode.EntryStage()
	if mode == ModeUserSuppliedIdea {
		next.ManualTopic = topic
	}
	return next
}

func (s State) SaveIdeasResult(res *studio.IdeasResponse) State {
	next := s.clone()
	next.Ideas = res
	if res != nil && res.SessionId != "" {
		next.SessionId = res.SessionId
	}
	return next
}

func (s State) SaveHooksResult(res *studio.HooksResponse) State {
	next := s.clone()
	next.Hooks = res
	if res != nil && res.SessionId != "" {
		next.SessionId = res.SessionId
	}
	return next
}

func (s State) SaveHookAnalysisResult(res *studio.HookAnalysisResponse) State {
	next := s.clone()
	next.HookAnalysis = res
	return next
}

func (s State) SaveScriptResult(res *studio.ScriptResponse) State {
	next := s.clone()
	next.Script = res
	return next
}

func (s State) SaveScriptAnalysisResult(res *studio.ScriptAnalysisResponse) State {
	next := s.clone()
	next.ScriptAnalysis = res
	return next
}

func (s State) SaveFinalReviewResult(res *studio.FinalReviewResponse) State {
	next := s.clone()
	next.FinalReview = res
	return next
}

func (s State) SelectIdea(idea studio.Idea) State {
	next := s.clone()
	next.ChosenIdea = &idea
	return next
}

func (s State) SelectFinalHook(hook studio.Hook) State {
	next := s.clone()
	next.ChosenHook = &hook
	return next
}

// ToggleHookSelection removes a selected id, or adds it while below b.Max.
// An add that would exceed the bound returns s unchanged.
func (s State) ToggleHookSelection(hookId int, b Bounds) State {
	for i, id := range s.SelectedHookIds {
		if id == hookId {
			next := s.clone()
			next.SelectedHookIds = append(next.SelectedHookIds[:i], next.SelectedHookIds[i+1:]...)
			return next
		}
	}
	if len(s.SelectedHookIds) >= b.Max {
		return s
	}
	next := s.clone()
	next.SelectedHookIds = append(next.SelectedHookIds, hookId)
	return next
}

func (s State) IsHookSelected(hookId int) bool {
	for _, id := range s.SelectedHookIds {
		if id == hookId {
			return true
		}
	}
	return false
}

func (s State) SelectVariation(sentenceNumber, variationIndex int) State {
	next := s.clone()
	next.VariationChoices[sentenceNumber] = variationIndex
	return next
}

func (s State) GoToStage(stage Stage) State {
	next := s.clone()
	next.CurrentStage = stage
	return next
}

func (s State) GoBack() State {
	prev := s.CurrentStage.Previous()
	if prev == s.CurrentStage {
		return s
	}
	return s.GoToStage(prev)
}

// ResetFromStage moves to stage and clears the slots owned by stage and every
// later stage. Earlier slots survive.
func (s State) ResetFromStage(stage Stage) State {
	if stage == StageModeSelection {
		return s.ResetWorkflow()
	}
	next := s.clone()
	next.CurrentStage = stage
	for _, st := range stageOrder[stage.Index():] {
		next = next.clearSlots(st)
	}
	return next
}

func (s State) clearSlots(stage Stage) State {
	switch stage {
	case StageIdeas:
		s.Ideas = nil
		s.ChosenIdea = nil
	case StageHooks:
		s.Hooks = nil
		s.SelectedHookIds = []int{}
	case StageHookAnalysis:
		s.HookAnalysis = nil
		s.ChosenHook = nil
	case StageScript:
		s.Script = nil
		s.VariationChoices = map[int]int{}
	case StageScriptAnalysis:
		s.ScriptAnalysis = nil
	case StageFinalReview:
		s.FinalReview = nil
	}
	return s
}

func (s State) ResetWorkflow() State {
	return Initial()
}

func (s State) SetError(msg string) State {
	next := s.clone()
	next.ErrorMessage = msg
	return next
}

func (s State) ClearError() State {
	return s.SetError("")
}

// Topic is what hooks and scripts are written about: the manual topic for
// user-supplied ideas, the chosen idea's topic otherwise.
func (s State) Topic() string {
	if s.Mode == ModeUserSuppliedIdea {
		return s.ManualTopic
	}
	if s.ChosenIdea != nil {
		return s.ChosenIdea.Topic
	}
	return ""
}

// Started reports whether a mode has been picked.
func (s State) Started() bool {
	return s.Mode != ""
}
