package workflow

import (
	"fmt"

	"angelamos-operations/pkg/studio"
)

type Stage string

const (
	StageModeSelection  Stage = "mode_selection"
	StageIdeas          Stage = "ideas"
	StageHooks          Stage = "hooks"
	StageHookAnalysis   Stage = "hook_analysis"
	StageScript         Stage = "script"
	StageScriptAnalysis Stage = "script_analysis"
	StageFinalReview    Stage = "final_review"
)

// stageOrder is the fixed order of the wizard. Index 0 is initial, the last entry is terminal.
var stageOrder = []Stage{
	StageModeSelection,
	StageIdeas,
	StageHooks,
	StageHookAnalysis,
	StageScript,
	StageScriptAnalysis,
	StageFinalReview,
}

// Stages returns the stages in order.
func Stages() []Stage {
	out := make([]Stage, len(stageOrder))
	copy(out, stageOrder)
	return out
}

// Index is the stage's position in the fixed order, -1 if unknown.
func (s Stage) Index() int {
	for i, st := range stageOrder {
		if st == s {
			return i
		}
	}
	return -1
}

func (s Stage) Valid() bool {
	return s.Index() >= 0
}

// Before reports whether s comes strictly before other.
func (s Stage) Before(other Stage) bool {
	return s.Index() < other.Index()
}

// Previous returns the stage one position earlier, or s itself at the initial stage.
func (s Stage) Previous() Stage {
	i := s.Index()
	if i <= 0 {
		return s
	}
	return stageOrder[i-1]
}

func ParseStage(raw string) (Stage, error) {
	s := Stage(raw)
	if !s.Valid() {
		return "", fmt.Errorf("unknown workflow stage %q", raw)
	}
	return s, nil
}

type Mode string

const (
	ModeGenerateIdeas    Mode = studio.ModeGiveMeIdeas
	ModeUserSuppliedIdea Mode = studio.ModeIHaveIdea
)

func ParseMode(raw string) (Mode, error) {
	switch Mode(raw) {
	case ModeGenerateIdeas, ModeUserSuppliedIdea:
		return Mode(raw), nil
	}
	return "", fmt.Errorf("unknown workflow mode %q", raw)
}

// EntryStage is where a freshly started session lands. User-supplied ideas skip the ideas stage.
func (m Mode) EntryStage() Stage {
	if m == ModeUserSuppliedIdea {
		return StageHooks
	}
	return StageIdeas
}

// Bounds is the inclusive hook-selection range.
type Bounds struct {
	Min int
	Max int
}

func DefaultBounds() Bounds {
	return Bounds{Min: 1, Max: 5}
}

func (b Bounds) Contains(n int) bool {
	return n >= b.Min && n <= b.Max
}
