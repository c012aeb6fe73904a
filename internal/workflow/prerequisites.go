package workflow

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"angelamos-operations/pkg/studio"
)

var (
	ErrNotStarted          = errors.New("workflow not started")
	ErrIdeaNotChosen       = errors.New("no idea chosen")
	ErrTopicMissing        = errors.New("no topic supplied")
	ErrHooksNotGenerated   = errors.New("hooks not generated")
	ErrHookSelectionBounds = errors.New("hook selection outside allowed range")
	ErrHookNotChosen       = errors.New("no final hook chosen")
	ErrScriptNotGenerated  = errors.New("script not generated")
	ErrVariationsMissing   = errors.New("not every sentence has a chosen variation")
	ErrAnalysisMissing     = errors.New("script analysis not generated")
	ErrStageSkipped        = errors.New("stage cannot be reached from the current stage")
)

// Prerequisites checks whether s may move forward to target. Moving to the
// current stage or any earlier one is always allowed.
func Prerequisites(s State, target Stage, b Bounds) error {
	if !target.Valid() {
		return fmt.Errorf("unknown workflow stage %q", target)
	}
	if target.Index() <= s.CurrentStage.Index() {
		return nil
	}
	if !s.Started() {
		return ErrNotStarted
	}
	if target.Index() > s.CurrentStage.Index()+1 {
		return fmt.Errorf("%w: %s -> %s", ErrStageSkipped, s.CurrentStage, target)
	}

	switch target {
	case StageIdeas:
		if s.Mode == ModeUserSuppliedIdea {
			return fmt.Errorf("%w: user-supplied ideas skip the ideas stage", ErrStageSkipped)
		}
	case StageHooks:
		if s.Mode == ModeUserSuppliedIdea {
			if strings.TrimSpace(s.ManualTopic) == "" {
				return ErrTopicMissing
			}
			break
		}
		if s.ChosenIdea == nil {
			return ErrIdeaNotChosen
		}
	case StageHookAnalysis:
		if s.Hooks == nil {
			return ErrHooksNotGenerated
		}
		if !b.Contains(len(s.SelectedHookIds)) {
			return fmt.Errorf("%w: %d selected, need %d-%d", ErrHookSelectionBounds, len(s.SelectedHookIds), b.Min, b.Max)
		}
	case StageScript:
		if s.ChosenHook == nil {
			return ErrHookNotChosen
		}
	case StageScriptAnalysis:
		if s.Script == nil {
			return ErrScriptNotGenerated
		}
		if missing := s.MissingVariations(); len(missing) > 0 {
			return fmt.Errorf("%w: sentences %v", ErrVariationsMissing, missing)
		}
	case StageFinalReview:
		if s.ScriptAnalysis == nil {
			return ErrAnalysisMissing
		}
	}
	return nil
}

// MissingVariations lists the sentence numbers of the generated script that
// have no valid chosen variation, in ascending order.
func (s State) MissingVariations() []int {
	if s.Script == nil {
		return nil
	}
	missing := make([]int, 0)
	for _, sentence := range s.Script.Script.Sentences() {
		idx, ok := s.VariationChoices[sentence.SentenceNumber]
		if !ok || idx < 0 || idx >= len(sentence.Variations) {
			missing = append(missing, sentence.SentenceNumber)
		}
	}
	sort.Ints(missing)
	return missing
}

// AssembleScript joins the chosen variation of each sentence in reading order.
// Sentences without a valid choice fall back to their first variation.
func AssembleScript(script studio.Script, choices map[int]int) string {
	parts := make([]string, 0)
	for _, sentence := range script.Sentences() {
		if len(sentence.Variations) == 0 {
			continue
		}
		idx, ok := choices[sentence.SentenceNumber]
		if !ok || idx < 0 || idx >= len(sentence.Variations) {
			idx = 0
		}
		parts = append(parts, strings.TrimSpace(sentence.Variations[idx]))
	}
	return strings.Join(parts, " ")
}
