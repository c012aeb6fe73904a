package studio

import (
	"errors"
	"fmt"
)

// ErrMalformedResponse marks a 2xx response whose body does not have the
// shape the workflow expects. Such responses are never stored.
var ErrMalformedResponse = errors.New("malformed studio response")

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformedResponse, fmt.Sprintf(format, args...))
}

func ValidateIdeas(r *IdeasResponse) error {
	if r == nil {
		return malformed("empty ideas response")
	}
	if r.SessionId == "" {
		return malformed("ideas response without session_id")
	}
	if len(r.Ideas) == 0 {
		return malformed("ideas response without ideas")
	}
	seen := make(map[int]bool, len(r.Ideas))
	for i, idea := range r.Ideas {
		if idea.Topic == "" {
			return malformed("idea %d has no topic", i)
		}
		if seen[idea.Id] {
			return malformed("duplicate idea id %d", idea.Id)
		}
		seen[idea.Id] = true
	}
	return nil
}

func ValidateHooks(r *HooksResponse) error {
	if r == nil {
		return malformed("empty hooks response")
	}
	if r.SessionId == "" || r.GenerationId == "" {
		return malformed("hooks response without session_id or generation_id")
	}
	if len(r.Hooks) == 0 {
		return malformed("hooks response without hooks")
	}
	seen := make(map[int]bool, len(r.Hooks))
	for _, h := range r.Hooks {
		if h.VisualHook == "" && h.TextHook == "" && h.VerbalHook == "" {
			return malformed("hook %d is empty", h.Id)
		}
		if seen[h.Id] {
			return malformed("duplicate hook id %d", h.Id)
		}
		seen[h.Id] = true
	}
	return nil
}

func ValidateHookAnalysis(r *HookAnalysisResponse) error {
	if r == nil {
		return malformed("empty hook analysis response")
	}
	if len(r.Analysis) == 0 {
		return malformed("hook analysis response without analysis")
	}
	if r.Recommendation == nil {
		return malformed("hook analysis response without recommendation")
	}
	return nil
}

func ValidateScript(r *ScriptResponse) error {
	if r == nil {
		return malformed("empty script response")
	}
	sentences := r.Script.Sentences()
	if len(sentences) == 0 {
		return malformed("script response without sentences")
	}
	seen := make(map[int]bool, len(sentences))
	for _, s := range sentences {
		if len(s.Variations) == 0 {
			return malformed("sentence %d has no variations", s.SentenceNumber)
		}
		if seen[s.SentenceNumber] {
			return malformed("duplicate sentence number %d", s.SentenceNumber)
		}
		seen[s.SentenceNumber] = true
	}
	return nil
}

func ValidateScriptAnalysis(r *ScriptAnalysisResponse) error {
	if r == nil {
		return malformed("empty script analysis response")
	}
	if r.OverallAssessment == nil || r.FinalRecommendation == nil {
		return malformed("script analysis response without assessment or recommendation")
	}
	return nil
}

func ValidateFinalReview(r *FinalReviewResponse) error {
	if r == nil {
		return malformed("empty final review response")
	}
	if r.Decision() == "" {
		return malformed("final review response without go/no-go decision")
	}
	return nil
}
