package workflow

import "angelamos-operations/pkg/studio"

// SnapshotKey is the fixed storage key the snapshot lives under.
const SnapshotKey = "tiktok-workflow"

// Snapshot is the persisted projection of a State. Generated content is left
// out on purpose; after a restore it is regenerated by re-running the stage.
type Snapshot struct {
	SessionId        string       `json:"session_id,omitempty"`
	Mode             Mode         `json:"mode,omitempty"`
	CurrentStage     Stage        `json:"current_stage"`
	ManualTopic      string       `json:"manual_topic,omitempty"`
	ChosenIdea       *studio.Idea `json:"chosen_idea,omitempty"`
	SelectedHookIds  []int        `json:"selected_hook_ids"`
	ChosenHook       *studio.Hook `json:"chosen_hook,omitempty"`
	VariationChoices map[int]int  `json:"variation_choices"`
}

func (s State) Snapshot() Snapshot {
	c := s.clone()
	return Snapshot{
		SessionId:        c.SessionId,
		Mode:             c.Mode,
		CurrentStage:     c.CurrentStage,
		ManualTopic:      c.ManualTopic,
		ChosenIdea:       c.ChosenIdea,
		SelectedHookIds:  c.SelectedHookIds,
		ChosenHook:       c.ChosenHook,
		VariationChoices: c.VariationChoices,
	}
}

// Restore rebuilds a State from a snapshot. An unknown stage falls back to the
// initial state rather than resuming somewhere undefined.
func Restore(snap Snapshot) State {
	if !snap.CurrentStage.Valid() {
		return Initial()
	}
	s := Initial()
	s.SessionId = snap.SessionId
	s.Mode = snap.Mode
	s.CurrentStage = snap.CurrentStage
	s.ManualTopic = snap.ManualTopic
	s.ChosenIdea = snap.ChosenIdea
	s.ChosenHook = snap.ChosenHook
	if snap.SelectedHookIds != nil {
		s.SelectedHookIds = append([]int{}, snap.SelectedHookIds...)
	}
	for k, v := range snap.VariationChoices {
		s.VariationChoices[k] = v
	}
	return s
}
