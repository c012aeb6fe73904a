package dto

import (
	"angelamos-operations/internal/workflow"

	"github.com/google/uuid"
)

type StartWorkflowRequest struct {
	Mode  string `json:"mode" validate:"required,oneof=give_me_ideas i_have_idea"`
	Topic string `json:"topic" validate:"required_if=Mode i_have_idea,max=500"`
}

type GenerateIdeasRequest struct {
	Count         int    `json:"count" validate:"omitempty,min=1,max=20"`
	TopicFocus    string `json:"topic_focus"`
	RiskTolerance string `json:"risk_tolerance" validate:"omitempty,oneof=safe moderate bold"`
	VideoType     string `json:"video_type"`
}

type SelectIdeaRequest struct {
	IdeaId *int `json:"idea_id" validate:"required"`
}

type GenerateHooksRequest struct {
	Count              int    `json:"count" validate:"omitempty,min=10,max=30"`
	Category           string `json:"category"`
	TargetLength       string `json:"target_length"`
	Format             string `json:"format"`
	CredibilitySignals string `json:"credibility_signals"`
	TargetAudience     string `json:"target_audience"`
}

type HookIdRequest struct {
	HookId *int `json:"hook_id" validate:"required"`
}

type AnalyzeHooksRequest struct {
	Question string `json:"question" validate:"max=1000"`
}

type GenerateScriptRequest struct {
	VideoLength            int    `json:"video_length" validate:"omitempty,min=5,max=600"`
	Format                 string `json:"format"`
	CredibilityToEstablish string `json:"credibility_to_establish"`
	CarterExpertise        string `json:"carter_expertise"`
}

type SelectVariationRequest struct {
	SentenceNumber *int `json:"sentence_number" validate:"required"`
	VariationIndex *int `json:"variation_index" validate:"required,gte=0"`
}

type AnalyzeScriptRequest struct {
	Questions []string `json:"questions" validate:"max=10"`
}

type FinalReviewRequest struct {
	TargetLength int    `json:"target_length" validate:"omitempty,min=5,max=600"`
	Format       string `json:"format"`
}

type StageRequest struct {
	Stage string `json:"stage" validate:"required"`
}

type HookSelectionInfo struct {
	Min      int `json:"min"`
	Max      int `json:"max"`
	Selected int `json:"selected"`
}

// WorkflowResponse is the session as the client renders it: the raw state
// plus a few values derived from it.
type WorkflowResponse struct {
	UserId            uuid.UUID         `json:"user_id"`
	State             workflow.State    `json:"state"`
	Stages            []workflow.Stage  `json:"stages"`
	Topic             string            `json:"topic,omitempty"`
	HookSelection     HookSelectionInfo `json:"hook_selection"`
	MissingVariations []int             `json:"missing_variations"`
	FinalizedScript   string            `json:"finalized_script,omitempty"`
	Decision          string            `json:"decision,omitempty"`
}

// WorkflowSnapshotMessage travels over the in-process bus to the snapshot writer.
type WorkflowSnapshotMessage struct {
	UserId   uuid.UUID          `json:"user_id"`
	Version  uint64             `json:"version"`
	Discard  bool               `json:"discard"`
	Snapshot *workflow.Snapshot `json:"snapshot,omitempty"`
}
