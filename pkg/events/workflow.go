package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const (
	WorkflowStarted      = "WORKFLOW_STARTED"
	WorkflowStageChanged = "WORKFLOW_STAGE_CHANGED"
	WorkflowFailed       = "WORKFLOW_FAILED"
	WorkflowReset        = "WORKFLOW_RESET"
	WorkflowCompleted    = "WORKFLOW_COMPLETED"

	// WorkflowUpdated carries the full session after every transition so
	// other instances can take it over.
	WorkflowUpdated = "WORKFLOW_UPDATED"
)

// WorkflowEvent describes a transition of one user's content workflow.
type WorkflowEvent struct {
	Kind      string
	UserId    uuid.UUID
	SessionId string
	Mode      string
	Stage     string
	From      string
	Message   string
	Origin    string // instance that produced the event
	At        time.Time

	// Seq increases with every event of one origin.
	Seq   uint64
	State json.RawMessage
}

func (e WorkflowEvent) EventType() string {
	return e.Kind
}

func (e WorkflowEvent) Payload() map[string]interface{} {
	data := map[string]interface{}{
		"user_id":     e.UserId.String(),
		"stage":       e.Stage,
		"occurred_at": e.At.Format(time.RFC3339),
	}
	if e.SessionId != "" {
		data["session_id"] = e.SessionId
	}
	if e.Mode != "" {
		data["mode"] = e.Mode
	}
	if e.From != "" {
		data["from"] = e.From
	}
	if e.Message != "" {
		data["message"] = e.Message
	}
	if e.Origin != "" {
		data["origin"] = e.Origin
	}
	if e.Seq > 0 {
		data["seq"] = e.Seq
	}
	if len(e.State) > 0 {
		data["state"] = e.State
	}
	return data
}

func (e WorkflowEvent) Timestamp() time.Time {
	return e.At
}
