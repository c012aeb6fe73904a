package contract

import (
	"context"

	"angelamos-operations/internal/workflow"

	"github.com/google/uuid"
)

// WorkflowSnapshotRepository stores one wizard snapshot per user.
// Load returns nil, nil when the user has none.
type WorkflowSnapshotRepository interface {
	Save(ctx context.Context, userId uuid.UUID, snap workflow.Snapshot) error
	Load(ctx context.Context, userId uuid.UUID) (*workflow.Snapshot, error)
	Delete(ctx context.Context, userId uuid.UUID) error
}

// SnapshotStorageKey is the per-user key under the fixed workflow storage key.
func SnapshotStorageKey(userId uuid.UUID) string {
	return workflow.SnapshotKey + ":" + userId.String()
}
