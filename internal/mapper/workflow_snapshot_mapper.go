package mapper

import (
	"encoding/json"
	"fmt"

	"angelamos-operations/internal/model"
	"angelamos-operations/internal/workflow"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type WorkflowSnapshotMapper struct{}

func NewWorkflowSnapshotMapper() *WorkflowSnapshotMapper {
	return &WorkflowSnapshotMapper{}
}

func (m *WorkflowSnapshotMapper) ToModel(userId uuid.UUID, key string, snap workflow.Snapshot) (*model.WorkflowSnapshot, error) {
	payload, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("marshal workflow snapshot: %w", err)
	}
	return &model.WorkflowSnapshot{
		UserId:       userId,
		StorageKey:   key,
		SessionId:    snap.SessionId,
		Mode:         string(snap.Mode),
		CurrentStage: string(snap.CurrentStage),
		Payload:      datatypes.JSON(payload),
	}, nil
}

func (m *WorkflowSnapshotMapper) ToSnapshot(row *model.WorkflowSnapshot) (*workflow.Snapshot, error) {
	if row == nil {
		return nil, nil
	}
	var snap workflow.Snapshot
	if err := json.Unmarshal(row.Payload, &snap); err != nil {
		return nil, fmt.Errorf("unmarshal workflow snapshot: %w", err)
	}
	return &snap, nil
}
