package implementation

import (
	"context"
	"errors"

	"angelamos-operations/internal/mapper"
	"angelamos-operations/internal/model"
	"angelamos-operations/internal/repository/contract"
	"angelamos-operations/internal/workflow"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type WorkflowSnapshotRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.WorkflowSnapshotMapper
}

func NewWorkflowSnapshotRepository(db *gorm.DB) contract.WorkflowSnapshotRepository {
	return &WorkflowSnapshotRepositoryImpl{
		db:     db,
		mapper: mapper.NewWorkflowSnapshotMapper(),
	}
}

func (r *WorkflowSnapshotRepositoryImpl) Save(ctx context.Context, userId uuid.UUID, snap workflow.Snapshot) error {
	m, err := r.mapper.ToModel(userId, contract.SnapshotStorageKey(userId), snap)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"session_id", "mode", "current_stage", "payload", "updated_at"}),
	}).Create(m).Error
}

func (r *WorkflowSnapshotRepositoryImpl) Load(ctx context.Context, userId uuid.UUID) (*workflow.Snapshot, error) {
	var m model.WorkflowSnapshot
	if err := r.db.WithContext(ctx).Where("user_id = ?", userId).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToSnapshot(&m)
}

func (r *WorkflowSnapshotRepositoryImpl) Delete(ctx context.Context, userId uuid.UUID) error {
	return r.db.WithContext(ctx).Where("user_id = ?", userId).Delete(&model.WorkflowSnapshot{}).Error
}
