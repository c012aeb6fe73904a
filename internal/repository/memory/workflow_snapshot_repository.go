package memory

import (
	"context"
	"time"

	"angelamos-operations/internal/repository/contract"
	"angelamos-operations/internal/workflow"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

type WorkflowSnapshotRepository struct {
	cache *cache.Cache
}

func NewWorkflowSnapshotRepository(ttl time.Duration) *WorkflowSnapshotRepository {
	return &WorkflowSnapshotRepository{
		cache: cache.New(ttl, 10*time.Minute),
	}
}

var _ contract.WorkflowSnapshotRepository = (*WorkflowSnapshotRepository)(nil)

func (r *WorkflowSnapshotRepository) Save(ctx context.Context, userId uuid.UUID, snap workflow.Snapshot) error {
	r.cache.Set(contract.SnapshotStorageKey(userId), snap, cache.DefaultExpiration)
	return nil
}

func (r *WorkflowSnapshotRepository) Load(ctx context.Context, userId uuid.UUID) (*workflow.Snapshot, error) {
	if x, found := r.cache.Get(contract.SnapshotStorageKey(userId)); found {
		snap := x.(workflow.Snapshot)
		return &snap, nil
	}
	return nil, nil
}

func (r *WorkflowSnapshotRepository) Delete(ctx context.Context, userId uuid.UUID) error {
	r.cache.Delete(contract.SnapshotStorageKey(userId))
	return nil
}
