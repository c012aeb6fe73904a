package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"angelamos-operations/internal/repository/contract"
	"angelamos-operations/internal/workflow"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// WorkflowSnapshotRepository keeps snapshots as JSON strings with a sliding TTL.
type WorkflowSnapshotRepository struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewWorkflowSnapshotRepository(rdb *redis.Client, ttl time.Duration) contract.WorkflowSnapshotRepository {
	return &WorkflowSnapshotRepository{rdb: rdb, ttl: ttl}
}

func (r *WorkflowSnapshotRepository) Save(ctx context.Context, userId uuid.UUID, snap workflow.Snapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal workflow snapshot: %w", err)
	}
	return r.rdb.Set(ctx, contract.SnapshotStorageKey(userId), payload, r.ttl).Err()
}

func (r *WorkflowSnapshotRepository) Load(ctx context.Context, userId uuid.UUID) (*workflow.Snapshot, error) {
	payload, err := r.rdb.Get(ctx, contract.SnapshotStorageKey(userId)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	var snap workflow.Snapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return nil, fmt.Errorf("unmarshal workflow snapshot: %w", err)
	}
	return &snap, nil
}

func (r *WorkflowSnapshotRepository) Delete(ctx context.Context, userId uuid.UUID) error {
	return r.rdb.Del(ctx, contract.SnapshotStorageKey(userId)).Err()
}
