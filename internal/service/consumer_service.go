package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"angelamos-operations/internal/dto"
	"angelamos-operations/internal/pkg/logger"
	"angelamos-operations/internal/repository/contract"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/google/uuid"
)

type IConsumerService interface {
	Consume(ctx context.Context) error
}

// consumerService writes workflow snapshots queued on the in-process bus.
// Messages may arrive out of order, so anything older than the last version
// written for a user is skipped. A write that keeps failing after the retry
// budget is moved to the poison topic and acked.
type consumerService struct {
	subscriber message.Subscriber
	poison     message.Publisher
	topicName  string
	repo       contract.WorkflowSnapshotRepository
	logger     logger.ILogger
	retry      middleware.Retry

	mu      sync.Mutex
	written map[uuid.UUID]uint64
}

func NewConsumerService(
	subscriber message.Subscriber,
	poison message.Publisher,
	topicName string,
	repo contract.WorkflowSnapshotRepository,
	log logger.ILogger,
) IConsumerService {
	return &consumerService{
		subscriber: subscriber,
		poison:     poison,
		topicName:  topicName,
		repo:       repo,
		logger:     log,
		retry: middleware.Retry{
			MaxRetries:      3,
			InitialInterval: 100 * time.Millisecond,
			MaxInterval:     2 * time.Second,
			Multiplier:      2,
		},
		written: make(map[uuid.UUID]uint64),
	}
}

// PoisonTopic receives snapshot messages whose write failed on every attempt.
func PoisonTopic(topicName string) string {
	return topicName + ".poison"
}

// Consume starts the router and returns once the subscription is live.
func (cs *consumerService) Consume(ctx context.Context) error {
	router, err := message.NewRouter(message.RouterConfig{}, watermill.NopLogger{})
	if err != nil {
		return err
	}

	poisonQueue, err := middleware.PoisonQueueWithFilter(cs.poison, PoisonTopic(cs.topicName), func(err error) bool {
		cs.logger.Error("SnapshotConsumer", "Dropping snapshot after retries", map[string]interface{}{"error": err})
		return true
	})
	if err != nil {
		return err
	}
	router.AddMiddleware(poisonQueue, cs.retry.Middleware)
	router.AddNoPublisherHandler("workflow_snapshot_writer", cs.topicName, cs.subscriber, cs.handle)

	runErr := make(chan error, 1)
	go func() {
		runErr <- router.Run(ctx)
	}()

	select {
	case <-router.Running():
		return nil
	case err := <-runErr:
		if err == nil {
			return fmt.Errorf("snapshot router stopped before running")
		}
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (cs *consumerService) handle(msg *message.Message) error {
	var payload dto.WorkflowSnapshotMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		// Redelivering garbage never helps.
		cs.logger.Error("SnapshotConsumer", "Failed to unmarshal message", map[string]interface{}{"error": err})
		return nil
	}

	if !cs.newer(payload.UserId, payload.Version) {
		return nil
	}

	ctx := msg.Context()
	var err error
	if payload.Discard || payload.Snapshot == nil {
		err = cs.repo.Delete(ctx, payload.UserId)
	} else {
		err = cs.repo.Save(ctx, payload.UserId, *payload.Snapshot)
	}
	if err != nil {
		cs.logger.Warn("SnapshotConsumer", "Failed to persist snapshot", map[string]interface{}{
			"user_id": payload.UserId,
			"version": payload.Version,
			"error":   err.Error(),
		})
		cs.forget(payload.UserId, payload.Version)
		return fmt.Errorf("persist snapshot for %s: %w", payload.UserId, err)
	}

	cs.logger.Debug("SnapshotConsumer", "Snapshot persisted", map[string]interface{}{
		"user_id": payload.UserId,
		"version": payload.Version,
		"discard": payload.Discard,
	})
	return nil
}

// newer claims version for the user if nothing newer was written yet.
func (cs *consumerService) newer(userId uuid.UUID, version uint64) bool {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	if version <= cs.written[userId] {
		return false
	}
	cs.written[userId] = version
	return true
}

// forget releases a claim whose write failed, so a retry can claim it again.
func (cs *consumerService) forget(userId uuid.UUID, version uint64) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	if cs.written[userId] == version {
		cs.written[userId] = version - 1
	}
}
