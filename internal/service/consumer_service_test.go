package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"angelamos-operations/internal/dto"
	"angelamos-operations/internal/pkg/logger"
	"angelamos-operations/internal/repository/memory"
	"angelamos-operations/internal/workflow"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func snapshotMessage(t *testing.T, msg dto.WorkflowSnapshotMessage) *message.Message {
	t.Helper()
	payload, err := json.Marshal(msg)
	require.NoError(t, err)
	return message.NewMessage(watermill.NewUUID(), payload)
}

func snapshotAt(stage workflow.Stage) *workflow.Snapshot {
	st := workflow.Initial().StartWorkflow(workflow.ModeGenerateIdeas, "")
	st.CurrentStage = stage
	snap := st.Snapshot()
	return &snap
}

func TestConsumerPersistsQueuedSnapshots(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pubSub := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 16}, watermill.NopLogger{})
	defer pubSub.Close()

	repo := memory.NewWorkflowSnapshotRepository(time.Hour)
	consumer := NewConsumerService(pubSub, pubSub, "snapshots", repo, logger.NewNopLogger())
	require.NoError(t, consumer.Consume(ctx))

	user := uuid.New()
	publisher := NewPublisherService("snapshots", pubSub)
	payload, err := json.Marshal(dto.WorkflowSnapshotMessage{UserId: user, Version: 1, Snapshot: snapshotAt(workflow.StageHooks)})
	require.NoError(t, err)
	require.NoError(t, publisher.Publish(ctx, payload))

	assert.Eventually(t, func() bool {
		snap, _ := repo.Load(ctx, user)
		return snap != nil && snap.CurrentStage == workflow.StageHooks
	}, time.Second, 10*time.Millisecond)
}

func TestConsumerSkipsOlderVersions(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewWorkflowSnapshotRepository(time.Hour)
	cs := NewConsumerService(nil, nil, "snapshots", repo, logger.NewNopLogger()).(*consumerService)
	user := uuid.New()

	require.NoError(t, cs.handle(snapshotMessage(t, dto.WorkflowSnapshotMessage{UserId: user, Version: 5, Snapshot: snapshotAt(workflow.StageScript)})))
	require.NoError(t, cs.handle(snapshotMessage(t, dto.WorkflowSnapshotMessage{UserId: user, Version: 3, Snapshot: snapshotAt(workflow.StageIdeas)})))

	snap, err := repo.Load(ctx, user)
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Equal(t, workflow.StageScript, snap.CurrentStage)

	require.NoError(t, cs.handle(snapshotMessage(t, dto.WorkflowSnapshotMessage{UserId: user, Version: 6, Discard: true})))
	snap, err = repo.Load(ctx, user)
	require.NoError(t, err)
	assert.Nil(t, snap)
}

type flakyRepo struct {
	*memory.WorkflowSnapshotRepository
	mu       sync.Mutex
	failures int
}

func (r *flakyRepo) Save(ctx context.Context, userId uuid.UUID, snap workflow.Snapshot) error {
	r.mu.Lock()
	if r.failures > 0 {
		r.failures--
		r.mu.Unlock()
		return errors.New("connection reset")
	}
	r.mu.Unlock()
	return r.WorkflowSnapshotRepository.Save(ctx, userId, snap)
}

func TestConsumerRetriesFailedWriteOfSameVersion(t *testing.T) {
	ctx := context.Background()
	repo := &flakyRepo{WorkflowSnapshotRepository: memory.NewWorkflowSnapshotRepository(time.Hour), failures: 1}
	cs := NewConsumerService(nil, nil, "snapshots", repo, logger.NewNopLogger()).(*consumerService)
	user := uuid.New()
	msg := dto.WorkflowSnapshotMessage{UserId: user, Version: 2, Snapshot: snapshotAt(workflow.StageHooks)}

	assert.Error(t, cs.handle(snapshotMessage(t, msg)))
	snap, _ := repo.Load(ctx, user)
	assert.Nil(t, snap)

	// A retry of the same version is not treated as stale.
	require.NoError(t, cs.handle(snapshotMessage(t, msg)))
	snap, _ = repo.Load(ctx, user)
	require.NotNil(t, snap)
	assert.Equal(t, workflow.StageHooks, snap.CurrentStage)
}

func TestConsumerIgnoresGarbage(t *testing.T) {
	cs := NewConsumerService(nil, nil, "snapshots", memory.NewWorkflowSnapshotRepository(time.Hour), logger.NewNopLogger()).(*consumerService)

	assert.NoError(t, cs.handle(message.NewMessage(watermill.NewUUID(), []byte("{not json"))))
}

// brokenRepo fails every write for one user and counts the attempts.
type brokenRepo struct {
	*memory.WorkflowSnapshotRepository
	broken   uuid.UUID
	attempts atomic.Int32
}

func (r *brokenRepo) Save(ctx context.Context, userId uuid.UUID, snap workflow.Snapshot) error {
	if userId == r.broken {
		r.attempts.Add(1)
		return errors.New("dial tcp: connection refused")
	}
	return r.WorkflowSnapshotRepository.Save(ctx, userId, snap)
}

func TestConsumerGivesUpOnFailingWrites(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pubSub := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 16}, watermill.NopLogger{})
	defer pubSub.Close()

	poisoned, err := pubSub.Subscribe(ctx, PoisonTopic("snapshots"))
	require.NoError(t, err)

	broken := uuid.New()
	repo := &brokenRepo{WorkflowSnapshotRepository: memory.NewWorkflowSnapshotRepository(time.Hour), broken: broken}
	cs := NewConsumerService(pubSub, pubSub, "snapshots", repo, logger.NewNopLogger()).(*consumerService)
	cs.retry.InitialInterval = time.Millisecond
	cs.retry.MaxInterval = 5 * time.Millisecond
	require.NoError(t, cs.Consume(ctx))

	healthy := uuid.New()
	require.NoError(t, pubSub.Publish("snapshots", snapshotMessage(t, dto.WorkflowSnapshotMessage{UserId: broken, Version: 1, Snapshot: snapshotAt(workflow.StageHooks)})))
	require.NoError(t, pubSub.Publish("snapshots", snapshotMessage(t, dto.WorkflowSnapshotMessage{UserId: healthy, Version: 2, Snapshot: snapshotAt(workflow.StageScript)})))

	select {
	case msg := <-poisoned:
		msg.Ack()
	case <-time.After(2 * time.Second):
		t.Fatal("failing snapshot never reached the poison topic")
	}

	assert.Eventually(t, func() bool {
		snap, _ := repo.Load(ctx, healthy)
		return snap != nil && snap.CurrentStage == workflow.StageScript
	}, 2*time.Second, 10*time.Millisecond)

	// One first attempt plus the retry budget, then nothing more.
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(cs.retry.MaxRetries+1), repo.attempts.Load())
}
