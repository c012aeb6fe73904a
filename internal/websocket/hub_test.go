package websocket

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"angelamos-operations/internal/pkg/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub(nil, logger.NewNopLogger())
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)
	return hub
}

func register(hub *Hub, userID uuid.UUID, buffer int) *Client {
	c := &Client{Hub: hub, UserID: userID, Send: make(chan []byte, buffer)}
	hub.register <- c
	return c
}

func waitConnected(t *testing.T, hub *Hub, userID uuid.UUID, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return hub.Connected(userID) == n }, time.Second, 5*time.Millisecond)
}

func TestHubSendReachesEveryConnectionOfTheUser(t *testing.T) {
	hub := startHub(t)
	alice, bob := uuid.New(), uuid.New()

	tab1 := register(hub, alice, 4)
	tab2 := register(hub, alice, 4)
	other := register(hub, bob, 4)
	waitConnected(t, hub, alice, 2)
	waitConnected(t, hub, bob, 1)

	hub.Send(alice, "workflow_state", map[string]string{"current_stage": "hooks"})

	for _, c := range []*Client{tab1, tab2} {
		select {
		case raw := <-c.Send:
			var msg Message
			require.NoError(t, json.Unmarshal(raw, &msg))
			assert.Equal(t, "workflow_state", msg.Type)
		case <-time.After(time.Second):
			t.Fatal("message not delivered")
		}
	}
	assert.Empty(t, other.Send)
}

func TestHubDropsSlowClient(t *testing.T) {
	hub := startHub(t)
	user := uuid.New()
	slow := register(hub, user, 1)
	waitConnected(t, hub, user, 1)

	hub.Send(user, "workflow_state", 1)
	hub.Send(user, "workflow_state", 2)

	waitConnected(t, hub, user, 0)
	<-slow.Send
	_, open := <-slow.Send
	assert.False(t, open, "send channel closed once unregistered")
}

func TestHubSendDoesNotWaitOnRedis(t *testing.T) {
	// Nothing listens there and the publisher loop is not running.
	rdb := redis.NewClient(&redis.Options{Addr: "10.255.255.1:6379", DialTimeout: 2 * time.Second})
	defer rdb.Close()
	hub := NewHub(rdb, logger.NewNopLogger())
	user := uuid.New()
	sends := clusterBuffer + 10
	c := &Client{Hub: hub, UserID: user, Send: make(chan []byte, sends)}
	hub.clients[user] = []*Client{c}

	started := time.Now()
	for i := 0; i < sends; i++ {
		hub.Send(user, "workflow_state", i)
	}

	assert.Less(t, time.Since(started), 500*time.Millisecond)
	assert.Len(t, c.Send, sends, "local delivery still happens")
	assert.Len(t, hub.outbox, clusterBuffer)
}

func TestHubDeliverAndUnregisterDoNotRace(t *testing.T) {
	hub := startHub(t)
	user := uuid.New()

	for round := 0; round < 200; round++ {
		c := register(hub, user, 1)
		waitConnected(t, hub, user, 1)

		done := make(chan struct{})
		go func() {
			defer close(done)
			for i := 0; i < 20; i++ {
				hub.Send(user, "workflow_state", i)
			}
		}()
		hub.unregister <- c
		<-done
		waitConnected(t, hub, user, 0)
	}
}
