package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"angelamos-operations/internal/pkg/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	clusterChannel = "studio_cluster_events"
	clusterBuffer  = 256
)

// Message is the envelope every push is wrapped in.
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type clusterPayload struct {
	Origin       string          `json:"origin"`
	TargetUserID string          `json:"target_user_id"`
	Message      json.RawMessage `json:"message"`
}

type Hub struct {
	// UserID -> every open connection of that user (multi-tab, multi-device)
	clients map[uuid.UUID][]*Client

	register   chan *Client
	unregister chan *Client

	mu sync.RWMutex

	// Redis fan-out so a user connected to another instance still gets pushes.
	rdb    *redis.Client
	origin string
	outbox chan []byte

	logger logger.ILogger
}

func NewHub(rdb *redis.Client, log logger.ILogger) *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[uuid.UUID][]*Client),
		rdb:        rdb,
		origin:     uuid.NewString(),
		outbox:     make(chan []byte, clusterBuffer),
		logger:     log,
	}
}

// Origin identifies this instance in cluster traffic.
func (h *Hub) Origin() string {
	return h.origin
}

func (h *Hub) Run(ctx context.Context) {
	if h.rdb != nil {
		go h.subscribeToRedis(ctx)
		go h.publishToRedis(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.UserID] = append(h.clients[client.UserID], client)
			h.mu.Unlock()
			h.logger.Info("Hub", "Client registered", map[string]interface{}{"user_id": client.UserID})

		case client := <-h.unregister:
			h.remove(client)
		}
	}
}

func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients, ok := h.clients[client.UserID]
	if !ok {
		return
	}
	for i, c := range clients {
		if c == client {
			h.clients[client.UserID] = append(clients[:i], clients[i+1:]...)
			close(client.Send)
			break
		}
	}
	if len(h.clients[client.UserID]) == 0 {
		delete(h.clients, client.UserID)
		h.logger.Info("Hub", "Client completely unregistered", map[string]interface{}{"user_id": client.UserID})
	}
}

// Connected returns how many connections the user has on this instance.
func (h *Hub) Connected(userID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

// Send pushes a typed message to every connection of the user, here and on
// the other instances. It never waits on Redis: cluster copies are queued and
// dropped when the queue is full.
func (h *Hub) Send(userID uuid.UUID, msgType string, data interface{}) {
	payload, err := json.Marshal(Message{Type: msgType, Data: data})
	if err != nil {
		h.logger.Error("Hub", "Failed to encode message", map[string]interface{}{"error": err, "type": msgType})
		return
	}

	h.deliver(userID, payload)

	if h.rdb != nil {
		envelope, _ := json.Marshal(clusterPayload{
			Origin:       h.origin,
			TargetUserID: userID.String(),
			Message:      payload,
		})
		select {
		case h.outbox <- envelope:
		default:
			h.logger.Warn("Hub", "Cluster queue full, dropping message", map[string]interface{}{"user_id": userID, "type": msgType})
		}
	}
}

func (h *Hub) publishToRedis(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case envelope := <-h.outbox:
			if err := h.rdb.Publish(ctx, clusterChannel, envelope).Err(); err != nil {
				h.logger.Warn("Hub", "Redis publish failed", map[string]interface{}{"error": err.Error()})
			}
		}
	}
}

// deliver holds the read lock for the whole loop: remove closes Send under
// the write lock, so no send can race a close.
func (h *Hub) deliver(userID uuid.UUID, payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, client := range h.clients[userID] {
		select {
		case client.Send <- payload:
		default:
			h.logger.Warn("Hub", "Client Send buffer full, dropping connection", map[string]interface{}{"user_id": userID})
			go func(c *Client) { h.unregister <- c }(client)
		}
	}
}

func (h *Hub) subscribeToRedis(ctx context.Context) {
	pubsub := h.rdb.Subscribe(ctx, clusterChannel)
	defer pubsub.Close()

	for msg := range pubsub.Channel() {
		var payload clusterPayload
		if err := json.Unmarshal([]byte(msg.Payload), &payload); err != nil {
			h.logger.Warn("Hub", "Redis msg parse error", map[string]interface{}{"error": err.Error()})
			continue
		}
		if payload.Origin == h.origin {
			continue
		}

		uid, err := uuid.Parse(payload.TargetUserID)
		if err != nil {
			continue
		}
		h.deliver(uid, payload.Message)
	}
}
