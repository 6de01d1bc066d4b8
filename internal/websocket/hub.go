package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"notification-hub-be/internal/model"
	"notification-hub-be/internal/pkg/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// redisChannel carries delivery envelopes between instances. Every instance
// subscribes and forwards to the target user's local connections.
const redisChannel = "notification_delivery"

type envelope struct {
	Sender       string          `json:"sender"`         // originating instance, skipped on receive
	TargetUserID string          `json:"target_user_id"` // "*" broadcasts
	Message      json.RawMessage `json:"message"`
}

// Hub tracks live in-app sessions per user (multi-device: one user may hold
// several connections) and fans notifications out to them. With Redis
// configured, deliveries are also relayed to the other instances.
type Hub struct {
	clients map[uuid.UUID][]*Client

	register   chan *Client
	unregister chan *Client

	mu sync.RWMutex

	rdb        *redis.Client
	instanceID string
	logger     logger.ILogger
}

func NewHub(rdb *redis.Client, log logger.ILogger) *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[uuid.UUID][]*Client),
		rdb:        rdb,
		instanceID: uuid.NewString(),
		logger:     log,
	}
}

func (h *Hub) Run() {
	if h.rdb != nil {
		go h.relayFromRedis()
	}

	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.UserID] = append(h.clients[client.UserID], client)
			h.mu.Unlock()
			h.logger.Info("Hub", "Client registered", map[string]interface{}{"user_id": client.UserID})

		case client := <-h.unregister:
			h.mu.Lock()
			if clients, ok := h.clients[client.UserID]; ok {
				for i, c := range clients {
					if c == client {
						h.clients[client.UserID] = append(clients[:i], clients[i+1:]...)
						close(client.Send)
						break
					}
				}
				if len(h.clients[client.UserID]) == 0 {
					delete(h.clients, client.UserID)
					h.logger.Info("Hub", "Last client disconnected", map[string]interface{}{"user_id": client.UserID})
				}
			}
			h.mu.Unlock()
		}
	}
}

func frame(notification model.Notification) []byte {
	data, _ := json.Marshal(map[string]interface{}{
		"type": "notification",
		"data": notification,
	})
	return data
}

// Send delivers one notification to the user's live sessions. Implements the
// dispatcher's in-app delivery interface.
func (h *Hub) Send(userID uuid.UUID, notification model.Notification) {
	data := frame(notification)
	h.deliverLocal(userID, data)
	h.relayToRedis(userID.String(), data)
}

// Broadcast pushes a notification to every connected client on every
// instance.
func (h *Hub) Broadcast(notification model.Notification) {
	data := frame(notification)
	h.deliverAllLocal(data)
	h.relayToRedis("*", data)
}

func (h *Hub) deliverLocal(userID uuid.UUID, data []byte) {
	h.mu.RLock()
	clients := h.clients[userID]
	h.mu.RUnlock()

	h.deliver(clients, data)
}

func (h *Hub) deliverAllLocal(data []byte) {
	h.mu.RLock()
	var clients []*Client
	for _, cs := range h.clients {
		clients = append(clients, cs...)
	}
	h.mu.RUnlock()

	h.deliver(clients, data)
}

// deliver pushes data to each client. A slow consumer is dropped rather than
// allowed to block the hub; the drop goes through unregister so Run stays the
// only goroutine that closes a Send channel. Called without holding mu, since
// Run needs the write lock to process the eviction.
func (h *Hub) deliver(clients []*Client, data []byte) {
	for _, client := range clients {
		select {
		case client.Send <- data:
		default:
			h.logger.Warn("Hub", "Send buffer full, dropping connection", map[string]interface{}{"user_id": client.UserID})
			h.unregister <- client
		}
	}
}

// relayToRedis always publishes, so deliveries reach the user's devices
// connected to other instances.
func (h *Hub) relayToRedis(target string, data []byte) {
	if h.rdb == nil {
		return
	}
	payload, _ := json.Marshal(envelope{Sender: h.instanceID, TargetUserID: target, Message: data})
	h.rdb.Publish(context.Background(), redisChannel, payload)
}

func (h *Hub) relayFromRedis() {
	ctx := context.Background()
	pubsub := h.rdb.Subscribe(ctx, redisChannel)
	defer pubsub.Close()

	for msg := range pubsub.Channel() {
		var env envelope
		if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
			h.logger.Warn("Hub", "Unreadable relay payload", map[string]interface{}{"error": err.Error()})
			continue
		}

		if env.Sender == h.instanceID {
			continue // already delivered locally before the relay
		}

		if env.TargetUserID == "*" {
			h.deliverAllLocal(env.Message)
			continue
		}

		uid, err := uuid.Parse(env.TargetUserID)
		if err != nil {
			continue
		}
		h.deliverLocal(uid, env.Message)
	}
}
