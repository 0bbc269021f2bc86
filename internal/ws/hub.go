package ws

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"webchat-backend/internal/domain"
	"webchat-backend/pkg/observability"

	"go.uber.org/zap"
)

// ChatDirectory is the slice of the chat service the hub needs: resolving
// a user's chat list on connect, and persisting messages sent over the
// socket before they are fanned out.
type ChatDirectory interface {
	GetUserChats(ctx context.Context, userID int64) ([]domain.Chat, error)
	AddMessage(ctx context.Context, chatID, senderID int64, content string) (*domain.Message, error)
}

// Hub delivers events to live connections using the room membership held
// in the Registry. Delivery is best-effort and independent per recipient:
// a connection that cannot keep up is dropped and the remaining
// recipients still receive the event.
type Hub struct {
	registry *Registry
	chats    ChatDirectory

	mu      sync.RWMutex
	clients map[string]*Client

	logger  *zap.Logger
	metrics *observability.Collector
}

// NewHub creates a hub around the given registry. metrics may be nil.
func NewHub(registry *Registry, chats ChatDirectory, logger *zap.Logger, metrics *observability.Collector) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		registry: registry,
		chats:    chats,
		clients:  make(map[string]*Client),
		logger:   logger,
		metrics:  metrics,
	}
}

// Registry exposes the presence registry backing this hub.
func (h *Hub) Registry() *Registry {
	return h.registry
}

// Attach makes a connection known to the hub so it can receive events.
// Presence registration happens separately, when the client identifies
// itself.
func (h *Hub) Attach(c *Client) {
	h.mu.Lock()
	h.clients[c.id] = c
	h.mu.Unlock()

	h.metrics.ConnectionOpened()
	h.logger.Info("Connection attached",
		zap.String("connectionID", c.id),
		zap.Int("connections", h.ConnectionCount()),
	)
}

// Detach removes the connection from the hub and from the registry,
// cascading its room memberships. The registered identity is returned
// exactly once so the caller can announce the user going offline.
func (h *Hub) Detach(c *Client) (Identity, bool) {
	h.mu.Lock()
	if _, attached := h.clients[c.id]; attached {
		delete(h.clients, c.id)
		close(c.send)
		h.metrics.ConnectionClosed()
	}
	h.mu.Unlock()

	identity, registered := h.registry.Unregister(c.id)
	if registered {
		h.logger.Info("Connection detached",
			zap.String("connectionID", c.id),
			zap.Int64("userID", identity.UserID),
		)
	}
	return identity, registered
}

// SendToRoom delivers an event to every connection currently in the room.
// The membership snapshot is taken once; connections joining mid-call may
// or may not receive the event.
func (h *Hub) SendToRoom(roomID int64, event string, data interface{}) {
	h.sendTo(h.registry.MembersOf(roomID), "", event, data)
}

// SendToRoomExcept delivers an event to the room, omitting one
// connection. Used for typing and read indicators so the sender does not
// see its own event.
func (h *Hub) SendToRoomExcept(roomID int64, exceptConnID string, event string, data interface{}) {
	h.sendTo(h.registry.MembersOf(roomID), exceptConnID, event, data)
}

// BroadcastAll delivers an event to every live connection.
func (h *Hub) BroadcastAll(event string, data interface{}) {
	h.mu.RLock()
	connIDs := make([]string, 0, len(h.clients))
	for id := range h.clients {
		connIDs = append(connIDs, id)
	}
	h.mu.RUnlock()

	h.sendTo(connIDs, "", event, data)
}

// SendToConnection delivers an event to a single connection. Unknown
// connection ids degrade to a no-op.
func (h *Hub) SendToConnection(connID string, event string, data interface{}) {
	h.sendTo([]string{connID}, "", event, data)
}

// userOnline reports whether the user has at least one registered
// connection.
func (h *Hub) userOnline(userID int64) bool {
	for _, identity := range h.registry.Online() {
		if identity.UserID == userID {
			return true
		}
	}
	return false
}

// ConnectionCount returns the number of attached connections.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Stop tears down every connection, for graceful shutdown.
func (h *Hub) Stop() {
	h.mu.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		h.Detach(c)
		c.closeConn()
	}
	h.logger.Info("Hub stopped", zap.Int("closedConnections", len(clients)))
}

// sendTo marshals the event envelope once and pushes it to each resolved
// connection independently. Failures are logged, never propagated.
func (h *Hub) sendTo(connIDs []string, exceptConnID string, event string, data interface{}) {
	if len(connIDs) == 0 {
		return
	}

	raw, err := json.Marshal(Envelope{
		Type:      event,
		Timestamp: time.Now().Unix(),
		Data:      data,
	})
	if err != nil {
		h.logger.Error("Failed to marshal event",
			zap.Error(err),
			zap.String("event", event),
		)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, connID := range connIDs {
		if connID == exceptConnID {
			continue
		}
		client, ok := h.clients[connID]
		if !ok {
			// The connection disappeared between the membership snapshot
			// and delivery.
			continue
		}

		select {
		case client.send <- raw:
			h.metrics.EventSent(event)
		default:
			h.metrics.EventDropped()
			h.logger.Warn("Dropping event for slow connection",
				zap.String("connectionID", connID),
				zap.String("event", event),
			)
			go client.closeConn()
		}
	}
}
