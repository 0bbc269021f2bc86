package ws

import (
	"bytes"
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 512 * 1024 // 512KB

	// Send buffer size
	sendBufferSize = 256
)

// Client command actions.
const (
	ActionJoinUser       = "join-user"
	ActionJoinChat       = "join-chat"
	ActionLeaveChat      = "leave-chat"
	ActionSendMessage    = "send-message"
	ActionTyping         = "typing"
	ActionMarkRead       = "mark-read"
	ActionGetOnlineUsers = "get-online-users"
)

// command is what a client sends over the socket. Action selects the
// operation; the other fields are read depending on the action.
type command struct {
	Action            string `json:"action"`
	UserID            int64  `json:"userId"`
	Username          string `json:"username"`
	ChatID            int64  `json:"chatId"`
	Content           string `json:"content"`
	IsTyping          bool   `json:"isTyping"`
	LastReadMessageID int64  `json:"lastReadMessageId"`
}

// Client represents one WebSocket connection. A connection starts
// anonymous; the peer identifies itself with a join-user command before
// any other action is accepted.
type Client struct {
	id     string
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	logger *zap.Logger

	closeOnce sync.Once
}

// NewClient creates a client around an upgraded connection.
func NewClient(hub *Hub, conn *websocket.Conn, logger *zap.Logger) *Client {
	id := uuid.New().String()
	return &Client{
		id:     id,
		hub:    hub,
		conn:   conn,
		send:   make(chan []byte, sendBufferSize),
		logger: logger.With(zap.String("connectionID", id)),
	}
}

// ID returns the connection id.
func (c *Client) ID() string {
	return c.id
}

// Start attaches the client to the hub and begins the read and write
// pumps.
func (c *Client) Start() {
	c.hub.Attach(c)

	go c.writePump()
	go c.readPump()

	c.sendEvent(EventConnectionEstablished, ConnectionPayload{ConnectionID: c.id})
}

// closeConn closes the underlying socket, which unwinds both pumps. Safe
// to call multiple times and without a socket.
func (c *Client) closeConn() {
	c.closeOnce.Do(func() {
		if c.conn != nil {
			c.conn.Close()
		}
	})
}

// readPump pumps commands from the WebSocket connection into the hub.
func (c *Client) readPump() {
	defer func() {
		c.disconnect()
		c.logger.Info("Read pump stopped")
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		messageType, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("WebSocket read error", zap.Error(err))
			}
			break
		}

		switch messageType {
		case websocket.TextMessage:
			c.handleCommand(message)
		case websocket.BinaryMessage:
			c.logger.Warn("Binary messages not supported")
		}
	}
}

// writePump pumps events from the hub to the WebSocket connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.closeConn()
		c.logger.Info("Write pump stopped")
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.logger.Error("Failed to write message", zap.Error(err))
				return
			}

			// Add queued messages to the current message batch
			n := len(c.send)
			for i := 0; i < n; i++ {
				if err := c.conn.WriteMessage(websocket.TextMessage, <-c.send); err != nil {
					c.logger.Error("Failed to write batched message", zap.Error(err))
					return
				}
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logger.Error("Failed to send ping", zap.Error(err))
				return
			}
		}
	}
}

// disconnect detaches the client exactly once and announces the offline
// transition when the last connection of the user is gone.
func (c *Client) disconnect() {
	c.closeConn()

	identity, registered := c.hub.Detach(c)
	if !registered {
		return
	}

	if !c.hub.userOnline(identity.UserID) {
		c.hub.BroadcastAll(EventUserOffline, PresencePayload{
			UserID:   identity.UserID,
			Username: identity.Username,
		})
	}
}

// handleCommand dispatches one inbound command.
func (c *Client) handleCommand(raw []byte) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return
	}

	var cmd command
	if err := json.Unmarshal(raw, &cmd); err != nil {
		c.logger.Warn("Malformed command", zap.Error(err))
		c.sendError("malformed command")
		return
	}

	if cmd.Action == ActionJoinUser {
		c.handleJoinUser(cmd)
		return
	}

	identity, ok := c.hub.registry.Identity(c.id)
	if !ok {
		c.sendError("identify with join-user first")
		return
	}

	switch cmd.Action {
	case ActionJoinChat:
		c.handleJoinChat(identity, cmd)
	case ActionLeaveChat:
		c.handleLeaveChat(identity, cmd)
	case ActionSendMessage:
		c.handleSendMessage(identity, cmd)
	case ActionTyping:
		c.hub.SendToRoomExcept(cmd.ChatID, c.id, EventUserTyping, TypingPayload{
			UserID:   identity.UserID,
			Username: identity.Username,
			ChatID:   cmd.ChatID,
			IsTyping: cmd.IsTyping,
		})
	case ActionMarkRead:
		c.hub.SendToRoomExcept(cmd.ChatID, c.id, EventMessagesRead, ReadPayload{
			UserID:            identity.UserID,
			ChatID:            cmd.ChatID,
			LastReadMessageID: cmd.LastReadMessageID,
		})
	case ActionGetOnlineUsers:
		c.sendEvent(EventOnlineUsers, c.hub.registry.Online())
	default:
		c.logger.Debug("Unknown action", zap.String("action", cmd.Action))
		c.sendError("unknown action")
	}
}

// handleJoinUser registers the peer's identity and subscribes the
// connection to the rooms of every chat the user belongs to.
func (c *Client) handleJoinUser(cmd command) {
	if cmd.UserID <= 0 || cmd.Username == "" {
		c.sendError("join-user requires userId and username")
		return
	}

	wasOnline := c.hub.userOnline(cmd.UserID)
	c.hub.registry.Register(c.id, cmd.UserID, cmd.Username)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	chats, err := c.hub.chats.GetUserChats(ctx, cmd.UserID)
	if err != nil {
		c.logger.Error("Failed to resolve user chats",
			zap.Error(err),
			zap.Int64("userID", cmd.UserID),
		)
	}
	for _, chat := range chats {
		c.hub.registry.JoinRoom(c.id, chat.ID)
	}

	c.logger.Info("User joined",
		zap.Int64("userID", cmd.UserID),
		zap.String("username", cmd.Username),
		zap.Int("rooms", len(chats)),
	)

	if !wasOnline {
		c.hub.BroadcastAll(EventUserOnline, PresencePayload{
			UserID:   cmd.UserID,
			Username: cmd.Username,
		})
	}
	c.sendEvent(EventOnlineUsers, c.hub.registry.Online())
}

func (c *Client) handleJoinChat(identity Identity, cmd command) {
	if !c.hub.registry.JoinRoom(c.id, cmd.ChatID) {
		c.sendError("not registered")
		return
	}
	c.hub.SendToRoomExcept(cmd.ChatID, c.id, EventUserJoinedRoom, RoomPresencePayload{
		UserID:   identity.UserID,
		Username: identity.Username,
		ChatID:   cmd.ChatID,
	})
}

func (c *Client) handleLeaveChat(identity Identity, cmd command) {
	c.hub.registry.LeaveRoom(c.id, cmd.ChatID)
	c.hub.SendToRoomExcept(cmd.ChatID, c.id, EventUserLeftRoom, RoomPresencePayload{
		UserID:   identity.UserID,
		Username: identity.Username,
		ChatID:   cmd.ChatID,
	})
}

// handleSendMessage persists the message first; the room only hears about
// messages that made it to storage.
func (c *Client) handleSendMessage(identity Identity, cmd command) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	msg, err := c.hub.chats.AddMessage(ctx, cmd.ChatID, identity.UserID, cmd.Content)
	if err != nil {
		c.logger.Warn("Failed to persist message",
			zap.Error(err),
			zap.Int64("chatID", cmd.ChatID),
		)
		c.sendError("failed to send message")
		return
	}

	c.hub.SendToRoom(cmd.ChatID, EventMessageReceived, NewMessagePayload(msg))
}

// sendEvent pushes one event to this connection through the hub.
// Delivery runs under the hub lock, the same lock Detach holds while
// closing the send channel, so a reply dispatched concurrently with
// shutdown degrades to a no-op instead of hitting a closed channel.
func (c *Client) sendEvent(event string, data interface{}) {
	c.hub.SendToConnection(c.id, event, data)
}

func (c *Client) sendError(message string) {
	c.sendEvent(EventError, map[string]string{"message": message})
}
