package ws

import (
	"time"

	"webchat-backend/internal/domain"
)

// Event names pushed to clients. Room-scoped events go to the room of one
// chat; presence events are global.
const (
	EventConnectionEstablished = "connection-established"
	EventMessageReceived       = "message-received"
	EventStatusUpdated         = "status-updated"
	EventUserOnline            = "user-online"
	EventUserOffline           = "user-offline"
	EventUserJoinedRoom        = "user-joined-room"
	EventUserLeftRoom          = "user-left-room"
	EventUserTyping            = "user-typing"
	EventMessagesRead          = "messages-read"
	EventOnlineUsers           = "online-users"
	EventError                 = "error"
)

// Envelope wraps every event pushed over a connection.
type Envelope struct {
	Type      string      `json:"type"`
	Timestamp int64       `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// MessagePayload carries a persisted message to the chat's room.
type MessagePayload struct {
	MessageID      int64                `json:"messageId"`
	ChatID         int64                `json:"chatId"`
	SenderID       int64                `json:"senderId"`
	SenderUsername string               `json:"senderUsername"`
	Content        string               `json:"content"`
	Timestamp      time.Time            `json:"timestamp"`
	Status         domain.MessageStatus `json:"status"`
}

// NewMessagePayload builds the room payload for a persisted message.
func NewMessagePayload(m *domain.Message) MessagePayload {
	p := MessagePayload{
		MessageID: m.ID,
		ChatID:    m.ChatID,
		SenderID:  m.SenderID,
		Content:   m.Content,
		Timestamp: m.Timestamp,
		Status:    m.Status,
	}
	if m.Sender != nil {
		p.SenderUsername = m.Sender.Username
	}
	return p
}

// StatusPayload announces a message status change to the chat's room.
type StatusPayload struct {
	MessageID int64                `json:"messageId"`
	ChatID    int64                `json:"chatId"`
	Status    domain.MessageStatus `json:"status"`
}

// PresencePayload announces a user going online or offline.
type PresencePayload struct {
	UserID   int64  `json:"userId"`
	Username string `json:"username"`
}

// RoomPresencePayload announces a user joining or leaving a room.
type RoomPresencePayload struct {
	UserID   int64  `json:"userId"`
	Username string `json:"username"`
	ChatID   int64  `json:"chatId"`
}

// TypingPayload carries a typing indicator to everyone in the room except
// the sender.
type TypingPayload struct {
	UserID   int64  `json:"userId"`
	Username string `json:"username"`
	ChatID   int64  `json:"chatId"`
	IsTyping bool   `json:"isTyping"`
}

// ReadPayload announces how far a user has read, to everyone in the room
// except the reader.
type ReadPayload struct {
	UserID            int64 `json:"userId"`
	ChatID            int64 `json:"chatId"`
	LastReadMessageID int64 `json:"lastReadMessageId"`
}

// ConnectionPayload is sent to a connection right after the upgrade.
type ConnectionPayload struct {
	ConnectionID string `json:"connectionId"`
}
