package domain

import "time"

// MessageStatus is the delivery stage of a message.
//
// Status updates are accepted in any order; the update operation validates
// the value but does not enforce sent -> delivered -> read progression.
type MessageStatus string

const (
	MessageStatusSent      MessageStatus = "sent"
	MessageStatusDelivered MessageStatus = "delivered"
	MessageStatusRead      MessageStatus = "read"
)

// ValidStatus reports whether s is one of the known message statuses.
func ValidStatus(s MessageStatus) bool {
	switch s {
	case MessageStatusSent, MessageStatusDelivered, MessageStatusRead:
		return true
	}
	return false
}

// Message is a persisted chat message. Immutable except for its status.
type Message struct {
	ID        int64         `gorm:"primaryKey;autoIncrement" json:"id"`
	ChatID    int64         `gorm:"not null;index" json:"chatId"`
	SenderID  int64         `gorm:"not null;index" json:"senderId"`
	Content   string        `gorm:"not null" json:"content"`
	Timestamp time.Time     `gorm:"index" json:"timestamp"`
	Status    MessageStatus `gorm:"not null;default:sent" json:"status"`

	Sender *User `gorm:"foreignKey:SenderID" json:"sender,omitempty"`
}
