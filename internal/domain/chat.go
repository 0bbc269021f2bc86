package domain

import "time"

// ChatKind discriminates direct conversations from group chats.
type ChatKind string

const (
	ChatKindDirect ChatKind = "direct"
	ChatKindGroup  ChatKind = "group"
)

// KindFor derives the chat kind from the number of participants: exactly
// two participants make a direct chat, anything else is a group.
func KindFor(participantCount int) ChatKind {
	if participantCount == 2 {
		return ChatKindDirect
	}
	return ChatKindGroup
}

// Chat is a conversation between two or more users. A direct chat is
// deduplicated per unordered user pair; group chats are not.
type Chat struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Name      string    `gorm:"size:128" json:"name"`
	Kind      ChatKind  `gorm:"not null;default:direct" json:"kind"`
	CreatedAt time.Time `json:"createdAt"`

	// Participants are ordered by join time when hydrated.
	Participants []Participant `gorm:"foreignKey:ChatID" json:"participants,omitempty"`
}

// HasParticipant reports whether the given user belongs to the chat.
// The chat must be hydrated with its participants.
func (c *Chat) HasParticipant(userID int64) bool {
	for _, p := range c.Participants {
		if p.UserID == userID {
			return true
		}
	}
	return false
}

// ParticipantIDs returns the user ids of the hydrated participants.
func (c *Chat) ParticipantIDs() []int64 {
	ids := make([]int64, 0, len(c.Participants))
	for _, p := range c.Participants {
		ids = append(ids, p.UserID)
	}
	return ids
}

// Participant links a user to a chat. The (chat, user) pair is unique so a
// user cannot join the same chat twice.
type Participant struct {
	ID       int64     `gorm:"primaryKey;autoIncrement" json:"-"`
	ChatID   int64     `gorm:"not null;uniqueIndex:idx_chat_user" json:"chatId"`
	UserID   int64     `gorm:"not null;uniqueIndex:idx_chat_user" json:"userId"`
	JoinedAt time.Time `json:"joinedAt"`

	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}
