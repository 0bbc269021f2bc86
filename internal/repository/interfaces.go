// Package repository defines the persistence ports consumed by the
// services. Implementations live in subpackages; tests use an in-memory
// SQLite database behind the same interfaces.
//
// Absence is not an error: lookups for rows that do not exist return
// (nil, nil) and callers branch on presence. Errors are reserved for
// unexpected store failures.
package repository

import (
	"context"

	"webchat-backend/internal/domain"
)

// UserRepository persists user accounts.
type UserRepository interface {
	// Create inserts a new user and fills in its generated id.
	Create(ctx context.Context, user *domain.User) error

	// FindByID returns the user with the given id, or nil when absent.
	FindByID(ctx context.Context, userID int64) (*domain.User, error)

	// FindByUsername resolves a user by name, case-insensitively.
	FindByUsername(ctx context.Context, username string) (*domain.User, error)

	// List returns all users ordered by username.
	List(ctx context.Context) ([]domain.User, error)

	// Update persists changes to an existing user.
	Update(ctx context.Context, user *domain.User) error

	// Delete removes a user. It reports false when the user does not
	// exist. Deleting a user who has sent messages must fail.
	Delete(ctx context.Context, userID int64) (bool, error)
}

// ChatRepository persists chats and their participant relations.
type ChatRepository interface {
	// Create inserts a new chat and fills in its generated id.
	Create(ctx context.Context, chat *domain.Chat) error

	// FindByID returns the chat hydrated with participants (ordered by
	// join time) and their users, or nil when absent.
	FindByID(ctx context.Context, chatID int64) (*domain.Chat, error)

	// FindDirectChat returns the direct chat whose participant set is
	// exactly the unordered pair (userA, userB), or nil when none exists.
	FindDirectChat(ctx context.Context, userA, userB int64) (*domain.Chat, error)

	// List returns all chats hydrated with participants, newest first.
	List(ctx context.Context) ([]domain.Chat, error)

	// ListByUser returns the hydrated chats the user participates in,
	// newest first.
	ListByUser(ctx context.Context, userID int64) ([]domain.Chat, error)

	// AddParticipant inserts a (chat, user) relation.
	AddParticipant(ctx context.Context, participant *domain.Participant) error

	// RemoveParticipant deletes a (chat, user) relation, reporting false
	// when the user was not a participant.
	RemoveParticipant(ctx context.Context, chatID, userID int64) (bool, error)

	// ParticipantIDs returns the user ids currently in the chat.
	ParticipantIDs(ctx context.Context, chatID int64) ([]int64, error)

	// Delete removes the chat together with all its messages and
	// participant rows as a single unit.
	Delete(ctx context.Context, chatID int64) error
}

// MessageRepository persists chat messages.
type MessageRepository interface {
	// Create inserts a new message and fills in its generated id.
	Create(ctx context.Context, message *domain.Message) error

	// FindByID returns the message hydrated with its sender, or nil when
	// absent.
	FindByID(ctx context.Context, messageID int64) (*domain.Message, error)

	// ListByChat returns a page of the chat's messages selected newest
	// first: messages with id strictly below beforeID (when beforeID > 0),
	// skipping skip rows and taking at most take. Callers re-sort the page
	// chronologically for presentation.
	ListByChat(ctx context.Context, chatID int64, take, skip int, beforeID int64) ([]domain.Message, error)

	// UpdateStatus sets the message status, reporting false when the
	// message does not exist.
	UpdateStatus(ctx context.Context, messageID int64, status domain.MessageStatus) (bool, error)

	// CountBySender returns how many messages the user has sent across
	// all chats.
	CountBySender(ctx context.Context, userID int64) (int64, error)
}
