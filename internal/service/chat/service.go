// Package chat provides business logic for chats, participants and
// messages: direct-chat deduplication, pagination, and the cache
// invalidation rules that keep cached views consistent with the store.
package chat

import (
	"context"
	"fmt"
	"sort"
	"time"

	"webchat-backend/internal/cache"
	"webchat-backend/internal/domain"
	"webchat-backend/internal/repository"
	appErrors "webchat-backend/pkg/errors"

	"go.uber.org/zap"
)

// Config holds the cache TTLs for chat views. Per-user chat lists change
// more frequently than chat records, so they expire sooner.
type Config struct {
	ChatTTL      time.Duration
	UserChatsTTL time.Duration
}

// DefaultConfig returns the default TTLs.
func DefaultConfig() Config {
	return Config{
		ChatTTL:      15 * time.Minute,
		UserChatsTTL: 5 * time.Minute,
	}
}

// Service defines the chat directory operations.
type Service interface {
	// CreateOrGetChat creates a chat for the given participants. For
	// exactly two participants it returns the existing direct chat for
	// that unordered pair when one exists, so repeated creation never
	// produces duplicates. Participant ids that resolve to no user are
	// skipped silently.
	CreateOrGetChat(ctx context.Context, name string, participantIDs []int64) (*domain.Chat, error)

	// GetChatByID returns the hydrated chat, or nil when absent.
	GetChatByID(ctx context.Context, chatID int64) (*domain.Chat, error)

	// GetAllChats returns all chats, newest first.
	GetAllChats(ctx context.Context) ([]domain.Chat, error)

	// GetUserChats returns the chats the user participates in, newest
	// first.
	GetUserChats(ctx context.Context, userID int64) ([]domain.Chat, error)

	// AddMessage persists a new message with status "sent" and evicts the
	// cached chat-list view of every participant.
	AddMessage(ctx context.Context, chatID, senderID int64, content string) (*domain.Message, error)

	// GetChatMessages returns a page of the chat's messages in ascending
	// chronological order. beforeMessageID > 0 restricts the page to
	// messages with id strictly below it.
	GetChatMessages(ctx context.Context, chatID int64, take, skip int, beforeMessageID int64) ([]domain.Message, error)

	// GetMessageByID returns the message, or nil when absent.
	GetMessageByID(ctx context.Context, messageID int64) (*domain.Message, error)

	// UpdateMessageStatus sets the message status and returns the updated
	// message, or nil when the message does not exist.
	UpdateMessageStatus(ctx context.Context, messageID int64, status domain.MessageStatus) (*domain.Message, error)

	// AddUserToChat joins a user to a chat. It reports false when the
	// user already participates.
	AddUserToChat(ctx context.Context, chatID, userID int64) (bool, error)

	// RemoveUserFromChat removes a user from a chat. It reports false
	// when the user was not a participant.
	RemoveUserFromChat(ctx context.Context, chatID, userID int64) (bool, error)

	// DeleteChat removes a chat with its messages and participants. It
	// reports false when the chat does not exist and fails with a
	// forbidden error when the requesting user is not a participant.
	DeleteChat(ctx context.Context, chatID, requestingUserID int64) (bool, error)
}

// service implements the Service interface.
type service struct {
	chats    repository.ChatRepository
	messages repository.MessageRepository
	users    repository.UserRepository
	cache    *cache.Cache
	cfg      Config
	logger   *zap.Logger
}

// NewService creates a chat service.
func NewService(chats repository.ChatRepository, messages repository.MessageRepository, users repository.UserRepository, c *cache.Cache, cfg Config, logger *zap.Logger) Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &service{
		chats:    chats,
		messages: messages,
		users:    users,
		cache:    c,
		cfg:      cfg,
		logger:   logger,
	}
}

func (s *service) CreateOrGetChat(ctx context.Context, name string, participantIDs []int64) (*domain.Chat, error) {
	if len(participantIDs) < 2 {
		return nil, appErrors.NewValidation("a chat must have at least 2 participants")
	}

	if len(participantIDs) == 2 {
		if participantIDs[0] == participantIDs[1] {
			return nil, appErrors.NewValidation("a direct chat requires 2 distinct participants")
		}

		existing, err := s.chats.FindDirectChat(ctx, participantIDs[0], participantIDs[1])
		if err != nil {
			return nil, appErrors.Wrap(err, "failed to look up existing direct chat")
		}
		if existing != nil {
			s.logger.Info("Returning existing direct chat",
				zap.Int64("chatID", existing.ID),
				zap.Int64s("participants", participantIDs),
			)
			return existing, nil
		}
	}

	chat := &domain.Chat{
		Name:      name,
		Kind:      domain.KindFor(len(participantIDs)),
		CreatedAt: time.Now().UTC(),
	}
	if err := s.chats.Create(ctx, chat); err != nil {
		return nil, appErrors.Wrap(err, "failed to create chat")
	}

	// Ids that resolve to no user are skipped without failing the whole
	// creation; clients may race user deletion against chat creation.
	added := make([]int64, 0, len(participantIDs))
	for _, userID := range participantIDs {
		user, err := s.users.FindByID(ctx, userID)
		if err != nil {
			return nil, appErrors.Wrap(err, "failed to resolve participant")
		}
		if user == nil {
			s.logger.Warn("Skipping unknown participant",
				zap.Int64("chatID", chat.ID),
				zap.Int64("userID", userID),
			)
			continue
		}

		participant := &domain.Participant{
			ChatID:   chat.ID,
			UserID:   userID,
			JoinedAt: time.Now().UTC(),
		}
		if err := s.chats.AddParticipant(ctx, participant); err != nil {
			return nil, appErrors.Wrap(err, "failed to add participant")
		}
		added = append(added, userID)
	}

	hydrated, err := s.chats.FindByID(ctx, chat.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, "failed to load created chat")
	}

	s.cache.Set(cache.ChatKey(chat.ID), hydrated, s.cfg.ChatTTL)
	s.invalidateUserChats(added)

	s.logger.Info("Created chat",
		zap.Int64("chatID", chat.ID),
		zap.String("name", name),
		zap.String("kind", string(chat.Kind)),
		zap.Int("participants", len(added)),
	)
	return hydrated, nil
}

func (s *service) GetChatByID(ctx context.Context, chatID int64) (*domain.Chat, error) {
	if cached, ok := s.cache.Get(cache.ChatKey(chatID)); ok {
		if chat, ok := cached.(*domain.Chat); ok {
			return chat, nil
		}
	}

	chat, err := s.chats.FindByID(ctx, chatID)
	if err != nil {
		return nil, appErrors.Wrap(err, "failed to get chat by id")
	}
	if chat != nil {
		s.cache.Set(cache.ChatKey(chatID), chat, s.cfg.ChatTTL)
	}
	return chat, nil
}

func (s *service) GetAllChats(ctx context.Context) ([]domain.Chat, error) {
	chats, err := s.chats.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, "failed to list chats")
	}
	return chats, nil
}

func (s *service) GetUserChats(ctx context.Context, userID int64) ([]domain.Chat, error) {
	if cached, ok := s.cache.Get(cache.UserChatsKey(userID)); ok {
		if chats, ok := cached.([]domain.Chat); ok {
			return chats, nil
		}
	}

	chats, err := s.chats.ListByUser(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, "failed to list user chats")
	}

	s.cache.Set(cache.UserChatsKey(userID), chats, s.cfg.UserChatsTTL)
	return chats, nil
}

func (s *service) AddMessage(ctx context.Context, chatID, senderID int64, content string) (*domain.Message, error) {
	if content == "" {
		return nil, appErrors.NewValidation("message content cannot be empty")
	}

	// Participants are read fresh from the store: the invalidation set
	// must reflect current membership, not a cached snapshot.
	chat, err := s.chats.FindByID(ctx, chatID)
	if err != nil {
		return nil, appErrors.Wrap(err, "failed to load chat for message")
	}
	if chat == nil {
		return nil, appErrors.NewNotFound(fmt.Sprintf("chat %d not found", chatID))
	}

	message := &domain.Message{
		ChatID:    chatID,
		SenderID:  senderID,
		Content:   content,
		Timestamp: time.Now().UTC(),
		Status:    domain.MessageStatusSent,
	}
	if err := s.messages.Create(ctx, message); err != nil {
		return nil, appErrors.Wrap(err, "failed to persist message")
	}

	hydrated, err := s.messages.FindByID(ctx, message.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, "failed to load persisted message")
	}
	if hydrated == nil {
		hydrated = message
	}

	// Chat-list views order by recent activity, so every participant's
	// cached view is stale now.
	s.invalidateUserChats(chat.ParticipantIDs())

	s.logger.Info("Added message",
		zap.Int64("messageID", hydrated.ID),
		zap.Int64("chatID", chatID),
		zap.Int64("senderID", senderID),
	)
	return hydrated, nil
}

func (s *service) GetChatMessages(ctx context.Context, chatID int64, take, skip int, beforeMessageID int64) ([]domain.Message, error) {
	if take <= 0 {
		take = 100
	}

	messages, err := s.messages.ListByChat(ctx, chatID, take, skip, beforeMessageID)
	if err != nil {
		return nil, appErrors.Wrap(err, "failed to list chat messages")
	}

	// The page window is selected newest first; readers always see
	// chronological order.
	sort.Slice(messages, func(i, j int) bool {
		if messages[i].Timestamp.Equal(messages[j].Timestamp) {
			return messages[i].ID < messages[j].ID
		}
		return messages[i].Timestamp.Before(messages[j].Timestamp)
	})
	return messages, nil
}

func (s *service) GetMessageByID(ctx context.Context, messageID int64) (*domain.Message, error) {
	message, err := s.messages.FindByID(ctx, messageID)
	if err != nil {
		return nil, appErrors.Wrap(err, "failed to get message by id")
	}
	return message, nil
}

func (s *service) UpdateMessageStatus(ctx context.Context, messageID int64, status domain.MessageStatus) (*domain.Message, error) {
	if status == "" {
		return nil, appErrors.NewValidation("status cannot be empty")
	}
	if !domain.ValidStatus(status) {
		return nil, appErrors.NewValidation(fmt.Sprintf("unknown message status %q", status))
	}

	updated, err := s.messages.UpdateStatus(ctx, messageID, status)
	if err != nil {
		return nil, appErrors.Wrap(err, "failed to update message status")
	}
	if !updated {
		return nil, nil
	}

	message, err := s.messages.FindByID(ctx, messageID)
	if err != nil {
		return nil, appErrors.Wrap(err, "failed to load updated message")
	}

	s.logger.Info("Updated message status",
		zap.Int64("messageID", messageID),
		zap.String("status", string(status)),
	)
	return message, nil
}

func (s *service) AddUserToChat(ctx context.Context, chatID, userID int64) (bool, error) {
	ids, err := s.chats.ParticipantIDs(ctx, chatID)
	if err != nil {
		return false, appErrors.Wrap(err, "failed to load participants")
	}
	for _, id := range ids {
		if id == userID {
			return false, nil
		}
	}

	participant := &domain.Participant{
		ChatID:   chatID,
		UserID:   userID,
		JoinedAt: time.Now().UTC(),
	}
	if err := s.chats.AddParticipant(ctx, participant); err != nil {
		return false, appErrors.Wrap(err, "failed to add participant")
	}

	s.cache.Delete(cache.ChatKey(chatID), cache.UserChatsKey(userID))

	s.logger.Info("Added user to chat",
		zap.Int64("chatID", chatID),
		zap.Int64("userID", userID),
	)
	return true, nil
}

func (s *service) RemoveUserFromChat(ctx context.Context, chatID, userID int64) (bool, error) {
	removed, err := s.chats.RemoveParticipant(ctx, chatID, userID)
	if err != nil {
		return false, appErrors.Wrap(err, "failed to remove participant")
	}
	if !removed {
		return false, nil
	}

	s.cache.Delete(cache.ChatKey(chatID), cache.UserChatsKey(userID))

	s.logger.Info("Removed user from chat",
		zap.Int64("chatID", chatID),
		zap.Int64("userID", userID),
	)
	return true, nil
}

func (s *service) DeleteChat(ctx context.Context, chatID, requestingUserID int64) (bool, error) {
	chat, err := s.chats.FindByID(ctx, chatID)
	if err != nil {
		return false, appErrors.Wrap(err, "failed to load chat for deletion")
	}
	if chat == nil {
		return false, nil
	}

	if !chat.HasParticipant(requestingUserID) {
		return false, appErrors.NewForbidden(fmt.Sprintf("user %d is not a participant of chat %d", requestingUserID, chatID))
	}

	participantIDs := chat.ParticipantIDs()

	if err := s.chats.Delete(ctx, chatID); err != nil {
		return false, appErrors.Wrap(err, "failed to delete chat")
	}

	s.cache.Delete(cache.ChatKey(chatID))
	s.invalidateUserChats(participantIDs)

	s.logger.Info("Deleted chat",
		zap.Int64("chatID", chatID),
		zap.String("kind", string(chat.Kind)),
		zap.Int64("requestedBy", requestingUserID),
	)
	return true, nil
}

// invalidateUserChats evicts the cached chat-list view of each user.
func (s *service) invalidateUserChats(userIDs []int64) {
	if len(userIDs) == 0 {
		return
	}
	keys := make([]cache.Key, 0, len(userIDs))
	for _, id := range userIDs {
		keys = append(keys, cache.UserChatsKey(id))
	}
	s.cache.Delete(keys...)
}
