package gormstore

import (
	"context"
	"errors"

	"webchat-backend/internal/domain"

	"gorm.io/gorm"
)

// ChatStore implements repository.ChatRepository.
type ChatStore struct {
	db *gorm.DB
}

// NewChatStore creates a chat repository backed by db.
func NewChatStore(db *gorm.DB) *ChatStore {
	return &ChatStore{db: db}
}

func (s *ChatStore) Create(ctx context.Context, chat *domain.Chat) error {
	return s.db.WithContext(ctx).Create(chat).Error
}

func (s *ChatStore) FindByID(ctx context.Context, chatID int64) (*domain.Chat, error) {
	var chat domain.Chat
	err := preloadParticipants(s.db.WithContext(ctx)).First(&chat, chatID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &chat, nil
}

func (s *ChatStore) FindDirectChat(ctx context.Context, userA, userB int64) (*domain.Chat, error) {
	// Candidate chats contain both users; the kind and exact participant
	// count are checked against the hydrated rows below.
	var candidateIDs []int64
	err := s.db.WithContext(ctx).
		Model(&domain.Participant{}).
		Select("chat_id").
		Where("user_id IN ?", []int64{userA, userB}).
		Group("chat_id").
		Having("COUNT(DISTINCT user_id) = 2").
		Find(&candidateIDs).Error
	if err != nil {
		return nil, err
	}

	for _, id := range candidateIDs {
		chat, err := s.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if chat != nil && chat.Kind == domain.ChatKindDirect && len(chat.Participants) == 2 {
			return chat, nil
		}
	}
	return nil, nil
}

func (s *ChatStore) List(ctx context.Context) ([]domain.Chat, error) {
	var chats []domain.Chat
	err := preloadParticipants(s.db.WithContext(ctx)).
		Order("created_at DESC, id DESC").
		Find(&chats).Error
	return chats, err
}

func (s *ChatStore) ListByUser(ctx context.Context, userID int64) ([]domain.Chat, error) {
	var chats []domain.Chat
	err := preloadParticipants(s.db.WithContext(ctx)).
		Joins("JOIN participants ON participants.chat_id = chats.id").
		Where("participants.user_id = ?", userID).
		Order("chats.created_at DESC, chats.id DESC").
		Find(&chats).Error
	return chats, err
}

func (s *ChatStore) AddParticipant(ctx context.Context, participant *domain.Participant) error {
	return s.db.WithContext(ctx).Create(participant).Error
}

func (s *ChatStore) RemoveParticipant(ctx context.Context, chatID, userID int64) (bool, error) {
	res := s.db.WithContext(ctx).
		Where("chat_id = ? AND user_id = ?", chatID, userID).
		Delete(&domain.Participant{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (s *ChatStore) ParticipantIDs(ctx context.Context, chatID int64) ([]int64, error) {
	var ids []int64
	err := s.db.WithContext(ctx).
		Model(&domain.Participant{}).
		Select("user_id").
		Where("chat_id = ?", chatID).
		Order("joined_at ASC, id ASC").
		Find(&ids).Error
	return ids, err
}

// Delete removes the chat, its messages and its participant rows in one
// transaction, messages first because of the foreign keys.
func (s *ChatStore) Delete(ctx context.Context, chatID int64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("chat_id = ?", chatID).Delete(&domain.Message{}).Error; err != nil {
			return err
		}
		if err := tx.Where("chat_id = ?", chatID).Delete(&domain.Participant{}).Error; err != nil {
			return err
		}
		return tx.Delete(&domain.Chat{}, chatID).Error
	})
}
