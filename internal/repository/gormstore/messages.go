package gormstore

import (
	"context"
	"errors"

	"webchat-backend/internal/domain"

	"gorm.io/gorm"
)

// MessageStore implements repository.MessageRepository.
type MessageStore struct {
	db *gorm.DB
}

// NewMessageStore creates a message repository backed by db.
func NewMessageStore(db *gorm.DB) *MessageStore {
	return &MessageStore{db: db}
}

func (s *MessageStore) Create(ctx context.Context, message *domain.Message) error {
	return s.db.WithContext(ctx).Create(message).Error
}

func (s *MessageStore) FindByID(ctx context.Context, messageID int64) (*domain.Message, error) {
	var message domain.Message
	err := s.db.WithContext(ctx).Preload("Sender").First(&message, messageID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &message, nil
}

// ListByChat selects the page newest first so that skip/take count back
// from the most recent message; callers re-sort chronologically.
func (s *MessageStore) ListByChat(ctx context.Context, chatID int64, take, skip int, beforeID int64) ([]domain.Message, error) {
	q := s.db.WithContext(ctx).
		Preload("Sender").
		Where("chat_id = ?", chatID)

	if beforeID > 0 {
		q = q.Where("id < ?", beforeID)
	}

	q = q.Order("timestamp DESC, id DESC")
	if skip > 0 {
		q = q.Offset(skip)
	}
	if take > 0 {
		q = q.Limit(take)
	}

	var messages []domain.Message
	err := q.Find(&messages).Error
	return messages, err
}

func (s *MessageStore) UpdateStatus(ctx context.Context, messageID int64, status domain.MessageStatus) (bool, error) {
	res := s.db.WithContext(ctx).
		Model(&domain.Message{}).
		Where("id = ?", messageID).
		Update("status", status)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (s *MessageStore) CountBySender(ctx context.Context, userID int64) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&domain.Message{}).
		Where("sender_id = ?", userID).
		Count(&count).Error
	return count, err
}
