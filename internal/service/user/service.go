// Package user provides business logic for user accounts, with
// read-through caching in front of the store.
package user

import (
	"context"
	"fmt"
	"time"

	"webchat-backend/internal/cache"
	"webchat-backend/internal/domain"
	"webchat-backend/internal/repository"
	appErrors "webchat-backend/pkg/errors"

	"go.uber.org/zap"
)

// Service defines the user-facing business operations.
type Service interface {
	// Create registers a new user. Duplicate usernames are rejected.
	Create(ctx context.Context, username string) (*domain.User, error)

	// GetByID returns the user, or nil when absent.
	GetByID(ctx context.Context, userID int64) (*domain.User, error)

	// GetByUsername resolves a user by name, case-insensitively.
	GetByUsername(ctx context.Context, username string) (*domain.User, error)

	// Update renames a user and refreshes the cached snapshots. It
	// returns nil when the user does not exist and rejects usernames
	// already taken by another user.
	Update(ctx context.Context, userID int64, username string) (*domain.User, error)

	// List returns all users ordered by username.
	List(ctx context.Context) ([]domain.User, error)

	// Exists reports whether the user exists.
	Exists(ctx context.Context, userID int64) (bool, error)

	// Delete removes a user. It reports false when the user does not
	// exist, and fails while the user still has sent messages.
	Delete(ctx context.Context, userID int64) (bool, error)
}

// service implements the Service interface.
type service struct {
	users    repository.UserRepository
	messages repository.MessageRepository
	cache    *cache.Cache
	ttl      time.Duration
	logger   *zap.Logger
}

// NewService creates a user service. ttl bounds the staleness of cached
// user snapshots.
func NewService(users repository.UserRepository, messages repository.MessageRepository, c *cache.Cache, ttl time.Duration, logger *zap.Logger) Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &service{
		users:    users,
		messages: messages,
		cache:    c,
		ttl:      ttl,
		logger:   logger,
	}
}

func (s *service) Create(ctx context.Context, username string) (*domain.User, error) {
	if username == "" {
		return nil, appErrors.NewValidation("username cannot be empty")
	}

	existing, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		return nil, appErrors.Wrap(err, "failed to check username")
	}
	if existing != nil {
		return nil, appErrors.NewValidation(fmt.Sprintf("username %q already exists", username))
	}

	user := &domain.User{
		Username:  username,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, appErrors.Wrap(err, "failed to create user")
	}

	s.cacheUser(user)

	s.logger.Info("Created user",
		zap.Int64("userID", user.ID),
		zap.String("username", user.Username),
	)
	return user, nil
}

func (s *service) GetByID(ctx context.Context, userID int64) (*domain.User, error) {
	if cached, ok := s.cache.Get(cache.UserKey(userID)); ok {
		if user, ok := cached.(*domain.User); ok {
			return user, nil
		}
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, "failed to get user by id")
	}
	if user != nil {
		s.cacheUser(user)
	}
	return user, nil
}

func (s *service) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	if cached, ok := s.cache.Get(cache.UsernameKey(username)); ok {
		if user, ok := cached.(*domain.User); ok {
			return user, nil
		}
	}

	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		return nil, appErrors.Wrap(err, "failed to get user by username")
	}
	if user != nil {
		s.cacheUser(user)
	}
	return user, nil
}

func (s *service) Update(ctx context.Context, userID int64, username string) (*domain.User, error) {
	if username == "" {
		return nil, appErrors.NewValidation("username cannot be empty")
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, "failed to load user for update")
	}
	if user == nil {
		return nil, nil
	}

	existing, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		return nil, appErrors.Wrap(err, "failed to check username")
	}
	if existing != nil && existing.ID != userID {
		return nil, appErrors.NewValidation(fmt.Sprintf("username %q already exists", username))
	}

	previous := user.Username
	user.Username = username
	if err := s.users.Update(ctx, user); err != nil {
		return nil, appErrors.Wrap(err, "failed to update user")
	}

	// The old name must stop resolving immediately; the refreshed
	// snapshot then replaces both lookup keys.
	s.cache.Delete(cache.UsernameKey(previous))
	s.cacheUser(user)

	s.logger.Info("Updated user",
		zap.Int64("userID", userID),
		zap.String("username", username),
	)
	return user, nil
}

func (s *service) List(ctx context.Context) ([]domain.User, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, "failed to list users")
	}
	return users, nil
}

func (s *service) Exists(ctx context.Context, userID int64) (bool, error) {
	user, err := s.GetByID(ctx, userID)
	if err != nil {
		return false, err
	}
	return user != nil, nil
}

func (s *service) Delete(ctx context.Context, userID int64) (bool, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return false, appErrors.Wrap(err, "failed to load user for deletion")
	}
	if user == nil {
		return false, nil
	}

	// Users who have sent messages cannot be removed; the messages keep a
	// foreign key to their sender.
	sent, err := s.messages.CountBySender(ctx, userID)
	if err != nil {
		return false, appErrors.Wrap(err, "failed to count sent messages")
	}
	if sent > 0 {
		return false, appErrors.NewValidation(fmt.Sprintf("user %d cannot be deleted while they have sent messages", userID))
	}

	deleted, err := s.users.Delete(ctx, userID)
	if err != nil {
		return false, appErrors.Wrap(err, "failed to delete user")
	}

	s.cache.Delete(cache.UserKey(userID), cache.UsernameKey(user.Username))

	s.logger.Info("Deleted user",
		zap.Int64("userID", userID),
		zap.String("username", user.Username),
	)
	return deleted, nil
}

// cacheUser stores the user under both its id key and its username key,
// so either lookup path hits.
func (s *service) cacheUser(user *domain.User) {
	s.cache.Set(cache.UserKey(user.ID), user, s.ttl)
	s.cache.Set(cache.UsernameKey(user.Username), user, s.ttl)
}
