package user

import (
	"context"
	"testing"
	"time"

	"webchat-backend/internal/cache"
	"webchat-backend/internal/domain"
	"webchat-backend/internal/repository/gormstore"
	appErrors "webchat-backend/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fixture struct {
	svc    Service
	cache  *cache.Cache
	users  *gormstore.UserStore
	msgs   *gormstore.MessageStore
	chats *gormstore.ChatStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := gormstore.Open(":memory:")
	require.NoError(t, err)
	require.NoError(t, gormstore.Migrate(db))

	c := cache.New(zap.NewNop())
	users := gormstore.NewUserStore(db)
	msgs := gormstore.NewMessageStore(db)
	return &fixture{
		svc:    NewService(users, msgs, c, 30*time.Minute, zap.NewNop()),
		cache:  c,
		users:  users,
		msgs:   msgs,
		chats: gormstore.NewChatStore(db),
	}
}

func TestService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("creates and caches", func(t *testing.T) {
		f := newFixture(t)

		user, err := f.svc.Create(ctx, "alice")
		require.NoError(t, err)
		require.NotNil(t, user)
		assert.NotZero(t, user.ID)

		_, ok := f.cache.Get(cache.UserKey(user.ID))
		assert.True(t, ok)
		_, ok = f.cache.Get(cache.UsernameKey("ALICE"))
		assert.True(t, ok, "username key is case-insensitive")
	})

	t.Run("rejects empty username", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.svc.Create(ctx, "")
		require.Error(t, err)
		assert.True(t, appErrors.IsValidation(err))
	})

	t.Run("rejects duplicate username", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.svc.Create(ctx, "alice")
		require.NoError(t, err)

		_, err = f.svc.Create(ctx, "alice")
		require.Error(t, err)
		assert.True(t, appErrors.IsValidation(err))
	})
}

func TestService_GetByID(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	created, err := f.svc.Create(ctx, "alice")
	require.NoError(t, err)

	t.Run("misses populate the cache", func(t *testing.T) {
		f.cache.Delete(cache.UserKey(created.ID), cache.UsernameKey("alice"))

		user, err := f.svc.GetByID(ctx, created.ID)
		require.NoError(t, err)
		require.NotNil(t, user)

		_, ok := f.cache.Get(cache.UserKey(created.ID))
		assert.True(t, ok)
	})

	t.Run("absent user is nil without error", func(t *testing.T) {
		user, err := f.svc.GetByID(ctx, 9999)
		require.NoError(t, err)
		assert.Nil(t, user)
	})

	t.Run("hit serves from cache", func(t *testing.T) {
		require.NoError(t, f.users.Update(ctx, &domain.User{ID: created.ID, Username: "renamed"}))

		user, err := f.svc.GetByID(ctx, created.ID)
		require.NoError(t, err)
		require.NotNil(t, user)
		assert.Equal(t, "alice", user.Username, "cached snapshot wins until eviction")
	})
}

func TestService_GetByUsername(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	created, err := f.svc.Create(ctx, "Alice")
	require.NoError(t, err)

	user, err := f.svc.GetByUsername(ctx, "aLiCe")
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, created.ID, user.ID)

	missing, err := f.svc.GetByUsername(ctx, "nobody")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestService_Exists(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	created, err := f.svc.Create(ctx, "alice")
	require.NoError(t, err)

	exists, err := f.svc.Exists(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = f.svc.Exists(ctx, 9999)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestService_Delete(t *testing.T) {
	ctx := context.Background()

	t.Run("deletes and evicts both keys", func(t *testing.T) {
		f := newFixture(t)
		created, err := f.svc.Create(ctx, "alice")
		require.NoError(t, err)

		deleted, err := f.svc.Delete(ctx, created.ID)
		require.NoError(t, err)
		assert.True(t, deleted)

		_, ok := f.cache.Get(cache.UserKey(created.ID))
		assert.False(t, ok)
		_, ok = f.cache.Get(cache.UsernameKey("alice"))
		assert.False(t, ok)
	})

	t.Run("absent user reports false", func(t *testing.T) {
		f := newFixture(t)

		deleted, err := f.svc.Delete(ctx, 9999)
		require.NoError(t, err)
		assert.False(t, deleted)
	})

	t.Run("refuses while sent messages exist", func(t *testing.T) {
		f := newFixture(t)
		alice, err := f.svc.Create(ctx, "alice")
		require.NoError(t, err)
		bob, err := f.svc.Create(ctx, "bob")
		require.NoError(t, err)

		chat := &domain.Chat{Kind: domain.ChatKindDirect, CreatedAt: time.Now().UTC()}
		require.NoError(t, f.chats.Create(ctx, chat))
		for _, id := range []int64{alice.ID, bob.ID} {
			require.NoError(t, f.chats.AddParticipant(ctx, &domain.Participant{
				ChatID: chat.ID, UserID: id, JoinedAt: time.Now().UTC(),
			}))
		}
		require.NoError(t, f.msgs.Create(ctx, &domain.Message{
			ChatID: chat.ID, SenderID: alice.ID, Content: "hi",
			Timestamp: time.Now().UTC(), Status: domain.MessageStatusSent,
		}))

		_, err = f.svc.Delete(ctx, alice.ID)
		require.Error(t, err)
		assert.True(t, appErrors.IsValidation(err))

		still, err := f.svc.GetByID(ctx, alice.ID)
		require.NoError(t, err)
		assert.NotNil(t, still)
	})
}

func TestService_Update(t *testing.T) {
	ctx := context.Background()

	t.Run("renames and refreshes both cache keys", func(t *testing.T) {
		f := newFixture(t)
		created, err := f.svc.Create(ctx, "alice")
		require.NoError(t, err)

		updated, err := f.svc.Update(ctx, created.ID, "alicia")
		require.NoError(t, err)
		require.NotNil(t, updated)
		assert.Equal(t, "alicia", updated.Username)

		_, ok := f.cache.Get(cache.UsernameKey("alice"))
		assert.False(t, ok, "old username key is evicted")

		cached, ok := f.cache.Get(cache.UsernameKey("alicia"))
		require.True(t, ok)
		assert.Equal(t, created.ID, cached.(*domain.User).ID)

		cached, ok = f.cache.Get(cache.UserKey(created.ID))
		require.True(t, ok)
		assert.Equal(t, "alicia", cached.(*domain.User).Username)
	})

	t.Run("rejects a name taken by another user", func(t *testing.T) {
		f := newFixture(t)
		alice, err := f.svc.Create(ctx, "alice")
		require.NoError(t, err)
		_, err = f.svc.Create(ctx, "bob")
		require.NoError(t, err)

		_, err = f.svc.Update(ctx, alice.ID, "bob")
		require.Error(t, err)
		assert.True(t, appErrors.IsValidation(err))
	})

	t.Run("keeping the own name is allowed", func(t *testing.T) {
		f := newFixture(t)
		alice, err := f.svc.Create(ctx, "alice")
		require.NoError(t, err)

		updated, err := f.svc.Update(ctx, alice.ID, "alice")
		require.NoError(t, err)
		require.NotNil(t, updated)
	})

	t.Run("absent user yields nil", func(t *testing.T) {
		f := newFixture(t)

		updated, err := f.svc.Update(ctx, 9999, "ghost")
		require.NoError(t, err)
		assert.Nil(t, updated)
	})

	t.Run("empty name is a validation error", func(t *testing.T) {
		f := newFixture(t)
		alice, err := f.svc.Create(ctx, "alice")
		require.NoError(t, err)

		_, err = f.svc.Update(ctx, alice.ID, "")
		require.Error(t, err)
		assert.True(t, appErrors.IsValidation(err))
	})
}
