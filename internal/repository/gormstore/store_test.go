package gormstore

import (
	"context"
	"fmt"
	"testing"
	"time"

	"webchat-backend/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := Open(":memory:")
	require.NoError(t, err)
	require.NoError(t, Migrate(db))
	return db
}

func seedUser(t *testing.T, db *gorm.DB, username string) *domain.User {
	t.Helper()
	user := &domain.User{Username: username, CreatedAt: time.Now().UTC()}
	require.NoError(t, NewUserStore(db).Create(context.Background(), user))
	return user
}

func seedChat(t *testing.T, db *gorm.DB, name string, userIDs ...int64) *domain.Chat {
	t.Helper()
	ctx := context.Background()
	store := NewChatStore(db)
	chat := &domain.Chat{
		Name:      name,
		Kind:      domain.KindFor(len(userIDs)),
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, store.Create(ctx, chat))
	for _, id := range userIDs {
		require.NoError(t, store.AddParticipant(ctx, &domain.Participant{
			ChatID:   chat.ID,
			UserID:   id,
			JoinedAt: time.Now().UTC(),
		}))
	}
	return chat
}

func TestUserStore(t *testing.T) {
	ctx := context.Background()

	t.Run("find by id", func(t *testing.T) {
		db := newTestDB(t)
		store := NewUserStore(db)
		alice := seedUser(t, db, "alice")

		found, err := store.FindByID(ctx, alice.ID)
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, "alice", found.Username)

		missing, err := store.FindByID(ctx, 9999)
		require.NoError(t, err)
		assert.Nil(t, missing)
	})

	t.Run("find by username is case-insensitive", func(t *testing.T) {
		db := newTestDB(t)
		store := NewUserStore(db)
		seedUser(t, db, "Alice")

		found, err := store.FindByUsername(ctx, "aLiCe")
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, "Alice", found.Username)
	})

	t.Run("list", func(t *testing.T) {
		db := newTestDB(t)
		store := NewUserStore(db)
		seedUser(t, db, "alice")
		seedUser(t, db, "bob")

		users, err := store.List(ctx)
		require.NoError(t, err)
		assert.Len(t, users, 2)
	})

	t.Run("delete reports absence", func(t *testing.T) {
		db := newTestDB(t)
		store := NewUserStore(db)
		alice := seedUser(t, db, "alice")

		deleted, err := store.Delete(ctx, alice.ID)
		require.NoError(t, err)
		assert.True(t, deleted)

		deleted, err = store.Delete(ctx, alice.ID)
		require.NoError(t, err)
		assert.False(t, deleted)
	})
}

func TestChatStore_FindByID(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")
	chat := seedChat(t, db, "", alice.ID, bob.ID)

	found, err := NewChatStore(db).FindByID(ctx, chat.ID)
	require.NoError(t, err)
	require.NotNil(t, found)
	require.Len(t, found.Participants, 2)
	assert.Equal(t, alice.ID, found.Participants[0].UserID, "participants ordered by join time")
	require.NotNil(t, found.Participants[0].User)
	assert.Equal(t, "alice", found.Participants[0].User.Username)

	missing, err := NewChatStore(db).FindByID(ctx, 9999)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestChatStore_FindDirectChat(t *testing.T) {
	ctx := context.Background()

	t.Run("finds the pair in either order", func(t *testing.T) {
		db := newTestDB(t)
		alice := seedUser(t, db, "alice")
		bob := seedUser(t, db, "bob")
		chat := seedChat(t, db, "", alice.ID, bob.ID)
		store := NewChatStore(db)

		found, err := store.FindDirectChat(ctx, alice.ID, bob.ID)
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, chat.ID, found.ID)

		found, err = store.FindDirectChat(ctx, bob.ID, alice.ID)
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, chat.ID, found.ID)
	})

	t.Run("ignores group chats containing the pair", func(t *testing.T) {
		db := newTestDB(t)
		alice := seedUser(t, db, "alice")
		bob := seedUser(t, db, "bob")
		carol := seedUser(t, db, "carol")
		seedChat(t, db, "trio", alice.ID, bob.ID, carol.ID)

		found, err := NewChatStore(db).FindDirectChat(ctx, alice.ID, bob.ID)
		require.NoError(t, err)
		assert.Nil(t, found)
	})

	t.Run("no chat for the pair", func(t *testing.T) {
		db := newTestDB(t)
		alice := seedUser(t, db, "alice")
		bob := seedUser(t, db, "bob")
		seedChat(t, db, "", alice.ID, seedUser(t, db, "carol").ID)

		found, err := NewChatStore(db).FindDirectChat(ctx, alice.ID, bob.ID)
		require.NoError(t, err)
		assert.Nil(t, found)
	})
}

func TestChatStore_Participants(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")
	chat := seedChat(t, db, "pair", alice.ID, bob.ID)
	store := NewChatStore(db)

	t.Run("participant ids", func(t *testing.T) {
		ids, err := store.ParticipantIDs(ctx, chat.ID)
		require.NoError(t, err)
		assert.ElementsMatch(t, []int64{alice.ID, bob.ID}, ids)
	})

	t.Run("list by user", func(t *testing.T) {
		chats, err := store.ListByUser(ctx, alice.ID)
		require.NoError(t, err)
		require.Len(t, chats, 1)
		assert.Equal(t, chat.ID, chats[0].ID)
		assert.Len(t, chats[0].Participants, 2)

		chats, err = store.ListByUser(ctx, 9999)
		require.NoError(t, err)
		assert.Empty(t, chats)
	})

	t.Run("remove participant reports absence", func(t *testing.T) {
		removed, err := store.RemoveParticipant(ctx, chat.ID, bob.ID)
		require.NoError(t, err)
		assert.True(t, removed)

		removed, err = store.RemoveParticipant(ctx, chat.ID, bob.ID)
		require.NoError(t, err)
		assert.False(t, removed)
	})
}

func TestChatStore_DeleteCascades(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")
	chat := seedChat(t, db, "", alice.ID, bob.ID)

	messages := NewMessageStore(db)
	require.NoError(t, messages.Create(ctx, &domain.Message{
		ChatID:    chat.ID,
		SenderID:  alice.ID,
		Content:   "hi",
		Timestamp: time.Now().UTC(),
		Status:    domain.MessageStatusSent,
	}))

	store := NewChatStore(db)
	require.NoError(t, store.Delete(ctx, chat.ID))

	found, err := store.FindByID(ctx, chat.ID)
	require.NoError(t, err)
	assert.Nil(t, found)

	var messageCount int64
	require.NoError(t, db.Model(&domain.Message{}).Where("chat_id = ?", chat.ID).Count(&messageCount).Error)
	assert.Zero(t, messageCount)

	var participantCount int64
	require.NoError(t, db.Model(&domain.Participant{}).Where("chat_id = ?", chat.ID).Count(&participantCount).Error)
	assert.Zero(t, participantCount)
}

func TestMessageStore_ListByChat(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")
	chat := seedChat(t, db, "", alice.ID, bob.ID)
	store := NewMessageStore(db)

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		require.NoError(t, store.Create(ctx, &domain.Message{
			ChatID:    chat.ID,
			SenderID:  alice.ID,
			Content:   fmt.Sprintf("message %d", i+1),
			Timestamp: base.Add(time.Duration(i) * time.Minute),
			Status:    domain.MessageStatusSent,
		}))
	}

	t.Run("newest first", func(t *testing.T) {
		msgs, err := store.ListByChat(ctx, chat.ID, 10, 0, 0)
		require.NoError(t, err)
		require.Len(t, msgs, 5)
		assert.Equal(t, "message 5", msgs[0].Content)
		assert.Equal(t, "message 1", msgs[4].Content)
		require.NotNil(t, msgs[0].Sender)
		assert.Equal(t, "alice", msgs[0].Sender.Username)
	})

	t.Run("take and skip", func(t *testing.T) {
		msgs, err := store.ListByChat(ctx, chat.ID, 2, 1, 0)
		require.NoError(t, err)
		require.Len(t, msgs, 2)
		assert.Equal(t, "message 4", msgs[0].Content)
		assert.Equal(t, "message 3", msgs[1].Content)
	})

	t.Run("before cursor is strict", func(t *testing.T) {
		all, err := store.ListByChat(ctx, chat.ID, 10, 0, 0)
		require.NoError(t, err)
		cursor := all[2].ID // third-newest

		msgs, err := store.ListByChat(ctx, chat.ID, 10, 0, cursor)
		require.NoError(t, err)
		require.Len(t, msgs, 2)
		for _, m := range msgs {
			assert.Less(t, m.ID, cursor)
		}
	})

	t.Run("other chats are not visible", func(t *testing.T) {
		other := seedChat(t, db, "", alice.ID, bob.ID, seedUser(t, db, "carol").ID)
		msgs, err := store.ListByChat(ctx, other.ID, 10, 0, 0)
		require.NoError(t, err)
		assert.Empty(t, msgs)
	})
}

func TestMessageStore_UpdateStatus(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	alice := seedUser(t, db, "alice")
	chat := seedChat(t, db, "", alice.ID, seedUser(t, db, "bob").ID)
	store := NewMessageStore(db)

	msg := &domain.Message{
		ChatID:    chat.ID,
		SenderID:  alice.ID,
		Content:   "hi",
		Timestamp: time.Now().UTC(),
		Status:    domain.MessageStatusSent,
	}
	require.NoError(t, store.Create(ctx, msg))

	updated, err := store.UpdateStatus(ctx, msg.ID, domain.MessageStatusRead)
	require.NoError(t, err)
	assert.True(t, updated)

	found, err := store.FindByID(ctx, msg.ID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, domain.MessageStatusRead, found.Status)

	updated, err = store.UpdateStatus(ctx, 9999, domain.MessageStatusRead)
	require.NoError(t, err)
	assert.False(t, updated)
}

func TestMessageStore_CountBySender(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")
	chat := seedChat(t, db, "", alice.ID, bob.ID)
	store := NewMessageStore(db)

	for i := 0; i < 3; i++ {
		require.NoError(t, store.Create(ctx, &domain.Message{
			ChatID:    chat.ID,
			SenderID:  alice.ID,
			Content:   "hi",
			Timestamp: time.Now().UTC(),
			Status:    domain.MessageStatusSent,
		}))
	}

	count, err := store.CountBySender(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	count, err = store.CountBySender(ctx, bob.ID)
	require.NoError(t, err)
	assert.Zero(t, count)
}
