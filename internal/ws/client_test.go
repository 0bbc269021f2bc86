package ws

import (
	"encoding/json"
	"testing"

	"webchat-backend/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newCommandHub(t *testing.T, dir *stubDirectory) *Hub {
	t.Helper()
	return NewHub(NewRegistry(), dir, zap.NewNop(), nil)
}

func sendCommand(t *testing.T, c *Client, cmd command) {
	t.Helper()
	raw, err := json.Marshal(cmd)
	require.NoError(t, err)
	c.handleCommand(raw)
}

func drainEvents(t *testing.T, c *Client) []Envelope {
	t.Helper()
	var events []Envelope
	for {
		select {
		case raw := <-c.send:
			var env Envelope
			require.NoError(t, json.Unmarshal(raw, &env))
			events = append(events, env)
		default:
			return events
		}
	}
}

func eventTypes(events []Envelope) []string {
	types := make([]string, len(events))
	for i, e := range events {
		types[i] = e.Type
	}
	return types
}

func TestClient_JoinUser(t *testing.T) {
	t.Run("registers and auto-joins the user's chats", func(t *testing.T) {
		dir := &stubDirectory{chats: []domain.Chat{{ID: 10}, {ID: 20}}}
		h := newCommandHub(t, dir)
		alice := fakeClient(t, h, "alice-conn")

		sendCommand(t, alice, command{Action: ActionJoinUser, UserID: 1, Username: "alice"})

		identity, ok := h.registry.Identity(alice.id)
		require.True(t, ok)
		assert.Equal(t, "alice", identity.Username)
		assert.ElementsMatch(t, []int64{10, 20}, h.registry.Rooms(alice.id))

		types := eventTypes(drainEvents(t, alice))
		assert.Contains(t, types, EventUserOnline)
		assert.Contains(t, types, EventOnlineUsers)
	})

	t.Run("rejects missing identity fields", func(t *testing.T) {
		h := newCommandHub(t, &stubDirectory{})
		alice := fakeClient(t, h, "alice-conn")

		sendCommand(t, alice, command{Action: ActionJoinUser, Username: "alice"})

		events := drainEvents(t, alice)
		require.Len(t, events, 1)
		assert.Equal(t, EventError, events[0].Type)
		_, ok := h.registry.Identity(alice.id)
		assert.False(t, ok)
	})

	t.Run("second connection does not re-announce online", func(t *testing.T) {
		h := newCommandHub(t, &stubDirectory{})
		first := fakeClient(t, h, "conn-1")
		second := fakeClient(t, h, "conn-2")

		sendCommand(t, first, command{Action: ActionJoinUser, UserID: 1, Username: "alice"})
		drainEvents(t, first)
		drainEvents(t, second)

		sendCommand(t, second, command{Action: ActionJoinUser, UserID: 1, Username: "alice"})

		types := eventTypes(drainEvents(t, first))
		assert.NotContains(t, types, EventUserOnline)
	})
}

func TestClient_RequiresIdentity(t *testing.T) {
	h := newCommandHub(t, &stubDirectory{})
	alice := fakeClient(t, h, "alice-conn")

	sendCommand(t, alice, command{Action: ActionSendMessage, ChatID: 10, Content: "hi"})

	events := drainEvents(t, alice)
	require.Len(t, events, 1)
	assert.Equal(t, EventError, events[0].Type)
}

func TestClient_SendMessage(t *testing.T) {
	dir := &stubDirectory{chats: []domain.Chat{{ID: 10}}}
	h := newCommandHub(t, dir)
	alice := fakeClient(t, h, "alice-conn")
	bob := fakeClient(t, h, "bob-conn")

	sendCommand(t, alice, command{Action: ActionJoinUser, UserID: 1, Username: "alice"})
	sendCommand(t, bob, command{Action: ActionJoinUser, UserID: 2, Username: "bob"})
	drainEvents(t, alice)
	drainEvents(t, bob)

	sendCommand(t, alice, command{Action: ActionSendMessage, ChatID: 10, Content: "hi"})

	require.Len(t, dir.messages, 1, "message persists before fan-out")
	assert.Equal(t, "hi", dir.messages[0].Content)

	for _, c := range []*Client{alice, bob} {
		events := drainEvents(t, c)
		require.Len(t, events, 1)
		assert.Equal(t, EventMessageReceived, events[0].Type)
	}
}

func TestClient_SendMessageFailure(t *testing.T) {
	dir := &stubDirectory{err: assert.AnError}
	h := newCommandHub(t, dir)
	alice := fakeClient(t, h, "alice-conn")

	h.registry.Register(alice.id, 1, "alice")
	h.registry.JoinRoom(alice.id, 10)

	sendCommand(t, alice, command{Action: ActionSendMessage, ChatID: 10, Content: "hi"})

	events := drainEvents(t, alice)
	require.Len(t, events, 1)
	assert.Equal(t, EventError, events[0].Type, "nothing reaches the room when persistence fails")
}

func TestClient_Typing(t *testing.T) {
	h := newCommandHub(t, &stubDirectory{})
	alice := fakeClient(t, h, "alice-conn")
	bob := fakeClient(t, h, "bob-conn")

	h.registry.Register(alice.id, 1, "alice")
	h.registry.Register(bob.id, 2, "bob")
	h.registry.JoinRoom(alice.id, 10)
	h.registry.JoinRoom(bob.id, 10)

	sendCommand(t, alice, command{Action: ActionTyping, ChatID: 10, IsTyping: true})

	assertNoEvent(t, alice)
	events := drainEvents(t, bob)
	require.Len(t, events, 1)
	assert.Equal(t, EventUserTyping, events[0].Type)
}

func TestClient_JoinAndLeaveChat(t *testing.T) {
	h := newCommandHub(t, &stubDirectory{})
	alice := fakeClient(t, h, "alice-conn")
	bob := fakeClient(t, h, "bob-conn")

	h.registry.Register(alice.id, 1, "alice")
	h.registry.Register(bob.id, 2, "bob")
	h.registry.JoinRoom(bob.id, 10)

	sendCommand(t, alice, command{Action: ActionJoinChat, ChatID: 10})
	assert.ElementsMatch(t, []string{alice.id, bob.id}, h.registry.MembersOf(10))
	types := eventTypes(drainEvents(t, bob))
	assert.Contains(t, types, EventUserJoinedRoom)

	sendCommand(t, alice, command{Action: ActionLeaveChat, ChatID: 10})
	assert.ElementsMatch(t, []string{bob.id}, h.registry.MembersOf(10))
	types = eventTypes(drainEvents(t, bob))
	assert.Contains(t, types, EventUserLeftRoom)
}

func TestClient_UnknownAction(t *testing.T) {
	h := newCommandHub(t, &stubDirectory{})
	alice := fakeClient(t, h, "alice-conn")
	h.registry.Register(alice.id, 1, "alice")

	sendCommand(t, alice, command{Action: "explode"})

	events := drainEvents(t, alice)
	require.Len(t, events, 1)
	assert.Equal(t, EventError, events[0].Type)
}

func TestClient_Disconnect(t *testing.T) {
	h := newCommandHub(t, &stubDirectory{})
	alice := fakeClient(t, h, "alice-conn")
	bob := fakeClient(t, h, "bob-conn")

	h.registry.Register(alice.id, 1, "alice")
	h.registry.Register(bob.id, 2, "bob")
	h.registry.JoinRoom(alice.id, 10)

	alice.disconnect()

	assert.Empty(t, h.registry.MembersOf(10))
	types := eventTypes(drainEvents(t, bob))
	assert.Contains(t, types, EventUserOffline)

	t.Run("second disconnect announces nothing", func(t *testing.T) {
		alice.disconnect()
		assert.Empty(t, drainEvents(t, bob))
	})
}

func TestClient_CommandAfterStop(t *testing.T) {
	dir := &stubDirectory{chats: []domain.Chat{{ID: 10}}}
	h := newCommandHub(t, dir)
	alice := fakeClient(t, h, "alice-conn")
	h.registry.Register(alice.id, 1, "alice")
	h.registry.JoinRoom(alice.id, 10)

	h.Stop()

	// The read goroutine can still be dispatching a buffered frame after
	// shutdown; the reply path must be a no-op on the closed channel, not
	// a panic.
	sendCommand(t, alice, command{Action: ActionSendMessage, ChatID: 10, Content: "late"})
	sendCommand(t, alice, command{Action: ActionGetOnlineUsers})
	sendCommand(t, alice, command{Action: "explode"})

	assert.Equal(t, 0, h.ConnectionCount())
}
