package ws

import (
	"sort"
	"sync"
)

// Identity is the user behind a connection.
type Identity struct {
	UserID   int64  `json:"userId"`
	Username string `json:"username"`
}

// Registry is the authoritative, process-local map of live connections:
// which user each connection belongs to and which chat rooms it has
// joined. It is owned by the server process and shared by every
// connection-handling goroutine; all operations are atomic under one
// lock and never touch I/O.
type Registry struct {
	mu    sync.RWMutex
	conns map[string]Identity
	rooms map[int64]map[string]struct{} // room -> connection ids
	// joined is the reverse index, so unregistering a connection cleans
	// up its room memberships without scanning every room.
	joined map[string]map[int64]struct{}
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		conns:  make(map[string]Identity),
		rooms:  make(map[int64]map[string]struct{}),
		joined: make(map[string]map[int64]struct{}),
	}
}

// Register records the identity of a connection. Registering the same
// connection again overwrites the identity; existing room memberships are
// kept.
func (r *Registry) Register(connID string, userID int64, username string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[connID] = Identity{UserID: userID, Username: username}
}

// Identity returns the identity of a connection, if it is registered.
func (r *Registry) Identity(connID string) (Identity, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.conns[connID]
	return id, ok
}

// JoinRoom adds the connection to a room. Joining with an unregistered
// connection id is a no-op, reported by the return value so callers can
// decide whether to announce the join.
func (r *Registry) JoinRoom(connID string, roomID int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, registered := r.conns[connID]; !registered {
		return false
	}

	if r.rooms[roomID] == nil {
		r.rooms[roomID] = make(map[string]struct{})
	}
	r.rooms[roomID][connID] = struct{}{}

	if r.joined[connID] == nil {
		r.joined[connID] = make(map[int64]struct{})
	}
	r.joined[connID][roomID] = struct{}{}
	return true
}

// LeaveRoom removes the connection from a room. Idempotent.
func (r *Registry) LeaveRoom(connID string, roomID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removeMembership(connID, roomID)
}

// Unregister removes the connection and all its room memberships. The
// removed identity is returned exactly once: a second call for the same
// id reports absent, so callers can emit a "went offline" notification
// once per connection.
func (r *Registry) Unregister(connID string) (Identity, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	identity, registered := r.conns[connID]
	if !registered {
		return Identity{}, false
	}
	delete(r.conns, connID)

	for roomID := range r.joined[connID] {
		r.removeMembership(connID, roomID)
	}
	delete(r.joined, connID)

	return identity, true
}

// MembersOf returns a snapshot of the connection ids currently in a room.
func (r *Registry) MembersOf(roomID int64) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members := make([]string, 0, len(r.rooms[roomID]))
	for connID := range r.rooms[roomID] {
		members = append(members, connID)
	}
	return members
}

// Rooms returns a snapshot of the rooms a connection has joined.
func (r *Registry) Rooms(connID string) []int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rooms := make([]int64, 0, len(r.joined[connID]))
	for roomID := range r.joined[connID] {
		rooms = append(rooms, roomID)
	}
	return rooms
}

// Online returns the distinct users currently present, deduplicated
// because one user may hold several connections. The result is sorted by
// user id for stable output.
func (r *Registry) Online() []Identity {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[int64]Identity, len(r.conns))
	for _, identity := range r.conns {
		seen[identity.UserID] = identity
	}

	online := make([]Identity, 0, len(seen))
	for _, identity := range seen {
		online = append(online, identity)
	}
	sort.Slice(online, func(i, j int) bool { return online[i].UserID < online[j].UserID })
	return online
}

// Len returns the number of registered connections.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// removeMembership drops one (connection, room) relation and prunes empty
// room sets. Callers must hold the write lock.
func (r *Registry) removeMembership(connID string, roomID int64) {
	if members, ok := r.rooms[roomID]; ok {
		delete(members, connID)
		if len(members) == 0 {
			delete(r.rooms, roomID)
		}
	}
	if rooms, ok := r.joined[connID]; ok {
		delete(rooms, roomID)
		if len(rooms) == 0 {
			delete(r.joined, connID)
		}
	}
}
