package cache

import (
	"fmt"
	"strings"
)

// KeyKind identifies the class of entity a cache entry holds. TTLs are
// chosen per kind by the services that populate the cache.
type KeyKind string

const (
	KindUser      KeyKind = "user"       // user snapshot by id
	KindUsername  KeyKind = "username"   // user snapshot by lower-cased name
	KindChat      KeyKind = "chat"       // hydrated chat by id
	KindUserChats KeyKind = "user_chats" // per-user chat list view
)

// Key addresses one cache entry as (entity kind, identifier). Keys are
// plain comparable values so the cache map never relies on ad hoc string
// concatenation.
type Key struct {
	Kind KeyKind
	ID   string
}

func (k Key) String() string {
	return fmt.Sprintf("%s:%s", k.Kind, k.ID)
}

// UserKey addresses a user snapshot by id.
func UserKey(userID int64) Key {
	return Key{Kind: KindUser, ID: fmt.Sprintf("%d", userID)}
}

// UsernameKey addresses a user snapshot by username. Usernames are unique
// case-insensitively, so the key is always lower-cased.
func UsernameKey(username string) Key {
	return Key{Kind: KindUsername, ID: strings.ToLower(username)}
}

// ChatKey addresses a hydrated chat by id.
func ChatKey(chatID int64) Key {
	return Key{Kind: KindChat, ID: fmt.Sprintf("%d", chatID)}
}

// UserChatsKey addresses the chat-list view of one user.
func UserChatsKey(userID int64) Key {
	return Key{Kind: KindUserChats, ID: fmt.Sprintf("%d", userID)}
}
