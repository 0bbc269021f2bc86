// Package domain contains the core entities of the chat backend.
package domain

import "time"

// User is a registered account. Usernames are unique case-insensitively;
// lookups by name always go through the lower-cased form.
type User struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Username  string    `gorm:"uniqueIndex;not null;size:64" json:"username"`
	CreatedAt time.Time `json:"createdAt"`
}
