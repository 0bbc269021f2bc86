// Package gormstore implements the repository ports on a relational
// database through GORM. Production runs on SQLite; tests use the
// in-memory ":memory:" DSN behind the same code path.
package gormstore

import (
	"fmt"

	"webchat-backend/internal/domain"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open opens a SQLite database for the given DSN.
func Open(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

// Migrate creates or updates the schema for all chat entities.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.User{},
		&domain.Chat{},
		&domain.Participant{},
		&domain.Message{},
	)
}

// preloadParticipants hydrates a chat query with its participants, ordered
// by join time, and their users.
func preloadParticipants(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Participants", func(db *gorm.DB) *gorm.DB {
			return db.Order("joined_at ASC, id ASC")
		}).
		Preload("Participants.User")
}
