// Package repo owns the relational side of the system: the SQLite
// database holding documents, users, sessions, and chat history.
package repo

import (
	"fmt"

	sqlite "github.com/glebarez/sqlite" // CGO-free driver
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mgrd/docstack/internal/models"
)

// OpenSQLite opens (creating if needed) the SQLite database at path and
// migrates the schema. Use ":memory:" for tests.
func OpenSQLite(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err := db.AutoMigrate(
		&models.Document{},
		&models.User{},
		&models.Session{},
		&models.ChatMessage{},
	); err != nil {
		return nil, fmt.Errorf("automigrate: %w", err)
	}

	return db, nil
}
