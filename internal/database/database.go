package database

import (
	"fmt"

	"github.com/L-Ayim/Vault/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Connect opens the Postgres connection and migrates the schema.
func Connect(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := Migrate(db); err != nil {
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	return db, nil
}

// Migrate creates or updates all tables. Shared with the sqlite test
// setup so tests and production migrate the same schema.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Profile{},
		&models.Invite{},
		&models.Friendship{},
		&models.Group{},
		&models.GroupMember{},
		&models.File{},
		&models.Version{},
		&models.FileShare{},
		&models.Node{},
		&models.NodeFile{},
		&models.Edge{},
		&models.NodeShare{},
		&models.Channel{},
		&models.ChannelMembership{},
		&models.Message{},
	)
}
