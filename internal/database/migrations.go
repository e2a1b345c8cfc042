package database

import (
	"fmt"

	"gorm.io/gorm"
)

// RunMigrations executes all database migrations
func RunMigrations(db *gorm.DB) error {
	// Create indexes for better performance
	if err := createIndexes(db); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	return nil
}

// createIndexes creates database indexes
func createIndexes(db *gorm.DB) error {
	// Index for the run log listing
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_sync_runs_started
		ON sync_runs(started_at)
	`).Error; err != nil {
		return err
	}

	// Index for status filters
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_sync_runs_status
		ON sync_runs(status, started_at)
	`).Error; err != nil {
		return err
	}

	return nil
}
