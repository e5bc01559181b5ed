package db

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/anef-maroc/pdfcp-backend/internal/domain"
	"github.com/anef-maroc/pdfcp-backend/internal/platform/logger"
)

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(domain.Models()...)
}

// EnsureIndexes adds the composite indexes the list endpoints and the sync worker rely on.
func EnsureIndexes(db *gorm.DB) error {
	type index struct{ name, table, cols string }
	indexes := []index{
		{"idx_validation_history_program_created", "pdfcp_validation_history", "pdfcp_id, created_at"},
		{"idx_unlock_requests_program_status", "pdfcp_unlock_requests", "pdfcp_id, status"},
		{"idx_sync_queue_status_created", "sync_queue", "sync_status, created_at"},
		{"idx_journal_adp_entry_date", "cahier_journal_entries", "adp_user_id, entry_date"},
	}
	for _, ix := range indexes {
		if db.Migrator().HasIndex(ix.table, ix.name) {
			continue
		}
		stmt := fmt.Sprintf("CREATE INDEX %s ON %s (%s)", ix.name, ix.table, ix.cols)
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("create %s: %w", ix.name, err)
		}
	}
	return nil
}

// Migrate runs AutoMigrateAll then EnsureIndexes.
func Migrate(db *gorm.DB, log *logger.Logger) error {
	log.Info("Auto migrating tables...", "dialect", db.Dialector.Name())
	if err := AutoMigrateAll(db); err != nil {
		log.Error("Auto migration failed", "error", err)
		return err
	}
	if err := EnsureIndexes(db); err != nil {
		log.Error("Index migration failed", "error", err)
		return err
	}
	return nil
}
