package database

import (
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/verustcode/reportdesk/pkg/logger"
)

// migrateDedupeFormEntries removes duplicate (namespace, key) rows so the
// unique index idx_form_entry_ns_key can be created. Databases written before
// the index existed could hold several rows per key when two writers raced;
// the most recently updated row wins.
//
// The migration is idempotent: it does nothing when the table is missing or
// already has the index.
func migrateDedupeFormEntries(db *gorm.DB) error {
	var tableExists bool
	err := db.Raw("SELECT COUNT(*) > 0 FROM sqlite_master WHERE type='table' AND name='form_entries'").Scan(&tableExists).Error
	if err != nil {
		return fmt.Errorf("failed to check table existence: %w", err)
	}
	if !tableExists {
		return nil
	}

	var indexExists bool
	err = db.Raw("SELECT COUNT(*) > 0 FROM sqlite_master WHERE type='index' AND name='idx_form_entry_ns_key'").Scan(&indexExists).Error
	if err != nil {
		return fmt.Errorf("failed to check index existence: %w", err)
	}
	if indexExists {
		return nil
	}

	result := db.Exec(`
		DELETE FROM form_entries
		WHERE id NOT IN (
			SELECT id FROM (
				SELECT id, ROW_NUMBER() OVER (
					PARTITION BY namespace, key ORDER BY updated_at DESC, id DESC
				) AS rn
				FROM form_entries
			) WHERE rn = 1
		)`)
	if result.Error != nil {
		return fmt.Errorf("failed to delete duplicate entries: %w", result.Error)
	}

	if result.RowsAffected > 0 {
		logger.Info("Removed duplicate form entries", zap.Int64("count", result.RowsAffected))
	}
	return nil
}
