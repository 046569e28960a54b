package db

import (
	"fmt"

	"gorm.io/gorm"

	types "github.com/specbridge/specbridge-backend/internal/domain"
)

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(
		&types.SyncRun{},
		&types.RefChangeLog{},
	)
}

func EnsureAuditIndexes(db *gorm.DB) error {
	// Recent runs per document, the hot audit query.
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_sync_run_doc_created
		ON sync_run (tenant, project, document_slug, created_at DESC);
	`).Error; err != nil {
		return fmt.Errorf("create idx_sync_run_doc_created: %w", err)
	}
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_ref_change_scope_created
		ON ref_change_log (tenant, project, created_at DESC);
	`).Error; err != nil {
		return fmt.Errorf("create idx_ref_change_scope_created: %w", err)
	}
	return nil
}

func (s *PostgresService) AutoMigrateAll() error {
	s.log.Info("Auto migrating audit tables...")
	if err := AutoMigrateAll(s.db); err != nil {
		s.log.Error("Auto migration failed", "error", err)
		return err
	}
	if err := EnsureAuditIndexes(s.db); err != nil {
		s.log.Error("Audit index migration failed", "error", err)
		return err
	}
	return nil
}
