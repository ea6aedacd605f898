package db

import (
	"fmt"

	"github.com/yungbote/btcmood-backend/internal/domain/imagegen"
	"gorm.io/gorm"
)

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(
		&imagegen.Prompt{},
		&imagegen.ImageLink{},
		&imagegen.DailyImageVersion{},
	)
}

// EnsureImageIndexes creates the indexes gorm tags cannot express. The SQL is
// valid on both postgres and sqlite.
func EnsureImageIndexes(db *gorm.DB) error {
	// At most one active version per category.
	if err := db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_daily_image_version_active_type
		ON daily_image_version (prompt_type)
		WHERE is_active;
	`).Error; err != nil {
		return fmt.Errorf("create idx_daily_image_version_active_type: %w", err)
	}

	// Read side: latest active row per category.
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_daily_image_version_type_created
		ON daily_image_version (prompt_type, is_active, created_at DESC);
	`).Error; err != nil {
		return fmt.Errorf("create idx_daily_image_version_type_created: %w", err)
	}

	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_prompt_type_date
		ON prompt (prompt_type, prompt_date);
	`).Error; err != nil {
		return fmt.Errorf("create idx_prompt_type_date: %w", err)
	}
	return nil
}

func Migrate(db *gorm.DB) error {
	if err := AutoMigrateAll(db); err != nil {
		return err
	}
	return EnsureImageIndexes(db)
}

func (s *PostgresService) AutoMigrateAll() error {
	s.log.Info("Auto migrating postgres tables...")
	if err := AutoMigrateAll(s.db); err != nil {
		s.log.Error("Auto migration failed", "error", err)
		return err
	}
	if err := EnsureImageIndexes(s.db); err != nil {
		s.log.Error("Image index migration failed", "error", err)
		return err
	}
	return nil
}
