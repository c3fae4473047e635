package database

import (
	"fmt"

	"vidgen-gateway/models"

	"gorm.io/gorm"
)

// AutoMigrate applies (idempotent) schema migrations:
// - AutoMigrate (tables/columns/index tags)
// - CHECK constraints on postgres: known statuses, media URL only when completed
func AutoMigrate(db *gorm.DB) error {
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.AutoMigrate(
			&models.User{},
			&models.Video{},
			&models.VideoStep{},
			&models.IdempotencyKey{},
		); err != nil {
			return fmt.Errorf("automigrate failed: %w", err)
		}

		if tx.Dialector.Name() != "postgres" {
			return nil
		}

		checks := []string{
			`DO $$
			BEGIN
				IF NOT EXISTS (
					SELECT 1 FROM pg_constraint
					WHERE conrelid = 'videos'::regclass
					  AND conname  = 'chk_videos_status'
				) THEN
					ALTER TABLE videos
					ADD CONSTRAINT chk_videos_status
					CHECK (status IN ('processing', 'completed', 'failed'));
				END IF;
			END $$;`,
			`DO $$
			BEGIN
				IF NOT EXISTS (
					SELECT 1 FROM pg_constraint
					WHERE conrelid = 'videos'::regclass
					  AND conname  = 'chk_videos_url_completed'
				) THEN
					ALTER TABLE videos
					ADD CONSTRAINT chk_videos_url_completed
					CHECK ((video_url IS NOT NULL) = (status = 'completed'));
				END IF;
			END $$;`,
		}
		for _, stmt := range checks {
			if err := tx.Exec(stmt).Error; err != nil {
				return fmt.Errorf("check constraint migration failed: %w", err)
			}
		}
		return nil
	})
}
