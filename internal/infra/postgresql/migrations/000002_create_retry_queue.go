package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"github.com/groomhub/notify-engine/internal/repository"
	"gorm.io/gorm"
)

func createRetryQueueTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000002_create_retry_queue",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.AutoMigrate(&repository.RetryEntryModel{}); err != nil {
				return err
			}
			indexes := []string{
				`CREATE INDEX IF NOT EXISTS idx_retry_queue_due ON retry_queue (next_retry_at, created_at)`,
				`CREATE UNIQUE INDEX IF NOT EXISTS idx_retry_queue_attempt_id ON retry_queue (attempt_id)`,
			}
			for _, sql := range indexes {
				if err := tx.Exec(sql).Error; err != nil {
					return err
				}
			}
			return nil
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&repository.RetryEntryModel{})
		},
	}
}
