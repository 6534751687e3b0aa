package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"github.com/groomhub/notify-engine/internal/repository"
	"gorm.io/gorm"
)

func createTrackingLinksTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000003_create_tracking_links",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.AutoMigrate(&repository.TrackingLinkModel{}); err != nil {
				return err
			}
			indexes := []string{
				`CREATE INDEX IF NOT EXISTS idx_tracking_links_customer_unlinked ON tracking_links (customer_id, created_at) WHERE booking_id IS NULL`,
				`CREATE INDEX IF NOT EXISTS idx_tracking_links_booking_id ON tracking_links (booking_id) WHERE booking_id IS NOT NULL`,
			}
			for _, sql := range indexes {
				if err := tx.Exec(sql).Error; err != nil {
					return err
				}
			}
			return nil
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&repository.TrackingLinkModel{})
		},
	}
}
