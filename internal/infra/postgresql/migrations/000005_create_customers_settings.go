package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"github.com/groomhub/notify-engine/internal/repository"
	"gorm.io/gorm"
)

func createCustomersAndSettingsTables() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000005_create_customers_settings",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.AutoMigrate(&repository.CustomerModel{}, &repository.SettingModel{}); err != nil {
				return err
			}
			return tx.Exec(`CREATE INDEX IF NOT EXISTS idx_customers_reminder_due ON customers (last_appointment_at) WHERE reminder_interval_days > 0`).Error
		},
		Rollback: func(tx *gorm.DB) error {
			if err := tx.Migrator().DropTable(&repository.SettingModel{}); err != nil {
				return err
			}
			return tx.Migrator().DropTable(&repository.CustomerModel{})
		},
	}
}
