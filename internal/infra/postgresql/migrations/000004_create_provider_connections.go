package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"github.com/groomhub/notify-engine/internal/repository"
	"gorm.io/gorm"
)

func createProviderConnectionsTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000004_create_provider_connections",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.AutoMigrate(&repository.ConnectionModel{}); err != nil {
				return err
			}
			return tx.Exec(`CREATE INDEX IF NOT EXISTS idx_connections_channel_state ON provider_connections (channel, state)`).Error
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&repository.ConnectionModel{})
		},
	}
}
