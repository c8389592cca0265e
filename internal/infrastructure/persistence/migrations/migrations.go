package migrations

import (
	"gorm.io/gorm"

	"verity/internal/infrastructure/persistence/models"
)

// MigrateAll migrates every table in dependency order
func MigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.UserModel{},
		&models.VerificationModel{},
		&models.SubscriptionModel{},
		&models.BillingHistoryModel{},
	)
}
