package database

import (
	"github.com/truckflow/dispatch-backend/internal/models"
	"gorm.io/gorm"
)

func RunMigrations(db *gorm.DB) error {
	// Create tables if they don't exist
	err := db.AutoMigrate(
		&models.User{},
		&models.Truck{},
		&models.Dispatch{},
		&models.DispatchDriver{},
		&models.DispatchStatusEvent{},
		&models.Assignment{},
		&models.Notification{},
		&models.NotificationPreference{},
	)
	if err != nil {
		return err
	}

	// Update users table
	if db.Migrator().HasTable(&models.User{}) {
		columns := []string{
			"ADD COLUMN IF NOT EXISTS fcm_token text DEFAULT ''",
			"ADD COLUMN IF NOT EXISTS license_number text DEFAULT ''",
			"ADD COLUMN IF NOT EXISTS company_name text DEFAULT ''",
			"ADD COLUMN IF NOT EXISTS user_type text DEFAULT 'customer'",
		}

		for _, column := range columns {
			if err := db.Exec("ALTER TABLE users " + column).Error; err != nil {
				return err
			}
		}

		// Update constraint
		db.Exec(`ALTER TABLE users DROP CONSTRAINT IF EXISTS users_user_type_check`)
		db.Exec(`ALTER TABLE users ADD CONSTRAINT users_user_type_check CHECK (user_type IN ('customer', 'driver', 'admin'))`)
	}

	// Dispatches gained the denormalized projection columns after launch;
	// backfill them for rows that predate the migration.
	if db.Migrator().HasTable(&models.Dispatch{}) {
		db.Exec(`UPDATE dispatches SET current_status = status WHERE current_status IS NULL OR current_status = ''`)
	}

	return nil
}
