package db

import (
	"fmt"

	"github.com/contentforge/studio/internal/models"
	"gorm.io/gorm"
)

// Migrate creates or updates every table the service owns.
func Migrate(conn *gorm.DB) error {
	if conn == nil {
		return fmt.Errorf("db: nil connection")
	}
	if errMigrate := conn.AutoMigrate(
		&models.User{},
		&models.CreditTransaction{},
		&models.Admin{},
		&models.AdminOperationLog{},
		&models.LoginCode{},
		&models.Setting{},
		&models.ContentItem{},
	); errMigrate != nil {
		return fmt.Errorf("db: migrate: %w", errMigrate)
	}
	return nil
}
