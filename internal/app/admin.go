package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/contentforge/studio/internal/config"
	"github.com/contentforge/studio/internal/db"
	"github.com/contentforge/studio/internal/models"
	"github.com/contentforge/studio/internal/security"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// CreateAdminParams holds inputs for admin bootstrap.
type CreateAdminParams struct {
	Username   string
	Password   string
	SuperAdmin bool
}

// CreateAdmin creates an admin account from the command line.
func CreateAdmin(ctx context.Context, cfg config.AppConfig, params CreateAdminParams) (*models.Admin, error) {
	dsn, err := config.LoadDatabaseDSN(config.ResolveConfigPath(cfg.ConfigPath))
	if err != nil {
		return nil, err
	}
	conn, err := db.Open(dsn)
	if err != nil {
		return nil, err
	}
	defer func() { _ = db.Close(conn) }()
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		return nil, errMigrate
	}
	return createAdmin(ctx, conn, params)
}

func createAdmin(ctx context.Context, conn *gorm.DB, params CreateAdminParams) (*models.Admin, error) {
	username := strings.TrimSpace(params.Username)
	if username == "" {
		return nil, errors.New("username is required")
	}
	if errValidate := security.ValidatePassword(params.Password); errValidate != nil {
		return nil, errValidate
	}
	hash, errHash := security.HashPassword(params.Password)
	if errHash != nil {
		return nil, fmt.Errorf("hash password: %w", errHash)
	}

	now := time.Now().UTC()
	admin := &models.Admin{
		Username:     username,
		Password:     hash,
		Active:       true,
		IsSuperAdmin: params.SuperAdmin,
		Permissions:  datatypes.JSON("[]"),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if errCreate := conn.WithContext(ctx).Create(admin).Error; errCreate != nil {
		if db.IsUniqueViolation(errCreate) {
			return nil, fmt.Errorf("admin %s already exists", username)
		}
		return nil, fmt.Errorf("create admin: %w", errCreate)
	}
	return admin, nil
}
