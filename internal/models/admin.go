package models

import (
	"strings"
	"time"

	"gorm.io/datatypes"
)

// Admin is a console operator. Permissions hold route keys of the form "METHOD /path".
type Admin struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Username string `gorm:"type:text;not null;uniqueIndex"` // Unique login name.
	Password string `gorm:"type:text;not null"`             // Hashed password.

	Active bool `gorm:"not null;default:true"` // Whether the admin can sign in.

	IsSuperAdmin bool `gorm:"not null;default:false"` // Grants all permissions when true.

	Permissions datatypes.JSON `gorm:"type:jsonb;not null;default:'[]'"` // Permission keys in JSON.

	TOTPSecret string `gorm:"type:text"` // TOTP secret for MFA, empty when disabled.

	LastLoginAt *time.Time // Last successful login.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}

// TOTPEnabled reports whether sign-in requires a TOTP code.
func (a *Admin) TOTPEnabled() bool {
	return a != nil && strings.TrimSpace(a.TOTPSecret) != ""
}
