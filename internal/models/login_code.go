package models

import "time"

// LoginCode is a one-time code emailed to a user for passwordless sign-in.
type LoginCode struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Email    string `gorm:"type:text;not null;index"` // Target email, lowercased.
	CodeHash string `gorm:"type:text;not null"`       // bcrypt hash of the code.

	Attempts  int        `gorm:"not null;default:0"` // Failed verification attempts.
	ExpiresAt time.Time  `gorm:"not null;index"`     // Expiry time.
	UsedAt    *time.Time // Consumption time, if used.

	RequestIP string `gorm:"type:text"` // IP that requested the code.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
}
