package models

import (
	"time"

	"gorm.io/datatypes"
)

// Admin operation outcomes stored on audit rows.
const (
	// AdminOperationSucceeded marks a completed business effect.
	AdminOperationSucceeded = "succeeded"
	// AdminOperationFailed marks an attempt that reached the ledger and failed.
	AdminOperationFailed = "failed"
	// AdminOperationRejected marks an attempt refused by validation or a business rule.
	AdminOperationRejected = "rejected"
)

// AdminOperationLog is a write-once audit trail entry for admin actions.
type AdminOperationLog struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	AdminID       uint64 `gorm:"not null;index"`    // Acting admin.
	AdminUsername string `gorm:"type:text;not null"` // Acting admin login name.

	Action       string  `gorm:"type:text;not null;index"` // Operation name, e.g. grant-credit-package.
	TargetUserID *uint64 `gorm:"index"`                    // Account the action targeted.

	Payload datatypes.JSON `gorm:"type:jsonb"`               // Request parameters and results.
	Status  string         `gorm:"type:text;not null;index"` // succeeded, failed or rejected.
	Error   string         `gorm:"type:text"`                // Failure description.

	IP        string `gorm:"type:text"` // Caller IP.
	UserAgent string `gorm:"type:text"` // Caller user agent.

	CreatedAt time.Time `gorm:"not null;index"` // Creation timestamp.
}
