package models

import (
	"encoding/json"
	"time"
)

// Setting is a runtime setting editable from the admin console.
type Setting struct {
	Key       string          `gorm:"type:varchar(255);primaryKey"`                      // Setting key, e.g. SITE_NAME.
	Value     json.RawMessage `gorm:"type:jsonb"`                                        // JSON-encoded value.
	UpdatedBy *uint64         `gorm:"index"`                                             // Admin who last wrote the value, nil for the CLI.
	UpdatedAt time.Time       `gorm:"not null;autoUpdateTime;default:CURRENT_TIMESTAMP"` // Last update timestamp.
}
