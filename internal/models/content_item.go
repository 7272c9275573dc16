package models

import "time"

// ContentItem is an entry of the explosive content reference catalog.
type ContentItem struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Slug     string `gorm:"type:text;not null;uniqueIndex"` // URL identifier.
	Title    string `gorm:"type:text;not null"`             // Headline.
	Category string `gorm:"type:text;not null;index"`       // Catalog section.
	Summary  string `gorm:"type:text"`                      // Short teaser.
	Body     string `gorm:"type:text"`                      // Reference text.
	Views    int64  `gorm:"not null;default:0"`             // Engagement counter copied from the source data.

	Published bool `gorm:"not null;default:true;index"` // Hidden from users when false.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
