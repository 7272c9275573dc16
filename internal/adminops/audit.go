package adminops

import (
	"context"
	"errors"
	"time"

	"github.com/contentforge/studio/internal/models"
	"gorm.io/gorm"
)

// AuditSink persists admin operation log entries.
type AuditSink interface {
	WriteAdminLog(ctx context.Context, entry *models.AdminOperationLog) error
}

// GormAuditSink writes audit rows into admin_operation_logs.
type GormAuditSink struct {
	db *gorm.DB
}

// NewGormAuditSink constructs a sink on conn.
func NewGormAuditSink(conn *gorm.DB) *GormAuditSink {
	return &GormAuditSink{db: conn}
}

// WriteAdminLog inserts entry.
func (s *GormAuditSink) WriteAdminLog(ctx context.Context, entry *models.AdminOperationLog) error {
	if s == nil || s.db == nil {
		return errors.New("audit: nil db")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	return s.db.WithContext(ctx).Create(entry).Error
}
