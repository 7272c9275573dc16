package mail

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/contentforge/studio/internal/db"
	"github.com/contentforge/studio/internal/models"
)

func TestCodeCleanerDeletesOldCodes(t *testing.T) {
	conn, errOpen := db.Open(filepath.Join(t.TempDir(), "codes.db"))
	if errOpen != nil {
		t.Fatalf("open db: %v", errOpen)
	}
	t.Cleanup(func() { _ = db.Close(conn) })
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate db: %v", errMigrate)
	}

	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	rows := []models.LoginCode{
		{Email: "old@example.com", CodeHash: "x", ExpiresAt: now.Add(-48 * time.Hour), CreatedAt: now.Add(-49 * time.Hour)},
		{Email: "old@example.com", CodeHash: "x", ExpiresAt: now.Add(-30 * time.Hour), CreatedAt: now.Add(-31 * time.Hour)},
		{Email: "recent@example.com", CodeHash: "x", ExpiresAt: now.Add(-time.Hour), CreatedAt: now.Add(-2 * time.Hour)},
		{Email: "live@example.com", CodeHash: "x", ExpiresAt: now.Add(5 * time.Minute), CreatedAt: now},
	}
	if errCreate := conn.Create(&rows).Error; errCreate != nil {
		t.Fatalf("seed codes: %v", errCreate)
	}

	cleaner := NewCodeCleaner(conn)
	cleaner.batchSize = 1
	cleaner.now = func() time.Time { return now }

	if deleted := cleaner.CleanupOnce(context.Background()); deleted != 2 {
		t.Fatalf("expected 2 deleted, got %d", deleted)
	}
	var remaining int64
	if errCount := conn.Model(&models.LoginCode{}).Count(&remaining).Error; errCount != nil {
		t.Fatalf("count codes: %v", errCount)
	}
	if remaining != 2 {
		t.Fatalf("expected 2 remaining, got %d", remaining)
	}
}
