package settings

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/contentforge/studio/internal/db"
	"github.com/contentforge/studio/internal/models"
)

func TestIntValue(t *testing.T) {
	StoreDBConfig(time.Now(), map[string]json.RawMessage{
		ResetSweepIntervalSecondsKey: json.RawMessage(`120`),
		SignupBonusCreditsKey:        json.RawMessage(`"250"`),
		SiteNameKey:                  json.RawMessage(`{"x":1}`),
	})
	t.Cleanup(func() { StoreDBConfig(time.Time{}, nil) })

	if got := IntValue(ResetSweepIntervalSecondsKey, 60); got != 120 {
		t.Fatalf("expected 120, got %d", got)
	}
	if got := IntValue(SignupBonusCreditsKey, 0); got != 250 {
		t.Fatalf("expected numeric string to decode, got %d", got)
	}
	if got := IntValue("MISSING", 7); got != 7 {
		t.Fatalf("expected fallback, got %d", got)
	}
	if got := StringValue(SiteNameKey, DefaultSiteName); got != DefaultSiteName {
		t.Fatalf("expected fallback for non-string value, got %q", got)
	}
}

func TestValidateValue(t *testing.T) {
	t.Parallel()

	bad := map[string]string{
		ResetSweepIntervalSecondsKey: `5`,
		SignupBonusCreditsKey:        `-1`,
		SiteNameKey:                  `""`,
		"OTHER":                      `1`,
	}
	for key, raw := range bad {
		if err := ValidateValue(key, json.RawMessage(raw)); err == nil {
			t.Fatalf("expected %s=%s to be rejected", key, raw)
		}
	}
	if err := ValidateValue(ResetSweepIntervalSecondsKey, json.RawMessage(`600`)); err != nil {
		t.Fatalf("expected valid interval, got %v", err)
	}
}

func TestUpsertRefreshesSnapshot(t *testing.T) {
	conn, errOpen := db.Open(filepath.Join(t.TempDir(), "settings.db"))
	if errOpen != nil {
		t.Fatalf("open db: %v", errOpen)
	}
	t.Cleanup(func() { _ = db.Close(conn) })
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate db: %v", errMigrate)
	}
	t.Cleanup(func() { StoreDBConfig(time.Time{}, nil) })

	ctx := context.Background()
	if err := Upsert(ctx, conn, SignupBonusCreditsKey, json.RawMessage(`50`), 0); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := Upsert(ctx, conn, SignupBonusCreditsKey, json.RawMessage(`75`), 7); err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if got := IntValue(SignupBonusCreditsKey, 0); got != 75 {
		t.Fatalf("expected refreshed value 75, got %d", got)
	}
	var row models.Setting
	if errFind := conn.First(&row, "key = ?", SignupBonusCreditsKey).Error; errFind != nil {
		t.Fatalf("read setting: %v", errFind)
	}
	if row.UpdatedBy == nil || *row.UpdatedBy != 7 {
		t.Fatalf("expected updated_by 7, got %v", row.UpdatedBy)
	}
	if err := Upsert(ctx, conn, "UNKNOWN", json.RawMessage(`1`), 0); err == nil {
		t.Fatalf("expected unknown key to be rejected")
	}
}

func TestWatchPicksUpExternalWrites(t *testing.T) {
	conn, errOpen := db.Open(filepath.Join(t.TempDir(), "watch.db"))
	if errOpen != nil {
		t.Fatalf("open db: %v", errOpen)
	}
	t.Cleanup(func() { _ = db.Close(conn) })
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate db: %v", errMigrate)
	}
	t.Cleanup(func() { StoreDBConfig(time.Time{}, nil) })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		Watch(ctx, conn, 10*time.Millisecond)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	row := models.Setting{Key: SiteNameKey, Value: json.RawMessage(`"Hookline"`), UpdatedAt: time.Now().UTC()}
	if errCreate := conn.Create(&row).Error; errCreate != nil {
		t.Fatalf("insert setting: %v", errCreate)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if StringValue(SiteNameKey, "") == "Hookline" {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("snapshot did not pick up the external write")
}
