package settings

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const defaultWatchInterval = 30 * time.Second

// Watch reloads the snapshot every interval until ctx is done, so writes made
// by other instances become visible here.
func Watch(ctx context.Context, db *gorm.DB, interval time.Duration) {
	if db == nil {
		return
	}
	if interval <= 0 {
		interval = defaultWatchInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			before := DBConfigUpdatedAt()
			if errRefresh := RefreshDBConfigSnapshot(ctx, db); errRefresh != nil {
				if ctx.Err() == nil {
					log.WithError(errRefresh).Warn("settings: refresh snapshot failed")
				}
				continue
			}
			if after := DBConfigUpdatedAt(); after.After(before) {
				log.WithField("updated_at", after.Format(time.RFC3339)).Info("settings: snapshot changed")
			}
		}
	}
}
