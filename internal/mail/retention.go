package mail

import (
	"context"
	"time"

	internalsettings "github.com/contentforge/studio/internal/settings"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	defaultRetentionInterval = time.Hour
	defaultDeleteBatchSize   = 1000
	maxDeleteBatchesPerRun   = 200
)

// CodeCleaner periodically deletes spent and expired login codes.
type CodeCleaner struct {
	db        *gorm.DB
	interval  time.Duration
	batchSize int
	now       func() time.Time
}

// NewCodeCleaner constructs a CodeCleaner.
func NewCodeCleaner(db *gorm.DB) *CodeCleaner {
	if db == nil {
		return nil
	}
	return &CodeCleaner{
		db:        db,
		interval:  defaultRetentionInterval,
		batchSize: defaultDeleteBatchSize,
		now:       time.Now,
	}
}

// Start launches the cleanup loop in a background goroutine.
func (c *CodeCleaner) Start(ctx context.Context) {
	if c == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	go c.run(ctx)
	log.Infof("login code cleaner started (interval=%s)", c.interval)
}

func (c *CodeCleaner) run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		c.CleanupOnce(ctx)
		if ctx.Err() != nil {
			return
		}
		timer := time.NewTimer(c.interval)
		select {
		case <-ctx.Done():
			if !timer.Stop() {
				<-timer.C
			}
			return
		case <-timer.C:
		}
	}
}

// CleanupOnce deletes codes that expired before the retention window and returns the count.
func (c *CodeCleaner) CleanupOnce(ctx context.Context) int64 {
	if c == nil || c.db == nil {
		return 0
	}
	retentionHours := internalsettings.IntValue(internalsettings.LoginCodeRetentionHoursKey, internalsettings.DefaultLoginCodeRetentionHours)
	if retentionHours <= 0 {
		return 0
	}
	cutoff := c.now().UTC().Add(-time.Duration(retentionHours) * time.Hour)

	deletedTotal := int64(0)
	for i := 0; i < maxDeleteBatchesPerRun; i++ {
		if ctx.Err() != nil {
			break
		}
		n, err := c.deleteBatch(ctx, cutoff)
		if err != nil {
			log.WithError(err).Warn("login code cleaner: delete batch failed")
			break
		}
		if n <= 0 {
			break
		}
		deletedTotal += n
	}

	if deletedTotal > 0 {
		log.Infof("login code cleaner: deleted %d rows (cutoff=%s retention_hours=%d)", deletedTotal, cutoff.Format(time.RFC3339), retentionHours)
	}
	return deletedTotal
}

func (c *CodeCleaner) deleteBatch(ctx context.Context, cutoff time.Time) (int64, error) {
	limit := c.batchSize
	if limit <= 0 {
		limit = defaultDeleteBatchSize
	}

	// Bounded subquery keeps each delete short.
	res := c.db.WithContext(ctx).Exec(`
		DELETE FROM login_codes
		WHERE id IN (
			SELECT id FROM login_codes
			WHERE expires_at < ?
			ORDER BY id ASC
			LIMIT ?
		)
	`, cutoff, limit)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
