package reset

import (
	"context"
	"time"

	internalsettings "github.com/contentforge/studio/internal/settings"
	log "github.com/sirupsen/logrus"
)

const defaultSweepInterval = 15 * time.Minute

// Sweeper periodically runs Engine.Sweep.
type Sweeper struct {
	engine   *Engine
	fallback time.Duration
}

// NewSweeper constructs a Sweeper. fallback applies while RESET_SWEEP_INTERVAL_SECONDS is unset.
func NewSweeper(engine *Engine, fallback time.Duration) *Sweeper {
	if engine == nil {
		return nil
	}
	if fallback <= 0 {
		fallback = defaultSweepInterval
	}
	return &Sweeper{engine: engine, fallback: fallback}
}

// Start launches the sweep loop in a background goroutine.
func (s *Sweeper) Start(ctx context.Context) {
	if s == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	go s.Run(ctx)
	log.Infof("reset sweeper started (interval=%s)", s.interval())
}

// Run sweeps until ctx is done.
func (s *Sweeper) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		s.sweepOnce(ctx)
		if ctx.Err() != nil {
			return
		}
		timer := time.NewTimer(s.interval())
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

func (s *Sweeper) sweepOnce(ctx context.Context) {
	if _, errSweep := s.engine.Sweep(ctx); errSweep != nil && ctx.Err() == nil {
		log.WithError(errSweep).Warn("reset sweeper: sweep failed")
	}
}

// interval reads the DB setting on every cycle so admins can change it without a restart.
func (s *Sweeper) interval() time.Duration {
	seconds := internalsettings.IntValue(internalsettings.ResetSweepIntervalSecondsKey, 0)
	if seconds < internalsettings.MinResetSweepIntervalSeconds {
		return s.fallback
	}
	return time.Duration(seconds) * time.Second
}
