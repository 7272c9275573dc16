package reset

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/contentforge/studio/internal/config"
	"github.com/contentforge/studio/internal/credits"
	"github.com/contentforge/studio/internal/models"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const (
	defaultBatchSize        = 200
	defaultSweepConcurrency = 4
)

// CheckOptions tunes a single reset check.
type CheckOptions struct {
	// NonFatal reports failures inside Result instead of returning them.
	NonFatal bool
}

// Result is the outcome of a reset check.
type Result struct {
	UserID        uint64
	Kind          Kind
	State         State
	Amount        int64
	Installment   int
	TransactionID uint64 // Non-zero when this check granted credits.
	Balance       int64
	Err           error
	NonFatal      bool
}

// Granted reports whether this check wrote a grant.
func (r *Result) Granted() bool {
	return r != nil && r.TransactionID != 0
}

// Summary aggregates one sweep.
type Summary struct {
	Checked  int           `json:"checked"`
	Granted  int           `json:"granted"`
	Failed   int           `json:"failed"`
	Duration time.Duration `json:"duration"`
}

// Engine evaluates and applies the recurring grant policies.
type Engine struct {
	store       credits.Store
	recorder    *credits.Recorder
	clock       credits.Clock
	tiers       map[string]config.TierConfig
	batchSize   int
	concurrency int
}

// NewEngine constructs an Engine. The recorder's clock is used for all decisions.
func NewEngine(store credits.Store, recorder *credits.Recorder, tiers map[string]config.TierConfig, batchSize int) *Engine {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return &Engine{
		store:       store,
		recorder:    recorder,
		clock:       recorder.Clock(),
		tiers:       tiers,
		batchSize:   batchSize,
		concurrency: defaultSweepConcurrency,
	}
}

// Tiers returns the configured paid tiers.
func (e *Engine) Tiers() map[string]config.TierConfig {
	return e.tiers
}

// Evaluate returns the decision for userID without writing anything.
func (e *Engine) Evaluate(ctx context.Context, userID uint64) (Decision, error) {
	account, errRead := e.store.ReadAccount(ctx, userID)
	if errRead != nil {
		return Decision{}, credits.ClassifyStoreError(errRead)
	}
	return Evaluate(account, e.tiers, e.clock.Now()), nil
}

// Check grants the current period of userID when it is due.
func (e *Engine) Check(ctx context.Context, userID uint64, opts CheckOptions) (*Result, error) {
	result, errCheck := e.check(ctx, userID)
	if errCheck == nil {
		return result, nil
	}
	result.Err = errCheck
	if opts.NonFatal {
		result.NonFatal = true
		log.WithError(errCheck).WithField("user_id", userID).Warn("reset: check failed")
		return result, nil
	}
	return result, errCheck
}

func (e *Engine) check(ctx context.Context, userID uint64) (*Result, error) {
	result := &Result{UserID: userID, State: StatePending}

	account, errRead := e.store.ReadAccount(ctx, userID)
	if errRead != nil {
		return result, credits.ClassifyStoreError(errRead)
	}
	now := e.clock.Now().UTC()
	decision := Evaluate(account, e.tiers, now)
	result.Kind = decision.Kind
	result.State = decision.State
	result.Amount = decision.Amount
	result.Installment = decision.Installment
	result.Balance = account.Credits
	if decision.State != StateDue {
		return result, nil
	}

	entry := credits.Entry{
		UserID:         userID,
		Amount:         decision.Amount,
		Type:           models.TransactionReward,
		Reason:         decision.reason(account.Tier),
		IdempotencyKey: decision.idempotencyKey(account),
	}
	receipt, errRecord := e.recorder.RecordWith(ctx, entry, func(tx credits.Tx, locked *models.User) error {
		current := Evaluate(locked, e.tiers, now)
		if current != decision {
			result.State = current.State
			result.Installment = current.Installment
			return credits.ErrNoop
		}
		return tx.UpdateAccount(locked.ID, decision.stamp(now))
	})
	if errRecord != nil {
		return result, errRecord
	}

	result.Balance = receipt.Balance
	switch {
	case receipt.Skipped:
	case receipt.Replayed:
		result.State = StateGranted
	default:
		result.State = StateGranted
		result.TransactionID = receipt.TransactionID
		log.WithFields(log.Fields{
			"user_id":     userID,
			"kind":        decision.Kind,
			"amount":      decision.Amount,
			"installment": decision.Installment,
		}).Info("reset: credits granted")
	}
	return result, nil
}

// Sweep checks every active paid membership in id order.
func (e *Engine) Sweep(ctx context.Context) (Summary, error) {
	started := time.Now()
	var checked, granted, failed atomic.Int64

	afterID := uint64(0)
	for {
		if errCtx := ctx.Err(); errCtx != nil {
			return e.summary(&checked, &granted, &failed, started), errCtx
		}
		batch, errList := e.store.ListActiveMembers(ctx, afterID, e.batchSize)
		if errList != nil {
			return e.summary(&checked, &granted, &failed, started), credits.ClassifyStoreError(errList)
		}
		if len(batch) == 0 {
			break
		}

		var g errgroup.Group
		g.SetLimit(e.concurrency)
		for _, account := range batch {
			userID := account.ID
			g.Go(func() error {
				result, errCheck := e.Check(ctx, userID, CheckOptions{})
				checked.Add(1)
				if errCheck != nil {
					failed.Add(1)
					if !errors.Is(errCheck, context.Canceled) {
						log.WithError(errCheck).WithField("user_id", userID).Warn("reset: sweep check failed")
					}
					return nil
				}
				if result.Granted() {
					granted.Add(1)
				}
				return nil
			})
		}
		_ = g.Wait()

		afterID = batch[len(batch)-1].ID
		if len(batch) < e.batchSize {
			break
		}
	}

	summary := e.summary(&checked, &granted, &failed, started)
	if summary.Granted > 0 || summary.Failed > 0 {
		log.Infof("reset: sweep finished (checked=%d granted=%d failed=%d duration=%s)", summary.Checked, summary.Granted, summary.Failed, summary.Duration)
	}
	return summary, nil
}

func (e *Engine) summary(checked, granted, failed *atomic.Int64, started time.Time) Summary {
	return Summary{
		Checked:  int(checked.Load()),
		Granted:  int(granted.Load()),
		Failed:   int(failed.Load()),
		Duration: time.Since(started),
	}
}
