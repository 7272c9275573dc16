package credits

import (
	"context"
	"errors"
	"math"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/contentforge/studio/internal/models"
	log "github.com/sirupsen/logrus"
)

const (
	maxReasonLength         = 255
	maxIdempotencyKeyLength = 128
	defaultStoreTimeout     = 5 * time.Second
	signupBonusReason       = "signup bonus"
)

// maxEntryAmount bounds the magnitude of a single transaction amount.
const maxEntryAmount = 1_000_000_000_000

// Hook runs inside the write unit after the account row is locked and before anything is written.
// Returning ErrNoop rolls back the unit and is reported as a skipped receipt.
type Hook func(tx Tx, account *models.User) error

// Recorder appends transactions and keeps the cached balance column in step.
type Recorder struct {
	store        Store
	clock        Clock
	cache        BalanceCache
	metrics      *Metrics
	storeTimeout time.Duration
	signupBonus  func() int64
}

// RecorderOption customizes a Recorder.
type RecorderOption func(*Recorder)

// WithClock overrides the time source.
func WithClock(clock Clock) RecorderOption {
	return func(r *Recorder) {
		if clock != nil {
			r.clock = clock
		}
	}
}

// WithCache sets the balance cache that is invalidated after commits.
func WithCache(cache BalanceCache) RecorderOption {
	return func(r *Recorder) { r.cache = cache }
}

// WithMetrics sets the collectors updated on every write.
func WithMetrics(metrics *Metrics) RecorderOption {
	return func(r *Recorder) { r.metrics = metrics }
}

// WithStoreTimeout bounds every write unit.
func WithStoreTimeout(timeout time.Duration) RecorderOption {
	return func(r *Recorder) {
		if timeout > 0 {
			r.storeTimeout = timeout
		}
	}
}

// WithSignupBonus sets the amount granted when an account is opened.
func WithSignupBonus(bonus func() int64) RecorderOption {
	return func(r *Recorder) { r.signupBonus = bonus }
}

// NewRecorder constructs a Recorder on store.
func NewRecorder(store Store, opts ...RecorderOption) *Recorder {
	r := &Recorder{
		store:        store,
		clock:        SystemClock{},
		storeTimeout: defaultStoreTimeout,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Clock returns the recorder's time source.
func (r *Recorder) Clock() Clock {
	return r.clock
}

// Record appends one transaction.
func (r *Recorder) Record(ctx context.Context, entry Entry) (*Receipt, error) {
	return r.RecordWith(ctx, entry, nil)
}

// RecordWith appends one transaction after hook accepted the locked account.
func (r *Recorder) RecordWith(ctx context.Context, entry Entry, hook Hook) (*Receipt, error) {
	entry.Reason = strings.TrimSpace(entry.Reason)
	entry.IdempotencyKey = strings.TrimSpace(entry.IdempotencyKey)
	if errValidate := validateEntry(entry); errValidate != nil {
		r.metrics.observe(string(entry.Type), outcomeRejected, entry.Amount, 0)
		return nil, errValidate
	}

	started := time.Now()
	storeCtx, cancel := r.storeContext(ctx)
	defer cancel()

	var receipt *Receipt
	errTx := r.store.Atomic(storeCtx, func(tx Tx) error {
		account, errLock := tx.LockAccount(entry.UserID)
		if errLock != nil {
			return errLock
		}

		if entry.IdempotencyKey != "" {
			existing, errFind := tx.FindByIdempotencyKey(entry.UserID, entry.IdempotencyKey)
			if errFind != nil {
				return errFind
			}
			if existing != nil {
				if existing.Amount != entry.Amount || existing.Type != entry.Type {
					return invalid("idempotency_key", "already used for a different transaction")
				}
				receipt = &Receipt{TransactionID: existing.ID, Balance: account.Credits, Replayed: true}
				return nil
			}
		}

		if hook != nil {
			if errHook := hook(tx, account); errHook != nil {
				if errors.Is(errHook, ErrNoop) {
					receipt = &Receipt{Balance: account.Credits, Skipped: true}
				}
				return errHook
			}
		}

		if entry.Type == models.TransactionRefund {
			if errRefund := checkRefund(tx, entry); errRefund != nil {
				return errRefund
			}
		}

		if entry.Amount > 0 && account.Credits > math.MaxInt64-entry.Amount {
			return invalid("amount", "balance would overflow")
		}

		balance, errUpdate := tx.UpdateBalance(entry.UserID, entry.Amount)
		if errUpdate != nil {
			return errUpdate
		}

		record := &models.CreditTransaction{
			UserID:       entry.UserID,
			Amount:       entry.Amount,
			Type:         entry.Type,
			Reason:       entry.Reason,
			BalanceAfter: balance,
			ReferenceID:  entry.ReferenceID,
			CreatedAt:    r.clock.Now().UTC(),
		}
		if entry.IdempotencyKey != "" {
			key := entry.IdempotencyKey
			record.IdempotencyKey = &key
		}
		if errInsert := tx.InsertTransaction(record); errInsert != nil {
			return errInsert
		}
		receipt = &Receipt{TransactionID: record.ID, Balance: balance}
		return nil
	})
	elapsed := time.Since(started)

	if errTx != nil {
		if errors.Is(errTx, ErrNoop) && receipt != nil {
			r.metrics.observe(string(entry.Type), outcomeSkipped, entry.Amount, elapsed)
			return receipt, nil
		}
		errTx = ClassifyStoreError(errTx)
		r.metrics.observe(string(entry.Type), outcomeOf(errTx), entry.Amount, elapsed)
		if IsRetryable(errTx) {
			log.WithError(errTx).WithFields(log.Fields{
				"user_id": entry.UserID,
				"type":    entry.Type,
			}).Warn("credits: write unit failed")
		}
		return nil, errTx
	}

	if receipt.Replayed {
		r.metrics.observe(string(entry.Type), outcomeReplayed, entry.Amount, elapsed)
		return receipt, nil
	}
	r.metrics.observe(string(entry.Type), outcomeCommitted, entry.Amount, elapsed)
	r.invalidate(storeCtx, entry.UserID)
	return receipt, nil
}

// OpenAccount creates a user together with the signup bonus transaction.
func (r *Recorder) OpenAccount(ctx context.Context, email, name string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	name = strings.TrimSpace(name)
	if email == "" {
		return nil, invalid("email", "required")
	}
	if addr, errParse := mail.ParseAddress(email); errParse != nil || addr.Address != email {
		return nil, invalid("email", "malformed address")
	}
	var bonus int64
	if r.signupBonus != nil {
		bonus = r.signupBonus()
	}
	if bonus < 0 {
		bonus = 0
	}

	storeCtx, cancel := r.storeContext(ctx)
	defer cancel()

	now := r.clock.Now().UTC()
	user := &models.User{
		Email:            email,
		Name:             name,
		Tier:             models.TierFree,
		PlanInterval:     models.PlanIntervalNone,
		MembershipStatus: models.MembershipNone,
		LastLoginAt:      &now,
	}
	errTx := r.store.Atomic(storeCtx, func(tx Tx) error {
		if errCreate := tx.CreateAccount(user); errCreate != nil {
			return errCreate
		}
		if bonus == 0 {
			return nil
		}
		balance, errUpdate := tx.UpdateBalance(user.ID, bonus)
		if errUpdate != nil {
			return errUpdate
		}
		user.Credits = balance
		return tx.InsertTransaction(&models.CreditTransaction{
			UserID:       user.ID,
			Amount:       bonus,
			Type:         models.TransactionReward,
			Reason:       signupBonusReason,
			BalanceAfter: balance,
			CreatedAt:    now,
		})
	})
	if errTx != nil {
		return nil, ClassifyStoreError(errTx)
	}
	r.metrics.observe(string(models.TransactionReward), outcomeCommitted, bonus, 0)
	return user, nil
}

// UpdateAccount changes account columns in its own unit under the row lock.
func (r *Recorder) UpdateAccount(ctx context.Context, userID uint64, mutate func(account *models.User) (map[string]any, error)) (*models.User, error) {
	storeCtx, cancel := r.storeContext(ctx)
	defer cancel()

	var updated *models.User
	errTx := r.store.Atomic(storeCtx, func(tx Tx) error {
		account, errLock := tx.LockAccount(userID)
		if errLock != nil {
			return errLock
		}
		fields, errMutate := mutate(account)
		if errMutate != nil {
			return errMutate
		}
		if errUpdate := tx.UpdateAccount(userID, fields); errUpdate != nil {
			return errUpdate
		}
		updated, errLock = tx.LockAccount(userID)
		return errLock
	})
	if errTx != nil {
		return nil, ClassifyStoreError(errTx)
	}
	return updated, nil
}

// storeContext detaches ctx from caller cancellation and bounds it by the store timeout.
func (r *Recorder) storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(context.WithoutCancel(ctx), r.storeTimeout)
}

func (r *Recorder) invalidate(ctx context.Context, userID uint64) {
	if r.cache == nil {
		return
	}
	if errDel := r.cache.InvalidateBalance(ctx, userID); errDel != nil {
		log.WithError(errDel).WithField("user_id", userID).Warn("credits: balance cache invalidation failed")
	}
}

func validateEntry(entry Entry) error {
	if entry.UserID == 0 {
		return invalid("user_id", "required")
	}
	if !entry.Type.Valid() {
		return invalid("type", "unknown transaction type")
	}
	if entry.Amount == 0 {
		return invalid("amount", "must not be zero")
	}
	if entry.Amount > maxEntryAmount || entry.Amount < -maxEntryAmount {
		return invalid("amount", "exceeds the per-transaction limit")
	}
	if entry.Type.IsDebit() && entry.Amount > 0 {
		return invalid("amount", "must be negative for "+string(entry.Type))
	}
	if !entry.Type.IsDebit() && entry.Amount < 0 {
		return invalid("amount", "must be positive for "+string(entry.Type))
	}
	if utf8.RuneCountInString(entry.Reason) > maxReasonLength {
		return invalid("reason", "too long")
	}
	if len(entry.IdempotencyKey) > maxIdempotencyKeyLength {
		return invalid("idempotency_key", "too long")
	}
	if entry.Type == models.TransactionRefund {
		if entry.ReferenceID == nil || *entry.ReferenceID == 0 {
			return invalid("reference_id", "required for refund")
		}
	} else if entry.ReferenceID != nil {
		return invalid("reference_id", "only refunds may reference a transaction")
	}
	return nil
}

func checkRefund(tx Tx, entry Entry) error {
	ref, errFind := tx.FindTransaction(*entry.ReferenceID)
	if errFind != nil {
		if errors.Is(errFind, ErrTransactionNotFound) {
			return invalid("reference_id", "transaction not found")
		}
		return errFind
	}
	if ref.UserID != entry.UserID || ref.Type != models.TransactionConsume {
		return invalid("reference_id", "must reference a consume transaction of the same account")
	}
	refunded, errSum := tx.SumRefunds(ref.ID)
	if errSum != nil {
		return errSum
	}
	if refunded+entry.Amount > -ref.Amount {
		return invalid("amount", "exceeds the refundable amount")
	}
	return nil
}
