package credits

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

// BalanceAccessor serves read-only views of the ledger.
type BalanceAccessor struct {
	store   Store
	cache   BalanceCache
	timeout time.Duration
}

// NewBalanceAccessor constructs an accessor. cache may be nil.
func NewBalanceAccessor(store Store, cache BalanceCache, timeout time.Duration) *BalanceAccessor {
	if timeout <= 0 {
		timeout = defaultStoreTimeout
	}
	return &BalanceAccessor{store: store, cache: cache, timeout: timeout}
}

// Balance returns the current balance of userID.
func (a *BalanceAccessor) Balance(ctx context.Context, principal Principal, userID uint64) (int64, error) {
	if userID == 0 {
		return 0, invalid("user_id", "required")
	}
	if !principal.CanRead(userID) {
		return 0, ErrForbidden
	}
	readCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	if a.cache != nil {
		cached, ok, errGet := a.cache.GetBalance(readCtx, userID)
		if errGet != nil {
			log.WithError(errGet).WithField("user_id", userID).Debug("credits: balance cache read failed")
		} else if ok {
			return cached, nil
		}
	}

	account, errRead := a.store.ReadAccount(readCtx, userID)
	if errRead != nil {
		return 0, ClassifyStoreError(errRead)
	}
	if a.cache != nil {
		if errSet := a.cache.SetBalance(readCtx, userID, account.Credits); errSet != nil {
			log.WithError(errSet).WithField("user_id", userID).Debug("credits: balance cache write failed")
		}
	}
	return account.Credits, nil
}

// NormalizePage validates page bounds and applies the default and maximum limit.
func NormalizePage(page Page) (Page, error) {
	if page.Limit < 0 {
		return page, invalid("limit", "must not be negative")
	}
	if page.Offset < 0 {
		return page, invalid("offset", "must not be negative")
	}
	if page.Limit == 0 {
		page.Limit = defaultPageLimit
	}
	if page.Limit > maxPageLimit {
		page.Limit = maxPageLimit
	}
	return page, nil
}

// History returns one page of transactions, newest first, with account totals.
func (a *BalanceAccessor) History(ctx context.Context, principal Principal, userID uint64, page Page) (*History, error) {
	if userID == 0 {
		return nil, invalid("user_id", "required")
	}
	if !principal.CanRead(userID) {
		return nil, ErrForbidden
	}
	page, errPage := NormalizePage(page)
	if errPage != nil {
		return nil, errPage
	}
	readCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	account, errRead := a.store.ReadAccount(readCtx, userID)
	if errRead != nil {
		return nil, ClassifyStoreError(errRead)
	}
	earned, consumed, errTotals := a.store.Totals(readCtx, userID)
	if errTotals != nil {
		return nil, ClassifyStoreError(errTotals)
	}
	items, total, errItems := a.store.ReadTransactions(readCtx, userID, page.Limit, page.Offset)
	if errItems != nil {
		return nil, ClassifyStoreError(errItems)
	}
	return &History{
		Balance:       account.Credits,
		TotalEarned:   earned,
		TotalConsumed: consumed,
		Total:         total,
		Limit:         page.Limit,
		Offset:        page.Offset,
		Items:         items,
	}, nil
}
