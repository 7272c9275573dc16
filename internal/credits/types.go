package credits

import (
	"time"

	"github.com/contentforge/studio/internal/models"
)

// PrincipalKind distinguishes end users from admins.
type PrincipalKind string

// Principal kinds.
const (
	PrincipalUser   PrincipalKind = "user"
	PrincipalAdmin  PrincipalKind = "admin"
	PrincipalSystem PrincipalKind = "system"
)

// Principal is the request-scoped caller identity handed to ledger operations.
type Principal struct {
	Kind      PrincipalKind
	ID        uint64
	Username  string
	IP        string
	UserAgent string
}

// UserPrincipal returns the principal of a signed-in user.
func UserPrincipal(userID uint64) Principal {
	return Principal{Kind: PrincipalUser, ID: userID}
}

// CanRead reports whether p may read the ledger of userID.
func (p Principal) CanRead(userID uint64) bool {
	switch p.Kind {
	case PrincipalAdmin, PrincipalSystem:
		return true
	case PrincipalUser:
		return p.ID != 0 && p.ID == userID
	default:
		return false
	}
}

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock in UTC.
type SystemClock struct{}

// Now returns the current UTC time.
func (SystemClock) Now() time.Time { return time.Now().UTC() }

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

// Now calls f.
func (f ClockFunc) Now() time.Time { return f() }

// Entry is a request to append one ledger transaction.
type Entry struct {
	UserID         uint64
	Amount         int64
	Type           models.TransactionType
	Reason         string
	IdempotencyKey string
	ReferenceID    *uint64
}

// Receipt describes the outcome of a write unit. Balance is the account balance when the unit ended.
type Receipt struct {
	TransactionID uint64
	Balance       int64
	Replayed      bool // An earlier transaction with the same idempotency key was returned.
	Skipped       bool // A hook returned ErrNoop; nothing was written.
}

// Page selects a window of the transaction history.
type Page struct {
	Limit  int
	Offset int
}

// History is a page of transactions with account-wide aggregates.
type History struct {
	Balance       int64
	TotalEarned   int64
	TotalConsumed int64
	Total         int64
	Limit         int
	Offset        int
	Items         []models.CreditTransaction
}
