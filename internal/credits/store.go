package credits

import (
	"context"

	"github.com/contentforge/studio/internal/models"
)

// Store is the persistence boundary of the ledger.
type Store interface {
	// Atomic runs fn inside one database transaction. fn's error aborts everything.
	Atomic(ctx context.Context, fn func(tx Tx) error) error
	ReadAccount(ctx context.Context, userID uint64) (*models.User, error)
	ReadTransactions(ctx context.Context, userID uint64, limit, offset int) ([]models.CreditTransaction, int64, error)
	// Totals returns the sum of positive amounts and the sum of absolute negative amounts.
	Totals(ctx context.Context, userID uint64) (earned int64, consumed int64, err error)
	// SumAmounts returns the sum of all transaction amounts of an account.
	SumAmounts(ctx context.Context, userID uint64) (int64, error)
	// ListActiveMembers returns accounts with an active membership and id > afterID in id order.
	ListActiveMembers(ctx context.Context, afterID uint64, limit int) ([]models.User, error)
}

// Tx is the set of operations available inside an atomic unit.
type Tx interface {
	CreateAccount(user *models.User) error
	// LockAccount reads the account and holds a row lock until the unit ends.
	LockAccount(userID uint64) (*models.User, error)
	InsertTransaction(record *models.CreditTransaction) error
	// UpdateBalance adds delta and returns the new balance. It refuses to go below zero
	// and reports that as ErrInsufficientBalance.
	UpdateBalance(userID uint64, delta int64) (int64, error)
	UpdateAccount(userID uint64, fields map[string]any) error
	FindByIdempotencyKey(userID uint64, key string) (*models.CreditTransaction, error)
	FindTransaction(transactionID uint64) (*models.CreditTransaction, error)
	SumRefunds(referenceID uint64) (int64, error)
}
