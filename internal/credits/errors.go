package credits

import (
	"context"
	"errors"
	"fmt"

	dbutil "github.com/contentforge/studio/internal/db"
	"gorm.io/gorm"
)

// Sentinel errors of the credits ledger.
var (
	// ErrValidation marks bad input. Never retried automatically.
	ErrValidation = errors.New("credits: validation failed")
	// ErrInsufficientBalance marks a debit larger than the available balance.
	ErrInsufficientBalance = errors.New("credits: insufficient balance")
	// ErrConflict marks a lost race with a concurrent writer; the whole operation may be retried.
	ErrConflict = errors.New("credits: concurrent modification")
	// ErrTransientStore marks a timeout or unavailable store; retry with backoff.
	ErrTransientStore = errors.New("credits: store unavailable")
	// ErrAuditWrite marks a failed audit log write next to an otherwise completed action.
	ErrAuditWrite = errors.New("credits: audit write failed")

	ErrAccountNotFound     = errors.New("credits: account not found")
	ErrTransactionNotFound = errors.New("credits: transaction not found")
	ErrForbidden           = errors.New("credits: forbidden")

	// ErrNoop is returned by a Hook to commit nothing. Record treats it as success.
	ErrNoop = errors.New("credits: nothing to record")
)

// ValidationError represents a validation failure with details.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("credits: invalid %s: %s", e.Field, e.Message)
}

// Unwrap lets errors.Is(err, ErrValidation) match.
func (e ValidationError) Unwrap() error {
	return ErrValidation
}

// invalid builds a ValidationError.
func invalid(field, message string) error {
	return ValidationError{Field: field, Message: message}
}

// IsRetryable reports whether the caller may retry the whole operation.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConflict) || errors.Is(err, ErrTransientStore)
}

// ClassifyStoreError maps driver and context errors onto the ledger taxonomy.
// Errors that already carry a ledger sentinel pass through unchanged.
func ClassifyStoreError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrValidation),
		errors.Is(err, ErrInsufficientBalance),
		errors.Is(err, ErrConflict),
		errors.Is(err, ErrTransientStore),
		errors.Is(err, ErrAccountNotFound),
		errors.Is(err, ErrTransactionNotFound),
		errors.Is(err, ErrForbidden):
		return err
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrAccountNotFound
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return fmt.Errorf("%w: %v", ErrTransientStore, err)
	case dbutil.IsRetryableConflict(err), dbutil.IsUniqueViolation(err):
		return fmt.Errorf("%w: %v", ErrConflict, err)
	default:
		return fmt.Errorf("%w: %v", ErrTransientStore, err)
	}
}
