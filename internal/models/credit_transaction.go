package models

import "time"

// TransactionType is the business reason of a credits ledger entry.
type TransactionType string

// TransactionType constants. Credit types carry positive amounts, debit types negative ones.
const (
	// TransactionReward is a policy grant: signup bonus, monthly reset or yearly stipend.
	TransactionReward TransactionType = "reward"
	// TransactionConsume is spending credits on content generation.
	TransactionConsume TransactionType = "consume"
	// TransactionRefund gives back credits of an earlier consume.
	TransactionRefund TransactionType = "refund"
	// TransactionAdminGrant is a credit package granted from the admin console.
	TransactionAdminGrant TransactionType = "admin_grant"
	// TransactionAdminRevoke is a manual debit from the admin console.
	TransactionAdminRevoke TransactionType = "admin_revoke"
)

// Valid reports whether t is a known transaction type.
func (t TransactionType) Valid() bool {
	switch t {
	case TransactionReward, TransactionConsume, TransactionRefund, TransactionAdminGrant, TransactionAdminRevoke:
		return true
	default:
		return false
	}
}

// IsDebit reports whether entries of this type decrease the balance.
func (t TransactionType) IsDebit() bool {
	return t == TransactionConsume || t == TransactionAdminRevoke
}

// CreditTransaction is an immutable credits ledger entry.
type CreditTransaction struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	UserID uint64 `gorm:"not null;index;uniqueIndex:idx_credit_tx_user_idem,priority:1"` // Owning account.
	User   *User  `gorm:"foreignKey:UserID"`                                             // Owning account record.

	Amount int64           `gorm:"not null"`                  // Signed amount, positive credits and negative debits.
	Type   TransactionType `gorm:"type:text;not null;index"` // Business reason.
	Reason string          `gorm:"type:text"`                 // Free-form description.

	BalanceAfter int64 `gorm:"not null"` // Account balance right after this entry.

	IdempotencyKey *string `gorm:"type:text;uniqueIndex:idx_credit_tx_user_idem,priority:2"` // Caller-supplied retry key.
	ReferenceID    *uint64 `gorm:"index"`                                                   // Consume transaction a refund points at.

	CreatedAt time.Time `gorm:"not null;index"` // Creation timestamp.
}
