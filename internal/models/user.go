package models

import "time"

// Tier names shared by accounts and plan configuration.
const (
	// TierFree is the tier of accounts without a paid membership.
	TierFree = "free"
)

// PlanInterval defines how a paid membership is billed.
type PlanInterval string

// PlanInterval constants define billing cadences.
const (
	// PlanIntervalNone marks accounts without a paid plan.
	PlanIntervalNone PlanInterval = "none"
	// PlanIntervalMonthly marks monthly plans that receive a monthly reset grant.
	PlanIntervalMonthly PlanInterval = "monthly"
	// PlanIntervalYearly marks annual plans that receive monthly stipend installments.
	PlanIntervalYearly PlanInterval = "yearly"
)

// MembershipStatus tracks the lifecycle of a paid membership.
type MembershipStatus string

// MembershipStatus constants.
const (
	// MembershipNone means the account never held a paid membership.
	MembershipNone MembershipStatus = "none"
	// MembershipActive means recurring grants apply.
	MembershipActive MembershipStatus = "active"
	// MembershipCancelled means an admin or the user ended the membership.
	MembershipCancelled MembershipStatus = "cancelled"
)

// User is a consumer account and the owner of a credits balance.
type User struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Email string `gorm:"type:text;not null;uniqueIndex"` // Login email, lowercased.
	Name  string `gorm:"type:text"`                      // Display name.

	Credits int64 `gorm:"not null;default:0"` // Current balance; equals the sum of the account's transactions.

	Tier             string           `gorm:"type:text;not null;default:'free';index"` // Membership tier name.
	PlanInterval     PlanInterval     `gorm:"type:text;not null;default:'none'"`       // Billing cadence of the plan.
	MembershipStatus MembershipStatus `gorm:"type:text;not null;default:'none';index"` // Membership lifecycle state.
	PlanStartedAt    *time.Time       // Start of the current plan, anchors stipend periods.

	LastMonthlyResetAt  *time.Time // Last monthly reset grant for monthly plans.
	StipendInstallments int        `gorm:"not null;default:0"` // Yearly plan installments granted so far.
	LastStipendAt       *time.Time // Last yearly plan stipend grant.

	Disabled bool `gorm:"not null;default:false"` // Blocks sign-in when true.

	LastLoginAt *time.Time // Last successful code verification.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}

// IsPaid reports whether the user holds an active paid membership.
func (u *User) IsPaid() bool {
	if u == nil {
		return false
	}
	return u.MembershipStatus == MembershipActive && u.Tier != "" && u.Tier != TierFree
}
