// Package reset grants recurring credits to paid memberships.
package reset

import (
	"fmt"
	"time"

	"github.com/contentforge/studio/internal/config"
	"github.com/contentforge/studio/internal/models"
)

// State is the position of an account within its current grant period.
type State string

// Grant states.
const (
	// StatePending means the account is not eligible for a grant.
	StatePending State = "pending"
	// StateDue means a grant for the current period has not been made yet.
	StateDue State = "due"
	// StateGranted means the current period has already been granted.
	StateGranted State = "granted"
)

// Kind names the recurring grant policy.
type Kind string

// Grant kinds.
const (
	KindNone          Kind = ""
	KindMonthlyReset  Kind = "monthly_reset"
	KindYearlyStipend Kind = "yearly_stipend"
)

// stipendInstallments is the number of monthly installments in a yearly plan.
const stipendInstallments = 12

// Decision is the evaluated reset state of one account at one instant.
type Decision struct {
	Kind        Kind
	State       State
	Amount      int64
	Installment int // Yearly stipend installment number, 1-based.
}

// AddMonths adds n calendar months to t, clamping the day to the end of the target month.
func AddMonths(t time.Time, n int) time.Time {
	year, month, day := t.Date()
	first := time.Date(year, month+time.Month(n), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	if last := daysIn(first); day > last {
		day = last
	}
	return time.Date(first.Year(), first.Month(), day, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

func daysIn(t time.Time) int {
	return time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, t.Location()).Day()
}

// MonthsElapsed returns the number of whole calendar months between start and now, or -1 when now is before start.
func MonthsElapsed(start, now time.Time) int {
	start = start.UTC()
	now = now.UTC()
	if now.Before(start) {
		return -1
	}
	months := (now.Year()-start.Year())*12 + int(now.Month()-start.Month())
	for months > 0 && AddMonths(start, months).After(now) {
		months--
	}
	return months
}

// Evaluate computes the reset decision for account at now.
func Evaluate(account *models.User, tiers map[string]config.TierConfig, now time.Time) Decision {
	if account == nil || account.Disabled || !account.IsPaid() {
		return Decision{State: StatePending}
	}
	tier, ok := tiers[account.Tier]
	if !ok {
		return Decision{State: StatePending}
	}
	now = now.UTC()

	switch account.PlanInterval {
	case models.PlanIntervalMonthly:
		d := Decision{Kind: KindMonthlyReset, Amount: tier.MonthlyCredits}
		switch {
		case tier.MonthlyCredits <= 0:
			d.State = StatePending
		case account.LastMonthlyResetAt == nil || !now.Before(AddMonths(account.LastMonthlyResetAt.UTC(), 1)):
			d.State = StateDue
		default:
			d.State = StateGranted
		}
		return d
	case models.PlanIntervalYearly:
		d := Decision{Kind: KindYearlyStipend, Amount: tier.YearlyStipend}
		if tier.YearlyStipend <= 0 || account.PlanStartedAt == nil {
			d.State = StatePending
			return d
		}
		period := MonthsElapsed(account.PlanStartedAt.UTC(), now)
		switch {
		case period < 0 || period >= stipendInstallments:
			d.State = StatePending
		case account.StipendInstallments <= period:
			d.State = StateDue
			d.Installment = period + 1
		default:
			d.State = StateGranted
			d.Installment = account.StipendInstallments
		}
		return d
	default:
		return Decision{State: StatePending}
	}
}

// ActivationFields returns the plan columns written when account starts interval at now.
// A recurring grant made less than one month before now counts as the first period of the
// new plan, so switching or resuming a plan never grants the same period twice.
func ActivationFields(account *models.User, interval models.PlanInterval, now time.Time) map[string]any {
	now = now.UTC()
	fields := map[string]any{
		"plan_started_at":       now,
		"last_monthly_reset_at": nil,
		"stipend_installments":  0,
		"last_stipend_at":       nil,
	}
	last := LastGrantAt(account)
	if last == nil || !now.Before(AddMonths(*last, 1)) {
		return fields
	}
	switch interval {
	case models.PlanIntervalMonthly:
		fields["last_monthly_reset_at"] = *last
	case models.PlanIntervalYearly:
		fields["stipend_installments"] = 1
		fields["last_stipend_at"] = *last
	}
	return fields
}

// LastGrantAt returns the most recent recurring grant of account, or nil when there was none.
func LastGrantAt(account *models.User) *time.Time {
	if account == nil {
		return nil
	}
	var last *time.Time
	for _, at := range []*time.Time{account.LastMonthlyResetAt, account.LastStipendAt} {
		if at == nil {
			continue
		}
		if last == nil || at.After(*last) {
			t := at.UTC()
			last = &t
		}
	}
	return last
}

// reason describes the grant in the transaction log.
func (d Decision) reason(tier string) string {
	switch d.Kind {
	case KindMonthlyReset:
		return fmt.Sprintf("monthly reset (%s)", tier)
	case KindYearlyStipend:
		return fmt.Sprintf("yearly stipend %d/%d (%s)", d.Installment, stipendInstallments, tier)
	default:
		return ""
	}
}

// idempotencyKey identifies the grant period so retried units replay instead of double-granting.
func (d Decision) idempotencyKey(account *models.User) string {
	var planStart int64
	if account.PlanStartedAt != nil {
		planStart = account.PlanStartedAt.UTC().Unix()
	}
	switch d.Kind {
	case KindMonthlyReset:
		var last int64
		if account.LastMonthlyResetAt != nil {
			last = account.LastMonthlyResetAt.UTC().UnixMicro()
		}
		return fmt.Sprintf("monthly-reset:%d:%d", planStart, last)
	case KindYearlyStipend:
		return fmt.Sprintf("yearly-stipend:%d:%d", planStart, d.Installment)
	default:
		return ""
	}
}

// stamp returns the account columns written together with the grant.
func (d Decision) stamp(now time.Time) map[string]any {
	switch d.Kind {
	case KindMonthlyReset:
		return map[string]any{"last_monthly_reset_at": now}
	case KindYearlyStipend:
		return map[string]any{"stipend_installments": d.Installment, "last_stipend_at": now}
	default:
		return nil
	}
}
