package reset

import (
	"testing"
	"time"

	"github.com/contentforge/studio/internal/config"
	"github.com/contentforge/studio/internal/models"
)

func day(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 10, 0, 0, 0, time.UTC)
}

func TestAddMonthsClampsToMonthEnd(t *testing.T) {
	t.Parallel()

	cases := []struct {
		from time.Time
		n    int
		want time.Time
	}{
		{day(2024, time.January, 31), 1, day(2024, time.February, 29)},
		{day(2023, time.January, 31), 1, day(2023, time.February, 28)},
		{day(2024, time.March, 31), 1, day(2024, time.April, 30)},
		{day(2024, time.January, 15), 12, day(2025, time.January, 15)},
		{day(2024, time.December, 15), 1, day(2025, time.January, 15)},
	}
	for _, tc := range cases {
		if got := AddMonths(tc.from, tc.n); !got.Equal(tc.want) {
			t.Fatalf("AddMonths(%s, %d): expected %s, got %s", tc.from, tc.n, tc.want, got)
		}
	}
}

func TestMonthsElapsed(t *testing.T) {
	t.Parallel()

	start := day(2024, time.January, 15)
	cases := []struct {
		now  time.Time
		want int
	}{
		{day(2024, time.January, 10), -1},
		{start, 0},
		{day(2024, time.February, 14), 0},
		{day(2024, time.February, 15), 1},
		{day(2024, time.February, 16), 1},
		{day(2025, time.January, 15), 12},
	}
	for _, tc := range cases {
		if got := MonthsElapsed(start, tc.now); got != tc.want {
			t.Fatalf("MonthsElapsed(%s): expected %d, got %d", tc.now, tc.want, got)
		}
	}
}

func TestEvaluate(t *testing.T) {
	t.Parallel()

	tiers := map[string]config.TierConfig{"pro": {MonthlyCredits: 500, YearlyStipend: 400}}
	last := day(2024, time.March, 31)
	start := day(2024, time.January, 15)

	cases := []struct {
		name    string
		account models.User
		now     time.Time
		want    Decision
	}{
		{
			name:    "free tier",
			account: models.User{Tier: models.TierFree, MembershipStatus: models.MembershipActive, PlanInterval: models.PlanIntervalMonthly},
			now:     last,
			want:    Decision{State: StatePending},
		},
		{
			name:    "cancelled",
			account: models.User{Tier: "pro", MembershipStatus: models.MembershipCancelled, PlanInterval: models.PlanIntervalMonthly},
			now:     last,
			want:    Decision{State: StatePending},
		},
		{
			name:    "monthly first grant",
			account: models.User{Tier: "pro", MembershipStatus: models.MembershipActive, PlanInterval: models.PlanIntervalMonthly},
			now:     last,
			want:    Decision{Kind: KindMonthlyReset, State: StateDue, Amount: 500},
		},
		{
			name:    "monthly before clamped anniversary",
			account: models.User{Tier: "pro", MembershipStatus: models.MembershipActive, PlanInterval: models.PlanIntervalMonthly, LastMonthlyResetAt: &last},
			now:     day(2024, time.April, 29),
			want:    Decision{Kind: KindMonthlyReset, State: StateGranted, Amount: 500},
		},
		{
			name:    "monthly on clamped anniversary",
			account: models.User{Tier: "pro", MembershipStatus: models.MembershipActive, PlanInterval: models.PlanIntervalMonthly, LastMonthlyResetAt: &last},
			now:     day(2024, time.April, 30),
			want:    Decision{Kind: KindMonthlyReset, State: StateDue, Amount: 500},
		},
		{
			name:    "yearly missed periods are forfeited",
			account: models.User{Tier: "pro", MembershipStatus: models.MembershipActive, PlanInterval: models.PlanIntervalYearly, PlanStartedAt: &start, StipendInstallments: 1},
			now:     day(2024, time.May, 20),
			want:    Decision{Kind: KindYearlyStipend, State: StateDue, Amount: 400, Installment: 5},
		},
		{
			name:    "yearly term over",
			account: models.User{Tier: "pro", MembershipStatus: models.MembershipActive, PlanInterval: models.PlanIntervalYearly, PlanStartedAt: &start, StipendInstallments: 12},
			now:     day(2025, time.January, 16),
			want:    Decision{Kind: KindYearlyStipend, State: StatePending, Amount: 400},
		},
	}
	for _, tc := range cases {
		account := tc.account
		if got := Evaluate(&account, tiers, tc.now); got != tc.want {
			t.Fatalf("%s: expected %+v, got %+v", tc.name, tc.want, got)
		}
	}
}

func TestActivationFieldsCarryRecentGrant(t *testing.T) {
	t.Parallel()

	tiers := map[string]config.TierConfig{"pro": {MonthlyCredits: 1000, YearlyStipend: 500}}
	granted := day(2024, time.January, 15)
	cases := []struct {
		name     string
		account  *models.User
		interval models.PlanInterval
		now      time.Time
		want     State
	}{
		{"fresh monthly", &models.User{}, models.PlanIntervalMonthly, granted, StateDue},
		{"monthly after monthly", &models.User{LastMonthlyResetAt: &granted}, models.PlanIntervalMonthly, day(2024, time.January, 20), StateGranted},
		{"yearly after monthly", &models.User{LastMonthlyResetAt: &granted}, models.PlanIntervalYearly, day(2024, time.January, 20), StateGranted},
		{"monthly after stipend", &models.User{LastStipendAt: &granted, StipendInstallments: 3}, models.PlanIntervalMonthly, day(2024, time.February, 1), StateGranted},
		{"monthly a month later", &models.User{LastMonthlyResetAt: &granted}, models.PlanIntervalMonthly, day(2024, time.February, 15), StateDue},
		{"yearly a month later", &models.User{LastMonthlyResetAt: &granted}, models.PlanIntervalYearly, day(2024, time.March, 1), StateDue},
	}
	for _, tc := range cases {
		fields := ActivationFields(tc.account, tc.interval, tc.now)
		started := fields["plan_started_at"].(time.Time)
		account := &models.User{
			Tier:             "pro",
			PlanInterval:     tc.interval,
			MembershipStatus: models.MembershipActive,
			PlanStartedAt:    &started,
		}
		if at, ok := fields["last_monthly_reset_at"].(time.Time); ok {
			account.LastMonthlyResetAt = &at
		}
		if n, ok := fields["stipend_installments"].(int); ok {
			account.StipendInstallments = n
		}
		if got := Evaluate(account, tiers, tc.now).State; got != tc.want {
			t.Fatalf("%s: expected %s, got %s", tc.name, tc.want, got)
		}
	}
}
