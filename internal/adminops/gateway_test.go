package adminops

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/contentforge/studio/internal/config"
	"github.com/contentforge/studio/internal/credits"
	"github.com/contentforge/studio/internal/db"
	"github.com/contentforge/studio/internal/models"
	"github.com/contentforge/studio/internal/reset"
	"gorm.io/gorm"
)

var testNow = time.Date(2024, time.January, 15, 9, 0, 0, 0, time.UTC)

type fixture struct {
	conn     *gorm.DB
	store    *credits.GormStore
	recorder *credits.Recorder
	gateway  *Gateway
	now      time.Time
}

func newFixture(t *testing.T, sink AuditSink) *fixture {
	t.Helper()

	conn, errOpen := db.Open(filepath.Join(t.TempDir(), "adminops.db"))
	if errOpen != nil {
		t.Fatalf("open db: %v", errOpen)
	}
	t.Cleanup(func() { _ = db.Close(conn) })
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate db: %v", errMigrate)
	}

	f := &fixture{conn: conn, now: testNow}
	store := credits.NewGormStore(conn)
	recorder := credits.NewRecorder(store,
		credits.WithClock(credits.ClockFunc(func() time.Time { return f.now })),
		credits.WithSignupBonus(func() int64 { return 100 }),
	)
	engine := reset.NewEngine(store, recorder, map[string]config.TierConfig{
		"pro": {MonthlyCredits: 1000, YearlyStipend: 500},
	}, 0)
	if sink == nil {
		sink = NewGormAuditSink(conn)
	}
	f.store, f.recorder, f.gateway = store, recorder, NewGateway(recorder, engine, sink)
	return f
}

func (f *fixture) account(t *testing.T, email string) *models.User {
	t.Helper()

	user, errOpen := f.recorder.OpenAccount(context.Background(), email, "")
	if errOpen != nil {
		t.Fatalf("open account: %v", errOpen)
	}
	return user
}

func (f *fixture) logs(t *testing.T) []models.AdminOperationLog {
	t.Helper()

	var rows []models.AdminOperationLog
	if errFind := f.conn.Order("id ASC").Find(&rows).Error; errFind != nil {
		t.Fatalf("list logs: %v", errFind)
	}
	return rows
}

func (f *fixture) countTransactions(t *testing.T, userID uint64, txType models.TransactionType) int64 {
	t.Helper()

	var count int64
	if errCount := f.conn.Model(&models.CreditTransaction{}).
		Where("user_id = ? AND type = ?", userID, txType).
		Count(&count).Error; errCount != nil {
		t.Fatalf("count transactions: %v", errCount)
	}
	return count
}

func adminPrincipal() credits.Principal {
	return credits.Principal{Kind: credits.PrincipalAdmin, ID: 1, Username: "admin", IP: "10.0.0.1", UserAgent: "console"}
}

func TestGrantCreditPackage(t *testing.T) {
	f := newFixture(t, nil)
	user := f.account(t, "grant@example.com")

	out, err := f.gateway.GrantCreditPackage(context.Background(), adminPrincipal(), user.ID, 250, "launch promo", "")
	if err != nil {
		t.Fatalf("grant: %v", err)
	}
	if out.Warning != nil || out.Receipt.Balance != 350 {
		t.Fatalf("unexpected outcome: %+v", out)
	}
	logs := f.logs(t)
	if len(logs) != 1 || logs[0].Action != ActionGrantCreditPackage || logs[0].Status != models.AdminOperationSucceeded {
		t.Fatalf("unexpected audit rows: %+v", logs)
	}
}

func TestNonPositiveGrantIsRejectedAndAudited(t *testing.T) {
	f := newFixture(t, nil)
	user := f.account(t, "zero@example.com")

	for _, amount := range []int64{0, -50} {
		_, err := f.gateway.GrantCreditPackage(context.Background(), adminPrincipal(), user.ID, amount, "oops", "")
		if !errors.Is(err, credits.ErrValidation) {
			t.Fatalf("amount %d: expected validation error, got %v", amount, err)
		}
	}
	if got := f.countTransactions(t, user.ID, models.TransactionAdminGrant); got != 0 {
		t.Fatalf("expected no admin_grant rows, got %d", got)
	}
	logs := f.logs(t)
	if len(logs) != 2 {
		t.Fatalf("expected 2 audit rows, got %d", len(logs))
	}
	for _, row := range logs {
		if row.Status != models.AdminOperationRejected || row.Error == "" {
			t.Fatalf("expected rejected audit row with error, got %+v", row)
		}
	}
}

func TestCancelMembershipAudit(t *testing.T) {
	f := newFixture(t, nil)
	user := f.account(t, "member@example.com")
	ctx := context.Background()

	activated, errActivate := f.gateway.ActivateMembership(ctx, adminPrincipal(), user.ID, "pro", models.PlanIntervalMonthly, "")
	if errActivate != nil {
		t.Fatalf("activate: %v", errActivate)
	}
	if !activated.Reset.Granted() || activated.Account.Credits != 1100 {
		t.Fatalf("expected first monthly grant on activation, got %+v", activated.Reset)
	}

	out, errCancel := f.gateway.CancelMembership(ctx, adminPrincipal(), user.ID, "requested by user")
	if errCancel != nil {
		t.Fatalf("cancel: %v", errCancel)
	}
	if out.Account.MembershipStatus != models.MembershipCancelled || out.Account.Tier != models.TierFree || out.Account.PlanInterval != models.PlanIntervalNone {
		t.Fatalf("unexpected account after cancel: %+v", out.Account)
	}
	if out.Account.Credits != 1100 {
		t.Fatalf("expected credits to stay at 1100, got %d", out.Account.Credits)
	}

	logs := f.logs(t)
	last := logs[len(logs)-1]
	if last.AdminUsername != "admin" || last.Action != ActionCancelMembership || last.Status != models.AdminOperationSucceeded {
		t.Fatalf("unexpected audit row: %+v", last)
	}
	if last.TargetUserID == nil || *last.TargetUserID != user.ID || last.IP != "10.0.0.1" {
		t.Fatalf("expected target and caller on audit row, got %+v", last)
	}
	var payload map[string]any
	if errUnmarshal := json.Unmarshal(last.Payload, &payload); errUnmarshal != nil {
		t.Fatalf("unmarshal payload: %v", errUnmarshal)
	}
	if payload["previous_tier"] != "pro" || payload["reason"] != "requested by user" {
		t.Fatalf("unexpected payload: %v", payload)
	}

	if _, err := f.gateway.CancelMembership(ctx, adminPrincipal(), user.ID, ""); !errors.Is(err, credits.ErrValidation) {
		t.Fatalf("expected second cancel to be rejected, got %v", err)
	}
	engineResult, errCheck := reset.NewEngine(f.store, f.recorder, map[string]config.TierConfig{"pro": {MonthlyCredits: 1000}}, 0).
		Check(ctx, user.ID, reset.CheckOptions{})
	if errCheck != nil || engineResult.State != reset.StatePending {
		t.Fatalf("expected cancelled membership to stop grants, got %+v (%v)", engineResult, errCheck)
	}
}

func TestActivationGrantsOncePerPeriod(t *testing.T) {
	f := newFixture(t, nil)
	user := f.account(t, "again@example.com")
	ctx := context.Background()

	first, errActivate := f.gateway.ActivateMembership(ctx, adminPrincipal(), user.ID, "pro", models.PlanIntervalMonthly, "")
	if errActivate != nil || !first.Reset.Granted() {
		t.Fatalf("expected first activation to grant, got %+v (%v)", first, errActivate)
	}

	for i := 0; i < 2; i++ {
		f.now = f.now.Add(time.Minute)
		if _, err := f.gateway.ActivateMembership(ctx, adminPrincipal(), user.ID, "pro", models.PlanIntervalMonthly, ""); !errors.Is(err, credits.ErrValidation) {
			t.Fatalf("repeat activation %d: expected validation error, got %v", i, err)
		}
	}

	f.now = f.now.Add(time.Minute)
	if _, err := f.gateway.CancelMembership(ctx, adminPrincipal(), user.ID, ""); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	f.now = f.now.Add(time.Minute)
	resumed, errResume := f.gateway.ActivateMembership(ctx, adminPrincipal(), user.ID, "pro", models.PlanIntervalYearly, "")
	if errResume != nil {
		t.Fatalf("resume yearly: %v", errResume)
	}
	if resumed.Reset.Granted() || resumed.Account.Credits != 1100 {
		t.Fatalf("expected no second grant in the same period, got %+v balance %d", resumed.Reset, resumed.Account.Credits)
	}
	if got := f.countTransactions(t, user.ID, models.TransactionReward); got != 1 {
		t.Fatalf("expected 1 reward transaction, got %d", got)
	}

	f.now = reset.AddMonths(f.now, 1)
	next, errCheck := f.gateway.engine.Check(ctx, user.ID, reset.CheckOptions{})
	if errCheck != nil || !next.Granted() || next.Balance != 1600 {
		t.Fatalf("expected stipend installment next month, got %+v (%v)", next, errCheck)
	}
	if got := f.countTransactions(t, user.ID, models.TransactionReward); got != 2 {
		t.Fatalf("expected 2 reward transactions, got %d", got)
	}
}

func TestGrantOverflowIsRejected(t *testing.T) {
	f := newFixture(t, nil)
	user := f.account(t, "overflow@example.com")

	_, err := f.gateway.GrantCreditPackage(context.Background(), adminPrincipal(), user.ID, math.MaxInt64, "typo", "")
	if !errors.Is(err, credits.ErrValidation) || credits.IsRetryable(err) {
		t.Fatalf("expected non-retryable validation error, got %v", err)
	}
	var account models.User
	if errFind := f.conn.First(&account, user.ID).Error; errFind != nil {
		t.Fatalf("load account: %v", errFind)
	}
	if account.Credits != 100 {
		t.Fatalf("expected balance to stay 100, got %d", account.Credits)
	}
	logs := f.logs(t)
	if len(logs) != 1 || logs[0].Status != models.AdminOperationRejected {
		t.Fatalf("expected one rejected audit row, got %+v", logs)
	}
}

func TestRevokeAndRefund(t *testing.T) {
	f := newFixture(t, nil)
	user := f.account(t, "adjust@example.com")
	ctx := context.Background()

	if _, err := f.gateway.RevokeCredits(ctx, adminPrincipal(), user.ID, 101, "", ""); !errors.Is(err, credits.ErrInsufficientBalance) {
		t.Fatalf("expected insufficient balance, got %v", err)
	}
	out, errRevoke := f.gateway.RevokeCredits(ctx, adminPrincipal(), user.ID, 40, "abuse", "")
	if errRevoke != nil || out.Receipt.Balance != 60 {
		t.Fatalf("revoke: %+v (%v)", out, errRevoke)
	}

	consume, errConsume := f.recorder.Record(ctx, credits.Entry{UserID: user.ID, Amount: -20, Type: models.TransactionConsume})
	if errConsume != nil {
		t.Fatalf("consume: %v", errConsume)
	}
	refund, errRefund := f.gateway.RefundTransaction(ctx, adminPrincipal(), user.ID, consume.TransactionID, 20, "")
	if errRefund != nil || refund.Receipt.Balance != 60 {
		t.Fatalf("refund: %+v (%v)", refund, errRefund)
	}
	if _, err := f.gateway.RefundTransaction(ctx, adminPrincipal(), user.ID, consume.TransactionID, 1, ""); !errors.Is(err, credits.ErrValidation) {
		t.Fatalf("expected over-refund rejection, got %v", err)
	}

	statuses := []string{}
	for _, row := range f.logs(t) {
		statuses = append(statuses, row.Status)
	}
	want := []string{models.AdminOperationRejected, models.AdminOperationSucceeded, models.AdminOperationSucceeded, models.AdminOperationRejected}
	if len(statuses) != len(want) {
		t.Fatalf("expected %d audit rows, got %v", len(want), statuses)
	}
	for i := range want {
		if statuses[i] != want[i] {
			t.Fatalf("audit row %d: expected %s, got %s", i, want[i], statuses[i])
		}
	}
}

func TestNonAdminPrincipalIsForbidden(t *testing.T) {
	f := newFixture(t, nil)
	user := f.account(t, "self@example.com")

	_, err := f.gateway.GrantCreditPackage(context.Background(), credits.UserPrincipal(user.ID), user.ID, 10, "", "")
	if !errors.Is(err, credits.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if got := f.countTransactions(t, user.ID, models.TransactionAdminGrant); got != 0 {
		t.Fatalf("expected no grant rows, got %d", got)
	}
}

// failingSink rejects every audit write.
type failingSink struct{}

func (failingSink) WriteAdminLog(context.Context, *models.AdminOperationLog) error {
	return errors.New("audit table unavailable")
}

func TestAuditFailureBecomesWarning(t *testing.T) {
	f := newFixture(t, failingSink{})
	user := f.account(t, "warn@example.com")

	out, err := f.gateway.GrantCreditPackage(context.Background(), adminPrincipal(), user.ID, 10, "", "")
	if err != nil {
		t.Fatalf("expected business success, got %v", err)
	}
	if !errors.Is(out.Warning, credits.ErrAuditWrite) {
		t.Fatalf("expected audit warning, got %v", out.Warning)
	}
	if out.Receipt.Balance != 110 {
		t.Fatalf("expected grant to be committed, got balance %d", out.Receipt.Balance)
	}
}
