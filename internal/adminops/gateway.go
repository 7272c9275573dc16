// Package adminops applies audited admin adjustments to the credits ledger.
package adminops

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/contentforge/studio/internal/credits"
	"github.com/contentforge/studio/internal/models"
	"github.com/contentforge/studio/internal/reset"
	log "github.com/sirupsen/logrus"
	"gorm.io/datatypes"
)

// Admin actions recorded in the operation log.
const (
	ActionGrantCreditPackage = "grant-credit-package"
	ActionCancelMembership   = "cancel-membership"
	ActionRevokeCredits      = "revoke-credits"
	ActionRefundTransaction  = "refund-transaction"
	ActionActivateMembership = "activate-membership"
)

const auditTimeout = 5 * time.Second

// Outcome is the result of a gateway call. Warning is set when the audit write failed.
type Outcome struct {
	Receipt *credits.Receipt
	Account *models.User
	Reset   *reset.Result
	Warning error
}

// Gateway is the only path through which admins change balances or memberships.
type Gateway struct {
	recorder *credits.Recorder
	engine   *reset.Engine
	audit    AuditSink
}

// NewGateway constructs a Gateway.
func NewGateway(recorder *credits.Recorder, engine *reset.Engine, audit AuditSink) *Gateway {
	return &Gateway{recorder: recorder, engine: engine, audit: audit}
}

// GrantCreditPackage adds amount credits to userID as an admin_grant.
func (g *Gateway) GrantCreditPackage(ctx context.Context, admin credits.Principal, userID uint64, amount int64, reason, idempotencyKey string) (*Outcome, error) {
	payload := map[string]any{"amount": amount, "reason": reason}
	if idempotencyKey != "" {
		payload["idempotency_key"] = idempotencyKey
	}
	return g.run(ctx, admin, ActionGrantCreditPackage, userID, payload, func(out *Outcome) error {
		if amount <= 0 {
			return credits.ValidationError{Field: "amount", Message: "must be positive"}
		}
		receipt, errRecord := g.recorder.Record(ctx, credits.Entry{
			UserID:         userID,
			Amount:         amount,
			Type:           models.TransactionAdminGrant,
			Reason:         defaultReason(reason, "credit package"),
			IdempotencyKey: idempotencyKey,
		})
		if errRecord != nil {
			return errRecord
		}
		out.Receipt = receipt
		payload["transaction_id"] = receipt.TransactionID
		payload["balance"] = receipt.Balance
		return nil
	})
}

// RevokeCredits removes amount credits from userID as an admin_revoke.
func (g *Gateway) RevokeCredits(ctx context.Context, admin credits.Principal, userID uint64, amount int64, reason, idempotencyKey string) (*Outcome, error) {
	payload := map[string]any{"amount": amount, "reason": reason}
	if idempotencyKey != "" {
		payload["idempotency_key"] = idempotencyKey
	}
	return g.run(ctx, admin, ActionRevokeCredits, userID, payload, func(out *Outcome) error {
		if amount <= 0 {
			return credits.ValidationError{Field: "amount", Message: "must be positive"}
		}
		receipt, errRecord := g.recorder.Record(ctx, credits.Entry{
			UserID:         userID,
			Amount:         -amount,
			Type:           models.TransactionAdminRevoke,
			Reason:         defaultReason(reason, "manual revocation"),
			IdempotencyKey: idempotencyKey,
		})
		if errRecord != nil {
			return errRecord
		}
		out.Receipt = receipt
		payload["transaction_id"] = receipt.TransactionID
		payload["balance"] = receipt.Balance
		return nil
	})
}

// RefundTransaction gives back amount credits of a consume transaction.
func (g *Gateway) RefundTransaction(ctx context.Context, admin credits.Principal, userID, transactionID uint64, amount int64, reason string) (*Outcome, error) {
	payload := map[string]any{"reference_id": transactionID, "amount": amount, "reason": reason}
	return g.run(ctx, admin, ActionRefundTransaction, userID, payload, func(out *Outcome) error {
		if transactionID == 0 {
			return credits.ValidationError{Field: "transaction_id", Message: "required"}
		}
		if amount <= 0 {
			return credits.ValidationError{Field: "amount", Message: "must be positive"}
		}
		ref := transactionID
		receipt, errRecord := g.recorder.Record(ctx, credits.Entry{
			UserID:      userID,
			Amount:      amount,
			Type:        models.TransactionRefund,
			Reason:      defaultReason(reason, fmt.Sprintf("refund of #%d", transactionID)),
			ReferenceID: &ref,
		})
		if errRecord != nil {
			return errRecord
		}
		out.Receipt = receipt
		payload["transaction_id"] = receipt.TransactionID
		payload["balance"] = receipt.Balance
		return nil
	})
}

// CancelMembership ends the paid membership of userID. Existing credits stay on the account.
func (g *Gateway) CancelMembership(ctx context.Context, admin credits.Principal, userID uint64, reason string) (*Outcome, error) {
	payload := map[string]any{"reason": reason}
	return g.run(ctx, admin, ActionCancelMembership, userID, payload, func(out *Outcome) error {
		account, errUpdate := g.recorder.UpdateAccount(ctx, userID, func(account *models.User) (map[string]any, error) {
			if account.MembershipStatus != models.MembershipActive {
				return nil, credits.ValidationError{Field: "membership", Message: "no active membership"}
			}
			payload["previous_tier"] = account.Tier
			payload["previous_interval"] = account.PlanInterval
			return map[string]any{
				"membership_status": models.MembershipCancelled,
				"tier":              models.TierFree,
				"plan_interval":     models.PlanIntervalNone,
			}, nil
		})
		if errUpdate != nil {
			return errUpdate
		}
		out.Account = account
		payload["balance"] = account.Credits
		return nil
	})
}

// ActivateMembership starts a paid plan and grants its first period right away unless a
// recurring grant already covered the current period.
func (g *Gateway) ActivateMembership(ctx context.Context, admin credits.Principal, userID uint64, tier string, interval models.PlanInterval, reason string) (*Outcome, error) {
	tier = strings.ToLower(strings.TrimSpace(tier))
	payload := map[string]any{"tier": tier, "interval": interval, "reason": reason}
	return g.run(ctx, admin, ActionActivateMembership, userID, payload, func(out *Outcome) error {
		if _, ok := g.engine.Tiers()[tier]; !ok {
			return credits.ValidationError{Field: "tier", Message: "unknown paid tier"}
		}
		if interval != models.PlanIntervalMonthly && interval != models.PlanIntervalYearly {
			return credits.ValidationError{Field: "interval", Message: "must be monthly or yearly"}
		}
		now := g.recorder.Clock().Now().UTC()
		account, errUpdate := g.recorder.UpdateAccount(ctx, userID, func(account *models.User) (map[string]any, error) {
			if account.IsPaid() && account.Tier == tier && account.PlanInterval == interval {
				return nil, credits.ValidationError{Field: "membership", Message: "already active on this plan"}
			}
			payload["previous_tier"] = account.Tier
			payload["previous_status"] = account.MembershipStatus
			fields := reset.ActivationFields(account, interval, now)
			fields["tier"] = tier
			fields["plan_interval"] = interval
			fields["membership_status"] = models.MembershipActive
			return fields, nil
		})
		if errUpdate != nil {
			return errUpdate
		}
		out.Account = account

		result, _ := g.engine.Check(ctx, userID, reset.CheckOptions{NonFatal: true})
		out.Reset = result
		payload["reset_state"] = result.State
		if result.Granted() {
			payload["transaction_id"] = result.TransactionID
			out.Account.Credits = result.Balance
		}
		if result.Err != nil {
			payload["reset_error"] = result.Err.Error()
		}
		payload["balance"] = out.Account.Credits
		return nil
	})
}

// run authorizes admin, executes op and writes one audit row whatever the outcome.
func (g *Gateway) run(ctx context.Context, admin credits.Principal, action string, userID uint64, payload map[string]any, op func(out *Outcome) error) (*Outcome, error) {
	out := &Outcome{}
	var errOp error
	switch {
	case admin.Kind != credits.PrincipalAdmin || admin.ID == 0:
		errOp = credits.ErrForbidden
	case userID == 0:
		errOp = credits.ValidationError{Field: "user_id", Message: "required"}
	default:
		errOp = op(out)
	}

	entry := &models.AdminOperationLog{
		AdminID:       admin.ID,
		AdminUsername: admin.Username,
		Action:        action,
		Status:        statusOf(errOp),
		IP:            admin.IP,
		UserAgent:     admin.UserAgent,
		CreatedAt:     g.recorder.Clock().Now().UTC(),
	}
	if userID != 0 {
		target := userID
		entry.TargetUserID = &target
	}
	if errOp != nil {
		entry.Error = errOp.Error()
	}
	if raw, errMarshal := json.Marshal(payload); errMarshal == nil {
		entry.Payload = datatypes.JSON(raw)
	}

	auditCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), auditTimeout)
	defer cancel()
	if errAudit := g.writeAudit(auditCtx, entry); errAudit != nil {
		out.Warning = fmt.Errorf("%w: %v", credits.ErrAuditWrite, errAudit)
		log.WithError(errAudit).WithFields(log.Fields{
			"admin_id": admin.ID,
			"action":   action,
			"user_id":  userID,
			"status":   entry.Status,
		}).Warn("adminops: audit write failed")
	}
	return out, errOp
}

func (g *Gateway) writeAudit(ctx context.Context, entry *models.AdminOperationLog) error {
	if g.audit == nil {
		return errors.New("no audit sink configured")
	}
	return g.audit.WriteAdminLog(ctx, entry)
}

func statusOf(err error) string {
	switch {
	case err == nil:
		return models.AdminOperationSucceeded
	case errors.Is(err, credits.ErrValidation),
		errors.Is(err, credits.ErrForbidden),
		errors.Is(err, credits.ErrInsufficientBalance),
		errors.Is(err, credits.ErrAccountNotFound),
		errors.Is(err, credits.ErrTransactionNotFound):
		return models.AdminOperationRejected
	default:
		return models.AdminOperationFailed
	}
}

func defaultReason(reason, fallback string) string {
	if r := strings.TrimSpace(reason); r != "" {
		return r
	}
	return fallback
}
