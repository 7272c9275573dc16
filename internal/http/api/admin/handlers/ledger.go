package handlers

import (
	"net/http"
	"strings"

	"github.com/contentforge/studio/internal/adminops"
	"github.com/contentforge/studio/internal/http/api/common"
	"github.com/contentforge/studio/internal/models"
	"github.com/gin-gonic/gin"
)

// LedgerHandler exposes admin balance and membership adjustments.
type LedgerHandler struct {
	gateway *adminops.Gateway
}

// NewLedgerHandler constructs a LedgerHandler.
func NewLedgerHandler(gateway *adminops.Gateway) *LedgerHandler {
	return &LedgerHandler{gateway: gateway}
}

// adjustRequest defines the request body for grants and revocations.
type adjustRequest struct {
	Amount         int64  `json:"amount"`
	Reason         string `json:"reason"`
	IdempotencyKey string `json:"idempotency_key"`
}

// Grant adds a credit package to an account.
func (h *LedgerHandler) Grant(c *gin.Context) {
	userID, body, ok := bindAdjust(c)
	if !ok {
		return
	}
	out, errGrant := h.gateway.GrantCreditPackage(c.Request.Context(), adminPrincipal(c), userID, body.Amount, body.Reason, body.IdempotencyKey)
	respondOutcome(c, out, errGrant, http.StatusCreated)
}

// Revoke debits credits from an account.
func (h *LedgerHandler) Revoke(c *gin.Context) {
	userID, body, ok := bindAdjust(c)
	if !ok {
		return
	}
	out, errRevoke := h.gateway.RevokeCredits(c.Request.Context(), adminPrincipal(c), userID, body.Amount, body.Reason, body.IdempotencyKey)
	respondOutcome(c, out, errRevoke, http.StatusCreated)
}

// refundRequest defines the request body for refunds.
type refundRequest struct {
	TransactionID uint64 `json:"transaction_id"`
	Amount        int64  `json:"amount"`
	Reason        string `json:"reason"`
}

// Refund gives back credits of an earlier consume.
func (h *LedgerHandler) Refund(c *gin.Context) {
	userID, errParse := common.ParseIDParam(c, "id")
	if errParse != nil {
		common.WriteError(c, errParse)
		return
	}
	var body refundRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	out, errRefund := h.gateway.RefundTransaction(c.Request.Context(), adminPrincipal(c), userID, body.TransactionID, body.Amount, body.Reason)
	respondOutcome(c, out, errRefund, http.StatusCreated)
}

// activateRequest defines the request body for membership activation.
type activateRequest struct {
	Tier     string `json:"tier"`
	Interval string `json:"interval"`
	Reason   string `json:"reason"`
}

// Activate starts a paid membership.
func (h *LedgerHandler) Activate(c *gin.Context) {
	userID, errParse := common.ParseIDParam(c, "id")
	if errParse != nil {
		common.WriteError(c, errParse)
		return
	}
	var body activateRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	interval := models.PlanInterval(strings.ToLower(strings.TrimSpace(body.Interval)))
	out, errActivate := h.gateway.ActivateMembership(c.Request.Context(), adminPrincipal(c), userID, body.Tier, interval, body.Reason)
	respondOutcome(c, out, errActivate, http.StatusOK)
}

// cancelRequest defines the request body for membership cancellation.
type cancelRequest struct {
	Reason string `json:"reason"`
}

// Cancel ends the active membership of an account. Remaining credits stay.
func (h *LedgerHandler) Cancel(c *gin.Context) {
	userID, errParse := common.ParseIDParam(c, "id")
	if errParse != nil {
		common.WriteError(c, errParse)
		return
	}
	var body cancelRequest
	if c.Request.ContentLength > 0 {
		if errBind := c.ShouldBindJSON(&body); errBind != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
			return
		}
	}
	out, errCancel := h.gateway.CancelMembership(c.Request.Context(), adminPrincipal(c), userID, body.Reason)
	respondOutcome(c, out, errCancel, http.StatusOK)
}

func bindAdjust(c *gin.Context) (uint64, adjustRequest, bool) {
	var body adjustRequest
	userID, errParse := common.ParseIDParam(c, "id")
	if errParse != nil {
		common.WriteError(c, errParse)
		return 0, body, false
	}
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return 0, body, false
	}
	if body.IdempotencyKey == "" {
		body.IdempotencyKey = strings.TrimSpace(c.GetHeader("Idempotency-Key"))
	}
	return userID, body, true
}

// respondOutcome renders a gateway result. Audit warnings ride along with success.
func respondOutcome(c *gin.Context, out *adminops.Outcome, err error, status int) {
	if err != nil {
		common.WriteError(c, err)
		return
	}
	resp := gin.H{}
	if out.Receipt != nil {
		resp["transaction_id"] = out.Receipt.TransactionID
		resp["balance"] = out.Receipt.Balance
		resp["replayed"] = out.Receipt.Replayed
		if out.Receipt.Replayed {
			status = http.StatusOK
		}
	}
	if out.Account != nil {
		resp["user"] = userView(out.Account)
		if _, ok := resp["balance"]; !ok {
			resp["balance"] = out.Account.Credits
		}
	}
	if out.Reset != nil {
		resp["reset"] = gin.H{
			"kind":        out.Reset.Kind,
			"state":       out.Reset.State,
			"granted":     out.Reset.Granted(),
			"installment": out.Reset.Installment,
		}
	}
	if out.Warning != nil {
		resp["warning"] = warningText(out.Warning)
	}
	c.JSON(status, resp)
}
