package handlers

import (
	"net/http"
	"strings"

	"github.com/contentforge/studio/internal/credits"
	"github.com/contentforge/studio/internal/http/api/common"
	"github.com/contentforge/studio/internal/models"
	"github.com/contentforge/studio/internal/reset"
	"github.com/gin-gonic/gin"
)

// CreditsHandler serves the signed-in user's balance and history.
type CreditsHandler struct {
	accessor *credits.BalanceAccessor
	recorder *credits.Recorder
	engine   *reset.Engine
}

// NewCreditsHandler constructs a CreditsHandler.
func NewCreditsHandler(accessor *credits.BalanceAccessor, recorder *credits.Recorder, engine *reset.Engine) *CreditsHandler {
	return &CreditsHandler{accessor: accessor, recorder: recorder, engine: engine}
}

// Balance returns the current balance after applying any due reset.
func (h *CreditsHandler) Balance(c *gin.Context) {
	userID := getUserID(c)
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	ctx := c.Request.Context()
	result, _ := h.engine.Check(ctx, userID, reset.CheckOptions{NonFatal: true})

	balance, errBalance := h.accessor.Balance(ctx, getPrincipal(c), userID)
	if errBalance != nil {
		common.WriteError(c, errBalance)
		return
	}
	c.JSON(http.StatusOK, gin.H{"balance": balance, "reset": resetView(result)})
}

// Transactions returns one page of the user's history, newest first.
func (h *CreditsHandler) Transactions(c *gin.Context) {
	userID := getUserID(c)
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	page, errPage := common.PageFromQuery(c)
	if errPage != nil {
		common.WriteError(c, errPage)
		return
	}
	history, errHistory := h.accessor.History(c.Request.Context(), getPrincipal(c), userID, page)
	if errHistory != nil {
		common.WriteError(c, errHistory)
		return
	}
	c.JSON(http.StatusOK, HistoryView(history))
}

// consumeRequest defines the request body for spending credits.
type consumeRequest struct {
	Amount         int64  `json:"amount"`
	Reason         string `json:"reason"`
	IdempotencyKey string `json:"idempotency_key"`
}

// Consume spends credits on a generation.
func (h *CreditsHandler) Consume(c *gin.Context) {
	userID := getUserID(c)
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	var body consumeRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if body.Amount <= 0 {
		common.WriteError(c, credits.ValidationError{Field: "amount", Message: "must be positive"})
		return
	}
	key := strings.TrimSpace(body.IdempotencyKey)
	if key == "" {
		key = strings.TrimSpace(c.GetHeader("Idempotency-Key"))
	}

	receipt, errRecord := h.recorder.Record(c.Request.Context(), credits.Entry{
		UserID:         userID,
		Amount:         -body.Amount,
		Type:           models.TransactionConsume,
		Reason:         body.Reason,
		IdempotencyKey: key,
	})
	if errRecord != nil {
		common.WriteError(c, errRecord)
		return
	}
	status := http.StatusCreated
	if receipt.Replayed {
		status = http.StatusOK
	}
	c.JSON(status, gin.H{
		"transaction_id": receipt.TransactionID,
		"balance":        receipt.Balance,
		"replayed":       receipt.Replayed,
	})
}

// HistoryView renders a history page.
func HistoryView(history *credits.History) gin.H {
	items := make([]gin.H, 0, len(history.Items))
	for _, row := range history.Items {
		items = append(items, TransactionView(row))
	}
	return gin.H{
		"balance":        history.Balance,
		"total_earned":   history.TotalEarned,
		"total_consumed": history.TotalConsumed,
		"total":          history.Total,
		"limit":          history.Limit,
		"offset":         history.Offset,
		"transactions":   items,
	}
}

// TransactionView renders one ledger entry.
func TransactionView(row models.CreditTransaction) gin.H {
	return gin.H{
		"id":            row.ID,
		"amount":        row.Amount,
		"type":          row.Type,
		"reason":        row.Reason,
		"balance_after": row.BalanceAfter,
		"reference_id":  row.ReferenceID,
		"created_at":    row.CreatedAt,
	}
}
