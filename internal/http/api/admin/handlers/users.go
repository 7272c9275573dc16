package handlers

import (
	"net/http"
	"strings"

	"github.com/contentforge/studio/internal/credits"
	dbutil "github.com/contentforge/studio/internal/db"
	"github.com/contentforge/studio/internal/http/api/common"
	fronthandlers "github.com/contentforge/studio/internal/http/api/front/handlers"
	"github.com/contentforge/studio/internal/models"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// UserHandler serves read-only account views for admins.
type UserHandler struct {
	db       *gorm.DB
	store    credits.Store
	accessor *credits.BalanceAccessor
}

// NewUserHandler constructs a UserHandler.
func NewUserHandler(db *gorm.DB, store credits.Store, accessor *credits.BalanceAccessor) *UserHandler {
	return &UserHandler{db: db, store: store, accessor: accessor}
}

// List returns accounts filtered by email, tier and membership status.
func (h *UserHandler) List(c *gin.Context) {
	page, errPage := common.PageFromQuery(c)
	if errPage != nil {
		common.WriteError(c, errPage)
		return
	}

	q := h.db.WithContext(c.Request.Context()).Model(&models.User{})
	if email := strings.TrimSpace(c.Query("email")); email != "" {
		q = q.Where(dbutil.CaseInsensitiveLikeExpr(h.db, "email"), dbutil.ContainsPattern(h.db, email))
	}
	if tier := strings.TrimSpace(c.Query("tier")); tier != "" {
		q = q.Where("tier = ?", strings.ToLower(tier))
	}
	if status := strings.TrimSpace(c.Query("status")); status != "" {
		q = q.Where("membership_status = ?", status)
	}

	var total int64
	if errCount := q.Count(&total).Error; errCount != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "count failed"})
		return
	}
	var rows []models.User
	if errFind := q.Order("id DESC").Limit(page.Limit).Offset(page.Offset).Find(&rows).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list users failed"})
		return
	}
	out := make([]gin.H, 0, len(rows))
	for _, row := range rows {
		out = append(out, userView(&row))
	}
	c.JSON(http.StatusOK, gin.H{"users": out, "total": total, "limit": page.Limit, "offset": page.Offset})
}

// Get returns one account.
func (h *UserHandler) Get(c *gin.Context) {
	id, errParse := common.ParseIDParam(c, "id")
	if errParse != nil {
		common.WriteError(c, errParse)
		return
	}
	user, errRead := h.store.ReadAccount(c.Request.Context(), id)
	if errRead != nil {
		common.WriteError(c, credits.ClassifyStoreError(errRead))
		return
	}
	c.JSON(http.StatusOK, userView(user))
}

// Credits returns one page of an account's ledger history.
func (h *UserHandler) Credits(c *gin.Context) {
	id, errParse := common.ParseIDParam(c, "id")
	if errParse != nil {
		common.WriteError(c, errParse)
		return
	}
	page, errPage := common.PageFromQuery(c)
	if errPage != nil {
		common.WriteError(c, errPage)
		return
	}
	history, errHistory := h.accessor.History(c.Request.Context(), adminPrincipal(c), id, page)
	if errHistory != nil {
		common.WriteError(c, errHistory)
		return
	}
	c.JSON(http.StatusOK, fronthandlers.HistoryView(history))
}

func userView(user *models.User) gin.H {
	return gin.H{
		"id":                    user.ID,
		"email":                 user.Email,
		"name":                  user.Name,
		"credits":               user.Credits,
		"tier":                  user.Tier,
		"plan_interval":         user.PlanInterval,
		"membership_status":     user.MembershipStatus,
		"plan_started_at":       user.PlanStartedAt,
		"last_monthly_reset_at": user.LastMonthlyResetAt,
		"stipend_installments":  user.StipendInstallments,
		"last_stipend_at":       user.LastStipendAt,
		"disabled":              user.Disabled,
		"last_login_at":         user.LastLoginAt,
		"created_at":            user.CreatedAt,
	}
}
