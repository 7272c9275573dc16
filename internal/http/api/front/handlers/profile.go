package handlers

import (
	"net/http"

	"github.com/contentforge/studio/internal/credits"
	"github.com/contentforge/studio/internal/http/api/common"
	"github.com/contentforge/studio/internal/reset"
	"github.com/gin-gonic/gin"
)

// ProfileHandler handles user profile endpoints.
type ProfileHandler struct {
	store  credits.Store
	engine *reset.Engine
}

// NewProfileHandler constructs a ProfileHandler.
func NewProfileHandler(store credits.Store, engine *reset.Engine) *ProfileHandler {
	return &ProfileHandler{store: store, engine: engine}
}

// Get returns the current user's profile after applying any due reset.
func (h *ProfileHandler) Get(c *gin.Context) {
	userID := getUserID(c)
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	ctx := c.Request.Context()
	result, _ := h.engine.Check(ctx, userID, reset.CheckOptions{NonFatal: true})

	user, errRead := h.store.ReadAccount(ctx, userID)
	if errRead != nil {
		common.WriteError(c, credits.ClassifyStoreError(errRead))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":                user.ID,
		"email":             user.Email,
		"name":              user.Name,
		"credits":           user.Credits,
		"tier":              user.Tier,
		"plan_interval":     user.PlanInterval,
		"membership_status": user.MembershipStatus,
		"plan_started_at":   user.PlanStartedAt,
		"reset":             resetView(result),
		"created_at":        user.CreatedAt,
		"updated_at":        user.UpdatedAt,
	})
}

// resetView renders a reset check result for clients.
func resetView(result *reset.Result) gin.H {
	if result == nil {
		return nil
	}
	view := gin.H{
		"kind":    result.Kind,
		"state":   result.State,
		"granted": result.Granted(),
	}
	if result.Installment > 0 {
		view["installment"] = result.Installment
	}
	if result.Err != nil {
		view["degraded"] = true
	}
	return view
}
