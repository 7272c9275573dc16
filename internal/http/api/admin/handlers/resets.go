package handlers

import (
	"net/http"

	"github.com/contentforge/studio/internal/reset"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// ResetHandler triggers reset sweeps on demand.
type ResetHandler struct {
	engine *reset.Engine
}

// NewResetHandler constructs a ResetHandler.
func NewResetHandler(engine *reset.Engine) *ResetHandler {
	return &ResetHandler{engine: engine}
}

// Sweep grants every due period now and returns the run summary.
func (h *ResetHandler) Sweep(c *gin.Context) {
	summary, errSweep := h.engine.Sweep(c.Request.Context())
	if errSweep != nil {
		log.WithError(errSweep).Warn("manual reset sweep incomplete")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "sweep incomplete", "summary": summary})
		return
	}
	c.JSON(http.StatusOK, gin.H{"summary": summary})
}
