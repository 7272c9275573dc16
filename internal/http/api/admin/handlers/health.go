package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const healthTimeout = 2 * time.Second

// HealthHandler serves health check endpoints.
type HealthHandler struct {
	db    *gorm.DB
	redis *redis.Client
}

// NewHealthHandler constructs a HealthHandler. redisClient may be nil.
func NewHealthHandler(db *gorm.DB, redisClient *redis.Client) *HealthHandler {
	return &HealthHandler{db: db, redis: redisClient}
}

// Healthz checks database connectivity and, when configured, the balance cache.
// A cache outage degrades but does not fail the check.
func (h *HealthHandler) Healthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
	defer cancel()

	sqlDB, err := h.db.DB()
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"ok": false, "database": "unavailable"})
		return
	}
	if errPing := sqlDB.PingContext(ctx); errPing != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"ok": false, "database": "unavailable"})
		return
	}

	cache := "disabled"
	if h.redis != nil {
		cache = "ok"
		if errPing := h.redis.Ping(ctx).Err(); errPing != nil {
			cache = "unavailable"
		}
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "database": "ok", "cache": cache})
}
