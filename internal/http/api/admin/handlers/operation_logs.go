package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/contentforge/studio/internal/http/api/common"
	"github.com/contentforge/studio/internal/models"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// OperationLogHandler serves the admin audit trail.
type OperationLogHandler struct {
	db *gorm.DB
}

// NewOperationLogHandler constructs an OperationLogHandler.
func NewOperationLogHandler(db *gorm.DB) *OperationLogHandler {
	return &OperationLogHandler{db: db}
}

// List returns audit rows newest first, filtered by action, status, user, admin and date.
func (h *OperationLogHandler) List(c *gin.Context) {
	page, errPage := common.PageFromQuery(c)
	if errPage != nil {
		common.WriteError(c, errPage)
		return
	}

	q := h.db.WithContext(c.Request.Context()).Model(&models.AdminOperationLog{})
	if action := strings.TrimSpace(c.Query("action")); action != "" {
		q = q.Where("action = ?", action)
	}
	if status := strings.TrimSpace(c.Query("status")); status != "" {
		q = q.Where("status = ?", status)
	}
	if raw := strings.TrimSpace(c.Query("user_id")); raw != "" {
		userID, errParse := strconv.ParseUint(raw, 10, 64)
		if errParse != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user_id"})
			return
		}
		q = q.Where("target_user_id = ?", userID)
	}
	if raw := strings.TrimSpace(c.Query("admin_id")); raw != "" {
		adminID, errParse := strconv.ParseUint(raw, 10, 64)
		if errParse != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid admin_id"})
			return
		}
		q = q.Where("admin_id = ?", adminID)
	}
	if raw := strings.TrimSpace(c.Query("start_date")); raw != "" {
		start, errParse := time.Parse("2006-01-02", raw)
		if errParse != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid start_date"})
			return
		}
		q = q.Where("created_at >= ?", start.UTC())
	}
	if raw := strings.TrimSpace(c.Query("end_date")); raw != "" {
		end, errParse := time.Parse("2006-01-02", raw)
		if errParse != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid end_date"})
			return
		}
		q = q.Where("created_at < ?", end.UTC().AddDate(0, 0, 1))
	}

	var total int64
	if errCount := q.Count(&total).Error; errCount != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "count failed"})
		return
	}
	var rows []models.AdminOperationLog
	if errFind := q.Order("created_at DESC").Order("id DESC").
		Limit(page.Limit).Offset(page.Offset).
		Find(&rows).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list operation logs failed"})
		return
	}

	out := make([]gin.H, 0, len(rows))
	for _, row := range rows {
		out = append(out, gin.H{
			"id":             row.ID,
			"admin_id":       row.AdminID,
			"admin_username": row.AdminUsername,
			"action":         row.Action,
			"target_user_id": row.TargetUserID,
			"payload":        row.Payload,
			"status":         row.Status,
			"error":          row.Error,
			"ip":             row.IP,
			"user_agent":     row.UserAgent,
			"created_at":     row.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"logs": out, "total": total, "limit": page.Limit, "offset": page.Offset})
}
