package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/contentforge/studio/internal/models"
	internalsettings "github.com/contentforge/studio/internal/settings"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// SettingHandler manages runtime settings stored in the database.
type SettingHandler struct {
	db *gorm.DB
}

// NewSettingHandler constructs a SettingHandler.
func NewSettingHandler(db *gorm.DB) *SettingHandler {
	return &SettingHandler{db: db}
}

// List returns every known setting with its stored value, if any.
func (h *SettingHandler) List(c *gin.Context) {
	var rows []models.Setting
	if errFind := h.db.WithContext(c.Request.Context()).Find(&rows).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list settings failed"})
		return
	}
	stored := make(map[string]models.Setting, len(rows))
	for _, row := range rows {
		stored[row.Key] = row
	}

	out := make([]gin.H, 0, len(internalsettings.Keys))
	for _, key := range internalsettings.Keys {
		item := gin.H{"key": key, "value": nil, "updated_by": nil, "updated_at": nil}
		if row, ok := stored[key]; ok {
			item["value"] = row.Value
			item["updated_by"] = row.UpdatedBy
			item["updated_at"] = row.UpdatedAt
		}
		out = append(out, item)
	}
	c.JSON(http.StatusOK, gin.H{"settings": out})
}

// updateSettingRequest defines the request body for a setting update.
type updateSettingRequest struct {
	Value json.RawMessage `json:"value"`
}

// Update stores one setting and refreshes the in-memory snapshot.
func (h *SettingHandler) Update(c *gin.Context) {
	key := strings.TrimSpace(c.Param("key"))
	if !internalsettings.KnownKey(key) {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown setting"})
		return
	}
	var body updateSettingRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil || len(body.Value) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if errValidate := internalsettings.ValidateValue(key, body.Value); errValidate != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errValidate.Error()})
		return
	}
	adminID, _ := readAdminIDFromContext(c)
	if errUpsert := internalsettings.Upsert(c.Request.Context(), h.db, key, body.Value, adminID); errUpsert != nil {
		log.WithError(errUpsert).WithField("key", key).Error("update setting failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "key": key})
}
