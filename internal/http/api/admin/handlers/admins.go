package handlers

import (
	"net/http"
	"strings"
	"time"

	dbutil "github.com/contentforge/studio/internal/db"
	"github.com/contentforge/studio/internal/http/api/admin/permissions"
	"github.com/contentforge/studio/internal/http/api/common"
	"github.com/contentforge/studio/internal/models"
	"github.com/contentforge/studio/internal/security"
	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// AdminHandler manages admin account endpoints.
type AdminHandler struct {
	db *gorm.DB
}

// NewAdminHandler constructs an AdminHandler.
func NewAdminHandler(db *gorm.DB) *AdminHandler {
	return &AdminHandler{db: db}
}

// createAdminRequest defines the request body for admin creation.
type createAdminRequest struct {
	Username     string   `json:"username"`
	Password     string   `json:"password"`
	Permissions  []string `json:"permissions"`
	IsSuperAdmin bool     `json:"is_super_admin"`
}

// Create creates a new admin account.
func (h *AdminHandler) Create(c *gin.Context) {
	var body createAdminRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	username := strings.TrimSpace(body.Username)
	if username == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing username"})
		return
	}
	if errValidate := security.ValidatePassword(body.Password); errValidate != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errValidate.Error()})
		return
	}
	permissionsJSON, ok := encodePermissions(c, body.Permissions)
	if !ok {
		return
	}

	hash, errHash := security.HashPassword(body.Password)
	if errHash != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "hash password failed"})
		return
	}

	var existing int64
	if errCount := h.db.WithContext(c.Request.Context()).Model(&models.Admin{}).Where("username = ?", username).Count(&existing).Error; errCount != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	if existing > 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "username already exists"})
		return
	}

	now := time.Now().UTC()
	admin := models.Admin{
		Username:     username,
		Password:     hash,
		Active:       true,
		IsSuperAdmin: body.IsSuperAdmin,
		Permissions:  permissionsJSON,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if errCreate := h.db.WithContext(c.Request.Context()).Create(&admin).Error; errCreate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create admin failed"})
		return
	}
	c.JSON(http.StatusCreated, adminView(admin))
}

// List returns admin accounts, optionally filtered by username.
func (h *AdminHandler) List(c *gin.Context) {
	q := h.db.WithContext(c.Request.Context()).Model(&models.Admin{})
	if usernameQ := strings.TrimSpace(c.Query("username")); usernameQ != "" {
		q = q.Where(dbutil.CaseInsensitiveLikeExpr(h.db, "username"), dbutil.ContainsPattern(h.db, usernameQ))
	}

	var rows []models.Admin
	if errFind := q.Order("id ASC").Find(&rows).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list admins failed"})
		return
	}
	out := make([]gin.H, 0, len(rows))
	for _, row := range rows {
		out = append(out, adminView(row))
	}
	c.JSON(http.StatusOK, gin.H{"admins": out})
}

// updateAdminRequest defines the request body for admin updates.
type updateAdminRequest struct {
	Permissions  *[]string `json:"permissions"`
	IsSuperAdmin *bool     `json:"is_super_admin"`
	Password     *string   `json:"password"`
}

// Update changes permissions, the super admin flag or the password of an admin.
func (h *AdminHandler) Update(c *gin.Context) {
	id, errParse := common.ParseIDParam(c, "id")
	if errParse != nil {
		common.WriteError(c, errParse)
		return
	}
	var body updateAdminRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	updates := map[string]any{"updated_at": time.Now().UTC()}
	if body.Permissions != nil {
		permissionsJSON, ok := encodePermissions(c, *body.Permissions)
		if !ok {
			return
		}
		updates["permissions"] = permissionsJSON
	}
	if body.IsSuperAdmin != nil {
		if self, _ := readAdminIDFromContext(c); self == id && !*body.IsSuperAdmin {
			c.JSON(http.StatusBadRequest, gin.H{"error": "cannot demote yourself"})
			return
		}
		updates["is_super_admin"] = *body.IsSuperAdmin
	}
	if body.Password != nil {
		if errValidate := security.ValidatePassword(*body.Password); errValidate != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": errValidate.Error()})
			return
		}
		hash, errHash := security.HashPassword(*body.Password)
		if errHash != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "hash password failed"})
			return
		}
		updates["password"] = hash
	}

	h.applyUpdates(c, id, updates)
}

// Disable deactivates an admin account.
func (h *AdminHandler) Disable(c *gin.Context) {
	h.setActive(c, false)
}

// Enable reactivates an admin account.
func (h *AdminHandler) Enable(c *gin.Context) {
	h.setActive(c, true)
}

func (h *AdminHandler) setActive(c *gin.Context, active bool) {
	id, errParse := common.ParseIDParam(c, "id")
	if errParse != nil {
		common.WriteError(c, errParse)
		return
	}
	if self, _ := readAdminIDFromContext(c); self == id && !active {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot disable yourself"})
		return
	}
	h.applyUpdates(c, id, map[string]any{"active": active, "updated_at": time.Now().UTC()})
}

func (h *AdminHandler) applyUpdates(c *gin.Context, id uint64, updates map[string]any) {
	res := h.db.WithContext(c.Request.Context()).Model(&models.Admin{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// encodePermissions validates permission keys and encodes them for storage.
func encodePermissions(c *gin.Context, keys []string) (datatypes.JSON, bool) {
	normalized := permissions.NormalizePermissions(keys)
	if errValidate := permissions.ValidatePermissions(normalized); errValidate != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid permissions"})
		return nil, false
	}
	raw, errMarshal := permissions.MarshalPermissions(normalized)
	if errMarshal != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "marshal permissions failed"})
		return nil, false
	}
	return datatypes.JSON(raw), true
}

func adminView(admin models.Admin) gin.H {
	return gin.H{
		"id":             admin.ID,
		"username":       admin.Username,
		"active":         admin.Active,
		"is_super_admin": admin.IsSuperAdmin,
		"permissions":    permissions.ParsePermissions(admin.Permissions),
		"totp_enabled":   admin.TOTPEnabled(),
		"last_login_at":  admin.LastLoginAt,
		"created_at":     admin.CreatedAt,
		"updated_at":     admin.UpdatedAt,
	}
}
