package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/contentforge/studio/internal/config"
	"github.com/contentforge/studio/internal/http/api/admin/permissions"
	"github.com/contentforge/studio/internal/http/api/common"
	"github.com/contentforge/studio/internal/models"
	"github.com/contentforge/studio/internal/security"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// AuthHandler handles admin authentication endpoints.
type AuthHandler struct {
	db     *gorm.DB
	jwtCfg config.JWTConfig
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(db *gorm.DB, jwtCfg config.JWTConfig) *AuthHandler {
	return &AuthHandler{db: db, jwtCfg: jwtCfg}
}

// loginRequest defines the request body for admin login.
type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Code     string `json:"code"`
}

// Login authenticates an admin by password and, when enrolled, a TOTP code.
func (h *AuthHandler) Login(c *gin.Context) {
	var body loginRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	username := strings.TrimSpace(body.Username)
	password := strings.TrimSpace(body.Password)
	if username == "" || password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username and password are required"})
		return
	}

	var admin models.Admin
	if errFind := h.db.WithContext(c.Request.Context()).Where("username = ?", username).First(&admin).Error; errFind != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}
	if !security.CheckPassword(admin.Password, password) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}
	if !admin.Active {
		c.JSON(http.StatusForbidden, gin.H{"error": "admin account is disabled"})
		return
	}

	if admin.TOTPEnabled() {
		code := strings.TrimSpace(body.Code)
		if code == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "mfa required", "mfa_required": true})
			return
		}
		if !security.ValidateTOTP(admin.TOTPSecret, code, time.Now()) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid code"})
			return
		}
	}

	now := time.Now().UTC()
	if errUpdate := h.db.WithContext(c.Request.Context()).Model(&models.Admin{}).
		Where("id = ?", admin.ID).
		Update("last_login_at", now).Error; errUpdate != nil {
		log.WithError(errUpdate).WithField("admin_id", admin.ID).Warn("update admin last login failed")
	}

	h.respondWithAdminToken(c, admin)
}

// Logout clears the admin session cookie.
func (h *AuthHandler) Logout(c *gin.Context) {
	common.ClearSessionCookie(c, h.cookieOptions())
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// respondWithAdminToken generates a JWT, sets the session cookie and responds with admin info.
func (h *AuthHandler) respondWithAdminToken(c *gin.Context, admin models.Admin) {
	token, errToken := security.GenerateAdminToken(h.jwtCfg.Secret, admin.ID, admin.Username, h.jwtCfg.Expiry)
	if errToken != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate token"})
		return
	}
	common.SetSessionCookie(c, h.cookieOptions(), token, h.jwtCfg.Expiry)

	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"admin": gin.H{
			"id":             admin.ID,
			"username":       admin.Username,
			"permissions":    permissions.ParsePermissions(admin.Permissions),
			"is_super_admin": admin.IsSuperAdmin,
			"totp_enabled":   admin.TOTPEnabled(),
		},
	})
}

func (h *AuthHandler) cookieOptions() common.CookieOptions {
	return common.CookieOptions{Name: h.jwtCfg.AdminCookieName, Domain: h.jwtCfg.CookieDomain, Secure: h.jwtCfg.SecureCookies}
}
