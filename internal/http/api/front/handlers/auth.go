package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/contentforge/studio/internal/config"
	"github.com/contentforge/studio/internal/credits"
	"github.com/contentforge/studio/internal/http/api/common"
	"github.com/contentforge/studio/internal/mail"
	"github.com/contentforge/studio/internal/models"
	"github.com/contentforge/studio/internal/security"
	"github.com/contentforge/studio/internal/util"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// AuthHandler handles passwordless sign-in for users.
type AuthHandler struct {
	db       *gorm.DB
	jwtCfg   config.JWTConfig
	mailCfg  config.MailConfig
	recorder *credits.Recorder
	mailer   mail.Sender
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(db *gorm.DB, jwtCfg config.JWTConfig, mailCfg config.MailConfig, recorder *credits.Recorder, mailer mail.Sender) *AuthHandler {
	return &AuthHandler{db: db, jwtCfg: jwtCfg, mailCfg: mailCfg, recorder: recorder, mailer: mailer}
}

// requestCodeRequest defines the request body for code delivery.
type requestCodeRequest struct {
	Email string `json:"email"`
}

// RequestCode emails a one-time sign-in code.
func (h *AuthHandler) RequestCode(c *gin.Context) {
	var body requestCodeRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	email := strings.ToLower(strings.TrimSpace(body.Email))
	if email == "" || !strings.Contains(email, "@") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid email"})
		return
	}

	ctx := c.Request.Context()
	now := time.Now().UTC()
	var recent int64
	if errCount := h.db.WithContext(ctx).Model(&models.LoginCode{}).
		Where("email = ? AND created_at > ?", email, now.Add(-h.mailCfg.Cooldown)).
		Count(&recent).Error; errCount != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	if recent > 0 {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "code recently sent, try again later"})
		return
	}

	code, errCode := security.GenerateLoginCode()
	if errCode != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "generate code failed"})
		return
	}
	hash, errHash := security.HashLoginCode(code)
	if errHash != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "hash code failed"})
		return
	}
	row := models.LoginCode{
		Email:     email,
		CodeHash:  hash,
		ExpiresAt: now.Add(h.mailCfg.CodeTTL),
		RequestIP: c.ClientIP(),
		CreatedAt: now,
	}
	if errCreate := h.db.WithContext(ctx).Create(&row).Error; errCreate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "store code failed"})
		return
	}
	if errSend := h.mailer.SendLoginCode(ctx, email, code); errSend != nil {
		log.WithError(errSend).WithField("email", util.MaskEmail(email)).Warn("send login code failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": "send code failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "expires_in": int(h.mailCfg.CodeTTL.Seconds())})
}

// verifyCodeRequest defines the request body for code verification.
type verifyCodeRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
	Name  string `json:"name"`
}

// VerifyCode exchanges a valid code for a session, opening the account on first sign-in.
func (h *AuthHandler) VerifyCode(c *gin.Context) {
	var body verifyCodeRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	email := strings.ToLower(strings.TrimSpace(body.Email))
	code := strings.TrimSpace(body.Code)
	if email == "" || code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email and code are required"})
		return
	}

	ctx := c.Request.Context()
	now := time.Now().UTC()
	var row models.LoginCode
	if errFind := h.db.WithContext(ctx).
		Where("email = ? AND used_at IS NULL AND expires_at > ?", email, now).
		Order("id DESC").
		First(&row).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired code"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	// Claim an attempt before comparing so concurrent guesses cannot exceed the limit.
	claim := h.db.WithContext(ctx).Model(&models.LoginCode{}).
		Where("id = ? AND attempts < ?", row.ID, h.mailCfg.MaxAttempts).
		Update("attempts", gorm.Expr("attempts + 1"))
	if claim.Error != nil {
		log.WithError(claim.Error).Warn("record code attempt")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "record attempt failed"})
		return
	}
	if claim.RowsAffected == 0 {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many attempts, request a new code"})
		return
	}
	if !security.CheckLoginCode(row.CodeHash, code) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired code"})
		return
	}
	res := h.db.WithContext(ctx).Model(&models.LoginCode{}).
		Where("id = ? AND used_at IS NULL", row.ID).
		Update("used_at", now)
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "consume code failed"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired code"})
		return
	}

	created := false
	var user models.User
	errFind := h.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	switch {
	case errors.Is(errFind, gorm.ErrRecordNotFound):
		opened, errOpen := h.recorder.OpenAccount(ctx, email, body.Name)
		if errOpen != nil {
			common.WriteError(c, errOpen)
			return
		}
		user = *opened
		created = true
	case errFind != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	default:
		if user.Disabled {
			c.JSON(http.StatusForbidden, gin.H{"error": "user disabled"})
			return
		}
		if errUpdate := h.db.WithContext(ctx).Model(&models.User{}).
			Where("id = ?", user.ID).
			Update("last_login_at", now).Error; errUpdate != nil {
			log.WithError(errUpdate).WithField("user_id", user.ID).Warn("update last login failed")
		}
	}

	h.respondWithUserToken(c, user, created)
}

// Logout clears the session cookie.
func (h *AuthHandler) Logout(c *gin.Context) {
	common.ClearSessionCookie(c, h.cookieOptions())
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// respondWithUserToken sets the session cookie and returns the token with the user.
func (h *AuthHandler) respondWithUserToken(c *gin.Context, user models.User, created bool) {
	token, errToken := security.GenerateToken(h.jwtCfg.Secret, user.ID, user.Email, h.jwtCfg.Expiry)
	if errToken != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate token"})
		return
	}
	common.SetSessionCookie(c, h.cookieOptions(), token, h.jwtCfg.Expiry)
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{
		"token":   token,
		"created": created,
		"user": gin.H{
			"id":      user.ID,
			"email":   user.Email,
			"name":    user.Name,
			"credits": user.Credits,
			"tier":    user.Tier,
		},
	})
}

func (h *AuthHandler) cookieOptions() common.CookieOptions {
	return common.CookieOptions{Name: h.jwtCfg.UserCookieName, Domain: h.jwtCfg.CookieDomain, Secure: h.jwtCfg.SecureCookies}
}
