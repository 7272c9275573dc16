package handlers

import (
	"bytes"
	"encoding/base64"
	"errors"
	"image/png"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/contentforge/studio/internal/models"
	"github.com/contentforge/studio/internal/security"
	"github.com/gin-gonic/gin"
	"github.com/pquerna/otp"
	"gorm.io/gorm"
)

// pendingSecretTTL bounds how long an unconfirmed TOTP secret stays usable.
const pendingSecretTTL = 10 * time.Minute

// MFAHandler manages TOTP enrollment for admins.
type MFAHandler struct {
	db      *gorm.DB
	pending *secretStore
}

// NewMFAHandler constructs an MFAHandler.
func NewMFAHandler(db *gorm.DB) *MFAHandler {
	return &MFAHandler{db: db, pending: newSecretStore()}
}

type secretEntry struct {
	secret  string
	expires time.Time
}

// secretStore keeps temporary TOTP secrets in memory.
type secretStore struct {
	mu    sync.Mutex
	items map[uint64]secretEntry
}

func newSecretStore() *secretStore {
	return &secretStore{items: make(map[uint64]secretEntry)}
}

func (s *secretStore) Set(adminID uint64, secret string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[adminID] = secretEntry{secret: secret, expires: time.Now().Add(pendingSecretTTL)}
}

// Get returns a secret if present and not expired.
func (s *secretStore) Get(adminID uint64) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.items[adminID]
	if !ok {
		return "", false
	}
	if time.Now().After(entry.expires) {
		delete(s.items, adminID)
		return "", false
	}
	return entry.secret, true
}

func (s *secretStore) Delete(adminID uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, adminID)
}

// Status returns MFA enablement status for the admin.
func (h *MFAHandler) Status(c *gin.Context) {
	admin, ok := h.loadAdmin(c, "id", "totp_secret")
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"totp_enabled": admin.TOTPEnabled()})
}

// PrepareTOTP generates a new TOTP secret and QR code.
func (h *MFAHandler) PrepareTOTP(c *gin.Context) {
	admin, ok := h.loadAdmin(c, "id", "username")
	if !ok {
		return
	}

	secret, url, errGenerate := security.GenerateTOTPSecret(admin.Username)
	if errGenerate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "generate totp secret failed"})
		return
	}
	h.pending.Set(admin.ID, secret)

	qrImage := ""
	if key, errKey := otp.NewKeyFromURL(url); errKey == nil {
		if img, errImage := key.Image(220, 220); errImage == nil {
			var buf bytes.Buffer
			if errEncode := png.Encode(&buf, img); errEncode == nil {
				qrImage = "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
			}
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"secret":      secret,
		"otpauth_url": url,
		"qr_image":    qrImage,
	})
}

// totpConfirmRequest defines the request body for confirming TOTP.
type totpConfirmRequest struct {
	Code string `json:"code"`
}

// ConfirmTOTP validates the pending secret and enables TOTP for the admin.
func (h *MFAHandler) ConfirmTOTP(c *gin.Context) {
	adminID, ok := readAdminIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "admin not found"})
		return
	}
	var body totpConfirmRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	code := strings.TrimSpace(body.Code)
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing code"})
		return
	}

	secret, ok := h.pending.Get(adminID)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "totp setup expired"})
		return
	}
	if !security.ValidateTOTP(secret, code, time.Now()) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid code"})
		return
	}

	if errUpdate := h.db.WithContext(c.Request.Context()).Model(&models.Admin{}).
		Where("id = ?", adminID).
		Updates(map[string]any{"totp_secret": secret, "updated_at": time.Now().UTC()}).Error; errUpdate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}

	h.pending.Delete(adminID)
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// DisableTOTP removes the admin's TOTP secret after checking a current code.
func (h *MFAHandler) DisableTOTP(c *gin.Context) {
	var body totpConfirmRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	admin, ok := h.loadAdmin(c, "id", "totp_secret")
	if !ok {
		return
	}
	if !admin.TOTPEnabled() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "totp is not enabled"})
		return
	}
	if !security.ValidateTOTP(admin.TOTPSecret, body.Code, time.Now()) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid code"})
		return
	}

	if errUpdate := h.db.WithContext(c.Request.Context()).Model(&models.Admin{}).
		Where("id = ?", admin.ID).
		Updates(map[string]any{"totp_secret": "", "updated_at": time.Now().UTC()}).Error; errUpdate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}

	h.pending.Delete(admin.ID)
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// loadAdmin reads the signed-in admin, writing the error response on failure.
func (h *MFAHandler) loadAdmin(c *gin.Context, columns ...string) (models.Admin, bool) {
	var admin models.Admin
	adminID, ok := readAdminIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "admin not found"})
		return admin, false
	}
	if errFind := h.db.WithContext(c.Request.Context()).Select(columns).First(&admin, adminID).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return admin, false
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return admin, false
	}
	return admin, true
}
