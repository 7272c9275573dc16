package common

import (
	"net/http"
	"strings"
	"time"

	"github.com/contentforge/studio/internal/credits"
	"github.com/gin-gonic/gin"
)

// Context keys.
const (
	principalKey = "principal"
	requestIDKey = "requestID"
)

// SetPrincipal stores the caller identity on the request.
func SetPrincipal(c *gin.Context, principal credits.Principal) {
	c.Set(principalKey, principal)
}

// GetPrincipal returns the caller identity stored by the auth middleware.
func GetPrincipal(c *gin.Context) (credits.Principal, bool) {
	value, ok := c.Get(principalKey)
	if !ok {
		return credits.Principal{}, false
	}
	principal, ok := value.(credits.Principal)
	return principal, ok
}

// SetRequestID stores the request id.
func SetRequestID(c *gin.Context, id string) {
	c.Set(requestIDKey, id)
}

// RequestID returns the request id or an empty string.
func RequestID(c *gin.Context) string {
	if c == nil {
		return ""
	}
	return c.GetString(requestIDKey)
}

// SessionToken reads the session token from cookieName or an Authorization bearer header.
func SessionToken(c *gin.Context, cookieName string) string {
	if cookieName != "" {
		if value, errCookie := c.Cookie(cookieName); errCookie == nil && strings.TrimSpace(value) != "" {
			return strings.TrimSpace(value)
		}
	}
	authHeader := c.GetHeader("Authorization")
	token := strings.TrimPrefix(authHeader, "Bearer ")
	if token == authHeader {
		return ""
	}
	return strings.TrimSpace(token)
}

// CookieOptions controls session cookies.
type CookieOptions struct {
	Name   string
	Domain string
	Secure bool
}

// SetSessionCookie writes an http-only session cookie.
func SetSessionCookie(c *gin.Context, opts CookieOptions, token string, ttl time.Duration) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(opts.Name, token, int(ttl.Seconds()), "/", opts.Domain, opts.Secure, true)
}

// ClearSessionCookie expires the session cookie.
func ClearSessionCookie(c *gin.Context, opts CookieOptions) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(opts.Name, "", -1, "/", opts.Domain, opts.Secure, true)
}
