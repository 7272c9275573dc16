package handlers

import (
	"github.com/contentforge/studio/internal/credits"
	"github.com/contentforge/studio/internal/http/api/common"
	"github.com/gin-gonic/gin"
)

// readAdminIDFromContext returns the admin ID from request context.
func readAdminIDFromContext(c *gin.Context) (uint64, bool) {
	value, ok := c.Get("adminID")
	if !ok {
		return 0, false
	}
	id, ok := value.(uint64)
	return id, ok
}

// adminPrincipal returns the acting admin set by the auth middleware.
func adminPrincipal(c *gin.Context) credits.Principal {
	principal, _ := common.GetPrincipal(c)
	return principal
}

// warningText renders an outcome warning for the response body.
func warningText(err error) any {
	if err == nil {
		return nil
	}
	return err.Error()
}
