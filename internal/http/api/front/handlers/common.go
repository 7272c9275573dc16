package handlers

import (
	"github.com/contentforge/studio/internal/credits"
	"github.com/contentforge/studio/internal/http/api/common"
	"github.com/gin-gonic/gin"
)

// getUserID extracts the signed-in user ID from gin context.
func getUserID(c *gin.Context) uint64 {
	principal, ok := common.GetPrincipal(c)
	if !ok || principal.Kind != credits.PrincipalUser {
		return 0
	}
	return principal.ID
}

// getPrincipal returns the request principal or an unauthenticated zero value.
func getPrincipal(c *gin.Context) credits.Principal {
	principal, _ := common.GetPrincipal(c)
	return principal
}
