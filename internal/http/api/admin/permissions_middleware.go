package admin

import (
	"net/http"

	"github.com/contentforge/studio/internal/http/api/admin/permissions"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// adminGrant is the permission set adminAuthMiddleware attaches to the request.
type adminGrant struct {
	adminID    uint64
	keys       []string
	superAdmin bool
}

// allows reports whether the grant covers the route key.
func (g adminGrant) allows(key string) bool {
	return g.superAdmin || permissions.HasPermission(g.keys, key)
}

// adminPermissionMiddleware rejects requests whose route the admin holds no permission for.
// Routes missing from the definition table are denied to everyone except super admins.
func adminPermissionMiddleware() gin.HandlerFunc {
	known := permissions.DefinitionMap()

	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		grant, ok := readAdminGrant(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "admin not found"})
			return
		}

		key := permissions.Key(c.Request.Method, c.FullPath())
		if _, defined := known[key]; !defined && !grant.superAdmin {
			denyPermission(c, grant, key)
			return
		}
		if !grant.allows(key) {
			denyPermission(c, grant, key)
			return
		}
		c.Next()
	}
}

func denyPermission(c *gin.Context, grant adminGrant, key string) {
	log.WithFields(log.Fields{
		"admin_id":   grant.adminID,
		"permission": key,
	}).Warn("admin permission denied")
	c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "permission denied", "permission": key})
}

// readAdminGrant collects the values adminAuthMiddleware stored on the context.
func readAdminGrant(c *gin.Context) (adminGrant, bool) {
	adminID, okID := readAdminIDFromContext(c)
	if !okID {
		return adminGrant{}, false
	}
	keys, okKeys := c.Get("adminPermissions")
	super, okSuper := c.Get("adminIsSuperAdmin")
	if !okKeys || !okSuper {
		return adminGrant{}, false
	}
	keyList, okList := keys.([]string)
	superFlag, okFlag := super.(bool)
	if !okList || !okFlag {
		return adminGrant{}, false
	}
	return adminGrant{adminID: adminID, keys: keyList, superAdmin: superFlag}, true
}

func readAdminIDFromContext(c *gin.Context) (uint64, bool) {
	value, ok := c.Get("adminID")
	if !ok {
		return 0, false
	}
	id, ok := value.(uint64)
	return id, ok && id != 0
}
