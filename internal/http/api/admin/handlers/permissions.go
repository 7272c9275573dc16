package handlers

import (
	"net/http"
	"sort"

	"github.com/contentforge/studio/internal/http/api/admin/permissions"
	"github.com/gin-gonic/gin"
)

// PermissionHandler serves the permission catalog used by the admin editor.
type PermissionHandler struct{}

// NewPermissionHandler constructs a PermissionHandler.
func NewPermissionHandler() *PermissionHandler {
	return &PermissionHandler{}
}

// List returns every gated route key plus the keys grouped by console module.
func (h *PermissionHandler) List(c *gin.Context) {
	defs := permissions.Definitions()
	items := make([]gin.H, 0, len(defs))
	byModule := make(map[string][]string)
	for _, def := range defs {
		items = append(items, gin.H{
			"key":    def.Key,
			"method": def.Method,
			"path":   def.Path,
			"label":  def.Label,
			"module": def.Module,
		})
		byModule[def.Module] = append(byModule[def.Module], def.Key)
	}

	names := make([]string, 0, len(byModule))
	for name := range byModule {
		names = append(names, name)
	}
	sort.Strings(names)
	modules := make([]gin.H, 0, len(names))
	for _, name := range names {
		modules = append(modules, gin.H{"module": name, "keys": byModule[name]})
	}
	c.JSON(http.StatusOK, gin.H{"permissions": items, "modules": modules})
}
