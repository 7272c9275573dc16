package admin

import (
	"net/http"

	"github.com/contentforge/studio/internal/adminops"
	"github.com/contentforge/studio/internal/config"
	"github.com/contentforge/studio/internal/credits"
	"github.com/contentforge/studio/internal/http/api/admin/handlers"
	"github.com/contentforge/studio/internal/http/api/admin/permissions"
	"github.com/contentforge/studio/internal/http/api/common"
	"github.com/contentforge/studio/internal/models"
	"github.com/contentforge/studio/internal/reset"
	"github.com/contentforge/studio/internal/security"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Deps carries the services the admin routes depend on.
type Deps struct {
	DB       *gorm.DB
	Redis    *redis.Client
	JWT      config.JWTConfig
	Store    credits.Store
	Accessor *credits.BalanceAccessor
	Engine   *reset.Engine
	Gateway  *adminops.Gateway
}

// RegisterAdminRoutes registers the admin console API and the health endpoint.
func RegisterAdminRoutes(r *gin.Engine, deps Deps) {
	if r == nil || deps.DB == nil {
		return
	}

	healthHandler := handlers.NewHealthHandler(deps.DB, deps.Redis)
	r.GET("/healthz", healthHandler.Healthz)

	adminGroup := r.Group("/v0/admin")

	authHandler := handlers.NewAuthHandler(deps.DB, deps.JWT)
	adminGroup.POST("/login", authHandler.Login)
	adminGroup.POST("/logout", authHandler.Logout)

	authed := adminGroup.Group("")
	authed.Use(adminAuthMiddleware(deps.DB, deps.JWT))

	mfaHandler := handlers.NewMFAHandler(deps.DB)
	authed.GET("/mfa/status", mfaHandler.Status)
	authed.POST("/mfa/totp/prepare", mfaHandler.PrepareTOTP)
	authed.POST("/mfa/totp/confirm", mfaHandler.ConfirmTOTP)
	authed.POST("/mfa/totp/disable", mfaHandler.DisableTOTP)

	gated := authed.Group("")
	gated.Use(adminPermissionMiddleware())

	userHandler := handlers.NewUserHandler(deps.DB, deps.Store, deps.Accessor)
	gated.GET("/users", userHandler.List)
	gated.GET("/users/:id", userHandler.Get)
	gated.GET("/users/:id/credits", userHandler.Credits)

	ledgerHandler := handlers.NewLedgerHandler(deps.Gateway)
	gated.POST("/users/:id/credit-packages", ledgerHandler.Grant)
	gated.POST("/users/:id/revocations", ledgerHandler.Revoke)
	gated.POST("/users/:id/refunds", ledgerHandler.Refund)
	gated.POST("/users/:id/membership", ledgerHandler.Activate)
	gated.POST("/users/:id/membership/cancel", ledgerHandler.Cancel)

	resetHandler := handlers.NewResetHandler(deps.Engine)
	gated.POST("/resets/sweep", resetHandler.Sweep)

	logHandler := handlers.NewOperationLogHandler(deps.DB)
	gated.GET("/operation-logs", logHandler.List)

	adminHandler := handlers.NewAdminHandler(deps.DB)
	gated.GET("/admins", adminHandler.List)
	gated.POST("/admins", adminHandler.Create)
	gated.PUT("/admins/:id", adminHandler.Update)
	gated.POST("/admins/:id/disable", adminHandler.Disable)
	gated.POST("/admins/:id/enable", adminHandler.Enable)

	settingHandler := handlers.NewSettingHandler(deps.DB)
	gated.GET("/settings", settingHandler.List)
	gated.PUT("/settings/:key", settingHandler.Update)

	permissionHandler := handlers.NewPermissionHandler()
	gated.GET("/permissions", permissionHandler.List)
}

// adminAuthMiddleware validates admin JWTs and loads the admin into context.
func adminAuthMiddleware(db *gorm.DB, jwtCfg config.JWTConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := common.SessionToken(c, jwtCfg.AdminCookieName)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing session"})
			return
		}

		claims, errJWT := security.ParseAdminToken(jwtCfg.Secret, token)
		if errJWT != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		var admin models.Admin
		if errFind := db.WithContext(c.Request.Context()).
			Select("id", "username", "active", "permissions", "is_super_admin").
			First(&admin, claims.AdminID).Error; errFind != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "admin not found"})
			return
		}
		if !admin.Active {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin account is disabled"})
			return
		}

		common.SetPrincipal(c, credits.Principal{
			Kind:      credits.PrincipalAdmin,
			ID:        admin.ID,
			Username:  admin.Username,
			IP:        c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
		})
		c.Set("adminID", admin.ID)
		c.Set("adminPermissions", permissions.ParsePermissions(admin.Permissions))
		c.Set("adminIsSuperAdmin", admin.IsSuperAdmin)
		c.Next()
	}
}
