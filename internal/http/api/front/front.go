package front

import (
	"net/http"

	"github.com/contentforge/studio/internal/config"
	"github.com/contentforge/studio/internal/credits"
	"github.com/contentforge/studio/internal/http/api/common"
	"github.com/contentforge/studio/internal/http/api/front/handlers"
	"github.com/contentforge/studio/internal/mail"
	"github.com/contentforge/studio/internal/models"
	"github.com/contentforge/studio/internal/reset"
	"github.com/contentforge/studio/internal/security"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Deps carries the services the front routes depend on.
type Deps struct {
	DB       *gorm.DB
	JWT      config.JWTConfig
	Mail     config.MailConfig
	Credits  config.CreditsConfig
	Store    credits.Store
	Recorder *credits.Recorder
	Accessor *credits.BalanceAccessor
	Engine   *reset.Engine
	Mailer   mail.Sender
}

// RegisterFrontRoutes registers public and authenticated front-end routes.
func RegisterFrontRoutes(r *gin.Engine, deps Deps) {
	if r == nil || deps.DB == nil {
		return
	}

	front := r.Group("/v0/front")

	authHandler := handlers.NewAuthHandler(deps.DB, deps.JWT, deps.Mail, deps.Recorder, deps.Mailer)
	front.POST("/auth/code", authHandler.RequestCode)
	front.POST("/auth/verify", authHandler.VerifyCode)
	front.POST("/auth/logout", authHandler.Logout)
	configHandler := handlers.NewConfigHandler(deps.Credits)
	front.GET("/config", configHandler.Get)

	catalogHandler := handlers.NewCatalogHandler(deps.DB)
	front.GET("/catalog", catalogHandler.List)
	front.GET("/catalog/:slug", catalogHandler.Get)

	authed := front.Group("")
	authed.Use(userAuthMiddleware(deps.DB, deps.JWT))

	profileHandler := handlers.NewProfileHandler(deps.Store, deps.Engine)
	authed.GET("/profile", profileHandler.Get)

	creditsHandler := handlers.NewCreditsHandler(deps.Accessor, deps.Recorder, deps.Engine)
	authed.GET("/credits", creditsHandler.Balance)
	authed.GET("/credits/transactions", creditsHandler.Transactions)
	authed.POST("/credits/consume", creditsHandler.Consume)
}

// userAuthMiddleware validates user JWTs and loads the user into context.
func userAuthMiddleware(db *gorm.DB, jwtCfg config.JWTConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := common.SessionToken(c, jwtCfg.UserCookieName)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing session"})
			return
		}

		claims, errJWT := security.ParseToken(jwtCfg.Secret, token)
		if errJWT != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		var user models.User
		if errFind := db.WithContext(c.Request.Context()).First(&user, claims.UserID).Error; errFind != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
			return
		}
		if user.Disabled {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "user disabled"})
			return
		}

		principal := credits.UserPrincipal(user.ID)
		principal.Username = user.Email
		principal.IP = c.ClientIP()
		principal.UserAgent = c.Request.UserAgent()
		common.SetPrincipal(c, principal)
		c.Set("userID", user.ID)
		c.Next()
	}
}
