package handlers

import (
	"net/http"
	"sort"

	"github.com/contentforge/studio/internal/config"
	internalsettings "github.com/contentforge/studio/internal/settings"
	"github.com/gin-gonic/gin"
)

// publicTier describes the recurring grants of a paid tier.
type publicTier struct {
	Name           string `json:"name"`
	MonthlyCredits int64  `json:"monthly_credits"`
	YearlyStipend  int64  `json:"yearly_stipend"`
}

// publicConfigResponse is the response payload for public config.
type publicConfigResponse struct {
	SiteName    string       `json:"site_name"`
	SignupBonus int64        `json:"signup_bonus"`
	Tiers       []publicTier `json:"tiers"`
}

// ConfigHandler serves public configuration for the front UI.
type ConfigHandler struct {
	credits config.CreditsConfig
}

// NewConfigHandler constructs a ConfigHandler.
func NewConfigHandler(creditsCfg config.CreditsConfig) *ConfigHandler {
	return &ConfigHandler{credits: creditsCfg}
}

// Get returns the site name, signup bonus and paid tier grants.
func (h *ConfigHandler) Get(c *gin.Context) {
	tiers := make([]publicTier, 0, len(h.credits.Tiers))
	for name, tier := range h.credits.Tiers {
		tiers = append(tiers, publicTier{Name: name, MonthlyCredits: tier.MonthlyCredits, YearlyStipend: tier.YearlyStipend})
	}
	sort.Slice(tiers, func(i, j int) bool { return tiers[i].Name < tiers[j].Name })

	c.JSON(http.StatusOK, publicConfigResponse{
		SiteName:    internalsettings.StringValue(internalsettings.SiteNameKey, internalsettings.DefaultSiteName),
		SignupBonus: internalsettings.IntValue(internalsettings.SignupBonusCreditsKey, h.credits.SignupBonus),
		Tiers:       tiers,
	})
}
