package settings

// DB config keys and defaults for settings.
const (
	// SiteNameKey is the DB config key for the product name shown to users.
	SiteNameKey = "SITE_NAME"
	// DefaultSiteName is the fallback product name.
	DefaultSiteName = "Studio"
	// ResetSweepIntervalSecondsKey controls how often the reset sweeper runs.
	ResetSweepIntervalSecondsKey = "RESET_SWEEP_INTERVAL_SECONDS"
	// SignupBonusCreditsKey overrides the signup bonus from the config file.
	SignupBonusCreditsKey = "SIGNUP_BONUS_CREDITS"
	// LoginCodeRetentionHoursKey controls how long spent or expired login codes are kept. 0 keeps them forever.
	LoginCodeRetentionHoursKey = "LOGIN_CODE_RETENTION_HOURS"
	// DefaultLoginCodeRetentionHours applies while LOGIN_CODE_RETENTION_HOURS is unset.
	DefaultLoginCodeRetentionHours = 24
	// MinResetSweepIntervalSeconds is the lower bound accepted for the sweep interval.
	MinResetSweepIntervalSeconds = 10
)

// Keys lists the settings that admins may change at runtime.
var Keys = []string{SiteNameKey, ResetSweepIntervalSecondsKey, SignupBonusCreditsKey, LoginCodeRetentionHoursKey}

// KnownKey reports whether key is an editable setting.
func KnownKey(key string) bool {
	for _, k := range Keys {
		if k == key {
			return true
		}
	}
	return false
}
