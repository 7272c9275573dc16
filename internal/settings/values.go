package settings

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// IntValue decodes a DB config value as an integer. Numbers and numeric strings are accepted.
func IntValue(key string, fallback int64) int64 {
	raw, ok := DBConfigValue(key)
	if !ok || len(raw) == 0 {
		return fallback
	}
	v, errParse := parseInt(raw)
	if errParse != nil {
		return fallback
	}
	return v
}

// StringValue decodes a DB config value as a string.
func StringValue(key, fallback string) string {
	raw, ok := DBConfigValue(key)
	if !ok || len(raw) == 0 {
		return fallback
	}
	var s string
	if errUnmarshal := json.Unmarshal(raw, &s); errUnmarshal != nil {
		return fallback
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return fallback
	}
	return s
}

// ValidateValue checks a value before it is stored for key.
func ValidateValue(key string, raw json.RawMessage) error {
	switch key {
	case SiteNameKey:
		var s string
		if errUnmarshal := json.Unmarshal(raw, &s); errUnmarshal != nil || strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s must be a non-empty string", key)
		}
	case ResetSweepIntervalSecondsKey:
		v, errParse := parseInt(raw)
		if errParse != nil || v < MinResetSweepIntervalSeconds {
			return fmt.Errorf("%s must be an integer >= %d", key, MinResetSweepIntervalSeconds)
		}
	case SignupBonusCreditsKey, LoginCodeRetentionHoursKey:
		v, errParse := parseInt(raw)
		if errParse != nil || v < 0 {
			return fmt.Errorf("%s must be a non-negative integer", key)
		}
	default:
		return fmt.Errorf("unknown setting %s", key)
	}
	return nil
}

func parseInt(raw json.RawMessage) (int64, error) {
	var n json.Number
	if errUnmarshal := json.Unmarshal(raw, &n); errUnmarshal == nil {
		return n.Int64()
	}
	var s string
	if errUnmarshal := json.Unmarshal(raw, &s); errUnmarshal != nil {
		return 0, errUnmarshal
	}
	return strconv.ParseInt(strings.TrimSpace(s), 10, 64)
}
