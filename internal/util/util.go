package util

import (
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// WritablePath returns the cleaned WRITABLE_PATH environment variable when it is set.
func WritablePath() string {
	for _, key := range []string{"WRITABLE_PATH", "writable_path"} {
		if value, ok := os.LookupEnv(key); ok {
			trimmed := strings.TrimSpace(value)
			if trimmed != "" {
				return filepath.Clean(trimmed)
			}
		}
	}
	return ""
}

// HideSecret obscures a token for logs, keeping only a few edge characters.
func HideSecret(secret string) string {
	switch {
	case len(secret) > 8:
		return secret[:4] + "..." + secret[len(secret)-4:]
	case len(secret) > 4:
		return secret[:2] + "..." + secret[len(secret)-2:]
	case len(secret) > 2:
		return secret[:1] + "..." + secret[len(secret)-1:]
	default:
		return secret
	}
}

// MaskEmail keeps the first character of the local part and the domain.
func MaskEmail(email string) string {
	email = strings.TrimSpace(email)
	at := strings.LastIndex(email, "@")
	if at <= 0 {
		return HideSecret(email)
	}
	return email[:1] + "***" + email[at:]
}

// MaskSensitiveQuery masks tokens, codes and emails within a raw query string.
func MaskSensitiveQuery(raw string) string {
	if raw == "" {
		return ""
	}
	parts := strings.Split(raw, "&")
	changed := false
	for i, part := range parts {
		if part == "" {
			continue
		}
		keyPart := part
		valuePart := ""
		if idx := strings.Index(part, "="); idx >= 0 {
			keyPart = part[:idx]
			valuePart = part[idx+1:]
		}
		decodedKey, err := url.QueryUnescape(keyPart)
		if err != nil {
			decodedKey = keyPart
		}
		kind := sensitiveQueryParam(decodedKey)
		if kind == "" {
			continue
		}
		decodedValue, err := url.QueryUnescape(valuePart)
		if err != nil {
			decodedValue = valuePart
		}
		decodedValue = strings.TrimSpace(decodedValue)
		masked := HideSecret(decodedValue)
		if kind == "email" {
			masked = MaskEmail(decodedValue)
		}
		parts[i] = keyPart + "=" + url.QueryEscape(masked)
		changed = true
	}
	if !changed {
		return raw
	}
	return strings.Join(parts, "&")
}

func sensitiveQueryParam(key string) string {
	key = strings.ToLower(strings.TrimSpace(key))
	key = strings.TrimSuffix(key, "[]")
	switch {
	case key == "":
		return ""
	case key == "email":
		return "email"
	case key == "code", strings.Contains(key, "token"), strings.Contains(key, "secret"), strings.Contains(key, "password"):
		return "secret"
	default:
		return ""
	}
}
