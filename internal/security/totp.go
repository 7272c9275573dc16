package security

import (
	"strings"
	"time"

	"github.com/pquerna/otp/totp"
)

// totpIssuer is shown in authenticator apps.
const totpIssuer = "Studio Admin"

// GenerateTOTPSecret creates a TOTP key for an admin and returns its secret and otpauth URL.
func GenerateTOTPSecret(username string) (secret string, url string, err error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      totpIssuer,
		AccountName: username,
	})
	if err != nil {
		return "", "", err
	}
	return key.Secret(), key.URL(), nil
}

// ValidateTOTP checks a TOTP passcode against a secret at the given time.
func ValidateTOTP(secret, passcode string, at time.Time) bool {
	secret = strings.TrimSpace(secret)
	passcode = strings.TrimSpace(passcode)
	if secret == "" || passcode == "" {
		return false
	}
	ok, err := totp.ValidateCustom(passcode, secret, at.UTC(), totp.ValidateOpts{
		Period: 30,
		Skew:   1,
		Digits: 6,
	})
	return err == nil && ok
}
