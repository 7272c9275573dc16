package security

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
)

func TestUserTokenRoundTrip(t *testing.T) {
	t.Parallel()

	token, errSign := GenerateToken("secret", 42, "maker@example.com", time.Hour)
	if errSign != nil {
		t.Fatalf("sign: %v", errSign)
	}
	claims, errParse := ParseToken("secret", token)
	if errParse != nil {
		t.Fatalf("parse: %v", errParse)
	}
	if claims.UserID != 42 || claims.Email != "maker@example.com" {
		t.Fatalf("unexpected claims %+v", claims)
	}
}

func TestAdminTokenRejectedAsUserToken(t *testing.T) {
	t.Parallel()

	token, errSign := GenerateAdminToken("secret", 1, "admin", time.Hour)
	if errSign != nil {
		t.Fatalf("sign: %v", errSign)
	}
	if _, errParse := ParseToken("secret", token); !errors.Is(errParse, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", errParse)
	}
	if _, errParse := ParseAdminToken("other", token); !errors.Is(errParse, ErrInvalidToken) {
		t.Fatalf("expected wrong secret to fail, got %v", errParse)
	}
}

func TestExpiredToken(t *testing.T) {
	t.Parallel()

	token, errSign := GenerateToken("secret", 7, "late@example.com", -time.Minute)
	if errSign != nil {
		t.Fatalf("sign: %v", errSign)
	}
	if _, errParse := ParseToken("secret", token); !errors.Is(errParse, ErrExpiredToken) {
		t.Fatalf("expected ErrExpiredToken, got %v", errParse)
	}
}

func TestLoginCode(t *testing.T) {
	t.Parallel()

	code, errGen := GenerateLoginCode()
	if errGen != nil {
		t.Fatalf("generate: %v", errGen)
	}
	if len(code) != 6 || strings.Trim(code, "0123456789") != "" {
		t.Fatalf("expected 6 digits, got %q", code)
	}
	hash, errHash := HashLoginCode(code)
	if errHash != nil {
		t.Fatalf("hash: %v", errHash)
	}
	if !CheckLoginCode(hash, code) {
		t.Fatalf("expected code to match its hash")
	}
	if CheckLoginCode(hash, "not-it") {
		t.Fatalf("expected wrong code to fail")
	}
}

func TestValidateTOTP(t *testing.T) {
	t.Parallel()

	secret, _, errGen := GenerateTOTPSecret("admin")
	if errGen != nil {
		t.Fatalf("generate secret: %v", errGen)
	}
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	passcode, errCode := totp.GenerateCode(secret, now)
	if errCode != nil {
		t.Fatalf("generate code: %v", errCode)
	}
	if !ValidateTOTP(secret, passcode, now) {
		t.Fatalf("expected passcode to validate")
	}
	if ValidateTOTP(secret, passcode, now.Add(10*time.Minute)) {
		t.Fatalf("expected stale passcode to fail")
	}
}
