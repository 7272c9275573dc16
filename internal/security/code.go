package security

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"golang.org/x/crypto/bcrypt"
)

// loginCodeDigits is the length of emailed sign-in codes.
const loginCodeDigits = 6

// loginCodeCost is lower than the password cost because codes expire within minutes.
const loginCodeCost = 10

// GenerateLoginCode returns a random numeric sign-in code.
func GenerateLoginCode() (string, error) {
	limit := big.NewInt(1)
	for i := 0; i < loginCodeDigits; i++ {
		limit.Mul(limit, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return "", fmt.Errorf("generate login code: %w", err)
	}
	return fmt.Sprintf("%0*d", loginCodeDigits, n.Int64()), nil
}

// HashLoginCode hashes a sign-in code for storage.
func HashLoginCode(code string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(code), loginCodeCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckLoginCode compares a stored hash with a submitted code.
func CheckLoginCode(hash, code string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(code)) == nil
}
