package identity

import (
	"errors"

	goerrors "github.com/goliatone/go-errors"
	"golang.org/x/crypto/bcrypt"
)

// ErrHashMismatch is returned when a cleartext password does not match the
// stored hash.
var ErrHashMismatch = goerrors.New("the credentials provided are invalid", goerrors.CategoryAuth).
	WithTextCode("identity_hash_mismatch")

// DefaultHashCost is the bcrypt cost used by HashPassword.
const DefaultHashCost = 14

// HashPassword generates a password hash. The store itself never hashes;
// this helper exists for callers that own the credential flow.
func HashPassword(password string) (string, error) {
	return HashPasswordCost(password, DefaultHashCost)
}

// HashPasswordCost generates a password hash with an explicit bcrypt cost,
// for callers trading verification latency against brute-force resistance.
func HashPasswordCost(password string, cost int) (string, error) {
	if password == "" {
		return "", ErrInvalidArgument.Clone().WithMetadata(map[string]any{
			"argument": "password",
		})
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return "", ErrInvalidArgument.Clone().WithMetadata(map[string]any{
			"argument": "cost",
			"value":    cost,
		})
	}

	h, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	return string(h), err
}

// ComparePasswordAndHash validates the given cleartext password against the
// hashed password.
func ComparePasswordAndHash(password, hash string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrHashMismatch
		}
		return err
	}
	return nil
}
