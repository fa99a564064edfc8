package cryptox

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// Bcrypt cost bounds. DefaultCost is deliberately above the library default;
// credential and PIN secrets share the same hashing path.
const (
	DefaultCost = 12
	MinCost     = bcrypt.MinCost
	MaxCost     = bcrypt.MaxCost
)

// ErrSecretMismatch reports that a plaintext secret does not match its hash.
var ErrSecretMismatch = errors.New("cryptox: secret does not match")

// HashSecret hashes a plaintext secret with bcrypt at the given cost.
// bcrypt embeds its salt and cost in the output, so the hash is
// self-describing and old hashes remain verifiable after a cost bump.
func HashSecret(secret string, cost int) (string, error) {
	if cost < MinCost || cost > MaxCost {
		return "", fmt.Errorf("cryptox: bcrypt cost %d out of range [%d, %d]", cost, MinCost, MaxCost)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(secret), cost)
	if err != nil {
		return "", fmt.Errorf("cryptox: failed to hash secret: %w", err)
	}
	return string(hash), nil
}

// VerifySecret compares a plaintext secret against a bcrypt hash.
// Returns ErrSecretMismatch when they don't match; any other error means the
// stored hash is malformed.
func VerifySecret(secret, hash string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret))
	if err == nil {
		return nil
	}
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrSecretMismatch
	}
	return fmt.Errorf("cryptox: failed to verify secret: %w", err)
}
