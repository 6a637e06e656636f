package credential

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

const (
	minBcryptCost = bcrypt.MinCost
	maxBcryptCost = bcrypt.MaxCost
)

// Hasher defines a public type used by goMFA APIs.
//
// Hasher instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Hasher struct {
	cost int
}

// NewHasher describes the new hasher operation and its observable behavior.
//
// NewHasher may return an error when input validation, dependency calls, or security checks fail.
// NewHasher does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NewHasher(cost int) (*Hasher, error) {
	if cost < minBcryptCost || cost > maxBcryptCost {
		return nil, errors.New("bcrypt cost out of range")
	}
	return &Hasher{cost: cost}, nil
}

// Hash produces a salted bcrypt hash of the code. Equal inputs yield distinct
// hashes, so stored hashes cannot be joined by value.
func (h *Hasher) Hash(code string) ([]byte, error) {
	if code == "" {
		return nil, errors.New("empty code")
	}
	return bcrypt.GenerateFromPassword([]byte(code), h.cost)
}

// Matches reports whether the code produced the stored hash. A malformed
// stored hash is a mismatch, never an error: bcrypt failures here only ever
// describe the hash, not the infrastructure.
func (h *Hasher) Matches(code string, hash []byte) bool {
	return bcrypt.CompareHashAndPassword(hash, []byte(code)) == nil
}

// NeedsRehash reports whether the stored hash was produced with a weaker cost
// than currently configured, so the caller can re-hash on next issuance.
func (h *Hasher) NeedsRehash(hash []byte) (bool, error) {
	cost, err := bcrypt.Cost(hash)
	if err != nil {
		return false, err
	}
	return cost < h.cost, nil
}
