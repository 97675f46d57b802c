package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// DefaultCost is the bcrypt work factor used when none is configured.
const DefaultCost = 12

// Hasher produces and checks salted bcrypt digests.
type Hasher struct {
	cost int
}

// NewHasher constructs a Hasher with the given bcrypt cost.
func NewHasher(cost int) *Hasher {
	if cost == 0 {
		cost = DefaultCost
	}
	return &Hasher{cost: cost}
}

// Hash returns a salted digest of plaintext.
func (h *Hasher) Hash(plaintext string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", fmt.Errorf("auth: hash password: %w", err)
	}
	return string(digest), nil
}

// Verify reports whether plaintext matches digest. Malformed digests never
// match.
func (h *Hasher) Verify(plaintext, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plaintext)) == nil
}
