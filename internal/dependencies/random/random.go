package random

import "github.com/google/uuid"

// Random provides identifier generation that can be mocked for testing
type Random interface {
	// UUID returns a new random (v4) UUID in canonical string form
	UUID() string
}

// CryptoRandom implements Random on top of crypto/rand backed UUIDs
type CryptoRandom struct{}

// New creates a new CryptoRandom
func New() *CryptoRandom {
	return &CryptoRandom{}
}

// UUID returns a new random UUID
func (r *CryptoRandom) UUID() string {
	return uuid.NewString()
}
