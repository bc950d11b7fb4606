package random

import "github.com/google/uuid"

// Random generates the opaque identifiers handed out by the server.
// It can be mocked for testing.
type Random interface {
	// UUID returns a new random (version 4) UUID string
	UUID() string
}

// UUIDRandom implements Random using google/uuid, which reads crypto/rand
type UUIDRandom struct{}

// New creates a new UUIDRandom
func New() *UUIDRandom {
	return &UUIDRandom{}
}

// UUID returns a new random UUID string
func (r *UUIDRandom) UUID() string {
	return uuid.NewString()
}
