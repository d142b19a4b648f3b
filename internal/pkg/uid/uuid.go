package uid

import "github.com/google/uuid"

// UUID generates time-ordered UUIDs for correlation IDs.
type UUID struct {
	fallback func() string
}

// NewUUID returns a UUID generator.
func NewUUID() *UUID {
	return &UUID{fallback: uuid.NewString}
}

// Generate returns a UUIDv7 string. When the clock sequence cannot be read it
// returns a random UUIDv4 instead so a request never goes without an ID.
func (u *UUID) Generate() string {
	if id, err := uuid.NewV7(); err == nil {
		return id.String()
	}

	return u.fallback()
}
