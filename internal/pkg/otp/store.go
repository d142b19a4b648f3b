package otp

import (
	"context"
	"time"
)

// Store persists issued codes keyed by their owner (an email address).
//
// Callers pass the code in whatever form they want at rest (typically a keyed
// hash). Stores compare it byte for byte.
type Store interface {
	// Issue records code for key, replacing any active code for the same key.
	Issue(ctx context.Context, key, code string, expiresAt time.Time) error
	// Consume marks the code used when it matches the active code for key and
	// has not expired at the given instant. It reports whether it did.
	Consume(ctx context.Context, key, code string, at time.Time) (bool, error)
}
