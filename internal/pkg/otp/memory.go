package otp

import (
	"context"
	"crypto/subtle"
	"sync"
	"time"
)

type entry struct {
	code      string
	expiresAt time.Time
}

// Memory is a process-local Store. It is suitable for a single instance and
// for tests; codes are lost on restart.
type Memory struct {
	mu      sync.Mutex
	entries map[string]entry
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{entries: make(map[string]entry)}
}

// Issue implements Store.
func (m *Memory) Issue(_ context.Context, key, code string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[key] = entry{code: code, expiresAt: expiresAt}
	return nil
}

// Consume implements Store.
func (m *Memory) Consume(_ context.Context, key, code string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok {
		return false, nil
	}

	if e.expiresAt.Before(at) {
		delete(m.entries, key)
		return false, nil
	}

	if subtle.ConstantTimeCompare([]byte(e.code), []byte(code)) != 1 {
		return false, nil
	}

	delete(m.entries, key)
	return true, nil
}

// Len returns the number of codes currently held, expired or not.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.entries)
}
