// Package config exposes typed access to the application configuration.
package config

import (
	"io"
	"time"
)

// Config retrieves configuration values by dotted key (e.g. "database.pool.max_conns").
// Missing keys or values that cannot be converted yield the type's zero value.
type Config interface {
	io.Closer

	GetBool(key string) bool
	GetString(key string) string
	GetInt(key string) int
	GetInt64(key string) int64
	GetFloat64(key string) float64

	// GetSecond reads an integer number of seconds.
	GetSecond(key string) time.Duration
	// GetMinute reads an integer number of minutes.
	GetMinute(key string) time.Duration

	// GetBinary reads a base64 encoded value.
	GetBinary(key string) []byte

	// GetArray reads either a YAML list or a comma separated string. Items are
	// trimmed and blanks are dropped.
	GetArray(key string) []string

	// GetMap reads a "k1:v1,k2:v2" string.
	GetMap(key string) map[string]string
}
