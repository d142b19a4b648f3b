// Package strcase converts Go identifiers into the field names used in API
// error payloads.
package strcase

import (
	"strings"
	"unicode"
)

// ToLowerSnake converts an identifier such as "UserID" or "HTTPServer" into
// "user_id" or "http_server". An initialism stays one word; digits stick to
// the word before them.
func ToLowerSnake(s string) string {
	return strings.Join(words(s), "_")
}

// words splits s at case boundaries and returns the lowercased parts.
func words(s string) []string {
	runes := []rune(s)
	out := make([]string, 0, 4)
	start := 0

	for i := 1; i < len(runes); i++ {
		if boundary(runes, i) {
			out = append(out, strings.ToLower(string(runes[start:i])))
			start = i
		}
	}

	if start < len(runes) {
		out = append(out, strings.ToLower(string(runes[start:])))
	}

	return out
}

// boundary reports whether a new word starts at runes[i].
func boundary(runes []rune, i int) bool {
	cur, prev := runes[i], runes[i-1]
	if !unicode.IsUpper(cur) {
		return false
	}

	if unicode.IsLower(prev) || unicode.IsDigit(prev) {
		return true
	}

	// "HTTPServer": the S starts "Server" because a lowercase rune follows.
	return unicode.IsUpper(prev) && i+1 < len(runes) && unicode.IsLower(runes[i+1])
}
