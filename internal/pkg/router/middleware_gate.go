package router

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/shandysiswandi/authgate/internal/pkg/jwt"
)

// Verifier decides whether a bearer credential may reach a protected route.
type Verifier interface {
	Verify(token string) (jwt.Auth, error)
}

// Allowlist holds path prefixes that bypass the gate. Matching is segment
// aware: "/login" matches "/login" and "/login/x" but not "/loginx".
type Allowlist struct {
	prefixes []string
}

// NewAllowlist normalizes entries (leading slash, no trailing slash) and
// drops blanks.
func NewAllowlist(entries ...string) Allowlist {
	prefixes := make([]string, 0, len(entries))
	for _, e := range entries {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		if !strings.HasPrefix(e, "/") {
			e = "/" + e
		}
		if e != "/" {
			e = strings.TrimRight(e, "/")
		}
		prefixes = append(prefixes, e)
	}

	return Allowlist{prefixes: prefixes}
}

// Match reports whether path bypasses the gate.
func (a Allowlist) Match(path string) bool {
	for _, p := range a.prefixes {
		if path == p {
			return true
		}
		if p != "/" && strings.HasPrefix(path, p+"/") {
			return true
		}
	}
	return false
}

func middlewareGate(verifier Verifier, allow Allowlist) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if verifier == nil || allow.Match(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			auth, err := verifier.Verify(bearerToken(r.Header.Get("Authorization")))
			if err != nil {
				rejectCredential(r.Context(), w, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(jwt.SetAuth(r.Context(), auth)))
		})
	}
}

// bearerToken extracts the credential from an Authorization value. A bearer
// scheme with no token counts as missing; any other scheme yields a value the
// verifier rejects as malformed.
func bearerToken(header string) string {
	header = strings.TrimSpace(header)
	if header == "" || strings.EqualFold(header, "Bearer") {
		return ""
	}

	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return header
	}

	return strings.TrimSpace(token)
}

func rejectCredential(ctx context.Context, w http.ResponseWriter, err error) {
	if setter, ok := w.(interface{ SetError(error) }); ok {
		setter.SetError(err)
	}

	msg := "Invalid access token."
	var rej *jwt.Rejection
	if errors.As(err, &rej) {
		msg = rej.Message
		slog.WarnContext(ctx, "credential rejected", "kind", rej.Kind.String())
	} else {
		slog.ErrorContext(ctx, "credential verification failed", "error", err)
	}

	writeJSON(w, errorResponse{Message: msg}, http.StatusUnauthorized)
}
