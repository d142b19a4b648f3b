package jwt

import (
	"context"
	"errors"
	"time"

	libJWT "github.com/golang-jwt/jwt/v5"
)

// Kind classifies why a credential was rejected.
type Kind int

const (
	// KindMissingCredential means no bearer token was presented.
	KindMissingCredential Kind = iota + 1
	// KindExpiredCredential means the exp claim lies in the past.
	KindExpiredCredential
	// KindMalformedCredential means the token could not be decoded.
	KindMalformedCredential
	// KindInsufficientRole means no privileged role was granted.
	KindInsufficientRole
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindMissingCredential:
		return "missing_credential"
	case KindExpiredCredential:
		return "expired_credential"
	case KindMalformedCredential:
		return "malformed_credential"
	case KindInsufficientRole:
		return "insufficient_role"
	default:
		return "unknown"
	}
}

// Rejection is the error returned by Verify. Message is safe to show to clients.
type Rejection struct {
	Kind    Kind
	Message string
	err     error
}

// Error implements the error interface.
func (r *Rejection) Error() string {
	return r.Message
}

// Unwrap returns the decoding error behind a malformed credential, if any.
func (r *Rejection) Unwrap() error {
	return r.err
}

// Is reports whether target is a Rejection of the same kind.
func (r *Rejection) Is(target error) bool {
	var t *Rejection
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == r.Kind
}

var (
	// ErrMissingCredential is returned when the bearer token is absent or empty.
	ErrMissingCredential = &Rejection{Kind: KindMissingCredential, Message: "Access token is missing."}
	// ErrExpiredCredential is returned when the token exp claim is in the past.
	ErrExpiredCredential = &Rejection{Kind: KindExpiredCredential, Message: "Access token has expired."}
	// ErrMalformedCredential is returned when the token cannot be decoded.
	ErrMalformedCredential = &Rejection{Kind: KindMalformedCredential, Message: "Invalid access token."}
	// ErrRolesNotFound is returned when the token has no resource_access claim.
	// It matches ErrInsufficientRole with errors.Is.
	ErrRolesNotFound = &Rejection{Kind: KindInsufficientRole, Message: "User roles not found in token."}
	// ErrInsufficientRole is returned when no privileged role is granted.
	ErrInsufficientRole = &Rejection{Kind: KindInsufficientRole, Message: "User lacks required roles."}

	errMissingExpiry = errors.New("token has no exp claim")
)

func malformed(err error) error {
	return &Rejection{Kind: KindMalformedCredential, Message: ErrMalformedCredential.Message, err: err}
}

// RoleGrant is the role set granted for a single resource.
type RoleGrant struct {
	Roles []string `json:"roles"`
}

// Claims is the subset of the identity provider access token we read.
type Claims struct {
	libJWT.RegisteredClaims
	// PreferredUsername is the login name of the subject.
	PreferredUsername string `json:"preferred_username,omitempty"`
	// Email is the subject email, when the email scope was granted.
	Email string `json:"email,omitempty"`
	// ResourceAccess maps a resource (client) name to its role grant.
	ResourceAccess map[string]RoleGrant `json:"resource_access,omitempty"`
}

// Auth is what the authorization gate attaches to an accepted request.
type Auth struct {
	// Token is the raw bearer string, kept for forwarding to upstream APIs.
	Token string
	// Claims holds the decoded claim set.
	Claims Claims
	// Roles is the union of roles found in the recognized resources.
	Roles []string
}

// ExpiresAt returns the expiry time or the zero time when absent.
func (a *Auth) ExpiresAt() time.Time {
	if a == nil || a.Claims.ExpiresAt == nil {
		return time.Time{}
	}
	return a.Claims.ExpiresAt.Time
}

type authContextKey struct{}

// GetAuth returns the credential stored in the context, if any.
func GetAuth(ctx context.Context) *Auth {
	auth, ok := ctx.Value(authContextKey{}).(Auth)
	if !ok {
		return nil
	}

	return &auth
}

// SetAuth stores an accepted credential in the context.
func SetAuth(ctx context.Context, auth Auth) context.Context {
	return context.WithValue(ctx, authContextKey{}, auth)
}

// GetToken returns the raw bearer token stored in the context, or "".
func GetToken(ctx context.Context) string {
	if auth := GetAuth(ctx); auth != nil {
		return auth.Token
	}
	return ""
}
