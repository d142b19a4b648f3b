package jwt

import (
	"errors"
	"strings"
	"time"

	libJWT "github.com/golang-jwt/jwt/v5"
	"github.com/samber/lo"
)

var (
	// ErrNoResources is returned when the verifier is built without recognized resources.
	ErrNoResources = errors.New("jwt: at least one recognized resource is required")
	// ErrNoPrivilegedRoles is returned when the verifier is built without privileged roles.
	ErrNoPrivilegedRoles = errors.New("jwt: at least one privileged role is required")
)

type clocker interface {
	Now() time.Time
}

// VerifierConfig defines the inputs for building a Verifier.
type VerifierConfig struct {
	// Resources are the resource_access keys whose roles are read
	// (e.g. "realm-management", "account").
	Resources []string
	// PrivilegedRoles grant access when any of them is present
	// (e.g. "realm-admin", "manage-users").
	PrivilegedRoles []string
	// Clock provides the current time source.
	Clock clocker
}

// Verifier decodes bearer credentials and makes the coarse allow/deny decision.
//
// Any privileged role in any recognized resource grants access to every
// protected route. There is no per-route role mapping.
type Verifier struct {
	parser    *libJWT.Parser
	resources []string
	roles     []string
	clock     clocker
}

// NewVerifier builds a Verifier. Blank names are ignored.
func NewVerifier(cfg VerifierConfig) (*Verifier, error) {
	resources := normalize(cfg.Resources)
	if len(resources) == 0 {
		return nil, ErrNoResources
	}

	roles := normalize(cfg.PrivilegedRoles)
	if len(roles) == 0 {
		return nil, ErrNoPrivilegedRoles
	}

	return &Verifier{
		parser:    libJWT.NewParser(),
		resources: resources,
		roles:     roles,
		clock:     cfg.Clock,
	}, nil
}

// Verify inspects the token claims and returns the accepted credential or a *Rejection.
func (v *Verifier) Verify(token string) (Auth, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Auth{}, ErrMissingCredential
	}

	var claims Claims
	if _, _, err := v.parser.ParseUnverified(token, &claims); err != nil {
		return Auth{}, malformed(err)
	}

	if claims.ExpiresAt == nil {
		return Auth{}, malformed(errMissingExpiry)
	}

	if claims.ExpiresAt.Time.Before(v.clock.Now()) {
		return Auth{}, ErrExpiredCredential
	}

	if claims.ResourceAccess == nil {
		return Auth{}, ErrRolesNotFound
	}

	granted := v.grantedRoles(claims)

	if !lo.Some(granted, v.roles) {
		return Auth{}, ErrInsufficientRole
	}

	return Auth{Token: token, Claims: claims, Roles: granted}, nil
}

// grantedRoles unions the roles of every recognized resource present in the
// claims. Unrecognized resources contribute nothing.
func (v *Verifier) grantedRoles(claims Claims) []string {
	roles := lo.FlatMap(v.resources, func(name string, _ int) []string {
		return claims.ResourceAccess[name].Roles
	})

	return lo.Uniq(roles)
}

func normalize(values []string) []string {
	return lo.Uniq(lo.Compact(lo.Map(values, func(s string, _ int) string {
		return strings.TrimSpace(s)
	})))
}
