package jwt

import (
	"context"
	"encoding/base64"
	"testing"
	"time"

	libJWT "github.com/golang-jwt/jwt/v5"
	"github.com/shandysiswandi/authgate/internal/pkg/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestVerifier(t *testing.T) *Verifier {
	t.Helper()

	v, err := NewVerifier(VerifierConfig{
		Resources:       []string{"realm-management", "account"},
		PrivilegedRoles: []string{"realm-admin", "manage-users"},
		Clock:           clock.NewFixed(testNow),
	})
	require.NoError(t, err)
	return v
}

// signToken builds a token the way the identity provider would. The verifier
// ignores the signature, so any key works.
func signToken(t *testing.T, exp time.Time, access map[string]RoleGrant) string {
	t.Helper()

	claims := Claims{
		RegisteredClaims: libJWT.RegisteredClaims{
			Issuer:    "http://keycloak/realms/loc-realm",
			Subject:   "6f1c1a6e-5d0c-4bb4-9e1f-1d1c2d3e4f50",
			Audience:  libJWT.ClaimStrings{"account"},
			ExpiresAt: libJWT.NewNumericDate(exp),
			IssuedAt:  libJWT.NewNumericDate(exp.Add(-5 * time.Minute)),
		},
		PreferredUsername: "alice",
		Email:             "alice@example.com",
		ResourceAccess:    access,
	}

	signed, err := libJWT.NewWithClaims(libJWT.SigningMethodHS256, claims).SignedString([]byte("any-key"))
	require.NoError(t, err)
	return signed
}

func TestNewVerifier(t *testing.T) {
	t.Run("RequiresResources", func(t *testing.T) {
		_, err := NewVerifier(VerifierConfig{Resources: []string{" ", ""}, PrivilegedRoles: []string{"realm-admin"}})
		assert.ErrorIs(t, err, ErrNoResources)
	})

	t.Run("RequiresRoles", func(t *testing.T) {
		_, err := NewVerifier(VerifierConfig{Resources: []string{"account"}})
		assert.ErrorIs(t, err, ErrNoPrivilegedRoles)
	})
}

func TestVerifier_Verify(t *testing.T) {
	v := newTestVerifier(t)
	future := testNow.Add(time.Hour)

	t.Run("Missing", func(t *testing.T) {
		_, err := v.Verify("   ")

		assert.ErrorIs(t, err, ErrMissingCredential)
		assert.Equal(t, "Access token is missing.", err.Error())
	})

	t.Run("Malformed", func(t *testing.T) {
		_, err := v.Verify("not-a-jwt")

		assert.ErrorIs(t, err, ErrMalformedCredential)
		assert.Equal(t, "Invalid access token.", err.Error())
	})

	t.Run("RoleGrantWithWrongShapeIsMalformed", func(t *testing.T) {
		header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"none","typ":"JWT"}`))
		payload := base64.RawURLEncoding.EncodeToString([]byte(`{"exp":4102444800,"resource_access":{"account":{"roles":"realm-admin"}}}`))

		_, err := v.Verify(header + "." + payload + ".sig")

		assert.ErrorIs(t, err, ErrMalformedCredential)
	})

	t.Run("MissingExpiryIsMalformed", func(t *testing.T) {
		token, err := libJWT.NewWithClaims(libJWT.SigningMethodHS256, Claims{
			ResourceAccess: map[string]RoleGrant{"account": {Roles: []string{"realm-admin"}}},
		}).SignedString([]byte("k"))
		require.NoError(t, err)

		_, err = v.Verify(token)

		assert.ErrorIs(t, err, ErrMalformedCredential)
	})

	t.Run("ExpiredWinsOverRoles", func(t *testing.T) {
		token := signToken(t, testNow.Add(-time.Second), map[string]RoleGrant{
			"realm-management": {Roles: []string{"realm-admin", "manage-users"}},
		})

		_, err := v.Verify(token)

		assert.ErrorIs(t, err, ErrExpiredCredential)
		assert.Equal(t, "Access token has expired.", err.Error())
	})

	t.Run("ExpiryEqualToNowIsAccepted", func(t *testing.T) {
		token := signToken(t, testNow, map[string]RoleGrant{
			"account": {Roles: []string{"manage-users"}},
		})

		_, err := v.Verify(token)

		assert.NoError(t, err)
	})

	t.Run("NoResourceAccessClaim", func(t *testing.T) {
		token := signToken(t, future, nil)

		_, err := v.Verify(token)

		assert.ErrorIs(t, err, ErrRolesNotFound)
		assert.ErrorIs(t, err, ErrInsufficientRole)
		assert.Equal(t, "User roles not found in token.", err.Error())
	})

	t.Run("OnlyUnrecognizedResourcesLackRoles", func(t *testing.T) {
		token := signToken(t, future, map[string]RoleGrant{
			"broker": {Roles: []string{"realm-admin"}},
		})

		_, err := v.Verify(token)

		assert.ErrorIs(t, err, ErrInsufficientRole)
		assert.Same(t, ErrInsufficientRole, err)
		assert.Equal(t, "User lacks required roles.", err.Error())
	})

	t.Run("EmptyResourceAccessLacksRoles", func(t *testing.T) {
		header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"HS256","typ":"JWT"}`))
		payload := base64.RawURLEncoding.EncodeToString([]byte(`{"exp":4102444800,"resource_access":{}}`))

		_, err := v.Verify(header + "." + payload + ".sig")

		assert.Equal(t, "User lacks required roles.", err.Error())
	})

	t.Run("NoPrivilegedRole", func(t *testing.T) {
		token := signToken(t, future, map[string]RoleGrant{
			"realm-management": {Roles: []string{"view-users"}},
			"account":          {Roles: []string{"manage-account", "view-profile"}},
		})

		_, err := v.Verify(token)

		assert.ErrorIs(t, err, ErrInsufficientRole)
		assert.Equal(t, "User lacks required roles.", err.Error())
	})

	t.Run("AcceptedUnionsRoles", func(t *testing.T) {
		token := signToken(t, future, map[string]RoleGrant{
			"realm-management": {Roles: []string{"view-users", "manage-users"}},
			"account":          {Roles: []string{"view-profile", "view-users"}},
			"broker":           {Roles: []string{"read-token"}},
		})

		auth, err := v.Verify(token)

		require.NoError(t, err)
		assert.Equal(t, token, auth.Token)
		assert.ElementsMatch(t, []string{"view-users", "manage-users", "view-profile"}, auth.Roles)
		assert.Equal(t, "alice", auth.Claims.PreferredUsername)
		assert.True(t, future.Equal(auth.ExpiresAt()))
	})

	t.Run("Idempotent", func(t *testing.T) {
		token := signToken(t, future, map[string]RoleGrant{"account": {Roles: []string{"realm-admin"}}})

		first, err1 := v.Verify(token)
		second, err2 := v.Verify(token)

		require.NoError(t, err1)
		require.NoError(t, err2)
		assert.Equal(t, first.Roles, second.Roles)
	})
}

func TestRejection_Is(t *testing.T) {
	err := malformed(assert.AnError)

	assert.ErrorIs(t, err, ErrMalformedCredential)
	assert.NotErrorIs(t, err, ErrExpiredCredential)
	assert.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, "malformed_credential", KindMalformedCredential.String())
}

func TestAuthContext(t *testing.T) {
	ctx := context.Background()
	assert.Nil(t, GetAuth(ctx))
	assert.Empty(t, GetToken(ctx))

	ctx = SetAuth(ctx, Auth{Token: "raw", Roles: []string{"realm-admin"}})

	require.NotNil(t, GetAuth(ctx))
	assert.Equal(t, "raw", GetToken(ctx))
	assert.Equal(t, []string{"realm-admin"}, GetAuth(ctx).Roles)
}
