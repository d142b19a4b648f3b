package entity

import "time"

// TokenSet is what the identity provider returns from a password grant.
type TokenSet struct {
	AccessToken      string
	TokenType        string
	ExpiresIn        int64
	RefreshToken     string
	RefreshExpiresIn int64
	Scope            string
	SessionState     string
}

// ProviderUser is a user account as the identity provider reports it.
type ProviderUser struct {
	ID            string
	Username      string
	Email         string
	FirstName     string
	LastName      string
	Enabled       bool
	EmailVerified bool
	CreatedAt     time.Time
}

// NewProviderUser is the payload for creating a provider account with a
// permanent password.
type NewProviderUser struct {
	Username string
	Email    string
	Password string
}

type ProviderUserFilter struct {
	Search string
	First  int
	Max    int
}
