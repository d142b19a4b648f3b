package inbound

import "time"

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken      string `json:"access_token"`
	TokenType        string `json:"token_type"`
	ExpiresIn        int64  `json:"expires_in"`
	RefreshToken     string `json:"refresh_token"`
	RefreshExpiresIn int64  `json:"refresh_expires_in"`
	Scope            string `json:"scope,omitempty"`
	SessionState     string `json:"session_state,omitempty"`
}

func (LoginResponse) Message() string {
	return "Login successful."
}

type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RegisterResponse struct{}

func (RegisterResponse) Message() string {
	return "User registered successfully."
}

func (RegisterResponse) StatusCode() int {
	return 201
}

type UserResponse struct {
	ID            string     `json:"id"`
	Username      string     `json:"username"`
	Email         string     `json:"email"`
	FirstName     string     `json:"first_name,omitempty"`
	LastName      string     `json:"last_name,omitempty"`
	Enabled       bool       `json:"enabled"`
	EmailVerified bool       `json:"email_verified"`
	CreatedAt     *time.Time `json:"created_at,omitempty"`
}

type UsersResponse struct {
	Users []UserResponse `json:"users"`
	// meta
	first int
	max   int
}

func (r UsersResponse) Meta() map[string]any {
	return map[string]any{
		"first": r.first,
		"max":   r.max,
		"count": len(r.Users),
	}
}

type SendOTPRequest struct {
	Email string `json:"email"`
}

type SendOTPResponse struct{}

func (SendOTPResponse) Message() string {
	return "OTP sent successfully"
}

type VerifyOTPRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

type VerifyOTPResponse struct{}

func (VerifyOTPResponse) Message() string {
	return "OTP verified successfully."
}
