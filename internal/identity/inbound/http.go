package inbound

import (
	"context"

	"github.com/shandysiswandi/authgate/internal/identity/usecase"
	"github.com/shandysiswandi/authgate/internal/pkg/router"
)

type uc interface {
	Login(ctx context.Context, in usecase.LoginInput) (*usecase.LoginOutput, error)
	Register(ctx context.Context, in usecase.RegisterInput) error
	UserList(ctx context.Context, in usecase.UserListInput) (*usecase.UserListOutput, error)
	SendOTP(ctx context.Context, in usecase.SendOTPInput) error
	VerifyOTP(ctx context.Context, in usecase.VerifyOTPInput) error
}

// RegisterHTTPEndpoint mounts the identity routes. otpLimit, when set, wraps
// the OTP routes only.
func RegisterHTTPEndpoint(r *router.Router, uc uc, otpLimit router.Middleware) {
	end := &HTTPEndpoint{uc: uc}

	// open (allowlisted)
	r.POST("/login", end.Login)
	r.POST("/register", end.Register)

	// gated
	r.POST("/users", end.UserList)
	r.POST("/send-otp", end.SendOTP, otpLimit)
	r.POST("/verify-otp", end.VerifyOTP, otpLimit)
}
