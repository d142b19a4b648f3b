package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/shandysiswandi/authgate/internal/pkg/goerror"
)

var (
	errInvalidOTP      = goerror.NewBusiness("Invalid or expired OTP.", goerror.CodeBadRequest)
	errTooManyAttempts = goerror.NewBusiness("Too many OTP attempts. Please try again later.", goerror.CodeTooManyRequest)
)

type VerifyOTPInput struct {
	Email string `validate:"required,email"`
	OTP   string `validate:"required,otpcode"`
}

// VerifyOTP consumes the code and then flags the user as verified. The code is
// burned even when the second step fails.
func (s *Usecase) VerifyOTP(ctx context.Context, in VerifyOTPInput) error {
	ctx, span := s.startSpan(ctx, "VerifyOTP")
	defer span.End()

	in.Email = strings.TrimSpace(strings.ToLower(in.Email))
	in.OTP = strings.TrimSpace(in.OTP)

	if err := s.validator.Validate(in); err != nil {
		return goerror.NewInvalidInput(err)
	}

	if err := s.countAttempt(ctx, in.Email); err != nil {
		return err
	}

	codeHash, err := s.hashOTP(in.OTP)
	if err != nil {
		slog.ErrorContext(ctx, "failed to hash otp code", "error", err)
		return goerror.NewServer(err)
	}

	now := s.clock.Now()
	consumed, err := s.repoOTP.ConsumeOTP(ctx, in.Email, codeHash, now)
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo consume otp", "email", in.Email, "error", err)
		return goerror.NewServer(err)
	}
	if !consumed {
		slog.WarnContext(ctx, "otp rejected", "email", in.Email)
		return errInvalidOTP
	}

	err = s.repoDB.MarkUserVerified(ctx, in.Email)
	if errors.Is(err, goerror.ErrNotFound) {
		slog.WarnContext(ctx, "otp consumed for an email with no local user", "email", in.Email)
	} else if err != nil {
		slog.ErrorContext(ctx, "partial failure: otp consumed but user not verified", "email", in.Email, "error", err)
		return goerror.NewServer(err)
	}

	if s.cfg.OTPMaxAttempts > 0 {
		if err := s.attempts.Reset(ctx, in.Email); err != nil {
			slog.WarnContext(ctx, "failed to reset otp attempts", "email", in.Email, "error", err)
		}
	}

	s.background(ctx, "identity.publish_user_verified", func(ctx context.Context) error {
		return s.repoMessaging.PublishUserVerified(ctx, UserVerifiedEvent{Email: in.Email, VerifiedAt: now})
	})

	return nil
}

// countAttempt records one verify attempt. Attempts over the cap are rejected
// before the code is looked at, until the window that opened on the first
// attempt runs out.
func (s *Usecase) countAttempt(ctx context.Context, email string) error {
	if s.cfg.OTPMaxAttempts <= 0 {
		return nil
	}

	n, err := s.attempts.Hit(ctx, email, s.cfg.OTPWindow)
	if err != nil {
		slog.ErrorContext(ctx, "failed to count otp attempt", "email", email, "error", err)
		return goerror.NewServer(err)
	}

	if n > int64(s.cfg.OTPMaxAttempts) {
		slog.WarnContext(ctx, "otp attempts exhausted", "email", email, "attempts", n)
		return errTooManyAttempts
	}

	return nil
}
