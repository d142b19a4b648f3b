package usecase

import (
	"context"
	"log/slog"
	"strings"

	"github.com/shandysiswandi/authgate/internal/identity/entity"
	"github.com/shandysiswandi/authgate/internal/pkg/goerror"
)

type SendOTPInput struct {
	Email string `validate:"required,email"`
}

// SendOTP issues a fresh code for the email, superseding any active one, and
// mails it. A mail failure leaves the issued record in place.
func (s *Usecase) SendOTP(ctx context.Context, in SendOTPInput) error {
	ctx, span := s.startSpan(ctx, "SendOTP")
	defer span.End()

	in.Email = strings.TrimSpace(strings.ToLower(in.Email))

	if err := s.validator.Validate(in); err != nil {
		return goerror.NewInvalidInput(err)
	}

	acquired, err := s.cooldown.Acquire(ctx, in.Email, s.cfg.OTPCooldown)
	if err != nil {
		slog.ErrorContext(ctx, "failed to acquire otp cooldown", "email", in.Email, "error", err)
		return goerror.NewServer(err)
	}
	if !acquired {
		return goerror.NewBusiness("Please wait before requesting another OTP.", goerror.CodeTooManyRequest)
	}

	code, err := s.codeGen.Generate()
	if err != nil {
		slog.ErrorContext(ctx, "failed to generate otp code", "error", err)
		s.releaseCooldown(ctx, in.Email)
		return goerror.NewServer(err)
	}

	codeHash, err := s.hashOTP(code)
	if err != nil {
		slog.ErrorContext(ctx, "failed to hash otp code", "error", err)
		s.releaseCooldown(ctx, in.Email)
		return goerror.NewServer(err)
	}

	if err := s.repoOTP.IssueOTP(ctx, entity.OTPRecord{
		ID:        s.uid.Generate(),
		Email:     in.Email,
		CodeHash:  codeHash,
		ExpiresAt: s.clock.Now().Add(s.cfg.OTPWindow),
	}); err != nil {
		slog.ErrorContext(ctx, "failed to repo issue otp", "email", in.Email, "error", err)
		s.releaseCooldown(ctx, in.Email)
		return goerror.NewServer(err)
	}

	if err := s.repoEmail.SendOTP(ctx, in.Email, code); err != nil {
		slog.ErrorContext(ctx, "failed to send otp email", "email", in.Email, "error", err)
		s.releaseCooldown(ctx, in.Email)
		return goerror.NewUpstream(err)
	}

	return nil
}

func (s *Usecase) releaseCooldown(ctx context.Context, email string) {
	if err := s.cooldown.Release(ctx, email); err != nil {
		slog.WarnContext(ctx, "failed to release otp cooldown", "email", email, "error", err)
	}
}
