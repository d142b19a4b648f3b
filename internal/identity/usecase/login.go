package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/shandysiswandi/authgate/internal/pkg/goerror"
)

type LoginInput struct {
	Username string `validate:"required"`
	Password string `validate:"required"`
}

type LoginOutput struct {
	AccessToken      string
	TokenType        string
	ExpiresIn        int64
	RefreshToken     string
	RefreshExpiresIn int64
	Scope            string
	SessionState     string
}

func (s *Usecase) Login(ctx context.Context, in LoginInput) (*LoginOutput, error) {
	ctx, span := s.startSpan(ctx, "Login")
	defer span.End()

	in.Username = strings.TrimSpace(in.Username)

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	token, err := s.repoIDP.PasswordGrant(ctx, in.Username, in.Password)
	if errors.Is(err, goerror.ErrUnauthenticated) {
		slog.WarnContext(ctx, "identity provider rejected credentials", "username", in.Username)
		return nil, goerror.NewBusiness("Invalid credentials.", goerror.CodeUnauthorized)
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo idp password grant", "username", in.Username, "error", err)
		return nil, goerror.NewUpstream(err)
	}

	return &LoginOutput{
		AccessToken:      token.AccessToken,
		TokenType:        token.TokenType,
		ExpiresIn:        token.ExpiresIn,
		RefreshToken:     token.RefreshToken,
		RefreshExpiresIn: token.RefreshExpiresIn,
		Scope:            token.Scope,
		SessionState:     token.SessionState,
	}, nil
}
