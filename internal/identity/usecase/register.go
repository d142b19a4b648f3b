package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/shandysiswandi/authgate/internal/identity/entity"
	"github.com/shandysiswandi/authgate/internal/pkg/goerror"
)

var errUserExists = goerror.NewBusiness("User already exists.", goerror.CodeBadRequest)

type RegisterInput struct {
	Username string `validate:"required,min=3,max=100"`
	Email    string `validate:"required,email"`
	Password string `validate:"required,password"`
}

// Register stores the user locally first and then creates it in the identity
// provider. A provider failure removes the local row again.
func (s *Usecase) Register(ctx context.Context, in RegisterInput) error {
	ctx, span := s.startSpan(ctx, "Register")
	defer span.End()

	in.Email = strings.TrimSpace(strings.ToLower(in.Email))
	in.Username = strings.TrimSpace(in.Username)

	if err := s.validator.Validate(in); err != nil {
		return goerror.NewInvalidInput(err)
	}

	_, err := s.repoDB.GetUserByEmail(ctx, in.Email)
	if err == nil {
		return errUserExists
	}
	if !errors.Is(err, goerror.ErrNotFound) {
		slog.ErrorContext(ctx, "failed to repo get user by email", "email", in.Email, "error", err)
		return goerror.NewServer(err)
	}

	hashedPassword, err := s.bcrypt.Hash(in.Password)
	if err != nil {
		slog.ErrorContext(ctx, "failed to hash password", "error", err)
		return goerror.NewServer(err)
	}

	newUser := entity.NewUser{
		ID:           s.uid.Generate(),
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: string(hashedPassword),
	}

	err = s.repoDB.CreateUser(ctx, newUser)
	if errors.Is(err, goerror.ErrConflict) {
		return errUserExists
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo create user", "email", in.Email, "error", err)
		return goerror.NewServer(err)
	}

	if err := s.repoIDP.CreateUser(ctx, entity.NewProviderUser{
		Username: in.Username,
		Email:    in.Email,
		Password: in.Password,
	}); err != nil {
		slog.ErrorContext(ctx, "failed to repo idp create user", "email", in.Email, "error", err)

		if dErr := s.repoDB.DeleteUser(ctx, newUser.ID); dErr != nil {
			slog.ErrorContext(ctx, "partial failure: local user kept after identity provider rejected it",
				"user_id", newUser.ID, "email", in.Email, "error", dErr)
		}

		if errors.Is(err, goerror.ErrConflict) {
			return errUserExists
		}
		return goerror.NewUpstream(err)
	}

	s.background(ctx, "identity.publish_user_registered", func(ctx context.Context) error {
		return s.repoMessaging.PublishUserRegistered(ctx, UserRegisteredEvent{
			UserID:   newUser.ID,
			Username: newUser.Username,
			Email:    newUser.Email,
		})
	})

	return nil
}
