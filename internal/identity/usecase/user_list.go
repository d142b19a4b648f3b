package usecase

import (
	"context"
	"log/slog"
	"strings"

	"github.com/shandysiswandi/authgate/internal/identity/entity"
	"github.com/shandysiswandi/authgate/internal/pkg/goerror"
)

type UserListInput struct {
	Search string
	First  int `validate:"gte=0"`
	Max    int `validate:"gte=0,lte=1000"`
}

type UserListOutput struct {
	First int
	Max   int
	Users []entity.ProviderUser
}

func (s *Usecase) UserList(ctx context.Context, in UserListInput) (*UserListOutput, error) {
	ctx, span := s.startSpan(ctx, "UserList")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	if in.Max == 0 {
		in.Max = defaultListMax
	}

	users, err := s.repoIDP.ListUsers(ctx, entity.ProviderUserFilter{
		Search: strings.TrimSpace(in.Search),
		First:  in.First,
		Max:    in.Max,
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo idp list users", "error", err)
		return nil, goerror.NewUpstream(err)
	}

	return &UserListOutput{First: in.First, Max: in.Max, Users: users}, nil
}
