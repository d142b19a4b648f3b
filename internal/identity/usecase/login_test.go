package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/shandysiswandi/authgate/internal/identity/entity"
	"github.com/shandysiswandi/authgate/internal/pkg/goerror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestUsecase_Login(t *testing.T) {
	ctx := context.Background()

	t.Run("InvalidInput", func(t *testing.T) {
		uc, m := newTestUsecase(t, "123456")

		out, err := uc.Login(ctx, LoginInput{Username: "  ", Password: "secret"})

		assert.Nil(t, out)
		var gerr *goerror.Error
		require.ErrorAs(t, err, &gerr)
		assert.Equal(t, goerror.CodeInvalidInput, gerr.Code())
		m.assertAll(t)
	})

	t.Run("RejectedCredentials", func(t *testing.T) {
		uc, m := newTestUsecase(t, "123456")
		m.idp.On("PasswordGrant", mock.Anything, "alice", "wrong").Return(nil, goerror.ErrUnauthenticated).Once()

		_, err := uc.Login(ctx, LoginInput{Username: " alice ", Password: "wrong"})

		var gerr *goerror.Error
		require.ErrorAs(t, err, &gerr)
		assert.Equal(t, goerror.CodeUnauthorized, gerr.Code())
		assert.Equal(t, "Invalid credentials.", gerr.Msg())
		m.assertAll(t)
	})

	t.Run("ProviderDown", func(t *testing.T) {
		uc, m := newTestUsecase(t, "123456")
		m.idp.On("PasswordGrant", mock.Anything, "alice", "secret").Return(nil, errors.New("dial tcp: refused")).Once()

		_, err := uc.Login(ctx, LoginInput{Username: "alice", Password: "secret"})

		var gerr *goerror.Error
		require.ErrorAs(t, err, &gerr)
		assert.Equal(t, goerror.CodeUnavailable, gerr.Code())
		assert.Equal(t, 500, gerr.StatusCode())
		m.assertAll(t)
	})

	t.Run("Success", func(t *testing.T) {
		uc, m := newTestUsecase(t, "123456")
		m.idp.On("PasswordGrant", mock.Anything, "alice", "secret").Return(&entity.TokenSet{
			AccessToken:      "at",
			TokenType:        "Bearer",
			ExpiresIn:        300,
			RefreshToken:     "rt",
			RefreshExpiresIn: 1800,
			Scope:            "profile email",
			SessionState:     "s1",
		}, nil).Once()

		out, err := uc.Login(ctx, LoginInput{Username: "alice", Password: "secret"})

		require.NoError(t, err)
		assert.Equal(t, &LoginOutput{
			AccessToken:      "at",
			TokenType:        "Bearer",
			ExpiresIn:        300,
			RefreshToken:     "rt",
			RefreshExpiresIn: 1800,
			Scope:            "profile email",
			SessionState:     "s1",
		}, out)
		m.assertAll(t)
	})
}
