package email

import (
	"context"
	"errors"
	"testing"

	"github.com/shandysiswandi/authgate/internal/pkg/instrument"
	"github.com/shandysiswandi/authgate/internal/pkg/mail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type mockMail struct{ mock.Mock }

func (m *mockMail) Send(ctx context.Context, msg mail.Message) error {
	return m.Called(ctx, msg).Error(0)
}

func (m *mockMail) Close() error { return nil }

func TestMail_SendOTP(t *testing.T) {
	t.Run("ComposesMessage", func(t *testing.T) {
		client := new(mockMail)
		client.On("Send", mock.Anything, mail.Message{
			From:     "no-reply@authgate.local",
			To:       []string{"a@x.com"},
			Subject:  "Your OTP Code",
			TextBody: "Your OTP code is 004213",
		}).Return(nil).Once()

		err := New(client, "no-reply@authgate.local", instrument.NewNoop()).SendOTP(context.Background(), "a@x.com", "004213")

		assert.NoError(t, err)
		client.AssertExpectations(t)
	})

	t.Run("TransportError", func(t *testing.T) {
		client := new(mockMail)
		client.On("Send", mock.Anything, mock.Anything).Return(errors.New("dial tcp: refused")).Once()

		err := New(client, "no-reply@authgate.local", instrument.NewNoop()).SendOTP(context.Background(), "a@x.com", "004213")

		assert.EqualError(t, err, "dial tcp: refused")
	})
}
