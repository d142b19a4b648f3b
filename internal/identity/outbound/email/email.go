package email

import (
	"context"

	"github.com/shandysiswandi/authgate/internal/pkg/instrument"
	"github.com/shandysiswandi/authgate/internal/pkg/mail"
	"go.opentelemetry.io/otel/codes"
)

const otpSubject = "Your OTP Code"

type Mail struct {
	client mail.Mail
	from   string
	ins    instrument.Instrumentation
}

func New(client mail.Mail, from string, ins instrument.Instrumentation) *Mail {
	return &Mail{client: client, from: from, ins: ins}
}

func (m *Mail) SendOTP(ctx context.Context, email, code string) error {
	ctx, span := m.ins.Tracer("identity.outbound.email").Start(ctx, "SendOTP")
	defer span.End()

	if err := m.client.Send(ctx, mail.Message{
		From:     m.from,
		To:       []string{email},
		Subject:  otpSubject,
		TextBody: "Your OTP code is " + code,
	}); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	return nil
}
