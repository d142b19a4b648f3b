package mq

import (
	"context"
	"encoding/json"

	"github.com/shandysiswandi/authgate/internal/identity/usecase"
	"github.com/shandysiswandi/authgate/internal/pkg/instrument"
	"github.com/shandysiswandi/authgate/internal/pkg/messaging"
	"github.com/shandysiswandi/authgate/internal/shared/event"
	"go.opentelemetry.io/otel/codes"
)

const keyOfCorrelationID string = "cID"

type Messaging struct {
	client messaging.Publisher
	ins    instrument.Instrumentation
}

func NewMessaging(client messaging.Publisher, ins instrument.Instrumentation) *Messaging {
	return &Messaging{client: client, ins: ins}
}

func (m *Messaging) PublishUserRegistered(ctx context.Context, msg usecase.UserRegisteredEvent) error {
	return m.publish(ctx, "PublishUserRegistered", event.UserRegisteredDestination, event.UserRegisteredMessage{
		UserID:   msg.UserID,
		Username: msg.Username,
		Email:    msg.Email,
	})
}

func (m *Messaging) PublishUserVerified(ctx context.Context, msg usecase.UserVerifiedEvent) error {
	return m.publish(ctx, "PublishUserVerified", event.UserVerifiedDestination, event.UserVerifiedMessage{
		Email:      msg.Email,
		VerifiedAt: msg.VerifiedAt,
	})
}

func (m *Messaging) publish(ctx context.Context, span, destination string, payload any) error {
	ctx, sp := m.ins.Tracer("identity.outbound.mq").Start(ctx, span)
	defer sp.End()

	body, err := json.Marshal(payload)
	if err != nil {
		sp.RecordError(err)
		sp.SetStatus(codes.Error, err.Error())
		return err
	}

	cID := instrument.GetCorrelationID(ctx)
	if _, err := m.client.Publish(ctx, destination, messaging.OutgoingMessage{
		Body:    body,
		Headers: []messaging.Header{{Key: keyOfCorrelationID, Value: []byte(cID)}},
	}); err != nil {
		sp.RecordError(err)
		sp.SetStatus(codes.Error, err.Error())
		return err
	}

	return nil
}
