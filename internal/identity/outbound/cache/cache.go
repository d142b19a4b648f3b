package cache

import (
	"context"
	"time"

	"github.com/shandysiswandi/authgate/internal/identity/entity"
	"github.com/shandysiswandi/authgate/internal/pkg/instrument"
	"github.com/shandysiswandi/authgate/internal/pkg/otp"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// OTP keeps OTP records in an otp.Store (process memory or Redis) instead of
// the database.
type OTP struct {
	store otp.Store
	ins   instrument.Instrumentation
}

func NewOTP(store otp.Store, ins instrument.Instrumentation) *OTP {
	return &OTP{store: store, ins: ins}
}

func (c *OTP) IssueOTP(ctx context.Context, rec entity.OTPRecord) (err error) {
	ctx, span := c.startSpan(ctx, "IssueOTP")
	defer func() { endSpan(span, err) }()

	err = c.store.Issue(ctx, rec.Email, rec.CodeHash, rec.ExpiresAt)
	return err
}

func (c *OTP) ConsumeOTP(ctx context.Context, email, codeHash string, at time.Time) (_ bool, err error) {
	ctx, span := c.startSpan(ctx, "ConsumeOTP")
	defer func() { endSpan(span, err) }()

	return c.store.Consume(ctx, email, codeHash, at)
}

func (c *OTP) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return c.ins.Tracer("identity.outbound.cache").Start(ctx, name)
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
