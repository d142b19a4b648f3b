package mail

import (
	"context"
	"io"
)

// Message is a provider-agnostic email payload.
type Message struct {
	// From overrides the configured sender when set.
	From string
	To   []string
	Cc   []string
	Bcc  []string
	// Subject must be a single line; line breaks are stripped.
	Subject string
	// TextBody and HTMLBody are sent as multipart/alternative when both are set.
	TextBody string
	HTMLBody string
}

// Mail sends messages through an email provider.
type Mail interface {
	io.Closer
	Send(ctx context.Context, msg Message) error
}
