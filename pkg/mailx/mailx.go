// Package mailx provides outbound email delivery with pluggable providers.
// The service layer composes messages; providers only transport them.
package mailx

import (
	"context"
	"errors"
)

// Message represents an email to be sent.
type Message struct {
	From     string
	To       []string
	ReplyTo  string
	Subject  string
	TextBody string
	HTMLBody string
}

// ErrInvalidMessage reports a message missing recipients or a subject.
var ErrInvalidMessage = errors.New("mailx: invalid message")

// ErrSendFailed reports a provider-level delivery failure.
var ErrSendFailed = errors.New("mailx: send failed")

// Sender delivers a single email.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Validate checks that a message is deliverable before handing it to a provider.
func (m Message) Validate() error {
	if len(m.To) == 0 {
		return errors.Join(ErrInvalidMessage, errors.New("no recipients"))
	}
	if m.Subject == "" {
		return errors.Join(ErrInvalidMessage, errors.New("empty subject"))
	}
	if m.TextBody == "" && m.HTMLBody == "" {
		return errors.Join(ErrInvalidMessage, errors.New("empty body"))
	}
	return nil
}
