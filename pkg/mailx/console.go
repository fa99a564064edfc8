package mailx

import (
	"context"
	"strings"

	"github.com/nemunivers/identity/pkg/slogx"
)

// ConsoleSender logs emails instead of delivering them. Intended for
// development and testing.
type ConsoleSender struct{}

// NewConsoleSender creates a new console email provider.
func NewConsoleSender() *ConsoleSender {
	return &ConsoleSender{}
}

func (s *ConsoleSender) Send(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}

	log := slogx.FromContext(ctx)
	log.Info("mailx: email sent (dev mode)",
		"from", msg.From,
		"to", strings.Join(msg.To, ", "),
		"subject", msg.Subject,
	)
	if msg.TextBody != "" {
		log.Debug("mailx: text body", "body", msg.TextBody)
	}
	if msg.HTMLBody != "" {
		log.Debug("mailx: html body", "body", msg.HTMLBody)
	}

	return nil
}
