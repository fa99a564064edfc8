package service

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/nemunivers/identity/pkg/mailx"
)

// MailComposer builds the outbound messages the identity flows send. It only
// shapes content; delivery is the provider's job.
type MailComposer struct {
	From    string
	BaseURL string // public frontend base, e.g. https://id.example.com
}

func (c *MailComposer) link(path, token string) string {
	return strings.TrimRight(c.BaseURL, "/") + path + "?token=" + url.QueryEscape(token)
}

// EmailVerification is sent right after tenant registration; consuming the
// token activates the account.
func (c *MailComposer) EmailVerification(to, name, token string) mailx.Message {
	link := c.link("/verify", token)
	return mailx.Message{
		From:    c.From,
		To:      []string{to},
		Subject: "Verify your email address",
		TextBody: fmt.Sprintf(
			"Hi %s,\n\nConfirm your email address to activate your account:\n\n%s\n\nThis link expires in 24 hours. If you didn't create an account, you can ignore this email.\n",
			name, link,
		),
	}
}

// Invitation invites an address to join a tenant.
func (c *MailComposer) Invitation(to, tenantName, inviterName, token string, expiresInDays int) mailx.Message {
	link := c.link("/invitations", token)
	expiry := fmt.Sprintf("%d days", expiresInDays)
	if expiresInDays == 1 {
		expiry = "1 day"
	}
	return mailx.Message{
		From:    c.From,
		To:      []string{to},
		Subject: fmt.Sprintf("You've been invited to join %s", tenantName),
		TextBody: fmt.Sprintf(
			"%s invited you to join %s.\n\nAccept the invitation here:\n\n%s\n\nThe invitation expires in %s. If you weren't expecting this, you can ignore this email.\n",
			inviterName, tenantName, link, expiry,
		),
	}
}

// SecretReset carries a single-use reset token for a password or PIN.
func (c *MailComposer) SecretReset(to, name, token string, pin bool) mailx.Message {
	link := c.link("/reset", token)
	what := "password"
	if pin {
		what = "PIN"
	}
	return mailx.Message{
		From:    c.From,
		To:      []string{to},
		Subject: fmt.Sprintf("Reset your %s", what),
		TextBody: fmt.Sprintf(
			"Hi %s,\n\nWe received a request to reset your %s. Use the link below to choose a new one:\n\n%s\n\nThis link expires in 1 hour. If you didn't request a reset, no action is needed.\n",
			name, what, link,
		),
	}
}

// EmailChange confirms a replacement address; it is sent to the NEW address,
// which only takes over once the token is consumed.
func (c *MailComposer) EmailChange(to, name, token string) mailx.Message {
	link := c.link("/verify", token)
	return mailx.Message{
		From:    c.From,
		To:      []string{to},
		Subject: "Confirm your new email address",
		TextBody: fmt.Sprintf(
			"Hi %s,\n\nConfirm this address to make it the new email for your account:\n\n%s\n\nThis link expires in 1 hour. If you didn't request this change, you can ignore this email.\n",
			name, link,
		),
	}
}
