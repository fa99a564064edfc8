package domain

import "time"

// VerificationType says what control a verification token proves.
type VerificationType string

const (
	// VerificationEmail confirms the address given at registration.
	VerificationEmail VerificationType = "email"
	// VerificationNewEmail confirms a replacement address before it takes over.
	VerificationNewEmail VerificationType = "new-email"
	// VerificationPasswordReset authorizes setting a new password.
	VerificationPasswordReset VerificationType = "password-reset"
	// VerificationPINReset authorizes setting a new PIN.
	VerificationPINReset VerificationType = "pin-reset"
)

// Valid reports whether the type is one of the known values.
func (t VerificationType) Valid() bool {
	switch t {
	case VerificationEmail, VerificationNewEmail, VerificationPasswordReset, VerificationPINReset:
		return true
	}
	return false
}

// Verification is a single-use token. Once VerifiedAt is set the row can never
// again satisfy a pending lookup; pending lookups filter verified_at IS NULL.
type Verification struct {
	ID         string           `db:"id"`
	UserID     string           `db:"user_id"`
	Type       VerificationType `db:"type"`
	Token      string           `db:"token"`
	Meta       *string          `db:"meta"` // e.g. the candidate address for new-email
	ExpiresAt  time.Time        `db:"expires_at"`
	CreatedAt  time.Time        `db:"created_at"`
	VerifiedAt *time.Time       `db:"verified_at"`
}

// Expired reports whether the token is past its expiry at the given time.
func (v Verification) Expired(now time.Time) bool {
	return now.After(v.ExpiresAt)
}
