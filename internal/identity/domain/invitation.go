package domain

import "time"

// InvitationStatus tracks the invitation state machine. Pending is the only
// non-terminal state; expiry is implicit (an expired pending invitation
// resolves as not found).
type InvitationStatus string

const (
	InvitationPending   InvitationStatus = "pending"
	InvitationAccepted  InvitationStatus = "accepted"
	InvitationRejected  InvitationStatus = "rejected"
	InvitationCancelled InvitationStatus = "cancelled"
)

// Invitation is a single-use, tenant-scoped, role-carrying token that onboards
// a new user. Pending lookups filter accepted_at IS NULL.
type Invitation struct {
	ID         string           `db:"id"`
	TenantID   string           `db:"tenant_id"`
	Token      string           `db:"token"`
	Email      string           `db:"email"` // the invitee; not yet a user
	Role       Role             `db:"role"`  // granted on acceptance
	Status     InvitationStatus `db:"status"`
	ExpiresAt  time.Time        `db:"expires_at"`
	InviterID  *string          `db:"inviter_id"` // nulled if the inviter is deleted
	CreatedAt  time.Time        `db:"created_at"`
	AcceptedAt *time.Time       `db:"accepted_at"`
	UserID     *string          `db:"user_id"` // set once accepted, nulled if that user is deleted
}

// Expired reports whether the invitation is past its expiry at the given time.
func (i Invitation) Expired(now time.Time) bool {
	return now.After(i.ExpiresAt)
}
