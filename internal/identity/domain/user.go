package domain

import "time"

// Role is a two-level hierarchy: administrators can do everything users can.
type Role string

const (
	RoleAdministrator Role = "admin"
	RoleUser          Role = "user"
)

// Valid reports whether the role is one of the known values.
func (r Role) Valid() bool {
	return r == RoleAdministrator || r == RoleUser
}

type User struct {
	ID            string    `db:"id"`
	TenantID      string    `db:"tenant_id"`
	Name          string    `db:"name"`
	Email         string    `db:"email"` // unique, case-insensitive, globally (not per tenant)
	EmailVerified bool      `db:"email_verified"`
	Active        bool      `db:"active"`
	Role          Role      `db:"role"`
	Image         *string   `db:"image"`
	CreatedAt     time.Time `db:"created_at"`
	UpdatedAt     time.Time `db:"updated_at"`
}
