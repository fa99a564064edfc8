package domain

import "time"

// Tenant is an isolated organization. Every user and invitation belongs to
// exactly one tenant; the tenant id is the root of data partitioning.
type Tenant struct {
	ID        string    `db:"id"`
	Name      string    `db:"name"`
	Slug      string    `db:"slug"` // unique, derived from Name
	Logo      *string   `db:"logo"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}
