package domain

import "time"

// Platform records which surface a session was issued for.
type Platform string

const (
	PlatformWeb Platform = "web"
	PlatformApp Platform = "app"
)

// Valid reports whether the platform is one of the known values.
func (p Platform) Valid() bool {
	return p == PlatformWeb || p == PlatformApp
}

// Session is a bearer-token-backed, time-limited proof of identity. The token
// is the only credential needed to resolve it, so it is generated from a
// high-entropy random source and stored with a unique index.
type Session struct {
	ID        string    `db:"id"`
	Token     string    `db:"token"`
	UserID    string    `db:"user_id"`
	Platform  Platform  `db:"platform"`
	IPAddress *string   `db:"ip_address"`
	UserAgent *string   `db:"user_agent"`
	ExpiresAt time.Time `db:"expires_at"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// Expired reports whether the session is past its expiry at the given time.
func (s Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}
