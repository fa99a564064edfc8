package domain

// Provider names one authentication method bound to a user. A user may hold
// zero, one, or both providers; at most one account exists per (user, provider).
type Provider string

const (
	ProviderCredential Provider = "credential"
	ProviderPIN        Provider = "pin"
)

// Providers lists all known providers in a stable order.
var Providers = []Provider{ProviderCredential, ProviderPIN}

// Valid reports whether the provider is one of the known values.
func (p Provider) Valid() bool {
	return p == ProviderCredential || p == ProviderPIN
}

// Account binds one credential provider to a user. Only the hash column
// matching the provider is ever set; SecretHash holds the bcrypt hash of the
// password or PIN respectively.
type Account struct {
	ID         string   `db:"id"`
	UserID     string   `db:"user_id"`
	Provider   Provider `db:"provider"`
	SecretHash string   `db:"secret_hash"`
}
