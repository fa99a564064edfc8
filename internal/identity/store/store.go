package store

import (
	"context"
	"errors"
	"time"

	"github.com/nemunivers/identity/internal/identity/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers (sqlite for now)
// implement this. It exposes sub-repositories to keep concerns tidy and
// testable. Repositories do mechanical CRUD only; all business rules live in
// the service layer.
type Store interface {
	Tenants() Tenants
	Users() Users
	Accounts() Accounts
	Sessions() Sessions
	Verifications() Verifications
	Invitations() Invitations

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction. If fn returns an error the
	// transaction is rolled back, otherwise it is committed. This is the
	// recommended way to run multi-step writes (registration, invitation
	// acceptance) that must be atomic.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases the underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It exposes the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Tenants interface {
	// CreateTenant inserts a new tenant (id is provided by the service via ULID).
	CreateTenant(ctx context.Context, t domain.Tenant) error

	// GetTenantByID returns a tenant by id.
	GetTenantByID(ctx context.Context, id string) (domain.Tenant, error)

	// GetTenantBySlug returns a tenant by its unique slug.
	GetTenantBySlug(ctx context.Context, slug string) (domain.Tenant, error)
}

// UserFilters narrows and pages a tenant's user listing. Zero values mean
// "no constraint" except PerPage, which callers should always set.
type UserFilters struct {
	Query         string // matches name or email, case-insensitive substring
	Name          string
	Email         string
	Roles         []domain.Role
	EmailVerified *bool
	Active        *bool
	CreatedFrom   *time.Time
	CreatedTo     *time.Time
	Page          int // 1-based
	PerPage       int
	SortBy        string // "name", "email", "role", "created_at"
	SortDesc      bool
}

type Users interface {
	CreateUser(ctx context.Context, u domain.User) error

	GetUserByID(ctx context.Context, id string) (domain.User, error)

	// GetUserByEmail matches case-insensitively; email uniqueness is global.
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)

	// ListUsers returns one tenant's users plus the total row count for the
	// same filters (for page-count computation).
	ListUsers(ctx context.Context, tenantID string, f UserFilters) ([]domain.User, int, error)

	UpdateUserProfile(ctx context.Context, id, tenantID string, name string, image *string) error
	UpdateUserEmail(ctx context.Context, id string, email string) error
	UpdateUserRole(ctx context.Context, id, tenantID string, role domain.Role) error
	UpdateUserStatus(ctx context.Context, id, tenantID string, active bool) error

	// MarkEmailVerified flips email_verified and active in one statement so a
	// consumed verification can never leave the user half-activated.
	MarkEmailVerified(ctx context.Context, id string) error

	// DeleteUser is tenant-scoped; deleting another tenant's user reports
	// ErrNotFound. Cascades to accounts, sessions and verifications.
	DeleteUser(ctx context.Context, id, tenantID string) error
}

type Accounts interface {
	CreateAccount(ctx context.Context, a domain.Account) error

	// GetAccount returns the account for a (user, provider) pair.
	GetAccount(ctx context.Context, userID string, provider domain.Provider) (domain.Account, error)

	// ListAccounts returns every provider account bound to a user.
	ListAccounts(ctx context.Context, userID string) ([]domain.Account, error)

	UpdateAccountSecret(ctx context.Context, userID string, provider domain.Provider, secretHash string) error
}

type Sessions interface {
	CreateSession(ctx context.Context, s domain.Session) error

	// GetSessionByToken returns the session row for a bearer token. Expiry is
	// enforced by the caller (lazy expiry: stale rows read as anonymous).
	GetSessionByToken(ctx context.Context, token string) (domain.Session, error)

	// ExtendSession moves expires_at forward (sliding renewal).
	ExtendSession(ctx context.Context, id string, expiresAt time.Time) error

	// DeleteSessionByToken removes a session; reports whether a row existed.
	DeleteSessionByToken(ctx context.Context, token string) (bool, error)

	DeleteExpiredSessions(ctx context.Context) error
}

type Verifications interface {
	CreateVerification(ctx context.Context, v domain.Verification) error

	// GetPendingVerification looks up by token with verified_at IS NULL. A
	// consumed token reads identically to one that never existed.
	GetPendingVerification(ctx context.Context, token string) (domain.Verification, error)

	// ConsumeVerification sets verified_at, guarded on verified_at IS NULL so
	// concurrent consumers race safely; the loser gets ErrNotFound.
	ConsumeVerification(ctx context.Context, token string, at time.Time) error

	DeleteExpiredVerifications(ctx context.Context) error
}

type Invitations interface {
	CreateInvitation(ctx context.Context, inv domain.Invitation) error

	// GetPendingInvitation looks up by token with accepted_at IS NULL and
	// status = pending.
	GetPendingInvitation(ctx context.Context, token string) (domain.Invitation, error)

	GetInvitationByID(ctx context.Context, id, tenantID string) (domain.Invitation, error)

	// MarkInvitationAccepted transitions a pending invitation to accepted and
	// binds the created user, guarded on accepted_at IS NULL.
	MarkInvitationAccepted(ctx context.Context, id, userID string, at time.Time) error

	// UpdateInvitationStatus handles the rejected/cancelled terminal
	// transitions, guarded on status = pending.
	UpdateInvitationStatus(ctx context.Context, id string, status domain.InvitationStatus) error

	DeleteExpiredInvitations(ctx context.Context) error
}
