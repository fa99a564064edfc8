package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/nemunivers/identity/internal/identity/domain"
	"github.com/nemunivers/identity/internal/identity/store"
	"github.com/nemunivers/identity/internal/identity/store/drivers/sqlite"
	"github.com/nemunivers/identity/pkg/cryptox"
	"github.com/nemunivers/identity/pkg/idx"
	"github.com/nemunivers/identity/pkg/mailx"
	"github.com/stretchr/testify/require"
)

// testCost keeps bcrypt cheap in tests.
const testCost = cryptox.MinCost

func newTestStore(t *testing.T) store.Store {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	require.NoError(t, st.ApplyMigrations())
	return st
}

// captureSender records messages instead of delivering them. Fail makes every
// Send return an error.
type captureSender struct {
	mu   sync.Mutex
	Fail error
	sent []mailx.Message
}

func (c *captureSender) Send(_ context.Context, msg mailx.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Fail != nil {
		return c.Fail
	}
	c.sent = append(c.sent, msg)
	return nil
}

func (c *captureSender) Sent() []mailx.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]mailx.Message, len(c.sent))
	copy(out, c.sent)
	return out
}

func newTestComposer() *MailComposer {
	return &MailComposer{From: "noreply@identity.test", BaseURL: "https://identity.test"}
}

func newTestDispatcher(t *testing.T, sender mailx.Sender) *mailx.Dispatcher {
	t.Helper()
	d := mailx.NewDispatcher(sender)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = d.Shutdown(ctx)
	})
	return d
}

func seedTenant(t *testing.T, st store.Store, name string) domain.Tenant {
	t.Helper()

	now := time.Now().UTC()
	tenant := domain.Tenant{
		ID:        idx.New().String(),
		Name:      name,
		Slug:      Slugify(name),
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, st.Tenants().CreateTenant(context.Background(), tenant))
	return tenant
}

type seedUserOpts struct {
	Email    string
	Name     string
	Role     domain.Role
	Active   bool
	Verified bool
	Password string // creates a credential account when non-empty
	PIN      string // creates a pin account when non-empty
}

func seedUser(t *testing.T, st store.Store, tenantID string, opts seedUserOpts) domain.User {
	t.Helper()
	ctx := context.Background()

	if opts.Name == "" {
		opts.Name = "Test User"
	}
	if opts.Role == "" {
		opts.Role = domain.RoleUser
	}

	now := time.Now().UTC()
	user := domain.User{
		ID:            idx.New().String(),
		TenantID:      tenantID,
		Name:          opts.Name,
		Email:         NormalizeEmail(opts.Email),
		EmailVerified: opts.Verified,
		Active:        opts.Active,
		Role:          opts.Role,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	require.NoError(t, st.Users().CreateUser(ctx, user))

	if opts.Password != "" {
		hash, err := cryptox.HashSecret(opts.Password, testCost)
		require.NoError(t, err)
		require.NoError(t, st.Accounts().CreateAccount(ctx, domain.Account{
			ID:         idx.New().String(),
			UserID:     user.ID,
			Provider:   domain.ProviderCredential,
			SecretHash: hash,
		}))
	}
	if opts.PIN != "" {
		hash, err := cryptox.HashSecret(opts.PIN, testCost)
		require.NoError(t, err)
		require.NoError(t, st.Accounts().CreateAccount(ctx, domain.Account{
			ID:         idx.New().String(),
			UserID:     user.ID,
			Provider:   domain.ProviderPIN,
			SecretHash: hash,
		}))
	}

	return user
}

func seedVerification(t *testing.T, st store.Store, userID string, typ domain.VerificationType, token string, expiresAt time.Time, meta *string) domain.Verification {
	t.Helper()

	now := time.Now().UTC()
	v := domain.Verification{
		ID:        idx.New().String(),
		UserID:    userID,
		Type:      typ,
		Token:     token,
		Meta:      meta,
		ExpiresAt: expiresAt,
		CreatedAt: now,
	}
	require.NoError(t, st.Verifications().CreateVerification(context.Background(), v))
	return v
}

func seedInvitation(t *testing.T, st store.Store, tenantID, inviterID, email string, role domain.Role, expiresAt time.Time) domain.Invitation {
	t.Helper()

	now := time.Now().UTC()
	inv := domain.Invitation{
		ID:        idx.New().String(),
		TenantID:  tenantID,
		Token:     cryptox.MustGenerateToken(cryptox.TokenSize256),
		Email:     email,
		Role:      role,
		Status:    domain.InvitationPending,
		ExpiresAt: expiresAt,
		InviterID: &inviterID,
		CreatedAt: now,
	}
	require.NoError(t, st.Invitations().CreateInvitation(context.Background(), inv))
	return inv
}
