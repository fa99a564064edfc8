package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/nemunivers/identity/internal/identity/domain"
	"github.com/nemunivers/identity/internal/identity/store"
	"github.com/stretchr/testify/require"
)

func newRegistrationService(st store.Store, sender *captureSender) *RegistrationService {
	return &RegistrationService{
		Store:      st,
		Mail:       sender,
		Composer:   newTestComposer(),
		BcryptCost: testCost,
	}
}

func TestRegisterTenant(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	sender := &captureSender{}
	svc := newRegistrationService(st, sender)

	result, err := svc.RegisterTenant(ctx, RegisterTenantInput{
		TenantName: "Acme Corp.",
		UserName:   "Alice",
		Email:      "Alice@Example.com",
		Password:   "correct-horse-battery",
	})
	require.NoError(t, err)

	t.Run("tenant gets a slug derived from its name", func(t *testing.T) {
		require.Equal(t, "acme-corp", result.Tenant.Slug)

		tenant, err := st.Tenants().GetTenantBySlug(ctx, "acme-corp")
		require.NoError(t, err)
		require.Equal(t, result.Tenant.ID, tenant.ID)
	})

	t.Run("founding user is an inactive unverified administrator", func(t *testing.T) {
		user, err := st.Users().GetUserByEmail(ctx, "alice@example.com")
		require.NoError(t, err)
		require.Equal(t, domain.RoleAdministrator, user.Role)
		require.False(t, user.Active)
		require.False(t, user.EmailVerified)
		require.Equal(t, "alice@example.com", user.Email, "email stored normalized")
	})

	t.Run("credential account is bound", func(t *testing.T) {
		account, err := st.Accounts().GetAccount(ctx, result.User.ID, domain.ProviderCredential)
		require.NoError(t, err)
		require.NotEmpty(t, account.SecretHash)
		require.NotContains(t, account.SecretHash, "correct-horse-battery")
	})

	t.Run("verification mail carries a working token", func(t *testing.T) {
		sent := sender.Sent()
		require.Len(t, sent, 1)
		require.Equal(t, []string{"alice@example.com"}, sent[0].To)

		token := extractToken(t, sent[0].TextBody)
		v, err := st.Verifications().GetPendingVerification(ctx, token)
		require.NoError(t, err)
		require.Equal(t, domain.VerificationEmail, v.Type)
		require.Equal(t, result.User.ID, v.UserID)
	})
}

// extractToken pulls the token query parameter out of the first link in a
// mail body.
func extractToken(t *testing.T, body string) string {
	t.Helper()

	i := strings.Index(body, "?token=")
	require.GreaterOrEqual(t, i, 0, "mail body should contain a token link")
	rest := body[i+len("?token="):]
	if j := strings.IndexAny(rest, " \n"); j >= 0 {
		rest = rest[:j]
	}
	return rest
}

func TestRegisterTenantConflicts(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	sender := &captureSender{}
	svc := newRegistrationService(st, sender)

	_, err := svc.RegisterTenant(ctx, RegisterTenantInput{
		TenantName: "Acme", UserName: "Alice", Email: "alice@example.com", Password: "password-123",
	})
	require.NoError(t, err)

	t.Run("slug conflict", func(t *testing.T) {
		_, err := svc.RegisterTenant(ctx, RegisterTenantInput{
			TenantName: "ACME", UserName: "Bob", Email: "bob@example.com", Password: "password-123",
		})
		require.ErrorIs(t, err, ErrSlugTaken)
	})

	t.Run("email conflict is global and case-insensitive", func(t *testing.T) {
		_, err := svc.RegisterTenant(ctx, RegisterTenantInput{
			TenantName: "Globex", UserName: "Alice Again", Email: "ALICE@example.com", Password: "password-123",
		})
		require.ErrorIs(t, err, ErrEmailTaken)
	})
}

func TestRegisterTenantValidation(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	svc := newRegistrationService(st, &captureSender{})

	cases := []struct {
		name string
		in   RegisterTenantInput
	}{
		{"missing tenant name", RegisterTenantInput{UserName: "A", Email: "a@b.co", Password: "password-123"}},
		{"missing user name", RegisterTenantInput{TenantName: "Acme", Email: "a@b.co", Password: "password-123"}},
		{"bad email", RegisterTenantInput{TenantName: "Acme", UserName: "A", Email: "not-an-email", Password: "password-123"}},
		{"short password", RegisterTenantInput{TenantName: "Acme", UserName: "A", Email: "a@b.co", Password: "short"}},
		{"symbol-only tenant name", RegisterTenantInput{TenantName: "!!!", UserName: "A", Email: "a@b.co", Password: "password-123"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.RegisterTenant(ctx, tc.in)
			require.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestRegisterTenantMailFailureRollsBack(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	sender := &captureSender{Fail: errors.New("smtp down")}
	svc := newRegistrationService(st, sender)

	_, err := svc.RegisterTenant(ctx, RegisterTenantInput{
		TenantName: "Acme", UserName: "Alice", Email: "alice@example.com", Password: "password-123",
	})
	require.Error(t, err)

	// Nothing survives: neither tenant nor user.
	_, err = st.Tenants().GetTenantBySlug(ctx, "acme")
	require.ErrorIs(t, err, store.ErrNotFound)
	_, err = st.Users().GetUserByEmail(ctx, "alice@example.com")
	require.ErrorIs(t, err, store.ErrNotFound)

	// A retry after the mail system recovers succeeds with the same inputs.
	sender.Fail = nil
	_, err = svc.RegisterTenant(ctx, RegisterTenantInput{
		TenantName: "Acme", UserName: "Alice", Email: "alice@example.com", Password: "password-123",
	})
	require.NoError(t, err)
}

func TestSlugify(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Acme Corp.", "acme-corp"},
		{"  Tabs &  Spaces  ", "tabs-spaces"},
		{"already-slugged", "already-slugged"},
		{"ÜmläutFree123", "ml-utfree123"},
		{"!!!", ""},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, Slugify(tc.in), "input %q", tc.in)
	}
}
