package service

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/nemunivers/identity/internal/identity/domain"
	"github.com/nemunivers/identity/internal/identity/store"
	"github.com/nemunivers/identity/pkg/cryptox"
	"github.com/nemunivers/identity/pkg/idx"
	"github.com/stretchr/testify/require"
)

func TestHousekeepingCleanup(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	tenant := seedTenant(t, st, "Acme")
	admin := seedUser(t, st, tenant.ID, seedUserOpts{Email: "admin@example.com", Role: domain.RoleAdministrator, Active: true})

	now := time.Now().UTC()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	makeSession := func(expires time.Time) domain.Session {
		s := domain.Session{
			ID:        idx.New().String(),
			Token:     cryptox.MustGenerateToken(cryptox.TokenSize512),
			UserID:    admin.ID,
			Platform:  domain.PlatformWeb,
			ExpiresAt: expires,
			CreatedAt: now,
			UpdatedAt: now,
		}
		require.NoError(t, st.Sessions().CreateSession(ctx, s))
		return s
	}

	staleSession := makeSession(past)
	freshSession := makeSession(future)

	staleVerif := seedVerification(t, st, admin.ID, domain.VerificationPasswordReset,
		"hk-stale", past, nil)
	freshVerif := seedVerification(t, st, admin.ID, domain.VerificationPasswordReset,
		"hk-fresh", future, nil)

	staleInv := seedInvitation(t, st, tenant.ID, admin.ID, "stale@example.com", domain.RoleUser, past)
	freshInv := seedInvitation(t, st, tenant.ID, admin.ID, "fresh@example.com", domain.RoleUser, future)

	hk := NewHousekeepingService(st, slog.Default(), time.Hour)
	hk.cleanup()

	// Expired rows are gone.
	_, err := st.Sessions().GetSessionByToken(ctx, staleSession.Token)
	require.ErrorIs(t, err, store.ErrNotFound)
	_, err = st.Verifications().GetPendingVerification(ctx, staleVerif.Token)
	require.ErrorIs(t, err, store.ErrNotFound)
	_, err = st.Invitations().GetPendingInvitation(ctx, staleInv.Token)
	require.ErrorIs(t, err, store.ErrNotFound)

	// Live rows survive.
	_, err = st.Sessions().GetSessionByToken(ctx, freshSession.Token)
	require.NoError(t, err)
	_, err = st.Verifications().GetPendingVerification(ctx, freshVerif.Token)
	require.NoError(t, err)
	_, err = st.Invitations().GetPendingInvitation(ctx, freshInv.Token)
	require.NoError(t, err)
}

func TestHousekeepingLifecycle(t *testing.T) {
	st := newTestStore(t)

	hk := NewHousekeepingService(st, slog.Default(), time.Hour)
	hk.Start()
	hk.Stop() // must not hang

	require.NotNil(t, hk)
}
