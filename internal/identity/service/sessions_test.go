package service

import (
	"context"
	"testing"
	"time"

	"github.com/nemunivers/identity/internal/identity/domain"
	"github.com/stretchr/testify/require"
)

func days(n int) *int { return &n }

func TestSessionCreate(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	tenant := seedTenant(t, st, "Acme")
	user := seedUser(t, st, tenant.ID, seedUserOpts{Email: "alice@example.com", Active: true})

	svc := &SessionService{Store: st, DefaultDays: 7}

	t.Run("issues a session with the requested duration", func(t *testing.T) {
		session, err := svc.Create(ctx, user.ID, domain.PlatformWeb, days(3), nil, nil)
		require.NoError(t, err)
		require.NotEmpty(t, session.ID)
		require.NotEmpty(t, session.Token)
		require.Equal(t, user.ID, session.UserID)
		require.WithinDuration(t, time.Now().UTC().Add(3*24*time.Hour), session.ExpiresAt, time.Minute)
	})

	t.Run("absent days selects the default", func(t *testing.T) {
		session, err := svc.Create(ctx, user.ID, domain.PlatformApp, nil, nil, nil)
		require.NoError(t, err)
		require.WithinDuration(t, time.Now().UTC().Add(7*24*time.Hour), session.ExpiresAt, time.Minute)
	})

	t.Run("rejects durations out of range", func(t *testing.T) {
		_, err := svc.Create(ctx, user.ID, domain.PlatformWeb, days(31), nil, nil)
		require.ErrorIs(t, err, ErrInvalidDuration)

		_, err = svc.Create(ctx, user.ID, domain.PlatformWeb, days(-1), nil, nil)
		require.ErrorIs(t, err, ErrInvalidDuration)

		// An explicit zero is a request, not an omission; it must fail.
		_, err = svc.Create(ctx, user.ID, domain.PlatformWeb, days(0), nil, nil)
		require.ErrorIs(t, err, ErrInvalidDuration)
	})

	t.Run("rejects unknown platforms", func(t *testing.T) {
		_, err := svc.Create(ctx, user.ID, domain.Platform("desktop"), days(7), nil, nil)
		require.ErrorIs(t, err, ErrValidation)
	})

	t.Run("records ip and user agent when given", func(t *testing.T) {
		ip, ua := "203.0.113.9", "test-agent/1.0"
		session, err := svc.Create(ctx, user.ID, domain.PlatformWeb, days(7), &ip, &ua)
		require.NoError(t, err)

		got, gotUser, err := svc.Resolve(ctx, session.Token)
		require.NoError(t, err)
		require.Equal(t, user.ID, gotUser.ID)
		require.NotNil(t, got.IPAddress)
		require.Equal(t, ip, *got.IPAddress)
		require.NotNil(t, got.UserAgent)
		require.Equal(t, ua, *got.UserAgent)
	})
}

func TestSessionResolve(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	tenant := seedTenant(t, st, "Acme")
	user := seedUser(t, st, tenant.ID, seedUserOpts{Email: "alice@example.com", Active: true})

	svc := &SessionService{Store: st, DefaultDays: 7}

	t.Run("resolves a valid token", func(t *testing.T) {
		created, err := svc.Create(ctx, user.ID, domain.PlatformWeb, days(7), nil, nil)
		require.NoError(t, err)

		session, gotUser, err := svc.Resolve(ctx, created.Token)
		require.NoError(t, err)
		require.Equal(t, created.ID, session.ID)
		require.Equal(t, user.ID, gotUser.ID)
	})

	t.Run("unknown token is not found", func(t *testing.T) {
		_, _, err := svc.Resolve(ctx, "no-such-token")
		require.ErrorIs(t, err, ErrSessionNotFound)
	})

	t.Run("empty token is not found", func(t *testing.T) {
		_, _, err := svc.Resolve(ctx, "")
		require.ErrorIs(t, err, ErrSessionNotFound)
	})

	t.Run("expired session resolves as not found", func(t *testing.T) {
		created, err := svc.Create(ctx, user.ID, domain.PlatformWeb, days(7), nil, nil)
		require.NoError(t, err)

		// Force the row into the past.
		require.NoError(t, st.Sessions().ExtendSession(ctx, created.ID, time.Now().UTC().Add(-time.Minute)))

		_, _, err = svc.Resolve(ctx, created.Token)
		require.ErrorIs(t, err, ErrSessionNotFound)
	})

	t.Run("session near expiry is renewed", func(t *testing.T) {
		created, err := svc.Create(ctx, user.ID, domain.PlatformWeb, days(7), nil, nil)
		require.NoError(t, err)

		// Move expiry inside the renewal window.
		nearExpiry := time.Now().UTC().Add(time.Hour)
		require.NoError(t, st.Sessions().ExtendSession(ctx, created.ID, nearExpiry))

		session, _, err := svc.Resolve(ctx, created.Token)
		require.NoError(t, err)
		require.WithinDuration(t, time.Now().UTC().Add(RenewalExtension), session.ExpiresAt, time.Minute)

		// The extension must be persisted, not just reported.
		again, _, err := svc.Resolve(ctx, created.Token)
		require.NoError(t, err)
		require.WithinDuration(t, session.ExpiresAt, again.ExpiresAt, time.Minute)
	})

	t.Run("session outside the window is not renewed", func(t *testing.T) {
		created, err := svc.Create(ctx, user.ID, domain.PlatformWeb, days(7), nil, nil)
		require.NoError(t, err)

		session, _, err := svc.Resolve(ctx, created.Token)
		require.NoError(t, err)
		require.WithinDuration(t, created.ExpiresAt, session.ExpiresAt, time.Second)
	})
}

func TestSessionInvalidate(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	tenant := seedTenant(t, st, "Acme")
	user := seedUser(t, st, tenant.ID, seedUserOpts{Email: "alice@example.com", Active: true})

	svc := &SessionService{Store: st, DefaultDays: 7}

	created, err := svc.Create(ctx, user.ID, domain.PlatformWeb, days(7), nil, nil)
	require.NoError(t, err)

	require.NoError(t, svc.Invalidate(ctx, created.Token))

	_, _, err = svc.Resolve(ctx, created.Token)
	require.ErrorIs(t, err, ErrSessionNotFound)

	// Idempotent: invalidating again (or an unknown token) is fine.
	require.NoError(t, svc.Invalidate(ctx, created.Token))
	require.NoError(t, svc.Invalidate(ctx, ""))
}
