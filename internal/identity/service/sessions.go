package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/nemunivers/identity/internal/identity/domain"
	"github.com/nemunivers/identity/internal/identity/store"
	"github.com/nemunivers/identity/pkg/cryptox"
	"github.com/nemunivers/identity/pkg/idx"
	"github.com/nemunivers/identity/pkg/slogx"
)

// Session duration bounds (whole days) and the sliding-renewal policy: a
// session resolved within RenewalWindow of its expiry is extended to
// now + RenewalExtension.
const (
	MinSessionDays = 1
	MaxSessionDays = 30

	RenewalWindow    = 24 * time.Hour
	RenewalExtension = 72 * time.Hour
)

type SessionService struct {
	Store store.Store

	// DefaultDays is used when Create is called with days == nil.
	DefaultDays int
}

// Create issues a fresh session for a user. An explicit days value must be
// within [MinSessionDays, MaxSessionDays]; only nil selects the configured
// default, so a caller sending zero is rejected rather than silently
// defaulted.
func (s *SessionService) Create(ctx context.Context, userID string, platform domain.Platform, days *int, ipAddress, userAgent *string) (domain.Session, error) {
	d := s.DefaultDays
	if days != nil {
		d = *days
	}
	if d < MinSessionDays || d > MaxSessionDays {
		return domain.Session{}, ErrInvalidDuration
	}
	if !platform.Valid() {
		return domain.Session{}, validationErr("unknown platform %q", platform)
	}

	token, err := cryptox.GenerateToken(cryptox.TokenSize512)
	if err != nil {
		return domain.Session{}, err
	}

	now := time.Now().UTC()
	session := domain.Session{
		ID:        idx.New().String(),
		Token:     token,
		UserID:    userID,
		Platform:  platform,
		IPAddress: ipAddress,
		UserAgent: userAgent,
		ExpiresAt: now.Add(time.Duration(d) * 24 * time.Hour),
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.Store.Sessions().CreateSession(ctx, session); err != nil {
		return domain.Session{}, err
	}

	slogx.FromContext(ctx).Info("session created",
		slog.String("session_id", session.ID),
		slog.String("user_id", userID),
		slog.String("platform", string(platform)),
	)
	return session, nil
}

// Resolve exchanges a bearer token for its session and user. Expired sessions
// resolve as not found (lazy expiry; housekeeping deletes the rows later).
// A session inside the renewal window is transparently extended.
func (s *SessionService) Resolve(ctx context.Context, token string) (domain.Session, domain.User, error) {
	if token == "" {
		return domain.Session{}, domain.User{}, ErrSessionNotFound
	}

	session, err := s.Store.Sessions().GetSessionByToken(ctx, token)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Session{}, domain.User{}, ErrSessionNotFound
		}
		return domain.Session{}, domain.User{}, err
	}

	now := time.Now().UTC()
	if session.Expired(now) {
		return domain.Session{}, domain.User{}, ErrSessionNotFound
	}

	if session.ExpiresAt.Sub(now) <= RenewalWindow {
		renewed := now.Add(RenewalExtension)
		if err := s.Store.Sessions().ExtendSession(ctx, session.ID, renewed); err != nil {
			// Renewal is best-effort; the session is still valid as-is.
			slogx.FromContext(ctx).Warn("session renewal failed",
				slog.String("session_id", session.ID),
				slog.Any("err", err),
			)
		} else {
			session.ExpiresAt = renewed
			session.UpdatedAt = now
		}
	}

	user, err := s.Store.Users().GetUserByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// User deleted out from under the session.
			return domain.Session{}, domain.User{}, ErrSessionNotFound
		}
		return domain.Session{}, domain.User{}, err
	}

	return session, user, nil
}

// Invalidate deletes the session behind a token. Unknown tokens are not an
// error; sign-out is idempotent.
func (s *SessionService) Invalidate(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}

	existed, err := s.Store.Sessions().DeleteSessionByToken(ctx, token)
	if err != nil {
		return err
	}
	if existed {
		slogx.FromContext(ctx).Info("session invalidated")
	}
	return nil
}
