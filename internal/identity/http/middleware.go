package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/nemunivers/identity/internal/identity/domain"
	"github.com/nemunivers/identity/internal/identity/service"
	"github.com/nemunivers/identity/internal/identity/store"
	"github.com/nemunivers/identity/pkg/httpx"
	"github.com/nemunivers/identity/pkg/slogx"
)

// SessionCookie is the name of the bearer-token cookie.
const SessionCookie = "session"

// Identity is the resolved caller: session, user and tenant, looked up once
// per request by the identity middleware and reused by every handler behind
// it.
type Identity struct {
	Session domain.Session
	User    domain.User
	Tenant  domain.Tenant
}

type identityCtxKey struct{}

// IdentityFromContext returns the resolved caller, if any. Handlers behind
// RequireAuthenticated can rely on ok being true.
func IdentityFromContext(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(identityCtxKey{}).(*Identity)
	return id, ok
}

// withIdentity resolves the session cookie into an Identity and stores it in
// the request context. Anonymous requests pass through untouched; this
// middleware never rejects, the Require* tiers do.
func (rt *Router) withIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(SessionCookie)
		if err != nil || cookie.Value == "" {
			next.ServeHTTP(w, r)
			return
		}

		ctx := r.Context()
		session, user, err := rt.Sessions.Resolve(ctx, cookie.Value)
		if err != nil {
			if !errors.Is(err, service.ErrSessionNotFound) {
				slogx.FromContext(ctx).Error("session resolution failed", "err", err)
			}
			// Stale cookie: continue anonymously.
			next.ServeHTTP(w, r)
			return
		}

		tenant, err := rt.Store.Tenants().GetTenantByID(ctx, user.TenantID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				// Orphaned tenant reference: treat the caller as anonymous.
				slogx.FromContext(ctx).Warn("session user has no tenant",
					"user_id", user.ID, "tenant_id", user.TenantID)
				next.ServeHTTP(w, r)
				return
			}
			slogx.FromContext(ctx).Error("tenant lookup failed", "err", err)
			httpx.WriteError(w, http.StatusInternalServerError, "server_error", "Something went wrong.")
			return
		}

		identity := &Identity{Session: session, User: user, Tenant: tenant}
		ctx = context.WithValue(ctx, identityCtxKey{}, identity)
		// Expose the user id for per-user rate limiting.
		ctx = context.WithValue(ctx, httpx.CtxKeyUserID, user.ID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAuthenticated rejects anonymous callers with 401 and deactivated
// users with 403.
func RequireAuthenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := IdentityFromContext(r.Context())
		if !ok {
			httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "Authentication required.")
			return
		}
		if !identity.User.Active {
			httpx.WriteError(w, http.StatusForbidden, "user_deactivated", "This account has been deactivated.")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdministrator layers the admin check on top of RequireAuthenticated.
func RequireAdministrator(next http.Handler) http.Handler {
	return RequireAuthenticated(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, _ := IdentityFromContext(r.Context())
		if identity.User.Role != domain.RoleAdministrator {
			httpx.WriteError(w, http.StatusForbidden, "forbidden", "Administrator access required.")
			return
		}
		next.ServeHTTP(w, r)
	}))
}
