package http

import (
	"net/http"

	"github.com/nemunivers/identity/internal/identity/domain"
	"github.com/nemunivers/identity/internal/identity/service"
	"github.com/nemunivers/identity/pkg/httpx"
)

// SignUpHandler creates a tenant with its founding administrator. The caller
// is NOT signed in afterwards; the account activates through the verification
// mail.
type SignUpHandler struct {
	Registration *service.RegistrationService
}

func (h *SignUpHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TenantName string `json:"tenant_name"`
		Name       string `json:"name"`
		Email      string `json:"email"`
		Password   string `json:"password"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.Registration.RegisterTenant(r.Context(), service.RegisterTenantInput{
		TenantName: req.TenantName,
		UserName:   req.Name,
		Email:      req.Email,
		Password:   req.Password,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, map[string]any{
		"tenant": toTenantResponse(result.Tenant),
		"user":   toUserResponse(result.User),
	})
}

// SignInHandler exchanges an email/secret pair for a session cookie.
type SignInHandler struct {
	Router *Router
}

func (h *SignInHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Secret   string `json:"secret"`
		Provider string `json:"provider"`
		Platform string `json:"platform"`
		Days     *int   `json:"days"` // nil selects the server default
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	provider := domain.Provider(req.Provider)
	if req.Provider == "" {
		provider = domain.ProviderCredential
	}
	platform := domain.Platform(req.Platform)
	if req.Platform == "" {
		platform = domain.PlatformWeb
	}

	user, err := h.Router.Credentials.Authorize(r.Context(), req.Email, req.Secret, provider)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	ip := httpx.IPKeyExtractor(r)
	ua := r.UserAgent()
	session, err := h.Router.Sessions.Create(r.Context(), user.ID, platform, req.Days, &ip, &ua)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	// The cookie expires with the session.
	httpx.SetSessionCookie(w, SessionCookie, session.Token, session.ExpiresAt, h.Router.SecureCookies)
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"session": toSessionResponse(session),
		"user":    toUserResponse(user),
	})
}

// SignOutHandler invalidates the session behind the cookie and clears it.
// Idempotent: a stale or missing cookie still clears and returns 204.
type SignOutHandler struct {
	Router *Router
}

func (h *SignOutHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(SessionCookie); err == nil {
		if err := h.Router.Sessions.Invalidate(r.Context(), cookie.Value); err != nil {
			writeServiceError(w, r, err)
			return
		}
	}

	httpx.ClearSessionCookie(w, SessionCookie, h.Router.SecureCookies)
	w.WriteHeader(http.StatusNoContent)
}

// SessionHandler returns the resolved caller: session, user and tenant.
type SessionHandler struct{}

func (h *SessionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	identity, ok := IdentityFromContext(r.Context())
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "Authentication required.")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"session": toSessionResponse(identity.Session),
		"user":    toUserResponse(identity.User),
		"tenant":  toTenantResponse(identity.Tenant),
	})
}
