package http

import (
	"net/http"

	"github.com/nemunivers/identity/internal/identity/domain"
	"github.com/nemunivers/identity/internal/identity/service"
	"github.com/nemunivers/identity/pkg/httpx"
)

// ProvidersHandler reports which sign-in providers the caller has configured.
type ProvidersHandler struct {
	Credentials *service.CredentialService
}

func (h *ProvidersHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFromContext(r.Context())

	usage, err := h.Credentials.ProviderUsage(r.Context(), identity.User.ID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	providers := make(map[string]bool, len(usage))
	for p, used := range usage {
		providers[string(p)] = used
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"providers": providers})
}

// SecretHandler manages the caller's own secrets: Create adds a provider the
// user doesn't have yet, Rotate changes an existing one.
type SecretHandler struct {
	Credentials *service.CredentialService
}

func (h *SecretHandler) Create(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFromContext(r.Context())

	var req struct {
		Provider string `json:"provider"`
		Secret   string `json:"secret"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	err := h.Credentials.CreateSecret(r.Context(), identity.User.ID, domain.Provider(req.Provider), req.Secret)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (h *SecretHandler) Rotate(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFromContext(r.Context())

	var req struct {
		Provider string `json:"provider"`
		Current  string `json:"current"`
		Secret   string `json:"secret"`
		Confirm  string `json:"confirm"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	err := h.Credentials.ChangeSecret(r.Context(), identity.User.ID,
		domain.Provider(req.Provider), req.Current, req.Secret, req.Confirm)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ProfileHandler updates the caller's display name and image. A changed email
// address is not applied directly; it triggers a confirmation mail to the new
// address and takes effect when that token is consumed.
type ProfileHandler struct {
	Users         *service.UserService
	Verifications *service.VerificationService
}

func (h *ProfileHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFromContext(r.Context())

	var req struct {
		Name  *string `json:"name"`
		Image *string `json:"image"`
		Email *string `json:"email"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	name := identity.User.Name
	if req.Name != nil {
		name = *req.Name
	}
	image := identity.User.Image
	if req.Image != nil {
		if *req.Image == "" {
			image = nil
		} else {
			image = req.Image
		}
	}

	user, err := h.Users.UpdateProfile(r.Context(), identity.User.ID, identity.User.TenantID, name, image)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	emailPending := false
	if req.Email != nil && service.NormalizeEmail(*req.Email) != service.NormalizeEmail(user.Email) {
		if err := h.Verifications.RequestEmailChange(r.Context(), user.ID, *req.Email); err != nil {
			writeServiceError(w, r, err)
			return
		}
		emailPending = true
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"user":                 toUserResponse(user),
		"email_change_pending": emailPending,
	})
}

// SelfDeleteHandler removes the caller's own user and clears the cookie.
type SelfDeleteHandler struct {
	Router *Router
}

func (h *SelfDeleteHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFromContext(r.Context())

	if err := h.Router.Users.DeleteSelf(r.Context(), identity.User.TenantID, identity.User.ID); err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.ClearSessionCookie(w, SessionCookie, h.Router.SecureCookies)
	w.WriteHeader(http.StatusNoContent)
}
