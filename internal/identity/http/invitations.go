package http

import (
	"errors"
	"net/http"

	"github.com/nemunivers/identity/internal/identity/domain"
	"github.com/nemunivers/identity/internal/identity/service"
	"github.com/nemunivers/identity/pkg/httpx"
)

// InvitationsHandler covers both sides of the invitation flow: the invitee's
// public token endpoints and the administrator's management endpoints.
type InvitationsHandler struct {
	Router *Router
}

// Resolve renders a pending invitation for the accept page.
func (h *InvitationsHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	inv, tenant, err := h.Router.Invitations.Resolve(r.Context(), r.PathValue("token"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"invitation": toInvitationResponse(inv),
		"tenant":     toTenantResponse(tenant),
	})
}

// Accept creates the user from a pending invitation and signs them straight
// in; the invitation mail already proved address ownership.
func (h *InvitationsHandler) Accept(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
		Platform string `json:"platform"`
		Days     *int   `json:"days"` // nil selects the server default
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.Router.Invitations.Accept(r.Context(), service.AcceptInput{
		Token:    r.PathValue("token"),
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	platform := domain.Platform(req.Platform)
	if req.Platform == "" {
		platform = domain.PlatformWeb
	}
	ip := httpx.IPKeyExtractor(r)
	ua := r.UserAgent()
	session, err := h.Router.Sessions.Create(r.Context(), user.ID, platform, req.Days, &ip, &ua)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.SetSessionCookie(w, SessionCookie, session.Token, session.ExpiresAt, h.Router.SecureCookies)
	httpx.WriteJSON(w, http.StatusCreated, map[string]any{
		"session": toSessionResponse(session),
		"user":    toUserResponse(user),
	})
}

// Reject lets the invitee decline a pending invitation.
func (h *InvitationsHandler) Reject(w http.ResponseWriter, r *http.Request) {
	if err := h.Router.Invitations.Reject(r.Context(), r.PathValue("token")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Create issues a batch of invitations for the caller's tenant. Entries fail
// individually; the response reports each outcome.
func (h *InvitationsHandler) Create(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFromContext(r.Context())

	var req struct {
		Invitations []struct {
			Email string `json:"email"`
			Role  string `json:"role"`
		} `json:"invitations"`
		ExpiresInDays *int `json:"expires_in_days"` // nil selects the default
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	inputs := make([]service.InviteInput, 0, len(req.Invitations))
	for _, in := range req.Invitations {
		inputs = append(inputs, service.InviteInput{Email: in.Email, Role: domain.Role(in.Role)})
	}

	results, err := h.Router.Invitations.CreateInvitations(r.Context(),
		identity.User.TenantID, identity.User.ID, req.ExpiresInDays, inputs)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	type entry struct {
		Email      string              `json:"email"`
		Invitation *invitationResponse `json:"invitation,omitempty"`
		Error      string              `json:"error,omitempty"`
	}
	out := make([]entry, 0, len(results))
	for _, res := range results {
		e := entry{Email: res.Email}
		if res.Invitation != nil {
			inv := toInvitationResponse(*res.Invitation)
			e.Invitation = &inv
		}
		if res.Err != nil {
			e.Error = inviteErrorCode(res.Err)
		}
		out = append(out, e)
	}
	httpx.WriteJSON(w, http.StatusCreated, map[string]any{"results": out})
}

// inviteErrorCode flattens a per-entry failure into a stable code.
func inviteErrorCode(err error) string {
	switch {
	case errors.Is(err, service.ErrEmailTaken):
		return "email_taken"
	case errors.Is(err, service.ErrValidation):
		return "validation_failed"
	default:
		return "error"
	}
}

// Cancel withdraws one of the tenant's pending invitations by id.
func (h *InvitationsHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFromContext(r.Context())

	if err := h.Router.Invitations.Cancel(r.Context(), identity.User.TenantID, r.PathValue("id")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
