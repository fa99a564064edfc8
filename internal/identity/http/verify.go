package http

import (
	"net/http"

	"github.com/nemunivers/identity/internal/identity/domain"
	"github.com/nemunivers/identity/internal/identity/service"
	"github.com/nemunivers/identity/pkg/httpx"
)

// VerifyHandler consumes an email verification token: the registration token
// activates the account, a new-email token rewrites the address.
type VerifyHandler struct {
	Verifications *service.VerificationService
}

func (h *VerifyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token string `json:"token"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.Verifications.ConsumeEmailVerification(r.Context(), req.Token)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"user": toUserResponse(user),
	})
}

// ResetRequestHandler starts a password or PIN reset. It always answers 204 so
// the endpoint can't be used to probe which addresses exist.
type ResetRequestHandler struct {
	Verifications *service.VerificationService
}

func (h *ResetRequestHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Provider string `json:"provider"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	provider := domain.Provider(req.Provider)
	if req.Provider == "" {
		provider = domain.ProviderCredential
	}

	if err := h.Verifications.RequestSecretReset(r.Context(), req.Email, provider); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ResetConfirmHandler consumes a reset token and stores the new secret.
type ResetConfirmHandler struct {
	Verifications *service.VerificationService
}

func (h *ResetConfirmHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token  string `json:"token"`
		Secret string `json:"secret"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.Verifications.ConfirmSecretReset(r.Context(), req.Token, req.Secret); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
