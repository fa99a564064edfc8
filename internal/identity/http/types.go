package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/nemunivers/identity/internal/identity/domain"
	"github.com/nemunivers/identity/internal/identity/service"
	"github.com/nemunivers/identity/pkg/httpx"
	"github.com/nemunivers/identity/pkg/slogx"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 1 << 20

// decodeJSON reads a JSON body into dst, rejecting unknown fields and
// oversized payloads. It writes the error response itself and reports
// success.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_body", "Request body must be valid JSON.")
		return false
	}
	return true
}

// writeServiceError maps service-layer sentinel errors onto HTTP statuses.
// Unrecognized errors become a logged 500 with no internal detail leaked.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrValidation):
		httpx.WriteError(w, http.StatusBadRequest, "validation_failed", err.Error())
	case errors.Is(err, service.ErrInvalidDuration):
		httpx.WriteError(w, http.StatusBadRequest, "invalid_session_duration", "Session duration must be between 1 and 30 days.")
	case errors.Is(err, service.ErrSecretConfirmation):
		httpx.WriteError(w, http.StatusBadRequest, "secret_confirmation_mismatch", "The new secret and its confirmation do not match.")
	case errors.Is(err, service.ErrSecretUnchanged):
		httpx.WriteError(w, http.StatusBadRequest, "secret_unchanged", "The new secret must differ from the current one.")
	case errors.Is(err, service.ErrBatchTooLarge):
		httpx.WriteError(w, http.StatusBadRequest, "batch_too_large", "Too many entries in one request.")
	case errors.Is(err, service.ErrInvalidCredentials):
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_credentials", "Invalid email or credentials.")
	case errors.Is(err, service.ErrUserDeactivated):
		httpx.WriteError(w, http.StatusForbidden, "user_deactivated", "This account has been deactivated.")
	case errors.Is(err, service.ErrEmailMismatch):
		httpx.WriteError(w, http.StatusForbidden, "email_mismatch", "The email address does not match the invitation.")
	case errors.Is(err, service.ErrEmailTaken):
		httpx.WriteError(w, http.StatusConflict, "email_taken", "This email address is already in use.")
	case errors.Is(err, service.ErrSlugTaken):
		httpx.WriteError(w, http.StatusConflict, "slug_taken", "An organization with this name already exists.")
	case errors.Is(err, service.ErrAccountExists):
		httpx.WriteError(w, http.StatusConflict, "account_exists", "An account for this provider already exists.")
	case errors.Is(err, service.ErrTokenNotFound):
		httpx.WriteError(w, http.StatusNotFound, "token_not_found", "This link is invalid or has expired.")
	case errors.Is(err, service.ErrUserNotFound),
		errors.Is(err, service.ErrAccountNotFound):
		httpx.WriteError(w, http.StatusNotFound, "not_found", "The requested resource does not exist.")
	case errors.Is(err, service.ErrSessionNotFound):
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "Authentication required.")
	default:
		slogx.FromContext(r.Context()).Error("request failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "Something went wrong.")
	}
}

// Response shapes. Secrets and tokens never appear in user/session payloads;
// the session token travels only in the cookie.

type tenantResponse struct {
	ID   string  `json:"id"`
	Name string  `json:"name"`
	Slug string  `json:"slug"`
	Logo *string `json:"logo,omitempty"`
}

type userResponse struct {
	ID            string    `json:"id"`
	TenantID      string    `json:"tenant_id"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	EmailVerified bool      `json:"email_verified"`
	Active        bool      `json:"active"`
	Role          string    `json:"role"`
	Image         *string   `json:"image,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

type sessionResponse struct {
	ID        string    `json:"id"`
	Platform  string    `json:"platform"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

type invitationResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	Status    string    `json:"status"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

func toTenantResponse(t domain.Tenant) tenantResponse {
	return tenantResponse{ID: t.ID, Name: t.Name, Slug: t.Slug, Logo: t.Logo}
}

func toUserResponse(u domain.User) userResponse {
	return userResponse{
		ID:            u.ID,
		TenantID:      u.TenantID,
		Name:          u.Name,
		Email:         u.Email,
		EmailVerified: u.EmailVerified,
		Active:        u.Active,
		Role:          string(u.Role),
		Image:         u.Image,
		CreatedAt:     u.CreatedAt,
	}
}

func toSessionResponse(s domain.Session) sessionResponse {
	return sessionResponse{
		ID:        s.ID,
		Platform:  string(s.Platform),
		ExpiresAt: s.ExpiresAt,
		CreatedAt: s.CreatedAt,
	}
}

func toInvitationResponse(i domain.Invitation) invitationResponse {
	return invitationResponse{
		ID:        i.ID,
		Email:     i.Email,
		Role:      string(i.Role),
		Status:    string(i.Status),
		ExpiresAt: i.ExpiresAt,
		CreatedAt: i.CreatedAt,
	}
}
