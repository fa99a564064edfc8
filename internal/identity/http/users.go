package http

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/nemunivers/identity/internal/identity/domain"
	"github.com/nemunivers/identity/internal/identity/service"
	"github.com/nemunivers/identity/internal/identity/store"
	"github.com/nemunivers/identity/pkg/httpx"
)

// UsersHandler covers the administrative user management surface.
type UsersHandler struct {
	Users *service.UserService
}

// List returns a filtered, paged view of the caller's tenant.
//
// Query parameters: q, name, email, role (comma-separated), active, verified,
// page, per_page, sort (name|email|role|created_at), order (asc|desc).
func (h *UsersHandler) List(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFromContext(r.Context())
	q := r.URL.Query()

	f := store.UserFilters{
		Query:  q.Get("q"),
		Name:   q.Get("name"),
		Email:  q.Get("email"),
		SortBy: q.Get("sort"),
	}
	if roles := q.Get("role"); roles != "" {
		for _, role := range strings.Split(roles, ",") {
			f.Roles = append(f.Roles, domain.Role(strings.TrimSpace(role)))
		}
	}
	if v := q.Get("active"); v != "" {
		active, err := strconv.ParseBool(v)
		if err != nil {
			httpx.WriteError(w, http.StatusBadRequest, "validation_failed", "active must be a boolean.")
			return
		}
		f.Active = &active
	}
	if v := q.Get("verified"); v != "" {
		verified, err := strconv.ParseBool(v)
		if err != nil {
			httpx.WriteError(w, http.StatusBadRequest, "validation_failed", "verified must be a boolean.")
			return
		}
		f.EmailVerified = &verified
	}
	f.Page, _ = strconv.Atoi(q.Get("page"))
	f.PerPage, _ = strconv.Atoi(q.Get("per_page"))
	f.SortDesc = q.Get("order") == "desc"

	page, err := h.Users.List(r.Context(), identity.User.TenantID, f)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	users := make([]userResponse, 0, len(page.Users))
	for _, u := range page.Users {
		users = append(users, toUserResponse(u))
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"users":    users,
		"total":    page.Total,
		"page":     page.Page,
		"per_page": page.PerPage,
	})
}

func (h *UsersHandler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFromContext(r.Context())

	var req struct {
		UserIDs []string `json:"user_ids"`
		Role    string   `json:"role"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	out, err := h.Users.UpdateRoles(r.Context(), identity.User.TenantID, identity.User.ID,
		req.UserIDs, domain.Role(req.Role))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeBulkOutcome(w, out)
}

func (h *UsersHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFromContext(r.Context())

	var req struct {
		UserIDs []string `json:"user_ids"`
		Active  *bool    `json:"active"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Active == nil {
		httpx.WriteError(w, http.StatusBadRequest, "validation_failed", "active is required.")
		return
	}

	out, err := h.Users.UpdateStatus(r.Context(), identity.User.TenantID, identity.User.ID,
		req.UserIDs, *req.Active)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeBulkOutcome(w, out)
}

func (h *UsersHandler) Delete(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFromContext(r.Context())

	var req struct {
		UserIDs []string `json:"user_ids"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	out, err := h.Users.Delete(r.Context(), identity.User.TenantID, identity.User.ID, req.UserIDs)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeBulkOutcome(w, out)
}

func writeBulkOutcome(w http.ResponseWriter, out service.BulkOutcome) {
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"updated": emptyIfNil(out.Updated),
		"skipped": emptyIfNil(out.Skipped),
		"missing": emptyIfNil(out.Missing),
	})
}

// emptyIfNil keeps bulk outcome arrays as [] instead of null in JSON.
func emptyIfNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
