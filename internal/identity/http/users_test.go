package http

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

// inviteMember runs the invite-accept flow and returns the new member's
// session cookie and user id.
func inviteMember(t *testing.T, rt *Router, sender *captureSender, admin *http.Cookie, email, role string) (*http.Cookie, string) {
	t.Helper()
	mailed := len(sender.Sent())

	rec := doJSON(t, rt, http.MethodPost, "/v1/invitations", map[string]any{
		"invitations": []map[string]any{{"email": email, "role": role}},
	}, admin)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	mails := waitForMail(t, sender, mailed+1)
	token := extractToken(t, mails[mailed].TextBody)

	rec = doJSON(t, rt, http.MethodPost, "/v1/invitations/"+token+"/accept", map[string]any{
		"name":     "Member",
		"email":    email,
		"password": "password-123",
	}, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	body := decodeBody(t, rec)
	return sessionCookie(t, rec), body["user"].(map[string]any)["id"].(string)
}

func TestUsersList(t *testing.T) {
	rt, sender := newTestRouter(t)
	admin := registerTenant(t, rt, sender, "Acme", "ada@example.com", "password-123")
	inviteMember(t, rt, sender, admin, "bob@example.com", "user")

	rec := doJSON(t, rt, http.MethodGet, "/v1/users", nil, admin)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decodeBody(t, rec)
	require.EqualValues(t, 2, body["total"])
	require.Len(t, body["users"].([]any), 2)

	t.Run("role filter", func(t *testing.T) {
		rec := doJSON(t, rt, http.MethodGet, "/v1/users?role=admin", nil, admin)
		require.Equal(t, http.StatusOK, rec.Code)
		body := decodeBody(t, rec)
		require.EqualValues(t, 1, body["total"])
		require.Equal(t, "ada@example.com", body["users"].([]any)[0].(map[string]any)["email"])
	})

	t.Run("query filter", func(t *testing.T) {
		rec := doJSON(t, rt, http.MethodGet, "/v1/users?q=bob", nil, admin)
		require.Equal(t, http.StatusOK, rec.Code)
		require.EqualValues(t, 1, decodeBody(t, rec)["total"])
	})

	t.Run("pagination", func(t *testing.T) {
		rec := doJSON(t, rt, http.MethodGet, "/v1/users?per_page=1&page=2&sort=email", nil, admin)
		require.Equal(t, http.StatusOK, rec.Code)
		body := decodeBody(t, rec)
		require.EqualValues(t, 2, body["total"])
		require.Len(t, body["users"].([]any), 1)
		require.EqualValues(t, 2, body["page"])
	})

	t.Run("bad boolean filter", func(t *testing.T) {
		rec := doJSON(t, rt, http.MethodGet, "/v1/users?active=maybe", nil, admin)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestUsersBulkOps(t *testing.T) {
	rt, sender := newTestRouter(t)
	admin := registerTenant(t, rt, sender, "Acme", "ada@example.com", "password-123")
	memberCookie, memberID := inviteMember(t, rt, sender, admin, "bob@example.com", "user")

	// The admin's own id, taken from the session endpoint.
	rec := doJSON(t, rt, http.MethodGet, "/v1/auth/session", nil, admin)
	require.Equal(t, http.StatusOK, rec.Code)
	adminID := decodeBody(t, rec)["user"].(map[string]any)["id"].(string)

	t.Run("role update skips the actor", func(t *testing.T) {
		rec := doJSON(t, rt, http.MethodPatch, "/v1/users/role", map[string]any{
			"user_ids": []string{memberID, adminID},
			"role":     "admin",
		}, admin)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		body := decodeBody(t, rec)
		require.Equal(t, []any{memberID}, body["updated"].([]any))
		require.Equal(t, []any{adminID}, body["skipped"].([]any))

		// And back again.
		rec = doJSON(t, rt, http.MethodPatch, "/v1/users/role", map[string]any{
			"user_ids": []string{memberID},
			"role":     "user",
		}, admin)
		require.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("unknown ids report missing", func(t *testing.T) {
		rec := doJSON(t, rt, http.MethodPatch, "/v1/users/status", map[string]any{
			"user_ids": []string{"nonexistent"},
			"active":   false,
		}, admin)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, []any{"nonexistent"}, decodeBody(t, rec)["missing"].([]any))
	})

	t.Run("deactivation locks the member out", func(t *testing.T) {
		rec := doJSON(t, rt, http.MethodPatch, "/v1/users/status", map[string]any{
			"user_ids": []string{memberID},
			"active":   false,
		}, admin)
		require.Equal(t, http.StatusOK, rec.Code)

		// Existing session now hits the active gate.
		rec = doJSON(t, rt, http.MethodGet, "/v1/auth/session", nil, memberCookie)
		require.Equal(t, http.StatusForbidden, rec.Code)

		// Sign-in is refused with a distinguishable error.
		rec = doJSON(t, rt, http.MethodPost, "/v1/auth/sign-in", map[string]any{
			"email":  "bob@example.com",
			"secret": "password-123",
		}, nil)
		require.Equal(t, http.StatusForbidden, rec.Code)
		require.Contains(t, rec.Body.String(), "user_deactivated")
	})

	t.Run("delete removes the member", func(t *testing.T) {
		rec := doJSON(t, rt, http.MethodDelete, "/v1/users", map[string]any{
			"user_ids": []string{memberID, adminID},
		}, admin)
		require.Equal(t, http.StatusOK, rec.Code)

		body := decodeBody(t, rec)
		require.Equal(t, []any{memberID}, body["updated"].([]any))
		require.Equal(t, []any{adminID}, body["skipped"].([]any))

		rec = doJSON(t, rt, http.MethodGet, "/v1/users", nil, admin)
		require.EqualValues(t, 1, decodeBody(t, rec)["total"])
	})
}

func TestUsersAdminGate(t *testing.T) {
	rt, sender := newTestRouter(t)
	admin := registerTenant(t, rt, sender, "Acme", "ada@example.com", "password-123")
	member, _ := inviteMember(t, rt, sender, admin, "bob@example.com", "user")

	for _, tc := range []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/v1/users"},
		{http.MethodPatch, "/v1/users/role"},
		{http.MethodPatch, "/v1/users/status"},
		{http.MethodDelete, "/v1/users"},
	} {
		rec := doJSON(t, rt, tc.method, tc.path, nil, member)
		require.Equal(t, http.StatusForbidden, rec.Code, "%s %s as member", tc.method, tc.path)

		rec = doJSON(t, rt, tc.method, tc.path, nil, nil)
		require.Equal(t, http.StatusUnauthorized, rec.Code, "%s %s anonymous", tc.method, tc.path)
	}
}
