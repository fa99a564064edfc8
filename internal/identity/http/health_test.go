package http

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLivez(t *testing.T) {
	rt, _ := newTestRouter(t)

	rec := doJSON(t, rt, http.MethodGet, "/livez", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	require.Equal(t, "ok", body["status"])
	require.Equal(t, "test", body["version"])
}

func TestReadyz(t *testing.T) {
	rt, _ := newTestRouter(t)

	rec := doJSON(t, rt, http.MethodGet, "/readyz", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ok", decodeBody(t, rec)["status"])
}

func TestRateLimitOnSignIn(t *testing.T) {
	rt, _ := newTestRouter(t)

	// Burn through the strict per-IP budget with bad credentials.
	var last int
	for range 10 {
		rec := doJSON(t, rt, http.MethodPost, "/v1/auth/sign-in", map[string]any{
			"email":  "ghost@example.com",
			"secret": "password-123",
		}, nil)
		last = rec.Code
		if last == http.StatusTooManyRequests {
			require.NotEmpty(t, rec.Header().Get("Retry-After"))
			return
		}
	}
	t.Fatalf("sign-in was never rate limited, last status %d", last)
}
