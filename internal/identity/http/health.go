package http

import (
	"net/http"
	"time"

	"github.com/nemunivers/identity/internal/identity/store"
	"github.com/nemunivers/identity/pkg/httpx"
)

// LivezHandler answers liveness probes: the process is up.
func LivezHandler(version string, start time.Time) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, map[string]any{
			"status":  "ok",
			"version": version,
			"uptime":  time.Since(start).Round(time.Second).String(),
		})
	})
}

// ReadyzHandler answers readiness probes: the database is reachable.
func ReadyzHandler(st store.Store) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := st.Ping(r.Context()); err != nil {
			httpx.WriteError(w, http.StatusServiceUnavailable, "not_ready", "Database is unreachable.")
			return
		}
		httpx.WriteJSON(w, http.StatusOK, map[string]any{"status": "ok"})
	})
}
