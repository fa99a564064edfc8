package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nemunivers/identity/internal/identity/service"
	"github.com/nemunivers/identity/internal/identity/store/drivers/sqlite"
	"github.com/nemunivers/identity/pkg/cryptox"
	"github.com/nemunivers/identity/pkg/mailx"
	"github.com/stretchr/testify/require"
)

// testCost keeps bcrypt cheap in tests.
const testCost = cryptox.MinCost

// captureSender records messages instead of delivering them.
type captureSender struct {
	mu   sync.Mutex
	sent []mailx.Message
}

func (c *captureSender) Send(_ context.Context, msg mailx.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, msg)
	return nil
}

func (c *captureSender) Sent() []mailx.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]mailx.Message, len(c.sent))
	copy(out, c.sent)
	return out
}

// newTestRouter wires a full router over an in-memory store.
func newTestRouter(t *testing.T) (*Router, *captureSender) {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	sender := &captureSender{}
	dispatcher := mailx.NewDispatcher(sender)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = dispatcher.Shutdown(ctx)
	})

	composer := &service.MailComposer{
		From:    "noreply@identity.test",
		BaseURL: "https://identity.test",
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	rt := NewRouter(st, logger, "test", false)
	rt.Sessions = &service.SessionService{Store: st, DefaultDays: 7}
	rt.Credentials = &service.CredentialService{Store: st, BcryptCost: testCost}
	rt.Registration = &service.RegistrationService{Store: st, Mail: sender, Composer: composer, BcryptCost: testCost}
	rt.Verifications = &service.VerificationService{Store: st, Mail: dispatcher, Composer: composer, BcryptCost: testCost}
	rt.Invitations = &service.InvitationService{Store: st, Mail: dispatcher, Composer: composer, BcryptCost: testCost}
	rt.Users = &service.UserService{Store: st}
	rt.ApplyRoutes()

	return rt, sender
}

// doJSON performs one request against the router with an optional JSON body
// and session cookie.
func doJSON(t *testing.T, rt *Router, method, path string, body any, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}

	rec := httptest.NewRecorder()
	rt.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

// sessionCookie pulls the session cookie out of a response.
func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == SessionCookie {
			return c
		}
	}
	t.Fatal("no session cookie in response")
	return nil
}

// extractToken pulls the token query parameter out of a mailed link.
func extractToken(t *testing.T, body string) string {
	t.Helper()
	_, rest, found := strings.Cut(body, "?token=")
	require.True(t, found, "mail body carries no token link")
	token := rest
	for _, stop := range []string{"\n", " "} {
		if cut, _, ok := strings.Cut(token, stop); ok {
			token = cut
		}
	}
	return token
}

// waitForMail blocks until the capture sender holds at least n messages.
func waitForMail(t *testing.T, sender *captureSender, n int) []mailx.Message {
	t.Helper()
	require.Eventually(t, func() bool {
		return len(sender.Sent()) >= n
	}, 2*time.Second, 5*time.Millisecond)
	return sender.Sent()
}

// registerTenant signs up a tenant, activates the administrator via the
// mailed token, and returns a signed-in session cookie.
func registerTenant(t *testing.T, rt *Router, sender *captureSender, tenantName, email, password string) *http.Cookie {
	t.Helper()

	rec := doJSON(t, rt, http.MethodPost, "/v1/auth/sign-up", map[string]any{
		"tenant_name": tenantName,
		"name":        "Founding Admin",
		"email":       email,
		"password":    password,
	}, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	mails := sender.Sent()
	require.NotEmpty(t, mails)
	token := extractToken(t, mails[len(mails)-1].TextBody)

	rec = doJSON(t, rt, http.MethodPost, "/v1/auth/verify", map[string]any{"token": token}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	return signIn(t, rt, email, password)
}

// signIn exchanges credentials for a session cookie.
func signIn(t *testing.T, rt *Router, email, password string) *http.Cookie {
	t.Helper()

	rec := doJSON(t, rt, http.MethodPost, "/v1/auth/sign-in", map[string]any{
		"email":  email,
		"secret": password,
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return sessionCookie(t, rec)
}
