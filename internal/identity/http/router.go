package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/nemunivers/identity/internal/identity/service"
	"github.com/nemunivers/identity/internal/identity/store"
	"github.com/nemunivers/identity/pkg/httpx"
	"github.com/nemunivers/identity/pkg/slogx"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	startTime    time.Time
	buildVersion string
	logger       *slog.Logger

	// SecureCookies marks the session cookie Secure (production).
	SecureCookies bool

	Store         store.Store
	Sessions      *service.SessionService
	Credentials   *service.CredentialService
	Registration  *service.RegistrationService
	Verifications *service.VerificationService
	Invitations   *service.InvitationService
	Users         *service.UserService
}

func NewRouter(st store.Store, logger *slog.Logger, buildVersion string, secureCookies bool) *Router {
	r := &Router{
		Mux:           http.NewServeMux(),
		startTime:     time.Now(),
		buildVersion:  buildVersion,
		logger:        logger,
		SecureCookies: secureCookies,
		Store:         st,
	}

	// Default middleware chain: request logging first, then identity
	// resolution so rate limiters further in can key on the user id.
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
		r.withIdentity,
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAuth()
	r.registerAccount()
	r.registerInvitations()
	r.registerUsers()
	r.registerSystem()
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerAuth() {
	signUp := &SignUpHandler{Registration: r.Registration}
	signIn := &SignInHandler{Router: r}
	signOut := &SignOutHandler{Router: r}
	session := &SessionHandler{}
	verify := &VerifyHandler{Verifications: r.Verifications}
	reset := &ResetRequestHandler{Verifications: r.Verifications}
	resetConfirm := &ResetConfirmHandler{Verifications: r.Verifications}

	// Registration and sign-in are the brute-force targets: strict by IP.
	r.Mux.Handle("POST /v1/auth/sign-up",
		httpx.Chain(signUp, httpx.RateLimitByIP(httpx.StrictLimit)))
	r.Mux.Handle("POST /v1/auth/sign-in",
		httpx.Chain(signIn, httpx.RateLimitByIP(httpx.StrictLimit)))

	// Sign-out stays ungated so a stale cookie can still be cleared.
	r.Mux.Handle("POST /v1/auth/sign-out",
		httpx.Chain(signOut, httpx.RateLimitByUser(httpx.ModerateLimit)))
	r.Mux.Handle("GET /v1/auth/session",
		httpx.Chain(session,
			RequireAuthenticated,
			httpx.RateLimitByUser(httpx.LenientLimit),
		))

	// Token consumption endpoints: single-use tokens, strict by IP.
	r.Mux.Handle("POST /v1/auth/verify",
		httpx.Chain(verify, httpx.RateLimitByIP(httpx.StrictLimit)))
	r.Mux.Handle("POST /v1/auth/reset",
		httpx.Chain(reset, httpx.RateLimitByIP(httpx.StrictLimit)))
	r.Mux.Handle("POST /v1/auth/reset/confirm",
		httpx.Chain(resetConfirm, httpx.RateLimitByIP(httpx.StrictLimit)))
}

func (r *Router) registerAccount() {
	providers := &ProvidersHandler{Credentials: r.Credentials}
	secret := &SecretHandler{Credentials: r.Credentials}
	profile := &ProfileHandler{Users: r.Users, Verifications: r.Verifications}
	del := &SelfDeleteHandler{Router: r}

	r.Mux.Handle("GET /v1/account/providers",
		httpx.Chain(providers,
			RequireAuthenticated,
			httpx.RateLimitByUser(httpx.LenientLimit),
		))
	r.Mux.Handle("POST /v1/account/secret",
		httpx.Chain(http.HandlerFunc(secret.Create),
			RequireAuthenticated,
			httpx.RateLimitByUser(httpx.StrictLimit),
		))
	r.Mux.Handle("PUT /v1/account/secret",
		httpx.Chain(http.HandlerFunc(secret.Rotate),
			RequireAuthenticated,
			httpx.RateLimitByUser(httpx.StrictLimit),
		))
	r.Mux.Handle("PATCH /v1/account/profile",
		httpx.Chain(profile,
			RequireAuthenticated,
			httpx.RateLimitByUser(httpx.ModerateLimit),
		))
	r.Mux.Handle("DELETE /v1/account",
		httpx.Chain(del,
			RequireAuthenticated,
			httpx.RateLimitByUser(httpx.StrictLimit),
		))
}

func (r *Router) registerInvitations() {
	h := &InvitationsHandler{Router: r}

	// Public, token-keyed endpoints for the invitee.
	r.Mux.Handle("GET /v1/invitations/{token}",
		httpx.Chain(http.HandlerFunc(h.Resolve), httpx.RateLimitByIP(httpx.LenientLimit)))
	r.Mux.Handle("POST /v1/invitations/{token}/accept",
		httpx.Chain(http.HandlerFunc(h.Accept), httpx.RateLimitByIP(httpx.StrictLimit)))
	r.Mux.Handle("POST /v1/invitations/{token}/reject",
		httpx.Chain(http.HandlerFunc(h.Reject), httpx.RateLimitByIP(httpx.ModerateLimit)))

	// Administrative endpoints.
	r.Mux.Handle("POST /v1/invitations",
		httpx.Chain(http.HandlerFunc(h.Create),
			RequireAdministrator,
			httpx.RateLimitByUser(httpx.ModerateLimit),
		))
	r.Mux.Handle("DELETE /v1/invitations/{id}",
		httpx.Chain(http.HandlerFunc(h.Cancel),
			RequireAdministrator,
			httpx.RateLimitByUser(httpx.ModerateLimit),
		))
}

func (r *Router) registerUsers() {
	h := &UsersHandler{Users: r.Users}

	admin := func(next http.Handler) http.Handler {
		return httpx.Chain(next,
			RequireAdministrator,
			httpx.RateLimitByUser(httpx.ModerateLimit),
		)
	}

	r.Mux.Handle("GET /v1/users", admin(http.HandlerFunc(h.List)))
	r.Mux.Handle("PATCH /v1/users/role", admin(http.HandlerFunc(h.UpdateRole)))
	r.Mux.Handle("PATCH /v1/users/status", admin(http.HandlerFunc(h.UpdateStatus)))
	r.Mux.Handle("DELETE /v1/users", admin(http.HandlerFunc(h.Delete)))
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.buildVersion, r.startTime), httpx.RateLimitByIP(httpx.PublicLimit)))
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.Store), httpx.RateLimitByIP(httpx.PublicLimit)))
}
