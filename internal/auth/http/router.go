package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/opkit/authd/internal/auth/service"
	"github.com/opkit/authd/internal/auth/store"
	"github.com/opkit/authd/pkg/httpx"
	"github.com/opkit/authd/pkg/slogx"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store          store.Store
	SessionService *service.SessionService
	AccountService *service.AccountService
	SocialService  *service.SocialService
}

func NewRouter(buildVersion string, st store.Store, logger *slog.Logger) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		logger:       logger,
	}

	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAuth()
	r.registerSocial()
	r.registerUsers()
	r.registerSystem()
}

// ServeHTTP implements http.Handler for Router and applies the global
// middleware chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerAuth() {
	registerHandler := &RegisterHandler{AccountService: r.AccountService}
	r.Mux.Handle("POST /v1/auth/register",
		httpx.Chain(registerHandler,
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	// Strict per-IP limit; the opaque invalid_credentials response already
	// blunts per-account probing.
	loginHandler := &LoginHandler{AccountService: r.AccountService}
	r.Mux.Handle("POST /v1/auth/login",
		httpx.Chain(loginHandler,
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	refreshHandler := &RefreshHandler{SessionService: r.SessionService}
	r.Mux.Handle("POST /v1/auth/refresh",
		httpx.Chain(refreshHandler,
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)

	logoutHandler := &LogoutHandler{SessionService: r.SessionService}
	r.Mux.Handle("POST /v1/auth/logout",
		httpx.Chain(logoutHandler,
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)

	logoutAllHandler := &LogoutAllHandler{SessionService: r.SessionService}
	r.Mux.Handle("POST /v1/auth/logout-all",
		httpx.Chain(logoutAllHandler,
			httpx.AuthnMiddleware(r.SessionService),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)
}

func (r *Router) registerSocial() {
	authURL := &SocialAuthURLHandler{SocialService: r.SocialService}
	r.Mux.Handle("GET /v1/auth/social/{provider}/url",
		httpx.Chain(authURL,
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)

	h := &SocialLoginHandler{SocialService: r.SocialService}
	r.Mux.Handle("POST /v1/auth/social/{provider}",
		httpx.Chain(h,
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	links := &LinksHandler{SocialService: r.SocialService}

	securedList := httpx.Chain(http.HandlerFunc(links.HandleList),
		httpx.AuthnMiddleware(r.SessionService),
		httpx.RateLimitByUser(httpx.ModerateLimit),
	)
	securedLink := httpx.Chain(http.HandlerFunc(links.HandleLink),
		httpx.AuthnMiddleware(r.SessionService),
		httpx.RateLimitByUser(httpx.ModerateLimit),
	)
	securedUnlink := httpx.Chain(http.HandlerFunc(links.HandleUnlink),
		httpx.AuthnMiddleware(r.SessionService),
		httpx.RateLimitByUser(httpx.ModerateLimit),
	)

	r.Mux.Handle("GET /v1/users/me/links", securedList)
	r.Mux.Handle("POST /v1/users/me/links/{provider}", securedLink)
	r.Mux.Handle("DELETE /v1/users/me/links/{provider}", securedUnlink)
}

func (r *Router) registerUsers() {
	h := &UsersHandler{
		AccountService: r.AccountService,
		SessionService: r.SessionService,
	}

	securedMe := httpx.Chain(http.HandlerFunc(h.HandleMe),
		httpx.AuthnMiddleware(r.SessionService),
		httpx.RateLimitByUser(httpx.LenientLimit),
	)
	securedDelete := httpx.Chain(http.HandlerFunc(h.HandleDelete),
		httpx.AuthnMiddleware(r.SessionService),
		httpx.RateLimitByUser(httpx.ModerateLimit),
	)
	securedSessions := httpx.Chain(http.HandlerFunc(h.HandleSessions),
		httpx.AuthnMiddleware(r.SessionService),
		httpx.RateLimitByUser(httpx.LenientLimit),
	)
	securedPassword := httpx.Chain(http.HandlerFunc(h.HandleChangePassword),
		httpx.AuthnMiddleware(r.SessionService),
		httpx.RateLimitByUser(httpx.ModerateLimit),
	)

	r.Mux.Handle("GET /v1/users/me", securedMe)
	r.Mux.Handle("DELETE /v1/users/me", securedDelete)
	r.Mux.Handle("GET /v1/users/me/sessions", securedSessions)
	r.Mux.Handle("POST /v1/users/me/password", securedPassword)

	// Verification tokens are their own bearer credential, so no authn
	// middleware here; strict limit since the token is guessable in theory.
	verify := &VerifyEmailHandler{AccountService: r.AccountService}
	r.Mux.Handle("POST /v1/users/me/verify-email",
		httpx.Chain(verify,
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
}

func (r *Router) registerSystem() {
	// Health check endpoints - lenient rate limits (monitoring systems may poll frequently)
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
}
