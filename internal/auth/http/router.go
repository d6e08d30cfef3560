// Package http is the thin request layer over the auth core. It decodes
// JSON, maps service outcomes onto status codes, and mints the opaque bearer
// sessions handed back on authenticated logins.
package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/tovera/authcore/internal/auth/service"
	"github.com/tovera/authcore/internal/auth/store"
	"github.com/tovera/authcore/pkg/httpx"
	"github.com/tovera/authcore/pkg/slogx"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store store.Store

	AccountService   *service.AccountService
	LoginService     *service.LoginService
	TwoFactorService *service.TwoFactorService
	AdminService     *service.AdminService
	SessionService   *service.SessionService
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
	strict := httpx.NewRateLimiter(httpx.StrictLimit)
	moderate := httpx.NewRateLimiter(httpx.ModerateLimit)

	authn := r.requireSession
	admin := r.requireAdmin

	// Credential endpoints: unauthenticated, strictly rate limited.
	r.Mux.Handle("POST /v1/auth/register", strict.Middleware(http.HandlerFunc(r.handleRegister)))
	r.Mux.Handle("POST /v1/auth/login", strict.Middleware(http.HandlerFunc(r.handleLogin)))
	r.Mux.Handle("POST /v1/auth/login/2fa", strict.Middleware(http.HandlerFunc(r.handleLoginTwoFactor)))

	// Account-scoped operations behind a session.
	r.Mux.Handle("POST /v1/auth/password", moderate.Middleware(authn(http.HandlerFunc(r.handleChangePassword))))
	r.Mux.Handle("POST /v1/2fa/setup", moderate.Middleware(authn(http.HandlerFunc(r.handleTwoFactorSetup))))
	r.Mux.Handle("POST /v1/2fa/setup/complete", moderate.Middleware(authn(http.HandlerFunc(r.handleTwoFactorSetupComplete))))
	r.Mux.Handle("POST /v1/2fa/disable", moderate.Middleware(authn(http.HandlerFunc(r.handleTwoFactorDisable))))
	r.Mux.Handle("POST /v1/2fa/backup-codes", moderate.Middleware(authn(http.HandlerFunc(r.handleRegenerateBackupCodes))))

	// Administrative surface.
	r.Mux.Handle("GET /v1/admin/settings", authn(admin(http.HandlerFunc(r.handleGetSettings))))
	r.Mux.Handle("PUT /v1/admin/settings", authn(admin(http.HandlerFunc(r.handleUpdateSettings))))
	r.Mux.Handle("POST /v1/admin/2fa/reset/{id}", authn(admin(http.HandlerFunc(r.handleResetTwoFactor))))
	r.Mux.Handle("POST /v1/admin/2fa/reset-all", authn(admin(http.HandlerFunc(r.handleResetTwoFactorAll))))

	r.Mux.HandleFunc("GET /livez", r.handleLivez)
	r.Mux.HandleFunc("GET /readyz", r.handleReadyz)
}

// ServeHTTP implements http.Handler and applies the global middleware chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}
