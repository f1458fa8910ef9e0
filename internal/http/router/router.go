package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"authflow/internal/domain"
	"authflow/internal/health"
	"authflow/internal/http/handler"
	"authflow/internal/http/middleware"
	"authflow/internal/http/response"
	"authflow/internal/security"
	"authflow/internal/service"
)

type Dependencies struct {
	AuthHandler     *handler.AuthHandler
	OAuthHandler    *handler.OAuthHandler
	UserHandler     *handler.UserHandler
	SettingsHandler *handler.SettingsHandler
	AdminHandler    *handler.AdminHandler
	SessionTokens   *security.SessionTokenManager
	SessionService  *service.SessionService
	CORSOrigins     []string
	APIRateLimitRPM int
	TokenLimitRPM   int
	GlobalLimiter   func(http.Handler) http.Handler
	TokenLimiter    func(http.Handler) http.Handler
	Readiness       *health.ProbeRunner
	EnableOTelHTTP  bool
}

func NewRouter(dep Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestLogger)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.CORS(dep.CORSOrigins))
	r.Use(middleware.BodyLimit(1 << 20))
	if dep.GlobalLimiter != nil {
		r.Use(dep.GlobalLimiter)
	} else {
		r.Use(middleware.NewRateLimiter(dep.APIRateLimitRPM, time.Minute).Middleware())
	}

	// Endpoints that mint or consume emailed tokens share a tighter window.
	tokenLimiter := dep.TokenLimiter
	if tokenLimiter == nil {
		tokenLimiter = middleware.NewRateLimiter(dep.TokenLimitRPM, time.Minute).Middleware()
	}

	sessionGate := middleware.SessionMiddleware(dep.SessionTokens, dep.SessionService)

	r.Get("/health/live", func(w http.ResponseWriter, r *http.Request) {
		response.Success(w, r, http.StatusOK, "", map[string]string{"status": "ok"})
	})
	r.Get("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		if dep.Readiness == nil {
			response.Success(w, r, http.StatusOK, "", map[string]any{"status": "ready", "checks": []any{}})
			return
		}
		ready, results := dep.Readiness.Ready(r.Context())
		if ready {
			response.Success(w, r, http.StatusOK, "", map[string]any{"status": "ready", "checks": results})
			return
		}
		response.Error(w, r, http.StatusServiceUnavailable, "DEPENDENCY_UNREADY", "dependencies are not ready", map[string]any{"checks": results})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.With(tokenLimiter).Post("/login", dep.AuthHandler.Login)
			r.With(tokenLimiter).Post("/register", dep.AuthHandler.Register)
			r.With(tokenLimiter).Post("/verify-email", dep.AuthHandler.VerifyEmail)
			r.With(tokenLimiter).Post("/reset-password", dep.AuthHandler.RequestPasswordReset)
			r.With(tokenLimiter).Post("/new-password", dep.AuthHandler.CompletePasswordReset)
			r.Post("/logout", dep.AuthHandler.Logout)
			if dep.OAuthHandler != nil {
				r.With(tokenLimiter).Get("/{provider}/login", dep.OAuthHandler.Login)
				r.With(tokenLimiter).Get("/{provider}/callback", dep.OAuthHandler.Callback)
			}
		})

		r.Group(func(r chi.Router) {
			r.Use(sessionGate)
			r.Get("/me", dep.UserHandler.Me)
			r.Patch("/me/settings", dep.SettingsHandler.Update)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(sessionGate)
			r.Use(middleware.RequireRole(string(domain.RoleAdmin)))
			r.Get("/ping", dep.AdminHandler.Ping)
		})
	})

	var h http.Handler = r
	if dep.EnableOTelHTTP {
		h = otelhttp.NewHandler(r, "http.server")
	}
	return h
}
