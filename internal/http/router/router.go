package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/memberkit/credential-service/internal/domain"
	"github.com/memberkit/credential-service/internal/health"
	"github.com/memberkit/credential-service/internal/http/handler"
	"github.com/memberkit/credential-service/internal/http/middleware"
	"github.com/memberkit/credential-service/internal/http/response"
)

const defaultBodyLimit = 1 << 20

type Dependencies struct {
	AuthHandler      *handler.AuthHandler
	UserHandler      *handler.UserHandler
	AdminHandler     *handler.AdminHandler
	TokenParser      middleware.AccessTokenParser
	CORSOrigins      []string
	AuthRateLimitRPM int
	APIRateLimitRPM  int
	AuthRateLimiter  AuthRateLimiterFunc
	APIRateLimiter   APIRateLimiterFunc
	Readiness        *health.ProbeRunner
	EnableOTelHTTP   bool
}

type AuthRateLimiterFunc func(http.Handler) http.Handler
type APIRateLimiterFunc func(http.Handler) http.Handler

func NewRouter(dep Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.StructuredRequestLogger)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.CORS(dep.CORSOrigins))
	r.Use(middleware.BodyLimit(defaultBodyLimit))

	apiLimiter := dep.APIRateLimiter
	if apiLimiter == nil {
		apiLimiter = middleware.NewRateLimiter(dep.APIRateLimitRPM, time.Minute, "api").Middleware()
	}
	authLimiter := dep.AuthRateLimiter
	if authLimiter == nil {
		authLimiter = middleware.NewRateLimiter(dep.AuthRateLimitRPM, time.Minute, "auth").Middleware()
	}
	requireAuth := middleware.AuthMiddleware(dep.TokenParser)

	r.Get("/health/live", func(w http.ResponseWriter, r *http.Request) {
		response.JSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		if dep.Readiness == nil {
			response.JSON(w, r, http.StatusOK, map[string]any{"status": "ready", "checks": []any{}})
			return
		}
		ready, results := dep.Readiness.Ready(r.Context())
		if ready {
			response.JSON(w, r, http.StatusOK, map[string]any{"status": "ready", "checks": results})
			return
		}
		response.Error(w, r, http.StatusServiceUnavailable, "DEPENDENCY_UNREADY", "dependencies are not ready", map[string]any{"checks": results})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(apiLimiter)

		r.Route("/auth", func(r chi.Router) {
			r.Use(authLimiter, middleware.NoStore)
			r.Post("/register", dep.AuthHandler.Register)
			r.Post("/activate", dep.AuthHandler.Activate)
			r.Post("/activate/resend", dep.AuthHandler.ResendActivation)
			r.Post("/login", dep.AuthHandler.Login)
			r.Post("/password/forgot", dep.AuthHandler.ForgotPassword)
			r.Post("/password/reset", dep.AuthHandler.ResetPassword)
			r.With(requireAuth).Post("/password/change", dep.AuthHandler.ChangePassword)
		})

		r.Group(func(r chi.Router) {
			r.Use(requireAuth, middleware.NoStore)
			r.Get("/account", dep.UserHandler.Account)
			r.Post("/account", dep.UserHandler.UpdateAccount)
		})

		r.Get("/members/{username}", dep.UserHandler.MemberProfile)
		r.Get("/members/{username}/{section}", dep.UserHandler.MemberProfile)

		r.Route("/admin", func(r chi.Router) {
			r.Use(requireAuth, middleware.NoStore)
			r.Use(middleware.RequireRole(domain.RoleAdmin, domain.RoleSuperadmin))
			r.Get("/users", dep.AdminHandler.ListUsers)
			r.Get("/users/{id}", dep.AdminHandler.GetUser)
			r.Post("/users/{id}/ban", dep.AdminHandler.Ban)
			r.Post("/users/{id}/unban", dep.AdminHandler.Unban)
			r.Put("/users/{id}/permissions", dep.AdminHandler.SetPermissions)
		})
	})

	var h http.Handler = r
	if dep.EnableOTelHTTP {
		h = otelhttp.NewHandler(r, "http.server")
	}
	return h
}
