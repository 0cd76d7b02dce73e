package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/atinyakov/issuetracker/internal/middleware"
)

// NewRouter constructs and returns an HTTP handler that serves
// the issue tracker API.
//
// Routes:
//
//	GET    /healthz              → healthHandler.Health
//	POST   /api/auth/register    → authHandler.Register
//	POST   /api/auth/login       → authHandler.Login
//	POST   /api/auth/logout      → authHandler.Logout
//	GET    /api/auth/verify      → authHandler.Verify        (bearer)
//	GET    /api/issues           → issueHandler.List         (bearer)
//	POST   /api/issues           → issueHandler.Create       (bearer)
//	GET    /api/issues/{id}      → issueHandler.Get          (bearer)
//	PUT    /api/issues/{id}      → issueHandler.Update       (bearer)
//	DELETE /api/issues/{id}      → issueHandler.Delete       (bearer)
//
// Middleware chain (applied in order):
//  1. RequestID, Recoverer
//  2. WithRequestLogging(logger)
//  3. CORS
//  4. AllowContentType("application/json") for requests with a body
//  5. BearerAuth on the protected routes, verified by authHandler.AuthService
func NewRouter(
	authHandler *AuthHandler,
	issueHandler *IssueHandler,
	healthHandler *HealthHandler,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.WithRequestLogging(logger))
	r.Use(middleware.CORS)
	r.Use(chiMiddleware.AllowContentType("application/json"))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.Get("/healthz", healthHandler.Health)

	bearer := middleware.BearerAuth(authHandler.AuthService)

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
			r.Post("/logout", authHandler.Logout)
			r.With(bearer).Get("/verify", authHandler.Verify)
		})

		r.Route("/issues", func(r chi.Router) {
			r.Use(bearer)
			r.Get("/", issueHandler.List)
			r.Post("/", issueHandler.Create)
			r.Get("/{id}", issueHandler.Get)
			r.Put("/{id}", issueHandler.Update)
			r.Delete("/{id}", issueHandler.Delete)
		})
	})

	return r
}
