package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
)

// NewRouter builds and returns the Chi router with all routes configured.
// The landing page, health endpoint, and sign-in/up endpoints are
// unauthenticated; everything touching session state requires a session
// token. Rate limiting is applied globally: 60 requests per minute per IP.
func NewRouter(handlers *Handlers, resolver SessionResolver, pingers map[string]Pinger, log *slog.Logger) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(httprate.LimitByIP(60, time.Minute))

	r.Get("/", ServeIndex)
	r.Get("/api/v1/health", HealthHandlerFunc(pingers, log))
	r.Post("/api/v1/auth/register", handlers.Register)
	r.Post("/api/v1/auth/login", handlers.Login)

	r.Group(func(r chi.Router) {
		r.Use(SessionAuth(resolver))
		r.Post("/api/v1/auth/logout", handlers.Logout)
		r.Get("/api/v1/session", handlers.GetSession)
		r.Put("/api/v1/session/preferences", handlers.UpdatePreferences)
		r.Post("/api/v1/session/messages", handlers.SendMessage)
		r.Get("/api/v1/cities/{city}", handlers.GetCity)
	})

	return r
}

// Ensure chi.Mux implements http.Handler.
var _ http.Handler = (*chi.Mux)(nil)
