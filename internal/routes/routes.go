package routes

import (
	"github.com/go-chi/chi/v5"
	"github.com/magnetacademy/tma-server/internal/auth"
	"github.com/magnetacademy/tma-server/internal/handlers"
	"github.com/magnetacademy/tma-server/internal/middleware"
)

// RegisterRoutes registers all application routes
func RegisterRoutes(
	router chi.Router,
	authHandler *handlers.AuthHandler,
	pageHandler *handlers.PageHandler,
	codec *auth.TokenCodec,
) {
	// Rate limiting config for auth endpoints
	rateLimitConfig := middleware.DefaultAuthRateLimit()

	// Auth API. Login gets a per-IP request ceiling on top of the
	// per-username and per-origin limiters inside the service.
	router.With(middleware.RateLimitByIP(rateLimitConfig)).Post("/api/auth/login", authHandler.Login)
	router.Post("/api/auth/logout", authHandler.Logout)
	router.Get("/api/auth/me", authHandler.Me)

	// Admin pages. The guard handles login-route redirects, session
	// checks, and role checks for the sensitive sections.
	router.Group(func(r chi.Router) {
		r.Use(auth.AdminPageGuard(codec))
		r.Get("/admin", pageHandler.LoginPage)
		r.Get("/admin/dashboard", pageHandler.Dashboard)
		r.Get("/admin/*", pageHandler.Section)
	})
}
