package routes

import (
	"github.com/calebmartin/daybook/internal/handlers"
	"github.com/calebmartin/daybook/internal/middleware"
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all application routes. Session and
// role gating is enforced upstream by the edge request gate; the
// credential endpoints additionally carry an IP rate limit.
func RegisterRoutes(
	router chi.Router,
	authHandler *handlers.AuthHandler,
	userHandler *handlers.UserHandler,
	adminHandler *handlers.AdminHandler,
) {
	rateLimitConfig := middleware.DefaultAuthRateLimit()

	// Credential endpoints, reachable without a session
	router.With(middleware.RateLimitByIP(rateLimitConfig)).Post("/auth/login", authHandler.Login)
	router.With(middleware.RateLimitByIP(rateLimitConfig)).Post("/auth/register", userHandler.Register)
	router.Post("/auth/refresh", authHandler.Refresh)

	// Session endpoints
	router.Post("/auth/logout", authHandler.Logout)
	router.Get("/auth/session", authHandler.Session)

	// Account endpoints
	router.Get("/api/profile", userHandler.Me)
	router.Put("/api/profile/preferences", userHandler.UpdatePreferences)
	router.Put("/api/profile/password", userHandler.ChangePassword)

	// Admin endpoints
	router.Route("/api/admin", func(r chi.Router) {
		r.Get("/users", adminHandler.ListUsers)
		r.Put("/users/{userID}/role", adminHandler.AssignRole)
		r.Put("/users/{userID}/status", adminHandler.SetStatus)
		r.Get("/audit", adminHandler.AuditTrail)
	})
}
