package routes

import (
	"github.com/BradenHooton/gamegate/internal/auth"
	"github.com/BradenHooton/gamegate/internal/handlers"
	"github.com/BradenHooton/gamegate/internal/middleware"
	"github.com/BradenHooton/gamegate/internal/models"
	"github.com/go-chi/chi/v5"
)

// Handlers bundles everything RegisterRoutes mounts.
type Handlers struct {
	Auth   *handlers.AuthHandler
	Games  *handlers.GameResultHandler
	System *handlers.SystemHandler
}

// RegisterRoutes registers all application routes
func RegisterRoutes(router chi.Router, h Handlers, tokenManager *auth.TokenManager, accounts auth.AccountLookup) {
	authLimit := middleware.RateLimitByIP(middleware.DefaultAuthRateLimit())
	apiLimit := middleware.RateLimitByIP(middleware.DefaultAPIRateLimit())
	requireSession := auth.AuthMiddleware(tokenManager, accounts)

	router.Get("/", h.System.Root)
	router.Get("/health", h.System.Health)
	router.NotFound(h.System.NotFound)

	router.Route("/api/auth", func(r chi.Router) {
		// Public, credential-bearing endpoints
		r.Group(func(r chi.Router) {
			r.Use(authLimit)
			r.Post("/register", h.Auth.Register)
			r.Post("/verify-email", h.Auth.VerifyEmail)
			r.Post("/login/request-otp", h.Auth.RequestLoginOTP)
			r.Post("/login/verify-otp", h.Auth.VerifyLoginOTP)
			r.Post("/login/password", h.Auth.LoginWithPassword)
			r.Post("/forgot-password", h.Auth.ForgotPassword)
			r.Post("/reset-password", h.Auth.ResetPassword)
		})

		r.Group(func(r chi.Router) {
			r.Use(apiLimit, requireSession)
			r.Put("/change-password", h.Auth.ChangePassword)
			r.Get("/profile", h.Auth.Profile)
		})
	})

	router.Route("/api/game", func(r chi.Router) {
		r.Use(apiLimit)
		r.Get("/game-results", h.Games.List)
		r.With(requireSession, auth.RequireRole(models.RoleAdmin)).Post("/game-results/add", h.Games.Add)
	})
}
