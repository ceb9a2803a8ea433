/**
 * @description
 * This file sets up the HTTP router for the api-service. It defines the API
 * endpoints, associates them with their corresponding handlers, and applies
 * the session-auth middleware to everything behind the login boundary.
 *
 * @dependencies
 * - net/http: Standard Go library for HTTP functionality.
 * - github.com/go-chi/chi/v5: A lightweight and idiomatic router for Go.
 */

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Routes creates and returns the router for the api-service.
func Routes(h *Handlers, sessionSecret string) http.Handler {
	r := chi.NewRouter()

	// Add standard middleware for logging, panic recovery, and timeouts.
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("healthy"))
	})

	// Public auth endpoints.
	r.Post("/auth/register", h.RegisterHandler)
	r.Post("/auth/login", h.LoginHandler)

	// Group routes that require an authenticated session.
	r.Group(func(r chi.Router) {
		r.Use(SessionAuthMiddleware(sessionSecret))

		r.Post("/auth/change-password", h.ChangePasswordHandler)

		r.Get("/users", h.ListUsersHandler)
		r.Get("/users/{id}", h.GetUserHandler)
		r.Put("/users/{id}", h.UpdateUserHandler)
		r.Delete("/users/{id}", h.DeleteUserHandler)

		r.Post("/profiles", h.CreateProfileHandler)
		r.Get("/profiles", h.ListProfilesHandler)
		r.Get("/profiles/me", h.MyProfileHandler)
		r.Get("/profiles/{id}", h.GetProfileHandler)
		r.Put("/profiles/{id}", h.UpdateProfileHandler)
		r.Delete("/profiles/{id}", h.DeleteProfileHandler)

		r.Post("/cards", h.CreateCardHandler)
		r.Get("/cards", h.ListCardsHandler)
		r.Get("/cards/{id}", h.GetCardHandler)
		r.Patch("/cards/{id}", h.UpdateCardHandler)
		r.Delete("/cards/{id}", h.DeleteCardHandler)

		r.Post("/payments", h.CreatePaymentHandler)
		r.Get("/payments", h.ListPaymentsHandler)
		r.Get("/payments/pending", h.ListStalePendingPaymentsHandler)
		r.Get("/payments/{id}", h.GetPaymentHandler)
		r.Delete("/payments/{id}", h.DeletePaymentHandler)
	})

	return r
}
