/**
 * @description
 * This file sets up the HTTP router for the payment-processor. The processing
 * endpoint sits behind the service-auth middleware; only the health check is
 * open.
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

	"github.com/vaultpay/payments-backend/pkg/servicetoken"
)

// Routes creates and returns the router for the payment-processor.
func Routes(h *ProcessorHandlers, verifier *servicetoken.Verifier) http.Handler {
	r := chi.NewRouter()

	// Add standard middleware for logging, panic recovery, and timeouts.
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("healthy"))
	})

	r.Group(func(r chi.Router) {
		r.Use(ServiceAuthMiddleware(verifier))
		r.Post("/process-payment", h.ProcessPaymentHandler)
	})

	return r
}
