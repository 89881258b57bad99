/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for the portal frontend

ROUTE GROUPS:
  /api/residents/*     Resident registry, dues, per-resident reservations
  /api/reservations/*  Reservation lifecycle
  /api/availability    Slot conflict check
  /api/quote           Amount-due quote

SECURITY NOTE:
  No authentication middleware. The engine trusts its caller; the portal's
  auth layer sits in front of it.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		// Resident routes
		r.Route("/residents", func(r chi.Router) {
			r.Get("/", h.ListResidents)
			r.Post("/", h.CreateResident)
			r.Get("/{id}", h.GetResident)
			r.Post("/{id}/payments", h.PostPayment)
			r.Get("/{id}/ledger", h.GetLedger)
			r.Get("/{id}/delinquency", h.GetDelinquency)
			r.Get("/{id}/reservations", h.ListResidentReservations)
		})

		// Reservation routes
		r.Route("/reservations", func(r chi.Router) {
			r.Post("/", h.CreateReservation)
			r.Get("/{id}", h.GetReservation)
			r.Post("/{id}/approve", h.ApproveReservation)
			r.Post("/{id}/reject", h.RejectReservation)
			r.Post("/{id}/cancel", h.CancelReservation)
			r.Post("/{id}/payments", h.RecordReservationPayment)
		})

		// Slot validation routes
		r.Get("/availability", h.CheckAvailability)
		r.Get("/quote", h.GetQuote)
	})

	return r
}
