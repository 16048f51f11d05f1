/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

ROUTER: chi
  Chi was chosen for:
  - Lightweight and fast
  - Context-based
  - Middleware support
  - RESTful route patterns

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for frontend

ROUTE GROUPS:
  /api/students/*       Student registration, moves, ledgers
  /api/rooms/*          Room inventory and history
  /api/fees/*           Price quotes
  /api/admin/*          Reconciliation and maintenance

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"

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

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Student routes
		r.Route("/students", func(r chi.Router) {
			r.Get("/", h.ListStudents)
			r.Post("/", h.RegisterStudent)
			r.Get("/{roll}", h.GetStudent)
			r.Delete("/{roll}", h.RemoveStudent)
			r.Post("/{roll}/allocate", h.AllocateRoom)
			r.Post("/{roll}/transfer", h.TransferRoom)
			r.Post("/{roll}/vacate", h.VacateRoom)
			r.Get("/{roll}/history", h.StudentHistory)
			r.Get("/{roll}/payments", h.StudentPayments)
			r.Get("/{roll}/payments/summary", h.PaymentSummary)
		})

		// Room routes
		r.Route("/rooms", func(r chi.Router) {
			r.Get("/", h.ListRooms)
			r.Post("/", h.CreateRoom)
			r.Get("/available", h.AvailableRooms)
			r.Get("/{no}", h.GetRoom)
			r.Get("/{no}/history", h.RoomHistory)
		})

		// Fee routes
		r.Route("/fees", func(r chi.Router) {
			r.Get("/quote", h.QuoteFee)
		})

		// Admin routes
		r.Route("/admin", func(r chi.Router) {
			r.Post("/reconcile", h.Reconcile)
			r.Post("/recount", h.RecountOccupancy)
			r.Post("/seed", h.SeedCatalog)
		})
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	return r
}
