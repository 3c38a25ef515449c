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
  /api/jobs/*           Job and bonus-catalog management
  /api/bonuses/*        Catalog bonus removal
  /api/shifts/*         Shift history and manual entry
  /api/tracker/*        Live tracking state machine
  /api/achievements     Achievement catalog state
  /api/summary          History-wide aggregates

SECURITY NOTE:
  No authentication middleware currently. All endpoints are public.

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
		// Job routes
		r.Route("/jobs", func(r chi.Router) {
			r.Get("/", h.ListJobs)
			r.Post("/", h.CreateJob)
			r.Get("/{id}", h.GetJob)
			r.Put("/{id}", h.UpdateJob)
			r.Delete("/{id}", h.DeleteJob)
			r.Post("/{id}/bonuses", h.AddBonus)
		})

		// Bonus routes
		r.Route("/bonuses", func(r chi.Router) {
			r.Delete("/{id}", h.DeleteBonus)
		})

		// Shift routes
		r.Route("/shifts", func(r chi.Router) {
			r.Get("/", h.ListShifts)
			r.Post("/", h.CreateShift)
			r.Get("/{id}", h.GetShift)
			r.Put("/{id}", h.UpdateShift)
			r.Delete("/{id}", h.DeleteShift)
		})

		// Tracker routes
		r.Route("/tracker", func(r chi.Router) {
			r.Get("/", h.TrackerStatus)
			r.Post("/start", h.StartTracking)
			r.Post("/stop", h.StopTracking)
		})

		// Achievement routes
		r.Get("/achievements", h.ListAchievements)

		// Summary route
		r.Get("/summary", h.Summary)
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	return r
}
