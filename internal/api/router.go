package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

const healthPath = "/api/v1/health"

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/metrics", s.handleMetrics)

		r.Route("/topology", func(r chi.Router) {
			r.Get("/", s.handleTopology)
			r.Get("/document", s.handleDocument)
			r.Get("/report", s.handleReport)

			r.Post("/reload", s.handleReload)
			r.Post("/save", s.handleSave)
			r.Post("/start", s.handleStart)

			r.Route("/originators", func(r chi.Router) {
				r.Get("/", s.handleListOriginators)
				r.Get("/{id}", s.handleGetOriginator)
			})
		})

		r.Get("/journal", s.handleListJournal)
	})

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
	})
}
