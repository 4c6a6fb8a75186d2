package api

import (
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/stupiduntilnot/chatrelay/internal/api/middleware"
	"github.com/stupiduntilnot/chatrelay/internal/chat"
)

const maxBodyBytes = 64 * 1024

// NewRouter creates and configures the HTTP router. db may be nil when
// persistence is disabled.
func NewRouter(logger zerolog.Logger, svc *chat.Service, db Pinger) *chi.Mux {
	r := chi.NewRouter()

	// Metrics first to capture all requests
	r.Use(middleware.Metrics)

	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.MaxBodySize(maxBodyBytes))

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger(logger))
	r.Use(chimw.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-Id"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	h := NewHandler(svc, db, logger.With().Str("component", "api").Logger())

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/health", h.Health)

	r.Route("/api/chat", func(r chi.Router) {
		r.Post("/ask", h.Ask)
		r.Get("/history", h.History)
		r.Delete("/history", h.Reset)
		r.Put("/message/{id}", h.UpdateMessage)
		r.Post("/message/{id}/edit_regen", h.EditAndRegenerate)
	})

	return r
}
