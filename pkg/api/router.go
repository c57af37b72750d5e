package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
)

// RouterOptions carries the optional mounts.
type RouterOptions struct {
	CORSOrigins []string
	Metrics     http.Handler     // mounted at /metrics when set
	Stream      http.HandlerFunc // mounted at /ws when set
	Logger      *zerolog.Logger
}

// NewRouter builds the HTTP surface.
func NewRouter(h *Handler, opts RouterOptions) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	if opts.Logger != nil {
		r.Use(RequestLogger(*opts.Logger))
	}
	r.Use(chimiddleware.Recoverer)

	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", h.HealthCheck)
	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics)
	}
	if opts.Stream != nil {
		r.Get("/ws", opts.Stream)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(chimiddleware.Timeout(15 * time.Second))

		r.Get("/status", h.GetStatus)

		// Board
		r.Get("/matches", h.GetMatches)
		r.Get("/matches/live", h.GetLive)
		r.Get("/matches/finished", h.GetFinished)
		r.Get("/matches/{category}", h.GetCategory)

		// Enrichment
		r.Post("/matches/{id}/analysis", h.RequestMatchAnalysis)
		r.Get("/matches/{id}/analysis", h.GetMatchAnalysis)
		r.Post("/analysis/market", h.RequestMarketAnalysis)
		r.Get("/analysis/market", h.GetMarketAnalysis)

		// Session
		r.Get("/history", h.GetHistory)
		r.Get("/alerts", h.GetAlerts)
		r.Post("/radar", h.SetRadar)
		r.Post("/refresh", h.Refresh)
	})

	return r
}
