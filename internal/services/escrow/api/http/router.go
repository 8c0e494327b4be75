// Package http serves the read-only JSON gateway used by display clients.
package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/taliva/escrow/internal/services/escrow/query"
)

// Handler serves gateway requests.
type Handler struct {
	query   *query.Service
	metrics http.Handler
	logger  zerolog.Logger
	ready   func() bool
}

// Options configures the gateway.
type Options struct {
	// Metrics serves /metrics; nil leaves the route unregistered.
	Metrics http.Handler
	// Ready reports whether the service has finished loading; nil means
	// always ready.
	Ready  func() bool
	Logger zerolog.Logger
}

// NewHandler builds a gateway handler over q.
func NewHandler(q *query.Service, opts Options) *Handler {
	return &Handler{
		query:   q,
		metrics: opts.Metrics,
		logger:  opts.Logger.With().Str("component", "http").Logger(),
		ready:   opts.Ready,
	}
}

// NewRouter mounts the gateway routes.
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(h.loggingMiddleware)

	r.Get("/healthz", h.health)
	if h.metrics != nil {
		r.Method(http.MethodGet, "/metrics", h.metrics)
	}

	r.Route("/v1", func(r chi.Router) {
		r.Route("/campaigns", func(r chi.Router) {
			r.Get("/", h.listCampaigns)
			r.Get("/{campaignID}", h.getCampaign)
			r.Get("/{campaignID}/activity", h.listActivity)
		})
		r.Get("/investors/{investorID}/portfolio", h.getPortfolio)
	})
	return r
}
