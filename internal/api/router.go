// Table - Anti-Fraud Detection and Alerting for Online Card Games
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/elevow/table-sub009

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/elevow/table-sub009/internal/auth"
	"github.com/elevow/table-sub009/internal/config"
	"github.com/elevow/table-sub009/internal/metrics"
	"github.com/elevow/table-sub009/internal/middleware"
)

// RouterConfig wires a Handler into a chi router.
type RouterConfig struct {
	Handler  *Handler
	Security config.SecurityConfig
	// JWT may be nil when Security.AuthMode is "none".
	JWT *auth.JWTManager
}

// NewRouter builds the admin API router.
//
// Middleware order, outermost first: request id, real ip, access log,
// panic recovery, security headers, CORS, metrics. Rate limiting and auth
// apply to /api/v1 only.
func NewRouter(cfg RouterConfig) http.Handler {
	h := cfg.Handler
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.AccessLog)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.SecurityHeaders)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Security.CORSOrigins,
		AllowedMethods:   []string{"GET", "PATCH", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type", middleware.RequestIDHeader},
		ExposedHeaders:   []string{middleware.RequestIDHeader, "X-Alert-Source"},
		AllowCredentials: false,
		MaxAge:           86400,
	}))
	r.Use(middleware.PrometheusMetrics)

	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(rateLimit(cfg.Security))

		r.Get("/health", h.Health)

		r.Group(func(r chi.Router) {
			r.Use(requireAdmin(cfg.Security, cfg.JWT))

			r.Get("/alerts", h.ListAlerts)
			r.Get("/alerts/{id}", h.GetAlert)
			r.Patch("/alerts/{id}", h.UpdateAlertStatus)
			r.Post("/scan", h.TriggerScan)
			r.Post("/events/logins", h.IngestLogins)
			r.Post("/events/hands", h.IngestHands)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, http.StatusNotFound, codeNotFound, "Route not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
	})

	return r
}

// rateLimit limits requests per client IP using go-chi/httprate.
func rateLimit(cfg config.SecurityConfig) func(http.Handler) http.Handler {
	if cfg.RateLimitDisabled {
		return func(next http.Handler) http.Handler { return next }
	}

	window := cfg.RateLimitWindow
	if window <= 0 {
		window = time.Minute
	}

	return httprate.Limit(
		cfg.RateLimitRequests,
		window,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			metrics.APIRateLimitHits.WithLabelValues("/api/v1").Inc()
			respondError(w, http.StatusTooManyRequests, codeRateLimited, "Too many requests", nil)
		}),
	)
}

// actorFromRequest names the token subject for audit logs.
func actorFromRequest(r *http.Request) string {
	if c := auth.ClaimsFromContext(r.Context()); c != nil && c.Subject != "" {
		return sanitizeLogValue(c.Subject)
	}
	return "anonymous"
}
