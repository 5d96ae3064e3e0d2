// Pelorus - Vessel Tracking and Live Fleet Map
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pelorus

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/tomtom215/pelorus/internal/auth"
	"github.com/tomtom215/pelorus/internal/config"
	"github.com/tomtom215/pelorus/internal/middleware"
)

// Router assembles the chi route tree over the handler set.
type Router struct {
	handler       *Handler
	middleware    *auth.Middleware
	chiMiddleware *ChiMiddleware
}

// NewRouter creates the router. The auth middleware decides per-route
// whether requests carry credentials; in mode none it passes everything
// through.
func NewRouter(handler *Handler, authMiddleware *auth.Middleware) *Router {
	var sec *config.SecurityConfig
	if handler != nil && handler.config != nil {
		sec = &handler.config.Security
	}

	return &Router{
		handler:       handler,
		middleware:    authMiddleware,
		chiMiddleware: NewChiMiddlewareFromConfig(sec),
	}
}

// chiMiddleware adapts http.HandlerFunc middleware to chi's
// func(http.Handler) http.Handler so the handler-style middleware can
// be mounted with r.Use().
func chiMiddleware(mw func(http.HandlerFunc) http.HandlerFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return mw(next.ServeHTTP)
	}
}

// SetupChi configures all HTTP routes.
func (router *Router) SetupChi() http.Handler {
	r := chi.NewRouter()

	// Global middleware, applied to every route in order
	r.Use(chiMiddleware(middleware.RequestID)) // X-Request-ID header plus logging context
	r.Use(chimiddleware.RealIP)                // Extract real IP from X-Forwarded-For
	r.Use(chimiddleware.Recoverer)             // Recover from handler panics
	r.Use(router.chiMiddleware.CORS())         // CORS must be global to handle OPTIONS preflight

	// Health endpoints: permissive rate limiting so monitoring can poll
	// frequently
	r.Route("/api/v1/health", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimitHealth())
		r.Use(APISecurityHeaders())
		r.Get("/live", router.handler.HealthLive)
		r.Get("/ready", router.handler.HealthReady)
		r.Get("/", router.handler.Health)
	})

	// Login carries the strictest rate limit to slow credential stuffing
	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Use(APISecurityHeaders())
		r.With(router.chiMiddleware.RateLimitLogin()).Post("/login", router.middleware.HandleLogin)
	})

	// Data endpoints. Reads stay open so any map client can consume the
	// fleet; the enrichment write and operational stats require
	// credentials whenever an auth mode is configured.
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimit())
		r.Use(APISecurityHeaders())
		r.Use(chiMiddleware(middleware.PrometheusMetrics))
		r.Use(chiMiddleware(middleware.Compression))

		r.Get("/vessels", router.handler.Vessels)
		r.Get("/vessels/{mmsi}", router.handler.Vessel)
		r.Get("/vessels/{mmsi}/route", router.handler.VesselRoute)

		r.With(router.chiMiddleware.RateLimitWrite()).
			Put("/vessels/{mmsi}/enrichment", router.middleware.RequireRole("editor", router.handler.VesselEnrichment))

		r.Get("/stats", router.middleware.Authenticate(router.handler.Stats))
	})

	// Live map stream. Mounted outside the API group: compression must
	// not touch the upgrade, and viewers have their own connect-rate
	// budget.
	r.With(router.chiMiddleware.RateLimitWebSocket()).Get("/ws", router.handler.WebSocket)

	// Observability
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
		httpSwagger.DeepLinking(true),
		httpSwagger.DocExpansion("list"),
		httpSwagger.DomID("swagger-ui"),
	))

	return r
}
