// Pelorus - Vessel Tracking and Live Fleet Map
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pelorus

/*
Package middleware provides HTTP middleware components for the API surface.

This package implements infrastructure middleware for gzip compression,
request ID tracking, and Prometheus metrics instrumentation. These components
work alongside the authentication middleware and the chi router middleware to
form the complete request processing stack.

Key Components:

  - Compression: Gzip compression for GET responses
  - Request ID: UUID-based request tracking threaded into the logging context
  - Prometheus Metrics: HTTP request/response instrumentation keyed by route
    pattern rather than raw path, so per-vessel URLs do not explode the
    endpoint label cardinality

Middleware Stack:

The router composes these per route group. A typical API endpoint passes
through:

	chi RequestID / RealIP / Recoverer    // outer chi stack
	CORS + rate limiting                  // router-level policy
	middleware.PrometheusMetrics          // instrumentation
	middleware.Compression                // gzip for JSON GETs
	auth middleware                       // where the route requires it
	handler                               // business logic

Usage Example:

	import "github.com/tomtom215/pelorus/internal/middleware"

	http.HandleFunc("/api/v1/vessels",
	    middleware.PrometheusMetrics(middleware.Compression(handler)),
	)

All middleware in this package uses the http.HandlerFunc form; the api
package provides an adapter for mounting them on a chi.Router.
*/
package middleware
