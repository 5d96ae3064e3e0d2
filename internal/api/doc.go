// Pelorus - Vessel Tracking and Live Fleet Map
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pelorus

/*
Package api provides the HTTP and WebSocket surface of Pelorus.

The package wires a chi router over a small set of handlers that read
from the vessel store, stream live updates through the websocket hub,
and accept enrichment writes. Every JSON endpoint responds with the
models.APIResponse envelope so clients can parse success and error
payloads uniformly.

Endpoints:

  - GET  /api/v1/vessels                     current fleet snapshot with filters
  - GET  /api/v1/vessels/{mmsi}              one vessel record
  - GET  /api/v1/vessels/{mmsi}/route        position history
  - PUT  /api/v1/vessels/{mmsi}/enrichment   operator annotations (auth)
  - GET  /api/v1/stats                       store, WAL, credit and viewer counters (auth)
  - GET  /api/v1/health                      component health summary
  - GET  /api/v1/health/live                 liveness probe
  - GET  /api/v1/health/ready                readiness probe
  - POST /api/v1/auth/login                  JWT issuance
  - GET  /ws                                 live map stream
  - GET  /metrics                            Prometheus exposition
  - GET  /swagger/*                          interactive API documentation

Request flow through the middleware stack:

	chi RealIP / Recoverer
	request ID assignment (X-Request-ID)
	CORS
	rate limiting (per route group)
	Prometheus instrumentation
	gzip compression (JSON GETs)
	authentication (write and stats routes)
	handler

Handlers accept the narrow VesselStore interface rather than the
concrete store so tests can run against an in-memory fake. The
concrete *store.Store satisfies it.
*/
package api
