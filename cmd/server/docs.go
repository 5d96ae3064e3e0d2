// Pelorus - Vessel Tracking and Live Fleet Map
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pelorus

// Package main provides the Pelorus HTTP server
//
// Pelorus tracks vessels from streaming and satellite feeds and serves
// a live fleet map with a REST query API.
//
// @title Pelorus API
// @version 1.0
// @description Vessel tracking API consolidating AIS streaming and satellite scan feeds into a live fleet map
// @description
// @description ## Features
// @description
// @description - **Live Fleet Map**: WebSocket stream with a full snapshot on connect followed by per-vessel deltas
// @description - **Fleet Queries**: Snapshot filtering by bounding box, length, ship type, and position age
// @description - **Route History**: Chronological position fixes per vessel with time-window controls
// @description - **Operator Enrichment**: Tags, score, and operator notes overlaid on tracked vessels
// @description - **Credit Accounting**: Satellite scan budget consumption visible in operational stats
// @description
// @description ## Authentication
// @description
// @description Protected endpoints accept a JWT as a Bearer token in the Authorization header,
// @description or the HTTP-only `token` cookie set by `/api/v1/auth/login`.
// @description
// @description ## Rate Limiting
// @description
// @description Default rate limit: 100 requests per minute per IP address.
// @description Login attempts are limited separately and more strictly.
// @description
// @description ## Error Responses
// @description
// @description All error responses follow this format:
// @description ```json
// @description {
// @description   "status": "error",
// @description   "data": null,
// @description   "error": {
// @description     "code": "ERROR_CODE",
// @description     "message": "Human-readable error message",
// @description     "details": {}
// @description   },
// @description   "metadata": {
// @description     "timestamp": "2026-08-25T12:34:56Z"
// @description   }
// @description }
// @description ```
//
// @contact.name GitHub Repository
// @contact.url https://github.com/tomtom215/pelorus/issues
//
// @license.name AGPL-3.0-or-later
// @license.url https://www.gnu.org/licenses/agpl-3.0.html
//
// @host localhost:4326
// @BasePath /api/v1
// @schemes http https
//
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT as "Bearer {token}". Obtain via /api/v1/auth/login; the login response also sets an HTTP-only cookie.
//
// @tag.name Core
// @tag.description Health and readiness endpoints for probes and monitoring
//
// @tag.name Vessels
// @tag.description Fleet snapshot, single vessel lookup, route history, and operator enrichment
//
// @tag.name Stream
// @tag.description Live fleet map WebSocket connections
//
// @tag.name Admin
// @tag.description Operational statistics requiring authentication
package main
