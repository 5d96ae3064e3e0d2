// Pelorus - Vessel Tracking and Live Fleet Map
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pelorus

// Package auth guards the mutating and operational API surfaces: the
// enrichment write path and the stats endpoint. Vessel reads and the
// map websocket are deliberately anonymous.
//
// # Modes
//
// Three modes, selected by configuration:
//
//   - none: every endpoint open. Accepted for trusted networks and
//     development, and logged loudly at startup.
//   - basic: HTTP Basic against a single configured username and
//     bcrypt-hashed password, with per-IP attempt limiting.
//   - jwt: POST /api/v1/auth/login exchanges those same credentials for
//     an HS256 token (golang-jwt/v5); middleware then checks Bearer
//     tokens (or the token cookie for browser clients).
//
// # Roles
//
// Tokens and Basic sessions carry a role claim. The configured admin
// username gets "admin"; everyone else gets the configured default
// (usually "viewer"). RequireRole gates a handler on a role, with
// admin passing every gate.
//
// # Attempt limiting
//
// Credential checks cost a bcrypt verification, so both the login
// endpoint and Basic validation draw from a per-IP token bucket
// (golang.org/x/time/rate): LoginBurst attempts, then one retry per
// LoginWindow. Buckets for idle IPs are dropped hourly.
//
// # Usage
//
//	basicMgr, err := auth.NewBasicAuthManager(cfg.Username, cfg.Password)
//	jwtMgr, err := auth.NewJWTManager(cfg.JWTSecret, cfg.TokenTTL)
//	mw, err := auth.NewMiddleware(auth.MiddlewareConfig{
//	    Mode:          auth.ModeJWT,
//	    JWT:           jwtMgr,
//	    Basic:         basicMgr,
//	    AdminUsername: cfg.Username,
//	})
//
//	r.Put("/vessels/{mmsi}/enrichment", mw.RequireRole("editor", enrichHandler))
//	r.Get("/stats", mw.Authenticate(statsHandler))
//	r.Post("/auth/login", mw.HandleLogin)
package auth
