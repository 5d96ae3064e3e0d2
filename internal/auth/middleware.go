// Pelorus - Vessel Tracking and Live Fleet Map
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pelorus

package auth

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/pelorus/internal/logging"
	"github.com/tomtom215/pelorus/internal/metrics"
	"github.com/tomtom215/pelorus/internal/validation"
)

type contextKey string

// ClaimsContextKey is where Authenticate stores the caller's claims.
const ClaimsContextKey contextKey = "claims"

// Mode selects how the protected surfaces authenticate callers.
type Mode string

const (
	ModeNone  Mode = "none"
	ModeBasic Mode = "basic"
	ModeJWT   Mode = "jwt"
)

// ParseMode normalizes a configured auth mode string. An empty string
// means none.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeNone:
		return ModeNone, nil
	case ModeBasic:
		return ModeBasic, nil
	case ModeJWT:
		return ModeJWT, nil
	default:
		return "", fmt.Errorf("unknown auth mode %q (want none, basic, or jwt)", s)
	}
}

// MiddlewareConfig wires the middleware's managers and attempt limits.
type MiddlewareConfig struct {
	Mode  Mode
	JWT   *JWTManager
	Basic *BasicAuthManager

	// AdminUsername receives the admin role; every other authenticated
	// username gets DefaultRole.
	AdminUsername string
	DefaultRole   string

	// LoginBurst credential attempts per LoginWindow per visitor IP.
	LoginBurst  int
	LoginWindow time.Duration

	// DisableRateLimit turns attempt limiting off (tests, trusted nets).
	DisableRateLimit bool
}

// Middleware enforces authentication on the enrichment write path and
// the stats surface. Map viewers and read endpoints stay anonymous.
type Middleware struct {
	mode          Mode
	jwt           *JWTManager
	basic         *BasicAuthManager
	adminUsername string
	defaultRole   string

	attempts        *RateLimiter
	attemptsEnabled bool
}

// NewMiddleware validates the mode's dependencies and returns the
// middleware. Mode none is accepted but loudly logged: every protected
// endpoint is then open.
func NewMiddleware(cfg MiddlewareConfig) (*Middleware, error) {
	switch cfg.Mode {
	case ModeNone:
		logging.Warn().
			Str("auth_mode", "none").
			Msg("AUTHENTICATION DISABLED: enrichment writes and stats are open to anyone who can reach this server")
	case ModeBasic:
		if cfg.Basic == nil {
			return nil, fmt.Errorf("auth mode basic requires configured credentials")
		}
	case ModeJWT:
		if cfg.JWT == nil {
			return nil, fmt.Errorf("auth mode jwt requires a JWT secret")
		}
		if cfg.Basic == nil {
			return nil, fmt.Errorf("auth mode jwt requires configured login credentials")
		}
	default:
		return nil, fmt.Errorf("unknown auth mode %q", cfg.Mode)
	}

	if cfg.DefaultRole == "" {
		cfg.DefaultRole = "viewer"
	}
	if cfg.LoginBurst < 1 {
		cfg.LoginBurst = 10
	}
	if cfg.LoginWindow <= 0 {
		cfg.LoginWindow = time.Minute
	}

	m := &Middleware{
		mode:            cfg.Mode,
		jwt:             cfg.JWT,
		basic:           cfg.Basic,
		adminUsername:   cfg.AdminUsername,
		defaultRole:     cfg.DefaultRole,
		attempts:        NewRateLimiter(cfg.LoginBurst, cfg.LoginWindow),
		attemptsEnabled: !cfg.DisableRateLimit,
	}
	if m.attemptsEnabled {
		go m.attempts.startCleanup(5 * time.Minute)
	}
	return m, nil
}

// Close stops the attempt limiter's cleanup goroutine.
func (m *Middleware) Close() {
	m.attempts.Stop()
}

// Mode returns the active authentication mode.
func (m *Middleware) Mode() Mode {
	return m.mode
}

// ClaimsFromContext returns the claims Authenticate stored, if any.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(ClaimsContextKey).(*Claims)
	return claims, ok
}

// Authenticate enforces the configured auth mode on a handler.
func (m *Middleware) Authenticate(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if m.mode == ModeNone {
			next(w, r)
			return
		}

		authHeader := r.Header.Get("Authorization")
		if m.mode == ModeBasic {
			m.handleBasicAuth(w, r, next, authHeader)
			return
		}
		m.handleJWTAuth(w, r, next, authHeader)
	}
}

// handleBasicAuth validates Basic credentials, counting each attempt
// against the visitor's allowance: bcrypt verification is expensive and
// unlimited attempts would invite both brute force and CPU exhaustion.
func (m *Middleware) handleBasicAuth(w http.ResponseWriter, r *http.Request, next http.HandlerFunc, authHeader string) {
	if authHeader == "" {
		m.sendBasicAuthChallenge(w, "Unauthorized: authentication required")
		return
	}

	if !m.allowAttempt(r) {
		http.Error(w, "Too many authentication attempts", http.StatusTooManyRequests)
		return
	}

	username, err := m.basic.ValidateCredentials(authHeader)
	if err != nil {
		logging.Warn().Err(err).Str("remote", clientIP(r)).Msg("Basic auth validation failed")
		m.sendBasicAuthChallenge(w, "Unauthorized: invalid credentials")
		return
	}

	claims := &Claims{Username: username, Role: m.roleFor(username)}
	ctx := context.WithValue(r.Context(), ClaimsContextKey, claims)
	next(w, r.WithContext(ctx))
}

func (m *Middleware) sendBasicAuthChallenge(w http.ResponseWriter, message string) {
	w.Header().Set("WWW-Authenticate", m.basic.GetWWWAuthenticateHeader())
	http.Error(w, message, http.StatusUnauthorized)
}

// handleJWTAuth validates a Bearer token (or the token cookie set by
// browser clients) and stores its claims.
func (m *Middleware) handleJWTAuth(w http.ResponseWriter, r *http.Request, next http.HandlerFunc, authHeader string) {
	token, err := extractJWTToken(r, authHeader)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}

	claims, err := m.jwt.ValidateToken(token)
	if err != nil {
		logging.Warn().Err(err).Str("remote", clientIP(r)).Msg("Token validation failed")
		http.Error(w, "Unauthorized: invalid token", http.StatusUnauthorized)
		return
	}

	ctx := context.WithValue(r.Context(), ClaimsContextKey, claims)
	next(w, r.WithContext(ctx))
}

func extractJWTToken(r *http.Request, authHeader string) (string, error) {
	if authHeader == "" {
		cookie, err := r.Cookie("token")
		if err != nil {
			return "", fmt.Errorf("unauthorized: missing token")
		}
		return cookie.Value, nil
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", fmt.Errorf("unauthorized: invalid authorization header")
	}
	return parts[1], nil
}

// RequireRole enforces authentication plus a role. The admin role
// passes every role gate. In mode none the gate is open, matching
// Authenticate.
func (m *Middleware) RequireRole(role string, next http.HandlerFunc) http.HandlerFunc {
	return m.Authenticate(func(w http.ResponseWriter, r *http.Request) {
		if m.mode == ModeNone {
			next(w, r)
			return
		}

		claims, ok := ClaimsFromContext(r.Context())
		if !ok {
			http.Error(w, "Forbidden: invalid claims", http.StatusForbidden)
			return
		}
		if claims.Role != role && claims.Role != "admin" {
			http.Error(w, "Forbidden: insufficient permissions", http.StatusForbidden)
			return
		}

		next(w, r)
	})
}

// loginRequest is the POST /api/v1/auth/login body.
type loginRequest struct {
	Username string `json:"username" validate:"required,min=1,max=128"`
	Password string `json:"password" validate:"required,min=8,max=512"`
}

// loginResponse carries the issued token.
type loginResponse struct {
	Token     string    `json:"token"`
	Role      string    `json:"role"`
	ExpiresAt time.Time `json:"expires_at"`
}

// HandleLogin issues a JWT for valid credentials.
// POST /api/v1/auth/login
func (m *Middleware) HandleLogin(w http.ResponseWriter, r *http.Request) {
	if m.mode != ModeJWT {
		http.Error(w, "JWT authentication not enabled", http.StatusServiceUnavailable)
		return
	}

	if !m.allowAttempt(r) {
		http.Error(w, "Too many login attempts", http.StatusTooManyRequests)
		return
	}

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		http.Error(w, verr.ToAPIError().Message, http.StatusBadRequest)
		return
	}

	if !m.basic.Verify(req.Username, req.Password) {
		logging.Warn().Str("username", req.Username).Str("remote", clientIP(r)).Msg("Login failed")
		http.Error(w, "Unauthorized: invalid username or password", http.StatusUnauthorized)
		return
	}

	role := m.roleFor(req.Username)
	token, err := m.jwt.GenerateToken(req.Username, role)
	if err != nil {
		logging.Error().Err(err).Msg("Token generation failed")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	logging.Info().Str("username", req.Username).Str("role", role).Msg("Login succeeded")
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(loginResponse{
		Token:     token,
		Role:      role,
		ExpiresAt: time.Now().Add(m.jwt.TTL()).UTC(),
	}); err != nil {
		logging.Error().Err(err).Msg("Failed to encode login response")
	}
}

func (m *Middleware) roleFor(username string) string {
	if m.adminUsername != "" && username == m.adminUsername {
		return "admin"
	}
	return m.defaultRole
}

// allowAttempt applies the per-IP attempt allowance.
func (m *Middleware) allowAttempt(r *http.Request) bool {
	if !m.attemptsEnabled {
		return true
	}
	if m.attempts.Allow(clientIP(r)) {
		return true
	}
	metrics.APIRateLimitHits.WithLabelValues("auth").Inc()
	return false
}

// clientIP trusts RemoteAddr only: proxy headers are resolved earlier
// by the router's RealIP middleware.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
