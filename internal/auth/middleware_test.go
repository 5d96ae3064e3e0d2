// Pelorus - Vessel Tracking and Live Fleet Map
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pelorus

package auth

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
)

// claimsRecorder is the protected handler under test: it records
// whether it ran and with which claims.
type claimsRecorder struct {
	called bool
	claims *Claims
}

func (c *claimsRecorder) handler(w http.ResponseWriter, r *http.Request) {
	c.called = true
	if claims, ok := ClaimsFromContext(r.Context()); ok {
		c.claims = claims
	}
	w.WriteHeader(http.StatusOK)
}

func newTestMiddleware(t *testing.T, mode Mode) *Middleware {
	t.Helper()
	jwtMgr, err := NewJWTManager(testSecret, time.Hour)
	if err != nil {
		t.Fatalf("NewJWTManager: %v", err)
	}
	m, err := NewMiddleware(MiddlewareConfig{
		Mode:             mode,
		JWT:              jwtMgr,
		Basic:            testBasicManager(t),
		AdminUsername:    testUsername,
		DisableRateLimit: true,
	})
	if err != nil {
		t.Fatalf("NewMiddleware: %v", err)
	}
	t.Cleanup(m.Close)
	return m
}

func TestParseMode(t *testing.T) {
	t.Parallel()
	cases := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{in: "", want: ModeNone},
		{in: "none", want: ModeNone},
		{in: " NONE ", want: ModeNone},
		{in: "basic", want: ModeBasic},
		{in: "jwt", want: ModeJWT},
		{in: "JWT", want: ModeJWT},
		{in: "oauth", wantErr: true},
	}
	for _, tc := range cases {
		got, err := ParseMode(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ParseMode(%q) accepted", tc.in)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Errorf("ParseMode(%q) = %v, %v; want %v", tc.in, got, err, tc.want)
		}
	}
}

func TestNewMiddlewareDependencyChecks(t *testing.T) {
	jwtMgr, _ := NewJWTManager(testSecret, time.Hour)

	cases := []struct {
		name string
		cfg  MiddlewareConfig
	}{
		{name: "basic without credentials", cfg: MiddlewareConfig{Mode: ModeBasic}},
		{name: "jwt without manager", cfg: MiddlewareConfig{Mode: ModeJWT, Basic: testBasicManager(t)}},
		{name: "jwt without credentials", cfg: MiddlewareConfig{Mode: ModeJWT, JWT: jwtMgr}},
		{name: "unknown mode", cfg: MiddlewareConfig{Mode: Mode("oauth")}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewMiddleware(tc.cfg); err == nil {
				t.Error("NewMiddleware accepted invalid config")
			}
		})
	}
}

func TestAuthenticateModeNone(t *testing.T) {
	m := newTestMiddleware(t, ModeNone)
	rec := &claimsRecorder{}

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil)
	m.Authenticate(rec.handler)(w, r)

	if w.Code != http.StatusOK || !rec.called {
		t.Errorf("status = %d, called = %v; want open access", w.Code, rec.called)
	}
	if rec.claims != nil {
		t.Errorf("claims = %+v, want none in open mode", rec.claims)
	}
}

func TestAuthenticateBasic(t *testing.T) {
	m := newTestMiddleware(t, ModeBasic)

	t.Run("missing header challenges", func(t *testing.T) {
		rec := &claimsRecorder{}
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil)
		m.Authenticate(rec.handler)(w, r)

		if w.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", w.Code)
		}
		if got := w.Header().Get("WWW-Authenticate"); !strings.Contains(got, "Basic") {
			t.Errorf("WWW-Authenticate = %q", got)
		}
		if rec.called {
			t.Error("handler ran without credentials")
		}
	})

	t.Run("invalid credentials rejected", func(t *testing.T) {
		rec := &claimsRecorder{}
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil)
		r.SetBasicAuth(testUsername, "wrong-password-1")
		m.Authenticate(rec.handler)(w, r)

		if w.Code != http.StatusUnauthorized || rec.called {
			t.Errorf("status = %d, called = %v; want 401 and no handler run", w.Code, rec.called)
		}
	})

	t.Run("valid credentials pass with claims", func(t *testing.T) {
		rec := &claimsRecorder{}
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil)
		r.SetBasicAuth(testUsername, testPassword)
		m.Authenticate(rec.handler)(w, r)

		if w.Code != http.StatusOK || !rec.called {
			t.Fatalf("status = %d, called = %v", w.Code, rec.called)
		}
		if rec.claims == nil || rec.claims.Username != testUsername || rec.claims.Role != "admin" {
			t.Errorf("claims = %+v, want operator/admin", rec.claims)
		}
	})
}

func TestAuthenticateJWT(t *testing.T) {
	m := newTestMiddleware(t, ModeJWT)
	token, err := m.jwt.GenerateToken("bob", "viewer")
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	t.Run("bearer token passes", func(t *testing.T) {
		rec := &claimsRecorder{}
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil)
		r.Header.Set("Authorization", "Bearer "+token)
		m.Authenticate(rec.handler)(w, r)

		if w.Code != http.StatusOK || rec.claims == nil {
			t.Fatalf("status = %d, claims = %+v", w.Code, rec.claims)
		}
		if rec.claims.Username != "bob" || rec.claims.Role != "viewer" {
			t.Errorf("claims = %s/%s, want bob/viewer", rec.claims.Username, rec.claims.Role)
		}
	})

	t.Run("token cookie passes", func(t *testing.T) {
		rec := &claimsRecorder{}
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil)
		r.AddCookie(&http.Cookie{Name: "token", Value: token})
		m.Authenticate(rec.handler)(w, r)

		if w.Code != http.StatusOK || !rec.called {
			t.Errorf("status = %d, called = %v", w.Code, rec.called)
		}
	})

	t.Run("missing token rejected", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil)
		m.Authenticate((&claimsRecorder{}).handler)(w, r)
		if w.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", w.Code)
		}
	})

	t.Run("wrong scheme rejected", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil)
		r.Header.Set("Authorization", "Token "+token)
		m.Authenticate((&claimsRecorder{}).handler)(w, r)
		if w.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", w.Code)
		}
	})

	t.Run("invalid token rejected", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil)
		r.Header.Set("Authorization", "Bearer not.a.token")
		m.Authenticate((&claimsRecorder{}).handler)(w, r)
		if w.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", w.Code)
		}
	})
}

func TestRequireRole(t *testing.T) {
	m := newTestMiddleware(t, ModeJWT)

	roleToken := func(role string) string {
		token, err := m.jwt.GenerateToken("user-"+role, role)
		if err != nil {
			t.Fatalf("GenerateToken: %v", err)
		}
		return token
	}

	cases := []struct {
		name       string
		role       string
		wantStatus int
	}{
		{name: "matching role passes", role: "editor", wantStatus: http.StatusOK},
		{name: "admin passes every gate", role: "admin", wantStatus: http.StatusOK},
		{name: "viewer forbidden", role: "viewer", wantStatus: http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := &claimsRecorder{}
			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodPut, "/api/v1/vessels/276829000/enrichment", nil)
			r.Header.Set("Authorization", "Bearer "+roleToken(tc.role))
			m.RequireRole("editor", rec.handler)(w, r)

			if w.Code != tc.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tc.wantStatus)
			}
			if wantRun := tc.wantStatus == http.StatusOK; rec.called != wantRun {
				t.Errorf("handler ran = %v, want %v", rec.called, wantRun)
			}
		})
	}

	t.Run("open in mode none", func(t *testing.T) {
		open := newTestMiddleware(t, ModeNone)
		rec := &claimsRecorder{}
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPut, "/api/v1/vessels/276829000/enrichment", nil)
		open.RequireRole("editor", rec.handler)(w, r)

		if w.Code != http.StatusOK || !rec.called {
			t.Errorf("status = %d, called = %v; want open access", w.Code, rec.called)
		}
	})
}

func TestHandleLogin(t *testing.T) {
	m := newTestMiddleware(t, ModeJWT)

	login := func(body string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(body))
		m.HandleLogin(w, r)
		return w
	}

	t.Run("issues usable token", func(t *testing.T) {
		w := login(`{"username":"` + testUsername + `","password":"` + testPassword + `"}`)
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d: %s", w.Code, w.Body.String())
		}
		var resp loginResponse
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if resp.Token == "" || resp.Role != "admin" {
			t.Fatalf("response = %+v", resp)
		}
		if !resp.ExpiresAt.After(time.Now()) {
			t.Errorf("expires_at %v is not in the future", resp.ExpiresAt)
		}

		// The issued token opens the protected surface.
		rec := &claimsRecorder{}
		aw := httptest.NewRecorder()
		ar := httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil)
		ar.Header.Set("Authorization", "Bearer "+resp.Token)
		m.Authenticate(rec.handler)(aw, ar)
		if aw.Code != http.StatusOK || rec.claims == nil || rec.claims.Role != "admin" {
			t.Errorf("issued token rejected: status %d, claims %+v", aw.Code, rec.claims)
		}
	})

	t.Run("wrong password rejected", func(t *testing.T) {
		if w := login(`{"username":"` + testUsername + `","password":"wrong-password-1"}`); w.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", w.Code)
		}
	})

	t.Run("malformed body rejected", func(t *testing.T) {
		if w := login(`{"username": `); w.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", w.Code)
		}
	})

	t.Run("validation failure rejected", func(t *testing.T) {
		if w := login(`{"username":"operator","password":"short"}`); w.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", w.Code)
		}
	})

	t.Run("unavailable outside jwt mode", func(t *testing.T) {
		basic := newTestMiddleware(t, ModeBasic)
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader("{}"))
		basic.HandleLogin(w, r)
		if w.Code != http.StatusServiceUnavailable {
			t.Errorf("status = %d, want 503", w.Code)
		}
	})
}

func TestLoginAttemptsRateLimited(t *testing.T) {
	jwtMgr, _ := NewJWTManager(testSecret, time.Hour)
	m, err := NewMiddleware(MiddlewareConfig{
		Mode:        ModeJWT,
		JWT:         jwtMgr,
		Basic:       testBasicManager(t),
		LoginBurst:  2,
		LoginWindow: time.Hour,
	})
	if err != nil {
		t.Fatalf("NewMiddleware: %v", err)
	}
	t.Cleanup(m.Close)

	body := `{"username":"` + testUsername + `","password":"wrong-password-1"}`
	codes := make([]int, 3)
	for i := range codes {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(body))
		m.HandleLogin(w, r)
		codes[i] = w.Code
	}

	if codes[0] != http.StatusUnauthorized || codes[1] != http.StatusUnauthorized {
		t.Errorf("first attempts = %v, want 401s", codes[:2])
	}
	if codes[2] != http.StatusTooManyRequests {
		t.Errorf("third attempt = %d, want 429", codes[2])
	}
}

func TestBasicAttemptsRateLimited(t *testing.T) {
	m, err := NewMiddleware(MiddlewareConfig{
		Mode:        ModeBasic,
		Basic:       testBasicManager(t),
		LoginBurst:  2,
		LoginWindow: time.Hour,
	})
	if err != nil {
		t.Fatalf("NewMiddleware: %v", err)
	}
	t.Cleanup(m.Close)

	codes := make([]int, 3)
	for i := range codes {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil)
		r.SetBasicAuth(testUsername, "wrong-password-1")
		m.Authenticate((&claimsRecorder{}).handler)(w, r)
		codes[i] = w.Code
	}

	if codes[0] != http.StatusUnauthorized || codes[1] != http.StatusUnauthorized {
		t.Errorf("first attempts = %v, want 401s", codes[:2])
	}
	if codes[2] != http.StatusTooManyRequests {
		t.Errorf("third attempt = %d, want 429", codes[2])
	}
}

func TestClientIP(t *testing.T) {
	t.Parallel()
	cases := []struct {
		remote string
		want   string
	}{
		{remote: "192.0.2.7:4242", want: "192.0.2.7"},
		{remote: "192.0.2.7", want: "192.0.2.7"},
		{remote: "[2001:db8::1]:443", want: "2001:db8::1"},
	}
	for _, tc := range cases {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.RemoteAddr = tc.remote
		if got := clientIP(r); got != tc.want {
			t.Errorf("clientIP(%q) = %q, want %q", tc.remote, got, tc.want)
		}
	}
}
