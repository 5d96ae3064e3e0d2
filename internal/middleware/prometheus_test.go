// Pelorus - Vessel Tracking and Live Fleet Map
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pelorus

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
)

func TestPrometheusMetrics(t *testing.T) {
	t.Run("records metrics for successful request", func(t *testing.T) {
		handler := PrometheusMetrics(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("OK"))
		})

		req := httptest.NewRequest(http.MethodGet, "/api/v1/vessels", nil)
		rec := httptest.NewRecorder()

		handler(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("Expected status 200, got %d", rec.Code)
		}
	})

	t.Run("records metrics for error response", func(t *testing.T) {
		handler := PrometheusMetrics(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		})

		req := httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil)
		rec := httptest.NewRecorder()

		handler(rec, req)

		if rec.Code != http.StatusInternalServerError {
			t.Errorf("Expected status 500, got %d", rec.Code)
		}
	})

	t.Run("default status is 200 when handler never calls WriteHeader", func(t *testing.T) {
		handler := PrometheusMetrics(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("implicit 200"))
		})

		req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
		rec := httptest.NewRecorder()

		handler(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("Expected status 200, got %d", rec.Code)
		}
	})
}

// TestEndpointLabel verifies the metric endpoint label collapses
// parameterized paths to their route pattern.
func TestEndpointLabel(t *testing.T) {
	var label string

	r := chi.NewRouter()
	r.Get("/api/v1/vessels/{mmsi}", func(w http.ResponseWriter, req *http.Request) {
		label = endpointLabel(req)
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/vessels/219000001", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if label != "/api/v1/vessels/{mmsi}" {
		t.Errorf("Expected route pattern label, got %q", label)
	}
}

// TestEndpointLabelOutsideRouter verifies the raw path fallback when no
// chi route context is present.
func TestEndpointLabelOutsideRouter(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	if label := endpointLabel(req); label != "/metrics" {
		t.Errorf("Expected raw path fallback, got %q", label)
	}
}

func TestMetricsResponseWriter(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	wrapper := &metricsResponseWriter{ResponseWriter: rec, statusCode: http.StatusOK}

	wrapper.WriteHeader(http.StatusTeapot)

	if wrapper.statusCode != http.StatusTeapot {
		t.Errorf("Expected captured status 418, got %d", wrapper.statusCode)
	}
	if rec.Code != http.StatusTeapot {
		t.Errorf("Expected underlying status 418, got %d", rec.Code)
	}
}
