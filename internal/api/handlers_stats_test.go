// Pelorus - Vessel Tracking and Live Fleet Map
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pelorus

package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/tomtom215/pelorus/internal/credit"
	"github.com/tomtom215/pelorus/internal/store"
	"github.com/tomtom215/pelorus/internal/wal"
)

// fakeCreditStore keeps ledger rows in memory for stats tests.
type fakeCreditStore struct {
	windows map[time.Time]store.CreditWindow
}

func (f *fakeCreditStore) GetCreditWindow(_ context.Context, windowStart time.Time) (*store.CreditWindow, error) {
	if w, ok := f.windows[windowStart]; ok {
		return &w, nil
	}
	return nil, nil
}

func (f *fakeCreditStore) SaveCreditWindow(_ context.Context, w store.CreditWindow) error {
	f.windows[w.WindowStart] = w
	return nil
}

func TestStats_ReportsSubsystems(t *testing.T) {
	t.Parallel()

	fs := newFakeStore()
	addVessel(fs, 219000001, "EMMA", 55.0, 12.0)
	fs.walStats = wal.Stats{PendingCount: 3, TotalWrites: 120}
	h := newTestHandler(fs)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil)
	rec := httptest.NewRecorder()
	h.Stats(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	resp := decodeResponse(t, rec.Body.Bytes())
	data := dataMap(t, resp)

	for _, key := range []string{"store", "wal", "viewers", "uptime"} {
		if _, ok := data[key]; !ok {
			t.Errorf("expected %q in stats data", key)
		}
	}

	// Credit tracking is absent unless the satellite feed runs
	if _, ok := data["credit"]; ok {
		t.Error("expected no credit section without a ledger")
	}

	storeData, ok := data["store"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected store stats object, got %T", data["store"])
	}
	if vessels, _ := storeData["vessels"].(float64); vessels != 1 {
		t.Errorf("expected 1 vessel, got %v", storeData["vessels"])
	}

	walData, ok := data["wal"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected wal stats object, got %T", data["wal"])
	}
	if pending, _ := walData["pending_count"].(float64); pending != 3 {
		t.Errorf("expected 3 pending entries, got %v", walData["pending_count"])
	}
}

func TestStats_IncludesCreditWhenLedgerPresent(t *testing.T) {
	t.Parallel()

	fs := newFakeStore()
	ledger, err := credit.NewLedger(context.Background(),
		&fakeCreditStore{windows: make(map[time.Time]store.CreditWindow)},
		credit.Config{Budget: 100})
	if err != nil {
		t.Fatalf("NewLedger failed: %v", err)
	}
	h := NewHandler(fs, testConfig(), nil, nil, ledger, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil)
	rec := httptest.NewRecorder()
	h.Stats(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	resp := decodeResponse(t, rec.Body.Bytes())
	data := dataMap(t, resp)

	creditData, ok := data["credit"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected credit stats object, got %T", data["credit"])
	}
	if budget, _ := creditData["budget"].(float64); budget != 100 {
		t.Errorf("expected budget 100, got %v", creditData["budget"])
	}
}

func TestStats_StoreError(t *testing.T) {
	t.Parallel()

	fs := newFakeStore()
	fs.statsErr = errors.New("query timeout")
	h := newTestHandler(fs)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil)
	rec := httptest.NewRecorder()
	h.Stats(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected status 500, got %d", rec.Code)
	}
	resp := decodeResponse(t, rec.Body.Bytes())
	if resp.Error == nil || resp.Error.Code != "DATABASE_ERROR" {
		t.Errorf("expected DATABASE_ERROR, got %+v", resp.Error)
	}
}
