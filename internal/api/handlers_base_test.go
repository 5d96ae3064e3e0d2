// Pelorus - Vessel Tracking and Live Fleet Map
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pelorus

package api

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/pelorus/internal/config"
	"github.com/tomtom215/pelorus/internal/models"
	"github.com/tomtom215/pelorus/internal/store"
	"github.com/tomtom215/pelorus/internal/wal"
)

// fakeStore is an in-memory VesselStore for handler tests.
type fakeStore struct {
	vessels  map[int64]*models.VesselRecord
	routes   map[int64][]models.PositionEvent
	stats    *models.StoreStats
	walStats wal.Stats

	pingErr     error
	snapshotErr error
	statsErr    error

	lastFilter     *models.SnapshotFilter
	lastEnrichment models.Enrichment
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		vessels: make(map[int64]*models.VesselRecord),
		routes:  make(map[int64][]models.PositionEvent),
	}
}

func (f *fakeStore) Get(_ context.Context, mmsi int64) (*models.VesselRecord, error) {
	if v, ok := f.vessels[mmsi]; ok {
		return v, nil
	}
	return nil, store.ErrVesselNotFound
}

func (f *fakeStore) Snapshot(_ context.Context, filter *models.SnapshotFilter) ([]models.VesselRecord, error) {
	if f.snapshotErr != nil {
		return nil, f.snapshotErr
	}
	f.lastFilter = filter

	out := make([]models.VesselRecord, 0, len(f.vessels))
	for _, v := range f.vessels {
		out = append(out, *v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MMSI < out[j].MMSI })
	return out, nil
}

func (f *fakeStore) Route(_ context.Context, mmsi int64, since time.Time, limit int) ([]models.PositionEvent, error) {
	points := f.routes[mmsi]
	out := make([]models.PositionEvent, 0, len(points))
	for _, p := range points {
		if !p.At.Before(since) {
			out = append(out, p)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeStore) Stats(_ context.Context, _ time.Duration) (*models.StoreStats, error) {
	if f.statsErr != nil {
		return nil, f.statsErr
	}
	if f.stats != nil {
		return f.stats, nil
	}
	return &models.StoreStats{Vessels: int64(len(f.vessels))}, nil
}

func (f *fakeStore) SetEnrichment(_ context.Context, mmsi int64, e models.Enrichment) (*models.VesselDelta, error) {
	if _, ok := f.vessels[mmsi]; !ok {
		return nil, store.ErrVesselNotFound
	}
	f.lastEnrichment = e

	// The real store reports no delta when nothing changed.
	if e.Empty() {
		return nil, nil
	}

	delta := &models.VesselDelta{
		MMSI:    mmsi,
		EventAt: time.Now().UTC(),
		Tags:    e.Tags,
		Score:   e.Score,
	}
	if e.Operator != nil {
		delta.Operator = e.Operator
	}
	return delta, nil
}

func (f *fakeStore) Ping(_ context.Context) error {
	return f.pingErr
}

func (f *fakeStore) WALStats() wal.Stats {
	return f.walStats
}

// fakePublisher records broadcast deltas.
type fakePublisher struct {
	deltas []*models.VesselDelta
	err    error
}

func (f *fakePublisher) PublishDelta(_ context.Context, delta *models.VesselDelta) error {
	if f.err != nil {
		return f.err
	}
	f.deltas = append(f.deltas, delta)
	return nil
}

// testConfig returns a minimal valid configuration for handler tests.
func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Security.CORSOrigins = []string{"*"}
	cfg.Security.AuthMode = "none"
	cfg.Retention.ActiveWindow = time.Hour
	return cfg
}

// newTestHandler builds a handler over the fake store with every
// optional subsystem absent.
func newTestHandler(fs *fakeStore) *Handler {
	return NewHandler(fs, testConfig(), nil, nil, nil, nil)
}

// addVessel seeds the fake store with a vessel at the given position.
func addVessel(fs *fakeStore, mmsi int64, name string, lat, lon float64) *models.VesselRecord {
	now := time.Now().UTC()
	rec := &models.VesselRecord{
		MMSI:       mmsi,
		Name:       &name,
		Lat:        &lat,
		Lon:        &lon,
		PositionAt: &now,
		FirstSeen:  now,
		UpdatedAt:  now,
	}
	fs.vessels[mmsi] = rec
	return rec
}

// decodeResponse parses the standard envelope from a test recorder body.
func decodeResponse(t *testing.T, body []byte) *models.APIResponse {
	t.Helper()
	var resp models.APIResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		t.Fatalf("response is not valid JSON: %v\nbody: %s", err, body)
	}
	return &resp
}

// dataMap asserts the envelope data is a JSON object and returns it.
func dataMap(t *testing.T, resp *models.APIResponse) map[string]interface{} {
	t.Helper()
	m, ok := resp.Data.(map[string]interface{})
	if !ok {
		t.Fatalf("expected object data, got %T", resp.Data)
	}
	return m
}

// TestNewHandler tests the constructor wiring.
func TestNewHandler(t *testing.T) {
	t.Parallel()

	fs := newFakeStore()
	handler := NewHandler(fs, testConfig(), nil, nil, nil, nil)

	if handler == nil {
		t.Fatal("NewHandler returned nil")
	}
	if handler.store == nil {
		t.Error("expected store to be set")
	}
	if handler.startTime.IsZero() {
		t.Error("expected start time to be set")
	}
}
