// Pelorus - Vessel Tracking and Live Fleet Map
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pelorus

package wal

import (
	"context"
	"errors"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tomtom215/pelorus/internal/models"
)

// Test helpers

func createTestConfig(t *testing.T) Config {
	t.Helper()
	tmpDir := t.TempDir()
	return Config{
		Path:              filepath.Join(tmpDir, "wal"),
		SyncWrites:        false, // Faster tests without fsync
		MaxReplayAttempts: 3,
		CompactInterval:   1 * time.Minute,
		EntryTTL:          1 * time.Hour,
		MemTableSize:      16 * 1024 * 1024, // BadgerDB minimum
		ValueLogFileSize:  16 * 1024 * 1024,
		NumCompactors:     2, // BadgerDB minimum
		GCRatio:           0.5,
		CloseTimeout:      30 * time.Second,
	}
}

func createTestReport(mmsi int64) models.Report {
	lat := 10.0
	lon := 20.0
	return models.Report{
		MMSI:    mmsi,
		Source:  models.SourceAISStream,
		EventAt: time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC),
		Lat:     &lat,
		Lon:     &lon,
	}
}

// setupWAL creates a WAL with standard test config and returns the concrete type.
// The caller should defer w.Close().
func setupWAL(t *testing.T) *BadgerWAL {
	t.Helper()
	cfg := createTestConfig(t)
	w, err := Open(&cfg)
	if err != nil {
		t.Fatalf("Failed to open WAL: %v", err)
	}
	return w
}

// writeTestReports writes n reports to the WAL and returns their entry IDs.
func writeTestReports(ctx context.Context, t *testing.T, w *BadgerWAL, n int) []string {
	t.Helper()
	ids := make([]string, n)
	for i := 0; i < n; i++ {
		rep := createTestReport(int64(200000000 + i))
		id, err := w.Write(ctx, rep)
		if err != nil {
			t.Fatalf("Write failed: %v", err)
		}
		ids[i] = id
	}
	return ids
}

// assertPendingCount checks that GetPending returns the expected count.
func assertPendingCount(ctx context.Context, t *testing.T, w *BadgerWAL, expected int) {
	t.Helper()
	entries, err := w.GetPending(ctx)
	if err != nil {
		t.Fatalf("GetPending failed: %v", err)
	}
	if len(entries) != expected {
		t.Errorf("Expected %d pending entries, got %d", expected, len(entries))
	}
}

// countingApplier implements Applier for testing.
type countingApplier struct {
	applyCount atomic.Int32
	failUntil  atomic.Int32
	applied    []models.Report
}

func (a *countingApplier) ApplyEntry(ctx context.Context, entry *Entry) error {
	a.applyCount.Add(1)
	if a.failUntil.Load() > 0 {
		a.failUntil.Add(-1)
		return errors.New("simulated merge failure")
	}
	rep, err := entry.Report()
	if err != nil {
		return err
	}
	a.applied = append(a.applied, rep)
	return nil
}

func TestWAL_WriteAndGetPending(t *testing.T) {
	w := setupWAL(t)
	defer w.Close()

	ctx := context.Background()
	rep := createTestReport(123456789)

	entryID, err := w.Write(ctx, rep)
	if err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if entryID == "" {
		t.Error("Expected non-empty entry ID")
	}

	entries, err := w.GetPending(ctx)
	if err != nil {
		t.Fatalf("GetPending failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("Expected 1 pending entry, got %d", len(entries))
	}

	got, err := entries[0].Report()
	if err != nil {
		t.Fatalf("Report failed: %v", err)
	}
	if got.MMSI != rep.MMSI {
		t.Errorf("MMSI = %d, want %d", got.MMSI, rep.MMSI)
	}
	if got.Source != rep.Source {
		t.Errorf("Source = %v, want %v", got.Source, rep.Source)
	}
	if got.Lat == nil || *got.Lat != *rep.Lat {
		t.Errorf("Lat = %v, want %v", got.Lat, rep.Lat)
	}
	if !got.EventAt.Equal(rep.EventAt) {
		t.Errorf("EventAt = %v, want %v", got.EventAt, rep.EventAt)
	}
}

func TestWAL_WriteRejectsInvalidReport(t *testing.T) {
	w := setupWAL(t)
	defer w.Close()

	ctx := context.Background()

	_, err := w.Write(ctx, models.Report{Source: models.SourceAISStream})
	if !errors.Is(err, ErrInvalidReport) {
		t.Errorf("Expected ErrInvalidReport, got %v", err)
	}

	_, err = w.Write(ctx, models.Report{MMSI: -5, Source: models.SourceAISStream})
	if !errors.Is(err, ErrInvalidReport) {
		t.Errorf("Expected ErrInvalidReport for negative MMSI, got %v", err)
	}
}

func TestWAL_Confirm(t *testing.T) {
	w := setupWAL(t)
	defer w.Close()

	ctx := context.Background()
	ids := writeTestReports(ctx, t, w, 3)

	if err := w.Confirm(ctx, ids[0]); err != nil {
		t.Fatalf("Confirm failed: %v", err)
	}

	assertPendingCount(ctx, t, w, 2)

	stats := w.Stats()
	if stats.PendingCount != 2 {
		t.Errorf("PendingCount = %d, want 2", stats.PendingCount)
	}
	if stats.ConfirmedCount != 1 {
		t.Errorf("ConfirmedCount = %d, want 1", stats.ConfirmedCount)
	}
	if stats.TotalWrites != 3 {
		t.Errorf("TotalWrites = %d, want 3", stats.TotalWrites)
	}
	if stats.TotalConfirms != 1 {
		t.Errorf("TotalConfirms = %d, want 1", stats.TotalConfirms)
	}
}

func TestWAL_ConfirmErrors(t *testing.T) {
	w := setupWAL(t)
	defer w.Close()

	ctx := context.Background()

	if err := w.Confirm(ctx, ""); !errors.Is(err, ErrEmptyEntryID) {
		t.Errorf("Expected ErrEmptyEntryID, got %v", err)
	}

	if err := w.Confirm(ctx, "no-such-entry"); !errors.Is(err, ErrEntryNotFound) {
		t.Errorf("Expected ErrEntryNotFound, got %v", err)
	}

	// Double confirm: second call finds no pending entry
	ids := writeTestReports(ctx, t, w, 1)
	if err := w.Confirm(ctx, ids[0]); err != nil {
		t.Fatalf("First confirm failed: %v", err)
	}
	if err := w.Confirm(ctx, ids[0]); !errors.Is(err, ErrEntryNotFound) {
		t.Errorf("Expected ErrEntryNotFound on double confirm, got %v", err)
	}
}

func TestWAL_ReplayPending(t *testing.T) {
	w := setupWAL(t)
	defer w.Close()

	ctx := context.Background()
	writeTestReports(ctx, t, w, 5)

	applier := &countingApplier{}
	result, err := w.ReplayPending(ctx, applier)
	if err != nil {
		t.Fatalf("ReplayPending failed: %v", err)
	}

	if result.TotalPending != 5 {
		t.Errorf("TotalPending = %d, want 5", result.TotalPending)
	}
	if result.Applied != 5 {
		t.Errorf("Applied = %d, want 5", result.Applied)
	}
	if result.Failed != 0 {
		t.Errorf("Failed = %d, want 0", result.Failed)
	}
	if len(applier.applied) != 5 {
		t.Errorf("Applier received %d reports, want 5", len(applier.applied))
	}

	// All entries confirmed, nothing left to replay
	assertPendingCount(ctx, t, w, 0)

	result2, err := w.ReplayPending(ctx, applier)
	if err != nil {
		t.Fatalf("Second ReplayPending failed: %v", err)
	}
	if result2.TotalPending != 0 {
		t.Errorf("Second replay TotalPending = %d, want 0", result2.TotalPending)
	}
}

func TestWAL_ReplayPendingNilApplier(t *testing.T) {
	w := setupWAL(t)
	defer w.Close()

	if _, err := w.ReplayPending(context.Background(), nil); err == nil {
		t.Error("Expected error for nil applier")
	}
}

func TestWAL_ReplayFailedEntriesStayPending(t *testing.T) {
	w := setupWAL(t)
	defer w.Close()

	ctx := context.Background()
	writeTestReports(ctx, t, w, 2)

	applier := &countingApplier{}
	applier.failUntil.Store(2) // Both entries fail on first pass

	result, err := w.ReplayPending(ctx, applier)
	if err != nil {
		t.Fatalf("ReplayPending failed: %v", err)
	}
	if result.Failed != 2 {
		t.Errorf("Failed = %d, want 2", result.Failed)
	}
	if len(result.Errors) != 2 {
		t.Errorf("Errors = %d, want 2", len(result.Errors))
	}

	// Failed entries remain pending with bumped attempt counts
	entries, err := w.GetPending(ctx)
	if err != nil {
		t.Fatalf("GetPending failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("Expected 2 pending entries, got %d", len(entries))
	}
	for _, e := range entries {
		if e.Attempts != 1 {
			t.Errorf("Attempts = %d, want 1", e.Attempts)
		}
		if e.LastError == "" {
			t.Error("Expected LastError to be recorded")
		}
	}

	// A clean second pass applies them
	result2, err := w.ReplayPending(ctx, applier)
	if err != nil {
		t.Fatalf("Second ReplayPending failed: %v", err)
	}
	if result2.Applied != 2 {
		t.Errorf("Second replay Applied = %d, want 2", result2.Applied)
	}
	assertPendingCount(ctx, t, w, 0)
}

func TestWAL_ReplayDropsPoisonEntries(t *testing.T) {
	w := setupWAL(t)
	defer w.Close()

	ctx := context.Background()
	writeTestReports(ctx, t, w, 1)

	applier := &countingApplier{}

	// MaxReplayAttempts is 3: three failing passes bump Attempts to 3
	for i := 0; i < 3; i++ {
		applier.failUntil.Store(1)
		if _, err := w.ReplayPending(ctx, applier); err != nil {
			t.Fatalf("ReplayPending pass %d failed: %v", i, err)
		}
	}

	// Fourth pass sees Attempts >= MaxReplayAttempts and drops the entry
	result, err := w.ReplayPending(ctx, applier)
	if err != nil {
		t.Fatalf("Final ReplayPending failed: %v", err)
	}
	if result.Poisoned != 1 {
		t.Errorf("Poisoned = %d, want 1", result.Poisoned)
	}
	assertPendingCount(ctx, t, w, 0)
}

func TestWAL_ClosedOperations(t *testing.T) {
	w := setupWAL(t)
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	ctx := context.Background()

	if _, err := w.Write(ctx, createTestReport(123456789)); !errors.Is(err, ErrWALClosed) {
		t.Errorf("Write after close: expected ErrWALClosed, got %v", err)
	}
	if err := w.Confirm(ctx, "some-id"); !errors.Is(err, ErrWALClosed) {
		t.Errorf("Confirm after close: expected ErrWALClosed, got %v", err)
	}
	if _, err := w.GetPending(ctx); !errors.Is(err, ErrWALClosed) {
		t.Errorf("GetPending after close: expected ErrWALClosed, got %v", err)
	}

	// Double close is a no-op
	if err := w.Close(); err != nil {
		t.Errorf("Second Close returned error: %v", err)
	}
}

func TestWAL_CompactorRemovesConfirmed(t *testing.T) {
	w := setupWAL(t)
	defer w.Close()

	ctx := context.Background()
	ids := writeTestReports(ctx, t, w, 4)
	for _, id := range ids[:3] {
		if err := w.Confirm(ctx, id); err != nil {
			t.Fatalf("Confirm failed: %v", err)
		}
	}

	compactor := NewCompactor(w)
	if err := compactor.RunNow(); err != nil {
		t.Fatalf("RunNow failed: %v", err)
	}

	stats := w.Stats()
	if stats.ConfirmedCount != 0 {
		t.Errorf("ConfirmedCount after compaction = %d, want 0", stats.ConfirmedCount)
	}
	if stats.PendingCount != 1 {
		t.Errorf("PendingCount after compaction = %d, want 1", stats.PendingCount)
	}

	cstats := compactor.GetStats()
	if cstats.LastEntriesCount != 3 {
		t.Errorf("LastEntriesCount = %d, want 3", cstats.LastEntriesCount)
	}
}

func TestWAL_CompactorStartStop(t *testing.T) {
	w := setupWAL(t)
	defer w.Close()

	compactor := NewCompactor(w)
	if compactor.IsRunning() {
		t.Error("Compactor should not be running before Start")
	}

	if err := compactor.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if !compactor.IsRunning() {
		t.Error("Compactor should be running after Start")
	}

	// Double start is a no-op
	if err := compactor.Start(context.Background()); err != nil {
		t.Fatalf("Second Start failed: %v", err)
	}

	compactor.Stop()
	if compactor.IsRunning() {
		t.Error("Compactor should not be running after Stop")
	}

	// Double stop is a no-op
	compactor.Stop()
}

func TestWAL_PersistenceAcrossReopen(t *testing.T) {
	cfg := createTestConfig(t)

	w, err := Open(&cfg)
	if err != nil {
		t.Fatalf("Failed to open WAL: %v", err)
	}

	ctx := context.Background()
	rep := createTestReport(123456789)
	if _, err := w.Write(ctx, rep); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	// Reopen at the same path: the pending entry survives the restart
	w2, err := Open(&cfg)
	if err != nil {
		t.Fatalf("Failed to reopen WAL: %v", err)
	}
	defer w2.Close()

	entries, err := w2.GetPending(ctx)
	if err != nil {
		t.Fatalf("GetPending failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("Expected 1 pending entry after reopen, got %d", len(entries))
	}
	got, err := entries[0].Report()
	if err != nil {
		t.Fatalf("Report failed: %v", err)
	}
	if got.MMSI != 123456789 {
		t.Errorf("MMSI = %d, want 123456789", got.MMSI)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid default config",
			mutate:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "missing path",
			mutate:  func(c *Config) { c.Path = "" },
			wantErr: true,
		},
		{
			name:    "zero replay attempts",
			mutate:  func(c *Config) { c.MaxReplayAttempts = 0 },
			wantErr: true,
		},
		{
			name:    "compact interval too short",
			mutate:  func(c *Config) { c.CompactInterval = time.Second },
			wantErr: true,
		},
		{
			name:    "entry TTL too short",
			mutate:  func(c *Config) { c.EntryTTL = time.Minute },
			wantErr: true,
		},
		{
			name:    "memtable too small",
			mutate:  func(c *Config) { c.MemTableSize = 1024 },
			wantErr: true,
		},
		{
			name:    "too few compactors",
			mutate:  func(c *Config) { c.NumCompactors = 1 },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
