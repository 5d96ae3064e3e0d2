// Pelorus - Vessel Tracking and Live Fleet Map
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pelorus

package services

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

// fakeCompactor records lifecycle calls.
type fakeCompactor struct {
	started  atomic.Bool
	stopped  atomic.Bool
	startErr error
}

func (f *fakeCompactor) Start(_ context.Context) error {
	if f.startErr != nil {
		return f.startErr
	}
	f.started.Store(true)
	return nil
}

func (f *fakeCompactor) Stop() {
	f.stopped.Store(true)
}

func TestNewWALCompactorService(t *testing.T) {
	t.Parallel()

	if _, err := NewWALCompactorService(nil); err == nil {
		t.Error("expected error for nil compactor")
	}

	svc, err := NewWALCompactorService(&fakeCompactor{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if svc.String() != "wal-compactor" {
		t.Errorf("expected wal-compactor, got %q", svc.String())
	}
}

func TestWALCompactorService_Lifecycle(t *testing.T) {
	t.Parallel()

	compactor := &fakeCompactor{}
	svc, err := NewWALCompactorService(compactor)
	if err != nil {
		t.Fatalf("NewWALCompactorService failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- svc.Serve(ctx)
	}()

	time.Sleep(30 * time.Millisecond)
	if !compactor.started.Load() {
		t.Error("expected compactor started")
	}
	if compactor.stopped.Load() {
		t.Error("compactor stopped before cancellation")
	}

	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Serve did not return after cancellation")
	}

	if !compactor.stopped.Load() {
		t.Error("expected compactor stopped on shutdown")
	}
}

func TestWALCompactorService_StartFailure(t *testing.T) {
	t.Parallel()

	compactor := &fakeCompactor{startErr: errors.New("db closed")}
	svc, err := NewWALCompactorService(compactor)
	if err != nil {
		t.Fatalf("NewWALCompactorService failed: %v", err)
	}

	err = svc.Serve(context.Background())
	if err == nil {
		t.Fatal("expected start failure to propagate")
	}
	if !strings.Contains(err.Error(), "start failed") {
		t.Errorf("expected start failure error, got %v", err)
	}
	if compactor.stopped.Load() {
		t.Error("Stop must not run after a failed Start")
	}
}
