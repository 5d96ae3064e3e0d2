// Pelorus - Vessel Tracking and Live Fleet Map
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pelorus

package websocket

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/tomtom215/pelorus/internal/models"
)

// fakeSnapshots serves a fixed vessel set, or fails on demand.
type fakeSnapshots struct {
	mu      sync.Mutex
	vessels []models.VesselRecord
	err     error
	reads   int
}

func (f *fakeSnapshots) Snapshot(_ context.Context, _ *models.SnapshotFilter) ([]models.VesselRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads++
	if f.err != nil {
		return nil, f.err
	}
	out := make([]models.VesselRecord, len(f.vessels))
	copy(out, f.vessels)
	return out, nil
}

func testVessels(n int) []models.VesselRecord {
	vessels := make([]models.VesselRecord, n)
	for i := range vessels {
		vessels[i] = models.VesselRecord{MMSI: int64(230000000 + i)}
	}
	return vessels
}

// startHub runs the hub until the returned stop function is called.
func startHub(t *testing.T, hub *Hub) func() {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- hub.Serve(ctx) }()
	time.Sleep(10 * time.Millisecond)
	return func() {
		cancel()
		select {
		case err := <-done:
			if !errors.Is(err, context.Canceled) {
				t.Errorf("Serve returned %v, want context.Canceled", err)
			}
		case <-time.After(5 * time.Second):
			t.Error("hub did not stop")
		}
	}
}

// recvMessage reads one message from a viewer queue with a timeout.
func recvMessage(t *testing.T, v *Viewer) Message {
	t.Helper()
	select {
	case msg, ok := <-v.send:
		if !ok {
			t.Fatal("viewer queue closed while expecting a message")
		}
		return msg
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for viewer message")
		return Message{}
	}
}

// waitClosed asserts the viewer queue is (or becomes) closed and empty.
func waitClosed(t *testing.T, v *Viewer) {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		select {
		case _, ok := <-v.send:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("viewer queue never closed")
		}
	}
}

// waitViewerCount polls until the hub's viewer set reaches want.
func waitViewerCount(t *testing.T, hub *Hub, want int) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if hub.ViewerCount() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("viewer count = %d, want %d", hub.ViewerCount(), want)
}

func TestNewHubDefaults(t *testing.T) {
	t.Parallel()
	hub := NewHub(&fakeSnapshots{}, HubConfig{})

	if hub.cfg.QueueSize != 64 {
		t.Errorf("queue size = %d, want default 64", hub.cfg.QueueSize)
	}
	if hub.cfg.BroadcastBuffer != 256 {
		t.Errorf("broadcast buffer = %d, want default 256", hub.cfg.BroadcastBuffer)
	}
	if hub.cfg.SnapshotTimeout != 5*time.Second {
		t.Errorf("snapshot timeout = %v, want default 5s", hub.cfg.SnapshotTimeout)
	}
	if hub.ViewerCount() != 0 {
		t.Errorf("viewer count = %d on a fresh hub, want 0", hub.ViewerCount())
	}
}

func TestHubSnapshotFirstThenDeltas(t *testing.T) {
	t.Parallel()
	source := &fakeSnapshots{vessels: testVessels(3)}
	hub := NewHub(source, DefaultHubConfig())
	stop := startHub(t, hub)
	defer stop()

	v := NewViewer(hub, nil)
	if got := v.State(); got != StateConnecting {
		t.Fatalf("initial state = %v, want connecting", got)
	}
	hub.Register <- v

	// The first frame is always the snapshot.
	first := recvMessage(t, v)
	if first.Type != MessageTypeSnapshot {
		t.Fatalf("first frame type = %q, want snapshot", first.Type)
	}
	snap, ok := first.Data.(SnapshotData)
	if !ok {
		t.Fatalf("snapshot payload is %T", first.Data)
	}
	if snap.Count != 3 || len(snap.Vessels) != 3 {
		t.Errorf("snapshot count = %d (%d vessels), want 3", snap.Count, len(snap.Vessels))
	}
	if got := v.State(); got != StateLive {
		t.Errorf("state after snapshot = %v, want live", got)
	}
	if hub.ViewerCount() != 1 {
		t.Errorf("viewer count = %d, want 1", hub.ViewerCount())
	}

	// Every delta broadcast after admission arrives, in order.
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		mmsi := int64(276820000 + i)
		if err := hub.BroadcastDelta(ctx, &models.VesselDelta{MMSI: mmsi}); err != nil {
			t.Fatalf("broadcast %d: %v", i, err)
		}
	}
	for i := 0; i < 5; i++ {
		msg := recvMessage(t, v)
		if msg.Type != MessageTypeDelta {
			t.Fatalf("frame %d type = %q, want delta", i, msg.Type)
		}
		delta, ok := msg.Data.(*models.VesselDelta)
		if !ok {
			t.Fatalf("delta payload is %T", msg.Data)
		}
		if want := int64(276820000 + i); delta.MMSI != want {
			t.Errorf("delta %d mmsi = %d, want %d (order broken)", i, delta.MMSI, want)
		}
	}
}

func TestHubSnapshotFailureDropsViewer(t *testing.T) {
	t.Parallel()
	source := &fakeSnapshots{err: errors.New("store unavailable")}
	hub := NewHub(source, DefaultHubConfig())
	stop := startHub(t, hub)
	defer stop()

	v := NewViewer(hub, nil)
	hub.Register <- v

	waitClosed(t, v)
	if hub.ViewerCount() != 0 {
		t.Errorf("viewer count = %d after failed snapshot, want 0", hub.ViewerCount())
	}
	if got := v.State(); got != StateClosing {
		t.Errorf("state = %v after failed snapshot, want closing", got)
	}
}

func TestHubSlowViewerDroppedOthersUnaffected(t *testing.T) {
	t.Parallel()
	source := &fakeSnapshots{vessels: testVessels(1)}
	cfg := DefaultHubConfig()
	cfg.QueueSize = 1
	hub := NewHub(source, cfg)
	stop := startHub(t, hub)
	defer stop()

	fast := NewViewer(hub, nil)
	hub.Register <- fast
	if msg := recvMessage(t, fast); msg.Type != MessageTypeSnapshot {
		t.Fatalf("fast viewer first frame = %q", msg.Type)
	}

	// The slow viewer never drains: its snapshot still occupies the
	// single queue slot when the delta arrives.
	slow := NewViewer(hub, nil)
	hub.Register <- slow
	waitViewerCount(t, hub, 2)

	ctx := context.Background()
	if err := hub.BroadcastDelta(ctx, &models.VesselDelta{MMSI: 276829000}); err != nil {
		t.Fatalf("broadcast: %v", err)
	}

	// The fast viewer receives the delta; the slow one is disconnected
	// without delaying it.
	if msg := recvMessage(t, fast); msg.Type != MessageTypeDelta {
		t.Errorf("fast viewer frame = %q, want delta", msg.Type)
	}
	waitClosed(t, slow)
	if hub.ViewerCount() != 1 {
		t.Errorf("viewer count = %d after slow drop, want 1", hub.ViewerCount())
	}

	// Delivery to the survivor keeps working.
	if err := hub.BroadcastDelta(ctx, &models.VesselDelta{MMSI: 276829001}); err != nil {
		t.Fatalf("broadcast: %v", err)
	}
	if msg := recvMessage(t, fast); msg.Type != MessageTypeDelta {
		t.Errorf("fast viewer frame = %q after drop, want delta", msg.Type)
	}
}

func TestHubUnregisterClosesQueueExactlyOnce(t *testing.T) {
	t.Parallel()
	source := &fakeSnapshots{vessels: testVessels(1)}
	hub := NewHub(source, DefaultHubConfig())
	stop := startHub(t, hub)
	defer stop()

	v := NewViewer(hub, nil)
	hub.Register <- v
	recvMessage(t, v)

	hub.Unregister <- v
	waitClosed(t, v)
	if hub.ViewerCount() != 0 {
		t.Errorf("viewer count = %d, want 0", hub.ViewerCount())
	}

	// A second unregister for the same viewer must be a no-op, not a
	// double close.
	hub.Unregister <- v
	time.Sleep(20 * time.Millisecond)
	if hub.ViewerCount() != 0 {
		t.Errorf("viewer count = %d after repeat unregister, want 0", hub.ViewerCount())
	}
}

func TestHubRepeatedConnectDisconnectLeaksNothing(t *testing.T) {
	t.Parallel()
	source := &fakeSnapshots{vessels: testVessels(1)}
	hub := NewHub(source, DefaultHubConfig())
	stop := startHub(t, hub)
	defer stop()

	for i := 0; i < 50; i++ {
		v := NewViewer(hub, nil)
		hub.Register <- v
		recvMessage(t, v)
		hub.Unregister <- v
		waitClosed(t, v)
	}

	if hub.ViewerCount() != 0 {
		t.Errorf("viewer count = %d after 50 cycles, want 0", hub.ViewerCount())
	}
	source.mu.Lock()
	defer source.mu.Unlock()
	if source.reads != 50 {
		t.Errorf("snapshot reads = %d, want 50", source.reads)
	}
}

func TestHubShutdownClosesAllViewers(t *testing.T) {
	t.Parallel()
	source := &fakeSnapshots{vessels: testVessels(1)}
	hub := NewHub(source, DefaultHubConfig())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- hub.Serve(ctx) }()
	time.Sleep(10 * time.Millisecond)

	viewers := make([]*Viewer, 3)
	for i := range viewers {
		viewers[i] = NewViewer(hub, nil)
		hub.Register <- viewers[i]
		recvMessage(t, viewers[i])
	}

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve returned %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("hub did not stop")
	}

	for i, v := range viewers {
		waitClosed(t, v)
		if got := v.State(); got != StateClosing {
			t.Errorf("viewer %d state = %v after shutdown, want closing", i, got)
		}
	}
	if hub.ViewerCount() != 0 {
		t.Errorf("viewer count = %d after shutdown, want 0", hub.ViewerCount())
	}
}

func TestHubBroadcastDeltaHonorsContext(t *testing.T) {
	t.Parallel()
	cfg := DefaultHubConfig()
	cfg.BroadcastBuffer = 1
	hub := NewHub(&fakeSnapshots{}, cfg)
	// Hub not running: the buffer takes one message, then blocks.

	ctx := context.Background()
	if err := hub.BroadcastDelta(ctx, &models.VesselDelta{MMSI: 1}); err != nil {
		t.Fatalf("first broadcast: %v", err)
	}

	cctx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	err := hub.BroadcastDelta(cctx, &models.VesselDelta{MMSI: 2})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want context.DeadlineExceeded", err)
	}
}

func TestHubManyViewersOneStalled(t *testing.T) {
	t.Parallel()
	source := &fakeSnapshots{vessels: testVessels(1)}
	cfg := DefaultHubConfig()
	cfg.QueueSize = 4
	hub := NewHub(source, cfg)
	stop := startHub(t, hub)
	defer stop()

	const healthy = 8
	viewers := make([]*Viewer, healthy)
	for i := range viewers {
		viewers[i] = NewViewer(hub, nil)
		hub.Register <- viewers[i]
		recvMessage(t, viewers[i])
	}
	stalled := NewViewer(hub, nil)
	hub.Register <- stalled
	waitViewerCount(t, hub, healthy+1)

	// Healthy viewers drain in lockstep; the stalled one never reads,
	// so its snapshot plus three deltas fill the queue and the fourth
	// delta evicts it.
	ctx := context.Background()
	const deltas = 10
	for i := 0; i < deltas; i++ {
		if err := hub.BroadcastDelta(ctx, &models.VesselDelta{MMSI: int64(i)}); err != nil {
			t.Fatalf("broadcast %d: %v", i, err)
		}
		for j, v := range viewers {
			msg := recvMessage(t, v)
			delta, ok := msg.Data.(*models.VesselDelta)
			if !ok || delta.MMSI != int64(i) {
				t.Fatalf("viewer %d frame %d = %+v, want delta mmsi %d", j, i, msg, i)
			}
		}
	}

	waitClosed(t, stalled)
	if hub.ViewerCount() != healthy {
		t.Errorf("viewer count = %d, want %d after stalled drop", hub.ViewerCount(), healthy)
	}
}
