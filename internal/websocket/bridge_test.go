// Pelorus - Vessel Tracking and Live Fleet Map
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pelorus

package websocket

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/tomtom215/pelorus/internal/events"
	"github.com/tomtom215/pelorus/internal/models"
)

// fakeSource hands the bridge a test-owned message channel in place of
// a JetStream subscription.
type fakeSource struct {
	ch     chan *message.Message
	err    error
	topics chan string
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		ch:     make(chan *message.Message, 4),
		topics: make(chan string, 4),
	}
}

func (f *fakeSource) Subscribe(_ context.Context, topic string) (<-chan *message.Message, error) {
	f.topics <- topic
	if f.err != nil {
		return nil, f.err
	}
	return f.ch, nil
}

func deltaMessage(t *testing.T, delta *models.VesselDelta) *message.Message {
	t.Helper()
	payload, err := events.NewSerializer().Marshal(delta)
	if err != nil {
		t.Fatalf("marshal delta: %v", err)
	}
	return message.NewMessage(watermill.NewUUID(), payload)
}

func startBridge(t *testing.T, b *Bridge) (context.CancelFunc, <-chan error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- b.Serve(ctx) }()
	t.Cleanup(cancel)
	return cancel, done
}

func waitBridgeStopped(t *testing.T, done <-chan error, want error) {
	t.Helper()
	select {
	case err := <-done:
		if want == nil {
			if err == nil {
				t.Error("Serve returned nil, want an error")
			}
			return
		}
		if !errors.Is(err, want) {
			t.Errorf("Serve returned %v, want %v", err, want)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("bridge did not stop")
	}
}

func waitAcked(t *testing.T, msg *message.Message) {
	t.Helper()
	select {
	case <-msg.Acked():
	case <-msg.Nacked():
		t.Fatal("message nacked, want acked")
	case <-time.After(3 * time.Second):
		t.Fatal("message never acked")
	}
}

func TestBridgeForwardsDeltasToHub(t *testing.T) {
	t.Parallel()
	hub := NewHub(&fakeSnapshots{}, DefaultHubConfig())
	stop := startHub(t, hub)
	defer stop()

	v := NewViewer(hub, nil)
	hub.Register <- v
	recvMessage(t, v)

	source := newFakeSource()
	bridge := NewBridge(hub, source)
	cancel, done := startBridge(t, bridge)

	if topic := <-source.topics; topic != events.SubjectAll {
		t.Errorf("subscribed to %q, want %q", topic, events.SubjectAll)
	}

	msg := deltaMessage(t, &models.VesselDelta{MMSI: 276829000})
	source.ch <- msg

	frame := recvMessage(t, v)
	if frame.Type != MessageTypeDelta {
		t.Fatalf("frame type = %q, want delta", frame.Type)
	}
	delta, ok := frame.Data.(*models.VesselDelta)
	if !ok {
		t.Fatalf("frame payload is %T", frame.Data)
	}
	if delta.MMSI != 276829000 {
		t.Errorf("delta mmsi = %d, want 276829000", delta.MMSI)
	}
	waitAcked(t, msg)

	cancel()
	waitBridgeStopped(t, done, context.Canceled)
}

func TestBridgeAcksUndecodablePayload(t *testing.T) {
	t.Parallel()
	hub := NewHub(&fakeSnapshots{}, DefaultHubConfig())
	stop := startHub(t, hub)
	defer stop()

	v := NewViewer(hub, nil)
	hub.Register <- v
	recvMessage(t, v)

	source := newFakeSource()
	bridge := NewBridge(hub, source)
	startBridge(t, bridge)

	// Garbage is acked so JetStream stops redelivering it, and it never
	// reaches a viewer.
	garbage := message.NewMessage(watermill.NewUUID(), []byte("{not a delta"))
	source.ch <- garbage
	waitAcked(t, garbage)

	good := deltaMessage(t, &models.VesselDelta{MMSI: 211000001})
	source.ch <- good
	frame := recvMessage(t, v)
	delta, ok := frame.Data.(*models.VesselDelta)
	if !ok || delta.MMSI != 211000001 {
		t.Errorf("next frame = %+v, want the valid delta only", frame)
	}
	waitAcked(t, good)
}

func TestBridgeSubscribeFailurePropagates(t *testing.T) {
	t.Parallel()
	errBoom := errors.New("jetstream unavailable")
	source := newFakeSource()
	source.err = errBoom
	bridge := NewBridge(NewHub(&fakeSnapshots{}, DefaultHubConfig()), source)

	err := bridge.Serve(context.Background())
	if !errors.Is(err, errBoom) {
		t.Errorf("Serve returned %v, want wrapped %v", err, errBoom)
	}
}

func TestBridgeClosedSubscriptionReturnsError(t *testing.T) {
	t.Parallel()
	hub := NewHub(&fakeSnapshots{}, DefaultHubConfig())
	stop := startHub(t, hub)
	defer stop()

	source := newFakeSource()
	bridge := NewBridge(hub, source)
	_, done := startBridge(t, bridge)
	<-source.topics

	close(source.ch)
	waitBridgeStopped(t, done, nil)
}

func TestBridgeNacksDeliveryCutShortByShutdown(t *testing.T) {
	t.Parallel()
	cfg := DefaultHubConfig()
	cfg.BroadcastBuffer = 1
	hub := NewHub(&fakeSnapshots{}, cfg)
	// Hub intentionally not running: one broadcast fills the buffer and
	// the next delivery blocks.
	if err := hub.BroadcastDelta(context.Background(), &models.VesselDelta{MMSI: 1}); err != nil {
		t.Fatalf("prefill broadcast: %v", err)
	}

	source := newFakeSource()
	bridge := NewBridge(hub, source)
	cancel, done := startBridge(t, bridge)
	<-source.topics

	msg := deltaMessage(t, &models.VesselDelta{MMSI: 2})
	source.ch <- msg
	// Wait until the bridge has taken the message and is blocked on the
	// full hub buffer, then shut down.
	deadline := time.Now().Add(3 * time.Second)
	for len(source.ch) > 0 {
		if time.Now().After(deadline) {
			t.Fatal("bridge never consumed the message")
		}
		time.Sleep(5 * time.Millisecond)
	}
	cancel()

	select {
	case <-msg.Nacked():
	case <-msg.Acked():
		t.Fatal("message acked, want nacked")
	case <-time.After(3 * time.Second):
		t.Fatal("message never nacked")
	}
	waitBridgeStopped(t, done, context.Canceled)
}
