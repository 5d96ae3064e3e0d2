// Pelorus - Vessel Tracking and Live Fleet Map
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pelorus

package websocket

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/tomtom215/pelorus/internal/logging"
	"github.com/tomtom215/pelorus/internal/metrics"
	"github.com/tomtom215/pelorus/internal/models"
)

// Message types pushed to viewers.
const (
	MessageTypeSnapshot = "snapshot"
	MessageTypeDelta    = "delta"
	MessageTypePing     = "ping"
	MessageTypePong     = "pong"
)

// Message is one framed payload on a viewer connection.
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// SnapshotData is the first frame every viewer receives: the complete
// current vessel set as of the connect-time store read.
type SnapshotData struct {
	GeneratedAt time.Time             `json:"generated_at"`
	Count       int                   `json:"count"`
	Vessels     []models.VesselRecord `json:"vessels"`
}

// SnapshotSource is the store read the hub performs for each connecting
// viewer.
type SnapshotSource interface {
	Snapshot(ctx context.Context, filter *models.SnapshotFilter) ([]models.VesselRecord, error)
}

// HubConfig tunes the hub's buffers and the connect-time snapshot read.
type HubConfig struct {
	// QueueSize bounds each viewer's outbound queue. Overflow drops
	// the viewer, never delays the others.
	QueueSize int

	// BroadcastBuffer sizes the hub's inbound event channel. When it
	// fills, the NATS bridge blocks and JetStream holds the backlog.
	BroadcastBuffer int

	// SnapshotTimeout bounds the store read served to a connecting
	// viewer.
	SnapshotTimeout time.Duration
}

// DefaultHubConfig returns the standard hub settings.
func DefaultHubConfig() HubConfig {
	return HubConfig{
		QueueSize:       64,
		BroadcastBuffer: 256,
		SnapshotTimeout: 5 * time.Second,
	}
}

// Hub owns the viewer set and the delta fan-out. All set mutations and
// all snapshot reads happen on the single Serve goroutine, so a viewer
// is never admitted between a snapshot read and the deltas that follow
// it.
type Hub struct {
	cfg       HubConfig
	snapshots SnapshotSource

	viewers   map[*Viewer]bool
	broadcast chan Message

	Register   chan *Viewer
	Unregister chan *Viewer

	mu sync.RWMutex
}

// NewHub creates a hub reading connect-time snapshots from the given
// source.
func NewHub(snapshots SnapshotSource, cfg HubConfig) *Hub {
	if cfg.QueueSize < 1 {
		cfg.QueueSize = 64
	}
	if cfg.BroadcastBuffer < 1 {
		cfg.BroadcastBuffer = 256
	}
	if cfg.SnapshotTimeout <= 0 {
		cfg.SnapshotTimeout = 5 * time.Second
	}

	return &Hub{
		cfg:        cfg,
		snapshots:  snapshots,
		viewers:    make(map[*Viewer]bool),
		broadcast:  make(chan Message, cfg.BroadcastBuffer),
		Register:   make(chan *Viewer),
		Unregister: make(chan *Viewer),
	}
}

// Serve runs the hub until the context is canceled, then closes every
// viewer. Implements suture.Service.
//
// Selection is priority ordered: shutdown first, then viewer lifecycle,
// then broadcasts. Go's select picks randomly among ready channels, so
// without the staged checks a burst of deltas could starve a pending
// disconnect.
func (h *Hub) Serve(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			h.shutdown(ctx)
			return ctx.Err()
		default:
		}

		select {
		case v := <-h.Register:
			h.admit(ctx, v)
			continue
		case v := <-h.Unregister:
			h.remove(v)
			continue
		default:
		}

		select {
		case <-ctx.Done():
			h.shutdown(ctx)
			return ctx.Err()
		case v := <-h.Register:
			h.admit(ctx, v)
		case v := <-h.Unregister:
			h.remove(v)
		case msg := <-h.broadcast:
			h.fanOut(msg)
		}
	}
}

func (h *Hub) String() string { return "websocket-hub" }

// BroadcastDelta feeds one mutation event into the fan-out. It blocks
// when the hub's buffer is full: the caller (the NATS bridge) holds its
// message un-acked and JetStream absorbs the backlog.
func (h *Hub) BroadcastDelta(ctx context.Context, delta *models.VesselDelta) error {
	select {
	case h.broadcast <- Message{Type: MessageTypeDelta, Data: delta}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ViewerCount returns the number of admitted viewers.
func (h *Hub) ViewerCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.viewers)
}

// admit serves the connect-time snapshot and adds the viewer to the
// fan-out set. The snapshot is read synchronously on the hub goroutine:
// every delta processed before this read is inside the snapshot, every
// delta after it is delivered live, and nothing is missed or doubled.
func (h *Hub) admit(ctx context.Context, v *Viewer) {
	v.setState(StateSnapshotting)

	sctx, cancel := context.WithTimeout(ctx, h.cfg.SnapshotTimeout)
	start := time.Now()
	vessels, err := h.snapshots.Snapshot(sctx, nil)
	cancel()
	metrics.WSSnapshotDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		logging.Error().Err(err).Uint64("viewer", v.ID()).Msg("Connect-time snapshot failed, dropping viewer")
		metrics.RecordViewerDropped("snapshot_failed")
		v.setState(StateClosing)
		close(v.send)
		return
	}

	// The queue is freshly created and the viewer is not yet in the
	// set, so this enqueue cannot block or race a fan-out.
	v.send <- Message{
		Type: MessageTypeSnapshot,
		Data: SnapshotData{
			GeneratedAt: start.UTC(),
			Count:       len(vessels),
			Vessels:     vessels,
		},
	}
	v.setState(StateLive)

	h.mu.Lock()
	h.viewers[v] = true
	total := len(h.viewers)
	h.mu.Unlock()

	metrics.WSViewers.Set(float64(total))
	metrics.WSSnapshotsSent.Inc()
	logging.Info().
		Uint64("viewer", v.ID()).
		Int("vessels", len(vessels)).
		Int("total_viewers", total).
		Msg("Viewer connected")
}

// remove deregisters a viewer. The membership check makes the queue
// close exactly once no matter how many paths report the same viewer.
func (h *Hub) remove(v *Viewer) {
	h.mu.Lock()
	_, ok := h.viewers[v]
	if ok {
		delete(h.viewers, v)
		close(v.send)
	}
	total := len(h.viewers)
	h.mu.Unlock()

	if !ok {
		return
	}
	metrics.WSViewers.Set(float64(total))
	logging.Info().Uint64("viewer", v.ID()).Int("total_viewers", total).Msg("Viewer disconnected")
}

// fanOut delivers one message to every admitted viewer. Viewers are
// walked in ID order so delivery and drop decisions are deterministic.
// A full queue disconnects that viewer on the spot.
func (h *Hub) fanOut(msg Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	viewers := make([]*Viewer, 0, len(h.viewers))
	for v := range h.viewers {
		viewers = append(viewers, v)
	}
	sort.Slice(viewers, func(i, j int) bool {
		return viewers[i].id < viewers[j].id
	})

	var dropped []*Viewer
	for _, v := range viewers {
		select {
		case v.send <- msg:
			metrics.WSDeltasSent.Inc()
		default:
			dropped = append(dropped, v)
		}
	}

	for _, v := range dropped {
		v.setState(StateClosing)
		close(v.send)
		delete(h.viewers, v)
		metrics.RecordViewerDropped("slow")
		logging.Warn().Uint64("viewer", v.ID()).Msg("Viewer queue full, dropping connection")
	}
	if len(dropped) > 0 {
		metrics.WSViewers.Set(float64(len(h.viewers)))
	}
}

// shutdown closes every viewer queue and logs the reason.
func (h *Hub) shutdown(ctx context.Context) {
	h.mu.Lock()
	closed := len(h.viewers)
	for v := range h.viewers {
		v.setState(StateClosing)
		close(v.send)
		delete(h.viewers, v)
	}
	h.mu.Unlock()

	metrics.WSViewers.Set(0)

	reason := "context_canceled"
	if ctx.Err() == context.DeadlineExceeded {
		reason = "context_deadline"
	}
	logging.Info().
		Str("component", "websocket-hub").
		Str("reason", reason).
		Int("viewers_closed", closed).
		Msg("Hub stopped")
}
