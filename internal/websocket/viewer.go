// Pelorus - Vessel Tracking and Live Fleet Map
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pelorus

package websocket

import (
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tomtom215/pelorus/internal/logging"
	"github.com/tomtom215/pelorus/internal/metrics"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512 * 1024 // 512 KB
)

// ViewerState tracks a connection through its lifecycle.
type ViewerState int32

const (
	StateConnecting ViewerState = iota
	StateSnapshotting
	StateLive
	StateClosing
	StateClosed
)

func (s ViewerState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateSnapshotting:
		return "snapshotting"
	case StateLive:
		return "live"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// viewerIDCounter hands out monotonically increasing viewer IDs, giving
// the hub a stable fan-out order.
var viewerIDCounter atomic.Uint64

// Viewer is one map client connection. The hub owns its send queue; the
// two pumps own the socket.
type Viewer struct {
	id    uint64
	hub   *Hub
	conn  *websocket.Conn
	send  chan Message
	state atomic.Int32
}

// NewViewer wraps an upgraded connection. The viewer starts in the
// connecting state and moves through snapshotting to live once the hub
// admits it.
func NewViewer(hub *Hub, conn *websocket.Conn) *Viewer {
	v := &Viewer{
		id:   viewerIDCounter.Add(1),
		hub:  hub,
		conn: conn,
		send: make(chan Message, hub.cfg.QueueSize),
	}
	v.state.Store(int32(StateConnecting))
	return v
}

// ID returns the viewer's fan-out ordering key.
func (v *Viewer) ID() uint64 {
	return v.id
}

// State returns the current lifecycle state.
func (v *Viewer) State() ViewerState {
	return ViewerState(v.state.Load())
}

// setState advances the lifecycle. Closed is terminal: a late pump
// error can never resurrect a finished connection.
func (v *Viewer) setState(next ViewerState) {
	for {
		cur := v.state.Load()
		if ViewerState(cur) == StateClosed {
			return
		}
		if v.state.CompareAndSwap(cur, int32(next)) {
			return
		}
	}
}

// Start launches the read and write pumps.
func (v *Viewer) Start() {
	go v.writePump()
	go v.readPump()
}

// readPump drains inbound frames until the peer goes away. Viewers are
// read-mostly; the only inbound frame acted on is the application-level
// ping.
func (v *Viewer) readPump() {
	defer func() {
		v.setState(StateClosing)
		v.hub.Unregister <- v
		_ = v.conn.Close()
		v.setState(StateClosed)
	}()

	v.conn.SetReadLimit(maxMessageSize)
	if err := v.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		logging.Error().Err(err).Uint64("viewer", v.id).Msg("Set read deadline failed")
		return
	}
	v.conn.SetPongHandler(func(string) error {
		return v.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg Message
		if err := v.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				metrics.RecordViewerDropped("read_error")
				logging.Warn().Err(err).Uint64("viewer", v.id).Msg("Viewer read failed")
			}
			return
		}

		if msg.Type == MessageTypePing {
			select {
			case v.send <- Message{Type: MessageTypePong}:
			default:
			}
		}
	}
}

// writePump delivers queued frames and keeps the connection alive with
// protocol pings. A closed queue (the hub dropped or deregistered the
// viewer) sends a close frame and exits.
func (v *Viewer) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = v.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-v.send:
			if err := v.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				v.setState(StateClosing)
				return
			}
			if !ok {
				_ = v.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := v.conn.WriteJSON(msg); err != nil {
				v.setState(StateClosing)
				metrics.RecordViewerDropped("write_error")
				logging.Warn().Err(err).Uint64("viewer", v.id).Msg("Viewer write failed")
				return
			}

		case <-ticker.C:
			if err := v.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				v.setState(StateClosing)
				return
			}
			if err := v.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				v.setState(StateClosing)
				return
			}
		}
	}
}
