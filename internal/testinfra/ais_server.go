// Pelorus - Vessel Tracking and Live Fleet Map
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pelorus

//go:build integration

package testinfra

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/tomtom215/pelorus/internal/models"
)

// frameWriteTimeout bounds writes into fake sessions so a stuck client
// cannot hang a test.
const frameWriteTimeout = 5 * time.Second

// StreamSubscription is one captured subscribe frame together with the
// bearer credential presented on the upgrade request.
type StreamSubscription struct {
	APIKey        string
	Bearer        string
	BoundingBoxes []models.BoundingBox
	MessageTypes  []string
}

// streamFrame mirrors the provider's wire envelope.
type streamFrame struct {
	MessageType    string         `json:"message_type"`
	MMSI           int64          `json:"mmsi"`
	TimeUTC        time.Time      `json:"time_utc"`
	Error          string         `json:"error,omitempty"`
	PositionReport *framePosition `json:"position_report,omitempty"`
	ShipStaticData *frameStatic   `json:"ship_static_data,omitempty"`
}

type framePosition struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type frameStatic struct {
	Name     string `json:"name,omitempty"`
	ShipType *int   `json:"ship_type,omitempty"`
}

type subscribeRequest struct {
	APIKey        string               `json:"api_key"`
	BoundingBoxes []models.BoundingBox `json:"bounding_boxes"`
	MessageTypes  []string             `json:"message_types"`
}

// FakeAISServer simulates the AIS stream provider. It accepts websocket
// upgrades, records every subscribe frame, and keeps accepted sessions
// open so tests can inject traffic with Broadcast.
//
// Credentials named via RejectKey are answered with an error frame and
// a close, which is how the real provider refuses a subscription;
// RefuseHandshake rejects dials before the upgrade instead.
type FakeAISServer struct {
	Server *httptest.Server

	upgrader websocket.Upgrader

	mu            sync.Mutex
	handshakeCode int
	rejectReasons map[string]string
	subs          []StreamSubscription
	conns         map[*websocket.Conn]bool
}

// NewFakeAISServer starts a fake stream provider. Callers close it with
// defer srv.Close().
func NewFakeAISServer(t *testing.T) *FakeAISServer {
	t.Helper()

	f := &FakeAISServer{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
		rejectReasons: make(map[string]string),
		conns:         make(map[*websocket.Conn]bool),
	}
	f.Server = httptest.NewServer(http.HandlerFunc(f.handleStream))
	return f
}

// URL returns the server URL. The stream adapter converts the http
// scheme to ws itself.
func (f *FakeAISServer) URL() string { return f.Server.URL }

// Close drops every live session and shuts the server down.
func (f *FakeAISServer) Close() {
	f.mu.Lock()
	for conn := range f.conns {
		conn.Close()
	}
	f.conns = make(map[*websocket.Conn]bool)
	f.mu.Unlock()
	f.Server.Close()
}

// RejectKey makes subscriptions carrying the given API key fail with an
// error frame naming reason.
func (f *FakeAISServer) RejectKey(key, reason string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rejectReasons[key] = reason
}

// RefuseHandshake makes every dial fail with the given HTTP status
// before the websocket upgrade. Zero restores normal upgrades.
func (f *FakeAISServer) RefuseHandshake(status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handshakeCode = status
}

// Subscriptions returns every captured subscribe frame in arrival
// order, rejected ones included.
func (f *FakeAISServer) Subscriptions() []StreamSubscription {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]StreamSubscription, len(f.subs))
	copy(out, f.subs)
	return out
}

// WaitForSubscriptions blocks until at least n subscribe frames have
// arrived or the timeout passes.
func (f *FakeAISServer) WaitForSubscriptions(n int, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		f.mu.Lock()
		count := len(f.subs)
		f.mu.Unlock()
		if count >= n {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return false
}

// SessionCount returns the number of live accepted sessions.
func (f *FakeAISServer) SessionCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.conns)
}

// Broadcast writes one raw frame to every live session and returns how
// many received it. Sessions whose write fails are dropped.
func (f *FakeAISServer) Broadcast(frame []byte) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	sent := 0
	for conn := range f.conns {
		_ = conn.SetWriteDeadline(time.Now().Add(frameWriteTimeout))
		if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
			conn.Close()
			delete(f.conns, conn)
			continue
		}
		sent++
	}
	return sent
}

// DropSessions closes every live session without stopping the server,
// forcing clients through their reconnect path.
func (f *FakeAISServer) DropSessions() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for conn := range f.conns {
		conn.Close()
		delete(f.conns, conn)
	}
}

func (f *FakeAISServer) handleStream(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	refuse := f.handshakeCode
	f.mu.Unlock()
	if refuse != 0 {
		http.Error(w, http.StatusText(refuse), refuse)
		return
	}

	bearer := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	conn, err := f.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	_ = conn.SetReadDeadline(time.Now().Add(10 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		conn.Close()
		return
	}
	var sub subscribeRequest
	if err := json.Unmarshal(data, &sub); err != nil {
		conn.Close()
		return
	}

	f.mu.Lock()
	f.subs = append(f.subs, StreamSubscription{
		APIKey:        sub.APIKey,
		Bearer:        bearer,
		BoundingBoxes: sub.BoundingBoxes,
		MessageTypes:  sub.MessageTypes,
	})
	reason := f.rejectReasons[sub.APIKey]
	if reason == "" {
		f.conns[conn] = true
	}
	f.mu.Unlock()

	if reason != "" {
		_ = conn.SetWriteDeadline(time.Now().Add(frameWriteTimeout))
		_ = conn.WriteMessage(websocket.TextMessage, ErrorFrame(reason))
		conn.Close()
		return
	}

	// Drain the session so keepalive pings are answered. The loop exits
	// when the client hangs up or the test closes the connection.
	_ = conn.SetReadDeadline(time.Time{})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	f.mu.Lock()
	delete(f.conns, conn)
	f.mu.Unlock()
	conn.Close()
}

// PositionFrame builds a PositionReport wire frame.
func PositionFrame(mmsi int64, lat, lon float64, at time.Time) []byte {
	data, _ := json.Marshal(streamFrame{
		MessageType:    "PositionReport",
		MMSI:           mmsi,
		TimeUTC:        at.UTC(),
		PositionReport: &framePosition{Latitude: lat, Longitude: lon},
	})
	return data
}

// StaticFrame builds a ShipStaticData wire frame carrying a name and a
// ship type code.
func StaticFrame(mmsi int64, name string, shipType int, at time.Time) []byte {
	data, _ := json.Marshal(streamFrame{
		MessageType:    "ShipStaticData",
		MMSI:           mmsi,
		TimeUTC:        at.UTC(),
		ShipStaticData: &frameStatic{Name: name, ShipType: &shipType},
	})
	return data
}

// SightingFrame builds a minimal VesselSighting wire frame.
func SightingFrame(mmsi int64, at time.Time) []byte {
	data, _ := json.Marshal(streamFrame{
		MessageType: "VesselSighting",
		MMSI:        mmsi,
		TimeUTC:     at.UTC(),
	})
	return data
}

// ErrorFrame builds a subscription rejection frame.
func ErrorFrame(reason string) []byte {
	data, _ := json.Marshal(streamFrame{Error: reason})
	return data
}
