// Pelorus - Vessel Tracking and Live Fleet Map
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pelorus

/*
Package websocket fans vessel mutation events out to live map viewers.

The hub subscribes to the store's mutation event stream (through the
NATS bridge), keeps the set of connected viewers, and pushes minimal
deltas. A newly connected viewer first receives one full snapshot read
from the store, then joins the live fan-out; the ordering guarantees no
gap and no duplicated initial state.

Key Components:

  - Hub: single-goroutine broker owning the viewer set and fan-out
  - Viewer: one WebSocket connection with read/write goroutines and an
    explicit connection state machine
  - Bridge: forwards the durable event subscription into the hub

Architecture:

	store ──delta──▶ NATS ──▶ Bridge ──▶ Hub ──▶ Viewer 1..n

Each viewer has two goroutines:

  - readPump: drains client frames, answers pings, detects dead peers
  - writePump: delivers queued frames, sends protocol pings

Viewer State Machine:

	connecting -> snapshotting -> live -> closing -> closed

Any I/O error in any state moves the viewer to closing. The hub closes
a viewer's queue exactly once, so repeated connect/disconnect cycles
leak nothing.

Message Types:

  - snapshot: full vessel set, sent once after connect
  - delta: changed fields for one vessel, pushed on every mutation
  - ping/pong: application-level liveness for clients that want it

Slow Viewer Policy:

Per-viewer outbound queues are bounded (default 64 frames). A viewer
whose queue would overflow is disconnected instead of backpressuring
the hub: one stalled connection never delays delivery to the others,
and never reaches the store's write path.

Usage:

	hub := websocket.NewHub(store, websocket.DefaultHubConfig())
	// supervised: tree.Add(hub)

	// HTTP upgrade endpoint
	viewer := websocket.NewViewer(hub, conn)
	hub.Register <- viewer
	viewer.Start()

Connection Settings:

  - writeWait: 10 seconds per outbound frame
  - pongWait: 60 seconds before a silent peer is considered dead
  - pingPeriod: 54 seconds (must stay under pongWait)
  - maxMessageSize: 512 KB inbound limit
*/
package websocket
