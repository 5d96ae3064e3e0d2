// Pelorus - Vessel Tracking and Live Fleet Map
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pelorus

// Package events is the vessel delta backbone: an embedded NATS server
// with JetStream persistence, the VESSELS stream definition, and the
// watermill publisher/subscriber pair that moves mutation events from
// the store's write path to the broadcast hub.
//
// Running the broker in-process keeps the deployment a single binary.
// JetStream's per-subject ordering carries the per-vessel commit order
// guarantee end to end: deltas for one MMSI are published to one
// subject and every consumer observes them in publish order.
package events

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/tomtom215/pelorus/internal/logging"
)

// serverReadyTimeout bounds how long startup waits for the embedded
// server to accept connections before giving up.
const serverReadyTimeout = 30 * time.Second

// EmbeddedServer wraps an in-process NATS server with JetStream enabled.
type EmbeddedServer struct {
	ns  *server.Server
	cfg ServerConfig
}

// NewEmbeddedServer starts an embedded NATS server and waits for it to
// accept connections. The caller owns the returned server and must call
// Shutdown on exit.
func NewEmbeddedServer(cfg ServerConfig) (*EmbeddedServer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("server config: %w", err)
	}

	opts := &server.Options{
		ServerName:         "pelorus-events",
		Host:               cfg.Host,
		Port:               cfg.Port,
		JetStream:          true,
		StoreDir:           cfg.StoreDir,
		JetStreamMaxMemory: cfg.JetStreamMaxMem,
		JetStreamMaxStore:  cfg.JetStreamMaxStore,
		DontListen:         false,
		MaxPayload:         8 * 1024 * 1024, // 8MB
	}

	ns, err := server.NewServer(opts)
	if err != nil {
		return nil, fmt.Errorf("create NATS server: %w", err)
	}

	ns.ConfigureLogger()

	go ns.Start()

	if !ns.ReadyForConnections(serverReadyTimeout) {
		ns.Shutdown()
		return nil, fmt.Errorf("NATS server not ready after %s", serverReadyTimeout)
	}

	logging.Info().
		Str("url", ns.ClientURL()).
		Str("store_dir", cfg.StoreDir).
		Msg("Embedded NATS server ready")

	return &EmbeddedServer{ns: ns, cfg: cfg}, nil
}

// ClientURL returns the connection URL for in-process clients.
func (s *EmbeddedServer) ClientURL() string {
	return s.ns.ClientURL()
}

// Shutdown stops the server and waits for a clean exit or context
// cancellation, whichever comes first.
func (s *EmbeddedServer) Shutdown(ctx context.Context) error {
	s.ns.Shutdown()

	done := make(chan struct{})
	go func() {
		s.ns.WaitForShutdown()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("NATS shutdown: %w", ctx.Err())
	}
}

// IsRunning reports whether the server is accepting connections.
func (s *EmbeddedServer) IsRunning() bool {
	return s.ns.Running()
}

// JetStreamEnabled reports whether JetStream is active.
func (s *EmbeddedServer) JetStreamEnabled() bool {
	return s.ns.JetStreamEnabled()
}
