// Pelorus - Vessel Tracking and Live Fleet Map
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pelorus

package main

import (
	"context"
	"fmt"
	"sync"
	"time"

	natsgo "github.com/nats-io/nats.go"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/pelorus/internal/config"
	"github.com/tomtom215/pelorus/internal/events"
	"github.com/tomtom215/pelorus/internal/logging"
)

// EventsComponents holds the embedded event backbone: the NATS server,
// the admin connection, the JetStream stream manager, and the watermill
// publisher and subscriber bound to the vessel stream.
type EventsComponents struct {
	server     *events.EmbeddedServer
	conn       *natsgo.Conn
	stream     *events.StreamManager
	publisher  *events.Publisher
	subscriber *events.Subscriber
	health     *events.HealthChecker

	mu      sync.Mutex
	running bool
}

// InitEvents boots the embedded NATS server, ensures the vessel stream
// exists, and wires the publisher and subscriber against it. On any
// failure the partially constructed components are shut down before the
// error is returned.
func InitEvents(ctx context.Context, cfg *config.Config) (*EventsComponents, error) {
	serverCfg := events.DefaultServerConfig()
	serverCfg.Host = cfg.NATS.Host
	serverCfg.Port = cfg.NATS.Port
	serverCfg.StoreDir = cfg.NATS.StoreDir
	if cfg.NATS.MaxMemory > 0 {
		serverCfg.JetStreamMaxMem = cfg.NATS.MaxMemory
	}
	if cfg.NATS.MaxStore > 0 {
		serverCfg.JetStreamMaxStore = cfg.NATS.MaxStore
	}

	c := &EventsComponents{}

	srv, err := events.NewEmbeddedServer(serverCfg)
	if err != nil {
		return nil, fmt.Errorf("start embedded NATS server: %w", err)
	}
	c.server = srv
	url := srv.ClientURL()

	nc, err := natsgo.Connect(url,
		natsgo.Name("pelorus-stream-admin"),
		natsgo.MaxReconnects(-1),
		natsgo.ReconnectWait(2*time.Second),
	)
	if err != nil {
		c.Shutdown(context.Background())
		return nil, fmt.Errorf("connect to embedded NATS server: %w", err)
	}
	c.conn = nc

	streamCfg := events.DefaultStreamConfig()
	if cfg.NATS.StreamMaxAge > 0 {
		streamCfg.MaxAge = cfg.NATS.StreamMaxAge
	}
	sm, err := events.NewStreamManagerConn(nc, &streamCfg)
	if err != nil {
		c.Shutdown(context.Background())
		return nil, fmt.Errorf("create stream manager: %w", err)
	}
	c.stream = sm
	if _, err := sm.EnsureStream(ctx); err != nil {
		c.Shutdown(context.Background())
		return nil, fmt.Errorf("ensure vessel stream: %w", err)
	}

	pub, err := events.NewPublisher(events.DefaultPublisherConfig(url), events.NewLogAdapter())
	if err != nil {
		c.Shutdown(context.Background())
		return nil, fmt.Errorf("create delta publisher: %w", err)
	}
	pub.SetCircuitBreaker(newPublishBreaker())
	c.publisher = pub

	subCfg := events.DefaultSubscriberConfig(url)
	if cfg.NATS.DurableName != "" {
		subCfg.DurableName = cfg.NATS.DurableName
	}
	sub, err := events.NewSubscriber(&subCfg, events.NewLogAdapter())
	if err != nil {
		c.Shutdown(context.Background())
		return nil, fmt.Errorf("create delta subscriber: %w", err)
	}
	c.subscriber = sub

	health := events.NewHealthChecker(events.DefaultHealthConfig())
	health.RegisterComponent("stream", sm)
	health.RegisterComponent("publisher", pub)
	c.health = health

	c.mu.Lock()
	c.running = true
	c.mu.Unlock()

	logging.Info().
		Str("client_url", url).
		Str("stream", streamCfg.Name).
		Str("durable", subCfg.DurableName).
		Msg("Event backbone initialized")

	return c, nil
}

// IsRunning reports whether the backbone finished initialization and
// has not been shut down.
func (c *EventsComponents) IsRunning() bool {
	if c == nil {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// Shutdown stops the backbone in dependency order: subscriber first so
// no new deltas are delivered, then the publisher, the admin
// connection, and finally the server itself. Safe to call on nil or
// partially initialized components, and safe to call twice.
func (c *EventsComponents) Shutdown(ctx context.Context) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.running = false
	c.mu.Unlock()

	if c.subscriber != nil {
		if err := c.subscriber.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing delta subscriber")
		}
		c.subscriber = nil
	}
	if c.publisher != nil {
		if err := c.publisher.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing delta publisher")
		}
		c.publisher = nil
	}
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	if c.server != nil {
		if err := c.server.Shutdown(ctx); err != nil {
			logging.Error().Err(err).Msg("Error shutting down embedded NATS server")
		}
		c.server = nil
	}
}

// Publisher returns the delta publisher, or nil.
func (c *EventsComponents) Publisher() *events.Publisher {
	if c == nil {
		return nil
	}
	return c.publisher
}

// Subscriber returns the hub's durable subscriber, or nil.
func (c *EventsComponents) Subscriber() *events.Subscriber {
	if c == nil {
		return nil
	}
	return c.subscriber
}

// Health returns the backbone health checker, or nil.
func (c *EventsComponents) Health() *events.HealthChecker {
	if c == nil {
		return nil
	}
	return c.health
}

// ClientURL returns the embedded server's client URL, or empty.
func (c *EventsComponents) ClientURL() string {
	if c == nil || c.server == nil {
		return ""
	}
	return c.server.ClientURL()
}

// newPublishBreaker guards delta publishes. JetStream is in-process,
// so sustained failures mean the stream is genuinely wedged and
// publishes should shed fast rather than pile up behind it.
func newPublishBreaker() *gobreaker.CircuitBreaker[any] {
	return gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        "event-publish",
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Publish circuit breaker state change")
		},
	})
}
