// Pelorus - Vessel Tracking and Live Fleet Map
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pelorus

package events

import (
	"fmt"
	"time"
)

// StreamName is the JetStream stream carrying all vessel subjects.
const StreamName = "VESSELS"

// SubjectAll matches every vessel subject. Stream names cannot contain
// wildcards, so subscribers bind to StreamName and subscribe to this.
const SubjectAll = "vessel.>"

// deltaSubjectPrefix is the subject hierarchy for per-vessel mutation
// events. One subject per MMSI keeps JetStream's per-subject ordering
// aligned with per-vessel commit order.
const deltaSubjectPrefix = "vessel.delta."

// ServerConfig holds embedded NATS server settings.
type ServerConfig struct {
	Host string
	// Port -1 asks the server for a random free port.
	Port              int
	StoreDir          string
	JetStreamMaxMem   int64
	JetStreamMaxStore int64
}

// DefaultServerConfig returns production defaults for the embedded server.
// Vessel deltas are small so the JetStream limits are modest.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:              "127.0.0.1",
		Port:              4222,
		StoreDir:          "/data/nats/jetstream",
		JetStreamMaxMem:   512 << 20, // 512MB
		JetStreamMaxStore: 4 << 30,   // 4GB
	}
}

// Validate checks server configuration bounds.
func (c *ServerConfig) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("host is required")
	}
	if c.Port != -1 && (c.Port <= 0 || c.Port > 65535) {
		return fmt.Errorf("port must be 1-65535 or -1 for random, got %d", c.Port)
	}
	if c.StoreDir == "" {
		return fmt.Errorf("store dir is required")
	}
	return nil
}

// StreamConfig defines the vessel delta stream settings.
type StreamConfig struct {
	Name            string
	Subjects        []string
	MaxAge          time.Duration
	MaxBytes        int64
	MaxMsgs         int64
	DuplicateWindow time.Duration
	Replicas        int
}

// DefaultStreamConfig returns production stream configuration.
// The stream is a live-delta buffer, not an archive: viewers receive a
// full snapshot on connect, so a day of retention is ample headroom for
// consumer restarts.
func DefaultStreamConfig() StreamConfig {
	return StreamConfig{
		Name:            StreamName,
		Subjects:        []string{SubjectAll},
		MaxAge:          24 * time.Hour,
		MaxBytes:        2 << 30, // 2GB
		MaxMsgs:         -1,      // Unlimited
		DuplicateWindow: 2 * time.Minute,
		Replicas:        1,
	}
}

// PublisherConfig holds publisher connection settings.
type PublisherConfig struct {
	URL              string
	MaxReconnects    int
	ReconnectWait    time.Duration
	ReconnectBuffer  int
	EnableTrackMsgID bool
}

// DefaultPublisherConfig returns production defaults for the publisher.
func DefaultPublisherConfig(url string) PublisherConfig {
	return PublisherConfig{
		URL:              url,
		MaxReconnects:    -1, // Unlimited
		ReconnectWait:    2 * time.Second,
		ReconnectBuffer:  8 * 1024 * 1024, // 8MB
		EnableTrackMsgID: true,
	}
}

// SubscriberConfig holds subscriber connection and consumer settings.
type SubscriberConfig struct {
	URL              string
	DurableName      string
	QueueGroup       string
	SubscribersCount int
	AckWaitTimeout   time.Duration
	MaxDeliver       int
	MaxAckPending    int
	CloseTimeout     time.Duration
	MaxReconnects    int
	ReconnectWait    time.Duration
	// StreamName binds the consumer to an existing stream. Required for
	// wildcard topics such as "vessel.>": stream names cannot contain
	// wildcards, so AutoProvision would fail trying to create one.
	StreamName string
}

// DefaultSubscriberConfig returns production defaults for the hub's
// durable consumer. SubscribersCount is 1: the broadcast hub fans out
// from a single ordered reader, so parallel consumption would only
// scramble per-vessel delivery order. The queue group stays empty for
// the same reason; load balancing a single reader buys nothing and
// group names derived from wildcard topics are not valid.
func DefaultSubscriberConfig(url string) SubscriberConfig {
	return SubscriberConfig{
		URL:              url,
		DurableName:      "vessel-hub",
		QueueGroup:       "",
		SubscribersCount: 1,
		AckWaitTimeout:   30 * time.Second,
		MaxDeliver:       5,
		MaxAckPending:    1000,
		CloseTimeout:     30 * time.Second,
		MaxReconnects:    -1,
		ReconnectWait:    2 * time.Second,
		StreamName:       StreamName,
	}
}
