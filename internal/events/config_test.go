// Pelorus - Vessel Tracking and Live Fleet Map
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pelorus

package events

import (
	"testing"
)

func TestServerConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*ServerConfig)
		wantErr bool
	}{
		{"defaults", func(c *ServerConfig) {}, false},
		{"random port", func(c *ServerConfig) { c.Port = -1 }, false},
		{"no host", func(c *ServerConfig) { c.Host = "" }, true},
		{"zero port", func(c *ServerConfig) { c.Port = 0 }, true},
		{"port too large", func(c *ServerConfig) { c.Port = 70000 }, true},
		{"no store dir", func(c *ServerConfig) { c.StoreDir = "" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultServerConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestDefaultStreamConfig(t *testing.T) {
	cfg := DefaultStreamConfig()

	if cfg.Name != StreamName {
		t.Errorf("Name = %q, want %q", cfg.Name, StreamName)
	}
	if len(cfg.Subjects) != 1 || cfg.Subjects[0] != SubjectAll {
		t.Errorf("Subjects = %v, want [%q]", cfg.Subjects, SubjectAll)
	}
	if cfg.DuplicateWindow <= 0 {
		t.Error("DuplicateWindow must be positive for msg-id dedup")
	}
	if cfg.Replicas != 1 {
		t.Errorf("Replicas = %d, want 1 for single-node deploys", cfg.Replicas)
	}
}

func TestDefaultSubscriberConfig(t *testing.T) {
	cfg := DefaultSubscriberConfig("nats://127.0.0.1:4222")

	if cfg.StreamName != StreamName {
		t.Errorf("StreamName = %q, want %q (wildcard topics need BindStream)", cfg.StreamName, StreamName)
	}
	if cfg.SubscribersCount != 1 {
		t.Errorf("SubscribersCount = %d, want 1 to preserve delivery order", cfg.SubscribersCount)
	}
	if cfg.MaxDeliver <= 0 {
		t.Error("MaxDeliver must bound redelivery")
	}
}

func TestNewSubscriberRequiresConfig(t *testing.T) {
	if _, err := NewSubscriber(nil, nil); err == nil {
		t.Fatal("NewSubscriber(nil) should error")
	}
}
