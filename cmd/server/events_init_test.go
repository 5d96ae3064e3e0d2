// Pelorus - Vessel Tracking and Live Fleet Map
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pelorus

package main

import (
	"context"
	"testing"
	"time"
)

// TestEventsComponents_IsRunning tests the IsRunning method.
func TestEventsComponents_IsRunning(t *testing.T) {
	t.Run("nil components", func(t *testing.T) {
		var c *EventsComponents
		if c.IsRunning() {
			t.Error("IsRunning() should return false for nil components")
		}
	})

	t.Run("not running", func(t *testing.T) {
		c := &EventsComponents{}
		if c.IsRunning() {
			t.Error("IsRunning() should return false when not running")
		}
	})

	t.Run("running", func(t *testing.T) {
		c := &EventsComponents{running: true}
		if !c.IsRunning() {
			t.Error("IsRunning() should return true when running")
		}
	})
}

// TestEventsComponents_Shutdown tests the Shutdown method.
func TestEventsComponents_Shutdown(t *testing.T) {
	t.Run("nil components", func(t *testing.T) {
		var c *EventsComponents
		// Should not panic
		c.Shutdown(context.Background())
	})

	t.Run("empty components", func(t *testing.T) {
		c := &EventsComponents{}
		// Should not panic
		c.Shutdown(context.Background())
	})

	t.Run("shutdown completes and is idempotent", func(t *testing.T) {
		c := &EventsComponents{running: true}

		done := make(chan struct{})
		go func() {
			c.Shutdown(context.Background())
			c.Shutdown(context.Background())
			close(done)
		}()

		select {
		case <-done:
			// Good - shutdown completed
		case <-time.After(time.Second):
			t.Error("Shutdown blocked for too long")
		}

		if c.IsRunning() {
			t.Error("Should not be running after shutdown")
		}
	})
}

// TestEventsComponents_Accessors tests nil safety of the accessors.
func TestEventsComponents_Accessors(t *testing.T) {
	var c *EventsComponents
	if c.Publisher() != nil {
		t.Error("Publisher() should return nil for nil components")
	}
	if c.Subscriber() != nil {
		t.Error("Subscriber() should return nil for nil components")
	}
	if c.Health() != nil {
		t.Error("Health() should return nil for nil components")
	}
	if c.ClientURL() != "" {
		t.Error("ClientURL() should return empty for nil components")
	}
}

// TestStorageComponents_NilSafety tests nil safety of the storage stack.
func TestStorageComponents_NilSafety(t *testing.T) {
	var c *StorageComponents
	if c.Store() != nil {
		t.Error("Store() should return nil for nil components")
	}
	if c.Compactor() != nil {
		t.Error("Compactor() should return nil for nil components")
	}
	if c.WAL() != nil {
		t.Error("WAL() should return nil for nil components")
	}
	// Should not panic
	c.Shutdown()
}
