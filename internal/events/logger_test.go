// Pelorus - Vessel Tracking and Live Fleet Map
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pelorus

package events

import (
	"testing"

	"github.com/ThreeDotsLabs/watermill"
)

func TestLogAdapterWithAccumulatesFields(t *testing.T) {
	base := NewLogAdapter().(*LogAdapter)

	child := base.With(watermill.LogFields{"component": "publisher"}).(*LogAdapter)
	grandchild := child.With(watermill.LogFields{"topic": "vessel.delta.1"}).(*LogAdapter)

	merged := grandchild.merged(watermill.LogFields{"attempt": 2})
	if merged["component"] != "publisher" {
		t.Errorf("component = %v, want publisher", merged["component"])
	}
	if merged["topic"] != "vessel.delta.1" {
		t.Errorf("topic = %v, want vessel.delta.1", merged["topic"])
	}
	if merged["attempt"] != 2 {
		t.Errorf("attempt = %v, want 2", merged["attempt"])
	}

	// Parent must not observe the child's fields.
	if _, ok := base.merged(nil)["component"]; ok {
		t.Error("With() must not mutate the parent adapter")
	}
}
