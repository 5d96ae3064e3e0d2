// Pelorus - Vessel Tracking and Live Fleet Map
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pelorus

package models

import (
	"testing"
	"time"

	"github.com/goccy/go-json"
)

func TestVesselDeltaEmpty(t *testing.T) {
	t.Parallel()

	d := VesselDelta{MMSI: 123456789, SourceMask: uint8(SourceAISStream), EventAt: time.Now()}
	if !d.Empty() {
		t.Error("delta with only identity fields should be empty")
	}

	name := "EVER GIVEN"
	d.Name = &name
	if d.Empty() {
		t.Error("delta with a name change should not be empty")
	}

	d = VesselDelta{MMSI: 1, Tags: []string{"tanker"}}
	if d.Empty() {
		t.Error("delta with enrichment tags should not be empty")
	}
}

func TestVesselDeltaSparseJSON(t *testing.T) {
	t.Parallel()

	lat, lon := 10.0, 20.0
	at := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	d := VesselDelta{
		MMSI:       123456789,
		SourceMask: uint8(SourceAISStream),
		EventAt:    at,
		Lat:        &lat,
		Lon:        &lon,
		PositionAt: &at,
	}

	data, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	// Unchanged fields must be absent from the wire form, not nulled.
	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, forbidden := range []string{"name", "call_sign", "sog_kn", "tags", "score"} {
		if _, present := raw[forbidden]; present {
			t.Errorf("unchanged field %q leaked into delta payload", forbidden)
		}
	}
	for _, required := range []string{"mmsi", "lat", "lon", "position_at", "source_mask"} {
		if _, present := raw[required]; !present {
			t.Errorf("expected field %q in delta payload", required)
		}
	}
}

func TestVesselRecordHasPosition(t *testing.T) {
	t.Parallel()

	var rec VesselRecord
	if rec.HasPosition() {
		t.Error("empty record should have no position")
	}

	lat, lon := 39.0, -9.4
	at := time.Now()
	rec.Lat, rec.Lon, rec.PositionAt = &lat, &lon, &at
	if !rec.HasPosition() {
		t.Error("record with lat/lon/position_at should have a position")
	}
}

func TestEnrichmentEmpty(t *testing.T) {
	t.Parallel()

	var e Enrichment
	if !e.Empty() {
		t.Error("zero enrichment should be empty")
	}
	score := 0.83
	e.Score = &score
	if e.Empty() {
		t.Error("enrichment with score should not be empty")
	}
}
