// Pelorus - Vessel Tracking and Live Fleet Map
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pelorus

package events

import (
	"fmt"
	"strconv"

	json "github.com/goccy/go-json"

	"github.com/tomtom215/pelorus/internal/models"
)

// DeltaSubject returns the per-vessel subject a delta is published to.
// Format: vessel.delta.<mmsi>
func DeltaSubject(mmsi int64) string {
	return deltaSubjectPrefix + strconv.FormatInt(mmsi, 10)
}

// Serializer handles delta encoding for NATS payloads.
type Serializer struct{}

// NewSerializer creates a new serializer.
func NewSerializer() *Serializer {
	return &Serializer{}
}

// Marshal converts a delta to JSON bytes. Deltas without a vessel
// identity are rejected before they reach the wire.
func (s *Serializer) Marshal(delta *models.VesselDelta) ([]byte, error) {
	if delta == nil {
		return nil, fmt.Errorf("nil delta")
	}
	if delta.MMSI <= 0 {
		return nil, fmt.Errorf("delta missing mmsi")
	}

	data, err := json.Marshal(delta)
	if err != nil {
		return nil, fmt.Errorf("marshal delta: %w", err)
	}
	return data, nil
}

// Unmarshal converts JSON bytes back to a delta.
func (s *Serializer) Unmarshal(data []byte) (*models.VesselDelta, error) {
	var delta models.VesselDelta
	if err := json.Unmarshal(data, &delta); err != nil {
		return nil, fmt.Errorf("unmarshal delta: %w", err)
	}
	return &delta, nil
}
