// Pelorus - Vessel Tracking and Live Fleet Map
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pelorus

package models

import (
	"time"
)

// PositionEvent is an immutable append-only position fact, keyed by
// (mmsi, at, source). Events are inserted when an upsert accepts a new
// position fix and pruned after the retention horizon; they are never
// updated in place.
type PositionEvent struct {
	MMSI   int64     `json:"mmsi"`
	At     time.Time `json:"at"`
	Lat    float64   `json:"lat"`
	Lon    float64   `json:"lon"`
	SogKn  *float64  `json:"sog_kn,omitempty"`
	CogDeg *float64  `json:"cog_deg,omitempty"`
	Source Source    `json:"source"`
}

// SnapshotFilter narrows a snapshot read. Zero-valued fields are ignored.
// Bounds are inclusive; MaxAge filters on PositionAt so vessels without a
// fix are excluded whenever an age limit is set.
type SnapshotFilter struct {
	MinLat    *float64      `json:"min_lat,omitempty"`
	MaxLat    *float64      `json:"max_lat,omitempty"`
	MinLon    *float64      `json:"min_lon,omitempty"`
	MaxLon    *float64      `json:"max_lon,omitempty"`
	MinLength *float64      `json:"min_length,omitempty"`
	ShipType  *int          `json:"ship_type,omitempty"`
	MaxAge    time.Duration `json:"max_age,omitempty"`
}
