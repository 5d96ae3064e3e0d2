// Pelorus - Vessel Tracking and Live Fleet Map
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pelorus

package api

// Request structs for query parameter validation. Each handler parses
// its query string into one of these and runs it through validateRequest
// before touching the store, so range errors surface as VALIDATION_ERROR
// responses with field details instead of empty result sets.

// SnapshotRequest carries the fleet snapshot filters.
//
// All fields are optional; nil means the filter is not applied. Bounds
// are inclusive and follow WGS84 conventions: latitude -90..90,
// longitude -180..180.
type SnapshotRequest struct {
	MinLat    *float64 `validate:"omitnil,min=-90,max=90"`
	MaxLat    *float64 `validate:"omitnil,min=-90,max=90"`
	MinLon    *float64 `validate:"omitnil,min=-180,max=180"`
	MaxLon    *float64 `validate:"omitnil,min=-180,max=180"`
	MinLength *float64 `validate:"omitnil,min=0,max=500"`
	ShipType  *int     `validate:"omitnil,min=0,max=99"`
}

// RouteRequest carries the position history window.
//
// Hours is the lookback when no explicit since timestamp is given; the
// cap matches the longest supported retention. Limit bounds the number
// of returned fixes.
type RouteRequest struct {
	Hours int `validate:"min=1,max=720"`
	Limit int `validate:"min=1,max=10000"`
}
