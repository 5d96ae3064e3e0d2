// Pelorus - Vessel Tracking and Live Fleet Map
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pelorus

package models

import (
	"time"
)

// Report is the canonical record every upstream adapter normalizes into.
// Both feeds speak different wire formats; this is the single schema the
// store's upsert path accepts.
//
// All attribute fields are pointer-typed: nil means "not reported", which
// the merge policy treats very differently from a zero value. A discovery
// report (minimal sighting) carries only MMSI, Source and EventAt.
type Report struct {
	MMSI    int64     `json:"mmsi"`
	Source  Source    `json:"source"`
	EventAt time.Time `json:"event_at"` // event time claimed by the feed, not arrival time

	// Static attributes.
	Name        *string    `json:"name,omitempty"`
	CallSign    *string    `json:"call_sign,omitempty"`
	ShipType    *int       `json:"ship_type,omitempty"`
	IMO         *int64     `json:"imo,omitempty"`
	LengthM     *float64   `json:"length_m,omitempty"`
	BeamM       *float64   `json:"beam_m,omitempty"`
	Destination *string    `json:"destination,omitempty"`
	ETA         *time.Time `json:"eta,omitempty"`

	// Dynamic attributes.
	Lat       *float64 `json:"lat,omitempty"`
	Lon       *float64 `json:"lon,omitempty"`
	SogKn     *float64 `json:"sog_kn,omitempty"`
	CogDeg    *float64 `json:"cog_deg,omitempty"`
	NavStatus *int     `json:"nav_status,omitempty"`
}

// HasPositionFix reports whether the report carries a complete position
// (both latitude and longitude). Partial fixes update single fields but do
// not append a PositionEvent.
func (r *Report) HasPositionFix() bool {
	return r.Lat != nil && r.Lon != nil
}

// VesselDelta is the mutation event emitted when an upsert or enrichment
// write observably changed a record. Only changed fields are present, so a
// delta is a minimal patch viewers apply over their local state.
//
// Deltas are published to the event stream per vessel and pushed verbatim
// to connected viewers. Applying the same delta twice is harmless
// (idempotent replace).
type VesselDelta struct {
	MMSI       int64     `json:"mmsi"`
	SourceMask uint8     `json:"source_mask"`
	EventAt    time.Time `json:"event_at"`

	Name        *string    `json:"name,omitempty"`
	CallSign    *string    `json:"call_sign,omitempty"`
	ShipType    *int       `json:"ship_type,omitempty"`
	IMO         *int64     `json:"imo,omitempty"`
	LengthM     *float64   `json:"length_m,omitempty"`
	BeamM       *float64   `json:"beam_m,omitempty"`
	Destination *string    `json:"destination,omitempty"`
	ETA         *time.Time `json:"eta,omitempty"`

	Lat        *float64   `json:"lat,omitempty"`
	Lon        *float64   `json:"lon,omitempty"`
	SogKn      *float64   `json:"sog_kn,omitempty"`
	CogDeg     *float64   `json:"cog_deg,omitempty"`
	NavStatus  *int       `json:"nav_status,omitempty"`
	PositionAt *time.Time `json:"position_at,omitempty"`

	Tags     []string `json:"tags,omitempty"`
	Score    *float64 `json:"score,omitempty"`
	Operator *string  `json:"operator,omitempty"`
}

// Empty reports whether the delta carries no field changes. Mask-only
// updates are persisted but not broadcast.
func (d *VesselDelta) Empty() bool {
	return d.Name == nil && d.CallSign == nil && d.ShipType == nil &&
		d.IMO == nil && d.LengthM == nil && d.BeamM == nil &&
		d.Destination == nil && d.ETA == nil &&
		d.Lat == nil && d.Lon == nil && d.SogKn == nil && d.CogDeg == nil &&
		d.NavStatus == nil && d.PositionAt == nil &&
		len(d.Tags) == 0 && d.Score == nil && d.Operator == nil
}
