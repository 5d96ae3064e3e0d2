// Pelorus - Vessel Tracking and Live Fleet Map
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pelorus

package models

import (
	"fmt"
	"time"
)

// Source identifies an upstream feed. Values are single bits so they can be
// OR-ed into VesselRecord.SourceMask for coverage reporting.
type Source uint8

const (
	// SourceUnknown is the zero value; records never carry it.
	SourceUnknown Source = 0x00
	// SourceAISStream is the push-based coastal AIS websocket feed.
	SourceAISStream Source = 0x01
	// SourceSatScan is the poll-based offshore satellite scan feed.
	SourceSatScan Source = 0x02
)

// String returns the wire name of the source ("aisstream", "satscan").
func (s Source) String() string {
	switch s {
	case SourceAISStream:
		return "aisstream"
	case SourceSatScan:
		return "satscan"
	default:
		return "unknown"
	}
}

// ParseSource converts a wire name back into a Source.
func ParseSource(name string) (Source, error) {
	switch name {
	case "aisstream":
		return SourceAISStream, nil
	case "satscan":
		return SourceSatScan, nil
	default:
		return SourceUnknown, fmt.Errorf("unknown source %q", name)
	}
}

// SourceNames expands a SourceMask bitmask into wire names, in bit order.
func SourceNames(mask uint8) []string {
	names := make([]string, 0, 2)
	for _, s := range []Source{SourceAISStream, SourceSatScan} {
		if mask&uint8(s) != 0 {
			names = append(names, s.String())
		}
	}
	return names
}

// VesselRecord is the canonical per-vessel row, one per MMSI.
//
// The record is the merge target for every upstream feed. Three field groups
// have distinct write rules enforced by the reconcile package:
//
//   - Static attributes (name, call sign, dimensions, registry, voyage
//     declaration) change rarely. Each is individually nullable and carries
//     its own last-write timestamp and source tag. Feeds report partial
//     records, so a null from a feed never clears a previously known value.
//   - Dynamic attributes (position, speed, course, navigational status)
//     change continuously. Each carries its own last-event timestamp and is
//     only overwritten by a report whose event time is not older - a
//     delayed message must never regress the displayed position.
//   - Enrichment attributes (tags, score, operator) are written only by
//     external collaborators through the enrichment entry point. Feed
//     merging never touches them.
//
// SourceMask records which feeds have ever contributed to this vessel,
// regardless of whether their last report changed anything.
//
// Records are created on first sighting and never deleted; stale vessels
// age out of active views by PositionAt, not by row removal.
type VesselRecord struct {
	MMSI int64 `json:"mmsi"`

	// Static attributes. The *At/*Src companions hold per-field provenance.
	Name           *string    `json:"name,omitempty"`
	NameAt         *time.Time `json:"name_at,omitempty"`
	NameSrc        Source     `json:"name_src,omitempty"`
	CallSign       *string    `json:"call_sign,omitempty"`
	CallSignAt     *time.Time `json:"call_sign_at,omitempty"`
	CallSignSrc    Source     `json:"call_sign_src,omitempty"`
	ShipType       *int       `json:"ship_type,omitempty"` // ITU classification code
	ShipTypeAt     *time.Time `json:"ship_type_at,omitempty"`
	ShipTypeSrc    Source     `json:"ship_type_src,omitempty"`
	IMO            *int64     `json:"imo,omitempty"` // registry number
	IMOAt          *time.Time `json:"imo_at,omitempty"`
	IMOSrc         Source     `json:"imo_src,omitempty"`
	LengthM        *float64   `json:"length_m,omitempty"`
	LengthAt       *time.Time `json:"length_at,omitempty"`
	LengthSrc      Source     `json:"length_src,omitempty"`
	BeamM          *float64   `json:"beam_m,omitempty"`
	BeamAt         *time.Time `json:"beam_at,omitempty"`
	BeamSrc        Source     `json:"beam_src,omitempty"`
	Destination    *string    `json:"destination,omitempty"` // declared destination, free text
	DestinationAt  *time.Time `json:"destination_at,omitempty"`
	DestinationSrc Source     `json:"destination_src,omitempty"`
	ETA            *time.Time `json:"eta,omitempty"`
	ETAAt          *time.Time `json:"eta_at,omitempty"`
	ETASrc         Source     `json:"eta_src,omitempty"`

	// Dynamic attributes. Each carries its own event timestamp; PositionAt
	// is the event time of the latest accepted position fix (lat+lon pair)
	// and drives staleness filtering.
	Lat         *float64   `json:"lat,omitempty"`
	LatAt       *time.Time `json:"lat_at,omitempty"`
	Lon         *float64   `json:"lon,omitempty"`
	LonAt       *time.Time `json:"lon_at,omitempty"`
	SogKn       *float64   `json:"sog_kn,omitempty"` // speed over ground, knots
	SogAt       *time.Time `json:"sog_at,omitempty"`
	CogDeg      *float64   `json:"cog_deg,omitempty"` // course over ground, degrees true
	CogAt       *time.Time `json:"cog_at,omitempty"`
	NavStatus   *int       `json:"nav_status,omitempty"` // AIS navigational status 0-15
	NavStatusAt *time.Time `json:"nav_status_at,omitempty"`
	PositionAt  *time.Time `json:"position_at,omitempty"`

	// Enrichment attributes, written only via the enrichment entry point.
	Tags       []string   `json:"tags,omitempty"`
	Score      *float64   `json:"score,omitempty"`
	Operator   *string    `json:"operator,omitempty"`
	EnrichedAt *time.Time `json:"enriched_at,omitempty"`

	// SourceMask is the OR of every contributing feed's Source bit.
	SourceMask uint8 `json:"source_mask"`

	FirstSeen time.Time `json:"first_seen"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasPosition reports whether the record carries a usable position fix.
func (v *VesselRecord) HasPosition() bool {
	return v.Lat != nil && v.Lon != nil && v.PositionAt != nil
}

// Enrichment is the payload accepted by the enrichment write path. All
// fields are optional; absent fields leave the stored value untouched.
type Enrichment struct {
	Tags     []string `json:"tags,omitempty" validate:"omitempty,max=32,dive,min=1,max=64"`
	Score    *float64 `json:"score,omitempty" validate:"omitnil,min=0,max=1"`
	Operator *string  `json:"operator,omitempty" validate:"omitnil,min=1,max=256"`
}

// Empty reports whether the payload would change nothing.
func (e *Enrichment) Empty() bool {
	return len(e.Tags) == 0 && e.Score == nil && e.Operator == nil
}
