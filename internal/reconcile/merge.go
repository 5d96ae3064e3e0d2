// Pelorus - Vessel Tracking and Live Fleet Map
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pelorus

// Package reconcile implements the field-level merge policy applied to every
// incoming feed report before it is persisted.
//
// Merge is a pure function: no I/O, no clock access, no shared state. The
// store invokes it under the per-vessel write lock and persists whatever it
// returns. Keeping the policy free of side effects makes every rule
// independently testable against recorded report sequences.
//
// The rules, applied field by field:
//
//  1. A report whose MMSI does not match the existing record is a
//     programming error and is rejected outright.
//  2. Dynamic fields (position, speed, course, nav status) accept an
//     incoming value only if the report's event timestamp is not older than
//     that field's own timestamp. Ordering is per field and by event time,
//     never by arrival time, so a delayed message cannot regress state.
//  3. Static fields (name, dimensions, registry, voyage declaration) accept
//     only non-nil values; once set, a field is never cleared by a
//     subsequent nil. Feeds report partial records.
//  4. Enrichment fields are outside this function's contract entirely.
//  5. The record's source mask ORs in the reporting feed's bit regardless
//     of whether any field changed.
package reconcile

import (
	"errors"
	"fmt"
	"time"

	"github.com/tomtom215/pelorus/internal/models"
)

var (
	// ErrMMSIMismatch is returned when a report targets a different vessel
	// than the record it is being merged into.
	ErrMMSIMismatch = errors.New("report mmsi does not match record")

	// ErrInvalidReport is returned for reports missing identity fields.
	ErrInvalidReport = errors.New("invalid report")
)

// Result describes the outcome of a merge.
type Result struct {
	// Record is the updated record. The input record is not mutated.
	Record models.VesselRecord

	// Delta carries exactly the fields whose values changed, ready for
	// publication. Meaningful only when Changed is true.
	Delta models.VesselDelta

	// Changed reports whether anything observable changed: a field value,
	// or the creation of the record itself. Timestamp refreshes and
	// mask-only updates do not count; they are persisted but not broadcast.
	Changed bool

	// Created reports a first sighting: no record existed for this MMSI.
	Created bool

	// PositionFix reports that the merge accepted a complete new position
	// (latitude and longitude together with at least one changed dynamic
	// value), which the store records as a PositionEvent.
	PositionFix bool

	// Dirty reports whether the record differs from the input at all,
	// including timestamp refreshes and source-mask bits. The store skips
	// the row write when a replayed duplicate leaves nothing to persist.
	Dirty bool
}

// Merge applies one feed report to a vessel record. A zero-valued existing
// record (MMSI 0) means first sighting. now stamps bookkeeping fields; the
// caller supplies it so replay and tests are deterministic.
func Merge(existing models.VesselRecord, rep models.Report, now time.Time) (Result, error) {
	if rep.MMSI <= 0 {
		return Result{}, fmt.Errorf("%w: mmsi %d", ErrInvalidReport, rep.MMSI)
	}
	if rep.Source == models.SourceUnknown {
		return Result{}, fmt.Errorf("%w: missing source", ErrInvalidReport)
	}
	if rep.EventAt.IsZero() {
		return Result{}, fmt.Errorf("%w: missing event timestamp", ErrInvalidReport)
	}
	if existing.MMSI != 0 && existing.MMSI != rep.MMSI {
		return Result{}, fmt.Errorf("%w: report %d, record %d", ErrMMSIMismatch, rep.MMSI, existing.MMSI)
	}

	res := Result{Record: existing}
	rec := &res.Record
	res.Delta = models.VesselDelta{MMSI: rep.MMSI, EventAt: rep.EventAt}

	if rec.MMSI == 0 {
		rec.MMSI = rep.MMSI
		rec.FirstSeen = now
		res.Created = true
		res.Changed = true
		res.Dirty = true
	}

	// Rule 5: contribution is recorded even for no-op reports.
	if rec.SourceMask&uint8(rep.Source) == 0 {
		rec.SourceMask |= uint8(rep.Source)
		res.Dirty = true
	}

	// Rule 3: static fields, non-nil wins, nil never clears.
	staticChanged := false
	staticChanged = mergeStatic(&rec.Name, &rec.NameAt, &rec.NameSrc, rep.Name, rep.EventAt, rep.Source, &res.Delta.Name) || staticChanged
	staticChanged = mergeStatic(&rec.CallSign, &rec.CallSignAt, &rec.CallSignSrc, rep.CallSign, rep.EventAt, rep.Source, &res.Delta.CallSign) || staticChanged
	staticChanged = mergeStatic(&rec.ShipType, &rec.ShipTypeAt, &rec.ShipTypeSrc, rep.ShipType, rep.EventAt, rep.Source, &res.Delta.ShipType) || staticChanged
	staticChanged = mergeStatic(&rec.IMO, &rec.IMOAt, &rec.IMOSrc, rep.IMO, rep.EventAt, rep.Source, &res.Delta.IMO) || staticChanged
	staticChanged = mergeStatic(&rec.LengthM, &rec.LengthAt, &rec.LengthSrc, rep.LengthM, rep.EventAt, rep.Source, &res.Delta.LengthM) || staticChanged
	staticChanged = mergeStatic(&rec.BeamM, &rec.BeamAt, &rec.BeamSrc, rep.BeamM, rep.EventAt, rep.Source, &res.Delta.BeamM) || staticChanged
	staticChanged = mergeStatic(&rec.Destination, &rec.DestinationAt, &rec.DestinationSrc, rep.Destination, rep.EventAt, rep.Source, &res.Delta.Destination) || staticChanged
	staticChanged = mergeStaticTime(&rec.ETA, &rec.ETAAt, &rec.ETASrc, rep.ETA, rep.EventAt, rep.Source, &res.Delta.ETA) || staticChanged

	// Rule 2: dynamic fields, monotonic by event time, one clock per field.
	latAccepted, latChanged := mergeDynamic(&rec.Lat, &rec.LatAt, rep.Lat, rep.EventAt, &res.Delta.Lat)
	lonAccepted, lonChanged := mergeDynamic(&rec.Lon, &rec.LonAt, rep.Lon, rep.EventAt, &res.Delta.Lon)
	_, sogChanged := mergeDynamic(&rec.SogKn, &rec.SogAt, rep.SogKn, rep.EventAt, &res.Delta.SogKn)
	_, cogChanged := mergeDynamic(&rec.CogDeg, &rec.CogAt, rep.CogDeg, rep.EventAt, &res.Delta.CogDeg)
	_, navChanged := mergeDynamic(&rec.NavStatus, &rec.NavStatusAt, rep.NavStatus, rep.EventAt, &res.Delta.NavStatus)

	dynamicChanged := latChanged || lonChanged || sogChanged || cogChanged || navChanged

	// A complete accepted fix advances PositionAt even when the vessel has
	// not moved, so anchored vessels stay in active views. Only fixes that
	// changed something become PositionEvents.
	if rep.HasPositionFix() && latAccepted && lonAccepted {
		at := rep.EventAt
		rec.PositionAt = &at
		res.Dirty = true
		if dynamicChanged {
			res.PositionFix = true
			res.Delta.PositionAt = &at
		}
	}
	if latAccepted || lonAccepted || dynamicChanged {
		res.Dirty = true
	}
	if staticChanged {
		res.Dirty = true
	}

	if staticChanged || dynamicChanged {
		res.Changed = true
	}
	if res.Dirty {
		rec.UpdatedAt = now
	}
	res.Delta.SourceMask = rec.SourceMask
	return res, nil
}

// mergeStatic applies rule 3 to one static field. Returns true when the
// stored value changed. Re-reports of an identical value leave the field and
// its provenance untouched, which keeps replayed reports idempotent.
func mergeStatic[T comparable](field **T, fieldAt **time.Time, fieldSrc *models.Source, in *T, at time.Time, src models.Source, deltaField **T) bool {
	if in == nil {
		return false
	}
	if *field != nil && **field == *in {
		return false
	}
	v := *in
	ts := at
	*field = &v
	*fieldAt = &ts
	*fieldSrc = src
	*deltaField = &v
	return true
}

// mergeStaticTime is mergeStatic for time-valued static fields, compared
// with time.Time.Equal rather than ==.
func mergeStaticTime(field **time.Time, fieldAt **time.Time, fieldSrc *models.Source, in *time.Time, at time.Time, src models.Source, deltaField **time.Time) bool {
	if in == nil {
		return false
	}
	if *field != nil && (*field).Equal(*in) {
		return false
	}
	v := *in
	ts := at
	*field = &v
	*fieldAt = &ts
	*fieldSrc = src
	*deltaField = &v
	return true
}

// mergeDynamic applies rule 2 to one dynamic field. accepted means the
// report's event time was current enough to take effect (the field's clock
// advanced); changed means the stored value itself differs.
func mergeDynamic[T comparable](field **T, fieldAt **time.Time, in *T, eventAt time.Time, deltaField **T) (accepted, changed bool) {
	if in == nil {
		return false, false
	}
	if *fieldAt != nil && eventAt.Before(**fieldAt) {
		return false, false
	}
	ts := eventAt
	*fieldAt = &ts
	if *field != nil && **field == *in {
		return true, false
	}
	v := *in
	*field = &v
	*deltaField = &v
	return true, true
}
