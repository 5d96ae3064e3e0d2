// Pelorus - Vessel Tracking and Live Fleet Map
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pelorus

package reconcile

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/tomtom215/pelorus/internal/models"
)

// ErrUnknownVessel is returned when enrichment targets a record that does
// not exist. Enrichment never creates vessels; only feed sightings do.
var ErrUnknownVessel = errors.New("unknown vessel")

// Enrich applies an external enrichment payload to an existing record.
// Absent payload fields leave the stored value untouched; tags replace
// wholesale rather than merging. Feed reports never write these fields
// (rule 4), so enrichment survives any volume of subsequent merges.
//
// Re-applying an identical payload changes nothing and produces an empty
// delta, keeping enrichment writes idempotent like the report path.
func Enrich(existing models.VesselRecord, e models.Enrichment, now time.Time) (Result, error) {
	if existing.MMSI <= 0 {
		return Result{}, fmt.Errorf("%w: enrichment requires a sighted vessel", ErrUnknownVessel)
	}

	res := Result{Record: existing}
	rec := &res.Record
	res.Delta = models.VesselDelta{MMSI: rec.MMSI, SourceMask: rec.SourceMask, EventAt: now}

	if len(e.Tags) > 0 && !slices.Equal(rec.Tags, e.Tags) {
		rec.Tags = slices.Clone(e.Tags)
		res.Delta.Tags = rec.Tags
		res.Changed = true
	}
	if e.Score != nil && (rec.Score == nil || *rec.Score != *e.Score) {
		v := *e.Score
		rec.Score = &v
		res.Delta.Score = &v
		res.Changed = true
	}
	if e.Operator != nil && (rec.Operator == nil || *rec.Operator != *e.Operator) {
		v := *e.Operator
		rec.Operator = &v
		res.Delta.Operator = &v
		res.Changed = true
	}

	if res.Changed {
		at := now
		rec.EnrichedAt = &at
		rec.UpdatedAt = now
		res.Dirty = true
	}
	return res, nil
}
