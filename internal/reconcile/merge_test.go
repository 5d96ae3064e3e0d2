// Pelorus - Vessel Tracking and Live Fleet Map
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pelorus

package reconcile

import (
	"errors"
	"testing"
	"time"

	"github.com/tomtom215/pelorus/internal/models"
)

var (
	t0   = time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	tNeg = t0.Add(-5 * time.Minute)
	tPos = t0.Add(5 * time.Minute)
	now  = t0.Add(time.Second)
)

func f64(v float64) *float64 { return &v }
func str(v string) *string   { return &v }
func i(v int) *int           { return &v }

func positionReport(mmsi int64, src models.Source, at time.Time, lat, lon float64) models.Report {
	return models.Report{
		MMSI:    mmsi,
		Source:  src,
		EventAt: at,
		Lat:     f64(lat),
		Lon:     f64(lon),
		SogKn:   f64(12.5),
		CogDeg:  f64(181.0),
	}
}

// A delayed out-of-order report must not regress the displayed position:
// vessel 123456789 is seen at t=0 at (10.0, 20.0) via the stream, then the
// poller delivers an older t=-5 fix at (9.0, 19.0) after it.
func TestMergeOutOfOrderPositionDoesNotRegress(t *testing.T) {
	t.Parallel()

	res, err := Merge(models.VesselRecord{}, positionReport(123456789, models.SourceAISStream, t0, 10.0, 20.0), now)
	if err != nil {
		t.Fatalf("first merge: %v", err)
	}
	if !res.Created || !res.Changed || !res.PositionFix {
		t.Fatalf("first sighting: created=%v changed=%v fix=%v", res.Created, res.Changed, res.PositionFix)
	}

	late := positionReport(123456789, models.SourceSatScan, tNeg, 9.0, 19.0)
	res2, err := Merge(res.Record, late, now)
	if err != nil {
		t.Fatalf("late merge: %v", err)
	}
	rec := res2.Record
	if *rec.Lat != 10.0 || *rec.Lon != 20.0 {
		t.Errorf("position regressed to (%v, %v), want (10, 20)", *rec.Lat, *rec.Lon)
	}
	if !rec.PositionAt.Equal(t0) {
		t.Errorf("position_at regressed to %v, want %v", rec.PositionAt, t0)
	}
	if res2.Changed {
		t.Error("stale report must not count as a change")
	}
	if res2.PositionFix {
		t.Error("stale report must not append a position event")
	}
	// The late feed still registers in the source mask.
	if rec.SourceMask != uint8(models.SourceAISStream)|uint8(models.SourceSatScan) {
		t.Errorf("source mask = %#x, want both bits", rec.SourceMask)
	}
	if !res2.Dirty {
		t.Error("mask contribution should still mark the record dirty")
	}
}

// Partial static reports from different feeds merge field-wise: a null never
// clears a known value. Stream says name=null length=180; poller later says
// name=EXAMPLE length=null; the merged record has both.
func TestMergePartialStaticsUnion(t *testing.T) {
	t.Parallel()

	first := models.Report{
		MMSI:    123456789,
		Source:  models.SourceAISStream,
		EventAt: t0,
		LengthM: f64(180),
	}
	res, err := Merge(models.VesselRecord{}, first, now)
	if err != nil {
		t.Fatalf("first merge: %v", err)
	}

	second := models.Report{
		MMSI:    123456789,
		Source:  models.SourceSatScan,
		EventAt: tPos,
		Name:    str("EXAMPLE"),
	}
	res2, err := Merge(res.Record, second, now)
	if err != nil {
		t.Fatalf("second merge: %v", err)
	}

	rec := res2.Record
	if rec.Name == nil || *rec.Name != "EXAMPLE" {
		t.Errorf("name = %v, want EXAMPLE", rec.Name)
	}
	if rec.LengthM == nil || *rec.LengthM != 180 {
		t.Errorf("length_m = %v, want 180", rec.LengthM)
	}
	if rec.NameSrc != models.SourceSatScan || rec.LengthSrc != models.SourceAISStream {
		t.Errorf("per-field source tags wrong: name=%v length=%v", rec.NameSrc, rec.LengthSrc)
	}
	if res2.Delta.Name == nil || res2.Delta.LengthM != nil {
		t.Errorf("delta should carry only the changed field: %+v", res2.Delta)
	}
}

func TestMergeStaticNeverClearedByNil(t *testing.T) {
	t.Parallel()

	res, err := Merge(models.VesselRecord{}, models.Report{
		MMSI: 1, Source: models.SourceAISStream, EventAt: t0, Name: str("POLARIS"),
	}, now)
	if err != nil {
		t.Fatal(err)
	}

	// Same feed later reports the vessel with no name at all.
	res2, err := Merge(res.Record, positionReport(1, models.SourceAISStream, tPos, 1, 2), now)
	if err != nil {
		t.Fatal(err)
	}
	if res2.Record.Name == nil || *res2.Record.Name != "POLARIS" {
		t.Errorf("name was cleared by a partial report: %v", res2.Record.Name)
	}
}

func TestMergeStaticOverwriteByNewValue(t *testing.T) {
	t.Parallel()

	res, _ := Merge(models.VesselRecord{}, models.Report{
		MMSI: 1, Source: models.SourceAISStream, EventAt: t0, Destination: str("ROTTERDAM"),
	}, now)
	res2, err := Merge(res.Record, models.Report{
		MMSI: 1, Source: models.SourceAISStream, EventAt: tPos, Destination: str("HAMBURG"),
	}, now)
	if err != nil {
		t.Fatal(err)
	}
	if *res2.Record.Destination != "HAMBURG" {
		t.Errorf("destination = %v, want HAMBURG", *res2.Record.Destination)
	}
	if !res2.Changed {
		t.Error("non-null overwrite should count as a change")
	}
}

// Each dynamic field keeps its own clock: a newer speed-only report beats a
// later-arriving older position without either blocking the other.
func TestMergeDynamicPerFieldClocks(t *testing.T) {
	t.Parallel()

	res, _ := Merge(models.VesselRecord{}, positionReport(7, models.SourceAISStream, t0, 10, 20), now)

	speedOnly := models.Report{MMSI: 7, Source: models.SourceAISStream, EventAt: tPos, SogKn: f64(2.0)}
	res2, err := Merge(res.Record, speedOnly, now)
	if err != nil {
		t.Fatal(err)
	}
	if *res2.Record.SogKn != 2.0 {
		t.Errorf("sog = %v, want 2.0", *res2.Record.SogKn)
	}
	if res2.PositionFix {
		t.Error("speed-only update is not a position fix")
	}

	// An in-between position is newer than the stored fix even though the
	// speed clock has moved past it.
	between := t0.Add(2 * time.Minute)
	res3, err := Merge(res2.Record, positionReport(7, models.SourceSatScan, between, 11, 21), now)
	if err != nil {
		t.Fatal(err)
	}
	if *res3.Record.Lat != 11 || *res3.Record.Lon != 21 {
		t.Errorf("position = (%v, %v), want (11, 21)", *res3.Record.Lat, *res3.Record.Lon)
	}
	// The newer speed survives; the older report's speed is rejected.
	if *res3.Record.SogKn != 2.0 {
		t.Errorf("sog regressed to %v, want 2.0", *res3.Record.SogKn)
	}
}

func TestMergeEqualTimestampReplayIsIdempotent(t *testing.T) {
	t.Parallel()

	rep := positionReport(42, models.SourceAISStream, t0, 10, 20)
	rep.Name = str("MERIDIAN")

	res, err := Merge(models.VesselRecord{}, rep, now)
	if err != nil {
		t.Fatal(err)
	}
	replay, err := Merge(res.Record, rep, now.Add(time.Minute))
	if err != nil {
		t.Fatal(err)
	}
	if replay.Changed {
		t.Error("replaying an identical report must not count as a change")
	}
	if replay.PositionFix {
		t.Error("replay must not append a duplicate position event")
	}
	if replay.Dirty {
		t.Error("replay with no new information should leave nothing to persist")
	}
}

func TestMergeAnchoredVesselRefreshesPositionAt(t *testing.T) {
	t.Parallel()

	res, _ := Merge(models.VesselRecord{}, positionReport(9, models.SourceAISStream, t0, 10, 20), now)

	// Same coordinates, newer fix: freshness advances, nothing broadcast.
	again := positionReport(9, models.SourceAISStream, tPos, 10, 20)
	res2, err := Merge(res.Record, again, now)
	if err != nil {
		t.Fatal(err)
	}
	if !res2.Record.PositionAt.Equal(tPos) {
		t.Errorf("position_at = %v, want %v", res2.Record.PositionAt, tPos)
	}
	if res2.Changed {
		t.Error("unchanged values must not broadcast")
	}
	if !res2.Dirty {
		t.Error("advancing the fix clock must persist")
	}
}

func TestMergeRejectsIdentityErrors(t *testing.T) {
	t.Parallel()

	existing := models.VesselRecord{MMSI: 111}

	_, err := Merge(existing, positionReport(222, models.SourceAISStream, t0, 1, 2), now)
	if !errors.Is(err, ErrMMSIMismatch) {
		t.Errorf("expected ErrMMSIMismatch, got %v", err)
	}

	_, err = Merge(models.VesselRecord{}, models.Report{MMSI: 0, Source: models.SourceAISStream, EventAt: t0}, now)
	if !errors.Is(err, ErrInvalidReport) {
		t.Errorf("expected ErrInvalidReport for mmsi 0, got %v", err)
	}

	_, err = Merge(models.VesselRecord{}, models.Report{MMSI: 5, EventAt: t0}, now)
	if !errors.Is(err, ErrInvalidReport) {
		t.Errorf("expected ErrInvalidReport for missing source, got %v", err)
	}

	_, err = Merge(models.VesselRecord{}, models.Report{MMSI: 5, Source: models.SourceSatScan}, now)
	if !errors.Is(err, ErrInvalidReport) {
		t.Errorf("expected ErrInvalidReport for zero event time, got %v", err)
	}
}

func TestMergeNeverTouchesEnrichment(t *testing.T) {
	t.Parallel()

	score := 0.9
	existing := models.VesselRecord{
		MMSI:     77,
		Tags:     []string{"tanker", "watchlist"},
		Score:    &score,
		Operator: str("Meridian Shipping"),
	}

	rep := positionReport(77, models.SourceSatScan, t0, 3, 4)
	rep.Name = str("CASPIAN STAR")
	res, err := Merge(existing, rep, now)
	if err != nil {
		t.Fatal(err)
	}

	rec := res.Record
	if len(rec.Tags) != 2 || rec.Tags[0] != "tanker" {
		t.Errorf("tags modified by merge: %v", rec.Tags)
	}
	if rec.Score == nil || *rec.Score != 0.9 {
		t.Errorf("score modified by merge: %v", rec.Score)
	}
	if rec.Operator == nil || *rec.Operator != "Meridian Shipping" {
		t.Errorf("operator modified by merge: %v", rec.Operator)
	}
	if len(res.Delta.Tags) != 0 || res.Delta.Score != nil || res.Delta.Operator != nil {
		t.Errorf("delta must not carry enrichment from a feed merge: %+v", res.Delta)
	}
}

func TestMergeDiscoveryReportCreatesBareRecord(t *testing.T) {
	t.Parallel()

	rep := models.Report{MMSI: 987654321, Source: models.SourceAISStream, EventAt: t0}
	res, err := Merge(models.VesselRecord{}, rep, now)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Created || !res.Changed {
		t.Errorf("discovery sighting should create and change: %+v", res)
	}
	if res.Record.HasPosition() {
		t.Error("discovery record should have no position")
	}
	if res.Record.SourceMask != uint8(models.SourceAISStream) {
		t.Errorf("mask = %#x", res.Record.SourceMask)
	}

	// A second discovery from the same feed is a pure no-op.
	res2, err := Merge(res.Record, rep, now)
	if err != nil {
		t.Fatal(err)
	}
	if res2.Changed || res2.Dirty {
		t.Errorf("repeat discovery should be a no-op: %+v", res2)
	}
}

func TestMergeDoesNotMutateInput(t *testing.T) {
	t.Parallel()

	res, _ := Merge(models.VesselRecord{}, positionReport(3, models.SourceAISStream, t0, 10, 20), now)
	before := res.Record

	if _, err := Merge(res.Record, positionReport(3, models.SourceSatScan, tPos, 11, 21), now); err != nil {
		t.Fatal(err)
	}
	if *before.Lat != 10 || *before.Lon != 20 {
		t.Errorf("input record mutated: (%v, %v)", *before.Lat, *before.Lon)
	}
	if before.SourceMask != uint8(models.SourceAISStream) {
		t.Errorf("input mask mutated: %#x", before.SourceMask)
	}
}

// Strictly increasing event timestamps always converge on the latest
// report's dynamic values, whatever order the calls arrive in.
func TestMergeConvergesOnLatestTimestamp(t *testing.T) {
	t.Parallel()

	reports := []models.Report{
		positionReport(55, models.SourceAISStream, t0.Add(3*time.Minute), 13, 23),
		positionReport(55, models.SourceSatScan, t0.Add(1*time.Minute), 11, 21),
		positionReport(55, models.SourceAISStream, t0.Add(2*time.Minute), 12, 22),
	}

	var rec models.VesselRecord
	for _, rep := range reports {
		res, err := Merge(rec, rep, now)
		if err != nil {
			t.Fatal(err)
		}
		rec = res.Record
	}

	if *rec.Lat != 13 || *rec.Lon != 23 {
		t.Errorf("final position (%v, %v), want (13, 23) from the latest event", *rec.Lat, *rec.Lon)
	}
	if !rec.PositionAt.Equal(t0.Add(3 * time.Minute)) {
		t.Errorf("position_at = %v", rec.PositionAt)
	}
}
