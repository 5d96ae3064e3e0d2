// Pelorus - Vessel Tracking and Live Fleet Map
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pelorus

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	json "github.com/goccy/go-json"
	"github.com/tomtom215/pelorus/internal/logging"

	"github.com/tomtom215/pelorus/internal/metrics"
	"github.com/tomtom215/pelorus/internal/models"
	"github.com/tomtom215/pelorus/internal/reconcile"
	"github.com/tomtom215/pelorus/internal/wal"
)

// ErrVesselNotFound is returned by enrichment writes targeting an MMSI
// that has never been sighted.
var ErrVesselNotFound = errors.New("vessel not found")

var _ wal.Applier = (*Store)(nil)

// Upsert merges one feed report into the canonical record, appending a
// PositionEvent when the report carries an accepted complete fix.
//
// The report is durably logged before the merge and the log entry is
// confirmed after commit, so a crash anywhere in between is repaired by
// startup replay. The returned result says what changed; callers publish
// res.Delta when res.Changed is true.
func (s *Store) Upsert(ctx context.Context, rep models.Report) (reconcile.Result, error) {
	start := time.Now()

	// Reject obviously invalid reports before they reach the durability
	// log; a report the merge can never accept would otherwise sit in the
	// WAL until poison handling discards it.
	if rep.MMSI <= 0 {
		metrics.RecordUpsert(rep.Source.String(), "rejected", time.Since(start))
		return reconcile.Result{}, fmt.Errorf("%w: mmsi %d", reconcile.ErrInvalidReport, rep.MMSI)
	}
	if rep.Source == models.SourceUnknown {
		metrics.RecordUpsert(rep.Source.String(), "rejected", time.Since(start))
		return reconcile.Result{}, fmt.Errorf("%w: missing source", reconcile.ErrInvalidReport)
	}
	if rep.EventAt.IsZero() {
		metrics.RecordUpsert(rep.Source.String(), "rejected", time.Since(start))
		return reconcile.Result{}, fmt.Errorf("%w: missing event timestamp", reconcile.ErrInvalidReport)
	}

	mu := s.acquireVesselLock(rep.MMSI)
	defer s.releaseVesselLock(mu)

	entryID, err := s.wal.Write(ctx, rep)
	if err != nil {
		metrics.RecordUpsert(rep.Source.String(), "error", time.Since(start))
		return reconcile.Result{}, fmt.Errorf("wal write: %w", err)
	}

	res, err := s.applyReport(ctx, rep, time.Now().UTC())
	if err != nil {
		// The pending WAL entry stays in place; replay retries it.
		metrics.RecordUpsert(rep.Source.String(), "error", time.Since(start))
		return reconcile.Result{}, err
	}

	if err := s.wal.Confirm(ctx, entryID); err != nil {
		// Safe to continue: replaying a committed report is a no-op.
		logging.Warn().Err(err).
			Int64("mmsi", rep.MMSI).
			Str("entry_id", entryID).
			Msg("WAL confirm failed after commit")
	}

	metrics.RecordUpsert(rep.Source.String(), upsertOutcome(res), time.Since(start))
	return res, nil
}

func upsertOutcome(res reconcile.Result) string {
	switch {
	case res.Created:
		return "created"
	case res.Changed:
		return "changed"
	case res.Dirty:
		return "refreshed"
	default:
		return "noop"
	}
}

// applyReport runs the merge transaction under conflict retry. The caller
// must hold the vessel lock.
func (s *Store) applyReport(ctx context.Context, rep models.Report, now time.Time) (reconcile.Result, error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	var res reconcile.Result
	err := s.withConflictRetry(ctx, func() error {
		var txErr error
		res, txErr = s.applyReportOnce(ctx, rep, now)
		return txErr
	})
	if err != nil {
		return reconcile.Result{}, fmt.Errorf("upsert %d: %w", rep.MMSI, err)
	}
	return res, nil
}

func (s *Store) applyReportOnce(ctx context.Context, rep models.Report, now time.Time) (reconcile.Result, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return reconcile.Result{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer rollbackQuietly(tx)

	existing, err := getRecordTx(ctx, tx, rep.MMSI)
	if err != nil {
		return reconcile.Result{}, err
	}

	res, err := reconcile.Merge(existing, rep, now)
	if err != nil {
		return reconcile.Result{}, err
	}
	if !res.Dirty {
		// Replay of an already-committed report; nothing to persist.
		return res, tx.Commit()
	}

	if err := upsertRecordTx(ctx, tx, &res.Record); err != nil {
		return reconcile.Result{}, err
	}
	if res.PositionFix {
		if err := insertPositionEventTx(ctx, tx, positionEventFromReport(rep)); err != nil {
			return reconcile.Result{}, err
		}
	}
	if err := tx.Commit(); err != nil {
		return reconcile.Result{}, fmt.Errorf("commit upsert: %w", err)
	}

	if res.Created {
		metrics.VesselsTracked.Inc()
	}
	if res.PositionFix {
		metrics.PositionEventsInserted.Inc()
	}
	return res, nil
}

// positionEventFromReport builds the history row for an accepted fix. Only
// called when the merge reported PositionFix, so Lat and Lon are present.
func positionEventFromReport(rep models.Report) *models.PositionEvent {
	return &models.PositionEvent{
		MMSI:   rep.MMSI,
		At:     rep.EventAt,
		Lat:    *rep.Lat,
		Lon:    *rep.Lon,
		SogKn:  rep.SogKn,
		CogDeg: rep.CogDeg,
		Source: rep.Source,
	}
}

// SetEnrichment applies an external enrichment payload to an existing
// vessel. It returns the resulting delta, or nil when nothing observable
// changed. Unknown vessels return ErrVesselNotFound; enrichment never
// creates records.
func (s *Store) SetEnrichment(ctx context.Context, mmsi int64, e models.Enrichment) (*models.VesselDelta, error) {
	start := time.Now()

	mu := s.acquireVesselLock(mmsi)
	defer s.releaseVesselLock(mu)

	ctx, cancel := ensureContext(ctx)
	defer cancel()

	now := time.Now().UTC()
	var res reconcile.Result
	err := s.withConflictRetry(ctx, func() error {
		var txErr error
		res, txErr = s.enrichOnce(ctx, mmsi, e, now)
		return txErr
	})
	metrics.RecordStoreQuery("set_enrichment", "vessel_records", time.Since(start), err)
	if err != nil {
		return nil, err
	}
	if !res.Changed {
		return nil, nil
	}
	delta := res.Delta
	return &delta, nil
}

func (s *Store) enrichOnce(ctx context.Context, mmsi int64, e models.Enrichment, now time.Time) (reconcile.Result, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return reconcile.Result{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer rollbackQuietly(tx)

	existing, err := getRecordTx(ctx, tx, mmsi)
	if err != nil {
		return reconcile.Result{}, err
	}
	if existing.MMSI == 0 {
		return reconcile.Result{}, fmt.Errorf("%w: mmsi %d", ErrVesselNotFound, mmsi)
	}

	res, err := reconcile.Enrich(existing, e, now)
	if err != nil {
		return reconcile.Result{}, err
	}
	if !res.Dirty {
		return res, tx.Commit()
	}
	if err := upsertRecordTx(ctx, tx, &res.Record); err != nil {
		return reconcile.Result{}, err
	}
	if err := tx.Commit(); err != nil {
		return reconcile.Result{}, fmt.Errorf("commit enrichment: %w", err)
	}
	return res, nil
}

// ApplyEntry replays one WAL entry through the normal merge path. Safe
// under re-delivery: a report already committed leaves the record
// untouched and writes nothing.
func (s *Store) ApplyEntry(ctx context.Context, entry *wal.Entry) error {
	rep, err := entry.Report()
	if err != nil {
		return fmt.Errorf("decode wal entry %s: %w", entry.ID, err)
	}

	mu := s.acquireVesselLock(rep.MMSI)
	defer s.releaseVesselLock(mu)

	_, err = s.applyReport(ctx, rep, time.Now().UTC())
	return err
}

// ReplayWAL pushes every pending WAL entry through the merge path. Called
// once on startup, before any feed connects or the API accepts traffic.
func (s *Store) ReplayWAL(ctx context.Context) (*wal.ReplayResult, error) {
	return s.wal.ReplayPending(ctx, s)
}

const upsertVesselSQL = `
INSERT INTO vessel_records (` + vesselColumns + `)
VALUES (?,
	?, ?, ?,
	?, ?, ?,
	?, ?, ?,
	?, ?, ?,
	?, ?, ?,
	?, ?, ?,
	?, ?, ?,
	?, ?, ?,
	?, ?, ?, ?,
	?, ?, ?, ?,
	?, ?, ?,
	?, ?, ?, ?,
	?, ?, ?)
ON CONFLICT (mmsi) DO UPDATE SET
	name = excluded.name,
	name_at = excluded.name_at,
	name_src = excluded.name_src,
	call_sign = excluded.call_sign,
	call_sign_at = excluded.call_sign_at,
	call_sign_src = excluded.call_sign_src,
	ship_type = excluded.ship_type,
	ship_type_at = excluded.ship_type_at,
	ship_type_src = excluded.ship_type_src,
	imo = excluded.imo,
	imo_at = excluded.imo_at,
	imo_src = excluded.imo_src,
	length_m = excluded.length_m,
	length_at = excluded.length_at,
	length_src = excluded.length_src,
	beam_m = excluded.beam_m,
	beam_at = excluded.beam_at,
	beam_src = excluded.beam_src,
	destination = excluded.destination,
	destination_at = excluded.destination_at,
	destination_src = excluded.destination_src,
	eta = excluded.eta,
	eta_at = excluded.eta_at,
	eta_src = excluded.eta_src,
	lat = excluded.lat,
	lat_at = excluded.lat_at,
	lon = excluded.lon,
	lon_at = excluded.lon_at,
	sog_kn = excluded.sog_kn,
	sog_at = excluded.sog_at,
	cog_deg = excluded.cog_deg,
	cog_at = excluded.cog_at,
	nav_status = excluded.nav_status,
	nav_status_at = excluded.nav_status_at,
	position_at = excluded.position_at,
	tags = excluded.tags,
	score = excluded.score,
	operator = excluded.operator,
	enriched_at = excluded.enriched_at,
	source_mask = excluded.source_mask,
	first_seen = excluded.first_seen,
	updated_at = excluded.updated_at`

// upsertRecordTx writes the full row. The merge already decided every
// field value, so a whole-row write keeps the statement static.
func upsertRecordTx(ctx context.Context, tx *sql.Tx, rec *models.VesselRecord) error {
	tagsJSON, err := marshalTags(rec.Tags)
	if err != nil {
		return fmt.Errorf("encode tags for %d: %w", rec.MMSI, err)
	}

	_, err = tx.ExecContext(ctx, upsertVesselSQL,
		rec.MMSI,
		rec.Name, rec.NameAt, int16(rec.NameSrc),
		rec.CallSign, rec.CallSignAt, int16(rec.CallSignSrc),
		rec.ShipType, rec.ShipTypeAt, int16(rec.ShipTypeSrc),
		rec.IMO, rec.IMOAt, int16(rec.IMOSrc),
		rec.LengthM, rec.LengthAt, int16(rec.LengthSrc),
		rec.BeamM, rec.BeamAt, int16(rec.BeamSrc),
		rec.Destination, rec.DestinationAt, int16(rec.DestinationSrc),
		rec.ETA, rec.ETAAt, int16(rec.ETASrc),
		rec.Lat, rec.LatAt, rec.Lon, rec.LonAt,
		rec.SogKn, rec.SogAt, rec.CogDeg, rec.CogAt,
		rec.NavStatus, rec.NavStatusAt, rec.PositionAt,
		tagsJSON, rec.Score, rec.Operator, rec.EnrichedAt,
		int16(rec.SourceMask), rec.FirstSeen, rec.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert record %d: %w", rec.MMSI, err)
	}
	return nil
}

const insertPositionEventSQL = `
INSERT OR IGNORE INTO position_events (mmsi, "at", source, lat, lon, sog_kn, cog_deg)
VALUES (?, ?, ?, ?, ?, ?, ?)`

func insertPositionEventTx(ctx context.Context, tx *sql.Tx, ev *models.PositionEvent) error {
	_, err := tx.ExecContext(ctx, insertPositionEventSQL,
		ev.MMSI, ev.At, int16(ev.Source), ev.Lat, ev.Lon, ev.SogKn, ev.CogDeg)
	if err != nil {
		return fmt.Errorf("insert position event for %d: %w", ev.MMSI, err)
	}
	return nil
}

// marshalTags encodes tags as a JSON array, NULL when empty.
func marshalTags(tags []string) (*string, error) {
	if len(tags) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(tags)
	if err != nil {
		return nil, err
	}
	s := string(b)
	return &s, nil
}
