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
	"os"
	"strings"
	"time"

	json "github.com/goccy/go-json"

	"github.com/tomtom215/pelorus/internal/metrics"
	"github.com/tomtom215/pelorus/internal/models"
)

const (
	defaultRouteLimit = 1000
	maxRouteLimit     = 50000
)

const selectVesselSQL = "SELECT " + vesselColumns + " FROM vessel_records"

// rowScanner abstracts *sql.Row and *sql.Rows so one scan function serves
// both single-row and multi-row reads.
type rowScanner interface {
	Scan(dest ...any) error
}

type scanFunc[T any] func(rowScanner) (T, error)

// queryAndScan runs a query and scans every row with scan.
func queryAndScan[T any](ctx context.Context, db *sql.DB, query string, args []any, scan scanFunc[T]) ([]T, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer closeQuietly(rows)

	var results []T
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		results = append(results, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return results, nil
}

// Get returns one vessel record, or nil when the MMSI has never been
// sighted.
func (s *Store) Get(ctx context.Context, mmsi int64) (*models.VesselRecord, error) {
	start := time.Now()
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	row := s.db.QueryRowContext(ctx, selectVesselSQL+" WHERE mmsi = ?", mmsi)
	rec, err := scanVesselRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		metrics.RecordStoreQuery("get", "vessel_records", time.Since(start), nil)
		return nil, nil
	}
	metrics.RecordStoreQuery("get", "vessel_records", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("get vessel %d: %w", mmsi, err)
	}
	return &rec, nil
}

// getRecordTx loads a record inside a write transaction. A missing row
// comes back as the zero record, which the merge treats as first sighting.
func getRecordTx(ctx context.Context, tx *sql.Tx, mmsi int64) (models.VesselRecord, error) {
	row := tx.QueryRowContext(ctx, selectVesselSQL+" WHERE mmsi = ?", mmsi)
	rec, err := scanVesselRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.VesselRecord{}, nil
	}
	if err != nil {
		return models.VesselRecord{}, fmt.Errorf("load record %d: %w", mmsi, err)
	}
	return rec, nil
}

// Snapshot returns the fleet state matching filter, ordered by MMSI. A nil
// filter returns every record. Bounding-box and age conditions naturally
// exclude vessels without a position fix.
func (s *Store) Snapshot(ctx context.Context, filter *models.SnapshotFilter) ([]models.VesselRecord, error) {
	start := time.Now()
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	query, args := buildSnapshotQuery(filter, time.Now().UTC())
	records, err := queryAndScan(ctx, s.db, query, args, scanVesselRecord)
	metrics.RecordStoreQuery("snapshot", "vessel_records", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}
	return records, nil
}

func buildSnapshotQuery(filter *models.SnapshotFilter, now time.Time) (string, []any) {
	var conditions []string
	var args []any

	if filter != nil {
		if filter.MinLat != nil {
			conditions = append(conditions, "lat >= ?")
			args = append(args, *filter.MinLat)
		}
		if filter.MaxLat != nil {
			conditions = append(conditions, "lat <= ?")
			args = append(args, *filter.MaxLat)
		}
		if filter.MinLon != nil {
			conditions = append(conditions, "lon >= ?")
			args = append(args, *filter.MinLon)
		}
		if filter.MaxLon != nil {
			conditions = append(conditions, "lon <= ?")
			args = append(args, *filter.MaxLon)
		}
		if filter.MinLength != nil {
			conditions = append(conditions, "length_m >= ?")
			args = append(args, *filter.MinLength)
		}
		if filter.ShipType != nil {
			conditions = append(conditions, "ship_type = ?")
			args = append(args, *filter.ShipType)
		}
		if filter.MaxAge > 0 {
			conditions = append(conditions, "position_at >= ?")
			args = append(args, now.Add(-filter.MaxAge))
		}
	}

	var sb strings.Builder
	sb.WriteString(selectVesselSQL)
	if len(conditions) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(conditions, " AND "))
	}
	sb.WriteString(" ORDER BY mmsi")
	return sb.String(), args
}

// Route returns one vessel's position history, oldest first. A zero since
// starts from the beginning of retained history. A non-positive limit
// falls back to defaultRouteLimit; limits above maxRouteLimit are capped.
func (s *Store) Route(ctx context.Context, mmsi int64, since time.Time, limit int) ([]models.PositionEvent, error) {
	start := time.Now()
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	if limit <= 0 {
		limit = defaultRouteLimit
	}
	if limit > maxRouteLimit {
		limit = maxRouteLimit
	}

	query := `SELECT mmsi, "at", source, lat, lon, sog_kn, cog_deg FROM position_events WHERE mmsi = ?`
	args := []any{mmsi}
	if !since.IsZero() {
		query += ` AND "at" >= ?`
		args = append(args, since)
	}
	query += ` ORDER BY "at" LIMIT ?`
	args = append(args, limit)

	events, err := queryAndScan(ctx, s.db, query, args, scanPositionEvent)
	metrics.RecordStoreQuery("route", "position_events", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("route for %d: %w", mmsi, err)
	}
	return events, nil
}

// Stats summarizes store contents for the stats endpoint. activeWindow
// bounds how old a position fix may be for a vessel to count as active;
// non-positive means one hour.
func (s *Store) Stats(ctx context.Context, activeWindow time.Duration) (*models.StoreStats, error) {
	start := time.Now()
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	if activeWindow <= 0 {
		activeWindow = time.Hour
	}

	stats := &models.StoreStats{}
	var statsErr error
	defer func() {
		metrics.RecordStoreQuery("stats", "vessel_records", time.Since(start), statsErr)
	}()

	if err := s.db.QueryRowContext(ctx,
		"SELECT count(*) FROM vessel_records").Scan(&stats.Vessels); err != nil {
		statsErr = err
		return nil, fmt.Errorf("count vessels: %w", err)
	}
	metrics.VesselsTracked.Set(float64(stats.Vessels))

	if err := s.db.QueryRowContext(ctx,
		"SELECT count(*) FROM position_events").Scan(&stats.PositionEvents); err != nil {
		statsErr = err
		return nil, fmt.Errorf("count position events: %w", err)
	}

	cutoff := time.Now().UTC().Add(-activeWindow)
	if err := s.db.QueryRowContext(ctx,
		"SELECT count(*) FROM vessel_records WHERE position_at >= ?", cutoff).Scan(&stats.ActiveVessels); err != nil {
		statsErr = err
		return nil, fmt.Errorf("count active vessels: %w", err)
	}

	for _, src := range []models.Source{models.SourceAISStream, models.SourceSatScan} {
		var n int64
		if err := s.db.QueryRowContext(ctx,
			"SELECT count(*) FROM vessel_records WHERE source_mask & ? != 0", int16(src)).Scan(&n); err != nil {
			statsErr = err
			return nil, fmt.Errorf("count %s coverage: %w", src, err)
		}
		stats.Coverage = append(stats.Coverage, models.SourceCoverage{Source: src.String(), Vessels: n})
	}

	if err := s.db.QueryRowContext(ctx,
		`SELECT min("at"), max("at") FROM position_events`).Scan(&stats.OldestPosition, &stats.NewestPosition); err != nil {
		statsErr = err
		return nil, fmt.Errorf("position horizon: %w", err)
	}

	if info, err := os.Stat(s.cfg.Path); err == nil {
		stats.DatabaseSizeBytes = info.Size()
	}
	return stats, nil
}

// scanVesselRecord reads one row in vesselColumns order. Nullable columns
// scan straight into the record's pointer fields; the *_src and mask
// columns are NOT NULL so their plain integer fields always scan.
func scanVesselRecord(row rowScanner) (models.VesselRecord, error) {
	var rec models.VesselRecord
	var tags *string
	err := row.Scan(
		&rec.MMSI,
		&rec.Name, &rec.NameAt, &rec.NameSrc,
		&rec.CallSign, &rec.CallSignAt, &rec.CallSignSrc,
		&rec.ShipType, &rec.ShipTypeAt, &rec.ShipTypeSrc,
		&rec.IMO, &rec.IMOAt, &rec.IMOSrc,
		&rec.LengthM, &rec.LengthAt, &rec.LengthSrc,
		&rec.BeamM, &rec.BeamAt, &rec.BeamSrc,
		&rec.Destination, &rec.DestinationAt, &rec.DestinationSrc,
		&rec.ETA, &rec.ETAAt, &rec.ETASrc,
		&rec.Lat, &rec.LatAt, &rec.Lon, &rec.LonAt,
		&rec.SogKn, &rec.SogAt, &rec.CogDeg, &rec.CogAt,
		&rec.NavStatus, &rec.NavStatusAt, &rec.PositionAt,
		&tags, &rec.Score, &rec.Operator, &rec.EnrichedAt,
		&rec.SourceMask, &rec.FirstSeen, &rec.UpdatedAt,
	)
	if err != nil {
		return models.VesselRecord{}, err
	}
	if tags != nil && *tags != "" {
		if err := json.Unmarshal([]byte(*tags), &rec.Tags); err != nil {
			return models.VesselRecord{}, fmt.Errorf("decode tags for %d: %w", rec.MMSI, err)
		}
	}
	return rec, nil
}

func scanPositionEvent(row rowScanner) (models.PositionEvent, error) {
	var ev models.PositionEvent
	err := row.Scan(&ev.MMSI, &ev.At, &ev.Source, &ev.Lat, &ev.Lon, &ev.SogKn, &ev.CogDeg)
	return ev, err
}
