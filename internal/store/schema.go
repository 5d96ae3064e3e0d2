// Pelorus - Vessel Tracking and Live Fleet Map
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pelorus

package store

import (
	"context"
	"fmt"
)

// Schema notes:
//
//   - vessel_records holds one wide row per MMSI. Every static attribute
//     carries its own *_at timestamp and *_src source tag so per-field
//     provenance survives partial reports arriving from different feeds.
//   - position_events is append-only history keyed (mmsi, at, source).
//     Re-inserting an existing key is ignored, which keeps WAL replay and
//     feed re-delivery from duplicating track points.
//   - credit_ledger holds one accounting row per monthly scan window.

const createVesselRecordsSQL = `
CREATE TABLE IF NOT EXISTS vessel_records (
	mmsi BIGINT PRIMARY KEY,

	-- Static attributes with per-field provenance.
	name TEXT,
	name_at TIMESTAMP,
	name_src SMALLINT NOT NULL DEFAULT 0,
	call_sign TEXT,
	call_sign_at TIMESTAMP,
	call_sign_src SMALLINT NOT NULL DEFAULT 0,
	ship_type INTEGER,
	ship_type_at TIMESTAMP,
	ship_type_src SMALLINT NOT NULL DEFAULT 0,
	imo BIGINT,
	imo_at TIMESTAMP,
	imo_src SMALLINT NOT NULL DEFAULT 0,
	length_m DOUBLE,
	length_at TIMESTAMP,
	length_src SMALLINT NOT NULL DEFAULT 0,
	beam_m DOUBLE,
	beam_at TIMESTAMP,
	beam_src SMALLINT NOT NULL DEFAULT 0,
	destination TEXT,
	destination_at TIMESTAMP,
	destination_src SMALLINT NOT NULL DEFAULT 0,
	eta TIMESTAMP,
	eta_at TIMESTAMP,
	eta_src SMALLINT NOT NULL DEFAULT 0,

	-- Dynamic attributes, one event clock per field. position_at is the
	-- event time of the latest accepted complete fix.
	lat DOUBLE,
	lat_at TIMESTAMP,
	lon DOUBLE,
	lon_at TIMESTAMP,
	sog_kn DOUBLE,
	sog_at TIMESTAMP,
	cog_deg DOUBLE,
	cog_at TIMESTAMP,
	nav_status SMALLINT,
	nav_status_at TIMESTAMP,
	position_at TIMESTAMP,

	-- Enrichment, written only through the enrichment entry point.
	tags TEXT,
	score DOUBLE,
	operator TEXT,
	enriched_at TIMESTAMP,

	source_mask SMALLINT NOT NULL DEFAULT 0,
	first_seen TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
)`

const createPositionEventsSQL = `
CREATE TABLE IF NOT EXISTS position_events (
	mmsi BIGINT NOT NULL,
	"at" TIMESTAMP NOT NULL,
	source SMALLINT NOT NULL,
	lat DOUBLE NOT NULL,
	lon DOUBLE NOT NULL,
	sog_kn DOUBLE,
	cog_deg DOUBLE,
	PRIMARY KEY (mmsi, "at", source)
)`

const createCreditLedgerSQL = `
CREATE TABLE IF NOT EXISTS credit_ledger (
	window_start TIMESTAMP PRIMARY KEY,
	used BIGINT NOT NULL DEFAULT 0,
	budget BIGINT NOT NULL,
	updated_at TIMESTAMP NOT NULL
)`

// vesselColumns is the canonical column order shared by the upsert
// statement and every row scan. Keep in step with scanVesselRecord and
// upsertRecordTx.
const vesselColumns = `mmsi,
	name, name_at, name_src,
	call_sign, call_sign_at, call_sign_src,
	ship_type, ship_type_at, ship_type_src,
	imo, imo_at, imo_src,
	length_m, length_at, length_src,
	beam_m, beam_at, beam_src,
	destination, destination_at, destination_src,
	eta, eta_at, eta_src,
	lat, lat_at, lon, lon_at,
	sog_kn, sog_at, cog_deg, cog_at,
	nav_status, nav_status_at, position_at,
	tags, score, operator, enriched_at,
	source_mask, first_seen, updated_at`

func (s *Store) createTables(ctx context.Context) error {
	tables := []struct {
		name string
		ddl  string
	}{
		{"vessel_records", createVesselRecordsSQL},
		{"position_events", createPositionEventsSQL},
		{"credit_ledger", createCreditLedgerSQL},
	}
	for _, t := range tables {
		if _, err := s.db.ExecContext(ctx, t.ddl); err != nil {
			return fmt.Errorf("create table %s: %w", t.name, err)
		}
	}
	return nil
}

func (s *Store) createIndexes(ctx context.Context) error {
	// The position_events primary key already covers (mmsi, at) prefix
	// lookups for route reads.
	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_vessel_records_position_at ON vessel_records(position_at)",
		"CREATE INDEX IF NOT EXISTS idx_vessel_records_ship_type ON vessel_records(ship_type)",
		"CREATE INDEX IF NOT EXISTS idx_vessel_records_updated_at ON vessel_records(updated_at)",
		`CREATE INDEX IF NOT EXISTS idx_position_events_at ON position_events("at")`,
	}
	for _, idx := range indexes {
		if _, err := s.db.ExecContext(ctx, idx); err != nil {
			return fmt.Errorf("create index: %w", err)
		}
	}
	return nil
}
