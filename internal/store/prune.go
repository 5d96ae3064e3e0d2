// Pelorus - Vessel Tracking and Live Fleet Map
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pelorus

package store

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/pelorus/internal/logging"

	"github.com/tomtom215/pelorus/internal/metrics"
)

// PrunePositions deletes position events older than the retention horizon
// and returns how many were removed. Vessel records are never deleted;
// stale vessels age out of active views through PositionAt instead.
func (s *Store) PrunePositions(ctx context.Context, retention time.Duration) (int64, error) {
	if retention <= 0 {
		return 0, fmt.Errorf("retention must be positive, got %s", retention)
	}

	start := time.Now()
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	cutoff := time.Now().UTC().Add(-retention)
	res, err := s.db.ExecContext(ctx, `DELETE FROM position_events WHERE "at" < ?`, cutoff)
	metrics.RecordStoreQuery("prune", "position_events", time.Since(start), err)
	if err != nil {
		return 0, fmt.Errorf("prune position events: %w", err)
	}

	pruned, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("pruned rows affected: %w", err)
	}
	if pruned > 0 {
		metrics.PositionEventsPruned.Add(float64(pruned))
		logging.Info().
			Int64("pruned", pruned).
			Time("cutoff", cutoff).
			Msg("Pruned position history")
	}
	return pruned, nil
}
