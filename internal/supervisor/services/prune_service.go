// Pelorus - Vessel Tracking and Live Fleet Map
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pelorus

package services

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/pelorus/internal/logging"
)

// PositionPruner deletes position events older than the retention
// horizon. Satisfied by *store.Store.
type PositionPruner interface {
	PrunePositions(ctx context.Context, retention time.Duration) (int64, error)
}

// PruneService runs retention pruning on a fixed interval under the
// data-layer supervisor. One failed pass is logged and retried at the
// next tick; only nonsensical configuration crashes the service.
type PruneService struct {
	pruner    PositionPruner
	retention time.Duration
	interval  time.Duration
}

// NewPruneService creates the pruning service. Retention is how much
// position history to keep; interval is how often to sweep.
func NewPruneService(pruner PositionPruner, retention, interval time.Duration) (*PruneService, error) {
	if pruner == nil {
		return nil, fmt.Errorf("prune service: pruner is required")
	}
	if retention <= 0 {
		return nil, fmt.Errorf("prune service: retention must be positive, got %s", retention)
	}
	if interval <= 0 {
		return nil, fmt.Errorf("prune service: interval must be positive, got %s", interval)
	}

	return &PruneService{
		pruner:    pruner,
		retention: retention,
		interval:  interval,
	}, nil
}

// Serve implements suture.Service. The first sweep runs immediately so
// a process that was down past its retention horizon catches up without
// waiting a full interval.
func (s *PruneService) Serve(ctx context.Context) error {
	logging.Info().
		Dur("retention", s.retention).
		Dur("interval", s.interval).
		Msg("Position pruner starting")

	s.sweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *PruneService) sweep(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if _, err := s.pruner.PrunePositions(ctx, s.retention); err != nil {
		logging.Error().Err(err).Msg("Position prune failed")
	}
}

// String implements fmt.Stringer for supervisor logs.
func (s *PruneService) String() string {
	return "position-pruner"
}
