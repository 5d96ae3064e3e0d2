// Pelorus - Vessel Tracking and Live Fleet Map
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pelorus

package services

import (
	"context"
	"fmt"
)

// WALCompactor matches the WAL compactor lifecycle without importing
// the wal package. Satisfied by *wal.Compactor.
type WALCompactor interface {
	Start(ctx context.Context) error
	Stop()
}

// WALCompactorService wraps the WAL compactor as a supervised service.
//
// The compactor periodically removes confirmed WAL entries and triggers
// BadgerDB garbage collection. Its Start/Stop lifecycle is adapted to
// suture's Serve pattern:
//  1. Start(ctx) spawns the compaction goroutine
//  2. Serve blocks until the context is canceled
//  3. Stop() waits for the goroutine before Serve returns
type WALCompactorService struct {
	compactor WALCompactor
}

// NewWALCompactorService creates the compactor service wrapper.
func NewWALCompactorService(compactor WALCompactor) (*WALCompactorService, error) {
	if compactor == nil {
		return nil, fmt.Errorf("wal compactor service: compactor is required")
	}
	return &WALCompactorService{compactor: compactor}, nil
}

// Serve implements suture.Service. A failed Start returns immediately
// so suture restarts with backoff.
func (s *WALCompactorService) Serve(ctx context.Context) error {
	if err := s.compactor.Start(ctx); err != nil {
		return fmt.Errorf("WAL compactor start failed: %w", err)
	}

	<-ctx.Done()

	// Blocks until the compaction goroutine has exited
	s.compactor.Stop()

	return ctx.Err()
}

// String implements fmt.Stringer for supervisor logs.
func (s *WALCompactorService) String() string {
	return "wal-compactor"
}
