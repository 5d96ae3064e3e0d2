// Pelorus - Vessel Tracking and Live Fleet Map
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pelorus

package main

import (
	"context"
	"fmt"

	"github.com/tomtom215/pelorus/internal/config"
	"github.com/tomtom215/pelorus/internal/logging"
	"github.com/tomtom215/pelorus/internal/store"
	"github.com/tomtom215/pelorus/internal/wal"
)

// StorageComponents holds the durable storage stack: the Badger
// write-ahead log, its compactor, and the DuckDB vessel store that
// writes through it.
type StorageComponents struct {
	wal       *wal.BadgerWAL
	compactor *wal.Compactor
	store     *store.Store
}

// InitStorage opens the WAL, opens the vessel store on top of it, and
// replays whatever the previous run left pending. The returned
// compactor is not started here; the supervisor's compaction service
// owns its lifecycle.
func InitStorage(ctx context.Context, cfg *config.Config) (*StorageComponents, error) {
	walCfg := wal.DefaultConfig()
	walCfg.Path = cfg.WAL.Path
	walCfg.SyncWrites = cfg.WAL.SyncWrites
	if cfg.WAL.CompactInterval > 0 {
		walCfg.CompactInterval = cfg.WAL.CompactInterval
	}
	if cfg.WAL.EntryTTL > 0 {
		walCfg.EntryTTL = cfg.WAL.EntryTTL
	}

	w, err := wal.Open(&walCfg)
	if err != nil {
		return nil, fmt.Errorf("open WAL: %w", err)
	}

	st, err := store.New(&store.Config{
		Path:                   cfg.Database.Path,
		Threads:                cfg.Database.Threads,
		MaxMemory:              cfg.Database.MaxMemory,
		PreserveInsertionOrder: cfg.Database.PreserveInsertionOrder,
	}, w)
	if err != nil {
		if cerr := w.Close(); cerr != nil {
			logging.Error().Err(cerr).Msg("Error closing WAL after failed store open")
		}
		return nil, fmt.Errorf("open vessel store: %w", err)
	}

	// Replay is best-effort: entries that still fail stay pending and
	// are retried on the next start, so a replay error is not fatal.
	result, err := st.ReplayWAL(ctx)
	switch {
	case err != nil:
		logging.Warn().Err(err).Msg("WAL replay failed, pending entries remain for the next start")
	case result.TotalPending > 0:
		logging.Info().
			Int("pending", result.TotalPending).
			Int("applied", result.Applied).
			Int("failed", result.Failed).
			Int("expired", result.Expired).
			Int("poisoned", result.Poisoned).
			Dur("duration", result.Duration).
			Msg("WAL replay complete")
	default:
		logging.Info().Msg("WAL clean, no replay needed")
	}

	return &StorageComponents{
		wal:       w,
		compactor: wal.NewCompactor(w),
		store:     st,
	}, nil
}

// Shutdown closes the store and then the WAL it writes through. The
// store checkpoints on close, so every confirmed entry is already
// compactable by the time the WAL shuts down.
func (c *StorageComponents) Shutdown() {
	if c == nil {
		return
	}
	if c.store != nil {
		if err := c.store.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing vessel store")
		}
	}
	if c.wal != nil {
		if err := c.wal.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing WAL")
		}
	}
}

// Store returns the vessel store, or nil.
func (c *StorageComponents) Store() *store.Store {
	if c == nil {
		return nil
	}
	return c.store
}

// Compactor returns the unstarted WAL compactor, or nil.
func (c *StorageComponents) Compactor() *wal.Compactor {
	if c == nil {
		return nil
	}
	return c.compactor
}

// WAL returns the underlying write-ahead log, or nil.
func (c *StorageComponents) WAL() *wal.BadgerWAL {
	if c == nil {
		return nil
	}
	return c.wal
}
