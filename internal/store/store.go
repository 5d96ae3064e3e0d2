// Pelorus - Vessel Tracking and Live Fleet Map
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pelorus

// Package store persists vessel records, position history and the scan
// credit ledger in an embedded DuckDB database.
//
// The store is the single merge point for every upstream feed. Ingest
// follows a strict durability order: a report is written to the WAL first,
// then merged and committed, then confirmed in the WAL. A crash between any
// of those steps leaves a pending WAL entry that startup replay pushes
// through the same merge path, which is idempotent under re-delivery.
//
// Writes for one vessel are serialized with a per-MMSI mutex so concurrent
// feeds cannot interleave their read-merge-write cycles. Reads run without
// vessel locks against committed state.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	_ "github.com/duckdb/duckdb-go/v2" // database/sql driver
	"github.com/tomtom215/pelorus/internal/logging"

	"github.com/tomtom215/pelorus/internal/wal"
)

const (
	// dbOperationTimeout bounds any operation whose caller supplied no
	// deadline, so a wedged query cannot hold a connection forever.
	dbOperationTimeout = 30 * time.Second

	// maxWriteAttempts bounds optimistic-concurrency retries on writes.
	maxWriteAttempts = 3
)

// Config holds the DuckDB settings for the canonical store.
type Config struct {
	// Path is the database file location. The parent directory is
	// created if missing.
	Path string

	// Threads caps DuckDB's internal parallelism. Zero means one thread
	// per CPU.
	Threads int

	// MaxMemory is DuckDB's memory ceiling, e.g. "512MB".
	MaxMemory string

	// PreserveInsertionOrder disables result reordering optimizations
	// when true. Leaving it false lowers memory use on large scans.
	PreserveInsertionOrder bool
}

// DefaultConfig returns production defaults.
func DefaultConfig() *Config {
	return &Config{
		Path:      "/data/pelorus.db",
		Threads:   runtime.NumCPU(),
		MaxMemory: "512MB",
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.Path == "" {
		return errors.New("store: path is required")
	}
	if c.Threads < 0 {
		return fmt.Errorf("store: threads must not be negative, got %d", c.Threads)
	}
	return nil
}

// Store is the canonical vessel store backed by DuckDB, with a durable
// write-ahead log in front of the ingest path.
type Store struct {
	db  *sql.DB
	wal wal.WAL
	cfg *Config

	// mmsiLocks serializes the read-merge-write cycle per vessel.
	mmsiLocks sync.Map // int64 -> *sync.Mutex

	mu     sync.Mutex
	closed bool
}

// New opens or creates the database at cfg.Path, applies the schema and
// returns a ready store. The WAL is required: ingest durability depends on
// it. The caller owns the WAL's lifecycle and closes it after the store.
func New(cfg *Config, w wal.WAL) (*Store, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if w == nil {
		return nil, errors.New("store: wal is required")
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o750); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	threads := cfg.Threads
	if threads <= 0 {
		threads = runtime.NumCPU()
	}
	maxMemory := cfg.MaxMemory
	if maxMemory == "" {
		maxMemory = "512MB"
	}

	connStr := fmt.Sprintf(
		"%s?access_mode=read_write&threads=%d&max_memory=%s&preserve_insertion_order=%t"+
			"&autoinstall_known_extensions=false&autoload_known_extensions=false",
		cfg.Path, threads, maxMemory, cfg.PreserveInsertionOrder,
	)

	db, err := sql.Open("duckdb", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	s := &Store{db: db, wal: w, cfg: cfg}
	s.configureConnectionPool(threads)

	ctx, cancel := context.WithTimeout(context.Background(), dbOperationTimeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		closeQuietly(db)
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := s.createTables(ctx); err != nil {
		closeQuietly(db)
		return nil, err
	}
	if err := s.createIndexes(ctx); err != nil {
		closeQuietly(db)
		return nil, err
	}
	if _, err := db.ExecContext(ctx, "CHECKPOINT"); err != nil {
		logging.Warn().Err(err).Msg("Post-initialization checkpoint failed")
	}

	logging.Info().
		Str("path", cfg.Path).
		Int("threads", threads).
		Str("max_memory", maxMemory).
		Msg("Vessel store opened")

	return s, nil
}

// configureConnectionPool sizes the database/sql pool for an embedded
// engine: writes funnel through short transactions, reads fan out up to
// DuckDB's own thread limit.
func (s *Store) configureConnectionPool(threads int) {
	s.db.SetMaxOpenConns(threads)
	s.db.SetMaxIdleConns(2)
	s.db.SetConnMaxLifetime(time.Hour)
	s.db.SetConnMaxIdleTime(5 * time.Minute)
}

// Close checkpoints and closes the database. Safe to call more than once.
// The WAL is owned by the caller and is not closed here.
func (s *Store) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), dbOperationTimeout)
	defer cancel()
	if _, err := s.db.ExecContext(ctx, "CHECKPOINT"); err != nil {
		logging.Warn().Err(err).Msg("Checkpoint before close failed")
	}
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	logging.Info().Str("path", s.cfg.Path).Msg("Vessel store closed")
	return nil
}

// Ping verifies the database connection, for health checks.
func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := ensureContext(ctx)
	defer cancel()
	return s.db.PingContext(ctx)
}

// Checkpoint flushes DuckDB's write-ahead state into the main file.
func (s *Store) Checkpoint(ctx context.Context) error {
	ctx, cancel := ensureContext(ctx)
	defer cancel()
	if _, err := s.db.ExecContext(ctx, "CHECKPOINT"); err != nil {
		return fmt.Errorf("checkpoint: %w", err)
	}
	return nil
}

// WALStats exposes the durability log counters for diagnostics.
func (s *Store) WALStats() wal.Stats {
	return s.wal.Stats()
}

// acquireVesselLock serializes writes for one MMSI. The returned mutex is
// already locked; release with releaseVesselLock.
func (s *Store) acquireVesselLock(mmsi int64) *sync.Mutex {
	actual, _ := s.mmsiLocks.LoadOrStore(mmsi, &sync.Mutex{})
	mu, ok := actual.(*sync.Mutex)
	if !ok {
		mu = &sync.Mutex{}
		s.mmsiLocks.Store(mmsi, mu)
	}
	mu.Lock()
	return mu
}

func (s *Store) releaseVesselLock(mu *sync.Mutex) {
	mu.Unlock()
}

// withConflictRetry runs fn, retrying DuckDB optimistic-concurrency
// conflicts with short exponential backoff. Internal errors abort
// immediately: they invalidate engine state and must never be retried.
func (s *Store) withConflictRetry(ctx context.Context, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt < maxWriteAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Millisecond * time.Duration(1<<uint(attempt))):
			}
		}

		err := fn()
		if err == nil {
			return nil
		}
		if isInternalError(err) {
			return fmt.Errorf("fatal database error: %w", err)
		}
		if !isTransactionConflict(err) {
			return err
		}
		lastErr = err
		logging.Warn().Err(err).Int("attempt", attempt+1).Msg("Transaction conflict, retrying")
	}
	return fmt.Errorf("after %d attempts: %w", maxWriteAttempts, lastErr)
}

// ensureContext guarantees a deadline on database operations.
func ensureContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	if _, ok := ctx.Deadline(); !ok {
		return context.WithTimeout(ctx, dbOperationTimeout)
	}
	return ctx, func() {}
}

// isTransactionConflict matches DuckDB's optimistic-concurrency failures,
// which are safe to retry.
func isTransactionConflict(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "Transaction conflict") ||
		strings.Contains(msg, "Conflict on update") ||
		strings.Contains(msg, "cannot update a table that has been altered")
}

// isInternalError matches DuckDB internal errors.
func isInternalError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "INTERNAL Error")
}

// closeQuietly closes a resource where the error has no useful handling,
// such as cleanup after a failure already being returned.
func closeQuietly(c io.Closer) {
	_ = c.Close()
}

// rollbackQuietly rolls back a transaction, ignoring the ErrTxDone that
// follows a successful commit.
func rollbackQuietly(tx *sql.Tx) {
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		logging.Warn().Err(err).Msg("Transaction rollback failed")
	}
}
