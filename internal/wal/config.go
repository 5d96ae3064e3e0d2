// Pelorus - Vessel Tracking and Live Fleet Map
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pelorus

// Package wal provides a durable Write-Ahead Log (WAL) using BadgerDB for
// vessel report persistence. Reports are written to the WAL before the merge
// is applied to the canonical store, so a crash between receiving a report
// and committing it cannot lose the report: pending entries are replayed
// through the normal merge path on startup.
package wal

import (
	"time"
)

// Config holds WAL configuration.
//
// The WAL provides the write-side durability guarantee for report ingestion.
// A report is persisted here (ACID, fsync) before the store merge runs, and
// the entry is confirmed only after the store transaction commits.
type Config struct {
	// Path is the directory where BadgerDB stores its files.
	// Should be on a durable filesystem (not tmpfs).
	Path string

	// SyncWrites forces fsync after every write for maximum durability.
	// Set to false for higher throughput but risk of data loss on power failure.
	SyncWrites bool

	// MaxReplayAttempts is the maximum number of replay attempts for a
	// pending entry. Entries that still fail after this many attempts are
	// treated as poison and deleted.
	MaxReplayAttempts int

	// CompactInterval is the time between compaction runs.
	// Compaction removes confirmed entries to free disk space.
	CompactInterval time.Duration

	// EntryTTL is the time-to-live for unconfirmed entries.
	// Entries older than this are cleaned up regardless of confirmation status.
	EntryTTL time.Duration

	// BadgerDB tuning options
	// MemTableSize is the size of each memtable in bytes.
	MemTableSize int64

	// ValueLogFileSize is the size of each value log file in bytes.
	ValueLogFileSize int64

	// NumCompactors is the number of compaction workers.
	NumCompactors int

	// Compression enables Snappy compression for WAL entries.
	// Reduces disk usage substantially for JSON payloads with slight CPU overhead.
	Compression bool

	// GCRatio is the ratio for value log garbage collection.
	// Lower values reclaim more space but use more CPU.
	GCRatio float64

	// CloseTimeout is the maximum time to wait for graceful shutdown.
	// If the database doesn't close within this time, Close() returns with an error.
	CloseTimeout time.Duration
}

// DefaultConfig returns a Config with defaults that prioritize durability
// over performance.
func DefaultConfig() Config {
	return Config{
		Path:              "/data/wal",
		SyncWrites:        true,
		MaxReplayAttempts: 5,
		CompactInterval:   1 * time.Hour,
		EntryTTL:          168 * time.Hour, // 7 days
		MemTableSize:      16 * 1024 * 1024,
		ValueLogFileSize:  64 * 1024 * 1024,
		NumCompactors:     2,
		Compression:       true,
		GCRatio:           0.5,
		CloseTimeout:      30 * time.Second,
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.Path == "" {
		return &ConfigError{Field: "Path", Message: "WAL path is required"}
	}

	if c.MaxReplayAttempts < 1 {
		return &ConfigError{Field: "MaxReplayAttempts", Message: "must be at least 1"}
	}

	if c.CompactInterval < time.Minute {
		return &ConfigError{Field: "CompactInterval", Message: "must be at least 1 minute"}
	}

	if c.EntryTTL < time.Hour {
		return &ConfigError{Field: "EntryTTL", Message: "must be at least 1 hour"}
	}

	if c.MemTableSize < 1024*1024 { // 1MB minimum
		return &ConfigError{Field: "MemTableSize", Message: "must be at least 1MB"}
	}

	if c.ValueLogFileSize < 1024*1024 { // 1MB minimum
		return &ConfigError{Field: "ValueLogFileSize", Message: "must be at least 1MB"}
	}

	if c.NumCompactors < 2 {
		return &ConfigError{Field: "NumCompactors", Message: "must be at least 2 (BadgerDB requirement)"}
	}

	return nil
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "WAL config error: " + e.Field + ": " + e.Message
}
