// Pelorus - Vessel Tracking and Live Fleet Map
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pelorus

package wal

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for WAL operations
var (
	// walWritesTotal counts total WAL write operations.
	walWritesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wal_writes_total",
		Help: "Total number of WAL write operations",
	})

	// walConfirmsTotal counts total WAL confirm operations.
	walConfirmsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wal_confirms_total",
		Help: "Total number of WAL confirm operations (committed merges)",
	})

	// walPendingEntries is the current number of pending WAL entries.
	walPendingEntries = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "wal_pending_entries",
		Help: "Current number of pending WAL entries",
	})

	// walConfirmedEntries is the current number of confirmed WAL entries awaiting compaction.
	walConfirmedEntries = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "wal_confirmed_entries",
		Help: "Current number of confirmed WAL entries awaiting compaction",
	})

	// walWriteLatency measures WAL write latency.
	walWriteLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "wal_write_latency_seconds",
		Help:    "WAL write latency in seconds",
		Buckets: prometheus.DefBuckets,
	})

	// walDBSizeBytes is the current BadgerDB database size.
	walDBSizeBytes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "wal_db_size_bytes",
		Help: "BadgerDB database size in bytes",
	})

	// walCompactionsTotal counts total compaction runs.
	walCompactionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wal_compactions_total",
		Help: "Total number of WAL compaction runs",
	})

	// walEntriesCompacted counts entries removed during compaction.
	walEntriesCompacted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wal_entries_compacted_total",
		Help: "Total number of entries removed during compaction",
	})

	// walReplayedEntries counts entries replayed on startup.
	walReplayedEntries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wal_replayed_entries_total",
		Help: "Total number of entries replayed on startup",
	})

	// walWriteFailures counts failed WAL writes.
	walWriteFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wal_write_failures_total",
		Help: "Total number of failed WAL write operations",
	})

	// walReplayFailures counts failed replay attempts.
	walReplayFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wal_replay_failures_total",
		Help: "Total number of failed WAL replay attempts",
	})

	// walPoisonEntries counts entries dropped after exceeding max replay attempts.
	walPoisonEntries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wal_poison_entries_total",
		Help: "Total number of entries dropped after exceeding max replay attempts",
	})

	// walExpiredEntries counts entries that expired before confirmation.
	walExpiredEntries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wal_expired_entries_total",
		Help: "Total number of entries that expired before confirmation",
	})

	// walCompactionLatency measures compaction latency.
	walCompactionLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "wal_compaction_latency_seconds",
		Help:    "WAL compaction latency in seconds",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 10), // 0.1s to ~100s
	})

	// walGCLatency measures BadgerDB value log GC latency.
	walGCLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "wal_gc_latency_seconds",
		Help:    "BadgerDB value log GC latency in seconds",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // 0.01s to ~40s
	})

	// walGCRuns counts total GC runs.
	walGCRuns = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wal_gc_runs_total",
		Help: "Total number of BadgerDB value log GC runs",
	})
)

func recordWrite() {
	walWritesTotal.Inc()
}

func recordConfirm() {
	walConfirmsTotal.Inc()
}

func updatePendingEntries(count int64) {
	walPendingEntries.Set(float64(count))
}

func updateConfirmedEntries(count int64) {
	walConfirmedEntries.Set(float64(count))
}

func recordWriteLatency(seconds float64) {
	walWriteLatency.Observe(seconds)
}

func updateDBSize(bytes int64) {
	walDBSizeBytes.Set(float64(bytes))
}

func recordCompaction() {
	walCompactionsTotal.Inc()
}

func recordEntriesCompacted(count int64) {
	walEntriesCompacted.Add(float64(count))
}

func recordReplayedEntries(count int64) {
	walReplayedEntries.Add(float64(count))
}

func recordWriteFailure() {
	walWriteFailures.Inc()
}

func recordReplayFailure() {
	walReplayFailures.Inc()
}

func recordPoisonEntry() {
	walPoisonEntries.Inc()
}

func recordExpiredEntry() {
	walExpiredEntries.Inc()
}

func recordCompactionLatency(seconds float64) {
	walCompactionLatency.Observe(seconds)
}

func recordGCLatency(seconds float64) {
	walGCLatency.Observe(seconds)
}

func recordGCRun() {
	walGCRuns.Inc()
}
