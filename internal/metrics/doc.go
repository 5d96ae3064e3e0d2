// Pelorus - Vessel Tracking and Live Fleet Map
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pelorus

/*
Package metrics provides Prometheus metrics collection and export for observability.

This package implements application instrumentation using the Prometheus client
library, exposing metrics for monitoring ingest throughput, merge outcomes,
scan credit consumption, and viewer fan-out health.

# Overview

The package provides metrics for:
  - Canonical store performance (DuckDB query latency, upsert outcomes)
  - Upstream feed health (connection state, message rates, reconnects)
  - Scan credit ledger (used vs budget, deferred scans)
  - Event stream throughput (NATS publish/consume, consumer lag)
  - Viewer fan-out (connected viewers, deltas sent, drop reasons)
  - API endpoint latency and throughput
  - Write-ahead log depth and replay counts

# Metrics Endpoint

Metrics are exposed at the /metrics endpoint in Prometheus text format:

	curl http://localhost:3857/metrics

# Key Metrics

Store:
  - duckdb_query_duration_seconds: Query latency (histogram)
    Labels: operation, table
  - vessel_upserts_total: Upsert outcomes (counter)
    Labels: source, outcome (created, changed, refreshed, noop, rejected, error)
  - vessels_tracked: Current record count (gauge)

Feeds:
  - feed_messages_total: Accepted messages (counter)
    Labels: feed, kind (position, static, sighting)
  - feed_connected: Session state per feed (gauge, 0/1)
  - feed_reconnects_total: Reconnect attempts (counter)

Credits:
  - satscan_credits_used / satscan_credits_budget: Window consumption (gauges)
  - satscan_scans_deferred_total: Scans skipped by the reserve floor (counter)

Fan-out:
  - websocket_viewers: Connected viewers (gauge)
  - websocket_deltas_sent_total: Delta frames delivered (counter)
  - websocket_viewers_dropped_total: Removals by reason (counter)
    Labels: reason (slow, write_error, read_error, snapshot_failed)

# Usage Example

	import "github.com/tomtom215/pelorus/internal/metrics"

	start := time.Now()
	rows, err := db.QueryContext(ctx, query)
	metrics.RecordStoreQuery("SELECT", "vessel_records", time.Since(start), err)

# Thread Safety

All metric recording functions are thread-safe and designed for concurrent use
from multiple goroutines. The Prometheus client library handles synchronization
internally.

# Cardinality Management

To prevent high cardinality issues:

  - Endpoint labels carry route patterns, not raw paths
  - Error types are truncated to 50 characters
  - MMSI values never appear as label values
  - Zone labels are bounded by the configured scan zone list
*/
package metrics
