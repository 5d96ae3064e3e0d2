// Pelorus - Vessel Tracking and Live Fleet Map
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pelorus

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus Metrics Integration for Production Observability
// This package provides instrumentation for:
// - Canonical store performance (DuckDB)
// - Upstream feed health (AIS stream, SatScan poller)
// - Scan credit consumption
// - Event stream throughput (NATS)
// - Viewer fan-out (WebSocket hub)
// - API endpoint latency and throughput

var (
	// Store Metrics
	StoreQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "duckdb_query_duration_seconds",
			Help:    "Duration of DuckDB queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "table"},
	)

	StoreQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "duckdb_query_errors_total",
			Help: "Total number of DuckDB query errors",
		},
		[]string{"operation", "table", "error_type"},
	)

	UpsertsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vessel_upserts_total",
			Help: "Total number of vessel upserts by feed and outcome",
		},
		[]string{"source", "outcome"}, // outcome: "created", "changed", "refreshed", "noop", "rejected", "error"
	)

	UpsertDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "vessel_upsert_duration_seconds",
			Help:    "Duration of the full upsert path (WAL write through commit)",
			Buckets: []float64{0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
	)

	PositionEventsInserted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "position_events_inserted_total",
			Help: "Total number of position events appended to the track log",
		},
	)

	PositionEventsPruned = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "position_events_pruned_total",
			Help: "Total number of position events removed by retention pruning",
		},
	)

	VesselsTracked = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "vessels_tracked",
			Help: "Current number of vessel records in the store",
		},
	)

	// Feed Metrics
	FeedMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feed_messages_total",
			Help: "Total number of feed messages received by kind",
		},
		[]string{"feed", "kind"}, // kind: "position", "static", "sighting"
	)

	FeedMalformedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feed_malformed_messages_total",
			Help: "Total number of dropped malformed or unknown feed messages",
		},
		[]string{"feed"},
	)

	FeedReconnectsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feed_reconnects_total",
			Help: "Total number of feed reconnect attempts",
		},
		[]string{"feed"},
	)

	FeedCredentialRotations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feed_credential_rotations_total",
			Help: "Total number of credential rotations after auth failures",
		},
		[]string{"feed"},
	)

	FeedConnected = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "feed_connected",
			Help: "Whether a feed session is currently established (0/1)",
		},
		[]string{"feed"},
	)

	FeedLastMessageTimestamp = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "feed_last_message_timestamp",
			Help: "Unix timestamp of the last accepted message per feed",
		},
		[]string{"feed"},
	)

	// Scan / Credit Metrics
	ScansTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "satscan_scans_total",
			Help: "Total number of zone scan requests by result",
		},
		[]string{"zone", "result"}, // result: "ok", "error", "timeout", "rate_limited", "deferred"
	)

	ScanDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "satscan_scan_duration_seconds",
			Help:    "Duration of zone scan requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	ScanVesselsReturned = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "satscan_vessels_returned",
			Help:    "Number of vessels enumerated per zone scan",
			Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 250, 500, 1000},
		},
	)

	CreditsUsed = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "satscan_credits_used",
			Help: "Request credits consumed in the current monthly window",
		},
	)

	CreditsBudget = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "satscan_credits_budget",
			Help: "Request credit budget for the monthly window",
		},
	)

	ScansDeferred = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "satscan_scans_deferred_total",
			Help: "Total number of scans skipped by the credit reserve floor",
		},
	)

	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	APIRateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_rate_limit_hits_total",
			Help: "Total number of rate limit rejections",
		},
		[]string{"endpoint"},
	)

	// WebSocket Hub Metrics
	WSViewers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_viewers",
			Help: "Current number of connected map viewers",
		},
	)

	WSDeltasSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_deltas_sent_total",
			Help: "Total number of delta frames sent to viewers",
		},
	)

	WSSnapshotsSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_snapshots_sent_total",
			Help: "Total number of snapshot frames sent to newly connected viewers",
		},
	)

	WSViewersDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "websocket_viewers_dropped_total",
			Help: "Total number of viewers dropped by reason",
		},
		[]string{"reason"}, // "slow", "write_error", "read_error", "snapshot_failed"
	)

	WSSnapshotDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "websocket_snapshot_duration_seconds",
			Help:    "Duration of the snapshot read served to a connecting viewer",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // result: "success", "failure", "rejected"
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// NATS Event Stream Metrics
	NATSMessagesPublished = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "nats_messages_published_total",
			Help: "Total number of delta messages published to NATS",
		},
	)

	NATSMessagesConsumed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "nats_messages_consumed_total",
			Help: "Total number of messages consumed from NATS",
		},
	)

	NATSMessagesParseFailed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "nats_messages_parse_failed_total",
			Help: "Total number of messages that failed to parse",
		},
	)

	NATSConsumerLag = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "nats_consumer_lag",
			Help: "Number of pending messages in the hub's NATS consumer",
		},
	)

	// System Metrics
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "app_info",
			Help: "Application version and build information",
		},
		[]string{"version", "go_version"},
	)

	AppUptime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "app_uptime_seconds",
			Help: "Application uptime in seconds",
		},
	)
)

// RecordStoreQuery records a store query metric
func RecordStoreQuery(operation, table string, duration time.Duration, err error) {
	StoreQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
	if err != nil {
		errorType := err.Error()
		if len(errorType) > 50 {
			errorType = errorType[:50]
		}
		StoreQueryErrors.WithLabelValues(operation, table, errorType).Inc()
	}
}

// RecordUpsert records the outcome of one upsert call.
func RecordUpsert(source, outcome string, duration time.Duration) {
	UpsertsTotal.WithLabelValues(source, outcome).Inc()
	UpsertDuration.Observe(duration.Seconds())
}

// RecordFeedMessage records one accepted feed message and refreshes the
// feed's last-message timestamp.
func RecordFeedMessage(feed, kind string) {
	FeedMessagesTotal.WithLabelValues(feed, kind).Inc()
	FeedLastMessageTimestamp.WithLabelValues(feed).Set(float64(time.Now().Unix()))
}

// RecordFeedMalformed records a dropped malformed or unknown message.
func RecordFeedMalformed(feed string) {
	FeedMalformedTotal.WithLabelValues(feed).Inc()
}

// SetFeedConnected flips the per-feed connection gauge.
func SetFeedConnected(feed string, connected bool) {
	v := 0.0
	if connected {
		v = 1.0
	}
	FeedConnected.WithLabelValues(feed).Set(v)
}

// RecordScan records a zone scan attempt.
func RecordScan(zone, result string, duration time.Duration, vessels int) {
	ScansTotal.WithLabelValues(zone, result).Inc()
	if result == "ok" {
		ScanDuration.Observe(duration.Seconds())
		ScanVesselsReturned.Observe(float64(vessels))
	}
}

// SetCreditLedger mirrors the credit ledger into gauges.
func SetCreditLedger(used, budget int64) {
	CreditsUsed.Set(float64(used))
	CreditsBudget.Set(float64(budget))
}

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks active API requests
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordViewerDropped records a viewer removed from the fan-out set.
func RecordViewerDropped(reason string) {
	WSViewersDropped.WithLabelValues(reason).Inc()
}
