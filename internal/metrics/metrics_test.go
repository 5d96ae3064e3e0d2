// Pelorus - Vessel Tracking and Live Fleet Map
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pelorus

package metrics

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	io_prometheus_client "github.com/prometheus/client_model/go"
)

// getCounterValue extracts the value from a Prometheus counter
func getCounterValue(counter prometheus.Counter) float64 {
	var m io_prometheus_client.Metric
	if err := counter.Write(&m); err != nil {
		return 0
	}
	return m.GetCounter().GetValue()
}

// getGaugeValue extracts the value from a Prometheus gauge
func getGaugeValue(gauge prometheus.Gauge) float64 {
	var m io_prometheus_client.Metric
	if err := gauge.Write(&m); err != nil {
		return 0
	}
	return m.GetGauge().GetValue()
}

// TestRecordStoreQuery tests store query metric recording
func TestRecordStoreQuery(t *testing.T) {
	tests := []struct {
		name      string
		operation string
		table     string
		duration  time.Duration
		err       error
	}{
		{
			name:      "successful SELECT query",
			operation: "SELECT",
			table:     "vessel_records",
			duration:  10 * time.Millisecond,
			err:       nil,
		},
		{
			name:      "successful INSERT query",
			operation: "INSERT",
			table:     "position_events",
			duration:  5 * time.Millisecond,
			err:       nil,
		},
		{
			name:      "failed query with short error",
			operation: "UPDATE",
			table:     "vessel_records",
			duration:  100 * time.Millisecond,
			err:       errors.New("connection refused"),
		},
		{
			name:      "failed query with long error - should truncate to 50 chars",
			operation: "DELETE",
			table:     "position_events",
			duration:  50 * time.Millisecond,
			err:       errors.New("this is a very long error message that exceeds fifty characters and should be truncated properly"),
		},
		{
			name:      "fast query under 1ms",
			operation: "SELECT",
			table:     "credit_ledger",
			duration:  500 * time.Microsecond,
			err:       nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Record the query - should not panic
			RecordStoreQuery(tt.operation, tt.table, tt.duration, tt.err)
		})
	}
}

// TestRecordStoreQuery_ErrorTruncation verifies error messages are truncated at 50 chars
func TestRecordStoreQuery_ErrorTruncation(t *testing.T) {
	err50 := errors.New(strings.Repeat("a", 50))
	RecordStoreQuery("SELECT", "test", time.Millisecond, err50)

	err51 := errors.New(strings.Repeat("b", 51))
	RecordStoreQuery("SELECT", "test", time.Millisecond, err51)

	err100 := errors.New(strings.Repeat("c", 100))
	RecordStoreQuery("SELECT", "test", time.Millisecond, err100)

	errShort := errors.New("err")
	RecordStoreQuery("SELECT", "test", time.Millisecond, errShort)
}

// TestRecordUpsert tests upsert outcome metric recording
func TestRecordUpsert(t *testing.T) {
	tests := []struct {
		name     string
		source   string
		outcome  string
		duration time.Duration
	}{
		{"created from stream", "ais_stream", "created", 2 * time.Millisecond},
		{"changed from stream", "ais_stream", "changed", 3 * time.Millisecond},
		{"refreshed anchored vessel", "ais_stream", "refreshed", 1 * time.Millisecond},
		{"stale position rejected", "ais_stream", "noop", 500 * time.Microsecond},
		{"created from scan", "sat_scan", "created", 4 * time.Millisecond},
		{"malformed report rejected", "sat_scan", "rejected", 100 * time.Microsecond},
		{"commit error", "ais_stream", "error", 10 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			RecordUpsert(tt.source, tt.outcome, tt.duration)
		})
	}
}

// TestRecordFeedMessage tests feed message recording and timestamp refresh
func TestRecordFeedMessage(t *testing.T) {
	tests := []struct {
		name string
		feed string
		kind string
	}{
		{"stream position report", "ais_stream", "position"},
		{"stream static data", "ais_stream", "static"},
		{"scan sighting", "sat_scan", "sighting"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			RecordFeedMessage(tt.feed, tt.kind)
		})
	}
}

// TestRecordScan tests scan metric recording by result
func TestRecordScan(t *testing.T) {
	tests := []struct {
		name     string
		zone     string
		result   string
		duration time.Duration
		vessels  int
	}{
		{"successful scan", "gibraltar", "ok", 800 * time.Millisecond, 42},
		{"empty scan", "biscay", "ok", 500 * time.Millisecond, 0},
		{"timed out scan", "gibraltar", "timeout", 30 * time.Second, 0},
		{"rate limited scan", "suez", "rate_limited", 50 * time.Millisecond, 0},
		{"deferred by reserve floor", "suez", "deferred", 0, 0},
		{"provider error", "biscay", "error", 100 * time.Millisecond, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			RecordScan(tt.zone, tt.result, tt.duration, tt.vessels)
		})
	}
}

// TestSetFeedConnected tests the connection gauge flip
func TestSetFeedConnected(t *testing.T) {
	SetFeedConnected("ais_stream", true)
	if got := testutil.ToFloat64(FeedConnected.WithLabelValues("ais_stream")); got != 1.0 {
		t.Errorf("FeedConnected = %v, want 1.0", got)
	}

	SetFeedConnected("ais_stream", false)
	if got := testutil.ToFloat64(FeedConnected.WithLabelValues("ais_stream")); got != 0.0 {
		t.Errorf("FeedConnected = %v, want 0.0", got)
	}
}

// TestSetCreditLedger tests the credit gauges
func TestSetCreditLedger(t *testing.T) {
	SetCreditLedger(19000, 20000)

	if got := testutil.ToFloat64(CreditsUsed); got != 19000 {
		t.Errorf("CreditsUsed = %v, want 19000", got)
	}
	if got := testutil.ToFloat64(CreditsBudget); got != 20000 {
		t.Errorf("CreditsBudget = %v, want 20000", got)
	}

	SetCreditLedger(0, 20000)
	if got := testutil.ToFloat64(CreditsUsed); got != 0 {
		t.Errorf("CreditsUsed after reset = %v, want 0", got)
	}
}

// TestTrackActiveRequest tests active request tracking
func TestTrackActiveRequest(t *testing.T) {
	tests := []struct {
		name string
		inc  bool
	}{
		{
			name: "increment active request",
			inc:  true,
		},
		{
			name: "decrement active request",
			inc:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			TrackActiveRequest(tt.inc)
		})
	}
}

// TestTrackActiveRequest_RequestLifecycle simulates realistic request lifecycle
func TestTrackActiveRequest_RequestLifecycle(t *testing.T) {
	for i := 0; i < 10; i++ {
		TrackActiveRequest(true)
	}

	for i := 0; i < 5; i++ {
		TrackActiveRequest(false)
	}

	for i := 0; i < 3; i++ {
		TrackActiveRequest(true)
	}

	for i := 0; i < 8; i++ {
		TrackActiveRequest(false)
	}
}

// TestRecordViewerDropped tests viewer drop reason recording
func TestRecordViewerDropped(t *testing.T) {
	reasons := []string{"slow", "write_error", "read_error", "snapshot_failed"}

	for _, reason := range reasons {
		t.Run("reason_"+reason, func(t *testing.T) {
			RecordViewerDropped(reason)
		})
	}
}

// TestCircuitBreakerMetrics tests circuit breaker metric recording
func TestCircuitBreakerMetrics(t *testing.T) {
	cbName := "sat_scan_api"

	// State changes (0=closed, 1=half-open, 2=open)
	CircuitBreakerState.WithLabelValues(cbName).Set(0)
	CircuitBreakerState.WithLabelValues(cbName).Set(2)
	CircuitBreakerState.WithLabelValues(cbName).Set(1)

	CircuitBreakerRequests.WithLabelValues(cbName, "success").Inc()
	CircuitBreakerRequests.WithLabelValues(cbName, "failure").Inc()
	CircuitBreakerRequests.WithLabelValues(cbName, "rejected").Inc()

	CircuitBreakerTransitions.WithLabelValues(cbName, "closed", "open").Inc()
	CircuitBreakerTransitions.WithLabelValues(cbName, "open", "half-open").Inc()
	CircuitBreakerTransitions.WithLabelValues(cbName, "half-open", "closed").Inc()
}

// TestWebSocketMetrics tests hub fan-out metric recording
func TestWebSocketMetrics(t *testing.T) {
	WSViewers.Set(10)
	WSViewers.Inc()
	WSViewers.Dec()

	if got := getGaugeValue(WSViewers); got != 10 {
		t.Errorf("WSViewers = %v, want 10", got)
	}

	before := getCounterValue(WSDeltasSent)
	WSDeltasSent.Add(100)
	if got := getCounterValue(WSDeltasSent); got != before+100 {
		t.Errorf("WSDeltasSent = %v, want %v", got, before+100)
	}

	WSSnapshotsSent.Inc()
	WSSnapshotDuration.Observe(0.05)

	WSViewersDropped.WithLabelValues("slow").Inc()
	WSViewersDropped.WithLabelValues("write_error").Inc()
}

// TestNATSMetrics tests event stream metric recording
func TestNATSMetrics(t *testing.T) {
	before := getCounterValue(NATSMessagesPublished)
	for i := 0; i < 10; i++ {
		NATSMessagesPublished.Inc()
		NATSMessagesConsumed.Inc()
	}
	if got := getCounterValue(NATSMessagesPublished); got != before+10 {
		t.Errorf("NATSMessagesPublished = %v, want %v", got, before+10)
	}

	NATSMessagesParseFailed.Inc()
	NATSConsumerLag.Set(42)
	NATSConsumerLag.Set(0)

	if got := getGaugeValue(NATSConsumerLag); got != 0 {
		t.Errorf("NATSConsumerLag = %v, want 0", got)
	}
}

// TestAppMetrics tests application-level metrics
func TestAppMetrics(t *testing.T) {
	AppInfo.WithLabelValues("0.3.0", "go1.25.5").Set(1)

	AppUptime.Set(3600)
	AppUptime.Add(60)
}

// TestAPIRateLimitHits tests rate limit hit counter
func TestAPIRateLimitHits(t *testing.T) {
	endpoints := []string{
		"/api/v1/vessels",
		"/api/v1/vessels/123456789/route",
		"/api/v1/stats",
	}

	for _, endpoint := range endpoints {
		APIRateLimitHits.WithLabelValues(endpoint).Inc()
	}
}

// TestConcurrentMetricRecording tests thread safety of metric recording
func TestConcurrentMetricRecording(t *testing.T) {
	var wg sync.WaitGroup
	numGoroutines := 100
	operationsPerGoroutine := 50

	wg.Add(numGoroutines)
	for i := 0; i < numGoroutines; i++ {
		go func(id int) {
			defer wg.Done()
			for j := 0; j < operationsPerGoroutine; j++ {
				RecordStoreQuery("SELECT", "vessel_records", time.Duration(j)*time.Millisecond, nil)
			}
		}(i)
	}

	wg.Add(numGoroutines)
	for i := 0; i < numGoroutines; i++ {
		go func(id int) {
			defer wg.Done()
			for j := 0; j < operationsPerGoroutine; j++ {
				RecordUpsert("ais_stream", "changed", time.Duration(j)*time.Microsecond)
				RecordFeedMessage("ais_stream", "position")
			}
		}(i)
	}

	wg.Add(numGoroutines)
	for i := 0; i < numGoroutines; i++ {
		go func(id int) {
			defer wg.Done()
			for j := 0; j < operationsPerGoroutine; j++ {
				TrackActiveRequest(true)
				TrackActiveRequest(false)
			}
		}(i)
	}

	wg.Wait()
}

// TestMetricsRegistration verifies all metrics are properly registered
func TestMetricsRegistration(t *testing.T) {
	metrics := []prometheus.Collector{
		StoreQueryDuration,
		StoreQueryErrors,
		UpsertsTotal,
		UpsertDuration,
		PositionEventsInserted,
		PositionEventsPruned,
		VesselsTracked,
		FeedMessagesTotal,
		FeedMalformedTotal,
		FeedReconnectsTotal,
		FeedCredentialRotations,
		FeedConnected,
		FeedLastMessageTimestamp,
		ScansTotal,
		ScanDuration,
		ScanVesselsReturned,
		CreditsUsed,
		CreditsBudget,
		ScansDeferred,
		APIRequestsTotal,
		APIRequestDuration,
		APIActiveRequests,
		APIRateLimitHits,
		WSViewers,
		WSDeltasSent,
		WSSnapshotsSent,
		WSViewersDropped,
		WSSnapshotDuration,
		CircuitBreakerState,
		CircuitBreakerRequests,
		CircuitBreakerTransitions,
		NATSMessagesPublished,
		NATSMessagesConsumed,
		NATSMessagesParseFailed,
		NATSConsumerLag,
		AppInfo,
		AppUptime,
	}

	for _, m := range metrics {
		ch := make(chan *prometheus.Desc, 10)
		m.Describe(ch)
		close(ch)

		count := 0
		for range ch {
			count++
		}
		if count == 0 {
			t.Errorf("Metric has no descriptors")
		}
	}
}

// TestMetricGathering tests that metrics can be gathered using testutil
func TestMetricGathering(t *testing.T) {
	RecordStoreQuery("TEST", "test_table", time.Millisecond, nil)
	RecordAPIRequest("GET", "/test", "200", time.Millisecond)

	problems, err := testutil.GatherAndLint(prometheus.DefaultGatherer)
	if err != nil {
		t.Logf("Lint errors (may be expected): %v", err)
	}
	for _, p := range problems {
		t.Logf("Metric lint problem: %s", p.Text)
	}
}

// Benchmark tests for metrics performance

func BenchmarkRecordStoreQuery(b *testing.B) {
	for i := 0; i < b.N; i++ {
		RecordStoreQuery("SELECT", "vessel_records", 10*time.Millisecond, nil)
	}
}

func BenchmarkRecordUpsert(b *testing.B) {
	for i := 0; i < b.N; i++ {
		RecordUpsert("ais_stream", "changed", 2*time.Millisecond)
	}
}

func BenchmarkRecordAPIRequest(b *testing.B) {
	for i := 0; i < b.N; i++ {
		RecordAPIRequest("GET", "/api/v1/vessels", "200", 25*time.Millisecond)
	}
}

func BenchmarkTrackActiveRequest(b *testing.B) {
	for i := 0; i < b.N; i++ {
		TrackActiveRequest(true)
		TrackActiveRequest(false)
	}
}
