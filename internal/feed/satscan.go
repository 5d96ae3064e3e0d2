// Pelorus - Vessel Tracking and Live Fleet Map
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pelorus

package feed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/pelorus/internal/logging"
	"github.com/tomtom215/pelorus/internal/metrics"
	"github.com/tomtom215/pelorus/internal/models"
)

// breakerName labels the scan breaker in metrics and logs.
const breakerName = "satscan-api"

// maxErrorBodySize caps how much of an error response body is read for
// diagnostics.
const maxErrorBodySize = 64 * 1024

// errQuota marks an HTTP 402/429 from the provider: the monthly credit
// allowance or the rate limit is spent. The poller backs off the whole
// cycle instead of retrying the zone.
var errQuota = errors.New("scan quota rejected")

// PollerConfig configures the SatScan zone-scan adapter.
type PollerConfig struct {
	// URL is the provider API base, e.g. https://api.satscan.example.
	URL string

	// APIKey authenticates scan and usage requests.
	APIKey string

	// Zones are the scan targets, one metered request each per cycle.
	Zones []models.Zone

	// ScanInterval is the base cycle cadence; the credit ledger
	// stretches it as consumption approaches budget.
	ScanInterval time.Duration

	// RequestTimeout bounds each zone request. A timeout counts as a
	// transient failure and consumes no credit locally.
	RequestTimeout time.Duration

	// UsageInterval is the slow tick for reconciling the local ledger
	// against the provider's usage report.
	UsageInterval time.Duration

	// QuotaBackoff stretches the cycle further after a 402/429.
	QuotaBackoff Backoff
}

// DefaultPollerConfig returns the standard poller settings.
func DefaultPollerConfig(endpoint, apiKey string, zones []models.Zone) PollerConfig {
	return PollerConfig{
		URL:            endpoint,
		APIKey:         apiKey,
		Zones:          zones,
		ScanInterval:   5 * time.Minute,
		RequestTimeout: 15 * time.Second,
		UsageInterval:  15 * time.Minute,
		QuotaBackoff:   DefaultBackoff(),
	}
}

// Validate checks the configuration.
func (c *PollerConfig) Validate() error {
	if c.URL == "" {
		return errors.New("satscan: url is required")
	}
	if c.APIKey == "" {
		return errors.New("satscan: api key is required")
	}
	if len(c.Zones) == 0 {
		return errors.New("satscan: at least one zone is required")
	}
	if c.ScanInterval <= 0 {
		return errors.New("satscan: scan interval must be positive")
	}
	if c.RequestTimeout <= 0 {
		return errors.New("satscan: request timeout must be positive")
	}
	if c.UsageInterval <= 0 {
		return errors.New("satscan: usage interval must be positive")
	}
	return nil
}

// scanResponse is one zone scan result from the provider.
type scanResponse struct {
	Zone      string       `json:"zone"`
	ScannedAt time.Time    `json:"scanned_at"`
	Vessels   []scanVessel `json:"vessels"`
}

// scanVessel is one sighting within a scanned zone. Satellite passes
// deliver both static registry data and the observed position, so the
// fields cover both groups.
type scanVessel struct {
	MMSI        int64      `json:"mmsi"`
	Name        *string    `json:"name,omitempty"`
	CallSign    *string    `json:"call_sign,omitempty"`
	ShipType    *int       `json:"ship_type,omitempty"`
	IMONumber   *int64     `json:"imo_number,omitempty"`
	LengthM     *float64   `json:"length_m,omitempty"`
	BeamM       *float64   `json:"beam_m,omitempty"`
	Destination *string    `json:"destination,omitempty"`
	Latitude    *float64   `json:"latitude,omitempty"`
	Longitude   *float64   `json:"longitude,omitempty"`
	Sog         *float64   `json:"sog,omitempty"`
	Cog         *float64   `json:"cog,omitempty"`
	NavStatus   *int       `json:"nav_status,omitempty"`
	ObservedAt  *time.Time `json:"observed_at,omitempty"`
}

// usageResponse is the provider's cumulative consumption report for the
// current billing window.
type usageResponse struct {
	WindowStart time.Time `json:"window_start"`
	Used        int64     `json:"used"`
	Budget      int64     `json:"budget"`
}

// SatScanPoller is the poll-based offshore feed adapter. Each cycle it
// issues one metered scan request per configured zone, gated by the
// credit ledger, and upserts every returned sighting. The HTTP path
// runs through a circuit breaker so a dead upstream degrades to fast
// no-ops.
type SatScanPoller struct {
	cfg    PollerConfig
	store  Upserter
	ledger CreditLedger
	client *http.Client
	cb     *gobreaker.CircuitBreaker[any]

	quota Backoff
}

// NewSatScanPoller returns a ready poller.
func NewSatScanPoller(cfg PollerConfig, store Upserter, ledger CreditLedger) (*SatScanPoller, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if store == nil {
		return nil, errors.New("satscan: store is required")
	}
	if ledger == nil {
		return nil, errors.New("satscan: credit ledger is required")
	}

	return &SatScanPoller{
		cfg:    cfg,
		store:  store,
		ledger: ledger,
		client: &http.Client{Timeout: cfg.RequestTimeout},
		cb:     newScanBreaker(),
		quota:  cfg.QuotaBackoff,
	}, nil
}

// Serve runs the scan and usage-reconcile loops until the context is
// canceled. Implements suture.Service.
func (p *SatScanPoller) Serve(ctx context.Context) error {
	logging.Info().
		Int("zones", len(p.cfg.Zones)).
		Dur("interval", p.cfg.ScanInterval).
		Msg("SatScan poller starting")
	metrics.SetFeedConnected(FeedSatScan, true)
	defer metrics.SetFeedConnected(FeedSatScan, false)

	// Sync the ledger before the first scans so a restart that lost
	// recent consumption cannot overspend.
	p.reconcileUsage(ctx)

	timer := time.NewTimer(0)
	defer timer.Stop()
	usage := time.NewTicker(p.cfg.UsageInterval)
	defer usage.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			timer.Reset(p.scanCycle(ctx))
		case <-usage.C:
			p.reconcileUsage(ctx)
		}
	}
}

func (p *SatScanPoller) String() string { return "satscan-poller" }

// Degraded reports whether the breaker has opened on the scan path.
func (p *SatScanPoller) Degraded() bool {
	return p.cb.State() == gobreaker.StateOpen
}

// scanCycle runs one pass over the configured zones and returns the
// delay until the next cycle. Credit denials and an open breaker abort
// the remainder of the pass; a provider quota rejection additionally
// stretches the returned delay.
func (p *SatScanPoller) scanCycle(ctx context.Context) time.Duration {
	for _, zone := range p.cfg.Zones {
		if ctx.Err() != nil {
			return p.nextInterval()
		}

		if err := p.ledger.Allow(ctx, 1); err != nil {
			metrics.RecordScan(zone.Name, "deferred", 0, 0)
			logging.Warn().Err(err).Str("zone", zone.Name).Msg("Zone scan deferred, credit budget exhausted")
			return p.nextInterval()
		}

		start := time.Now()
		resp, err := p.scanZone(ctx, zone)
		elapsed := time.Since(start)

		switch {
		case err == nil:
			if cerr := p.ledger.Consume(ctx, 1); cerr != nil {
				logging.Warn().Err(cerr).Str("zone", zone.Name).Msg("Credit consume failed")
			}
			accepted := p.ingest(ctx, zone, resp)
			metrics.RecordScan(zone.Name, "ok", elapsed, accepted)
			logging.Debug().
				Str("zone", zone.Name).
				Int("vessels", len(resp.Vessels)).
				Int("accepted", accepted).
				Dur("elapsed", elapsed).
				Msg("Zone scan complete")

		case errors.Is(err, errQuota):
			metrics.RecordScan(zone.Name, "rate_limited", elapsed, 0)
			delay := p.quota.Step()
			logging.Warn().
				Err(err).
				Str("zone", zone.Name).
				Dur("extra_backoff", delay).
				Msg("Provider rejected scan, backing off the cycle")
			return p.nextInterval() + delay

		case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
			metrics.RecordScan(zone.Name, "deferred", 0, 0)
			logging.Debug().Str("zone", zone.Name).Msg("Scan breaker open, skipping cycle")
			return p.nextInterval()

		case isTimeout(err):
			metrics.RecordScan(zone.Name, "timeout", elapsed, 0)
			logging.Warn().Err(err).Str("zone", zone.Name).Msg("Zone scan timed out")

		default:
			metrics.RecordScan(zone.Name, "error", elapsed, 0)
			logging.Warn().Err(err).Str("zone", zone.Name).Msg("Zone scan failed")
		}
	}

	p.quota.Reset()
	return p.nextInterval()
}

// nextInterval is the base cadence stretched by the ledger's current
// consumption.
func (p *SatScanPoller) nextInterval() time.Duration {
	return p.ledger.ScanInterval(p.cfg.ScanInterval)
}

// ingest upserts every well-formed sighting from a scan response and
// returns the accepted count.
func (p *SatScanPoller) ingest(ctx context.Context, zone models.Zone, resp *scanResponse) int {
	fallback := resp.ScannedAt
	if fallback.IsZero() {
		fallback = time.Now().UTC()
	}

	accepted := 0
	for i := range resp.Vessels {
		rep, err := resp.Vessels[i].report(fallback)
		if err != nil {
			metrics.RecordFeedMalformed(FeedSatScan)
			logging.Debug().Err(err).Str("zone", zone.Name).Msg("Dropped malformed scan vessel")
			continue
		}

		uctx, cancel := context.WithTimeout(ctx, upsertTimeout)
		_, uerr := p.store.Upsert(uctx, *rep)
		cancel()
		if uerr != nil {
			logging.Error().Err(uerr).Int64("mmsi", rep.MMSI).Str("zone", zone.Name).Msg("Scan upsert failed")
			continue
		}

		kind := "static"
		if rep.HasPositionFix() {
			kind = "position"
		}
		metrics.RecordFeedMessage(FeedSatScan, kind)
		accepted++
	}
	return accepted
}

// report normalizes one scan sighting into the canonical form.
func (v *scanVessel) report(fallback time.Time) (*models.Report, error) {
	if v.MMSI <= 0 || v.MMSI > maxMMSI {
		return nil, fmt.Errorf("scan vessel mmsi %d out of range", v.MMSI)
	}

	at := fallback
	if v.ObservedAt != nil && !v.ObservedAt.IsZero() {
		at = *v.ObservedAt
	}

	rep := &models.Report{
		MMSI:        v.MMSI,
		Source:      models.SourceSatScan,
		EventAt:     at.UTC(),
		Name:        cleanString(v.Name),
		CallSign:    cleanString(v.CallSign),
		ShipType:    sanitizeShipType(v.ShipType),
		IMO:         sanitizeIMO(v.IMONumber),
		LengthM:     sanitizeMeters(v.LengthM),
		BeamM:       sanitizeMeters(v.BeamM),
		Destination: cleanString(v.Destination),
		SogKn:       sanitizeSog(v.Sog),
		CogDeg:      sanitizeCog(v.Cog),
		NavStatus:   sanitizeNavStatus(v.NavStatus),
	}

	// A position needs both coordinates in range; otherwise the
	// sighting still contributes its static fields.
	if v.Latitude != nil && v.Longitude != nil &&
		*v.Latitude >= -90 && *v.Latitude <= 90 &&
		*v.Longitude >= -180 && *v.Longitude <= 180 {
		rep.Lat, rep.Lon = v.Latitude, v.Longitude
	}
	return rep, nil
}

// scanZone requests one zone through the breaker.
func (p *SatScanPoller) scanZone(ctx context.Context, zone models.Zone) (*scanResponse, error) {
	return castResult[scanResponse](p.execute(func() (any, error) {
		return p.fetchScan(ctx, zone)
	}))
}

// reconcileUsage adopts the provider's cumulative consumption figure,
// correcting local drift from timeouts and restarts.
func (p *SatScanPoller) reconcileUsage(ctx context.Context) {
	usage, err := castResult[usageResponse](p.execute(func() (any, error) {
		return p.fetchUsage(ctx)
	}))
	if err != nil {
		logging.Warn().Err(err).Msg("Usage report fetch failed")
		return
	}
	if err := p.ledger.Reconcile(ctx, usage.Used); err != nil {
		logging.Warn().Err(err).Int64("reported_used", usage.Used).Msg("Credit reconcile failed")
		return
	}
	logging.Debug().
		Int64("reported_used", usage.Used).
		Int64("reported_budget", usage.Budget).
		Msg("Credit ledger reconciled against provider usage")
}

// fetchScan performs the raw zone request.
func (p *SatScanPoller) fetchScan(ctx context.Context, zone models.Zone) (*scanResponse, error) {
	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(zone.Lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(zone.Lon, 'f', -1, 64))
	q.Set("radius_km", strconv.FormatFloat(zone.RadiusKm, 'f', -1, 64))
	reqURL := fmt.Sprintf("%s/v1/scan?%s", strings.TrimRight(p.cfg.URL, "/"), q.Encode())

	resp, err := p.get(ctx, reqURL)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", zone.Name, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusPaymentRequired, http.StatusTooManyRequests:
		return nil, fmt.Errorf("%w: HTTP %d", errQuota, resp.StatusCode)
	default:
		body := readBodyForError(resp.Body)
		return nil, fmt.Errorf("scan %s: HTTP %d: %s", zone.Name, resp.StatusCode, body)
	}

	var sr scanResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("decode scan %s: %w", zone.Name, err)
	}
	return &sr, nil
}

// fetchUsage performs the raw usage-report request.
func (p *SatScanPoller) fetchUsage(ctx context.Context) (*usageResponse, error) {
	reqURL := strings.TrimRight(p.cfg.URL, "/") + "/v1/account/usage"

	resp, err := p.get(ctx, reqURL)
	if err != nil {
		return nil, fmt.Errorf("usage report: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body := readBodyForError(resp.Body)
		return nil, fmt.Errorf("usage report: HTTP %d: %s", resp.StatusCode, body)
	}

	var ur usageResponse
	if err := json.NewDecoder(resp.Body).Decode(&ur); err != nil {
		return nil, fmt.Errorf("decode usage report: %w", err)
	}
	return &ur, nil
}

func (p *SatScanPoller) get(ctx context.Context, reqURL string) (*http.Response, error) {
	rctx, cancel := context.WithTimeout(ctx, p.cfg.RequestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(rctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)
	req.Header.Set("Accept", "application/json")

	return p.client.Do(req)
}

// execute wraps a provider call with breaker protection and mirrors the
// outcome into the breaker metrics.
func (p *SatScanPoller) execute(fn func() (any, error)) (any, error) {
	out, err := p.cb.Execute(fn)
	switch {
	case err == nil:
		metrics.CircuitBreakerRequests.WithLabelValues(breakerName, "success").Inc()
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.CircuitBreakerRequests.WithLabelValues(breakerName, "rejected").Inc()
	default:
		metrics.CircuitBreakerRequests.WithLabelValues(breakerName, "failure").Inc()
	}
	return out, err
}

// castResult type-asserts a breaker result with error checking.
func castResult[T any](result any, err error) (*T, error) {
	if err != nil {
		return nil, err
	}
	typed, ok := result.(*T)
	if !ok {
		return nil, fmt.Errorf("circuit breaker: unexpected result type %T", result)
	}
	return typed, nil
}

// newScanBreaker opens after a 60% failure rate across at least 10
// requests, waits 2 minutes before probing again, and allows 3 requests
// in half-open state.
func newScanBreaker() *gobreaker.CircuitBreaker[any] {
	metrics.CircuitBreakerState.WithLabelValues(breakerName).Set(0)

	return gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().
				Str("breaker", name).
				Str("from", breakerStateName(from)).
				Str("to", breakerStateName(to)).
				Msg("Scan circuit breaker state change")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(breakerStateValue(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, breakerStateName(from), breakerStateName(to)).Inc()
		},
	})
}

func breakerStateName(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

func breakerStateValue(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

// isTimeout reports whether err is a per-request deadline or network
// timeout, which consumes no credit locally.
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// readBodyForError reads at most maxErrorBodySize of a response body
// for diagnostics.
func readBodyForError(r io.Reader) []byte {
	body, err := io.ReadAll(io.LimitReader(r, maxErrorBodySize))
	if err != nil {
		return []byte("(failed to read response body)")
	}
	if len(body) == maxErrorBodySize {
		return append(body, []byte("... (truncated)")...)
	}
	return body
}
