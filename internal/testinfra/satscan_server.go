// Pelorus - Vessel Tracking and Live Fleet Map
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pelorus

//go:build integration

package testinfra

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
)

// ScanVessel is one fixture sighting returned from zone scans. Every
// fixture carries a position; other zero-valued fields are omitted from
// the wire the way the real provider omits unknowns.
type ScanVessel struct {
	MMSI        int64
	Name        string
	CallSign    string
	ShipType    int
	IMONumber   int64
	LengthM     float64
	BeamM       float64
	Destination string
	Lat         float64
	Lon         float64
	SogKn       float64
	CogDeg      float64
	ObservedAt  time.Time
}

// ScanCapture is one recorded zone-scan request.
type ScanCapture struct {
	Lat      float64
	Lon      float64
	RadiusKm float64
	Bearer   string
}

type scanVesselWire struct {
	MMSI        int64      `json:"mmsi"`
	Name        string     `json:"name,omitempty"`
	CallSign    string     `json:"call_sign,omitempty"`
	ShipType    *int       `json:"ship_type,omitempty"`
	IMONumber   *int64     `json:"imo_number,omitempty"`
	LengthM     *float64   `json:"length_m,omitempty"`
	BeamM       *float64   `json:"beam_m,omitempty"`
	Destination string     `json:"destination,omitempty"`
	Latitude    float64    `json:"latitude"`
	Longitude   float64    `json:"longitude"`
	Sog         *float64   `json:"sog,omitempty"`
	Cog         *float64   `json:"cog,omitempty"`
	ObservedAt  *time.Time `json:"observed_at,omitempty"`
}

type scanResponseWire struct {
	Zone      string           `json:"zone"`
	ScannedAt time.Time        `json:"scanned_at"`
	Vessels   []scanVesselWire `json:"vessels"`
}

type usageWire struct {
	WindowStart time.Time `json:"window_start"`
	Used        int64     `json:"used"`
	Budget      int64     `json:"budget"`
}

// FakeSatScanServer simulates the SatScan provider API: authenticated
// zone scans against configurable vessel fixtures, quota rejections and
// the account usage report.
type FakeSatScanServer struct {
	Server *httptest.Server

	mu          sync.Mutex
	apiKey      string
	scanStatus  int
	usageStatus int
	vessels     []ScanVessel
	scans       []ScanCapture
	usageHits   int
	used        int64
	budget      int64
}

// NewFakeSatScanServer starts a fake scan provider accepting any bearer
// credential until RequireKey narrows it. Callers close it with
// defer srv.Close().
func NewFakeSatScanServer(t *testing.T) *FakeSatScanServer {
	t.Helper()

	f := &FakeSatScanServer{budget: 1000}
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/scan", f.handleScan)
	mux.HandleFunc("/v1/account/usage", f.handleUsage)
	f.Server = httptest.NewServer(mux)
	return f
}

// URL returns the API base URL.
func (f *FakeSatScanServer) URL() string { return f.Server.URL }

// Close shuts the server down.
func (f *FakeSatScanServer) Close() { f.Server.Close() }

// RequireKey makes both endpoints reject bearer credentials other than
// key with 401.
func (f *FakeSatScanServer) RequireKey(key string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.apiKey = key
}

// AddVessel appends one fixture sighting to every subsequent scan.
func (f *FakeSatScanServer) AddVessel(v ScanVessel) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.vessels = append(f.vessels, v)
}

// SetVessels replaces the fixture fleet.
func (f *FakeSatScanServer) SetVessels(vessels ...ScanVessel) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.vessels = vessels
}

// FailScans makes scan requests answer with the given HTTP status. 402
// and 429 exercise the client's quota backoff; zero restores scans.
func (f *FakeSatScanServer) FailScans(status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scanStatus = status
}

// FailUsage makes usage requests answer with the given HTTP status.
// Zero restores them.
func (f *FakeSatScanServer) FailUsage(status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.usageStatus = status
}

// SetUsage sets the consumption the usage report claims.
func (f *FakeSatScanServer) SetUsage(used, budget int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.used, f.budget = used, budget
}

// Scans returns every captured zone-scan request in arrival order.
func (f *FakeSatScanServer) Scans() []ScanCapture {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]ScanCapture, len(f.scans))
	copy(out, f.scans)
	return out
}

// ClearScans drops the captured requests.
func (f *FakeSatScanServer) ClearScans() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scans = nil
}

// UsageRequests returns how many usage requests have arrived.
func (f *FakeSatScanServer) UsageRequests() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.usageHits
}

// WaitForScans blocks until at least n scan requests have arrived or
// the timeout passes.
func (f *FakeSatScanServer) WaitForScans(n int, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		f.mu.Lock()
		count := len(f.scans)
		f.mu.Unlock()
		if count >= n {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return false
}

func (f *FakeSatScanServer) handleScan(w http.ResponseWriter, r *http.Request) {
	bearer, ok := f.authorize(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	lat, latErr := strconv.ParseFloat(q.Get("lat"), 64)
	lon, lonErr := strconv.ParseFloat(q.Get("lon"), 64)
	radius, radErr := strconv.ParseFloat(q.Get("radius_km"), 64)
	if latErr != nil || lonErr != nil || radErr != nil {
		writeProviderError(w, http.StatusBadRequest, "lat, lon and radius_km are required")
		return
	}

	f.mu.Lock()
	f.scans = append(f.scans, ScanCapture{Lat: lat, Lon: lon, RadiusKm: radius, Bearer: bearer})
	status := f.scanStatus
	fleet := make([]ScanVessel, len(f.vessels))
	copy(fleet, f.vessels)
	f.mu.Unlock()

	if status != 0 {
		writeProviderError(w, status, http.StatusText(status))
		return
	}

	resp := scanResponseWire{
		Zone:      fmt.Sprintf("%.2f,%.2f", lat, lon),
		ScannedAt: time.Now().UTC(),
		Vessels:   make([]scanVesselWire, 0, len(fleet)),
	}
	for _, v := range fleet {
		resp.Vessels = append(resp.Vessels, v.wire())
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func (f *FakeSatScanServer) handleUsage(w http.ResponseWriter, r *http.Request) {
	if _, ok := f.authorize(w, r); !ok {
		return
	}

	f.mu.Lock()
	f.usageHits++
	status := f.usageStatus
	report := usageWire{
		WindowStart: monthStart(time.Now().UTC()),
		Used:        f.used,
		Budget:      f.budget,
	}
	f.mu.Unlock()

	if status != 0 {
		writeProviderError(w, status, http.StatusText(status))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(report)
}

func (f *FakeSatScanServer) authorize(w http.ResponseWriter, r *http.Request) (string, bool) {
	bearer := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")

	f.mu.Lock()
	want := f.apiKey
	f.mu.Unlock()

	if want != "" && bearer != want {
		writeProviderError(w, http.StatusUnauthorized, "invalid API key")
		return "", false
	}
	return bearer, true
}

func (v ScanVessel) wire() scanVesselWire {
	out := scanVesselWire{
		MMSI:        v.MMSI,
		Name:        v.Name,
		CallSign:    v.CallSign,
		Destination: v.Destination,
		Latitude:    v.Lat,
		Longitude:   v.Lon,
	}
	if v.ShipType != 0 {
		st := v.ShipType
		out.ShipType = &st
	}
	if v.IMONumber != 0 {
		imo := v.IMONumber
		out.IMONumber = &imo
	}
	if v.LengthM != 0 {
		l := v.LengthM
		out.LengthM = &l
	}
	if v.BeamM != 0 {
		b := v.BeamM
		out.BeamM = &b
	}
	if v.SogKn != 0 {
		s := v.SogKn
		out.Sog = &s
	}
	if v.CogDeg != 0 {
		c := v.CogDeg
		out.Cog = &c
	}
	if !v.ObservedAt.IsZero() {
		at := v.ObservedAt.UTC()
		out.ObservedAt = &at
	}
	return out
}

func writeProviderError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func monthStart(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
}
