// Pelorus - Vessel Tracking and Live Fleet Map
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pelorus

package models

import (
	"time"
)

// StoreStats represents overall store statistics
type StoreStats struct {
	Vessels           int64            `json:"vessels"`
	PositionEvents    int64            `json:"position_events"`
	ActiveVessels     int64            `json:"active_vessels"` // position fix within the active window
	Coverage          []SourceCoverage `json:"coverage"`
	OldestPosition    *time.Time       `json:"oldest_position,omitempty"`
	NewestPosition    *time.Time       `json:"newest_position,omitempty"`
	DatabaseSizeBytes int64            `json:"database_size_bytes"`
}

// SourceCoverage reports how many vessels a feed has ever contributed to,
// derived from VesselRecord.SourceMask.
type SourceCoverage struct {
	Source  string `json:"source"`
	Vessels int64  `json:"vessels"`
}

// CreditStatus is the polling feed's ledger position within the current
// monthly window.
type CreditStatus struct {
	WindowStart time.Time `json:"window_start"`
	Used        int64     `json:"used"`
	Budget      int64     `json:"budget"`
	Remaining   int64     `json:"remaining"`
	Throttled   bool      `json:"throttled"` // scans currently deferred by the reserve floor
}

// HealthStatus represents the health check response
type HealthStatus struct {
	Status            string  `json:"status"`
	Version           string  `json:"version"`
	DatabaseConnected bool    `json:"database_connected"`
	EventBusConnected bool    `json:"event_bus_connected"`
	Viewers           int     `json:"viewers"`
	Uptime            float64 `json:"uptime_seconds"`
}
