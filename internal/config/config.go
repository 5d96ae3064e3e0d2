// Pelorus - Vessel Tracking and Live Fleet Map
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pelorus

package config

import (
	"time"
)

// Config holds all application configuration, loaded by LoadWithKoanf
// in three layers: struct defaults, then an optional YAML file, then
// environment variables. Environment always wins.
//
// Slices (API keys, coverage boxes, scan zones, CORS origins) accept
// comma-separated values from the environment and YAML lists from the
// config file.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Database  DatabaseConfig  `koanf:"database"`
	WAL       WALConfig       `koanf:"wal"`
	NATS      NATSConfig      `koanf:"nats"`
	AIS       AISConfig       `koanf:"ais"`
	SatScan   SatScanConfig   `koanf:"satscan"`
	Credit    CreditConfig    `koanf:"credit"`
	Hub       HubConfig       `koanf:"hub"`
	Retention RetentionConfig `koanf:"retention"`
	Security  SecurityConfig  `koanf:"security"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Host string `koanf:"host"`
	Port int    `koanf:"port"`

	// ReadTimeout and WriteTimeout bound each request; WriteTimeout
	// must stay 0 to keep long-lived websocket viewers alive, the
	// hub's own write deadlines protect the server instead.
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// DatabaseConfig holds the DuckDB canonical store settings.
type DatabaseConfig struct {
	Path      string `koanf:"path"`
	MaxMemory string `koanf:"max_memory"`
	// Threads caps DuckDB parallelism; 0 means one per CPU.
	Threads                int  `koanf:"threads"`
	PreserveInsertionOrder bool `koanf:"preserve_insertion_order"`
}

// WALConfig holds the BadgerDB write-ahead log settings. SyncWrites
// defaults to true; turning it off trades ingest durability for
// throughput.
type WALConfig struct {
	Path            string        `koanf:"path"`
	SyncWrites      bool          `koanf:"sync_writes"`
	CompactInterval time.Duration `koanf:"compact_interval"`
	EntryTTL        time.Duration `koanf:"entry_ttl"`
}

// NATSConfig holds the embedded broker and JetStream settings.
type NATSConfig struct {
	Host string `koanf:"host"`
	// Port -1 asks the embedded server for a random free port.
	Port         int           `koanf:"port"`
	StoreDir     string        `koanf:"store_dir"`
	MaxMemory    int64         `koanf:"max_memory"`
	MaxStore     int64         `koanf:"max_store"`
	StreamMaxAge time.Duration `koanf:"stream_max_age"`
	DurableName  string        `koanf:"durable_name"`
}

// AISConfig holds the streaming (coastal websocket) feed settings.
// Boxes use the "minLat:minLon:maxLat:maxLon" form.
type AISConfig struct {
	Enabled           bool          `koanf:"enabled"`
	URL               string        `koanf:"url"`
	APIKeys           []string      `koanf:"api_keys"`
	Boxes             []string      `koanf:"boxes"`
	MaxSessionsPerKey int           `koanf:"max_sessions_per_key"`
	DialTimeout       time.Duration `koanf:"dial_timeout"`
	PingInterval      time.Duration `koanf:"ping_interval"`
	ReadTimeout       time.Duration `koanf:"read_timeout"`
}

// SatScanConfig holds the polling (satellite zone scan) feed settings.
// Zones use the "name:lat:lon:radius_km" form.
type SatScanConfig struct {
	Enabled        bool          `koanf:"enabled"`
	URL            string        `koanf:"url"`
	APIKey         string        `koanf:"api_key"`
	Zones          []string      `koanf:"zones"`
	ScanInterval   time.Duration `koanf:"scan_interval"`
	RequestTimeout time.Duration `koanf:"request_timeout"`
	UsageInterval  time.Duration `koanf:"usage_interval"`
}

// CreditConfig holds the polling feed's monthly request allowance.
type CreditConfig struct {
	MonthlyBudget int64 `koanf:"monthly_budget"`
	// ReserveFloor is the budget fraction held back from automated
	// scans, in [0, 1). Zero applies the 5% default.
	ReserveFloor float64 `koanf:"reserve_floor"`
}

// HubConfig holds the viewer broadcast hub settings.
type HubConfig struct {
	QueueSize       int           `koanf:"queue_size"`
	BroadcastBuffer int           `koanf:"broadcast_buffer"`
	SnapshotTimeout time.Duration `koanf:"snapshot_timeout"`
}

// RetentionConfig holds data lifecycle settings. Positions bounds the
// PositionEvent window; VesselRecords are never deleted.
type RetentionConfig struct {
	Positions     time.Duration `koanf:"positions"`
	PruneInterval time.Duration `koanf:"prune_interval"`
	// ActiveWindow is how recent a position fix must be for a vessel
	// to count as active in stats.
	ActiveWindow time.Duration `koanf:"active_window"`
}

// SecurityConfig holds authentication and API protection settings.
//
// AuthMode selects none, basic, or jwt. The admin credential pair
// drives both basic and jwt modes; jwt additionally needs JWTSecret
// (32 bytes minimum).
type SecurityConfig struct {
	AuthMode      string        `koanf:"auth_mode"`
	AdminUsername string        `koanf:"admin_username"`
	AdminPassword string        `koanf:"admin_password"`
	JWTSecret     string        `koanf:"jwt_secret"`
	TokenTTL      time.Duration `koanf:"token_ttl"`

	// LoginAttempts per LoginWindow per visitor IP before credential
	// checks start returning 429.
	LoginAttempts int           `koanf:"login_attempts"`
	LoginWindow   time.Duration `koanf:"login_window"`

	CORSOrigins []string `koanf:"cors_origins"`

	RateLimitRequests int           `koanf:"rate_limit_requests"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
}

// LoggingConfig holds the zerolog settings.
type LoggingConfig struct {
	// Level is trace, debug, info, warn, error, or fatal.
	Level string `koanf:"level"`
	// Format is json or console.
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}
