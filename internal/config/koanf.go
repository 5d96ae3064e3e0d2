// Pelorus - Vessel Tracking and Live Fleet Map
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pelorus

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists where config files are searched, in order.
// The first file found wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/pelorus/config.yaml",
	"/etc/pelorus/config.yml",
}

// ConfigPathEnvVar overrides the config file search entirely.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns the built-in defaults, applied before the
// config file and environment layers.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            4326,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    0, // websocket viewers are long-lived
			IdleTimeout:     120 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Database: DatabaseConfig{
			Path:      "/data/pelorus.db",
			MaxMemory: "512MB",
			Threads:   0, // one per CPU
		},
		WAL: WALConfig{
			Path:            "/data/wal",
			SyncWrites:      true,
			CompactInterval: time.Hour,
			EntryTTL:        24 * time.Hour,
		},
		NATS: NATSConfig{
			Host:         "127.0.0.1",
			Port:         4222,
			StoreDir:     "/data/nats/jetstream",
			MaxMemory:    512 << 20, // 512MB
			MaxStore:     4 << 30,   // 4GB
			StreamMaxAge: 24 * time.Hour,
			DurableName:  "pelorus-viewers",
		},
		AIS: AISConfig{
			Enabled:           false,
			MaxSessionsPerKey: 1,
			DialTimeout:       10 * time.Second,
			PingInterval:      30 * time.Second,
			ReadTimeout:       60 * time.Second,
		},
		SatScan: SatScanConfig{
			Enabled:        false,
			ScanInterval:   5 * time.Minute,
			RequestTimeout: 15 * time.Second,
			UsageInterval:  15 * time.Minute,
		},
		Credit: CreditConfig{
			MonthlyBudget: 20000,
			ReserveFloor:  0.05,
		},
		Hub: HubConfig{
			QueueSize:       64,
			BroadcastBuffer: 256,
			SnapshotTimeout: 5 * time.Second,
		},
		Retention: RetentionConfig{
			Positions:     72 * time.Hour,
			PruneInterval: time.Hour,
			ActiveWindow:  time.Hour,
		},
		Security: SecurityConfig{
			AuthMode:          "none",
			TokenTTL:          24 * time.Hour,
			LoginAttempts:     10,
			LoginWindow:       time.Minute,
			CORSOrigins:       []string{},
			RateLimitRequests: 100,
			RateLimitWindow:   time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// LoadWithKoanf loads configuration with layered sources:
//  1. Built-in defaults
//  2. Optional YAML config file
//  3. Environment variables (highest priority)
//
// The result is validated before being returned.
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// AIS_URL -> ais.url, SATSCAN_API_KEY -> satscan.api_key, and so
	// on; unmapped variables are ignored rather than guessed at.
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile returns the first config file that exists, or "".
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// sliceConfigPaths are the fields that accept comma-separated strings
// from the environment.
var sliceConfigPaths = []string{
	"ais.api_keys",
	"ais.boxes",
	"satscan.zones",
	"security.cors_origins",
}

// processSliceFields splits comma-separated env values into slices.
// Values already shaped as lists (from the YAML layer) pass through.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		val := k.Get(path)
		if val == nil {
			continue
		}
		if _, ok := val.([]interface{}); ok {
			continue
		}
		if _, ok := val.([]string); ok {
			continue
		}

		strVal, ok := val.(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) > 0 {
			if err := k.Set(path, trimmed); err != nil {
				return fmt.Errorf("failed to set %s: %w", path, err)
			}
		}
	}
	return nil
}

// envTransformFunc maps environment variable names to config paths.
// Unmapped names return "" and are skipped, so random environment
// variables never pollute the config.
func envTransformFunc(key string) string {
	key = strings.ToLower(key)

	envMappings := map[string]string{
		// Server
		"http_host":           "server.host",
		"http_port":           "server.port",
		"http_read_timeout":   "server.read_timeout",
		"http_write_timeout":  "server.write_timeout",
		"http_idle_timeout":   "server.idle_timeout",
		"http_shutdown_grace": "server.shutdown_timeout",

		// Database
		"duckdb_path":       "database.path",
		"duckdb_max_memory": "database.max_memory",
		"duckdb_threads":    "database.threads",

		// WAL
		"wal_path":             "wal.path",
		"wal_sync_writes":      "wal.sync_writes",
		"wal_compact_interval": "wal.compact_interval",
		"wal_entry_ttl":        "wal.entry_ttl",

		// NATS
		"nats_host":           "nats.host",
		"nats_port":           "nats.port",
		"nats_store_dir":      "nats.store_dir",
		"nats_max_memory":     "nats.max_memory",
		"nats_max_store":      "nats.max_store",
		"nats_stream_max_age": "nats.stream_max_age",
		"nats_durable_name":   "nats.durable_name",

		// AIS streaming feed
		"ais_enabled":              "ais.enabled",
		"ais_url":                  "ais.url",
		"ais_api_keys":             "ais.api_keys",
		"ais_boxes":                "ais.boxes",
		"ais_max_sessions_per_key": "ais.max_sessions_per_key",
		"ais_dial_timeout":         "ais.dial_timeout",
		"ais_ping_interval":        "ais.ping_interval",
		"ais_read_timeout":         "ais.read_timeout",

		// SatScan polling feed
		"satscan_enabled":         "satscan.enabled",
		"satscan_url":             "satscan.url",
		"satscan_api_key":         "satscan.api_key",
		"satscan_zones":           "satscan.zones",
		"satscan_scan_interval":   "satscan.scan_interval",
		"satscan_request_timeout": "satscan.request_timeout",
		"satscan_usage_interval":  "satscan.usage_interval",

		// Credit ledger
		"credit_monthly_budget": "credit.monthly_budget",
		"credit_reserve_floor":  "credit.reserve_floor",

		// Broadcast hub
		"hub_queue_size":       "hub.queue_size",
		"hub_broadcast_buffer": "hub.broadcast_buffer",
		"hub_snapshot_timeout": "hub.snapshot_timeout",

		// Retention
		"position_retention":  "retention.positions",
		"prune_interval":      "retention.prune_interval",
		"stats_active_window": "retention.active_window",

		// Security
		"auth_mode":           "security.auth_mode",
		"admin_username":      "security.admin_username",
		"admin_password":      "security.admin_password",
		"jwt_secret":          "security.jwt_secret",
		"token_ttl":           "security.token_ttl",
		"login_attempts":      "security.login_attempts",
		"login_window":        "security.login_window",
		"cors_origins":        "security.cors_origins",
		"rate_limit_requests": "security.rate_limit_requests",
		"rate_limit_window":   "security.rate_limit_window",
		"disable_rate_limit":  "security.rate_limit_disabled",

		// Logging
		"log_level":  "logging.level",
		"log_format": "logging.format",
		"log_caller": "logging.caller",
	}

	if mapped, ok := envMappings[key]; ok {
		return mapped
	}

	return ""
}
