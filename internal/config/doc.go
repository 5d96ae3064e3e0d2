// Pelorus - Vessel Tracking and Live Fleet Map
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pelorus

/*
Package config provides centralized configuration management for Pelorus.

Configuration is loaded by LoadWithKoanf in three layers, each
overriding the previous: built-in struct defaults, an optional YAML
config file, then environment variables. The result is validated before
any component starts.

# Configuration File

The config file is searched at config.yaml, config.yml,
/etc/pelorus/config.yaml and /etc/pelorus/config.yml, or a path given
by CONFIG_PATH. Section and key names follow the koanf struct tags:

	server:
	  port: 4326
	ais:
	  enabled: true
	  url: wss://stream.coastal.example/v0/stream
	  api_keys:
	    - key-one
	    - key-two
	  boxes:
	    - "54:5:66:31"

# Environment Variables

Every setting has an explicit environment mapping; unmapped variables
are ignored. Slice settings accept comma-separated values.

HTTP server (ServerConfig):
  - HTTP_HOST: bind address (default: 0.0.0.0)
  - HTTP_PORT: listen port (default: 4326)
  - HTTP_READ_TIMEOUT / HTTP_IDLE_TIMEOUT: request timeouts
  - HTTP_SHUTDOWN_GRACE: graceful shutdown bound (default: 10s)

Canonical store (DatabaseConfig, WALConfig):
  - DUCKDB_PATH: database file (default: /data/pelorus.db)
  - DUCKDB_MAX_MEMORY: DuckDB memory ceiling (default: 512MB)
  - DUCKDB_THREADS: thread count (default: CPU count)
  - WAL_PATH: BadgerDB directory (default: /data/wal)
  - WAL_SYNC_WRITES: fsync per write (default: true)

Events backbone (NATSConfig):
  - NATS_HOST / NATS_PORT: embedded server bind (default: 127.0.0.1:4222)
  - NATS_STORE_DIR: JetStream directory (default: /data/nats/jetstream)
  - NATS_STREAM_MAX_AGE: delta retention (default: 24h)
  - NATS_DURABLE_NAME: viewer bridge consumer name

Streaming feed (AISConfig):
  - AIS_ENABLED: enable the coastal websocket feed (default: false)
  - AIS_URL: stream endpoint (required when enabled)
  - AIS_API_KEYS: comma-separated credential set
  - AIS_BOXES: comma-separated "minLat:minLon:maxLat:maxLon" coverage
  - AIS_MAX_SESSIONS_PER_KEY: provider connection limit (default: 1)

Polling feed (SatScanConfig, CreditConfig):
  - SATSCAN_ENABLED: enable satellite zone scans (default: false)
  - SATSCAN_URL / SATSCAN_API_KEY: provider base URL + key
  - SATSCAN_ZONES: comma-separated "name:lat:lon:radius_km" targets
  - SATSCAN_SCAN_INTERVAL: base cycle cadence (default: 5m)
  - CREDIT_MONTHLY_BUDGET: request allowance (default: 20000)
  - CREDIT_RESERVE_FLOOR: held-back fraction (default: 0.05)

Security (SecurityConfig):
  - AUTH_MODE: none, basic, or jwt (default: none)
  - ADMIN_USERNAME / ADMIN_PASSWORD: credential pair (basic and jwt)
  - JWT_SECRET: HS256 signing secret, min 32 bytes (jwt)
  - TOKEN_TTL: issued token lifetime (default: 24h)
  - CORS_ORIGINS: comma-separated allowed origins
  - RATE_LIMIT_REQUESTS / RATE_LIMIT_WINDOW: API limit (default: 100/1m)

Logging (LoggingConfig):
  - LOG_LEVEL: trace .. fatal (default: info)
  - LOG_FORMAT: json or console (default: json)

# Usage

	cfg, err := config.LoadWithKoanf()
	if err != nil {
		return err
	}
	logging.Init(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})

# Validation

Validate runs hand-rolled checks with error messages that name the
environment variable form of each setting. Feed sections are validated
only when enabled; Pelorus runs fine on a single feed, or none (map
serving only).
*/
package config
