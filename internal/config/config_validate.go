// Pelorus - Vessel Tracking and Live Fleet Map
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pelorus

package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/tomtom215/pelorus/internal/models"
)

// Validate checks that required configuration is present and valid.
// Error messages name the environment variable form of each setting so
// operators can fix deployments without reading source.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateDatabase(); err != nil {
		return err
	}
	if err := c.validateWAL(); err != nil {
		return err
	}
	if err := c.validateNATS(); err != nil {
		return err
	}
	if err := c.validateAIS(); err != nil {
		return err
	}
	if err := c.validateSatScan(); err != nil {
		return err
	}
	if err := c.validateCredit(); err != nil {
		return err
	}
	if err := c.validateHub(); err != nil {
		return err
	}
	if err := c.validateRetention(); err != nil {
		return err
	}
	if err := c.validateSecurity(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be 1-65535, got %d", c.Server.Port)
	}
	if c.Server.ReadTimeout < 0 || c.Server.WriteTimeout < 0 || c.Server.IdleTimeout < 0 {
		return fmt.Errorf("HTTP timeouts must not be negative")
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("HTTP_SHUTDOWN_GRACE must be positive, got %v", c.Server.ShutdownTimeout)
	}
	return nil
}

func (c *Config) validateDatabase() error {
	if c.Database.Path == "" {
		return fmt.Errorf("DUCKDB_PATH is required")
	}
	if c.Database.Threads < 0 {
		return fmt.Errorf("DUCKDB_THREADS must not be negative, got %d", c.Database.Threads)
	}
	return nil
}

func (c *Config) validateWAL() error {
	if c.WAL.Path == "" {
		return fmt.Errorf("WAL_PATH is required")
	}
	if c.WAL.CompactInterval <= 0 {
		return fmt.Errorf("WAL_COMPACT_INTERVAL must be positive, got %v", c.WAL.CompactInterval)
	}
	if c.WAL.EntryTTL <= 0 {
		return fmt.Errorf("WAL_ENTRY_TTL must be positive, got %v", c.WAL.EntryTTL)
	}
	return nil
}

func (c *Config) validateNATS() error {
	if c.NATS.Host == "" {
		return fmt.Errorf("NATS_HOST is required")
	}
	if c.NATS.Port != -1 && (c.NATS.Port < 1 || c.NATS.Port > 65535) {
		return fmt.Errorf("NATS_PORT must be 1-65535 or -1 for random, got %d", c.NATS.Port)
	}
	if c.NATS.StoreDir == "" {
		return fmt.Errorf("NATS_STORE_DIR is required")
	}
	if c.NATS.StreamMaxAge <= 0 {
		return fmt.Errorf("NATS_STREAM_MAX_AGE must be positive, got %v", c.NATS.StreamMaxAge)
	}
	if c.NATS.DurableName == "" {
		return fmt.Errorf("NATS_DURABLE_NAME is required")
	}
	return nil
}

// validateAIS checks the streaming feed section, but only when enabled:
// Pelorus runs fine on a single feed.
func (c *Config) validateAIS() error {
	if !c.AIS.Enabled {
		return nil
	}
	if c.AIS.URL == "" {
		return fmt.Errorf("AIS_URL is required when AIS_ENABLED=true")
	}
	if err := validateStreamURL(c.AIS.URL); err != nil {
		return fmt.Errorf("AIS_URL is invalid: %w", err)
	}
	if len(c.AIS.APIKeys) == 0 {
		return fmt.Errorf("AIS_API_KEYS is required when AIS_ENABLED=true")
	}
	if len(c.AIS.Boxes) == 0 {
		return fmt.Errorf("AIS_BOXES is required when AIS_ENABLED=true")
	}
	if _, err := models.ParseBoundingBoxes(c.AIS.Boxes); err != nil {
		return fmt.Errorf("AIS_BOXES is invalid: %w", err)
	}
	if c.AIS.MaxSessionsPerKey < 1 {
		return fmt.Errorf("AIS_MAX_SESSIONS_PER_KEY must be at least 1, got %d", c.AIS.MaxSessionsPerKey)
	}
	if c.AIS.DialTimeout <= 0 || c.AIS.PingInterval <= 0 || c.AIS.ReadTimeout <= 0 {
		return fmt.Errorf("AIS timeouts must be positive")
	}
	return nil
}

func (c *Config) validateSatScan() error {
	if !c.SatScan.Enabled {
		return nil
	}
	if c.SatScan.URL == "" {
		return fmt.Errorf("SATSCAN_URL is required when SATSCAN_ENABLED=true")
	}
	if err := validateHTTPURL(c.SatScan.URL); err != nil {
		return fmt.Errorf("SATSCAN_URL is invalid: %w", err)
	}
	if c.SatScan.APIKey == "" {
		return fmt.Errorf("SATSCAN_API_KEY is required when SATSCAN_ENABLED=true")
	}
	if len(c.SatScan.Zones) == 0 {
		return fmt.Errorf("SATSCAN_ZONES is required when SATSCAN_ENABLED=true")
	}
	if _, err := models.ParseZones(c.SatScan.Zones); err != nil {
		return fmt.Errorf("SATSCAN_ZONES is invalid: %w", err)
	}
	if c.SatScan.ScanInterval <= 0 || c.SatScan.RequestTimeout <= 0 || c.SatScan.UsageInterval <= 0 {
		return fmt.Errorf("SATSCAN intervals must be positive")
	}
	return nil
}

func (c *Config) validateCredit() error {
	if !c.SatScan.Enabled {
		return nil
	}
	if c.Credit.MonthlyBudget <= 0 {
		return fmt.Errorf("CREDIT_MONTHLY_BUDGET must be positive, got %d", c.Credit.MonthlyBudget)
	}
	if c.Credit.ReserveFloor < 0 || c.Credit.ReserveFloor >= 1 {
		return fmt.Errorf("CREDIT_RESERVE_FLOOR must be in [0, 1), got %v", c.Credit.ReserveFloor)
	}
	return nil
}

func (c *Config) validateHub() error {
	if c.Hub.QueueSize < 1 {
		return fmt.Errorf("HUB_QUEUE_SIZE must be at least 1, got %d", c.Hub.QueueSize)
	}
	if c.Hub.BroadcastBuffer < 1 {
		return fmt.Errorf("HUB_BROADCAST_BUFFER must be at least 1, got %d", c.Hub.BroadcastBuffer)
	}
	if c.Hub.SnapshotTimeout <= 0 {
		return fmt.Errorf("HUB_SNAPSHOT_TIMEOUT must be positive, got %v", c.Hub.SnapshotTimeout)
	}
	return nil
}

func (c *Config) validateRetention() error {
	if c.Retention.Positions <= 0 {
		return fmt.Errorf("POSITION_RETENTION must be positive, got %v", c.Retention.Positions)
	}
	if c.Retention.PruneInterval <= 0 {
		return fmt.Errorf("PRUNE_INTERVAL must be positive, got %v", c.Retention.PruneInterval)
	}
	if c.Retention.ActiveWindow <= 0 {
		return fmt.Errorf("STATS_ACTIVE_WINDOW must be positive, got %v", c.Retention.ActiveWindow)
	}
	return nil
}

func (c *Config) validateSecurity() error {
	mode := strings.ToLower(strings.TrimSpace(c.Security.AuthMode))
	switch mode {
	case "", "none":
		return nil
	case "basic":
		return c.validateAdminCredentials()
	case "jwt":
		if err := c.validateAdminCredentials(); err != nil {
			return err
		}
		if len(c.Security.JWTSecret) < 32 {
			return fmt.Errorf("JWT_SECRET must be at least 32 bytes when AUTH_MODE=jwt")
		}
		if c.Security.TokenTTL <= 0 {
			return fmt.Errorf("TOKEN_TTL must be positive, got %v", c.Security.TokenTTL)
		}
		return nil
	default:
		return fmt.Errorf("AUTH_MODE must be none, basic, or jwt, got %q", c.Security.AuthMode)
	}
}

func (c *Config) validateAdminCredentials() error {
	if c.Security.AdminUsername == "" {
		return fmt.Errorf("ADMIN_USERNAME is required when AUTH_MODE=%s", c.Security.AuthMode)
	}
	if len(c.Security.AdminPassword) < 8 {
		return fmt.Errorf("ADMIN_PASSWORD must be at least 8 characters when AUTH_MODE=%s", c.Security.AuthMode)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(c.Logging.Level) {
	case "trace", "debug", "info", "warn", "error", "fatal":
	default:
		return fmt.Errorf("LOG_LEVEL must be trace, debug, info, warn, error, or fatal, got %q", c.Logging.Level)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "json", "console":
	default:
		return fmt.Errorf("LOG_FORMAT must be json or console, got %q", c.Logging.Format)
	}
	return nil
}

// validateHTTPURL checks a base service URL: http(s) scheme, host
// present, no path or query.
func validateHTTPURL(rawURL string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("failed to parse URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https, got: %s", parsed.Scheme)
	}
	if parsed.Host == "" {
		return fmt.Errorf("host is required")
	}
	if parsed.Path != "" && parsed.Path != "/" {
		return fmt.Errorf("should be base URL only, remove path: %s", parsed.Path)
	}
	if parsed.RawQuery != "" {
		return fmt.Errorf("should not contain query parameters, remove: ?%s", parsed.RawQuery)
	}
	return nil
}

// validateStreamURL checks the AIS endpoint; the adapter accepts ws(s)
// directly and converts http(s) itself.
func validateStreamURL(rawURL string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("failed to parse URL: %w", err)
	}
	switch parsed.Scheme {
	case "ws", "wss", "http", "https":
	default:
		return fmt.Errorf("scheme must be ws, wss, http, or https, got: %s", parsed.Scheme)
	}
	if parsed.Host == "" {
		return fmt.Errorf("host is required")
	}
	return nil
}
