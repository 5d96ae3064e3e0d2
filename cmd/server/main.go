// Pelorus - Vessel Tracking and Live Fleet Map
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pelorus

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"slices"
	"syscall"

	_ "github.com/tomtom215/pelorus/docs" // Import generated swagger docs
	"github.com/tomtom215/pelorus/internal/api"
	"github.com/tomtom215/pelorus/internal/auth"
	"github.com/tomtom215/pelorus/internal/config"
	"github.com/tomtom215/pelorus/internal/credit"
	"github.com/tomtom215/pelorus/internal/feed"
	"github.com/tomtom215/pelorus/internal/logging"
	"github.com/tomtom215/pelorus/internal/supervisor"
	"github.com/tomtom215/pelorus/internal/supervisor/services"
	ws "github.com/tomtom215/pelorus/internal/websocket"
)

//nolint:gocyclo // Main initialization function with sequential setup steps
func main() {
	// Load configuration first to get logging settings
	cfg, err := config.LoadWithKoanf()
	if err != nil {
		// Use default logger for config errors (config not yet available)
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().Msg("Starting Pelorus with supervisor tree")
	logging.Info().
		Str("db_path", cfg.Database.Path).
		Str("wal_path", cfg.WAL.Path).
		Bool("ais_enabled", cfg.AIS.Enabled).
		Bool("satscan_enabled", cfg.SatScan.Enabled).
		Str("auth_mode", cfg.Security.AuthMode).
		Msg("Configuration loaded")

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Storage first: everything else writes through or reads from it.
	storage, err := InitStorage(ctx, cfg)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize storage")
	}
	logging.Info().Str("path", cfg.Database.Path).Msg("Vessel store initialized")

	backbone, err := InitEvents(ctx, cfg)
	if err != nil {
		fatalExit(storage, nil, err, "Failed to initialize event backbone")
	}

	// Feed upserts fan their deltas out through the event stream.
	ingest := WireDeltaPublishing(storage.Store(), backbone.Publisher())

	var ledger *credit.Ledger
	if cfg.SatScan.Enabled {
		ledger, err = initLedger(ctx, storage.Store(), cfg)
		if err != nil {
			fatalExit(storage, backbone, err, "Failed to open credit ledger")
		}
		logging.Info().
			Int64("budget", cfg.Credit.MonthlyBudget).
			Int64("remaining", ledger.Remaining()).
			Msg("Credit ledger opened")
	}

	// Create structured logger for supervisor using our slog adapter
	// This bridges zerolog to slog for sutureslog compatibility
	slogLogger := logging.NewSlogLogger()

	tree, err := supervisor.NewSupervisorTree(slogLogger, supervisor.DefaultTreeConfig())
	if err != nil {
		fatalExit(storage, backbone, err, "Failed to create supervisor tree")
	}

	// Data layer: retention pruning and WAL compaction.
	pruneSvc, err := services.NewPruneService(storage.Store(), cfg.Retention.Positions, cfg.Retention.PruneInterval)
	if err != nil {
		fatalExit(storage, backbone, err, "Failed to create prune service")
	}
	tree.AddDataService(pruneSvc)

	compactSvc, err := services.NewWALCompactorService(storage.Compactor())
	if err != nil {
		fatalExit(storage, backbone, err, "Failed to create WAL compactor service")
	}
	tree.AddDataService(compactSvc)
	logging.Info().
		Dur("retention", cfg.Retention.Positions).
		Dur("prune_interval", cfg.Retention.PruneInterval).
		Msg("Data layer services added")

	// Feed layer: each enabled source runs as its own supervised service.
	if cfg.AIS.Enabled {
		streamCfg, err := buildStreamConfig(cfg)
		if err != nil {
			fatalExit(storage, backbone, err, "Invalid AIS stream configuration")
		}
		stream, err := feed.NewAISStream(streamCfg, ingest)
		if err != nil {
			fatalExit(storage, backbone, err, "Failed to create AIS stream feed")
		}
		tree.AddFeedService(stream)
		logging.Info().
			Int("keys", len(streamCfg.APIKeys)).
			Int("boxes", len(streamCfg.Boxes)).
			Msg("AIS stream feed enabled")
	} else {
		logging.Info().Msg("AIS stream feed disabled")
	}

	if cfg.SatScan.Enabled {
		pollerCfg, err := buildPollerConfig(cfg)
		if err != nil {
			fatalExit(storage, backbone, err, "Invalid satellite scan configuration")
		}
		poller, err := feed.NewSatScanPoller(pollerCfg, ingest, ledger)
		if err != nil {
			fatalExit(storage, backbone, err, "Failed to create satellite scan poller")
		}
		tree.AddFeedService(poller)
		logging.Info().
			Int("zones", len(pollerCfg.Zones)).
			Dur("scan_interval", pollerCfg.ScanInterval).
			Msg("Satellite scan feed enabled")
	} else {
		logging.Info().Msg("Satellite scan feed disabled")
	}

	// API layer: the hub fans deltas out to viewers, the bridge feeds it
	// from the durable stream, and the HTTP server fronts both.
	hubCfg := ws.DefaultHubConfig()
	if cfg.Hub.QueueSize > 0 {
		hubCfg.QueueSize = cfg.Hub.QueueSize
	}
	if cfg.Hub.BroadcastBuffer > 0 {
		hubCfg.BroadcastBuffer = cfg.Hub.BroadcastBuffer
	}
	if cfg.Hub.SnapshotTimeout > 0 {
		hubCfg.SnapshotTimeout = cfg.Hub.SnapshotTimeout
	}
	hub := ws.NewHub(storage.Store(), hubCfg)
	bridge := ws.NewBridge(hub, backbone.Subscriber())
	tree.AddAPIService(hub)
	tree.AddAPIService(bridge)

	mode, err := auth.ParseMode(cfg.Security.AuthMode)
	if err != nil {
		fatalExit(storage, backbone, err, "Invalid auth mode")
	}

	var jwtManager *auth.JWTManager
	var basicManager *auth.BasicAuthManager
	switch mode {
	case auth.ModeJWT:
		// Token login still verifies the admin credentials, so JWT mode
		// needs both managers.
		jwtManager, err = auth.NewJWTManager(cfg.Security.JWTSecret, cfg.Security.TokenTTL)
		if err != nil {
			fatalExit(storage, backbone, err, "Failed to initialize JWT manager")
		}
		basicManager, err = auth.NewBasicAuthManager(cfg.Security.AdminUsername, cfg.Security.AdminPassword)
		if err != nil {
			fatalExit(storage, backbone, err, "Failed to initialize login credentials")
		}
		logging.Info().Msg("JWT authentication enabled")
	case auth.ModeBasic:
		basicManager, err = auth.NewBasicAuthManager(cfg.Security.AdminUsername, cfg.Security.AdminPassword)
		if err != nil {
			fatalExit(storage, backbone, err, "Failed to initialize Basic Auth manager")
		}
		logging.Info().Msg("Basic authentication enabled")
		logging.Warn().Msg("Basic Auth transmits credentials with each request. Use HTTPS in production!")
	case auth.ModeNone:
		logging.Warn().Msg("============================================================")
		logging.Warn().Msg("  SECURITY WARNING: Authentication is DISABLED (AUTH_MODE=none)")
		logging.Warn().Msg("  ")
		logging.Warn().Msg("  Enrichment writes and operational stats are open to anyone")
		logging.Warn().Msg("  who can reach this server. This mode should ONLY be used for:")
		logging.Warn().Msg("    - Local development")
		logging.Warn().Msg("    - Completely isolated private networks")
		logging.Warn().Msg("  ")
		logging.Warn().Msg("  NEVER use AUTH_MODE=none in production or on public networks!")
		logging.Warn().Msg("============================================================")
	}

	middleware, err := auth.NewMiddleware(auth.MiddlewareConfig{
		Mode:             mode,
		JWT:              jwtManager,
		Basic:            basicManager,
		AdminUsername:    cfg.Security.AdminUsername,
		LoginBurst:       cfg.Security.LoginAttempts,
		LoginWindow:      cfg.Security.LoginWindow,
		DisableRateLimit: cfg.Security.RateLimitDisabled,
	})
	if err != nil {
		fatalExit(storage, backbone, err, "Failed to initialize auth middleware")
	}

	if cfg.Security.RateLimitDisabled {
		logging.Warn().Msg("Rate limiting is DISABLED (DISABLE_RATE_LIMIT=true)")
	}
	if mode != auth.ModeNone && slices.Contains(cfg.Security.CORSOrigins, "*") {
		logging.Warn().Msg("CORS allows any origin while authentication is enabled; set explicit origins in production")
	}

	handler := api.NewHandler(storage.Store(), cfg, hub, backbone.Publisher(), ledger, backbone.Health())
	router := api.NewRouter(handler, middleware)
	server := api.NewServer(cfg.Server, router.SetupChi())
	tree.AddAPIService(server)
	logging.Info().
		Str("addr", fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)).
		Msg("HTTP server service added")

	// Setup signal handling
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree...")
	errCh := tree.ServeBackground(ctx)

	// Wait for supervisor to finish (either from signal or error)
	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish...")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	// Wait for the error channel to close (supervisor finished)
	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	// Report any services that failed to stop within timeout
	unstopped, _ := tree.UnstoppedServiceReport()
	if len(unstopped) > 0 {
		logging.Warn().Int("count", len(unstopped)).Msg("Services failed to stop within timeout")
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
		}
	}

	// The tree has stopped consuming; now the backbone and storage can
	// go down in dependency order.
	backbone.Shutdown(context.Background())
	storage.Shutdown()

	logging.Info().Msg("Application stopped gracefully")
}

// fatalExit closes whatever is already open before the process dies.
// logging.Fatal exits immediately, so deferred cleanup never runs.
func fatalExit(storage *StorageComponents, backbone *EventsComponents, err error, msg string) {
	backbone.Shutdown(context.Background())
	storage.Shutdown()
	logging.Fatal().Err(err).Msg(msg)
}
