// Pelorus - Vessel Tracking and Live Fleet Map
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pelorus

/*
Package supervisor provides process supervision for Pelorus using suture v4.

This package implements a hierarchical supervisor tree that manages the
lifecycle of all long-running services in the application. It provides
Erlang/OTP-style supervision with automatic restart, failure isolation,
and graceful shutdown.

# Overview

The supervisor tree organizes services into three layers for failure
isolation:

	RootSupervisor ("pelorus")
	├── DataSupervisor ("data-layer")
	│   ├── PruneService (position retention)
	│   └── WALCompactorService
	├── FeedSupervisor ("feed-layer")
	│   ├── AISStream
	│   └── SatScanPoller
	└── APISupervisor ("api-layer")
	    ├── Hub (websocket fan-out)
	    ├── Bridge (NATS → hub)
	    └── Server (HTTP)

This hierarchy ensures that:
  - A crashed feed adapter never stalls the other feed or the API
  - WAL maintenance failures don't impact viewer connections
  - Each layer restarts independently with its own backoff accounting

# Restart Behavior

Crashed services are restarted automatically. When a service fails more
than FailureThreshold times (decayed at FailureDecay), its supervisor
backs off for FailureBackoff before trying again, preventing restart
storms against a dead upstream.

Services that block on network I/O must honor context cancellation and
return ctx.Err() so the tree can distinguish shutdown from crashes.

# Logging

Supervision events (service failures, restarts, backoff transitions)
are logged through sutureslog, bridged into the application's zerolog
output by logging.NewSlogHandler.

Services whose Serve has not returned within ShutdownTimeout at exit are
listed by UnstoppedServiceReport; main logs the report so a hung
shutdown names its culprit.
*/
package supervisor
