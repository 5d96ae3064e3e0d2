// Pelorus - Vessel Tracking and Live Fleet Map
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pelorus

/*
Package main is the entry point for the Pelorus server.

Pelorus consolidates vessel observations from a streaming AIS websocket
feed and a metered satellite scan API into one durable canonical store,
and republishes every observable change to a live fleet map over
websockets. Everything runs in a single process: DuckDB for the store,
BadgerDB for the ingest write-ahead log, and an embedded NATS JetStream
server for the delta stream.

# Application Architecture

The server implements a layered architecture with Suture v4 process
supervision:

	RootSupervisor ("pelorus")
	├── DataSupervisor ("data-layer")
	│   ├── position-pruner (retention enforcement)
	│   └── wal-compactor (Badger value log GC)
	├── FeedSupervisor ("feed-layer")
	│   ├── ais-stream (credential-rotating websocket sessions)
	│   └── satscan-poller (credit-gated zone scans)
	└── APISupervisor ("api-layer")
	    ├── websocket-hub (viewer fan-out)
	    ├── nats-ws-bridge (JetStream to hub)
	    └── http-server (REST API and swagger)

Component initialization order:

 1. Configuration: Koanf v2 with environment variables and config files
 2. Logging: zerolog with JSON/console output modes
 3. Storage: Badger WAL, DuckDB vessel store, startup replay
 4. Event backbone: embedded NATS server, vessel stream, publisher, subscriber
 5. Credit ledger: monthly scan budget resumed from the store
 6. Supervisor tree: data, feed, and API layers
 7. Authentication: JWT, Basic Auth, or no-auth mode
 8. HTTP server: Chi router with middleware stack

The embedded NATS server and the storage stack are infrastructure, not
supervised services: they are opened before the tree starts and closed
after it drains, so a supervised restart never yanks the store out from
under a running feed.

# Configuration

Configuration is loaded via Koanf v2 with layered sources (highest
priority wins):
  - Environment variables (see internal/config for the full mapping)
  - Config file (config.yaml)
  - Built-in defaults

# Signal Handling

The server handles graceful shutdown on SIGINT and SIGTERM:
  - The supervisor tree stops feeds, the hub, and the HTTP server
  - The event backbone closes its subscriber, publisher, and server
  - The vessel store checkpoints and closes, then the WAL closes

# Example Usage

Development with the AIS stream feed only:

	export AIS_ENABLED=true
	export AIS_URL=wss://stream.aisstream.example/v0/stream
	export AIS_API_KEYS=key-1,key-2
	export AIS_BOXES="54:8:58:16"
	export AUTH_MODE=none  # For development
	./pelorus

Production with both feeds and JWT:

	export AIS_ENABLED=true
	export AIS_URL=wss://stream.aisstream.example/v0/stream
	export AIS_API_KEYS=key-1,key-2
	export AIS_BOXES="54:8:58:16"
	export SATSCAN_ENABLED=true
	export SATSCAN_URL=https://api.satscan.example
	export SATSCAN_API_KEY=scan-key
	export SATSCAN_ZONES="oresund:55.7:12.7:60"
	export JWT_SECRET=$(openssl rand -base64 32)
	export ADMIN_USERNAME=admin
	export ADMIN_PASSWORD=secure-password
	./pelorus

# Port 4326

The default port 4326 references EPSG:4326 (WGS 84), the coordinate
reference system AIS positions are reported in.
*/
package main
