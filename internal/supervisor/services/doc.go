// Pelorus - Vessel Tracking and Live Fleet Map
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pelorus

// Package services adapts components without a native Serve method to
// suture.Service so the supervisor tree can own their lifecycle.
//
// Two adaptation patterns live here:
//
//   - Start/Stop wrappers (WALCompactorService): Start spawns the
//     component's internal goroutine, Serve blocks on the context,
//     Stop waits for the goroutine before Serve returns.
//   - Periodic jobs (PruneService): the wrapper owns the ticker loop
//     and invokes the component's one-shot method each interval.
//
// Components that already implement Serve(ctx) error (the feed
// adapters, the hub, the bridge, the HTTP server) are added to the
// tree directly and do not appear here.
//
// Wrappers depend on small interfaces rather than concrete types, so
// tests can substitute recording fakes and the package never imports
// store or wal.
package services
