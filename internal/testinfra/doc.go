// Pelorus - Vessel Tracking and Live Fleet Map
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pelorus

// Package testinfra provides in-process fakes of the two upstream
// vessel-traffic providers for integration testing.
//
// Both providers are hosted SaaS APIs with no container image to run
// locally, so integration tests exercise the real adapters and the real
// storage stack against wire-accurate simulators instead:
//
//   - FakeAISServer speaks the AIS stream websocket protocol: it
//     upgrades connections, captures subscribe frames, rejects
//     configured credentials with error frames, and lets the test
//     inject position, static and sighting frames into live sessions.
//
//   - FakeSatScanServer speaks the SatScan HTTP API: authenticated
//     zone scans with configurable vessel fixtures, quota rejections
//     (402/429) and the account usage report the credit ledger
//     reconciles against.
//
// # Usage
//
//	func TestStreamPipeline(t *testing.T) {
//	    srv := testinfra.NewFakeAISServer(t)
//	    defer srv.Close()
//
//	    adapter, _ := feed.NewAISStream(feed.DefaultStreamConfig(
//	        srv.URL(), []string{"stream-key"}, boxes), st)
//	    go adapter.Serve(ctx)
//
//	    srv.WaitForSubscriptions(1, 5*time.Second)
//	    srv.Broadcast(testinfra.PositionFrame(219000001, 55.1, 12.3, time.Now()))
//	    // ... poll the store for the vessel
//	}
//
// # Build Tag
//
// The fakes and the tests that use them are gated behind the
// integration tag so unit runs stay fast:
//
//	go test -tags integration ./...
package testinfra
