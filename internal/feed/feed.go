// Pelorus - Vessel Tracking and Live Fleet Map
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pelorus

// Package feed contains the upstream adapters that pull vessel traffic
// into the store: a websocket client for the push-based coastal AIS
// stream and an HTTP poller for the metered satellite scan provider.
//
// Both adapters normalize every accepted message into a models.Report
// and hand it to the store's upsert entry point; they perform no
// persistence themselves. Failure handling is local: connection loss is
// retried with capped exponential backoff, rejected credentials rotate,
// malformed messages are dropped and counted, and a dead upstream trips
// a circuit breaker instead of hot-looping. One unhealthy feed never
// stalls the other.
package feed

import (
	"context"
	"time"

	"github.com/tomtom215/pelorus/internal/models"
	"github.com/tomtom215/pelorus/internal/reconcile"
)

// Feed names used as metric labels and in logs.
const (
	FeedAISStream = "ais_stream"
	FeedSatScan   = "satscan"
)

// upsertTimeout bounds a single store write so a wedged database cannot
// freeze an adapter forever.
const upsertTimeout = 10 * time.Second

// writeTimeout bounds websocket control and subscribe writes.
const writeTimeout = 10 * time.Second

// Upserter is the single store entry point adapters write through.
// *store.Store satisfies it.
type Upserter interface {
	Upsert(ctx context.Context, rep models.Report) (reconcile.Result, error)
}

// CreditLedger gates and accounts the polling feed's metered requests.
// *credit.Ledger satisfies it.
type CreditLedger interface {
	Allow(ctx context.Context, n int64) error
	Consume(ctx context.Context, n int64) error
	Reconcile(ctx context.Context, reportedUsed int64) error
	ScanInterval(base time.Duration) time.Duration
}

// idleWait sleeps for d or until the context is canceled.
func idleWait(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
