// Pelorus - Vessel Tracking and Live Fleet Map
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pelorus

package main

import (
	"context"

	"github.com/tomtom215/pelorus/internal/feed"
	"github.com/tomtom215/pelorus/internal/logging"
	"github.com/tomtom215/pelorus/internal/models"
	"github.com/tomtom215/pelorus/internal/reconcile"
)

// reportStore is the slice of the vessel store the ingest path writes
// through.
type reportStore interface {
	Upsert(ctx context.Context, rep models.Report) (reconcile.Result, error)
}

// deltaSink receives the published form of each accepted change.
type deltaSink interface {
	PublishDelta(ctx context.Context, delta *models.VesselDelta) error
}

// publishingUpserter wraps the vessel store so every observable change
// a feed report produces fans out to the event stream. Publish failures
// never fail the upsert: the write is already durable, and a viewer
// that misses a delta recovers it from its next snapshot.
type publishingUpserter struct {
	store reportStore
	sink  deltaSink
}

// WireDeltaPublishing returns the store entry point the feed adapters
// write through, with delta publication attached.
func WireDeltaPublishing(st reportStore, sink deltaSink) feed.Upserter {
	return &publishingUpserter{store: st, sink: sink}
}

func (u *publishingUpserter) Upsert(ctx context.Context, rep models.Report) (reconcile.Result, error) {
	res, err := u.store.Upsert(ctx, rep)
	if err != nil || !res.Changed || u.sink == nil {
		return res, err
	}

	delta := res.Delta
	if perr := u.sink.PublishDelta(ctx, &delta); perr != nil {
		logging.Warn().Err(perr).Int64("mmsi", rep.MMSI).Msg("Delta publish failed")
	}
	return res, nil
}
