// Pelorus - Vessel Tracking and Live Fleet Map
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pelorus

/*
Package models defines data structures for the Pelorus application.

This package is the single source of truth for the canonical vessel schema
shared by the feed adapters, the reconciliation policy, the store, the
event stream and the API. It contains no behavior beyond parsing and
self-description; all merge and persistence logic lives elsewhere.

Key Components:

  - VesselRecord: canonical per-vessel row with static, dynamic and
    enrichment field groups, each under different write rules
  - PositionEvent: immutable append-only track point
  - Report: the normalization target both upstream adapters emit
  - VesselDelta: sparse mutation event pushed to viewers
  - Zone / BoundingBox: geographic configuration for the two feeds
  - APIResponse / APIError: standardized HTTP envelope

Field group semantics (enforced by internal/reconcile):

 1. Static attributes only move null -> value; feeds never clear them.
 2. Dynamic attributes are last-write-wins by event timestamp, per field,
    so delayed messages cannot regress displayed state.
 3. Enrichment attributes are written only through the enrichment entry
    point by external collaborators, never by feed merging.

All optional attributes are pointer-typed: nil means "not reported",
which is semantically distinct from any zero value.

Thread Safety:

Models are plain data. Instances handed to other goroutines are treated
as immutable; the store copies records before mutation.
*/
package models
