// Pelorus - Vessel Tracking and Live Fleet Map
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pelorus

package wal

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/pelorus/internal/logging"
)

// Applier is the interface for re-applying WAL entries on startup.
// The canonical store implements this: it deserializes the report and
// runs it through the normal merge path, which is idempotent.
type Applier interface {
	// ApplyEntry applies a WAL entry. The implementation should deserialize
	// Entry.Payload to a report and merge it into the store.
	ApplyEntry(ctx context.Context, entry *Entry) error
}

// ApplierFunc is a function type that implements Applier.
// This allows using closures as appliers.
type ApplierFunc func(ctx context.Context, entry *Entry) error

// ApplyEntry implements Applier.
func (f ApplierFunc) ApplyEntry(ctx context.Context, entry *Entry) error {
	return f(ctx, entry)
}

// ReplayResult contains the results of a startup replay.
type ReplayResult struct {
	// TotalPending is the number of pending entries found.
	TotalPending int

	// Applied is the number of entries successfully merged.
	Applied int

	// Failed is the number of entries that failed to merge.
	Failed int

	// Expired is the number of entries that were too old and removed.
	Expired int

	// Poisoned is the number of entries dropped after exceeding
	// MaxReplayAttempts.
	Poisoned int

	// Errors contains any errors encountered during replay.
	Errors []error

	// Duration is how long the replay took.
	Duration time.Duration
}

// ReplayPending re-applies all pending WAL entries on startup.
// This runs during application initialization, before any upstream feed is
// connected, to ensure no report is lost from a previous run that crashed
// between the WAL write and the store commit.
//
// The replay process:
// 1. Gets all pending entries from the WAL
// 2. For each entry:
//   - If expired (older than EntryTTL), delete it
//   - If max replay attempts exceeded, log and delete it
//   - Otherwise, run it through the applier
//   - If the merge succeeds, confirm the entry
//   - If the merge fails, update the attempt count
//
// Replay is idempotent: entries whose effects already reached the store
// merge to a no-op, so calling it multiple times is safe.
func (w *BadgerWAL) ReplayPending(ctx context.Context, applier Applier) (*ReplayResult, error) {
	if applier == nil {
		return nil, fmt.Errorf("applier cannot be nil")
	}

	start := time.Now()
	result := &ReplayResult{}

	entries, err := w.GetPending(ctx)
	if err != nil {
		return nil, fmt.Errorf("get pending entries: %w", err)
	}

	result.TotalPending = len(entries)
	if result.TotalPending == 0 {
		logging.Info().Msg("WAL replay: no pending entries found")
		result.Duration = time.Since(start)
		return result, nil
	}

	logging.Info().Int("pending_entries", result.TotalPending).Msg("WAL replay found pending entries")
	recordReplayedEntries(int64(result.TotalPending))

	ttlCutoff := time.Now().Add(-w.config.EntryTTL)

	for _, entry := range entries {
		select {
		case <-ctx.Done():
			result.Errors = append(result.Errors, ctx.Err())
			result.Duration = time.Since(start)
			return result, ctx.Err()
		default:
		}

		// Drop entries older than the TTL; whatever they carried is stale
		// beyond usefulness and will never merge cleanly.
		if entry.CreatedAt.Before(ttlCutoff) {
			if err := w.DeleteEntry(ctx, entry.ID); err != nil {
				logging.Warn().Err(err).Str("entry_id", entry.ID).Msg("WAL replay: failed to delete expired entry")
			}
			recordExpiredEntry()
			result.Expired++
			continue
		}

		// Drop poison entries that already failed too many times.
		if entry.Attempts >= w.config.MaxReplayAttempts {
			logging.Error().
				Str("entry_id", entry.ID).
				Int("attempts", entry.Attempts).
				Str("last_error", entry.LastError).
				Msg("WAL replay: entry exceeded max attempts, dropping")
			if err := w.DeleteEntry(ctx, entry.ID); err != nil {
				logging.Warn().Err(err).Str("entry_id", entry.ID).Msg("WAL replay: failed to delete poison entry")
			}
			recordPoisonEntry()
			result.Poisoned++
			continue
		}

		if err := applier.ApplyEntry(ctx, entry); err != nil {
			logging.Warn().
				Err(err).
				Str("entry_id", entry.ID).
				Int("attempts", entry.Attempts+1).
				Msg("WAL replay: entry failed to apply")
			if uerr := w.UpdateAttempt(ctx, entry.ID, err.Error()); uerr != nil {
				logging.Warn().Err(uerr).Str("entry_id", entry.ID).Msg("WAL replay: failed to update attempt")
			}
			result.Failed++
			result.Errors = append(result.Errors, fmt.Errorf("apply entry %s: %w", entry.ID, err))
			continue
		}

		if err := w.Confirm(ctx, entry.ID); err != nil {
			logging.Warn().Err(err).Str("entry_id", entry.ID).Msg("WAL replay: failed to confirm entry")
			result.Errors = append(result.Errors, fmt.Errorf("confirm entry %s: %w", entry.ID, err))
			continue
		}

		result.Applied++
	}

	result.Duration = time.Since(start)

	logging.Info().
		Int("total", result.TotalPending).
		Int("applied", result.Applied).
		Int("failed", result.Failed).
		Int("expired", result.Expired).
		Int("poisoned", result.Poisoned).
		Dur("duration", result.Duration).
		Msg("WAL replay complete")

	return result, nil
}
