// Pelorus - Vessel Tracking and Live Fleet Map
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pelorus

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/tomtom215/pelorus/internal/metrics"
)

// CreditWindow is one monthly scan-budget accounting row. The ledger
// persists here so burn-down survives restarts; the credit package owns
// the spending rules.
type CreditWindow struct {
	WindowStart time.Time
	Used        int64
	Budget      int64
	UpdatedAt   time.Time
}

// GetCreditWindow loads the ledger row for a window start, or nil when no
// scan has been accounted in that window yet.
func (s *Store) GetCreditWindow(ctx context.Context, windowStart time.Time) (*CreditWindow, error) {
	start := time.Now()
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	var w CreditWindow
	err := s.db.QueryRowContext(ctx,
		"SELECT window_start, used, budget, updated_at FROM credit_ledger WHERE window_start = ?",
		windowStart,
	).Scan(&w.WindowStart, &w.Used, &w.Budget, &w.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		metrics.RecordStoreQuery("get_credit_window", "credit_ledger", time.Since(start), nil)
		return nil, nil
	}
	metrics.RecordStoreQuery("get_credit_window", "credit_ledger", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("get credit window: %w", err)
	}
	return &w, nil
}

// SaveCreditWindow upserts one ledger row.
func (s *Store) SaveCreditWindow(ctx context.Context, w CreditWindow) error {
	start := time.Now()
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO credit_ledger (window_start, used, budget, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (window_start) DO UPDATE SET
			used = excluded.used,
			budget = excluded.budget,
			updated_at = excluded.updated_at`,
		w.WindowStart, w.Used, w.Budget, w.UpdatedAt,
	)
	metrics.RecordStoreQuery("save_credit_window", "credit_ledger", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("save credit window: %w", err)
	}
	return nil
}
