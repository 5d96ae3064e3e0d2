// Pelorus - Vessel Tracking and Live Fleet Map
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pelorus

// Package credit tracks the polling feed's request-credit budget over a
// rolling calendar-month window.
//
// The provider meters one credit per zone scan and resets the allowance
// monthly. The ledger holds back a reserve floor (default 5%) so automated
// scanning can never drain the last credits an operator might need for
// manual queries, and it stretches the scan interval as consumption grows
// instead of failing open. Consumption is persisted through the store so a
// restart cannot forget what the window has already spent, and it is
// periodically reconciled against the provider's own usage report, which
// wins whenever it is higher.
package credit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/tomtom215/pelorus/internal/logging"

	"github.com/tomtom215/pelorus/internal/metrics"
	"github.com/tomtom215/pelorus/internal/models"
	"github.com/tomtom215/pelorus/internal/store"
)

// ErrExhausted is returned by Allow when the request would breach the
// reserve floor. Callers defer the scan; the window will roll over.
var ErrExhausted = errors.New("credit budget exhausted")

// Store persists ledger rows. *store.Store satisfies it.
type Store interface {
	GetCreditWindow(ctx context.Context, windowStart time.Time) (*store.CreditWindow, error)
	SaveCreditWindow(ctx context.Context, w store.CreditWindow) error
}

// Config holds the ledger settings.
type Config struct {
	// Budget is the monthly request-credit allowance.
	Budget int64

	// ReserveFloor is the fraction of the budget held back from
	// automated scanning, in [0, 1). Zero means the 5% default.
	ReserveFloor float64
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.Budget <= 0 {
		return fmt.Errorf("credit: budget must be positive, got %d", c.Budget)
	}
	if c.ReserveFloor < 0 || c.ReserveFloor >= 1 {
		return fmt.Errorf("credit: reserve floor must be in [0, 1), got %v", c.ReserveFloor)
	}
	return nil
}

// Ledger is the single owner of credit accounting for the polling feed.
// All methods are safe for concurrent use.
type Ledger struct {
	store   Store
	reserve float64
	nowFunc func() time.Time

	mu          sync.Mutex
	windowStart time.Time
	used        int64
	budget      int64
}

// NewLedger loads or creates the current window's row and returns a ready
// ledger. The configured budget wins over a previously persisted one, so
// plan changes take effect on restart.
func NewLedger(ctx context.Context, st Store, cfg Config) (*Ledger, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if st == nil {
		return nil, errors.New("credit: store is required")
	}

	reserve := cfg.ReserveFloor
	if reserve == 0 {
		reserve = 0.05
	}

	l := &Ledger{
		store:   st,
		reserve: reserve,
		nowFunc: time.Now,
		budget:  cfg.Budget,
	}
	l.windowStart = windowStartFor(l.nowFunc())

	row, err := st.GetCreditWindow(ctx, l.windowStart)
	if err != nil {
		return nil, fmt.Errorf("load credit window: %w", err)
	}
	if row != nil {
		l.used = row.Used
	}
	if err := l.persistLocked(ctx); err != nil {
		return nil, err
	}
	metrics.SetCreditLedger(l.used, l.budget)

	logging.Info().
		Time("window_start", l.windowStart).
		Int64("used", l.used).
		Int64("budget", l.budget).
		Msg("Credit ledger loaded")
	return l, nil
}

// Allow reports whether n credits may be spent right now. It consumes
// nothing; call Consume after the upstream confirms the request. A denial
// returns ErrExhausted, wrapped with the ledger position.
func (l *Ledger) Allow(ctx context.Context, n int64) error {
	if n <= 0 {
		return fmt.Errorf("credit: n must be positive, got %d", n)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.rolloverLocked(ctx); err != nil {
		return err
	}

	if l.used+n > l.capLocked() {
		metrics.ScansDeferred.Inc()
		return fmt.Errorf("%w: %d of %d used, reserve cap %d",
			ErrExhausted, l.used, l.budget, l.capLocked())
	}
	return nil
}

// Consume records n credits actually spent upstream and persists the new
// position. It never refuses: the request already happened, so refusing
// to count it would only corrupt the ledger.
func (l *Ledger) Consume(ctx context.Context, n int64) error {
	if n <= 0 {
		return fmt.Errorf("credit: n must be positive, got %d", n)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.rolloverLocked(ctx); err != nil {
		return err
	}

	l.used += n
	if err := l.persistLocked(ctx); err != nil {
		return err
	}
	metrics.SetCreditLedger(l.used, l.budget)
	return nil
}

// Reconcile adopts the provider's cumulative usage figure when it is
// higher than the local count. Timeouts are not charged locally, so the
// provider's view can only run ahead; a lower figure is ignored rather
// than trusted to refund credits.
func (l *Ledger) Reconcile(ctx context.Context, reportedUsed int64) error {
	if reportedUsed < 0 {
		return fmt.Errorf("credit: reported usage must not be negative, got %d", reportedUsed)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.rolloverLocked(ctx); err != nil {
		return err
	}

	if reportedUsed <= l.used {
		return nil
	}
	logging.Warn().
		Int64("local", l.used).
		Int64("reported", reportedUsed).
		Msg("Credit ledger behind provider usage report, adopting")
	l.used = reportedUsed
	if err := l.persistLocked(ctx); err != nil {
		return err
	}
	metrics.SetCreditLedger(l.used, l.budget)
	return nil
}

// Remaining returns the credits left before the hard budget, ignoring the
// reserve floor.
func (l *Ledger) Remaining() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	_, used := l.peekLocked()
	remaining := l.budget - used
	if remaining < 0 {
		remaining = 0
	}
	return remaining
}

// ScanInterval stretches the base polling interval as the window fills:
// unchanged below 50% consumed, doubled at 50%, quadrupled at 75%.
func (l *Ledger) ScanInterval(base time.Duration) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	_, used := l.peekLocked()
	ratio := float64(used) / float64(l.budget)
	switch {
	case ratio >= 0.75:
		return base * 4
	case ratio >= 0.50:
		return base * 2
	default:
		return base
	}
}

// Status snapshots the ledger for the stats endpoint.
func (l *Ledger) Status() models.CreditStatus {
	l.mu.Lock()
	defer l.mu.Unlock()

	ws, used := l.peekLocked()
	remaining := l.budget - used
	if remaining < 0 {
		remaining = 0
	}
	return models.CreditStatus{
		WindowStart: ws,
		Used:        used,
		Budget:      l.budget,
		Remaining:   remaining,
		Throttled:   used >= l.capLocked(),
	}
}

// capLocked is the spend ceiling with the reserve floor held back.
func (l *Ledger) capLocked() int64 {
	return l.budget - int64(float64(l.budget)*l.reserve)
}

// peekLocked returns the window and usage as of now without persisting a
// rollover; read paths must not write.
func (l *Ledger) peekLocked() (time.Time, int64) {
	ws := windowStartFor(l.nowFunc())
	if ws.After(l.windowStart) {
		return ws, 0
	}
	return l.windowStart, l.used
}

// rolloverLocked resets consumption when the calendar month has advanced,
// persisting the fresh window. Past rows are kept for audit.
func (l *Ledger) rolloverLocked(ctx context.Context) error {
	ws := windowStartFor(l.nowFunc())
	if !ws.After(l.windowStart) {
		return nil
	}

	logging.Info().
		Time("previous", l.windowStart).
		Time("current", ws).
		Int64("previous_used", l.used).
		Msg("Credit window rolled over")
	l.windowStart = ws
	l.used = 0
	if err := l.persistLocked(ctx); err != nil {
		return err
	}
	metrics.SetCreditLedger(l.used, l.budget)
	return nil
}

func (l *Ledger) persistLocked(ctx context.Context) error {
	err := l.store.SaveCreditWindow(ctx, store.CreditWindow{
		WindowStart: l.windowStart,
		Used:        l.used,
		Budget:      l.budget,
		UpdatedAt:   l.nowFunc().UTC(),
	})
	if err != nil {
		return fmt.Errorf("persist credit window: %w", err)
	}
	return nil
}

// windowStartFor is the first instant of now's calendar month, UTC.
func windowStartFor(now time.Time) time.Time {
	now = now.UTC()
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
}
