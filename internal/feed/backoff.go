// Pelorus - Vessel Tracking and Live Fleet Map
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pelorus

package feed

import "time"

// Backoff is the reconnect delay policy shared by both adapters: a
// jitterless geometric progression from Initial up to Max.
//
// The mapping from attempt number to delay is deterministic, so retry
// behavior is testable without sleeping. A zero value behaves like
// DefaultBackoff. Not safe for concurrent use; each session owns its
// own copy.
type Backoff struct {
	// Initial is the delay before the first retry. Default 1s.
	Initial time.Duration

	// Max caps the delay. Default 32s.
	Max time.Duration

	// Factor multiplies the delay each attempt. Default 2.
	Factor float64

	attempt int
}

// DefaultBackoff returns the standard reconnect policy: 1s doubling to a
// 32s cap.
func DefaultBackoff() Backoff {
	return Backoff{Initial: time.Second, Max: 32 * time.Second, Factor: 2}
}

// Next returns the delay for the given zero-based attempt number:
// Initial × Factor^attempt, capped at Max. Negative attempts map to the
// initial delay.
func (b *Backoff) Next(attempt int) time.Duration {
	initial := b.Initial
	if initial <= 0 {
		initial = time.Second
	}
	limit := b.Max
	if limit <= 0 {
		limit = 32 * time.Second
	}
	factor := b.Factor
	if factor <= 1 {
		factor = 2
	}

	d := float64(initial)
	for i := 0; i < attempt; i++ {
		d *= factor
		if d >= float64(limit) {
			return limit
		}
	}
	if d > float64(limit) {
		return limit
	}
	return time.Duration(d)
}

// Step returns the delay for the current attempt and advances the
// counter.
func (b *Backoff) Step() time.Duration {
	d := b.Next(b.attempt)
	b.attempt++
	return d
}

// Reset rewinds the attempt counter after a successful connection.
func (b *Backoff) Reset() {
	b.attempt = 0
}

// Attempt returns the number of consecutive failures so far.
func (b *Backoff) Attempt() int {
	return b.attempt
}
