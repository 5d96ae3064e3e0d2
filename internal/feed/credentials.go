// Pelorus - Vessel Tracking and Live Fleet Map
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pelorus

package feed

import (
	"errors"
	"strings"
	"sync"
)

// ErrCredentialsExhausted is returned by Rotate once every configured
// key has been rejected in a row. The session idles in long backoff and
// reports degraded instead of hammering the same dead keys.
var ErrCredentialsExhausted = errors.New("all stream credentials rejected")

// Credentials is a rotating cursor over the configured API key set.
// Each streaming session owns one, started at its shard's offset so
// concurrent sessions spread across the keys instead of piling onto the
// first.
type Credentials struct {
	mu       sync.Mutex
	keys     []string
	index    int
	rejected int
}

// NewCredentials builds a cursor over keys, starting at start modulo the
// key count. Blank keys are dropped; an empty remainder is an error.
func NewCredentials(keys []string, start int) (*Credentials, error) {
	cleaned := make([]string, 0, len(keys))
	for _, k := range keys {
		if k = strings.TrimSpace(k); k != "" {
			cleaned = append(cleaned, k)
		}
	}
	if len(cleaned) == 0 {
		return nil, errors.New("at least one API key is required")
	}
	if start < 0 {
		start = 0
	}
	return &Credentials{keys: cleaned, index: start % len(cleaned)}, nil
}

// Current returns the key the session should dial with.
func (c *Credentials) Current() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.keys[c.index]
}

// Rotate advances to the next key after an authentication rejection and
// records the failure. It returns ErrCredentialsExhausted while the
// rejection run covers the whole set; the next Rotate after an idle
// period keeps cycling so recovery is still possible.
func (c *Credentials) Rotate() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.index = (c.index + 1) % len(c.keys)
	c.rejected++
	if c.rejected >= len(c.keys) {
		return ErrCredentialsExhausted
	}
	return nil
}

// MarkAccepted clears the rejection run once the upstream has accepted
// the current key.
func (c *Credentials) MarkAccepted() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rejected = 0
}

// Size returns the number of usable keys.
func (c *Credentials) Size() int {
	return len(c.keys)
}
