// Pelorus - Vessel Tracking and Live Fleet Map
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pelorus

package auth

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter bounds credential attempts per visitor IP. Each IP gets a
// token bucket holding `attempts` tokens that refills one token per
// window, so a visitor can burst through the allowance and then retry
// once per window.
type RateLimiter struct {
	visitors map[string]*visitorLimiter
	mu       sync.Mutex
	rate     rate.Limit
	burst    int
	stop     chan struct{}
	stopOnce sync.Once
}

type visitorLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter creates a limiter allowing `attempts` per window per IP.
func NewRateLimiter(attempts int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		visitors: make(map[string]*visitorLimiter),
		rate:     rate.Every(window),
		burst:    attempts,
		stop:     make(chan struct{}),
	}
}

// Allow reports whether an attempt from the given IP may proceed.
func (rl *RateLimiter) Allow(ip string) bool {
	rl.mu.Lock()
	entry, exists := rl.visitors[ip]
	if !exists {
		entry = &visitorLimiter{
			limiter:  rate.NewLimiter(rl.rate, rl.burst),
			lastSeen: time.Now(),
		}
		rl.visitors[ip] = entry
	} else {
		entry.lastSeen = time.Now()
	}
	limiter := entry.limiter
	rl.mu.Unlock()

	return limiter.Allow()
}

// startCleanup periodically drops limiters for IPs not seen recently.
func (rl *RateLimiter) startCleanup(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanup()
		case <-rl.stop:
			return
		}
	}
}

func (rl *RateLimiter) cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	threshold := time.Now().Add(-1 * time.Hour)
	for ip, entry := range rl.visitors {
		if entry.lastSeen.Before(threshold) {
			delete(rl.visitors, ip)
		}
	}
}

// Stop ends the cleanup goroutine. Safe to call more than once.
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}
