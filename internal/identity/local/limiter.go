// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package local

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// sendLimiter throttles code sends per phone number. Limiters that have
// refilled completely carry no state and are dropped on the next sweep.
type sendLimiter struct {
	every time.Duration
	burst int
	now   func() time.Time

	mu        sync.Mutex
	limiters  map[string]*rate.Limiter
	lastSweep time.Time
}

func newSendLimiter(every time.Duration, burst int, now func() time.Time) *sendLimiter {
	if burst < 1 {
		burst = 1
	}
	if now == nil {
		now = time.Now
	}
	return &sendLimiter{
		every:    every,
		burst:    burst,
		now:      now,
		limiters: make(map[string]*rate.Limiter),
	}
}

// Allow reports whether a send to phone may proceed now. A non-positive
// interval disables throttling.
func (l *sendLimiter) Allow(phone string) bool {
	if l.every <= 0 {
		return true
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.sweep(now)
	lim, ok := l.limiters[phone]
	if !ok {
		lim = rate.NewLimiter(rate.Every(l.every), l.burst)
		l.limiters[phone] = lim
	}
	return lim.AllowN(now, 1)
}

// sweep drops idle limiters, at most once per full refill period.
// Caller holds l.mu.
func (l *sendLimiter) sweep(now time.Time) {
	if now.Sub(l.lastSweep) < l.every*time.Duration(l.burst) {
		return
	}
	l.lastSweep = now
	for phone, lim := range l.limiters {
		if lim.TokensAt(now) >= float64(l.burst) {
			delete(l.limiters, phone)
		}
	}
}

// size returns the number of tracked numbers.
func (l *sendLimiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.limiters)
}
