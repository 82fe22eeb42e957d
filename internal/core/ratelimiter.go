package core

/*
domcheck — domain availability checks over DNS and WHOIS
Copyright (C) 2025  Pepijn van der Stap <rxtls@vanderstap.info>

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU Affero General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU Affero General Public License for more details.

You should have received a copy of the GNU Affero General Public License
along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

import (
	"context"
	"math"
	"sync"
	"sync/atomic"

	"golang.org/x/time/rate"

	"github.com/x-stp/domcheck/internal/metrics"
)

// Rate limiting constants defining the behavior of the adaptive rate limiter.
const (
	// MinRate is the floor in probes per second.
	MinRate = 2.0
	// MaxRate is the ceiling in probes per second.
	MaxRate = 1000.0
	// RateIncreaseStep is added to the rate after a successful probe.
	RateIncreaseStep = 5.0
	// RateDecreaseStep is subtracted from the rate after a failed probe or on backpressure.
	RateDecreaseStep = 25.0
)

// RateLimiter paces probe dispatch with a token bucket whose rate adapts to the
// outcome of recent probes: failures (timeouts, refused queries) slow it down,
// successes let it recover. A limiter created with a non-positive rate never
// waits and ignores feedback.
type RateLimiter struct {
	limiter   *rate.Limiter
	unlimited bool

	mu           sync.Mutex // serializes read-modify-write of the limit
	successCount atomic.Uint64
	failureCount atomic.Uint64
	backpressure atomic.Bool
}

// NewRateLimiter creates a RateLimiter starting at initialRate probes per second.
func NewRateLimiter(initialRate float64) *RateLimiter {
	if initialRate <= 0 {
		return &RateLimiter{limiter: rate.NewLimiter(rate.Inf, 1), unlimited: true}
	}
	initialRate = clampRate(initialRate)
	burst := int(math.Ceil(initialRate / 10))
	if burst < 1 {
		burst = 1
	}
	rl := &RateLimiter{limiter: rate.NewLimiter(rate.Limit(initialRate), burst)}
	metrics.GetMetrics().UpdateScanRateLimit(initialRate)
	return rl
}

// Wait blocks until a probe may be dispatched or ctx ends.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	return rl.limiter.Wait(ctx)
}

// Allow reports whether a probe may be dispatched now without waiting.
// It always returns false while backpressure is signalled.
func (rl *RateLimiter) Allow() bool {
	if rl.backpressure.Load() {
		return false
	}
	return rl.limiter.Allow()
}

// RecordSuccess records a successful probe and nudges the rate up.
func (rl *RateLimiter) RecordSuccess() {
	rl.successCount.Add(1)
	rl.adjustRate(RateIncreaseStep)
}

// RecordFailure records a failed probe and slows the rate down.
func (rl *RateLimiter) RecordFailure() {
	rl.failureCount.Add(1)
	rl.adjustRate(-RateDecreaseStep)
}

// UpdateBackpressure sets the backpressure state. Entering backpressure also
// lowers the rate by one decrease step.
func (rl *RateLimiter) UpdateBackpressure(hasBackpressure bool) {
	if rl.backpressure.Swap(hasBackpressure) != hasBackpressure && hasBackpressure {
		rl.adjustRate(-RateDecreaseStep)
	}
}

// GetCurrentRate returns the current limit in probes per second, +Inf when unlimited.
func (rl *RateLimiter) GetCurrentRate() float64 {
	return float64(rl.limiter.Limit())
}

// GetStats returns a snapshot of the limiter state for logging.
func (rl *RateLimiter) GetStats() map[string]interface{} {
	return map[string]interface{}{
		"current_rate":  rl.GetCurrentRate(),
		"success_count": rl.successCount.Load(),
		"failure_count": rl.failureCount.Load(),
		"backpressure":  rl.backpressure.Load(),
	}
}

func (rl *RateLimiter) adjustRate(delta float64) {
	if rl.unlimited {
		return
	}
	rl.mu.Lock()
	newRate := clampRate(float64(rl.limiter.Limit()) + delta)
	rl.limiter.SetLimit(rate.Limit(newRate))
	rl.mu.Unlock()
	metrics.GetMetrics().UpdateScanRateLimit(newRate)
}

func clampRate(r float64) float64 {
	switch {
	case r < MinRate:
		return MinRate
	case r > MaxRate:
		return MaxRate
	}
	return r
}
