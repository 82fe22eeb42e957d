package core

import (
	"context"
	"math"
	"testing"
)

func TestRateLimiterAdapts(t *testing.T) {
	t.Parallel()

	rl := NewRateLimiter(100)
	rl.RecordFailure()
	if got := rl.GetCurrentRate(); got != 100-RateDecreaseStep {
		t.Fatalf("after failure rate = %v", got)
	}
	rl.RecordSuccess()
	if got := rl.GetCurrentRate(); got != 100-RateDecreaseStep+RateIncreaseStep {
		t.Fatalf("after success rate = %v", got)
	}

	for i := 0; i < 100; i++ {
		rl.RecordFailure()
	}
	if got := rl.GetCurrentRate(); got != MinRate {
		t.Errorf("rate floor = %v, want %v", got, MinRate)
	}
	for i := 0; i < 1000; i++ {
		rl.RecordSuccess()
	}
	if got := rl.GetCurrentRate(); got != MaxRate {
		t.Errorf("rate ceiling = %v, want %v", got, MaxRate)
	}

	stats := rl.GetStats()
	if stats["failure_count"].(uint64) != 101 || stats["success_count"].(uint64) != 1001 {
		t.Errorf("stats = %v", stats)
	}
}

func TestRateLimiterUnlimited(t *testing.T) {
	t.Parallel()

	rl := NewRateLimiter(0)
	if !math.IsInf(rl.GetCurrentRate(), 1) {
		t.Fatalf("rate = %v, want +Inf", rl.GetCurrentRate())
	}
	rl.RecordFailure()
	if !math.IsInf(rl.GetCurrentRate(), 1) {
		t.Fatal("unlimited limiter adjusted on failure")
	}
	for i := 0; i < 1000; i++ {
		if err := rl.Wait(context.Background()); err != nil {
			t.Fatalf("Wait: %v", err)
		}
	}
}

func TestRateLimiterBackpressure(t *testing.T) {
	t.Parallel()

	rl := NewRateLimiter(200)
	rl.UpdateBackpressure(true)
	if rl.Allow() {
		t.Fatal("Allow during backpressure")
	}
	if got := rl.GetCurrentRate(); got != 200-RateDecreaseStep {
		t.Errorf("rate under backpressure = %v", got)
	}
	// Repeating the signal does not lower the rate again.
	rl.UpdateBackpressure(true)
	if got := rl.GetCurrentRate(); got != 200-RateDecreaseStep {
		t.Errorf("rate after repeated signal = %v", got)
	}
	rl.UpdateBackpressure(false)
	if !rl.Allow() {
		t.Error("Allow after backpressure cleared")
	}
}

func TestRateLimiterWaitHonorsContext(t *testing.T) {
	t.Parallel()

	rl := NewRateLimiter(MinRate)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := rl.Wait(ctx); err == nil {
		t.Fatal("Wait with canceled context returned nil")
	}
}
