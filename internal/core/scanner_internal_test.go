package core

import (
	"context"
	"testing"
	"time"

	"github.com/x-stp/domcheck/internal/dnsprobe"
)

func TestScannerSubmitSignalsBackpressure(t *testing.T) {
	t.Parallel()

	sched, err := NewScheduler(context.Background(), 1)
	if err != nil {
		t.Fatalf("NewScheduler: %v", err)
	}
	defer sched.Shutdown()

	s := NewScanner(dnsprobe.NewStatic(), ScannerOptions{Workers: 1})
	limiter := NewRateLimiter(200)
	noop := func(context.Context) error { return nil }

	release := make(chan struct{})
	started := make(chan struct{})
	if err := s.submit(context.Background(), sched, limiter, "blocker", func(context.Context) error {
		close(started)
		<-release
		return nil
	}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	<-started
	for i := 0; i < WorkerQueueCapacity; i++ {
		if err := s.submit(context.Background(), sched, limiter, "k", noop); err != nil {
			t.Fatalf("submit %d: %v", i, err)
		}
	}
	if limiter.GetStats()["backpressure"].(bool) {
		t.Fatal("backpressure set while queue had room")
	}

	done := make(chan error, 1)
	go func() { done <- s.submit(context.Background(), sched, limiter, "k", noop) }()

	deadline := time.Now().Add(2 * time.Second)
	for !limiter.GetStats()["backpressure"].(bool) {
		if time.Now().After(deadline) {
			t.Fatal("full queue did not signal backpressure")
		}
		time.Sleep(time.Millisecond)
	}
	if got := limiter.GetCurrentRate(); got != 200-RateDecreaseStep {
		t.Errorf("rate under backpressure = %v, want %v", got, 200-RateDecreaseStep)
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("blocking submit after backpressure: %v", err)
	}
	sched.Wait()

	if err := s.submit(context.Background(), sched, limiter, "k", noop); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if limiter.GetStats()["backpressure"].(bool) {
		t.Error("backpressure not cleared once the queue drained")
	}
}

func TestScannerSubmitAfterShutdown(t *testing.T) {
	t.Parallel()

	sched, err := NewScheduler(context.Background(), 1)
	if err != nil {
		t.Fatalf("NewScheduler: %v", err)
	}
	sched.Shutdown()

	s := NewScanner(dnsprobe.NewStatic(), ScannerOptions{})
	limiter := NewRateLimiter(200)
	if err := s.submit(context.Background(), sched, limiter, "k", func(context.Context) error { return nil }); err == nil {
		t.Fatal("submit after shutdown succeeded")
	}
	if limiter.GetStats()["backpressure"].(bool) {
		t.Error("shutdown must not be reported as backpressure")
	}
}
