package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

// disableJitter removes the random start delay so short-interval tests run
// deterministically.
func disableJitter(t *testing.T) {
	t.Helper()
	orig := maxStartJitter
	maxStartJitter = 0
	t.Cleanup(func() { maxStartJitter = orig })
}

func TestNew_DefaultsInterval(t *testing.T) {
	s := New(0, false, func(ctx context.Context) error { return nil })
	if s.interval != DefaultInterval {
		t.Errorf("interval: got %v, want %v", s.interval, DefaultInterval)
	}
}

func TestRun_TicksUntilCancelled(t *testing.T) {
	disableJitter(t)

	var runs atomic.Int32
	s := New(10*time.Millisecond, false, func(ctx context.Context) error {
		runs.Add(1)
		return nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 55*time.Millisecond)
	defer cancel()

	err := s.Run(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Run: %v", err)
	}
	if n := runs.Load(); n < 2 {
		t.Errorf("runs: got %d, want at least 2", n)
	}
}

func TestRun_RunOnStart(t *testing.T) {
	disableJitter(t)

	var runs atomic.Int32
	s := New(time.Hour, true, func(ctx context.Context) error {
		runs.Add(1)
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	deadline := time.After(2 * time.Second)
	for runs.Load() == 0 {
		select {
		case <-deadline:
			t.Fatal("job never ran on start")
		case <-time.After(time.Millisecond):
		}
	}
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("Run: %v", err)
	}
	if runs.Load() != 1 {
		t.Errorf("runs: got %d, want 1", runs.Load())
	}
}

func TestStartJitter_Bounds(t *testing.T) {
	orig := maxStartJitter
	maxStartJitter = 20 * time.Millisecond
	t.Cleanup(func() { maxStartJitter = orig })

	for i := 0; i < 100; i++ {
		j := startJitter()
		if j < 0 || j >= 20*time.Millisecond {
			t.Fatalf("jitter out of bounds: %v", j)
		}
	}

	maxStartJitter = 0
	if j := startJitter(); j != 0 {
		t.Errorf("disabled jitter: got %v, want 0", j)
	}
}

func TestRun_CancelledDuringJitter(t *testing.T) {
	orig := maxStartJitter
	maxStartJitter = time.Hour
	t.Cleanup(func() { maxStartJitter = orig })

	var runs atomic.Int32
	s := New(time.Hour, true, func(ctx context.Context) error {
		runs.Add(1)
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := s.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("Run: %v", err)
	}
	if runs.Load() != 0 {
		t.Errorf("job must not run when cancelled during the start delay: %d runs", runs.Load())
	}
}

func TestRun_JobErrorDoesNotStopSchedule(t *testing.T) {
	disableJitter(t)

	var runs atomic.Int32
	s := New(10*time.Millisecond, false, func(ctx context.Context) error {
		runs.Add(1)
		return errors.New("throttled")
	})

	ctx, cancel := context.WithTimeout(context.Background(), 55*time.Millisecond)
	defer cancel()
	_ = s.Run(ctx)

	if n := runs.Load(); n < 2 {
		t.Errorf("schedule stopped after an error: %d runs", n)
	}
}
