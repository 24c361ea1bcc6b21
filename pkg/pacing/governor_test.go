package pacing

import (
	"context"
	"math/rand"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// testClock is an advanceable fake clock.
type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time {
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

// newTestGovernor wires a governor to a fake clock and a sleep that
// advances the clock instead of blocking, recording every wait.
func newTestGovernor(ceiling int, min, max time.Duration) (*Governor, *testClock, *[]time.Duration) {
	clock := &testClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	waits := &[]time.Duration{}

	g := New(Config{
		HourlyCeiling: ceiling,
		MinDelay:      min,
		MaxDelay:      max,
		Now:           clock.Now,
		Sleep: func(ctx context.Context, d time.Duration) error {
			*waits = append(*waits, d)
			clock.Advance(d)
			return nil
		},
		Rand: rand.New(rand.NewSource(42)),
	})
	return g, clock, waits
}

func TestQuotaCeiling(t *testing.T) {
	g, clock, _ := newTestGovernor(20, time.Millisecond, 2*time.Millisecond)
	ctx := context.Background()

	for i := 0; i < 20; i++ {
		if err := g.Acquire(ctx); err != nil {
			t.Fatalf("request %d: unexpected denial: %v", i+1, err)
		}
	}

	// The 21st request within the hour must be denied.
	if err := g.Acquire(ctx); err != ErrQuotaExhausted {
		t.Fatalf("expected ErrQuotaExhausted, got %v", err)
	}

	// Immediately after the window rolls, a request must be allowed.
	clock.Advance(time.Hour)
	if err := g.Acquire(ctx); err != nil {
		t.Fatalf("expected grant after window roll, got %v", err)
	}
}

func TestConcurrentAcquiresHonorCeiling(t *testing.T) {
	// Real clock and real sleep so the waits overlap: all callers pass the
	// initial check while the window still has room, then race to commit.
	g := New(Config{
		HourlyCeiling: 2,
		MinDelay:      5 * time.Millisecond,
		MaxDelay:      10 * time.Millisecond,
	})
	ctx := context.Background()

	if err := g.Acquire(ctx); err != nil {
		t.Fatal(err)
	}

	var granted int64
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := g.Acquire(ctx); err == nil {
				atomic.AddInt64(&granted, 1)
			}
		}()
	}
	wg.Wait()

	if granted != 1 {
		t.Errorf("granted = %d, want 1 (one slot left under the ceiling)", granted)
	}
	if got := g.Stats().RequestsInWindow; got > 2 {
		t.Errorf("requests in window = %d, exceeds ceiling 2", got)
	}
}

func TestDenialHasNoSideEffects(t *testing.T) {
	g, _, _ := newTestGovernor(1, time.Millisecond, time.Millisecond)
	ctx := context.Background()

	if err := g.Acquire(ctx); err != nil {
		t.Fatalf("first request: %v", err)
	}
	before := g.Stats()

	for i := 0; i < 3; i++ {
		if err := g.Acquire(ctx); err != ErrQuotaExhausted {
			t.Fatalf("expected denial, got %v", err)
		}
	}

	after := g.Stats()
	if after.TotalRequests != before.TotalRequests {
		t.Errorf("total requests changed on denial: %d -> %d", before.TotalRequests, after.TotalRequests)
	}
	if after.RequestsInWindow != before.RequestsInWindow {
		t.Errorf("window count changed on denial: %d -> %d", before.RequestsInWindow, after.RequestsInWindow)
	}
}

func TestPacingLowerBound(t *testing.T) {
	min := 3 * time.Second
	max := 8 * time.Second
	g, _, waits := newTestGovernor(100, min, max)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		if err := g.Acquire(ctx); err != nil {
			t.Fatalf("request %d: %v", i+1, err)
		}
	}

	// The first request has no predecessor and may go out immediately;
	// every consecutive pair must be separated by at least MinDelay.
	if len(*waits) < 9 {
		t.Fatalf("expected at least 9 recorded waits, got %d", len(*waits))
	}
	for i, w := range *waits {
		if w < min {
			t.Errorf("wait %d below minimum delay: %v < %v", i, w, min)
		}
		if w > max {
			t.Errorf("wait %d above maximum delay: %v > %v", i, w, max)
		}
	}
}

func TestDelayAccountsForElapsedTime(t *testing.T) {
	g, clock, waits := newTestGovernor(100, 3*time.Second, 3*time.Second)
	ctx := context.Background()

	if err := g.Acquire(ctx); err != nil {
		t.Fatal(err)
	}

	// Caller spent 2s elsewhere; only the remaining 1s must be waited.
	clock.Advance(2 * time.Second)
	if err := g.Acquire(ctx); err != nil {
		t.Fatal(err)
	}

	last := (*waits)[len(*waits)-1]
	if last != time.Second {
		t.Errorf("expected 1s residual wait, got %v", last)
	}

	// If more than the target already elapsed, no wait at all.
	clock.Advance(10 * time.Second)
	before := len(*waits)
	if err := g.Acquire(ctx); err != nil {
		t.Fatal(err)
	}
	if len(*waits) != before {
		t.Errorf("expected no wait after long idle, recorded %v", (*waits)[len(*waits)-1])
	}
}

func TestAcquireCancelledDuringWait(t *testing.T) {
	clock := &testClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	g := New(Config{
		HourlyCeiling: 10,
		MinDelay:      time.Second,
		MaxDelay:      time.Second,
		Now:           clock.Now,
		Sleep: func(ctx context.Context, d time.Duration) error {
			return context.Canceled
		},
		Rand: rand.New(rand.NewSource(1)),
	})
	ctx := context.Background()

	if err := g.Acquire(ctx); err != nil {
		t.Fatal(err)
	}

	// Cancellation during the wait must not commit the slot.
	if err := g.Acquire(ctx); err != context.Canceled {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if got := g.Stats().RequestsInWindow; got != 1 {
		t.Errorf("cancelled wait committed a slot: requests in window = %d", got)
	}
}

func TestStats(t *testing.T) {
	g, clock, _ := newTestGovernor(5, time.Millisecond, time.Millisecond)
	ctx := context.Background()

	if s := g.Stats(); s.TotalRequests != 0 || s.RequestsInWindow != 0 || s.UntilReset != 0 {
		t.Errorf("fresh governor stats not zero: %+v", s)
	}

	for i := 0; i < 3; i++ {
		if err := g.Acquire(ctx); err != nil {
			t.Fatal(err)
		}
	}

	s := g.Stats()
	if s.TotalRequests != 3 || s.RequestsInWindow != 3 {
		t.Errorf("unexpected stats: %+v", s)
	}
	if s.UntilReset <= 0 || s.UntilReset > time.Hour {
		t.Errorf("until reset out of range: %v", s.UntilReset)
	}

	// Lifetime total survives a window roll, the window count does not.
	clock.Advance(2 * time.Hour)
	s = g.Stats()
	if s.TotalRequests != 3 {
		t.Errorf("lifetime total lost on roll: %+v", s)
	}
	if s.RequestsInWindow != 0 {
		t.Errorf("window count survived roll: %+v", s)
	}
}
