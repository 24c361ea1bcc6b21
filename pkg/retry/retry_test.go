package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

type noDelay struct{}

func (noDelay) NextDelay(int) time.Duration { return 0 }

func TestDoSucceedsAfterFailures(t *testing.T) {
	calls := 0
	err := Do(context.Background(), 3, noDelay{}, func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestDoExhaustsAttempts(t *testing.T) {
	boom := errors.New("boom")
	calls := 0
	err := Do(context.Background(), 2, noDelay{}, func() error {
		calls++
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("last error not wrapped: %v", err)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
}

func TestDoHonorsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := Do(ctx, 3, noDelay{}, func() error {
		calls++
		return errors.New("never retried")
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if calls != 0 {
		t.Errorf("fn ran %d times under a cancelled context", calls)
	}
}

func TestExponentialBackoffGrowth(t *testing.T) {
	eb := &ExponentialBackoff{
		BaseDelay:  time.Second,
		MaxDelay:   10 * time.Second,
		Multiplier: 2.0,
	}

	if d := eb.NextDelay(1); d != time.Second {
		t.Errorf("attempt 1 delay = %v", d)
	}
	if d := eb.NextDelay(2); d != 2*time.Second {
		t.Errorf("attempt 2 delay = %v", d)
	}
	// Growth is capped.
	if d := eb.NextDelay(10); d != 10*time.Second {
		t.Errorf("capped delay = %v", d)
	}
	if d := eb.NextDelay(0); d != 0 {
		t.Errorf("attempt 0 delay = %v", d)
	}
}

func TestExponentialBackoffJitterStaysInBand(t *testing.T) {
	eb := &ExponentialBackoff{
		BaseDelay:    time.Second,
		MaxDelay:     time.Minute,
		Multiplier:   2.0,
		JitterFactor: 0.1,
	}

	for i := 0; i < 100; i++ {
		d := eb.NextDelay(3)
		if d < 3600*time.Millisecond || d > 4400*time.Millisecond {
			t.Fatalf("jittered delay out of band: %v", d)
		}
	}
}
