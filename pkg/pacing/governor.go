package pacing

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"
)

// ErrQuotaExhausted is returned when the hourly ceiling is reached. The
// request is not queued; the caller must retry after the window rolls or
// abort with whatever it has accumulated.
var ErrQuotaExhausted = errors.New("pacing: hourly quota exhausted")

const window = time.Hour

// Config configures a Governor.
type Config struct {
	// HourlyCeiling is the hard request quota per rolling hour. Default: 20.
	HourlyCeiling int

	// MinDelay and MaxDelay bound the randomized inter-request delay.
	// Defaults: 3s and 8s.
	MinDelay time.Duration
	MaxDelay time.Duration

	// Now returns the current time. Injected for tests. Default: time.Now.
	Now func() time.Time

	// Sleep suspends the caller for d, honoring ctx. Injected for tests.
	Sleep func(ctx context.Context, d time.Duration) error

	// Rand is the randomness source for delay jitter. Injected so pacing
	// tests are deterministic. Default: a time-seeded source.
	Rand *rand.Rand
}

func (c *Config) defaults() {
	if c.HourlyCeiling <= 0 {
		c.HourlyCeiling = 20
	}
	if c.MinDelay <= 0 {
		c.MinDelay = 3 * time.Second
	}
	if c.MaxDelay < c.MinDelay {
		c.MaxDelay = 8 * time.Second
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	if c.Sleep == nil {
		c.Sleep = sleepContext
	}
	if c.Rand == nil {
		c.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
}

// Stats is a snapshot of governor state for monitoring callers.
type Stats struct {
	TotalRequests    uint64        `json:"total_requests"`
	RequestsInWindow int           `json:"requests_in_window"`
	UntilReset       time.Duration `json:"until_reset"`
}

// Governor combines a hard hourly quota with a soft randomized cadence.
// A pure token bucket would produce suspiciously uniform timing; the
// randomized delay band breaks that pattern while the ceiling caps volume.
// Every remote fetch must pass through Acquire.
type Governor struct {
	cfg Config

	mu               sync.Mutex
	windowStart      time.Time
	requestsInWindow int
	lastRequestAt    time.Time
	totalRequests    uint64
}

// New creates a Governor. Each caller/session gets its own instance; the
// quota is not global.
func New(cfg Config) *Governor {
	cfg.defaults()
	return &Governor{cfg: cfg}
}

// Acquire requests permission for one remote fetch. On quota exhaustion it
// returns ErrQuotaExhausted immediately, without side effects. Otherwise it
// suspends the caller until the randomized delay since the previous request
// has elapsed, then commits the request slot. The ceiling is checked again
// at commit time: the lock is not held across the wait, so a concurrent
// caller may have filled the window meanwhile, and the late arrival is
// denied rather than overshooting the quota. A context cancellation during
// the wait leaves the slot uncommitted.
func (g *Governor) Acquire(ctx context.Context) error {
	g.mu.Lock()
	now := g.cfg.Now()
	g.rollWindow(now)

	if g.requestsInWindow >= g.cfg.HourlyCeiling {
		g.mu.Unlock()
		return ErrQuotaExhausted
	}

	wait := g.delayFor(now)
	g.mu.Unlock()

	if wait > 0 {
		if err := g.cfg.Sleep(ctx, wait); err != nil {
			return err
		}
	} else if err := ctx.Err(); err != nil {
		return err
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	now = g.cfg.Now()
	g.rollWindow(now)

	if g.requestsInWindow >= g.cfg.HourlyCeiling {
		return ErrQuotaExhausted
	}

	g.requestsInWindow++
	g.totalRequests++
	g.lastRequestAt = now

	return nil
}

// Stats returns lifetime request count, requests in the current window, and
// the time until the window resets.
func (g *Governor) Stats() Stats {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.cfg.Now()
	g.rollWindow(now)

	var untilReset time.Duration
	if g.requestsInWindow > 0 {
		untilReset = window - now.Sub(g.windowStart)
		if untilReset < 0 {
			untilReset = 0
		}
	}

	return Stats{
		TotalRequests:    g.totalRequests,
		RequestsInWindow: g.requestsInWindow,
		UntilReset:       untilReset,
	}
}

// rollWindow resets the hourly accounting window if it has expired.
// Callers must hold g.mu.
func (g *Governor) rollWindow(now time.Time) {
	if g.windowStart.IsZero() || now.Sub(g.windowStart) >= window {
		g.windowStart = now
		g.requestsInWindow = 0
	}
}

// delayFor computes the remaining wait before the next request may go out:
// a target drawn uniformly from [MinDelay, MaxDelay], minus time already
// elapsed since the previous request. Callers must hold g.mu.
func (g *Governor) delayFor(now time.Time) time.Duration {
	if g.lastRequestAt.IsZero() {
		return 0
	}

	span := g.cfg.MaxDelay - g.cfg.MinDelay
	target := g.cfg.MinDelay
	if span > 0 {
		target += time.Duration(g.cfg.Rand.Int63n(int64(span) + 1))
	}

	elapsed := now.Sub(g.lastRequestAt)
	if elapsed >= target {
		return 0
	}
	return target - elapsed
}

// sleepContext suspends for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
