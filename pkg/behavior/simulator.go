// Package behavior produces organic-looking session activity: randomized
// low-risk actions over a bounded duration, distinct from directed data
// collection.
package behavior

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"xscraper/pkg/browser"
	"xscraper/pkg/logger"
)

// Action names one performed passive-browsing action.
type Action string

const (
	ActionScroll     Action = "scroll"
	ActionEngage     Action = "engage"
	ActionOpenReturn Action = "open_return"
	ActionIdle       Action = "idle"
)

// Config configures a Simulator.
type Config struct {
	// MinPause and MaxPause bound the jittered delay between actions.
	// Defaults: 2s and 6s.
	MinPause time.Duration
	MaxPause time.Duration

	// Independent selection probabilities. Whatever mass remains after
	// the three is an idle beat. Defaults: 0.6 / 0.15 / 0.25.
	ScrollProb float64
	EngageProb float64
	OpenProb   float64

	// Rand is injected so runs are reproducible in tests.
	Rand *rand.Rand

	// Sleep suspends for d honoring ctx. Injected for tests.
	Sleep func(ctx context.Context, d time.Duration) error

	Logger logger.Logger
}

func (c *Config) defaults() {
	if c.MinPause <= 0 {
		c.MinPause = 2 * time.Second
	}
	if c.MaxPause < c.MinPause {
		c.MaxPause = 6 * time.Second
	}
	if c.ScrollProb == 0 && c.EngageProb == 0 && c.OpenProb == 0 {
		c.ScrollProb, c.EngageProb, c.OpenProb = 0.6, 0.15, 0.25
	}
	if c.Rand == nil {
		c.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if c.Sleep == nil {
		c.Sleep = func(ctx context.Context, d time.Duration) error {
			timer := time.NewTimer(d)
			defer timer.Stop()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-timer.C:
				return nil
			}
		}
	}
	if c.Logger == nil {
		c.Logger = logger.NewNop()
	}
}

// Simulator issues randomized low-risk actions against a page.
type Simulator struct {
	driver browser.ActionDriver
	cfg    Config
	log    logger.Logger
}

// New creates a Simulator.
func New(driver browser.ActionDriver, cfg Config) *Simulator {
	cfg.defaults()
	return &Simulator{driver: driver, cfg: cfg, log: cfg.Logger}
}

// Browse runs the passive loop until the duration budget or the context is
// spent and returns the ordered list of actions taken. Any single action
// that cannot be performed is skipped; it never aborts the run.
func (s *Simulator) Browse(ctx context.Context, duration time.Duration) ([]Action, error) {
	deadline := time.Now().Add(duration)
	var taken []Action

	for time.Now().Before(deadline) {
		if err := ctx.Err(); err != nil {
			break
		}

		pause := s.pause()
		if remaining := time.Until(deadline); pause > remaining {
			break
		}
		if err := s.cfg.Sleep(ctx, pause); err != nil {
			break
		}

		action := s.pick()
		if action == ActionIdle {
			taken = append(taken, action)
			continue
		}

		if err := s.perform(ctx, action); err != nil {
			if errors.Is(err, browser.ErrElementNotFound) {
				s.log.WithField("action", string(action)).Debug("action target not found, skipping")
				continue
			}
			// Transport failures end the stroll early but keep what was done.
			s.log.WithError(err).Warn("passive action failed, ending browse")
			return taken, err
		}
		taken = append(taken, action)
	}

	s.log.InfoWithFields("passive browse finished", map[string]interface{}{
		"actions": len(taken),
	})
	return taken, nil
}

func (s *Simulator) pause() time.Duration {
	span := s.cfg.MaxPause - s.cfg.MinPause
	if span <= 0 {
		return s.cfg.MinPause
	}
	return s.cfg.MinPause + time.Duration(s.cfg.Rand.Int63n(int64(span)+1))
}

func (s *Simulator) pick() Action {
	roll := s.cfg.Rand.Float64()
	switch {
	case roll < s.cfg.ScrollProb:
		return ActionScroll
	case roll < s.cfg.ScrollProb+s.cfg.EngageProb:
		return ActionEngage
	case roll < s.cfg.ScrollProb+s.cfg.EngageProb+s.cfg.OpenProb:
		return ActionOpenReturn
	default:
		return ActionIdle
	}
}

func (s *Simulator) perform(ctx context.Context, action Action) error {
	switch action {
	case ActionScroll:
		return s.driver.Scroll(ctx)
	case ActionEngage:
		return s.driver.EngageVisible(ctx)
	case ActionOpenReturn:
		return s.driver.OpenAndReturn(ctx)
	default:
		return nil
	}
}
