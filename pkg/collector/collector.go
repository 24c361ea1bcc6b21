// Package collector drives the crawl loop: permission, extraction, dedup,
// advancement, termination.
package collector

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"xscraper/pkg/browser"
	"xscraper/pkg/logger"
	"xscraper/pkg/pacing"
	"xscraper/pkg/records"
	"xscraper/pkg/session"
)

// Outcome is the terminal state of a crawl run. All pacing, stagnation and
// auth results are outcomes rather than errors because they are expected,
// frequent, and must carry partial data.
type Outcome string

const (
	// OutcomeCompleted means the requested limit was reached.
	OutcomeCompleted Outcome = "completed"
	// OutcomeStagnated means advancing produced no new content. A normal
	// end state; not every crawl reaches the requested limit.
	OutcomeStagnated Outcome = "stagnated"
	// OutcomeRateLimited means the hourly quota ran out mid-crawl.
	OutcomeRateLimited Outcome = "rate_limited"
	// OutcomeAuthFailed means the remote site rejected the session.
	OutcomeAuthFailed Outcome = "auth_failed"
	// OutcomeCancelled means the caller's context was cancelled.
	OutcomeCancelled Outcome = "cancelled"
)

// backstopSlack pages beyond the expected page count before the loop is cut
// off even if Advance never reports stagnation.
const backstopSlack = 2

// Governor gates every remote fetch. Satisfied by *pacing.Governor.
type Governor interface {
	Acquire(ctx context.Context) error
}

// Config configures a Collector.
type Config struct {
	// RecordsPerPage is the expected records surfaced per scroll, used to
	// size the defensive iteration ceiling. Default: 10.
	RecordsPerPage int

	Logger logger.Logger
}

func (c *Config) defaults() {
	if c.RecordsPerPage <= 0 {
		c.RecordsPerPage = 10
	}
	if c.Logger == nil {
		c.Logger = logger.NewNop()
	}
}

// Result is the terminal state of one crawl invocation. Records are in
// crawl-discovery order; callers that need ranked output sort explicitly.
type Result struct {
	RunID      string           `json:"run_id"`
	Outcome    Outcome          `json:"outcome"`
	Records    []records.Record `json:"records"`
	Pages      int              `json:"pages"`
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt time.Time        `json:"finished_at"`
}

// Collector runs the crawl state machine over a page driver. One collector
// run owns its driver exclusively; concurrent invocations use independent
// collectors, drivers and pacing state.
type Collector struct {
	driver   browser.PageDriver
	governor Governor
	cfg      Config
	log      logger.Logger
}

// New creates a Collector.
func New(driver browser.PageDriver, governor Governor, cfg Config) *Collector {
	cfg.defaults()
	return &Collector{
		driver:   driver,
		governor: governor,
		cfg:      cfg,
		log:      cfg.Logger,
	}
}

// Run executes one crawl: authenticate, navigate, then the collecting loop
// until the limit, stagnation, quota exhaustion or cancellation. Completed
// runs return exactly limit records; the accumulated surplus from the final
// page is truncated. Only credential and transport failures surface as
// errors; every other ending is a typed outcome carrying partial records.
func (c *Collector) Run(ctx context.Context, target browser.TargetSpec, sess *session.Session, limit int) (*Result, error) {
	res := &Result{
		RunID:     uuid.New().String(),
		Records:   []records.Record{},
		StartedAt: time.Now(),
	}
	log := c.log.WithFields(map[string]interface{}{
		"run_id": res.RunID,
		"kind":   string(target.Kind),
	})

	finish := func(outcome Outcome) (*Result, error) {
		res.Outcome = outcome
		res.FinishedAt = time.Now()
		log.InfoWithFields("crawl finished", map[string]interface{}{
			"outcome": string(outcome),
			"records": len(res.Records),
			"pages":   res.Pages,
		})
		return res, nil
	}

	// Authenticating. A clean rejection terminates with zero records and
	// zero further network calls; transport failures propagate unretried.
	ok, err := c.driver.Authenticate(ctx, sess)
	if err != nil {
		return nil, err
	}
	if !ok {
		return finish(OutcomeAuthFailed)
	}

	// Navigation to the target is a remote fetch and passes the governor
	// like any other.
	if err := c.acquire(ctx); err != nil {
		return c.terminalForAcquire(err, res, finish)
	}
	if err := c.driver.NavigateToTarget(ctx, target); err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, limit)
	maxPages := (limit+c.cfg.RecordsPerPage-1)/c.cfg.RecordsPerPage + backstopSlack

	// Collecting loop.
	for {
		if err := ctx.Err(); err != nil {
			return finish(OutcomeCancelled)
		}

		if err := c.acquire(ctx); err != nil {
			return c.terminalForAcquire(err, res, finish)
		}

		attempts, err := c.driver.ExtractCurrentPage(ctx)
		if err != nil {
			return nil, err
		}
		res.Pages++

		added := 0
		for _, attempt := range attempts {
			if attempt.Status == records.StatusSkip {
				continue
			}
			fp := attempt.Record.Fingerprint()
			if _, dup := seen[fp]; dup {
				continue
			}
			seen[fp] = struct{}{}
			res.Records = append(res.Records, attempt.Record)
			added++
		}

		log.DebugWithFields("page extracted", map[string]interface{}{
			"page":      res.Pages,
			"extracted": len(attempts),
			"added":     added,
			"total":     len(res.Records),
		})

		if len(res.Records) >= limit {
			res.Records = res.Records[:limit]
			return finish(OutcomeCompleted)
		}

		// Defensive backstop in case Advance never reports stagnation.
		if res.Pages >= maxPages {
			log.Warn("iteration ceiling reached before stagnation signal")
			return finish(OutcomeStagnated)
		}

		hasMore, err := c.driver.Advance(ctx)
		if err != nil {
			return nil, err
		}
		if !hasMore {
			return finish(OutcomeStagnated)
		}
	}
}

func (c *Collector) acquire(ctx context.Context) error {
	return c.governor.Acquire(ctx)
}

// terminalForAcquire maps a governor denial to its terminal outcome:
// quota exhaustion and cancellation both end the run with partial records.
func (c *Collector) terminalForAcquire(err error, res *Result, finish func(Outcome) (*Result, error)) (*Result, error) {
	if errors.Is(err, pacing.ErrQuotaExhausted) {
		return finish(OutcomeRateLimited)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return finish(OutcomeCancelled)
	}
	return nil, err
}
