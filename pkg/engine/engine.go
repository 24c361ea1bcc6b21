// Package engine is the exposed surface of the content-acquisition engine.
// One Engine serves one caller/session scope: its pacing quota is shared by
// all invocations made through it. Concurrent invocations for different
// sessions belong on independent Engine instances.
package engine

import (
	"context"
	"errors"
	"time"

	"github.com/go-rod/rod"

	"xscraper/pkg/behavior"
	"xscraper/pkg/browser"
	"xscraper/pkg/collector"
	"xscraper/pkg/config"
	"xscraper/pkg/logger"
	"xscraper/pkg/pacing"
	"xscraper/pkg/records"
	"xscraper/pkg/session"
)

// ErrAuthFailed reports that the session was revoked or rejected before
// passive browsing could start. Crawls report the same condition as an
// outcome because they carry partial records; a browse that never
// authenticated has nothing to carry, so it surfaces as a sentinel the
// caller can map to a reconnect hint.
var ErrAuthFailed = errors.New("engine: session rejected by remote site")

// pageSession is everything a single invocation needs from its page.
type pageSession interface {
	browser.PageDriver
	browser.ActionDriver
	Close() error
}

// Engine wires the governor, browser and collectors behind the exposed
// crawl operations. Each invocation owns its own page; no mutable state
// crosses invocations except the shared pacing quota.
type Engine struct {
	cfg      *config.Config
	log      logger.Logger
	governor *pacing.Governor

	browser *rod.Browser
	cleanup func()

	// newPage is swapped in tests to avoid a real browser.
	newPage func() (pageSession, error)
}

// New launches the shared browser process and returns a ready Engine.
func New(ctx context.Context, cfg *config.Config, log logger.Logger) (*Engine, error) {
	if log == nil {
		log = logger.NewNop()
	}

	b, cleanup, err := browser.Launch(ctx, browser.LaunchConfig{
		Headless: cfg.Browser.Headless,
	}, log)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		cfg:     cfg,
		log:     log,
		browser: b,
		cleanup: cleanup,
		governor: pacing.New(pacing.Config{
			HourlyCeiling: cfg.Pacing.HourlyCeiling,
			MinDelay:      cfg.Pacing.MinDelay,
			MaxDelay:      cfg.Pacing.MaxDelay,
		}),
	}
	e.newPage = e.newClientPage
	return e, nil
}

// Close shuts down the shared browser process.
func (e *Engine) Close() {
	if e.cleanup != nil {
		e.cleanup()
	}
}

// CrawlContent crawls the live search feed for the keyword.
func (e *Engine) CrawlContent(ctx context.Context, keyword string, sess *session.Session, limit int) (*collector.Result, error) {
	return e.crawl(ctx, browser.TargetSpec{Kind: browser.TargetContent, Query: keyword}, sess, limit)
}

// CrawlProfile crawls a single profile page and returns its profile record
// (in Result.Records, at most one entry).
func (e *Engine) CrawlProfile(ctx context.Context, profileURL string, sess *session.Session) (*collector.Result, error) {
	return e.crawl(ctx, browser.TargetSpec{Kind: browser.TargetProfile, Query: profileURL}, sess, 1)
}

// CrawlPeople crawls the people search results for the niche string.
func (e *Engine) CrawlPeople(ctx context.Context, niche string, sess *session.Session, limit int) (*collector.Result, error) {
	return e.crawl(ctx, browser.TargetSpec{Kind: browser.TargetPeople, Query: niche}, sess, limit)
}

// BrowsePassively authenticates and then issues randomized low-risk actions
// on the home feed for the duration budget, returning the actions taken.
// A revoked or rejected session returns ErrAuthFailed, never an empty
// success.
func (e *Engine) BrowsePassively(ctx context.Context, sess *session.Session, duration time.Duration) ([]behavior.Action, error) {
	if !e.sessionUsable(sess) {
		return nil, ErrAuthFailed
	}

	page, err := e.newPage()
	if err != nil {
		return nil, err
	}
	defer page.Close()

	ok, err := page.Authenticate(ctx, sess)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrAuthFailed
	}

	sim := behavior.New(page, behavior.Config{
		MinPause:   e.cfg.Behavior.MinPause,
		MaxPause:   e.cfg.Behavior.MaxPause,
		ScrollProb: e.cfg.Behavior.ScrollProb,
		EngageProb: e.cfg.Behavior.EngageProb,
		OpenProb:   e.cfg.Behavior.OpenProb,
		Logger:     e.log,
	})
	return sim.Browse(ctx, duration)
}

// GovernorStats returns a snapshot of the pacing state.
func (e *Engine) GovernorStats() pacing.Stats {
	return e.governor.Stats()
}

func (e *Engine) crawl(ctx context.Context, target browser.TargetSpec, sess *session.Session, limit int) (*collector.Result, error) {
	if limit <= 0 {
		limit = e.cfg.Crawl.DefaultLimit
	}

	if !e.sessionUsable(sess) {
		// A revoked session is not worth a network round trip; report the
		// same terminal outcome a live rejection would.
		return &collector.Result{
			Outcome:    collector.OutcomeAuthFailed,
			Records:    []records.Record{},
			StartedAt:  time.Now(),
			FinishedAt: time.Now(),
		}, nil
	}

	page, err := e.newPage()
	if err != nil {
		return nil, err
	}
	defer page.Close()

	col := collector.New(page, e.governor, collector.Config{
		RecordsPerPage: e.cfg.Crawl.RecordsPerPage,
		Logger:         e.log,
	})

	res, err := col.Run(ctx, target, sess, limit)
	if err != nil {
		return nil, err
	}

	stats := e.governor.Stats()
	e.log.DebugWithFields("governor state after crawl", map[string]interface{}{
		"total_requests":     stats.TotalRequests,
		"requests_in_window": stats.RequestsInWindow,
		"until_reset_ms":     stats.UntilReset.Milliseconds(),
	})

	return res, nil
}

// sessionUsable checks the caller-visible session state. The advisory TTL
// is logged but not enforced; only the remote site knows for sure.
func (e *Engine) sessionUsable(sess *session.Session) bool {
	if sess == nil || !sess.IsActive {
		return false
	}
	if sess.Expired(time.Now()) {
		e.log.WithField("session", sess.ID).Warn("session past advisory TTL, attempting anyway")
	}
	return true
}

func (e *Engine) newClientPage() (pageSession, error) {
	return browser.NewClient(e.browser, browser.Config{
		BaseURL:    e.cfg.Site.BaseURL,
		HomePath:   e.cfg.Site.HomePath,
		Timeout:    e.cfg.Browser.NavigationTimeout,
		LoadSettle: e.cfg.Browser.LoadSettle,
		Fingerprint: browser.FingerprintProfile{
			UserAgent:      e.cfg.Browser.UserAgent,
			ViewportWidth:  e.cfg.Browser.ViewportWidth,
			ViewportHeight: e.cfg.Browser.ViewportHeight,
		},
		Logger: e.log,
	})
}
