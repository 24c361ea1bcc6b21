package engine

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xscraper/pkg/browser"
	"xscraper/pkg/collector"
	"xscraper/pkg/config"
	"xscraper/pkg/logger"
	"xscraper/pkg/pacing"
	"xscraper/pkg/records"
	"xscraper/pkg/secrets"
	"xscraper/pkg/session"
)

// fakePage satisfies pageSession without a browser process.
type fakePage struct {
	authOK bool

	items   []records.ExtractionAttempt
	created int
	closed  int
	scrolls int
}

func (f *fakePage) Authenticate(ctx context.Context, sess *session.Session) (bool, error) {
	return f.authOK, nil
}

func (f *fakePage) NavigateToTarget(ctx context.Context, target browser.TargetSpec) error {
	return nil
}

func (f *fakePage) ExtractCurrentPage(ctx context.Context) ([]records.ExtractionAttempt, error) {
	return f.items, nil
}

func (f *fakePage) Advance(ctx context.Context) (bool, error) { return false, nil }

func (f *fakePage) Scroll(ctx context.Context) error {
	f.scrolls++
	return nil
}

func (f *fakePage) EngageVisible(ctx context.Context) error { return nil }
func (f *fakePage) OpenAndReturn(ctx context.Context) error { return nil }

func (f *fakePage) Close() error {
	f.closed++
	return nil
}

func newTestEngine(page *fakePage) *Engine {
	cfg := config.DefaultConfig()
	e := &Engine{
		cfg: cfg,
		log: logger.NewNop(),
		governor: pacing.New(pacing.Config{
			HourlyCeiling: cfg.Pacing.HourlyCeiling,
			MinDelay:      time.Millisecond,
			MaxDelay:      time.Millisecond,
			Sleep:         func(ctx context.Context, d time.Duration) error { return ctx.Err() },
			Rand:          rand.New(rand.NewSource(1)),
		}),
	}
	e.newPage = func() (pageSession, error) {
		page.created++
		return page, nil
	}
	return e
}

func liveSession(t *testing.T) *session.Session {
	t.Helper()
	salt, err := secrets.NewSalt()
	require.NoError(t, err)
	cipher := secrets.NewAESCipher("test", salt)

	blob, err := session.Seal(session.Credentials{
		session.CookieAuthToken: "token",
		session.CookieCSRF:      "csrf",
	}, cipher)
	require.NoError(t, err)

	sess, err := session.Open("test-session", blob, cipher, time.Now().Add(time.Hour))
	require.NoError(t, err)
	return sess
}

func postAttempts(n int) []records.ExtractionAttempt {
	out := make([]records.ExtractionAttempt, n)
	for i := range out {
		out[i] = records.ExtractionAttempt{
			Status: records.StatusOK,
			Record: records.Record{
				Kind:   records.KindPost,
				Handle: string(rune('a' + i)),
				Text:   "post",
			},
		}
	}
	return out
}

func TestCrawlContentHappyPath(t *testing.T) {
	page := &fakePage{authOK: true, items: postAttempts(3)}
	e := newTestEngine(page)

	res, err := e.CrawlContent(context.Background(), "golang", liveSession(t), 10)
	require.NoError(t, err)

	assert.Equal(t, collector.OutcomeStagnated, res.Outcome)
	assert.Len(t, res.Records, 3)
	assert.Equal(t, 1, page.created)
	assert.Equal(t, 1, page.closed, "page must be closed after the invocation")
	assert.Greater(t, e.GovernorStats().TotalRequests, uint64(0))
}

func TestCrawlNilSessionSkipsNetwork(t *testing.T) {
	page := &fakePage{authOK: true}
	e := newTestEngine(page)

	res, err := e.CrawlContent(context.Background(), "golang", nil, 10)
	require.NoError(t, err)

	assert.Equal(t, collector.OutcomeAuthFailed, res.Outcome)
	assert.Empty(t, res.Records)
	assert.Zero(t, page.created, "no page should be opened for a nil session")
	assert.Zero(t, e.GovernorStats().TotalRequests)
}

func TestCrawlRevokedSessionSkipsNetwork(t *testing.T) {
	page := &fakePage{authOK: true}
	e := newTestEngine(page)

	sess := liveSession(t)
	sess.Revoke()

	res, err := e.CrawlContent(context.Background(), "golang", sess, 10)
	require.NoError(t, err)
	assert.Equal(t, collector.OutcomeAuthFailed, res.Outcome)
	assert.Zero(t, page.created)
}

func TestCrawlZeroLimitUsesConfigDefault(t *testing.T) {
	// 60 unique records on one page; the default limit of 50 must cap it.
	items := make([]records.ExtractionAttempt, 60)
	for i := range items {
		items[i] = records.ExtractionAttempt{
			Status: records.StatusOK,
			Record: records.Record{Kind: records.KindPost, Handle: "u", Text: time.Duration(i).String()},
		}
	}
	page := &fakePage{authOK: true, items: items}
	e := newTestEngine(page)

	res, err := e.CrawlContent(context.Background(), "golang", liveSession(t), 0)
	require.NoError(t, err)

	assert.Equal(t, collector.OutcomeCompleted, res.Outcome)
	assert.Len(t, res.Records, e.cfg.Crawl.DefaultLimit)
}

func TestCrawlProfileYieldsSingleRecord(t *testing.T) {
	page := &fakePage{authOK: true, items: []records.ExtractionAttempt{
		{
			Status: records.StatusOK,
			Record: records.Record{Kind: records.KindProfile, Handle: "someuser", Bio: "a bio"},
		},
	}}
	e := newTestEngine(page)

	res, err := e.CrawlProfile(context.Background(), "someuser", liveSession(t))
	require.NoError(t, err)

	assert.Equal(t, collector.OutcomeCompleted, res.Outcome)
	require.Len(t, res.Records, 1)
	assert.Equal(t, records.KindProfile, res.Records[0].Kind)
}

func TestBrowsePassivelyRejectedSessionIsNotSilent(t *testing.T) {
	page := &fakePage{authOK: false}
	e := newTestEngine(page)

	actions, err := e.BrowsePassively(context.Background(), liveSession(t), time.Minute)
	require.ErrorIs(t, err, ErrAuthFailed, "rejection must be distinguishable from an idle stroll")
	assert.Empty(t, actions)
	assert.Zero(t, page.scrolls)
	assert.Equal(t, 1, page.closed)
}

func TestBrowsePassivelyNilSession(t *testing.T) {
	page := &fakePage{authOK: true}
	e := newTestEngine(page)

	actions, err := e.BrowsePassively(context.Background(), nil, time.Minute)
	require.ErrorIs(t, err, ErrAuthFailed)
	assert.Empty(t, actions)
	assert.Zero(t, page.created)
}

func TestBrowsePassivelyRevokedSession(t *testing.T) {
	page := &fakePage{authOK: true}
	e := newTestEngine(page)

	sess := liveSession(t)
	sess.Revoke()

	_, err := e.BrowsePassively(context.Background(), sess, time.Minute)
	require.ErrorIs(t, err, ErrAuthFailed)
	assert.Zero(t, page.created)
}
