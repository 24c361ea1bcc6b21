package browser

import (
	"context"
	"encoding/json"
	"net/url"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	xerrors "xscraper/pkg/errors"
	"xscraper/pkg/logger"
	"xscraper/pkg/records"
	"xscraper/pkg/session"
)

// FingerprintProfile is the fixed browser fingerprint applied once at page
// creation. Automation-flag suppression comes from the stealth page plus
// launcher flags; this covers the rest.
type FingerprintProfile struct {
	UserAgent      string
	ViewportWidth  int
	ViewportHeight int
}

// Config configures a Client.
type Config struct {
	// BaseURL is the site root, e.g. https://x.com.
	BaseURL string
	// HomePath is the logged-in landing path used by Authenticate.
	HomePath string
	// Timeout bounds every navigation/extraction operation. Default: 30s.
	Timeout time.Duration
	// LoadSettle is the pause after a scroll for lazy content to render.
	LoadSettle time.Duration

	Fingerprint FingerprintProfile

	Logger logger.Logger
}

func (c *Config) defaults() {
	if c.HomePath == "" {
		c.HomePath = "/home"
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.LoadSettle <= 0 {
		c.LoadSettle = 1500 * time.Millisecond
	}
	if c.Logger == nil {
		c.Logger = logger.NewNop()
	}
}

// Client owns one browser page and implements PageDriver and ActionDriver.
// The fingerprint is applied at construction and never changes per call.
type Client struct {
	page *rod.Page
	cfg  Config
	log  logger.Logger

	// kind of the last navigated target, drives extraction script choice
	kind TargetKind
}

// NewClient creates a stealth page on the given browser and applies the
// fingerprint profile.
func NewClient(b *rod.Browser, cfg Config) (*Client, error) {
	cfg.defaults()

	page, err := stealth.Page(b)
	if err != nil {
		return nil, xerrors.NewTransport("browser.NewClient", "create stealth page", err)
	}

	if cfg.Fingerprint.ViewportWidth > 0 && cfg.Fingerprint.ViewportHeight > 0 {
		err = page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
			Width:             cfg.Fingerprint.ViewportWidth,
			Height:            cfg.Fingerprint.ViewportHeight,
			DeviceScaleFactor: 1,
			Mobile:            false,
		})
		if err != nil {
			page.Close()
			return nil, xerrors.NewTransport("browser.NewClient", "set viewport", err)
		}
	}

	if cfg.Fingerprint.UserAgent != "" {
		err = page.SetUserAgent(&proto.NetworkSetUserAgentOverride{
			UserAgent: cfg.Fingerprint.UserAgent,
		})
		if err != nil {
			page.Close()
			return nil, xerrors.NewTransport("browser.NewClient", "set user agent", err)
		}
	}

	return &Client{
		page: page,
		cfg:  cfg,
		log:  cfg.Logger,
		kind: TargetContent,
	}, nil
}

// Close closes the underlying page.
func (c *Client) Close() error {
	if c.page != nil {
		return c.page.Close()
	}
	return nil
}

// Authenticate applies the session cookies to the page context, navigates
// to the logged-in home URL and inspects the DOM for the logged-out signal.
// A clean "not logged in" result returns (false, nil); only transport-level
// failures return an error.
func (c *Client) Authenticate(ctx context.Context, sess *session.Session) (bool, error) {
	domain, err := cookieDomain(c.cfg.BaseURL)
	if err != nil {
		return false, xerrors.NewTransport("browser.Authenticate", "invalid base URL", err)
	}

	var params []*proto.NetworkCookieParam
	for name, value := range sess.Cookies() {
		params = append(params, &proto.NetworkCookieParam{
			Name:     name,
			Value:    value,
			Domain:   domain,
			Path:     "/",
			Secure:   true,
			HTTPOnly: name == session.CookieAuthToken,
		})
	}
	if err := c.page.SetCookies(params); err != nil {
		return false, xerrors.NewTransport("browser.Authenticate", "set cookies", err)
	}

	opCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	home := c.cfg.BaseURL + c.cfg.HomePath
	if err := c.navigate(opCtx, home); err != nil {
		return false, err
	}

	res, err := c.page.Context(opCtx).Eval(loggedOutJS)
	if err != nil {
		return false, xerrors.NewTransport("browser.Authenticate", "inspect login state", err)
	}

	loggedOut := res.Value.Bool()
	if loggedOut {
		c.log.WithField("session", sess.ID).Warn("session rejected by remote site")
	}
	return !loggedOut, nil
}

// NavigateToTarget builds the URL for the target shape and navigates.
func (c *Client) NavigateToTarget(ctx context.Context, target TargetSpec) error {
	u, err := target.URL(c.cfg.BaseURL)
	if err != nil {
		return err
	}

	opCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	if err := c.navigate(opCtx, u); err != nil {
		return err
	}

	c.kind = target.Kind
	c.log.DebugWithFields("navigated to target", map[string]interface{}{
		"kind": string(target.Kind),
		"url":  u,
	})
	return nil
}

// ExtractCurrentPage parses the rendered DOM into per-item extraction
// attempts using the script for the last navigated target shape.
func (c *Client) ExtractCurrentPage(ctx context.Context) ([]records.ExtractionAttempt, error) {
	opCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	var script string
	switch c.kind {
	case TargetProfile:
		script = extractProfileJS
	case TargetPeople:
		script = extractPeopleJS
	default:
		script = extractPostsJS
	}

	res, err := c.page.Context(opCtx).Eval(script)
	if err != nil {
		return nil, xerrors.NewTransport("browser.ExtractCurrentPage", "evaluate extraction script", err)
	}

	var raw []records.RawItem
	if err := json.Unmarshal([]byte(res.Value.Str()), &raw); err != nil {
		return nil, xerrors.NewTransport("browser.ExtractCurrentPage", "decode extraction payload", err)
	}

	now := time.Now()
	kind := TargetSpec{Kind: c.kind}.RecordKind()
	attempts := make([]records.ExtractionAttempt, 0, len(raw))
	for _, item := range raw {
		attempt := records.Classify(item, kind, now)
		if attempt.Status == records.StatusSkip {
			c.log.Debug("dropped item with no extractable content")
		}
		attempts = append(attempts, attempt)
	}

	return attempts, nil
}

// Advance scrolls to the bottom to trigger lazy loading and reports whether
// the total scrollable height changed. Unchanged height is the primary
// stagnation signal.
func (c *Client) Advance(ctx context.Context) (bool, error) {
	opCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	before, err := c.scrollHeight(opCtx)
	if err != nil {
		return false, err
	}

	if _, err := c.page.Context(opCtx).Eval(scrollToBottomJS); err != nil {
		return false, xerrors.NewTransport("browser.Advance", "scroll", err)
	}

	if err := settle(opCtx, c.cfg.LoadSettle); err != nil {
		return false, xerrors.NewTransport("browser.Advance", "wait for lazy load", err)
	}

	after, err := c.scrollHeight(opCtx)
	if err != nil {
		return false, err
	}

	return after > before, nil
}

// Scroll performs one viewport-sized scroll step.
func (c *Client) Scroll(ctx context.Context) error {
	opCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	if _, err := c.page.Context(opCtx).Eval(scrollStepJS); err != nil {
		return xerrors.NewTransport("browser.Scroll", "scroll step", err)
	}
	return nil
}

// EngageVisible clicks a like control currently in the viewport.
func (c *Client) EngageVisible(ctx context.Context) error {
	opCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	res, err := c.page.Context(opCtx).Eval(engageVisibleJS)
	if err != nil {
		return xerrors.NewTransport("browser.EngageVisible", "click like", err)
	}
	if !res.Value.Bool() {
		return ErrElementNotFound
	}
	return nil
}

// OpenAndReturn opens the first visible item, lets it render, and navigates
// back to the feed.
func (c *Client) OpenAndReturn(ctx context.Context) error {
	opCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	res, err := c.page.Context(opCtx).Eval(openItemJS)
	if err != nil {
		return xerrors.NewTransport("browser.OpenAndReturn", "open item", err)
	}
	if !res.Value.Bool() {
		return ErrElementNotFound
	}

	if err := settle(opCtx, c.cfg.LoadSettle); err != nil {
		return xerrors.NewTransport("browser.OpenAndReturn", "wait after open", err)
	}

	if err := c.page.Context(opCtx).NavigateBack(); err != nil {
		return xerrors.NewTransport("browser.OpenAndReturn", "navigate back", err)
	}
	if err := c.page.Context(opCtx).WaitLoad(); err != nil {
		return xerrors.NewTransport("browser.OpenAndReturn", "wait after return", err)
	}

	return nil
}

func (c *Client) navigate(ctx context.Context, u string) error {
	if err := c.page.Context(ctx).Navigate(u); err != nil {
		return xerrors.NewTransport("browser.navigate", "navigate "+u, err)
	}
	if err := c.page.Context(ctx).WaitLoad(); err != nil {
		return xerrors.NewTransport("browser.navigate", "wait load "+u, err)
	}
	// Let client-side rendering settle before the DOM is inspected.
	if err := settle(ctx, c.cfg.LoadSettle); err != nil {
		return xerrors.NewTransport("browser.navigate", "settle "+u, err)
	}
	return nil
}

func (c *Client) scrollHeight(ctx context.Context) (int, error) {
	res, err := c.page.Context(ctx).Eval(scrollHeightJS)
	if err != nil {
		return 0, xerrors.NewTransport("browser.Advance", "read scroll height", err)
	}
	return res.Value.Int(), nil
}

// settle pauses for d, honoring ctx.
func settle(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// cookieDomain derives the cookie domain (".host") from the base URL.
func cookieDomain(base string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	return "." + u.Hostname(), nil
}
