package browser

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"xscraper/pkg/records"
	"xscraper/pkg/session"
)

// ErrElementNotFound reports that a passive-browsing action found nothing to
// act on. Callers skip the action; it never aborts a run.
var ErrElementNotFound = errors.New("browser: element not found")

// TargetKind selects one of the three supported page shapes.
type TargetKind string

const (
	// TargetContent is the live content search results feed.
	TargetContent TargetKind = "content"
	// TargetProfile is a single profile page.
	TargetProfile TargetKind = "profile"
	// TargetPeople is the people search results page.
	TargetPeople TargetKind = "people"
)

// TargetSpec names what a crawl should fetch: a search keyword, a profile
// URL or handle, or a niche string for people search.
type TargetSpec struct {
	Kind  TargetKind
	Query string
}

// RecordKind maps the target shape to the record kind it yields.
func (t TargetSpec) RecordKind() records.Kind {
	switch t.Kind {
	case TargetProfile:
		return records.KindProfile
	case TargetPeople:
		return records.KindPerson
	default:
		return records.KindPost
	}
}

// URL builds the navigation URL for the target against the site base URL.
func (t TargetSpec) URL(base string) (string, error) {
	base = strings.TrimRight(base, "/")
	q := strings.TrimSpace(t.Query)
	if q == "" {
		return "", fmt.Errorf("browser: empty target query")
	}

	switch t.Kind {
	case TargetContent:
		return base + "/search?q=" + url.QueryEscape(q) + "&f=live", nil
	case TargetPeople:
		return base + "/search?q=" + url.QueryEscape(q) + "&f=user", nil
	case TargetProfile:
		// Accept either a full profile URL or a bare handle.
		if strings.HasPrefix(q, "http://") || strings.HasPrefix(q, "https://") {
			if _, err := url.Parse(q); err != nil {
				return "", fmt.Errorf("browser: invalid profile URL: %w", err)
			}
			return q, nil
		}
		return base + "/" + url.PathEscape(strings.TrimPrefix(q, "@")), nil
	default:
		return "", fmt.Errorf("browser: unknown target kind %q", t.Kind)
	}
}

// PageDriver is what the collector needs from a rendered page. One driver
// wraps one browser page; a crawl invocation owns its driver exclusively.
type PageDriver interface {
	// Authenticate applies session credentials, navigates to the logged-in
	// home URL, and reports whether the session is live. false is a clean
	// "not logged in" result; errors are transport-level only.
	Authenticate(ctx context.Context, sess *session.Session) (bool, error)

	// NavigateToTarget builds the URL for the target and navigates.
	NavigateToTarget(ctx context.Context, target TargetSpec) error

	// ExtractCurrentPage parses the rendered DOM into per-item extraction
	// attempts. Best-effort: missing fields are tolerated and items with no
	// content are tagged as skips, never errors.
	ExtractCurrentPage(ctx context.Context) ([]records.ExtractionAttempt, error)

	// Advance triggers the lazy-load scroll and reports whether the page's
	// scrollable height changed. An unchanged height signals stagnation.
	Advance(ctx context.Context) (bool, error)
}

// ActionDriver is what the passive-browsing simulator needs from a page.
type ActionDriver interface {
	Scroll(ctx context.Context) error
	EngageVisible(ctx context.Context) error
	OpenAndReturn(ctx context.Context) error
}
