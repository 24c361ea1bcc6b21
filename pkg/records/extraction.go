package records

import (
	"strconv"
	"strings"
	"time"
)

// ExtractionStatus tags the outcome of mapping one raw DOM item.
type ExtractionStatus string

const (
	// StatusOK means every expected field was present.
	StatusOK ExtractionStatus = "ok"
	// StatusPartial means the record is usable but some fields fell back
	// to zero values.
	StatusPartial ExtractionStatus = "partial"
	// StatusSkip means nothing extractable was found. Skips are internal;
	// they never abort a page's extraction and are never surfaced.
	StatusSkip ExtractionStatus = "skip"
)

// ExtractionAttempt is the tagged per-item result of best-effort DOM
// scraping. Keeping the boundary explicit makes it testable with fixture
// items instead of silent duck-typed fallbacks.
type ExtractionAttempt struct {
	Status  ExtractionStatus
	Record  Record
	Missing []string
}

// RawItem is the wire shape the in-page extraction script emits. Counter
// fields arrive as rendered strings ("1,204", "3.4K", "1.2M").
type RawItem struct {
	Author    string `json:"author"`
	Handle    string `json:"handle"`
	Text      string `json:"text"`
	URL       string `json:"url"`
	Likes     string `json:"likes"`
	Reposts   string `json:"reposts"`
	Replies   string `json:"replies"`
	Followers string `json:"followers"`
	Bio       string `json:"bio"`
}

// Classify maps one raw item to an ExtractionAttempt for the given kind.
func Classify(raw RawItem, kind Kind, now time.Time) ExtractionAttempt {
	rec := Record{
		Kind:       kind,
		Author:     strings.TrimSpace(raw.Author),
		Handle:     normalizeHandle(raw.Handle),
		Text:       strings.TrimSpace(raw.Text),
		URL:        strings.TrimSpace(raw.URL),
		Likes:      ParseCount(raw.Likes),
		Reposts:    ParseCount(raw.Reposts),
		Replies:    ParseCount(raw.Replies),
		Followers:  ParseCount(raw.Followers),
		Bio:        strings.TrimSpace(raw.Bio),
		CapturedAt: now,
	}

	if !rec.HasContent() {
		return ExtractionAttempt{Status: StatusSkip}
	}

	var missing []string
	switch kind {
	case KindPost:
		if rec.Text == "" {
			missing = append(missing, "text")
		}
		if rec.Handle == "" {
			missing = append(missing, "handle")
		}
		if rec.URL == "" {
			missing = append(missing, "url")
		}
	case KindProfile, KindPerson:
		if rec.Handle == "" {
			missing = append(missing, "handle")
		}
		if rec.Author == "" {
			missing = append(missing, "author")
		}
	}

	status := StatusOK
	if len(missing) > 0 {
		status = StatusPartial
	}

	return ExtractionAttempt{Status: status, Record: rec, Missing: missing}
}

// normalizeHandle strips a leading @ and surrounding whitespace.
func normalizeHandle(h string) string {
	return strings.TrimPrefix(strings.TrimSpace(h), "@")
}

// ParseCount parses a rendered engagement counter. Accepts plain integers,
// comma or space grouped digits, and K/M/B suffixes. Anything unparseable
// is 0.
func ParseCount(s string) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}

	mult := 1.0
	switch {
	case strings.HasSuffix(s, "K"), strings.HasSuffix(s, "k"):
		mult = 1e3
		s = s[:len(s)-1]
	case strings.HasSuffix(s, "M"), strings.HasSuffix(s, "m"):
		mult = 1e6
		s = s[:len(s)-1]
	case strings.HasSuffix(s, "B"), strings.HasSuffix(s, "b"):
		mult = 1e9
		s = s[:len(s)-1]
	}

	s = strings.NewReplacer(",", "", " ", "", " ", "").Replace(s)
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 {
		return 0
	}

	return int(v * mult)
}
