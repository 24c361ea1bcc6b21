// Package records defines the unit of extraction and its dedup identity.
package records

import (
	"strings"
	"time"
)

// Kind identifies which page shape a record was extracted from.
type Kind string

const (
	KindPost    Kind = "post"
	KindProfile Kind = "profile"
	KindPerson  Kind = "person"
)

// fingerprintTextLen is how many runes of normalized content feed the
// fingerprint. The rendered DOM exposes no reliably-extractable stable post
// ID, so author + truncated content stands in as a deliberately lossy
// identity key: two posts by the same author with identical opening text
// collapse into one.
const fingerprintTextLen = 80

// Record is one extracted post, profile, or person summary. Fields vary by
// kind; missing values are zero, never an error.
type Record struct {
	Kind       Kind      `json:"kind"`
	Author     string    `json:"author,omitempty"`
	Handle     string    `json:"handle,omitempty"`
	Text       string    `json:"text,omitempty"`
	URL        string    `json:"url,omitempty"`
	Likes      int       `json:"likes,omitempty"`
	Reposts    int       `json:"reposts,omitempty"`
	Replies    int       `json:"replies,omitempty"`
	Followers  int       `json:"followers,omitempty"`
	Bio        string    `json:"bio,omitempty"`
	CapturedAt time.Time `json:"captured_at"`
}

// Fingerprint returns the dedup identity key: the lowercased author
// identifier joined with the first fingerprintTextLen runes of
// whitespace-normalized content. Within a single crawl no two returned
// records share a fingerprint.
func (r Record) Fingerprint() string {
	author := r.Handle
	if author == "" {
		author = r.Author
	}

	text := normalizeText(r.Text)
	if text == "" {
		// Profile and person shapes often carry no post text; the bio is
		// the next most stable content field.
		text = normalizeText(r.Bio)
	}

	runes := []rune(text)
	if len(runes) > fingerprintTextLen {
		runes = runes[:fingerprintTextLen]
	}

	return strings.ToLower(strings.TrimSpace(author)) + "|" + string(runes)
}

// HasContent reports whether the record carries anything extractable.
// A record with neither identity nor content is dropped silently.
func (r Record) HasContent() bool {
	return r.Handle != "" || r.Author != "" || strings.TrimSpace(r.Text) != ""
}

// normalizeText lowercases and collapses all whitespace runs to single
// spaces, so rendering differences between scrolls don't defeat dedup.
func normalizeText(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
