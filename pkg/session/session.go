// Package session holds decrypted delegated session credentials for the
// duration of one crawl invocation. Credential values never appear in logs
// or error messages; only masked forms are printable.
package session

import (
	"encoding/json"
	"fmt"
	"time"

	"xscraper/pkg/errors"
	"xscraper/pkg/secrets"
)

// Cookie names the target site requires for a delegated session.
const (
	CookieAuthToken = "auth_token"
	CookieCSRF      = "ct0"
)

// Credentials is the opaque cookie-name to value map for one session.
type Credentials map[string]string

// Session represents one user's delegated access to the remote site. The
// raw credential values are reachable only through Cookies; everything else
// about the session is safe to log.
type Session struct {
	ID         string
	IsActive   bool
	LastUsedAt time.Time
	ExpiresAt  time.Time

	creds Credentials
}

// Open decrypts the supplied blob with the given cipher and returns a
// Session holding the credentials in memory. An undecryptable or malformed
// blob yields a credential error; whether the session is actually valid on
// the remote site is only discoverable via a live authentication attempt.
func Open(id string, ciphertext []byte, cipher secrets.Cipher, expiresAt time.Time) (*Session, error) {
	plaintext, err := cipher.Decrypt(ciphertext)
	if err != nil {
		return nil, errors.NewCredential("session.Open", "cannot decrypt credential blob", err)
	}

	var creds Credentials
	if err := json.Unmarshal(plaintext, &creds); err != nil {
		return nil, errors.NewCredential("session.Open", "credential blob is not a valid credential map", err)
	}

	if creds[CookieAuthToken] == "" || creds[CookieCSRF] == "" {
		return nil, errors.NewCredential("session.Open",
			fmt.Sprintf("credential map missing %s or %s", CookieAuthToken, CookieCSRF), nil)
	}

	return &Session{
		ID:        id,
		IsActive:  true,
		ExpiresAt: expiresAt,
		creds:     creds,
	}, nil
}

// Seal encrypts a credential map into a storable blob. The inverse of Open.
func Seal(creds Credentials, cipher secrets.Cipher) ([]byte, error) {
	plaintext, err := json.Marshal(creds)
	if err != nil {
		return nil, err
	}
	return cipher.Encrypt(plaintext)
}

// Cookies returns a copy of the credential map. Read-only with respect to
// the session; mutating the returned map has no effect.
func (s *Session) Cookies() Credentials {
	out := make(Credentials, len(s.creds))
	for k, v := range s.creds {
		out[k] = v
	}
	return out
}

// Expired reports whether the advisory TTL has passed. It is not verified
// against the remote site.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}

// Touch records a successful use. Called by the owner after each crawl.
func (s *Session) Touch(now time.Time) {
	s.LastUsedAt = now
}

// Revoke marks the session inactive.
func (s *Session) Revoke() {
	s.IsActive = false
}

// String renders the session with masked credentials.
func (s *Session) String() string {
	return fmt.Sprintf("session %s (active=%t, %s=%s, %s=%s)",
		s.ID, s.IsActive,
		CookieAuthToken, mask(s.creds[CookieAuthToken]),
		CookieCSRF, mask(s.creds[CookieCSRF]))
}

// mask hides all but the first 4 and last 4 characters of a value.
func mask(s string) string {
	if len(s) <= 8 {
		return "********"
	}
	return s[:4] + "..." + s[len(s)-4:]
}
