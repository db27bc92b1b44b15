package websession

import "time"

// TokenSet holds the provider-issued credentials for one authenticated
// session. Expiry is always the provider-declared absolute instant.
type TokenSet struct {
	AccessToken  string
	RefreshToken string    // empty when the provider issued no refresh credential
	Expiry       time.Time // absolute access-token expiry
}

// ExpiresWithin reports whether the access token is inside the given
// safety margin of its expiry (or already past it).
func (t *TokenSet) ExpiresWithin(now time.Time, margin time.Duration) bool {
	return !now.Before(t.Expiry.Add(-margin))
}

// Session is the per-browser-session record. State is the single-use
// anti-CSRF value, set only while an authorization redirect is outstanding.
// Tokens is nil until a callback completes successfully.
type Session struct {
	ID     string
	State  string
	Tokens *TokenSet

	CreatedAt time.Time
	ExpiresAt time.Time // fixed TTL, independent of token expiry
}

// Expired reports whether the session itself (not the access token) has
// passed its TTL.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && s.ExpiresAt.Before(now)
}
