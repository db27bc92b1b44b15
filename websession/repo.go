package websession

import (
	"errors"
	"time"
)

var ErrNotFound = errors.New("session not found")

// Repo defines the storage contract for browser sessions. A session must be
// durably written before a request relies on its token set surviving a
// process restart.
type Repo interface {
	// Upsert creates or replaces a session
	Upsert(session *Session) error

	// Get retrieves a session by ID, returning ErrNotFound when absent
	Get(sessionID string) (*Session, error)

	// Delete removes a session by ID
	Delete(sessionID string) error

	// DeleteExpired removes sessions whose TTL passed before the given time
	DeleteExpired(before time.Time) error
}
