package websession

import (
	"sync"
	"time"

	"github.com/pkg/errors"
)

// InMemoryRepo is an in-memory implementation of Repo. Sessions are stored
// by value so callers cannot mutate stored state without an Upsert.
type InMemoryRepo struct {
	mu       sync.RWMutex
	sessions map[string]Session
}

var _ Repo = (*InMemoryRepo)(nil)

// NewInMemoryRepo creates a new in-memory session repository
func NewInMemoryRepo() *InMemoryRepo {
	return &InMemoryRepo{sessions: make(map[string]Session)}
}

func (r *InMemoryRepo) Upsert(session *Session) error {
	if session == nil || session.ID == "" {
		return errors.New("[InMemoryRepo.Upsert] session ID is required")
	}

	stored := *session
	if session.Tokens != nil {
		tokens := *session.Tokens
		stored.Tokens = &tokens
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[session.ID] = stored
	return nil
}

func (r *InMemoryRepo) Get(sessionID string) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stored, ok := r.sessions[sessionID]
	if !ok {
		return nil, ErrNotFound
	}

	session := stored
	if stored.Tokens != nil {
		tokens := *stored.Tokens
		session.Tokens = &tokens
	}
	return &session, nil
}

func (r *InMemoryRepo) Delete(sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, sessionID)
	return nil
}

func (r *InMemoryRepo) DeleteExpired(before time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, session := range r.sessions {
		if !session.ExpiresAt.IsZero() && session.ExpiresAt.Before(before) {
			delete(r.sessions, id)
		}
	}
	return nil
}
