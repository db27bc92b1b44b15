package repofakes

import (
	"sync"
	"time"

	"github.com/jrsteele09/go-auth-client/websession"
	"github.com/pkg/errors"
)

var _ websession.Repo = (*FakeSessionRepo)(nil)

// FakeSessionRepo is a test double that records calls and can be made to
// fail on demand.
type FakeSessionRepo struct {
	lock     sync.RWMutex
	sessions map[string]websession.Session

	UpsertCalls int
	UpsertErr   error // returned by every Upsert when set
	GetErr      error // returned by every Get when set
}

func NewFakeSessionRepo() *FakeSessionRepo {
	return &FakeSessionRepo{sessions: make(map[string]websession.Session)}
}

func (r *FakeSessionRepo) Upsert(session *websession.Session) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	r.UpsertCalls++
	if r.UpsertErr != nil {
		return r.UpsertErr
	}
	if session == nil || session.ID == "" {
		return errors.New("session ID is required")
	}
	stored := *session
	if session.Tokens != nil {
		tokens := *session.Tokens
		stored.Tokens = &tokens
	}
	r.sessions[session.ID] = stored
	return nil
}

func (r *FakeSessionRepo) Get(sessionID string) (*websession.Session, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	if r.GetErr != nil {
		return nil, r.GetErr
	}
	stored, ok := r.sessions[sessionID]
	if !ok {
		return nil, websession.ErrNotFound
	}
	session := stored
	if stored.Tokens != nil {
		tokens := *stored.Tokens
		session.Tokens = &tokens
	}
	return &session, nil
}

func (r *FakeSessionRepo) Delete(sessionID string) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	delete(r.sessions, sessionID)
	return nil
}

func (r *FakeSessionRepo) DeleteExpired(before time.Time) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	for id, session := range r.sessions {
		if !session.ExpiresAt.IsZero() && session.ExpiresAt.Before(before) {
			delete(r.sessions, id)
		}
	}
	return nil
}
