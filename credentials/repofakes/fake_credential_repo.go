package repofakes

import (
	"context"
	"sync"

	"github.com/jrsteele09/go-auth-client/credentials"
)

var _ credentials.Repo = (*FakeCredentialRepo)(nil)

// FakeCredentialRepo is a test double that records calls and can be made to
// fail on demand.
type FakeCredentialRepo struct {
	lock    sync.RWMutex
	records map[string]credentials.Record

	UpsertCalls int
	UpsertErr   error // returned by every Upsert when set
	FindErr     error // returned by every FindByEmail when set
}

func NewFakeCredentialRepo() *FakeCredentialRepo {
	return &FakeCredentialRepo{records: make(map[string]credentials.Record)}
}

func (r *FakeCredentialRepo) Upsert(_ context.Context, email, refreshToken string) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	r.UpsertCalls++
	if r.UpsertErr != nil {
		return r.UpsertErr
	}
	r.records[email] = credentials.Record{Email: email, RefreshToken: refreshToken}
	return nil
}

func (r *FakeCredentialRepo) FindByEmail(_ context.Context, email string) (*credentials.Record, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	if r.FindErr != nil {
		return nil, r.FindErr
	}
	record, ok := r.records[email]
	if !ok {
		return nil, credentials.ErrNotFound
	}
	return &record, nil
}

// Count returns the number of stored records
func (r *FakeCredentialRepo) Count() int {
	r.lock.RLock()
	defer r.lock.RUnlock()
	return len(r.records)
}
