package credentials

import (
	"context"
	"sync"

	"github.com/pkg/errors"
)

// InMemoryRepo is an in-memory implementation of Repo
type InMemoryRepo struct {
	mu      sync.RWMutex
	records map[string]Record
}

var _ Repo = (*InMemoryRepo)(nil)

// NewInMemoryRepo creates a new in-memory credential repository
func NewInMemoryRepo() *InMemoryRepo {
	return &InMemoryRepo{records: make(map[string]Record)}
}

func (r *InMemoryRepo) Upsert(_ context.Context, email, refreshToken string) error {
	if email == "" {
		return errors.New("[InMemoryRepo.Upsert] email is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[email] = Record{Email: email, RefreshToken: refreshToken}
	return nil
}

func (r *InMemoryRepo) FindByEmail(_ context.Context, email string) (*Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	record, ok := r.records[email]
	if !ok {
		return nil, ErrNotFound
	}
	return &record, nil
}
