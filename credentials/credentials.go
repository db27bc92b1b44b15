// Package credentials persists the long-lived refresh credential the
// provider issues on first consent. The provider does not re-issue it on
// later sign-ins, so this record is the only way a returning user's session
// regains silent refresh.
package credentials

import (
	"context"
	"errors"
)

// ErrNotFound is returned by FindByEmail when no record exists for the
// identity. Lookup failures are returned as distinct errors.
var ErrNotFound = errors.New("credential record not found")

// Record is the durable refresh credential for one verified identity.
// At most one record exists per email.
type Record struct {
	Email        string
	RefreshToken string
}

// Repo defines the credential store contract. Upsert has create-or-replace
// semantics keyed by email.
type Repo interface {
	Upsert(ctx context.Context, email, refreshToken string) error
	FindByEmail(ctx context.Context, email string) (*Record, error)
}
