// Package sqlite provides the durable credential store. Refresh credentials
// must outlive sessions, so unlike the session store this one is not
// optional in a real deployment.
package sqlite

import (
	"context"
	"database/sql"

	"github.com/jrsteele09/go-auth-client/credentials"
	"github.com/pkg/errors"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS oauth_credentials (
	email         TEXT PRIMARY KEY,
	refresh_token TEXT NOT NULL
);
`

// Store provides SQLite-backed persistence for credential records.
type Store struct {
	sqlDB *sql.DB
}

var _ credentials.Repo = (*Store)(nil)

// New creates the credentials table if needed and returns a Store sharing
// the given database handle.
func New(sqlDB *sql.DB) (*Store, error) {
	if sqlDB == nil {
		return nil, errors.New("[sqlite.New] database handle is required")
	}
	if _, err := sqlDB.Exec(schema); err != nil {
		return nil, errors.Wrap(err, "[sqlite.New] create credentials schema")
	}
	return &Store{sqlDB: sqlDB}, nil
}

func (s *Store) Upsert(ctx context.Context, email, refreshToken string) error {
	if email == "" {
		return errors.New("[Store.Upsert] email is required")
	}

	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO oauth_credentials (email, refresh_token) VALUES (?, ?)
ON CONFLICT(email) DO UPDATE SET refresh_token = excluded.refresh_token
`, email, refreshToken)
	if err != nil {
		return errors.Wrap(err, "[Store.Upsert] upsert credential")
	}
	return nil
}

func (s *Store) FindByEmail(ctx context.Context, email string) (*credentials.Record, error) {
	row := s.sqlDB.QueryRowContext(ctx, `
SELECT email, refresh_token FROM oauth_credentials WHERE email = ?`, email)

	var record credentials.Record
	err := row.Scan(&record.Email, &record.RefreshToken)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, credentials.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "[Store.FindByEmail] scan credential")
	}
	return &record, nil
}
