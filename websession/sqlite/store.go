// Package sqlite provides a SQLite-backed session store so that sessions
// (and any refreshed token they carry) survive process restarts.
package sqlite

import (
	"database/sql"
	"time"

	"github.com/jrsteele09/go-auth-client/websession"
	"github.com/pkg/errors"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id            TEXT PRIMARY KEY,
	state         TEXT NOT NULL DEFAULT '',
	access_token  TEXT NOT NULL DEFAULT '',
	refresh_token TEXT NOT NULL DEFAULT '',
	token_expiry  INTEGER NOT NULL DEFAULT 0,
	created_at    INTEGER NOT NULL,
	expires_at    INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_sessions_expires_at ON sessions(expires_at);
`

// Store provides SQLite-backed persistence for browser sessions.
type Store struct {
	sqlDB *sql.DB
}

var _ websession.Repo = (*Store)(nil)

// New creates the sessions table if needed and returns a Store sharing the
// given database handle.
func New(sqlDB *sql.DB) (*Store, error) {
	if sqlDB == nil {
		return nil, errors.New("[sqlite.New] database handle is required")
	}
	if _, err := sqlDB.Exec(schema); err != nil {
		return nil, errors.Wrap(err, "[sqlite.New] create sessions schema")
	}
	return &Store{sqlDB: sqlDB}, nil
}

func (s *Store) Upsert(session *websession.Session) error {
	if session == nil || session.ID == "" {
		return errors.New("[Store.Upsert] session ID is required")
	}

	var accessToken, refreshToken string
	var tokenExpiry int64
	if session.Tokens != nil {
		accessToken = session.Tokens.AccessToken
		refreshToken = session.Tokens.RefreshToken
		tokenExpiry = toMillis(session.Tokens.Expiry)
	}

	_, err := s.sqlDB.Exec(`
INSERT INTO sessions (id, state, access_token, refresh_token, token_expiry, created_at, expires_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	state = excluded.state,
	access_token = excluded.access_token,
	refresh_token = excluded.refresh_token,
	token_expiry = excluded.token_expiry,
	expires_at = excluded.expires_at
`,
		session.ID,
		session.State,
		accessToken,
		refreshToken,
		tokenExpiry,
		toMillis(session.CreatedAt),
		toMillis(session.ExpiresAt),
	)
	if err != nil {
		return errors.Wrap(err, "[Store.Upsert] upsert session")
	}
	return nil
}

func (s *Store) Get(sessionID string) (*websession.Session, error) {
	row := s.sqlDB.QueryRow(`
SELECT id, state, access_token, refresh_token, token_expiry, created_at, expires_at
FROM sessions WHERE id = ?`, sessionID)

	var session websession.Session
	var accessToken, refreshToken string
	var tokenExpiry, createdAt, expiresAt int64
	err := row.Scan(&session.ID, &session.State, &accessToken, &refreshToken, &tokenExpiry, &createdAt, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, websession.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "[Store.Get] scan session")
	}

	session.CreatedAt = fromMillis(createdAt)
	session.ExpiresAt = fromMillis(expiresAt)
	if accessToken != "" {
		session.Tokens = &websession.TokenSet{
			AccessToken:  accessToken,
			RefreshToken: refreshToken,
			Expiry:       fromMillis(tokenExpiry),
		}
	}
	return &session, nil
}

func (s *Store) Delete(sessionID string) error {
	if _, err := s.sqlDB.Exec(`DELETE FROM sessions WHERE id = ?`, sessionID); err != nil {
		return errors.Wrap(err, "[Store.Delete] delete session")
	}
	return nil
}

func (s *Store) DeleteExpired(before time.Time) error {
	if _, err := s.sqlDB.Exec(`DELETE FROM sessions WHERE expires_at > 0 AND expires_at < ?`, toMillis(before)); err != nil {
		return errors.Wrap(err, "[Store.DeleteExpired] delete sessions")
	}
	return nil
}

func toMillis(value time.Time) int64 {
	if value.IsZero() {
		return 0
	}
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	if value == 0 {
		return time.Time{}
	}
	return time.UnixMilli(value).UTC()
}
