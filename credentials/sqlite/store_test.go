package sqlite_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/jrsteele09/go-auth-client/credentials"
	credsqlite "github.com/jrsteele09/go-auth-client/credentials/sqlite"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *credsqlite.Store {
	t.Helper()

	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	store, err := credsqlite.New(db)
	require.NoError(t, err)
	return store
}

func TestUpsertAndFind(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, "john.doe@example.com", "refresh-1"))

	record, err := store.FindByEmail(ctx, "john.doe@example.com")
	require.NoError(t, err)
	require.Equal(t, "john.doe@example.com", record.Email)
	require.Equal(t, "refresh-1", record.RefreshToken)
}

func TestUpsertReplacesExistingRecord(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, "john.doe@example.com", "refresh-1"))
	require.NoError(t, store.Upsert(ctx, "john.doe@example.com", "refresh-2"))

	record, err := store.FindByEmail(ctx, "john.doe@example.com")
	require.NoError(t, err)
	require.Equal(t, "refresh-2", record.RefreshToken)
}

func TestFindByEmailNotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.FindByEmail(context.Background(), "nobody@example.com")
	require.ErrorIs(t, err, credentials.ErrNotFound)
}
