package websession_test

import (
	"testing"
	"time"

	"github.com/jrsteele09/go-auth-client/websession"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func TestUpsertAndGet(t *testing.T) {
	repo := websession.NewInMemoryRepo()

	session := &websession.Session{
		ID:        "session-1",
		State:     "S1",
		CreatedAt: testNow,
		ExpiresAt: testNow.Add(14 * 24 * time.Hour),
	}
	require.NoError(t, repo.Upsert(session))

	stored, err := repo.Get("session-1")
	require.NoError(t, err)
	require.Equal(t, "S1", stored.State)
	require.Nil(t, stored.Tokens)
}

func TestGetReturnsCopy(t *testing.T) {
	repo := websession.NewInMemoryRepo()

	session := &websession.Session{
		ID: "session-1",
		Tokens: &websession.TokenSet{
			AccessToken: "access-1",
			Expiry:      testNow.Add(time.Hour),
		},
	}
	require.NoError(t, repo.Upsert(session))

	first, err := repo.Get("session-1")
	require.NoError(t, err)
	first.Tokens.AccessToken = "mutated"

	second, err := repo.Get("session-1")
	require.NoError(t, err)
	require.Equal(t, "access-1", second.Tokens.AccessToken)
}

func TestGetNotFound(t *testing.T) {
	repo := websession.NewInMemoryRepo()

	_, err := repo.Get("missing")
	require.ErrorIs(t, err, websession.ErrNotFound)
}

func TestDelete(t *testing.T) {
	repo := websession.NewInMemoryRepo()
	require.NoError(t, repo.Upsert(&websession.Session{ID: "session-1"}))
	require.NoError(t, repo.Delete("session-1"))

	_, err := repo.Get("session-1")
	require.ErrorIs(t, err, websession.ErrNotFound)
}

func TestDeleteExpired(t *testing.T) {
	repo := websession.NewInMemoryRepo()

	require.NoError(t, repo.Upsert(&websession.Session{ID: "old", ExpiresAt: testNow.Add(-time.Hour)}))
	require.NoError(t, repo.Upsert(&websession.Session{ID: "live", ExpiresAt: testNow.Add(time.Hour)}))

	require.NoError(t, repo.DeleteExpired(testNow))

	_, err := repo.Get("old")
	require.ErrorIs(t, err, websession.ErrNotFound)
	_, err = repo.Get("live")
	require.NoError(t, err)
}

func TestExpiresWithin(t *testing.T) {
	tokens := &websession.TokenSet{Expiry: testNow.Add(time.Hour)}

	require.False(t, tokens.ExpiresWithin(testNow, time.Minute))
	require.True(t, tokens.ExpiresWithin(testNow.Add(59*time.Minute), time.Minute))
	require.True(t, tokens.ExpiresWithin(testNow.Add(time.Hour), time.Minute))
	require.True(t, tokens.ExpiresWithin(testNow.Add(2*time.Hour), time.Minute))
}
