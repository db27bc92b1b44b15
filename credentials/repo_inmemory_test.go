package credentials_test

import (
	"context"
	"testing"

	"github.com/jrsteele09/go-auth-client/credentials"
	"github.com/stretchr/testify/require"
)

func TestUpsertCreatesRecord(t *testing.T) {
	repo := credentials.NewInMemoryRepo()

	err := repo.Upsert(context.Background(), "john.doe@example.com", "refresh-1")
	require.NoError(t, err)

	record, err := repo.FindByEmail(context.Background(), "john.doe@example.com")
	require.NoError(t, err)
	require.Equal(t, "refresh-1", record.RefreshToken)
}

func TestUpsertIsIdempotent(t *testing.T) {
	repo := credentials.NewInMemoryRepo()
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, "john.doe@example.com", "refresh-1"))
	require.NoError(t, repo.Upsert(ctx, "john.doe@example.com", "refresh-1"))

	record, err := repo.FindByEmail(ctx, "john.doe@example.com")
	require.NoError(t, err)
	require.Equal(t, "refresh-1", record.RefreshToken)
}

func TestUpsertReplacesRefreshToken(t *testing.T) {
	repo := credentials.NewInMemoryRepo()
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, "john.doe@example.com", "refresh-1"))
	require.NoError(t, repo.Upsert(ctx, "john.doe@example.com", "refresh-2"))

	record, err := repo.FindByEmail(ctx, "john.doe@example.com")
	require.NoError(t, err)
	require.Equal(t, "refresh-2", record.RefreshToken)
}

func TestFindByEmailNotFound(t *testing.T) {
	repo := credentials.NewInMemoryRepo()

	_, err := repo.FindByEmail(context.Background(), "nobody@example.com")
	require.ErrorIs(t, err, credentials.ErrNotFound)
}

func TestUpsertRequiresEmail(t *testing.T) {
	repo := credentials.NewInMemoryRepo()

	err := repo.Upsert(context.Background(), "", "refresh-1")
	require.Error(t, err)
}
