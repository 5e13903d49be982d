//go:build integration

package session_test

import (
	"log/slog"
	"testing"

	"github.com/UnknownOlympus/venuemap/internal/session"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

func setupTestDatabase(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := t.Context()

	ctr, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("venuemap"),
		postgres.WithUsername("venuemap"),
		postgres.WithPassword("venuemap"),
		postgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err)

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	return pool
}

func TestPostgresStore_RoundTrip(t *testing.T) {
	pool := setupTestDatabase(t)
	ctx := t.Context()
	store := session.NewPostgresStore(pool, "moderator", slog.Default())

	require.NoError(t, store.EnsureSchema(ctx))

	_, err := store.AccessToken(ctx)
	require.ErrorIs(t, err, session.ErrNoSession)

	require.NoError(t, store.SetTokens(ctx, "access-1", "refresh-1"))
	require.NoError(t, store.SetTokens(ctx, "access-2", ""))

	access, err := store.AccessToken(ctx)
	require.NoError(t, err)
	refresh, err := store.RefreshToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, "access-2", access)
	assert.Equal(t, "refresh-1", refresh)

	other := session.NewPostgresStore(pool, "someone-else", slog.Default())
	_, err = other.AccessToken(ctx)
	require.ErrorIs(t, err, session.ErrNoSession)

	require.NoError(t, store.Clear(ctx))
	_, err = store.RefreshToken(ctx)
	require.ErrorIs(t, err, session.ErrNoSession)
}
