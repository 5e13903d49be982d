package session_test

import (
	"log/slog"
	"regexp"
	"testing"

	"github.com/UnknownOlympus/venuemap/internal/session"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	selectTokensQuery = `SELECT access_token, refresh_token FROM venuemap_sessions WHERE account = $1;`
	upsertTokensQuery = `INSERT INTO venuemap_sessions (account, access_token, refresh_token, updated_at)`
	deleteTokensQuery = `DELETE FROM venuemap_sessions WHERE account = $1;`
)

func TestPostgresStore_AccessToken(t *testing.T) {
	t.Parallel()
	logger := slog.Default()
	ctx := t.Context()

	t.Run("error - query tokens", func(t *testing.T) {
		t.Parallel()
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		store := session.NewPostgresStore(mock, "alice", logger)

		mock.ExpectQuery(regexp.QuoteMeta(selectTokensQuery)).
			WithArgs("alice").
			WillReturnError(assert.AnError)

		token, err := store.AccessToken(ctx)

		require.Empty(t, token)
		require.ErrorIs(t, err, assert.AnError)
		require.ErrorContains(t, err, "failed to read session tokens")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("error - no session row", func(t *testing.T) {
		t.Parallel()
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		store := session.NewPostgresStore(mock, "alice", logger)

		mock.ExpectQuery(regexp.QuoteMeta(selectTokensQuery)).
			WithArgs("alice").
			WillReturnRows(pgxmock.NewRows([]string{"access_token", "refresh_token"}))

		token, err := store.AccessToken(ctx)

		require.Empty(t, token)
		require.ErrorIs(t, err, session.ErrNoSession)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("error - empty access token", func(t *testing.T) {
		t.Parallel()
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		store := session.NewPostgresStore(mock, "alice", logger)

		mock.ExpectQuery(regexp.QuoteMeta(selectTokensQuery)).
			WithArgs("alice").
			WillReturnRows(pgxmock.NewRows([]string{"access_token", "refresh_token"}).AddRow("", "refresh"))

		token, err := store.AccessToken(ctx)

		require.Empty(t, token)
		require.ErrorIs(t, err, session.ErrNoSession)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("success - read tokens", func(t *testing.T) {
		t.Parallel()
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		store := session.NewPostgresStore(mock, "alice", logger)

		mock.ExpectQuery(regexp.QuoteMeta(selectTokensQuery)).
			WithArgs("alice").
			WillReturnRows(pgxmock.NewRows([]string{"access_token", "refresh_token"}).AddRow("access", "refresh"))
		mock.ExpectQuery(regexp.QuoteMeta(selectTokensQuery)).
			WithArgs("alice").
			WillReturnRows(pgxmock.NewRows([]string{"access_token", "refresh_token"}).AddRow("access", "refresh"))

		access, err := store.AccessToken(ctx)
		require.NoError(t, err)
		refresh, err := store.RefreshToken(ctx)
		require.NoError(t, err)

		assert.Equal(t, "access", access)
		assert.Equal(t, "refresh", refresh)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgresStore_SetTokens(t *testing.T) {
	t.Parallel()
	logger := slog.Default()
	ctx := t.Context()

	t.Run("error - upsert tokens", func(t *testing.T) {
		t.Parallel()
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		store := session.NewPostgresStore(mock, "alice", logger)

		mock.ExpectExec(regexp.QuoteMeta(upsertTokensQuery)).
			WithArgs("alice", "access", "refresh").
			WillReturnError(assert.AnError)

		err = store.SetTokens(ctx, "access", "refresh")

		require.ErrorIs(t, err, assert.AnError)
		require.ErrorContains(t, err, "failed to store session tokens")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("success - upsert tokens", func(t *testing.T) {
		t.Parallel()
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		store := session.NewPostgresStore(mock, "alice", logger)

		mock.ExpectExec(regexp.QuoteMeta(upsertTokensQuery)).
			WithArgs("alice", "access", "").
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		err = store.SetTokens(ctx, "access", "")

		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgresStore_Clear(t *testing.T) {
	t.Parallel()
	logger := slog.Default()
	ctx := t.Context()

	t.Run("error - delete tokens", func(t *testing.T) {
		t.Parallel()
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		store := session.NewPostgresStore(mock, "alice", logger)

		mock.ExpectExec(regexp.QuoteMeta(deleteTokensQuery)).
			WithArgs("alice").
			WillReturnError(assert.AnError)

		err = store.Clear(ctx)

		require.ErrorIs(t, err, assert.AnError)
		require.ErrorContains(t, err, "failed to clear session tokens")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("success - delete tokens", func(t *testing.T) {
		t.Parallel()
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		store := session.NewPostgresStore(mock, "alice", logger)

		mock.ExpectExec(regexp.QuoteMeta(deleteTokensQuery)).
			WithArgs("alice").
			WillReturnResult(pgxmock.NewResult("DELETE", 1))

		err = store.Clear(ctx)

		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgresStore_EnsureSchema(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := session.NewPostgresStore(mock, "alice", slog.Default())

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS venuemap_sessions")).
		WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))

	require.NoError(t, store.EnsureSchema(t.Context()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
