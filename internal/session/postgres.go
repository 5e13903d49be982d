package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Database is the subset of *pgxpool.Pool used by PostgresStore.
type Database interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore persists the token pair of one account, so a restarted process keeps its refresh token.
type PostgresStore struct {
	db      Database
	account string
	log     *slog.Logger
}

// NewDatabase opens a connection pool and verifies it with a ping.
func NewDatabase(ctx context.Context, host, port, user, password, name string) (*pgxpool.Pool, error) {
	dsn := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(user, password),
		Host:     net.JoinHostPort(host, port),
		Path:     name,
		RawQuery: "sslmode=disable",
	}

	pool, err := pgxpool.New(ctx, dsn.String())
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err = pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return pool, nil
}

// NewPostgresStore creates a store for the given account name.
func NewPostgresStore(db Database, account string, log *slog.Logger) *PostgresStore {
	return &PostgresStore{db: db, account: account, log: log}
}

// EnsureSchema creates the sessions table when it does not exist.
func (ps *PostgresStore) EnsureSchema(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS venuemap_sessions (
			account TEXT PRIMARY KEY,
			access_token TEXT NOT NULL DEFAULT '',
			refresh_token TEXT NOT NULL DEFAULT '',
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);
	`

	if _, err := ps.db.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create sessions table: %w", err)
	}

	return nil
}

func (ps *PostgresStore) AccessToken(ctx context.Context) (string, error) {
	access, _, err := ps.tokens(ctx)
	if err != nil {
		return "", err
	}
	if access == "" {
		return "", ErrNoSession
	}

	return access, nil
}

func (ps *PostgresStore) RefreshToken(ctx context.Context) (string, error) {
	_, refresh, err := ps.tokens(ctx)
	if err != nil {
		return "", err
	}
	if refresh == "" {
		return "", ErrNoSession
	}

	return refresh, nil
}

// SetTokens upserts the token pair. An empty refresh token leaves the stored one in place.
func (ps *PostgresStore) SetTokens(ctx context.Context, access, refresh string) error {
	query := `
		INSERT INTO venuemap_sessions (account, access_token, refresh_token, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (account) DO UPDATE
		SET
			access_token = EXCLUDED.access_token,
			refresh_token = COALESCE(NULLIF(EXCLUDED.refresh_token, ''), venuemap_sessions.refresh_token),
			updated_at = now();
	`

	if _, err := ps.db.Exec(ctx, query, ps.account, access, refresh); err != nil {
		return fmt.Errorf("failed to store session tokens: %w", err)
	}

	ps.log.DebugContext(ctx, "Session tokens stored", "account", ps.account, "refresh_rotated", refresh != "")
	return nil
}

func (ps *PostgresStore) Clear(ctx context.Context) error {
	query := `DELETE FROM venuemap_sessions WHERE account = $1;`

	if _, err := ps.db.Exec(ctx, query, ps.account); err != nil {
		return fmt.Errorf("failed to clear session tokens: %w", err)
	}

	ps.log.InfoContext(ctx, "Session cleared", "account", ps.account)
	return nil
}

func (ps *PostgresStore) tokens(ctx context.Context) (string, string, error) {
	query := `SELECT access_token, refresh_token FROM venuemap_sessions WHERE account = $1;`

	var access, refresh string
	err := ps.db.QueryRow(ctx, query, ps.account).Scan(&access, &refresh)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", "", ErrNoSession
	}
	if err != nil {
		return "", "", fmt.Errorf("failed to read session tokens: %w", err)
	}

	return access, refresh, nil
}
