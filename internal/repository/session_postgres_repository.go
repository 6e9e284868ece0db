package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// pgExecutor is the subset of *pgxpool.Pool the repository uses.
type pgExecutor interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
}

type postgresSessionRepository struct {
	db        pgExecutor
	retention time.Duration
}

// NewPostgresSessionRepository returns a Postgres-backed implementation over the
// console_sessions table. Rows older than retention read as absent; zero disables that.
func NewPostgresSessionRepository(pool *pgxpool.Pool, retention time.Duration) SessionRepository {
	return newPostgresSessionRepository(pool, retention)
}

func newPostgresSessionRepository(db pgExecutor, retention time.Duration) *postgresSessionRepository {
	return &postgresSessionRepository{db: db, retention: retention}
}

func (r *postgresSessionRepository) Get(ctx context.Context, scope, key string) (string, bool, error) {
	const query = `
        SELECT value FROM console_sessions
        WHERE scope=$1 AND key=$2
          AND ($3::bigint = 0 OR updated_at > NOW() - make_interval(secs => $3::bigint))`

	var value string
	err := r.db.QueryRow(ctx, query, scope, key, int64(r.retention.Seconds())).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get session[%s]: %w", key, err)
	}
	return value, true, nil
}

func (r *postgresSessionRepository) Set(ctx context.Context, scope, key, value string) error {
	const query = `
        INSERT INTO console_sessions (scope, key, value, updated_at)
        VALUES ($1, $2, $3, NOW())
        ON CONFLICT (scope, key) DO UPDATE SET value = excluded.value, updated_at = NOW()`

	if _, err := r.db.Exec(ctx, query, scope, key, value); err != nil {
		return fmt.Errorf("set session[%s]: %w", key, err)
	}
	return nil
}

func (r *postgresSessionRepository) Delete(ctx context.Context, scope string, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	const query = `DELETE FROM console_sessions WHERE scope=$1 AND key = ANY($2)`

	if _, err := r.db.Exec(ctx, query, scope, keys); err != nil {
		return fmt.Errorf("delete session keys: %w", err)
	}
	return nil
}

func (r *postgresSessionRepository) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}
