package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tordrt/autogql/internal/sqlgen"
)

// WatchChannel is the notification channel the watch trigger publishes to
const WatchChannel = "autogql_watch"

// PostgresClient manages the connection pool to PostgreSQL
type PostgresClient struct {
	pool *pgxpool.Pool
}

// NewPostgresClient creates a new PostgreSQL client.
// Arguments are sent with the simple protocol so the server coerces textual
// values (big integers, timestamps, uuids) to the column types.
func NewPostgresClient(ctx context.Context, connString string) (*PostgresClient, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}
	cfg.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Test the connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresClient{pool: pool}, nil
}

func (c *PostgresClient) Dialect() sqlgen.Dialect {
	return sqlgen.Postgres{}
}

func (c *PostgresClient) Query(ctx context.Context, query string, args ...any) ([]Row, error) {
	rows, err := c.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, WrapError(err)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	var result []Row
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, WrapError(err)
		}

		row := make(Row, len(fields))
		for i, f := range fields {
			row[f.Name] = normalizeValue(values[i])
		}
		result = append(result, row)
	}

	if err := rows.Err(); err != nil {
		return nil, WrapError(err)
	}
	return result, nil
}

func (c *PostgresClient) Exec(ctx context.Context, query string, args ...any) (ExecResult, error) {
	tag, err := c.pool.Exec(ctx, query, args...)
	if err != nil {
		return ExecResult{}, WrapError(err)
	}
	return ExecResult{RowsAffected: tag.RowsAffected()}, nil
}

func (c *PostgresClient) Ping(ctx context.Context) error {
	return c.pool.Ping(ctx)
}

// Close closes the connection pool
func (c *PostgresClient) Close() error {
	c.pool.Close()
	return nil
}

// GetPool returns the underlying connection pool
func (c *PostgresClient) GetPool() *pgxpool.Pool {
	return c.pool
}

// Listen blocks on LISTEN channel, calling fn for every notification payload
// until ctx is cancelled.
func (c *PostgresClient) Listen(ctx context.Context, channel string, fn func(payload string)) error {
	conn, err := c.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire connection: %w", err)
	}
	defer func() {
		// ctx is usually done by now
		cleanup, cancel := context.WithTimeout(context.Background(), unlistenTimeout)
		defer cancel()
		releaseListener(cleanup, conn)
	}()

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{channel}.Sanitize()); err != nil {
		return fmt.Errorf("failed to listen on %s: %w", channel, err)
	}

	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("failed to wait for notification: %w", err)
		}
		fn(n.Payload)
	}
}

const unlistenTimeout = 5 * time.Second

// pooledConn is the part of *pgxpool.Conn a listener hands back
type pooledConn interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Release()
	Hijack() *pgx.Conn
}

// releaseListener drops the session's subscriptions before the connection
// returns to the pool. A connection that cannot be reset is closed instead.
func releaseListener(ctx context.Context, conn pooledConn) {
	if _, err := conn.Exec(ctx, "UNLISTEN *"); err == nil {
		conn.Release()
		return
	}
	if raw := conn.Hijack(); raw != nil {
		_ = raw.Close(ctx)
	}
}

const watchTriggerSQL = `
CREATE OR REPLACE FUNCTION autogql_watch_notify() RETURNS event_trigger AS $$
BEGIN
	PERFORM pg_notify('autogql_watch', tg_tag);
END;
$$ LANGUAGE plpgsql;

DROP EVENT TRIGGER IF EXISTS autogql_watch_ddl;
CREATE EVENT TRIGGER autogql_watch_ddl ON ddl_command_end
	EXECUTE PROCEDURE autogql_watch_notify();
`

// InstallWatchTrigger installs an event trigger notifying WatchChannel on DDL.
// It needs superuser rights; callers fall back to polling when it fails.
func (c *PostgresClient) InstallWatchTrigger(ctx context.Context) error {
	if _, err := c.pool.Exec(ctx, watchTriggerSQL); err != nil {
		return WrapError(err)
	}
	return nil
}
