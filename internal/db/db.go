// Package db connects to the supported relational stores and introspects their schema.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/tordrt/autogql/internal/schema"
	"github.com/tordrt/autogql/internal/sqlgen"
)

// Row is one result row keyed by column name
type Row map[string]any

// ExecResult reports the effect of a statement that returns no rows
type ExecResult struct {
	RowsAffected int64
	LastInsertID int64
}

// Conn is the pooled connection resolvers run statements against
type Conn interface {
	Dialect() sqlgen.Dialect
	Query(ctx context.Context, query string, args ...any) ([]Row, error)
	Exec(ctx context.Context, query string, args ...any) (ExecResult, error)
	Ping(ctx context.Context) error
	Close() error
}

// SchemaExtractor introspects a store into schema metadata
type SchemaExtractor interface {
	ExtractSchema(ctx context.Context, tables []string) (*schema.Schema, error)
}

// Open connects to the store named by a postgres://, mysql:// or sqlite:// URL
func Open(ctx context.Context, databaseURL string) (Conn, error) {
	dbType, connStr, err := ParseDatabaseURL(databaseURL)
	if err != nil {
		return nil, err
	}

	switch dbType {
	case "postgres":
		return NewPostgresClient(ctx, connStr)
	case "mysql":
		return NewMySQLClient(ctx, connStr)
	case "sqlite":
		return NewSQLiteClient(ctx, connStr)
	default:
		return nil, fmt.Errorf("unsupported database type: %s", dbType)
	}
}

// NewSchemaExtractor returns the extractor matching the connection's dialect.
// An empty schemaName selects the dialect default.
func NewSchemaExtractor(conn Conn, schemaName string) (SchemaExtractor, error) {
	switch c := conn.(type) {
	case *PostgresClient:
		if schemaName == "" {
			schemaName = "public"
		}
		return NewExtractor(c, schemaName), nil
	case *MySQLClient:
		if schemaName == "" || schemaName == "public" {
			schemaName = c.database
		}
		return NewMySQLExtractor(c, schemaName), nil
	case *SQLiteClient:
		return NewSQLiteExtractor(c), nil
	default:
		return nil, fmt.Errorf("no schema extractor for %T", conn)
	}
}

// ParseDatabaseURL detects database type and returns the driver connection string
func ParseDatabaseURL(url string) (dbType, connectionStr string, err error) {
	if url == "" {
		return "", "", fmt.Errorf("database URL is required")
	}

	if strings.HasPrefix(url, "postgres://") || strings.HasPrefix(url, "postgresql://") {
		return "postgres", url, nil
	}

	if strings.HasPrefix(url, "mysql://") {
		// Strip mysql:// prefix for the Go MySQL driver
		return "mysql", strings.TrimPrefix(url, "mysql://"), nil
	}

	if strings.HasPrefix(url, "sqlite://") {
		return "sqlite", strings.TrimPrefix(url, "sqlite://"), nil
	}

	return "", "", fmt.Errorf("invalid database URL scheme (must start with postgres://, mysql://, or sqlite://)")
}

// ParseDatabaseName returns the database name of a MySQL DSN
func ParseDatabaseName(dsn string) (string, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("failed to parse DSN: %w", err)
	}
	if cfg.DBName == "" {
		return "", fmt.Errorf("DSN does not name a database")
	}
	return cfg.DBName, nil
}

// sqlConn implements Conn over database/sql for MySQL and SQLite
type sqlConn struct {
	db      *sql.DB
	dialect sqlgen.Dialect
}

func (c *sqlConn) Dialect() sqlgen.Dialect {
	return c.dialect
}

func (c *sqlConn) Query(ctx context.Context, query string, args ...any) ([]Row, error) {
	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, WrapError(err)
	}
	defer func() { _ = rows.Close() }()

	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, WrapError(err)
	}

	var result []Row
	for rows.Next() {
		values := make([]any, len(types))
		ptrs := make([]any, len(types))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, WrapError(err)
		}

		row := make(Row, len(types))
		for i, t := range types {
			row[t.Name()] = normalizeSQLValue(values[i], t.DatabaseTypeName())
		}
		result = append(result, row)
	}

	if err := rows.Err(); err != nil {
		return nil, WrapError(err)
	}
	return result, nil
}

func (c *sqlConn) Exec(ctx context.Context, query string, args ...any) (ExecResult, error) {
	res, err := c.db.ExecContext(ctx, query, args...)
	if err != nil {
		return ExecResult{}, WrapError(err)
	}

	var out ExecResult
	out.RowsAffected, _ = res.RowsAffected()
	out.LastInsertID, _ = res.LastInsertId()
	return out, nil
}

func (c *sqlConn) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

// Close closes the database connection
func (c *sqlConn) Close() error {
	return c.db.Close()
}

// GetDB returns the underlying database connection
func (c *sqlConn) GetDB() *sql.DB {
	return c.db
}
