package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
	"github.com/tordrt/autogql/internal/sqlgen"
)

// SQLiteClient manages the connection to SQLite
type SQLiteClient struct {
	sqlConn
}

// NewSQLiteClient creates a new SQLite client with foreign keys enforced
func NewSQLiteClient(ctx context.Context, path string) (*SQLiteClient, error) {
	dsn := path
	if strings.Contains(dsn, "?") {
		dsn += "&_foreign_keys=1"
	} else {
		dsn += "?_foreign_keys=1"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test the connection
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &SQLiteClient{sqlConn: sqlConn{db: db, dialect: sqlgen.SQLite{}}}, nil
}
