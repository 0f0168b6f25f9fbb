package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/go-sql-driver/mysql"
	"github.com/tordrt/autogql/internal/sqlgen"
)

// MySQLClient manages the connection pool to MySQL
type MySQLClient struct {
	sqlConn
	database string
}

// NewMySQLClient creates a new MySQL client. Temporal columns are parsed into time.Time.
func NewMySQLClient(ctx context.Context, connString string) (*MySQLClient, error) {
	cfg, err := mysql.ParseDSN(connString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DSN: %w", err)
	}
	cfg.ParseTime = true

	db, err := sql.Open("mysql", cfg.FormatDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test the connection
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &MySQLClient{
		sqlConn:  sqlConn{db: db, dialect: sqlgen.MySQL{}},
		database: cfg.DBName,
	}, nil
}
