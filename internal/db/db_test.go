package db

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDatabaseURL(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		wantType string
		wantConn string
		wantErr  bool
	}{
		{"postgres", "postgres://u:p@localhost/db", "postgres", "postgres://u:p@localhost/db", false},
		{"postgresql", "postgresql://localhost/db", "postgres", "postgresql://localhost/db", false},
		{"mysql", "mysql://u:p@tcp(localhost:3306)/db", "mysql", "u:p@tcp(localhost:3306)/db", false},
		{"sqlite", "sqlite://data/app.db", "sqlite", "data/app.db", false},
		{"empty", "", "", "", true},
		{"unknown scheme", "oracle://db", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dbType, conn, err := ParseDatabaseURL(tt.url)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantType, dbType)
			assert.Equal(t, tt.wantConn, conn)
		})
	}
}

func TestParseDatabaseName(t *testing.T) {
	name, err := ParseDatabaseName("u:p@tcp(localhost:3306)/shop?charset=utf8mb4")
	require.NoError(t, err)
	assert.Equal(t, "shop", name)

	_, err = ParseDatabaseName("u:p@tcp(localhost:3306)/")
	assert.Error(t, err)
}

func TestNormalizeValue(t *testing.T) {
	id := uuid.MustParse("0b6c7e3e-1f40-4a4f-9d0e-6f1f0e6a8c11")
	now := time.Now()

	assert.Nil(t, normalizeValue(nil))
	assert.Equal(t, id.String(), normalizeValue([16]byte(id)))
	assert.Equal(t, id.String(), normalizeValue(id))
	assert.Equal(t, "raw", normalizeValue([]byte("raw")))
	assert.Equal(t, now, normalizeValue(now))
	assert.Equal(t, int64(7), normalizeValue(int64(7)))
}

func TestNormalizeSQLValue(t *testing.T) {
	assert.Equal(t, int64(42), normalizeSQLValue([]byte("42"), "INT"))
	assert.Equal(t, int64(1), normalizeSQLValue([]byte("1"), "tinyint"))
	assert.Equal(t, 1.5, normalizeSQLValue([]byte("1.5"), "DOUBLE"))
	assert.Equal(t, "9223372036854775808", normalizeSQLValue([]byte("9223372036854775808"), "BIGINT"))
	assert.Equal(t, "12.50", normalizeSQLValue([]byte("12.50"), "DECIMAL"))
	assert.Equal(t, int64(3), normalizeSQLValue(int64(3), "INTEGER"))
}
