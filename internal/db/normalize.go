package db

import (
	"database/sql/driver"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// normalizeValue converts driver values into plain JSON-friendly Go values
func normalizeValue(v any) any {
	switch val := v.(type) {
	case nil:
		return nil
	case [16]byte:
		return uuid.UUID(val).String()
	case []byte:
		return string(val)
	case driver.Valuer:
		out, err := val.Value()
		if err != nil {
			return nil
		}
		return normalizeValue(out)
	default:
		return v
	}
}

// normalizeSQLValue also decodes textual numbers returned by database/sql drivers
func normalizeSQLValue(v any, dbType string) any {
	b, ok := v.([]byte)
	if !ok {
		return normalizeValue(v)
	}
	s := string(b)

	switch strings.ToUpper(dbType) {
	case "TINYINT", "SMALLINT", "MEDIUMINT", "INT", "INTEGER", "YEAR":
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n
		}
	case "FLOAT", "DOUBLE", "REAL":
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
	}
	return s
}
