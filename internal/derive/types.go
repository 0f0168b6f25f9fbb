package derive

import (
	"strings"

	"github.com/tordrt/autogql/internal/exec"
)

// scalarFor maps a column's SQL type to a GraphQL named type and whether it is a list
func scalarFor(dialect, sqlType string) (name string, list bool) {
	t := strings.ToLower(strings.TrimSpace(sqlType))

	if strings.HasSuffix(t, "[]") {
		name, _ = scalarFor(dialect, strings.TrimSuffix(t, "[]"))
		return name, true
	}

	if dialect == "sqlite" {
		return sqliteScalar(t), false
	}

	// tinyint(1) is MySQL's boolean
	if t == "tinyint(1)" {
		return "Boolean", false
	}
	unsigned := strings.HasSuffix(t, "unsigned")
	if i := strings.IndexByte(t, '('); i >= 0 {
		t = t[:i]
	}
	t = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(t), "unsigned"))

	// an unsigned four-byte integer overflows GraphQL's Int
	if unsigned && (t == "int" || t == "integer") {
		return exec.BigInt, false
	}

	switch t {
	case "smallint", "integer", "int", "int2", "int4", "serial", "smallserial", "mediumint", "tinyint", "year":
		return "Int", false
	case "bigint", "int8", "bigserial":
		return exec.BigInt, false
	case "numeric", "decimal", "money":
		return exec.BigFloat, false
	case "real", "double precision", "float4", "float8", "float", "double":
		return "Float", false
	case "boolean", "bool":
		return "Boolean", false
	case "uuid":
		return exec.UUID, false
	case "json", "jsonb":
		return exec.JSON, false
	case "timestamptz", "timestamp", "datetime", "timestamp with time zone", "timestamp without time zone":
		return exec.Datetime, false
	case "date":
		return exec.Date, false
	case "time", "timetz", "time with time zone", "time without time zone":
		return exec.Time, false
	default:
		return "String", false
	}
}

// sqliteScalar follows SQLite's type affinity rules
func sqliteScalar(t string) string {
	switch {
	case strings.Contains(t, "bool"):
		return "Boolean"
	case strings.Contains(t, "bigint"), strings.Contains(t, "int8"):
		return exec.BigInt
	case strings.Contains(t, "int"):
		return "Int"
	case strings.Contains(t, "char"), strings.Contains(t, "clob"), strings.Contains(t, "text"):
		return "String"
	case strings.Contains(t, "real"), strings.Contains(t, "floa"), strings.Contains(t, "doub"):
		return "Float"
	case strings.Contains(t, "datetime"), strings.Contains(t, "timestamp"):
		return exec.Datetime
	case t == "date":
		return exec.Date
	case t == "json":
		return exec.JSON
	case strings.Contains(t, "numeric"), strings.Contains(t, "decimal"):
		return exec.BigFloat
	default:
		return "String"
	}
}

// isNumeric reports whether values of the GraphQL type can be summed and averaged
func isNumeric(name string) bool {
	switch name {
	case "Int", "Float", exec.BigInt, exec.BigFloat:
		return true
	}
	return false
}
