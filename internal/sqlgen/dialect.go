// Package sqlgen builds the parameterized SQL statements issued by resolvers.
package sqlgen

import (
	"fmt"
	"strings"
)

// Dialect captures the syntax differences between supported stores
type Dialect interface {
	Name() string
	QuoteIdent(ident string) string
	Placeholder(n int) string
	// Returning reports whether INSERT/UPDATE/DELETE support RETURNING
	Returning() bool
	Paginate(limit, offset int) string
}

// Postgres is the PostgreSQL dialect
type Postgres struct{}

func (Postgres) Name() string { return "postgres" }

func (Postgres) QuoteIdent(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

func (Postgres) Placeholder(n int) string { return fmt.Sprintf("$%d", n) }

func (Postgres) Returning() bool { return true }

func (Postgres) Paginate(limit, offset int) string { return standardPaginate(limit, offset) }

// MySQL is the MySQL dialect
type MySQL struct{}

func (MySQL) Name() string { return "mysql" }

func (MySQL) QuoteIdent(ident string) string {
	return "`" + strings.ReplaceAll(ident, "`", "``") + "`"
}

func (MySQL) Placeholder(int) string { return "?" }

func (MySQL) Returning() bool { return false }

// MySQL has no OFFSET without LIMIT
func (MySQL) Paginate(limit, offset int) string {
	if limit < 0 && offset > 0 {
		return fmt.Sprintf(" LIMIT 18446744073709551615 OFFSET %d", offset)
	}
	return standardPaginate(limit, offset)
}

// SQLite is the SQLite dialect
type SQLite struct{}

func (SQLite) Name() string { return "sqlite" }

func (SQLite) QuoteIdent(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

func (SQLite) Placeholder(int) string { return "?" }

func (SQLite) Returning() bool { return true }

func (SQLite) Paginate(limit, offset int) string {
	if limit < 0 && offset > 0 {
		return fmt.Sprintf(" LIMIT -1 OFFSET %d", offset)
	}
	return standardPaginate(limit, offset)
}

func standardPaginate(limit, offset int) string {
	var b strings.Builder
	if limit >= 0 {
		fmt.Fprintf(&b, " LIMIT %d", limit)
	}
	if offset > 0 {
		fmt.Fprintf(&b, " OFFSET %d", offset)
	}
	return b.String()
}
