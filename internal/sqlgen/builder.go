package sqlgen

import (
	"fmt"
	"strings"
)

// NoLimit disables LIMIT in a Select
const NoLimit = -1

// Table is a possibly schema-qualified relation name
type Table struct {
	Schema string
	Name   string
}

// Cond is an equality predicate. A nil Value matches NULL. When In is set the
// column is matched against the subquery instead of Value.
type Cond struct {
	Column string
	Value  any
	In     *Subquery
}

// Subquery selects a single column for an IN predicate
type Subquery struct {
	Column string
	From   Table
	Where  []Cond
}

// Order is one ORDER BY term
type Order struct {
	Column string
	Desc   bool
}

// Select describes a row query
type Select struct {
	From    Table
	Columns []string
	Where   []Cond
	OrderBy []Order
	Limit   int
	Offset  int
}

// Assignment is one SET term of an UPDATE
type Assignment struct {
	Column string
	Value  any
}

// Aggregate functions supported by BuildAggregate
const (
	Sum           = "sum"
	Min           = "min"
	Max           = "max"
	Average       = "avg"
	DistinctCount = "distinct_count"
)

type builder struct {
	d    Dialect
	sb   strings.Builder
	args []any
}

func newBuilder(d Dialect) *builder {
	return &builder{d: d}
}

func (b *builder) write(parts ...string) {
	for _, p := range parts {
		b.sb.WriteString(p)
	}
}

func (b *builder) arg(v any) string {
	b.args = append(b.args, v)
	return b.d.Placeholder(len(b.args))
}

func (b *builder) table(t Table) string {
	if t.Schema == "" {
		return b.d.QuoteIdent(t.Name)
	}
	return b.d.QuoteIdent(t.Schema) + "." + b.d.QuoteIdent(t.Name)
}

func (b *builder) columns(cols []string) string {
	if len(cols) == 0 {
		return "*"
	}
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = b.d.QuoteIdent(c)
	}
	return strings.Join(quoted, ", ")
}

func (b *builder) where(conds []Cond) {
	if len(conds) == 0 {
		return
	}
	b.write(" WHERE ")
	for i, c := range conds {
		if i > 0 {
			b.write(" AND ")
		}
		b.cond(c)
	}
}

func (b *builder) cond(c Cond) {
	col := b.d.QuoteIdent(c.Column)
	switch {
	case c.In != nil:
		b.write(col, " IN (SELECT ", b.d.QuoteIdent(c.In.Column), " FROM ", b.table(c.In.From))
		b.where(c.In.Where)
		b.write(")")
	case c.Value == nil:
		b.write(col, " IS NULL")
	default:
		b.write(col, " = ", b.arg(c.Value))
	}
}

func (b *builder) orderBy(orders []Order) {
	if len(orders) == 0 {
		return
	}
	terms := make([]string, len(orders))
	for i, o := range orders {
		dir := "ASC"
		if o.Desc {
			dir = "DESC"
		}
		terms[i] = b.d.QuoteIdent(o.Column) + " " + dir
	}
	b.write(" ORDER BY ", strings.Join(terms, ", "))
}

func (b *builder) returning() {
	if b.d.Returning() {
		b.write(" RETURNING *")
	}
}

func (b *builder) build() (string, []any) {
	return b.sb.String(), b.args
}

// BuildSelect renders a row query
func BuildSelect(d Dialect, s Select) (string, []any) {
	b := newBuilder(d)
	b.write("SELECT ", b.columns(s.Columns), " FROM ", b.table(s.From))
	b.where(s.Where)
	b.orderBy(s.OrderBy)
	b.write(d.Paginate(s.Limit, s.Offset))
	return b.build()
}

// BuildCount renders a COUNT(*) query aliased as "count"
func BuildCount(d Dialect, from Table, where []Cond) (string, []any) {
	b := newBuilder(d)
	b.write("SELECT COUNT(*) AS ", d.QuoteIdent("count"), " FROM ", b.table(from))
	b.where(where)
	return b.build()
}

// BuildAggregate renders one aggregate per column, each aliased by its column name
func BuildAggregate(d Dialect, from Table, where []Cond, fn string, cols []string) (string, []any, error) {
	if len(cols) == 0 {
		return "", nil, fmt.Errorf("aggregate %s needs at least one column", fn)
	}
	b := newBuilder(d)
	terms := make([]string, len(cols))
	for i, c := range cols {
		col := d.QuoteIdent(c)
		var expr string
		switch fn {
		case Sum:
			expr = "COALESCE(SUM(" + col + "), 0)"
		case Min, Max:
			expr = strings.ToUpper(fn) + "(" + col + ")"
		case Average:
			expr = "AVG(" + col + ")"
		case DistinctCount:
			expr = "COUNT(DISTINCT " + col + ")"
		default:
			return "", nil, fmt.Errorf("unsupported aggregate %q", fn)
		}
		terms[i] = expr + " AS " + col
	}
	b.write("SELECT ", strings.Join(terms, ", "), " FROM ", b.table(from))
	b.where(where)
	sql, args := b.build()
	return sql, args, nil
}

// BuildInsert renders an INSERT, returning the new row where the dialect allows
func BuildInsert(d Dialect, into Table, values []Assignment) (string, []any) {
	b := newBuilder(d)
	b.write("INSERT INTO ", b.table(into))
	if len(values) == 0 {
		if d.Name() == "mysql" {
			b.write(" () VALUES ()")
		} else {
			b.write(" DEFAULT VALUES")
		}
		b.returning()
		return b.build()
	}

	cols := make([]string, len(values))
	placeholders := make([]string, len(values))
	for i, v := range values {
		cols[i] = d.QuoteIdent(v.Column)
		placeholders[i] = b.arg(v.Value)
	}
	b.write(" (", strings.Join(cols, ", "), ") VALUES (", strings.Join(placeholders, ", "), ")")
	b.returning()
	return b.build()
}

// BuildUpdate renders an UPDATE, returning the changed rows where the dialect allows
func BuildUpdate(d Dialect, table Table, set []Assignment, where []Cond) (string, []any, error) {
	if len(set) == 0 {
		return "", nil, fmt.Errorf("update of %s has no assignments", table.Name)
	}
	b := newBuilder(d)
	b.write("UPDATE ", b.table(table), " SET ")
	for i, a := range set {
		if i > 0 {
			b.write(", ")
		}
		b.write(d.QuoteIdent(a.Column), " = ", b.arg(a.Value))
	}
	b.where(where)
	b.returning()
	sql, args := b.build()
	return sql, args, nil
}

// BuildDelete renders a DELETE, returning the removed rows where the dialect allows
func BuildDelete(d Dialect, table Table, where []Cond) (string, []any) {
	b := newBuilder(d)
	b.write("DELETE FROM ", b.table(table))
	b.where(where)
	b.returning()
	return b.build()
}

// BuildCall renders a query over a set-returning function
func BuildCall(d Dialect, fn Table, args []any) (string, []any) {
	b := newBuilder(d)
	placeholders := make([]string, len(args))
	for i, a := range args {
		placeholders[i] = b.arg(a)
	}
	b.write("SELECT * FROM ", b.table(fn), "(", strings.Join(placeholders, ", "), ")")
	return b.build()
}
