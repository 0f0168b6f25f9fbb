package derive

import (
	"context"
	"encoding/base64"
	"math"
	"strconv"
	"strings"

	"github.com/graphql-go/graphql"
	"github.com/pkg/errors"
	"github.com/vektah/gqlparser/v2/ast"

	"github.com/tordrt/autogql/internal/db"
	"github.com/tordrt/autogql/internal/exec"
	"github.com/tordrt/autogql/internal/sqlgen"
)

// Order enum values every table gets
const (
	OrderNatural        = "NATURAL"
	OrderPrimaryKeyAsc  = "PRIMARY_KEY_ASC"
	OrderPrimaryKeyDesc = "PRIMARY_KEY_DESC"
)

const cursorPrefix = "cursor:"

// connection is the resolved value of a connection field. Cursors encode row
// offsets within the filtered, ordered set.
type connection struct {
	b     *Builder
	table *Table
	where []sqlgen.Cond

	rows    []db.Row
	start   int
	hasNext bool
	total   *int
	// empty connections never touch the database
	empty bool
}

// Where returns the filter the connection was resolved with, ignoring pagination
func (c *connection) Where() []sqlgen.Cond {
	return c.where
}

func encodeCursor(index int) string {
	return base64.StdEncoding.EncodeToString([]byte(cursorPrefix + strconv.Itoa(index)))
}

func decodeCursor(cursor string) (int, error) {
	raw, err := base64.StdEncoding.DecodeString(cursor)
	if err != nil || !strings.HasPrefix(string(raw), cursorPrefix) {
		return 0, errors.Errorf("invalid cursor %q", cursor)
	}
	n, err := strconv.Atoi(strings.TrimPrefix(string(raw), cursorPrefix))
	// offsets past MaxInt32 overflow the window arithmetic
	if err != nil || n < 0 || n > math.MaxInt32 {
		return 0, errors.Errorf("invalid cursor %q", cursor)
	}
	return n, nil
}

// defineConnection adds the connection, edge, order and condition types for t
func (b *Builder) defineConnection(t *Table) error {
	orderNames := []string{OrderNatural}
	orders := map[string][]sqlgen.Order{OrderNatural: nil}
	for _, col := range t.Columns {
		if col.List || col.Named == exec.JSON {
			continue
		}
		for _, desc := range []bool{false, true} {
			name := b.Inflector.OrderByValue(col.Name, desc)
			orderNames = append(orderNames, name)
			orders[name] = []sqlgen.Order{{Column: col.Name, Desc: desc}}
		}
	}
	if pk := t.PrimaryKey(); pk != nil {
		orderNames = append(orderNames, OrderPrimaryKeyAsc, OrderPrimaryKeyDesc)
		for _, col := range pk.Columns {
			orders[OrderPrimaryKeyAsc] = append(orders[OrderPrimaryKeyAsc], sqlgen.Order{Column: col.Name})
			orders[OrderPrimaryKeyDesc] = append(orders[OrderPrimaryKeyDesc], sqlgen.Order{Column: col.Name, Desc: true})
		}
	}
	t.orders = orders

	desc := "Methods to use when ordering `" + t.TypeName + "`."
	if err := b.DefineEnum(t.OrderByName, desc, orderNames, nil); err != nil {
		return err
	}

	condition := &ast.Definition{
		Kind:        ast.InputObject,
		Name:        t.ConditionName,
		Description: "A condition to be used against `" + t.TypeName + "` object types. All fields are tested for equality and combined with a logical ‘and.’",
	}
	for _, col := range t.Columns {
		if col.List || col.Named == exec.JSON {
			continue
		}
		condition.Fields = append(condition.Fields, &ast.FieldDefinition{
			Name:        col.Field,
			Type:        col.NullableType(),
			Description: "Checks for equality with the object’s `" + col.Field + "` field.",
		})
	}
	if len(condition.Fields) > 0 {
		if err := b.Define(condition); err != nil {
			return err
		}
	}

	if err := b.Define(&ast.Definition{
		Kind:        ast.Object,
		Name:        t.EdgeName,
		Description: "A `" + t.TypeName + "` edge in the connection.",
		Fields: ast.FieldList{
			{Name: "cursor", Type: ast.NamedType(exec.Cursor, nil), Description: "A cursor for use in pagination."},
			{Name: "node", Type: ast.NamedType(t.TypeName, nil), Description: "The `" + t.TypeName + "` at the end of the edge."},
		},
	}); err != nil {
		return err
	}

	if err := b.Define(&ast.Definition{
		Kind:        ast.Object,
		Name:        t.ConnectionName,
		Description: "A list of `" + t.TypeName + "` values.",
	}); err != nil {
		return err
	}

	fields := []struct {
		def     *ast.FieldDefinition
		resolve graphql.FieldResolveFn
	}{
		{
			&ast.FieldDefinition{Name: "nodes", Description: "A list of `" + t.TypeName + "` objects.",
				Type: ast.NonNullListType(ast.NamedType(t.TypeName, nil), nil)},
			func(p graphql.ResolveParams) (interface{}, error) {
				c := p.Source.(*connection)
				out := make([]interface{}, len(c.rows))
				for i, r := range c.rows {
					out[i] = r
				}
				return out, nil
			},
		},
		{
			&ast.FieldDefinition{Name: "edges", Description: "A list of edges which contains the `" + t.TypeName + "` and cursor to aid in pagination.",
				Type: ast.NonNullListType(ast.NonNullNamedType(t.EdgeName, nil), nil)},
			func(p graphql.ResolveParams) (interface{}, error) {
				c := p.Source.(*connection)
				out := make([]interface{}, len(c.rows))
				for i, r := range c.rows {
					out[i] = map[string]interface{}{"cursor": encodeCursor(c.start + i), "node": r}
				}
				return out, nil
			},
		},
		{
			&ast.FieldDefinition{Name: "pageInfo", Description: "Information to aid in pagination.",
				Type: ast.NonNullNamedType("PageInfo", nil)},
			func(p graphql.ResolveParams) (interface{}, error) {
				c := p.Source.(*connection)
				info := map[string]interface{}{
					"hasNextPage":     c.hasNext,
					"hasPreviousPage": c.start > 0,
				}
				if len(c.rows) > 0 {
					info["startCursor"] = encodeCursor(c.start)
					info["endCursor"] = encodeCursor(c.start + len(c.rows) - 1)
				}
				return info, nil
			},
		},
		{
			&ast.FieldDefinition{Name: "totalCount", Description: "The count of *all* `" + t.TypeName + "` you could get from the connection.",
				Type: ast.NonNullNamedType("Int", nil)},
			func(p graphql.ResolveParams) (interface{}, error) {
				return p.Source.(*connection).count(p.Context)
			},
		},
	}
	for _, f := range fields {
		if err := b.AddField(t.ConnectionName, f.def, exec.FieldResolver{Resolve: f.resolve}); err != nil {
			return err
		}
	}
	return nil
}

func (b *Builder) definePageInfo() error {
	return b.Define(&ast.Definition{
		Kind:        ast.Object,
		Name:        "PageInfo",
		Description: "Information about pagination in a connection.",
		Fields: ast.FieldList{
			{Name: "hasNextPage", Type: ast.NonNullNamedType("Boolean", nil), Description: "When paginating forwards, are there more items?"},
			{Name: "hasPreviousPage", Type: ast.NonNullNamedType("Boolean", nil), Description: "When paginating backwards, are there more items?"},
			{Name: "startCursor", Type: ast.NamedType(exec.Cursor, nil), Description: "When paginating backwards, the cursor to continue."},
			{Name: "endCursor", Type: ast.NamedType(exec.Cursor, nil), Description: "When paginating forwards, the cursor to continue."},
		},
	})
}

// connectionArgs are the pagination, ordering and filtering arguments of a connection field
func (b *Builder) connectionArgs(t *Table) ast.ArgumentDefinitionList {
	defaultOrder := OrderNatural
	if t.PrimaryKey() != nil {
		defaultOrder = OrderPrimaryKeyAsc
	}

	args := ast.ArgumentDefinitionList{
		{Name: "first", Type: ast.NamedType("Int", nil), Description: "Only read the first `n` values of the set."},
		{Name: "last", Type: ast.NamedType("Int", nil), Description: "Only read the last `n` values of the set."},
		{Name: "offset", Type: ast.NamedType("Int", nil), Description: "Skip the first `n` values from our `after` cursor, an alternative to cursor based pagination. May not be used with `last`."},
		{Name: "before", Type: ast.NamedType(exec.Cursor, nil), Description: "Read all values in the set before (above) this cursor."},
		{Name: "after", Type: ast.NamedType(exec.Cursor, nil), Description: "Read all values in the set after (below) this cursor."},
		{
			Name:        "orderBy",
			Type:        ast.ListType(ast.NonNullNamedType(t.OrderByName, nil), nil),
			Description: "The method to use when ordering `" + t.TypeName + "`.",
			DefaultValue: &ast.Value{Kind: ast.ListValue, Children: ast.ChildValueList{
				{Value: &ast.Value{Kind: ast.EnumValue, Raw: defaultOrder}},
			}},
		},
	}
	if b.Type(t.ConditionName) != nil {
		args = append(args, &ast.ArgumentDefinition{
			Name:        "condition",
			Type:        ast.NamedType(t.ConditionName, nil),
			Description: "A condition to be used in determining which values should be returned by the collection.",
		})
	}
	return args
}

// resolveConnection reads one page of t filtered by base plus the field arguments
func (b *Builder) resolveConnection(ctx context.Context, t *Table, args map[string]interface{}, base []sqlgen.Cond) (*connection, error) {
	where := append(append([]sqlgen.Cond(nil), base...), t.conditions(args["condition"])...)
	c := &connection{b: b, table: t, where: where}

	first, hasFirst, err := intArg(args, "first")
	if err != nil {
		return nil, err
	}
	last, hasLast, err := intArg(args, "last")
	if err != nil {
		return nil, err
	}
	offset, hasOffset, err := intArg(args, "offset")
	if err != nil {
		return nil, err
	}
	if hasOffset && hasLast {
		return nil, errors.New("cannot combine `offset` with `last`")
	}

	start, end := offset, -1
	if after, ok := args["after"].(string); ok {
		idx, err := decodeCursor(after)
		if err != nil {
			return nil, err
		}
		start += idx + 1
	}
	if before, ok := args["before"].(string); ok {
		idx, err := decodeCursor(before)
		if err != nil {
			return nil, err
		}
		end = idx
	}
	if hasFirst && (end < 0 || start+first < end) {
		end = start + first
	}
	if hasLast {
		if end < 0 {
			total, err := c.count(ctx)
			if err != nil {
				return nil, err
			}
			end = total
		}
		if end-last > start {
			start = end - last
		}
	}
	if end >= 0 && end < start {
		end = start
	}

	// Probe one row past the page to learn whether a next page exists
	limit := sqlgen.NoLimit
	if end >= 0 {
		limit = end - start + 1
	}

	dialect := b.Conn.Dialect()
	query, qargs := sqlgen.BuildSelect(dialect, sqlgen.Select{
		From:    t.SQLTable(b.Source.Name, dialect),
		Where:   where,
		OrderBy: t.orderFor(args["orderBy"]),
		Limit:   limit,
		Offset:  start,
	})
	rows, err := b.Conn.Query(ctx, query, qargs...)
	if err != nil {
		return nil, err
	}

	if end >= 0 && len(rows) > end-start {
		c.hasNext = true
		rows = rows[:end-start]
	}
	c.rows = rows
	c.start = start
	return c, nil
}

func (c *connection) count(ctx context.Context) (int, error) {
	if c.total != nil {
		return *c.total, nil
	}
	dialect := c.b.Conn.Dialect()
	query, args := sqlgen.BuildCount(dialect, c.table.SQLTable(c.b.Source.Name, dialect), c.where)
	rows, err := c.b.Conn.Query(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, errors.New("count returned no rows")
	}
	n, err := toInt(rows[0]["count"])
	if err != nil {
		return 0, err
	}
	c.total = &n
	return n, nil
}

// orderFor expands orderBy enum values, appending the primary key so pages are stable
func (t *Table) orderFor(v interface{}) []sqlgen.Order {
	var names []string
	if list, ok := v.([]interface{}); ok {
		for _, item := range list {
			if s, ok := item.(string); ok {
				names = append(names, s)
			}
		}
	}
	if len(names) == 0 && t.PrimaryKey() != nil {
		names = []string{OrderPrimaryKeyAsc}
	}

	var out []sqlgen.Order
	seen := map[string]bool{}
	for _, name := range names {
		for _, o := range t.orders[name] {
			if !seen[o.Column] {
				seen[o.Column] = true
				out = append(out, o)
			}
		}
	}
	if len(out) > 0 {
		if pk := t.PrimaryKey(); pk != nil {
			for _, col := range pk.Columns {
				if !seen[col.Name] {
					out = append(out, sqlgen.Order{Column: col.Name})
				}
			}
		}
	}
	return out
}

// conditions converts a condition input object into equality predicates
func (t *Table) conditions(v interface{}) []sqlgen.Cond {
	input, ok := v.(map[string]interface{})
	if !ok {
		return nil
	}
	var out []sqlgen.Cond
	for _, col := range t.Columns {
		if value, present := input[col.Field]; present {
			out = append(out, sqlgen.Cond{Column: col.Name, Value: value})
		}
	}
	return out
}

func intArg(args map[string]interface{}, name string) (int, bool, error) {
	v, ok := args[name]
	if !ok || v == nil {
		return 0, false, nil
	}
	n, ok := v.(int)
	if !ok {
		return 0, false, errors.Errorf("`%s` must be an integer", name)
	}
	if n < 0 {
		return 0, false, errors.Errorf("`%s` must be non-negative", name)
	}
	return n, true, nil
}

func toInt(v interface{}) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int32:
		return int(n), nil
	case int64:
		return int(n), nil
	case float64:
		return int(n), nil
	case string:
		return strconv.Atoi(n)
	default:
		return 0, errors.Errorf("unexpected count value %T", v)
	}
}
