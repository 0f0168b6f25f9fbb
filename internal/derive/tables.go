package derive

import (
	"github.com/vektah/gqlparser/v2/ast"

	"github.com/tordrt/autogql/internal/schema"
	"github.com/tordrt/autogql/internal/sqlgen"
)

// Table is an exposed table with its derived names
type Table struct {
	*schema.Table
	Columns []*Column
	Keys    []Key

	TypeName       string
	ConnectionName string
	EdgeName       string
	OrderByName    string
	ConditionName  string

	orders map[string][]sqlgen.Order
}

// Column is an exposed column
type Column struct {
	*schema.Column
	Field string
	// Named is the GraphQL named type of a single value
	Named string
	List  bool
}

// Key is a set of columns identifying at most one row
type Key struct {
	Columns []*Column
	Primary bool
}

// Names returns the SQL column names of the key
func (k Key) Names() []string {
	out := make([]string, len(k.Columns))
	for i, c := range k.Columns {
		out[i] = c.Name
	}
	return out
}

// SQLTable returns the qualified relation for statements
func (t *Table) SQLTable(schemaName string, dialect sqlgen.Dialect) sqlgen.Table {
	if dialect.Name() == "postgres" {
		return sqlgen.Table{Schema: schemaName, Name: t.Name}
	}
	return sqlgen.Table{Name: t.Name}
}

// Column returns the exposed column with the given SQL name, or nil
func (t *Table) Column(name string) *Column {
	for _, c := range t.Columns {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// ColumnByField returns the exposed column with the given GraphQL field name, or nil
func (t *Table) ColumnByField(field string) *Column {
	for _, c := range t.Columns {
		if c.Field == field {
			return c
		}
	}
	return nil
}

// PrimaryKey returns the primary key, or nil when the table has none
func (t *Table) PrimaryKey() *Key {
	for i := range t.Keys {
		if t.Keys[i].Primary {
			return &t.Keys[i]
		}
	}
	return nil
}

// OutputType is the column's type on the row object
func (c *Column) OutputType() *ast.Type {
	return c.gqlType(!c.Nullable)
}

// NullableType is the column's type with nullability removed
func (c *Column) NullableType() *ast.Type {
	return c.gqlType(false)
}

func (c *Column) gqlType(nonNull bool) *ast.Type {
	var t *ast.Type
	if c.List {
		t = ast.ListType(ast.NamedType(c.Named, nil), nil)
	} else {
		t = ast.NamedType(c.Named, nil)
	}
	t.NonNull = nonNull
	return t
}

// RequiredOnCreate reports whether an insert must supply the column
func (c *Column) RequiredOnCreate() bool {
	return !c.Nullable && c.DefaultValue == nil && !c.AutoIncrement
}
