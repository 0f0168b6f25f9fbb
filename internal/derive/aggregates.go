package derive

import (
	"github.com/graphql-go/graphql"
	"github.com/vektah/gqlparser/v2/ast"

	"github.com/tordrt/autogql/internal/db"
	"github.com/tordrt/autogql/internal/exec"
	"github.com/tordrt/autogql/internal/sqlgen"
)

// AggregatesPlugin adds an aggregates field to every connection. Aggregates
// cover the whole filtered set, not just the current page.
type AggregatesPlugin struct{}

func (AggregatesPlugin) Name() string { return "aggregates" }

type aggregateKind struct {
	field string
	fn    string
	doc   string
	// typeOf maps a column to its aggregate type, "" to skip the column
	typeOf func(c *Column) *ast.Type
}

var aggregateKinds = []aggregateKind{
	{"sum", sqlgen.Sum, "Sum aggregates across the matching connection (ignoring before/after/first/last/offset)", func(c *Column) *ast.Type {
		switch c.Named {
		case "Int", exec.BigInt:
			return ast.NonNullNamedType(exec.BigInt, nil)
		case "Float":
			return ast.NonNullNamedType("Float", nil)
		case exec.BigFloat:
			return ast.NonNullNamedType(exec.BigFloat, nil)
		}
		return nil
	}},
	{"distinctCount", sqlgen.DistinctCount, "Distinct count aggregates across the matching connection (ignoring before/after/first/last/offset)", func(c *Column) *ast.Type {
		if c.Named == exec.JSON {
			return nil
		}
		return ast.NamedType(exec.BigInt, nil)
	}},
	{"min", sqlgen.Min, "Minimum aggregates across the matching connection (ignoring before/after/first/last/offset)", func(c *Column) *ast.Type {
		if !isNumeric(c.Named) {
			return nil
		}
		return ast.NamedType(c.Named, nil)
	}},
	{"max", sqlgen.Max, "Maximum aggregates across the matching connection (ignoring before/after/first/last/offset)", func(c *Column) *ast.Type {
		if !isNumeric(c.Named) {
			return nil
		}
		return ast.NamedType(c.Named, nil)
	}},
	{"average", sqlgen.Average, "Mean average aggregates across the matching connection (ignoring before/after/first/last/offset)", func(c *Column) *ast.Type {
		switch c.Named {
		case "Float":
			return ast.NamedType("Float", nil)
		case "Int", exec.BigInt, exec.BigFloat:
			return ast.NamedType(exec.BigFloat, nil)
		}
		return nil
	}},
}

func (AggregatesPlugin) Apply(b *Builder) error {
	for _, t := range b.Tables() {
		if err := b.defineAggregates(t); err != nil {
			return err
		}
	}
	return nil
}

func (b *Builder) defineAggregates(t *Table) error {
	container := &ast.Definition{Kind: ast.Object, Name: b.Inflector.AggregatesType(t.Name, "")}
	resolvers := map[string]exec.FieldResolver{}

	for _, kind := range aggregateKinds {
		kind := kind
		typeName := b.Inflector.AggregatesType(t.Name, kind.field)
		def := &ast.Definition{Kind: ast.Object, Name: typeName}
		fieldResolvers := map[string]exec.FieldResolver{}
		var cols []string
		for _, col := range t.Columns {
			if col.List {
				continue
			}
			typ := kind.typeOf(col)
			if typ == nil {
				continue
			}
			def.Fields = append(def.Fields, &ast.FieldDefinition{
				Name:        col.Field,
				Type:        typ,
				Description: kind.field + " of " + col.Field + " across the matching connection",
			})
			fieldResolvers[col.Field] = exec.FieldResolver{Resolve: columnResolver(col.Name)}
			cols = append(cols, col.Name)
		}
		if len(cols) == 0 {
			continue
		}
		if err := b.Define(def); err != nil {
			return err
		}
		for _, f := range def.Fields {
			b.bindings.Resolvers[typeName+"."+f.Name] = fieldResolvers[f.Name]
		}

		container.Fields = append(container.Fields, &ast.FieldDefinition{
			Name:        kind.field,
			Type:        ast.NamedType(typeName, nil),
			Description: kind.doc,
		})
		resolvers[kind.field] = exec.FieldResolver{Resolve: func(p graphql.ResolveParams) (interface{}, error) {
			c, ok := p.Source.(*connection)
			if !ok {
				return nil, nil
			}
			return c.aggregate(p, kind.fn, cols)
		}}
	}

	if len(container.Fields) == 0 {
		return nil
	}
	if err := b.Define(container); err != nil {
		return err
	}
	for _, f := range container.Fields {
		b.bindings.Resolvers[container.Name+"."+f.Name] = resolvers[f.Name]
	}

	return b.AddField(t.ConnectionName, &ast.FieldDefinition{
		Name:        "aggregates",
		Type:        ast.NamedType(container.Name, nil),
		Description: "Aggregates across the matching connection (ignoring before/after/first/last/offset)",
	}, exec.FieldResolver{Resolve: func(p graphql.ResolveParams) (interface{}, error) {
		return p.Source, nil
	}})
}

// aggregate runs one aggregate function over the connection's filtered set
func (c *connection) aggregate(p graphql.ResolveParams, fn string, cols []string) (interface{}, error) {
	if c.empty {
		row := db.Row{}
		for _, col := range cols {
			if fn == sqlgen.Sum || fn == sqlgen.DistinctCount {
				row[col] = 0
			} else {
				row[col] = nil
			}
		}
		return row, nil
	}

	dialect := c.b.Conn.Dialect()
	query, args, err := sqlgen.BuildAggregate(dialect, c.table.SQLTable(c.b.Source.Name, dialect), c.where, fn, cols)
	if err != nil {
		return nil, err
	}
	rows, err := c.b.Conn.Query(p.Context, query, args...)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return db.Row{}, nil
	}
	return rows[0], nil
}
