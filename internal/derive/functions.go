package derive

import (
	"github.com/graphql-go/graphql"
	"github.com/vektah/gqlparser/v2/ast"

	"github.com/tordrt/autogql/internal/db"
	"github.com/tordrt/autogql/internal/exec"
	"github.com/tordrt/autogql/internal/schema"
	"github.com/tordrt/autogql/internal/sqlgen"
)

// defineFunctions exposes set-returning functions as list fields on Query
func (b *Builder) defineFunctions() error {
	for i := range b.Source.Functions {
		if err := b.defineFunction(&b.Source.Functions[i]); err != nil {
			return err
		}
	}
	return nil
}

func (b *Builder) defineFunction(fn *schema.Function) error {
	t := b.Table(fn.ReturnTable)
	if t == nil {
		return nil
	}
	dialect := b.Conn.Dialect()

	name, err := b.FieldName("Query", b.Inflector.Function(fn.Name), b.Inflector.Function(fn.Name)+"Set")
	if err != nil {
		return err
	}

	var args ast.ArgumentDefinitionList
	argNames := make([]string, len(fn.Args))
	for i, a := range fn.Args {
		argNames[i] = b.Inflector.Column(a.Name)
		named, list := scalarFor(dialect.Name(), a.Type)
		typ := ast.NamedType(named, nil)
		if list {
			typ = ast.ListType(typ, nil)
		}
		args = append(args, &ast.ArgumentDefinition{Name: argNames[i], Type: typ})
	}

	item := ast.NamedType(t.TypeName, nil)
	if !b.Options.SetofFunctionsContainNulls {
		item = ast.NonNullNamedType(t.TypeName, nil)
	}

	return b.AddField("Query", &ast.FieldDefinition{
		Name:        name,
		Arguments:   args,
		Type:        ast.NonNullListType(item, nil),
		Description: "Reads a set of `" + t.TypeName + "` returned by the `" + fn.Name + "` function.",
	}, exec.FieldResolver{Resolve: func(p graphql.ResolveParams) (interface{}, error) {
		values := make([]any, len(argNames))
		for i, n := range argNames {
			values[i] = p.Args[n]
		}
		query, qargs := sqlgen.BuildCall(dialect, sqlgen.Table{Schema: b.Source.Name, Name: fn.Name}, values)
		rows, err := b.Conn.Query(p.Context, query, qargs...)
		if err != nil {
			return nil, err
		}

		out := make([]interface{}, 0, len(rows))
		for _, r := range rows {
			if isNullRow(r) {
				if b.Options.SetofFunctionsContainNulls {
					out = append(out, nil)
				}
				continue
			}
			out = append(out, r)
		}
		return out, nil
	}})
}

// isNullRow reports whether a composite result is SQL NULL
func isNullRow(r db.Row) bool {
	for _, v := range r {
		if v != nil {
			return false
		}
	}
	return true
}
