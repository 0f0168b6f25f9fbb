package derive

import (
	"github.com/graphql-go/graphql"
	"github.com/vektah/gqlparser/v2/ast"

	"github.com/tordrt/autogql/internal/exec"
	"github.com/tordrt/autogql/internal/inflect"
	"github.com/tordrt/autogql/internal/schema"
	"github.com/tordrt/autogql/internal/sqlgen"
)

// ManyToManyPlugin adds connections that skip over junction tables, so a post
// reaches its tags without going through post_tags.
type ManyToManyPlugin struct{}

func (ManyToManyPlugin) Name() string { return "many-to-many" }

func (ManyToManyPlugin) Apply(b *Builder) error {
	for _, junction := range b.Tables() {
		for i, left := range junction.Relations {
			for j, right := range junction.Relations {
				if i == j || left.SourceColumn == right.SourceColumn {
					continue
				}
				if err := b.defineManyToMany(junction, left, right); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func (b *Builder) defineManyToMany(junction *Table, left, right schema.Relation) error {
	leftTable, rightTable := b.Table(left.TargetTable), b.Table(right.TargetTable)
	if leftTable == nil || rightTable == nil {
		return nil
	}
	leftKey := leftTable.Column(left.TargetColumn)
	if leftKey == nil || rightTable.Column(right.TargetColumn) == nil {
		return nil
	}

	leftKeys, rightKeys := []string{left.SourceColumn}, []string{right.SourceColumn}
	name, err := b.FieldName(leftTable.TypeName,
		b.Inflector.ManyToMany(rightTable.Name, junction.Name, leftKeys, rightKeys),
		inflect.Default{}.ManyToMany(rightTable.Name, junction.Name, leftKeys, rightKeys))
	if err != nil {
		// Several junctions between the same pair; the first one wins
		return nil
	}

	dialect := b.Conn.Dialect()
	through := junction.SQLTable(b.Source.Name, dialect)

	return b.AddField(leftTable.TypeName, &ast.FieldDefinition{
		Name:        name,
		Arguments:   b.connectionArgs(rightTable),
		Type:        ast.NonNullNamedType(rightTable.ConnectionName, nil),
		Description: "Reads and enables pagination through a set of `" + rightTable.TypeName + "`.",
	}, exec.FieldResolver{Resolve: func(p graphql.ResolveParams) (interface{}, error) {
		v := rowOf(p.Source)[leftKey.Name]
		if v == nil {
			return b.emptyConnection(rightTable), nil
		}
		return b.resolveConnection(p.Context, rightTable, p.Args, []sqlgen.Cond{{
			Column: right.TargetColumn,
			In: &sqlgen.Subquery{
				Column: right.SourceColumn,
				From:   through,
				Where:  []sqlgen.Cond{{Column: left.SourceColumn, Value: v}},
			},
		}})
	}})
}
