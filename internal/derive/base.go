package derive

import (
	"context"
	"math"
	"strings"

	"github.com/graphql-go/graphql"
	"github.com/pkg/errors"
	"github.com/vektah/gqlparser/v2/ast"

	"github.com/tordrt/autogql/internal/db"
	"github.com/tordrt/autogql/internal/exec"
	"github.com/tordrt/autogql/internal/inflect"
	"github.com/tordrt/autogql/internal/schema"
	"github.com/tordrt/autogql/internal/sqlgen"
)

// BasePlugin derives the CRUD surface: row types, connections, lookups by
// unique key, relations, mutations and set-returning functions.
type BasePlugin struct{}

func (BasePlugin) Name() string { return "base" }

func (BasePlugin) Apply(b *Builder) error {
	b.EnsureObject("Query", "The root query type which gives access points into the data universe.")
	if err := b.AddField("Query", &ast.FieldDefinition{
		Name:        "query",
		Type:        ast.NonNullNamedType("Query", nil),
		Description: "Exposes the root query type nested one level down. This is helpful for Relay 1 which can only query top level fields if they are in a particular form.",
	}, exec.FieldResolver{Resolve: func(graphql.ResolveParams) (interface{}, error) {
		return map[string]interface{}{}, nil
	}}); err != nil {
		return err
	}
	if err := b.definePageInfo(); err != nil {
		return err
	}

	if err := b.collectTables(); err != nil {
		return err
	}

	steps := []func(*Table) error{
		b.defineRowType,
		b.defineConnection,
		b.defineRootFields,
		b.defineRelations,
		b.defineMutations,
	}
	for _, step := range steps {
		for _, t := range b.tables {
			if err := step(t); err != nil {
				return errors.Wrapf(err, "table %s", t.Name)
			}
		}
	}

	return b.defineFunctions()
}

func (b *Builder) collectTables() error {
	dialect := b.Conn.Dialect().Name()

	for i := range b.Source.Tables {
		st := &b.Source.Tables[i]
		if !b.Options.IgnorePrivileges && !st.Privileges.Select {
			continue
		}

		t := &Table{
			Table:          st,
			TypeName:       b.Inflector.TableType(st.Name),
			ConnectionName: b.Inflector.ConnectionType(st.Name),
			EdgeName:       b.Inflector.EdgeType(st.Name),
			OrderByName:    b.Inflector.OrderByType(st.Name),
			ConditionName:  b.Inflector.ConditionType(st.Name),
		}

		for j := range st.Columns {
			sc := &st.Columns[j]
			col := &Column{Column: sc, Field: b.Inflector.Column(sc.Name)}
			if sc.EnumType != "" && len(sc.EnumValues) > 0 {
				name, err := b.defineColumnEnum(sc.EnumType, sc.EnumValues)
				if err != nil {
					return err
				}
				col.Named = name
			} else {
				col.Named, col.List = scalarFor(dialect, sc.Type)
			}
			t.Columns = append(t.Columns, col)
		}

		t.Keys = collectKeys(t)
		b.tables = append(b.tables, t)
		b.byName[t.Name] = t
	}
	return nil
}

func (b *Builder) defineColumnEnum(enumType string, values []string) (string, error) {
	name := b.Inflector.EnumType(enumType)
	if existing := b.Type(name); existing != nil {
		if existing.Kind == ast.Enum {
			return name, nil
		}
		name += "Enum"
		if b.Type(name) != nil {
			return name, nil
		}
	}

	names := make([]string, 0, len(values))
	internal := make(map[string]any, len(values))
	for _, v := range values {
		n := b.Inflector.EnumValue(v)
		names = append(names, n)
		internal[n] = v
	}
	return name, b.DefineEnum(name, "", names, internal)
}

// collectKeys returns the primary key followed by every other unique key
func collectKeys(t *Table) []Key {
	var keys []Key
	seen := map[string]bool{}
	add := func(names []string, primary bool) {
		if len(names) == 0 {
			return
		}
		id := strings.Join(names, ",")
		if seen[id] {
			return
		}
		var cols []*Column
		for _, n := range names {
			c := t.Column(n)
			if c == nil {
				return
			}
			cols = append(cols, c)
		}
		seen[id] = true
		keys = append(keys, Key{Columns: cols, Primary: primary})
	}

	add(t.Table.PrimaryKey, true)
	for _, idx := range t.Indexes {
		if idx.IsUnique {
			add(idx.Columns, false)
		}
	}
	for _, c := range t.Columns {
		if c.IsUnique {
			add([]string{c.Name}, false)
		}
	}
	return keys
}

func (b *Builder) defineRowType(t *Table) error {
	if err := b.Define(&ast.Definition{
		Kind:        ast.Object,
		Name:        t.TypeName,
		Description: describe(t.Comment, "A `%s` row of the `%s` table.", t.TypeName, t.Name),
	}); err != nil {
		return err
	}

	for _, col := range t.Columns {
		resolve := columnResolver(col.Name)
		if col.Named == "Int" && !col.List {
			resolve = intColumnResolver(col.Name)
		}
		if err := b.AddField(t.TypeName, &ast.FieldDefinition{
			Name:        col.Field,
			Type:        col.OutputType(),
			Description: col.Comment,
		}, exec.FieldResolver{Resolve: resolve}); err != nil {
			return err
		}
	}
	return nil
}

func (b *Builder) defineRootFields(t *Table) error {
	name, err := b.FieldName("Query", b.Inflector.AllRows(t.Name), inflect.Default{}.AllRows(t.Name))
	if err != nil {
		return err
	}
	if err := b.AddField("Query", &ast.FieldDefinition{
		Name:        name,
		Arguments:   b.connectionArgs(t),
		Type:        ast.NamedType(t.ConnectionName, nil),
		Description: "Reads and enables pagination through a set of `" + t.TypeName + "`.",
	}, exec.FieldResolver{Resolve: func(p graphql.ResolveParams) (interface{}, error) {
		return b.resolveConnection(p.Context, t, p.Args, nil)
	}}); err != nil {
		return err
	}

	for _, key := range t.Keys {
		key := key
		name, err := b.FieldName("Query",
			b.Inflector.RowByUniqueKey(t.Name, key.Names(), key.Primary),
			inflect.Default{}.RowByUniqueKey(t.Name, key.Names(), key.Primary))
		if err != nil {
			return err
		}

		var args ast.ArgumentDefinitionList
		for _, col := range key.Columns {
			args = append(args, &ast.ArgumentDefinition{Name: col.Field, Type: nonNull(col.NullableType())})
		}

		if err := b.AddField("Query", &ast.FieldDefinition{
			Name:      name,
			Arguments: args,
			Type:      ast.NamedType(t.TypeName, nil),
		}, exec.FieldResolver{Resolve: func(p graphql.ResolveParams) (interface{}, error) {
			return b.selectOne(p.Context, t, keyConds(key, p.Args))
		}}); err != nil {
			return err
		}
	}
	return nil
}

func (b *Builder) defineRelations(t *Table) error {
	for _, rel := range t.Relations {
		target := b.Table(rel.TargetTable)
		if target == nil {
			continue
		}
		src, tgt := t.Column(rel.SourceColumn), target.Column(rel.TargetColumn)
		if src == nil || tgt == nil {
			continue
		}
		keys := []string{src.Name}

		// Forward: the row this row points at
		forward, err := b.FieldName(t.TypeName,
			b.Inflector.SingleRelation(target.Name, keys),
			inflect.Default{}.SingleRelation(target.Name, keys))
		if err != nil {
			return err
		}
		if err := b.AddField(t.TypeName, &ast.FieldDefinition{
			Name:        forward,
			Type:        ast.NamedType(target.TypeName, nil),
			Description: "Reads a single `" + target.TypeName + "` that is related to this `" + t.TypeName + "`.",
		}, exec.FieldResolver{Resolve: func(p graphql.ResolveParams) (interface{}, error) {
			v := rowOf(p.Source)[src.Name]
			if v == nil {
				return nil, nil
			}
			return b.selectOne(p.Context, target, []sqlgen.Cond{{Column: tgt.Name, Value: v}})
		}}); err != nil {
			return err
		}

		if err := b.defineBackward(t, target, src, tgt, rel.Cardinality == schema.OneToOne); err != nil {
			return err
		}
	}
	return nil
}

// defineBackward adds the relation from the referenced row back to t
func (b *Builder) defineBackward(t, target *Table, src, tgt *Column, unique bool) error {
	keys := []string{src.Name}
	mode := b.Options.LegacyRelations
	if mode == "" {
		mode = LegacyDeprecated
	}

	single := ""
	if unique && mode != LegacyOnly {
		name, err := b.FieldName(target.TypeName,
			b.Inflector.SingleRelationBackward(t.Name, target.Name, keys),
			inflect.Default{}.SingleRelationBackward(t.Name, target.Name, keys))
		if err != nil {
			return err
		}
		single = name
		if err := b.AddField(target.TypeName, &ast.FieldDefinition{
			Name:        name,
			Type:        ast.NamedType(t.TypeName, nil),
			Description: "Reads a single `" + t.TypeName + "` that is related to this `" + target.TypeName + "`.",
		}, exec.FieldResolver{Resolve: func(p graphql.ResolveParams) (interface{}, error) {
			v := rowOf(p.Source)[tgt.Name]
			if v == nil {
				return nil, nil
			}
			return b.selectOne(p.Context, t, []sqlgen.Cond{{Column: src.Name, Value: v}})
		}}); err != nil {
			return err
		}
	}

	if unique && mode == LegacyOmit {
		return nil
	}

	name, err := b.FieldName(target.TypeName,
		b.Inflector.ManyRelation(t.Name, target.Name, keys),
		inflect.Default{}.ManyRelation(t.Name, target.Name, keys))
	if err != nil {
		return err
	}
	field := &ast.FieldDefinition{
		Name:        name,
		Arguments:   b.connectionArgs(t),
		Type:        ast.NonNullNamedType(t.ConnectionName, nil),
		Description: "Reads and enables pagination through a set of `" + t.TypeName + "`.",
	}
	if unique && mode == LegacyDeprecated && single != "" {
		field.Directives = ast.DirectiveList{deprecated("Please use " + single + " instead")}
	}
	return b.AddField(target.TypeName, field, exec.FieldResolver{Resolve: func(p graphql.ResolveParams) (interface{}, error) {
		v := rowOf(p.Source)[tgt.Name]
		if v == nil {
			return b.emptyConnection(t), nil
		}
		return b.resolveConnection(p.Context, t, p.Args, []sqlgen.Cond{{Column: src.Name, Value: v}})
	}})
}

func (b *Builder) emptyConnection(t *Table) *connection {
	zero := 0
	return &connection{b: b, table: t, total: &zero, empty: true}
}

// selectOne returns the first row matching where, or nil
func (b *Builder) selectOne(ctx context.Context, t *Table, where []sqlgen.Cond) (interface{}, error) {
	dialect := b.Conn.Dialect()
	query, args := sqlgen.BuildSelect(dialect, sqlgen.Select{
		From:  t.SQLTable(b.Source.Name, dialect),
		Where: where,
		Limit: 1,
	})
	rows, err := b.Conn.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

func keyConds(key Key, args map[string]interface{}) []sqlgen.Cond {
	conds := make([]sqlgen.Cond, 0, len(key.Columns))
	for _, col := range key.Columns {
		conds = append(conds, sqlgen.Cond{Column: col.Name, Value: args[col.Field]})
	}
	return conds
}

func columnResolver(column string) graphql.FieldResolveFn {
	return func(p graphql.ResolveParams) (interface{}, error) {
		return rowOf(p.Source)[column], nil
	}
}

// intColumnResolver fails values outside GraphQL's 32-bit Int, which
// graphql-go would otherwise serialize as null
func intColumnResolver(column string) graphql.FieldResolveFn {
	return func(p graphql.ResolveParams) (interface{}, error) {
		v := rowOf(p.Source)[column]
		if !fitsInt32(v) {
			return nil, errors.Errorf("column %q value %v is out of range for Int, declare it as bigint", column, v)
		}
		return v, nil
	}
}

func fitsInt32(v interface{}) bool {
	var n int64
	switch v := v.(type) {
	case int:
		n = int64(v)
	case int64:
		n = v
	case uint32:
		n = int64(v)
	case uint64:
		if v > math.MaxInt32 {
			return false
		}
		n = int64(v)
	default:
		return true
	}
	return n >= math.MinInt32 && n <= math.MaxInt32
}

func rowOf(source interface{}) db.Row {
	switch r := source.(type) {
	case db.Row:
		return r
	case map[string]interface{}:
		return r
	default:
		return nil
	}
}

func nonNull(t *ast.Type) *ast.Type {
	out := *t
	out.NonNull = true
	return &out
}

func deprecated(reason string) *ast.Directive {
	return &ast.Directive{
		Name: "deprecated",
		Arguments: ast.ArgumentList{
			{Name: "reason", Value: &ast.Value{Kind: ast.StringValue, Raw: reason}},
		},
	}
}
