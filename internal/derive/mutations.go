package derive

import (
	"context"

	"github.com/graphql-go/graphql"
	"github.com/pkg/errors"
	"github.com/vektah/gqlparser/v2/ast"

	"github.com/tordrt/autogql/internal/db"
	"github.com/tordrt/autogql/internal/exec"
	"github.com/tordrt/autogql/internal/inflect"
	"github.com/tordrt/autogql/internal/sqlgen"
)

const clientMutationID = "clientMutationId"

func (b *Builder) mutationRoot() {
	b.EnsureObject("Mutation", "The root mutation type which contains root level fields which mutate data.")
}

// defineMutations adds create, update and delete fields for each privilege the role holds
func (b *Builder) defineMutations(t *Table) error {
	privs := t.Privileges
	if b.Options.IgnorePrivileges {
		privs.Insert, privs.Update, privs.Delete = true, true, true
	}

	if privs.Insert {
		if err := b.defineCreate(t); err != nil {
			return err
		}
	}
	if len(t.Keys) == 0 || !(privs.Update || privs.Delete) {
		return nil
	}

	if privs.Update {
		if err := b.definePayload(t, b.Inflector.UpdatePayloadType(t.Name), "updated"); err != nil {
			return err
		}
		if err := b.definePatch(t); err != nil {
			return err
		}
	}
	if privs.Delete {
		if err := b.definePayload(t, b.Inflector.DeletePayloadType(t.Name), "deleted"); err != nil {
			return err
		}
	}

	for _, key := range t.Keys {
		if privs.Update {
			if err := b.defineUpdate(t, key); err != nil {
				return err
			}
		}
		if privs.Delete {
			if err := b.defineDelete(t, key); err != nil {
				return err
			}
		}
	}
	return nil
}

func (b *Builder) definePayload(t *Table, name, verb string) error {
	return b.Define(&ast.Definition{
		Kind:        ast.Object,
		Name:        name,
		Description: "The output of our " + verb + " `" + t.TypeName + "` mutation.",
		Fields: ast.FieldList{
			{
				Name:        clientMutationID,
				Type:        ast.NamedType("String", nil),
				Description: "The exact same `clientMutationId` that was provided in the mutation input, unchanged and unused. May be used by a client to track mutations.",
			},
			{
				Name:        b.Inflector.RowField(t.Name),
				Type:        ast.NamedType(t.TypeName, nil),
				Description: "The `" + t.TypeName + "` that was " + verb + " by this mutation.",
			},
			{
				Name:        "query",
				Type:        ast.NamedType("Query", nil),
				Description: "Our root query field type. Allows us to run any query from our mutation payload.",
			},
		},
	})
}

func (b *Builder) payload(t *Table, input map[string]interface{}, row db.Row) map[string]interface{} {
	out := map[string]interface{}{
		clientMutationID: input[clientMutationID],
		"query":          map[string]interface{}{},
	}
	if row != nil {
		out[b.Inflector.RowField(t.Name)] = row
	}
	return out
}

func clientMutationIDField() *ast.FieldDefinition {
	return &ast.FieldDefinition{
		Name:        clientMutationID,
		Type:        ast.NamedType("String", nil),
		Description: "An arbitrary string value with no semantic meaning. Will be included in the payload verbatim. May be used to track mutations by the client.",
	}
}

func (b *Builder) defineCreate(t *Table) error {
	inputName := b.Inflector.InputType(t.Name)
	row := &ast.Definition{
		Kind:        ast.InputObject,
		Name:        inputName,
		Description: "An input for mutations affecting `" + t.TypeName + "`",
	}
	for _, col := range t.Columns {
		typ := col.NullableType()
		if col.RequiredOnCreate() {
			typ = nonNull(typ)
		}
		row.Fields = append(row.Fields, &ast.FieldDefinition{Name: col.Field, Type: typ, Description: col.Comment})
	}
	if len(row.Fields) == 0 {
		return nil
	}
	if err := b.Define(row); err != nil {
		return err
	}

	rowField := b.Inflector.RowField(t.Name)
	input := b.Inflector.CreateInputType(t.Name)
	if err := b.Define(&ast.Definition{
		Kind:        ast.InputObject,
		Name:        input,
		Description: "All input for the create `" + t.TypeName + "` mutation.",
		Fields: ast.FieldList{
			clientMutationIDField(),
			{Name: rowField, Type: ast.NonNullNamedType(inputName, nil), Description: "The `" + t.TypeName + "` to be created by this mutation."},
		},
	}); err != nil {
		return err
	}
	payload := b.Inflector.CreatePayloadType(t.Name)
	if err := b.definePayload(t, payload, "created"); err != nil {
		return err
	}

	b.mutationRoot()
	name, err := b.FieldName("Mutation", b.Inflector.CreateField(t.Name), inflect.Default{}.CreateField(t.Name))
	if err != nil {
		return err
	}
	return b.AddField("Mutation", &ast.FieldDefinition{
		Name: name,
		Arguments: ast.ArgumentDefinitionList{{
			Name:        "input",
			Type:        ast.NonNullNamedType(input, nil),
			Description: "The exclusive input argument for this mutation. An object type, make sure to see documentation for this object’s fields.",
		}},
		Type:        ast.NamedType(payload, nil),
		Description: "Creates a single `" + t.TypeName + "`.",
	}, exec.FieldResolver{Resolve: func(p graphql.ResolveParams) (interface{}, error) {
		in, _ := p.Args["input"].(map[string]interface{})
		values, _ := in[rowField].(map[string]interface{})
		created, err := b.insertRow(p.Context, t, assignments(t, values))
		if err != nil {
			return nil, err
		}
		return b.payload(t, in, created), nil
	}})
}

func (b *Builder) definePatch(t *Table) error {
	patch := &ast.Definition{
		Kind:        ast.InputObject,
		Name:        b.Inflector.PatchType(t.Name),
		Description: "Represents an update to a `" + t.TypeName + "`. Fields that are set will be updated.",
	}
	for _, col := range t.Columns {
		patch.Fields = append(patch.Fields, &ast.FieldDefinition{Name: col.Field, Type: col.NullableType(), Description: col.Comment})
	}
	return b.Define(patch)
}

func (b *Builder) keyInput(key Key, name, description string, extra ...*ast.FieldDefinition) error {
	def := &ast.Definition{
		Kind:        ast.InputObject,
		Name:        name,
		Description: description,
		Fields:      append(ast.FieldList{clientMutationIDField()}, extra...),
	}
	for _, col := range key.Columns {
		def.Fields = append(def.Fields, &ast.FieldDefinition{Name: col.Field, Type: nonNull(col.NullableType())})
	}
	return b.Define(def)
}

func (b *Builder) defineUpdate(t *Table, key Key) error {
	keys := key.Names()
	patchField := b.Inflector.PatchField(t.Name)
	if key.ColumnByField(patchField) != nil {
		patchField = inflect.Default{}.PatchField(t.Name)
	}

	input := b.Inflector.UpdateInputType(t.Name, keys, key.Primary)
	if err := b.keyInput(key, input,
		"All input for the `"+b.Inflector.UpdateField(t.Name, keys, key.Primary)+"` mutation.",
		&ast.FieldDefinition{
			Name:        patchField,
			Type:        ast.NonNullNamedType(b.Inflector.PatchType(t.Name), nil),
			Description: "An object where the defined keys will be set on the `" + t.TypeName + "` being updated.",
		}); err != nil {
		return err
	}

	b.mutationRoot()
	name, err := b.FieldName("Mutation",
		b.Inflector.UpdateField(t.Name, keys, key.Primary),
		inflect.Default{}.UpdateField(t.Name, keys, key.Primary))
	if err != nil {
		return err
	}
	return b.AddField("Mutation", &ast.FieldDefinition{
		Name:        name,
		Arguments:   ast.ArgumentDefinitionList{{Name: "input", Type: ast.NonNullNamedType(input, nil)}},
		Type:        ast.NamedType(b.Inflector.UpdatePayloadType(t.Name), nil),
		Description: "Updates a single `" + t.TypeName + "` using a unique key and a patch.",
	}, exec.FieldResolver{Resolve: func(p graphql.ResolveParams) (interface{}, error) {
		in, _ := p.Args["input"].(map[string]interface{})
		patch, _ := in[patchField].(map[string]interface{})
		updated, err := b.updateRow(p.Context, t, keyConds(key, in), assignments(t, patch))
		if err != nil {
			return nil, err
		}
		return b.payload(t, in, updated), nil
	}})
}

func (b *Builder) defineDelete(t *Table, key Key) error {
	keys := key.Names()
	input := b.Inflector.DeleteInputType(t.Name, keys, key.Primary)
	if err := b.keyInput(key, input,
		"All input for the `"+b.Inflector.DeleteField(t.Name, keys, key.Primary)+"` mutation."); err != nil {
		return err
	}

	b.mutationRoot()
	name, err := b.FieldName("Mutation",
		b.Inflector.DeleteField(t.Name, keys, key.Primary),
		inflect.Default{}.DeleteField(t.Name, keys, key.Primary))
	if err != nil {
		return err
	}
	return b.AddField("Mutation", &ast.FieldDefinition{
		Name:        name,
		Arguments:   ast.ArgumentDefinitionList{{Name: "input", Type: ast.NonNullNamedType(input, nil)}},
		Type:        ast.NamedType(b.Inflector.DeletePayloadType(t.Name), nil),
		Description: "Deletes a single `" + t.TypeName + "` using a unique key.",
	}, exec.FieldResolver{Resolve: func(p graphql.ResolveParams) (interface{}, error) {
		in, _ := p.Args["input"].(map[string]interface{})
		deleted, err := b.deleteRow(p.Context, t, keyConds(key, in))
		if err != nil {
			return nil, err
		}
		return b.payload(t, in, deleted), nil
	}})
}

// ColumnByField returns the key column with the given field name, or nil
func (k Key) ColumnByField(field string) *Column {
	for _, c := range k.Columns {
		if c.Field == field {
			return c
		}
	}
	return nil
}

// assignments converts an input object into column assignments in column order
func assignments(t *Table, values map[string]interface{}) []sqlgen.Assignment {
	var out []sqlgen.Assignment
	for _, col := range t.Columns {
		if v, ok := values[col.Field]; ok {
			out = append(out, sqlgen.Assignment{Column: col.Name, Value: v})
		}
	}
	return out
}

func (b *Builder) insertRow(ctx context.Context, t *Table, values []sqlgen.Assignment) (db.Row, error) {
	dialect := b.Conn.Dialect()
	table := t.SQLTable(b.Source.Name, dialect)
	query, args := sqlgen.BuildInsert(dialect, table, values)

	if dialect.Returning() {
		rows, err := b.Conn.Query(ctx, query, args...)
		if err != nil {
			return nil, err
		}
		if len(rows) == 0 {
			return nil, nil
		}
		return rows[0], nil
	}

	res, err := b.Conn.Exec(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	pk := t.PrimaryKey()
	if pk == nil {
		return nil, nil
	}

	// Find the row again by its primary key
	supplied := map[string]any{}
	for _, v := range values {
		supplied[v.Column] = v.Value
	}
	var where []sqlgen.Cond
	for _, col := range pk.Columns {
		v, ok := supplied[col.Name]
		if !ok && col.AutoIncrement {
			v, ok = res.LastInsertID, true
		}
		if !ok {
			return nil, nil
		}
		where = append(where, sqlgen.Cond{Column: col.Name, Value: v})
	}
	return b.selectRow(ctx, t, where)
}

func (b *Builder) updateRow(ctx context.Context, t *Table, where []sqlgen.Cond, set []sqlgen.Assignment) (db.Row, error) {
	notFound := errors.Errorf("No values were updated in collection '%s' because no values you asked to update exist or you do not have permission to do so.", t.Name)
	dialect := b.Conn.Dialect()
	table := t.SQLTable(b.Source.Name, dialect)

	if len(set) == 0 {
		return nil, errors.Errorf("No values were updated in collection '%s' because the patch is empty.", t.Name)
	}
	query, args, err := sqlgen.BuildUpdate(dialect, table, set, where)
	if err != nil {
		return nil, err
	}

	if dialect.Returning() {
		rows, err := b.Conn.Query(ctx, query, args...)
		if err != nil {
			return nil, err
		}
		if len(rows) == 0 {
			return nil, notFound
		}
		return rows[0], nil
	}

	existing, err := b.selectRow(ctx, t, where)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, notFound
	}
	if _, err := b.Conn.Exec(ctx, query, args...); err != nil {
		return nil, err
	}

	// The key itself may have been patched
	after := make([]sqlgen.Cond, len(where))
	copy(after, where)
	for i, cond := range after {
		for _, a := range set {
			if a.Column == cond.Column {
				after[i].Value = a.Value
			}
		}
	}
	return b.selectRow(ctx, t, after)
}

func (b *Builder) deleteRow(ctx context.Context, t *Table, where []sqlgen.Cond) (db.Row, error) {
	notFound := errors.Errorf("No values were deleted in collection '%s' because no values you asked to delete exist or you do not have permission to do so.", t.Name)
	dialect := b.Conn.Dialect()
	query, args := sqlgen.BuildDelete(dialect, t.SQLTable(b.Source.Name, dialect), where)

	if dialect.Returning() {
		rows, err := b.Conn.Query(ctx, query, args...)
		if err != nil {
			return nil, err
		}
		if len(rows) == 0 {
			return nil, notFound
		}
		return rows[0], nil
	}

	existing, err := b.selectRow(ctx, t, where)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, notFound
	}
	res, err := b.Conn.Exec(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	if res.RowsAffected == 0 {
		return nil, notFound
	}
	return existing, nil
}

// selectRow is selectOne with a typed result
func (b *Builder) selectRow(ctx context.Context, t *Table, where []sqlgen.Cond) (db.Row, error) {
	v, err := b.selectOne(ctx, t, where)
	if err != nil || v == nil {
		return nil, err
	}
	return v.(db.Row), nil
}
