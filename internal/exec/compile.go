// Package exec compiles a derived SDL document and its resolver table into an
// executable graphql-go schema.
package exec

import (
	"reflect"
	"strings"

	"github.com/graphql-go/graphql"
	"github.com/pkg/errors"
	"github.com/vektah/gqlparser/v2/ast"
)

// FieldResolver binds one schema field. Subscribe is only used on the subscription root.
type FieldResolver struct {
	Resolve   graphql.FieldResolveFn
	Subscribe graphql.FieldResolveFn
}

// Bindings attach runtime behavior to a schema document
type Bindings struct {
	// Resolvers is keyed by "Type.field"
	Resolvers map[string]FieldResolver
	// EnumValues maps enum type name to value name to the internal value.
	// Values that are not listed resolve to their own name.
	EnumValues map[string]map[string]any
}

// Options tunes scalar behavior
type Options struct {
	DynamicJSON bool
}

type compiler struct {
	schema   *ast.Schema
	bindings Bindings
	scalars  map[string]*graphql.Scalar
	types    map[string]graphql.Type
	err      error
}

// Compile builds an executable schema. Every object, input object, enum and
// scalar reachable from the roots must be defined in s.
func Compile(s *ast.Schema, bindings Bindings, opts Options) (*graphql.Schema, error) {
	if s.Query == nil {
		return nil, errors.New("schema has no query root")
	}

	c := &compiler{
		schema:   s,
		bindings: bindings,
		scalars:  newScalars(opts),
		types:    map[string]graphql.Type{},
	}

	cfg := graphql.SchemaConfig{}
	var ok bool
	if cfg.Query, ok = c.named(s.Query.Name).(*graphql.Object); !ok {
		return nil, errors.Errorf("query root %s is not an object", s.Query.Name)
	}
	if s.Mutation != nil {
		cfg.Mutation, _ = c.named(s.Mutation.Name).(*graphql.Object)
	}
	if s.Subscription != nil {
		cfg.Subscription, _ = c.named(s.Subscription.Name).(*graphql.Object)
	}

	// Materialize every definition so thunk errors surface before schema validation
	for name, def := range s.Types {
		if def.BuiltIn || strings.HasPrefix(name, "__") {
			continue
		}
		cfg.Types = append(cfg.Types, c.named(name))
	}
	if c.err != nil {
		return nil, c.err
	}

	compiled, err := graphql.NewSchema(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build executable schema")
	}
	if c.err != nil {
		return nil, c.err
	}
	return &compiled, nil
}

func (c *compiler) fail(format string, args ...any) {
	if c.err == nil {
		c.err = errors.Errorf(format, args...)
	}
}

func (c *compiler) named(name string) graphql.Type {
	if t, ok := c.types[name]; ok {
		return t
	}

	switch name {
	case "Int":
		return graphql.Int
	case "Float":
		return graphql.Float
	case "String":
		return graphql.String
	case "Boolean":
		return graphql.Boolean
	case "ID":
		return graphql.ID
	}
	if s, ok := c.scalars[name]; ok {
		c.types[name] = s
		return s
	}

	def := c.schema.Types[name]
	if def == nil {
		c.fail("unknown type %s", name)
		return graphql.String
	}

	var t graphql.Type
	switch def.Kind {
	case ast.Object:
		t = c.object(def)
	case ast.InputObject:
		t = c.inputObject(def)
	case ast.Enum:
		t = c.enum(def)
	case ast.Scalar:
		c.fail("scalar %s has no implementation", name)
		t = graphql.String
	default:
		c.fail("type %s of kind %s is not supported", name, def.Kind)
		t = graphql.String
	}
	c.types[name] = t
	return t
}

func (c *compiler) typeRef(t *ast.Type) graphql.Type {
	var out graphql.Type
	if t.Elem != nil {
		out = graphql.NewList(c.typeRef(t.Elem))
	} else {
		out = c.named(t.NamedType)
	}
	if t.NonNull {
		out = graphql.NewNonNull(out)
	}
	return out
}

func (c *compiler) object(def *ast.Definition) *graphql.Object {
	return graphql.NewObject(graphql.ObjectConfig{
		Name:        def.Name,
		Description: def.Description,
		Fields: graphql.FieldsThunk(func() graphql.Fields {
			fields := graphql.Fields{}
			for _, f := range def.Fields {
				if strings.HasPrefix(f.Name, "__") {
					continue
				}
				fields[f.Name] = c.field(def.Name, f)
			}
			return fields
		}),
	})
}

func (c *compiler) field(typeName string, f *ast.FieldDefinition) *graphql.Field {
	out, ok := c.typeRef(f.Type).(graphql.Output)
	if !ok {
		c.fail("%s.%s: %s is not an output type", typeName, f.Name, f.Type)
	}

	field := &graphql.Field{
		Name:              f.Name,
		Type:              out,
		Description:       f.Description,
		DeprecationReason: deprecationReason(f.Directives),
		Args:              graphql.FieldConfigArgument{},
	}

	for _, arg := range f.Arguments {
		in, ok := c.typeRef(arg.Type).(graphql.Input)
		if !ok {
			c.fail("%s.%s(%s): %s is not an input type", typeName, f.Name, arg.Name, arg.Type)
			continue
		}
		cfg := &graphql.ArgumentConfig{Type: in, Description: arg.Description}
		if arg.DefaultValue != nil {
			cfg.DefaultValue = c.defaultValue(arg.DefaultValue, arg.Type)
		}
		field.Args[arg.Name] = cfg
	}

	if r, ok := c.bindings.Resolvers[typeName+"."+f.Name]; ok {
		field.Resolve = r.Resolve
		field.Subscribe = r.Subscribe
	}
	if field.Resolve == nil {
		field.Resolve = mapResolver(f.Name)
	}
	return field
}

func (c *compiler) inputObject(def *ast.Definition) *graphql.InputObject {
	return graphql.NewInputObject(graphql.InputObjectConfig{
		Name:        def.Name,
		Description: def.Description,
		Fields: graphql.InputObjectConfigFieldMapThunk(func() graphql.InputObjectConfigFieldMap {
			fields := graphql.InputObjectConfigFieldMap{}
			for _, f := range def.Fields {
				in, ok := c.typeRef(f.Type).(graphql.Input)
				if !ok {
					c.fail("%s.%s: %s is not an input type", def.Name, f.Name, f.Type)
					continue
				}
				cfg := &graphql.InputObjectFieldConfig{Type: in, Description: f.Description}
				if f.DefaultValue != nil {
					cfg.DefaultValue = c.defaultValue(f.DefaultValue, f.Type)
				}
				fields[f.Name] = cfg
			}
			return fields
		}),
	})
}

func (c *compiler) enum(def *ast.Definition) *graphql.Enum {
	values := graphql.EnumValueConfigMap{}
	internal := c.bindings.EnumValues[def.Name]
	for _, v := range def.EnumValues {
		var value any = v.Name
		if iv, ok := internal[v.Name]; ok {
			value = iv
		}
		values[v.Name] = &graphql.EnumValueConfig{
			Value:             value,
			Description:       v.Description,
			DeprecationReason: deprecationReason(v.Directives),
		}
	}
	return graphql.NewEnum(graphql.EnumConfig{
		Name:        def.Name,
		Description: def.Description,
		Values:      values,
	})
}

// defaultValue converts an SDL default into the internal value graphql-go expects
func (c *compiler) defaultValue(v *ast.Value, t *ast.Type) any {
	if v.Kind == ast.NullValue {
		return nil
	}
	if t.Elem != nil {
		if v.Kind != ast.ListValue {
			return []any{c.defaultValue(v, t.Elem)}
		}
		out := make([]any, 0, len(v.Children))
		for _, child := range v.Children {
			out = append(out, c.defaultValue(child.Value, t.Elem))
		}
		return out
	}
	if v.Kind == ast.EnumValue {
		if iv, ok := c.bindings.EnumValues[t.NamedType][v.Raw]; ok {
			return iv
		}
		return v.Raw
	}
	out, err := v.Value(nil)
	if err != nil {
		c.fail("invalid default value %s: %v", v.String(), err)
	}
	return out
}

func deprecationReason(directives ast.DirectiveList) string {
	d := directives.ForName("deprecated")
	if d == nil {
		return ""
	}
	if reason := d.Arguments.ForName("reason"); reason != nil && reason.Value != nil {
		return reason.Value.Raw
	}
	return "No longer supported"
}

// mapResolver reads name from any string-keyed map source and otherwise
// falls back to graphql-go's struct resolution.
func mapResolver(name string) graphql.FieldResolveFn {
	return func(p graphql.ResolveParams) (interface{}, error) {
		if p.Source == nil {
			return nil, nil
		}
		if m, ok := p.Source.(map[string]interface{}); ok {
			return m[name], nil
		}
		v := reflect.ValueOf(p.Source)
		if v.Kind() == reflect.Map && v.Type().Key().Kind() == reflect.String {
			item := v.MapIndex(reflect.ValueOf(name).Convert(v.Type().Key()))
			if !item.IsValid() {
				return nil, nil
			}
			return item.Interface(), nil
		}
		return graphql.DefaultResolveFn(p)
	}
}
