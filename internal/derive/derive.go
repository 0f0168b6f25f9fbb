// Package derive turns introspected relational metadata into a GraphQL schema
// document and the resolvers that serve it.
//
// Derivation is a pipeline of plugins over a shared Builder. Inflector plugins
// rename things; schema plugins add types, fields and resolvers. The base CRUD
// plugin always runs first.
package derive

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/pkg/errors"
	"github.com/vektah/gqlparser/v2"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/formatter"

	"github.com/tordrt/autogql/internal/db"
	"github.com/tordrt/autogql/internal/exec"
	"github.com/tordrt/autogql/internal/inflect"
	"github.com/tordrt/autogql/internal/schema"
)

// LegacyRelations modes for unique backward relations
const (
	LegacyOmit       = "omit"
	LegacyDeprecated = "deprecated"
	LegacyOnly       = "only"
)

// Plugin is a named derivation step
type Plugin interface {
	Name() string
}

// InflectorPlugin replaces the naming scheme
type InflectorPlugin interface {
	Plugin
	Inflector(base inflect.Inflector) inflect.Inflector
}

// SchemaPlugin extends the schema after the base CRUD surface exists
type SchemaPlugin interface {
	Plugin
	Apply(b *Builder) error
}

// Options controls derivation
type Options struct {
	SetofFunctionsContainNulls bool
	IgnorePrivileges           bool
	LegacyRelations            string
	Plugins                    []Plugin
}

// Result is a derived schema
type Result struct {
	Document *ast.SchemaDocument
	Schema   *ast.Schema
	SDL      string
	Bindings exec.Bindings
}

// Builder accumulates the schema document and its bindings
type Builder struct {
	Source    *schema.Schema
	Conn      db.Conn
	Inflector inflect.Inflector
	Options   Options

	defs     map[string]*ast.Definition
	order    []string
	bindings exec.Bindings
	tables   []*Table
	byName   map[string]*Table
}

// InflectorFor returns the naming the plugins settle on, starting from the default
func InflectorFor(plugins []Plugin) inflect.Inflector {
	var infl inflect.Inflector = inflect.Default{}
	for _, p := range plugins {
		if ip, ok := p.(InflectorPlugin); ok {
			infl = ip.Inflector(infl)
		}
	}
	return infl
}

// Derive runs the plugin pipeline and validates the resulting document
func Derive(source *schema.Schema, conn db.Conn, opts Options) (*Result, error) {
	b := &Builder{
		Source:    source,
		Conn:      conn,
		Inflector: InflectorFor(opts.Plugins),
		Options:   opts,
		defs:      map[string]*ast.Definition{},
		bindings: exec.Bindings{
			Resolvers:  map[string]exec.FieldResolver{},
			EnumValues: map[string]map[string]any{},
		},
		byName: map[string]*Table{},
	}

	plugins := append([]Plugin{BasePlugin{}}, opts.Plugins...)
	for _, p := range plugins {
		sp, ok := p.(SchemaPlugin)
		if !ok {
			continue
		}
		if err := sp.Apply(b); err != nil {
			return nil, errors.Wrapf(err, "plugin %s", p.Name())
		}
	}

	return b.finish()
}

// Table returns the exposed table with the given SQL name, or nil
func (b *Builder) Table(name string) *Table {
	return b.byName[name]
}

// Tables returns every exposed table in source order
func (b *Builder) Tables() []*Table {
	return b.tables
}

// Type returns a defined type, or nil
func (b *Builder) Type(name string) *ast.Definition {
	return b.defs[name]
}

// Define adds a new named type
func (b *Builder) Define(def *ast.Definition) error {
	if _, exists := b.defs[def.Name]; exists {
		return errors.Errorf("type %s is defined twice", def.Name)
	}
	b.defs[def.Name] = def
	b.order = append(b.order, def.Name)
	return nil
}

// DefineEnum adds an enum whose values map to the given internal values
func (b *Builder) DefineEnum(name, description string, names []string, values map[string]any) error {
	def := &ast.Definition{Kind: ast.Enum, Name: name, Description: description}
	for _, n := range names {
		def.EnumValues = append(def.EnumValues, &ast.EnumValueDefinition{Name: n})
	}
	if err := b.Define(def); err != nil {
		return err
	}
	if values != nil {
		b.bindings.EnumValues[name] = values
	}
	return nil
}

// HasField reports whether typeName already has a field called name
func (b *Builder) HasField(typeName, name string) bool {
	def := b.defs[typeName]
	return def != nil && def.Fields.ForName(name) != nil
}

// AddField appends a field to a defined type and binds its resolver
func (b *Builder) AddField(typeName string, f *ast.FieldDefinition, r exec.FieldResolver) error {
	def := b.defs[typeName]
	if def == nil {
		return errors.Errorf("cannot add %s to undefined type %s", f.Name, typeName)
	}
	if def.Fields.ForName(f.Name) != nil {
		return errors.Errorf("field %s.%s is defined twice", typeName, f.Name)
	}
	def.Fields = append(def.Fields, f)
	if r.Resolve != nil || r.Subscribe != nil {
		b.bindings.Resolvers[typeName+"."+f.Name] = r
	}
	return nil
}

// FieldName returns the first candidate not yet used on typeName
func (b *Builder) FieldName(typeName string, candidates ...string) (string, error) {
	for _, c := range candidates {
		if !b.HasField(typeName, c) {
			return c, nil
		}
	}
	return "", errors.Errorf("no free field name on %s among %v", typeName, candidates)
}

// EnsureObject defines an empty object type when it does not exist yet
func (b *Builder) EnsureObject(name, description string) {
	if b.defs[name] == nil {
		_ = b.Define(&ast.Definition{Kind: ast.Object, Name: name, Description: description})
	}
}

func (b *Builder) finish() (*Result, error) {
	for _, scalar := range exec.CustomScalars {
		if b.usesType(scalar) {
			_ = b.Define(&ast.Definition{Kind: ast.Scalar, Name: scalar, Description: scalarDescriptions[scalar]})
		}
	}

	doc := &ast.SchemaDocument{}
	names := append([]string(nil), b.order...)
	sort.Slice(names, func(i, j int) bool {
		ri, rj := rootRank(names[i]), rootRank(names[j])
		if ri != rj {
			return ri < rj
		}
		return names[i] < names[j]
	})
	for _, name := range names {
		doc.Definitions = append(doc.Definitions, b.defs[name])
	}

	var buf bytes.Buffer
	formatter.NewFormatter(&buf).FormatSchemaDocument(doc)
	sdl := buf.String()

	validated, err := gqlparser.LoadSchema(&ast.Source{Name: "schema.graphql", Input: sdl})
	if err != nil {
		return nil, errors.Wrap(err, "derived schema is invalid")
	}

	return &Result{Document: doc, Schema: validated, SDL: sdl, Bindings: b.bindings}, nil
}

func rootRank(name string) int {
	switch name {
	case "Query":
		return 0
	case "Mutation":
		return 1
	case "Subscription":
		return 2
	default:
		return 3
	}
}

func (b *Builder) usesType(name string) bool {
	for _, def := range b.defs {
		for _, f := range def.Fields {
			if namedType(f.Type) == name {
				return true
			}
			for _, arg := range f.Arguments {
				if namedType(arg.Type) == name {
					return true
				}
			}
		}
	}
	return false
}

func namedType(t *ast.Type) string {
	for t.Elem != nil {
		t = t.Elem
	}
	return t.NamedType
}

var scalarDescriptions = map[string]string{
	exec.BigInt:   "A signed eight-byte integer. The upper big integer values are greater than the max value for a JavaScript number. Therefore all big integers will be output as strings and not numbers.",
	exec.BigFloat: "A floating point number that requires more precision than IEEE 754 binary 64",
	exec.Cursor:   "A location in a connection that can be used for resuming pagination.",
	exec.Date:     "The day, does not include a time.",
	exec.Datetime: "A point in time as described by the [ISO 8601](https://en.wikipedia.org/wiki/ISO_8601) standard. May or may not include a timezone.",
	exec.JSON:     "A JavaScript object encoded in the JSON format as specified by [ECMA-404](http://www.ecma-international.org/publications/files/ECMA-ST/ECMA-404.pdf).",
	exec.Time:     "The exact time of day, does not include the date. May or may not have a timezone offset.",
	exec.UUID:     "A universally unique identifier as defined by [RFC 4122](https://tools.ietf.org/html/rfc4122).",
}

// describe returns a table or column comment, falling back to a generic description
func describe(comment, fallback string, args ...any) string {
	if comment != "" {
		return comment
	}
	return fmt.Sprintf(fallback, args...)
}
