package codegen

import (
	"bytes"
	"fmt"
	"go/format"
	"path"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"text/template"
	"unicode"

	"github.com/iancoleman/strcase"
	"github.com/pkg/errors"
	"github.com/vektah/gqlparser/v2/ast"
)

// DefaultScalars maps GraphQL scalars to Go types. Qualified types name
// their import path before the final dot.
var DefaultScalars = map[string]string{
	"Int":      "int",
	"Float":    "float64",
	"String":   "string",
	"Boolean":  "bool",
	"ID":       "string",
	"BigInt":   "string",
	"BigFloat": "string",
	"Cursor":   "string",
	"Datetime": "string",
	"Date":     "string",
	"Time":     "string",
	"UUID":     "string",
	"JSON":     "encoding/json.RawMessage",
}

var artifactTemplate = template.Must(template.New("artifact").Parse(`{{.Marker}}
// Source: {{.Origin}}

package {{.Package}}

import (
{{- range .Imports}}
	"{{.}}"
{{- end}}
)

// {{.DocVar}} is the {{.OpName}} {{.Kind}} bound to its data and variable types
var {{.DocVar}} = client.TypedDocument[{{.DataType}}, {{.VarsType}}]{
	OperationName: {{printf "%q" .OpName}},
	Source:        {{.Source}},
}
{{range .Types}}
{{- if .Doc}}
// {{.Doc}}
{{- end}}
type {{.Name}} struct {
{{- range .Fields}}
	{{.Name}} {{.Type}} ` + "`" + `json:"{{.Tag}}"` + "`" + `
{{- end}}
}
{{end}}`))

type artifact struct {
	Marker   string
	Origin   string
	Package  string
	Imports  []string
	DocVar   string
	OpName   string
	Kind     string
	DataType string
	VarsType string
	Source   string
	Types    []*goType
}

type goType struct {
	Name   string
	Doc    string
	Fields []goField
}

type goField struct {
	Name string
	Type string
	Tag  string
}

// typeBuilder accumulates the Go types of one operation
type typeBuilder struct {
	schema  *ast.Schema
	scalars map[string]string
	prefix  string
	imports map[string]bool
	types   []*goType
	named   map[string]bool
	// inputs maps input object names to their declared Go type
	inputs map[string]string
}

func render(cfg *Config, schema *ast.Schema, pkg string, op operation) ([]byte, error) {
	scalars := map[string]string{}
	for k, v := range DefaultScalars {
		scalars[k] = v
	}
	for k, v := range cfg.Scalars {
		scalars[k] = v
	}

	b := &typeBuilder{
		schema:  schema,
		scalars: scalars,
		prefix:  goName(op.op.Name),
		imports: map[string]bool{ClientPackage: true},
		named:   map[string]bool{},
		inputs:  map[string]string{},
	}

	root := rootType(schema, op.op.Operation)
	if root == nil {
		return nil, errors.Errorf("schema has no %s root", op.op.Operation)
	}
	dataType := b.prefix + "Data"
	b.object(dataType, b.prefix, fmt.Sprintf("%s is the data of a %s response", dataType, op.op.Name), root, []ast.SelectionSet{op.op.SelectionSet})
	varsType, err := b.variables(op.op)
	if err != nil {
		return nil, err
	}

	origin := op.doc.origin()
	if cfg.BaseDir != "" {
		if rel, err := filepath.Rel(cfg.BaseDir, op.doc.file); err == nil {
			origin = document{file: rel, line: op.doc.line}.origin()
		}
	}

	imports := make([]string, 0, len(b.imports))
	for imp := range b.imports {
		imports = append(imports, imp)
	}
	sort.Strings(imports)

	var buf bytes.Buffer
	if err := artifactTemplate.Execute(&buf, artifact{
		Marker:   GeneratedMarker,
		Origin:   filepath.ToSlash(origin),
		Package:  pkg,
		Imports:  imports,
		DocVar:   b.prefix + "Document",
		OpName:   op.op.Name,
		Kind:     string(op.op.Operation),
		DataType: dataType,
		VarsType: varsType,
		Source:   goLiteral(op.doc.text),
		Types:    b.types,
	}); err != nil {
		return nil, errors.Wrap(err, "failed to render artifact")
	}

	out, err := format.Source(buf.Bytes())
	if err != nil {
		return nil, errors.Wrap(err, "generated code does not parse")
	}
	return out, nil
}

func rootType(schema *ast.Schema, op ast.Operation) *ast.Definition {
	switch op {
	case ast.Mutation:
		return schema.Mutation
	case ast.Subscription:
		return schema.Subscription
	default:
		return schema.Query
	}
}

// selected is one response key of a struct, merged across fragments
type selected struct {
	key      string
	field    *ast.Field
	optional bool
	sets     []ast.SelectionSet
}

func (b *typeBuilder) collect(parent *ast.Definition, set ast.SelectionSet, optional bool, out *[]*selected, index map[string]*selected) {
	for _, s := range set {
		switch s := s.(type) {
		case *ast.Field:
			key := s.Alias
			if key == "" {
				key = s.Name
			}
			if existing, ok := index[key]; ok {
				existing.sets = append(existing.sets, s.SelectionSet)
				existing.optional = existing.optional && optional
				continue
			}
			sel := &selected{key: key, field: s, optional: optional, sets: []ast.SelectionSet{s.SelectionSet}}
			index[key] = sel
			*out = append(*out, sel)
		case *ast.InlineFragment:
			narrower := s.TypeCondition != "" && s.TypeCondition != parent.Name
			b.collect(parent, s.SelectionSet, optional || narrower, out, index)
		case *ast.FragmentSpread:
			if s.Definition == nil {
				continue
			}
			narrower := s.Definition.TypeCondition != parent.Name
			b.collect(parent, s.Definition.SelectionSet, optional || narrower, out, index)
		}
	}
}

// object declares a struct for the selections on def and returns its name.
// Nested structs are named childPrefix plus the field key; empty means the struct's own name.
func (b *typeBuilder) object(name, childPrefix, doc string, def *ast.Definition, sets []ast.SelectionSet) string {
	var fields []*selected
	index := map[string]*selected{}
	for _, set := range sets {
		b.collect(def, set, false, &fields, index)
	}

	t := &goType{Name: b.unique(name), Doc: doc}
	if childPrefix == "" {
		childPrefix = t.Name
	}
	b.types = append(b.types, t)
	used := map[string]bool{}
	for _, f := range fields {
		field := fieldName(used, f.key)
		t.Fields = append(t.Fields, goField{
			Name: field,
			Type: b.output(f, childPrefix+field),
			Tag:  f.key,
		})
	}
	return t.Name
}

func (b *typeBuilder) output(f *selected, name string) string {
	if f.field.Definition == nil || f.field.Name == "__typename" {
		return "string"
	}
	return b.outputType(f.field.Definition.Type, name, f)
}

func (b *typeBuilder) outputType(t *ast.Type, name string, f *selected) string {
	if t.Elem != nil {
		return "[]" + b.outputType(t.Elem, name, &selected{key: f.key, field: f.field, sets: f.sets})
	}

	def := b.schema.Types[t.NamedType]
	var expr string
	switch {
	case def == nil:
		expr = "any"
	case def.Kind == ast.Object || def.Kind == ast.Interface || def.Kind == ast.Union:
		expr = b.object(name, "", "", def, f.sets)
	case def.Kind == ast.Enum:
		expr = "string"
	default:
		expr = b.scalar(t.NamedType)
	}

	if (!t.NonNull || f.optional) && pointable(expr) {
		return "*" + expr
	}
	return expr
}

func (b *typeBuilder) variables(op *ast.OperationDefinition) (string, error) {
	t := &goType{Name: b.unique(b.prefix + "Variables")}
	t.Doc = fmt.Sprintf("%s are the variables of %s", t.Name, op.Name)
	used := map[string]bool{}
	for _, v := range op.VariableDefinitions {
		typ, err := b.inputType(v.Type)
		if err != nil {
			return "", errors.Wrapf(err, "variable $%s", v.Variable)
		}
		tag := v.Variable
		if !v.Type.NonNull {
			tag += ",omitempty"
		}
		t.Fields = append(t.Fields, goField{Name: fieldName(used, v.Variable), Type: typ, Tag: tag})
	}
	b.types = append(b.types, t)
	return t.Name, nil
}

func (b *typeBuilder) inputType(t *ast.Type) (string, error) {
	if t.Elem != nil {
		elem, err := b.inputType(t.Elem)
		if err != nil {
			return "", err
		}
		return "[]" + elem, nil
	}

	def := b.schema.Types[t.NamedType]
	if def == nil {
		return "", errors.Errorf("unknown type %s", t.NamedType)
	}

	var expr string
	switch def.Kind {
	case ast.InputObject:
		name, err := b.inputObject(def)
		if err != nil {
			return "", err
		}
		expr = name
	case ast.Enum:
		expr = "string"
	case ast.Scalar:
		expr = b.scalar(def.Name)
	default:
		return "", errors.Errorf("%s is not an input type", def.Name)
	}

	if !t.NonNull && pointable(expr) {
		return "*" + expr, nil
	}
	return expr, nil
}

func (b *typeBuilder) inputObject(def *ast.Definition) (string, error) {
	if name, ok := b.inputs[def.Name]; ok {
		return name, nil
	}
	name := b.unique(b.prefix + def.Name)
	b.inputs[def.Name] = name

	t := &goType{Name: name, Doc: def.Description}
	if i := strings.IndexByte(t.Doc, '\n'); i >= 0 {
		t.Doc = t.Doc[:i]
	}
	used := map[string]bool{}
	for _, f := range def.Fields {
		typ, err := b.inputType(f.Type)
		if err != nil {
			return "", errors.Wrapf(err, "%s.%s", def.Name, f.Name)
		}
		tag := f.Name
		if !f.Type.NonNull {
			tag += ",omitempty"
		}
		t.Fields = append(t.Fields, goField{Name: fieldName(used, f.Name), Type: typ, Tag: tag})
	}
	b.types = append(b.types, t)
	return name, nil
}

func (b *typeBuilder) scalar(name string) string {
	mapped, ok := b.scalars[name]
	if !ok {
		mapped = DefaultScalars["JSON"]
	}
	i := strings.LastIndex(mapped, ".")
	if i < 0 {
		return mapped
	}
	pkg := mapped[:i]
	b.imports[pkg] = true
	return path.Base(pkg) + "." + mapped[i+1:]
}

// unique suffixes name until it is not yet declared in this artifact
func (b *typeBuilder) unique(name string) string {
	candidate := name
	for i := 2; b.named[candidate]; i++ {
		candidate = fmt.Sprintf("%s%d", name, i)
	}
	b.named[candidate] = true
	return candidate
}

// fieldName is goName(key), suffixed until no other field of the struct has it
func fieldName(used map[string]bool, key string) string {
	name := goName(key)
	candidate := name
	for i := 2; used[candidate]; i++ {
		candidate = fmt.Sprintf("%s%d", name, i)
	}
	used[candidate] = true
	return candidate
}

func pointable(expr string) bool {
	return !strings.HasPrefix(expr, "[]") && expr != "any" && expr != "json.RawMessage"
}

var initialisms = []string{"Id", "Url", "Uuid", "Json", "Html", "Api", "Sql"}

// goName exports a GraphQL name, upper-casing a trailing initialism
func goName(s string) string {
	n := strcase.ToCamel(s)
	for _, in := range initialisms {
		if strings.HasSuffix(n, in) {
			n = n[:len(n)-len(in)] + strings.ToUpper(in)
			break
		}
	}
	if n == "" || !unicode.IsLetter(rune(n[0])) {
		n = "X" + n
	}
	return n
}

func goLiteral(s string) string {
	if strings.Contains(s, "`") || strings.Contains(s, "\r") {
		return strconv.Quote(s)
	}
	return "`" + s + "`"
}
