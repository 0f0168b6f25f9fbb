package codegen

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/iancoleman/strcase"
	"github.com/pkg/errors"
	"github.com/vektah/gqlparser/v2"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/gqlerror"
)

// ClientPackage is the runtime package generated documents bind to
const ClientPackage = "github.com/tordrt/autogql/internal/client"

// GeneratedMarker is the first line of every artifact
const GeneratedMarker = "// Code generated by autogql codegen. DO NOT EDIT."

// Report lists what a run changed
type Report struct {
	Documents int
	Written   []string
	Removed   []string
}

// operation is a validated document with exactly one named operation
type operation struct {
	doc   document
	query *ast.QueryDocument
	op    *ast.OperationDefinition
}

// Run validates every document against the schema and writes one artifact
// per document into each output directory. Nothing is written when any
// document fails; the error is then a Diagnostics value.
func Run(cfg *Config) (*Report, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	schema, err := cfg.loadSchema()
	if err != nil {
		return nil, err
	}

	files, err := cfg.expand(cfg.Documents)
	if err != nil {
		return nil, err
	}
	docs, diags, err := scanDocuments(files)
	if err != nil {
		return nil, err
	}
	ops, problems := validate(schema, docs)
	diags = append(diags, problems...)
	if len(diags) > 0 {
		diags.sort()
		return nil, diags
	}
	if len(ops) == 0 && !cfg.IgnoreNoDocuments {
		return nil, errors.Errorf("no documents found for %s", strings.Join(cfg.Documents, ", "))
	}

	dirs := make([]string, 0, len(cfg.Generates))
	for dir := range cfg.Generates {
		dirs = append(dirs, dir)
	}
	sort.Strings(dirs)

	// render everything before touching the file system
	outputs := map[string]map[string][]byte{}
	for _, dir := range dirs {
		outDir := cfg.resolve(dir)
		outputs[outDir] = map[string][]byte{}
		for _, op := range ops {
			src, err := render(cfg, schema, cfg.Generates[dir].Package, op)
			if err != nil {
				return nil, errors.Wrapf(err, "%s: %s", op.doc.origin(), op.op.Name)
			}
			outputs[outDir][filepath.Join(outDir, artifactName(op.op.Name))] = src
		}
	}

	report := &Report{Documents: len(ops)}
	for _, dir := range dirs {
		outDir := cfg.resolve(dir)
		removed, err := removeStale(outDir, outputs[outDir])
		if err != nil {
			return nil, err
		}
		report.Removed = append(report.Removed, removed...)

		if len(outputs[outDir]) > 0 {
			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return nil, errors.Wrapf(err, "failed to create %s", outDir)
			}
		}
		paths := make([]string, 0, len(outputs[outDir]))
		for path := range outputs[outDir] {
			paths = append(paths, path)
		}
		sort.Strings(paths)
		for _, path := range paths {
			if err := os.WriteFile(path, outputs[outDir][path], 0o644); err != nil {
				return nil, errors.Wrapf(err, "failed to write %s", path)
			}
			report.Written = append(report.Written, path)
		}
	}
	return report, nil
}

func artifactName(operation string) string {
	return strcase.ToSnake(operation) + ".gen.go"
}

func (c *Config) loadSchema() (*ast.Schema, error) {
	files, err := c.expand(c.Schema)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, errors.Errorf("no schema files match %s", strings.Join(c.Schema, ", "))
	}

	sources := make([]*ast.Source, 0, len(files))
	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read %s", file)
		}
		sources = append(sources, &ast.Source{Name: file, Input: string(data)})
	}

	schema, err := gqlparser.LoadSchema(sources...)
	if err != nil {
		return nil, schemaDiagnostics(err)
	}
	return schema, nil
}

func schemaDiagnostics(err error) error {
	var list gqlerror.List
	var one *gqlerror.Error
	switch {
	case errors.As(err, &list):
	case errors.As(err, &one):
		list = gqlerror.List{one}
	default:
		return errors.Wrap(err, "invalid schema")
	}

	var diags Diagnostics
	for _, e := range list {
		d := Diagnostic{Message: e.Message}
		if file, ok := e.Extensions["file"].(string); ok {
			d.File = file
		}
		if len(e.Locations) > 0 {
			d.Line, d.Column = e.Locations[0].Line, e.Locations[0].Column
		}
		diags = append(diags, d)
	}
	return diags
}

func validate(schema *ast.Schema, docs []document) ([]operation, Diagnostics) {
	var ops []operation
	var diags Diagnostics
	defined := map[string]document{}

	at := func(d document, line, column int, format string, args ...interface{}) {
		l, c := d.position(line, column)
		diags = append(diags, Diagnostic{File: d.file, Line: l, Column: c, Message: fmt.Sprintf(format, args...)})
	}

	for _, d := range docs {
		query, errs := gqlparser.LoadQuery(schema, d.text)
		if len(errs) > 0 {
			for _, e := range errs {
				line, column := 1, 1
				if len(e.Locations) > 0 {
					line, column = e.Locations[0].Line, e.Locations[0].Column
				}
				at(d, line, column, "%s", e.Message)
			}
			continue
		}

		if len(query.Operations) != 1 {
			at(d, 1, 1, "a document must contain exactly one operation, found %d", len(query.Operations))
			continue
		}
		op := query.Operations[0]
		line, column := 1, 1
		if op.Position != nil {
			line, column = op.Position.Line, op.Position.Column
		}
		if op.Name == "" {
			at(d, line, column, "operations must be named")
			continue
		}
		if prev, ok := defined[op.Name]; ok {
			at(d, line, column, "operation %s is already defined at %s", op.Name, prev.origin())
			continue
		}
		defined[op.Name] = d
		ops = append(ops, operation{doc: d, query: query, op: op})
	}
	return ops, diags
}

// removeStale deletes generated artifacts in dir that are not in keep
func removeStale(dir string, keep map[string][]byte) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.gen.go"))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to list %s", dir)
	}

	var removed []string
	for _, path := range matches {
		if _, ok := keep[path]; ok {
			continue
		}
		generated, err := isGenerated(path)
		if err != nil {
			return nil, err
		}
		if !generated {
			continue
		}
		if err := os.Remove(path); err != nil {
			return nil, errors.Wrapf(err, "failed to remove stale %s", path)
		}
		removed = append(removed, path)
	}
	return removed, nil
}

func isGenerated(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, errors.Wrapf(err, "failed to open %s", path)
	}
	defer func() { _ = f.Close() }()

	s := bufio.NewScanner(f)
	if !s.Scan() {
		return false, nil
	}
	return s.Text() == GeneratedMarker, nil
}
