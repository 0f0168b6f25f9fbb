package codegen

import (
	"fmt"
	goast "go/ast"
	"go/parser"
	"go/scanner"
	"go/token"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/pkg/errors"
)

// Diagnostic is a problem located in a source file
type Diagnostic struct {
	File    string
	Line    int
	Column  int
	Message string
}

func (d Diagnostic) String() string {
	switch {
	case d.Line == 0:
		return fmt.Sprintf("%s: %s", d.File, d.Message)
	case d.Column == 0:
		return fmt.Sprintf("%s:%d: %s", d.File, d.Line, d.Message)
	default:
		return fmt.Sprintf("%s:%d:%d: %s", d.File, d.Line, d.Column, d.Message)
	}
}

// Diagnostics is every problem found in one run
type Diagnostics []Diagnostic

func (d Diagnostics) Error() string {
	lines := make([]string, len(d))
	for i, diag := range d {
		lines[i] = diag.String()
	}
	return strings.Join(lines, "\n")
}

func (d Diagnostics) sort() {
	sort.SliceStable(d, func(i, j int) bool {
		if d[i].File != d[j].File {
			return d[i].File < d[j].File
		}
		if d[i].Line != d[j].Line {
			return d[i].Line < d[j].Line
		}
		return d[i].Column < d[j].Column
	})
}

// document is the text of one operation document and where it starts
type document struct {
	file string
	// line and column of the first character of text; zero for whole files
	line   int
	column int
	text   string
}

// position maps a location inside the document text to the source file
func (d document) position(line, column int) (int, int) {
	if d.line == 0 {
		return line, column
	}
	if line <= 1 {
		return d.line, d.column + column - 1
	}
	return d.line + line - 1, column
}

func (d document) origin() string {
	if d.line == 0 {
		return d.file
	}
	return fmt.Sprintf("%s:%d", d.file, d.line)
}

// expand resolves globs relative to the config and returns the sorted, unique matches
func (c *Config) expand(patterns []string) ([]string, error) {
	seen := map[string]bool{}
	var files []string
	for _, pattern := range patterns {
		matches, err := doublestar.FilepathGlob(c.resolve(pattern))
		if err != nil {
			return nil, errors.Wrapf(err, "invalid pattern %q", pattern)
		}
		for _, m := range matches {
			if info, err := os.Stat(m); err != nil || info.IsDir() {
				continue
			}
			if !seen[m] {
				seen[m] = true
				files = append(files, m)
			}
		}
	}
	sort.Strings(files)
	return files, nil
}

// scanDocuments reads every operation document found in files
func scanDocuments(files []string) ([]document, Diagnostics, error) {
	var docs []document
	var diags Diagnostics
	for _, file := range files {
		switch {
		case strings.HasSuffix(file, ".gen.go"):
			continue
		case strings.HasSuffix(file, ".go"):
			found, problems, err := scanGoFile(file)
			if err != nil {
				return nil, nil, err
			}
			docs = append(docs, found...)
			diags = append(diags, problems...)
		case strings.HasSuffix(file, ".graphql"), strings.HasSuffix(file, ".gql"):
			data, err := os.ReadFile(file)
			if err != nil {
				return nil, nil, errors.Wrapf(err, "failed to read %s", file)
			}
			if strings.TrimSpace(string(data)) == "" {
				continue
			}
			docs = append(docs, document{file: file, text: string(data)})
		}
	}
	return docs, diags, nil
}

// scanGoFile finds string literals passed to client.Document
func scanGoFile(file string) ([]document, Diagnostics, error) {
	src, err := os.ReadFile(file)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "failed to read %s", file)
	}

	fset := token.NewFileSet()
	f, err := parser.ParseFile(fset, file, src, parser.SkipObjectResolution)
	if err != nil {
		var list scanner.ErrorList
		if errors.As(err, &list) && len(list) > 0 {
			return nil, Diagnostics{{File: file, Line: list[0].Pos.Line, Column: list[0].Pos.Column, Message: list[0].Msg}}, nil
		}
		return nil, Diagnostics{{File: file, Message: err.Error()}}, nil
	}

	clientName := ""
	for _, imp := range f.Imports {
		path, _ := strconv.Unquote(imp.Path.Value)
		if path != ClientPackage {
			continue
		}
		clientName = filepath.Base(ClientPackage)
		if imp.Name != nil {
			clientName = imp.Name.Name
		}
	}
	if clientName == "" || clientName == "_" || clientName == "." {
		return nil, nil, nil
	}

	var docs []document
	var diags Diagnostics
	goast.Inspect(f, func(n goast.Node) bool {
		call, ok := n.(*goast.CallExpr)
		if !ok {
			return true
		}
		sel, ok := call.Fun.(*goast.SelectorExpr)
		if !ok || sel.Sel.Name != "Document" {
			return true
		}
		if id, ok := sel.X.(*goast.Ident); !ok || id.Name != clientName {
			return true
		}

		pos := fset.Position(call.Pos())
		if len(call.Args) != 1 {
			diags = append(diags, Diagnostic{File: file, Line: pos.Line, Column: pos.Column, Message: "client.Document takes exactly one argument"})
			return true
		}
		lit, ok := call.Args[0].(*goast.BasicLit)
		if !ok || lit.Kind != token.STRING {
			diags = append(diags, Diagnostic{File: file, Line: pos.Line, Column: pos.Column, Message: "client.Document needs a string literal"})
			return true
		}
		text, err := strconv.Unquote(lit.Value)
		if err != nil {
			diags = append(diags, Diagnostic{File: file, Line: pos.Line, Column: pos.Column, Message: err.Error()})
			return true
		}

		litPos := fset.Position(lit.Pos())
		docs = append(docs, document{file: file, line: litPos.Line, column: litPos.Column + 1, text: text})
		return true
	})
	return docs, diags, nil
}
