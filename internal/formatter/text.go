// Package formatter renders the introspected model and the derived schema for humans and tools.
package formatter

import (
	"fmt"
	"io"
	"strings"

	"github.com/tordrt/autogql/internal/inflect"
	"github.com/tordrt/autogql/internal/schema"
)

// TextFormatter formats the relational model as compact text annotated with GraphQL names
type TextFormatter struct {
	writer io.Writer
	names  inflect.Inflector
}

// NewTextFormatter creates a new text formatter
func NewTextFormatter(w io.Writer, names inflect.Inflector) *TextFormatter {
	return &TextFormatter{writer: w, names: names}
}

// Format writes the schema in compact text format
func (f *TextFormatter) Format(s *schema.Schema) error {
	for i, table := range s.Tables {
		if i > 0 {
			_, _ = fmt.Fprintln(f.writer) // Blank line between tables
		}
		f.formatTable(table)
	}

	if len(s.Functions) > 0 {
		_, _ = fmt.Fprintln(f.writer)
		for _, fn := range s.Functions {
			_, _ = fmt.Fprintf(f.writer, "FUNCTION %s(%s) SETOF %s → Query.%s\n",
				fn.Name, formatArgs(fn.Args), fn.ReturnTable, f.names.Function(fn.Name))
		}
	}
	return nil
}

func (f *TextFormatter) formatTable(table schema.Table) {
	// Table header with primary key
	pkStr := ""
	if len(table.PrimaryKey) > 0 {
		pkStr = fmt.Sprintf(" (PK: %s)", strings.Join(table.PrimaryKey, ", "))
	}
	_, _ = fmt.Fprintf(f.writer, "TABLE %s%s → %s, Query.%s\n",
		table.Name, pkStr, f.names.TableType(table.Name), f.names.AllRows(table.Name))

	for _, col := range table.Columns {
		_, _ = fmt.Fprintf(f.writer, "  %s → %s\n", formatColumn(col), f.names.Column(col.Name))
	}

	if len(table.Relations) > 0 {
		_, _ = fmt.Fprintln(f.writer)
		_, _ = fmt.Fprintln(f.writer, "  RELATIONS:")
		for _, rel := range table.Relations {
			keys := []string{rel.SourceColumn}
			_, _ = fmt.Fprintf(f.writer, "    %s → %s.%s (%s) as %s\n",
				rel.SourceColumn, rel.TargetTable, rel.TargetColumn, rel.Cardinality,
				f.names.SingleRelation(rel.TargetTable, keys))
		}
	}

	if len(table.Indexes) > 0 {
		_, _ = fmt.Fprintln(f.writer)
		_, _ = fmt.Fprintln(f.writer, "  INDEXES:")
		for _, idx := range table.Indexes {
			unique := ""
			if idx.IsUnique {
				unique = " UNIQUE"
			}
			_, _ = fmt.Fprintf(f.writer, "    %s (%s)%s\n", idx.Name, strings.Join(idx.Columns, ", "), unique)
		}
	}
}

func formatColumn(col schema.Column) string {
	parts := []string{col.Name + ":"}

	typeStr := col.Type
	if len(col.EnumValues) > 0 {
		typeStr = fmt.Sprintf("%s (%s)", col.Type, strings.Join(col.EnumValues, "|"))
	}
	parts = append(parts, typeStr)

	if col.IsUnique {
		parts = append(parts, "UNIQUE")
	}
	if !col.Nullable {
		parts = append(parts, "NOT NULL")
	}
	if col.DefaultValue != nil {
		parts = append(parts, fmt.Sprintf("DEFAULT %s", *col.DefaultValue))
	}

	return strings.Join(parts, " ")
}

func formatArgs(args []schema.FunctionArg) string {
	out := make([]string, len(args))
	for i, a := range args {
		out[i] = a.Name + " " + a.Type
	}
	return strings.Join(out, ", ")
}
