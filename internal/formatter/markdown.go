package formatter

import (
	"fmt"
	"io"
	"strings"

	"github.com/tordrt/autogql/internal/inflect"
	"github.com/tordrt/autogql/internal/schema"
)

// MarkdownFormatter formats the relational model as markdown, one section per table
type MarkdownFormatter struct {
	writer io.Writer
	names  inflect.Inflector
}

// NewMarkdownFormatter creates a new markdown formatter
func NewMarkdownFormatter(w io.Writer, names inflect.Inflector) *MarkdownFormatter {
	return &MarkdownFormatter{writer: w, names: names}
}

// Format writes the schema in markdown format
func (f *MarkdownFormatter) Format(s *schema.Schema) error {
	_, _ = fmt.Fprintln(f.writer, "# Database Schema")
	_, _ = fmt.Fprintln(f.writer)

	for _, table := range s.Tables {
		f.formatTable(table, s)
	}

	if len(s.Functions) > 0 {
		_, _ = fmt.Fprintln(f.writer, "## Functions")
		_, _ = fmt.Fprintln(f.writer)
		for _, fn := range s.Functions {
			_, _ = fmt.Fprintf(f.writer, "- **%s**(%s) returns setof %s, exposed as `%s`\n",
				fn.Name, formatArgs(fn.Args), fn.ReturnTable, f.names.Function(fn.Name))
		}
		_, _ = fmt.Fprintln(f.writer)
	}
	return nil
}

func (f *MarkdownFormatter) formatTable(table schema.Table, s *schema.Schema) {
	_, _ = fmt.Fprintf(f.writer, "## %s\n\n", table.Name)
	if table.Comment != "" {
		_, _ = fmt.Fprintf(f.writer, "%s\n\n", table.Comment)
	}
	_, _ = fmt.Fprintf(f.writer, "GraphQL type `%s`, connection `%s`.\n\n",
		f.names.TableType(table.Name), f.names.AllRows(table.Name))

	_, _ = fmt.Fprintln(f.writer, "### Columns")
	_, _ = fmt.Fprintln(f.writer)
	for _, col := range table.Columns {
		typeStr := col.Type
		if len(col.EnumValues) > 0 {
			typeStr = fmt.Sprintf("%s (%s)", col.Type, strings.Join(col.EnumValues, "|"))
		}

		if constraints := formatConstraints(col, table.PrimaryKey); constraints != "" {
			_, _ = fmt.Fprintf(f.writer, "- **%s** (`%s`): %s, %s\n", col.Name, f.names.Column(col.Name), typeStr, constraints)
		} else {
			_, _ = fmt.Fprintf(f.writer, "- **%s** (`%s`): %s\n", col.Name, f.names.Column(col.Name), typeStr)
		}
	}
	_, _ = fmt.Fprintln(f.writer)

	if len(table.Relations) > 0 {
		_, _ = fmt.Fprintln(f.writer, "### References")
		_, _ = fmt.Fprintln(f.writer)
		for _, rel := range table.Relations {
			_, _ = fmt.Fprintf(f.writer, "- %s → %s.%s (%s) as `%s`\n",
				rel.SourceColumn, rel.TargetTable, rel.TargetColumn, rel.Cardinality,
				f.names.SingleRelation(rel.TargetTable, []string{rel.SourceColumn}))
		}
		_, _ = fmt.Fprintln(f.writer)
	}

	if incoming := incomingRelations(table.Name, s); len(incoming) > 0 {
		_, _ = fmt.Fprintln(f.writer, "### Referenced by")
		_, _ = fmt.Fprintln(f.writer)
		for _, rel := range incoming {
			keys := []string{rel.SourceColumn}
			field := f.names.ManyRelation(rel.SourceTable, table.Name, keys)
			if rel.Cardinality == schema.OneToOne {
				field = f.names.SingleRelationBackward(rel.SourceTable, table.Name, keys)
			}
			_, _ = fmt.Fprintf(f.writer, "- %s.%s (%s) as `%s`\n", rel.SourceTable, rel.SourceColumn, rel.Cardinality, field)
		}
		_, _ = fmt.Fprintln(f.writer)
	}

	if len(table.Indexes) > 0 {
		_, _ = fmt.Fprintln(f.writer, "### Indexes")
		_, _ = fmt.Fprintln(f.writer)
		for _, idx := range table.Indexes {
			if idx.IsUnique {
				_, _ = fmt.Fprintf(f.writer, "- %s on (%s), unique\n", idx.Name, strings.Join(idx.Columns, ", "))
			} else {
				_, _ = fmt.Fprintf(f.writer, "- %s on (%s)\n", idx.Name, strings.Join(idx.Columns, ", "))
			}
		}
		_, _ = fmt.Fprintln(f.writer)
	}
}

// incomingRelation is a foreign key of another table pointing at this one
type incomingRelation struct {
	SourceTable  string
	SourceColumn string
	Cardinality  string
}

func incomingRelations(tableName string, s *schema.Schema) []incomingRelation {
	var incoming []incomingRelation
	for _, table := range s.Tables {
		for _, rel := range table.Relations {
			if rel.TargetTable == tableName {
				incoming = append(incoming, incomingRelation{
					SourceTable:  table.Name,
					SourceColumn: rel.SourceColumn,
					Cardinality:  rel.Cardinality,
				})
			}
		}
	}
	return incoming
}

func formatConstraints(col schema.Column, primaryKey []string) string {
	var constraints []string

	for _, pk := range primaryKey {
		if pk == col.Name {
			constraints = append(constraints, "PK")
			break
		}
	}
	if col.IsUnique {
		constraints = append(constraints, "UNIQUE")
	}
	if !col.Nullable {
		constraints = append(constraints, "NOT NULL")
	}
	if col.DefaultValue != nil {
		constraints = append(constraints, fmt.Sprintf("DEFAULT %s", *col.DefaultValue))
	}

	return strings.Join(constraints, ", ")
}
