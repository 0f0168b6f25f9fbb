package db

import (
	"github.com/tordrt/autogql/internal/schema"
)

// finishTable derives facts that need the whole table: unique flags from
// single-column unique indexes and relation cardinality.
func finishTable(table *schema.Table) {
	for _, idx := range table.Indexes {
		if idx.IsUnique && len(idx.Columns) == 1 {
			if col := table.Column(idx.Columns[0]); col != nil {
				col.IsUnique = true
			}
		}
	}

	for i := range table.Relations {
		rel := &table.Relations[i]
		if table.IsUniqueKey(rel.SourceColumn) {
			rel.Cardinality = schema.OneToOne
		} else {
			rel.Cardinality = schema.ManyToOne
		}
	}
}

// keepReturnTables drops functions whose return type is not an extracted table
func keepReturnTables(s *schema.Schema, fns []schema.Function) []schema.Function {
	var kept []schema.Function
	for _, fn := range fns {
		if s.Table(fn.ReturnTable) != nil {
			kept = append(kept, fn)
		}
	}
	return kept
}
