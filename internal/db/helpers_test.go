package db

import (
	"testing"

	"github.com/tordrt/autogql/internal/schema"
)

// verifyTablesExist checks that all expected tables are present in the schema
func verifyTablesExist(t *testing.T, s *schema.Schema, expectedTables []string) {
	t.Helper()

	if len(s.Tables) != len(expectedTables) {
		t.Errorf("Expected %d tables, got %d", len(expectedTables), len(s.Tables))
	}

	for _, tableName := range expectedTables {
		if s.Table(tableName) == nil {
			t.Errorf("Expected table %s not found in schema", tableName)
		}
	}
}

// verifyColumns checks that expected columns exist in a table
func verifyColumns(t *testing.T, table *schema.Table, expectedColumns []string) {
	t.Helper()

	for _, colName := range expectedColumns {
		if table.Column(colName) == nil {
			t.Errorf("Expected column %s not found in %s table", colName, table.Name)
		}
	}
}

// verifyPrimaryKey checks that a table has the expected primary key
func verifyPrimaryKey(t *testing.T, table *schema.Table, expectedPK []string) {
	t.Helper()

	if !table.IsPrimaryKey(expectedPK...) {
		t.Errorf("Expected primary key %v, got %v", expectedPK, table.PrimaryKey)
	}
}

// verifyUniqueConstraint checks that a column has a unique constraint
func verifyUniqueConstraint(t *testing.T, s *schema.Schema, tableName, columnName string) {
	t.Helper()

	table := s.Table(tableName)
	if table == nil {
		t.Fatalf("Table %s not found", tableName)
	}

	col := table.Column(columnName)
	if col == nil {
		t.Fatalf("Column %s not found in table %s", columnName, tableName)
	}
	if !col.IsUnique {
		t.Errorf("Expected %s column to have unique constraint", columnName)
	}
}

// verifyForeignKey checks that a foreign key relationship exists
func verifyForeignKey(t *testing.T, s *schema.Schema, tableName, sourceColumn, targetTable string) {
	t.Helper()

	table := s.Table(tableName)
	if table == nil {
		t.Fatalf("Table %s not found", tableName)
	}

	for _, rel := range table.Relations {
		if rel.TargetTable == targetTable && rel.SourceColumn == sourceColumn {
			return
		}
	}

	t.Errorf("Expected foreign key relationship from %s.%s to %s not found", tableName, sourceColumn, targetTable)
}

// verifyIndex checks that an index exists with the expected columns
func verifyIndex(t *testing.T, s *schema.Schema, tableName, indexName string, expectedColumns []string) {
	t.Helper()

	table := s.Table(tableName)
	if table == nil {
		t.Fatalf("Table %s not found", tableName)
	}

	for _, idx := range table.Indexes {
		if idx.Name != indexName {
			continue
		}
		if len(idx.Columns) != len(expectedColumns) {
			t.Errorf("Expected index %s on %v, got %v", indexName, expectedColumns, idx.Columns)
			return
		}
		for i, col := range expectedColumns {
			if idx.Columns[i] != col {
				t.Errorf("Expected index %s on %v, got %v", indexName, expectedColumns, idx.Columns)
				return
			}
		}
		return
	}

	t.Errorf("Expected index %s on %s table not found", indexName, tableName)
}
