package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/tordrt/autogql/internal/schema"
)

// SQLiteExtractor handles schema extraction from SQLite
type SQLiteExtractor struct {
	client *SQLiteClient
}

// NewSQLiteExtractor creates a new SQLite schema extractor
func NewSQLiteExtractor(client *SQLiteClient) *SQLiteExtractor {
	return &SQLiteExtractor{
		client: client,
	}
}

// ExtractSchema extracts the complete schema for specified tables
// If tables is empty, extracts all tables in the database
func (e *SQLiteExtractor) ExtractSchema(ctx context.Context, tables []string) (*schema.Schema, error) {
	var extractedTables []schema.Table

	tableNames, err := e.getTableNames(ctx, tables)
	if err != nil {
		return nil, fmt.Errorf("failed to get table names: %w", err)
	}

	for _, tableName := range tableNames {
		table, err := e.extractTable(ctx, tableName)
		if err != nil {
			return nil, fmt.Errorf("failed to extract table %s: %w", tableName, err)
		}
		extractedTables = append(extractedTables, *table)
	}

	return &schema.Schema{Name: "main", Tables: extractedTables}, nil
}

// getTableNames returns the list of tables to extract
func (e *SQLiteExtractor) getTableNames(ctx context.Context, requestedTables []string) ([]string, error) {
	if len(requestedTables) > 0 {
		return requestedTables, nil
	}

	query := `
		SELECT name
		FROM sqlite_master
		WHERE type = 'table' AND name NOT LIKE 'sqlite_%'
		ORDER BY name
	`

	rows, err := e.client.GetDB().QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var tableList []string
	for rows.Next() {
		var tableName string
		if err := rows.Scan(&tableName); err != nil {
			return nil, err
		}
		tableList = append(tableList, tableName)
	}

	return tableList, rows.Err()
}

// pragma renders a table-valued PRAGMA call with a quoted argument
func pragma(name, arg string) string {
	return fmt.Sprintf("PRAGMA %s(%s)", name, quoteSQLite(arg))
}

func quoteSQLite(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

// extractTable extracts all information for a single table
func (e *SQLiteExtractor) extractTable(ctx context.Context, tableName string) (*schema.Table, error) {
	table := &schema.Table{Name: tableName, Privileges: schema.AllPrivileges}

	columns, pk, err := e.extractColumns(ctx, tableName)
	if err != nil {
		return nil, fmt.Errorf("failed to extract columns: %w", err)
	}
	table.Columns = columns
	table.PrimaryKey = pk

	relations, err := e.extractRelations(ctx, tableName)
	if err != nil {
		return nil, fmt.Errorf("failed to extract relations: %w", err)
	}
	table.Relations = relations

	indexes, err := e.extractIndexes(ctx, tableName)
	if err != nil {
		return nil, fmt.Errorf("failed to extract indexes: %w", err)
	}
	table.Indexes = indexes

	finishTable(table)
	return table, nil
}

// extractColumns extracts column information and the primary key in key order
func (e *SQLiteExtractor) extractColumns(ctx context.Context, tableName string) ([]schema.Column, []string, error) {
	rows, err := e.client.GetDB().QueryContext(ctx, pragma("table_info", tableName))
	if err != nil {
		return nil, nil, err
	}
	defer func() { _ = rows.Close() }()

	var columns []schema.Column
	pkByOrder := map[int]string{}

	for rows.Next() {
		var cid int
		var name, colType string
		var notNull, pk int
		var defaultValue sql.NullString

		if err := rows.Scan(&cid, &name, &colType, &notNull, &defaultValue, &pk); err != nil {
			return nil, nil, err
		}

		col := schema.Column{
			Name: name,
			Type: colType,
			// PRAGMA reports INTEGER PRIMARY KEY as nullable, but it never holds NULL
			Nullable: notNull == 0 && pk == 0,
		}

		if defaultValue.Valid {
			col.DefaultValue = &defaultValue.String
		}

		if pk > 0 {
			pkByOrder[pk] = name
		}

		columns = append(columns, col)
	}

	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	pk := make([]string, 0, len(pkByOrder))
	for i := 1; i <= len(pkByOrder); i++ {
		pk = append(pk, pkByOrder[i])
	}

	// A lone INTEGER PRIMARY KEY aliases the rowid
	if len(pk) == 1 {
		for i := range columns {
			if columns[i].Name == pk[0] && strings.EqualFold(columns[i].Type, "INTEGER") {
				columns[i].AutoIncrement = true
			}
		}
	}

	return columns, pk, nil
}

// extractRelations extracts foreign key relationships
func (e *SQLiteExtractor) extractRelations(ctx context.Context, tableName string) ([]schema.Relation, error) {
	rows, err := e.client.GetDB().QueryContext(ctx, pragma("foreign_key_list", tableName))
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var relations []schema.Relation

	for rows.Next() {
		var id, seq int
		var targetTable, fromCol, onUpdate, onDelete, match string
		var toCol sql.NullString

		if err := rows.Scan(&id, &seq, &targetTable, &fromCol, &toCol, &onUpdate, &onDelete, &match); err != nil {
			return nil, err
		}

		rel := schema.Relation{
			Constraint:   fmt.Sprintf("%s_fk_%d", tableName, id),
			SourceColumn: fromCol,
			TargetTable:  targetTable,
			TargetColumn: toCol.String,
		}
		relations = append(relations, rel)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	// REFERENCES t without a column list points at the target's primary key
	for i := range relations {
		if relations[i].TargetColumn != "" {
			continue
		}
		_, pk, err := e.extractColumns(ctx, relations[i].TargetTable)
		if err != nil {
			return nil, err
		}
		if len(pk) > seqIndex(relations, i) {
			relations[i].TargetColumn = pk[seqIndex(relations, i)]
		}
	}

	return relations, nil
}

// seqIndex is the position of relation i within its constraint
func seqIndex(relations []schema.Relation, i int) int {
	n := 0
	for j := 0; j < i; j++ {
		if relations[j].Constraint == relations[i].Constraint {
			n++
		}
	}
	return n
}

// extractIndexes extracts index information
func (e *SQLiteExtractor) extractIndexes(ctx context.Context, tableName string) ([]schema.Index, error) {
	rows, err := e.client.GetDB().QueryContext(ctx, pragma("index_list", tableName))
	if err != nil {
		return nil, err
	}

	type indexEntry struct {
		name   string
		unique bool
		origin string
	}
	var entries []indexEntry
	for rows.Next() {
		var seq int
		var name, origin string
		var unique, partial int

		if err := rows.Scan(&seq, &name, &unique, &origin, &partial); err != nil {
			_ = rows.Close()
			return nil, err
		}
		entries = append(entries, indexEntry{name: name, unique: unique == 1, origin: origin})
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, err
	}
	_ = rows.Close()

	var indexes []schema.Index
	for _, entry := range entries {
		// The primary key is reported separately
		if entry.origin == "pk" {
			continue
		}

		columns, err := e.indexColumns(ctx, entry.name)
		if err != nil {
			return nil, err
		}

		if len(columns) > 0 {
			indexes = append(indexes, schema.Index{
				Name:     entry.name,
				IsUnique: entry.unique,
				Columns:  columns,
			})
		}
	}

	return indexes, nil
}

func (e *SQLiteExtractor) indexColumns(ctx context.Context, indexName string) ([]string, error) {
	rows, err := e.client.GetDB().QueryContext(ctx, pragma("index_info", indexName))
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var columns []string
	for rows.Next() {
		var seqno, cid int
		var colName sql.NullString

		if err := rows.Scan(&seqno, &cid, &colName); err != nil {
			return nil, err
		}

		if colName.Valid {
			columns = append(columns, colName.String)
		}
	}

	return columns, rows.Err()
}
