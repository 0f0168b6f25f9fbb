package derive

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tordrt/autogql/internal/db"
	"github.com/tordrt/autogql/internal/schema"
	"github.com/tordrt/autogql/internal/sqlgen"
)

// stubConn answers function calls with canned rows and records what it ran
type stubConn struct {
	rows    []db.Row
	queries []string
	args    [][]any
}

func (c *stubConn) Dialect() sqlgen.Dialect { return sqlgen.Postgres{} }

func (c *stubConn) Query(_ context.Context, query string, args ...any) ([]db.Row, error) {
	c.queries = append(c.queries, query)
	c.args = append(c.args, args)
	if strings.Contains(query, "search_users") {
		return c.rows, nil
	}
	return nil, nil
}

func (c *stubConn) Exec(context.Context, string, ...any) (db.ExecResult, error) {
	return db.ExecResult{}, nil
}

func (c *stubConn) Ping(context.Context) error { return nil }
func (c *stubConn) Close() error               { return nil }

func functionSchema() *schema.Schema {
	return &schema.Schema{
		Name: "public",
		Tables: []schema.Table{{
			Name: "users",
			Columns: []schema.Column{
				{Name: "id", Type: "integer"},
				{Name: "name", Type: "text"},
			},
			PrimaryKey: []string{"id"},
			Privileges: schema.AllPrivileges,
		}},
		Functions: []schema.Function{{
			Name:        "search_users",
			ReturnTable: "users",
			Args:        []schema.FunctionArg{{Name: "pattern", Type: "text"}},
		}},
	}
}

func TestSetofFunction(t *testing.T) {
	tests := []struct {
		name     string
		nulls    bool
		wantType string
		want     string
	}{
		{
			name:     "null rows dropped",
			wantType: "[User!]!",
			want:     `{"searchUsers":[{"id":1,"name":"Ada"},{"id":2,"name":"Linus"}]}`,
		},
		{
			name:     "null rows kept",
			nulls:    true,
			wantType: "[User]!",
			want:     `{"searchUsers":[{"id":1,"name":"Ada"},null,{"id":2,"name":"Linus"}]}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn := &stubConn{rows: []db.Row{
				{"id": int64(1), "name": "Ada"},
				{"id": nil, "name": nil},
				{"id": int64(2), "name": "Linus"},
			}}
			res, err := Derive(functionSchema(), conn, Options{SetofFunctionsContainNulls: tt.nulls})
			require.NoError(t, err)

			field := res.Schema.Query.Fields.ForName("searchUsers")
			require.NotNil(t, field)
			assert.Equal(t, tt.wantType, field.Type.String())
			require.NotNil(t, field.Arguments.ForName("pattern"))
			assert.Equal(t, "String", field.Arguments.ForName("pattern").Type.String())

			got := run(t, res, `{ searchUsers(pattern: "a%") { id name } }`)
			assert.JSONEq(t, tt.want, got)

			require.NotEmpty(t, conn.queries)
			last := len(conn.queries) - 1
			assert.Equal(t, `SELECT * FROM "public"."search_users"($1)`, conn.queries[last])
			assert.Equal(t, []any{"a%"}, conn.args[last])
		})
	}
}

func TestFunctionWithUnknownReturnTableIsSkipped(t *testing.T) {
	source := functionSchema()
	source.Functions[0].ReturnTable = "missing"

	res, err := Derive(source, &stubConn{}, Options{})
	require.NoError(t, err)
	assert.Nil(t, res.Schema.Query.Fields.ForName("searchUsers"))
}
