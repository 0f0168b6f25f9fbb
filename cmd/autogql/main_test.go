package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tordrt/autogql/internal/schema"
	"github.com/tordrt/autogql/internal/testutil"
)

// execute runs the CLI with args and returns stdout
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("DATABASE_URL", "")
	t.Setenv("AUTOGQL_DATABASE_URL", "")

	var stdout, stderr bytes.Buffer
	root := newRootCmd()
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)
	err := root.Execute()
	return stdout.String(), err
}

func TestServeRequiresDatabaseURL(t *testing.T) {
	_, err := execute(t, "serve", "--listen", "127.0.0.1:0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL is required")
}

func TestServeRejectsInvalidOptions(t *testing.T) {
	url := testutil.NewBlogDB(t)

	_, err := execute(t, "serve", "--database-url", url, "--show-error-stack", "yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "showErrorStack")

	_, err = execute(t, "serve", "--database-url", url, "--plugins", "archived")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown plugin "archived"`)
}

func TestIntrospect(t *testing.T) {
	url := testutil.NewBlogDB(t)

	out, err := execute(t, "introspect", "--database-url", url, "--exclude", "tags, post_tags")
	require.NoError(t, err)
	assert.Contains(t, out, "TABLE users (PK: id) → User, Query.users")
	assert.Contains(t, out, "TABLE posts")
	assert.NotContains(t, out, "TABLE tags")
	assert.NotContains(t, out, "TABLE post_tags")

	_, err = execute(t, "introspect", "--database-url", url, "--format", "yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format: yaml")
}

func TestDatabaseURLFromEnvironment(t *testing.T) {
	url := testutil.NewBlogDB(t)

	root := newRootCmd()
	var stdout bytes.Buffer
	root.SetOut(&stdout)
	root.SetArgs([]string{"introspect", "--tables", "users"})
	t.Setenv("DATABASE_URL", url)

	require.NoError(t, root.Execute())
	assert.Contains(t, stdout.String(), "TABLE users")
	assert.NotContains(t, stdout.String(), "TABLE posts")
}

func TestConfigFile(t *testing.T) {
	url := testutil.NewBlogDB(t)
	path := filepath.Join(t.TempDir(), "autogql.yaml")
	require.NoError(t, os.WriteFile(path, []byte("database-url: "+url+"\nformat: markdown\n"), 0o644))

	out, err := execute(t, "introspect", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "# Database Schema")
	assert.Contains(t, out, "## users")

	// flags win over the file
	out, err = execute(t, "introspect", "--config", path, "--format", "text")
	require.NoError(t, err)
	assert.Contains(t, out, "TABLE users")
}

func TestExportSchema(t *testing.T) {
	url := testutil.NewBlogDB(t)

	out, err := execute(t, "export-schema", "--database-url", url, "-o", "-")
	require.NoError(t, err)
	assert.Contains(t, out, "type User ")
	assert.Contains(t, out, "type Subscription")

	path := filepath.Join(t.TempDir(), "schema", "schema.graphql")
	_, err = execute(t, "export-schema", "--database-url", url, "-o", path, "--subscriptions=false")
	require.NoError(t, err)
	sdl, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(sdl), "type Query")
	assert.NotContains(t, string(sdl), "type Subscription")
}

func TestCodegenNeedsConfig(t *testing.T) {
	_, err := execute(t, "codegen", "--codegen-config", filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read")
}

func TestNewLogger(t *testing.T) {
	for _, format := range []string{"", "json", "console"} {
		logger, err := newLogger(format)
		require.NoError(t, err, format)
		assert.NotNil(t, logger)
	}
	_, err := newLogger("xml")
	assert.Error(t, err)
}

func TestFilterExcludedTables(t *testing.T) {
	tests := []struct {
		name        string
		tables      []string
		excludeList []string
		wantTables  []string
	}{
		{
			name:        "exclude single table",
			tables:      []string{"users", "posts", "comments"},
			excludeList: []string{"posts"},
			wantTables:  []string{"users", "comments"},
		},
		{
			name:        "exclude multiple tables",
			tables:      []string{"users", "posts", "comments", "likes"},
			excludeList: []string{"posts", "likes"},
			wantTables:  []string{"users", "comments"},
		},
		{
			name:        "exclude no tables",
			tables:      []string{"users", "posts"},
			excludeList: []string{},
			wantTables:  []string{"users", "posts"},
		},
		{
			name:        "exclude non-existent table",
			tables:      []string{"users", "posts"},
			excludeList: []string{"products"},
			wantTables:  []string{"users", "posts"},
		},
		{
			name:        "exclude all tables",
			tables:      []string{"users", "posts"},
			excludeList: []string{"users", "posts"},
			wantTables:  []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &schema.Schema{}
			for _, name := range tt.tables {
				s.Tables = append(s.Tables, schema.Table{Name: name})
			}

			filterExcludedTables(s, tt.excludeList)

			got := []string{}
			for _, table := range s.Tables {
				got = append(got, table.Name)
			}
			assert.Equal(t, tt.wantTables, got)
		})
	}
}

func TestParseTableList(t *testing.T) {
	tests := []struct {
		name       string
		tablesStr  string
		wantTables []string
	}{
		{name: "single table", tablesStr: "users", wantTables: []string{"users"}},
		{name: "multiple tables", tablesStr: "users,posts,comments", wantTables: []string{"users", "posts", "comments"}},
		{name: "tables with spaces", tablesStr: "users, posts, comments", wantTables: []string{"users", "posts", "comments"}},
		{name: "empty string", tablesStr: "", wantTables: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantTables, parseTableList(tt.tablesStr))
		})
	}
}
