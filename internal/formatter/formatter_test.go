package formatter

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tordrt/autogql/internal/inflect"
	"github.com/tordrt/autogql/internal/schema"
)

func blogSchema() *schema.Schema {
	zero := "0"
	return &schema.Schema{
		Name: "public",
		Tables: []schema.Table{
			{
				Name:       "users",
				PrimaryKey: []string{"id"},
				Columns: []schema.Column{
					{Name: "id", Type: "integer"},
					{Name: "email", Type: "text", Nullable: true, IsUnique: true},
				},
			},
			{
				Name:       "posts",
				Comment:    "Blog posts",
				PrimaryKey: []string{"id"},
				Columns: []schema.Column{
					{Name: "id", Type: "integer"},
					{Name: "author_id", Type: "integer"},
					{Name: "score", Type: "integer", DefaultValue: &zero},
					{Name: "state", Type: "post_state", EnumType: "post_state", EnumValues: []string{"draft", "live"}},
				},
				Relations: []schema.Relation{{SourceColumn: "author_id", TargetTable: "users", TargetColumn: "id", Cardinality: schema.ManyToOne}},
				Indexes:   []schema.Index{{Name: "posts_author_id_idx", Columns: []string{"author_id"}}},
			},
		},
		Functions: []schema.Function{{Name: "top_posts", ReturnTable: "posts", Args: []schema.FunctionArg{{Name: "n", Type: "integer"}}}},
	}
}

func TestTextFormatter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewTextFormatter(&buf, inflect.Default{}).Format(blogSchema()))
	out := buf.String()

	assert.Contains(t, out, "TABLE users (PK: id) → User, Query.allUsers\n")
	assert.Contains(t, out, "  email: text UNIQUE → email\n")
	assert.Contains(t, out, "  author_id: integer NOT NULL → authorId\n")
	assert.Contains(t, out, "  score: integer NOT NULL DEFAULT 0 → score\n")
	assert.Contains(t, out, "  state: post_state (draft|live) NOT NULL → state\n")
	assert.Contains(t, out, "    author_id → users.id (N:1) as userByAuthorId\n")
	assert.Contains(t, out, "    posts_author_id_idx (author_id)\n")
	assert.Contains(t, out, "FUNCTION top_posts(n integer) SETOF posts → Query.topPosts\n")
}

func TestMarkdownFormatterSimplified(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewMarkdownFormatter(&buf, inflect.Simplified{}).Format(blogSchema()))
	out := buf.String()

	assert.Contains(t, out, "# Database Schema\n")
	assert.Contains(t, out, "## posts\n\nBlog posts\n\nGraphQL type `Post`, connection `posts`.")
	assert.Contains(t, out, "- **id** (`id`): integer, PK, NOT NULL\n")
	assert.Contains(t, out, "- author_id → users.id (N:1) as `author`\n")
	assert.Contains(t, out, "### Referenced by\n\n- posts.author_id (N:1) as `postsByAuthor`\n")
	assert.Contains(t, out, "- posts_author_id_idx on (author_id)\n")
	assert.Contains(t, out, "- **top_posts**(n integer) returns setof posts, exposed as `topPosts`\n")
}

func TestWriteSDLReplacesAtomically(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schema", "schema.graphql")

	require.NoError(t, WriteSDL(path, "type Query { a: Int }\n"))
	require.NoError(t, WriteSDL(path, "type Query { b: Int }\n"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "type Query { b: Int }\n", string(data))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files are left behind")
}
