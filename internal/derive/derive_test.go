package derive

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"math"
	"testing"

	"github.com/graphql-go/graphql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tordrt/autogql/internal/db"
	"github.com/tordrt/autogql/internal/exec"
	"github.com/tordrt/autogql/internal/schema"
	"github.com/tordrt/autogql/internal/testutil"
)

func openBlog(t *testing.T) (db.Conn, *schema.Schema) {
	t.Helper()
	ctx := context.Background()

	conn, err := db.Open(ctx, testutil.NewBlogDB(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	extractor, err := db.NewSchemaExtractor(conn, "")
	require.NoError(t, err)
	source, err := extractor.ExtractSchema(ctx, nil)
	require.NoError(t, err)
	return conn, source
}

func deriveBlog(t *testing.T, opts Options) *Result {
	t.Helper()
	conn, source := openBlog(t)
	res, err := Derive(source, conn, opts)
	require.NoError(t, err)
	return res
}

// run executes query and returns its data as JSON, failing on any error
func run(t *testing.T, res *Result, query string) string {
	t.Helper()
	out := execute(t, res, query)
	require.Empty(t, out.Errors, "query: %s", query)
	data, err := json.Marshal(out.Data)
	require.NoError(t, err)
	return string(data)
}

func execute(t *testing.T, res *Result, query string) *graphql.Result {
	t.Helper()
	compiled, err := exec.Compile(res.Schema, res.Bindings, exec.Options{})
	require.NoError(t, err)
	return graphql.Do(graphql.Params{Schema: *compiled, RequestString: query, Context: context.Background()})
}

func TestDefaultNames(t *testing.T) {
	res := deriveBlog(t, Options{})

	fields := map[string][]string{
		"Query":    {"query", "allUsers", "userById", "userByEmail", "allPosts", "postById", "postTagByPostIdAndTagId", "profileByUserId"},
		"Post":     {"id", "authorId", "title", "score", "userByAuthorId", "postTagsByPostId"},
		"User":     {"postsByAuthorId", "profileByUserId", "profilesByUserId"},
		"Mutation": {"createUser", "updateUserById", "updateUserByEmail", "deleteUserById", "deletePostTagByPostIdAndTagId"},
	}
	for typeName, names := range fields {
		def := res.Schema.Types[typeName]
		require.NotNil(t, def, typeName)
		for _, name := range names {
			assert.NotNil(t, def.Fields.ForName(name), "%s.%s", typeName, name)
		}
	}

	for _, typeName := range []string{"UsersConnection", "UserEdge", "UsersOrderBy", "UserCondition", "UserInput", "UserPatch", "CreateUserPayload", "PageInfo"} {
		assert.NotNil(t, res.Schema.Types[typeName], typeName)
	}
	assert.Contains(t, res.SDL, "type Query {")
}

func TestRowTypesFollowNullability(t *testing.T) {
	res := deriveBlog(t, Options{})
	user := res.Schema.Types["User"]

	assert.Equal(t, "Int!", user.Fields.ForName("id").Type.String())
	assert.Equal(t, "String!", user.Fields.ForName("name").Type.String())
	assert.Equal(t, "String", user.Fields.ForName("email").Type.String())

	input := res.Schema.Types["UserInput"]
	assert.Equal(t, "Int", input.Fields.ForName("id").Type.String(), "auto increment keys are optional on create")
	assert.Equal(t, "String!", input.Fields.ForName("name").Type.String())
}

func TestConnectionPagination(t *testing.T) {
	res := deriveBlog(t, Options{})

	out := execute(t, res, `{ allUsers(first: 2) { totalCount nodes { id name } pageInfo { hasNextPage hasPreviousPage endCursor } } }`)
	require.Empty(t, out.Errors)
	page := out.Data.(map[string]interface{})["allUsers"].(map[string]interface{})
	assert.Equal(t, 3, page["totalCount"])
	info := page["pageInfo"].(map[string]interface{})
	assert.Equal(t, true, info["hasNextPage"])
	assert.Equal(t, false, info["hasPreviousPage"])
	endCursor := info["endCursor"].(string)

	got := run(t, res, `{ allUsers(first: 2) { nodes { id name } } }`)
	assert.JSONEq(t, `{"allUsers":{"nodes":[{"id":1,"name":"Ada"},{"id":2,"name":"Linus"}]}}`, got)

	got = run(t, res, `{ allUsers(after: "`+endCursor+`") { nodes { name } pageInfo { hasNextPage hasPreviousPage } } }`)
	assert.JSONEq(t, `{"allUsers":{"nodes":[{"name":"Grace"}],"pageInfo":{"hasNextPage":false,"hasPreviousPage":true}}}`, got)

	got = run(t, res, `{ allUsers(last: 1) { nodes { name } } }`)
	assert.JSONEq(t, `{"allUsers":{"nodes":[{"name":"Grace"}]}}`, got)

	got = run(t, res, `{ allUsers(first: 1, offset: 1) { nodes { name } } }`)
	assert.JSONEq(t, `{"allUsers":{"nodes":[{"name":"Linus"}]}}`, got)

	got = run(t, res, `{ allUsers(orderBy: [NAME_DESC]) { nodes { name } } }`)
	assert.JSONEq(t, `{"allUsers":{"nodes":[{"name":"Linus"},{"name":"Grace"},{"name":"Ada"}]}}`, got)

	got = run(t, res, `{ allPosts(condition: {authorId: 1}) { totalCount nodes { title } } }`)
	assert.JSONEq(t, `{"allPosts":{"totalCount":2,"nodes":[{"title":"Notes"},{"title":"Engines"}]}}`, got)
}

func TestConnectionArgumentErrors(t *testing.T) {
	res := deriveBlog(t, Options{})

	out := execute(t, res, `{ allUsers(last: 1, offset: 1) { nodes { id } } }`)
	require.NotEmpty(t, out.Errors)
	assert.Contains(t, out.Errors[0].Message, "offset")

	out = execute(t, res, `{ allUsers(after: "bm90LWEtY3Vyc29y") { nodes { id } } }`)
	require.NotEmpty(t, out.Errors)
	assert.Contains(t, out.Errors[0].Message, "invalid cursor")

	huge := base64.StdEncoding.EncodeToString([]byte("cursor:9223372036854775807"))
	out = execute(t, res, `{ allUsers(first: 1, after: "`+huge+`") { nodes { id } } }`)
	require.NotEmpty(t, out.Errors)
	assert.Contains(t, out.Errors[0].Message, "invalid cursor")
}

func TestCursorRoundTrip(t *testing.T) {
	for _, n := range []int{0, 1, 42} {
		got, err := decodeCursor(encodeCursor(n))
		require.NoError(t, err)
		assert.Equal(t, n, got)
	}
	_, err := decodeCursor("%%%")
	assert.Error(t, err)

	_, err = decodeCursor(encodeCursor(math.MaxInt32 + 1))
	assert.Error(t, err)
}

func TestRelations(t *testing.T) {
	res := deriveBlog(t, Options{})

	got := run(t, res, `{
		postById(id: 1) { title userByAuthorId { name } }
		userById(id: 1) {
			postsByAuthorId { totalCount nodes { title } }
			profileByUserId { bio }
		}
		userByEmail(email: "grace@example.com") { name profileByUserId { bio } }
	}`)
	assert.JSONEq(t, `{
		"postById": {"title": "Notes", "userByAuthorId": {"name": "Ada"}},
		"userById": {
			"postsByAuthorId": {"totalCount": 2, "nodes": [{"title": "Notes"}, {"title": "Engines"}]},
			"profileByUserId": {"bio": "first programmer"}
		},
		"userByEmail": {"name": "Grace", "profileByUserId": null}
	}`, got)

	got = run(t, res, `{ userById(id: 99) { name } }`)
	assert.JSONEq(t, `{"userById": null}`, got)
}

func TestLegacyRelations(t *testing.T) {
	tests := []struct {
		mode       string
		single     bool
		connection bool
		deprecated bool
	}{
		{LegacyOmit, true, false, false},
		{LegacyDeprecated, true, true, true},
		{LegacyOnly, false, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.mode, func(t *testing.T) {
			res := deriveBlog(t, Options{LegacyRelations: tt.mode})
			user := res.Schema.Types["User"]

			assert.Equal(t, tt.single, user.Fields.ForName("profileByUserId") != nil)
			legacy := user.Fields.ForName("profilesByUserId")
			require.Equal(t, tt.connection, legacy != nil)
			if legacy != nil {
				assert.Equal(t, tt.deprecated, legacy.Directives.ForName("deprecated") != nil)
			}
		})
	}
}

func TestMutations(t *testing.T) {
	res := deriveBlog(t, Options{})

	got := run(t, res, `mutation {
		createUser(input: {clientMutationId: "c1", user: {name: "Barbara"}}) { clientMutationId user { id name email } }
	}`)
	assert.JSONEq(t, `{"createUser":{"clientMutationId":"c1","user":{"id":4,"name":"Barbara","email":null}}}`, got)

	got = run(t, res, `mutation {
		updateUserById(input: {id: 2, userPatch: {email: "linus@example.com"}}) { user { name email } }
	}`)
	assert.JSONEq(t, `{"updateUserById":{"user":{"name":"Linus","email":"linus@example.com"}}}`, got)

	got = run(t, res, `mutation { deleteUserById(input: {id: 4}) { user { name } query { allUsers { totalCount } } } }`)
	assert.JSONEq(t, `{"deleteUserById":{"user":{"name":"Barbara"},"query":{"allUsers":{"totalCount":3}}}}`, got)

	out := execute(t, res, `mutation { deleteUserById(input: {id: 99}) { user { name } } }`)
	require.NotEmpty(t, out.Errors)
	assert.Contains(t, out.Errors[0].Message, "No values were deleted in collection 'users'")

	out = execute(t, res, `mutation { updateUserById(input: {id: 99, userPatch: {name: "x"}}) { user { name } } }`)
	require.NotEmpty(t, out.Errors)
	assert.Contains(t, out.Errors[0].Message, "No values were updated in collection 'users'")

	// Ada still has posts
	out = execute(t, res, `mutation { deleteUserById(input: {id: 1}) { user { name } } }`)
	require.NotEmpty(t, out.Errors)
	assert.Contains(t, out.Errors[0].Message, "FOREIGN KEY")
}

func TestPrivilegesLimitSurface(t *testing.T) {
	conn, source := openBlog(t)
	source.Table("tags").Privileges = schema.Privileges{Select: true}
	source.Table("profiles").Privileges = schema.Privileges{}

	res, err := Derive(source, conn, Options{})
	require.NoError(t, err)

	query, mutation := res.Schema.Types["Query"], res.Schema.Types["Mutation"]
	assert.NotNil(t, query.Fields.ForName("allTags"))
	assert.Nil(t, mutation.Fields.ForName("createTag"))
	assert.Nil(t, mutation.Fields.ForName("deleteTagById"))
	assert.Nil(t, query.Fields.ForName("allProfiles"))
	assert.Nil(t, res.Schema.Types["User"].Fields.ForName("profileByUserId"))

	res, err = Derive(source, conn, Options{IgnorePrivileges: true})
	require.NoError(t, err)
	assert.NotNil(t, res.Schema.Types["Query"].Fields.ForName("allProfiles"))
	assert.NotNil(t, res.Schema.Types["Mutation"].Fields.ForName("createTag"))
}

func TestSimplifyPlugin(t *testing.T) {
	res := deriveBlog(t, Options{Plugins: []Plugin{SimplifyPlugin{}, ManyToManyPlugin{}}})

	got := run(t, res, `{
		users(first: 1) { nodes { name postsByAuthor { totalCount } profile { bio } } }
		post(id: 3) { title author { name } tags { nodes { label } } }
	}`)
	assert.JSONEq(t, `{
		"users": {"nodes": [{"name": "Ada", "postsByAuthor": {"totalCount": 2}, "profile": {"bio": "first programmer"}}]},
		"post": {"title": "Compilers", "author": {"name": "Grace"}, "tags": {"nodes": [{"label": "math"}]}}
	}`, got)

	mutation := res.Schema.Types["Mutation"]
	assert.NotNil(t, mutation.Fields.ForName("updateUser"))
	assert.NotNil(t, mutation.Fields.ForName("deleteUser"))
	assert.NotNil(t, res.Schema.Types["UpdateUserInput"].Fields.ForName("patch"))
}

func TestManyToManyPlugin(t *testing.T) {
	res := deriveBlog(t, Options{Plugins: []Plugin{ManyToManyPlugin{}}})

	got := run(t, res, `{
		postById(id: 1) { tagsByPostTagPostIdAndTagId { totalCount nodes { label } } }
		tagById(id: 1) { postsByPostTagTagIdAndPostId(orderBy: [TITLE_ASC]) { nodes { title } } }
	}`)
	assert.JSONEq(t, `{
		"postById": {"tagsByPostTagPostIdAndTagId": {"totalCount": 2, "nodes": [{"label": "math"}, {"label": "history"}]}},
		"tagById": {"postsByPostTagTagIdAndPostId": {"nodes": [{"title": "Compilers"}, {"title": "Notes"}]}}
	}`, got)
}

func TestAggregatesPlugin(t *testing.T) {
	res := deriveBlog(t, Options{Plugins: []Plugin{AggregatesPlugin{}}})

	got := run(t, res, `{
		allPosts(first: 1) { aggregates { sum { score } max { score } min { score } distinctCount { authorId } } }
		userById(id: 1) { postsByAuthorId { aggregates { sum { score } } } }
	}`)
	assert.JSONEq(t, `{
		"allPosts": {"aggregates": {"sum": {"score": "22"}, "max": {"score": 10}, "min": {"score": 5}, "distinctCount": {"authorId": "2"}}},
		"userById": {"postsByAuthorId": {"aggregates": {"sum": {"score": "15"}}}}
	}`, got)

	posts := res.Schema.Types["PostAggregates"]
	require.NotNil(t, posts)
	assert.NotNil(t, posts.Fields.ForName("average"))
	assert.Nil(t, res.Schema.Types["PostSumAggregates"].Fields.ForName("title"))
}

func TestScalarFor(t *testing.T) {
	tests := []struct {
		dialect string
		sqlType string
		want    string
		list    bool
	}{
		{"postgres", "integer", "Int", false},
		{"postgres", "bigint", exec.BigInt, false},
		{"postgres", "numeric(10,2)", exec.BigFloat, false},
		{"postgres", "timestamp with time zone", exec.Datetime, false},
		{"postgres", "character varying", "String", false},
		{"postgres", "timestamptz", exec.Datetime, false},
		{"postgres", "uuid", exec.UUID, false},
		{"postgres", "jsonb", exec.JSON, false},
		{"postgres", "text[]", "String", true},
		{"mysql", "tinyint(1)", "Boolean", false},
		{"mysql", "int unsigned", exec.BigInt, false},
		{"mysql", "int(10) unsigned", exec.BigInt, false},
		{"mysql", "mediumint unsigned", "Int", false},
		{"mysql", "varchar(255)", "String", false},
		{"mysql", "datetime", exec.Datetime, false},
		{"sqlite", "INTEGER", "Int", false},
		{"sqlite", "BIGINT", exec.BigInt, false},
		{"sqlite", "UNSIGNED BIG INT", exec.BigInt, false},
		{"sqlite", "VARCHAR(20)", "String", false},
		{"sqlite", "DOUBLE", "Float", false},
		{"sqlite", "BOOLEAN", "Boolean", false},
		{"sqlite", "", "String", false},
	}

	for _, tt := range tests {
		t.Run(tt.dialect+"/"+tt.sqlType, func(t *testing.T) {
			name, list := scalarFor(tt.dialect, tt.sqlType)
			assert.Equal(t, tt.want, name)
			assert.Equal(t, tt.list, list)
		})
	}
}

func TestIntColumnOutsideInt32(t *testing.T) {
	conn, source := openBlog(t)
	_, err := conn.Exec(context.Background(), `INSERT INTO users (id, name) VALUES (3000000000, 'Wide')`)
	require.NoError(t, err)
	res, err := Derive(source, conn, Options{})
	require.NoError(t, err)

	out := execute(t, res, `{ allUsers(orderBy: [ID_DESC], first: 1) { nodes { id name } } }`)
	require.NotEmpty(t, out.Errors)
	assert.Contains(t, out.Errors[0].Message, "out of range for Int")

	got := run(t, res, `{ allUsers(orderBy: [ID_DESC], first: 1) { nodes { name } } }`)
	assert.JSONEq(t, `{"allUsers":{"nodes":[{"name":"Wide"}]}}`, got)
}

func TestBigintColumnCarriesWideValues(t *testing.T) {
	ctx := context.Background()
	conn, err := db.Open(ctx, testutil.NewSQLiteDB(t,
		`CREATE TABLE events (id BIGINT PRIMARY KEY, label TEXT NOT NULL)`,
		`INSERT INTO events (id, label) VALUES (3000000000, 'wide'), (1, 'narrow')`,
	))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	extractor, err := db.NewSchemaExtractor(conn, "")
	require.NoError(t, err)
	source, err := extractor.ExtractSchema(ctx, nil)
	require.NoError(t, err)

	res, err := Derive(source, conn, Options{})
	require.NoError(t, err)
	assert.Equal(t, "BigInt!", res.Schema.Types["Event"].Fields.ForName("id").Type.String())

	got := run(t, res, `{ allEvents(orderBy: [ID_DESC]) { nodes { id label } } }`)
	assert.JSONEq(t, `{"allEvents":{"nodes":[{"id":"3000000000","label":"wide"},{"id":"1","label":"narrow"}]}}`, got)
}
