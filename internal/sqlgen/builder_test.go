package sqlgen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var users = Table{Schema: "public", Name: "users"}

func TestBuildSelect(t *testing.T) {
	tests := []struct {
		name     string
		dialect  Dialect
		sel      Select
		wantSQL  string
		wantArgs []any
	}{
		{
			name:    "postgres with everything",
			dialect: Postgres{},
			sel: Select{
				From:    users,
				Where:   []Cond{{Column: "org_id", Value: 7}, {Column: "deleted_at"}},
				OrderBy: []Order{{Column: "name", Desc: true}, {Column: "id"}},
				Limit:   11,
				Offset:  20,
			},
			wantSQL:  `SELECT * FROM "public"."users" WHERE "org_id" = $1 AND "deleted_at" IS NULL ORDER BY "name" DESC, "id" ASC LIMIT 11 OFFSET 20`,
			wantArgs: []any{7},
		},
		{
			name:     "mysql offset without limit",
			dialect:  MySQL{},
			sel:      Select{From: Table{Name: "users"}, Columns: []string{"id", "name"}, Limit: NoLimit, Offset: 5},
			wantSQL:  "SELECT `id`, `name` FROM `users` LIMIT 18446744073709551615 OFFSET 5",
			wantArgs: nil,
		},
		{
			name:     "sqlite offset without limit",
			dialect:  SQLite{},
			sel:      Select{From: Table{Name: "users"}, Limit: NoLimit, Offset: 5},
			wantSQL:  `SELECT * FROM "users" LIMIT -1 OFFSET 5`,
			wantArgs: nil,
		},
		{
			name:    "subquery predicate",
			dialect: Postgres{},
			sel: Select{
				From: Table{Name: "tags"},
				Where: []Cond{{Column: "id", In: &Subquery{
					Column: "tag_id",
					From:   Table{Name: "post_tags"},
					Where:  []Cond{{Column: "post_id", Value: 1}},
				}}},
				Limit: 3,
			},
			wantSQL:  `SELECT * FROM "tags" WHERE "id" IN (SELECT "tag_id" FROM "post_tags" WHERE "post_id" = $1) LIMIT 3`,
			wantArgs: []any{1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, args := BuildSelect(tt.dialect, tt.sel)
			assert.Equal(t, tt.wantSQL, sql)
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}

func TestBuildCount(t *testing.T) {
	sql, args := BuildCount(Postgres{}, users, []Cond{{Column: "active", Value: true}})
	assert.Equal(t, `SELECT COUNT(*) AS "count" FROM "public"."users" WHERE "active" = $1`, sql)
	assert.Equal(t, []any{true}, args)
}

func TestBuildAggregate(t *testing.T) {
	sql, _, err := BuildAggregate(SQLite{}, Table{Name: "posts"}, nil, Sum, []string{"score"})
	require.NoError(t, err)
	assert.Equal(t, `SELECT COALESCE(SUM("score"), 0) AS "score" FROM "posts"`, sql)

	sql, args, err := BuildAggregate(Postgres{}, Table{Name: "posts"}, []Cond{{Column: "author_id", Value: 1}}, DistinctCount, []string{"author_id", "title"})
	require.NoError(t, err)
	assert.Equal(t, `SELECT COUNT(DISTINCT "author_id") AS "author_id", COUNT(DISTINCT "title") AS "title" FROM "posts" WHERE "author_id" = $1`, sql)
	assert.Equal(t, []any{1}, args)

	sql, _, err = BuildAggregate(MySQL{}, Table{Name: "posts"}, nil, Max, []string{"score"})
	require.NoError(t, err)
	assert.Equal(t, "SELECT MAX(`score`) AS `score` FROM `posts`", sql)

	_, _, err = BuildAggregate(Postgres{}, Table{Name: "posts"}, nil, "median", []string{"score"})
	assert.Error(t, err)

	_, _, err = BuildAggregate(Postgres{}, Table{Name: "posts"}, nil, Sum, nil)
	assert.Error(t, err)
}

func TestBuildInsert(t *testing.T) {
	sql, args := BuildInsert(Postgres{}, users, []Assignment{{Column: "name", Value: "Ada"}, {Column: "email", Value: nil}})
	assert.Equal(t, `INSERT INTO "public"."users" ("name", "email") VALUES ($1, $2) RETURNING *`, sql)
	assert.Equal(t, []any{"Ada", nil}, args)

	sql, _ = BuildInsert(MySQL{}, Table{Name: "users"}, []Assignment{{Column: "name", Value: "Ada"}})
	assert.Equal(t, "INSERT INTO `users` (`name`) VALUES (?)", sql)

	sql, _ = BuildInsert(SQLite{}, Table{Name: "users"}, nil)
	assert.Equal(t, `INSERT INTO "users" DEFAULT VALUES RETURNING *`, sql)

	sql, _ = BuildInsert(MySQL{}, Table{Name: "users"}, nil)
	assert.Equal(t, "INSERT INTO `users` () VALUES ()", sql)
}

func TestBuildUpdate(t *testing.T) {
	sql, args, err := BuildUpdate(Postgres{}, users, []Assignment{{Column: "name", Value: "Grace"}}, []Cond{{Column: "id", Value: 3}})
	require.NoError(t, err)
	assert.Equal(t, `UPDATE "public"."users" SET "name" = $1 WHERE "id" = $2 RETURNING *`, sql)
	assert.Equal(t, []any{"Grace", 3}, args)

	_, _, err = BuildUpdate(Postgres{}, users, nil, []Cond{{Column: "id", Value: 3}})
	assert.Error(t, err)
}

func TestBuildDelete(t *testing.T) {
	sql, args := BuildDelete(MySQL{}, Table{Name: "users"}, []Cond{{Column: "id", Value: 3}})
	assert.Equal(t, "DELETE FROM `users` WHERE `id` = ?", sql)
	assert.Equal(t, []any{3}, args)
}

func TestBuildCall(t *testing.T) {
	sql, args := BuildCall(Postgres{}, Table{Schema: "public", Name: "search_users"}, []any{"ad", 10})
	assert.Equal(t, `SELECT * FROM "public"."search_users"($1, $2)`, sql)
	assert.Equal(t, []any{"ad", 10}, args)
}

func TestQuoteIdentEscapes(t *testing.T) {
	assert.Equal(t, `"a""b"`, Postgres{}.QuoteIdent(`a"b`))
	assert.Equal(t, "`a``b`", MySQL{}.QuoteIdent("a`b"))
}
