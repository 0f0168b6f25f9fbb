// Package testutil provides store fixtures shared by package tests.
package testutil

import (
	"database/sql"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"
)

// BlogSchema is a small schema covering every relation shape the gateway derives:
// forward and backward relations, a unique backward relation and a junction table.
var BlogSchema = []string{
	`CREATE TABLE users (
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT
	)`,
	`CREATE UNIQUE INDEX users_email_key ON users (email)`,
	`CREATE TABLE profiles (
		id INTEGER PRIMARY KEY,
		user_id INTEGER NOT NULL UNIQUE REFERENCES users (id),
		bio TEXT
	)`,
	`CREATE TABLE posts (
		id INTEGER PRIMARY KEY,
		author_id INTEGER NOT NULL REFERENCES users (id),
		title TEXT NOT NULL,
		score INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE INDEX posts_author_id_idx ON posts (author_id)`,
	`CREATE TABLE tags (
		id INTEGER PRIMARY KEY,
		label TEXT NOT NULL
	)`,
	`CREATE TABLE post_tags (
		post_id INTEGER NOT NULL REFERENCES posts (id),
		tag_id INTEGER NOT NULL REFERENCES tags (id),
		PRIMARY KEY (post_id, tag_id)
	)`,
}

// BlogData seeds BlogSchema
var BlogData = []string{
	`INSERT INTO users (id, name, email) VALUES (1, 'Ada', 'ada@example.com'), (2, 'Linus', NULL), (3, 'Grace', 'grace@example.com')`,
	`INSERT INTO profiles (user_id, bio) VALUES (1, 'first programmer')`,
	`INSERT INTO posts (id, author_id, title, score) VALUES (1, 1, 'Notes', 10), (2, 1, 'Engines', 5), (3, 3, 'Compilers', 7)`,
	`INSERT INTO tags (id, label) VALUES (1, 'math'), (2, 'history')`,
	`INSERT INTO post_tags (post_id, tag_id) VALUES (1, 1), (1, 2), (3, 1)`,
}

// NewSQLiteDB creates a file-backed SQLite database in a temp dir, runs the
// statements and returns its sqlite:// URL.
func NewSQLiteDB(t testing.TB, statements ...string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.db")
	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	for _, stmt := range statements {
		_, err := db.Exec(stmt)
		require.NoError(t, err, stmt)
	}

	return "sqlite://" + path
}

// NewBlogDB creates a seeded BlogSchema database
func NewBlogDB(t testing.TB) string {
	t.Helper()
	return NewSQLiteDB(t, append(append([]string{}, BlogSchema...), BlogData...)...)
}
