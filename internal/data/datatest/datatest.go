// Package datatest provides an in-memory SQLite database with the forum schema for tests.
package datatest

import (
	_ "embed"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schema string

var dbSeq atomic.Int64

// New creates an isolated shared-cache in-memory database, applies the schema
// and returns it with its DSN, so that other components (casbin, scs) can
// open their own connections to the same database. The database is closed
// when the test finishes.
func New(t testing.TB) (*sqlx.DB, string) {
	t.Helper()

	dsn := fmt.Sprintf("file:forumtest%d?mode=memory&cache=shared&_fk=1&_loc=UTC", dbSeq.Add(1))
	db, err := sqlx.Connect("sqlite3", dsn)
	if err != nil {
		t.Fatalf("Failed to connect to sqlite test database: %v", err)
	}
	// A single connection keeps writes from the worker and the test goroutine serialized.
	db.SetMaxOpenConns(1)

	db.MustExec(schema)

	t.Cleanup(func() {
		db.Close()
	})
	return db, dsn
}

// CreateUser inserts a user and returns its id.
func CreateUser(t testing.TB, db *sqlx.DB, username string) int64 {
	t.Helper()
	res, err := db.Exec(`INSERT INTO users (username, email, created_at) VALUES (?, ?, ?)`,
		username, username+"@example.com", time.Now().UTC())
	if err != nil {
		t.Fatalf("failed to create user %s: %v", username, err)
	}
	id, _ := res.LastInsertId()
	return id
}

// CreateNode inserts a node and returns its id.
func CreateNode(t testing.TB, db *sqlx.DB, title string) int64 {
	t.Helper()
	res, err := db.Exec(`INSERT INTO nodes (title, description) VALUES (?, ?)`, title, "")
	if err != nil {
		t.Fatalf("failed to create node %s: %v", title, err)
	}
	id, _ := res.LastInsertId()
	return id
}
