// Package dbtest opens migrated in-memory databases for tests.
package dbtest

import (
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
	"github.com/templui/fractional/internal/db"
)

// New returns a migrated in-memory SQLite database that is closed when the
// test ends.
func New(t testing.TB) *sqlx.DB {
	t.Helper()

	conn, err := db.Init("sqlite", ":memory:?_pragma=foreign_keys(1)")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close(conn) })

	require.NoError(t, db.RunMigrations(conn.DB, "sqlite"))
	return conn
}

// CreateUser inserts a user row and returns its ID.
func CreateUser(t testing.TB, conn *sqlx.DB, id, email string) string {
	t.Helper()

	_, err := conn.Exec(`INSERT INTO users (id, email, created_at) VALUES ($1, $2, $3)`, id, email, time.Now().UTC())
	require.NoError(t, err)
	return id
}
