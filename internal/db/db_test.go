package db

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openMemory(t *testing.T) *sqlx.DB {
	t.Helper()

	conn, err := sqlx.Connect("sqlite", ":memory:")
	require.NoError(t, err)
	conn.SetMaxOpenConns(1)
	t.Cleanup(func() { conn.Close() })

	require.NoError(t, RunMigrations(conn.DB, "sqlite"))
	return conn
}

func TestRunMigrations(t *testing.T) {
	conn := openMemory(t)

	var tables []string
	require.NoError(t, conn.Select(&tables, `SELECT name FROM sqlite_master WHERE type = 'table' ORDER BY name`))

	for _, name := range []string{"users", "monthly_goals", "daily_actuals", "opportunities", "contacts", "streaks", "achievements", "user_insights", "chat_messages", "feature_usage", "sheets_connections", "revenue_imports"} {
		assert.Contains(t, tables, name)
	}

	version, err := MigrationVersion(conn.DB, "sqlite")
	require.NoError(t, err)
	assert.Equal(t, int64(2), version)

	tableCount := func(name string) int {
		var count int
		require.NoError(t, conn.Get(&count, `SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = $1`, name))
		return count
	}

	require.NoError(t, MigrateDown(conn.DB, "sqlite"))
	assert.Zero(t, tableCount("revenue_imports"))
	assert.Equal(t, 1, tableCount("users"))

	require.NoError(t, MigrateDown(conn.DB, "sqlite"))
	assert.Zero(t, tableCount("users"))
}

func TestWithTx(t *testing.T) {
	conn := openMemory(t)
	ctx := context.Background()

	err := WithTx(ctx, conn, func(tx *sqlx.Tx) error {
		_, err := tx.Exec(`INSERT INTO users (id, email, created_at) VALUES ('u1', 'a@example.com', $1)`, time.Now().UTC())
		return err
	})
	require.NoError(t, err)

	boom := errors.New("boom")
	err = WithTx(ctx, conn, func(tx *sqlx.Tx) error {
		if _, err := tx.Exec(`INSERT INTO users (id, email, created_at) VALUES ('u2', 'b@example.com', $1)`, time.Now().UTC()); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	var count int
	require.NoError(t, conn.Get(&count, `SELECT COUNT(*) FROM users`))
	assert.Equal(t, 1, count)
}

func TestGetDialect(t *testing.T) {
	assert.Equal(t, "sqlite3", getDialect("sqlite"))
	assert.Equal(t, "postgres", getDialect("pgx"))
	assert.Equal(t, "clickhouse", getDialect("clickhouse"))
}

func TestWithBusyTimeout(t *testing.T) {
	assert.Equal(t, "./data/app.db?_pragma=busy_timeout(5000)", withBusyTimeout("./data/app.db"))
	assert.Equal(t, "./data/app.db?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", withBusyTimeout("./data/app.db?_pragma=foreign_keys(1)"))
	assert.Equal(t, "app.db?_pragma=busy_timeout(100)", withBusyTimeout("app.db?_pragma=busy_timeout(100)"))
}

func TestInit_SetsBusyTimeout(t *testing.T) {
	conn, err := Init("sqlite", ":memory:")
	require.NoError(t, err)
	defer conn.Close()

	var timeout int
	require.NoError(t, conn.Get(&timeout, `PRAGMA busy_timeout`))
	assert.Equal(t, 5000, timeout)
}
