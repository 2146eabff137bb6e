package database

import (
	"context"
	"database/sql"
	"errors"
	"io/fs"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitStatements(t *testing.T) {
	stmts := splitStatements(`
		-- leading comment; with a semicolon
		CREATE TABLE a (x TEXT DEFAULT 'a;b');
		INSERT INTO a (x) VALUES ('it''s');

		CREATE INDEX i ON a(x)
	`)

	require.Len(t, stmts, 3)
	assert.Contains(t, stmts[0], "'a;b'")
	assert.Contains(t, stmts[1], "'it''s'")
	assert.Equal(t, "CREATE INDEX i ON a(x)", stmts[2])
}

func openTestDB(t *testing.T) *DB {
	t.Helper()
	migrations, err := fs.Sub(EmbeddedMigrations, "migrations")
	require.NoError(t, err)

	db, err := New(filepath.Join(t.TempDir(), "test.db"), migrations)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestNew_AppliesEmbeddedMigrationsOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "forum.db")
	migrations, err := fs.Sub(EmbeddedMigrations, "migrations")
	require.NoError(t, err)

	db, err := New(path, migrations)
	require.NoError(t, err)

	entries, err := fs.ReadDir(migrations, ".")
	require.NoError(t, err)
	want := len(entries)
	require.GreaterOrEqual(t, want, 2)

	var n int
	require.NoError(t, db.Conn.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&n))
	assert.Equal(t, want, n)
	require.NoError(t, db.Close())

	// reopening must not re-run anything
	db, err = New(path, migrations)
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, db.Conn.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&n))
	assert.Equal(t, want, n)
}

func TestNew_RecoverableStatementIsSkipped(t *testing.T) {
	migrations := fstest.MapFS{
		"001_a.sql": {Data: []byte("CREATE TABLE t (a TEXT); ALTER TABLE t ADD COLUMN b TEXT;")},
		"002_b.sql": {Data: []byte("ALTER TABLE t ADD COLUMN b TEXT; CREATE TABLE u (c TEXT);")},
	}

	db, err := New(filepath.Join(t.TempDir(), "x.db"), migrations)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Conn.Exec("INSERT INTO u (c) VALUES ('ok')")
	assert.NoError(t, err)
}

func TestOneActiveBanIndex(t *testing.T) {
	db := openTestDB(t)
	_, err := db.Conn.Exec(`INSERT INTO users (id, username, password_hash, created_at)
		VALUES ('u1', 'alice', 'x', CURRENT_TIMESTAMP)`)
	require.NoError(t, err)

	insert := `INSERT INTO bans (id, user_id, type, reason, start_at, is_active, created_at)
		VALUES (?, 'u1', 'permanent', 'r', CURRENT_TIMESTAMP, ?, CURRENT_TIMESTAMP)`

	_, err = db.Conn.Exec(insert, "b1", 1)
	require.NoError(t, err)
	_, err = db.Conn.Exec(insert, "b2", 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "UNIQUE constraint failed")

	// historical rows are unrestricted
	_, err = db.Conn.Exec(insert, "b3", 0)
	assert.NoError(t, err)
}

func TestWithTx(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	boom := errors.New("boom")
	err := WithTx(ctx, db.Conn, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `INSERT INTO users (id, username, password_hash, created_at)
			VALUES ('u1', 'alice', 'x', CURRENT_TIMESTAMP)`)
		require.NoError(t, err)
		return boom
	})
	require.ErrorIs(t, err, boom)

	var n int
	require.NoError(t, db.Conn.QueryRow("SELECT COUNT(*) FROM users").Scan(&n))
	assert.Equal(t, 0, n, "rolled back")

	assert.Panics(t, func() {
		_ = WithTx(ctx, db.Conn, func(tx *sql.Tx) error {
			_, _ = tx.ExecContext(ctx, `INSERT INTO users (id, username, password_hash, created_at)
				VALUES ('u2', 'bob', 'x', CURRENT_TIMESTAMP)`)
			panic("bad")
		})
	})
	require.NoError(t, db.Conn.QueryRow("SELECT COUNT(*) FROM users").Scan(&n))
	assert.Equal(t, 0, n)

	require.NoError(t, WithTx(ctx, db.Conn, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `INSERT INTO users (id, username, password_hash, created_at)
			VALUES ('u3', 'carol', 'x', CURRENT_TIMESTAMP)`)
		return err
	}))
	require.NoError(t, db.Conn.QueryRow("SELECT COUNT(*) FROM users").Scan(&n))
	assert.Equal(t, 1, n)
}
