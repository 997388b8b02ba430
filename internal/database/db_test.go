package database

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T, name string) *DB {
	t.Helper()
	db, err := New(Config{
		Path:    filepath.Join(t.TempDir(), name+".db"),
		Profile: ProfileStandard,
		Name:    name,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func tableExists(t *testing.T, db *DB, table string) bool {
	t.Helper()
	var count int
	err := db.Conn().QueryRow(
		"SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?", table,
	).Scan(&count)
	require.NoError(t, err)
	return count == 1
}

func TestMigrate_Portals(t *testing.T) {
	db := newTestDB(t, "portals")
	require.NoError(t, db.Migrate())

	assert.True(t, tableExists(t, db, "portals"))
	assert.True(t, tableExists(t, db, "portal_events"))

	// Running twice is harmless
	require.NoError(t, db.Migrate())
}

func TestMigrate_Sessions(t *testing.T) {
	db := newTestDB(t, "sessions")
	require.NoError(t, db.Migrate())
	assert.True(t, tableExists(t, db, "sessions"))
}

func TestMigrate_UnknownNameIsNoop(t *testing.T) {
	db := newTestDB(t, "scratch")
	require.NoError(t, db.Migrate())
	assert.False(t, tableExists(t, db, "portals"))
}

func TestWithTransaction_RollsBackOnError(t *testing.T) {
	db := newTestDB(t, "scratch")
	_, err := db.Conn().Exec("CREATE TABLE kv (k TEXT PRIMARY KEY, v TEXT)")
	require.NoError(t, err)

	boom := errors.New("boom")
	err = WithTransaction(db.Conn(), func(tx *sql.Tx) error {
		if _, err := tx.Exec("INSERT INTO kv (k, v) VALUES ('a', '1')"); err != nil {
			return err
		}
		return boom
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)

	var count int
	require.NoError(t, db.Conn().QueryRow("SELECT COUNT(*) FROM kv").Scan(&count))
	assert.Equal(t, 0, count)
}

func TestWithTransaction_RecoversPanic(t *testing.T) {
	db := newTestDB(t, "scratch")

	err := WithTransaction(db.Conn(), func(tx *sql.Tx) error {
		panic("bad")
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panic in transaction")
}

func TestWithTransaction_NilDB(t *testing.T) {
	err := WithTransaction(nil, func(tx *sql.Tx) error { return nil })
	assert.Error(t, err)
}

func TestBackupTo(t *testing.T) {
	db := newTestDB(t, "portals")
	require.NoError(t, db.Migrate())

	dest := filepath.Join(t.TempDir(), "snapshot.db")
	require.NoError(t, db.BackupTo(context.Background(), dest))

	// Second backup to the same path is refused
	assert.Error(t, db.BackupTo(context.Background(), dest))

	snapshot, err := New(Config{Path: dest, Name: "snapshot"})
	require.NoError(t, err)
	defer snapshot.Close()
	assert.True(t, tableExists(t, snapshot, "portals"))
}

func TestHealthCheck(t *testing.T) {
	db := newTestDB(t, "sessions")
	require.NoError(t, db.Migrate())

	ctx := context.Background()
	assert.NoError(t, db.QuickCheck(ctx))
	assert.NoError(t, db.HealthCheck(ctx))
	assert.NoError(t, db.WALCheckpoint(""))
}

func TestSchema(t *testing.T) {
	schema, err := Schema("portals")
	require.NoError(t, err)
	assert.Contains(t, schema, "CREATE TABLE IF NOT EXISTS portals")

	_, err = Schema("nope")
	assert.Error(t, err)
}
