package database

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yuanv4/aibookkeeping/src/logger"
)

func TestMain(m *testing.M) {
	logger.InitLogger("error")
	os.Exit(m.Run())
}

func TestOpen_EnablesForeignKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "open_test.db")
	db, err := Open(path)
	require.NoError(t, err)
	defer db.Close()

	var fk int
	require.NoError(t, db.QueryRow(`PRAGMA foreign_keys`).Scan(&fk))
	assert.Equal(t, 1, fk)
}

func TestMigrate_CreatesSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "migrate_test.db")
	db, err := Open(path)
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, Migrate(db, path, filepath.Join("..", "..", "db", "migrations")))

	for _, table := range []string{"banks", "accounts", "categories", "transactions"} {
		var name string
		err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&name)
		require.NoError(t, err, "table %s missing", table)
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "idempotent_test.db")
	db, err := Open(path)
	require.NoError(t, err)
	defer db.Close()

	migrations := filepath.Join("..", "..", "db", "migrations")
	require.NoError(t, Migrate(db, path, migrations))
	assert.NoError(t, Migrate(db, path, migrations))
}
