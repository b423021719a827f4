package db

import (
	"testing"

	"github.com/kasuganosora/rpgscript/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_SQLiteMemory(t *testing.T) {
	a, err := Open(config.DatabaseConfig{Mode: ModeSQLiteMemory})
	require.NoError(t, err)
	b, err := Open(config.DatabaseConfig{Mode: ModeSQLiteMemory})
	require.NoError(t, err)

	require.NoError(t, a.Exec("CREATE TABLE t (id INTEGER)").Error)
	assert.True(t, a.Migrator().HasTable("t"))
	assert.False(t, b.Migrator().HasTable("t"))
}

func TestOpen_SQLiteFile(t *testing.T) {
	db, err := Open(config.DatabaseConfig{Mode: ModeSQLite, SQLitePath: t.TempDir() + "/game.db"})
	require.NoError(t, err)
	require.NoError(t, db.Exec("CREATE TABLE t (id INTEGER)").Error)
}

func TestOpen_MySQLNeedsDSN(t *testing.T) {
	_, err := Open(config.DatabaseConfig{Mode: ModeMySQL})
	assert.Error(t, err)
}

func TestOpen_UnknownMode(t *testing.T) {
	_, err := Open(config.DatabaseConfig{Mode: "embedded_xml"})
	assert.Error(t, err)
}
