package database_test

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/mergington/core"
	"github.com/trezcool/mergington/storage/database"
	"github.com/trezcool/mergington/testutil"
)

func TestOpen_unsupportedEngine(t *testing.T) {
	_, err := database.Open(core.StoreConfig{Engine: "mysql", DSN: "root@/db"})
	assert.Equal(t, database.ErrUnsupportedEngine, errors.Cause(err))

	_, err = database.Open(core.StoreConfig{Engine: core.EngineMemory})
	assert.Equal(t, database.ErrUnsupportedEngine, errors.Cause(err))
}

func TestMigrate(t *testing.T) {
	db := testutil.OpenSQLite(t) // migrated

	// already up to date
	require.NoError(t, database.Migrate(db, core.EngineSQLite))

	m, err := database.NewMigrator(db, core.EngineSQLite)
	require.NoError(t, err)
	version, dirty, err := m.Version()
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
	assert.False(t, dirty)

	var tables []string
	require.NoError(t, db.Select(&tables, `
		SELECT name FROM sqlite_master
		WHERE type = 'table' AND name IN ('activities', 'participants')
		ORDER BY name`))
	assert.Equal(t, []string{"activities", "participants"}, tables)

	_, err = database.NewMigrator(db, core.EngineMemory)
	assert.Equal(t, database.ErrUnsupportedEngine, errors.Cause(err))
}
