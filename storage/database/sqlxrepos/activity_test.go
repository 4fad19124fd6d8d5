package sqlxrepos_test

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/trezcool/mergington/core"
	"github.com/trezcool/mergington/core/activity"
	"github.com/trezcool/mergington/storage/database"
	"github.com/trezcool/mergington/storage/database/sqlxrepos"
	"github.com/trezcool/mergington/testutil"
)

func TestActivityRepository_sqlite(t *testing.T) {
	testutil.RunRepositoryTests(t, func(t *testing.T) activity.Repository {
		return sqlxrepos.NewActivityRepository(testutil.OpenSQLite(t))
	})
}

// Runs against the database of TEST_POSTGRES_DSN, which is emptied by every test.
func TestActivityRepository_postgres(t *testing.T) {
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set")
	}

	db, err := database.Open(core.StoreConfig{Engine: core.EnginePostgres, DSN: dsn})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.Migrate(db, core.EnginePostgres))

	testutil.RunRepositoryTests(t, func(t *testing.T) activity.Repository {
		_, err := db.Exec(`TRUNCATE participants, activities`)
		require.NoError(t, err)
		return sqlxrepos.NewActivityRepository(db)
	})
}
