package sqlxrepos_test

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/mergington/core/activity"
	"github.com/trezcool/mergington/storage/database/sqlxrepos"
)

// noRowsCountDriver accepts every statement but cannot count affected rows.
type (
	noRowsCountDriver struct{}
	noRowsCountConn   struct{}
	noRowsCountStmt   struct{}
	noRowsCountResult struct{}
)

var errRowsAffected = errors.New("rows affected not supported")

func init() {
	sql.Register("sqlxrepos-no-rows-count", noRowsCountDriver{})
}

func (noRowsCountDriver) Open(string) (driver.Conn, error) { return noRowsCountConn{}, nil }

func (noRowsCountConn) Prepare(string) (driver.Stmt, error) { return noRowsCountStmt{}, nil }
func (noRowsCountConn) Close() error                        { return nil }
func (c noRowsCountConn) Begin() (driver.Tx, error)         { return c, nil }
func (noRowsCountConn) Commit() error                       { return nil }
func (noRowsCountConn) Rollback() error                     { return nil }

func (noRowsCountStmt) Close() error  { return nil }
func (noRowsCountStmt) NumInput() int { return -1 }
func (noRowsCountStmt) Exec([]driver.Value) (driver.Result, error) {
	return noRowsCountResult{}, nil
}
func (noRowsCountStmt) Query([]driver.Value) (driver.Rows, error) {
	return nil, errors.New("queries not supported")
}

func (noRowsCountResult) LastInsertId() (int64, error) { return 0, nil }
func (noRowsCountResult) RowsAffected() (int64, error) { return 0, errRowsAffected }

func TestActivityRepository_Seed_rowsAffectedError(t *testing.T) {
	db, err := sqlx.Open("sqlxrepos-no-rows-count", "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	repo := sqlxrepos.NewActivityRepository(sqlx.NewDb(db.DB, "sqlite3"))

	err = repo.Seed(context.Background(), []activity.Activity{
		{Name: "Chess Club", MaxParticipants: 2, Participants: []string{"michael@mergington.edu"}},
	})
	require.Error(t, err)
	assert.Equal(t, errRowsAffected, errors.Cause(err))
	assert.Contains(t, err.Error(), `counting inserted activities for "Chess Club"`)
}
