package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errNoCount = errors.New("rows affected not supported")

// noCountDriver executes every statement but cannot report affected rows,
// like some proxies and older drivers.
type noCountDriver struct{}

func (noCountDriver) Open(string) (driver.Conn, error) { return noCountConn{}, nil }

type noCountConn struct{}

func (noCountConn) Prepare(string) (driver.Stmt, error) { return noCountStmt{}, nil }
func (noCountConn) Close() error                        { return nil }
func (noCountConn) Begin() (driver.Tx, error)           { return nil, errors.New("no transactions") }

type noCountStmt struct{}

func (noCountStmt) Close() error  { return nil }
func (noCountStmt) NumInput() int { return -1 }
func (noCountStmt) Exec([]driver.Value) (driver.Result, error) {
	return noCountResult{}, nil
}
func (noCountStmt) Query([]driver.Value) (driver.Rows, error) {
	return nil, errors.New("no queries")
}

type noCountResult struct{}

func (noCountResult) LastInsertId() (int64, error) { return 0, errNoCount }
func (noCountResult) RowsAffected() (int64, error) { return 0, errNoCount }

func init() {
	sql.Register("store_nocount", noCountDriver{})
}

func TestDeletesReportRowsAffectedFailure(t *testing.T) {
	raw, err := sql.Open("store_nocount", "")
	require.NoError(t, err)
	s := New(sqlx.NewDb(raw, "sqlite3"))
	t.Cleanup(func() { _ = s.Close() })
	ctx := context.Background()

	n, err := s.ClearHistory(ctx, 1)
	assert.ErrorIs(t, err, errNoCount)
	assert.ErrorContains(t, err, "store: clear history")
	assert.Zero(t, n)

	n, err = s.RemoveFavorite(ctx, 1, "x")
	assert.ErrorIs(t, err, errNoCount)
	assert.ErrorContains(t, err, "store: remove favorite")
	assert.Zero(t, n)
}
