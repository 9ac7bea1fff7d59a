package bootstrap

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreconfig "github.com/m3rciful/refbot/core/config"
	coredatabase "github.com/m3rciful/refbot/core/database"
)

func noLogger(*coreconfig.Config) error { return nil }

func TestRunRequiresConfig(t *testing.T) {
	_, err := Run(Options{})
	assert.Error(t, err)
}

func TestRunMigratesSQLite(t *testing.T) {
	dbCfg := coredatabase.Config{Driver: "sqlite", Path: filepath.Join(t.TempDir(), "refbot.db")}
	res, err := Run(Options{Config: &coreconfig.Config{}, Database: dbCfg, LoggerInit: noLogger})
	require.NoError(t, err)
	t.Cleanup(func() { _ = res.DB.Close() })

	var n int
	require.NoError(t, res.DB.Get(&n, `SELECT COUNT(*) FROM query_history`))
	assert.Zero(t, n)
}

func TestRunClosesDBWhenMigrationFails(t *testing.T) {
	var opened *sqlx.DB
	boom := errors.New("boom")
	_, err := Run(Options{
		Config:     &coreconfig.Config{},
		LoggerInit: noLogger,
		Connect: func(coredatabase.Config) (*sqlx.DB, error) {
			db, err := sqlx.Open("sqlite", ":memory:")
			opened = db
			return db, err
		},
		Migrate: func(coredatabase.Config) error { return boom },
	})
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "migrate")
	require.NotNil(t, opened)
	assert.Error(t, opened.Ping(), "connection is closed")
}

func TestRunStopsOnLoggerError(t *testing.T) {
	connected := false
	_, err := Run(Options{
		Config:     &coreconfig.Config{},
		LoggerInit: func(*coreconfig.Config) error { return errors.New("no sink") },
		Connect: func(coredatabase.Config) (*sqlx.DB, error) {
			connected = true
			return nil, nil
		},
	})
	require.Error(t, err)
	assert.False(t, connected)
}
