package database

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/m3rciful/refbot/core/logger"
)

//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var migrationsFS embed.FS

// postgresReadyTimeout bounds how long RunMigrations waits for a starting server.
const postgresReadyTimeout = 30 * time.Second

// RunMigrations applies every embedded up migration for the configured driver.
// Already-applied versions are skipped.
func RunMigrations(cfg Config) error {
	if err := cfg.Normalize(); err != nil {
		return fmt.Errorf("db config: %w", err)
	}
	ctx := context.Background()

	dbURL := cfg.sqliteURL()
	if cfg.Driver == DriverPostgres {
		dbURL = cfg.postgresURL()
		if err := WaitForPostgres(dbURL, postgresReadyTimeout); err != nil {
			logger.LogEvent(ctx, logger.MIG, slog.LevelError, "migrate.not_ready", slog.String("err", err.Error()))
			return fmt.Errorf("database not ready: %w", err)
		}
	}

	dir := path.Join("migrations", cfg.Driver)
	files := upFiles(migrationsFS, dir)
	preview, cut := logger.SummarizeStrings(files, 6)
	logger.LogEvent(ctx, logger.MIG, slog.LevelDebug, "migrate.resolve",
		slog.String("driver", cfg.Driver),
		slog.Int("files_total", len(files)),
		slog.String("files_preview", preview),
		slog.Bool("files_truncated", cut),
	)

	src, err := iofs.New(migrationsFS, dir)
	if err != nil {
		return fmt.Errorf("open embedded migrations: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, dbURL)
	if err != nil {
		logger.LogEvent(ctx, logger.MIG, slog.LevelError, "migrate.init_failed", slog.String("err", err.Error()))
		return fmt.Errorf("init migrations: %w", err)
	}
	defer func() {
		if err := errors.Join(m.Close()); err != nil {
			logger.LogEvent(ctx, logger.MIG, slog.LevelWarn, "migrate.close_failed", slog.String("err", err.Error()))
		}
	}()

	from := currentVersion(m)
	start := time.Now()
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		logger.LogEvent(ctx, logger.MIG, slog.LevelError, "migrate.failed",
			slog.Uint64("from_ver", from),
			slog.String("err", err.Error()),
			slog.Duration("duration", time.Since(start)),
		)
		return fmt.Errorf("apply migrations: %w", err)
	}
	to := currentVersion(m)

	applied := selectApplied(files, from, to)
	names, _ := logger.SummarizeStrings(applied, 6)
	logger.LogEvent(ctx, logger.MIG, slog.LevelInfo, "migrate.summary",
		slog.String("driver", cfg.Driver),
		slog.Uint64("from_ver", from),
		slog.Uint64("to_ver", to),
		slog.Int("files", len(applied)),
		slog.String("applied", names),
		slog.Duration("duration", time.Since(start)),
	)
	return nil
}

// currentVersion is 0 for a fresh database.
func currentVersion(m *migrate.Migrate) uint64 {
	v, _, err := m.Version()
	if err != nil {
		return 0
	}
	return uint64(v)
}

// upFiles lists the *.up.sql files in dir by name, which orders them by version.
func upFiles(fsys fs.FS, dir string) []string {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".up.sql") {
			names = append(names, e.Name())
		}
	}
	slices.Sort(names)
	return names
}

// selectApplied returns the files whose version lies in (from, to].
func selectApplied(files []string, from, to uint64) []string {
	var out []string
	for _, f := range files {
		prefix, _, _ := strings.Cut(f, "_")
		v, err := strconv.ParseUint(prefix, 10, 64)
		if err == nil && v > from && v <= to {
			out = append(out, f)
		}
	}
	return out
}
