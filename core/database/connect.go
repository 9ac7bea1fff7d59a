package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/m3rciful/refbot/core/logger"
)

const connectTimeout = 5 * time.Second

// Connect opens and pings the configured database and sizes its pool.
func Connect(cfg Config) (*sqlx.DB, error) {
	if err := cfg.Normalize(); err != nil {
		return nil, fmt.Errorf("db config: %w", err)
	}

	dsn, target := cfg.postgresDSN(), cfg.Host+":"+cfg.Port+"/"+cfg.Name
	if cfg.Driver == DriverSQLite {
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
			return nil, fmt.Errorf("db dir: %w", err)
		}
		dsn, target = cfg.sqliteDSN(), cfg.Path
	}
	attrs := []slog.Attr{slog.String("driver", cfg.Driver), slog.String("db", target)}

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	start := time.Now()
	db, err := sqlx.ConnectContext(ctx, cfg.Driver, dsn)
	if err != nil {
		logger.LogEvent(ctx, logger.DB, slog.LevelError, "db.connect_failed", append(attrs,
			slog.Duration("duration", time.Since(start)),
			slog.String("err", err.Error()),
		)...)
		return nil, fmt.Errorf("db connect: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxConnections)
	db.SetMaxIdleConns(cfg.MaxConnections)

	logger.LogEvent(ctx, logger.DB, slog.LevelInfo, "db.connected", append(attrs,
		slog.Int("pool_open", cfg.MaxConnections),
		slog.Duration("duration", time.Since(start)),
	)...)
	return db, nil
}

// WaitForPostgres pings dsn every two seconds until the server answers or timeout passes.
func WaitForPostgres(dsn string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return err
	}
	defer db.Close()

	tick := time.NewTicker(2 * time.Second)
	defer tick.Stop()
	for {
		pingCtx, pingCancel := context.WithTimeout(ctx, connectTimeout)
		err = db.PingContext(pingCtx)
		pingCancel()
		if err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout reached waiting for database: %w", err)
		case <-tick.C:
		}
	}
}
