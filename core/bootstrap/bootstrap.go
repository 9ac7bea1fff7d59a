// Package bootstrap brings up the infrastructure every entry point needs before the
// bot can be wired: logging, the database connection and the schema.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	coreconfig "github.com/m3rciful/refbot/core/config"
	coredatabase "github.com/m3rciful/refbot/core/database"
	"github.com/m3rciful/refbot/core/logger"
)

// Options select the configuration and, for tests, replace individual steps.
type Options struct {
	Config   *coreconfig.Config
	Database coredatabase.Config

	LoggerInit func(*coreconfig.Config) error
	Connect    func(coredatabase.Config) (*sqlx.DB, error)
	Migrate    func(coredatabase.Config) error
}

// Result holds what Run opened. The caller owns DB.
type Result struct {
	DB *sqlx.DB
}

// Run initialises logging, connects and migrates. When a later step fails the
// connection opened by an earlier one is closed.
func Run(opts Options) (*Result, error) {
	if opts.Config == nil {
		return nil, errors.New("bootstrap: nil config provided")
	}
	if opts.LoggerInit == nil {
		opts.LoggerInit = logger.InitLogger
	}
	if opts.Connect == nil {
		opts.Connect = coredatabase.Connect
	}
	if opts.Migrate == nil {
		opts.Migrate = coredatabase.RunMigrations
	}

	if err := opts.LoggerInit(opts.Config); err != nil {
		return nil, fmt.Errorf("bootstrap: logger: %w", err)
	}

	var db *sqlx.DB
	steps := []struct {
		name string
		run  func() error
	}{
		{"connect", func() (err error) {
			db, err = opts.Connect(opts.Database)
			return err
		}},
		{"migrate", func() error { return opts.Migrate(opts.Database) }},
	}
	for _, s := range steps {
		start := time.Now()
		if err := s.run(); err != nil {
			logger.LogEvent(context.Background(), logger.L, slog.LevelError, "bootstrap.failed",
				slog.String("step", s.name),
				slog.String("err", err.Error()),
			)
			if db != nil {
				err = errors.Join(err, db.Close())
			}
			return nil, fmt.Errorf("bootstrap: %s: %w", s.name, err)
		}
		logger.LogEvent(context.Background(), logger.L, slog.LevelDebug, "bootstrap.step",
			slog.String("step", s.name),
			slog.Duration("duration", time.Since(start)),
		)
	}
	return &Result{DB: db}, nil
}
