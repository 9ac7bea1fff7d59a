// Package cmd runs a configured bot until SIGINT or SIGTERM.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	coreconfig "github.com/m3rciful/refbot/core/config"
	"github.com/m3rciful/refbot/core/logger"
	coretelegram "github.com/m3rciful/refbot/core/telegram"
)

// ConfigCarrier exposes access to the embedded core configuration.
type ConfigCarrier interface {
	CoreConfig() *coreconfig.Config
}

// TelegramApp is the minimal interface required to run a Telegram bot. Apps that also
// implement io.Closer are closed once the bot has stopped.
type TelegramApp interface {
	TelegramRunOptions() (coretelegram.RunOptions, error)
}

// Options describe how to load configuration, bootstrap the app, and run the bot.
type Options struct {
	// ConfigPath wins over ConfigEnvVar, which wins over DefaultConfigPath.
	ConfigPath        string
	ConfigEnvVar      string
	DefaultConfigPath string

	LoadConfig func(path string) (ConfigCarrier, error)
	Bootstrap  func(cfg ConfigCarrier) (TelegramApp, error)

	ShutdownLogger func() error
	RunTelegram    func(ctx context.Context, opts coretelegram.RunOptions) error
}

// ResolveConfigPath picks the configuration file from opts.
func ResolveConfigPath(opts Options) (string, error) {
	if opts.ConfigPath != "" {
		return opts.ConfigPath, nil
	}
	env := opts.ConfigEnvVar
	if env == "" {
		env = "CONFIG_PATH"
	}
	if p := os.Getenv(env); p != "" {
		return p, nil
	}
	if opts.DefaultConfigPath != "" {
		return opts.DefaultConfigPath, nil
	}
	return "", fmt.Errorf("cmd: config path not provided via --config, %s or DefaultConfigPath", env)
}

// Run resolves and loads the configuration, bootstraps the app and runs the bot until
// the process is interrupted. The logger is flushed and the app closed on the way out.
func Run(opts Options) (err error) {
	if opts.LoadConfig == nil || opts.Bootstrap == nil {
		return errors.New("cmd: LoadConfig and Bootstrap are required")
	}
	if opts.ShutdownLogger == nil {
		opts.ShutdownLogger = logger.Shutdown
	}
	if opts.RunTelegram == nil {
		opts.RunTelegram = coretelegram.RunTelegram
	}
	startedAt := time.Now()

	path, err := ResolveConfigPath(opts)
	if err != nil {
		return err
	}
	cfg, err := opts.LoadConfig(path)
	if err != nil {
		return fmt.Errorf("cmd: load config %s: %w", path, err)
	}
	if cfg.CoreConfig() == nil {
		return errors.New("cmd: loaded config is missing core configuration")
	}

	app, err := opts.Bootstrap(cfg)
	if err != nil {
		return fmt.Errorf("cmd: bootstrap: %w", err)
	}
	defer func() {
		if closer, ok := app.(io.Closer); ok {
			if cerr := closer.Close(); cerr != nil {
				logger.LogEvent(context.Background(), logger.L, slog.LevelWarn, "app.close_failed",
					slog.String("err", cerr.Error()),
				)
			}
		}
		if lerr := opts.ShutdownLogger(); lerr != nil {
			// The logger is gone; stderr is all that is left.
			fmt.Fprintf(os.Stderr, "logger shutdown: %v\n", lerr)
		}
	}()

	runOpts, err := app.TelegramRunOptions()
	if err != nil {
		return fmt.Errorf("cmd: telegram options: %w", err)
	}
	logger.LogEvent(context.Background(), logger.L, slog.LevelInfo, "config.loaded",
		slog.String("path", path),
		slog.String("run_mode", cfg.CoreConfig().Telegram.RunMode),
	)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	return opts.RunTelegram(ctx, withLifecycleLogs(runOpts, startedAt))
}

// withLifecycleLogs wraps the start and stop hooks with app.ready and app.shutdown lines.
func withLifecycleLogs(opts coretelegram.RunOptions, startedAt time.Time) coretelegram.RunOptions {
	appLog := logger.L.With(slog.String("component", "app"))
	onStart, onStop := opts.OnStart, opts.OnStop

	opts.OnStart = func(ctx context.Context, rt coretelegram.Runtime) error {
		if onStart != nil {
			if err := onStart(ctx, rt); err != nil {
				return err
			}
		}
		logger.LogEvent(ctx, appLog, slog.LevelInfo, "app.ready",
			slog.Duration("startup", time.Since(startedAt)),
		)
		return nil
	}
	opts.OnStop = func(ctx context.Context, rt coretelegram.Runtime) error {
		logger.LogEvent(ctx, appLog, slog.LevelInfo, "app.shutdown")
		if onStop != nil {
			return onStop(ctx, rt)
		}
		return nil
	}
	return opts
}
