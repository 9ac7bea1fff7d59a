// Package logger provides the process-wide structured logger: event-keyed lines in JSON
// or key=value form, per-component loggers and request identifiers carried by context.
package logger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"

	"github.com/m3rciful/refbot/core/buildinfo"
	coreconfig "github.com/m3rciful/refbot/core/config"
)

var (
	initOnce sync.Once
	closeMu  sync.Mutex
	out      *sink
	files    []io.Closer

	levelVar   slog.LevelVar
	debugRatio sampler
	traceAll   bool

	// L is the base logger; the component loggers below derive from it.
	L *slog.Logger

	DB  *slog.Logger
	MIG *slog.Logger
	// TG logs update handling; TGSender logs outbound Bot API calls.
	TG       *slog.Logger
	TGSender *slog.Logger
	TWire    *slog.Logger

	SVCDialogs   *slog.Logger
	SVCRouter    *slog.Logger
	SVCGate      *slog.Logger
	SVCProviders *slog.Logger
	SVCReports   *slog.Logger
)

func init() {
	// Usable before InitLogger runs (tests, CLI subcommands).
	L = slog.Default()
	debugRatio.set(1, 50)
	deriveComponents()
}

func deriveComponents() {
	c := func(name string) *slog.Logger { return L.With(slog.String("component", name)) }
	DB = c("db")
	MIG = c("db.migrate")
	TG = c("tg")
	TGSender = c("tg.sender")
	TWire = c("tg.wire")
	SVCDialogs = c("service.dialogs")
	SVCRouter = c("service.router")
	SVCGate = c("service.gate")
	SVCProviders = c("service.providers")
	SVCReports = c("service.reports")
}

// InitLogger installs the structured handler as the slog default. Only the first call
// has any effect.
func InitLogger(cfg *coreconfig.Config) error {
	initOnce.Do(func() {
		var lc coreconfig.LoggingConfig
		if cfg != nil {
			lc = cfg.Logging
		}

		writers := []io.Writer{os.Stdout}
		if f, ferr := openLogFile(lc); ferr != nil {
			// Keep logging to stdout; the file is optional.
			fmt.Fprintf(os.Stderr, "logger: %v\n", ferr)
		} else if f != nil {
			writers = append(writers, f)
			files = append(files, f)
		}

		levelVar.Set(parseLevel(lc.Level))
		if num, den, ok := parseRatio(lc.DebugSample); ok && strings.TrimSpace(lc.DebugSample) != "" {
			debugRatio.set(num, den)
		}
		traceAll = envFlag("TRACE") || envFlag("LOG_TRACE")

		out = newSink(writers)
		L = slog.New(newEventHandler(&levelVar, out, parseFormat(lc), parseOrder(lc.KeysOrder)))
		slog.SetDefault(L)
		deriveComponents()

		L.LogAttrs(context.Background(), slog.LevelInfo, "startup",
			slog.String("event", "startup"),
			slog.String("go_version", runtime.Version()),
			slog.String("build", buildinfo.Summary()),
			slog.String("profile", profile(lc)),
			slog.String("log_level", levelName(levelVar.Level())),
		)
	})
	return nil
}

// Shutdown drains buffered lines and closes log files. Later log calls are dropped.
func Shutdown() error {
	closeMu.Lock()
	defer closeMu.Unlock()
	var errs []error
	if out != nil {
		errs = append(errs, out.Close())
		out = nil
	}
	for _, f := range files {
		errs = append(errs, f.Close())
	}
	files = nil
	return errors.Join(errs...)
}

// LogEvent writes an event-keyed line. A nil logg falls back to the logger in ctx, then L.
func LogEvent(ctx context.Context, logg *slog.Logger, level slog.Level, event string, attrs ...slog.Attr) {
	if logg == nil {
		logg = FromContext(ctx)
	}
	if logg == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if !logg.Enabled(ctx, level) {
		return
	}
	if event != "" {
		attrs = append([]slog.Attr{slog.String("event", event)}, attrs...)
	}
	logg.LogAttrs(ctx, level, event, attrs...)
}

// ShouldSampleDebug reports whether a high-volume debug line should be emitted now.
// TRACE=1 in the environment disables sampling.
func ShouldSampleDebug() bool {
	return traceAll || debugRatio.allow()
}

func openLogFile(lc coreconfig.LoggingConfig) (*os.File, error) {
	dir, name := strings.TrimSpace(lc.Dir), strings.TrimSpace(lc.BotFile)
	if dir == "" || name == "" {
		return nil, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log dir %s: %w", dir, err)
	}
	path := filepath.Join(dir, name)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file %s: %w", path, err)
	}
	return f, nil
}

func parseLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// parseFormat picks kv for debug and dev profiles unless a format is set explicitly.
func parseFormat(lc coreconfig.LoggingConfig) lineFormat {
	switch strings.ToLower(strings.TrimSpace(lc.Format)) {
	case "json":
		return formatJSON
	case "kv", "text", "pretty":
		return formatKV
	}
	switch profile(lc) {
	case "debug", "dev":
		return formatKV
	}
	return formatJSON
}

func parseOrder(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "default" {
		return defaultKeyOrder
	}
	var order []string
	for _, k := range strings.Split(raw, ",") {
		if k = strings.TrimSpace(k); k != "" {
			order = append(order, k)
		}
	}
	if len(order) == 0 {
		return defaultKeyOrder
	}
	return order
}

func profile(lc coreconfig.LoggingConfig) string {
	if p := strings.ToLower(strings.TrimSpace(lc.Profile)); p != "" {
		return p
	}
	return "prod"
}

func envFlag(name string) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(os.Getenv(name)))
	return err == nil && v
}
