package router

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/m3rciful/refbot/core/logger"
	tghelpers "github.com/m3rciful/refbot/core/telegram/helpers"
	"github.com/m3rciful/refbot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// span times the handling of one update and emits a single handler.handled line.
type span struct {
	c       tele.Context
	name    string
	start   time.Time
	status  string
	outcome string
	attrs   []slog.Attr
}

func newSpan(c tele.Context, name string) *span {
	return &span{c: c, name: name, start: time.Now()}
}

func (s *span) with(attrs ...slog.Attr) *span {
	s.attrs = append(s.attrs, attrs...)
	return s
}

// run tags the update context with the handler name, calls fn and logs the result.
func (s *span) run(fn func() error) error {
	tghelpers.WithHandler(s.c, s.name)
	err := fn()
	s.finish(err)
	return err
}

// skip logs the update as seen but deliberately not answered.
func (s *span) skip() {
	s.status = "skip"
	s.finish(nil)
}

func (s *span) finish(err error) {
	status, outcome := s.status, s.outcome
	if status == "" {
		status = "ok"
		if err != nil {
			status = "fail"
		}
	}
	if outcome == "" {
		outcome = "ok"
		if err != nil {
			outcome = "fail"
		}
	}
	msgs, kb := middleware.Replies(s.c)

	attrs := make([]slog.Attr, 0, 8+len(s.attrs))
	attrs = append(attrs,
		slog.String("status", status),
		slog.String("outcome", outcome),
		slog.Int("messages", msgs),
		slog.Bool("kb", kb),
		slog.Duration("duration", time.Since(s.start)),
	)
	level := slog.LevelInfo
	if err != nil {
		level = slog.LevelWarn
		attrs = append(attrs,
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
			slog.String("err_kind", errorKind(err)),
		)
	}
	attrs = append(attrs, s.attrs...)
	logger.LogEvent(tghelpers.WithHandler(s.c, s.name), logger.TG, level, "handler.handled", attrs...)
}

// handlerName lowercases a rule or callback key into a log-friendly identifier.
func handlerName(prefix, name string) string {
	name = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(name), "/"))
	if name == "" {
		name = "unknown"
	}
	return prefix + "." + strings.ReplaceAll(name, " ", "_")
}

// errorKind names the outermost concrete error type, looking through fmt wrapping.
func errorKind(err error) string {
	for err != nil {
		kind := strings.TrimPrefix(fmt.Sprintf("%T", err), "*")
		if kind != "fmt.wrapError" && kind != "fmt.wrapErrors" {
			return kind
		}
		next := errors.Unwrap(err)
		if next == nil {
			return kind
		}
		err = next
	}
	return "unknown"
}
