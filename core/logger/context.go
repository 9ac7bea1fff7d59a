package logger

import (
	"context"
	"log/slog"
)

type ctxKey int

const (
	metaKey ctxKey = iota
	loggerKey
)

// requestMeta carries the identifiers of the update being handled. It is copied on
// every change so contexts handed to other goroutines never observe later edits.
type requestMeta struct {
	rid      string
	updateID int
	userID   int64
	chatID   int64
	handler  string
}

func metaFrom(ctx context.Context) requestMeta {
	if ctx == nil {
		return requestMeta{}
	}
	m, _ := ctx.Value(metaKey).(requestMeta)
	return m
}

func withMeta(ctx context.Context, edit func(*requestMeta)) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	m := metaFrom(ctx)
	edit(&m)
	return context.WithValue(ctx, metaKey, m)
}

// WithRID attaches the request correlation id.
func WithRID(ctx context.Context, rid string) context.Context {
	return withMeta(ctx, func(m *requestMeta) { m.rid = rid })
}

// RIDFrom returns the correlation id stored by WithRID.
func RIDFrom(ctx context.Context) string {
	return metaFrom(ctx).rid
}

// WithUpdateMeta attaches the update, user and chat ids.
func WithUpdateMeta(ctx context.Context, updateID int, userID, chatID int64) context.Context {
	return withMeta(ctx, func(m *requestMeta) {
		m.updateID = updateID
		m.userID = userID
		m.chatID = chatID
	})
}

// WithHandler names the handler (router rule, callback) processing the update.
func WithHandler(ctx context.Context, handler string) context.Context {
	if handler == "" {
		if ctx == nil {
			return context.Background()
		}
		return ctx
	}
	return withMeta(ctx, func(m *requestMeta) { m.handler = handler })
}

// WithLogger stores log in ctx; LogEvent falls back to it when no logger is passed.
func WithLogger(ctx context.Context, log *slog.Logger) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if log == nil {
		return ctx
	}
	return context.WithValue(ctx, loggerKey, log)
}

// FromContext returns the logger stored by WithLogger, or L.
func FromContext(ctx context.Context) *slog.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(loggerKey).(*slog.Logger); ok && l != nil {
			return l
		}
	}
	return L
}

// Background returns a fresh root context for log-only call sites.
func Background() context.Context {
	return context.Background()
}

// fill copies the request identifiers into rec unless the call site set them.
func (m requestMeta) fill(rec *record) {
	if m.rid != "" {
		rec.setDefault("rid", m.rid)
	}
	if m.updateID != 0 {
		rec.setDefault("update_id", int64(m.updateID))
	}
	if m.userID != 0 {
		rec.setDefault("user_id", m.userID)
	}
	if m.chatID != 0 {
		rec.setDefault("chat_id", m.chatID)
	}
	if m.handler != "" {
		rec.setDefault("handler", m.handler)
	}
}
