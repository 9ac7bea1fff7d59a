package logger

import (
	"log/slog"
	"strings"
)

func levelName(l slog.Level) string {
	switch {
	case l < slog.LevelInfo:
		return "DEBUG"
	case l < slog.LevelWarn:
		return "INFO"
	case l < slog.LevelError:
		return "WARN"
	default:
		return "ERROR"
	}
}

// outcomes lists the only values an "outcome" field may take; others are dropped.
var outcomes = map[string]bool{
	"ok":           true,
	"fail":         true,
	"fault":        true,
	"cancelled":    true,
	"rate_limited": true,
}

func normalizeEnums(rec *record) {
	if s := rec.str("status"); s != "" {
		rec.set("status", strings.ToLower(s))
	}
	if o := rec.str("outcome"); o != "" {
		o = strings.ToLower(o)
		if outcomes[o] {
			rec.set("outcome", o)
		} else {
			rec.del("outcome")
		}
	}
}

var defaultKeyOrder = []string{
	"ts", "level", "component", "event", "status",
	"rid", "rid_full", "ts_unix_nano",
	"update_id", "user_id", "chat_id",
	"handler", "rule", "dialog", "step", "kind",
	"action", "endpoint", "cb_key", "outcome",
	"duration_ms", "elapsed_ms", "attempt", "attempts",
	"messages", "kb", "count",
	"provider", "http_code", "payload", "lang", "username",
	"driver", "db", "err", "err_kind", "cause",
}

func rankOf(order []string) map[string]int {
	rank := make(map[string]int, len(order))
	for i, k := range order {
		if _, dup := rank[k]; !dup {
			rank[k] = i
		}
	}
	return rank
}
