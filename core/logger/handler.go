package logger

import (
	"bytes"
	"context"
	"log/slog"
	"sync"
	"time"
)

type lineFormat int

const (
	formatJSON lineFormat = iota
	formatKV
)

const tsLayout = "2006-01-02T15:04:05.000Z07:00"

// handlerCore is shared by a handler and every clone derived through With.
type handlerCore struct {
	level  slog.Leveler
	out    *sink
	format lineFormat
	rank   map[string]int
}

// eventHandler renders flat, event-keyed lines in a fixed key order and merges the
// request identifiers carried by the context.
type eventHandler struct {
	core   *handlerCore
	preset []slog.Attr
	prefix string
}

var bufPool = sync.Pool{New: func() any { return new(bytes.Buffer) }}

func newEventHandler(level slog.Leveler, out *sink, format lineFormat, order []string) *eventHandler {
	if level == nil {
		level = slog.LevelInfo
	}
	if len(order) == 0 {
		order = defaultKeyOrder
	}
	return &eventHandler{core: &handlerCore{level: level, out: out, format: format, rank: rankOf(order)}}
}

func (h *eventHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.core.level.Level()
}

func (h *eventHandler) Handle(ctx context.Context, r slog.Record) error {
	rec := record{fields: make([]field, 0, 8+len(h.preset)+r.NumAttrs())}

	ts := r.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	ts = ts.UTC()
	rec.set("ts", ts.Truncate(time.Millisecond).Format(tsLayout))
	rec.set("level", levelName(r.Level))
	if h.core.format == formatJSON {
		rec.set("ts_unix_nano", ts.UnixNano())
	}

	for _, a := range h.preset {
		rec.addAttr("", a)
	}
	r.Attrs(func(a slog.Attr) bool {
		rec.addAttr(h.prefix, a)
		return true
	})
	metaFrom(ctx).fill(&rec)

	if rid := rec.str("rid"); rid != "" {
		if short := CompactRID(rid); short != rid {
			rec.set("rid", short)
			if h.core.format == formatJSON {
				rec.setDefault("rid_full", rid)
			}
		}
	}
	if rec.str("event") == "" {
		ev := r.Message
		if ev == "" {
			ev = "unknown"
		}
		rec.set("event", ev)
	}
	if rec.str("component") == "" {
		rec.set("component", "app")
	}
	normalizeEnums(&rec)
	rec.prune()
	rec.sortBy(h.core.rank)

	buf := bufPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer bufPool.Put(buf)
	if h.core.format == formatJSON {
		if err := rec.appendJSON(buf); err != nil {
			return err
		}
	} else {
		rec.appendKV(buf)
	}
	return h.core.out.Write(buf.Bytes())
}

func (h *eventHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	clone := *h
	clone.preset = make([]slog.Attr, 0, len(h.preset)+len(attrs))
	clone.preset = append(clone.preset, h.preset...)
	for _, a := range attrs {
		if h.prefix != "" {
			a.Key = h.prefix + "." + a.Key
		}
		clone.preset = append(clone.preset, a)
	}
	return &clone
}

func (h *eventHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	if clone.prefix == "" {
		clone.prefix = name
	} else {
		clone.prefix += "." + name
	}
	return &clone
}
