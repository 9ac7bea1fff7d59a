package logger

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"
)

type field struct {
	key string
	val any
}

// record is one log line under construction. Keys are unique; later sets win.
type record struct {
	fields []field
}

func (r *record) index(key string) int {
	for i := range r.fields {
		if r.fields[i].key == key {
			return i
		}
	}
	return -1
}

func (r *record) set(key string, val any) {
	if i := r.index(key); i >= 0 {
		r.fields[i].val = val
		return
	}
	r.fields = append(r.fields, field{key: key, val: val})
}

func (r *record) setDefault(key string, val any) {
	if r.index(key) < 0 {
		r.fields = append(r.fields, field{key: key, val: val})
	}
}

func (r *record) del(key string) {
	if i := r.index(key); i >= 0 {
		r.fields = slices.Delete(r.fields, i, i+1)
	}
}

func (r *record) str(key string) string {
	i := r.index(key)
	if i < 0 {
		return ""
	}
	if s, ok := r.fields[i].val.(string); ok {
		return s
	}
	return fmt.Sprint(r.fields[i].val)
}

// addAttr flattens groups into dotted keys and converts values to plain Go types.
func (r *record) addAttr(prefix string, a slog.Attr) {
	key := a.Key
	if prefix != "" && key != "" {
		key = prefix + "." + key
	} else if key == "" {
		key = prefix
	}
	v := a.Value.Resolve()
	if v.Kind() == slog.KindGroup {
		for _, child := range v.Group() {
			r.addAttr(key, child)
		}
		return
	}
	if key == "" {
		return
	}
	if k, val, ok := plainValue(key, v); ok {
		r.set(k, val)
	}
}

func plainValue(key string, v slog.Value) (string, any, bool) {
	switch v.Kind() {
	case slog.KindString:
		return key, strings.TrimSpace(v.String()), true
	case slog.KindInt64:
		return key, v.Int64(), true
	case slog.KindUint64:
		if u := v.Uint64(); u <= math.MaxInt64 {
			return key, int64(u), true
		}
		return key, v.Uint64(), true
	case slog.KindFloat64:
		return key, v.Float64(), true
	case slog.KindBool:
		return key, v.Bool(), true
	case slog.KindDuration:
		return msKey(key), RoundMS(v.Duration()).Milliseconds(), true
	case slog.KindTime:
		return key, v.Time().UTC().Format(time.RFC3339Nano), true
	}
	switch x := v.Any().(type) {
	case nil:
		return key, nil, false
	case error:
		return key, x.Error(), true
	case time.Duration:
		return msKey(key), RoundMS(x).Milliseconds(), true
	case fmt.Stringer:
		return key, x.String(), true
	default:
		return key, fmt.Sprint(x), true
	}
}

// msKey renames duration keys so the unit is explicit: duration becomes duration_ms.
func msKey(key string) string {
	if strings.HasSuffix(key, "_ms") {
		return key
	}
	return key + "_ms"
}

// prune removes empty strings and nil values.
func (r *record) prune() {
	r.fields = slices.DeleteFunc(r.fields, func(f field) bool {
		switch v := f.val.(type) {
		case nil:
			return true
		case string:
			return v == ""
		}
		return false
	})
}

// sortBy orders fields by their position in rank; unranked keys follow alphabetically.
func (r *record) sortBy(rank map[string]int) {
	pos := func(k string) int {
		if p, ok := rank[k]; ok {
			return p
		}
		return math.MaxInt
	}
	slices.SortStableFunc(r.fields, func(a, b field) int {
		pa, pb := pos(a.key), pos(b.key)
		if pa != pb {
			if pa < pb {
				return -1
			}
			return 1
		}
		return strings.Compare(a.key, b.key)
	})
}

func (r *record) appendJSON(buf *bytes.Buffer) error {
	buf.WriteByte('{')
	for i, f := range r.fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(f.key)
		if err != nil {
			return err
		}
		v, err := json.Marshal(f.val)
		if err != nil {
			return err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteString("}\n")
	return nil
}

func (r *record) appendKV(buf *bytes.Buffer) {
	for i, f := range r.fields {
		if i > 0 {
			buf.WriteByte(' ')
		}
		buf.WriteString(f.key)
		buf.WriteByte('=')
		var s string
		switch v := f.val.(type) {
		case string:
			s = v
		case bool:
			s = strconv.FormatBool(v)
		case int64:
			s = strconv.FormatInt(v, 10)
		default:
			s = fmt.Sprint(v)
		}
		if strings.ContainsFunc(s, needsQuote) {
			s = strconv.Quote(s)
		}
		buf.WriteString(s)
	}
	buf.WriteByte('\n')
}

func needsQuote(r rune) bool {
	return r <= ' ' || r == '=' || r == '"'
}
