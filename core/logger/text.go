package logger

import (
	"strconv"
	"strings"
	"time"
	"unicode"
)

// BuildRID returns a correlation id of the form updateID:chatID:userID.
func BuildRID(updateID int, chatID, userID int64) string {
	return strconv.Itoa(updateID) + ":" + strconv.FormatInt(chatID, 10) + ":" + strconv.FormatInt(userID, 10)
}

// CompactRID rewrites a BuildRID id with base36 segments joined by dots.
// Anything else is returned trimmed but otherwise unchanged.
func CompactRID(rid string) string {
	rid = strings.TrimSpace(rid)
	parts := strings.Split(rid, ":")
	if len(parts) != 3 {
		return rid
	}
	for i, p := range parts {
		n, err := strconv.ParseInt(strings.TrimSpace(p), 10, 64)
		if err != nil {
			return rid
		}
		parts[i] = strconv.FormatInt(n, 36)
	}
	return strings.Join(parts, ".")
}

// SanitizeLimit drops control and format runes (keeping tab and newline) and cuts the
// result to max runes.
func SanitizeLimit(s string, max int) string {
	if max <= 0 || s == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(min(len(s), max*4))
	n := 0
	for _, r := range s {
		if r != '\n' && r != '\t' && (unicode.IsControl(r) || unicode.Is(unicode.Cf, r)) {
			continue
		}
		if n == max {
			break
		}
		b.WriteRune(r)
		n++
	}
	return b.String()
}

// RoundMS rounds d to whole milliseconds; negative durations become zero.
func RoundMS(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return d.Round(time.Millisecond)
}

// SummarizeStrings joins at most limit values and reports whether any were left out.
func SummarizeStrings(values []string, limit int) (string, bool) {
	if limit < 0 {
		limit = 0
	}
	if len(values) <= limit {
		return strings.Join(values, ", "), false
	}
	return strings.Join(values[:limit], ", "), true
}
