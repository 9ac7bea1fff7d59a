package middleware

import (
	"log/slog"
	"sync"
	"time"

	"github.com/m3rciful/refbot/core/logger"
	tghelpers "github.com/m3rciful/refbot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// RateLimitOptions tunes RateLimit.
type RateLimitOptions struct {
	// Interval is the minimum gap between two updates of one user.
	Interval time.Duration
	// Exclude lists update kinds (message, callback, inline_query) that bypass the limit.
	Exclude   map[string]struct{}
	OnLimited tele.HandlerFunc
	// Now overrides the clock; nil means time.Now.
	Now func() time.Time
}

const sweepEvery = time.Minute

// window remembers when each user was last let through.
type window struct {
	mu        sync.Mutex
	gap       time.Duration
	last      map[int64]time.Time
	nextSweep time.Time
}

func (w *window) admit(userID int64, now time.Time) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !now.Before(w.nextSweep) {
		for id, at := range w.last {
			if now.Sub(at) >= w.gap {
				delete(w.last, id)
			}
		}
		w.nextSweep = now.Add(sweepEvery)
	}
	if at, seen := w.last[userID]; seen && now.Sub(at) < w.gap {
		return false
	}
	w.last[userID] = now
	return true
}

func updateKind(upd tele.Update) string {
	if upd.Callback != nil {
		return "callback"
	}
	if upd.Message != nil {
		return "message"
	}
	if upd.Query != nil {
		return "inline_query"
	}
	return "other"
}

// RateLimit drops updates that arrive sooner than opts.Interval after the
// previous admitted update of the same user.
func RateLimit(opts RateLimitOptions) tele.MiddlewareFunc {
	clock := opts.Now
	if clock == nil {
		clock = time.Now
	}
	w := &window{gap: opts.Interval, last: map[int64]time.Time{}}
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			user := c.Sender()
			if user == nil || opts.Interval <= 0 {
				return next(c)
			}
			kind := updateKind(c.Update())
			if _, ok := opts.Exclude[kind]; ok || w.admit(user.ID, clock()) {
				return next(c)
			}

			logger.LogEvent(tghelpers.BuildContext(c), logger.TG, slog.LevelWarn, "tg.rate_limited",
				slog.String("kind", kind),
				slog.String("outcome", "rate_limited"),
			)
			if opts.OnLimited != nil {
				_ = opts.OnLimited(c)
			}
			return nil
		}
	}
}
