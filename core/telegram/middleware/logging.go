package middleware

import (
	"log/slog"
	"strings"

	"github.com/m3rciful/refbot/core/logger"
	"github.com/m3rciful/refbot/core/telegram/callbacks"
	tghelpers "github.com/m3rciful/refbot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// LoggerMiddleware creates the request context (rid plus update, user and chat ids)
// shared by the rest of the chain and logs a sampled update.received debug line.
func LoggerMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		ctx := tghelpers.BuildContext(c)
		if logger.ShouldSampleDebug() {
			logger.LogEvent(ctx, logger.TG, slog.LevelDebug, "update.received", describeUpdate(c)...)
		}
		return next(c)
	}
}

// describeUpdate summarises who sent what, with user text cut to a loggable size.
func describeUpdate(c tele.Context) []slog.Attr {
	upd := c.Update()
	attrs := []slog.Attr{slog.String("kind", updateKind(upd))}
	if u := c.Sender(); u != nil {
		attrs = append(attrs,
			slog.String("username", logger.SanitizeLimit(u.Username, 64)),
			slog.String("lang", u.LanguageCode),
		)
	}
	if upd.Callback != nil {
		key, payload := callbacks.Split(upd.Callback)
		return append(attrs,
			slog.String("cb_key", logger.SanitizeLimit(key, 128)),
			slog.String("payload", logger.SanitizeLimit(payload, 256)),
		)
	}
	if text := strings.TrimSpace(c.Text()); text != "" {
		attrs = append(attrs,
			slog.Bool("command", strings.HasPrefix(text, "/")),
			slog.String("payload", logger.SanitizeLimit(text, 256)),
		)
	}
	return attrs
}
