package middleware

import (
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/m3rciful/refbot/core/logger"
	tghelpers "github.com/m3rciful/refbot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// Recover turns a handler panic into an error. onPanic, when set, runs after
// the panic is logged so the user still gets a reply.
func Recover(onPanic tele.HandlerFunc) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) (err error) {
			defer func() {
				p := recover()
				if p == nil {
					return
				}
				ctx := tghelpers.BuildContext(c)
				logger.LogEvent(ctx, logger.TG, slog.LevelError, "tg.panic",
					slog.String("outcome", "fault"),
					slog.Any("err", p),
					slog.String("stack", string(debug.Stack())),
				)
				err = fmt.Errorf("handler panic: %v", p)
				if onPanic == nil {
					return
				}
				if rerr := onPanic(c); rerr != nil {
					logger.LogEvent(ctx, logger.TG, slog.LevelWarn, "tg.panic_reply_failed", slog.String("err", rerr.Error()))
				}
			}()
			return next(c)
		}
	}
}
