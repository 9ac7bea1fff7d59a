package router

import (
	"context"
	"log/slog"

	"github.com/m3rciful/refbot/core/dialog"
	tg "github.com/m3rciful/refbot/core/telegram"
	"github.com/m3rciful/refbot/core/telegram/callbacks"
	tghelpers "github.com/m3rciful/refbot/core/telegram/helpers"
	"github.com/m3rciful/refbot/core/telegram/keyboard"

	tele "gopkg.in/telebot.v4"
)

// Rechecker re-runs the access check behind the verify button.
type Rechecker interface {
	Recheck(ctx context.Context, userID int64) (dialog.Reply, bool)
}

// CallbackOptions customises callback routing.
type CallbackOptions struct {
	// NotFound answers presses with an unregistered key; the registry default is used when nil.
	NotFound tele.HandlerFunc
	Menus    keyboard.Menus
}

// CallbackRoute dispatches button presses to the handler registered for their unique id.
func CallbackRoute(reg *tg.Registry, opts CallbackOptions) tg.Route {
	notFound := opts.NotFound
	if notFound == nil {
		notFound = reg.CallbackNotFound()
	}
	handler := func(c tele.Context) error {
		if c.Callback() == nil {
			return nil
		}
		key, _ := callbacks.Split(c.Callback())
		sp := newSpan(c, handlerName("callback", key)).with(slog.String("cb_key", key))

		h, ok := reg.GetCallback(key)
		if !ok {
			sp.with(slog.String("reason", "not_found"))
			return sp.run(func() error { return notFound(c) })
		}
		// Stop the client spinner before the handler does its slower work.
		_ = c.Respond()
		return sp.run(func() error { return h(c) })
	}
	return tg.Route{Endpoint: tele.OnCallback, Handler: handler}
}

// VerifyMembership answers the join prompt's verify button.
func VerifyMembership(r Rechecker, menus keyboard.Menus) tele.HandlerFunc {
	return func(c tele.Context) error {
		user := c.Sender()
		if user == nil {
			return nil
		}
		reply, ok := r.Recheck(tghelpers.BuildContext(c), user.ID)
		if !ok {
			reply.Keyboard = dialog.KeyboardJoin
		}
		return sendReply(c, menus, reply)
	}
}
