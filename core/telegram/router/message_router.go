package router

import (
	"context"
	"log/slog"

	"github.com/m3rciful/refbot/core/dialog"
	"github.com/m3rciful/refbot/core/handlers"
	"github.com/m3rciful/refbot/core/logger"
	tg "github.com/m3rciful/refbot/core/telegram"
	tghelpers "github.com/m3rciful/refbot/core/telegram/helpers"
	"github.com/m3rciful/refbot/core/telegram/keyboard"

	tele "gopkg.in/telebot.v4"
)

// TurnHandler maps one inbound turn to exactly one reply.
type TurnHandler interface {
	Handle(ctx context.Context, turn dialog.Turn) handlers.Result
}

// TextOptions controls rendering and the reply to non-text messages.
type TextOptions struct {
	Menus keyboard.Menus
	// UnsupportedText answers media messages; empty means they are ignored.
	UnsupportedText string
}

// TextRoutes builds the handlers that feed text messages and menu presses to h.
func TextRoutes(h TurnHandler, opts TextOptions) []tg.Route {
	handler := func(c tele.Context) error {
		res := h.Handle(tghelpers.BuildContext(c), tghelpers.BuildTurn(c))

		sp := newSpan(c, handlerName("router", res.Rule)).with(slog.String("rule", res.Rule))
		if res.Err != nil {
			// The user still gets the fallback reply; the fault is only logged.
			sp.outcome = "fault"
			sp.with(slog.String("fault", logger.SanitizeLimit(res.Err.Error(), 256)))
		}
		return sp.run(func() error {
			return sendReply(c, opts.Menus, res.Reply)
		})
	}

	mediaHandler := func(c tele.Context) error {
		sp := newSpan(c, "router.unsupported_media")
		if opts.UnsupportedText == "" {
			sp.skip()
			return nil
		}
		return sp.run(func() error {
			return tghelpers.SendText(c, opts.UnsupportedText)
		})
	}

	routes := []tg.Route{{Endpoint: tele.OnText, Handler: handler}}
	for _, ep := range []string{tele.OnPhoto, tele.OnDocument, tele.OnVoice, tele.OnSticker} {
		routes = append(routes, tg.Route{Endpoint: ep, Handler: mediaHandler})
	}
	return routes
}

func sendReply(c tele.Context, menus keyboard.Menus, reply dialog.Reply) error {
	if reply.Text == "" {
		return nil
	}
	return tghelpers.SendWithMarkup(c, reply.Text, menus.Markup(reply.Keyboard))
}
