package helpers

import (
	"errors"
	"log/slog"
	"sync/atomic"

	"github.com/m3rciful/refbot/core/logger"
	"github.com/m3rciful/refbot/core/telegram/sender"

	tele "gopkg.in/telebot.v4"
)

var dispatcher atomic.Pointer[sender.Dispatcher]

// SetDispatcher routes SendText and SendWithMarkup through d; nil makes them
// synchronous again.
func SetDispatcher(d *sender.Dispatcher) {
	dispatcher.Store(d)
}

// SendText sends plain text (no parse mode) to the chat of c.
func SendText(c tele.Context, text string, opts ...*tele.SendOptions) error {
	var what []any
	if len(opts) > 0 && opts[0] != nil {
		what = append(what, opts[0])
	}
	return deliver(c, "send.text", "sendMessage", func() error {
		return c.Send(text, what...)
	})
}

// SendWithMarkup sends plain text with markup attached; a nil markup leaves the
// client's current keyboard alone.
func SendWithMarkup(c tele.Context, text string, markup *tele.ReplyMarkup) error {
	if markup == nil {
		return SendText(c, text)
	}
	return SendText(c, text, &tele.SendOptions{ReplyMarkup: markup})
}

// deliver queues run on the chat's lane. When no dispatcher is set, or its queue is
// full or closed, run is called inline so the reply is never lost. An inline send
// skips the lane, so it may reach the chat before replies still queued there.
func deliver(c tele.Context, action, endpoint string, run func() error) error {
	d := dispatcher.Load()
	if d == nil {
		return run()
	}
	ctx := BuildContext(c)
	err := d.Enqueue(ctx, laneKey(c), action, endpoint, run)
	if err == nil {
		return nil
	}
	if !errors.Is(err, sender.ErrQueueFull) && !errors.Is(err, sender.ErrQueueClosed) {
		return err
	}
	logger.LogEvent(ctx, logger.TGSender, slog.LevelWarn, "queue.fallback",
		slog.String("action", action),
		slog.String("endpoint", endpoint),
		slog.String("err", err.Error()),
	)
	return run()
}

func laneKey(c tele.Context) int64 {
	if chat := c.Chat(); chat != nil {
		return chat.ID
	}
	if u := c.Sender(); u != nil {
		return u.ID
	}
	return 0
}
