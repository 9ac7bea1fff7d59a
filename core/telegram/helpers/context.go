package helpers

import (
	"context"
	"strings"

	"github.com/m3rciful/refbot/core/dialog"
	"github.com/m3rciful/refbot/core/logger"

	tele "gopkg.in/telebot.v4"
)

const contextKey = "logger_ctx"

// StoreContext attaches the request context to tele.Context for downstream helpers.
func StoreContext(c tele.Context, ctx context.Context) {
	if c == nil || ctx == nil {
		return
	}
	c.Set(contextKey, ctx)
}

func contextFrom(c tele.Context) (context.Context, bool) {
	if c == nil {
		return nil, false
	}
	ctx, ok := c.Get(contextKey).(context.Context)
	return ctx, ok && ctx != nil
}

// BuildContext returns the request context of the update, creating one with rid and
// update/user/chat metadata when the logging middleware did not run.
func BuildContext(c tele.Context) context.Context {
	if cached, ok := contextFrom(c); ok {
		return cached
	}

	var chatID, userID int64
	if chat := c.Chat(); chat != nil {
		chatID = chat.ID
	}
	if user := c.Sender(); user != nil {
		userID = user.ID
	}
	updateID := c.Update().ID

	ctx := logger.WithRID(context.Background(), logger.BuildRID(updateID, chatID, userID))
	ctx = logger.WithUpdateMeta(ctx, updateID, userID, chatID)
	ctx = logger.WithLogger(ctx, logger.TG)
	StoreContext(c, ctx)
	return ctx
}

// WithHandler tags the stored context with the handling rule.
func WithHandler(c tele.Context, handler string) context.Context {
	ctx := BuildContext(c)
	if handler == "" {
		return ctx
	}
	ctx = logger.WithHandler(ctx, handler)
	StoreContext(c, ctx)
	return ctx
}

// BuildTurn converts a text update into a transport-neutral dialog turn.
func BuildTurn(c tele.Context) dialog.Turn {
	t := dialog.Turn{Text: strings.TrimSpace(c.Text())}
	if u := c.Sender(); u != nil {
		t.UserID = u.ID
		t.DisplayName = DisplayName(u)
	}
	if chat := c.Chat(); chat != nil {
		t.ChatID = chat.ID
	} else {
		t.ChatID = t.UserID
	}
	return t
}
