package middleware

import (
	"sync"

	tele "gopkg.in/telebot.v4"
)

const tallyKey = "reply_tally"

// tally is shared by an update's handler and the dispatcher worker that
// performs the send.
type tally struct {
	mu       sync.Mutex
	messages int
	keyboard bool
}

func (t *tally) record(withMarkup bool) {
	t.mu.Lock()
	t.messages++
	t.keyboard = t.keyboard || withMarkup
	t.mu.Unlock()
}

func (t *tally) read() (int, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.messages, t.keyboard
}

// tallyingContext records every successful Send and Reply made for an update.
type tallyingContext struct {
	tele.Context
	tally *tally
}

func carriesMarkup(opts []any) bool {
	for _, o := range opts {
		if so, ok := o.(*tele.SendOptions); ok && so != nil && so.ReplyMarkup != nil {
			return true
		}
		if rm, ok := o.(*tele.ReplyMarkup); ok && rm != nil {
			return true
		}
	}
	return false
}

func (tc tallyingContext) Send(what any, opts ...any) error {
	return tc.counted(tc.Context.Send(what, opts...), opts)
}

func (tc tallyingContext) Reply(what any, opts ...any) error {
	return tc.counted(tc.Context.Reply(what, opts...), opts)
}

func (tc tallyingContext) counted(err error, opts []any) error {
	if err == nil {
		tc.tally.record(carriesMarkup(opts))
	}
	return err
}

// CountReplies wraps the context so handler summaries can report how many
// messages were sent and whether any carried a keyboard.
func CountReplies(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		t := &tally{}
		c.Set(tallyKey, t)
		return next(tallyingContext{Context: c, tally: t})
	}
}

// Replies reports the tally recorded by CountReplies for c.
func Replies(c tele.Context) (messages int, keyboard bool) {
	if t, ok := c.Get(tallyKey).(*tally); ok && t != nil {
		return t.read()
	}
	return 0, false
}
