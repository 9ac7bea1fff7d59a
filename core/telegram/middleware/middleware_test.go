package middleware

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/m3rciful/refbot/core/logger"
	tghelpers "github.com/m3rciful/refbot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newOfflineBot(t *testing.T) *tele.Bot {
	t.Helper()
	bot, err := tele.NewBot(tele.Settings{Token: "test", Offline: true, Synchronous: true})
	require.NoError(t, err)
	return bot
}

func textUpdate(id int, userID int64, text string) tele.Update {
	return tele.Update{
		ID: id,
		Message: &tele.Message{
			ID:     id,
			Text:   text,
			Sender: &tele.User{ID: userID},
			Chat:   &tele.Chat{ID: userID, Type: tele.ChatPrivate},
		},
	}
}

func TestSequencerKeepsPerUserOrder(t *testing.T) {
	bot := newOfflineBot(t)
	seq := NewSequencer(0)

	var (
		mu  sync.Mutex
		got = map[int64][]string{}
	)
	h := seq.Middleware(func(c tele.Context) error {
		time.Sleep(time.Millisecond)
		mu.Lock()
		got[c.Sender().ID] = append(got[c.Sender().ID], c.Text())
		mu.Unlock()
		return nil
	})

	for i := 0; i < 10; i++ {
		require.NoError(t, h(bot.NewContext(textUpdate(i, 1, string(rune('a'+i))))))
		require.NoError(t, h(bot.NewContext(textUpdate(100+i, 2, string(rune('a'+i))))))
	}
	seq.Close()

	want := []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j"}
	assert.Equal(t, want, got[1])
	assert.Equal(t, want, got[2])
	assert.Zero(t, seq.Workers())
}

func TestSequencerUsersRunInParallel(t *testing.T) {
	bot := newOfflineBot(t)
	seq := NewSequencer(0)
	defer seq.Close()

	release := make(chan struct{})
	done := make(chan struct{})
	h := seq.Middleware(func(c tele.Context) error {
		if c.Sender().ID == 1 {
			<-release
			return nil
		}
		close(done)
		return nil
	})

	require.NoError(t, h(bot.NewContext(textUpdate(1, 1, "slow"))))
	require.NoError(t, h(bot.NewContext(textUpdate(2, 2, "fast"))))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("second user was blocked by the first")
	}
	close(release)
}

func TestSequencerBacklogAndClose(t *testing.T) {
	seq := NewSequencer(1)
	block := make(chan struct{})
	started := make(chan struct{})

	require.True(t, seq.Submit(7, func() { close(started); <-block }))
	<-started
	assert.True(t, seq.Submit(7, func() {}))
	assert.False(t, seq.Submit(7, func() {}), "backlog is full")

	close(block)
	seq.Close()
	assert.False(t, seq.Submit(7, func() {}), "closed sequencer rejects work")
}

func TestSequencerSurvivesPanic(t *testing.T) {
	seq := NewSequencer(0)
	var ran atomic.Bool
	seq.Submit(3, func() { panic("boom") })
	seq.Submit(3, func() { ran.Store(true) })
	seq.Close()
	assert.True(t, ran.Load())
}

func TestRecoverRepliesOnPanic(t *testing.T) {
	bot := newOfflineBot(t)
	var replied bool
	h := Recover(func(tele.Context) error { replied = true; return nil })(func(tele.Context) error {
		panic("handler exploded")
	})

	err := h(bot.NewContext(textUpdate(1, 1, "x")))
	require.Error(t, err)
	assert.True(t, replied)
}

func TestRateLimitDropsBurst(t *testing.T) {
	bot := newOfflineBot(t)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	var limited, passed int
	mw := RateLimit(RateLimitOptions{
		Interval:  time.Second,
		OnLimited: func(tele.Context) error { limited++; return nil },
		Now:       func() time.Time { return now },
	})
	h := mw(func(tele.Context) error { passed++; return nil })

	require.NoError(t, h(bot.NewContext(textUpdate(1, 1, "a"))))
	require.NoError(t, h(bot.NewContext(textUpdate(2, 1, "b"))))
	require.NoError(t, h(bot.NewContext(textUpdate(3, 2, "c"))))
	now = now.Add(2 * time.Second)
	require.NoError(t, h(bot.NewContext(textUpdate(4, 1, "d"))))

	assert.Equal(t, 3, passed)
	assert.Equal(t, 1, limited)
}

func TestRateLimitExcludesCallbacks(t *testing.T) {
	bot := newOfflineBot(t)
	var passed int
	h := RateLimit(RateLimitOptions{
		Interval: time.Hour,
		Exclude:  map[string]struct{}{"callback": {}},
	})(func(tele.Context) error { passed++; return nil })

	cb := tele.Update{ID: 9, Callback: &tele.Callback{ID: "1", Sender: &tele.User{ID: 1}}}
	require.NoError(t, h(bot.NewContext(cb)))
	require.NoError(t, h(bot.NewContext(cb)))
	assert.Equal(t, 2, passed)
}

func TestCountRepliesTallies(t *testing.T) {
	bot := newOfflineBot(t)
	c := bot.NewContext(textUpdate(1, 1, "x"))

	var msgs int
	var kb bool
	h := CountReplies(func(inner tele.Context) error {
		tc, ok := inner.(tallyingContext)
		require.True(t, ok)
		tc.tally.record(true)
		tc.tally.record(false)
		msgs, kb = Replies(inner)
		return nil
	})
	require.NoError(t, h(c))

	assert.Equal(t, 2, msgs)
	assert.True(t, kb)
	assert.False(t, carriesMarkup(nil))
	assert.True(t, carriesMarkup([]any{&tele.SendOptions{ReplyMarkup: &tele.ReplyMarkup{}}}))
	assert.False(t, carriesMarkup([]any{&tele.SendOptions{}}))
}

func TestLoggerMiddlewareStoresRequestContext(t *testing.T) {
	bot := newOfflineBot(t)
	c := bot.NewContext(textUpdate(77, 9, "/start"))
	var rid string
	h := LoggerMiddleware(func(inner tele.Context) error {
		rid = logger.RIDFrom(tghelpers.BuildContext(inner))
		return nil
	})
	require.NoError(t, h(c))
	assert.Equal(t, logger.BuildRID(77, 9, 9), rid)
	assert.Equal(t, "message", updateKind(c.Update()))
}
