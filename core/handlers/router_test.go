package handlers

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/refbot/core/database"
	"github.com/m3rciful/refbot/core/dialog"
	"github.com/m3rciful/refbot/core/gate"
	"github.com/m3rciful/refbot/core/state"
	"github.com/m3rciful/refbot/core/store"
	"github.com/m3rciful/refbot/core/ui"
)

const adminID = 1

type stubWiki struct{}

func (stubWiki) Lookup(_ context.Context, q string) (string, bool, error) {
	if q == "Python" {
		return "Python - язык программирования.", true, nil
	}
	return "", false, nil
}

type stubTranslator struct{}

func (stubTranslator) Translate(context.Context, string, string) (string, error) {
	return "hello", nil
}

type stubNotifier struct{ sent []string }

func (n *stubNotifier) NotifyAdmin(_ context.Context, text string) error {
	n.sent = append(n.sent, text)
	return nil
}

type stubRates struct {
	snap map[string]float64
	err  error
}

func (s stubRates) Snapshot(context.Context, string) (map[string]float64, error) {
	return s.snap, s.err
}

// spyStore fails the test when any admin query reaches it.
type spyStore struct {
	*store.Store
	t *testing.T
}

func (s spyStore) PopularQueries(context.Context, int) ([]store.PopularQuery, error) {
	s.t.Fatal("PopularQueries must not be called")
	return nil, nil
}

func (s spyStore) AllUserStats(context.Context) ([]store.UserStats, error) {
	s.t.Fatal("AllUserStats must not be called")
	return nil, nil
}

type env struct {
	router   *Router
	store    *store.Store
	engine   *dialog.Engine
	notifier *stubNotifier
}

type envOption func(*Deps, *env)

func withGate(g *gate.Gate) envOption {
	return func(d *Deps, _ *env) { d.Gate = g }
}

func withRates(r Rates) envOption {
	return func(d *Deps, _ *env) { d.Rates = r }
}

func withSpyStore(t *testing.T) envOption {
	return func(d *Deps, e *env) { d.Store = spyStore{Store: e.store, t: t} }
}

func newEnv(t *testing.T, opts ...envOption) *env {
	t.Helper()
	cfg := database.Config{Driver: database.DriverSQLite, Path: filepath.Join(t.TempDir(), "bot.db")}
	require.NoError(t, database.RunMigrations(cfg))
	db, err := database.Connect(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	e := &env{store: store.New(db), notifier: &stubNotifier{}}
	e.engine = dialog.NewEngine(state.NewMemoryTracker(), dialog.Builtin(dialog.Services{
		Recorder:     e.store,
		Encyclopedia: stubWiki{},
		Translator:   stubTranslator{},
		Notifier:     e.notifier,
	})...)

	deps := Deps{
		Engine:     e.engine,
		Store:      e.store,
		Rates:      stubRates{snap: map[string]float64{"USD": 1, "EUR": 0.9, "UZS": 12000}},
		Gate:       gate.New(nil, adminID, 0),
		JoinTarget: "@refchannel",
		Clock:      func() time.Time { return time.Date(2025, 5, 9, 8, 30, 0, 0, time.UTC) },
		RandIntN:   func(int) int { return 41 },
	}
	for _, opt := range opts {
		opt(&deps, e)
	}
	e.router = NewRouter(deps)
	return e
}

func (e *env) send(userID int64, text string) Result {
	return e.router.Handle(context.Background(), dialog.Turn{
		UserID: userID, ChatID: userID, DisplayName: "user", Text: text,
	})
}

func TestWikiScenarioPersistsInteraction(t *testing.T) {
	e := newEnv(t)

	res := e.send(7, ui.BtnWiki)
	assert.Equal(t, ui.AskWikiQuery, res.Reply.Text)

	res = e.send(7, "Python")
	require.NoError(t, res.Err)
	assert.True(t, strings.HasPrefix(res.Reply.Text, "📚 Python"))
	assert.True(t, strings.HasSuffix(res.Reply.Text, "..."))

	last, err := e.store.ListHistory(context.Background(), 7, 1)
	require.NoError(t, err)
	require.Len(t, last, 1)
	assert.Equal(t, store.KindWiki, last[0].Kind)
	assert.Equal(t, "Python", last[0].Text)

	st, err := e.store.GetStats(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, int64(1), st.WikiQueries)
}

func TestAdminCommandsDeniedForUsers(t *testing.T) {
	e := newEnv(t, withSpyStore(t))

	for _, cmd := range []string{"/popular", "/admin_stats", "/popular@RefBot"} {
		res := e.send(7, cmd)
		assert.Equal(t, ui.AccessDenied, res.Reply.Text, cmd)
		assert.NoError(t, res.Err)
	}
}

func TestAdminCommandsForAdmin(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	require.NoError(t, e.store.AppendInteraction(ctx, 7, "bob", store.KindWiki, "Go"))
	require.NoError(t, e.store.AppendInteraction(ctx, 8, "eve", store.KindWiki, "Go"))
	require.NoError(t, e.store.AppendInteraction(ctx, 8, "eve", store.KindTranslate, "Привет"))

	res := e.send(adminID, "/popular")
	assert.Equal(t, "🔥 Популярные запросы:\n\n🔹 Go: 2 раз\n🔹 Привет: 1 раз", res.Reply.Text)

	res = e.send(adminID, "/admin_stats")
	assert.Contains(t, res.Reply.Text, "👤 eve:\n📚 Всего: 2\n🔍 Википедия: 1\n🔄 Переводы: 1")
	assert.Contains(t, res.Reply.Text, "🔸 wiki: 2")
}

func TestGateFailsClosed(t *testing.T) {
	checker := gate.CheckerFunc(func(context.Context, int64) (bool, error) {
		return false, errors.New("telegram unavailable")
	})
	e := newEnv(t, withGate(gate.New(checker, adminID, time.Second)))

	for _, text := range []string{"/start", ui.BtnWiki, "/history"} {
		res := e.send(7, text)
		assert.Equal(t, "gate", res.Rule)
		assert.Equal(t, dialog.KeyboardJoin, res.Reply.Keyboard)
		assert.Contains(t, res.Reply.Text, "@refchannel")
	}
	_, active := e.engine.Active(7)
	assert.False(t, active)

	reply, ok := e.router.Recheck(context.Background(), 7)
	assert.False(t, ok)
	assert.Equal(t, ui.JoinMissing, reply.Text)

	// the administrator is never gated
	res := e.send(adminID, "/start")
	assert.Equal(t, ui.Welcome, res.Reply.Text)
}

func TestRecheckGrantsMembers(t *testing.T) {
	member := false
	checker := gate.CheckerFunc(func(context.Context, int64) (bool, error) { return member, nil })
	e := newEnv(t, withGate(gate.New(checker, adminID, time.Second)))

	_, ok := e.router.Recheck(context.Background(), 7)
	assert.False(t, ok)

	member = true
	reply, ok := e.router.Recheck(context.Background(), 7)
	assert.True(t, ok)
	assert.Equal(t, dialog.KeyboardMain, reply.Keyboard)
}

func TestRatesFormatting(t *testing.T) {
	e := newEnv(t)

	res := e.send(7, ui.BtnRates)
	lines := strings.Split(res.Reply.Text, "\n")
	require.Len(t, lines, 6)
	assert.Equal(t, "💵 1 USD = 12000.0 UZS", lines[1])
	assert.Equal(t, "💶 1 EUR = 10800.0 UZS", lines[2])
	// GBP missing from the snapshot defaults to a rate of 1
	assert.Equal(t, "💷 1 GBP = 12000.0 UZS", lines[3])
}

func TestRenderRatesWithoutReference(t *testing.T) {
	out := RenderRates(map[string]float64{"EUR": 0.912345})
	assert.Contains(t, out, "💶 1 EUR = 0.91 UZS")
	assert.Contains(t, out, "💵 1 USD = 1.0 UZS")
}

func TestFormatAmountKeepsOneDecimal(t *testing.T) {
	for in, want := range map[float64]string{
		10800:    "10800.0",
		0:        "0.0",
		0.91:     "0.91",
		12.5:     "12.5",
		13061.22: "13061.22",
	} {
		assert.Equal(t, want, formatAmount(in), "%v", in)
	}
}

func TestRatesUnavailable(t *testing.T) {
	e := newEnv(t, withRates(stubRates{err: errors.New("down")}))

	res := e.send(7, ui.BtnRates)
	assert.Equal(t, ui.RatesUnavailable, res.Reply.Text)
	assert.NoError(t, res.Err)
}

func TestActiveDialogConsumesMenuLabels(t *testing.T) {
	e := newEnv(t)

	e.send(7, ui.BtnWeather)
	res := e.send(7, ui.BtnRandom)
	assert.Equal(t, "Погода в "+ui.BtnRandom+": Ясно, 6°C", res.Reply.Text)
	assert.Equal(t, "dialog.weather", res.Rule)

	res = e.send(7, ui.BtnRandom)
	assert.Equal(t, "🎲 Ваше случайное число: 42", res.Reply.Text)
}

func TestNonAdminCommandInsideDialogIsDialogInput(t *testing.T) {
	e := newEnv(t)

	e.send(7, ui.BtnWeather)
	res := e.send(7, "/popular")
	assert.Equal(t, "Погода в /popular: Ясно, 6°C", res.Reply.Text)
}

func TestStartInsideDialogIsDialogInput(t *testing.T) {
	e := newEnv(t)

	e.send(7, ui.BtnWeather)
	res := e.send(7, "/start")
	assert.Equal(t, "dialog.weather", res.Rule)
	assert.Equal(t, "Погода в /start: Ясно, 6°C", res.Reply.Text)
	_, active := e.engine.Active(7)
	assert.False(t, active)

	// with the dialog finished /start is a command again
	res = e.send(7, "/start")
	assert.Equal(t, "start", res.Rule)
	assert.Equal(t, ui.Welcome, res.Reply.Text)
}

func TestStartDuringComplaintIsCollectedAsField(t *testing.T) {
	e := newEnv(t)

	e.send(7, ui.BtnComplaint)
	res := e.send(7, "/start")
	assert.Equal(t, "dialog.complaint", res.Rule)
	name, active := e.engine.Active(7)
	assert.True(t, active)
	assert.Equal(t, dialog.Complaint, name)
	assert.Empty(t, e.notifier.sent)
}

func TestAdminCommandBypassesAdminDialog(t *testing.T) {
	e := newEnv(t)

	e.send(adminID, ui.BtnTranslate)
	res := e.send(adminID, "/popular")
	assert.Equal(t, ui.PopularEmpty, res.Reply.Text)
	_, active := e.engine.Active(adminID)
	assert.False(t, active)
}

func TestComplaintThroughRouter(t *testing.T) {
	e := newEnv(t)

	e.send(7, ui.BtnComplaint)
	e.send(7, "Иван")
	e.send(7, "+998901234567")
	res := e.send(7, "Текст")
	assert.Equal(t, dialog.KeyboardConfirm, res.Reply.Keyboard)

	res = e.send(7, ui.BtnConfirm)
	assert.Contains(t, res.Reply.Text, "успешно отправлено")
	require.Len(t, e.notifier.sent, 1)
	assert.Contains(t, e.notifier.sent[0], "📞 Контакт: +998901234567")
}

func TestOneShotHandlers(t *testing.T) {
	e := newEnv(t)

	assert.Equal(t, "📅 Текущая дата и время: 2025-05-09 08:30:00", e.send(7, ui.BtnDateTime).Reply.Text)
	assert.Equal(t, ui.Location, e.send(7, ui.BtnLocation).Reply.Text)
	assert.Equal(t, ui.Help, e.send(7, "/help").Reply.Text)

	back := e.send(7, ui.BtnBack)
	assert.Equal(t, ui.MainMenu, back.Reply.Text)
	assert.Equal(t, dialog.KeyboardMain, back.Reply.Keyboard)

	stats := e.send(7, ui.BtnMyStats)
	assert.Equal(t, ui.StatsEmpty, stats.Reply.Text)
	assert.Equal(t, dialog.KeyboardStats, stats.Reply.Keyboard)

	cmdStats := e.send(7, "/stats")
	assert.Equal(t, dialog.KeyboardKeep, cmdStats.Reply.Keyboard)

	assert.Equal(t, ui.Unknown, e.send(7, "что-то").Reply.Text)
	assert.Equal(t, ui.Unknown, e.send(7, "/unknown").Reply.Text)
}

func TestHistoryFavoritesAndClear(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	assert.Equal(t, ui.HistoryEmpty, e.send(7, "/history").Reply.Text)

	e.send(7, ui.BtnTranslate)
	e.send(7, "привет")
	hist := e.send(7, ui.BtnHistory)
	assert.Contains(t, hist.Reply.Text, "🔹 translate: привет")
	assert.Equal(t, dialog.KeyboardStats, hist.Reply.Keyboard)

	add := e.send(7, ui.BtnAddFavorite)
	assert.Equal(t, ui.AskFavoriteAdd, add.Reply.Text)
	assert.Equal(t, dialog.KeyboardFavorites, add.Reply.Keyboard)
	e.send(7, "golang")

	favs := e.send(7, "/favorites")
	assert.Contains(t, favs.Reply.Text, "🔹 general: golang")

	assert.Equal(t, ui.HistoryCleared, e.send(7, "/clear_history").Reply.Text)
	rows, err := e.store.ListHistory(ctx, 7, 5)
	require.NoError(t, err)
	assert.Empty(t, rows)

	e.send(7, "/remove_favorite")
	assert.Equal(t, ui.FavoriteRemoved, e.send(7, "golang").Reply.Text)
	assert.Equal(t, ui.FavoritesEmpty, e.send(7, "/favorites").Reply.Text)
}

func TestStoreFaultBecomesGenericReply(t *testing.T) {
	e := newEnv(t)
	require.NoError(t, e.store.Close())

	res := e.send(7, "/history")
	assert.Equal(t, ui.GenericError, res.Reply.Text)
	assert.Error(t, res.Err)
}

func TestParseCommand(t *testing.T) {
	assert.Equal(t, "/start", ParseCommand("/start"))
	assert.Equal(t, "/popular", ParseCommand(" /Popular@RefBot extra"))
	assert.Equal(t, "", ParseCommand("hello"))
}
