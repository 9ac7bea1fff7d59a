package dialog

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/m3rciful/refbot/core/state"
	"github.com/m3rciful/refbot/core/store"
	"github.com/m3rciful/refbot/core/ui"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type recorded struct {
	kind store.Kind
	text string
}

type fakeRecorder struct {
	mu        sync.Mutex
	history   []recorded
	favorites []string
	removed   []string
	err       error
}

func (f *fakeRecorder) AppendInteraction(_ context.Context, _ int64, _ string, kind store.Kind, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.history = append(f.history, recorded{kind: kind, text: text})
	return nil
}

func (f *fakeRecorder) AddFavorite(_ context.Context, _ int64, _ store.Kind, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.favorites = append(f.favorites, text)
	return f.err
}

func (f *fakeRecorder) RemoveFavorite(_ context.Context, _ int64, text string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = append(f.removed, text)
	return 1, f.err
}

type fakeWiki struct {
	summary string
	found   bool
	err     error
}

func (f fakeWiki) Lookup(context.Context, string) (string, bool, error) {
	return f.summary, f.found, f.err
}

type fakeTranslator struct {
	out string
	err error
}

func (f fakeTranslator) Translate(_ context.Context, _ string, target string) (string, error) {
	if target != TargetLanguage {
		return "", errors.New("unexpected target")
	}
	return f.out, f.err
}

type fakeNotifier struct {
	messages []string
}

func (f *fakeNotifier) NotifyAdmin(_ context.Context, text string) error {
	f.messages = append(f.messages, text)
	return nil
}

type fixture struct {
	engine   *Engine
	tracker  state.Tracker
	recorder *fakeRecorder
	notifier *fakeNotifier
}

func newFixture(t *testing.T, wiki fakeWiki, tr fakeTranslator) *fixture {
	t.Helper()
	f := &fixture{
		tracker:  state.NewMemoryTracker(),
		recorder: &fakeRecorder{},
		notifier: &fakeNotifier{},
	}
	f.engine = NewEngine(f.tracker, Builtin(Services{
		Recorder:     f.recorder,
		Encyclopedia: wiki,
		Translator:   tr,
		Notifier:     f.notifier,
		NewRef:       func() string { return "ref-1" },
	})...)
	return f
}

func turn(text string) Turn {
	return Turn{UserID: 42, ChatID: 42, DisplayName: "tester", Text: text}
}

func (f *fixture) say(t *testing.T, text string) Reply {
	t.Helper()
	reply, err := f.engine.Advance(context.Background(), turn(text))
	require.NoError(t, err)
	return reply
}

func (f *fixture) complaintUntilConfirm(t *testing.T) {
	t.Helper()
	reply, err := f.engine.Begin(context.Background(), turn(ui.BtnComplaint), Complaint)
	require.NoError(t, err)
	assert.Equal(t, ui.AskFullName, reply.Text)

	assert.Equal(t, ui.AskContact, f.say(t, "Иван Иванов").Text)
	assert.Equal(t, ui.AskComplaintText, f.say(t, "@ivan").Text)

	confirm := f.say(t, "Очень медленно")
	assert.Equal(t, KeyboardConfirm, confirm.Keyboard)
	assert.Contains(t, confirm.Text, "🔹 ФИО: Иван Иванов")
	assert.Contains(t, confirm.Text, "🔹 Контакт: @ivan")
	assert.Contains(t, confirm.Text, "🔹 Текст: Очень медленно")
}

func TestComplaintAcceptNotifiesAdmin(t *testing.T) {
	f := newFixture(t, fakeWiki{}, fakeTranslator{})
	f.complaintUntilConfirm(t)

	reply := f.say(t, ui.BtnConfirm)
	assert.Equal(t, KeyboardMain, reply.Keyboard)
	assert.Contains(t, reply.Text, "ref-1")

	require.Len(t, f.notifier.messages, 1)
	msg := f.notifier.messages[0]
	assert.True(t, strings.HasPrefix(msg, "📩 Новая жалоба/предложение"))
	assert.Contains(t, msg, "👤 ФИО: Иван Иванов")
	assert.Contains(t, msg, "📞 Контакт: @ivan")
	assert.Contains(t, msg, "📝 Текст: Очень медленно")

	_, active := f.engine.Active(42)
	assert.False(t, active)
	assert.Empty(t, f.recorder.history)
}

func TestComplaintExplicitCancel(t *testing.T) {
	f := newFixture(t, fakeWiki{}, fakeTranslator{})
	f.complaintUntilConfirm(t)

	reply := f.say(t, ui.BtnCancel)
	assert.Equal(t, ui.ComplaintAborted, reply.Text)
	assert.Equal(t, KeyboardMain, reply.Keyboard)
	assert.Empty(t, f.notifier.messages)

	_, active := f.engine.Active(42)
	assert.False(t, active)
}

func TestComplaintUnrecognizedConfirmFallsBackToCancel(t *testing.T) {
	for _, input := range []string{"да", "ok", "   ", "✅"} {
		t.Run(input, func(t *testing.T) {
			f := newFixture(t, fakeWiki{}, fakeTranslator{})
			f.complaintUntilConfirm(t)

			reply := f.say(t, input)
			assert.Equal(t, ui.ComplaintAborted, reply.Text)
			assert.Empty(t, f.notifier.messages)

			_, active := f.engine.Active(42)
			assert.False(t, active)
		})
	}
}

func TestWikiFoundTruncatesAndPersists(t *testing.T) {
	long := strings.Repeat("я", 1500)
	f := newFixture(t, fakeWiki{summary: long, found: true}, fakeTranslator{})

	_, err := f.engine.Begin(context.Background(), turn(ui.BtnWiki), Wiki)
	require.NoError(t, err)
	reply := f.say(t, "Python")

	want := "📚 " + strings.Repeat("я", SummaryLimit) + "..."
	assert.Equal(t, want, reply.Text)
	assert.Equal(t, []recorded{{kind: store.KindWiki, text: "Python"}}, f.recorder.history)
}

func TestWikiNotFoundDoesNotPersist(t *testing.T) {
	f := newFixture(t, fakeWiki{found: false}, fakeTranslator{})

	_, err := f.engine.Begin(context.Background(), turn(ui.BtnWiki), Wiki)
	require.NoError(t, err)
	reply := f.say(t, "zzzzqqq")

	assert.Equal(t, ui.WikiNotFound, reply.Text)
	assert.Empty(t, f.recorder.history)
	_, active := f.engine.Active(42)
	assert.False(t, active)
}

func TestWikiServiceFailure(t *testing.T) {
	f := newFixture(t, fakeWiki{err: errors.New("boom")}, fakeTranslator{})

	_, err := f.engine.Begin(context.Background(), turn(ui.BtnWiki), Wiki)
	require.NoError(t, err)
	reply := f.say(t, "Go")

	assert.Equal(t, ui.WikiUnavailable, reply.Text)
	assert.Empty(t, f.recorder.history)
}

func TestWikiRejectsLongQuery(t *testing.T) {
	f := newFixture(t, fakeWiki{found: true, summary: "x"}, fakeTranslator{})

	_, err := f.engine.Begin(context.Background(), turn(ui.BtnWiki), Wiki)
	require.NoError(t, err)

	reply := f.say(t, strings.Repeat("a", MaxWikiQuery+1))
	assert.Contains(t, reply.Text, "слишком длинный")
	name, active := f.engine.Active(42)
	assert.True(t, active)
	assert.Equal(t, Wiki, name)
}

func TestTranslatePersistsOriginal(t *testing.T) {
	f := newFixture(t, fakeWiki{}, fakeTranslator{out: "hello"})

	_, err := f.engine.Begin(context.Background(), turn(ui.BtnTranslate), Translate)
	require.NoError(t, err)
	reply := f.say(t, "  привет  ")

	assert.Equal(t, "🔠 Перевод: hello", reply.Text)
	assert.Equal(t, []recorded{{kind: store.KindTranslate, text: "привет"}}, f.recorder.history)
}

func TestTranslateFailureDoesNotPersist(t *testing.T) {
	f := newFixture(t, fakeWiki{}, fakeTranslator{err: context.DeadlineExceeded})

	_, err := f.engine.Begin(context.Background(), turn(ui.BtnTranslate), Translate)
	require.NoError(t, err)
	reply := f.say(t, "привет")

	assert.Equal(t, ui.TranslateUnavailable, reply.Text)
	assert.Empty(t, f.recorder.history)
}

func TestWeatherStub(t *testing.T) {
	f := newFixture(t, fakeWiki{}, fakeTranslator{})

	_, err := f.engine.Begin(context.Background(), turn(ui.BtnWeather), Weather)
	require.NoError(t, err)
	reply := f.say(t, "Ташкент")

	assert.Equal(t, "Погода в Ташкент: Ясно, 6°C", reply.Text)
	assert.Empty(t, f.recorder.history)
}

func TestFavoriteDialogs(t *testing.T) {
	f := newFixture(t, fakeWiki{}, fakeTranslator{})
	ctx := context.Background()

	_, err := f.engine.Begin(ctx, turn(ui.BtnAddFavorite), FavoriteAdd)
	require.NoError(t, err)
	assert.Equal(t, ui.FavoriteAdded, f.say(t, " golang ").Text)

	_, err = f.engine.Begin(ctx, turn(ui.BtnRemoveFavorite), FavoriteRemove)
	require.NoError(t, err)
	assert.Equal(t, ui.FavoriteRemoved, f.say(t, "golang").Text)

	assert.Equal(t, []string{"golang"}, f.recorder.favorites)
	assert.Equal(t, []string{"golang"}, f.recorder.removed)
}

func TestBlankInputRepromptsWithoutAdvancing(t *testing.T) {
	f := newFixture(t, fakeWiki{}, fakeTranslator{})

	_, err := f.engine.Begin(context.Background(), turn(ui.BtnComplaint), Complaint)
	require.NoError(t, err)

	assert.Equal(t, ui.EmptyInput, f.say(t, "   ").Text)
	sess, ok := f.tracker.Get(42)
	require.True(t, ok)
	assert.Zero(t, sess.Step)
	assert.Empty(t, sess.Data)
}

func TestBeginAbandonsPreviousDialog(t *testing.T) {
	f := newFixture(t, fakeWiki{}, fakeTranslator{out: "hi"})
	ctx := context.Background()

	_, err := f.engine.Begin(ctx, turn(ui.BtnComplaint), Complaint)
	require.NoError(t, err)
	f.say(t, "Иван")

	_, err = f.engine.Begin(ctx, turn(ui.BtnTranslate), Translate)
	require.NoError(t, err)
	sess, ok := f.tracker.Get(42)
	require.True(t, ok)
	assert.Equal(t, Translate, sess.Dialog)
	assert.Empty(t, sess.Data)

	assert.Equal(t, "🔠 Перевод: hi", f.say(t, "привет").Text)
	assert.Empty(t, f.notifier.messages)
}

func TestStoreFailureSurfacesAndClearsSession(t *testing.T) {
	f := newFixture(t, fakeWiki{summary: "s", found: true}, fakeTranslator{})
	f.recorder.err = errors.New("disk full")

	_, err := f.engine.Begin(context.Background(), turn(ui.BtnWiki), Wiki)
	require.NoError(t, err)
	_, err = f.engine.Advance(context.Background(), turn("Go"))
	require.Error(t, err)

	_, active := f.engine.Active(42)
	assert.False(t, active)
}

func TestUnknownDialog(t *testing.T) {
	f := newFixture(t, fakeWiki{}, fakeTranslator{})

	_, err := f.engine.Begin(context.Background(), turn("x"), "nope")
	assert.ErrorIs(t, err, ErrUnknownDialog)

	_, err = f.engine.Advance(context.Background(), turn("x"))
	assert.Error(t, err)
}
