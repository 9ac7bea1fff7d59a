package reports

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/m3rciful/refbot/core/store"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeSource struct {
	popular []store.PopularQuery
	kinds   []store.KindCount
	err     error
}

func (f fakeSource) PopularQueries(context.Context, int) ([]store.PopularQuery, error) {
	return f.popular, f.err
}

func (f fakeSource) KindCounts(context.Context) ([]store.KindCount, error) {
	return f.kinds, f.err
}

type captureNotifier struct{ got []string }

func (c *captureNotifier) NotifyAdmin(_ context.Context, text string) error {
	c.got = append(c.got, text)
	return nil
}

func TestRunOnceSendsDigest(t *testing.T) {
	src := fakeSource{
		popular: []store.PopularQuery{{Text: "Go", Hits: 3}},
		kinds:   []store.KindCount{{Kind: store.KindWiki, Count: 3}, {Kind: store.KindTranslate, Count: 1}},
	}
	n := &captureNotifier{}
	d, err := NewDigest("0 9 * * *", src, n)
	require.NoError(t, err)

	require.NoError(t, d.RunOnce(context.Background()))
	require.Len(t, n.got, 1)
	want := "🗓 Ежедневная сводка\n\n" +
		"🔥 Популярные запросы:\n\n🔹 Go: 3 раз\n\n" +
		"📈 Запросы по типам:\n🔸 wiki: 3\n🔸 translate: 1"
	assert.Equal(t, want, n.got[0])
}

func TestRunOnceSourceError(t *testing.T) {
	n := &captureNotifier{}
	d, err := NewDigest("@daily", fakeSource{err: errors.New("db gone")}, n)
	require.NoError(t, err)

	assert.Error(t, d.RunOnce(context.Background()))
	assert.Empty(t, n.got)
}

func TestInvalidSchedule(t *testing.T) {
	_, err := NewDigest("every day", fakeSource{}, &captureNotifier{})
	assert.Error(t, err)
}

func TestStartStop(t *testing.T) {
	d, err := NewDigest("0 9 * * *", fakeSource{}, &captureNotifier{})
	require.NoError(t, err)
	require.NoError(t, d.Start())
	d.Stop()
}
