package handlers

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/m3rciful/refbot/core/dialog"
	"github.com/m3rciful/refbot/core/store"
	"github.com/m3rciful/refbot/core/ui"
)

const (
	historyLimit = 5
	popularLimit = 5

	ratesBase      = "USD"
	ratesReference = "UZS"
)

var rateLines = []struct {
	icon, code string
}{
	{"💵", "USD"},
	{"💶", "EUR"},
	{"💷", "GBP"},
	{"💳", "RUB"},
	{"💴", "UAH"},
}

func (r *Router) buildRules() []*rule {
	return []*rule{
		{name: "start", commands: []string{"/start"}, handle: reply(ui.Welcome, dialog.KeyboardMain)},
		{name: "help", commands: []string{"/help"}, handle: reply(ui.Help, dialog.KeyboardKeep)},
		{name: "history", commands: []string{"/history"}, labels: []string{ui.BtnHistory}, labelKeyboard: dialog.KeyboardStats, handle: r.history},
		{name: "clear_history", commands: []string{"/clear_history"}, labels: []string{ui.BtnClear}, labelKeyboard: dialog.KeyboardStats, handle: r.clearHistory},
		{name: "stats", commands: []string{"/stats"}, labels: []string{ui.BtnMyStats}, labelKeyboard: dialog.KeyboardStats, handle: r.stats},
		{name: "favorites", commands: []string{"/favorites"}, labels: []string{ui.BtnFavorites}, labelKeyboard: dialog.KeyboardFavorites, handle: r.favorites},
		{name: "add_favorite", commands: []string{"/add_favorite"}, labels: []string{ui.BtnAddFavorite}, labelKeyboard: dialog.KeyboardFavorites, handle: r.begin(dialog.FavoriteAdd)},
		{name: "remove_favorite", commands: []string{"/remove_favorite"}, labels: []string{ui.BtnRemoveFavorite}, labelKeyboard: dialog.KeyboardFavorites, handle: r.begin(dialog.FavoriteRemove)},
		{name: "admin_stats", commands: []string{"/admin_stats"}, adminOnly: true, handle: r.adminStats},
		{name: "popular", commands: []string{"/popular"}, adminOnly: true, handle: r.popular},
		{name: "complaint", labels: []string{ui.BtnComplaint}, handle: r.begin(dialog.Complaint)},
		{name: "wiki", labels: []string{ui.BtnWiki}, handle: r.begin(dialog.Wiki)},
		{name: "weather", labels: []string{ui.BtnWeather}, handle: r.begin(dialog.Weather)},
		{name: "translate", labels: []string{ui.BtnTranslate}, handle: r.begin(dialog.Translate)},
		{name: "rates", labels: []string{ui.BtnRates}, handle: r.rates},
		{name: "datetime", labels: []string{ui.BtnDateTime}, handle: r.dateTime},
		{name: "random", labels: []string{ui.BtnRandom}, handle: r.random},
		{name: "location", labels: []string{ui.BtnLocation}, handle: reply(ui.Location, dialog.KeyboardKeep)},
		{name: "back", labels: []string{ui.BtnBack}, handle: reply(ui.MainMenu, dialog.KeyboardMain)},
	}
}

func reply(text string, kb dialog.Keyboard) handlerFunc {
	return func(context.Context, dialog.Turn) (dialog.Reply, error) {
		return dialog.Reply{Text: text, Keyboard: kb}, nil
	}
}

func (r *Router) begin(name string) handlerFunc {
	return func(ctx context.Context, turn dialog.Turn) (dialog.Reply, error) {
		return r.deps.Engine.Begin(ctx, turn, name)
	}
}

func (r *Router) history(ctx context.Context, turn dialog.Turn) (dialog.Reply, error) {
	records, err := r.deps.Store.ListHistory(ctx, turn.UserID, historyLimit)
	if err != nil {
		return dialog.Reply{}, err
	}
	return dialog.Reply{Text: RenderHistory(records)}, nil
}

func (r *Router) clearHistory(ctx context.Context, turn dialog.Turn) (dialog.Reply, error) {
	if _, err := r.deps.Store.ClearHistory(ctx, turn.UserID); err != nil {
		return dialog.Reply{}, err
	}
	return dialog.Reply{Text: ui.HistoryCleared}, nil
}

func (r *Router) stats(ctx context.Context, turn dialog.Turn) (dialog.Reply, error) {
	st, err := r.deps.Store.GetStats(ctx, turn.UserID)
	if errors.Is(err, store.ErrNotFound) {
		return dialog.Reply{Text: ui.StatsEmpty}, nil
	}
	if err != nil {
		return dialog.Reply{}, err
	}
	return dialog.Reply{Text: fmt.Sprintf(ui.StatsCard,
		st.TotalQueries, st.WikiQueries, st.TranslateQueries,
		st.LastActiveAt.UTC().Format(ui.HistoryTimeLayout),
	)}, nil
}

func (r *Router) favorites(ctx context.Context, turn dialog.Turn) (dialog.Reply, error) {
	favs, err := r.deps.Store.ListFavorites(ctx, turn.UserID)
	if err != nil {
		return dialog.Reply{}, err
	}
	return dialog.Reply{Text: RenderFavorites(favs)}, nil
}

func (r *Router) adminStats(ctx context.Context, _ dialog.Turn) (dialog.Reply, error) {
	all, err := r.deps.Store.AllUserStats(ctx)
	if err != nil {
		return dialog.Reply{}, err
	}
	if len(all) == 0 {
		return dialog.Reply{Text: ui.AdminStatsEmpty}, nil
	}
	kinds, err := r.deps.Store.KindCounts(ctx)
	if err != nil {
		return dialog.Reply{}, err
	}
	var b strings.Builder
	b.WriteString(ui.AdminStatsHeader)
	for _, st := range all {
		fmt.Fprintf(&b, ui.AdminStatsEntry, st.DisplayName, st.TotalQueries, st.WikiQueries, st.TranslateQueries)
	}
	b.WriteString(RenderKindCounts(kinds))
	return dialog.Reply{Text: strings.TrimRight(b.String(), "\n")}, nil
}

func (r *Router) popular(ctx context.Context, _ dialog.Turn) (dialog.Reply, error) {
	top, err := r.deps.Store.PopularQueries(ctx, popularLimit)
	if err != nil {
		return dialog.Reply{}, err
	}
	return dialog.Reply{Text: RenderPopular(top)}, nil
}

func (r *Router) rates(ctx context.Context, _ dialog.Turn) (dialog.Reply, error) {
	callCtx, cancel := context.WithTimeout(ctx, r.deps.CallTimeout)
	defer cancel()
	snapshot, err := r.deps.Rates.Snapshot(callCtx, ratesBase)
	if err != nil || len(snapshot) == 0 {
		return dialog.Reply{Text: ui.RatesUnavailable}, nil
	}
	return dialog.Reply{Text: RenderRates(snapshot)}, nil
}

func (r *Router) dateTime(context.Context, dialog.Turn) (dialog.Reply, error) {
	return dialog.Reply{Text: fmt.Sprintf(ui.DateTime, r.deps.Clock().Format(ui.HistoryTimeLayout))}, nil
}

func (r *Router) random(context.Context, dialog.Turn) (dialog.Reply, error) {
	return dialog.Reply{Text: fmt.Sprintf(ui.RandomNumber, 1+r.deps.RandIntN(100))}, nil
}

// RenderRates formats a USD-based snapshot as amounts of the reference currency.
// A missing reference rate yields a multiplier of 1, a missing currency a rate of 1.
func RenderRates(snapshot map[string]float64) string {
	mult, ok := snapshot[ratesReference]
	if !ok {
		mult = 1
	}
	lines := make([]string, 0, len(rateLines))
	for _, l := range rateLines {
		rate, ok := snapshot[l.code]
		if !ok {
			rate = 1
		}
		v := math.Round(rate*mult*100) / 100
		lines = append(lines, fmt.Sprintf("%s 1 %s = %s %s", l.icon, l.code, formatAmount(v), ratesReference))
	}
	return ui.RatesHeader + strings.Join(lines, "\n")
}

// formatAmount prints the shortest exact decimal but always keeps one fractional
// digit, so 10800 reads "10800.0" and 0.91 stays "0.91".
func formatAmount(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// RenderHistory formats history records newest first.
func RenderHistory(records []store.InteractionRecord) string {
	if len(records) == 0 {
		return ui.HistoryEmpty
	}
	var b strings.Builder
	b.WriteString(ui.HistoryHeader)
	for _, rec := range records {
		fmt.Fprintf(&b, ui.HistoryEntry, rec.Kind, rec.Text, rec.CreatedAt.UTC().Format(ui.HistoryTimeLayout))
	}
	return strings.TrimRight(b.String(), "\n")
}

// RenderFavorites formats favorites newest first.
func RenderFavorites(favs []store.FavoriteRecord) string {
	if len(favs) == 0 {
		return ui.FavoritesEmpty
	}
	var b strings.Builder
	b.WriteString(ui.FavoritesHeader)
	for _, f := range favs {
		fmt.Fprintf(&b, ui.HistoryEntry, f.Kind, f.Text, f.CreatedAt.UTC().Format(ui.HistoryTimeLayout))
	}
	return strings.TrimRight(b.String(), "\n")
}

// RenderPopular formats the popular-queries ranking.
func RenderPopular(top []store.PopularQuery) string {
	if len(top) == 0 {
		return ui.PopularEmpty
	}
	var b strings.Builder
	b.WriteString(ui.PopularHeader)
	for _, q := range top {
		fmt.Fprintf(&b, ui.PopularEntry, q.Text, q.Hits)
	}
	return strings.TrimRight(b.String(), "\n")
}

// RenderKindCounts formats the per-kind totals; empty input renders nothing.
func RenderKindCounts(kinds []store.KindCount) string {
	if len(kinds) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(ui.KindsHeader)
	for _, k := range kinds {
		fmt.Fprintf(&b, ui.KindsEntry, k.Kind, k.Count)
	}
	return b.String()
}
