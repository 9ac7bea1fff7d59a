package keyboard

import (
	"github.com/m3rciful/refbot/core/dialog"
	"github.com/m3rciful/refbot/core/ui"

	tele "gopkg.in/telebot.v4"
)

// VerifyUnique is the callback key of the "verify subscription" button.
const VerifyUnique = "verify_membership"

// Menus renders dialog keyboards as Telegram markups.
type Menus struct {
	// JoinURL is where the subscribe button leads; the button is omitted when empty.
	JoinURL string
}

var replyLayouts = map[dialog.Keyboard][][]string{
	dialog.KeyboardMain:      ui.MainMenuRows,
	dialog.KeyboardStats:     ui.StatsMenuRows,
	dialog.KeyboardFavorites: ui.FavoritesMenuRows,
	dialog.KeyboardConfirm:   ui.ConfirmRows,
}

// Markup returns the markup for k, or nil when the current keyboard should stay.
func (m Menus) Markup(k dialog.Keyboard) *tele.ReplyMarkup {
	if k == dialog.KeyboardJoin {
		return m.join()
	}
	if rows, ok := replyLayouts[k]; ok {
		return replyKeyboard(rows)
	}
	return nil
}

// join is the inline prompt shown to users outside the channel: an optional
// subscribe link above the verify button.
func (m Menus) join() *tele.ReplyMarkup {
	var rows [][]tele.InlineButton
	if m.JoinURL != "" {
		rows = append(rows, []tele.InlineButton{{Text: ui.BtnJoin, URL: m.JoinURL}})
	}
	rows = append(rows, []tele.InlineButton{{Text: ui.BtnVerify, Unique: VerifyUnique}})
	return &tele.ReplyMarkup{InlineKeyboard: rows}
}

func replyKeyboard(layout [][]string) *tele.ReplyMarkup {
	rows := make([][]tele.ReplyButton, len(layout))
	for i, labels := range layout {
		rows[i] = make([]tele.ReplyButton, len(labels))
		for j, label := range labels {
			rows[i][j] = tele.ReplyButton{Text: label}
		}
	}
	return &tele.ReplyMarkup{ReplyKeyboard: rows, ResizeKeyboard: true}
}
