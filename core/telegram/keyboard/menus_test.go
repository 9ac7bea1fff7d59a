package keyboard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/refbot/core/dialog"
	"github.com/m3rciful/refbot/core/ui"
)

func TestMarkupKeepIsNil(t *testing.T) {
	assert.Nil(t, Menus{}.Markup(dialog.KeyboardKeep))
}

func TestMarkupMainMenuLayout(t *testing.T) {
	m := Menus{}.Markup(dialog.KeyboardMain)
	require.NotNil(t, m)
	require.Len(t, m.ReplyKeyboard, len(ui.MainMenuRows))
	for i, row := range ui.MainMenuRows {
		require.Len(t, m.ReplyKeyboard[i], len(row))
		for j, label := range row {
			assert.Equal(t, label, m.ReplyKeyboard[i][j].Text)
		}
	}
	assert.True(t, m.ResizeKeyboard)
}

func TestMarkupConfirm(t *testing.T) {
	m := Menus{}.Markup(dialog.KeyboardConfirm)
	require.NotNil(t, m)
	require.Len(t, m.ReplyKeyboard, 1)
	assert.Equal(t, ui.BtnConfirm, m.ReplyKeyboard[0][0].Text)
	assert.Equal(t, ui.BtnCancel, m.ReplyKeyboard[0][1].Text)
}

func TestMarkupJoinPrompt(t *testing.T) {
	m := Menus{JoinURL: "https://t.me/somechannel"}.Markup(dialog.KeyboardJoin)
	require.NotNil(t, m)
	require.Len(t, m.InlineKeyboard, 2)
	assert.Equal(t, "https://t.me/somechannel", m.InlineKeyboard[0][0].URL)
	assert.Equal(t, ui.BtnJoin, m.InlineKeyboard[0][0].Text)
	assert.Equal(t, VerifyUnique, m.InlineKeyboard[1][0].Unique)

	noURL := Menus{}.Markup(dialog.KeyboardJoin)
	require.Len(t, noURL.InlineKeyboard, 1)
	assert.Equal(t, ui.BtnVerify, noURL.InlineKeyboard[0][0].Text)
}
