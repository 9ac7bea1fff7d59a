// Package ui holds the user-facing labels and texts shared by the router, the dialogs
// and the Telegram keyboards.
package ui

// Main menu labels.
const (
	BtnComplaint = "📑 Жалобы/Предложения"
	BtnWiki      = "🔎 Википедия"
	BtnWeather   = "🌤 Погода"
	BtnTranslate = "🈹 Переводчик"
	BtnRates     = "💰 Курс валют"
	BtnDateTime  = "📅 Дата и время"
	BtnRandom    = "🎲 Случайное число"
	BtnLocation  = "📍 Местоположение"
	BtnMyStats   = "📊 Моя статистика"
	BtnFavorites = "⭐️ Избранное"
	BtnHistory   = "📜 История"
	BtnClear     = "🗑 Очистить историю"
)

// Sub-menu labels.
const (
	BtnAddFavorite    = "➕ Добавить в избранное"
	BtnRemoveFavorite = "➖ Удалить из избранного"
	BtnBack           = "🔙 Назад в главное меню"
)

// Complaint confirmation labels.
const (
	BtnConfirm = "✅ Подтвердить"
	BtnCancel  = "❌ Отмена"
)

// Join prompt buttons.
const (
	BtnJoin   = "📢 Подписаться"
	BtnVerify = "✅ Проверить подписку"
)

// MainMenuRows is the layout of the main reply keyboard.
var MainMenuRows = [][]string{
	{BtnComplaint, BtnWiki, BtnWeather, BtnTranslate, BtnRates},
	{BtnDateTime, BtnRandom, BtnLocation},
	{BtnMyStats, BtnFavorites, BtnHistory, BtnClear},
}

// StatsMenuRows is the layout of the statistics sub-menu.
var StatsMenuRows = [][]string{
	{BtnMyStats, BtnHistory},
	{BtnFavorites, BtnClear},
	{BtnBack},
}

// FavoritesMenuRows is the layout of the favorites sub-menu.
var FavoritesMenuRows = [][]string{
	{BtnAddFavorite, BtnRemoveFavorite},
	{BtnBack},
}

// ConfirmRows is the layout of the complaint confirmation keyboard.
var ConfirmRows = [][]string{
	{BtnConfirm, BtnCancel},
}
