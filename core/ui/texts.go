package ui

const (
	Welcome  = "👋 Привет! Я бот-справочник. Чем могу помочь?"
	MainMenu = "Главное меню:"
	Help     = "📌 Доступные команды:\n" +
		"/start - Начать работу с ботом\n" +
		"/help - Получить справку по функциям бота\n" +
		"/history - Показать историю ваших запросов\n" +
		"/clear_history - Очистить историю запросов\n" +
		"/stats - Показать вашу статистику\n" +
		"/favorites - Показать избранные запросы\n" +
		"/add_favorite - Добавить запрос в избранное\n" +
		"/remove_favorite - Удалить запрос из избранного\n" +
		"📑 Жалобы/Предложения - Оставить сообщение администратору\n" +
		"🔎 Википедия - Поиск информации\n" +
		"🌤 Погода - Узнать прогноз\n" +
		"🈹 Переводчик - Перевести текст на английский\n" +
		"📅 Дата и время - Узнать текущее время\n" +
		"🎲 Случайное число - Сгенерировать случайное число\n" +
		"📍 Местоположение - Заглушка"

	Unknown      = "🤔 Я не понял запрос. Воспользуйтесь /help, чтобы увидеть список команд."
	GenericError = "⚠️ Что-то пошло не так. Попробуйте ещё раз позже."
	AccessDenied = "⛔️ У вас нет доступа к этой команде."
	SlowDown     = "⏳ Слишком много запросов. Подождите немного."
	EmptyInput   = "✏️ Пустое сообщение. Пожалуйста, введите текст."
)

// Complaint dialog.
const (
	AskFullName      = "📝 Пожалуйста, введите ваше ФИО:"
	AskContact       = "📞 Введите ваш контакт (телефон, email или Telegram):"
	AskComplaintText = "✍️ Опишите вашу жалобу или предложение:"
	ComplaintSummary = "🔹 ФИО: %s\n🔹 Контакт: %s\n🔹 Текст: %s\n\n✅ Подтвердите отправку или ❌ отмените."
	ComplaintReport  = "📩 Новая жалоба/предложение\n\n👤 ФИО: %s\n📞 Контакт: %s\n📝 Текст: %s\n🆔 %s"
	ComplaintSent    = "✅ Ваше сообщение успешно отправлено администратору.\n🆔 Номер обращения: %s"
	ComplaintAborted = "❌ Отправка отменена."
)

// Lookup dialogs.
const (
	AskWikiQuery     = "🔎 Введите запрос для поиска в Википедии:"
	WikiResult       = "📚 %s..."
	WikiNotFound     = "❌ Страница не найдена."
	WikiUnavailable  = "❌ Википедия сейчас недоступна. Попробуйте позже."
	WikiQueryTooLong = "✏️ Запрос слишком длинный. Сократите его до %d символов."

	AskTranslateText     = "🌍 Введите текст для перевода на английский:"
	TranslateResult      = "🔠 Перевод: %s"
	TranslateUnavailable = "❌ Не удалось выполнить перевод. Попробуйте позже."

	AskCity       = "🌍 Введите название города:"
	WeatherResult = "Погода в %s: Ясно, 6°C"
)

// Favorites.
const (
	AskFavoriteAdd    = "💾 Введите запрос, который хотите добавить в избранное:"
	AskFavoriteRemove = "🗑 Введите запрос, который хотите удалить из избранного:"
	FavoriteAdded     = "✅ Запрос добавлен в избранное!"
	FavoriteRemoved   = "✅ Запрос удален из избранного!"
	FavoritesHeader   = "⭐️ Ваши избранные запросы:\n\n"
	FavoritesEmpty    = "📝 У вас пока нет избранных запросов."
)

// History and stats.
const (
	HistoryHeader  = "📜 Ваша история запросов:\n\n"
	HistoryEntry   = "🔹 %s: %s\n⏰ %s\n\n"
	HistoryEmpty   = "📝 У вас пока нет истории запросов."
	HistoryCleared = "🗑 Ваша история запросов очищена."

	StatsCard  = "📊 Ваша статистика:\n\n👤 Всего запросов: %d\n📚 Запросов в Википедии: %d\n🔄 Переводов: %d\n⏰ Последняя активность: %s"
	StatsEmpty = "📝 У вас пока нет статистики."

	AdminStatsHeader = "📊 Статистика всех пользователей:\n\n"
	AdminStatsEntry  = "👤 %s:\n📚 Всего: %d\n🔍 Википедия: %d\n🔄 Переводы: %d\n\n"
	AdminStatsEmpty  = "📝 Пока нет статистики пользователей."
	KindsHeader      = "📈 Запросы по типам:\n"
	KindsEntry       = "🔸 %s: %d\n"

	PopularHeader = "🔥 Популярные запросы:\n\n"
	PopularEntry  = "🔹 %s: %d раз\n"
	PopularEmpty  = "📝 Пока нет запросов."

	DigestHeader = "🗓 Ежедневная сводка\n\n"
)

// One-shot utilities.
const (
	RatesHeader      = "💵 Курс валют относительно 1 UZS:\n"
	RatesUnavailable = "❌ Не удалось загрузить курс валют."
	DateTime         = "📅 Текущая дата и время: %s"
	RandomNumber     = "🎲 Ваше случайное число: %d"
	Location         = "📍 Извините, но определение местоположения недоступно в этом боте."
)

// Access gate.
const (
	JoinRequired  = "🔒 Чтобы пользоваться ботом, подпишитесь на канал %s и нажмите «Проверить подписку»."
	JoinConfirmed = "✅ Подписка подтверждена. Добро пожаловать!"
	JoinMissing   = "❌ Подписка не найдена. Подпишитесь на канал и попробуйте снова."
)

// HistoryTimeLayout formats timestamps in history, favorites and stats replies.
const HistoryTimeLayout = "2006-01-02 15:04:05"
