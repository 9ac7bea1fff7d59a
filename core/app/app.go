// Package app wires configuration, storage, services and the Telegram transport
// into a runnable refbot.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/refbot/core/bootstrap"
	coreconfig "github.com/m3rciful/refbot/core/config"
	"github.com/m3rciful/refbot/core/dialog"
	"github.com/m3rciful/refbot/core/gate"
	"github.com/m3rciful/refbot/core/handlers"
	"github.com/m3rciful/refbot/core/logger"
	"github.com/m3rciful/refbot/core/netutil"
	"github.com/m3rciful/refbot/core/providers"
	"github.com/m3rciful/refbot/core/reports"
	"github.com/m3rciful/refbot/core/state"
	"github.com/m3rciful/refbot/core/store"
	coretelegram "github.com/m3rciful/refbot/core/telegram"
	"github.com/m3rciful/refbot/core/telegram/commands"
	tghelpers "github.com/m3rciful/refbot/core/telegram/helpers"
	"github.com/m3rciful/refbot/core/telegram/keyboard"
	"github.com/m3rciful/refbot/core/telegram/middleware"
	"github.com/m3rciful/refbot/core/telegram/router"
	"github.com/m3rciful/refbot/core/ui"

	tele "gopkg.in/telebot.v4"
)

// App owns the infrastructure created at bootstrap.
type App struct {
	cfg   *Config
	db    *sqlx.DB
	store *store.Store

	// newBot is swapped in tests to avoid the getMe round trip.
	newBot func(*coreconfig.Config) (*tele.Bot, error)
}

// Bootstrap initializes logging, opens the database and applies migrations.
func Bootstrap(cfg *Config) (*App, error) {
	return bootstrapWith(cfg, bootstrap.Options{})
}

func bootstrapWith(cfg *Config, opts bootstrap.Options) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("app: nil config provided")
	}
	opts.Config = cfg.CoreConfig()
	opts.Database = cfg.Database
	res, err := bootstrap.Run(opts)
	if err != nil {
		return nil, err
	}
	return &App{
		cfg:    cfg,
		db:     res.DB,
		store:  store.New(res.DB),
		newBot: coretelegram.NewBot,
	}, nil
}

// Close releases the database.
func (a *App) Close() error {
	if a == nil || a.store == nil {
		return nil
	}
	return a.store.Close()
}

// botCommands are published in the Telegram command menu; admin ones stay hidden.
var botCommands = map[string]commands.Command{
	"/start":           {Description: "Главное меню"},
	"/help":            {Description: "Справка"},
	"/history":         {Description: "История запросов"},
	"/clear_history":   {Description: "Очистить историю"},
	"/stats":           {Description: "Моя статистика"},
	"/favorites":       {Description: "Избранное"},
	"/add_favorite":    {Description: "Добавить в избранное"},
	"/remove_favorite": {Description: "Удалить из избранного"},
	"/admin_stats":     {Description: "Статистика пользователей", AdminOnly: true},
	"/popular":         {Description: "Популярные запросы", AdminOnly: true},
}

// TelegramRunOptions assembles the bot: services, router, middleware chain and the
// digest lifecycle.
func (a *App) TelegramRunOptions() (coretelegram.RunOptions, error) {
	cfg := a.cfg
	bot, err := a.newBot(cfg.CoreConfig())
	if err != nil {
		return coretelegram.RunOptions{}, err
	}

	client := netutil.BuildHTTPClient(netutil.ClientOptions{
		Timeout:         cfg.providerTimeout(),
		ResponseTimeout: cfg.providerTimeout(),
		UserAgent:       cfg.Providers.UserAgent,
	})
	rates := providers.NewExchangeRates(client, cfg.Providers.RatesURL, cfg.ratesTTL())
	notifier := coretelegram.NewAdminNotifier(bot, cfg.Telegram.AdminID)

	var checker gate.Checker
	if cfg.Access.Channel != "" {
		checker = coretelegram.NewMembershipChecker(bot, cfg.Access.Channel)
	}
	accessGate := gate.New(checker, cfg.Telegram.AdminID, cfg.checkTimeout())

	engine := dialog.NewEngine(state.NewMemoryTracker(), dialog.Builtin(dialog.Services{
		Recorder:     a.store,
		Encyclopedia: providers.NewWikipedia(client, cfg.Providers.WikiLang, cfg.Providers.WikiURL),
		Translator:   providers.NewGoogleTranslate(client, cfg.Providers.TranslateURL),
		Notifier:     notifier,
		CallTimeout:  cfg.providerTimeout(),
	})...)

	rt := handlers.NewRouter(handlers.Deps{
		Engine:      engine,
		Store:       a.store,
		Rates:       rates,
		Gate:        accessGate,
		JoinTarget:  coretelegram.ChannelRef(cfg.Access.Channel),
		CallTimeout: cfg.providerTimeout(),
	})

	var digest *reports.Digest
	if cfg.Reports.DigestCron != "" {
		if digest, err = reports.NewDigest(cfg.Reports.DigestCron, a.store, notifier); err != nil {
			return coretelegram.RunOptions{}, err
		}
	}

	menus := keyboard.Menus{JoinURL: cfg.Access.InviteURL}
	reg := coretelegram.NewRegistry()
	for name, cmd := range botCommands {
		if err := reg.RegisterCommand(name, cmd); err != nil {
			return coretelegram.RunOptions{}, fmt.Errorf("app: %w", err)
		}
	}
	if err := reg.RegisterCallback(keyboard.VerifyUnique, router.VerifyMembership(rt, menus)); err != nil {
		return coretelegram.RunOptions{}, fmt.Errorf("app: %w", err)
	}

	seq := middleware.NewSequencer(0)
	mws := coretelegram.DefaultMiddlewares(cfg.CoreConfig(), coretelegram.MiddlewareOptions{
		Sequencer: seq,
		OnLimited: func(c tele.Context) error { return tghelpers.SendText(c, ui.SlowDown) },
		OnPanic:   func(c tele.Context) error { return tghelpers.SendText(c, ui.GenericError) },
	})

	routes := router.TextRoutes(rt, router.TextOptions{Menus: menus, UnsupportedText: ui.Unknown})
	routes = append(routes, router.CallbackRoute(reg, router.CallbackOptions{Menus: menus}))

	logger.LogEvent(context.Background(), logger.TWire, slog.LevelInfo, "wire.complete",
		slog.Int("commands", len(reg.Commands())),
		slog.Int("callbacks", len(reg.ListCallbacks())),
		slog.Bool("gate", accessGate.Enabled()),
		slog.Bool("digest", digest != nil),
	)

	return coretelegram.RunOptions{
		Config:      cfg.CoreConfig(),
		Registry:    reg,
		Bot:         bot,
		Sequencer:   seq,
		Middlewares: mws,
		Routes:      routes,
		OnStart: func(context.Context, coretelegram.Runtime) error {
			if digest == nil {
				return nil
			}
			return digest.Start()
		},
		OnStop: func(context.Context, coretelegram.Runtime) error {
			if digest != nil {
				digest.Stop()
			}
			return nil
		},
	}, nil
}
