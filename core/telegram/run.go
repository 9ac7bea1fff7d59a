package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	coreconfig "github.com/m3rciful/refbot/core/config"
	"github.com/m3rciful/refbot/core/logger"
	"github.com/m3rciful/refbot/core/netutil"
	tghelpers "github.com/m3rciful/refbot/core/telegram/helpers"
	"github.com/m3rciful/refbot/core/telegram/middleware"
	tgsender "github.com/m3rciful/refbot/core/telegram/sender"

	tele "gopkg.in/telebot.v4"
)

// Middleware describes a global bot middleware to be registered via bot.Use.
type Middleware struct {
	Name string
	Use  func(next tele.HandlerFunc) tele.HandlerFunc
}

// Route declares a single bot handler bound to an arbitrary endpoint.
// Endpoint values are passed directly to tele.Bot.Handle.
type Route struct {
	Endpoint any
	Handler  tele.HandlerFunc
}

// RunOptions controls the behaviour of RunTelegram.
type RunOptions struct {
	Config   *coreconfig.Config
	Registry *Registry

	// Bot is used as is when set; otherwise RunTelegram builds one with NewBot.
	Bot *tele.Bot

	DispatcherOptions tgsender.Options
	Dispatcher        *tgsender.Dispatcher

	// Sequencer, when set, is drained after the poller stops and before OnStop runs.
	Sequencer *middleware.Sequencer

	Middlewares []Middleware
	Routes      []Route

	DisableWebhookCleanup   bool
	DisableHelperDispatcher bool

	OnStart func(ctx context.Context, rt Runtime) error
	OnStop  func(ctx context.Context, rt Runtime) error
}

// Runtime exposes runtime components to lifecycle hooks.
type Runtime struct {
	Bot        *tele.Bot
	Dispatcher *tgsender.Dispatcher
	Registry   *Registry
}

// NewBot builds a synchronous telebot instance for cfg. Updates are handed off by the
// sequencer middleware, so telebot itself must not spawn a goroutine per update.
func NewBot(cfg *coreconfig.Config) (*tele.Bot, error) {
	if cfg == nil {
		return nil, errors.New("telegram: nil config provided")
	}
	// getUpdates holds the response until the long poll expires.
	poll := longPollTimeout(cfg)
	bot, err := tele.NewBot(tele.Settings{
		Token:       cfg.Telegram.Token,
		Poller:      BuildPoller(cfg),
		Synchronous: true,
		Client: netutil.BuildHTTPClient(netutil.ClientOptions{
			Timeout:         poll + 20*time.Second,
			ResponseTimeout: poll + 10*time.Second,
		}),
		OnError: logBotError,
	})
	if err != nil {
		return nil, fmt.Errorf("telegram: bot initialization failed: %w", err)
	}
	return bot, nil
}

func logBotError(err error, c tele.Context) {
	ctx := context.Background()
	if c != nil {
		ctx = tghelpers.BuildContext(c)
	}
	logger.LogEvent(ctx, logger.TG, slog.LevelError, "tg.error", slog.String("err", err.Error()))
}

// RunTelegram wires opts into the bot and serves updates until ctx is done or the
// poller stops. Shutdown order: stop polling, let queued updates finish, run OnStop,
// then flush outbound sends.
func RunTelegram(ctx context.Context, opts RunOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.Config == nil {
		return errors.New("telegram: nil config provided")
	}
	if opts.Registry == nil {
		opts.Registry = NewRegistry()
	}

	start := time.Now()
	bot := opts.Bot
	if bot == nil {
		var err error
		if bot, err = NewBot(opts.Config); err != nil {
			return err
		}
	}
	dispatcher := opts.Dispatcher
	if dispatcher == nil {
		dispatcher = tgsender.NewDispatcher(opts.DispatcherOptions)
	}
	if !opts.DisableHelperDispatcher {
		tghelpers.SetDispatcher(dispatcher)
	}
	rt := Runtime{Bot: bot, Dispatcher: dispatcher, Registry: opts.Registry}

	announceMode(ctx, bot, opts, time.Since(start))
	wire(bot, opts)

	drain := func() {
		if opts.Sequencer != nil {
			opts.Sequencer.Close()
		}
	}
	release := func() {
		drain()
		dispatcher.Close()
		logger.LogEvent(context.WithoutCancel(ctx), logger.TGSender, slog.LevelInfo, "sender.closed",
			slog.Uint64("failed", dispatcher.ErrorCount()),
		)
		if !opts.DisableHelperDispatcher {
			tghelpers.SetDispatcher(nil)
		}
	}

	if opts.OnStart != nil {
		if err := opts.OnStart(ctx, rt); err != nil {
			release()
			return err
		}
	}

	runErr := serve(ctx, bot)
	drain()
	var stopErr error
	if opts.OnStop != nil {
		stopErr = opts.OnStop(context.WithoutCancel(ctx), rt)
	}
	release()

	if stopErr != nil {
		return stopErr
	}
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}
	return nil
}

// wire installs middlewares (first is outermost), routes and the command menu.
func wire(bot *tele.Bot, opts RunOptions) {
	for _, mw := range opts.Middlewares {
		if mw.Use != nil {
			bot.Use(mw.Use)
		}
	}
	for _, r := range opts.Routes {
		if r.Endpoint != nil && r.Handler != nil {
			bot.Handle(r.Endpoint, r.Handler)
		}
	}
	InitBotCommands(bot, opts.Registry)
}

// announceMode logs how updates arrive. In long-poll mode a webhook left over from an
// earlier deployment is removed, since Telegram refuses getUpdates while one is set.
func announceMode(ctx context.Context, bot *tele.Bot, opts RunOptions, built time.Duration) {
	if wh, ok := bot.Poller.(*tele.Webhook); ok {
		logger.LogEvent(ctx, logger.TG, slog.LevelInfo, "mode",
			slog.String("mode", coreconfig.RunModeWebhook),
			slog.String("listen", wh.Listen),
			slog.Duration("duration", built),
		)
		return
	}
	logger.LogEvent(ctx, logger.TG, slog.LevelInfo, "mode",
		slog.String("mode", coreconfig.RunModeLongpoll),
		slog.Duration("timeout", longPollTimeout(opts.Config)),
		slog.Duration("duration", built),
	)
	if opts.DisableWebhookCleanup || opts.Config.Telegram.RunMode == coreconfig.RunModeWebhook {
		return
	}
	if err := bot.RemoveWebhook(false); err != nil {
		logger.LogEvent(ctx, logger.TG, slog.LevelWarn, "webhook.delete_failed", slog.String("err", err.Error()))
		return
	}
	logger.LogEvent(ctx, logger.TG, slog.LevelDebug, "webhook.deleted")
}

// serve blocks in bot.Start until ctx is cancelled or the poller gives up.
func serve(ctx context.Context, bot *tele.Bot) error {
	done := make(chan struct{})
	go func() {
		defer close(done)
		bot.Start()
	}()
	select {
	case <-ctx.Done():
		bot.Stop()
		<-done
		return ctx.Err()
	case <-done:
		return nil
	}
}
