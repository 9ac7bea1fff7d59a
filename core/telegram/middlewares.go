package telegram

import (
	"strings"
	"time"

	coreconfig "github.com/m3rciful/refbot/core/config"
	"github.com/m3rciful/refbot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// MiddlewareOptions tunes DefaultMiddlewares.
type MiddlewareOptions struct {
	// Sequencer, when set, becomes the outermost middleware so the rest of the chain
	// runs on the sender's worker.
	Sequencer *middleware.Sequencer
	OnLimited tele.HandlerFunc
	OnPanic   tele.HandlerFunc
}

// DefaultMiddlewares builds the shared middleware chain for bots.
func DefaultMiddlewares(cfg *coreconfig.Config, opts MiddlewareOptions) []Middleware {
	var mws []Middleware
	if opts.Sequencer != nil {
		mws = append(mws, Middleware{Name: "sequence", Use: opts.Sequencer.Middleware})
	}
	mws = append(mws,
		Middleware{Name: "logger", Use: middleware.LoggerMiddleware},
		Middleware{Name: "recover", Use: middleware.Recover(opts.OnPanic)},
	)

	if cfg != nil {
		interval := time.Duration(cfg.RateLimit.IntervalMS) * time.Millisecond
		if interval > 0 {
			ex := make(map[string]struct{}, len(cfg.RateLimit.ExcludeUpdates))
			for _, t := range cfg.RateLimit.ExcludeUpdates {
				ex[strings.ToLower(t)] = struct{}{}
			}
			mws = append(mws, Middleware{
				Name: "rate_limit",
				Use: middleware.RateLimit(middleware.RateLimitOptions{
					Interval:  interval,
					Exclude:   ex,
					OnLimited: opts.OnLimited,
				}),
			})
		}
	}

	mws = append(mws, Middleware{Name: "metrics", Use: middleware.CountReplies})
	return mws
}
