package telegram

import (
	"fmt"
	"time"

	coreconfig "github.com/m3rciful/refbot/core/config"

	tele "gopkg.in/telebot.v4"
)

const defaultLongPollTimeout = 10 * time.Second

// allowedUpdates are the only update kinds refbot handles.
var allowedUpdates = []string{"message", "callback_query"}

// BuildPoller returns the webhook or long poller selected by cfg. cfg must already be
// normalized.
func BuildPoller(cfg *coreconfig.Config) tele.Poller {
	if cfg.Telegram.RunMode == coreconfig.RunModeWebhook {
		return &tele.Webhook{
			Listen:         fmt.Sprintf("%s:%d", cfg.Webhook.Listen, cfg.Webhook.Port),
			Endpoint:       &tele.WebhookEndpoint{PublicURL: cfg.Webhook.URL},
			AllowedUpdates: allowedUpdates,
		}
	}
	return &tele.LongPoller{
		Timeout:        longPollTimeout(cfg),
		AllowedUpdates: allowedUpdates,
	}
}

func longPollTimeout(cfg *coreconfig.Config) time.Duration {
	if cfg.Telegram.LongPollTimeoutSeconds > 0 {
		return time.Duration(cfg.Telegram.LongPollTimeoutSeconds) * time.Second
	}
	return defaultLongPollTimeout
}
