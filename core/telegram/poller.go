package telegram

import (
	"fmt"
	"time"

	tele "gopkg.in/telebot.v4"

	coreconfig "github.com/m3rciful/heatbot/core/config"
)

const defaultLongPollTimeout = 10 * time.Second

// BuildPoller returns a webhook listener or a long poller for the configured run mode.
func BuildPoller(cfg *coreconfig.Config) tele.Poller {
	if cfg.Telegram.RunMode == coreconfig.RunModeWebhook {
		return &tele.Webhook{
			Listen:      fmt.Sprintf("%s:%d", cfg.Webhook.Listen, cfg.Webhook.Port),
			SecretToken: cfg.Webhook.SecretToken,
			Endpoint:    &tele.WebhookEndpoint{PublicURL: cfg.Webhook.URL},
		}
	}
	return &tele.LongPoller{Timeout: longPollTimeout(cfg)}
}

func longPollTimeout(cfg *coreconfig.Config) time.Duration {
	if s := cfg.Telegram.LongPollTimeoutSeconds; s > 0 {
		return time.Duration(s) * time.Second
	}
	return defaultLongPollTimeout
}
