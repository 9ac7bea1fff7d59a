package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// TelegramConfig holds Telegram bot related settings.
type TelegramConfig struct {
	Token   string `yaml:"token" envconfig:"BOT_TOKEN"`
	AdminID int64  `yaml:"admin_id" envconfig:"ADMIN_ID"`
	RunMode string `yaml:"run_mode" envconfig:"TELEGRAM_RUN_MODE"`
	// LongPollTimeoutSeconds defines long polling timeout; 0 -> default
	LongPollTimeoutSeconds int `yaml:"longpoll_timeout_seconds" envconfig:"TELEGRAM_LONGPOLL_TIMEOUT_SECONDS"`
}

// WebhookConfig specifies webhook settings.
type WebhookConfig struct {
	URL    string `yaml:"url" envconfig:"WEBHOOK_URL"`
	Listen string `yaml:"listen" envconfig:"WEBHOOK_LISTEN"`
	Port   int    `yaml:"port" envconfig:"WEBHOOK_PORT"`
}

// LoggingConfig defines logging related configuration.
type LoggingConfig struct {
	Level       string `yaml:"level" envconfig:"LOG_LEVEL"`
	Format      string `yaml:"format" envconfig:"LOG_FORMAT"`
	KeysOrder   string `yaml:"keys_order"`
	DebugSample string `yaml:"debug_sample"`
	Dir         string `yaml:"dir" envconfig:"LOG_DIR"`
	BotFile     string `yaml:"bot_file"`
	// Profile indicates environment profile such as "debug" or "prod".
	Profile string `yaml:"profile" envconfig:"LOG_PROFILE"`
}

const (
	// RunModeWebhook selects webhook mode for Telegram updates.
	RunModeWebhook = "webhook"
	// RunModeLongpoll selects long-polling mode for Telegram updates.
	RunModeLongpoll = "longpoll"
)

const (
	// UpdateCallback identifies callback updates for rate limit exclusions.
	UpdateCallback = "callback"
	// UpdateMessage identifies message updates for rate limit exclusions.
	UpdateMessage = "message"
)

// RateLimitConfig holds settings for rate limiting.
// ExcludeUpdates accepts update types to bypass limiting:
// - "callback": inline button presses (membership re-check)
// - "message": text messages and reply-keyboard buttons
type RateLimitConfig struct {
	IntervalMS     int      `yaml:"interval_ms" envconfig:"RATE_LIMIT_INTERVAL_MS"`
	ExcludeUpdates []string `yaml:"exclude_updates" envconfig:"RATE_LIMIT_EXCLUDE_UPDATES"`
}

// Config aggregates the transport level configuration shared by every bot built on core.
type Config struct {
	Telegram  TelegramConfig  `yaml:"telegram"`
	Webhook   WebhookConfig   `yaml:"webhook"`
	Logging   LoggingConfig   `yaml:"logging"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// Load reads the YAML file at path into out, then applies the process environment,
// which wins. A .env file in the working directory is loaded into the environment first
// when present.
func Load(path string, out any) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("config: load .env: %w", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := envconfig.Process("", out); err != nil {
		return fmt.Errorf("config: environment: %w", err)
	}
	return nil
}

// Normalize validates cfg and fills defaults. Every problem found is reported, not
// just the first.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return errors.New("config: nil config")
	}
	return errors.Join(
		cfg.Telegram.normalize(),
		cfg.Webhook.validate(cfg.Telegram.RunMode),
		cfg.RateLimit.normalize(),
	)
}

func (t *TelegramConfig) normalize() error {
	var errs []error
	if strings.TrimSpace(t.Token) == "" {
		errs = append(errs, errors.New("telegram.token is required"))
	}
	if t.AdminID <= 0 {
		errs = append(errs, errors.New("telegram.admin_id is required"))
	}
	if t.LongPollTimeoutSeconds < 0 {
		errs = append(errs, errors.New("telegram.longpoll_timeout_seconds must be >= 0"))
	}
	switch mode := strings.ToLower(strings.TrimSpace(t.RunMode)); mode {
	case "", "polling", RunModeLongpoll:
		t.RunMode = RunModeLongpoll
	case RunModeWebhook:
		t.RunMode = mode
	default:
		errs = append(errs, fmt.Errorf("invalid telegram.run_mode %q; allowed: webhook, longpoll", t.RunMode))
	}
	return errors.Join(errs...)
}

func (w WebhookConfig) validate(runMode string) error {
	if runMode != RunModeWebhook {
		return nil
	}
	var errs []error
	if strings.TrimSpace(w.URL) == "" {
		errs = append(errs, errors.New("webhook.url is required in webhook mode"))
	}
	if strings.TrimSpace(w.Listen) == "" {
		errs = append(errs, errors.New("webhook.listen is required in webhook mode"))
	}
	if w.Port <= 0 {
		errs = append(errs, errors.New("webhook.port must be > 0 in webhook mode"))
	}
	return errors.Join(errs...)
}

// normalize lowercases the exclusions and drops blank entries.
func (r *RateLimitConfig) normalize() error {
	if r.IntervalMS < 0 {
		return errors.New("rate_limit.interval_ms must be >= 0")
	}
	kept := r.ExcludeUpdates[:0]
	for _, v := range r.ExcludeUpdates {
		switch key := strings.ToLower(strings.TrimSpace(v)); key {
		case "":
		case UpdateCallback, UpdateMessage:
			kept = append(kept, key)
		default:
			return fmt.Errorf("invalid rate_limit.exclude_updates value %q; allowed: callback, message", v)
		}
	}
	r.ExcludeUpdates = kept
	return nil
}
