package app

import (
	"fmt"
	"strings"
	"time"

	coreconfig "github.com/m3rciful/refbot/core/config"
	coredatabase "github.com/m3rciful/refbot/core/database"
)

// AccessConfig describes the required-channel gate. An empty channel disables it.
type AccessConfig struct {
	Channel        string `yaml:"channel" envconfig:"ACCESS_CHANNEL"`
	InviteURL      string `yaml:"invite_url" envconfig:"ACCESS_INVITE_URL"`
	CheckTimeoutMS int    `yaml:"check_timeout_ms" envconfig:"ACCESS_CHECK_TIMEOUT_MS"`
}

// ProvidersConfig configures the external lookup services.
type ProvidersConfig struct {
	WikiLang        string `yaml:"wiki_lang" envconfig:"WIKI_LANG"`
	WikiURL         string `yaml:"wiki_url" envconfig:"WIKI_URL"`
	TranslateURL    string `yaml:"translate_url" envconfig:"TRANSLATE_URL"`
	RatesURL        string `yaml:"rates_url" envconfig:"RATES_URL"`
	TimeoutMS       int    `yaml:"timeout_ms" envconfig:"PROVIDERS_TIMEOUT_MS"`
	RatesTTLSeconds int    `yaml:"rates_ttl_seconds" envconfig:"RATES_TTL_SECONDS"`
	UserAgent       string `yaml:"user_agent" envconfig:"PROVIDERS_USER_AGENT"`
}

// ReportsConfig schedules the admin digest. An empty schedule disables it.
type ReportsConfig struct {
	DigestCron string `yaml:"digest_cron" envconfig:"DIGEST_CRON"`
}

// Config is the full refbot configuration.
type Config struct {
	coreconfig.Config `yaml:",inline"`

	Database  coredatabase.Config `yaml:"database"`
	Access    AccessConfig        `yaml:"access"`
	Providers ProvidersConfig     `yaml:"providers"`
	Reports   ReportsConfig       `yaml:"reports"`
}

// CoreConfig exposes the transport level settings.
func (c *Config) CoreConfig() *coreconfig.Config {
	if c == nil {
		return nil
	}
	return &c.Config
}

// LoadConfig reads path, applies the environment and validates the result.
func LoadConfig(path string) (*Config, error) {
	var cfg Config
	if err := coreconfig.Load(path, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize validates every section and fills defaults.
func (c *Config) Normalize() error {
	if err := coreconfig.Normalize(&c.Config); err != nil {
		return err
	}
	if err := c.Database.Normalize(); err != nil {
		return err
	}

	c.Access.Channel = strings.TrimSpace(c.Access.Channel)
	if c.Access.CheckTimeoutMS < 0 {
		return fmt.Errorf("access.check_timeout_ms must be >= 0")
	}
	if c.Access.CheckTimeoutMS == 0 {
		c.Access.CheckTimeoutMS = 5000
	}
	if c.Access.Channel != "" && c.Access.InviteURL == "" {
		c.Access.InviteURL = "https://t.me/" + strings.TrimPrefix(c.Access.Channel, "@")
	}

	p := &c.Providers
	if p.WikiLang == "" {
		p.WikiLang = "ru"
	}
	if p.TimeoutMS < 0 || p.RatesTTLSeconds < 0 {
		return fmt.Errorf("providers timeouts must be >= 0")
	}
	if p.TimeoutMS == 0 {
		p.TimeoutMS = 10000
	}
	if p.RatesTTLSeconds == 0 {
		p.RatesTTLSeconds = 600
	}
	if p.UserAgent == "" {
		p.UserAgent = "refbot/1.0"
	}

	c.Reports.DigestCron = strings.TrimSpace(c.Reports.DigestCron)
	return nil
}

func (c *Config) checkTimeout() time.Duration {
	return time.Duration(c.Access.CheckTimeoutMS) * time.Millisecond
}

func (c *Config) providerTimeout() time.Duration {
	return time.Duration(c.Providers.TimeoutMS) * time.Millisecond
}

func (c *Config) ratesTTL() time.Duration {
	return time.Duration(c.Providers.RatesTTLSeconds) * time.Second
}
