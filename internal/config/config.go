package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/disertus/Blood-Donor-Bot/internal/domain"
)

// Config holds application configuration loaded from environment variables.
type Config struct {
	BotToken     string        `envconfig:"BOT_TOKEN" required:"true"`
	DBPath       string        `envconfig:"DB_PATH" default:"./data/donor.db"`
	SourceURL    string        `envconfig:"SOURCE_URL" default:"http://kmck.kiev.ua/"`
	PollInterval time.Duration `envconfig:"POLL_INTERVAL" default:"10m"`
	FetchTimeout time.Duration `envconfig:"FETCH_TIMEOUT" default:"15s"`

	// Notification policy. The cooldown is one value for everyone; the
	// sex-differentiated intervals from the help text are intentionally
	// not modeled.
	CooldownDays  int    `envconfig:"COOLDOWN_DAYS" default:"60"`
	RealertDays   int    `envconfig:"REALERT_DAYS" default:"7"`
	NotifyWeekday int    `envconfig:"NOTIFY_WEEKDAY" default:"1"` // 0=Sunday .. 6=Saturday
	NotifyHour    int    `envconfig:"NOTIFY_HOUR" default:"11"`   // 0..23, in Timezone
	Timezone      string `envconfig:"TIMEZONE" default:"Europe/Kyiv"`

	LogLevel string `envconfig:"LOG_LEVEL" default:"info"` // debug|info|warn|error
	HTTPAddr string `envconfig:"HTTP_ADDR" default:":8080"`
}

// Load reads environment variables into Config.
func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return cfg, err
	}
	if cfg.NotifyWeekday < 0 || cfg.NotifyWeekday > 6 {
		return cfg, fmt.Errorf("NOTIFY_WEEKDAY out of range: %d", cfg.NotifyWeekday)
	}
	if cfg.NotifyHour < 0 || cfg.NotifyHour > 23 {
		return cfg, fmt.Errorf("NOTIFY_HOUR out of range: %d", cfg.NotifyHour)
	}
	if cfg.CooldownDays <= 0 || cfg.RealertDays <= 0 {
		return cfg, fmt.Errorf("cooldown/realert days must be positive")
	}
	if _, err := time.LoadLocation(cfg.Timezone); err != nil {
		return cfg, fmt.Errorf("TIMEZONE invalid: %w", err)
	}
	return cfg, nil
}

// Policy derives the domain scheduling policy from configuration.
func (c Config) Policy() domain.Policy {
	return domain.Policy{
		CooldownDays:  c.CooldownDays,
		RealertDays:   c.RealertDays,
		NotifyWeekday: time.Weekday(c.NotifyWeekday),
		NotifyHour:    c.NotifyHour,
	}
}

// Location resolves the configured timezone. Load rejects unresolvable
// names, so the UTC fallback only covers hand-built configs.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
