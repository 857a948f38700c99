// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type BotConfig struct {
	Token    string `yaml:"token"`
	Mode     string `yaml:"mode"` // polling only for now
	Username string `yaml:"username"`
	Workers  int    `yaml:"workers"` // update workers
	JobPool  int    `yaml:"job_pool"` // workers for long "show all" inspections
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type AdminConfig struct {
	Port     int           `yaml:"port"` // 0 disables the admin server
	APIKey   string        `yaml:"api_key"`
	TokenTTL time.Duration `yaml:"token_ttl"`
}

type DatabaseConfig struct {
	URL      string `yaml:"url"`
	MaxConns int32  `yaml:"max_conns"`
}

type RedisConfig struct {
	URL       string        `yaml:"url"` // empty disables cache and rate limiting
	Password  string        `yaml:"password"`
	DB        int           `yaml:"db"`
	TTL       time.Duration `yaml:"ttl"`
	KeyPrefix string        `yaml:"key_prefix"` // prepended to every key, e.g. "unf:"
}

type InstagramConfig struct {
	Username           string        `yaml:"username"`
	Password           string        `yaml:"password"`
	BaseURL            string        `yaml:"base_url"`
	AppID              string        `yaml:"app_id"`
	UserAgent          string        `yaml:"user_agent"`
	SessionTTL         time.Duration `yaml:"session_ttl"`
	MinRequestInterval time.Duration `yaml:"min_request_interval"`
	PageSize           int           `yaml:"page_size"`
	Timeout            time.Duration `yaml:"timeout"`
	MaxRetries         uint64        `yaml:"max_retries"`
}

type NotifierConfig struct {
	Enabled         *bool         `yaml:"enabled"`
	Period          time.Duration `yaml:"period"`
	MinRest         time.Duration `yaml:"min_rest"`
	SubscriberDelay time.Duration `yaml:"subscriber_delay"`
	CallDelay       time.Duration `yaml:"call_delay"`
	ReportCap       int           `yaml:"report_cap"`
}

// IsEnabled reports whether the background notifier should run.
func (n NotifierConfig) IsEnabled() bool { return n.Enabled == nil || *n.Enabled }

type RateLimitConfig struct {
	Commands int           `yaml:"commands"` // per user per window
	Window   time.Duration `yaml:"window"`
}

type I18nConfig struct {
	DefaultLanguage string `yaml:"default_language"`
}

type Config struct {
	Bot       BotConfig       `yaml:"bot"`
	Log       LogConfig       `yaml:"log"`
	Admin     AdminConfig     `yaml:"admin"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Instagram InstagramConfig `yaml:"instagram"`
	Notifier  NotifierConfig  `yaml:"notifier"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	I18n      I18nConfig      `yaml:"i18n"`

	Runtime RuntimeConfig `yaml:"-"`
}

// LoadConfig reads the YAML file at path, applies environment overrides and
// defaults, and validates required settings. A missing file is tolerated when
// the environment supplies every required value.
func LoadConfig(path string, dev bool) (*Config, error) {
	var cfg Config
	b, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	case errors.Is(err, os.ErrNotExist):
		// env-only deployment
	default:
		return nil, fmt.Errorf("read config: %w", err)
	}

	applyEnv(&cfg)
	applyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	setFromEnv(&cfg.Bot.Token, "TELEGRAM_BOT_TOKEN")
	setFromEnv(&cfg.Instagram.Username, "INSTAGRAM_USERNAME")
	setFromEnv(&cfg.Instagram.Password, "INSTAGRAM_PASSWORD")
	setFromEnv(&cfg.Database.URL, "SQL_URL")
	setFromEnv(&cfg.Database.URL, "DATABASE_URL")
	setFromEnv(&cfg.Redis.URL, "REDIS_URL")
	setFromEnv(&cfg.Admin.APIKey, "ADMIN_API_KEY")
}

func setFromEnv(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Bot.Workers <= 0 {
		cfg.Bot.Workers = 8
	}
	if cfg.Bot.JobPool <= 0 {
		cfg.Bot.JobPool = 4
	}
	if cfg.Bot.Mode == "" {
		cfg.Bot.Mode = "polling"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Admin.TokenTTL <= 0 {
		cfg.Admin.TokenTTL = 30 * time.Minute
	}
	if cfg.Database.MaxConns <= 0 {
		cfg.Database.MaxConns = 10
	}
	cfg.Redis.TTL = normalizeTTL(cfg.Redis.TTL)

	ig := &cfg.Instagram
	if ig.BaseURL == "" {
		ig.BaseURL = "https://i.instagram.com"
	}
	if ig.AppID == "" {
		ig.AppID = "936619743392459"
	}
	if ig.UserAgent == "" {
		ig.UserAgent = "Instagram 219.0.0.12.117 Android"
	}
	if ig.SessionTTL <= 0 {
		ig.SessionTTL = 6 * time.Hour
	}
	if ig.MinRequestInterval <= 0 {
		ig.MinRequestInterval = time.Second
	}
	if ig.PageSize <= 0 {
		ig.PageSize = 200
	}
	if ig.Timeout <= 0 {
		ig.Timeout = 30 * time.Second
	}
	if ig.MaxRetries == 0 {
		ig.MaxRetries = 3
	}

	n := &cfg.Notifier
	if n.Period <= 0 {
		n.Period = 24 * time.Hour
	}
	if n.MinRest <= 0 {
		n.MinRest = time.Hour
	}
	if n.SubscriberDelay <= 0 {
		n.SubscriberDelay = time.Minute
	}
	if n.CallDelay <= 0 {
		n.CallDelay = time.Second
	}
	if n.ReportCap <= 0 {
		n.ReportCap = 100
	}

	if cfg.RateLimit.Commands <= 0 {
		cfg.RateLimit.Commands = 10
	}
	if cfg.RateLimit.Window <= 0 {
		cfg.RateLimit.Window = time.Minute
	}
	if cfg.I18n.DefaultLanguage == "" {
		cfg.I18n.DefaultLanguage = "en"
	}
}

// Validate checks the settings without which the bot cannot start.
func (c *Config) Validate() error {
	if c.Bot.Token == "" {
		return errors.New("bot.token is required")
	}
	if c.Database.URL == "" {
		return errors.New("database.url is required")
	}
	if c.Instagram.Username == "" || c.Instagram.Password == "" {
		return errors.New("instagram.username and instagram.password are required")
	}
	if c.Notifier.MinRest > c.Notifier.Period {
		return fmt.Errorf("notifier.min_rest (%s) must not exceed notifier.period (%s)", c.Notifier.MinRest, c.Notifier.Period)
	}
	return nil
}

func normalizeTTL(d time.Duration) time.Duration {
	if d <= 0 {
		return time.Hour
	}
	return d
}
