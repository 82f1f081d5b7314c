// Package config provides configuration management for the paper trading application.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Engine        EngineConfig       `mapstructure:"engine"`
	Account       AccountConfig      `mapstructure:"account"`
	Store         StoreConfig        `mapstructure:"store"`
	Feed          FeedConfig         `mapstructure:"feed"`
	Notifications NotificationConfig `mapstructure:"notifications"`
	Logging       LoggingConfig      `mapstructure:"logging"`
	UI            UIConfig           `mapstructure:"ui"`
}

// EngineConfig holds execution engine configuration.
type EngineConfig struct {
	PollInterval    time.Duration `mapstructure:"poll_interval"`
	FeedTimeout     time.Duration `mapstructure:"feed_timeout"`
	MarketHoursOnly bool          `mapstructure:"market_hours_only"`
}

// AccountConfig holds paper account configuration.
type AccountConfig struct {
	DefaultBalance float64 `mapstructure:"default_balance"`
	DefaultOwner   string  `mapstructure:"default_owner"`
}

// StoreConfig holds persistence configuration.
type StoreConfig struct {
	Path     string `mapstructure:"path"`
	InMemory bool   `mapstructure:"in_memory"`
}

// FeedConfig holds quote source configuration.
type FeedConfig struct {
	Provider string `mapstructure:"provider"` // "yahoo"
	BaseURL  string `mapstructure:"base_url"`
	Exchange string `mapstructure:"exchange"` // NSE, BSE
}

// NotificationConfig holds notification configuration.
type NotificationConfig struct {
	Enabled  bool           `mapstructure:"enabled"`
	Level    string         `mapstructure:"level"` // all, trades_only, errors_only
	Webhook  WebhookConfig  `mapstructure:"webhook"`
	Telegram TelegramConfig `mapstructure:"telegram"`
}

// WebhookConfig holds webhook notification configuration.
type WebhookConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url"`
}

// TelegramConfig holds Telegram notification configuration.
type TelegramConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Console    bool   `mapstructure:"console"`
}

// UIConfig holds UI-related configuration.
type UIConfig struct {
	ColorEnabled bool   `mapstructure:"color_enabled"`
	DateFormat   string `mapstructure:"date_format"`
	TimeFormat   string `mapstructure:"time_format"`
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/paper-trader"
	}
	return filepath.Join(home, ".config", "paper-trader")
}

// Load loads configuration from the specified directory.
// If configDir is empty, uses the default config directory.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("loading config.toml: %w", err)
		}
		// Config file not found, write the template for next time
		if err := createTemplateConfig(configDir); err != nil {
			return nil, fmt.Errorf("creating config template: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("engine.poll_interval", "60s")
	v.SetDefault("engine.feed_timeout", "10s")
	v.SetDefault("engine.market_hours_only", false)

	v.SetDefault("account.default_balance", 100000.0)
	v.SetDefault("account.default_owner", "default")

	v.SetDefault("store.path", filepath.Join(DefaultConfigDir(), "papertrader.db"))
	v.SetDefault("store.in_memory", false)

	v.SetDefault("feed.provider", "yahoo")
	v.SetDefault("feed.exchange", "NSE")

	v.SetDefault("notifications.enabled", false)
	v.SetDefault("notifications.level", "all")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.file", filepath.Join(DefaultConfigDir(), "papertrader.log"))
	v.SetDefault("logging.max_size_mb", 10)
	v.SetDefault("logging.max_backups", 5)
	v.SetDefault("logging.max_age_days", 30)
	v.SetDefault("logging.console", false)

	v.SetDefault("ui.color_enabled", true)
	v.SetDefault("ui.date_format", "02-Jan-2006")
	v.SetDefault("ui.time_format", "15:04:05")
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Notifications.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		cfg.Notifications.Telegram.ChatID = v
	}
	if v := os.Getenv("PAPERTRADER_DB"); v != "" {
		cfg.Store.Path = v
	}
	if v := os.Getenv("PAPERTRADER_OWNER"); v != "" {
		cfg.Account.DefaultOwner = v
	}
	if v := os.Getenv("PAPERTRADER_DEFAULT_BALANCE"); v != "" {
		if balance, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Account.DefaultBalance = balance
		}
	}
	if v := os.Getenv("PAPERTRADER_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Engine.PollInterval <= 0 {
		return fmt.Errorf("engine.poll_interval must be positive")
	}
	if c.Engine.FeedTimeout <= 0 {
		return fmt.Errorf("engine.feed_timeout must be positive")
	}
	if c.Account.DefaultBalance <= 0 {
		return fmt.Errorf("account.default_balance must be positive")
	}
	if c.Account.DefaultOwner == "" {
		return fmt.Errorf("account.default_owner must not be empty")
	}
	if c.Feed.Provider != "yahoo" {
		return fmt.Errorf("unknown feed provider: %s", c.Feed.Provider)
	}
	if c.Feed.Exchange != "NSE" && c.Feed.Exchange != "BSE" {
		return fmt.Errorf("feed.exchange must be NSE or BSE, got %s", c.Feed.Exchange)
	}
	switch c.Notifications.Level {
	case "", "all", "trades_only", "errors_only":
	default:
		return fmt.Errorf("invalid notification level: %s", c.Notifications.Level)
	}
	return nil
}
