// Package config reads the bot settings from the environment, an optional .env file and
// an optional config.yaml.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

var ErrMissingToken = errors.New("config: TELEGRAM_BOT_TOKEN is required")

const (
	StoreMemory   = "memory"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"

	SessionMemory = "memory"
	SessionRedis  = "redis"
)

type Config struct {
	TelegramBotToken string `mapstructure:"TELEGRAM_BOT_TOKEN"`

	OpenAIAPIKey  string        `mapstructure:"OPENAI_API_KEY"`
	OpenAIBaseURL string        `mapstructure:"OPENAI_BASE_URL"`
	OpenAIModel   string        `mapstructure:"OPENAI_MODEL"`
	OracleTimeout time.Duration `mapstructure:"ORACLE_TIMEOUT"`

	StoreDriver string `mapstructure:"STORE_DRIVER"`
	SQLitePath  string `mapstructure:"SQLITE_PATH"`
	DatabaseURL string `mapstructure:"DATABASE_URL"`

	SessionBackend string        `mapstructure:"SESSION_BACKEND"`
	RedisAddr      string        `mapstructure:"REDIS_ADDR"`
	RedisPassword  string        `mapstructure:"REDIS_PASSWORD"`
	RedisDB        int           `mapstructure:"REDIS_DB"`
	SessionTTL     time.Duration `mapstructure:"SESSION_TTL"`
	HistoryLimit   int           `mapstructure:"HISTORY_LIMIT"`

	CatalogPath string  `mapstructure:"CATALOG_PATH"`
	HTTPAddr    string  `mapstructure:"HTTP_ADDR"`
	SendRate    float64 `mapstructure:"SEND_RATE"`
	LogLevel    string  `mapstructure:"LOG_LEVEL"`
}

var defaults = map[string]any{
	"TELEGRAM_BOT_TOKEN": "",
	"OPENAI_API_KEY":     "",
	"OPENAI_BASE_URL":    "",
	"OPENAI_MODEL":       "gpt-4o-mini",
	"ORACLE_TIMEOUT":     "20s",
	"STORE_DRIVER":       StoreSQLite,
	"SQLITE_PATH":        "intakebot.db",
	"DATABASE_URL":       "",
	"SESSION_BACKEND":    SessionMemory,
	"REDIS_ADDR":         "localhost:6379",
	"REDIS_PASSWORD":     "",
	"REDIS_DB":           0,
	"SESSION_TTL":        "30m",
	"HISTORY_LIMIT":      10,
	"CATALOG_PATH":       "",
	"HTTP_ADDR":          "",
	"SEND_RATE":          30,
	"LOG_LEVEL":          "info",
}

// Load reads .env (if present) into the process environment, then resolves every key
// from the environment, config.yaml in . or ./config, and the defaults, in that order.
func Load() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil {
		slog.Debug("No .env file loaded", "error", err)
	}
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AutomaticEnv()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: read config file: %w", err)
		}
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.TelegramBotToken == "" {
		return ErrMissingToken
	}
	switch c.StoreDriver {
	case StoreMemory, StoreSQLite:
	case StorePostgres:
		if c.DatabaseURL == "" {
			return errors.New("config: DATABASE_URL is required for the postgres store")
		}
	default:
		return fmt.Errorf("config: unknown STORE_DRIVER %q", c.StoreDriver)
	}
	switch c.SessionBackend {
	case SessionMemory:
	case SessionRedis:
		if c.RedisAddr == "" {
			return errors.New("config: REDIS_ADDR is required for the redis session backend")
		}
	default:
		return fmt.Errorf("config: unknown SESSION_BACKEND %q", c.SessionBackend)
	}
	if c.OracleTimeout <= 0 || c.SessionTTL <= 0 {
		return errors.New("config: ORACLE_TIMEOUT and SESSION_TTL must be positive")
	}
	if c.HistoryLimit < 0 {
		return errors.New("config: HISTORY_LIMIT must not be negative")
	}
	if c.SendRate <= 0 {
		return errors.New("config: SEND_RATE must be positive")
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	return nil
}

// SlogLevel parses LOG_LEVEL (debug, info, warn or error).
func (c *Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(c.LogLevel))); err != nil {
		return 0, fmt.Errorf("config: LOG_LEVEL: %w", err)
	}
	return level, nil
}
