package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Environment variables consulted after the config file.
const (
	EnvElasticEndpoint = "ELASTIC_ENDPOINT"
	EnvBotToken        = "TELEGRAM_BOT_TOKEN"
	EnvWebhookURL      = "TGSEARCH_WEBHOOK_URL"
	EnvLogLevel        = "TGSEARCH_LOG_LEVEL"
)

// Delivery modes for Telegram updates.
const (
	ModePolling = "polling"
	ModeWebhook = "webhook"
)

// Config represents the global ~/.tgsearch/config.toml.
type Config struct {
	DefaultInstance string         `toml:"default_instance"`
	Workers         int            `toml:"workers"`
	Elastic         ElasticConfig  `toml:"elastic"`
	Telegram        TelegramConfig `toml:"telegram"`
	Log             LogConfig      `toml:"log"`
}

// ElasticConfig controls the search engine connection and index schema.
type ElasticConfig struct {
	Endpoint            string        `toml:"endpoint"`
	IndexPrefix         string        `toml:"index_prefix"`
	IndexAnalyzer       string        `toml:"index_analyzer"`
	SearchAnalyzer      string        `toml:"search_analyzer"`
	SenderUsernameField bool          `toml:"sender_username_field"`
	CacheEnsuredIndices bool          `toml:"cache_ensured_indices"`
	PingTimeout         time.Duration `toml:"ping_timeout"`
}

// TelegramConfig controls how updates are received from Telegram.
type TelegramConfig struct {
	Token         string `toml:"token"`
	Mode          string `toml:"mode"`
	PollTimeout   int    `toml:"poll_timeout"`
	WebhookURL    string `toml:"webhook_url"`
	WebhookListen string `toml:"webhook_listen"`
	IndexEdits    bool   `toml:"index_edits"`
	Debug         bool   `toml:"debug"`
}

// LogConfig controls the daemon log file.
type LogConfig struct {
	Level      string `toml:"level"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days"`
	Compress   bool   `toml:"compress"`
}

// Default returns the configuration used for keys absent from the file.
func Default() *Config {
	return &Config{
		Elastic: ElasticConfig{
			IndexPrefix:         "telegram_index_",
			IndexAnalyzer:       "ik_max_word",
			SearchAnalyzer:      "ik_smart",
			SenderUsernameField: true,
			PingTimeout:         5 * time.Second,
		},
		Telegram: TelegramConfig{
			Mode:          ModePolling,
			PollTimeout:   60,
			WebhookListen: ":8443",
			IndexEdits:    true,
		},
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  50,
			MaxBackups: 5,
			MaxAgeDays: 30,
		},
	}
}

// Load reads config from the given path on top of Default. Returns error if file missing.
func Load(path string) (*Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadWithEnv builds the daemon configuration: the config file if present,
// then envFile (if present) into the process environment, then environment
// overrides. Neither file is required.
func LoadWithEnv(path, envFile string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		cfg, err = Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}

	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := strings.TrimSpace(os.Getenv(EnvElasticEndpoint)); v != "" {
		c.Elastic.Endpoint = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvBotToken)); v != "" {
		c.Telegram.Token = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvWebhookURL)); v != "" {
		c.Telegram.WebhookURL = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		c.Log.Level = v
	}
}

// Validate reports configuration the daemon cannot start without.
func (c *Config) Validate() error {
	if c.Elastic.Endpoint == "" {
		return fmt.Errorf("%s is not set", EnvElasticEndpoint)
	}
	if c.Telegram.Token == "" {
		return fmt.Errorf("%s is not set", EnvBotToken)
	}
	if c.Elastic.IndexPrefix == "" {
		return errors.New("elastic.index_prefix must not be empty")
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must be >= 0, got %d", c.Workers)
	}
	switch c.Telegram.Mode {
	case ModePolling:
	case ModeWebhook:
		if c.Telegram.WebhookURL == "" {
			return fmt.Errorf("webhook mode requires %s or telegram.webhook_url", EnvWebhookURL)
		}
	default:
		return fmt.Errorf("unknown telegram.mode %q", c.Telegram.Mode)
	}
	return nil
}

// Save writes config to the given path, creating parent dirs as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	encErr := toml.NewEncoder(f).Encode(cfg)
	if closeErr := f.Close(); closeErr != nil && encErr == nil {
		return closeErr
	}
	return encErr
}
