package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

var ErrMissingRemoteURL = errors.New("remote sync enabled but no base URL configured")

// Config holds application configuration loaded from files and environment variables.
type Config struct {
	Env     string  `mapstructure:"env"`     // current application environment (local, dev, prod etc)
	Remote  Remote  `mapstructure:"remote"`  // remote progress service section
	Cache   Cache   `mapstructure:"cache"`   // on-device cache section
	Session Session `mapstructure:"session"` // study-session tracking section
	Vocab   Vocab   `mapstructure:"vocab"`   // vocabulary content section
}

// Remote configures the REST client for the remote progress service.
type Remote struct {
	BaseURL string        `mapstructure:"base_url"` // service root, e.g. https://api.example.com/v1
	Token   string        `mapstructure:"-"`        // bearer credential loaded from environment
	Enabled bool          `mapstructure:"enabled"`  // when false the store runs local-only from the start
	Timeout time.Duration `mapstructure:"timeout"`  // per-request HTTP timeout
}

// Cache configures the on-device SQLite cache.
type Cache struct {
	Path string `mapstructure:"path"` // cache database file
}

// Session configures study-session accumulation.
type Session struct {
	FlushInterval time.Duration `mapstructure:"flush_interval"` // how often accumulated study time is flushed
	MinDuration   time.Duration `mapstructure:"min_duration"`   // sessions shorter than this are discarded
}

// Vocab configures vocabulary content loading.
type Vocab struct {
	Path string `mapstructure:"path"` // path to the vocabulary JSON dataset
}

// Load reads configuration from config files and environment variables.
func Load() (*Config, error) {
	// Initialize Viper instance and base config options.
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")

	// Set default values for configuration keys.
	v.SetDefault("env", "local")
	v.SetDefault("remote.enabled", true)
	v.SetDefault("remote.timeout", "10s")
	v.SetDefault("cache.path", "data/vocadrill.db")
	v.SetDefault("session.flush_interval", "30s")
	v.SetDefault("session.min_duration", "10s")
	v.SetDefault("vocab.path", "assets/vocab.json")

	// Configure environment variable handling and key mapping.
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_")) // map nested keys to ENV style names
	v.AutomaticEnv()

	// Bind explicit environment variables to configuration keys.
	_ = v.BindEnv("remote.base_url", "VOCADRILL_REMOTE_URL")
	_ = v.BindEnv("remote_token", "VOCADRILL_API_TOKEN")
	_ = v.BindEnv("env", "APP_ENV")

	// Try to read configuration file if present.
	if err := v.ReadInConfig(); err != nil {
		var fileLookupErr viper.ConfigFileNotFoundError
		if !errors.As(err, &fileLookupErr) {
			return nil, fmt.Errorf("error loading config file: %w", err)
		}
	}

	// Unmarshal configuration into strongly typed struct.
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}

	// Load sensitive values from environment variables. The token is
	// optional: without it the store still works against the local cache.
	cfg.Remote.Token = v.GetString("remote_token")

	if cfg.Remote.Enabled && cfg.Remote.BaseURL == "" {
		return nil, ErrMissingRemoteURL
	}

	return &cfg, nil
}
