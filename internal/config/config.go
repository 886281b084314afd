// Package config loads runtime configuration from an optional TOML
// file and VITALFORGE_* environment variables.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

const DefaultLogLevel = "info"

type Config struct {
	ListenAddr   string        `mapstructure:"listen_addr"`
	DatabaseURL  string        `mapstructure:"database_url"`
	LogLevel     string        `mapstructure:"log_level"`
	SyncInterval time.Duration `mapstructure:"sync_interval"`
	BackfillDays int           `mapstructure:"backfill_days"`
	FetchTimeout time.Duration `mapstructure:"fetch_timeout"`
	RetryBackoff time.Duration `mapstructure:"retry_backoff"`
	AdvisorTTL   time.Duration `mapstructure:"advisor_ttl"`

	Garmin GarminConfig `mapstructure:"garmin"`
}

type GarminConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	TokenPath string        `mapstructure:"token_path"`
	RPS       float64       `mapstructure:"rps"`
	Burst     int           `mapstructure:"burst"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// Load reads the config file named by VITALFORGE_CONFIG, if set, then
// applies VITALFORGE_* environment overrides on top of the defaults.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigType("toml")

	v.SetDefault("listen_addr", ":8080")
	v.SetDefault("database_url", "")
	v.SetDefault("log_level", DefaultLogLevel)
	v.SetDefault("sync_interval", 2*time.Hour)
	v.SetDefault("backfill_days", 90)
	v.SetDefault("fetch_timeout", 15*time.Second)
	v.SetDefault("retry_backoff", 30*time.Second)
	v.SetDefault("advisor_ttl", 6*time.Hour)
	v.SetDefault("garmin.base_url", "https://connectapi.garmin.com")
	v.SetDefault("garmin.token_path", defaultTokenPath())
	v.SetDefault("garmin.rps", 1.0)
	v.SetDefault("garmin.burst", 3)
	v.SetDefault("garmin.timeout", 10*time.Second)

	v.SetEnvPrefix("vitalforge")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path := os.Getenv("VITALFORGE_CONFIG"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if _, err := zerolog.ParseLevel(config.LogLevel); err != nil {
		return nil, fmt.Errorf("invalid log_level %q: %w", config.LogLevel, err)
	}
	if config.BackfillDays <= 0 {
		return nil, fmt.Errorf("backfill_days must be positive, got %d", config.BackfillDays)
	}
	return config, nil
}

func defaultTokenPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".garmin-token.json"
	}
	return home + "/.vitalforge/garmin-token.json"
}
