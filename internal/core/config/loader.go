package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v2"
)

// Defaults applied by Load.
const (
	DefaultMonitorInterval  = 60
	DefaultThresholdPercent = 5.0
	DefaultRequestTimeout   = 10 * time.Second
	DefaultPriceBaseURL     = "https://api.coingecko.com/api/v3"
	DefaultTelegramAPIURL   = "https://api.telegram.org"
)

// Load reads configuration from a YAML file and applies defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML content, expanding environment variables first.
func Parse(data []byte) (*AppConfig, error) {
	var cfg AppConfig
	// Expand environment variables in the YAML content
	expandedData := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *AppConfig) {
	if cfg.MonitorInterval == 0 {
		cfg.MonitorInterval = DefaultMonitorInterval
	}
	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}

	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry.MaxAttempts = 3
	}
	if cfg.Retry.InitialDelay == 0 {
		cfg.Retry.InitialDelay = 500 * time.Millisecond
	}
	if cfg.Retry.MaxDelay == 0 {
		cfg.Retry.MaxDelay = 5 * time.Second
	}

	if cfg.Price.BaseURL == "" {
		cfg.Price.BaseURL = DefaultPriceBaseURL
	}
	if cfg.Price.CacheTTL == 0 {
		cfg.Price.CacheTTL = 60 * time.Second
	}

	if cfg.Notifications.Telegram.APIURL == "" {
		cfg.Notifications.Telegram.APIURL = DefaultTelegramAPIURL
	}
	if cfg.Notifications.Retry.MaxAttempts == 0 {
		cfg.Notifications.Retry.MaxAttempts = 1
	}
	if cfg.Notifications.Retry.InitialDelay == 0 {
		cfg.Notifications.Retry.InitialDelay = time.Second
	}

	if cfg.State.Backend == "" {
		cfg.State.Backend = BackendMemory
	}
	cfg.State.Backend = strings.ToLower(cfg.State.Backend)

	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
}
