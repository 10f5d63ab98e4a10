package config

import (
	"time"

	"github.com/vietddude/balancewatch/internal/core/domain"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	MonitorInterval       int                    `yaml:"monitor_interval"` // seconds
	AlertThresholdPercent *float64               `yaml:"alert_threshold_percent"`
	RequestTimeout        time.Duration          `yaml:"request_timeout"`
	Retry                 RetryConfig            `yaml:"retry"`
	Chains                map[string]ChainConfig `yaml:"chains"`
	Price                 PriceConfig            `yaml:"price"`
	Notifications         NotificationsConfig    `yaml:"notifications"`
	State                 StateConfig            `yaml:"state"`
	Server                ServerConfig           `yaml:"server"`
	Logging               LoggingConfig          `yaml:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// RetryConfig holds backoff settings for outbound calls.
type RetryConfig struct {
	MaxAttempts  int           `yaml:"max_attempts"`
	InitialDelay time.Duration `yaml:"initial_delay"`
	MaxDelay     time.Duration `yaml:"max_delay"`
}

// ChainConfig holds the endpoint and wallets for one network.
type ChainConfig struct {
	EndpointURL  string            `yaml:"endpoint_url"`
	FallbackURLs []string          `yaml:"fallback_urls"`
	Headers      map[string]string `yaml:"headers"`
	Wallets      []WalletEntry     `yaml:"wallets"`
}

// WalletEntry is one monitored address as written in the file.
type WalletEntry struct {
	Address string `yaml:"address"`
	Name    string `yaml:"name"`
}

// PriceConfig holds price oracle settings.
type PriceConfig struct {
	BaseURL  string            `yaml:"base_url"`
	APIKey   string            `yaml:"api_key"`
	CacheTTL time.Duration     `yaml:"cache_ttl"`
	CoinIDs  map[string]string `yaml:"coin_ids"` // symbol -> coingecko id
}

// NotificationsConfig holds every channel plus shared delivery settings.
type NotificationsConfig struct {
	Telegram    TelegramConfig `yaml:"telegram"`
	Discord     WebhookConfig  `yaml:"discord"`
	Slack       WebhookConfig  `yaml:"slack"`
	Webhook     WebhookConfig  `yaml:"webhook"`
	Retry       RetryConfig    `yaml:"retry"`
	SendSummary bool           `yaml:"send_summary"`
}

// TelegramConfig addresses a chat through the bot API.
type TelegramConfig struct {
	Enabled  bool   `yaml:"enabled"`
	BotToken string `yaml:"bot_token"`
	ChatID   string `yaml:"chat_id"`
	APIURL   string `yaml:"api_url"`
}

// WebhookConfig posts to a URL. Discord and Slack ignore Headers.
type WebhookConfig struct {
	Enabled    bool              `yaml:"enabled"`
	WebhookURL string            `yaml:"webhook_url"`
	URL        string            `yaml:"url"`
	Headers    map[string]string `yaml:"headers"`
}

// Target returns the configured URL, accepting either key.
func (w WebhookConfig) Target() string {
	if w.WebhookURL != "" {
		return w.WebhookURL
	}
	return w.URL
}

// StateConfig selects where the prior wallet snapshot is persisted.
type StateConfig struct {
	Backend string `yaml:"backend"` // memory, redis, postgres, sqlite
	URL     string `yaml:"url"`
}

// State backends.
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
)

// Interval returns the monitoring interval as a duration.
func (c *AppConfig) Interval() time.Duration {
	return time.Duration(c.MonitorInterval) * time.Second
}

// Threshold returns the alert threshold in percent.
func (c *AppConfig) Threshold() float64 {
	if c.AlertThresholdPercent == nil {
		return DefaultThresholdPercent
	}
	return *c.AlertThresholdPercent
}

// ChainSettings is a validated chain section keyed by its resolved ChainID.
type ChainSettings struct {
	ID      domain.ChainID
	Config  ChainConfig
	Wallets []domain.WalletConfig
}

// ResolvedChains returns the chain sections with aliases resolved, in a
// stable order. Call after Validate.
func (c *AppConfig) ResolvedChains() []ChainSettings {
	byID := make(map[domain.ChainID]ChainSettings, len(c.Chains))
	for key, cc := range c.Chains {
		id, err := domain.ParseChainID(key)
		if err != nil {
			continue
		}
		wallets := make([]domain.WalletConfig, 0, len(cc.Wallets))
		for _, w := range cc.Wallets {
			wallets = append(wallets, domain.WalletConfig{
				Chain:       id,
				Address:     w.Address,
				DisplayName: w.Name,
			})
		}
		byID[id] = ChainSettings{ID: id, Config: cc, Wallets: wallets}
	}

	out := make([]ChainSettings, 0, len(byID))
	for _, id := range domain.SupportedChains() {
		if cs, ok := byID[id]; ok {
			out = append(out, cs)
		}
	}
	return out
}

// Wallets returns every configured wallet in chain then file order.
func (c *AppConfig) Wallets() []domain.WalletConfig {
	var out []domain.WalletConfig
	for _, cs := range c.ResolvedChains() {
		out = append(out, cs.Wallets...)
	}
	return out
}
