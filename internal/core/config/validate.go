package config

import (
	"fmt"
	"net/url"

	"github.com/vietddude/balancewatch/internal/core/domain"
)

// Validate rejects configurations the monitor cannot run with. The first
// problem found is returned as a *domain.ConfigurationError.
func (c *AppConfig) Validate() error {
	if c.MonitorInterval <= 0 {
		return invalid("monitor_interval", "must be greater than 0")
	}
	if c.Threshold() < 0 {
		return invalid("alert_threshold_percent", "must be >= 0")
	}
	if c.RequestTimeout <= 0 {
		return invalid("request_timeout", "must be greater than 0")
	}
	if c.Retry.MaxAttempts < 1 {
		return invalid("retry.max_attempts", "must be at least 1")
	}
	if len(c.Chains) == 0 {
		return invalid("chains", "at least one chain must be configured")
	}

	seenChains := make(map[domain.ChainID]string)
	seenWallets := make(map[domain.WalletKey]string)
	for key, cc := range c.Chains {
		field := "chains." + key
		id, err := domain.ParseChainID(key)
		if err != nil {
			return invalid(field, err.Error())
		}
		if prev, dup := seenChains[id]; dup {
			return invalid(field, fmt.Sprintf("same chain as chains.%s", prev))
		}
		seenChains[id] = key

		if err := checkURL(cc.EndpointURL); err != nil {
			return invalid(field+".endpoint_url", err.Error())
		}
		for i, fb := range cc.FallbackURLs {
			if err := checkURL(fb); err != nil {
				return invalid(fmt.Sprintf("%s.fallback_urls[%d]", field, i), err.Error())
			}
		}

		for i, w := range cc.Wallets {
			wf := fmt.Sprintf("%s.wallets[%d]", field, i)
			if w.Address == "" {
				return invalid(wf+".address", "must not be empty")
			}
			k := domain.NewWalletKey(id, w.Address)
			if prev, dup := seenWallets[k]; dup {
				return invalid(wf+".address", fmt.Sprintf("duplicate wallet %s (also %s)", k, prev))
			}
			seenWallets[k] = wf
		}
	}

	if c.Price.CacheTTL < 0 {
		return invalid("price.cache_ttl", "must not be negative")
	}

	n := c.Notifications
	if n.Telegram.Enabled && (n.Telegram.BotToken == "" || n.Telegram.ChatID == "") {
		return invalid("notifications.telegram", "bot_token and chat_id are required when enabled")
	}
	for name, wc := range map[string]WebhookConfig{
		"discord": n.Discord,
		"slack":   n.Slack,
		"webhook": n.Webhook,
	} {
		if !wc.Enabled {
			continue
		}
		if err := checkURL(wc.Target()); err != nil {
			return invalid("notifications."+name, err.Error())
		}
	}

	switch c.State.Backend {
	case BackendMemory:
	case BackendRedis, BackendPostgres, BackendSQLite:
		if c.State.URL == "" {
			return invalid("state.url", fmt.Sprintf("required for backend %q", c.State.Backend))
		}
	default:
		return invalid("state.backend", fmt.Sprintf("unknown backend %q", c.State.Backend))
	}

	return nil
}

func invalid(field, reason string) error {
	return &domain.ConfigurationError{Field: field, Reason: reason}
}

func checkURL(raw string) error {
	if raw == "" {
		return fmt.Errorf("url is required")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("url %q must be http or https", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("url %q has no host", raw)
	}
	return nil
}
