// Package notify delivers alerts and tick summaries to chat and webhook
// channels.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/vietddude/balancewatch/internal/core/config"
	"github.com/vietddude/balancewatch/internal/core/domain"
)

// Channel is one notification destination.
type Channel interface {
	Name() string
	Send(ctx context.Context, msg Message) error
}

// Message is a rendered notification. Event is nil for summaries.
type Message struct {
	Title string
	Lines []string
	Event *domain.AlertEvent
}

// StatusError is a non-2xx reply from a channel endpoint.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, e.Body)
}

// NewChannels builds every enabled channel from configuration.
func NewChannels(cfg config.NotificationsConfig) []Channel {
	client := &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:    10,
			IdleConnTimeout: 90 * time.Second,
		},
	}

	var out []Channel
	if cfg.Telegram.Enabled {
		out = append(out, NewTelegram(client, cfg.Telegram.APIURL, cfg.Telegram.BotToken, cfg.Telegram.ChatID))
	}
	if cfg.Discord.Enabled {
		out = append(out, NewDiscord(client, cfg.Discord.Target()))
	}
	if cfg.Slack.Enabled {
		out = append(out, NewSlack(client, cfg.Slack.Target()))
	}
	if cfg.Webhook.Enabled {
		out = append(out, NewWebhook(client, cfg.Webhook.Target(), cfg.Webhook.Headers))
	}
	return out
}

// postJSON posts payload and returns the response body of a 2xx reply.
func postJSON(
	ctx context.Context,
	client *http.Client,
	url string,
	headers map[string]string,
	payload any,
) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: truncate(string(body))}
	}
	return body, nil
}

func truncate(s string) string {
	const limit = 256
	if len(s) > limit {
		return s[:limit] + "..."
	}
	return s
}
