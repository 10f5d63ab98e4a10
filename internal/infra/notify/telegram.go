package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"strings"
)

// Telegram sends HTML messages through the bot API.
type Telegram struct {
	client *http.Client
	apiURL string
	token  string
	chatID string
}

// NewTelegram creates a Telegram channel. An empty apiURL uses the public API.
func NewTelegram(client *http.Client, apiURL, token, chatID string) *Telegram {
	if apiURL == "" {
		apiURL = "https://api.telegram.org"
	}
	return &Telegram{
		client: client,
		apiURL: strings.TrimRight(apiURL, "/"),
		token:  token,
		chatID: chatID,
	}
}

func (t *Telegram) Name() string { return "telegram" }

// Send implements Channel. A reply with "ok": false is a failure even on 200.
func (t *Telegram) Send(ctx context.Context, msg Message) error {
	url := fmt.Sprintf("%s/bot%s/sendMessage", t.apiURL, t.token)
	payload := map[string]any{
		"chat_id":    t.chatID,
		"text":       renderHTML(msg),
		"parse_mode": "HTML",
	}

	body, err := postJSON(ctx, t.client, url, nil, payload)
	if err != nil {
		return &redactedError{err: err, secret: t.token}
	}

	var reply struct {
		OK          bool   `json:"ok"`
		Description string `json:"description"`
	}
	if err := json.Unmarshal(body, &reply); err != nil {
		return fmt.Errorf("decode reply: %w", err)
	}
	if !reply.OK {
		return fmt.Errorf("telegram rejected message: %s", reply.Description)
	}
	return nil
}

// redactedError hides the bot token, which is part of the request URL, from
// the message while keeping the cause inspectable with errors.As.
type redactedError struct {
	err    error
	secret string
}

func (e *redactedError) Error() string {
	if e.secret == "" {
		return e.err.Error()
	}
	return strings.ReplaceAll(e.err.Error(), e.secret, "***")
}

func (e *redactedError) Unwrap() error { return e.err }

func renderHTML(msg Message) string {
	var b strings.Builder
	b.WriteString("<b>")
	b.WriteString(html.EscapeString(msg.Title))
	b.WriteString("</b>")
	for _, line := range msg.Lines {
		b.WriteString("\n")
		b.WriteString(html.EscapeString(line))
	}
	return b.String()
}
