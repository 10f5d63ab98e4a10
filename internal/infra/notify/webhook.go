package notify

import (
	"context"
	"maps"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
)

// idempotencyKeyHeader carries WebhookPayload.ID so receivers can drop
// retried deliveries.
const idempotencyKeyHeader = "Idempotency-Key"

// Discord posts to a Discord webhook.
type Discord struct {
	client *http.Client
	url    string
}

// NewDiscord creates a Discord webhook channel.
func NewDiscord(client *http.Client, url string) *Discord {
	return &Discord{client: client, url: url}
}

func (d *Discord) Name() string { return "discord" }

func (d *Discord) Send(ctx context.Context, msg Message) error {
	_, err := postJSON(ctx, d.client, d.url, nil, map[string]any{
		"content": renderMarkdown(msg, "**"),
	})
	return err
}

// Slack posts to a Slack incoming webhook.
type Slack struct {
	client *http.Client
	url    string
}

// NewSlack creates a Slack webhook channel.
func NewSlack(client *http.Client, url string) *Slack {
	return &Slack{client: client, url: url}
}

func (s *Slack) Name() string { return "slack" }

func (s *Slack) Send(ctx context.Context, msg Message) error {
	_, err := postJSON(ctx, s.client, s.url, nil, map[string]any{
		"text": renderMarkdown(msg, "*"),
	})
	return err
}

// Webhook posts a structured JSON payload to an arbitrary endpoint.
type Webhook struct {
	client  *http.Client
	url     string
	headers map[string]string
}

// NewWebhook creates a generic webhook channel.
func NewWebhook(client *http.Client, url string, headers map[string]string) *Webhook {
	return &Webhook{client: client, url: url, headers: headers}
}

func (w *Webhook) Name() string { return "webhook" }

// WebhookPayload is the body posted by the generic webhook channel.
type WebhookPayload struct {
	ID             string     `json:"id"`
	Type           string     `json:"type"` // alert or summary
	Text           string     `json:"text"`
	Chain          string     `json:"chain,omitempty"`
	Address        string     `json:"address,omitempty"`
	Name           string     `json:"name,omitempty"`
	Reason         string     `json:"reason,omitempty"`
	Basis          string     `json:"basis,omitempty"`
	PercentChange  *string    `json:"percent_change,omitempty"`
	Unbounded      bool       `json:"unbounded,omitempty"`
	Direction      int        `json:"direction,omitempty"`
	Amount         string     `json:"amount,omitempty"`
	Symbol         string     `json:"symbol,omitempty"`
	ValueUSD       *string    `json:"value_usd,omitempty"`
	PreviousAmount *string    `json:"previous_amount,omitempty"`
	ObservedAt     *time.Time `json:"observed_at,omitempty"`
}

func (w *Webhook) Send(ctx context.Context, msg Message) error {
	payload := buildPayload(msg)
	headers := maps.Clone(w.headers)
	if headers == nil {
		headers = make(map[string]string, 1)
	}
	if _, ok := headers[idempotencyKeyHeader]; !ok {
		headers[idempotencyKeyHeader] = payload.ID
	}
	_, err := postJSON(ctx, w.client, w.url, headers, payload)
	return err
}

// payloadID is stable for the same alert or summary text, so every retry of
// one delivery carries the same id.
func payloadID(p WebhookPayload) string {
	d := xxhash.New()
	if p.Type == "alert" && p.ObservedAt != nil {
		_, _ = d.WriteString(p.Chain + "|" + p.Address + "|" + p.Reason + "|")
		_, _ = d.WriteString(strconv.FormatInt(p.ObservedAt.UnixNano(), 10))
	} else {
		_, _ = d.WriteString(p.Text)
	}
	return strconv.FormatUint(d.Sum64(), 16)
}

func buildPayload(msg Message) WebhookPayload {
	p := WebhookPayload{
		Type: "summary",
		Text: msg.Title + "\n" + strings.Join(msg.Lines, "\n"),
	}
	ev := msg.Event
	if ev == nil {
		p.ID = payloadID(p)
		return p
	}

	p.Type = "alert"
	p.Chain = string(ev.Wallet.Chain)
	p.Address = ev.Wallet.Address
	p.Name = ev.Wallet.Name()
	p.Reason = string(ev.Reason)
	p.Basis = string(ev.Basis)
	p.Unbounded = ev.Unbounded
	p.Direction = ev.Direction
	p.Amount = ev.Current.RawAmount.String()
	p.Symbol = ev.Wallet.Chain.Symbol()
	observed := ev.Current.ObservedAt
	p.ObservedAt = &observed
	if ev.PercentChange.Valid {
		s := ev.PercentChange.Decimal.StringFixed(2)
		p.PercentChange = &s
	}
	if v := ev.Current.ValueUSD(); v.Valid {
		s := v.Decimal.StringFixed(2)
		p.ValueUSD = &s
	}
	if ev.Previous != nil {
		s := ev.Previous.LastAmount.String()
		p.PreviousAmount = &s
	}
	p.ID = payloadID(p)
	return p
}

func renderMarkdown(msg Message, bold string) string {
	var b strings.Builder
	b.WriteString(bold + msg.Title + bold)
	for _, line := range msg.Lines {
		b.WriteString("\n")
		b.WriteString(line)
	}
	return b.String()
}

var (
	_ Channel = (*Telegram)(nil)
	_ Channel = (*Discord)(nil)
	_ Channel = (*Slack)(nil)
	_ Channel = (*Webhook)(nil)
)
