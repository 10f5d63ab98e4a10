// Package report describes the outcome of a tick and hands it to reporters.
package report

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/vietddude/balancewatch/internal/core/domain"
	"github.com/vietddude/balancewatch/internal/infra/notify"
)

// WalletResult is the per-wallet outcome of a tick. Exactly one of
// Observation and Err is set.
type WalletResult struct {
	Wallet      domain.WalletConfig
	Observation *domain.BalanceObservation
	Err         error
	Alert       *domain.AlertEvent
	Duration    time.Duration
}

// OK reports whether the balance was read.
func (r WalletResult) OK() bool {
	return r.Err == nil && r.Observation != nil
}

// AlertDelivery pairs an alert with its per-channel results.
type AlertDelivery struct {
	Alert   domain.AlertEvent
	Results []domain.DeliveryResult
}

// TickSummary is the complete accounting of one tick.
type TickSummary struct {
	ID         uuid.UUID
	StartedAt  time.Time
	FinishedAt time.Time
	Wallets    []WalletResult
	PriceErr   error
	Deliveries []AlertDelivery
	PersistErr error
}

// NewTickSummary starts a summary with a fresh ID.
func NewTickSummary(started time.Time) TickSummary {
	return TickSummary{ID: uuid.New(), StartedAt: started}
}

// Duration returns the wall time of the tick.
func (s TickSummary) Duration() time.Duration {
	return s.FinishedAt.Sub(s.StartedAt)
}

// Succeeded returns the number of wallets read successfully.
func (s TickSummary) Succeeded() int {
	n := 0
	for _, w := range s.Wallets {
		if w.OK() {
			n++
		}
	}
	return n
}

// Failed returns the number of wallets that could not be read.
func (s TickSummary) Failed() int {
	return len(s.Wallets) - s.Succeeded()
}

// Alerts returns the alerts raised in the tick, in wallet order.
func (s TickSummary) Alerts() []domain.AlertEvent {
	var out []domain.AlertEvent
	for _, w := range s.Wallets {
		if w.Alert != nil {
			out = append(out, *w.Alert)
		}
	}
	return out
}

// FailedDeliveries counts channel deliveries that did not succeed.
func (s TickSummary) FailedDeliveries() int {
	n := 0
	for _, d := range s.Deliveries {
		for _, r := range d.Results {
			if r.Status != domain.DeliverySuccess {
				n++
			}
		}
	}
	return n
}

// Lines renders one human-readable line per wallet.
func (s TickSummary) Lines() []string {
	lines := make([]string, 0, len(s.Wallets))
	for _, w := range s.Wallets {
		prefix := fmt.Sprintf("[%s] %s", w.Wallet.Chain, w.Wallet.Name())
		if !w.OK() {
			lines = append(lines, fmt.Sprintf("%s: failed: %v", prefix, w.Err))
			continue
		}
		obs := w.Observation
		lines = append(lines, prefix+": "+notify.FormatAmount(obs.RawAmount, w.Wallet.Chain.Symbol(), obs.ValueUSD()))
	}
	return lines
}

// Message renders the summary for notification channels.
func (s TickSummary) Message() notify.Message {
	title := fmt.Sprintf("📊 Balance summary %s (%d ok, %d failed)",
		s.StartedAt.UTC().Format("2006-01-02 15:04:05"), s.Succeeded(), s.Failed())
	return notify.Message{Title: title, Lines: s.Lines()}
}

type walletJSON struct {
	Chain      domain.ChainID `json:"chain"`
	Address    string         `json:"address"`
	Name       string         `json:"name"`
	OK         bool           `json:"ok"`
	Amount     string         `json:"amount,omitempty"`
	PriceUSD   string         `json:"price_usd,omitempty"`
	ValueUSD   string         `json:"value_usd,omitempty"`
	Error      string         `json:"error,omitempty"`
	Alert      string         `json:"alert,omitempty"`
	DurationMs int64          `json:"duration_ms"`
}

type deliveryJSON struct {
	Chain   domain.ChainID `json:"chain"`
	Address string         `json:"address"`
	Reason  string         `json:"reason"`
	Channel string         `json:"channel"`
	Status  string         `json:"status"`
	Error   string         `json:"error,omitempty"`
}

// MarshalJSON renders errors as strings for the health endpoint.
func (s TickSummary) MarshalJSON() ([]byte, error) {
	out := struct {
		ID         string         `json:"id"`
		StartedAt  time.Time      `json:"started_at"`
		FinishedAt time.Time      `json:"finished_at"`
		Succeeded  int            `json:"succeeded"`
		Failed     int            `json:"failed"`
		PriceError string         `json:"price_error,omitempty"`
		Persist    string         `json:"persist_error,omitempty"`
		Wallets    []walletJSON   `json:"wallets"`
		Deliveries []deliveryJSON `json:"deliveries,omitempty"`
	}{
		ID:         s.ID.String(),
		StartedAt:  s.StartedAt,
		FinishedAt: s.FinishedAt,
		Succeeded:  s.Succeeded(),
		Failed:     s.Failed(),
		PriceError: errString(s.PriceErr),
		Persist:    errString(s.PersistErr),
		Wallets:    make([]walletJSON, 0, len(s.Wallets)),
	}

	for _, w := range s.Wallets {
		wj := walletJSON{
			Chain:      w.Wallet.Chain,
			Address:    w.Wallet.Address,
			Name:       w.Wallet.Name(),
			OK:         w.OK(),
			Error:      errString(w.Err),
			DurationMs: w.Duration.Milliseconds(),
		}
		if w.Observation != nil {
			wj.Amount = w.Observation.RawAmount.String()
			if w.Observation.UnitPriceUSD.Valid {
				wj.PriceUSD = w.Observation.UnitPriceUSD.Decimal.String()
				wj.ValueUSD = w.Observation.ValueUSD().Decimal.StringFixed(2)
			}
		}
		if w.Alert != nil {
			wj.Alert = string(w.Alert.Reason)
		}
		out.Wallets = append(out.Wallets, wj)
	}

	for _, d := range s.Deliveries {
		for _, r := range d.Results {
			out.Deliveries = append(out.Deliveries, deliveryJSON{
				Chain:   d.Alert.Wallet.Chain,
				Address: d.Alert.Wallet.Address,
				Reason:  string(d.Alert.Reason),
				Channel: r.Channel,
				Status:  string(r.Status),
				Error:   r.Reason(),
			})
		}
	}

	return json.Marshal(out)
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
