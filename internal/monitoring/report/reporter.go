package report

import (
	"context"
	"log/slog"

	"github.com/vietddude/balancewatch/internal/core/domain"
	"github.com/vietddude/balancewatch/internal/infra/notify"
	"github.com/vietddude/balancewatch/internal/monitoring/metrics"
)

// Reporter receives the summary of every completed tick.
type Reporter interface {
	Report(ctx context.Context, s TickSummary)
}

// MultiReporter forwards a summary to several reporters in order.
type MultiReporter []Reporter

func (m MultiReporter) Report(ctx context.Context, s TickSummary) {
	for _, r := range m {
		r.Report(ctx, s)
	}
}

// LogReporter writes the summary as structured log lines.
type LogReporter struct {
	log *slog.Logger
}

// NewLogReporter creates a reporter writing to log (slog.Default when nil).
func NewLogReporter(log *slog.Logger) *LogReporter {
	if log == nil {
		log = slog.Default()
	}
	return &LogReporter{log: log}
}

func (r *LogReporter) Report(_ context.Context, s TickSummary) {
	tick := s.ID.String()

	for _, w := range s.Wallets {
		if !w.OK() {
			r.log.Warn("Balance fetch failed",
				"tick", tick,
				"chain", w.Wallet.Chain,
				"wallet", w.Wallet.Name(),
				"address", w.Wallet.Address,
				"error", w.Err,
			)
			continue
		}
		attrs := []any{
			"tick", tick,
			"chain", w.Wallet.Chain,
			"wallet", w.Wallet.Name(),
			"balance", w.Observation.RawAmount.StringFixed(6),
			"symbol", w.Wallet.Chain.Symbol(),
		}
		if v := w.Observation.ValueUSD(); v.Valid {
			attrs = append(attrs, "usd", v.Decimal.StringFixed(2))
		}
		r.log.Info("Balance", attrs...)
	}

	for _, d := range s.Deliveries {
		for _, res := range d.Results {
			if res.Status == domain.DeliverySuccess {
				r.log.Info("Alert delivered",
					"tick", tick,
					"wallet", d.Alert.Wallet.Name(),
					"reason", d.Alert.Reason,
					"channel", res.Channel,
				)
				continue
			}
			r.log.Warn("Alert delivery failed",
				"tick", tick,
				"wallet", d.Alert.Wallet.Name(),
				"reason", d.Alert.Reason,
				"channel", res.Channel,
				"error", res.Err,
			)
		}
	}

	if s.PriceErr != nil {
		r.log.Warn("Price lookup degraded", "tick", tick, "error", s.PriceErr)
	}
	if s.PersistErr != nil {
		r.log.Warn("Snapshot persistence failed", "tick", tick, "error", s.PersistErr)
	}

	r.log.Info("Tick complete",
		"tick", tick,
		"ok", s.Succeeded(),
		"failed", s.Failed(),
		"alerts", len(s.Alerts()),
		"duration", s.Duration(),
	)
}

// Sender delivers a rendered message to notification channels.
type Sender interface {
	Send(ctx context.Context, msg notify.Message) []domain.DeliveryResult
}

// NotifyReporter sends every summary to the notification channels.
type NotifyReporter struct {
	sender Sender
	log    *slog.Logger
}

// NewNotifyReporter creates a reporter that forwards summaries to sender.
// Failed summary deliveries are logged to log (slog.Default when nil).
func NewNotifyReporter(sender Sender, log *slog.Logger) *NotifyReporter {
	if log == nil {
		log = slog.Default()
	}
	return &NotifyReporter{sender: sender, log: log}
}

func (r *NotifyReporter) Report(ctx context.Context, s TickSummary) {
	if len(s.Wallets) == 0 {
		return
	}
	for _, res := range r.sender.Send(ctx, s.Message()) {
		metrics.DeliveriesTotal.WithLabelValues(res.Channel, string(res.Status)).Inc()
		if res.Status == domain.DeliverySuccess {
			continue
		}
		r.log.Warn("Summary delivery failed",
			"tick", s.ID.String(),
			"channel", res.Channel,
			"attempts", res.Attempts,
			"error", res.Err,
		)
	}
}
