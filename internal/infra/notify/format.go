package notify

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/vietddude/balancewatch/internal/core/domain"
)

// FormatAlert renders an alert event as a channel-neutral message.
func FormatAlert(ev domain.AlertEvent) Message {
	symbol := ev.Wallet.Chain.Symbol()
	chain := string(ev.Wallet.Chain)
	if info, ok := ev.Wallet.Chain.Info(); ok {
		chain = fmt.Sprintf("%s (%s)", info.Name, info.ID)
	}

	title := "🔔 Wallet balance change"
	if ev.Reason == domain.AlertReasonFirstObservation {
		title = "👀 Wallet now monitored"
	}

	lines := []string{
		"Chain: " + chain,
		"Wallet: " + ev.Wallet.Name(),
		"Address: " + ev.Wallet.Address,
		"Change: " + describeChange(ev),
		"Balance: " + FormatAmount(ev.Current.RawAmount, symbol, ev.Current.ValueUSD()),
	}
	if ev.Previous != nil {
		lines = append(lines, "Previous: "+FormatAmount(ev.Previous.LastAmount, symbol, ev.Previous.LastValueUSD))
	}

	return Message{Title: title, Lines: lines, Event: &ev}
}

func describeChange(ev domain.AlertEvent) string {
	if ev.Reason == domain.AlertReasonFirstObservation {
		return "first observation"
	}

	dir := "no change"
	switch {
	case ev.Direction > 0:
		dir = "📈 increase"
	case ev.Direction < 0:
		dir = "📉 decrease"
	}
	if ev.Unbounded {
		return dir + " from zero"
	}
	if !ev.PercentChange.Valid {
		return dir
	}
	return fmt.Sprintf("%s %s%% (%s basis)", dir, ev.PercentChange.Decimal.StringFixed(2), ev.Basis)
}

// FormatAmount renders a native amount with its fiat value when known.
func FormatAmount(amount decimal.Decimal, symbol string, usd decimal.NullDecimal) string {
	s := amount.StringFixed(6) + " " + symbol
	if usd.Valid {
		s += " ($" + usd.Decimal.StringFixed(2) + ")"
	}
	return s
}
