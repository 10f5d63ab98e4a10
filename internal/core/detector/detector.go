// Package detector decides whether a balance observation is alert-worthy.
package detector

import (
	"github.com/shopspring/decimal"

	"github.com/vietddude/balancewatch/internal/core/domain"
	"github.com/vietddude/balancewatch/internal/infra/storage"
)

var hundred = decimal.NewFromInt(100)

// Evaluate compares obs against prior and returns an alert, or nil.
//
// With no prior state the result is always a FirstObservation alert. Otherwise
// the change is measured in USD when both sides carry a fiat value and in
// native units when either price is unknown. A move away from zero has no
// finite percentage and always alerts.
func Evaluate(obs domain.BalanceObservation, prior *domain.WalletState, threshold decimal.Decimal) *domain.AlertEvent {
	ev := &domain.AlertEvent{
		Wallet:  obs.Wallet,
		Current: obs,
	}

	if prior == nil {
		ev.Reason = domain.AlertReasonFirstObservation
		return ev
	}

	p := *prior
	ev.Previous = &p

	prev, cur := p.LastAmount, obs.RawAmount
	ev.Basis = domain.BasisRaw
	if v := obs.ValueUSD(); v.Valid && p.LastValueUSD.Valid {
		prev, cur = p.LastValueUSD.Decimal, v.Decimal
		ev.Basis = domain.BasisUSD
	}
	ev.Direction = cur.Cmp(prev)

	if prev.IsZero() {
		if cur.IsZero() {
			ev.PercentChange = decimal.NewNullDecimal(decimal.Zero)
			if decimal.Zero.GreaterThanOrEqual(threshold) {
				ev.Reason = domain.AlertReasonThresholdExceeded
				return ev
			}
			return nil
		}
		ev.Unbounded = true
		ev.Reason = domain.AlertReasonThresholdExceeded
		return ev
	}

	pct := cur.Sub(prev).Abs().Div(prev.Abs()).Mul(hundred)
	ev.PercentChange = decimal.NewNullDecimal(pct)
	if pct.GreaterThanOrEqual(threshold) {
		ev.Reason = domain.AlertReasonThresholdExceeded
		return ev
	}
	return nil
}

// Detector applies Evaluate against a state store and records every
// observation it sees.
type Detector struct {
	store     storage.StateStore
	threshold decimal.Decimal
}

// New creates a detector with the given threshold in percent.
func New(store storage.StateStore, thresholdPercent float64) *Detector {
	return &Detector{
		store:     store,
		threshold: decimal.NewFromFloat(thresholdPercent),
	}
}

// Threshold returns the configured threshold in percent.
func (d *Detector) Threshold() decimal.Decimal {
	return d.threshold
}

// Observe evaluates a successful observation and then stores it as the
// wallet's latest state, whether or not it alerted.
func (d *Detector) Observe(obs domain.BalanceObservation) *domain.AlertEvent {
	key := obs.Wallet.Key()

	var prior *domain.WalletState
	if st, ok := d.store.Get(key); ok {
		prior = &st
	}

	ev := Evaluate(obs, prior, d.threshold)
	d.store.Put(key, domain.StateFromObservation(obs))
	return ev
}
