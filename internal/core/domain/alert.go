package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// AlertReason explains why an AlertEvent was produced.
type AlertReason string

const (
	AlertReasonFirstObservation  AlertReason = "first_observation"
	AlertReasonThresholdExceeded AlertReason = "threshold_exceeded"
)

// ComparisonBasis tells which quantity a percent change was computed over.
type ComparisonBasis string

const (
	BasisNone ComparisonBasis = ""
	BasisUSD  ComparisonBasis = "usd"
	BasisRaw  ComparisonBasis = "raw"
)

// AlertEvent is an alert-worthy change, consumed immediately by the dispatcher.
type AlertEvent struct {
	Wallet   WalletConfig
	Previous *WalletState
	Current  BalanceObservation
	Reason   AlertReason
	Basis    ComparisonBasis

	// PercentChange is absolute and only valid when Previous is set.
	PercentChange decimal.NullDecimal
	// Unbounded marks a change from zero to a nonzero value.
	Unbounded bool
	// Direction is -1, 0 or 1 for a decrease, no change or increase.
	Direction int
}

// DeliveryStatus is the outcome of one channel delivery.
type DeliveryStatus string

const (
	DeliverySuccess DeliveryStatus = "success"
	DeliveryFailed  DeliveryStatus = "failed"
)

// DeliveryResult is the per-channel outcome of a dispatch.
type DeliveryResult struct {
	Channel  string         `json:"channel"`
	Status   DeliveryStatus `json:"status"`
	Err      error          `json:"-"`
	Attempts int            `json:"attempts"`
	Duration time.Duration  `json:"duration"`
}

// Reason returns the failure reason, or an empty string on success.
func (r DeliveryResult) Reason() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}
