package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// WalletConfig is an immutable monitored address, loaded once at startup.
type WalletConfig struct {
	Chain       ChainID
	Address     string
	DisplayName string
}

// Key returns the unique identity of the wallet.
func (w WalletConfig) Key() WalletKey {
	return NewWalletKey(w.Chain, w.Address)
}

// Name returns the display name, or a shortened address when none is configured.
func (w WalletConfig) Name() string {
	if w.DisplayName != "" {
		return w.DisplayName
	}
	if len(w.Address) > 10 {
		return w.Address[:10] + "..."
	}
	return w.Address
}

// WalletKey is the (chain, address) identity of a monitored wallet.
type WalletKey struct {
	Chain   ChainID
	Address string
}

// NewWalletKey builds a key with the address normalised for its chain.
// Hex-addressed chains are case-insensitive; base58 chains are not.
func NewWalletKey(chain ChainID, address string) WalletKey {
	address = strings.TrimSpace(address)
	switch chain {
	case ChainETH, ChainAPT, ChainSUI:
		address = strings.ToLower(address)
	}
	return WalletKey{Chain: chain, Address: address}
}

func (k WalletKey) String() string {
	return string(k.Chain) + ":" + k.Address
}

// BalanceObservation is a fresh balance read produced during a tick.
type BalanceObservation struct {
	Wallet       WalletConfig
	RawAmount    decimal.Decimal
	UnitPriceUSD decimal.NullDecimal
	ObservedAt   time.Time
}

// ValueUSD returns the fiat value of the observation when the unit price is known.
func (o BalanceObservation) ValueUSD() decimal.NullDecimal {
	if !o.UnitPriceUSD.Valid {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(o.RawAmount.Mul(o.UnitPriceUSD.Decimal))
}

// WalletState is the last successful observation of a wallet.
type WalletState struct {
	Key            WalletKey           `json:"key"`
	LastAmount     decimal.Decimal     `json:"last_amount"`
	LastValueUSD   decimal.NullDecimal `json:"last_value_usd"`
	LastObservedAt time.Time           `json:"last_observed_at"`
}

// StateFromObservation builds the state recorded after a successful observation.
func StateFromObservation(o BalanceObservation) WalletState {
	return WalletState{
		Key:            o.Wallet.Key(),
		LastAmount:     o.RawAmount,
		LastValueUSD:   o.ValueUSD(),
		LastObservedAt: o.ObservedAt,
	}
}
