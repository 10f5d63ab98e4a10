package detector

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/vietddude/balancewatch/internal/core/domain"
	"github.com/vietddude/balancewatch/internal/infra/storage/memory"
)

var wallet = domain.WalletConfig{Chain: domain.ChainETH, Address: "0xabc", DisplayName: "main"}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func observe(amount, price string) domain.BalanceObservation {
	obs := domain.BalanceObservation{
		Wallet:     wallet,
		RawAmount:  d(amount),
		ObservedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	if price != "" {
		obs.UnitPriceUSD = decimal.NewNullDecimal(d(price))
	}
	return obs
}

func prior(amount, usd string) *domain.WalletState {
	st := &domain.WalletState{Key: wallet.Key(), LastAmount: d(amount)}
	if usd != "" {
		st.LastValueUSD = decimal.NewNullDecimal(d(usd))
	}
	return st
}

func TestEvaluate_FirstObservation(t *testing.T) {
	for _, threshold := range []string{"0", "5", "1000000"} {
		ev := Evaluate(observe("0", ""), nil, d(threshold))
		require.NotNil(t, ev)
		require.Equal(t, domain.AlertReasonFirstObservation, ev.Reason)
		require.Nil(t, ev.Previous)
		require.False(t, ev.PercentChange.Valid)
	}
}

func TestEvaluate_ThresholdScenarios(t *testing.T) {
	tests := []struct {
		name      string
		prev      *domain.WalletState
		obs       domain.BalanceObservation
		threshold string
		alert     bool
		pct       string
		basis     domain.ComparisonBasis
		direction int
	}{
		{
			name:      "usd 1000 to 1060 at 5%",
			prev:      prior("1", "1000"),
			obs:       observe("1.06", "1000"),
			threshold: "5",
			alert:     true,
			pct:       "6",
			basis:     domain.BasisUSD,
			direction: 1,
		},
		{
			name:      "usd 1000 to 1040 at 5%",
			prev:      prior("1", "1000"),
			obs:       observe("1.04", "1000"),
			threshold: "5",
			alert:     false,
		},
		{
			name:      "exactly at threshold",
			prev:      prior("100", ""),
			obs:       observe("95", ""),
			threshold: "5",
			alert:     true,
			pct:       "5",
			basis:     domain.BasisRaw,
			direction: -1,
		},
		{
			name:      "price unknown now falls back to raw",
			prev:      prior("10", "20000"),
			obs:       observe("10.4", ""),
			threshold: "5",
			alert:     false,
		},
		{
			name:      "price unknown before falls back to raw",
			prev:      prior("10", ""),
			obs:       observe("11", "2000"),
			threshold: "5",
			alert:     true,
			pct:       "10",
			basis:     domain.BasisRaw,
			direction: 1,
		},
		{
			name:      "price move alone crosses usd threshold",
			prev:      prior("2", "2000"),
			obs:       observe("2", "1100"),
			threshold: "5",
			alert:     true,
			pct:       "10",
			basis:     domain.BasisUSD,
			direction: 1,
		},
		{
			name:      "zero threshold alerts on no change",
			prev:      prior("3", ""),
			obs:       observe("3", ""),
			threshold: "0",
			alert:     true,
			pct:       "0",
			basis:     domain.BasisRaw,
			direction: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := Evaluate(tt.obs, tt.prev, d(tt.threshold))
			if !tt.alert {
				require.Nil(t, ev)
				return
			}
			require.NotNil(t, ev)
			require.Equal(t, domain.AlertReasonThresholdExceeded, ev.Reason)
			require.True(t, ev.PercentChange.Valid)
			require.True(t, ev.PercentChange.Decimal.Equal(d(tt.pct)), "got %s", ev.PercentChange.Decimal)
			require.Equal(t, tt.basis, ev.Basis)
			require.Equal(t, tt.direction, ev.Direction)
			require.NotNil(t, ev.Previous)
		})
	}
}

func TestEvaluate_FromZero(t *testing.T) {
	ev := Evaluate(observe("0.0001", ""), prior("0", ""), d("1000000"))
	require.NotNil(t, ev)
	require.Equal(t, domain.AlertReasonThresholdExceeded, ev.Reason)
	require.True(t, ev.Unbounded)
	require.False(t, ev.PercentChange.Valid)
	require.Equal(t, 1, ev.Direction)

	ev = Evaluate(observe("0", ""), prior("0", ""), d("5"))
	require.Nil(t, ev)
}

func TestEvaluate_DoesNotAliasPrior(t *testing.T) {
	p := prior("1", "")
	ev := Evaluate(observe("2", ""), p, d("5"))
	require.NotNil(t, ev)

	p.LastAmount = d("99")
	require.True(t, ev.Previous.LastAmount.Equal(d("1")))
}

func TestDetector_ObserveAlwaysUpdatesState(t *testing.T) {
	store := memory.NewStore()
	det := New(store, 5)

	ev := det.Observe(observe("1", "1000"))
	require.NotNil(t, ev)
	require.Equal(t, domain.AlertReasonFirstObservation, ev.Reason)

	// below threshold: no alert, but state moves
	require.Nil(t, det.Observe(observe("1.04", "1000")))
	st, ok := store.Get(wallet.Key())
	require.True(t, ok)
	require.True(t, st.LastAmount.Equal(d("1.04")))
	require.True(t, st.LastValueUSD.Decimal.Equal(d("1040")))

	ev = det.Observe(observe("1.1024", "1000"))
	require.NotNil(t, ev)
	require.True(t, ev.PercentChange.Decimal.Equal(d("6")))
}

func TestDetector_RepeatWithoutChangeIsQuiet(t *testing.T) {
	store := memory.NewStore()
	det := New(store, 5)

	require.NotNil(t, det.Observe(observe("7", "10")))
	require.Nil(t, det.Observe(observe("7", "10")))
	require.Nil(t, det.Observe(observe("7", "10")))
}
