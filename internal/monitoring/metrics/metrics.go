package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// FetchTotal tracks balance fetches per chain and result
	FetchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "balancewatch_fetch_total",
			Help: "Total number of balance fetches",
		},
		[]string{"chain", "result"},
	)

	// FetchLatency tracks balance fetch latency
	FetchLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "balancewatch_fetch_latency_seconds",
			Help:    "Balance fetch latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"chain"},
	)

	// AlertsTotal tracks alerts per chain and reason
	AlertsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "balancewatch_alerts_total",
			Help: "Total number of alerts raised",
		},
		[]string{"chain", "reason"},
	)

	// DeliveriesTotal tracks notification deliveries per channel and status
	DeliveriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "balancewatch_deliveries_total",
			Help: "Total number of notification deliveries",
		},
		[]string{"channel", "status"},
	)

	// TickDuration tracks the wall time of a full tick
	TickDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "balancewatch_tick_duration_seconds",
			Help:    "Duration of a monitoring tick in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
	)

	// TicksTotal tracks completed ticks
	TicksTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "balancewatch_ticks_total",
			Help: "Total number of completed ticks",
		},
	)

	// WalletBalance is the last observed balance in native units
	WalletBalance = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "balancewatch_wallet_balance",
			Help: "Last observed wallet balance in native units",
		},
		[]string{"chain", "address", "name"},
	)

	// WalletValueUSD is the last observed fiat value
	WalletValueUSD = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "balancewatch_wallet_value_usd",
			Help: "Last observed wallet value in USD",
		},
		[]string{"chain", "address", "name"},
	)

	// PriceUSD is the unit price used in the last tick
	PriceUSD = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "balancewatch_price_usd",
			Help: "Unit price in USD per symbol",
		},
		[]string{"symbol"},
	)

	// OracleErrorsTotal tracks price lookup failures per kind
	OracleErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "balancewatch_oracle_errors_total",
			Help: "Total number of price oracle errors",
		},
		[]string{"kind"},
	)
)
