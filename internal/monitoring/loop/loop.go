// Package loop drives the periodic fetch, evaluate and notify cycle.
package loop

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync/atomic"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/vietddude/balancewatch/internal/core/detector"
	"github.com/vietddude/balancewatch/internal/core/domain"
	"github.com/vietddude/balancewatch/internal/infra/chain"
	"github.com/vietddude/balancewatch/internal/infra/price"
	"github.com/vietddude/balancewatch/internal/infra/storage"
	"github.com/vietddude/balancewatch/internal/monitoring/metrics"
	"github.com/vietddude/balancewatch/internal/monitoring/report"
)

const (
	defaultInterval    = 60 * time.Second
	defaultCallTimeout = 10 * time.Second
	dispatchLimit      = 4
)

// Adapters resolves the balance provider of a chain. *chain.Registry
// satisfies it.
type Adapters interface {
	Get(chainID domain.ChainID) (chain.BalanceProvider, bool)
}

// Dispatcher delivers one alert to every channel. *notify.Dispatcher
// satisfies it.
type Dispatcher interface {
	Dispatch(ctx context.Context, ev domain.AlertEvent) []domain.DeliveryResult
	Channels() []string
}

// ErrShuttingDown marks deliveries skipped because the monitor was stopping.
var ErrShuttingDown = errors.New("monitor shutting down")

// Config holds the loop settings.
type Config struct {
	Wallets     []domain.WalletConfig
	Interval    time.Duration
	CallTimeout time.Duration
	Mode        Mode
}

// Deps are the collaborators of the loop. Snapshots and Reporter are optional.
type Deps struct {
	Adapters   Adapters
	Oracle     price.Oracle
	Detector   *detector.Detector
	Dispatcher Dispatcher
	Snapshots  storage.SnapshotRepository
	Reporter   report.Reporter
	Logger     *slog.Logger
}

// Monitor runs ticks in Continuous or SingleShot mode.
type Monitor struct {
	cfg  Config
	deps Deps
	log  *slog.Logger
	now  func() time.Time

	running atomic.Bool
	state   atomic.Int32
}

// New creates a monitor in the Idle state.
func New(cfg Config, deps Deps) *Monitor {
	if cfg.Interval <= 0 {
		cfg.Interval = defaultInterval
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = defaultCallTimeout
	}
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Monitor{
		cfg:  cfg,
		deps: deps,
		log:  log.With("component", "monitor"),
		now:  time.Now,
	}
}

// State returns the current loop state.
func (m *Monitor) State() State {
	return State(m.state.Load())
}

// Run executes ticks until ctx is cancelled, or once in SingleShot mode.
// Cancellation never interrupts a tick in flight: the current tick finishes
// within the per-call timeout and Run returns without sleeping.
func (m *Monitor) Run(ctx context.Context) error {
	if !m.running.CompareAndSwap(false, true) {
		return fmt.Errorf("monitor already running")
	}
	defer m.running.Store(false)
	m.state.Store(int32(StateIdle))

	m.log.Info("Monitor started",
		"mode", m.cfg.Mode,
		"wallets", len(m.cfg.Wallets),
		"interval", m.cfg.Interval,
	)

	for {
		if ctx.Err() != nil {
			return m.transition(StateTerminal)
		}
		if err := m.transition(StateTicking); err != nil {
			return err
		}

		m.Tick(ctx)

		if m.cfg.Mode == SingleShot || ctx.Err() != nil {
			return m.transition(StateTerminal)
		}
		if err := m.transition(StateSleeping); err != nil {
			return err
		}

		timer := time.NewTimer(m.cfg.Interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			m.log.Info("Monitor stopping")
			return m.transition(StateTerminal)
		case <-timer.C:
		}
	}
}

func (m *Monitor) transition(to State) error {
	from := m.State()
	if err := checkTransition(from, to); err != nil {
		return err
	}
	m.state.Store(int32(to))
	m.log.Debug("Monitor state changed", "from", from, "to", to)
	return nil
}

// priceBatch is the result of the single price lookup of a tick. Readers
// block until it resolves.
type priceBatch struct {
	ready  chan struct{}
	prices map[string]decimal.Decimal
	err    error
}

func (p *priceBatch) get(symbol string) decimal.NullDecimal {
	<-p.ready
	if v, ok := p.prices[symbol]; ok {
		return decimal.NewNullDecimal(v)
	}
	return decimal.NullDecimal{}
}

// Tick runs one full cycle and returns its summary. Every wallet is fetched
// concurrently alongside one batched price lookup; a failure for one wallet
// never affects another.
func (m *Monitor) Tick(ctx context.Context) report.TickSummary {
	summary := report.NewTickSummary(m.now())
	log := m.log.With("tick", summary.ID.String())

	// Outbound calls are bounded by CallTimeout rather than by shutdown, and
	// everything after a cancel shares one CallTimeout budget.
	callCtx, release := drainContext(ctx, m.cfg.CallTimeout)
	defer release()

	wallets := slices.Clone(m.cfg.Wallets)
	results := make([]report.WalletResult, len(wallets))

	symbols := mapset.NewSet[string]()
	for _, w := range wallets {
		symbols.Add(w.Chain.Symbol())
	}
	batch := &priceBatch{ready: make(chan struct{})}

	var g errgroup.Group
	g.Go(func() error {
		m.fetchPrices(callCtx, symbols, batch)
		return nil
	})
	for i, w := range wallets {
		i, w := i, w
		g.Go(func() error {
			results[i] = m.observe(callCtx, w, batch)
			return nil
		})
	}
	_ = g.Wait()

	summary.Wallets = results
	m.recordPrices(log, batch, &summary)

	summary.Deliveries = m.dispatch(ctx, callCtx, summary.Alerts())

	if m.deps.Snapshots != nil {
		summary.PersistErr = m.persist(callCtx, results)
	}

	summary.FinishedAt = m.now()
	metrics.TickDuration.Observe(summary.Duration().Seconds())
	metrics.TicksTotal.Inc()

	if m.deps.Reporter != nil {
		m.deps.Reporter.Report(callCtx, summary)
	}
	return summary
}

func (m *Monitor) observe(ctx context.Context, w domain.WalletConfig, batch *priceBatch) (res report.WalletResult) {
	res.Wallet = w
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			res.Observation, res.Alert = nil, nil
			res.Err = &domain.AdapterError{
				Kind:    domain.AdapterMalformedResponse,
				Chain:   w.Chain,
				Address: w.Address,
				Err:     fmt.Errorf("panic: %v", r),
			}
		}
		res.Duration = time.Since(start)
	}()

	adapter, ok := m.deps.Adapters.Get(w.Chain)
	if !ok {
		res.Err = &domain.AdapterError{
			Kind:    domain.AdapterEndpointUnreachable,
			Chain:   w.Chain,
			Address: w.Address,
			Err:     fmt.Errorf("no adapter for chain %s", w.Chain),
		}
		metrics.FetchTotal.WithLabelValues(string(w.Chain), domain.AdapterEndpointUnreachable.String()).Inc()
		return res
	}

	fctx, cancel := context.WithTimeout(ctx, m.cfg.CallTimeout)
	amount, err := adapter.FetchBalance(fctx, w.Address)
	cancel()
	metrics.FetchLatency.WithLabelValues(string(w.Chain)).Observe(time.Since(start).Seconds())

	if err != nil {
		ae := chain.NewAdapterError(w.Chain, w.Address, err)
		res.Err = ae
		metrics.FetchTotal.WithLabelValues(string(w.Chain), ae.Kind.String()).Inc()
		return res
	}
	metrics.FetchTotal.WithLabelValues(string(w.Chain), "ok").Inc()

	obs := domain.BalanceObservation{
		Wallet:       w,
		RawAmount:    amount,
		UnitPriceUSD: batch.get(w.Chain.Symbol()),
		ObservedAt:   m.now(),
	}
	res.Observation = &obs
	res.Alert = m.deps.Detector.Observe(obs)

	balance, _ := amount.Float64()
	metrics.WalletBalance.WithLabelValues(string(w.Chain), w.Address, w.Name()).Set(balance)
	if v := obs.ValueUSD(); v.Valid {
		usd, _ := v.Decimal.Float64()
		metrics.WalletValueUSD.WithLabelValues(string(w.Chain), w.Address, w.Name()).Set(usd)
	}
	return res
}

// fetchPrices resolves the price batch. A panicking oracle degrades the tick
// to unknown prices.
func (m *Monitor) fetchPrices(ctx context.Context, symbols mapset.Set[string], batch *priceBatch) {
	defer close(batch.ready)
	defer func() {
		if r := recover(); r != nil {
			batch.prices = nil
			batch.err = &domain.OracleError{
				Kind: domain.OracleEndpointUnreachable,
				Err:  fmt.Errorf("panic: %v", r),
			}
		}
	}()

	pctx, cancel := context.WithTimeout(ctx, m.cfg.CallTimeout)
	defer cancel()
	batch.prices, batch.err = m.deps.Oracle.GetPrices(pctx, symbols)
}

// drainContext returns a context that ignores the cancellation of ctx but
// expires grace after it.
func drainContext(ctx context.Context, grace time.Duration) (context.Context, context.CancelFunc) {
	dctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	var timer atomic.Pointer[time.Timer]
	stop := context.AfterFunc(ctx, func() {
		timer.Store(time.AfterFunc(grace, cancel))
	})
	return dctx, func() {
		stop()
		if t := timer.Load(); t != nil {
			t.Stop()
		}
		cancel()
	}
}

func (m *Monitor) recordPrices(log *slog.Logger, batch *priceBatch, summary *report.TickSummary) {
	for sym, p := range batch.prices {
		f, _ := p.Float64()
		metrics.PriceUSD.WithLabelValues(sym).Set(f)
	}
	if batch.err == nil {
		return
	}

	summary.PriceErr = batch.err
	kind := "unknown"
	var oe *domain.OracleError
	if errors.As(batch.err, &oe) {
		kind = oe.Kind.String()
	}
	metrics.OracleErrorsTotal.WithLabelValues(kind).Inc()
	log.Debug("Price lookup incomplete", "kind", kind, "error", batch.err)
}

// dispatch delivers alerts at most dispatchLimit at a time. Alerts not yet
// started when ctx is cancelled are recorded as failed for every channel.
func (m *Monitor) dispatch(ctx, callCtx context.Context, alerts []domain.AlertEvent) []report.AlertDelivery {
	if len(alerts) == 0 {
		return nil
	}

	deliveries := make([]report.AlertDelivery, len(alerts))
	var g errgroup.Group
	g.SetLimit(dispatchLimit)
	for i, ev := range alerts {
		i, ev := i, ev
		metrics.AlertsTotal.WithLabelValues(string(ev.Wallet.Chain), string(ev.Reason)).Inc()
		g.Go(func() error {
			d := report.AlertDelivery{Alert: ev}
			switch {
			case m.deps.Dispatcher == nil:
			case ctx.Err() != nil:
				d.Results = skipped(m.deps.Dispatcher.Channels())
			default:
				d.Results = m.deps.Dispatcher.Dispatch(callCtx, ev)
			}
			for _, r := range d.Results {
				metrics.DeliveriesTotal.WithLabelValues(r.Channel, string(r.Status)).Inc()
			}
			deliveries[i] = d
			return nil
		})
	}
	_ = g.Wait()
	return deliveries
}

func skipped(channels []string) []domain.DeliveryResult {
	out := make([]domain.DeliveryResult, len(channels))
	for i, name := range channels {
		out[i] = domain.DeliveryResult{
			Channel: name,
			Status:  domain.DeliveryFailed,
			Err:     &domain.DispatchError{Channel: name, Err: ErrShuttingDown},
		}
	}
	return out
}

func (m *Monitor) persist(ctx context.Context, results []report.WalletResult) error {
	var states []domain.WalletState
	for _, r := range results {
		if r.OK() {
			states = append(states, domain.StateFromObservation(*r.Observation))
		}
	}
	if len(states) == 0 {
		return nil
	}

	sctx, cancel := context.WithTimeout(ctx, m.cfg.CallTimeout)
	defer cancel()
	if err := m.deps.Snapshots.Save(sctx, states); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}
