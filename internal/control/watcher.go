package control

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/vietddude/balancewatch/internal/core/config"
	"github.com/vietddude/balancewatch/internal/core/detector"
	"github.com/vietddude/balancewatch/internal/core/domain"
	"github.com/vietddude/balancewatch/internal/infra/chain"
	"github.com/vietddude/balancewatch/internal/infra/chain/aptos"
	"github.com/vietddude/balancewatch/internal/infra/chain/evm"
	"github.com/vietddude/balancewatch/internal/infra/chain/solana"
	"github.com/vietddude/balancewatch/internal/infra/chain/sui"
	"github.com/vietddude/balancewatch/internal/infra/chain/tron"
	"github.com/vietddude/balancewatch/internal/infra/notify"
	"github.com/vietddude/balancewatch/internal/infra/price"
	redisclient "github.com/vietddude/balancewatch/internal/infra/redis"
	"github.com/vietddude/balancewatch/internal/infra/rpc"
	"github.com/vietddude/balancewatch/internal/infra/storage"
	"github.com/vietddude/balancewatch/internal/infra/storage/memory"
	"github.com/vietddude/balancewatch/internal/infra/storage/sqlstore"
	"github.com/vietddude/balancewatch/internal/monitoring/health"
	"github.com/vietddude/balancewatch/internal/monitoring/loop"
	"github.com/vietddude/balancewatch/internal/monitoring/report"
)

// Options are the command-line inputs that are not part of the config file.
type Options struct {
	// Once runs a single tick and exits.
	Once   bool
	Logger *slog.Logger
}

// Watcher is the main application struct that manages the monitor lifecycle.
type Watcher struct {
	cfg          *config.AppConfig
	opts         Options
	monitor      *loop.Monitor
	healthMon    *health.Monitor
	healthServer *health.Server
	clients      []*rpc.Client
	oracleConn   *rpc.HTTPProvider
	snapshots    storage.SnapshotRepository
	store        *memory.Store
	log          *slog.Logger

	done   chan struct{}
	runErr error
}

// NewWatcher validates cfg and creates a Watcher with all dependencies
// initialized.
func NewWatcher(ctx context.Context, cfg *config.AppConfig, opts Options) (*Watcher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	wallets := cfg.Wallets()
	keys := make([]domain.WalletKey, len(wallets))
	for i, wallet := range wallets {
		keys[i] = wallet.Key()
	}

	w := &Watcher{
		cfg:   cfg,
		opts:  opts,
		store: memory.NewStore(keys...),
		log:   log,
		done:  make(chan struct{}),
	}

	// 1. Chain adapters
	registry := chain.NewRegistry()
	retry := rpc.RetryConfig{
		MaxAttempts:     cfg.Retry.MaxAttempts,
		InitialDelay:    cfg.Retry.InitialDelay,
		MaxDelay:        cfg.Retry.MaxDelay,
		BackoffMultiple: rpc.DefaultRetryConfig.BackoffMultiple,
	}
	var providers []health.ProviderReporter
	for _, cs := range cfg.ResolvedChains() {
		client, err := rpc.NewClientFromConfig(cs.ID, rpc.EndpointConfig{
			URL:          cs.Config.EndpointURL,
			FallbackURLs: cs.Config.FallbackURLs,
			Headers:      cs.Config.Headers,
			Timeout:      cfg.RequestTimeout,
		}, retry)
		if err != nil {
			w.closeClients()
			return nil, err
		}
		w.clients = append(w.clients, client)
		providers = append(providers, client)

		adapter, err := newAdapter(cs.ID, client)
		if err != nil {
			w.closeClients()
			return nil, err
		}
		registry.Register(adapter)

		for _, wallet := range cs.Wallets {
			if err := adapter.ValidateAddress(wallet.Address); err != nil {
				log.Warn("Wallet address looks invalid; it will fail every tick",
					"chain", cs.ID,
					"wallet", wallet.Name(),
					"address", wallet.Address,
					"error", err,
				)
			}
		}
		log.Info("Chain configured", "chain", cs.ID, "wallets", len(cs.Wallets))
	}

	// 2. Price oracle
	w.oracleConn = rpc.NewHTTPProvider("coingecko", cfg.Price.BaseURL, cfg.RequestTimeout)
	if cfg.Price.APIKey != "" {
		w.oracleConn.SetHeader("x-cg-demo-api-key", cfg.Price.APIKey)
	}
	oracle := price.NewCoinGeckoOracle(w.oracleConn, price.Options{
		CoinIDs:  cfg.Price.CoinIDs,
		CacheTTL: cfg.Price.CacheTTL,
		Interval: cfg.Interval(),
		Logger:   log,
	})

	// 3. Prior snapshot
	snapshots, err := OpenSnapshots(ctx, cfg.State)
	if err != nil {
		w.closeClients()
		return nil, err
	}
	w.snapshots = snapshots
	if snapshots != nil {
		states, err := snapshots.Load(ctx)
		if err != nil {
			log.Warn("Failed to load wallet snapshot, starting empty", "error", err)
		} else {
			w.store.Restore(states)
			log.Info("Restored wallet snapshot", "backend", cfg.State.Backend, "wallets", len(states))
		}
	}

	// 4. Notifications
	dispatcher := notify.NewDispatcher(notify.NewChannels(cfg.Notifications), notify.Options{
		Timeout:      cfg.RequestTimeout,
		MaxAttempts:  cfg.Notifications.Retry.MaxAttempts,
		InitialDelay: cfg.Notifications.Retry.InitialDelay,
		Logger:       log,
	})
	if len(dispatcher.Channels()) == 0 {
		log.Warn("No notification channel enabled; alerts are only logged")
	}

	// 5. Monitor and reporting
	mode := loop.Continuous
	if opts.Once {
		mode = loop.SingleShot
	}

	w.healthMon = health.NewMonitor(cfg.Interval(), func() string {
		if w.monitor == nil {
			return loop.StateIdle.String()
		}
		return w.monitor.State().String()
	}, providers)

	reporters := report.MultiReporter{report.NewLogReporter(log), w.healthMon}
	if cfg.Notifications.SendSummary {
		reporters = append(reporters, report.NewNotifyReporter(dispatcher, log))
	}

	deps := loop.Deps{
		Adapters:   registry,
		Oracle:     oracle,
		Detector:   detector.New(w.store, cfg.Threshold()),
		Dispatcher: dispatcher,
		Snapshots:  snapshots,
		Reporter:   reporters,
		Logger:     log,
	}

	w.monitor = loop.New(loop.Config{
		Wallets:     wallets,
		Interval:    cfg.Interval(),
		CallTimeout: cfg.RequestTimeout,
		Mode:        mode,
	}, deps)

	if !opts.Once && cfg.Server.Port > 0 {
		w.healthServer = health.NewServer(w.healthMon, cfg.Server.Port)
	}

	return w, nil
}

func newAdapter(id domain.ChainID, client chain.Executor) (chain.BalanceProvider, error) {
	switch id {
	case domain.ChainETH:
		return evm.NewEVMAdapter(client), nil
	case domain.ChainSOL:
		return solana.NewAdapter(client), nil
	case domain.ChainAPT:
		return aptos.NewAdapter(client), nil
	case domain.ChainTRX:
		return tron.NewTronAdapter(client), nil
	case domain.ChainSUI:
		return sui.NewAdapter(client), nil
	default:
		return nil, &domain.ConfigurationError{Field: "chains." + string(id), Reason: "no adapter for chain"}
	}
}

// OpenSnapshots opens the configured snapshot backend. It returns nil for the
// memory backend.
func OpenSnapshots(ctx context.Context, cfg config.StateConfig) (storage.SnapshotRepository, error) {
	switch cfg.Backend {
	case config.BackendRedis:
		c, err := redisclient.NewClient(redisclient.Config{URL: cfg.URL})
		if err != nil {
			return nil, fmt.Errorf("failed to init redis: %w", err)
		}
		return c, nil
	case config.BackendPostgres:
		s, err := sqlstore.Open(ctx, sqlstore.DriverPostgres, cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("failed to init postgres: %w", err)
		}
		return s, nil
	case config.BackendSQLite:
		s, err := sqlstore.Open(ctx, sqlstore.DriverSQLite, cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("failed to init sqlite: %w", err)
		}
		return s, nil
	default:
		return nil, nil
	}
}

// Start starts the health server and the monitor. It returns immediately;
// use Done to wait for a single-shot run to finish.
func (w *Watcher) Start(ctx context.Context) error {
	if w.healthServer != nil {
		go func() {
			if err := w.healthServer.Start(); err != nil {
				w.log.Error("Health server failed", "error", err)
			}
		}()
	}

	go func() {
		defer close(w.done)
		w.runErr = w.monitor.Run(ctx)
	}()

	return nil
}

// Done is closed when the monitor has stopped.
func (w *Watcher) Done() <-chan struct{} {
	return w.done
}

// Err returns the monitor result once Done is closed.
func (w *Watcher) Err() error {
	return w.runErr
}

// Stop waits for the monitor to finish, bounded by ctx, then releases every
// resource. Cancel the context passed to Start first.
func (w *Watcher) Stop(ctx context.Context) error {
	w.log.Info("Stopping Watcher...")

	var errs []error
	select {
	case <-w.done:
	case <-ctx.Done():
		errs = append(errs, fmt.Errorf("monitor did not stop: %w", ctx.Err()))
	}

	if w.healthServer != nil {
		if err := w.healthServer.Stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("health server: %w", err))
		}
	}
	if w.snapshots != nil {
		if err := w.snapshots.Close(); err != nil {
			w.log.Warn("Failed to close snapshot store", "error", err)
		}
	}
	w.closeClients()

	return errors.Join(errs...)
}

// Health returns the health monitor (for status output).
func (w *Watcher) Health() *health.Monitor {
	return w.healthMon
}

// Store returns the wallet state store.
func (w *Watcher) Store() *memory.Store {
	return w.store
}

func (w *Watcher) closeClients() {
	for _, c := range w.clients {
		_ = c.Close()
	}
	if w.oracleConn != nil {
		_ = w.oracleConn.Close()
	}
}
