package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
	"github.com/vietddude/stylelog"

	"github.com/vietddude/balancewatch/internal/control"
	"github.com/vietddude/balancewatch/internal/core/config"
)

// shutdownGrace is added to the request timeout when waiting for the
// in-flight tick and the HTTP server on shutdown.
const shutdownGrace = 10 * time.Second

var (
	cfgPath string
	isDebug bool
	runOnce bool
)

var rootCmd = &cobra.Command{
	Use:   "balancewatch",
	Short: "Wallet balance monitor",
	Long:  `balancewatch polls native balances on ETH, SOL, APT, TRX and SUI and alerts on significant changes.`,
	Run:   runWatcher,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "config.yaml", "config file (default is config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&isDebug, "debug", false, "enable debug logging")
	rootCmd.Flags().BoolVar(&runOnce, "once", false, "run a single check and exit")
}

// loadConfig loads .env and the config file, then sets up logging.
func loadConfig() *config.AppConfig {
	_ = godotenv.Load()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		stylelog.InitDefault()
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	slogLevel := slog.LevelInfo
	switch {
	case isDebug || cfg.Logging.Level == "debug":
		slogLevel = slog.LevelDebug
	case cfg.Logging.Level == "warn":
		slogLevel = slog.LevelWarn
	case cfg.Logging.Level == "error":
		slogLevel = slog.LevelError
	}

	if cfg.Logging.Format == "json" {
		slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slogLevel})))
	} else {
		stylelog.InitDefault(&tint.Options{
			Level:      slogLevel,
			TimeFormat: time.RFC3339,
		})
	}
	return cfg
}

func runWatcher(cmd *cobra.Command, args []string) {
	cfg := loadConfig()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	app, err := control.NewWatcher(ctx, cfg, control.Options{Once: runOnce, Logger: slog.Default()})
	if err != nil {
		slog.Error("Failed to initialize Watcher", "error", err)
		os.Exit(1)
	}

	if err := app.Start(ctx); err != nil {
		slog.Error("Failed to start Watcher", "error", err)
		os.Exit(1)
	}

	slog.Info("Watcher started", "config", cfgPath, "once", runOnce)

	select {
	case <-ctx.Done():
		slog.Info("Received signal, shutting down...")
	case <-app.Done():
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.RequestTimeout+shutdownGrace)
	defer shutdownCancel()

	if err := app.Stop(shutdownCtx); err != nil {
		slog.Error("Error during shutdown", "error", err)
		os.Exit(1)
	}
	if err := app.Err(); err != nil {
		slog.Error("Monitor failed", "error", err)
		os.Exit(1)
	}

	slog.Info("Watcher stopped gracefully")
}
