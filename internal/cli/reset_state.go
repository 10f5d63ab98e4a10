package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/vietddude/balancewatch/internal/control"
)

var resetStateCmd = &cobra.Command{
	Use:   "reset-state",
	Short: "Delete the persisted snapshot so every wallet is announced again",
	Args:  cobra.NoArgs,
	Run:   runResetState,
}

func init() {
	rootCmd.AddCommand(resetStateCmd)
}

func runResetState(cmd *cobra.Command, args []string) {
	cfg := loadConfig()

	ctx := context.Background()
	repo, err := control.OpenSnapshots(ctx, cfg.State)
	if err != nil {
		slog.Error("Failed to open snapshot store", "error", err)
		os.Exit(1)
	}
	if repo == nil {
		fmt.Println("State backend is memory; nothing to reset")
		return
	}
	defer func() {
		_ = repo.Close()
	}()

	if err := repo.Reset(ctx); err != nil {
		slog.Error("Failed to reset snapshot", "error", err)
		os.Exit(1)
	}

	fmt.Printf("Successfully reset %s snapshot\n", cfg.State.Backend)
}
