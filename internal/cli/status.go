package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/vietddude/balancewatch/internal/control"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the persisted balance snapshot of every wallet",
	Run:   runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) {
	cfg := loadConfig()

	ctx := context.Background()
	repo, err := control.OpenSnapshots(ctx, cfg.State)
	if err != nil {
		slog.Error("Failed to open snapshot store", "error", err)
		os.Exit(1)
	}
	if repo == nil {
		fmt.Println("State backend is memory; nothing is persisted")
		return
	}
	defer func() {
		_ = repo.Close()
	}()

	states, err := repo.Load(ctx)
	if err != nil {
		slog.Error("Failed to load snapshot", "error", err)
		os.Exit(1)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.Debug)
	_, _ = fmt.Fprintln(w, "CHAIN\tADDRESS\tAMOUNT\tUSD\tOBSERVED")
	for _, st := range states {
		usd := "-"
		if st.LastValueUSD.Valid {
			usd = st.LastValueUSD.Decimal.StringFixed(2)
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			st.Key.Chain,
			st.Key.Address,
			st.LastAmount.String(),
			usd,
			st.LastObservedAt.Format(time.RFC3339),
		)
	}
	_ = w.Flush()
}
