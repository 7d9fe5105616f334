package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/vietddude/txsync/internal/control"
	"github.com/vietddude/txsync/internal/core/domain"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the source status table from the ledger",
	Run:   runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) {
	cfg := loadConfig()

	ctx := context.Background()
	ledger, _, err := control.OpenLedger(ctx, cfg)
	if err != nil {
		slog.Error("Failed to open ledger", "error", err)
		os.Exit(1)
	}
	defer func() {
		_ = ledger.Close()
	}()

	statuses, err := ledger.Statuses(ctx)
	if err != nil {
		slog.Error("Failed to read status table", "error", err)
		os.Exit(1)
	}

	printStatuses(os.Stdout, statuses)
}

func printStatuses(out io.Writer, statuses []domain.SourceStatus) {
	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', tabwriter.Debug)
	_, _ = fmt.Fprintln(w, "PLATFORM\tKIND\tSTATUS\tLAST SYNC\tCOUNT\tNOTES")
	for _, s := range statuses {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\n",
			s.Platform, s.Kind, s.State, s.LastSync.UTC().Format(time.DateTime), s.Count, s.Notes)
	}
	_ = w.Flush()
}
