package cli

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/vietddude/txsync/internal/api"
	"github.com/vietddude/txsync/internal/control"
	"github.com/vietddude/txsync/internal/core/config"
	redisclient "github.com/vietddude/txsync/internal/infra/redis"
)

var runSince string

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one sync and print the report as JSON",
	Run:   runOnce,
}

func init() {
	runCmd.Flags().StringVar(&runSince, "since", "", "lower bound, RFC3339 or YYYY-MM-DD (default: now minus pipeline.lookback)")
	rootCmd.AddCommand(runCmd)
}

func runOnce(cmd *cobra.Command, args []string) {
	cfg := loadConfig()

	var since *time.Time
	if runSince != "" {
		t, err := api.ParseSince(runSince)
		if err != nil {
			slog.Error("Invalid --since", "error", err)
			os.Exit(1)
		}
		since = &t
	}

	if code := syncOnce(cfg, since, os.Stdout); code != 0 {
		os.Exit(code)
	}
}

// syncOnce runs the pipeline once and writes the report to w. It returns
// the process exit code after every resource has been released.
func syncOnce(cfg *config.AppConfig, since *time.Time, w io.Writer) int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ledger, _, err := control.OpenLedger(ctx, cfg)
	if err != nil {
		slog.Error("Failed to open ledger", "error", err)
		return 1
	}
	defer func() {
		_ = ledger.Close()
	}()

	var coord control.Coordinator
	if cfg.Redis.Enabled() {
		client, err := redisclient.NewClient(cfg.Redis)
		if err != nil {
			slog.Warn("Failed to connect to Redis, run lock disabled", "error", err)
		} else {
			defer func() {
				_ = client.Close()
			}()
			coord = client
		}
	}

	sources := control.NewConfigSources(cfg)
	defer func() {
		_ = sources.Close()
	}()

	o := control.NewOrchestrator(sources, ledger, control.NewFilter(cfg), coord, control.RunOptions(cfg.Pipeline))
	report := o.Run(ctx, control.RunRequest{Since: since})

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(report)

	if !report.Success {
		return 1
	}
	return 0
}
