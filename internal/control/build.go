package control

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/vietddude/txsync/internal/core/config"
	"github.com/vietddude/txsync/internal/infra/storage"
	"github.com/vietddude/txsync/internal/infra/storage/memory"
	"github.com/vietddude/txsync/internal/infra/storage/postgres"
	"github.com/vietddude/txsync/internal/infra/storage/sheets"
	"github.com/vietddude/txsync/internal/ingest/valuation"
)

// OpenLedger connects to the configured backend. The postgres backend is
// migrated on open; db is nil for the other backends.
func OpenLedger(ctx context.Context, cfg *config.AppConfig) (storage.Ledger, *postgres.DB, error) {
	switch cfg.Ledger.Backend {
	case config.BackendPostgres:
		db, err := postgres.NewDB(ctx, cfg.Database)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to init db: %w", err)
		}
		if err := db.Migrate(ctx); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		slog.Info("Using PostgreSQL ledger")
		return postgres.NewLedgerRepo(db), db, nil
	case config.BackendSheets:
		l, err := sheets.New(ctx, cfg.Ledger.Sheets)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to init sheets ledger: %w", err)
		}
		slog.Info("Using spreadsheet ledger", "spreadsheet", cfg.Ledger.Sheets.SpreadsheetID)
		return l, nil, nil
	case config.BackendMemory:
		slog.Info("Using memory ledger")
		return memory.NewMemoryStorage(), nil, nil
	}
	return nil, nil, fmt.Errorf("unknown ledger backend %q", cfg.Ledger.Backend)
}

// NewFilter builds the value filter from the price and pipeline config.
func NewFilter(cfg *config.AppConfig) *valuation.Filter {
	policy := valuation.DefaultPolicy()
	policy.MinValue = decimal.NewFromFloat(cfg.Pipeline.MinValue)
	if cfg.Pipeline.DefaultRate != nil {
		policy.DefaultRate = decimal.NewFromFloat(*cfg.Pipeline.DefaultRate)
	}
	policy.Unknown = valuation.UnknownAssetPolicy(cfg.Pipeline.UnknownAssetPolicy)
	policy.ExemptAssets = cfg.Pipeline.ExemptAssets
	policy.Fiat = cfg.Prices.Fiat

	prices := valuation.NewPriceTable(cfg.Prices.Rates, cfg.Prices.ReplaceDefaults)
	return valuation.New(prices, policy)
}

// RunOptions maps the pipeline config onto orchestrator options.
func RunOptions(p config.PipelineConfig) Options {
	return Options{
		Lookback:    p.Lookback,
		Concurrency: p.Concurrency,
		PrefixMatch: p.PrefixMatch,
		LockTTL:     p.LockTTL,
	}
}
