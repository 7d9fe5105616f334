package control

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/vietddude/txsync/internal/core/config"
	"github.com/vietddude/txsync/internal/core/domain"
	"github.com/vietddude/txsync/internal/infra/chain/bitcoin"
	"github.com/vietddude/txsync/internal/infra/chain/evm"
	"github.com/vietddude/txsync/internal/infra/chain/solana"
	"github.com/vietddude/txsync/internal/infra/chain/tron"
	"github.com/vietddude/txsync/internal/infra/exchange"
	"github.com/vietddude/txsync/internal/infra/exchange/binance"
	"github.com/vietddude/txsync/internal/infra/exchange/bitget"
	"github.com/vietddude/txsync/internal/infra/exchange/bybit"
	"github.com/vietddude/txsync/internal/infra/registry"
	"github.com/vietddude/txsync/internal/infra/rpc"
	"github.com/vietddude/txsync/internal/infra/source"
)

// ConfigSources builds adapters from the application config. Exchange
// adapters are built once; wallets are re-read from the registry each run.
type ConfigSources struct {
	exchanges []source.Adapter
	registry  *registry.Loader

	blockstream    *rpc.Client
	blockchainInfo *rpc.Client
	etherscan      *rpc.Client
	etherscanKey   string
	trongrid       *rpc.Client
	solana         *rpc.Client

	log *slog.Logger
}

// ClientOptions derives HTTP client settings from the pipeline config.
func ClientOptions(p config.PipelineConfig) exchange.ClientOptions {
	retry := rpc.DefaultRetryConfig
	if p.MaxRetries > 0 {
		retry.MaxAttempts = p.MaxRetries + 1
	}
	return exchange.ClientOptions{
		Timeout:           p.RequestTimeout,
		RequestsPerSecond: p.RequestsPerSecond,
		Retry:             retry,
	}
}

// NewConfigSources creates the source set for cfg.
func NewConfigSources(cfg *config.AppConfig) *ConfigSources {
	opts := ClientOptions(cfg.Pipeline)
	log := slog.Default().With("component", "sources")

	s := &ConfigSources{
		registry:     registry.NewLoader(cfg.WalletRegistry, cfg.Wallets),
		etherscanKey: cfg.Explorers.EtherscanKey,
		log:          log,
	}

	for _, ex := range cfg.Exchanges {
		if ex.Disabled {
			log.Info("exchange disabled", "exchange", ex.Name)
			continue
		}
		a, err := NewExchangeAdapter(ex, opts)
		if err != nil {
			log.Warn("skipping exchange", "exchange", ex.Name, "error", err)
			continue
		}
		s.exchanges = append(s.exchanges, a)
	}

	e := cfg.Explorers
	s.blockstream = explorerClient("blockstream", e.Blockstream, opts)
	s.blockchainInfo = explorerClient("blockchain.info", e.BlockchainInfo, opts)
	s.etherscan = explorerClient("etherscan", e.Etherscan, opts)
	if e.TronGridKey != "" {
		s.trongrid = explorerClient("trongrid", e.TronGrid, opts, rpc.WithHeader(tron.APIKeyHeader, e.TronGridKey))
	} else {
		s.trongrid = explorerClient("trongrid", e.TronGrid, opts)
	}
	s.solana = explorerClient("solana", e.Solana, opts)
	return s
}

// NewExchangeAdapter builds the adapter for one configured account.
func NewExchangeAdapter(ex config.ExchangeConfig, opts exchange.ClientOptions) (*exchange.Adapter, error) {
	c := exchange.Config{
		Name:       ex.Name,
		BaseURL:    ex.BaseURL,
		Key:        ex.Credentials.Key,
		Secret:     ex.Credentials.Secret,
		Passphrase: ex.Credentials.Passphrase,
		UID:        ex.UID,
		Feeds:      ex.Feeds,
	}
	switch ex.Kind {
	case config.ExchangeBinance:
		return binance.New(c, opts), nil
	case config.ExchangeBybit:
		return bybit.New(c, opts), nil
	case config.ExchangeBitget:
		return bitget.New(c, opts), nil
	}
	return nil, fmt.Errorf("unknown exchange kind %q", ex.Kind)
}

func explorerClient(name, baseURL string, opts exchange.ClientOptions, extra ...rpc.Option) *rpc.Client {
	popts := append([]rpc.Option{rpc.WithRateLimit(opts.RequestsPerSecond, 1)}, extra...)
	return rpc.NewClient(rpc.NewHTTPProvider(name, baseURL, opts.Timeout, popts...), opts.Retry)
}

// Plan implements Sources.
func (s *ConfigSources) Plan(ctx context.Context) (Plan, error) {
	plan := Plan{Adapters: append([]source.Adapter(nil), s.exchanges...)}

	wallets, err := s.registry.Load(ctx)
	if err != nil {
		// Exchanges still run when the registry is unreachable.
		s.log.Warn("wallet registry unavailable", "error", err)
		plan.Warnings = append(plan.Warnings, fmt.Sprintf("wallet registry unavailable: %v", err))
		return plan, nil
	}
	plan.Wallets = wallets

	for _, w := range wallets {
		a, err := s.walletAdapter(w)
		if err != nil {
			plan.Warnings = append(plan.Warnings, fmt.Sprintf("%s: %v", w.Name, err))
			continue
		}
		plan.Adapters = append(plan.Adapters, a)
	}
	return plan, nil
}

func (s *ConfigSources) walletAdapter(w domain.Wallet) (source.Adapter, error) {
	switch w.Chain {
	case domain.ChainBitcoin:
		return bitcoin.NewWalletAdapter(w, s.blockstream, s.blockchainInfo), nil
	case domain.ChainEthereum, domain.ChainBSC:
		return evm.NewWalletAdapter(w, s.etherscan, s.etherscanKey)
	case domain.ChainTron:
		return tron.NewWalletAdapter(w, s.trongrid), nil
	case domain.ChainSolana:
		return solana.NewWalletAdapter(w, s.solana), nil
	}
	return nil, fmt.Errorf("unsupported chain %q", w.Chain)
}

// Close releases explorer clients.
func (s *ConfigSources) Close() error {
	for _, c := range []*rpc.Client{s.blockstream, s.blockchainInfo, s.etherscan, s.trongrid, s.solana} {
		_ = c.Close()
	}
	return nil
}
