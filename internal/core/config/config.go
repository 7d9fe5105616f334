package config

import (
	"time"

	"github.com/vietddude/txsync/internal/core/domain"
	redisclient "github.com/vietddude/txsync/internal/infra/redis"
	"github.com/vietddude/txsync/internal/infra/storage/postgres"
	"github.com/vietddude/txsync/internal/infra/storage/sheets"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Server         ServerConfig       `yaml:"server"`
	Logging        LoggingConfig      `yaml:"logging"`
	Database       postgres.Config    `yaml:"database"`
	Redis          redisclient.Config `yaml:"redis"`
	Ledger         LedgerConfig       `yaml:"ledger"`
	Pipeline       PipelineConfig     `yaml:"pipeline"`
	Prices         PriceConfig        `yaml:"prices"`
	Exchanges      []ExchangeConfig   `yaml:"exchanges"`
	Wallets        []domain.Wallet    `yaml:"wallets"`
	WalletRegistry RegistryConfig     `yaml:"wallet_registry"`
	Explorers      ExplorerConfig     `yaml:"explorers"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// Ledger backends.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendSheets   = "sheets"
)

// LedgerConfig selects where accepted transactions are persisted.
type LedgerConfig struct {
	Backend string        `yaml:"backend"`
	Sheets  sheets.Config `yaml:"sheets"`
}

// Unknown asset policies.
const (
	UnknownAssetDefaultRate = "default_rate"
	UnknownAssetKeep        = "keep"
)

// PipelineConfig tunes a sync run.
type PipelineConfig struct {
	Lookback           time.Duration `yaml:"lookback"`
	MinValue           float64       `yaml:"min_value"`
	DefaultRate        *float64      `yaml:"default_rate"`
	UnknownAssetPolicy string        `yaml:"unknown_asset_policy"`
	ExemptAssets       []string      `yaml:"exempt_assets"`
	PrefixMatch        bool          `yaml:"prefix_match"`
	Concurrency        int           `yaml:"concurrency"`
	RequestTimeout     time.Duration `yaml:"request_timeout"`
	MaxRetries         int           `yaml:"max_retries"`
	RequestsPerSecond  float64       `yaml:"requests_per_second"`
	Schedule           string        `yaml:"schedule"`
	LockTTL            time.Duration `yaml:"lock_ttl"`
}

// PriceConfig is the static fiat price table.
type PriceConfig struct {
	Fiat            string             `yaml:"fiat"`
	ReplaceDefaults bool               `yaml:"replace_defaults"`
	Rates           map[string]float64 `yaml:"rates"`
}

// Exchange kinds.
const (
	ExchangeBinance = "binance"
	ExchangeBybit   = "bybit"
	ExchangeBitget  = "bitget"
)

// ExchangeConfig describes one exchange account.
type ExchangeConfig struct {
	Name        string      `yaml:"name"` // e.g. "Binance (Main)"
	Kind        string      `yaml:"kind"`
	BaseURL     string      `yaml:"base_url"`
	UID         string      `yaml:"uid"` // Binance Pay identity, read from the account endpoint when empty
	Feeds       []string    `yaml:"feeds"`
	Disabled    bool        `yaml:"disabled"`
	Credentials Credentials `yaml:"credentials"`
}

// Credentials is an exchange API key set.
type Credentials struct {
	Key        string `yaml:"key"`
	Secret     string `yaml:"secret"`
	Passphrase string `yaml:"passphrase"`
}

// Complete reports whether every field the exchange kind needs is present.
func (c Credentials) Complete(kind string) bool {
	if c.Key == "" || c.Secret == "" {
		return false
	}
	if kind == ExchangeBitget && c.Passphrase == "" {
		return false
	}
	return true
}

// RegistryConfig points at an external wallet list in CSV form.
type RegistryConfig struct {
	Path string `yaml:"path"`
	URL  string `yaml:"url"`
}

// ExplorerConfig holds the public APIs used by wallet sources.
type ExplorerConfig struct {
	Blockstream    string `yaml:"blockstream"`
	BlockchainInfo string `yaml:"blockchain_info"`
	Etherscan      string `yaml:"etherscan"`
	EtherscanKey   string `yaml:"etherscan_key"`
	TronGrid       string `yaml:"trongrid"`
	TronGridKey    string `yaml:"trongrid_key"`
	Solana         string `yaml:"solana"`
}
