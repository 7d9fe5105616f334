package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v2"
)

// Load reads configuration from a YAML file.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML content, expanding ${VAR} references first.
func Parse(data []byte) (*AppConfig, error) {
	var cfg AppConfig
	expandedData := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// ApplyDefaults fills every unset field.
func (c *AppConfig) ApplyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Ledger.Backend == "" {
		if c.Database.URL != "" {
			c.Ledger.Backend = BackendPostgres
		} else {
			c.Ledger.Backend = BackendMemory
		}
	}

	p := &c.Pipeline
	if p.Lookback == 0 {
		p.Lookback = 7 * 24 * time.Hour
	}
	if p.MinValue == 0 {
		p.MinValue = 1.0
	}
	if p.DefaultRate == nil {
		one := 1.0
		p.DefaultRate = &one
	}
	if p.UnknownAssetPolicy == "" {
		p.UnknownAssetPolicy = UnknownAssetDefaultRate
	}
	if p.Concurrency <= 0 {
		p.Concurrency = 4
	}
	if p.RequestTimeout == 0 {
		p.RequestTimeout = 30 * time.Second
	}
	if p.RequestsPerSecond == 0 {
		p.RequestsPerSecond = 5
	}
	if p.Schedule == "" {
		p.Schedule = "@hourly"
	}
	if p.LockTTL == 0 {
		p.LockTTL = 15 * time.Minute
	}

	if c.Prices.Fiat == "" {
		c.Prices.Fiat = "AED"
	}

	e := &c.Explorers
	if e.Blockstream == "" {
		e.Blockstream = "https://blockstream.info/api"
	}
	if e.BlockchainInfo == "" {
		e.BlockchainInfo = "https://blockchain.info"
	}
	if e.Etherscan == "" {
		e.Etherscan = "https://api.etherscan.io/v2/api"
	}
	if e.TronGrid == "" {
		e.TronGrid = "https://api.trongrid.io"
	}
	if e.Solana == "" {
		e.Solana = "https://api.mainnet-beta.solana.com"
	}

	for i := range c.Exchanges {
		ex := &c.Exchanges[i]
		ex.Kind = strings.ToLower(strings.TrimSpace(ex.Kind))
		if ex.Kind == "" {
			ex.Kind = inferExchangeKind(ex.Name)
		}
	}
}

// Validate rejects configurations the service cannot run with.
func (c *AppConfig) Validate() error {
	var errs []error

	switch c.Ledger.Backend {
	case BackendMemory:
	case BackendPostgres:
		if c.Database.URL == "" {
			errs = append(errs, errors.New("ledger backend postgres requires database.url"))
		}
	case BackendSheets:
		if c.Ledger.Sheets.SpreadsheetID == "" {
			errs = append(errs, errors.New("ledger backend sheets requires ledger.sheets.spreadsheet_id"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown ledger backend %q", c.Ledger.Backend))
	}

	switch c.Pipeline.UnknownAssetPolicy {
	case UnknownAssetDefaultRate, UnknownAssetKeep:
	default:
		errs = append(errs, fmt.Errorf("unknown unknown_asset_policy %q", c.Pipeline.UnknownAssetPolicy))
	}
	if c.Pipeline.MinValue < 0 {
		errs = append(errs, errors.New("pipeline.min_value must not be negative"))
	}
	if c.Pipeline.DefaultRate != nil && *c.Pipeline.DefaultRate < 0 {
		errs = append(errs, errors.New("pipeline.default_rate must not be negative"))
	}

	seen := make(map[string]bool)
	for _, ex := range c.Exchanges {
		if ex.Name == "" {
			errs = append(errs, errors.New("exchange without name"))
			continue
		}
		if seen[ex.Name] {
			errs = append(errs, fmt.Errorf("duplicate exchange name %q", ex.Name))
		}
		seen[ex.Name] = true
		switch ex.Kind {
		case ExchangeBinance, ExchangeBybit, ExchangeBitget:
		default:
			errs = append(errs, fmt.Errorf("exchange %q: unknown kind %q", ex.Name, ex.Kind))
		}
	}

	return errors.Join(errs...)
}

func inferExchangeKind(name string) string {
	n := strings.ToLower(name)
	switch {
	case strings.Contains(n, "binance"):
		return ExchangeBinance
	case strings.Contains(n, "bybit"):
		return ExchangeBybit
	case strings.Contains(n, "bitget"):
		return ExchangeBitget
	}
	return ""
}
