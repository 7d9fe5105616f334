package domain

import "strings"

// Wallet is one on-chain address from the wallet registry.
type Wallet struct {
	Name    string    `yaml:"name"    json:"name"`
	Address string    `yaml:"address" json:"address"`
	Chain   ChainType `yaml:"type"    json:"type"`
	APIKey  string    `yaml:"api_key" json:"-"`
	Status  string    `yaml:"status"  json:"status"`
}

// Active reports whether the registry marks the wallet as monitored.
// An empty status counts as active.
func (w Wallet) Active() bool {
	s := strings.ToLower(strings.TrimSpace(w.Status))
	return s == "" || s == "active"
}

type ChainType string

const (
	ChainBitcoin  ChainType = "bitcoin"
	ChainEthereum ChainType = "ethereum"
	ChainBSC      ChainType = "bsc"
	ChainTron     ChainType = "tron"
	ChainSolana   ChainType = "solana"
)

// ParseChainType normalizes a registry type column. Unknown values return "".
func ParseChainType(s string) ChainType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "bitcoin", "btc":
		return ChainBitcoin
	case "ethereum", "eth", "erc20":
		return ChainEthereum
	case "bsc", "bep20", "bnb":
		return ChainBSC
	case "tron", "trx", "trc20":
		return ChainTron
	case "solana", "sol":
		return ChainSolana
	}
	return ""
}

// InferChainType guesses the chain from a wallet's friendly name.
func InferChainType(name string) ChainType {
	n := strings.ToLower(name)
	switch {
	case strings.Contains(n, "bitcoin") || strings.Contains(n, "btc"):
		return ChainBitcoin
	case strings.Contains(n, "bep20") || strings.Contains(n, "bsc"):
		return ChainBSC
	case strings.Contains(n, "ethereum") || strings.Contains(n, "erc20") || strings.Contains(n, "eth"):
		return ChainEthereum
	case strings.Contains(n, "tron") || strings.Contains(n, "trc20"):
		return ChainTron
	case strings.Contains(n, "solana") || strings.Contains(n, "sol"):
		return ChainSolana
	}
	return ""
}
