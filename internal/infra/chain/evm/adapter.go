// Package evm reads Ethereum and BSC wallet history from the Etherscan v2
// multichain API.
package evm

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/vietddude/txsync/internal/core/domain"
	"github.com/vietddude/txsync/internal/infra/chain"
	"github.com/vietddude/txsync/internal/infra/rpc"
	"github.com/vietddude/txsync/internal/infra/source"
)

// Network describes one Etherscan-indexed chain.
type Network struct {
	ChainID  int
	Native   string
	Label    string
	Decimals int32
}

var networks = map[domain.ChainType]Network{
	domain.ChainEthereum: {ChainID: 1, Native: "ETH", Label: "ETH", Decimals: 18},
	domain.ChainBSC:      {ChainID: 56, Native: "BNB", Label: "BSC", Decimals: 18},
}

// NetworkFor returns the Etherscan network of an EVM chain.
func NetworkFor(c domain.ChainType) (Network, bool) {
	n, ok := networks[c]
	return n, ok
}

const pageSize = 100

// Etherscan fetches native and token transfers for one chain.
type Etherscan struct {
	client  rpc.Executor
	network Network
	apiKey  string
}

func NewEtherscan(client rpc.Executor, network Network, apiKey string) *Etherscan {
	return &Etherscan{client: client, network: network, apiKey: apiKey}
}

func (e *Etherscan) Name() string { return "etherscan" }

func (e *Etherscan) Fetch(ctx context.Context, w domain.Wallet, since time.Time) ([]domain.Transaction, error) {
	key := e.apiKey
	if w.APIKey != "" {
		key = w.APIKey
	}
	if key == "" {
		return nil, source.ErrMissingCredentials
	}

	native, err := e.list(ctx, "txlist", w.Address, key)
	if err != nil {
		return nil, fmt.Errorf("txlist: %w", err)
	}
	tokens, err := e.list(ctx, "tokentx", w.Address, key)
	if err != nil {
		return nil, fmt.Errorf("tokentx: %w", err)
	}

	txs := make([]domain.Transaction, 0, len(native)+len(tokens))
	for _, item := range native {
		if tx, ok := e.nativeTx(w.Address, item); ok {
			txs = append(txs, tx)
		}
	}
	for _, item := range tokens {
		if tx, ok := e.tokenTx(w.Address, item); ok {
			txs = append(txs, tx)
		}
	}
	return txs, nil
}

func (e *Etherscan) list(ctx context.Context, action, address, key string) ([]any, error) {
	q := url.Values{}
	q.Set("chainid", strconv.Itoa(e.network.ChainID))
	q.Set("module", "account")
	q.Set("action", action)
	q.Set("address", address)
	q.Set("startblock", "0")
	q.Set("endblock", "99999999")
	q.Set("page", "1")
	q.Set("offset", strconv.Itoa(pageSize))
	q.Set("sort", "desc")
	q.Set("apikey", key)

	result, err := e.client.Execute(ctx, rpc.NewRESTOperation(action, "", q))
	if err != nil {
		return nil, err
	}
	m := source.Object(result)
	if m == nil {
		return nil, fmt.Errorf("invalid etherscan response %T", result)
	}
	if source.String(m, "status") != "1" {
		msg := source.String(m, "message")
		if strings.HasPrefix(msg, "No transactions found") {
			return nil, nil
		}
		if detail := source.String(m, "result"); detail != "" {
			msg += ": " + detail
		}
		return nil, errors.New("etherscan: " + msg)
	}
	return source.List(m, "result"), nil
}

func (e *Etherscan) nativeTx(tracked string, item any) (domain.Transaction, bool) {
	m, ok := item.(map[string]any)
	if !ok {
		return domain.Transaction{}, false
	}
	from, to := source.String(m, "from"), source.String(m, "to")
	typ, ok := chain.Classify(tracked, from, to)
	if !ok {
		return domain.Transaction{}, false
	}
	amount, err := source.BaseUnits(source.String(m, "value"), e.network.Decimals)
	// Zero-value calls are contract interactions, not transfers.
	if err != nil || amount.IsZero() {
		return domain.Transaction{}, false
	}

	status := domain.TxStatusCompleted
	if source.String(m, "isError") == "1" || source.String(m, "txreceipt_status") == "0" {
		status = domain.TxStatusFailed
	}
	return domain.Transaction{
		Type:      typ,
		Asset:     e.network.Native,
		Amount:    amount,
		Timestamp: source.Time(m, "timeStamp"),
		From:      from,
		To:        to,
		TxID:      source.String(m, "hash"),
		Status:    status,
		Network:   e.network.Label,
	}, true
}

func (e *Etherscan) tokenTx(tracked string, item any) (domain.Transaction, bool) {
	m, ok := item.(map[string]any)
	if !ok {
		return domain.Transaction{}, false
	}
	from, to := source.String(m, "from"), source.String(m, "to")
	typ, ok := chain.Classify(tracked, from, to)
	if !ok {
		return domain.Transaction{}, false
	}
	decimals := int32(18)
	if d, ok := source.Int(m, "tokenDecimal"); ok {
		decimals = int32(d)
	}
	amount, err := source.BaseUnits(source.String(m, "value"), decimals)
	if err != nil || amount.IsZero() {
		return domain.Transaction{}, false
	}
	symbol := strings.ToUpper(source.String(m, "tokenSymbol"))
	if symbol == "" {
		symbol = "UNKNOWN"
	}
	return domain.Transaction{
		Type:      typ,
		Asset:     symbol,
		Amount:    amount,
		Timestamp: source.Time(m, "timeStamp"),
		From:      from,
		To:        to,
		TxID:      source.String(m, "hash"),
		Status:    domain.TxStatusCompleted,
		Network:   e.network.Label,
	}, true
}

// NewWalletAdapter builds the adapter for an Ethereum or BSC wallet.
func NewWalletAdapter(w domain.Wallet, client rpc.Executor, apiKey string, opts ...chain.Option) (*chain.Adapter, error) {
	network, ok := NetworkFor(w.Chain)
	if !ok {
		return nil, fmt.Errorf("chain %q is not served by etherscan", w.Chain)
	}
	return chain.NewAdapter(w, []chain.Fetcher{NewEtherscan(client, network, apiKey)}, opts...), nil
}
