// Package tron reads TRX and TRC-20 wallet history from TronGrid.
package tron

import (
	"context"
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

const (
	// APIKeyHeader carries the optional TronGrid key.
	APIKeyHeader = "TRON-PRO-API-KEY"

	nativeAsset    = "TRX"
	nativeDecimals = 6
	network        = "TRON"
	pageSize       = 200
)

// TronGrid fetches native and TRC-20 transfers.
type TronGrid struct {
	client rpc.Executor
}

func NewTronGrid(client rpc.Executor) *TronGrid {
	return &TronGrid{client: client}
}

func (g *TronGrid) Name() string { return "trongrid" }

func (g *TronGrid) Fetch(ctx context.Context, w domain.Wallet, since time.Time) ([]domain.Transaction, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(pageSize))
	q.Set("only_confirmed", "true")
	q.Set("order_by", "block_timestamp,desc")
	q.Set("min_timestamp", source.Millis(since))

	native, err := g.list(ctx, "/v1/accounts/"+w.Address+"/transactions", withVisible(q))
	if err != nil {
		return nil, fmt.Errorf("transactions: %w", err)
	}
	tokens, err := g.list(ctx, "/v1/accounts/"+w.Address+"/transactions/trc20", q)
	if err != nil {
		return nil, fmt.Errorf("trc20: %w", err)
	}

	var txs []domain.Transaction
	for _, item := range native {
		txs = append(txs, nativeTransfers(w.Address, item)...)
	}
	for _, item := range tokens {
		if tx, ok := tokenTransfer(w.Address, item); ok {
			txs = append(txs, tx)
		}
	}
	return txs, nil
}

func withVisible(q url.Values) url.Values {
	out := url.Values{}
	for k, v := range q {
		out[k] = v
	}
	out.Set("visible", "true")
	return out
}

func (g *TronGrid) list(ctx context.Context, path string, q url.Values) ([]any, error) {
	result, err := g.client.Execute(ctx, rpc.NewRESTOperation(path, path, q))
	if err != nil {
		return nil, err
	}
	m := source.Object(result)
	if m == nil {
		return nil, fmt.Errorf("invalid trongrid response %T", result)
	}
	if ok, present := m["success"].(bool); present && !ok {
		return nil, fmt.Errorf("trongrid: %s", source.String(m, "error"))
	}
	return source.List(m, "data"), nil
}

// nativeTransfers extracts TransferContract calls; other contract types
// (votes, freezes, smart contract calls) are not balance transfers.
func nativeTransfers(tracked string, item any) []domain.Transaction {
	m, ok := item.(map[string]any)
	if !ok {
		return nil
	}
	status := domain.TxStatusCompleted
	for _, r := range source.List(m, "ret") {
		if ret, _ := r.(map[string]any); ret != nil {
			if cr := source.String(ret, "contractRet"); cr != "" && cr != "SUCCESS" {
				status = domain.TxStatusFailed
			}
		}
	}

	var txs []domain.Transaction
	for _, c := range source.List(m, "raw_data", "contract") {
		contract, _ := c.(map[string]any)
		if source.String(contract, "type") != "TransferContract" {
			continue
		}
		value := source.Object(contract, "parameter", "value")
		from, to := source.String(value, "owner_address"), source.String(value, "to_address")
		typ, ok := chain.Classify(tracked, from, to)
		if !ok {
			continue
		}
		amount, err := source.BaseUnits(source.String(value, "amount"), nativeDecimals)
		if err != nil || amount.IsZero() {
			continue
		}
		txs = append(txs, domain.Transaction{
			Type:      typ,
			Asset:     nativeAsset,
			Amount:    amount,
			Timestamp: source.Time(m, "block_timestamp"),
			From:      from,
			To:        to,
			TxID:      source.String(m, "txID"),
			Status:    status,
			Network:   network,
		})
	}
	return txs
}

func tokenTransfer(tracked string, item any) (domain.Transaction, bool) {
	m, ok := item.(map[string]any)
	if !ok {
		return domain.Transaction{}, false
	}
	from, to := source.String(m, "from"), source.String(m, "to")
	typ, ok := chain.Classify(tracked, from, to)
	if !ok {
		return domain.Transaction{}, false
	}
	info := source.Object(m, "token_info")
	decimals := int32(6)
	if d, ok := source.Int(info, "decimals"); ok {
		decimals = int32(d)
	}
	amount, err := source.BaseUnits(source.String(m, "value"), decimals)
	if err != nil || amount.IsZero() {
		return domain.Transaction{}, false
	}
	symbol := strings.ToUpper(source.String(info, "symbol"))
	if symbol == "" {
		symbol = "UNKNOWN"
	}
	return domain.Transaction{
		Type:      typ,
		Asset:     symbol,
		Amount:    amount,
		Timestamp: source.Time(m, "block_timestamp"),
		From:      from,
		To:        to,
		TxID:      source.String(m, "transaction_id"),
		Status:    domain.TxStatusCompleted,
		Network:   network,
	}, true
}

// NewWalletAdapter builds the adapter for a TRON wallet.
func NewWalletAdapter(w domain.Wallet, client rpc.Executor, opts ...chain.Option) *chain.Adapter {
	return chain.NewAdapter(w, []chain.Fetcher{NewTronGrid(client)}, opts...)
}
