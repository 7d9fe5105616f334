// Package bitcoin reads address history from public Bitcoin explorers.
package bitcoin

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vietddude/txsync/internal/core/domain"
	"github.com/vietddude/txsync/internal/infra/chain"
	"github.com/vietddude/txsync/internal/infra/rpc"
	"github.com/vietddude/txsync/internal/infra/source"
)

const (
	asset    = "BTC"
	decimals = 8

	// MaxWindow bounds how far back explorer pages are trusted to reach.
	MaxWindow = 30 * 24 * time.Hour
)

// leg is one input or output reduced to what direction needs.
type leg struct {
	address string
	value   string // satoshi
}

type rawTx struct {
	id        string
	confirmed bool
	time      time.Time
	inputs    []leg
	outputs   []leg
}

// toTransaction applies the wallet-relative view of a UTXO transaction.
// If the wallet funds any input it is a withdrawal of everything sent to
// other addresses. Otherwise outputs paying the wallet make a deposit.
func toTransaction(tracked string, tx rawTx) (domain.Transaction, bool) {
	var spent, received, sentOut decimal.Decimal
	var firstSender, firstRecipient string

	for _, in := range tx.inputs {
		v, err := source.BaseUnits(in.value, decimals)
		if err != nil {
			continue
		}
		if source.SameAddress(in.address, tracked) {
			spent = spent.Add(v)
		} else if firstSender == "" {
			firstSender = in.address
		}
	}
	for _, out := range tx.outputs {
		v, err := source.BaseUnits(out.value, decimals)
		if err != nil {
			continue
		}
		if source.SameAddress(out.address, tracked) {
			received = received.Add(v)
			continue
		}
		sentOut = sentOut.Add(v)
		if firstRecipient == "" {
			firstRecipient = out.address
		}
	}

	status := domain.TxStatusPending
	if tx.confirmed {
		status = domain.TxStatusCompleted
	}
	base := domain.Transaction{
		Asset:     asset,
		Timestamp: tx.time,
		TxID:      tx.id,
		Status:    status,
		Network:   "BTC",
	}

	switch {
	case spent.IsPositive():
		base.Type = domain.TxTypeWithdrawal
		base.Amount = source.Trim(sentOut)
		base.From = tracked
		base.To = orDefault(firstRecipient, domain.CounterpartyExternal)
	case received.IsPositive():
		base.Type = domain.TxTypeDeposit
		base.Amount = source.Trim(received)
		base.From = orDefault(firstSender, domain.CounterpartyExternal)
		base.To = tracked
	default:
		return domain.Transaction{}, false
	}
	return base, true
}

func convert(w domain.Wallet, raws []rawTx) []domain.Transaction {
	txs := make([]domain.Transaction, 0, len(raws))
	for _, raw := range raws {
		if tx, ok := toTransaction(w.Address, raw); ok {
			txs = append(txs, tx)
		}
	}
	return txs
}

// Blockstream reads the Esplora API.
type Blockstream struct {
	client rpc.Executor
}

func NewBlockstream(client rpc.Executor) *Blockstream {
	return &Blockstream{client: client}
}

func (b *Blockstream) Name() string { return "blockstream" }

func (b *Blockstream) Fetch(ctx context.Context, w domain.Wallet, since time.Time) ([]domain.Transaction, error) {
	result, err := b.client.Execute(ctx, rpc.NewRESTOperation("address_txs", "/address/"+w.Address+"/txs", nil))
	if err != nil {
		return nil, err
	}
	items, ok := result.([]any)
	if !ok {
		return nil, fmt.Errorf("invalid esplora response %T", result)
	}

	raws := make([]rawTx, 0, len(items))
	for i, item := range items {
		t, ok := item.(map[string]any)
		if !ok {
			slog.Warn("skipping invalid transaction", "explorer", b.Name(), "index", i)
			continue
		}
		status := source.Object(t, "status")
		confirmed, _ := status["confirmed"].(bool)
		raw := rawTx{
			id:        source.String(t, "txid"),
			confirmed: confirmed,
			time:      source.Time(status, "block_time"),
		}
		for _, v := range source.List(t, "vin") {
			prev := source.Object(v, "prevout")
			raw.inputs = append(raw.inputs, leg{address: source.String(prev, "scriptpubkey_address"), value: source.String(prev, "value")})
		}
		for _, v := range source.List(t, "vout") {
			out, _ := v.(map[string]any)
			raw.outputs = append(raw.outputs, leg{address: source.String(out, "scriptpubkey_address"), value: source.String(out, "value")})
		}
		raws = append(raws, raw)
	}
	return convert(w, raws), nil
}

// BlockchainInfo reads the blockchain.info rawaddr API.
type BlockchainInfo struct {
	client rpc.Executor
}

func NewBlockchainInfo(client rpc.Executor) *BlockchainInfo {
	return &BlockchainInfo{client: client}
}

func (b *BlockchainInfo) Name() string { return "blockchain.info" }

func (b *BlockchainInfo) Fetch(ctx context.Context, w domain.Wallet, since time.Time) ([]domain.Transaction, error) {
	op := rpc.NewRESTOperation("rawaddr", "/rawaddr/"+w.Address, map[string][]string{"limit": {"50"}})
	result, err := b.client.Execute(ctx, op)
	if err != nil {
		return nil, err
	}
	items := source.List(result, "txs")
	if items == nil && source.Object(result) == nil {
		return nil, fmt.Errorf("invalid rawaddr response %T", result)
	}

	raws := make([]rawTx, 0, len(items))
	for i, item := range items {
		t, ok := item.(map[string]any)
		if !ok {
			slog.Warn("skipping invalid transaction", "explorer", b.Name(), "index", i)
			continue
		}
		_, hasHeight := source.Int(t, "block_height")
		raw := rawTx{
			id:        source.String(t, "hash"),
			confirmed: hasHeight,
			time:      source.Time(t, "time"),
		}
		for _, v := range source.List(t, "inputs") {
			prev := source.Object(v, "prev_out")
			raw.inputs = append(raw.inputs, leg{address: source.String(prev, "addr"), value: source.String(prev, "value")})
		}
		for _, v := range source.List(t, "out") {
			out, _ := v.(map[string]any)
			raw.outputs = append(raw.outputs, leg{address: source.String(out, "addr"), value: source.String(out, "value")})
		}
		raws = append(raws, raw)
	}
	return convert(w, raws), nil
}

// NewWalletAdapter wires Blockstream first and blockchain.info as fallback.
func NewWalletAdapter(w domain.Wallet, blockstream, blockchainInfo rpc.Executor, opts ...chain.Option) *chain.Adapter {
	opts = append([]chain.Option{chain.WithMaxWindow(MaxWindow)}, opts...)
	return chain.NewAdapter(w, []chain.Fetcher{
		NewBlockstream(blockstream),
		NewBlockchainInfo(blockchainInfo),
	}, opts...)
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
