// Package solana reads native SOL transfers over the public JSON-RPC API.
package solana

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
	asset    = "SOL"
	decimals = 9

	// SignatureLimit caps how many recent signatures are inspected per run.
	SignatureLimit = 20
)

// RPC fetches signatures and resolves each into a balance change.
type RPC struct {
	client rpc.Executor
	limit  int
}

func NewRPC(client rpc.Executor) *RPC {
	return &RPC{client: client, limit: SignatureLimit}
}

func (r *RPC) Name() string { return "solana-rpc" }

func (r *RPC) Fetch(ctx context.Context, w domain.Wallet, since time.Time) ([]domain.Transaction, error) {
	op := rpc.NewJSONRPCOperation("getSignaturesForAddress", w.Address, map[string]any{"limit": r.limit})
	result, err := r.client.Execute(ctx, op)
	if err != nil {
		return nil, err
	}
	sigs, ok := result.([]any)
	if !ok {
		return nil, fmt.Errorf("invalid getSignaturesForAddress result %T", result)
	}

	var txs []domain.Transaction
	for _, s := range sigs {
		sig, _ := s.(map[string]any)
		if sig == nil || sig["err"] != nil {
			continue
		}
		// Signatures are newest first.
		if bt := source.Time(sig, "blockTime"); !bt.IsZero() && bt.Before(since) {
			break
		}
		id := source.String(sig, "signature")
		tx, ok, err := r.resolve(ctx, w.Address, id)
		if err != nil {
			slog.Warn("skipping unresolved signature", "wallet", w.Name, "signature", id, "error", err)
			continue
		}
		if ok {
			txs = append(txs, tx)
		}
	}
	return txs, nil
}

func (r *RPC) resolve(ctx context.Context, tracked, sig string) (domain.Transaction, bool, error) {
	op := rpc.NewJSONRPCOperation("getTransaction", sig, map[string]any{
		"encoding":                       "jsonParsed",
		"maxSupportedTransactionVersion": 0,
	})
	result, err := r.client.Execute(ctx, op)
	if err != nil {
		return domain.Transaction{}, false, err
	}
	m := source.Object(result)
	if m == nil {
		return domain.Transaction{}, false, fmt.Errorf("transaction %s not found", sig)
	}

	keys := accountKeys(m)
	meta := source.Object(m, "meta")
	pre := lamports(source.List(meta, "preBalances"))
	post := lamports(source.List(meta, "postBalances"))

	idx := -1
	for i, k := range keys {
		if source.SameAddress(k, tracked) {
			idx = i
			break
		}
	}
	if idx < 0 || idx >= len(pre) || idx >= len(post) {
		return domain.Transaction{}, false, nil
	}

	delta := post[idx].Sub(pre[idx])
	if idx == 0 {
		// The fee payer's balance change includes the fee.
		fee, _ := source.Decimal(meta, "fee")
		delta = delta.Add(fee)
	}
	if delta.IsZero() {
		return domain.Transaction{}, false, nil
	}

	status := domain.TxStatusCompleted
	if meta["err"] != nil {
		status = domain.TxStatusFailed
	}
	tx := domain.Transaction{
		Asset:     asset,
		Amount:    source.Trim(delta.Abs().Shift(-decimals)),
		Timestamp: source.Time(m, "blockTime"),
		TxID:      sig,
		Status:    status,
		Network:   "SOL",
	}
	if delta.IsPositive() {
		tx.Type = domain.TxTypeDeposit
		tx.From = counterparty(keys, pre, post, idx, false)
		tx.To = tracked
	} else {
		tx.Type = domain.TxTypeWithdrawal
		tx.From = tracked
		tx.To = counterparty(keys, pre, post, idx, true)
	}
	return tx, true, nil
}

// counterparty returns the first other account whose balance moved the
// opposite way.
func counterparty(keys []string, pre, post []decimal.Decimal, self int, gained bool) string {
	for i := range keys {
		if i == self || i >= len(pre) || i >= len(post) {
			continue
		}
		d := post[i].Sub(pre[i])
		if (gained && d.IsPositive()) || (!gained && d.IsNegative()) {
			return keys[i]
		}
	}
	return domain.CounterpartyExternal
}

func accountKeys(tx map[string]any) []string {
	raw := source.List(tx, "transaction", "message", "accountKeys")
	keys := make([]string, 0, len(raw))
	for _, k := range raw {
		switch v := k.(type) {
		case string:
			keys = append(keys, v)
		case map[string]any:
			keys = append(keys, source.String(v, "pubkey"))
		default:
			keys = append(keys, "")
		}
	}
	return keys
}

func lamports(raw []any) []decimal.Decimal {
	out := make([]decimal.Decimal, len(raw))
	for i, v := range raw {
		out[i], _ = decimal.NewFromString(fmt.Sprint(v))
	}
	return out
}

// NewWalletAdapter builds the adapter for a Solana wallet.
func NewWalletAdapter(w domain.Wallet, client rpc.Executor, opts ...chain.Option) *chain.Adapter {
	return chain.NewAdapter(w, []chain.Fetcher{NewRPC(client)}, opts...)
}
