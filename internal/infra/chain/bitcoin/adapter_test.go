package bitcoin

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vietddude/txsync/internal/core/domain"
	"github.com/vietddude/txsync/internal/infra/chain"
	"github.com/vietddude/txsync/internal/infra/source/sourcetest"
)

const me = "bc1qme"

var (
	now    = time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	since  = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	wallet = domain.Wallet{Name: "BTC Cold", Address: me, Chain: domain.ChainBitcoin}
)

// 1704153600 = 2024-01-02
const rawaddr = `{"address":"bc1qme","txs":[
	{"hash":"in1","time":1704153600,"block_height":820000,
	 "inputs":[{"prev_out":{"addr":"bc1qsender","value":150000000}}],
	 "out":[{"addr":"bc1qme","value":120000000},{"addr":"bc1qsender","value":29990000}]},
	{"hash":"out1","time":1704240000,"block_height":820100,
	 "inputs":[{"prev_out":{"addr":"bc1qme","value":120000000}}],
	 "out":[{"addr":"bc1qdest","value":50000000},{"addr":"bc1qme","value":69990000}]},
	{"hash":"other","time":1704240000,"block_height":820100,
	 "inputs":[{"prev_out":{"addr":"bc1qa","value":1000}}],
	 "out":[{"addr":"bc1qb","value":900}]},
	{"hash":"mempool","time":1704300000,
	 "inputs":[{"prev_out":{"addr":"bc1qx","value":5000}}],
	 "out":[{"addr":"bc1qme","value":5000}]}
]}`

const esplora = `[
	{"txid":"es1","status":{"confirmed":true,"block_time":1704153600},
	 "vin":[{"prevout":{"scriptpubkey_address":"bc1qsender","value":10000}}],
	 "vout":[{"scriptpubkey_address":"bc1qme","value":10000}]}
]`

func newAdapter(info, stream *sourcetest.Client) *chain.Adapter {
	return NewWalletAdapter(wallet, stream, info, chain.WithClock(func() time.Time { return now }))
}

func TestBlockchainInfoDirection(t *testing.T) {
	info := sourcetest.New(map[string]string{"/rawaddr/" + me: rawaddr})
	stream := sourcetest.New(nil)
	stream.Errors["/address/"+me+"/txs"] = errors.New("503")

	res := newAdapter(info, stream).Fetch(context.Background(), since)

	require.Equal(t, domain.SourceWorking, res.Status.State)
	require.Len(t, res.Transactions, 2)
	assert.Equal(t, 1, stream.Called("/address/"+me+"/txs"))

	dep, wd := res.Transactions[0], res.Transactions[1]
	assert.Equal(t, domain.TxTypeDeposit, dep.Type)
	assert.Equal(t, "1.2", dep.Amount.String())
	assert.Equal(t, "bc1qsender", dep.From)
	assert.Equal(t, me, dep.To)
	assert.Equal(t, "BTC", dep.Asset)
	assert.Equal(t, "bitcoin:blockchain.info", dep.APISource)

	assert.Equal(t, domain.TxTypeWithdrawal, wd.Type)
	assert.Equal(t, "0.5", wd.Amount.String(), "change output is not counted")
	assert.Equal(t, me, wd.From)
	assert.Equal(t, "bc1qdest", wd.To)
	assert.Equal(t, "2 transactions", res.Status.Notes)
}

func TestBlockstreamPreferred(t *testing.T) {
	info := sourcetest.New(map[string]string{"/rawaddr/" + me: rawaddr})
	stream := sourcetest.New(map[string]string{"/address/" + me + "/txs": esplora})

	res := newAdapter(info, stream).Fetch(context.Background(), since)

	assert.Equal(t, 0, info.Called("/rawaddr/"+me), "fallback not needed")

	require.Equal(t, domain.SourceWorking, res.Status.State)
	require.Len(t, res.Transactions, 1)
	tx := res.Transactions[0]
	assert.Equal(t, "es1", tx.TxID)
	assert.Equal(t, "0.0001", tx.Amount.String())
	assert.Equal(t, "bitcoin:blockstream", tx.APISource)
}

func TestAllExplorersDown(t *testing.T) {
	info := sourcetest.New(nil)
	info.Errors["/rawaddr/"+me] = errors.New("boom")
	stream := sourcetest.New(nil)
	stream.Errors["/address/"+me+"/txs"] = errors.New("boom")

	res := newAdapter(info, stream).Fetch(context.Background(), since)

	assert.Equal(t, domain.SourceNotWorking, res.Status.State)
	assert.Empty(t, res.Transactions)
	assert.Contains(t, res.Status.Notes, "blockchain.info")
	assert.Contains(t, res.Status.Notes, "blockstream")
}

func TestUnrelatedTransactionIgnored(t *testing.T) {
	_, ok := toTransaction(me, rawTx{
		id:      "x",
		inputs:  []leg{{address: "a", value: "10"}},
		outputs: []leg{{address: "b", value: "10"}},
	})
	assert.False(t, ok)
}
