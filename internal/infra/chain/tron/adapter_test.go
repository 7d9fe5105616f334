package tron

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vietddude/txsync/internal/core/domain"
	"github.com/vietddude/txsync/internal/infra/chain"
	"github.com/vietddude/txsync/internal/infra/source/sourcetest"
)

const me = "TMeWallet111111111111111111111111"

var since = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

const native = `{"success":true,"data":[
	{"txID":"trx-in","block_timestamp":1704153600000,"ret":[{"contractRet":"SUCCESS"}],
	 "raw_data":{"contract":[{"type":"TransferContract","parameter":{"value":{"amount":25000000,"owner_address":"TSender","to_address":"TMeWallet111111111111111111111111"}}}]}},
	{"txID":"trx-vote","block_timestamp":1704153700000,"ret":[{"contractRet":"SUCCESS"}],
	 "raw_data":{"contract":[{"type":"VoteWitnessContract","parameter":{"value":{"owner_address":"TMeWallet111111111111111111111111"}}}]}},
	{"txID":"trx-out","block_timestamp":1704153800000,"ret":[{"contractRet":"SUCCESS"}],
	 "raw_data":{"contract":[{"type":"TransferContract","parameter":{"value":{"amount":1500000,"owner_address":"TMeWallet111111111111111111111111","to_address":"TDest"}}}]}}
]}`

const trc20 = `{"success":true,"data":[
	{"transaction_id":"usdt-in","block_timestamp":1704240000000,"from":"TExchange","to":"TMeWallet111111111111111111111111","value":"120000000","token_info":{"symbol":"USDT","decimals":6}},
	{"transaction_id":"usdt-other","block_timestamp":1704240000000,"from":"TA","to":"TB","value":"1","token_info":{"symbol":"USDT","decimals":6}}
]}`

func TestTronGrid(t *testing.T) {
	client := sourcetest.New(map[string]string{
		"/v1/accounts/" + me + "/transactions":       native,
		"/v1/accounts/" + me + "/transactions/trc20": trc20,
	})
	w := domain.Wallet{Name: "TRON Treasury", Address: me, Chain: domain.ChainTron}
	a := NewWalletAdapter(w, client, chain.WithClock(func() time.Time { return time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC) }))

	res := a.Fetch(context.Background(), since)

	require.Equal(t, domain.SourceWorking, res.Status.State)
	require.Len(t, res.Transactions, 3)

	in, out, usdt := res.Transactions[0], res.Transactions[1], res.Transactions[2]
	assert.Equal(t, domain.TxTypeDeposit, in.Type)
	assert.Equal(t, "25", in.Amount.String())
	assert.Equal(t, "TRX", in.Asset)
	assert.Equal(t, domain.TxTypeWithdrawal, out.Type)
	assert.Equal(t, "1.5", out.Amount.String())
	assert.Equal(t, "usdt-in", usdt.TxID)
	assert.Equal(t, "USDT", usdt.Asset)
	assert.Equal(t, "120", usdt.Amount.String())
	assert.Equal(t, "TRON", usdt.Network)

	require.NotEmpty(t, client.Calls)
	assert.Equal(t, "true", client.Calls[0].Query.Get("visible"))
	assert.Equal(t, "1704067200000", client.Calls[0].Query.Get("min_timestamp"))
}

func TestTronGridFailure(t *testing.T) {
	client := sourcetest.New(map[string]string{
		"/v1/accounts/" + me + "/transactions": `{"success":false,"error":"account not found"}`,
	})
	w := domain.Wallet{Name: "TRON", Address: me, Chain: domain.ChainTron}

	res := NewWalletAdapter(w, client).Fetch(context.Background(), since)

	assert.Equal(t, domain.SourceNotWorking, res.Status.State)
	assert.Contains(t, res.Status.Notes, "trongrid")
}
