package evm

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

const me = "0xAbC0000000000000000000000000000000000001"

var (
	now   = time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	since = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
)

// 1704153600 = 2024-01-02
const txlist = `{"status":"1","message":"OK","result":[
	{"hash":"0xin","from":"0xfeed","to":"0xabc0000000000000000000000000000000000001","value":"1500000000000000000","timeStamp":"1704153600","isError":"0","txreceipt_status":"1"},
	{"hash":"0xout","from":"0xabc0000000000000000000000000000000000001","to":"0xdead","value":"250000000000000000","timeStamp":"1704153700","isError":"0","txreceipt_status":"1"},
	{"hash":"0xcall","from":"0xabc0000000000000000000000000000000000001","to":"0xrouter","value":"0","timeStamp":"1704153800","isError":"0","txreceipt_status":"1"},
	{"hash":"0xfail","from":"0xabc0000000000000000000000000000000000001","to":"0xdead","value":"1","timeStamp":"1704153900","isError":"1","txreceipt_status":"0"}
]}`

const tokentx = `{"status":"1","message":"OK","result":[
	{"hash":"0xtok","from":"0xexchange","to":"0xabc0000000000000000000000000000000000001","value":"2500000","tokenSymbol":"usdt","tokenDecimal":"6","timeStamp":"1704240000"},
	{"hash":"0xnotmine","from":"0xa","to":"0xb","value":"1","tokenSymbol":"USDT","tokenDecimal":"6","timeStamp":"1704240000"}
]}`

func clock() chain.Option { return chain.WithClock(func() time.Time { return now }) }

func TestEtherscanDirection(t *testing.T) {
	client := sourcetest.New(map[string]string{"txlist": txlist, "tokentx": tokentx})
	w := domain.Wallet{Name: "ETH Hot", Address: me, Chain: domain.ChainEthereum}

	a, err := NewWalletAdapter(w, client, "key", clock())
	require.NoError(t, err)
	res := a.Fetch(context.Background(), since)

	require.Equal(t, domain.SourceWorking, res.Status.State)
	require.Len(t, res.Transactions, 3)

	byID := map[string]domain.Transaction{}
	for _, tx := range res.Transactions {
		byID[tx.TxID] = tx
	}
	assert.Equal(t, domain.TxTypeDeposit, byID["0xin"].Type)
	assert.Equal(t, "1.5", byID["0xin"].Amount.String())
	assert.Equal(t, "ETH", byID["0xin"].Asset)
	assert.Equal(t, domain.TxTypeWithdrawal, byID["0xout"].Type)
	assert.Equal(t, "0.25", byID["0xout"].Amount.String())
	assert.Equal(t, "USDT", byID["0xtok"].Asset)
	assert.Equal(t, "2.5", byID["0xtok"].Amount.String())
	assert.NotContains(t, byID, "0xcall", "zero value contract calls are skipped")
	assert.NotContains(t, byID, "0xfail", "failed transactions are not settled")
	assert.NotContains(t, byID, "0xnotmine")
}

func TestEtherscanUsesChainID(t *testing.T) {
	client := sourcetest.New(map[string]string{
		"txlist":  `{"status":"0","message":"No transactions found","result":[]}`,
		"tokentx": `{"status":"0","message":"No transactions found","result":[]}`,
	})
	w := domain.Wallet{Name: "BSC", Address: me, Chain: domain.ChainBSC, APIKey: "wallet-key"}

	a, err := NewWalletAdapter(w, client, "global-key", clock())
	require.NoError(t, err)
	res := a.Fetch(context.Background(), since)

	assert.Equal(t, domain.SourceWorking, res.Status.State)
	assert.Empty(t, res.Transactions)
	require.NotEmpty(t, client.Calls)
	assert.Equal(t, "56", client.Calls[0].Query.Get("chainid"))
	assert.Equal(t, "wallet-key", client.Calls[0].Query.Get("apikey"))
}

func TestEtherscanErrors(t *testing.T) {
	w := domain.Wallet{Name: "ETH", Address: me, Chain: domain.ChainEthereum}

	t.Run("missing key", func(t *testing.T) {
		client := sourcetest.New(nil)
		a, err := NewWalletAdapter(w, client, "", clock())
		require.NoError(t, err)
		res := a.Fetch(context.Background(), since)
		assert.Equal(t, domain.SourceNotWorking, res.Status.State)
		assert.Contains(t, res.Status.Notes, "Missing credentials")
		assert.Empty(t, client.Calls)
	})

	t.Run("invalid key", func(t *testing.T) {
		client := sourcetest.New(map[string]string{
			"txlist": `{"status":"0","message":"NOTOK","result":"Invalid API Key"}`,
		})
		a, err := NewWalletAdapter(w, client, "bad", clock())
		require.NoError(t, err)
		res := a.Fetch(context.Background(), since)
		assert.Equal(t, domain.SourceNotWorking, res.Status.State)
	})

	t.Run("unsupported chain", func(t *testing.T) {
		_, err := NewWalletAdapter(domain.Wallet{Chain: domain.ChainTron}, sourcetest.New(nil), "k")
		assert.Error(t, err)
	})
}
