package bybit

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vietddude/txsync/internal/core/domain"
	"github.com/vietddude/txsync/internal/infra/exchange"
	"github.com/vietddude/txsync/internal/infra/source/sourcetest"
)

var since = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func fixtures() map[string]string {
	return map[string]string{
		"/v5/account/wallet-balance": `{"retCode":0,"retMsg":"OK","result":{"list":[]}}`,
		"/v5/asset/deposit/query-record": `{"retCode":0,"result":{"rows":[
			{"coin":"USDT","chain":"TRX","amount":"120.5","txID":"bb-dep-1","status":3,"toAddress":"TMine","successAt":"1704100000000"},
			{"coin":"USDT","chain":"TRX","amount":"9","txID":"bb-dep-2","status":1,"successAt":"1704100000000"}
		]}}`,
		"/v5/asset/deposit/query-internal-record": `{"retCode":0,"result":{"rows":[
			{"id":"int-1","coin":"USDC","amount":"15","status":2,"address":"friend@example.com","createdTime":"1704200000"},
			{"id":"int-2","coin":"USDC","amount":"15","status":1,"createdTime":"1704200001"}
		]}}`,
		"/v5/asset/withdraw/query-record": `{"retCode":0,"result":{"rows":[
			{"coin":"BTC","chain":"BTC","amount":"0.01","txID":"bb-wd-1","status":"success","toAddress":"bc1dest","withdrawId":"9","createTime":"1704300000000","updateTime":"1704300600000"},
			{"coin":"BTC","chain":"BTC","amount":"0.02","txID":"","status":"Pending","withdrawId":"10","createTime":"1704300000000"}
		]}}`,
		"/v5/asset/transfer/query-inter-transfer-list": `{"retCode":0,"result":{"list":[
			{"transferId":"t-in","amount":"30","fromAccountType":"FUND","toAccountType":"UNIFIED","timestamp":"1704400000000","status":"SUCCESS"},
			{"transferId":"t-out","coin":"ETH","amount":"1","fromAccountType":"UNIFIED","toAccountType":"FUND","timestamp":"1704400000001","status":"SUCCESS"},
			{"transferId":"t-other","coin":"ETH","amount":"2","fromAccountType":"FUND","toAccountType":"CONTRACT","timestamp":"1704400000002","status":"SUCCESS"},
			{"transferId":"t-pending","coin":"ETH","amount":"2","fromAccountType":"FUND","toAccountType":"UNIFIED","timestamp":"1704400000003","status":"PENDING"}
		]}}`,
	}
}

func TestFetch(t *testing.T) {
	client := sourcetest.New(fixtures())
	a := exchange.NewAdapter(Venue(), exchange.Account{Name: "ByBit"}, client, true)

	res := a.Fetch(context.Background(), since)
	require.Equal(t, domain.SourceActive, res.Status.State)
	assert.Equal(t, "1D + 1ID + 1W + 3T = 6 total", res.Status.Notes)

	txs := map[string]domain.Transaction{}
	for _, tx := range res.Transactions {
		txs[tx.TxID] = tx
	}

	dep := txs["bb-dep-1"]
	assert.Equal(t, domain.TxTypeDeposit, dep.Type)
	assert.Equal(t, "120.5", dep.Amount.String())
	assert.Equal(t, domain.CounterpartyExternal, dep.From)
	assert.Equal(t, "bybit:deposits", dep.APISource)

	// createdTime in seconds
	internal := txs["int-1"]
	assert.Equal(t, time.Unix(1704200000, 0).UTC(), internal.Timestamp)
	assert.Equal(t, "friend@example.com", internal.From)
	assert.Equal(t, "Internal", internal.Network)
	assert.Equal(t, "bybit:internal_deposits", internal.APISource)

	wd := txs["bb-wd-1"]
	assert.Equal(t, domain.TxTypeWithdrawal, wd.Type)
	assert.Equal(t, time.UnixMilli(1704300600000).UTC(), wd.Timestamp)
	assert.NotContains(t, txs, "10")

	assert.Equal(t, domain.TxTypeDeposit, txs["t-in"].Type)
	assert.Equal(t, "USDT", txs["t-in"].Asset)
	assert.Equal(t, domain.TxTypeWithdrawal, txs["t-out"].Type)
	assert.Equal(t, domain.TxTypeDeposit, txs["t-other"].Type)
	assert.NotContains(t, txs, "t-pending")
}

func TestFetch_RetCodeErrorFailsProbe(t *testing.T) {
	f := fixtures()
	f["/v5/account/wallet-balance"] = `{"retCode":10003,"retMsg":"API key is invalid."}`
	client := sourcetest.New(f)

	res := exchange.NewAdapter(Venue(), exchange.Account{Name: "ByBit"}, client, true).Fetch(context.Background(), since)
	assert.Equal(t, domain.SourceError, res.Status.State)
	assert.Contains(t, res.Status.Notes, "API key is invalid")
	assert.Empty(t, res.Transactions)
}

func TestWindowQueryClamped(t *testing.T) {
	until := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	q := windowQuery(exchange.Window{Since: until.AddDate(0, 0, -60), Until: until})
	assert.Equal(t, "1706659200000", q.Get("startTime"))
}

func TestSigner(t *testing.T) {
	s := Signer{Key: "k", Secret: "s", Now: func() time.Time { return time.UnixMilli(1700000000000) }}
	req, err := http.NewRequest(http.MethodGet, "https://api.bybit.com/v5/asset/deposit/query-record?limit=50", nil)
	require.NoError(t, err)
	require.NoError(t, s.Sign(req, nil))

	mac := hmac.New(sha256.New, []byte("s"))
	mac.Write([]byte("1700000000000" + "k" + "5000" + "limit=50"))
	assert.Equal(t, hex.EncodeToString(mac.Sum(nil)), req.Header.Get("X-BAPI-SIGN"))
	assert.Equal(t, "1700000000000", req.Header.Get("X-BAPI-TIMESTAMP"))
	assert.Equal(t, "5000", req.Header.Get("X-BAPI-RECV-WINDOW"))
}
