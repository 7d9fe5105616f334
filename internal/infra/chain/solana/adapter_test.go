package solana

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vietddude/txsync/internal/core/domain"
	"github.com/vietddude/txsync/internal/infra/rpc"
	"github.com/vietddude/txsync/internal/infra/source/sourcetest"
)

const me = "MeWa11et1111111111111111111111111111111111"

var since = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// bySignature answers getTransaction per signature.
type bySignature struct {
	sigs string
	txs  map[string]string
}

func (b bySignature) Execute(ctx context.Context, op rpc.Operation) (any, error) {
	if op.RPCMethod == "getSignaturesForAddress" {
		return sourcetest.Decode(b.sigs)
	}
	sig, _ := op.Params[0].(string)
	body, ok := b.txs[sig]
	if !ok {
		return nil, errors.New("not found")
	}
	return sourcetest.Decode(body)
}

const sigs = `[
	{"signature":"in","blockTime":1704240000,"err":null},
	{"signature":"out","blockTime":1704153600,"err":null},
	{"signature":"failed","blockTime":1704153500,"err":{"InstructionError":[0,"Custom"]}},
	{"signature":"noop","blockTime":1704153400,"err":null},
	{"signature":"old","blockTime":1703980800,"err":null}
]`

var txs = map[string]string{
	// someone pays the wallet 2 SOL; wallet is not the fee payer
	"in": `{"blockTime":1704240000,"meta":{"err":null,"fee":5000,
		"preBalances":[10000000000,1000000000],"postBalances":[7999995000,3000000000]},
		"transaction":{"message":{"accountKeys":[{"pubkey":"Sender1","signer":true},{"pubkey":"` + me + `","signer":false}]}}}`,
	// wallet sends 0.5 SOL and pays the fee
	"out": `{"blockTime":1704153600,"meta":{"err":null,"fee":5000,
		"preBalances":[3000000000,0],"postBalances":[2499995000,500000000]},
		"transaction":{"message":{"accountKeys":[{"pubkey":"` + me + `","signer":true},{"pubkey":"Dest1","signer":false}]}}}`,
	// fee only, no transfer
	"noop": `{"blockTime":1704153400,"meta":{"err":null,"fee":5000,
		"preBalances":[3000005000],"postBalances":[3000000000]},
		"transaction":{"message":{"accountKeys":["` + me + `"]}}}`,
}

func TestBalanceDeltaDirection(t *testing.T) {
	w := domain.Wallet{Name: "SOL Ops", Address: me, Chain: domain.ChainSolana}
	res := NewWalletAdapter(w, bySignature{sigs: sigs, txs: txs}).Fetch(context.Background(), since)

	require.Equal(t, domain.SourceWorking, res.Status.State)
	require.Len(t, res.Transactions, 2)

	in, out := res.Transactions[0], res.Transactions[1]
	assert.Equal(t, domain.TxTypeDeposit, in.Type)
	assert.Equal(t, "2", in.Amount.String())
	assert.Equal(t, "Sender1", in.From)
	assert.Equal(t, me, in.To)

	assert.Equal(t, domain.TxTypeWithdrawal, out.Type)
	assert.Equal(t, "0.5", out.Amount.String(), "fee is not part of the transfer")
	assert.Equal(t, "Dest1", out.To)
	assert.Equal(t, "SOL", out.Asset)
}

func TestRPCDown(t *testing.T) {
	client := sourcetest.New(nil)
	client.Errors["getSignaturesForAddress"] = errors.New("dial tcp: refused")
	w := domain.Wallet{Name: "SOL", Address: me, Chain: domain.ChainSolana}

	res := NewWalletAdapter(w, client).Fetch(context.Background(), since)

	assert.Equal(t, domain.SourceNotWorking, res.Status.State)
}
