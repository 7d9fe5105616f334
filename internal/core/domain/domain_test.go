package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInferChainType(t *testing.T) {
	cases := map[string]ChainType{
		"Treasury Bitcoin":   ChainBitcoin,
		"Ops ERC20":          ChainEthereum,
		"Payouts BEP20":      ChainBSC,
		"Tron Hot Wallet":    ChainTron,
		"Solana Cold":        ChainSolana,
		"Unlabelled Address": "",
	}
	for name, want := range cases {
		assert.Equal(t, want, InferChainType(name), name)
	}
}

func TestPartitionFor(t *testing.T) {
	p, err := PartitionFor(TxTypeDeposit)
	require.NoError(t, err)
	assert.Equal(t, PartitionDeposits, p)

	p, err = PartitionFor(TxTypeWithdrawal)
	require.NoError(t, err)
	assert.Equal(t, PartitionWithdrawals, p)

	_, err = PartitionFor("transfer")
	assert.Error(t, err)
}

func TestTransactionRow(t *testing.T) {
	tx := Transaction{
		Platform:  "Binance (Main)",
		Type:      TxTypeDeposit,
		Asset:     "USDT",
		Amount:    decimal.RequireFromString("50.000100"),
		Timestamp: time.Date(2024, 1, 1, 13, 5, 59, 0, time.UTC),
		From:      "External",
		To:        "Binance (Main)",
		TxID:      "A1",
		Network:   "TRX",
		APISource: "binance:deposits",
	}

	row := tx.Row()
	assert.Equal(t, "2024-01-01 13:05", row.Timestamp)
	assert.Equal(t, "50.000100", row.Amount)
	assert.Equal(t,
		[]string{"Binance (Main)", "USDT", "50.000100", "2024-01-01 13:05", "External", "Binance (Main)", "A1"},
		row.Values())
}

func TestFormatAmount(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"1.50", "1.50"},
		{"0.00012300", "0.00012300"},
		{"50", "50"},
		{"-2.10", "-2.10"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatAmount(decimal.RequireFromString(tt.in)), tt.in)
	}

	d := Discarded{Transaction: Transaction{Amount: decimal.RequireFromString("0.20")}}
	assert.Equal(t, "0.20", d.Row().Amount)
}

func TestWriteReportAllFailed(t *testing.T) {
	r := WriteReport{Partitions: map[Partition]PartitionResult{
		PartitionDeposits:    {Error: "boom"},
		PartitionWithdrawals: {Added: 2},
	}}
	assert.False(t, r.AllFailed())
	assert.Equal(t, 2, r.Added())

	r.Partitions[PartitionWithdrawals] = PartitionResult{Error: "boom"}
	assert.True(t, r.AllFailed())
}
