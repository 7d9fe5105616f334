package valuation

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vietddude/txsync/internal/core/domain"
)

func tx(id, asset, amount string) domain.Transaction {
	return domain.Transaction{
		Type:      domain.TxTypeDeposit,
		Asset:     asset,
		Amount:    decimal.RequireFromString(amount),
		TxID:      id,
		Timestamp: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Status:    domain.TxStatusCompleted,
	}
}

func TestScenarioUSDT(t *testing.T) {
	f := New(PriceTable{"USDT": decimal.RequireFromString("3.67")}, DefaultPolicy())

	res := f.Apply([]domain.Transaction{tx("A1", "USDT", "50"), tx("A2", "USDT", "0.01")})

	require.Len(t, res.Kept, 1)
	assert.Equal(t, "A1", res.Kept[0].TxID)
	require.Len(t, res.Discarded, 1)
	d := res.Discarded[0]
	assert.Equal(t, "A2", d.TxID)
	assert.Equal(t, "0.0367", d.CalculatedValue.String())
	assert.False(t, d.UsedDefaultRate)
	assert.Equal(t, "Value 0.04 AED < 1.0 AED minimum", d.FilterReason)
	assert.Contains(t, d.FilterReason, "< 1.0")
	assert.Empty(t, res.UnknownAssets)
}

func TestThresholdBoundary(t *testing.T) {
	f := New(PriceTable{"USDT": decimal.NewFromInt(1)}, DefaultPolicy())

	res := f.Apply([]domain.Transaction{
		tx("exact", "USDT", "1"),
		tx("below", "USDT", "0.999999999"),
	})

	require.Len(t, res.Kept, 1)
	assert.Equal(t, "exact", res.Kept[0].TxID)
	require.Len(t, res.Discarded, 1)
	assert.Equal(t, "below", res.Discarded[0].TxID)
	assert.NotEmpty(t, res.Discarded[0].FilterReason)
}

func TestUnknownAssetDefaultRate(t *testing.T) {
	f := New(PriceTable{}, DefaultPolicy())

	res := f.Apply([]domain.Transaction{tx("a", "pepe", "0.5"), tx("b", "PEPE", "2")})

	require.Len(t, res.Kept, 1)
	require.Len(t, res.Discarded, 1)
	assert.True(t, res.Discarded[0].UsedDefaultRate)
	assert.Equal(t, "Value 0.50 AED < 1.0 AED minimum (default rate)", res.Discarded[0].FilterReason)
	assert.Equal(t, []string{"PEPE"}, res.UnknownAssets)
}

func TestUnknownAssetKeep(t *testing.T) {
	p := DefaultPolicy()
	p.Unknown = UnknownKeep
	f := New(PriceTable{}, p)

	res := f.Apply([]domain.Transaction{tx("a", "DUST", "0.0001")})

	assert.Len(t, res.Kept, 1)
	assert.Empty(t, res.Discarded)
	assert.Equal(t, []string{"DUST"}, res.UnknownAssets)
}

func TestExemptAssets(t *testing.T) {
	p := DefaultPolicy()
	p.ExemptAssets = []string{"btc"}
	f := New(DefaultPrices(), p)

	res := f.Apply([]domain.Transaction{tx("sats", "BTC", "0.000001"), tx("eth", "ETH", "0.00001")})

	require.Len(t, res.Kept, 1)
	assert.Equal(t, "sats", res.Kept[0].TxID)
	require.Len(t, res.Discarded, 1)
	assert.Equal(t, "eth", res.Discarded[0].TxID)
}

func TestCustomFiatAndThreshold(t *testing.T) {
	f := New(PriceTable{"USDT": decimal.NewFromInt(1)}, Policy{
		MinValue: decimal.RequireFromString("5.25"),
		Fiat:     "USD",
	})

	res := f.Apply([]domain.Transaction{tx("a", "USDT", "5")})

	require.Len(t, res.Discarded, 1)
	assert.Equal(t, "Value 5.00 USD < 5.25 USD minimum", res.Discarded[0].FilterReason)
}

func TestNewPriceTable(t *testing.T) {
	merged := NewPriceTable(map[string]float64{"usdt": 3.6725, "NEW": 2}, false)
	r, ok := merged.Rate("USDT")
	require.True(t, ok)
	assert.Equal(t, "3.6725", r.String())
	_, ok = merged.Rate("btc")
	assert.True(t, ok, "built-in rates are kept")

	only := NewPriceTable(map[string]float64{"NEW": 2}, true)
	assert.Equal(t, []string{"NEW"}, only.Assets())
}
