package valuation

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// DefaultFiat is the currency the built-in table is quoted in.
const DefaultFiat = "AED"

// defaultAEDRates is the built-in static table, quoted in AED.
var defaultAEDRates = map[string]string{
	"BTC":   "220200",
	"ETH":   "11010",
	"USDT":  "3.67",
	"USDC":  "3.67",
	"SOL":   "181.50",
	"TRX":   "0.37",
	"BNB":   "2200",
	"SEI":   "1.47",
	"BUSD":  "3.67",
	"ADA":   "1.47",
	"DOT":   "18.50",
	"MATIC": "1.84",
	"LINK":  "44.10",
	"UNI":   "25.75",
	"LTC":   "257.25",
	"XRP":   "2.20",
	"AVAX":  "117.00",
	"ATOM":  "29.50",
	"NEAR":  "22.00",
	"FTM":   "2.94",
	"ALGO":  "1.10",
	"VET":   "0.11",
	"ICP":   "36.75",
	"SAND":  "1.84",
	"MANA":  "1.47",
	"CRO":   "0.44",
	"SHIB":  "0.00009",
	"DOGE":  "0.26",
	"BCH":   "1468.00",
	"ETC":   "92.40",
}

// PriceTable maps upper-case asset symbols to a fiat rate.
type PriceTable map[string]decimal.Decimal

// DefaultPrices returns a copy of the built-in AED table.
func DefaultPrices() PriceTable {
	t := make(PriceTable, len(defaultAEDRates))
	for asset, rate := range defaultAEDRates {
		t[asset] = decimal.RequireFromString(rate)
	}
	return t
}

// NewPriceTable builds a table from configured rates, on top of the
// built-in table unless replace is set.
func NewPriceTable(rates map[string]float64, replace bool) PriceTable {
	t := PriceTable{}
	if !replace {
		t = DefaultPrices()
	}
	for asset, rate := range rates {
		t[strings.ToUpper(strings.TrimSpace(asset))] = decimal.NewFromFloat(rate)
	}
	return t
}

// Rate looks up an asset case-insensitively.
func (t PriceTable) Rate(asset string) (decimal.Decimal, bool) {
	r, ok := t[strings.ToUpper(strings.TrimSpace(asset))]
	return r, ok
}

// Assets lists the priced symbols in order.
func (t PriceTable) Assets() []string {
	out := make([]string, 0, len(t))
	for a := range t {
		out = append(out, a)
	}
	sort.Strings(out)
	return out
}
