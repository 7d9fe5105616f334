// Package valuation applies the minimum fiat value rule to new transactions.
package valuation

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/vietddude/txsync/internal/core/domain"
)

// UnknownAssetPolicy decides what happens to assets missing from the table.
type UnknownAssetPolicy string

const (
	// UnknownDefaultRate values unknown assets at Policy.DefaultRate.
	UnknownDefaultRate UnknownAssetPolicy = "default_rate"
	// UnknownKeep never filters unknown assets.
	UnknownKeep UnknownAssetPolicy = "keep"
)

// Policy configures the filter.
type Policy struct {
	MinValue     decimal.Decimal
	DefaultRate  decimal.Decimal
	Unknown      UnknownAssetPolicy
	ExemptAssets []string
	Fiat         string
}

// DefaultPolicy is a 1.0 AED minimum with unknown assets priced at 1.0.
func DefaultPolicy() Policy {
	return Policy{
		MinValue:    decimal.NewFromInt(1),
		DefaultRate: decimal.NewFromInt(1),
		Unknown:     UnknownDefaultRate,
		Fiat:        DefaultFiat,
	}
}

// Result is the outcome of one Filter call.
type Result struct {
	Kept      []domain.Transaction
	Discarded []domain.Discarded
	// UnknownAssets lists symbols that had no rate, sorted.
	UnknownAssets []string
}

// Filter keeps transactions whose amount x rate reaches the minimum value.
type Filter struct {
	prices PriceTable
	policy Policy
	exempt map[string]bool
}

// New creates a filter.
func New(prices PriceTable, policy Policy) *Filter {
	if policy.Fiat == "" {
		policy.Fiat = DefaultFiat
	}
	if policy.Unknown == "" {
		policy.Unknown = UnknownDefaultRate
	}
	exempt := make(map[string]bool, len(policy.ExemptAssets))
	for _, a := range policy.ExemptAssets {
		exempt[strings.ToUpper(strings.TrimSpace(a))] = true
	}
	return &Filter{prices: prices, policy: policy, exempt: exempt}
}

// Apply splits txs into kept and discarded, preserving input order.
func (f *Filter) Apply(txs []domain.Transaction) Result {
	res := Result{Kept: make([]domain.Transaction, 0, len(txs))}
	unknown := map[string]bool{}

	for _, tx := range txs {
		asset := strings.ToUpper(strings.TrimSpace(tx.Asset))
		rate, known := f.prices.Rate(asset)
		if !known {
			unknown[asset] = true
			if f.policy.Unknown == UnknownKeep {
				res.Kept = append(res.Kept, tx)
				continue
			}
			rate = f.policy.DefaultRate
		}

		if f.exempt[asset] {
			res.Kept = append(res.Kept, tx)
			continue
		}

		value := tx.Amount.Abs().Mul(rate)
		if value.GreaterThanOrEqual(f.policy.MinValue) {
			res.Kept = append(res.Kept, tx)
			continue
		}
		res.Discarded = append(res.Discarded, domain.Discarded{
			Transaction:     tx,
			CalculatedValue: value,
			UsedDefaultRate: !known,
			FilterReason:    f.reason(value, !known),
		})
	}

	for a := range unknown {
		res.UnknownAssets = append(res.UnknownAssets, a)
	}
	sort.Strings(res.UnknownAssets)
	return res
}

func (f *Filter) reason(value decimal.Decimal, usedDefault bool) string {
	s := fmt.Sprintf("Value %s %s < %s %s minimum",
		value.StringFixed(2), f.policy.Fiat, threshold(f.policy.MinValue), f.policy.Fiat)
	if usedDefault {
		s += " (default rate)"
	}
	return s
}

// threshold renders the minimum with at least one decimal, so 1 reads "1.0".
func threshold(d decimal.Decimal) string {
	if d.Exponent() >= -1 {
		return d.StringFixed(1)
	}
	return d.String()
}
