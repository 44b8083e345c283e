package entity

import (
	"sort"

	"github.com/shopspring/decimal"
)

// PriceMap maps a price-feed identifier (e.g. "ethereum") to a USD unit price.
type PriceMap map[string]decimal.Decimal

// AssetValue is the valuation of one canonical asset.
type AssetValue struct {
	Symbol    string                     `json:"symbol"`
	Balance   decimal.Decimal            `json:"balance"`
	Chains    map[string]decimal.Decimal `json:"chains"`
	FeedID    string                     `json:"feedId"`
	UnitPrice decimal.Decimal            `json:"unitPriceUSD"`
	USDValue  decimal.Decimal            `json:"valueUSD"`
	// Priced is false when the price feed had no entry for FeedID, in which
	// case UnitPrice and USDValue are zero.
	Priced bool `json:"priced"`
}

// Valuation is the per-asset USD valuation of the portfolio and its total.
type Valuation struct {
	Assets   map[string]AssetValue `json:"assets"`
	TotalUSD decimal.Decimal       `json:"totalValueUSD"`
}

// Symbols returns the valued symbols in sorted order.
func (v Valuation) Symbols() []string {
	symbols := make([]string, 0, len(v.Assets))
	for s := range v.Assets {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)
	return symbols
}

// Unpriced returns the sorted symbols for which no price was available.
func (v Valuation) Unpriced() []string {
	var out []string
	for _, s := range v.Symbols() {
		if !v.Assets[s].Priced {
			out = append(out, s)
		}
	}
	return out
}

// Values returns the per-asset USD values.
func (v Valuation) Values() map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(v.Assets))
	for s, a := range v.Assets {
		out[s] = a.USDValue
	}
	return out
}
