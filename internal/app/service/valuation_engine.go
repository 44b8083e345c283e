package service

import (
	"github.com/shopspring/decimal"

	"portfolio_tracker/internal/domain/entity"
)

// ValuationEngine prices canonical balances.
type ValuationEngine struct {
	registry *AssetRegistry
}

// NewValuationEngine creates a new ValuationEngine.
func NewValuationEngine(registry *AssetRegistry) *ValuationEngine {
	return &ValuationEngine{registry: registry}
}

// Value computes the USD value of every held asset and the portfolio total.
// An asset without a price is valued at zero with Priced=false and is still
// listed.
func (e *ValuationEngine) Value(holdings entity.Holdings, prices entity.PriceMap) entity.Valuation {
	v := entity.Valuation{
		Assets:   make(map[string]entity.AssetValue, len(holdings)),
		TotalUSD: decimal.Zero,
	}

	for _, symbol := range holdings.Symbols() {
		balance := holdings[symbol]
		feedID, _ := e.registry.FeedID(symbol)

		av := entity.AssetValue{
			Symbol:    symbol,
			Balance:   balance.Total(),
			Chains:    balance.Chains(),
			FeedID:    feedID,
			UnitPrice: decimal.Zero,
			USDValue:  decimal.Zero,
		}
		if price, ok := prices[feedID]; ok && feedID != "" {
			av.UnitPrice = price
			av.USDValue = balance.Total().Mul(price)
			av.Priced = true
		}

		v.Assets[symbol] = av
		v.TotalUSD = v.TotalUSD.Add(av.USDValue)
	}
	return v
}
