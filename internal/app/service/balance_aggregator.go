package service

import (
	"fmt"

	"portfolio_tracker/internal/app/port"
	"portfolio_tracker/internal/domain/entity"
)

// BalanceAggregator merges raw observations into canonical per-asset balances.
type BalanceAggregator struct {
	registry *AssetRegistry
	logger   port.Logger
}

// NewBalanceAggregator creates a new BalanceAggregator.
func NewBalanceAggregator(registry *AssetRegistry, l port.Logger) *BalanceAggregator {
	return &BalanceAggregator{registry: registry, logger: l}
}

// Aggregate resolves every observation through the registry and sums it into
// its canonical asset, both in the total and in the per-chain breakdown.
// Unregistered symbols are dropped. A negative amount is rejected with an
// invariant violation; nothing is returned in that case.
func (a *BalanceAggregator) Aggregate(observations []entity.Observation) (entity.Holdings, error) {
	holdings := make(entity.Holdings)
	dropped := 0

	for _, o := range observations {
		if o.Amount.IsNegative() {
			return nil, &entity.PortfolioError{
				Kind:    entity.ErrInvariantViolation,
				Chain:   o.Chain,
				Symbol:  o.Symbol,
				Message: fmt.Sprintf("negative balance observation %s", o.Amount),
			}
		}

		canonical, _, ok := a.registry.Resolve(o.Chain, o.Symbol)
		if !ok {
			dropped++
			a.logger.Debug("Dropping unregistered symbol", "chain", o.Chain, "symbol", o.Symbol)
			continue
		}

		balance, exists := holdings[canonical]
		if !exists {
			balance, _ = entity.NewCanonicalBalance(canonical, nil)
			holdings[canonical] = balance
		}
		if err := balance.Add(o.Chain, o.Amount); err != nil {
			return nil, err
		}
	}

	a.logger.Debug("Aggregated balances", "observations", len(observations), "assets", len(holdings), "dropped", dropped)
	return holdings, nil
}
