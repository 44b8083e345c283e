package port

import (
	"context"

	"portfolio_tracker/internal/domain/entity"
)

// TokenProvider defines the interface for fetching token definitions.
type TokenProvider interface {
	// GetTokensByNetwork returns the tracked tokens keyed by network identifier.
	GetTokensByNetwork(networks []entity.NetworkDefinition) (map[string][]entity.TokenInfo, error)
}

// PriceSource returns USD unit prices keyed by feed identifier. Identifiers
// the market-data source does not know are simply absent from the result.
type PriceSource interface {
	GetPrices(ctx context.Context, ids []string) (entity.PriceMap, error)
}
