package port

import (
	"context"

	"portfolio_tracker/internal/domain/entity"
)

// BalanceSource returns raw balance observations, fresh as of call time,
// with non-negative amounts in native decimal units.
type BalanceSource interface {
	Name() string
	GetAllBalances(ctx context.Context) ([]entity.Observation, error)
}
