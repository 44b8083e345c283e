package service

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	"portfolio_tracker/internal/app/port"
	"portfolio_tracker/internal/domain/entity"
)

const balancesCacheKey = "balances"

// bounds a shared fetch once it is detached from the caller that started it
const defaultBalanceFetchTimeout = time.Minute

// CachedBalanceSource memoises a balance source for a TTL. Concurrent misses
// share a single upstream call.
type CachedBalanceSource struct {
	inner        port.BalanceSource
	cache        *cache.Cache
	group        singleflight.Group
	fetchTimeout time.Duration
}

// NewCachedBalanceSource wraps inner with a TTL cache.
func NewCachedBalanceSource(inner port.BalanceSource, ttl time.Duration) *CachedBalanceSource {
	return &CachedBalanceSource{inner: inner, cache: cache.New(ttl, 2*ttl), fetchTimeout: defaultBalanceFetchTimeout}
}

// Name returns the wrapped source's name.
func (c *CachedBalanceSource) Name() string { return c.inner.Name() }

// GetAllBalances returns cached observations when fresh. Errors are not cached.
// The shared upstream call does not inherit the cancellation of whichever
// caller started it; each caller stops waiting on its own context.
func (c *CachedBalanceSource) GetAllBalances(ctx context.Context) ([]entity.Observation, error) {
	if x, found := c.cache.Get(balancesCacheKey); found {
		return copyObservations(x.([]entity.Observation)), nil
	}

	ch := c.group.DoChan(balancesCacheKey, func() (interface{}, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.fetchTimeout)
		defer cancel()

		obs, err := c.inner.GetAllBalances(fetchCtx)
		if err != nil {
			return nil, err
		}
		c.cache.SetDefault(balancesCacheKey, obs)
		return obs, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return copyObservations(res.Val.([]entity.Observation)), nil
	}
}

func copyObservations(in []entity.Observation) []entity.Observation {
	out := make([]entity.Observation, len(in))
	copy(out, in)
	return out
}

// CachedPriceSource caches unit prices per feed id.
type CachedPriceSource struct {
	inner port.PriceSource
	cache *cache.Cache
}

// NewCachedPriceSource wraps inner with a per-id TTL cache.
func NewCachedPriceSource(inner port.PriceSource, ttl time.Duration) *CachedPriceSource {
	return &CachedPriceSource{inner: inner, cache: cache.New(ttl, 2*ttl)}
}

// GetPrices serves fresh ids from the cache and fetches only the rest. Ids
// the upstream does not know stay absent and are asked for again next time.
func (c *CachedPriceSource) GetPrices(ctx context.Context, ids []string) (entity.PriceMap, error) {
	prices := make(entity.PriceMap, len(ids))
	var missing []string
	for _, id := range ids {
		if x, found := c.cache.Get(id); found {
			prices[id] = x.(decimal.Decimal)
			continue
		}
		missing = append(missing, id)
	}
	if len(missing) == 0 {
		return prices, nil
	}

	fetched, err := c.inner.GetPrices(ctx, missing)
	if err != nil {
		if len(prices) > 0 {
			return prices, err
		}
		return nil, err
	}
	for id, p := range fetched {
		c.cache.SetDefault(id, p)
		prices[id] = p
	}
	return prices, nil
}
