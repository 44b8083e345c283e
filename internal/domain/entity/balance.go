package entity

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// Observation is a single raw balance reading reported by a balance source.
// Chain names the chain or custodial source the amount was observed on and
// Symbol is the source-specific symbol, before registry resolution.
type Observation struct {
	Chain  string          `json:"chain"`
	Symbol string          `json:"symbol"`
	Amount decimal.Decimal `json:"amount"`
}

// CanonicalBalance is the aggregated balance of one canonical asset across
// every chain it was observed on. The zero value is not usable; build it with
// NewCanonicalBalance so that Total always equals the sum of the chains.
type CanonicalBalance struct {
	symbol string
	total  decimal.Decimal
	chains map[string]decimal.Decimal
}

// NewCanonicalBalance builds a balance for symbol from a per-chain breakdown.
func NewCanonicalBalance(symbol string, chains map[string]decimal.Decimal) (*CanonicalBalance, error) {
	b := &CanonicalBalance{
		symbol: symbol,
		total:  decimal.Zero,
		chains: make(map[string]decimal.Decimal, len(chains)),
	}
	for chain, amount := range chains {
		if err := b.Add(chain, amount); err != nil {
			return nil, err
		}
	}
	return b, nil
}

// Add accumulates amount into the chain entry and the total. Amounts are
// summed, never overwritten.
func (b *CanonicalBalance) Add(chain string, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return NewInvariantViolation(fmt.Sprintf("negative balance %s for %s on %s", amount, b.symbol, chain))
	}
	b.chains[chain] = b.chains[chain].Add(amount)
	b.total = b.total.Add(amount)
	return nil
}

// Symbol returns the canonical asset key.
func (b *CanonicalBalance) Symbol() string { return b.symbol }

// Total returns the sum across all chains.
func (b *CanonicalBalance) Total() decimal.Decimal { return b.total }

// Chains returns a copy of the per-chain breakdown.
func (b *CanonicalBalance) Chains() map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(b.chains))
	for k, v := range b.chains {
		out[k] = v
	}
	return out
}

// ChainNames returns the chains contributing to this balance, sorted.
func (b *CanonicalBalance) ChainNames() []string {
	names := make([]string, 0, len(b.chains))
	for k := range b.chains {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Amount returns the amount held on chain, zero if absent.
func (b *CanonicalBalance) Amount(chain string) decimal.Decimal {
	return b.chains[chain]
}

// Holdings maps a canonical symbol to its aggregated balance.
type Holdings map[string]*CanonicalBalance

// Symbols returns the held symbols in sorted order.
func (h Holdings) Symbols() []string {
	symbols := make([]string, 0, len(h))
	for s := range h {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)
	return symbols
}
