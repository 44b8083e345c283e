package service

import (
	"fmt"
	"sort"
	"strings"

	"portfolio_tracker/internal/domain/entity"
	"portfolio_tracker/internal/infrastructure/configloader"
	"portfolio_tracker/internal/pkg/utils"
)

// DefaultAssets is the built-in allow-list used when the configuration does
// not declare any asset. Native assets of the major chains carry explicit
// feed id overrides.
func DefaultAssets() []configloader.AssetConfig {
	return []configloader.AssetConfig{
		{Symbol: "ETH", FeedID: "ethereum", Aliases: []configloader.AliasConfig{{Symbol: "WETH"}}},
		{Symbol: "SOL", FeedID: "solana"},
		{Symbol: "BTC", FeedID: "bitcoin"},
		{Symbol: "USDC", FeedID: "usd-coin"},
	}
}

type assetEntry struct {
	symbol string
	feedID string
}

// AssetRegistry maps source-specific symbols to canonical asset keys and
// price-feed identifiers. It is immutable after construction.
type AssetRegistry struct {
	assets map[string]assetEntry
	// global aliases keyed by upper-case raw symbol
	aliases map[string]string
	// chain-scoped aliases keyed by lower-case chain, then upper-case raw symbol
	chainAliases map[string]map[string]string
}

// NewAssetRegistry builds a registry from the configured assets, falling back
// to DefaultAssets when none are given. Malformed entries fail fast.
func NewAssetRegistry(assets []configloader.AssetConfig) (*AssetRegistry, error) {
	if len(assets) == 0 {
		assets = DefaultAssets()
	}

	r := &AssetRegistry{
		assets:       make(map[string]assetEntry, len(assets)),
		aliases:      make(map[string]string),
		chainAliases: make(map[string]map[string]string),
	}

	for i, a := range assets {
		symbol := normalizeSymbol(a.Symbol)
		if symbol == "" {
			return nil, entity.NewInvariantViolation(fmt.Sprintf("asset registry: assets[%d] has an empty symbol", i))
		}
		feedID := strings.TrimSpace(a.FeedID)
		if feedID == "" {
			feedID = strings.ToLower(symbol)
		}

		if existing, ok := r.assets[symbol]; ok && existing.feedID != feedID {
			return nil, entity.NewInvariantViolation(fmt.Sprintf(
				"asset registry: %s declared with conflicting feed ids %q and %q", symbol, existing.feedID, feedID))
		}
		r.assets[symbol] = assetEntry{symbol: symbol, feedID: feedID}
	}

	for _, a := range assets {
		symbol := normalizeSymbol(a.Symbol)
		for _, alias := range a.Aliases {
			if err := r.addAlias(normalizeChain(alias.Chain), normalizeSymbol(alias.Symbol), symbol); err != nil {
				return nil, err
			}
		}
	}

	return r, nil
}

func (r *AssetRegistry) addAlias(chain, raw, canonical string) error {
	if raw == "" {
		return entity.NewInvariantViolation(fmt.Sprintf("asset registry: empty alias for %s", canonical))
	}
	if target, ok := r.assets[raw]; ok && target.symbol != canonical && chain == "" {
		return entity.NewInvariantViolation(fmt.Sprintf(
			"asset registry: alias %s for %s shadows canonical asset %s", raw, canonical, target.symbol))
	}

	table := r.aliases
	if chain != "" {
		table = r.chainAliases[chain]
		if table == nil {
			table = make(map[string]string)
			r.chainAliases[chain] = table
		}
	}
	if existing, ok := table[raw]; ok && existing != canonical {
		return entity.NewInvariantViolation(fmt.Sprintf(
			"asset registry: alias %s maps to both %s and %s", raw, existing, canonical))
	}
	table[raw] = canonical
	return nil
}

// Resolve returns the canonical asset key and feed id for a raw symbol seen
// on chain. Chain-scoped aliases win over global aliases, which win over the
// canonical symbol itself. ok is false for symbols outside the allow-list.
func (r *AssetRegistry) Resolve(chain, raw string) (canonical, feedID string, ok bool) {
	sym := normalizeSymbol(raw)
	if sym == "" {
		return "", "", false
	}

	if scoped, found := r.chainAliases[normalizeChain(chain)]; found {
		if c, hit := scoped[sym]; hit {
			return c, r.assets[c].feedID, true
		}
	}
	if c, hit := r.aliases[sym]; hit {
		return c, r.assets[c].feedID, true
	}
	if e, hit := r.assets[sym]; hit {
		return e.symbol, e.feedID, true
	}
	return "", "", false
}

// FeedID returns the price-feed identifier for a canonical symbol.
func (r *AssetRegistry) FeedID(symbol string) (string, bool) {
	e, ok := r.assets[normalizeSymbol(symbol)]
	return e.feedID, ok
}

// FeedIDs returns the de-duplicated, sorted feed ids for symbols. Unknown
// symbols are skipped.
func (r *AssetRegistry) FeedIDs(symbols []string) []string {
	ids := make([]string, 0, len(symbols))
	for _, s := range symbols {
		if id, ok := r.FeedID(s); ok {
			ids = append(ids, id)
		}
	}
	return utils.UniqueSorted(ids)
}

// Symbols returns every canonical symbol in the registry, sorted.
func (r *AssetRegistry) Symbols() []string {
	out := make([]string, 0, len(r.assets))
	for s := range r.assets {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

func normalizeSymbol(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

func normalizeChain(c string) string {
	return strings.ToLower(strings.TrimSpace(c))
}
