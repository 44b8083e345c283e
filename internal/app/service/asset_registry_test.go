package service

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portfolio_tracker/internal/domain/entity"
	"portfolio_tracker/internal/infrastructure/configloader"
)

func TestAssetRegistry_ResolveDefaults(t *testing.T) {
	r, err := NewAssetRegistry(nil)
	require.NoError(t, err)

	tests := []struct {
		chain, raw      string
		canonical, feed string
		ok              bool
	}{
		{"ethereum", "ETH", "ETH", "ethereum", true},
		{"base", "eth", "ETH", "ethereum", true},
		{"ethereum", "WETH", "ETH", "ethereum", true},
		{"solana", "SOL", "SOL", "solana", true},
		{"coinbase", "usdc", "USDC", "usd-coin", true},
		{"ethereum", "SHIBDOGE", "", "", false},
		{"ethereum", "  ", "", "", false},
	}
	for _, tt := range tests {
		canonical, feed, ok := r.Resolve(tt.chain, tt.raw)
		assert.Equal(t, tt.ok, ok, tt.raw)
		assert.Equal(t, tt.canonical, canonical, tt.raw)
		assert.Equal(t, tt.feed, feed, tt.raw)
	}
}

func TestAssetRegistry_FeedIDDefaultsToLowerSymbol(t *testing.T) {
	r, err := NewAssetRegistry([]configloader.AssetConfig{{Symbol: "ARB"}, {Symbol: "eth", FeedID: "ethereum"}})
	require.NoError(t, err)

	id, ok := r.FeedID("ARB")
	require.True(t, ok)
	assert.Equal(t, "arb", id)
	assert.Equal(t, []string{"arb", "ethereum"}, r.FeedIDs([]string{"ETH", "ARB", "ETH", "NOPE"}))
	assert.Equal(t, []string{"ARB", "ETH"}, r.Symbols())
}

func TestAssetRegistry_ChainScopedAliasWins(t *testing.T) {
	r, err := NewAssetRegistry([]configloader.AssetConfig{
		{Symbol: "ETH", FeedID: "ethereum"},
		{Symbol: "USDC", FeedID: "usd-coin", Aliases: []configloader.AliasConfig{{Symbol: "USDBC"}}},
		{Symbol: "BRIDGED", FeedID: "bridged", Aliases: []configloader.AliasConfig{{Chain: "Base", Symbol: "usdbc"}}},
	})
	require.NoError(t, err)

	canonical, _, ok := r.Resolve("base", "USDbC")
	require.True(t, ok)
	assert.Equal(t, "BRIDGED", canonical)

	canonical, _, ok = r.Resolve("ethereum", "USDbC")
	require.True(t, ok)
	assert.Equal(t, "USDC", canonical)
}

func TestAssetRegistry_Malformed(t *testing.T) {
	tests := []struct {
		name   string
		assets []configloader.AssetConfig
	}{
		{"empty symbol", []configloader.AssetConfig{{Symbol: " "}}},
		{"conflicting feed ids", []configloader.AssetConfig{
			{Symbol: "ETH", FeedID: "ethereum"},
			{Symbol: "eth", FeedID: "weth"},
		}},
		{"alias to two assets", []configloader.AssetConfig{
			{Symbol: "ETH", Aliases: []configloader.AliasConfig{{Symbol: "X"}}},
			{Symbol: "SOL", Aliases: []configloader.AliasConfig{{Symbol: "X"}}},
		}},
		{"alias shadows asset", []configloader.AssetConfig{
			{Symbol: "ETH", Aliases: []configloader.AliasConfig{{Symbol: "SOL"}}},
			{Symbol: "SOL"},
		}},
		{"empty alias", []configloader.AssetConfig{
			{Symbol: "ETH", Aliases: []configloader.AliasConfig{{Chain: "base"}}},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewAssetRegistry(tt.assets)
			require.Error(t, err)
			assert.True(t, errors.Is(err, entity.ErrInvariantViolation))
		})
	}
}

func TestAssetRegistry_DuplicateWithSameFeedIsAccepted(t *testing.T) {
	_, err := NewAssetRegistry([]configloader.AssetConfig{
		{Symbol: "ETH", FeedID: "ethereum"},
		{Symbol: "ETH", FeedID: "ethereum"},
	})
	assert.NoError(t, err)
}
