package tokenloader

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portfolio_tracker/internal/domain/entity"
	"portfolio_tracker/internal/pkg/logger"
)

var (
	ethereum = entity.NetworkDefinition{Kind: entity.NetworkKindEVM, Identifier: "ethereum", ChainID: 1}
	base     = entity.NetworkDefinition{Kind: entity.NetworkKindEVM, Identifier: "base", ChainID: 8453}
	solana   = entity.NetworkDefinition{Kind: entity.NetworkKindSolana, Identifier: "solana"}
)

func TestGetTokensByNetwork(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ethereum.json"), []byte(`[
		{"chainId": 1, "address": "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48", "name": "USD Coin", "symbol": "USDC", "decimals": 6},
		{"chainId": 8453, "address": "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913", "name": "USD Coin", "symbol": "USDC", "decimals": 6}
	]`), 0o644))

	loader := NewTokenLoader(dir, logger.Nop())
	tokens, err := loader.GetTokensByNetwork([]entity.NetworkDefinition{ethereum, base, solana})
	require.NoError(t, err)

	require.Len(t, tokens["ethereum"], 1)
	assert.Equal(t, "USDC", tokens["ethereum"][0].Symbol)
	assert.Equal(t, uint8(6), tokens["ethereum"][0].Decimals)
	assert.NotContains(t, tokens, "base")
	assert.NotContains(t, tokens, "solana")
}

func TestGetTokensByNetwork_InvalidFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "base.json"), []byte(`{not json`), 0o644))

	_, err := NewTokenLoader(dir, logger.Nop()).GetTokensByNetwork([]entity.NetworkDefinition{base})
	assert.Error(t, err)
}

func TestGetTokensByNetwork_MissingDir(t *testing.T) {
	tokens, err := NewTokenLoader(filepath.Join(t.TempDir(), "nope"), logger.Nop()).
		GetTokensByNetwork([]entity.NetworkDefinition{ethereum})
	require.NoError(t, err)
	assert.Empty(t, tokens)
}
