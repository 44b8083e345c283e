package entity

import (
	"errors"
	"math/big"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalBalance_AddSums(t *testing.T) {
	b, err := NewCanonicalBalance("ETH", map[string]decimal.Decimal{
		"ethereum": decimal.RequireFromString("0.6"),
	})
	require.NoError(t, err)

	require.NoError(t, b.Add("base", decimal.RequireFromString("0.4")))
	require.NoError(t, b.Add("base", decimal.RequireFromString("0.1")))

	assert.Equal(t, "ETH", b.Symbol())
	assert.True(t, b.Total().Equal(decimal.RequireFromString("1.1")), b.Total().String())
	assert.True(t, b.Amount("base").Equal(decimal.RequireFromString("0.5")))
	assert.True(t, b.Amount("solana").IsZero())
	assert.Equal(t, []string{"base", "ethereum"}, b.ChainNames())
}

func TestCanonicalBalance_RejectsNegative(t *testing.T) {
	b, err := NewCanonicalBalance("ETH", nil)
	require.NoError(t, err)

	err = b.Add("base", decimal.NewFromInt(-1))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvariantViolation))
	assert.True(t, b.Total().IsZero())

	_, err = NewCanonicalBalance("SOL", map[string]decimal.Decimal{"solana": decimal.NewFromInt(-2)})
	assert.ErrorIs(t, err, ErrInvariantViolation)
}

func TestCanonicalBalance_ChainsIsACopy(t *testing.T) {
	b, err := NewCanonicalBalance("ETH", map[string]decimal.Decimal{"ethereum": decimal.NewFromInt(1)})
	require.NoError(t, err)

	chains := b.Chains()
	chains["ethereum"] = decimal.NewFromInt(100)

	assert.True(t, b.Amount("ethereum").Equal(decimal.NewFromInt(1)))
}

func TestHoldingsSymbolsSorted(t *testing.T) {
	h := Holdings{"SOL": nil, "BTC": nil, "ETH": nil}
	assert.Equal(t, []string{"BTC", "ETH", "SOL"}, h.Symbols())
}

func TestBalanceResultItem_Amount(t *testing.T) {
	wei, _ := new(big.Int).SetString("1234500000000000000", 10)
	assert.Equal(t, "1.2345", BalanceResultItem{Balance: wei, Decimals: 18}.Amount().String())
	assert.Equal(t, "2.5", BalanceResultItem{Balance: big.NewInt(2_500_000_000), Decimals: 9}.Amount().String())
	assert.True(t, BalanceResultItem{Decimals: 18}.Amount().IsZero())

	o := BalanceResultItem{TokenSymbol: "SOL", Balance: big.NewInt(1_000_000_000), Decimals: 9}.Observation("solana")
	assert.Equal(t, "solana", o.Chain)
	assert.Equal(t, "SOL", o.Symbol)
	assert.True(t, o.Amount.Equal(decimal.NewFromInt(1)))
}

func TestBalanceRequests(t *testing.T) {
	def := NetworkDefinition{Identifier: "base", NativeSymbol: "ETH", Decimals: 18}

	native := NativeRequest(def, "0xabc")
	assert.Equal(t, "base:native", native.ID)
	assert.Equal(t, NativeBalanceRequest, native.Type)
	assert.Equal(t, ZeroAddress, native.TokenAddress)
	assert.Equal(t, uint8(18), native.TokenDecimals)

	tok := TokenRequest(def, "0xabc", TokenInfo{Address: "0xusdc", Symbol: "USDC", Decimals: 6})
	assert.Equal(t, "base:0xusdc", tok.ID)
	assert.Equal(t, TokenBalanceRequest, tok.Type)
	assert.Equal(t, "USDC", tok.TokenSymbol)
}
