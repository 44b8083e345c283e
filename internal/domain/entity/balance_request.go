package entity

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// BalanceRequestType distinguishes native from token balance lookups.
type BalanceRequestType int

const (
	NativeBalanceRequest BalanceRequestType = iota
	TokenBalanceRequest
)

// ZeroAddress stands in for the token address of a native asset.
const ZeroAddress = "0x0000000000000000000000000000000000000000"

// BalanceRequestItem is one lookup in a per-network balance round trip.
type BalanceRequestItem struct {
	ID            string
	Type          BalanceRequestType
	WalletAddress string
	TokenAddress  string
	TokenSymbol   string
	TokenDecimals uint8
}

// NativeRequest asks for the native balance of wallet on network.
func NativeRequest(network NetworkDefinition, wallet string) BalanceRequestItem {
	return BalanceRequestItem{
		ID:            network.Identifier + ":native",
		Type:          NativeBalanceRequest,
		WalletAddress: wallet,
		TokenAddress:  ZeroAddress,
		TokenSymbol:   network.NativeSymbol,
		TokenDecimals: uint8(network.Decimals),
	}
}

// TokenRequest asks for the balance of token held by wallet on network.
func TokenRequest(network NetworkDefinition, wallet string, token TokenInfo) BalanceRequestItem {
	return BalanceRequestItem{
		ID:            network.Identifier + ":" + token.Address,
		Type:          TokenBalanceRequest,
		WalletAddress: wallet,
		TokenAddress:  token.Address,
		TokenSymbol:   token.Symbol,
		TokenDecimals: token.Decimals,
	}
}

// BalanceResultItem answers one BalanceRequestItem. A non-nil Error applies
// to that item only.
type BalanceResultItem struct {
	RequestID     string
	WalletAddress string
	TokenAddress  string
	TokenSymbol   string
	Decimals      uint8
	IsNative      bool
	Balance       *big.Int
	Error         error
}

// Amount returns the balance in native decimal units.
func (r BalanceResultItem) Amount() decimal.Decimal {
	if r.Balance == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(r.Balance, -int32(r.Decimals))
}

// Observation converts the result into a raw observation on chain.
func (r BalanceResultItem) Observation(chain string) Observation {
	return Observation{Chain: chain, Symbol: r.TokenSymbol, Amount: r.Amount()}
}
