package service

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portfolio_tracker/internal/app/port"
	"portfolio_tracker/internal/domain/entity"
	"portfolio_tracker/internal/infrastructure/configloader"
	"portfolio_tracker/internal/pkg/logger"
)

type stubNetworks struct{ defs []entity.NetworkDefinition }

func (s stubNetworks) GetAllNetworkDefinitions() []entity.NetworkDefinition { return s.defs }

func (s stubNetworks) GetNetworkDefinitionByName(id string) (entity.NetworkDefinition, bool) {
	for _, d := range s.defs {
		if d.Identifier == id {
			return d, true
		}
	}
	return entity.NetworkDefinition{}, false
}

type stubTokens struct {
	tokens map[string][]entity.TokenInfo
	err    error
}

func (s stubTokens) GetTokensByNetwork([]entity.NetworkDefinition) (map[string][]entity.TokenInfo, error) {
	return s.tokens, s.err
}

type stubClient struct {
	def      entity.NetworkDefinition
	balances map[string]*big.Int // by token symbol
	itemErr  map[string]error
	err      error
	got      []entity.BalanceRequestItem
}

func (c *stubClient) GetBalances(_ context.Context, reqs []entity.BalanceRequestItem) ([]entity.BalanceResultItem, error) {
	c.got = reqs
	if c.err != nil {
		return nil, c.err
	}
	out := make([]entity.BalanceResultItem, len(reqs))
	for i, r := range reqs {
		out[i] = entity.BalanceResultItem{
			RequestID:   r.ID,
			TokenSymbol: r.TokenSymbol,
			Decimals:    r.TokenDecimals,
			IsNative:    r.Type == entity.NativeBalanceRequest,
			Balance:     c.balances[r.TokenSymbol],
			Error:       c.itemErr[r.TokenSymbol],
		}
	}
	return out, nil
}

func (c *stubClient) Definition() entity.NetworkDefinition { return c.def }

type stubClients map[string]*stubClient

func (s stubClients) GetClient(def entity.NetworkDefinition) (port.BlockchainClient, error) {
	c, ok := s[def.Identifier]
	if !ok {
		return nil, errors.New("no client")
	}
	return c, nil
}

var (
	testEthereum = entity.NetworkDefinition{Kind: entity.NetworkKindEVM, Identifier: "ethereum", ChainID: 1, NativeSymbol: "ETH", Decimals: 18}
	testSolana   = entity.NetworkDefinition{Kind: entity.NetworkKindSolana, Identifier: "solana", NativeSymbol: "SOL", Decimals: 9}
)

func wei(s string) *big.Int {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		panic(s)
	}
	return v
}

func TestWalletBalanceSource_GetAllBalances(t *testing.T) {
	ethClient := &stubClient{def: testEthereum, balances: map[string]*big.Int{
		"ETH":  wei("600000000000000000"),
		"USDC": big.NewInt(2_500_000),
		"DUST": big.NewInt(0),
	}}
	solClient := &stubClient{def: testSolana, balances: map[string]*big.Int{"SOL": big.NewInt(12_500_000_000)}}

	src := NewWalletBalanceSource(
		[]configloader.NetworkNodeConfig{
			{Identifier: "Ethereum", Address: "0xabc"},
			{Identifier: "solana", Address: "So1"},
		},
		stubNetworks{defs: []entity.NetworkDefinition{testEthereum, testSolana}},
		stubTokens{tokens: map[string][]entity.TokenInfo{"ethereum": {
			{ChainID: 1, Address: "0xusdc", Symbol: "USDC", Decimals: 6},
			{ChainID: 1, Address: "0xdust", Symbol: "DUST", Decimals: 18},
		}}},
		stubClients{"ethereum": ethClient, "solana": solClient},
		logger.Nop(), 2,
	)
	assert.Equal(t, "wallets", src.Name())

	got, err := src.GetAllBalances(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, "ETH", got[0].Symbol)
	assert.True(t, got[0].Amount.Equal(d("0.6")))
	assert.Equal(t, "USDC", got[1].Symbol)
	assert.True(t, got[1].Amount.Equal(d("2.5")))
	assert.Equal(t, "solana", got[2].Chain)
	assert.True(t, got[2].Amount.Equal(d("12.5")))

	require.Len(t, ethClient.got, 3)
	assert.Equal(t, "0xabc", ethClient.got[0].WalletAddress)
	assert.Equal(t, entity.NativeBalanceRequest, ethClient.got[0].Type)
}

func TestWalletBalanceSource_TokenErrorIsSkipped(t *testing.T) {
	ethClient := &stubClient{
		def:      testEthereum,
		balances: map[string]*big.Int{"ETH": wei("1000000000000000000")},
		itemErr:  map[string]error{"USDC": errors.New("execution reverted")},
	}
	src := NewWalletBalanceSource(
		[]configloader.NetworkNodeConfig{{Identifier: "ethereum", Address: "0xabc"}},
		stubNetworks{defs: []entity.NetworkDefinition{testEthereum}},
		stubTokens{tokens: map[string][]entity.TokenInfo{"ethereum": {{ChainID: 1, Address: "0xusdc", Symbol: "USDC", Decimals: 6}}}},
		stubClients{"ethereum": ethClient},
		logger.Nop(), 1,
	)

	got, err := src.GetAllBalances(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "ETH", got[0].Symbol)
}

func TestWalletBalanceSource_Failures(t *testing.T) {
	nodes := []configloader.NetworkNodeConfig{{Identifier: "ethereum", Address: "0xabc"}, {Identifier: "solana", Address: "So1"}}
	networks := stubNetworks{defs: []entity.NetworkDefinition{testEthereum, testSolana}}

	tests := []struct {
		name    string
		tokens  stubTokens
		clients stubClients
		nodes   []configloader.NetworkNodeConfig
	}{
		{
			name:   "network call fails",
			tokens: stubTokens{},
			clients: stubClients{
				"ethereum": {def: testEthereum, balances: map[string]*big.Int{"ETH": big.NewInt(1)}},
				"solana":   {def: testSolana, err: errors.New("timeout")},
			},
			nodes: nodes,
		},
		{
			name:   "native item fails",
			tokens: stubTokens{},
			clients: stubClients{
				"ethereum": {def: testEthereum, itemErr: map[string]error{"ETH": errors.New("bad")}},
				"solana":   {def: testSolana, balances: map[string]*big.Int{"SOL": big.NewInt(1)}},
			},
			nodes: nodes,
		},
		{
			name:    "token list unreadable",
			tokens:  stubTokens{err: errors.New("permission denied")},
			clients: stubClients{},
			nodes:   nodes,
		},
		{
			name:   "missing address",
			tokens: stubTokens{},
			clients: stubClients{
				"ethereum": {def: testEthereum, balances: map[string]*big.Int{"ETH": big.NewInt(1)}},
				"solana":   {def: testSolana, balances: map[string]*big.Int{"SOL": big.NewInt(1)}},
			},
			nodes: nodes[:1],
		},
		{
			name:    "no client",
			tokens:  stubTokens{},
			clients: stubClients{},
			nodes:   nodes,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := NewWalletBalanceSource(tt.nodes, networks, tt.tokens, tt.clients, logger.Nop(), 2)
			_, err := src.GetAllBalances(context.Background())
			assert.Error(t, err)
		})
	}
}
