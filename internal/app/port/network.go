package port

import (
	"context"

	"portfolio_tracker/internal/domain/entity"
)

// BlockchainClient defines the interface for interacting with a blockchain network.
// Implementations are specific to network kinds (EVM, Solana).
type BlockchainClient interface {
	// GetBalances fetches native and token balances for a wallet in one round trip
	// where the network supports it. Per-item failures are reported in the results.
	GetBalances(ctx context.Context, requests []entity.BalanceRequestItem) ([]entity.BalanceResultItem, error)

	// Definition returns the network definition associated with this client.
	Definition() entity.NetworkDefinition
}

// NetworkDefinitionProvider defines the interface for providing network definitions.
type NetworkDefinitionProvider interface {
	// GetAllNetworkDefinitions returns all known network definitions.
	GetAllNetworkDefinitions() []entity.NetworkDefinition

	// GetNetworkDefinitionByName returns a network definition by identifier.
	GetNetworkDefinitionByName(identifier string) (entity.NetworkDefinition, bool)
}

// BlockchainClientProvider defines the interface for providing blockchain clients.
type BlockchainClientProvider interface {
	GetClient(networkDefinition entity.NetworkDefinition) (BlockchainClient, error)
}
