package networkdefinition

import (
	"fmt"
	"strings"

	"portfolio_tracker/internal/app/port"
	"portfolio_tracker/internal/domain/entity"
	"portfolio_tracker/internal/infrastructure/configloader"
)

// NetworkDefinitionProvider provides the definitions of the configured networks.
type NetworkDefinitionProvider struct {
	logger            port.Logger
	allNetworkDefs    map[string]entity.NetworkDefinition
	activeNetworkDefs []entity.NetworkDefinition
}

// Predefined network definitions
var ( //nolint:gochecknoglobals // Global for definitions
	Ethereum = entity.NetworkDefinition{
		Kind:             entity.NetworkKindEVM,
		ChainID:          1,
		Name:             "Ethereum Mainnet",
		Identifier:       "ethereum",
		NativeSymbol:     "ETH",
		Decimals:         18,
		PrimaryRPCURL:    "https://ethereum-rpc.publicnode.com",
		FallbackRPCURLs:  []string{"https://rpc.ankr.com/eth", "https://ethereum.publicnode.com"},
		BlockExplorerURL: "https://etherscan.io",
	}
	Base = entity.NetworkDefinition{
		Kind:             entity.NetworkKindEVM,
		ChainID:          8453,
		Name:             "Base Mainnet",
		Identifier:       "base",
		NativeSymbol:     "ETH",
		Decimals:         18,
		PrimaryRPCURL:    "https://1rpc.io/base",
		FallbackRPCURLs:  []string{"https://base.publicnode.com", "https://base.llamarpc.com"},
		BlockExplorerURL: "https://basescan.org",
	}
	Arbitrum = entity.NetworkDefinition{
		Kind:             entity.NetworkKindEVM,
		ChainID:          42161,
		Name:             "Arbitrum One",
		Identifier:       "arbitrum",
		NativeSymbol:     "ETH",
		Decimals:         18,
		PrimaryRPCURL:    "https://arb1.arbitrum.io/rpc",
		FallbackRPCURLs:  []string{"https://arbitrum.llamarpc.com", "https://arbitrum.publicnode.com"},
		BlockExplorerURL: "https://arbiscan.io",
	}
	Optimism = entity.NetworkDefinition{
		Kind:             entity.NetworkKindEVM,
		ChainID:          10,
		Name:             "OP Mainnet",
		Identifier:       "optimism",
		NativeSymbol:     "ETH",
		Decimals:         18,
		PrimaryRPCURL:    "https://op-pokt.nodies.app",
		FallbackRPCURLs:  []string{"https://optimism.publicnode.com", "https://rpc.ankr.com/optimism"},
		BlockExplorerURL: "https://optimistic.etherscan.io",
	}
	Polygon = entity.NetworkDefinition{
		Kind:             entity.NetworkKindEVM,
		ChainID:          137,
		Name:             "Polygon PoS",
		Identifier:       "polygon",
		NativeSymbol:     "POL",
		Decimals:         18,
		PrimaryRPCURL:    "https://polygon-rpc.com/",
		FallbackRPCURLs:  []string{"https://rpc.ankr.com/polygon", "https://polygon.publicnode.com"},
		BlockExplorerURL: "https://polygonscan.com",
	}
	BSC = entity.NetworkDefinition{
		Kind:             entity.NetworkKindEVM,
		ChainID:          56,
		Name:             "BNB Smart Chain",
		Identifier:       "bsc",
		NativeSymbol:     "BNB",
		Decimals:         18,
		PrimaryRPCURL:    "https://1rpc.io/bnb",
		FallbackRPCURLs:  []string{"https://bsc-dataseed2.binance.org/", "https://bsc.publicnode.com"},
		BlockExplorerURL: "https://bscscan.com",
	}
	Solana = entity.NetworkDefinition{
		Kind:             entity.NetworkKindSolana,
		Name:             "Solana Mainnet",
		Identifier:       "solana",
		NativeSymbol:     "SOL",
		Decimals:         9,
		PrimaryRPCURL:    "https://api.mainnet-beta.solana.com",
		BlockExplorerURL: "https://solscan.io",
	}
)

// allKnownDefinitions is a helper to quickly access all hardcoded definitions.
var allKnownDefinitions = map[string]entity.NetworkDefinition{
	Ethereum.Identifier: Ethereum,
	Base.Identifier:     Base,
	Arbitrum.Identifier: Arbitrum,
	Optimism.Identifier: Optimism,
	Polygon.Identifier:  Polygon,
	BSC.Identifier:      BSC,
	Solana.Identifier:   Solana,
}

// Lookup returns the built-in definition for identifier.
func Lookup(identifier string) (entity.NetworkDefinition, bool) {
	def, ok := allKnownDefinitions[strings.ToLower(strings.TrimSpace(identifier))]
	return def, ok
}

// NewNetworkDefinitionProvider activates the networks listed in the
// configuration. A configured RPC URL takes precedence over the built-in one,
// which is kept as a fallback. Unknown identifiers are a configuration error.
func NewNetworkDefinitionProvider(log port.Logger, nodes []configloader.NetworkNodeConfig) (*NetworkDefinitionProvider, error) {
	p := &NetworkDefinitionProvider{
		logger:            log,
		allNetworkDefs:    allKnownDefinitions,
		activeNetworkDefs: make([]entity.NetworkDefinition, 0, len(nodes)),
	}

	activeIdentifiers := make(map[string]struct{})
	for _, node := range nodes {
		identifier := strings.ToLower(strings.TrimSpace(node.Identifier))
		if _, alreadyActive := activeIdentifiers[identifier]; alreadyActive {
			p.logger.Warn("Duplicate network in configuration, skipping", "network", identifier)
			continue
		}

		def, ok := p.allNetworkDefs[identifier]
		if !ok {
			return nil, fmt.Errorf("unknown network identifier %q", node.Identifier)
		}
		def = withRPCOverride(def, node)

		p.activeNetworkDefs = append(p.activeNetworkDefs, def)
		activeIdentifiers[identifier] = struct{}{}
		p.logger.Debug("Network activated", "network", def.Identifier, "kind", def.Kind, "rpc_urls", len(def.RPCURLs()))
	}

	if len(p.activeNetworkDefs) == 0 {
		p.logger.Warn("No networks configured, wallet balances will be empty")
	} else {
		p.logger.Info(fmt.Sprintf("NetworkDefinitionProvider initialized. Active networks: %d", len(p.activeNetworkDefs)))
	}
	return p, nil
}

func withRPCOverride(def entity.NetworkDefinition, node configloader.NetworkNodeConfig) entity.NetworkDefinition {
	builtin := def.RPCURLs()
	fallbacks := make([]string, 0, len(node.FallbackRPCURLs)+len(builtin))
	fallbacks = append(fallbacks, node.FallbackRPCURLs...)

	if rpcURL := strings.TrimSpace(node.RPCURL); rpcURL != "" {
		def.PrimaryRPCURL = rpcURL
		fallbacks = append(fallbacks, builtin...)
	} else {
		fallbacks = append(fallbacks, def.FallbackRPCURLs...)
	}
	def.FallbackRPCURLs = fallbacks
	return def
}

// GetAllNetworkDefinitions returns the list of active network definitions.
func (p *NetworkDefinitionProvider) GetAllNetworkDefinitions() []entity.NetworkDefinition {
	if p == nil {
		return []entity.NetworkDefinition{}
	}
	defsCopy := make([]entity.NetworkDefinition, len(p.activeNetworkDefs))
	copy(defsCopy, p.activeNetworkDefs)
	return defsCopy
}

// GetNetworkDefinitionByName returns a specific network definition by its identifier if it's active.
func (p *NetworkDefinitionProvider) GetNetworkDefinitionByName(identifier string) (entity.NetworkDefinition, bool) {
	if p == nil {
		return entity.NetworkDefinition{}, false
	}
	for _, def := range p.activeNetworkDefs {
		if def.Identifier == identifier {
			return def, true
		}
	}
	return entity.NetworkDefinition{}, false
}
