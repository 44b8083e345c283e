package entity

// NetworkKind selects the client implementation used for a network.
type NetworkKind string

const (
	NetworkKindEVM    NetworkKind = "evm"
	NetworkKindSolana NetworkKind = "solana"
)

// NetworkDefinition holds the static description of a blockchain network.
type NetworkDefinition struct {
	Kind             NetworkKind `json:"kind" yaml:"kind"`
	ChainID          uint64      `json:"chainId" yaml:"chainId"`
	Name             string      `json:"name" yaml:"name"`
	Identifier       string      `json:"identifier" yaml:"identifier"` // e.g. "ethereum", "base", "solana"
	NativeSymbol     string      `json:"nativeSymbol" yaml:"nativeSymbol"`
	Decimals         int32       `json:"decimals" yaml:"decimals"`
	PrimaryRPCURL    string      `json:"primaryRpcUrl" yaml:"primaryRpcUrl"`
	FallbackRPCURLs  []string    `json:"fallbackRpcUrls" yaml:"fallbackRpcUrls"`
	BlockExplorerURL string      `json:"blockExplorerUrl,omitempty" yaml:"blockExplorerUrl,omitempty"`
}

// RPCURLs returns the primary URL followed by the fallbacks, skipping blanks.
func (d NetworkDefinition) RPCURLs() []string {
	urls := make([]string, 0, 1+len(d.FallbackRPCURLs))
	if d.PrimaryRPCURL != "" {
		urls = append(urls, d.PrimaryRPCURL)
	}
	for _, u := range d.FallbackRPCURLs {
		if u != "" {
			urls = append(urls, u)
		}
	}
	return urls
}
