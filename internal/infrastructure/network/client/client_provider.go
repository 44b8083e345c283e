package client

import (
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"portfolio_tracker/internal/app/port"
	"portfolio_tracker/internal/domain/entity"
	"portfolio_tracker/internal/infrastructure/configloader"
)

const (
	defaultProviderConnectionTimeout = 10 * time.Second
)

// clientProvider implements the port.BlockchainClientProvider interface. It
// builds the client matching the network kind and caches it per network.
type clientProvider struct {
	clients           map[string]port.BlockchainClient
	mu                sync.Mutex
	logger            port.Logger
	connectionTimeout time.Duration
	rpcCallTimeout    time.Duration
	rateLimit         rate.Limit
	burst             int
}

// NewClientProvider creates a new BlockchainClientProvider. Every network
// gets its own rate limiter.
func NewClientProvider(cfg *configloader.Config, l port.Logger) port.BlockchainClientProvider {
	return &clientProvider{
		clients:           make(map[string]port.BlockchainClient),
		logger:            l,
		connectionTimeout: defaultProviderConnectionTimeout,
		rpcCallTimeout:    time.Duration(cfg.Performance.RPCCallTimeoutSeconds) * time.Second,
		rateLimit:         rate.Limit(cfg.Performance.RPCRateLimit),
		burst:             cfg.Performance.RPCBurst,
	}
}

// GetClient retrieves a blockchain client for the given network definition.
// It caches clients to avoid reconnecting repeatedly.
func (p *clientProvider) GetClient(netDef entity.NetworkDefinition) (port.BlockchainClient, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	clientKey := netDef.Identifier
	if client, exists := p.clients[clientKey]; exists {
		return client, nil
	}

	p.logger.Info("Creating new blockchain client", "network", netDef.Identifier, "kind", netDef.Kind, "rpc_primary", netDef.PrimaryRPCURL)
	limiter := rate.NewLimiter(p.rateLimit, p.burst)

	var (
		newClient port.BlockchainClient
		err       error
	)
	switch netDef.Kind {
	case entity.NetworkKindSolana:
		newClient, err = NewSolanaClient(netDef, limiter, p.connectionTimeout, p.rpcCallTimeout)
	case entity.NetworkKindEVM, "":
		newClient, err = NewEVMClient(netDef, limiter, p.connectionTimeout, p.rpcCallTimeout)
	default:
		err = fmt.Errorf("unsupported network kind %q", netDef.Kind)
	}
	if err != nil {
		p.logger.Error("Failed to create blockchain client", "network", netDef.Identifier, "error", err)
		return nil, fmt.Errorf("failed to create client for %s: %w", netDef.Identifier, err)
	}

	p.clients[clientKey] = newClient
	return newClient, nil
}
