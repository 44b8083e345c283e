package service

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"portfolio_tracker/internal/app/port"
	"portfolio_tracker/internal/domain/entity"
	"portfolio_tracker/internal/infrastructure/configloader"
)

// WalletBalanceSource is the primary balance source: native balances and
// configured ERC-20 tokens of the tracked wallets on every active network.
type WalletBalanceSource struct {
	addresses       map[string]string
	networkProvider port.NetworkDefinitionProvider
	tokenProvider   port.TokenProvider
	clientProvider  port.BlockchainClientProvider
	logger          port.Logger
	maxConcurrent   int
}

// NewWalletBalanceSource creates a new WalletBalanceSource. Wallet addresses
// come from the network entries of the configuration.
func NewWalletBalanceSource(
	nodes []configloader.NetworkNodeConfig,
	np port.NetworkDefinitionProvider,
	tp port.TokenProvider,
	cp port.BlockchainClientProvider,
	l port.Logger,
	maxConcurrent int,
) *WalletBalanceSource {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	addresses := make(map[string]string, len(nodes))
	for _, n := range nodes {
		addresses[strings.ToLower(strings.TrimSpace(n.Identifier))] = strings.TrimSpace(n.Address)
	}
	return &WalletBalanceSource{
		addresses:       addresses,
		networkProvider: np,
		tokenProvider:   tp,
		clientProvider:  cp,
		logger:          l,
		maxConcurrent:   maxConcurrent,
	}
}

// Name returns the source name used in warnings and metrics.
func (s *WalletBalanceSource) Name() string { return "wallets" }

// GetAllBalances queries every active network concurrently. Observations are
// returned in network order. Any network failure fails the whole call.
func (s *WalletBalanceSource) GetAllBalances(ctx context.Context) ([]entity.Observation, error) {
	defs := s.networkProvider.GetAllNetworkDefinitions()
	if len(defs) == 0 {
		return []entity.Observation{}, nil
	}

	tokensByNetwork, err := s.tokenProvider.GetTokensByNetwork(defs)
	if err != nil {
		return nil, fmt.Errorf("failed to load tokens: %w", err)
	}

	perNetwork := make([][]entity.Observation, len(defs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.maxConcurrent)

	for i, def := range defs {
		g.Go(func() error {
			obs, err := s.fetchNetwork(gctx, def, tokensByNetwork[def.Identifier])
			if err != nil {
				return fmt.Errorf("%s: %w", def.Identifier, err)
			}
			perNetwork[i] = obs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []entity.Observation
	for _, obs := range perNetwork {
		out = append(out, obs...)
	}
	s.logger.Debug("Fetched wallet balances", "networks", len(defs), "observations", len(out))
	return out, nil
}

func (s *WalletBalanceSource) fetchNetwork(ctx context.Context, def entity.NetworkDefinition, tokens []entity.TokenInfo) ([]entity.Observation, error) {
	address := s.addresses[def.Identifier]
	if address == "" {
		return nil, fmt.Errorf("no wallet address configured")
	}

	client, err := s.clientProvider.GetClient(def)
	if err != nil {
		return nil, err
	}

	requests := make([]entity.BalanceRequestItem, 0, 1+len(tokens))
	requests = append(requests, entity.NativeRequest(def, address))
	for _, t := range tokens {
		requests = append(requests, entity.TokenRequest(def, address, t))
	}

	results, err := client.GetBalances(ctx, requests)
	if err != nil {
		return nil, err
	}

	obs := make([]entity.Observation, 0, len(results))
	for _, r := range results {
		if r.Error != nil {
			if r.IsNative {
				return nil, r.Error
			}
			s.logger.Warn("Token balance unavailable, skipping", "network", def.Identifier, "token", r.TokenSymbol, "error", r.Error)
			continue
		}
		o := r.Observation(def.Identifier)
		if !r.IsNative && o.Amount.IsZero() {
			continue
		}
		obs = append(obs, o)
	}
	return obs, nil
}
