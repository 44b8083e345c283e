package client

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/rpc"
	"golang.org/x/time/rate"

	"portfolio_tracker/internal/app/port"
	"portfolio_tracker/internal/domain/entity"
)

// SolanaClient implements port.BlockchainClient for Solana. Only native SOL
// balances are supported; the JSON-RPC transport is the go-ethereum client,
// which speaks plain JSON-RPC 2.0 over HTTP.
type SolanaClient struct {
	rpcClients     []*rpc.Client
	netDef         entity.NetworkDefinition
	limiter        *rate.Limiter
	rpcCallTimeout time.Duration
}

type solanaBalanceResult struct {
	Context struct {
		Slot uint64 `json:"slot"`
	} `json:"context"`
	Value uint64 `json:"value"`
}

// NewSolanaClient dials every RPC URL of the network, in fallback order.
func NewSolanaClient(netDef entity.NetworkDefinition, limiter *rate.Limiter, connectionTimeout, rpcCallTimeout time.Duration) (port.BlockchainClient, error) {
	var clients []*rpc.Client
	var lastErr error
	for _, rpcURL := range netDef.RPCURLs() {
		ctx, cancel := context.WithTimeout(context.Background(), connectionTimeout)
		client, err := rpc.DialContext(ctx, rpcURL)
		cancel()
		if err != nil {
			lastErr = fmt.Errorf("failed to connect to RPC %s: %w", rpcURL, err)
			continue
		}
		clients = append(clients, client)
	}
	if len(clients) == 0 {
		if lastErr == nil {
			lastErr = errors.New("no RPC URL configured")
		}
		return nil, fmt.Errorf("all RPC connection attempts failed for network %s: %w", netDef.Name, lastErr)
	}
	return &SolanaClient{rpcClients: clients, netDef: netDef, limiter: limiter, rpcCallTimeout: rpcCallTimeout}, nil
}

// GetBalances fetches lamport balances for native requests. Token requests
// are reported as unsupported per item.
func (c *SolanaClient) GetBalances(ctx context.Context, requests []entity.BalanceRequestItem) ([]entity.BalanceResultItem, error) {
	results := make([]entity.BalanceResultItem, len(requests))
	for i, reqItem := range requests {
		results[i] = entity.BalanceResultItem{
			RequestID:     reqItem.ID,
			WalletAddress: reqItem.WalletAddress,
			TokenAddress:  reqItem.TokenAddress,
			TokenSymbol:   reqItem.TokenSymbol,
			Decimals:      reqItem.TokenDecimals,
			IsNative:      reqItem.Type == entity.NativeBalanceRequest,
		}
		if reqItem.Type != entity.NativeBalanceRequest {
			results[i].Error = fmt.Errorf("token balances are not supported on %s", c.netDef.Identifier)
			continue
		}

		lamports, err := c.getBalance(ctx, reqItem.WalletAddress)
		if err != nil {
			return results, err
		}
		results[i].Balance = new(big.Int).SetUint64(lamports)
	}
	return results, nil
}

func (c *SolanaClient) getBalance(ctx context.Context, address string) (uint64, error) {
	var lastErr error
	for _, client := range c.rpcClients {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return 0, err
			}
		}
		callCtx, cancel := context.WithTimeout(ctx, c.rpcCallTimeout)
		var res solanaBalanceResult
		err := client.CallContext(callCtx, &res, "getBalance", address)
		cancel()
		if err == nil {
			return res.Value, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
	}
	return 0, fmt.Errorf("getBalance failed on %s for %s: %w", c.netDef.Identifier, address, lastErr)
}

// Definition returns the network definition for this client.
func (c *SolanaClient) Definition() entity.NetworkDefinition {
	return c.netDef
}
