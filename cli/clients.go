package main

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/log"

	"github.com/evmcrispr/evml/core/chain"
)

// dialClients builds the chain collaborators described by cfg. Every field
// is optional; scripts that need a missing one fail when they reach it.
func dialClients(ctx context.Context, cfg Config) (*chain.Clients, func(), error) {
	clients := &chain.Clients{}
	closer := func() {}

	if cfg.RPC != "" {
		client, err := ethclient.DialContext(ctx, cfg.RPC)
		if err != nil {
			return nil, nil, fmt.Errorf("dial %s: %w", cfg.RPC, err)
		}
		closer = client.Close
		if cfg.ChainID != 0 {
			id, err := client.ChainID(ctx)
			if err != nil {
				client.Close()
				return nil, nil, fmt.Errorf("chain id: %w", err)
			}
			if id.Uint64() != cfg.ChainID {
				client.Close()
				return nil, nil, fmt.Errorf("endpoint %s serves chain %d, configured %d", cfg.RPC, id, cfg.ChainID)
			}
		}
		log.Debug("Connected to chain", "rpc", cfg.RPC)
		clients.Chain = client
	}

	if cfg.ABIDir != "" {
		size := cfg.CacheSize
		if size <= 0 {
			size = chain.DefaultABICacheSize
		}
		resolver, err := chain.NewCachedABIResolver(chain.DirABIResolver{Dir: cfg.ABIDir}, size)
		if err != nil {
			closer()
			return nil, nil, err
		}
		clients.ABIs = resolver
	}

	if cfg.From != "" {
		if !common.IsHexAddress(cfg.From) {
			closer()
			return nil, nil, fmt.Errorf("invalid --from address %q", cfg.From)
		}
		clients.Signer = chain.StaticSigner(common.HexToAddress(cfg.From))
	}
	return clients, closer, nil
}
