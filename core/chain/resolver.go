package chain

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	lru "github.com/hashicorp/golang-lru"
)

// DefaultABICacheSize is the number of contract interfaces kept by
// CachedABIResolver.
const DefaultABICacheSize = 256

// CachedABIResolver memoises another resolver by address. Failed lookups are
// not cached.
type CachedABIResolver struct {
	next  ABIResolver
	cache *lru.ARCCache
}

// NewCachedABIResolver wraps next with an ARC cache of size entries.
func NewCachedABIResolver(next ABIResolver, size int) (*CachedABIResolver, error) {
	cache, err := lru.NewARC(size)
	if err != nil {
		return nil, err
	}
	return &CachedABIResolver{next: next, cache: cache}, nil
}

func (r *CachedABIResolver) FetchABI(ctx context.Context, address common.Address) (*abi.ABI, error) {
	if cached, known := r.cache.Get(address); known {
		return cached.(*abi.ABI), nil
	}
	contract, err := r.next.FetchABI(ctx, address)
	if err != nil {
		return nil, err
	}
	r.cache.Add(address, contract)
	return contract, nil
}

// Forget drops a cached entry.
func (r *CachedABIResolver) Forget(address common.Address) {
	r.cache.Remove(address)
}

// DirABIResolver reads <dir>/<address>.json. The file may hold a bare ABI
// array or an object with an "abi" field (solc/hardhat artifacts).
type DirABIResolver struct {
	Dir string
}

func (r DirABIResolver) FetchABI(_ context.Context, address common.Address) (*abi.ABI, error) {
	path, err := r.find(address)
	if err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	log.Debug("Loaded contract ABI", "address", address, "path", path)
	return ParseABI(raw)
}

func (r DirABIResolver) find(address common.Address) (string, error) {
	for _, name := range []string{address.Hex(), strings.ToLower(address.Hex())} {
		path := filepath.Join(r.Dir, name+".json")
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("no ABI for %s in %s", address.Hex(), r.Dir)
}

// ParseABI decodes a JSON ABI, accepting artifact objects with an "abi" field.
func ParseABI(raw []byte) (*abi.ABI, error) {
	trimmed := strings.TrimSpace(string(raw))
	if strings.HasPrefix(trimmed, "{") {
		var artifact struct {
			ABI json.RawMessage `json:"abi"`
		}
		if err := json.Unmarshal(raw, &artifact); err != nil {
			return nil, err
		}
		if len(artifact.ABI) == 0 {
			return nil, fmt.Errorf("artifact has no abi field")
		}
		trimmed = string(artifact.ABI)
	}
	contract, err := abi.JSON(strings.NewReader(trimmed))
	if err != nil {
		return nil, err
	}
	return &contract, nil
}

// StaticSigner always reports the same account.
type StaticSigner common.Address

func (s StaticSigner) Address(context.Context) (common.Address, error) {
	return common.Address(s), nil
}
