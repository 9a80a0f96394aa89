// Package chain declares the narrow interfaces evml uses to reach the outside
// world: a chain reader for contract calls, an ABI resolver and a signer.
// The interpreter and modules depend only on these; concrete clients are
// injected by the caller.
package chain

import (
	"context"
	"errors"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

var (
	ErrNoChain  = errors.New("no chain client configured")
	ErrNoSigner = errors.New("no signer configured")
	ErrNoABI    = errors.New("no ABI resolver configured")
)

// Reader performs read-only chain calls. *ethclient.Client satisfies it.
type Reader interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	ChainID(ctx context.Context) (*big.Int, error)
}

// ABIResolver returns the interface of the contract deployed at an address.
type ABIResolver interface {
	FetchABI(ctx context.Context, address common.Address) (*abi.ABI, error)
}

// Signer identifies the account actions are sent from.
type Signer interface {
	Address(ctx context.Context) (common.Address, error)
}

// Clients bundles the external collaborators. Any field may be nil; callers
// get ErrNoChain, ErrNoABI or ErrNoSigner from the accessor methods.
type Clients struct {
	Chain  Reader
	ABIs   ABIResolver
	Signer Signer
	Now    func() time.Time
}

// Call runs a read-only contract call.
func (c *Clients) Call(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
	if c == nil || c.Chain == nil {
		return nil, ErrNoChain
	}
	return c.Chain.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
}

// ChainID returns the id of the connected chain.
func (c *Clients) ChainID(ctx context.Context) (*big.Int, error) {
	if c == nil || c.Chain == nil {
		return nil, ErrNoChain
	}
	return c.Chain.ChainID(ctx)
}

// FetchABI resolves the ABI of address.
func (c *Clients) FetchABI(ctx context.Context, address common.Address) (*abi.ABI, error) {
	if c == nil || c.ABIs == nil {
		return nil, ErrNoABI
	}
	return c.ABIs.FetchABI(ctx, address)
}

// SignerAddress returns the signer's account.
func (c *Clients) SignerAddress(ctx context.Context) (common.Address, error) {
	if c == nil || c.Signer == nil {
		return common.Address{}, ErrNoSigner
	}
	return c.Signer.Address(ctx)
}

// Time returns the current time, using Now when set.
func (c *Clients) Time() time.Time {
	if c == nil || c.Now == nil {
		return time.Now()
	}
	return c.Now()
}
