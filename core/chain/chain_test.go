package chain

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const erc20ABI = `[
  {"type":"function","name":"transfer","stateMutability":"nonpayable",
   "inputs":[{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],
   "outputs":[{"name":"","type":"bool"}]},
  {"type":"event","name":"Transfer","anonymous":false,
   "inputs":[{"name":"from","type":"address","indexed":true},{"name":"to","type":"address","indexed":true},{"name":"value","type":"uint256","indexed":false}]}
]`

type countingResolver struct {
	calls int
	err   error
}

func (r *countingResolver) FetchABI(context.Context, common.Address) (*abi.ABI, error) {
	r.calls++
	if r.err != nil {
		return nil, r.err
	}
	return ParseABI([]byte(erc20ABI))
}

func TestCachedABIResolver(t *testing.T) {
	next := &countingResolver{}
	r, err := NewCachedABIResolver(next, 4)
	require.NoError(t, err)

	addr := common.HexToAddress("0x44fA8E6f47987339850636F88629646662444217")
	first, err := r.FetchABI(context.Background(), addr)
	require.NoError(t, err)
	second, err := r.FetchABI(context.Background(), addr)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, next.calls)

	r.Forget(addr)
	_, err = r.FetchABI(context.Background(), addr)
	require.NoError(t, err)
	assert.Equal(t, 2, next.calls)
}

func TestCachedABIResolverDoesNotCacheFailures(t *testing.T) {
	next := &countingResolver{err: errors.New("explorer down")}
	r, err := NewCachedABIResolver(next, 4)
	require.NoError(t, err)

	addr := common.HexToAddress("0x01")
	_, err = r.FetchABI(context.Background(), addr)
	require.Error(t, err)
	_, err = r.FetchABI(context.Background(), addr)
	require.Error(t, err)
	assert.Equal(t, 2, next.calls)
}

func TestDirABIResolver(t *testing.T) {
	dir := t.TempDir()
	addr := common.HexToAddress("0x44fA8E6f47987339850636F88629646662444217")
	artifact := `{"contractName":"Token","abi":` + erc20ABI + `}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, addr.Hex()+".json"), []byte(artifact), 0o644))

	contract, err := DirABIResolver{Dir: dir}.FetchABI(context.Background(), addr)
	require.NoError(t, err)
	assert.Contains(t, contract.Methods, "transfer")
	assert.Contains(t, contract.Events, "Transfer")

	_, err = DirABIResolver{Dir: dir}.FetchABI(context.Background(), common.HexToAddress("0x02"))
	assert.ErrorContains(t, err, "no ABI for")
}

func TestClientsWithoutCollaborators(t *testing.T) {
	var c *Clients
	_, err := c.Call(context.Background(), common.Address{}, nil)
	assert.ErrorIs(t, err, ErrNoChain)
	_, err = c.FetchABI(context.Background(), common.Address{})
	assert.ErrorIs(t, err, ErrNoABI)
	_, err = c.SignerAddress(context.Background())
	assert.ErrorIs(t, err, ErrNoSigner)

	fixed := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	c = &Clients{Now: func() time.Time { return fixed }, Signer: StaticSigner(common.HexToAddress("0x03"))}
	assert.Equal(t, fixed, c.Time())
	addr, err := c.SignerAddress(context.Background())
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress("0x03"), addr)
}
