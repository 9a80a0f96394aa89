package interpreter_test

import (
	"context"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/require"

	"github.com/evmcrispr/evml/core/action"
	"github.com/evmcrispr/evml/core/ast"
	"github.com/evmcrispr/evml/core/chain"
	"github.com/evmcrispr/evml/core/evm"
	"github.com/evmcrispr/evml/core/module"
	"github.com/evmcrispr/evml/runtime/interpreter"
	"github.com/evmcrispr/evml/runtime/modules/erc20"
	"github.com/evmcrispr/evml/runtime/modules/std"
	"github.com/evmcrispr/evml/runtime/parser"
)

const (
	tokenAddr = "0x44fA8E6f47987339850636F88629646662444217"
	aliceAddr = "0x0000000000000000000000000000000000000001"
)

// fakeChain answers calls by method selector.
type fakeChain struct {
	responses map[string][]byte // hex selector -> return data
	calls     int
}

func (f *fakeChain) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	f.calls++
	sel := hex.EncodeToString(msg.Data[:4])
	if out, ok := f.responses[sel]; ok {
		return out, nil
	}
	return nil, fmt.Errorf("execution reverted")
}

func (f *fakeChain) ChainID(context.Context) (*big.Int, error) { return big.NewInt(1), nil }

func (f *fakeChain) respond(t *testing.T, sig string, values ...any) {
	t.Helper()
	m, err := evm.ParseSignatureWithReturns(sig)
	require.NoError(t, err)
	out, err := m.Outputs.Pack(values...)
	require.NoError(t, err)
	if f.responses == nil {
		f.responses = map[string][]byte{}
	}
	f.responses[hex.EncodeToString(m.ID)] = out
}

// fakeABIs serves fixed interfaces by address.
type fakeABIs map[common.Address]string

func (f fakeABIs) FetchABI(_ context.Context, addr common.Address) (*abi.ABI, error) {
	raw, ok := f[addr]
	if !ok {
		return nil, fmt.Errorf("no ABI for %s", addr.Hex())
	}
	contract, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		return nil, err
	}
	return &contract, nil
}

const tokenABI = `[
  {"type":"function","name":"balanceOf","stateMutability":"view",
   "inputs":[{"name":"holder","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"transfer","stateMutability":"nonpayable",
   "inputs":[{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]}
]`

func newRegistry(t *testing.T, extra ...module.Descriptor) *module.Registry {
	t.Helper()
	r := module.NewRegistry()
	require.NoError(t, r.Register(std.Descriptor()))
	require.NoError(t, r.Register(erc20.Descriptor()))
	for _, d := range extra {
		require.NoError(t, r.Register(d))
	}
	return r
}

func testConfig(t *testing.T) interpreter.Config {
	return interpreter.Config{
		Registry: newRegistry(t),
		Clients:  &chain.Clients{Signer: chain.StaticSigner(common.HexToAddress(aliceAddr))},
		Logger:   log.NewLogger(log.DiscardHandler()),
	}
}

func parse(t *testing.T, src string) *ast.Program {
	t.Helper()
	tree, err := parser.ParseString(src)
	require.NoError(t, err)
	require.Empty(t, tree.Errors, "parse errors: %v", tree.Err())
	return tree.Program
}

func run(t *testing.T, cfg interpreter.Config, src string) (*interpreter.Interpreter, []action.Action, error) {
	t.Helper()
	in, err := interpreter.New(cfg)
	require.NoError(t, err)
	actions, err := in.Run(context.Background(), parse(t, src))
	return in, actions, err
}

// helperModule declares a single helper foo returning its module name.
func helperModule(name string) module.Descriptor {
	return module.Descriptor{
		Name:    name,
		Version: "v0.1.0",
		New: func() *module.Module {
			return &module.Module{Helpers: map[string]*module.Helper{
				"foo": {
					Name:  "foo",
					Arity: module.Exactly(0),
					Run: func(context.Context, *module.Module, *ast.HelperFunctionExpression, []any, module.Interpreter) (any, error) {
						return name, nil
					},
				},
			}}
		},
	}
}
