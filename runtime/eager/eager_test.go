package eager_test

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evmcrispr/evml/core/action"
	"github.com/evmcrispr/evml/core/ast"
	"github.com/evmcrispr/evml/core/bindings"
	"github.com/evmcrispr/evml/core/chain"
	"github.com/evmcrispr/evml/core/module"
	"github.com/evmcrispr/evml/runtime/eager"
	"github.com/evmcrispr/evml/runtime/modules/erc20"
	"github.com/evmcrispr/evml/runtime/modules/std"
)

const (
	tokenA = "0x44fa8e6f47987339850636f88629646662444217"
	tokenB = "0x6b175474e89094c44da98b954eedeac495271d0f"
)

func newEngine(t *testing.T, extra ...module.Descriptor) *eager.Engine {
	t.Helper()
	r := module.NewRegistry()
	require.NoError(t, r.Register(std.Descriptor()))
	require.NoError(t, r.Register(erc20.Descriptor()))
	for _, d := range extra {
		require.NoError(t, r.Register(d))
	}
	return eager.New(eager.Config{Registry: r, Logger: log.NewLogger(log.DiscardHandler())})
}

func analyze(t *testing.T, e *eager.Engine, text string, line, col int) *eager.Result {
	t.Helper()
	return e.Analyze(context.Background(), text, ast.Position{Line: line, Col: col})
}

func TestAnalyzeBindings(t *testing.T) {
	text := "load erc20 as tok\n" +
		"set $a " + tokenA + "\n" +
		"set $b 100\n" +
		"tok:using " + tokenA + " (\n" +
		"  set $inner 1\n" +
		"  transfer \n" +
		")\n" +
		"set $after 2\n"
	res := analyze(t, newEngine(t), text, 6, 11)

	a, ok := res.Bindings.GetBindingValue("$a", bindings.User)
	require.True(t, ok)
	assert.Equal(t, tokenA, a)
	b, _ := res.Bindings.GetBindingValue("$b", bindings.User)
	assert.Equal(t, "100", b)
	assert.True(t, res.Bindings.HasBinding("$inner", bindings.User))
	assert.False(t, res.Bindings.HasBinding("$after", bindings.User))

	m, ok := res.Module("tok")
	require.True(t, ok)
	assert.Equal(t, erc20.Name, m.Name)
	require.NotNil(t, res.Context)
	assert.Equal(t, erc20.Name, res.Context.Name)

	token, ok := res.Bindings.GetBindingValue(erc20.TokenBinding, bindings.Addr)
	require.True(t, ok)
	assert.Equal(t, common.HexToAddress(tokenA).Hex(), token)

	require.NotNil(t, res.Command)
	assert.Equal(t, "transfer", res.Command.Name)
	assert.Equal(t, 6, res.Command.Loc.Start.Line)

	mod, cmd, ok := res.Resolve(res.Command)
	require.True(t, ok)
	assert.Equal(t, erc20.Name, mod.Name)
	assert.Equal(t, "transfer", cmd.Name)
}

func TestClosedBlockBindingsAreDropped(t *testing.T) {
	text := "batch (\n  set $gone 1\n)\nset $kept 2\nexec "
	res := analyze(t, newEngine(t), text, 5, 5)
	assert.False(t, res.Bindings.HasBinding("$gone", bindings.User))
	assert.True(t, res.Bindings.HasBinding("$kept", bindings.User))
	assert.Equal(t, std.Name, res.Context.Name)
}

func TestCursorCommandDropsOpenBlock(t *testing.T) {
	c := eager.CursorCommand("load erc20\nerc20:using "+tokenA+" (", 2)
	require.NotNil(t, c)
	assert.Equal(t, "erc20:using", c.FullName())
	assert.Len(t, c.Args, 1)

	assert.Nil(t, eager.CursorCommand("set $x 1", 3))
	assert.Nil(t, eager.CursorCommand("set $x 1\n\n", 2))
}

func TestRepeatedCommandsAreSampledOnce(t *testing.T) {
	text := "exec " + tokenA + " \"f()\"\n" +
		"exec " + tokenB + " \"g(uint256)\" 1\n" +
		"print 1\n"
	res := analyze(t, newEngine(t), text, 3, 0)

	assert.False(t, res.Bindings.HasBinding(common.HexToAddress(tokenA).Hex(), bindings.ABI))
	fragment, ok := res.Bindings.GetBindingValue(common.HexToAddress(tokenB).Hex(), bindings.ABI)
	require.True(t, ok)
	assert.Contains(t, fragment.(*abi.ABI).Methods, "g(uint256)")
}

func TestModuleInstancesAreCached(t *testing.T) {
	e := newEngine(t)
	text := "load erc20\nerc20:"
	first, ok := analyze(t, e, text, 2, 6).Module("erc20")
	require.True(t, ok)
	second, ok := analyze(t, e, text, 2, 6).Module("erc20")
	require.True(t, ok)
	assert.Same(t, first, second)
}

func TestFailingBodiesAreSwallowed(t *testing.T) {
	boom := module.Descriptor{
		Name:    "boom",
		Version: "v0.0.1",
		New: func() *module.Module {
			return &module.Module{Commands: map[string]*module.Command{
				"panic": {
					Name: "panic",
					Run: func(context.Context, *module.Module, *ast.CommandExpression, module.Interpreter) ([]action.Action, error) {
						return nil, nil
					},
					Eager: func(context.Context, *ast.CommandExpression, *bindings.Store, *chain.Clients, ast.Position) (module.Applier, error) {
						panic("eager body exploded")
					},
				},
				"applier": {
					Name: "applier",
					Eager: func(context.Context, *ast.CommandExpression, *bindings.Store, *chain.Clients, ast.Position) (module.Applier, error) {
						return func(*bindings.Store) { panic("applier exploded") }, nil
					},
				},
			}}
		},
	}
	e := newEngine(t, boom)
	text := "load boom\nboom:panic\nboom:applier\nset $x 1\nboom:panic"

	var res *eager.Result
	require.NotPanics(t, func() { res = analyze(t, e, text, 5, 0) })
	assert.True(t, res.Bindings.HasBinding("$x", bindings.User))
}

func TestAnalyzeNeverPanics(t *testing.T) {
	fragments := []string{
		"",
		"(",
		")",
		"load",
		"load erc20 as",
		"set $",
		"exec 0x12 \"transfer(",
		"erc20:using (\n  transfer",
		"batch (\n  batch (\n    set $x (1 +",
		"set $x @get(0x44fa8e6f47987339850636f88629646662444217, \"f()(uint256)\"",
		"set $x [1, [2,",
		"exec $a::b( -> Deposit(",
		"@@@ ### ---",
		"set $x 1\n)\n)\nset $y 2",
		"\"unterminated",
		"load nope\nnope:cmd",
	}
	e := newEngine(t)
	for _, text := range fragments {
		for line := 0; line <= 4; line++ {
			for _, col := range []int{0, 3, 100} {
				assert.NotPanics(t, func() { analyze(t, e, text, line, col) }, "%q at %d:%d", text, line, col)
			}
		}
	}
}
