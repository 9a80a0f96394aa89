// Package erc20 is an evml module for ERC-20 tokens.
//
//	load erc20
//	erc20:using $dai (
//	  transfer $alice 10e18
//	  approve $router @MAX_UINT256
//	)
package erc20

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/evmcrispr/evml/core/action"
	"github.com/evmcrispr/evml/core/ast"
	"github.com/evmcrispr/evml/core/bindings"
	"github.com/evmcrispr/evml/core/chain"
	"github.com/evmcrispr/evml/core/errors"
	"github.com/evmcrispr/evml/core/evm"
	"github.com/evmcrispr/evml/core/module"
	"github.com/evmcrispr/evml/runtime/modules/std"
)

const (
	Name    = "erc20"
	Version = "v1.0.0"

	// TokenBinding is the ADDR-space identifier of the token selected by using.
	TokenBinding = "erc20.token"
)

func init() {
	module.Register(Descriptor())
}

// Descriptor returns the registry entry of the module.
func Descriptor() module.Descriptor {
	return module.Descriptor{
		Name:    Name,
		Version: Version,
		Summary: "ERC-20 token transfers and allowances",
		New:     New,
	}
}

var (
	transferSig  = mustParse("transfer(address,uint256)")
	approveSig   = mustParse("approve(address,uint256)")
	balanceOfSig = mustParseReturns("balanceOf(address)(uint256)")
)

// New creates a module instance.
func New() *module.Module {
	return &module.Module{
		Name: Name,
		Commands: map[string]*module.Command{
			"using":    usingCommand(),
			"transfer": tokenCommand("transfer", "Transfer tokens", "to", transferSig),
			"approve":  tokenCommand("approve", "Approve a spender", "spender", approveSig),
		},
		Helpers: map[string]*module.Helper{
			"balance":  balanceHelper(),
			"decimals": decimalsHelper(),
		},
	}
}

func usingCommand() *module.Command {
	return &module.Command{
		Name:         "using",
		Summary:      "Run a block with a token selected",
		Args:         []module.ArgSpec{{Name: "token", Type: "address"}, {Name: "block", Type: "block"}},
		OpensContext: true,
		Run: func(ctx context.Context, m *module.Module, c *ast.CommandExpression, in module.Interpreter) ([]action.Action, error) {
			if err := module.CheckArgsLength(c, module.Exactly(2)); err != nil {
				return nil, err
			}
			block, ok := c.Args[1].(*ast.BlockExpression)
			if !ok {
				return nil, errors.NewCommandError(c, nil, "expected a block, got %s", c.Args[1])
			}
			v, err := in.Eval(ctx, c.Args[0])
			if err != nil {
				return nil, err
			}
			token, err := evm.ToAddress(v)
			if err != nil {
				return nil, errors.NewCommandError(c, err, "invalid token")
			}
			return in.RunBlock(ctx, block, module.BlockScope{
				Label:  "erc20:using",
				Module: m.BindingName(),
				Setup: func(s *bindings.Store) error {
					return s.SetBinding(TokenBinding, token.Hex(), bindings.Addr, true)
				},
			})
		},
		Eager: func(_ context.Context, c *ast.CommandExpression, _ *bindings.Store, _ *chain.Clients, _ ast.Position) (module.Applier, error) {
			if len(c.Args) == 0 {
				return nil, nil
			}
			token, ok := module.StaticString(c.Args[0])
			if !ok || !common.IsHexAddress(token) {
				return nil, nil
			}
			return func(s *bindings.Store) {
				_ = s.SetBinding(TokenBinding, common.HexToAddress(token).Hex(), bindings.Addr, true)
			}, nil
		},
	}
}

func tokenCommand(name, summary, who string, method *abi.Method) *module.Command {
	return &module.Command{
		Name:    name,
		Summary: summary,
		Args: []module.ArgSpec{
			{Name: "token", Type: "address", Optional: true},
			{Name: who, Type: "address"},
			{Name: "amount", Type: "uint256"},
		},
		Run: func(ctx context.Context, _ *module.Module, c *ast.CommandExpression, in module.Interpreter) ([]action.Action, error) {
			if err := module.CheckArgsLength(c, module.Range(2, 3)); err != nil {
				return nil, err
			}
			if err := module.CheckOpts(c, nil); err != nil {
				return nil, err
			}
			args, err := in.EvalArgs(ctx, c.Args)
			if err != nil {
				return nil, err
			}

			var tokenValue any
			if len(args) == 3 {
				tokenValue, args = args[0], args[1:]
			} else {
				v, ok := in.Bindings().GetBindingValue(TokenBinding, bindings.Addr)
				if !ok {
					return nil, errors.NewCommandError(c, nil, "no token selected, pass one or run inside erc20:using")
				}
				tokenValue = v
			}
			token, err := evm.ToAddress(tokenValue)
			if err != nil {
				return nil, errors.NewCommandError(c, err, "invalid token")
			}

			data, err := evm.EncodeCall(method, args)
			if err != nil {
				return nil, err
			}
			return []action.Action{&action.Transaction{To: token, Data: data}}, nil
		},
		Completions: func(req module.CompletionRequest) []string {
			if req.Bindings == nil {
				return nil
			}
			var out []string
			for _, b := range req.Bindings.AllBindings(bindings.Filter{Spaces: []bindings.Space{bindings.User, bindings.Addr}}) {
				out = append(out, b.Identifier)
			}
			return out
		},
	}
}

func balanceHelper() *module.Helper {
	return &module.Helper{
		Name:    "balance",
		Summary: "Token balance of an account",
		Args:    []module.ArgSpec{{Name: "token", Type: "address"}, {Name: "holder", Type: "address"}},
		Arity:   module.Exactly(2),
		Returns: "uint256",
		Run: func(ctx context.Context, _ *module.Module, _ *ast.HelperFunctionExpression, args []any, in module.Interpreter) (any, error) {
			token, err := evm.ToAddress(args[0])
			if err != nil {
				return nil, err
			}
			out, err := std.Call(ctx, in, token, balanceOfSig, args[1:])
			if err != nil {
				return nil, err
			}
			return out[0], nil
		},
	}
}

func decimalsHelper() *module.Helper {
	return &module.Helper{
		Name:    "decimals",
		Summary: "Decimals of a token",
		Args:    []module.ArgSpec{{Name: "token", Type: "address"}},
		Arity:   module.Exactly(1),
		Returns: "uint8",
		Run: func(ctx context.Context, _ *module.Module, _ *ast.HelperFunctionExpression, args []any, in module.Interpreter) (any, error) {
			token, err := evm.ToAddress(args[0])
			if err != nil {
				return nil, err
			}
			d, err := std.TokenDecimals(ctx, in, token)
			if err != nil {
				return nil, err
			}
			return big.NewInt(int64(d)), nil
		},
	}
}
