package std

import (
	"context"
	"fmt"
	"math/big"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/evmcrispr/evml/core/action"
	"github.com/evmcrispr/evml/core/ast"
	"github.com/evmcrispr/evml/core/bindings"
	"github.com/evmcrispr/evml/core/chain"
	"github.com/evmcrispr/evml/core/errors"
	"github.com/evmcrispr/evml/core/evm"
	"github.com/evmcrispr/evml/core/module"
	"github.com/evmcrispr/evml/core/types"
)

func setCommand() *module.Command {
	return &module.Command{
		Name:    "set",
		Summary: "Bind a value to a variable in the current scope",
		Args:    []module.ArgSpec{{Name: "variable", Type: "variable"}, {Name: "value", Type: "any"}},
		Opts:    []module.OptSpec{{Name: "force", Summary: "redefine a variable of the current scope", Schema: types.Bool()}},
		Run: func(ctx context.Context, _ *module.Module, c *ast.CommandExpression, in module.Interpreter) ([]action.Action, error) {
			if err := module.CheckArgsLength(c, module.Exactly(2)); err != nil {
				return nil, err
			}
			if err := module.CheckOpts(c, []string{"force"}); err != nil {
				return nil, err
			}
			v, ok := c.Args[0].(*ast.VariableIdentifier)
			if !ok {
				return nil, errors.NewCommandError(c, nil, "expected a variable, got %s", c.Args[0])
			}
			value, err := in.Eval(ctx, c.Args[1])
			if err != nil {
				return nil, err
			}
			force, err := boolOpt(ctx, c, in, "force")
			if err != nil {
				return nil, err
			}
			if err := in.Bindings().SetBinding(v.Value, value, bindings.User, force); err != nil {
				return nil, errors.NewCommandError(c, err, "%s is already defined, use --force to redefine it", v.Value)
			}
			return nil, nil
		},
		Completions: func(req module.CompletionRequest) []string {
			if req.ArgIndex == 0 {
				return identifiers(req.Bindings, bindings.User)
			}
			return nil
		},
		Eager: func(_ context.Context, c *ast.CommandExpression, _ *bindings.Store, _ *chain.Clients, _ ast.Position) (module.Applier, error) {
			if len(c.Args) == 0 {
				return nil, nil
			}
			v, ok := c.Args[0].(*ast.VariableIdentifier)
			if !ok {
				return nil, nil
			}
			var value any
			if len(c.Args) > 1 {
				value, _ = module.StaticValue(c.Args[1])
			}
			return func(s *bindings.Store) {
				_ = s.SetBinding(v.Value, value, bindings.User, true)
			}, nil
		},
	}
}

func loadCommand(m *module.Module) *module.Command {
	return &module.Command{
		Name:    "load",
		Summary: "Load a module into the current scope",
		Args:    []module.ArgSpec{{Name: "module", Type: "module"}, {Name: "as", Type: "keyword", Optional: true}, {Name: "alias", Type: "string", Optional: true}},
		Run: func(ctx context.Context, _ *module.Module, c *ast.CommandExpression, in module.Interpreter) ([]action.Action, error) {
			if err := module.CheckArgsLength(c, module.Range(1, 3)); err != nil {
				return nil, err
			}
			if err := module.CheckOpts(c, nil); err != nil {
				return nil, err
			}
			name, alias, err := loadTarget(c)
			if err != nil {
				return nil, err
			}
			if _, err := in.LoadModule(name, alias); err != nil {
				return nil, errors.NewCommandError(c, err, "cannot load module %s", name)
			}
			return nil, nil
		},
		Completions: func(req module.CompletionRequest) []string {
			switch req.ArgIndex {
			case 0:
				return m.Registry().Names()
			case 1:
				return []string{"as"}
			}
			return nil
		},
		Eager: func(_ context.Context, c *ast.CommandExpression, cache *bindings.Store, _ *chain.Clients, _ ast.Position) (module.Applier, error) {
			name, alias, err := loadTarget(c)
			if err != nil {
				return nil, err
			}
			key := "module:" + name
			var loaded *module.Module
			if v, ok := cache.GetBindingValue(key, bindings.Cache); ok {
				loaded = v.(*module.Module)
			} else {
				loaded, err = m.Registry().New(name)
				if err != nil {
					return nil, err
				}
				_ = cache.SetBinding(key, loaded, bindings.Cache, true)
			}
			return func(s *bindings.Store) {
				_ = s.SetBinding(name, loaded, bindings.Module, true)
				if alias != "" {
					_ = s.SetBinding(alias, name, bindings.Alias, true)
				}
			}, nil
		},
	}
}

// loadTarget reads "name" or "name as alias".
func loadTarget(c *ast.CommandExpression) (name, alias string, err error) {
	if len(c.Args) != 1 && len(c.Args) != 3 {
		return "", "", errors.NewCommandError(c, errors.ErrInvalidArguments, "expected load <module> [as <alias>]")
	}
	name, ok := module.StaticString(c.Args[0])
	if !ok {
		return "", "", errors.NewCommandError(c, nil, "invalid module name %s", c.Args[0])
	}
	if len(c.Args) == 3 {
		kw, _ := module.StaticString(c.Args[1])
		alias, ok = module.StaticString(c.Args[2])
		if kw != "as" || !ok {
			return "", "", errors.NewCommandError(c, nil, "expected load <module> [as <alias>]")
		}
	}
	return name, alias, nil
}

var txOpts = []module.OptSpec{
	{Name: "value", Summary: "wei sent with the call", Schema: types.Uint()},
	{Name: "from", Summary: "sender account", Schema: types.Address()},
	{Name: "gas", Summary: "gas limit", Schema: types.Uint()},
	{Name: "max-fee-per-gas", Summary: "EIP-1559 fee cap", Schema: types.Uint()},
	{Name: "max-priority-fee-per-gas", Summary: "EIP-1559 tip", Schema: types.Uint()},
}

func execCommand() *module.Command {
	return &module.Command{
		Name:    "exec",
		Summary: "Call a contract method",
		Args: []module.ArgSpec{
			{Name: "target", Type: "address"},
			{Name: "method", Type: "signature"},
			{Name: "args", Type: "any", Rest: true},
		},
		Opts: txOpts,
		Run: func(ctx context.Context, _ *module.Module, c *ast.CommandExpression, in module.Interpreter) ([]action.Action, error) {
			if err := module.CheckArgsLength(c, module.AtLeast(2)); err != nil {
				return nil, err
			}
			if err := module.CheckOpts(c, module.OptNames(txOpts)); err != nil {
				return nil, err
			}
			target, err := evalAddress(ctx, in, c.Args[0])
			if err != nil {
				return nil, err
			}
			sig, err := evalString(ctx, in, c.Args[1])
			if err != nil {
				return nil, err
			}
			method, err := in.ResolveMethod(ctx, target, sig)
			if err != nil {
				return nil, err
			}
			args, err := in.EvalArgs(ctx, c.Args[2:])
			if err != nil {
				return nil, err
			}
			data, err := evm.EncodeCall(method, args)
			if err != nil {
				return nil, err
			}
			recordFragment(in.Bindings(), target, method)

			tx := &action.Transaction{To: target, Data: data}
			if err := ApplyTxOpts(ctx, c, in, tx, txOpts); err != nil {
				return nil, err
			}
			return []action.Action{tx}, nil
		},
		Completions: func(req module.CompletionRequest) []string {
			switch req.ArgIndex {
			case 0:
				return append(identifiers(req.Bindings, bindings.User), identifiers(req.Bindings, bindings.Addr)...)
			case 1:
				if len(req.Args) == 0 {
					return nil
				}
				s, ok := module.StaticString(req.Args[0])
				if !ok || !common.IsHexAddress(s) {
					return nil
				}
				v, ok := req.Bindings.GetBindingValue(common.HexToAddress(s).Hex(), bindings.ABI)
				if !ok {
					return nil
				}
				return methodSignatures(v.(*abi.ABI))
			}
			return nil
		},
		Eager: func(_ context.Context, c *ast.CommandExpression, _ *bindings.Store, _ *chain.Clients, _ ast.Position) (module.Applier, error) {
			if len(c.Args) < 2 {
				return nil, nil
			}
			target, ok1 := module.StaticString(c.Args[0])
			sig, ok2 := module.StaticString(c.Args[1])
			if !ok1 || !ok2 || !common.IsHexAddress(target) || !evm.IsSignature(sig) {
				return nil, nil
			}
			method, err := evm.ParseSignature(sig)
			if err != nil {
				return nil, err
			}
			return func(s *bindings.Store) {
				recordFragment(s, common.HexToAddress(target), method)
			}, nil
		},
	}
}

// recordFragment adds method to the interface recorded for target in the ABI
// space of the current scope.
func recordFragment(s *bindings.Store, target common.Address, method *abi.Method) {
	fragment := &abi.ABI{Methods: map[string]abi.Method{}}
	if v, ok := s.GetBindingValue(target.Hex(), bindings.ABI); ok {
		for k, m := range v.(*abi.ABI).Methods {
			fragment.Methods[k] = m
		}
	}
	fragment.Methods[method.Sig] = *method
	_ = s.SetBinding(target.Hex(), fragment, bindings.ABI, true)
}

func methodSignatures(contract *abi.ABI) []string {
	sigs := make([]string, 0, len(contract.Methods))
	for _, m := range contract.Methods {
		sigs = append(sigs, m.Sig)
	}
	sort.Strings(sigs)
	return sigs
}

func rawCommand() *module.Command {
	opts := txOpts[:2]
	return &module.Command{
		Name:    "raw",
		Summary: "Send a transaction with raw calldata",
		Args:    []module.ArgSpec{{Name: "target", Type: "address"}, {Name: "data", Type: "bytes"}},
		Opts:    opts,
		Run: func(ctx context.Context, _ *module.Module, c *ast.CommandExpression, in module.Interpreter) ([]action.Action, error) {
			if err := module.CheckArgsLength(c, module.Exactly(2)); err != nil {
				return nil, err
			}
			if err := module.CheckOpts(c, module.OptNames(opts)); err != nil {
				return nil, err
			}
			target, err := evalAddress(ctx, in, c.Args[0])
			if err != nil {
				return nil, err
			}
			raw, err := in.Eval(ctx, c.Args[1])
			if err != nil {
				return nil, err
			}
			data, err := evm.ToBytes(raw)
			if err != nil {
				return nil, errors.NewCommandError(c, err, "invalid calldata")
			}
			tx := &action.Transaction{To: target, Data: data}
			if err := ApplyTxOpts(ctx, c, in, tx, opts); err != nil {
				return nil, err
			}
			return []action.Action{tx}, nil
		},
	}
}

func printCommand() *module.Command {
	return &module.Command{
		Name:    "print",
		Summary: "Log values",
		Args:    []module.ArgSpec{{Name: "values", Type: "any", Rest: true}},
		Run: func(ctx context.Context, _ *module.Module, c *ast.CommandExpression, in module.Interpreter) ([]action.Action, error) {
			if err := module.CheckArgsLength(c, module.AtLeast(1)); err != nil {
				return nil, err
			}
			values, err := in.EvalArgs(ctx, c.Args)
			if err != nil {
				return nil, err
			}
			parts := make([]string, len(values))
			for i, v := range values {
				parts[i] = evm.Stringify(v)
			}
			in.Logger().Info(strings.Join(parts, " "), "line", c.Loc.Start.Line)
			return nil, nil
		},
	}
}

// Networks maps network names accepted by switch to chain ids.
var Networks = map[string]int64{
	"mainnet":  1,
	"sepolia":  11155111,
	"holesky":  17000,
	"optimism": 10,
	"gnosis":   100,
	"polygon":  137,
	"base":     8453,
	"arbitrum": 42161,
}

func switchCommand() *module.Command {
	return &module.Command{
		Name:    "switch",
		Summary: "Switch the wallet to another network",
		Args:    []module.ArgSpec{{Name: "network", Type: "network"}},
		Run: func(ctx context.Context, _ *module.Module, c *ast.CommandExpression, in module.Interpreter) ([]action.Action, error) {
			if err := module.CheckArgsLength(c, module.Exactly(1)); err != nil {
				return nil, err
			}
			v, err := in.Eval(ctx, c.Args[0])
			if err != nil {
				return nil, err
			}
			id, err := chainID(v)
			if err != nil {
				return nil, errors.NewCommandError(c, err, "invalid network")
			}
			_ = in.Bindings().SetBinding("chainId", id, bindings.Other, true)
			return []action.Action{&action.SwitchNetwork{ChainID: id}}, nil
		},
		Completions: func(req module.CompletionRequest) []string {
			if req.ArgIndex != 0 {
				return nil
			}
			names := make([]string, 0, len(Networks))
			for n := range Networks {
				names = append(names, n)
			}
			sort.Strings(names)
			return names
		},
	}
}

func chainID(v any) (*big.Int, error) {
	if s, ok := v.(string); ok {
		if id, known := Networks[strings.ToLower(s)]; known {
			return big.NewInt(id), nil
		}
	}
	id, err := evm.ToBigInt(v)
	if err != nil || id.Sign() <= 0 {
		return nil, fmt.Errorf("unknown network %s", evm.Stringify(v))
	}
	return id, nil
}

func signCommand() *module.Command {
	return &module.Command{
		Name:    "sign",
		Summary: "Ask the wallet to sign a message",
		Args:    []module.ArgSpec{{Name: "message", Type: "string"}},
		Run: func(ctx context.Context, _ *module.Module, c *ast.CommandExpression, in module.Interpreter) ([]action.Action, error) {
			if err := module.CheckArgsLength(c, module.Exactly(1)); err != nil {
				return nil, err
			}
			msg, err := evalString(ctx, in, c.Args[0])
			if err != nil {
				return nil, err
			}
			return []action.Action{&action.SignRequest{Message: msg}}, nil
		},
	}
}

func batchCommand() *module.Command {
	return &module.Command{
		Name:    "batch",
		Summary: "Group the transactions of a block into one batch",
		Args:    []module.ArgSpec{{Name: "block", Type: "block"}},
		Run: func(ctx context.Context, _ *module.Module, c *ast.CommandExpression, in module.Interpreter) ([]action.Action, error) {
			if err := module.CheckArgsLength(c, module.Exactly(1)); err != nil {
				return nil, err
			}
			block, ok := c.Args[0].(*ast.BlockExpression)
			if !ok {
				return nil, errors.NewCommandError(c, nil, "expected a block, got %s", c.Args[0])
			}
			inner, err := in.RunBlock(ctx, block, module.BlockScope{Label: "batch", Collect: true})
			if err != nil {
				return nil, err
			}
			b := &action.Batch{}
			for _, a := range inner {
				switch a := a.(type) {
				case *action.Transaction:
					b.Transactions = append(b.Transactions, a)
				case *action.Batch:
					b.Transactions = append(b.Transactions, a.Transactions...)
				default:
					return nil, errors.NewCommandError(c, nil, "a batch can only contain transactions, got %s", a.Kind())
				}
			}
			return []action.Action{b}, nil
		},
	}
}

func haltCommand() *module.Command {
	return &module.Command{
		Name:    "halt",
		Summary: "Stop the script",
		Run: func(_ context.Context, _ *module.Module, c *ast.CommandExpression, in module.Interpreter) ([]action.Action, error) {
			if err := module.CheckArgsLength(c, module.Exactly(0)); err != nil {
				return nil, err
			}
			in.Halt()
			return []action.Action{&action.Terminal{}}, nil
		},
	}
}
