package std

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/evmcrispr/evml/core/action"
	"github.com/evmcrispr/evml/core/ast"
	"github.com/evmcrispr/evml/core/bindings"
	"github.com/evmcrispr/evml/core/errors"
	"github.com/evmcrispr/evml/core/evm"
	"github.com/evmcrispr/evml/core/module"
)

func evalAddress(ctx context.Context, in module.Interpreter, n ast.Node) (common.Address, error) {
	v, err := in.Eval(ctx, n)
	if err != nil {
		return common.Address{}, err
	}
	addr, err := evm.ToAddress(v)
	if err != nil {
		return common.Address{}, errors.NewExpressionError(n, err, "expected an address")
	}
	return addr, nil
}

func evalString(ctx context.Context, in module.Interpreter, n ast.Node) (string, error) {
	v, err := in.Eval(ctx, n)
	if err != nil {
		return "", err
	}
	return evm.Stringify(v), nil
}

func boolOpt(ctx context.Context, c *ast.CommandExpression, in module.Interpreter, name string) (bool, error) {
	v, ok, err := in.EvalOpt(ctx, c, name)
	if err != nil || !ok {
		return false, err
	}
	switch v {
	case true, "true":
		return true, nil
	case false, "false":
		return false, nil
	}
	return false, errors.NewCommandError(c, errors.ErrInvalidOption, "--%s expects true or false, got %s", name, evm.Stringify(v))
}

// ApplyTxOpts reads the transaction options declared in specs from c and sets
// them on tx.
func ApplyTxOpts(ctx context.Context, c *ast.CommandExpression, in module.Interpreter, tx *action.Transaction, specs []module.OptSpec) error {
	for _, spec := range specs {
		raw, ok, err := in.EvalOpt(ctx, c, spec.Name)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}

		var value any = raw
		if spec.Name != "from" {
			n, err := evm.ToBigInt(raw)
			if err != nil {
				return errors.NewCommandError(c, errors.ErrInvalidOption, "invalid value for --%s: %v", spec.Name, err)
			}
			value = n
		}
		if err := module.ValidateOpt(c, spec, value); err != nil {
			return err
		}

		switch spec.Name {
		case "value":
			tx.Value = value.(*big.Int)
		case "from":
			from, err := evm.ToAddress(value)
			if err != nil {
				return errors.NewCommandError(c, errors.ErrInvalidOption, "invalid value for --from: %v", err)
			}
			tx.From = &from
		case "gas":
			gas := value.(*big.Int)
			if !gas.IsUint64() {
				return errors.NewCommandError(c, errors.ErrInvalidOption, "gas limit %s too large", gas)
			}
			tx.Gas = gas.Uint64()
		case "max-fee-per-gas":
			tx.MaxFeePerGas = value.(*big.Int)
		case "max-priority-fee-per-gas":
			tx.MaxPriorityFeePerGas = value.(*big.Int)
		}
	}
	return nil
}

// identifiers lists the identifiers visible in space.
func identifiers(s *bindings.Store, space bindings.Space) []string {
	if s == nil {
		return nil
	}
	bs := s.AllBindings(bindings.Filter{Spaces: []bindings.Space{space}})
	out := make([]string, len(bs))
	for i, b := range bs {
		out[i] = b.Identifier
	}
	return out
}

var decimalsMethod = mustSignature("decimals()(uint8)")

func mustSignature(sig string) *abi.Method {
	m, err := evm.ParseSignatureWithReturns(sig)
	if err != nil {
		panic(err)
	}
	return m
}

// TokenDecimals returns the decimals of an ERC-20 token, memoised in the
// cache space until the next transaction lands.
func TokenDecimals(ctx context.Context, in module.Interpreter, token common.Address) (int, error) {
	key := "decimals:" + token.Hex()
	if v, ok := in.Bindings().GetBindingValue(key, bindings.Cache); ok {
		return v.(int), nil
	}
	out, err := Call(ctx, in, token, decimalsMethod, nil)
	if err != nil {
		return 0, err
	}
	n, err := evm.ToBigInt(out[0])
	if err != nil {
		return 0, err
	}
	d := int(n.Int64())
	_ = in.Bindings().SetBinding(key, d, bindings.Cache, true)
	return d, nil
}

// Call runs a read-only call of method on target.
func Call(ctx context.Context, in module.Interpreter, target common.Address, method *abi.Method, args []any) ([]any, error) {
	data, err := evm.EncodeCall(method, args)
	if err != nil {
		return nil, err
	}
	ret, err := in.Clients().Call(ctx, target, data)
	if err != nil {
		return nil, fmt.Errorf("call to %s failed: %w", target.Hex(), err)
	}
	return evm.DecodeOutput(method, ret)
}

// ScaleAmount converts a decimal amount such as "1.5" into base units.
func ScaleAmount(amount any, decimals int) (*big.Int, error) {
	r, ok := new(big.Rat).SetString(evm.Stringify(amount))
	if !ok {
		return nil, fmt.Errorf("invalid amount %s", evm.Stringify(amount))
	}
	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	r.Mul(r, new(big.Rat).SetInt(scale))
	if !r.IsInt() {
		return nil, fmt.Errorf("amount %s has more than %d decimals", evm.Stringify(amount), decimals)
	}
	return new(big.Int).Set(r.Num()), nil
}
