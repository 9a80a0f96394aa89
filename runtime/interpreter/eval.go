package interpreter

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"

	"github.com/evmcrispr/evml/core/ast"
	"github.com/evmcrispr/evml/core/bindings"
	"github.com/evmcrispr/evml/core/errors"
	"github.com/evmcrispr/evml/core/evm"
	"github.com/evmcrispr/evml/core/module"
	"github.com/evmcrispr/evml/core/types"
)

// Eval evaluates an expression node to a script value: string, *big.Int,
// bool or []any.
func (in *Interpreter) Eval(ctx context.Context, n ast.Node) (any, error) {
	switch n := n.(type) {
	case *ast.AddressLiteral:
		return common.HexToAddress(n.Value).Hex(), nil
	case *ast.BoolLiteral:
		return n.Value, nil
	case *ast.BytesLiteral:
		return strings.ToLower(n.Value), nil
	case *ast.NumberLiteral:
		return evalNumber(n)
	case *ast.StringLiteral:
		return n.Value, nil
	case *ast.ProbableIdentifier:
		return n.Value, nil
	case *ast.VariableIdentifier:
		v, ok := in.store.GetBindingValue(n.Value, bindings.User)
		if !ok {
			return nil, errors.NewExpressionError(n, errors.ErrUndefined, "%s is not defined", n.Value)
		}
		return v, nil
	case *ast.ArrayExpression:
		elems, err := in.EvalArgs(ctx, n.Elements)
		if err != nil {
			return nil, err
		}
		return elems, nil
	case *ast.BinaryExpression:
		return in.evalBinary(ctx, n)
	case *ast.HelperFunctionExpression:
		v, err := in.evalHelper(ctx, n)
		return v, errors.Wrap(n, err)
	case *ast.CallExpression:
		v, err := in.evalCall(ctx, n)
		return v, errors.Wrap(n, err)
	case *ast.BlockExpression:
		return nil, errors.NewExpressionError(n, nil, "a block can only be passed to a command")
	}
	return nil, errors.NewExpressionError(n, nil, "cannot evaluate %T", n)
}

// EvalArgs evaluates nodes in order. With ParallelArgs the nodes are
// evaluated concurrently; results keep their positions and the error of the
// lowest failing index is returned.
func (in *Interpreter) EvalArgs(ctx context.Context, nodes []ast.Node) ([]any, error) {
	out := make([]any, len(nodes))
	if !in.cfg.ParallelArgs || len(nodes) < 2 {
		for i, n := range nodes {
			v, err := in.Eval(ctx, n)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil
	}

	// errors are kept per index; siblings are not cancelled
	var g errgroup.Group
	errs := make([]error, len(nodes))
	for i, n := range nodes {
		i, n := i, n
		g.Go(func() error {
			out[i], errs[i] = in.Eval(ctx, n)
			return nil
		})
	}
	_ = g.Wait()
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// EvalOpt evaluates the option name of c, reporting whether it was given.
func (in *Interpreter) EvalOpt(ctx context.Context, c *ast.CommandExpression, name string) (any, bool, error) {
	o, ok := c.Opt(name)
	if !ok {
		return nil, false, nil
	}
	v, err := in.Eval(ctx, o.Value)
	if err != nil {
		return nil, true, errors.Wrap(o, err)
	}
	return v, true, nil
}

var ten = big.NewInt(10)

// evalNumber folds exponent and time unit into an integer.
func evalNumber(n *ast.NumberLiteral) (any, error) {
	r, ok := new(big.Rat).SetString(n.Value)
	if !ok {
		return nil, errors.NewExpressionError(n, nil, "invalid number %s", n)
	}
	if n.Power > 0 {
		r.Mul(r, new(big.Rat).SetInt(new(big.Int).Exp(ten, big.NewInt(int64(n.Power)), nil)))
	}
	if n.TimeUnit != "" {
		r.Mul(r, new(big.Rat).SetInt64(types.TimeUnits[n.TimeUnit]))
	}
	if !r.IsInt() {
		return nil, errors.NewExpressionError(n, nil, "number %s is not an integer", n)
	}
	return new(big.Int).Set(r.Num()), nil
}

func (in *Interpreter) evalBinary(ctx context.Context, n *ast.BinaryExpression) (any, error) {
	left, err := in.operand(ctx, n.Left)
	if err != nil {
		return nil, err
	}
	right, err := in.operand(ctx, n.Right)
	if err != nil {
		return nil, err
	}

	switch n.Operator {
	case '+':
		return new(big.Int).Add(left, right), nil
	case '-':
		return new(big.Int).Sub(left, right), nil
	case '*':
		return new(big.Int).Mul(left, right), nil
	case '/':
		if right.Sign() == 0 {
			return nil, errors.NewExpressionError(n, errors.ErrDivideByZero, "divide by zero")
		}
		return new(big.Int).Quo(left, right), nil
	case '^':
		if right.Sign() < 0 {
			return nil, errors.NewExpressionError(n.Right, errors.ErrInvalidOperand, "negative exponent %s", right)
		}
		return new(big.Int).Exp(left, right, nil), nil
	}
	return nil, errors.NewExpressionError(n, nil, "unknown operator %c", n.Operator)
}

// operand evaluates an arithmetic operand and coerces it to an integer.
func (in *Interpreter) operand(ctx context.Context, n ast.Node) (*big.Int, error) {
	v, err := in.Eval(ctx, n)
	if err != nil {
		return nil, err
	}
	switch v := v.(type) {
	case *big.Int:
		return v, nil
	case string:
		if i, ok := new(big.Int).SetString(v, 10); ok {
			return i, nil
		}
	}
	return nil, errors.NewExpressionError(n, errors.ErrInvalidOperand,
		"invalid operand %s in arithmetic expression, expected a number", describe(n, v))
}

func describe(n ast.Node, v any) string {
	if _, ok := n.(*ast.VariableIdentifier); ok {
		return fmt.Sprintf("%s (%s)", n, evm.Stringify(v))
	}
	return n.String()
}

func (in *Interpreter) evalHelper(ctx context.Context, h *ast.HelperFunctionExpression) (any, error) {
	m, err := in.helperOwner(h)
	if err != nil {
		return nil, err
	}

	helper, isHelper := m.Helpers[h.Name]
	if !isHelper {
		if len(h.Args) > 0 {
			return nil, errors.NewHelperError(h, errors.ErrInvalidArguments, "@%s is a constant and takes no arguments", h.Name)
		}
		return m.Constants[h.Name], nil
	}

	if err := module.CheckHelperArgsLength(h, helper.Arity); err != nil {
		return nil, err
	}
	args, err := in.EvalArgs(ctx, h.Args)
	if err != nil {
		return nil, err
	}
	return helper.Run(ctx, m, h, args, in)
}
