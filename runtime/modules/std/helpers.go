package std

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/evmcrispr/evml/core/ast"
	"github.com/evmcrispr/evml/core/evm"
	"github.com/evmcrispr/evml/core/module"
	"github.com/evmcrispr/evml/core/types"
)

func meHelper() *module.Helper {
	return &module.Helper{
		Name:    "me",
		Summary: "Address of the connected account",
		Arity:   module.Exactly(0),
		Returns: "address",
		Run: func(ctx context.Context, _ *module.Module, _ *ast.HelperFunctionExpression, _ []any, in module.Interpreter) (any, error) {
			addr, err := in.Clients().SignerAddress(ctx)
			if err != nil {
				return nil, err
			}
			return addr.Hex(), nil
		},
	}
}

func idHelper() *module.Helper {
	return &module.Helper{
		Name:    "id",
		Summary: "keccak256 hash of a string",
		Args:    []module.ArgSpec{{Name: "text", Type: "string"}},
		Arity:   module.Exactly(1),
		Returns: "bytes32",
		Run: func(_ context.Context, _ *module.Module, _ *ast.HelperFunctionExpression, args []any, _ module.Interpreter) (any, error) {
			return crypto.Keccak256Hash([]byte(evm.Stringify(args[0]))).Hex(), nil
		},
	}
}

func namehashHelper() *module.Helper {
	return &module.Helper{
		Name:    "namehash",
		Summary: "ENS namehash of a domain",
		Args:    []module.ArgSpec{{Name: "name", Type: "string"}},
		Arity:   module.Exactly(1),
		Returns: "bytes32",
		Run: func(_ context.Context, _ *module.Module, _ *ast.HelperFunctionExpression, args []any, _ module.Interpreter) (any, error) {
			return Namehash(evm.Stringify(args[0])).Hex(), nil
		},
	}
}

// Namehash implements the ENS name hashing algorithm.
func Namehash(name string) common.Hash {
	var node common.Hash
	if name == "" {
		return node
	}
	labels := strings.Split(name, ".")
	for i := len(labels) - 1; i >= 0; i-- {
		label := crypto.Keccak256([]byte(labels[i]))
		node = crypto.Keccak256Hash(node.Bytes(), label)
	}
	return node
}

var dateLayouts = []string{"2006-01-02T15:04:05Z07:00", "2006-01-02T15:04:05", "2006-01-02"}

func dateHelper() *module.Helper {
	return &module.Helper{
		Name:    "date",
		Summary: "Unix timestamp of a date, optionally shifted by an offset",
		Args:    []module.ArgSpec{{Name: "date", Type: "string"}, {Name: "offset", Type: "duration", Optional: true}},
		Arity:   module.Range(1, 2),
		Returns: "uint256",
		Run: func(_ context.Context, _ *module.Module, _ *ast.HelperFunctionExpression, args []any, in module.Interpreter) (any, error) {
			t, err := parseDate(evm.Stringify(args[0]), in.Clients().Time())
			if err != nil {
				return nil, err
			}
			ts := big.NewInt(t.Unix())
			if len(args) == 2 {
				offset, err := parseOffset(args[1])
				if err != nil {
					return nil, err
				}
				ts.Add(ts, offset)
			}
			return ts, nil
		},
	}
}

func parseDate(s string, now time.Time) (time.Time, error) {
	if s == "now" {
		return now, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q, expected now or YYYY-MM-DD[THH:MM:SS]", s)
}

// parseOffset accepts a number of seconds or a signed duration like -2d.
func parseOffset(v any) (*big.Int, error) {
	if n, ok := v.(*big.Int); ok {
		return n, nil
	}
	s := evm.Stringify(v)
	sign := int64(1)
	switch {
	case strings.HasPrefix(s, "+"):
		s = s[1:]
	case strings.HasPrefix(s, "-"):
		sign, s = -1, s[1:]
	}
	secs, err := types.ParseDuration(s)
	if err != nil {
		return nil, err
	}
	return big.NewInt(sign * secs), nil
}

func getHelper() *module.Helper {
	return &module.Helper{
		Name:    "get",
		Summary: "Read a contract value",
		Args:    []module.ArgSpec{{Name: "target", Type: "address"}, {Name: "method", Type: "signature"}, {Name: "args", Type: "any", Rest: true}},
		Arity:   module.AtLeast(2),
		Returns: "any",
		Run: func(ctx context.Context, _ *module.Module, _ *ast.HelperFunctionExpression, args []any, in module.Interpreter) (any, error) {
			target, err := evm.ToAddress(args[0])
			if err != nil {
				return nil, err
			}
			method, err := evm.ParseSignatureWithReturns(evm.Stringify(args[1]))
			if err != nil {
				return nil, err
			}
			out, err := Call(ctx, in, target, method, args[2:])
			if err != nil {
				return nil, err
			}
			if len(out) == 1 {
				return out[0], nil
			}
			return out, nil
		},
	}
}

func tokenAmountHelper() *module.Helper {
	return &module.Helper{
		Name:    "token.amount",
		Summary: "Convert a decimal token amount into base units",
		Args:    []module.ArgSpec{{Name: "token", Type: "address"}, {Name: "amount", Type: "number"}},
		Arity:   module.Exactly(2),
		Returns: "uint256",
		Run: func(ctx context.Context, _ *module.Module, _ *ast.HelperFunctionExpression, args []any, in module.Interpreter) (any, error) {
			token, err := evm.ToAddress(args[0])
			if err != nil {
				return nil, err
			}
			decimals, err := TokenDecimals(ctx, in, token)
			if err != nil {
				return nil, err
			}
			return ScaleAmount(args[1], decimals)
		},
	}
}
