package evm

import (
	"fmt"
	"math/big"
	"reflect"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/holiman/uint256"
)

// ToABIValue converts a script value into the Go value abi.Arguments.Pack
// expects for typ.
func ToABIValue(typ abi.Type, v any) (any, error) {
	rv, err := toReflect(typ, v)
	if err != nil {
		return nil, err
	}
	return rv.Interface(), nil
}

func toReflect(typ abi.Type, v any) (reflect.Value, error) {
	switch typ.T {
	case abi.AddressTy:
		addr, err := ToAddress(v)
		if err != nil {
			return reflect.Value{}, err
		}
		return reflect.ValueOf(addr), nil

	case abi.UintTy, abi.IntTy:
		n, err := ToBigInt(v)
		if err != nil {
			return reflect.Value{}, err
		}
		if err := checkIntRange(typ, n); err != nil {
			return reflect.Value{}, err
		}
		rt := typ.GetType()
		if rt == reflect.TypeOf(&big.Int{}) {
			return reflect.ValueOf(n), nil
		}
		if typ.T == abi.UintTy {
			return reflect.ValueOf(n.Uint64()).Convert(rt), nil
		}
		return reflect.ValueOf(n.Int64()).Convert(rt), nil

	case abi.BoolTy:
		switch b := v.(type) {
		case bool:
			return reflect.ValueOf(b), nil
		case string:
			if b == "true" || b == "false" {
				return reflect.ValueOf(b == "true"), nil
			}
		}
		return reflect.Value{}, fmt.Errorf("invalid bool %v", Stringify(v))

	case abi.StringTy:
		return reflect.ValueOf(Stringify(v)), nil

	case abi.BytesTy:
		b, err := ToBytes(v)
		if err != nil {
			return reflect.Value{}, err
		}
		return reflect.ValueOf(b), nil

	case abi.FixedBytesTy, abi.FunctionTy:
		b, err := ToBytes(v)
		if err != nil {
			return reflect.Value{}, err
		}
		rt := typ.GetType()
		if len(b) > rt.Len() {
			return reflect.Value{}, fmt.Errorf("value %s does not fit in %s", hexutil.Encode(b), typ)
		}
		out := reflect.New(rt).Elem()
		reflect.Copy(out, reflect.ValueOf(b))
		return out, nil

	case abi.SliceTy, abi.ArrayTy:
		elems, ok := v.([]any)
		if !ok {
			return reflect.Value{}, fmt.Errorf("expected array for %s, got %s", typ, Stringify(v))
		}
		if typ.T == abi.ArrayTy && len(elems) != typ.Size {
			return reflect.Value{}, fmt.Errorf("expected %d elements for %s, got %d", typ.Size, typ, len(elems))
		}
		rt := typ.GetType()
		var out reflect.Value
		if typ.T == abi.SliceTy {
			out = reflect.MakeSlice(rt, len(elems), len(elems))
		} else {
			out = reflect.New(rt).Elem()
		}
		for i, e := range elems {
			ev, err := toReflect(*typ.Elem, e)
			if err != nil {
				return reflect.Value{}, fmt.Errorf("element %d: %w", i, err)
			}
			out.Index(i).Set(ev)
		}
		return out, nil

	case abi.TupleTy:
		elems, ok := v.([]any)
		if !ok || len(elems) != len(typ.TupleElems) {
			return reflect.Value{}, fmt.Errorf("expected %d-element tuple for %s, got %s", len(typ.TupleElems), typ, Stringify(v))
		}
		out := reflect.New(typ.GetType()).Elem()
		for i, e := range elems {
			ev, err := toReflect(*typ.TupleElems[i], e)
			if err != nil {
				return reflect.Value{}, fmt.Errorf("field %d: %w", i, err)
			}
			out.Field(i).Set(ev)
		}
		return out, nil
	}
	return reflect.Value{}, fmt.Errorf("unsupported type %s", typ)
}

func checkIntRange(typ abi.Type, n *big.Int) error {
	if typ.T == abi.UintTy {
		if n.Sign() < 0 {
			return fmt.Errorf("negative value %s for %s", n, typ)
		}
		u, overflow := uint256.FromBig(n)
		if overflow || u.BitLen() > typ.Size {
			return fmt.Errorf("value %s overflows %s", n, typ)
		}
		return nil
	}
	limit := new(big.Int).Lsh(big.NewInt(1), uint(typ.Size-1))
	min := new(big.Int).Neg(limit)
	if n.Cmp(min) < 0 || n.Cmp(limit) >= 0 {
		return fmt.Errorf("value %s overflows %s", n, typ)
	}
	return nil
}

// ToAddress accepts a hex address string or a common.Address.
func ToAddress(v any) (common.Address, error) {
	switch a := v.(type) {
	case common.Address:
		return a, nil
	case string:
		if strings.HasPrefix(a, "0x") && common.IsHexAddress(a) {
			return common.HexToAddress(a), nil
		}
	}
	return common.Address{}, fmt.Errorf("invalid address %s", Stringify(v))
}

// ToBigInt accepts *big.Int, Go integers and decimal strings.
func ToBigInt(v any) (*big.Int, error) {
	switch n := v.(type) {
	case *big.Int:
		return n, nil
	case int:
		return big.NewInt(int64(n)), nil
	case int64:
		return big.NewInt(n), nil
	case uint64:
		return new(big.Int).SetUint64(n), nil
	case string:
		if b, ok := new(big.Int).SetString(n, 10); ok {
			return b, nil
		}
		if strings.HasPrefix(n, "0x") {
			if b, err := hexutil.DecodeBig(n); err == nil {
				return b, nil
			}
		}
	}
	return nil, fmt.Errorf("invalid number %s", Stringify(v))
}

// ToBytes decodes a 0x-prefixed hex string.
func ToBytes(v any) ([]byte, error) {
	switch b := v.(type) {
	case []byte:
		return b, nil
	case string:
		out, err := hexutil.Decode(b)
		if err != nil {
			return nil, fmt.Errorf("invalid bytes %q: %w", b, err)
		}
		return out, nil
	}
	return nil, fmt.Errorf("invalid bytes %s", Stringify(v))
}

// FromABIValue converts a decoded ABI value into a script value: integers
// become *big.Int, addresses checksummed strings, byte arrays hex strings,
// arrays and tuples []any.
func FromABIValue(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case *big.Int:
		return x
	case bool, string:
		return x
	case common.Address:
		return x.Hex()
	case common.Hash:
		return x.Hex()
	case []byte:
		return hexutil.Encode(x)
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uint:
		return new(big.Int).SetUint64(rv.Uint())
	case reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64, reflect.Int:
		return big.NewInt(rv.Int())
	case reflect.Array:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			b := make([]byte, rv.Len())
			reflect.Copy(reflect.ValueOf(b), rv)
			return hexutil.Encode(b)
		}
		fallthrough
	case reflect.Slice:
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = FromABIValue(rv.Index(i).Interface())
		}
		return out
	case reflect.Struct:
		out := make([]any, rv.NumField())
		for i := range out {
			out[i] = FromABIValue(rv.Field(i).Interface())
		}
		return out
	case reflect.Ptr:
		if rv.IsNil() {
			return nil
		}
		return FromABIValue(rv.Elem().Interface())
	}
	return v
}

// Stringify renders a script value the way captures and print show it.
func Stringify(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case *big.Int:
		return x.String()
	case bool:
		if x {
			return "true"
		}
		return "false"
	case common.Address:
		return x.Hex()
	case []byte:
		return hexutil.Encode(x)
	case []any:
		parts := make([]string, len(x))
		for i, e := range x {
			parts[i] = Stringify(e)
		}
		return "[" + strings.Join(parts, ",") + "]"
	case fmt.Stringer:
		return x.String()
	}
	return fmt.Sprint(FromABIValue(v))
}
