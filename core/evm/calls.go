package evm

import (
	"bytes"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// EncodeCall packs args for m and prepends the method selector.
func EncodeCall(m *abi.Method, args []any) ([]byte, error) {
	if len(args) != len(m.Inputs) {
		return nil, fmt.Errorf("%s expects %d arguments, got %d", m.Sig, len(m.Inputs), len(args))
	}
	values := make([]any, len(args))
	for i, a := range args {
		v, err := ToABIValue(m.Inputs[i].Type, a)
		if err != nil {
			return nil, fmt.Errorf("argument %d of %s: %w", i, m.Sig, err)
		}
		values[i] = v
	}
	packed, err := m.Inputs.Pack(values...)
	if err != nil {
		return nil, err
	}
	return append(bytes.Clone(m.ID), packed...), nil
}

// DecodeOutput unpacks return data of m into script values.
func DecodeOutput(m *abi.Method, data []byte) ([]any, error) {
	values, err := m.Outputs.Unpack(data)
	if err != nil {
		return nil, fmt.Errorf("decoding %s output %s: %w", m.Sig, hexutil.Encode(data), err)
	}
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = FromABIValue(v)
	}
	return out, nil
}
