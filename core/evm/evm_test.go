package evm

import (
	"encoding/hex"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSignature(t *testing.T) {
	tests := []struct {
		in      string
		sig     string
		inputs  int
		wantErr string
	}{
		{in: "transfer(address,uint256)", sig: "transfer(address,uint256)", inputs: 2},
		{in: "transfer(address to, uint amount)", sig: "transfer(address,uint256)", inputs: 2},
		{in: "noop()", sig: "noop()", inputs: 0},
		{in: "f((uint256,address)[],bool)", sig: "f((uint256,address)[],bool)", inputs: 2},
		{in: "g(byte,int[2])", sig: "g(bytes1,int256[2])", inputs: 2},
		{in: "transfer", wantErr: "missing parameter list"},
		{in: "transfer(address", wantErr: "missing ')'"},
		{in: "1bad(uint256)", wantErr: "bad method name"},
		{in: "f(uint256)(bool)", wantErr: "unexpected"},
		{in: "f(uint256,)", wantErr: "empty parameter type"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			m, err := ParseSignature(tt.in)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.sig, m.Sig)
			assert.Len(t, m.Inputs, tt.inputs)
		})
	}
}

func TestParseSignatureWithReturns(t *testing.T) {
	m, err := ParseSignatureWithReturns("balanceOf(address)(uint256)")
	require.NoError(t, err)
	assert.Equal(t, "balanceOf(address)", m.Sig)
	require.Len(t, m.Outputs, 1)
	assert.Equal(t, "uint256", m.Outputs[0].Type.String())

	_, err = ParseSignatureWithReturns("balanceOf(address)")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing return types")
}

func TestEncodeCall(t *testing.T) {
	m, err := ParseSignature("transfer(address,uint256)")
	require.NoError(t, err)

	data, err := EncodeCall(m, []any{"0x0000000000000000000000000000000000000001", big.NewInt(1)})
	require.NoError(t, err)
	require.Len(t, data, 4+32+32)
	assert.Equal(t, "a9059cbb", hex.EncodeToString(data[:4]))
	assert.Equal(t, byte(1), data[35])
	assert.Equal(t, byte(1), data[67])

	_, err = EncodeCall(m, []any{"0x01"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expects 2 arguments, got 1")

	_, err = EncodeCall(m, []any{"nope", big.NewInt(1)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid address")
}

func TestEncodeCallTuple(t *testing.T) {
	m, err := ParseSignature("f((uint256,address)[],bool)")
	require.NoError(t, err)

	items := []any{
		[]any{big.NewInt(7), "0x0000000000000000000000000000000000000002"},
	}
	_, err = EncodeCall(m, []any{items, "true"})
	require.NoError(t, err)
}

func TestToABIValueRanges(t *testing.T) {
	u8, _ := NewType("uint8")
	i8, _ := NewType("int8")
	u256, _ := NewType("uint256")

	v, err := ToABIValue(u8, big.NewInt(255))
	require.NoError(t, err)
	assert.Equal(t, uint8(255), v)

	_, err = ToABIValue(u8, big.NewInt(256))
	assert.ErrorContains(t, err, "overflows uint8")

	v, err = ToABIValue(i8, "-128")
	require.NoError(t, err)
	assert.Equal(t, int8(-128), v)

	_, err = ToABIValue(i8, "-129")
	assert.ErrorContains(t, err, "overflows int8")

	_, err = ToABIValue(u256, big.NewInt(-1))
	assert.ErrorContains(t, err, "negative value")

	tooBig := new(big.Int).Lsh(big.NewInt(1), 256)
	_, err = ToABIValue(u256, tooBig)
	assert.ErrorContains(t, err, "overflows uint256")
}

func TestDecodeOutput(t *testing.T) {
	m, err := ParseSignatureWithReturns("info()(uint256,address,bool)")
	require.NoError(t, err)

	packed, err := m.Outputs.Pack(big.NewInt(42), common.HexToAddress("0x44fA8E6f47987339850636F88629646662444217"), true)
	require.NoError(t, err)

	out, err := DecodeOutput(m, packed)
	require.NoError(t, err)
	want := []any{big.NewInt(42), "0x44fA8E6f47987339850636F88629646662444217", true}
	if diff := cmp.Diff(want, out, cmp.Comparer(func(a, b *big.Int) bool { return a.Cmp(b) == 0 })); diff != "" {
		t.Errorf("DecodeOutput mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeLog(t *testing.T) {
	ev, err := NewEvent("Deposit", []EventParam{{Type: "address", Indexed: true}, {Type: "uint256"}})
	require.NoError(t, err)
	assert.Equal(t, "Deposit(address,uint256)", ev.Sig)

	sender := common.HexToAddress("0x44fA8E6f47987339850636F88629646662444217")
	data, err := abi.Arguments{ev.Inputs[1]}.Pack(big.NewInt(1000))
	require.NoError(t, err)

	l := &types.Log{Topics: []common.Hash{ev.ID, common.BytesToHash(sender.Bytes())}, Data: data}
	decoded, err := DecodeLog(ev, l)
	require.NoError(t, err)
	assert.Equal(t, "Deposit", decoded.Event)
	assert.Equal(t, sender.Hex(), decoded.Values[0])
	assert.Equal(t, "1000", Stringify(decoded.Values[1]))
	assert.Equal(t, decoded.Values[1], decoded.Fields["arg1"])

	other := &types.Log{Topics: []common.Hash{common.HexToHash("0x01")}}
	_, err = DecodeLog(ev, other)
	assert.ErrorContains(t, err, "not a Deposit event")
}

func TestStringify(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{big.NewInt(-5), "-5"},
		{true, "true"},
		{false, "false"},
		{"text", "text"},
		{[]byte{0xca, 0xfe}, "0xcafe"},
		{[]any{big.NewInt(1), "a"}, "[1,a]"},
		{uint8(3), "3"},
		{[2]byte{1, 2}, "0x0102"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Stringify(tt.in))
	}
}

func TestFindMethod(t *testing.T) {
	transfer, _ := ParseSignature("transfer(address,uint256)")
	approve, _ := ParseSignature("approve(address,uint256)")
	contract := &abi.ABI{Methods: map[string]abi.Method{"transfer": *transfer, "approve": *approve}}

	m, err := FindMethod(contract, "approve")
	require.NoError(t, err)
	assert.Equal(t, "approve(address,uint256)", m.Sig)

	m, err = FindMethod(contract, "transfer(address,uint)")
	require.NoError(t, err)
	assert.Equal(t, "transfer(address,uint256)", m.Sig)

	_, err = FindMethod(contract, "mint")
	assert.ErrorContains(t, err, "not found")
}
