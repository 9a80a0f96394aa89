package capture

import (
	"context"
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evmcrispr/evml/core/ast"
	"github.com/evmcrispr/evml/core/bindings"
	"github.com/evmcrispr/evml/core/evm"
	"github.com/evmcrispr/evml/runtime/parser"
)

var (
	vault = common.HexToAddress("0x44fA8E6f47987339850636F88629646662444217")
	other = common.HexToAddress("0x0000000000000000000000000000000000000009")
)

type staticEval map[string]any

func (e staticEval) Eval(_ context.Context, n ast.Node) (any, error) {
	if v, ok := n.(*ast.VariableIdentifier); ok {
		return e[v.Value], nil
	}
	if a, ok := n.(*ast.AddressLiteral); ok {
		return a.Value, nil
	}
	return n.String(), nil
}

func depositLog(t *testing.T, emitter common.Address, sender common.Address, amount int64) *types.Log {
	t.Helper()
	ev, err := evm.NewEvent("Deposit", []evm.EventParam{{Type: "address", Indexed: true}, {Type: "uint256"}})
	require.NoError(t, err)
	data, err := abi.Arguments{ev.Inputs[1]}.Pack(big.NewInt(amount))
	require.NoError(t, err)
	return &types.Log{Address: emitter, Topics: []common.Hash{ev.ID, common.BytesToHash(sender.Bytes())}, Data: data}
}

func threeDeposits(t *testing.T) *types.Receipt {
	return &types.Receipt{Logs: []*types.Log{
		depositLog(t, vault, common.HexToAddress("0x01"), 100),
		depositLog(t, other, common.HexToAddress("0x02"), 200),
		depositLog(t, vault, common.HexToAddress("0x03"), 300),
	}}
}

func captures(t *testing.T, line string) []*ast.EventCapture {
	t.Helper()
	tree, err := parser.ParseString("exec $vault deposit() " + line)
	require.NoError(t, err)
	require.Empty(t, tree.Errors)
	require.Len(t, tree.Program.Body, 1)
	return tree.Program.Body[0].Captures
}

func TestResolveInlineEventDefaultOccurrence(t *testing.T) {
	store := bindings.New()
	err := Resolve(context.Background(), threeDeposits(t), nil,
		captures(t, "-> Deposit(address indexed,uint256):1 $amount"), store, staticEval{})
	require.NoError(t, err)

	v, ok := store.GetBindingValue("$amount", bindings.User)
	require.True(t, ok)
	assert.Equal(t, "100", v)
}

func TestResolveInlineNamedFields(t *testing.T) {
	store := bindings.New()
	err := Resolve(context.Background(), threeDeposits(t), nil,
		captures(t, "-> Deposit(address indexed sender,uint256 amount)#1 :amount $amount :sender $sender"), store, staticEval{})
	require.NoError(t, err)

	amount, _ := store.GetBindingValue("$amount", bindings.User)
	sender, _ := store.GetBindingValue("$sender", bindings.User)
	assert.Equal(t, "200", amount)
	assert.Equal(t, common.HexToAddress("0x02").Hex(), sender)
}

func TestResolveOccurrenceFilterAndPositional(t *testing.T) {
	store := bindings.New()
	err := Resolve(context.Background(), threeDeposits(t), nil,
		captures(t, "-> $vault:Deposit(address indexed,uint256)#1 $sender :1 $amount"), store,
		staticEval{"$vault": vault.Hex()})
	require.NoError(t, err)

	sender, _ := store.GetBindingValue("$sender", bindings.User)
	amount, _ := store.GetBindingValue("$amount", bindings.User)
	assert.Equal(t, common.HexToAddress("0x03").Hex(), sender)
	assert.Equal(t, "300", amount)
}

func TestResolveWithContractABI(t *testing.T) {
	contract, err := abi.JSON(strings.NewReader(`[{"type":"event","name":"Deposit","inputs":[
		{"name":"sender","type":"address","indexed":true},{"name":"amount","type":"uint256","indexed":false}]}]`))
	require.NoError(t, err)

	store := bindings.New()
	err = Resolve(context.Background(), threeDeposits(t), &contract,
		captures(t, "-> Deposit#2 :amount $last"), store, staticEval{})
	require.NoError(t, err)

	v, _ := store.GetBindingValue("$last", bindings.User)
	assert.Equal(t, "300", v)
}

func TestResolveRecaptureOverrides(t *testing.T) {
	store := bindings.New()
	clause := captures(t, "-> Deposit(address indexed,uint256):1 $amount")
	require.NoError(t, Resolve(context.Background(), threeDeposits(t), nil, clause, store, staticEval{}))

	receipt := &types.Receipt{Logs: []*types.Log{depositLog(t, vault, vault, 7)}}
	require.NoError(t, Resolve(context.Background(), receipt, nil, clause, store, staticEval{}))

	v, _ := store.GetBindingValue("$amount", bindings.User)
	assert.Equal(t, "7", v)
}

func TestResolveErrors(t *testing.T) {
	tests := []struct {
		name   string
		clause string
		want   string
	}{
		{"missing occurrence", "-> Deposit(address indexed,uint256)#5 $x", "occurrence 5 not found, the transaction emitted 3"},
		{"no abi", "-> Deposit $x", "no ABI to decode event Deposit"},
		{"index out of range", "-> Deposit(address indexed,uint256):4 $x", "index 4 out of range"},
		{"unknown field", "-> Deposit(address indexed,uint256):owner $x", "event Deposit has no field owner"},
		{"no matching event", "-> Withdraw(uint256) $x", "occurrence 0 not found, the transaction emitted 0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Resolve(context.Background(), threeDeposits(t), nil, captures(t, tt.clause), bindings.New(), staticEval{})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
