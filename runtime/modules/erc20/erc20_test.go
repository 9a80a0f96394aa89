package erc20

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evmcrispr/evml/core/ast"
	"github.com/evmcrispr/evml/core/bindings"
	"github.com/evmcrispr/evml/core/module"
	"github.com/evmcrispr/evml/runtime/parser"
)

func TestDescriptor(t *testing.T) {
	r := module.NewRegistry()
	require.NoError(t, r.Register(Descriptor()))
	m, err := r.New(Name)
	require.NoError(t, err)

	assert.Equal(t, []string{"approve", "transfer", "using"}, m.CommandNames())
	assert.Equal(t, []string{"balance", "decimals"}, m.HelperNames())
	assert.True(t, m.Commands["using"].OpensContext)
}

func TestSelectors(t *testing.T) {
	assert.Equal(t, "a9059cbb", common.Bytes2Hex(transferSig.ID))
	assert.Equal(t, "095ea7b3", common.Bytes2Hex(approveSig.ID))
	assert.Equal(t, "70a08231", common.Bytes2Hex(balanceOfSig.ID))
}

func TestUsingEager(t *testing.T) {
	tree, err := parser.ParseString("erc20:using 0x44fa8e6f47987339850636f88629646662444217 (\n  transfer $a 1\n)")
	require.NoError(t, err)
	require.Empty(t, tree.Errors)

	apply, err := New().Commands["using"].Eager(context.Background(), tree.Program.Body[0], bindings.New(), nil, ast.Position{})
	require.NoError(t, err)
	require.NotNil(t, apply)

	s := bindings.New()
	apply(s)
	token, ok := s.GetBindingValue(TokenBinding, bindings.Addr)
	require.True(t, ok)
	assert.Equal(t, common.HexToAddress("0x44fa8e6f47987339850636f88629646662444217").Hex(), token)

	tree, err = parser.ParseString("erc20:using $token (\n)")
	require.NoError(t, err)
	apply, err = New().Commands["using"].Eager(context.Background(), tree.Program.Body[0], bindings.New(), nil, ast.Position{})
	require.NoError(t, err)
	assert.Nil(t, apply)
}

func TestTransferCompletions(t *testing.T) {
	s := bindings.New()
	require.NoError(t, s.SetBinding("$alice", "0x01", bindings.User, false))
	require.NoError(t, s.SetBinding(TokenBinding, "0x02", bindings.Addr, false))

	got := New().Commands["transfer"].Completions(module.CompletionRequest{ArgIndex: 0, Bindings: s})
	assert.ElementsMatch(t, []string{"$alice", TokenBinding}, got)
	assert.Nil(t, New().Commands["transfer"].Completions(module.CompletionRequest{}))
}
