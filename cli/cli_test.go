package main

import (
	"bytes"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evmcrispr/evml/core/action"
	"github.com/evmcrispr/evml/core/ast"
	"github.com/evmcrispr/evml/core/chain"
	"github.com/evmcrispr/evml/runtime/parser"
)

const tokenAddr = "0x44fA8E6f47987339850636F88629646662444217"

var tokenHex = common.HexToAddress(tokenAddr).Hex()

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// execute runs the root command and returns stdout, stderr and the error.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append(args, "--no-color"))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestRunPrintsActions(t *testing.T) {
	file := writeFile(t, "script.evml", "raw "+tokenAddr+" 0x1234 --value 5\nsign \"hello\"\n")
	out, _, err := execute(t, "run", file)
	require.NoError(t, err)
	assert.Contains(t, out, "1. transaction to "+tokenHex+" value 5 data 0x1234\n")
	assert.Contains(t, out, "2. sign \"hello\"\n")
	assert.Contains(t, out, "fingerprint: blake2b:")
}

func TestRunJSON(t *testing.T) {
	file := writeFile(t, "script.evml", "raw "+tokenAddr+" 0x1234\n")
	out, _, err := execute(t, "run", file, "--json")
	require.NoError(t, err)

	actions, err := action.UnmarshalJSON([]byte(out))
	require.NoError(t, err)
	require.Len(t, actions, 1)
	tx, ok := actions[0].(*action.Transaction)
	require.True(t, ok)
	assert.Equal(t, common.HexToAddress(tokenAddr), tx.To)
	assert.Equal(t, []byte{0x12, 0x34}, tx.Data)
}

func TestRunFingerprintIsStable(t *testing.T) {
	a := writeFile(t, "a.evml", "set $x 2\nraw "+tokenAddr+" 0x1234 --value (1 + 1)\n")
	b := writeFile(t, "b.evml", "raw "+tokenAddr+" 0x1234 --value 2\n")
	outA, _, err := execute(t, "run", a)
	require.NoError(t, err)
	outB, _, err := execute(t, "run", b)
	require.NoError(t, err)
	assert.Equal(t, outA, outB)
}

func TestRunParseError(t *testing.T) {
	file := writeFile(t, "bad.evml", "set $a \"unterminated\n")
	_, _, err := execute(t, "run", file)
	require.Error(t, err)

	var buf bytes.Buffer
	FormatError(&buf, err)
	assert.Contains(t, buf.String(), "Error: ")
	assert.Contains(t, buf.String(), "unterminated string")
}

func TestRunPreloadsModules(t *testing.T) {
	config := writeFile(t, "evml.toml", "Modules = [\"erc20\"]\n")
	file := writeFile(t, "script.evml", "erc20:transfer "+tokenAddr+" @ZERO_ADDRESS 1\n")
	out, _, err := execute(t, "run", file, "--config", config)
	require.NoError(t, err)
	assert.Contains(t, out, "1. transaction to "+tokenHex+" data 0xa9059cbb")
}

func TestRunMissingFile(t *testing.T) {
	_, _, err := execute(t, "run", filepath.Join(t.TempDir(), "nope.evml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error opening file")
}

func TestCheck(t *testing.T) {
	clean := writeFile(t, "clean.evml", "set $a 1\nprint $a\n")
	out, _, err := execute(t, "check", clean)
	require.NoError(t, err)
	assert.Contains(t, out, "no problems found")

	bad := writeFile(t, "bad.evml", "sett $a 1\n")
	out, _, err = execute(t, "check", bad)
	require.Error(t, err)
	assert.Contains(t, out, bad+":1:0: error: command sett not found in module std (did you mean set?)")
	assert.Contains(t, err.Error(), "1 error(s)")
}

func TestCheckWarningsDoNotFail(t *testing.T) {
	file := writeFile(t, "warn.evml", "print $undefined\n")
	out, _, err := execute(t, "check", file)
	require.NoError(t, err)
	assert.Contains(t, out, "warning: $undefined is not defined")
}

func TestQueries(t *testing.T) {
	file := writeFile(t, "script.evml", "set $a 1\nloa\nprint $a\n")

	out, _, err := execute(t, "complete", file, "--line", "2", "--col", "3")
	require.NoError(t, err)
	assert.Contains(t, out, `"label": "load"`)

	out, _, err = execute(t, "hover", file, "--line", "3", "--col", "7")
	require.NoError(t, err)
	assert.Contains(t, out, `$a = 1`)

	out, _, err = execute(t, "signature", file, "--line", "1", "--col", "4")
	require.NoError(t, err)
	assert.Contains(t, out, `"label": "set <variable> <value> [--force]"`)

	out, _, err = execute(t, "symbols", file)
	require.NoError(t, err)
	assert.Contains(t, out, `"name": "$a"`)
}

func TestModules(t *testing.T) {
	out, _, err := execute(t, "modules")
	require.NoError(t, err)
	assert.Contains(t, out, "erc20")
	assert.Contains(t, out, "std")
}

func TestInvalidVerbosity(t *testing.T) {
	_, _, err := execute(t, "modules", "--verbosity", "loud")
	require.Error(t, err)
}

func TestLoadConfig(t *testing.T) {
	file := writeFile(t, "evml.toml", fmt.Sprintf("RPC = \"http://localhost:8545\"\nFrom = %q\nVerbosity = \"debug\"\nCacheSize = 16\n", tokenAddr))
	cfg := defaultConfig
	require.NoError(t, loadConfig(file, &cfg))
	assert.Equal(t, Config{RPC: "http://localhost:8545", From: tokenAddr, Verbosity: "debug", CacheSize: 16}, cfg)
}

func TestLoadConfigErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"unknown field", "Endpoint = \"x\"\n", "field 'Endpoint' is not defined"},
		{"bad address", "From = \"alice\"\n", ""},
		{"bad verbosity", "Verbosity = \"loud\"\n", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig
			err := loadConfig(writeFile(t, "evml.toml", tt.content), &cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestFormatErrorHints(t *testing.T) {
	var buf bytes.Buffer
	FormatError(&buf, fmt.Errorf("@get: %w", chain.ErrNoChain))
	assert.Equal(t, "Error: @get: no chain client configured\nHint: pass --rpc or set RPC in the config file\n", buf.String())

	buf.Reset()
	FormatError(&buf, &CLIError{Message: "invalid configuration", Details: "From: bad"})
	assert.Equal(t, "Error: invalid configuration\n\nFrom: bad\n", buf.String())

	buf.Reset()
	FormatError(&buf, parser.ErrorList{{Position: ast.Position{Line: 2, Col: 4}, Message: "missing value"}})
	assert.Contains(t, buf.String(), "Error: 2:4: missing value")
}

func TestDisplayActions(t *testing.T) {
	setColor(false)
	from := common.HexToAddress("0x0000000000000000000000000000000000000001")
	actions := []action.Action{
		&action.Batch{Transactions: []*action.Transaction{
			{To: common.HexToAddress(tokenAddr), From: &from, Gas: 21000},
			{To: common.HexToAddress(tokenAddr), Value: big.NewInt(7)},
		}},
		&action.SwitchNetwork{ChainID: big.NewInt(100)},
		&action.Terminal{},
	}
	var buf bytes.Buffer
	DisplayActions(&buf, actions, "blake2b:00")
	want := "1. batch of 2 transactions\n" +
		"   1.1. transaction to " + tokenHex + " from " + from.Hex() + " gas 21000\n" +
		"   1.2. transaction to " + tokenHex + " value 7\n" +
		"2. switch-network to chain 100\n" +
		"3. halt\n" +
		"fingerprint: blake2b:00\n"
	assert.Equal(t, want, buf.String())
}
