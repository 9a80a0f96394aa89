// Package std is the default evml module: variables, module loading, raw
// contract interaction and a handful of general purpose helpers.
package std

import (
	"math/big"

	"github.com/evmcrispr/evml/core/module"
)

// Name and Version identify the module in the registry.
const (
	Name    = "std"
	Version = "v1.0.0"
)

func init() {
	module.Register(Descriptor())
}

// Descriptor returns the registry entry of the module.
func Descriptor() module.Descriptor {
	return module.Descriptor{
		Name:    Name,
		Version: Version,
		Summary: "Core commands and helpers available in every script",
		New:     New,
	}
}

// MaxUint256 is 2^256 - 1.
var MaxUint256 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

// New creates a module instance.
func New() *module.Module {
	m := &module.Module{Name: Name}
	m.Commands = map[string]*module.Command{
		"set":    setCommand(),
		"load":   loadCommand(m),
		"exec":   execCommand(),
		"raw":    rawCommand(),
		"print":  printCommand(),
		"switch": switchCommand(),
		"sign":   signCommand(),
		"batch":  batchCommand(),
		"halt":   haltCommand(),
	}
	m.Helpers = map[string]*module.Helper{
		"me":           meHelper(),
		"id":           idHelper(),
		"namehash":     namehashHelper(),
		"date":         dateHelper(),
		"get":          getHelper(),
		"token.amount": tokenAmountHelper(),
	}
	m.Constants = map[string]any{
		"ZERO_ADDRESS": "0x0000000000000000000000000000000000000000",
		"MAX_UINT256":  MaxUint256,
	}
	return m
}
