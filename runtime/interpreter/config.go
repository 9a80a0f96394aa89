package interpreter

import (
	"context"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/log"

	"github.com/evmcrispr/evml/core/action"
	"github.com/evmcrispr/evml/core/chain"
	"github.com/evmcrispr/evml/core/module"
)

// DefaultModule is the module unprefixed commands resolve against outside
// any module block.
const DefaultModule = "std"

// ActionCallback receives each action as soon as its command completes. A
// non-nil receipt feeds the command's event captures.
type ActionCallback func(ctx context.Context, a action.Action) (*types.Receipt, error)

// Config configures an Interpreter.
type Config struct {
	Registry       *module.Registry // defaults to module.Global()
	Clients        *chain.Clients
	DefaultModule  string // defaults to DefaultModule
	ActionCallback ActionCallback
	Logger         log.Logger // defaults to log.Root()
	ParallelArgs   bool       // evaluate independent arguments concurrently
}

func (c Config) withDefaults() Config {
	if c.Registry == nil {
		c.Registry = module.Global()
	}
	if c.DefaultModule == "" {
		c.DefaultModule = DefaultModule
	}
	if c.Logger == nil {
		c.Logger = log.Root()
	}
	if c.Clients == nil {
		c.Clients = &chain.Clients{}
	}
	return c
}
