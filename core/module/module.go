// Package module defines the extension protocol of evml.
//
// A Module is a named bundle of commands, helpers and constants. Every
// command has a real-execution body that produces actions, an optional
// completion provider and an optional eager body. The eager body runs during
// editor queries: it must not touch the chain except through cached reads, and
// it returns an Applier that writes derived bindings into a speculative store
// instead of mutating anything itself.
package module

import (
	"context"
	"sort"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"

	"github.com/evmcrispr/evml/core/action"
	"github.com/evmcrispr/evml/core/ast"
	"github.com/evmcrispr/evml/core/bindings"
	"github.com/evmcrispr/evml/core/chain"
	"github.com/evmcrispr/evml/core/types"
)

// Module is one live module instance. Instances are created per run by the
// Registry and must not be shared between runs.
type Module struct {
	Name      string
	Version   string
	Summary   string
	Alias     string // set by load ... as alias
	Commands  map[string]*Command
	Helpers   map[string]*Helper
	Constants map[string]any

	registry *Registry
}

// Registry returns the registry that created m.
func (m *Module) Registry() *Registry {
	if m.registry == nil {
		return global
	}
	return m.registry
}

// BindingName is the name the module is bound under: its alias, or its name.
func (m *Module) BindingName() string {
	if m.Alias != "" {
		return m.Alias
	}
	return m.Name
}

// CommandNames lists command names in sorted order.
func (m *Module) CommandNames() []string { return sortedKeys(m.Commands) }

// HelperNames lists helper and constant names in sorted order.
func (m *Module) HelperNames() []string {
	names := sortedKeys(m.Helpers)
	for name := range m.Constants {
		if _, dup := m.Helpers[name]; !dup {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ArgSpec documents one positional parameter for hover and signature help.
type ArgSpec struct {
	Name     string
	Type     string
	Optional bool
	Rest     bool // accepts any number of trailing values
}

// OptSpec declares a --name option and the schema its value must satisfy.
type OptSpec struct {
	Name    string
	Summary string
	Schema  types.JSONSchema
}

// Applier writes bindings derived by an eager body into a speculative store.
type Applier func(s *bindings.Store)

// CompletionRequest is what a completion provider sees.
type CompletionRequest struct {
	ArgIndex int
	Args     []ast.Node // arguments parsed so far
	Bindings *bindings.Store
	Pos      ast.Position
}

// Command is one module command.
type Command struct {
	Name    string
	Summary string
	Args    []ArgSpec
	Opts    []OptSpec

	// Run executes the command and returns its actions.
	Run func(ctx context.Context, m *Module, c *ast.CommandExpression, in Interpreter) ([]action.Action, error)

	// Completions proposes candidate values for the argument at ArgIndex.
	Completions func(req CompletionRequest) []string

	// Eager derives bindings for editor queries. cache persists across
	// queries and memoises anything fetched through clients.
	Eager func(ctx context.Context, c *ast.CommandExpression, cache *bindings.Store, clients *chain.Clients, pos ast.Position) (Applier, error)

	// OpensContext marks block commands whose block runs with this module
	// as the default command context.
	OpensContext bool
}

// Helper is one module helper.
type Helper struct {
	Name    string
	Summary string
	Args    []ArgSpec
	Arity   Arity
	Returns string
	Run     func(ctx context.Context, m *Module, h *ast.HelperFunctionExpression, args []any, in Interpreter) (any, error)
}

// BlockScope configures how a command's block runs.
type BlockScope struct {
	Label string
	// Module is the module unprefixed commands resolve against inside the block.
	Module string
	// Setup runs after the block scope is entered, before its first command.
	Setup func(s *bindings.Store) error
	// Collect keeps the block's actions from being dispatched one by one;
	// the enclosing command returns them.
	Collect bool
}

// Interpreter is the callback surface command and helper bodies use.
type Interpreter interface {
	Eval(ctx context.Context, n ast.Node) (any, error)
	EvalArgs(ctx context.Context, nodes []ast.Node) ([]any, error)
	EvalOpt(ctx context.Context, c *ast.CommandExpression, name string) (any, bool, error)
	RunBlock(ctx context.Context, b *ast.BlockExpression, scope BlockScope) ([]action.Action, error)
	LoadModule(name, alias string) (*Module, error)
	ContractABI(ctx context.Context, address common.Address) (*abi.ABI, error)
	ResolveMethod(ctx context.Context, address common.Address, nameOrSig string) (*abi.Method, error)
	Bindings() *bindings.Store
	Clients() *chain.Clients
	Logger() log.Logger
	Halt()
}
