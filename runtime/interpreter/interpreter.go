// Package interpreter evaluates evml programs.
//
// Statements run strictly in source order and their actions are flattened in
// that order. Commands and helpers are dispatched to the module that owns
// them; the interpreter itself only knows literals, variables, arrays,
// arithmetic, contract calls and blocks. Execution is fail-fast: the first
// error aborts the run and no actions are returned.
package interpreter

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/log"

	"github.com/evmcrispr/evml/core/action"
	"github.com/evmcrispr/evml/core/ast"
	"github.com/evmcrispr/evml/core/bindings"
	"github.com/evmcrispr/evml/core/chain"
	"github.com/evmcrispr/evml/core/errors"
	"github.com/evmcrispr/evml/core/invariant"
	"github.com/evmcrispr/evml/core/module"
	"github.com/evmcrispr/evml/runtime/parser"
)

// Interpreter runs one program. It is not safe for concurrent runs.
type Interpreter struct {
	cfg    Config
	store  *bindings.Store
	log    log.Logger
	std    *module.Module
	blocks []string // module context of each enclosing block, "" for none

	collect int // depth of enclosing blocks that collect their actions
	halted  bool

	// actions already handed to the callback by a nested block
	dispatched map[action.Action]struct{}
}

// New creates an interpreter with the default module loaded in the program
// scope.
func New(cfg Config) (*Interpreter, error) {
	cfg = cfg.withDefaults()
	std, err := cfg.Registry.New(cfg.DefaultModule)
	if err != nil {
		return nil, fmt.Errorf("default module: %w", err)
	}

	in := &Interpreter{
		cfg:        cfg,
		store:      bindings.New(),
		log:        cfg.Logger,
		std:        std,
		dispatched: make(map[action.Action]struct{}),
	}
	if err := in.store.SetBinding(std.Name, std, bindings.Module, true); err != nil {
		return nil, err
	}
	return in, nil
}

// Run parses and executes source.
func Run(ctx context.Context, source []byte, cfg Config) ([]action.Action, error) {
	tree, err := parser.Parse(source)
	if err != nil {
		return nil, err
	}
	if err := tree.Err(); err != nil {
		return nil, err
	}
	in, err := New(cfg)
	if err != nil {
		return nil, err
	}
	return in.Run(ctx, tree.Program)
}

// Run executes every statement of p and returns the actions in order.
func (in *Interpreter) Run(ctx context.Context, p *ast.Program) ([]action.Action, error) {
	actions, err := in.runCommands(ctx, p.Body)
	if err != nil {
		return nil, err
	}
	return actions, nil
}

func (in *Interpreter) runCommands(ctx context.Context, cmds []*ast.CommandExpression) ([]action.Action, error) {
	var actions []action.Action
	for _, c := range cmds {
		if in.halted {
			break
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out, err := in.runCommand(ctx, c)
		if err != nil {
			return nil, err
		}
		actions = append(actions, out...)
	}
	return actions, nil
}

func (in *Interpreter) runCommand(ctx context.Context, c *ast.CommandExpression) ([]action.Action, error) {
	m, cmd, err := in.resolveCommand(c)
	if err != nil {
		return nil, err
	}
	in.log.Debug("Running command", "module", m.Name, "command", c.Name, "line", c.Loc.Start.Line)

	if len(c.Captures) > 0 && (in.cfg.ActionCallback == nil || in.collect > 0) {
		return nil, errors.NewCommandError(c, nil, "event captures need each transaction to be executed as it is produced")
	}

	actions, err := cmd.Run(ctx, m, c, in)
	if err != nil {
		return nil, errors.Wrap(c, err)
	}
	if in.collect == 0 && in.cfg.ActionCallback != nil {
		if err := in.dispatch(ctx, c, actions); err != nil {
			return nil, errors.Wrap(c, err)
		}
	}
	return actions, nil
}

// Halt stops execution after the current command.
func (in *Interpreter) Halt() { in.halted = true }

// Halted reports whether the program stopped early.
func (in *Interpreter) Halted() bool { return in.halted }

// Bindings returns the interpreter's store.
func (in *Interpreter) Bindings() *bindings.Store { return in.store }

// Clients returns the external collaborators.
func (in *Interpreter) Clients() *chain.Clients { return in.cfg.Clients }

// Logger returns the interpreter's logger.
func (in *Interpreter) Logger() log.Logger { return in.log }

// RunBlock runs b in a new scope.
func (in *Interpreter) RunBlock(ctx context.Context, b *ast.BlockExpression, scope module.BlockScope) ([]action.Action, error) {
	invariant.NotNil(b, "block")
	in.store.EnterScope(scope.Label)
	in.blocks = append(in.blocks, scope.Module)
	if scope.Collect {
		in.collect++
	}
	defer func() {
		if scope.Collect {
			in.collect--
		}
		in.blocks = in.blocks[:len(in.blocks)-1]
		// Scopes entered here are always balanced.
		_ = in.store.ExitScope()
	}()

	if scope.Setup != nil {
		if err := scope.Setup(in.store); err != nil {
			return nil, err
		}
	}
	return in.runCommands(ctx, b.Body)
}

var _ module.Interpreter = (*Interpreter)(nil)
