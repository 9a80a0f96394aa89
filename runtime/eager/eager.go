// Package eager reconstructs the bindings visible at a cursor position
// without executing anything on chain.
//
// The engine re-runs the eager bodies of the commands that precede the cursor
// (and of the command under it) against a throwaway bindings store. Loaded
// module instances and fetched data are memoised in a cache store that lives
// as long as the engine, so repeated requests while the user types do not
// refetch. Every failure is swallowed: a broken script yields fewer bindings,
// never an error.
package eager

import (
	"context"
	"fmt"
	"strings"

	mapset "github.com/deckarep/golang-set"
	"github.com/ethereum/go-ethereum/log"
	"golang.org/x/sync/errgroup"

	"github.com/evmcrispr/evml/core/ast"
	"github.com/evmcrispr/evml/core/bindings"
	"github.com/evmcrispr/evml/core/chain"
	"github.com/evmcrispr/evml/core/module"
	"github.com/evmcrispr/evml/runtime/parser"
)

// DefaultModule is the module unprefixed commands resolve against.
const DefaultModule = "std"

// Config configures an Engine.
type Config struct {
	Registry      *module.Registry // defaults to module.Global()
	Clients       *chain.Clients   // may be empty; bodies degrade without a chain
	DefaultModule string
	Logger        log.Logger
	CacheSize     int // cache store size, bindings.DefaultCacheSize when zero
}

// Engine runs eager analysis. It is safe for concurrent use.
type Engine struct {
	registry      *module.Registry
	clients       *chain.Clients
	defaultModule string
	log           log.Logger
	cache         *bindings.Store
}

// New creates an engine.
func New(cfg Config) *Engine {
	if cfg.Registry == nil {
		cfg.Registry = module.Global()
	}
	if cfg.Clients == nil {
		cfg.Clients = &chain.Clients{}
	}
	if cfg.DefaultModule == "" {
		cfg.DefaultModule = DefaultModule
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Root()
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = bindings.DefaultCacheSize
	}
	return &Engine{
		registry:      cfg.Registry,
		clients:       cfg.Clients,
		defaultModule: cfg.DefaultModule,
		log:           cfg.Logger,
		cache:         bindings.NewWithCacheSize(cfg.CacheSize),
	}
}

// Registry returns the registry modules are loaded from.
func (e *Engine) Registry() *module.Registry { return e.registry }

// Result is what the engine knows at a cursor.
type Result struct {
	Program  *ast.Program           // the whole script, parsed with block recovery
	Errors   []parser.ParseError    // recoverable errors of that parse
	Command  *ast.CommandExpression // command on the cursor line, nil when none parses
	Bindings *bindings.Store        // bindings reconstructed for the cursor
	Context  *module.Module         // module context of the cursor line
	Default  *module.Module
}

// Module resolves a loaded module by name or alias.
func (r *Result) Module(name string) (*module.Module, bool) {
	return moduleByName(r.Bindings, name)
}

// Modules lists the loaded modules, default module included.
func (r *Result) Modules() []*module.Module {
	return loadedModules(r.Bindings)
}

// Resolve finds the module and command c refers to at the cursor.
func (r *Result) Resolve(c *ast.CommandExpression) (*module.Module, *module.Command, bool) {
	return resolve(r.Bindings, r.Context, r.Default, c)
}

// Analyze reconstructs the bindings visible at pos. Lines are 1-based.
func (e *Engine) Analyze(ctx context.Context, text string, pos ast.Position) *Result {
	res := &Result{Bindings: bindings.New()}

	tree, _ := safeParse([]byte(text), parser.WithRecoverBlocks())
	if tree != nil && tree.Program != nil {
		res.Program = tree.Program
		res.Errors = tree.Errors
	} else {
		res.Program = ast.NewProgram(nil)
	}
	res.Command = CursorCommand(text, pos.Line)

	std, err := e.Instance(e.defaultModule)
	if err != nil {
		e.log.Trace("Eager default module unavailable", "module", e.defaultModule, "err", err)
		return res
	}
	res.Default = std
	res.Context = std
	_ = res.Bindings.SetBinding(std.Name, std, bindings.Module, true)

	line := pos.Line
	prog := res.Program

	// Loads and sets are applied in source order: later commands resolve
	// against the modules they load and read the variables they set.
	for _, c := range prog.CommandsUntilLine(line, []string{"load"}) {
		e.apply(ctx, res, c, pos)
	}
	for _, c := range prog.CommandsUntilLine(line, []string{"set"}) {
		e.apply(ctx, res, c, pos)
	}

	res.Context = e.contextAt(res, prog.BlockCommandsAtLine(line))

	var rest []*ast.CommandExpression
	for _, c := range prog.CommandsUntilLine(line, nil) {
		if c.Module == "" && (c.Name == "load" || c.Name == "set") {
			continue
		}
		rest = append(rest, c)
	}
	if res.Command != nil {
		rest = append(rest, res.Command)
	}
	e.runRest(ctx, res, rest, pos)
	return res
}

// runRest samples each distinct command once, most recent first, running the
// bodies concurrently. The appliers are committed afterwards, outermost
// first, so a later command's bindings win.
func (e *Engine) runRest(ctx context.Context, res *Result, cmds []*ast.CommandExpression, pos ast.Position) {
	type job struct {
		cmd  *ast.CommandExpression
		body *module.Command
	}
	sampled := mapset.NewSet()
	var jobs []job
	for i := len(cmds) - 1; i >= 0; i-- {
		c := cmds[i]
		_, cmd, ok := res.Resolve(c)
		if !ok || cmd.Eager == nil {
			continue
		}
		if !sampled.Add(c.FullName()) {
			continue
		}
		jobs = append(jobs, job{cmd: c, body: cmd})
	}

	appliers := make([]module.Applier, len(jobs))
	var g errgroup.Group
	for i, j := range jobs {
		i, j := i, j
		g.Go(func() error {
			appliers[i] = e.run(ctx, j.body, j.cmd, pos)
			return nil
		})
	}
	_ = g.Wait()

	for i := len(appliers) - 1; i >= 0; i-- {
		e.commit(res.Bindings, appliers[i], jobs[i].cmd)
	}
}

// apply runs the eager body of c and commits its bindings immediately.
func (e *Engine) apply(ctx context.Context, res *Result, c *ast.CommandExpression, pos ast.Position) {
	_, cmd, ok := res.Resolve(c)
	if !ok || cmd.Eager == nil {
		return
	}
	e.commit(res.Bindings, e.run(ctx, cmd, c, pos), c)
}

// run calls an eager body, recovering from panics.
func (e *Engine) run(ctx context.Context, cmd *module.Command, c *ast.CommandExpression, pos ast.Position) (applier module.Applier) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Trace("Eager body panicked", "command", c.FullName(), "line", c.Loc.Start.Line, "panic", r)
			applier = nil
		}
	}()
	applier, err := cmd.Eager(ctx, c, e.cache, e.clients, pos)
	if err != nil {
		e.log.Trace("Eager body failed", "command", c.FullName(), "line", c.Loc.Start.Line, "err", err)
		return nil
	}
	return applier
}

func (e *Engine) commit(s *bindings.Store, applier module.Applier, c *ast.CommandExpression) {
	if applier == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			e.log.Trace("Eager applier panicked", "command", c.FullName(), "panic", r)
		}
	}()
	applier(s)
}

// contextAt returns the module of the innermost enclosing block command that
// opens a module context.
func (e *Engine) contextAt(res *Result, blocks []*ast.CommandExpression) *module.Module {
	for i := len(blocks) - 1; i >= 0; i-- {
		m, cmd, ok := res.Resolve(blocks[i])
		if ok && cmd.OpensContext {
			return m
		}
	}
	return res.Default
}

// Instance returns the memoised instance of a registered module.
func (e *Engine) Instance(name string) (*module.Module, error) {
	key := "module:" + name
	if v, ok := e.cache.GetBindingValue(key, bindings.Cache); ok {
		return v.(*module.Module), nil
	}
	m, err := e.registry.New(name)
	if err != nil {
		return nil, err
	}
	_ = e.cache.SetBinding(key, m, bindings.Cache, true)
	return m, nil
}

// CursorCommand re-parses line of text on its own and returns its command.
// A trailing '(' that opens a block not yet closed is dropped first.
func CursorCommand(text string, line int) *ast.CommandExpression {
	lines := strings.Split(text, "\n")
	if line < 1 || line > len(lines) {
		return nil
	}
	src := trimOpenBlock(lines[line-1])
	if strings.TrimSpace(src) == "" {
		return nil
	}
	tree, err := safeParse([]byte(src), parser.WithStartLine(line), parser.WithRecoverBlocks())
	if err != nil || tree == nil || tree.Program == nil || len(tree.Program.Body) == 0 {
		return nil
	}
	return tree.Program.Body[0]
}

func trimOpenBlock(s string) string {
	t := strings.TrimRight(s, " \t\r")
	if strings.HasSuffix(t, "(") {
		return strings.TrimRight(t[:len(t)-1], " \t")
	}
	return s
}

// safeParse parses src and turns a parser panic into an error.
func safeParse(src []byte, opts ...parser.ParserOpt) (tree *parser.ParseTree, err error) {
	defer func() {
		if r := recover(); r != nil {
			tree, err = nil, fmt.Errorf("parser panic: %v", r)
		}
	}()
	return parser.Parse(src, opts...)
}

func moduleByName(s *bindings.Store, name string) (*module.Module, bool) {
	if target, ok := s.GetBindingValue(name, bindings.Alias); ok {
		if n, ok := target.(string); ok {
			name = n
		}
	}
	v, ok := s.GetBindingValue(name, bindings.Module)
	if !ok {
		return nil, false
	}
	m, ok := v.(*module.Module)
	return m, ok
}

func loadedModules(s *bindings.Store) []*module.Module {
	var out []*module.Module
	for _, b := range s.AllBindings(bindings.Filter{Spaces: []bindings.Space{bindings.Module}}) {
		if m, ok := b.Value.(*module.Module); ok {
			out = append(out, m)
		}
	}
	return out
}

// resolve mirrors the interpreter: explicit prefix, then the context module,
// then the default module.
func resolve(s *bindings.Store, context, std *module.Module, c *ast.CommandExpression) (*module.Module, *module.Command, bool) {
	m := context
	if c.Module != "" {
		var ok bool
		if m, ok = moduleByName(s, c.Module); !ok {
			return nil, nil, false
		}
	}
	if m != nil {
		if cmd, ok := m.Commands[c.Name]; ok {
			return m, cmd, true
		}
	}
	if std != nil {
		if cmd, ok := std.Commands[c.Name]; ok {
			return std, cmd, true
		}
	}
	return nil, nil, false
}
