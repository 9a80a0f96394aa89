package langsvc

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/evmcrispr/evml/core/ast"
	"github.com/evmcrispr/evml/core/errors"
	"github.com/evmcrispr/evml/core/module"
	"github.com/evmcrispr/evml/runtime/eager"
	"github.com/evmcrispr/evml/runtime/parser"
)

// Severity of a diagnostic.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Diagnostic is one problem found in a script.
type Diagnostic struct {
	Line     int      `json:"line"`
	Col      int      `json:"col"`
	EndLine  int      `json:"endLine"`
	EndCol   int      `json:"endCol"`
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
}

// Diagnostics reports parse errors and the problems that can be found
// without running the script: unknown modules, commands and helpers, helper
// collisions, argument counts, unknown options and undefined variables.
func (s *Service) Diagnostics(ctx context.Context, text string) (diags []Diagnostic) {
	defer s.guard("diagnostics")

	tree, err := parser.ParseString(text, parser.WithRecoverBlocks())
	if err != nil {
		if pe, ok := err.(parser.ParseError); ok {
			diags = append(diags, parseDiagnostic(pe))
		} else {
			diags = append(diags, Diagnostic{Line: 1, EndLine: 1, Message: err.Error(), Severity: SeverityError})
		}
	}
	if tree == nil || tree.Program == nil {
		return diags
	}
	for _, pe := range tree.Errors {
		diags = append(diags, parseDiagnostic(pe))
	}

	std, err := s.engine.Instance(eager.DefaultModule)
	if err != nil {
		return diags
	}
	ch := &checker{svc: s, std: std}
	ch.push(std)
	ch.bindModule(std.Name, "", std)
	ch.commands(tree.Program.Body)
	diags = append(diags, ch.diags...)

	sort.SliceStable(diags, func(i, j int) bool {
		a, b := diags[i], diags[j]
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		return a.Col < b.Col
	})
	return diags
}

func parseDiagnostic(pe parser.ParseError) Diagnostic {
	msg := pe.Message
	if pe.Context != "" {
		msg += " in " + pe.Context
	}
	if pe.Suggestion != "" {
		msg += " (" + pe.Suggestion + ")"
	}
	return Diagnostic{
		Line: pe.Position.Line, Col: pe.Position.Col,
		EndLine: pe.Position.Line, EndCol: pe.Position.Col + 1,
		Message: msg, Severity: SeverityError,
	}
}

type scope struct {
	context *module.Module
	modules map[string]*module.Module // by name
	aliases map[string]string
	vars    map[string]bool
}

// checker walks the program tracking what each scope loads and defines.
type checker struct {
	svc    *Service
	std    *module.Module
	scopes []*scope
	diags  []Diagnostic
}

func (ch *checker) push(mod *module.Module) {
	ch.scopes = append(ch.scopes, &scope{
		context: mod,
		modules: map[string]*module.Module{},
		aliases: map[string]string{},
		vars:    map[string]bool{},
	})
}

func (ch *checker) pop() { ch.scopes = ch.scopes[:len(ch.scopes)-1] }

func (ch *checker) top() *scope { return ch.scopes[len(ch.scopes)-1] }

func (ch *checker) bindModule(name, alias string, m *module.Module) {
	sc := ch.top()
	sc.modules[name] = m
	if alias != "" {
		sc.aliases[alias] = name
	}
}

func (ch *checker) module(name string) (*module.Module, bool) {
	for i := len(ch.scopes) - 1; i >= 0; i-- {
		if target, ok := ch.scopes[i].aliases[name]; ok {
			name = target
			break
		}
	}
	for i := len(ch.scopes) - 1; i >= 0; i-- {
		if m, ok := ch.scopes[i].modules[name]; ok {
			return m, true
		}
	}
	return nil, false
}

// visible lists the loaded modules, innermost scope first, without repeats.
func (ch *checker) visible() []*module.Module {
	seen := map[string]bool{}
	var out []*module.Module
	for i := len(ch.scopes) - 1; i >= 0; i-- {
		names := make([]string, 0, len(ch.scopes[i].modules))
		for name := range ch.scopes[i].modules {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			if !seen[name] {
				seen[name] = true
				out = append(out, ch.scopes[i].modules[name])
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (ch *checker) defined(name string) bool {
	for i := len(ch.scopes) - 1; i >= 0; i-- {
		if ch.scopes[i].vars[name] {
			return true
		}
	}
	return false
}

func (ch *checker) report(loc ast.Loc, sev Severity, format string, args ...interface{}) {
	end := loc.End
	if end.Line == 0 || end.Line > loc.Start.Line {
		end = ast.Position{Line: loc.Start.Line, Col: loc.Start.Col + 1}
	}
	ch.diags = append(ch.diags, Diagnostic{
		Line: loc.Start.Line, Col: loc.Start.Col,
		EndLine: end.Line, EndCol: end.Col,
		Message: fmt.Sprintf(format, args...), Severity: sev,
	})
}

func (ch *checker) commands(cmds []*ast.CommandExpression) {
	for _, c := range cmds {
		ch.command(c)
	}
}

func (ch *checker) command(c *ast.CommandExpression) {
	nameLoc := ast.Loc{Start: c.Loc.Start, End: ast.Position{Line: c.Loc.Start.Line, Col: c.Loc.Start.Col + len(c.FullName())}}
	m, cmd := ch.resolve(c, nameLoc)

	isSet := cmd != nil && m == ch.std && c.Name == "set"
	for i, arg := range c.Args {
		if b, ok := arg.(*ast.BlockExpression); ok {
			inner := ch.top().context
			if cmd != nil && cmd.OpensContext {
				inner = m
			}
			ch.push(inner)
			ch.commands(b.Body)
			ch.pop()
			continue
		}
		if isSet && i == 0 {
			continue
		}
		ch.expression(arg)
	}
	for _, o := range c.Opts {
		ch.expression(o.Value)
	}
	for _, capt := range c.Captures {
		if capt.Filter != nil {
			ch.expression(capt.Filter)
		}
	}

	if cmd != nil {
		if msg := argsArity(cmd.Args).Check(len(c.Args)); msg != "" {
			ch.report(nameLoc, SeverityError, "%s", msg)
		}
		if err := module.CheckOpts(c, module.OptNames(cmd.Opts)); err != nil {
			loc := nameLoc
			for _, o := range c.Opts {
				if !hasOpt(cmd.Opts, o.Name) {
					loc = o.Loc
					break
				}
			}
			ch.report(loc, SeverityError, "%s", nodeMessage(err))
		}
	}

	switch {
	case isSet:
		if v, ok := firstVariable(c); ok {
			ch.top().vars[v] = true
		}
	case cmd != nil && m == ch.std && c.Name == "load":
		ch.load(c)
	}
	for _, capt := range c.Captures {
		for _, b := range capt.Bindings {
			ch.top().vars[b.Variable] = true
		}
	}
}

func (ch *checker) resolve(c *ast.CommandExpression, nameLoc ast.Loc) (*module.Module, *module.Command) {
	m := ch.top().context
	if c.Module != "" {
		var ok bool
		if m, ok = ch.module(c.Module); !ok {
			msg := fmt.Sprintf("module %s is not loaded", c.Module)
			if s := module.Suggest(c.Module, ch.moduleNames()); s != "" {
				msg += fmt.Sprintf(" (did you mean %s?)", s)
			}
			ch.report(nameLoc, SeverityError, "%s", msg)
			return nil, nil
		}
	}
	if cmd, ok := m.Commands[c.Name]; ok {
		return m, cmd
	}
	if cmd, ok := ch.std.Commands[c.Name]; ok {
		return ch.std, cmd
	}
	msg := fmt.Sprintf("command %s not found in module %s", c.Name, m.Name)
	if s := module.Suggest(c.Name, append(m.CommandNames(), ch.std.CommandNames()...)); s != "" {
		msg += fmt.Sprintf(" (did you mean %s?)", s)
	}
	ch.report(nameLoc, SeverityError, "%s", msg)
	return nil, nil
}

func (ch *checker) moduleNames() []string {
	var names []string
	for _, sc := range ch.scopes {
		for name := range sc.modules {
			names = append(names, name)
		}
		for alias := range sc.aliases {
			names = append(names, alias)
		}
	}
	sort.Strings(names)
	return names
}

func (ch *checker) load(c *ast.CommandExpression) {
	if len(c.Args) != 1 && len(c.Args) != 3 {
		return
	}
	name, ok := module.StaticString(c.Args[0])
	if !ok {
		return
	}
	alias := ""
	if len(c.Args) == 3 {
		alias, _ = module.StaticString(c.Args[2])
	}
	m, err := ch.svc.engine.Instance(name)
	if err != nil {
		msg := fmt.Sprintf("module %s not found", name)
		if s := module.Suggest(name, ch.svc.engine.Registry().Names()); s != "" {
			msg += fmt.Sprintf(" (did you mean %s?)", s)
		}
		ch.report(c.Args[0].Location(), SeverityError, "%s", msg)
		return
	}
	ch.bindModule(name, alias, m)
}

// expression checks variables and helpers used inside n.
func (ch *checker) expression(n ast.Node) {
	ast.Walk(n, func(n ast.Node) bool {
		switch n := n.(type) {
		case *ast.VariableIdentifier:
			if !ch.defined(n.Value) {
				ch.report(n.Loc, SeverityWarning, "%s is not defined", n.Value)
			}
		case *ast.HelperFunctionExpression:
			ch.helper(n)
		}
		return true
	})
}

func (ch *checker) helper(h *ast.HelperFunctionExpression) {
	var owners []*module.Module
	var all []string
	for _, m := range ch.visible() {
		_, isHelper := m.Helpers[h.Name]
		_, isConst := m.Constants[h.Name]
		if isHelper || isConst {
			owners = append(owners, m)
		}
		all = append(all, m.HelperNames()...)
	}
	nameLoc := ast.Loc{Start: h.Loc.Start, End: ast.Position{Line: h.Loc.Start.Line, Col: h.Loc.Start.Col + 1 + len(h.Name)}}

	switch len(owners) {
	case 0:
		msg := fmt.Sprintf("helper @%s not found", h.Name)
		if s := module.Suggest(h.Name, all); s != "" {
			msg += fmt.Sprintf(" (did you mean @%s?)", s)
		}
		ch.report(nameLoc, SeverityError, "%s", msg)
	case 1:
		m := owners[0]
		if helper, ok := m.Helpers[h.Name]; ok {
			if msg := helper.Arity.Check(len(h.Args)); msg != "" {
				ch.report(nameLoc, SeverityError, "%s", msg)
			}
		} else if len(h.Args) > 0 {
			ch.report(nameLoc, SeverityError, "@%s is a constant and takes no arguments", h.Name)
		}
	default:
		names := make([]string, len(owners))
		for i, m := range owners {
			names[i] = m.Name
		}
		ch.report(nameLoc, SeverityError, "helper @%s is declared by multiple modules: %s", h.Name, strings.Join(names, ", "))
	}
}

// argsArity derives the argument-count contract from the declared arguments.
func argsArity(args []module.ArgSpec) module.Arity {
	min, max := 0, 0
	for _, a := range args {
		if a.Rest {
			if !a.Optional {
				min++
			}
			return module.AtLeast(min)
		}
		max++
		if !a.Optional {
			min++
		}
	}
	if min == max {
		return module.Exactly(min)
	}
	return module.Range(min, max)
}

func hasOpt(specs []module.OptSpec, name string) bool {
	for _, s := range specs {
		if s.Name == name {
			return true
		}
	}
	return false
}

func firstVariable(c *ast.CommandExpression) (string, bool) {
	if len(c.Args) == 0 {
		return "", false
	}
	v, ok := c.Args[0].(*ast.VariableIdentifier)
	if !ok {
		return "", false
	}
	return v.Value, true
}

// nodeMessage strips the position prefix of a node error.
func nodeMessage(err error) string {
	var ne *errors.NodeError
	if errors.As(err, &ne) && ne.Message != "" {
		return ne.Message
	}
	return err.Error()
}
