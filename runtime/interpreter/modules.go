package interpreter

import (
	"fmt"
	"strings"

	"github.com/evmcrispr/evml/core/ast"
	"github.com/evmcrispr/evml/core/bindings"
	"github.com/evmcrispr/evml/core/errors"
	"github.com/evmcrispr/evml/core/module"
)

// LoadModule instantiates a registered module into the current scope.
func (in *Interpreter) LoadModule(name, alias string) (*module.Module, error) {
	if in.store.IsDefinedInCurrentScope(name, bindings.Module) && name != in.std.Name {
		return nil, fmt.Errorf("module %s %w", name, errors.ErrAlreadyDefined)
	}
	m, err := in.cfg.Registry.New(name)
	if err != nil {
		return nil, err
	}
	m.Alias = alias
	if err := in.store.SetBinding(name, m, bindings.Module, true); err != nil {
		return nil, err
	}
	if alias != "" {
		if err := in.store.SetBinding(alias, name, bindings.Alias, true); err != nil {
			return nil, err
		}
	}
	in.log.Debug("Loaded module", "module", name, "alias", alias, "scope", in.store.ScopeLabel())
	return m, nil
}

// moduleByName resolves a module name or alias against the loaded modules.
func (in *Interpreter) moduleByName(name string) (*module.Module, bool) {
	if target, ok := in.store.GetBindingValue(name, bindings.Alias); ok {
		name = target.(string)
	}
	v, ok := in.store.GetBindingValue(name, bindings.Module)
	if !ok {
		return nil, false
	}
	return v.(*module.Module), true
}

// loadedModules lists the visible module instances sorted by name.
func (in *Interpreter) loadedModules() []*module.Module {
	bs := in.store.AllBindings(bindings.Filter{Spaces: []bindings.Space{bindings.Module}})
	mods := make([]*module.Module, 0, len(bs))
	for _, b := range bs {
		mods = append(mods, b.Value.(*module.Module))
	}
	return mods
}

// contextModule is the module of the innermost block that set one, or the
// default module.
func (in *Interpreter) contextModule() *module.Module {
	for i := len(in.blocks) - 1; i >= 0; i-- {
		if in.blocks[i] == "" {
			continue
		}
		if m, ok := in.moduleByName(in.blocks[i]); ok {
			return m
		}
	}
	return in.std
}

func (in *Interpreter) resolveCommand(c *ast.CommandExpression) (*module.Module, *module.Command, error) {
	m := in.contextModule()
	if c.Module != "" {
		var ok bool
		m, ok = in.moduleByName(c.Module)
		if !ok {
			msg := fmt.Sprintf("module %s is not loaded", c.Module)
			if s := module.Suggest(c.Module, in.moduleNames()); s != "" {
				msg += fmt.Sprintf(" (did you mean %s?)", s)
			}
			return nil, nil, errors.NewCommandError(c, errors.ErrModuleNotFound, "%s", msg)
		}
	}

	if cmd, ok := m.Commands[c.Name]; ok {
		return m, cmd, nil
	}
	if cmd, ok := in.std.Commands[c.Name]; ok {
		return in.std, cmd, nil
	}

	candidates := append(m.CommandNames(), in.std.CommandNames()...)
	msg := fmt.Sprintf("command %s not found in module %s", c.Name, m.Name)
	if s := module.Suggest(c.Name, candidates); s != "" {
		msg += fmt.Sprintf(" (did you mean %s?)", s)
	}
	return nil, nil, errors.NewCommandError(c, errors.ErrCommandNotFound, "%s", msg)
}

func (in *Interpreter) moduleNames() []string {
	var names []string
	for _, m := range in.loadedModules() {
		names = append(names, m.Name)
		if m.Alias != "" {
			names = append(names, m.Alias)
		}
	}
	return names
}

// helperOwner finds the single module declaring name as a helper or constant.
func (in *Interpreter) helperOwner(h *ast.HelperFunctionExpression) (*module.Module, error) {
	var owners []*module.Module
	var all []string
	for _, m := range in.loadedModules() {
		_, isHelper := m.Helpers[h.Name]
		_, isConst := m.Constants[h.Name]
		if isHelper || isConst {
			owners = append(owners, m)
		}
		all = append(all, m.HelperNames()...)
	}

	switch len(owners) {
	case 0:
		msg := fmt.Sprintf("helper @%s not found", h.Name)
		if s := module.Suggest(h.Name, all); s != "" {
			msg += fmt.Sprintf(" (did you mean @%s?)", s)
		}
		return nil, errors.NewHelperError(h, errors.ErrHelperNotFound, "%s", msg)
	case 1:
		return owners[0], nil
	}

	names := make([]string, len(owners))
	for i, m := range owners {
		names[i] = m.Name
	}
	return nil, errors.NewHelperError(h, errors.ErrCollision,
		"helper @%s is declared by multiple modules: %s", h.Name, strings.Join(names, ", "))
}
