package langsvc

import (
	"fmt"
	"strings"

	"github.com/evmcrispr/evml/core/module"
)

// usage renders a command synopsis: exec <target> <method> [args...] [--value <value>]
func usage(name string, cmd *module.Command) string {
	parts := []string{name}
	for _, a := range cmd.Args {
		parts = append(parts, argLabel(a))
	}
	for _, o := range cmd.Opts {
		parts = append(parts, fmt.Sprintf("[--%s]", o.Name))
	}
	return strings.Join(parts, " ")
}

func argLabel(a module.ArgSpec) string {
	switch {
	case a.Type == "block":
		return "( ... )"
	case a.Rest:
		return "[" + a.Name + "...]"
	case a.Optional:
		return "[" + a.Name + "]"
	}
	return "<" + a.Name + ">"
}

// helperSignature renders @name(a, [b], rest...): returns
func helperSignature(name string, h *module.Helper) string {
	params := make([]string, len(h.Args))
	for i, a := range h.Args {
		switch {
		case a.Rest:
			params[i] = a.Name + "..."
		case a.Optional:
			params[i] = "[" + a.Name + "]"
		default:
			params[i] = a.Name
		}
	}
	sig := "@" + name + "(" + strings.Join(params, ", ") + ")"
	if h.Returns != "" {
		sig += ": " + h.Returns
	}
	return sig
}

func commandDoc(m *module.Module, name string, cmd *module.Command) string {
	var b strings.Builder
	fmt.Fprintf(&b, "```evml\n%s\n```\n", usage(name, cmd))
	if cmd.Summary != "" {
		b.WriteString("\n" + cmd.Summary + "\n")
	}
	for _, o := range cmd.Opts {
		fmt.Fprintf(&b, "\n- `--%s` %s", o.Name, o.Summary)
	}
	if len(cmd.Opts) > 0 {
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "\nModule: %s", m.Name)
	return b.String()
}

func helperDoc(m *module.Module, name string, h *module.Helper) string {
	var b strings.Builder
	fmt.Fprintf(&b, "```evml\n%s\n```\n", helperSignature(name, h))
	if h.Summary != "" {
		b.WriteString("\n" + h.Summary + "\n")
	}
	fmt.Fprintf(&b, "\nModule: %s", m.Name)
	return b.String()
}
