package langsvc

import (
	"github.com/evmcrispr/evml/core/ast"
	"github.com/evmcrispr/evml/core/module"
	"github.com/evmcrispr/evml/runtime/parser"
)

// SymbolKind classifies a document symbol.
type SymbolKind string

const (
	SymbolVariable SymbolKind = "variable"
	SymbolModule   SymbolKind = "module"
	SymbolBlock    SymbolKind = "block"
)

// Symbol is one entry of the document outline.
type Symbol struct {
	Name     string     `json:"name"`
	Kind     SymbolKind `json:"kind"`
	Detail   string     `json:"detail,omitempty"`
	Loc      ast.Loc    `json:"loc"`
	Children []Symbol   `json:"children,omitempty"`
}

// DocumentSymbols outlines the script: variables defined by set and event
// captures, modules brought in by load, and block commands with their
// nested symbols.
func (s *Service) DocumentSymbols(text string) (symbols []Symbol) {
	defer s.guard("document symbols")

	tree, _ := parser.ParseString(text, parser.WithRecoverBlocks())
	if tree == nil || tree.Program == nil {
		return nil
	}
	return outline(tree.Program.Body)
}

func outline(cmds []*ast.CommandExpression) []Symbol {
	var out []Symbol
	for _, c := range cmds {
		switch {
		case c.Name == "set" && len(c.Args) > 0:
			if v, ok := firstVariable(c); ok {
				detail := ""
				if len(c.Args) > 1 {
					detail = c.Args[1].String()
				}
				out = append(out, Symbol{Name: v, Kind: SymbolVariable, Detail: detail, Loc: c.Loc})
			}
		case c.Name == "load" && len(c.Args) > 0:
			if name, ok := module.StaticString(c.Args[0]); ok {
				sym := Symbol{Name: name, Kind: SymbolModule, Loc: c.Loc}
				if len(c.Args) == 3 {
					if alias, ok := module.StaticString(c.Args[2]); ok {
						sym.Detail = "as " + alias
					}
				}
				out = append(out, sym)
			}
		}
		for _, capt := range c.Captures {
			for _, b := range capt.Bindings {
				out = append(out, Symbol{Name: b.Variable, Kind: SymbolVariable, Detail: capt.Event, Loc: b.Loc})
			}
		}
		for _, b := range c.Blocks() {
			out = append(out, Symbol{
				Name:     c.FullName(),
				Kind:     SymbolBlock,
				Loc:      b.Loc,
				Children: outline(b.Body),
			})
		}
	}
	return out
}
