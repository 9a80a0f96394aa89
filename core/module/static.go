package module

import "github.com/evmcrispr/evml/core/ast"

// StaticValue returns the value of a node that can be known without running
// anything: literals and barewords. Eager bodies use it on partial input.
func StaticValue(n ast.Node) (any, bool) {
	switch n := n.(type) {
	case *ast.StringLiteral:
		return n.Value, true
	case *ast.ProbableIdentifier:
		return n.Value, true
	case *ast.AddressLiteral:
		return n.Value, true
	case *ast.BytesLiteral:
		return n.Value, true
	case *ast.BoolLiteral:
		return n.Value, true
	case *ast.NumberLiteral:
		if n.Power == 0 && n.TimeUnit == "" {
			return n.Value, true
		}
	}
	return nil, false
}

// StaticString is StaticValue restricted to textual nodes.
func StaticString(n ast.Node) (string, bool) {
	v, ok := StaticValue(n)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}
