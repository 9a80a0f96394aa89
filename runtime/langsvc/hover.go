package langsvc

import (
	"context"
	"fmt"
	"math/big"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/evmcrispr/evml/core/ast"
	"github.com/evmcrispr/evml/core/bindings"
	"github.com/evmcrispr/evml/core/evm"
	"github.com/evmcrispr/evml/core/types"
	"github.com/evmcrispr/evml/runtime/eager"
)

// Hover is markdown describing the element under the cursor.
type Hover struct {
	Contents string  `json:"contents"`
	Range    ast.Loc `json:"range"`
}

// Hover describes the command, helper, variable or literal under pos. It
// returns nil when there is nothing to say.
func (s *Service) Hover(ctx context.Context, text string, pos ast.Position) (h *Hover) {
	defer s.guard("hover")

	res := s.analyze(ctx, text, pos)
	if res.Default == nil {
		return nil
	}
	c := commandAt(res.Program.Body, pos)
	if c == nil && res.Command != nil && res.Command.Loc.ContainsPos(pos) {
		c = res.Command
	}
	if c == nil {
		return nil
	}

	nameLoc := ast.Loc{Start: c.Loc.Start, End: ast.Position{Line: c.Loc.Start.Line, Col: c.Loc.Start.Col + len(c.FullName())}}
	if nameLoc.ContainsPos(pos) {
		m, cmd, ok := res.Resolve(c)
		if !ok {
			return nil
		}
		return &Hover{Contents: commandDoc(m, c.FullName(), cmd), Range: nameLoc}
	}

	for _, child := range ast.Children(c) {
		if child.Location().ContainsPos(pos) {
			if _, isBlock := child.(*ast.BlockExpression); isBlock {
				return nil
			}
			return hoverNode(res, c, deepest(child, pos))
		}
	}
	return nil
}

// commandAt returns the innermost command whose span holds pos.
func commandAt(cmds []*ast.CommandExpression, pos ast.Position) *ast.CommandExpression {
	for _, c := range cmds {
		for _, b := range c.Blocks() {
			if b.Loc.Start.Line < pos.Line && pos.Line < b.Loc.End.Line {
				if inner := commandAt(b.Body, pos); inner != nil {
					return inner
				}
				return nil
			}
		}
		if c.Loc.Start.Line == pos.Line && c.Loc.ContainsPos(pos) {
			return c
		}
	}
	return nil
}

// deepest returns the innermost descendant of n holding pos.
func deepest(n ast.Node, pos ast.Position) ast.Node {
	for _, child := range ast.Children(n) {
		if child.Location().ContainsPos(pos) {
			return deepest(child, pos)
		}
	}
	return n
}

func hoverNode(res *eager.Result, c *ast.CommandExpression, n ast.Node) *Hover {
	var contents string
	switch n := n.(type) {
	case *ast.HelperFunctionExpression:
		contents = helperHover(res, n.Name)
	case *ast.VariableIdentifier:
		contents = variableHover(res.Bindings, n.Value)
	case *ast.NumberLiteral:
		contents = numberHover(n)
	case *ast.AddressLiteral:
		contents = addressHover(res.Bindings, n.Value)
	case *ast.CallExpression:
		contents = callHover(res.Bindings, n)
	case *ast.CommandOpt:
		if _, cmd, ok := res.Resolve(c); ok {
			for _, o := range cmd.Opts {
				if o.Name == n.Name {
					contents = fmt.Sprintf("`--%s` %s", o.Name, o.Summary)
				}
			}
		}
	case *ast.EventCapture:
		contents = fmt.Sprintf("Event capture `%s`\n\nDecodes the %s log emitted by the transaction into variables.", n, n.Event)
	}
	if contents == "" {
		return nil
	}
	return &Hover{Contents: contents, Range: n.Location()}
}

func helperHover(res *eager.Result, name string) string {
	var docs []string
	for _, m := range res.Modules() {
		if h, ok := m.Helpers[name]; ok {
			docs = append(docs, helperDoc(m, name, h))
		} else if v, ok := m.Constants[name]; ok {
			docs = append(docs, fmt.Sprintf("```evml\n@%s = %s\n```\n\nModule: %s", name, evm.Stringify(v), m.Name))
		}
	}
	return strings.Join(docs, "\n\n---\n\n")
}

func variableHover(s *bindings.Store, name string) string {
	v, ok := s.GetBindingValue(name, bindings.User)
	if !ok {
		return fmt.Sprintf("`%s` is not defined before this line", name)
	}
	if v == nil {
		return fmt.Sprintf("`%s` (value known at run time)", name)
	}
	return fmt.Sprintf("```evml\n%s = %s\n```", name, evm.Stringify(v))
}

func numberHover(n *ast.NumberLiteral) string {
	r, ok := new(big.Rat).SetString(n.Value)
	if !ok {
		return ""
	}
	if n.Power > 0 {
		r.Mul(r, new(big.Rat).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n.Power)), nil)))
	}
	if n.TimeUnit != "" {
		r.Mul(r, new(big.Rat).SetInt64(types.TimeUnits[n.TimeUnit]))
	}
	if !r.IsInt() {
		return fmt.Sprintf("`%s` is not an integer", n)
	}
	return fmt.Sprintf("```evml\n%s = %s\n```", n, r.Num())
}

func addressHover(s *bindings.Store, value string) string {
	addr := common.HexToAddress(value)
	contents := fmt.Sprintf("```evml\n%s\n```", addr.Hex())
	if v, ok := s.GetBindingValue(addr.Hex(), bindings.ABI); ok {
		if contract, ok := v.(*abi.ABI); ok && len(contract.Methods) > 0 {
			contents += "\n\nKnown methods:\n" + methodList(contract)
		}
	}
	return contents
}

func callHover(s *bindings.Store, c *ast.CallExpression) string {
	target := ""
	switch t := c.Target.(type) {
	case *ast.AddressLiteral:
		target = t.Value
	case *ast.VariableIdentifier:
		if v, ok := s.GetBindingValue(t.Value, bindings.User); ok {
			target = evm.Stringify(v)
		}
	}
	if common.IsHexAddress(target) {
		if v, ok := s.GetBindingValue(common.HexToAddress(target).Hex(), bindings.ABI); ok {
			if contract, ok := v.(*abi.ABI); ok {
				if m, err := evm.FindMethod(contract, c.Method); err == nil {
					return fmt.Sprintf("```evml\n%s\n```", m.String())
				}
			}
		}
	}
	return fmt.Sprintf("Read-only call of `%s`", c.Method)
}

func methodList(contract *abi.ABI) string {
	sigs := make([]string, 0, len(contract.Methods))
	for _, m := range contract.Methods {
		sigs = append(sigs, "- `"+m.Sig+"`")
	}
	sort.Strings(sigs)
	return strings.Join(sigs, "\n")
}
