package ast_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/evmcrispr/evml/core/ast"
)

func pos(line, col int) ast.Position { return ast.Position{Line: line, Col: col} }

func cmd(name string, start, end ast.Position, args ...ast.Node) *ast.CommandExpression {
	return &ast.CommandExpression{Name: name, Args: args, Loc: ast.Loc{Start: start, End: end}}
}

func block(start, end ast.Position, body ...*ast.CommandExpression) *ast.BlockExpression {
	return &ast.BlockExpression{Body: body, Loc: ast.Loc{Start: start, End: end}}
}

// line 1: load erc20
// line 2: set $a 1
// line 3: erc20:using 0x.. (
// line 4:   set $b 2
// line 5:   batch (
// line 6:     set $c 3
// line 7:   )
// line 8:   transfer ...
// line 9: )
// line 10: print $a
func sampleProgram() *ast.Program {
	setC := cmd("set", pos(6, 4), pos(6, 12))
	inner := block(pos(5, 8), pos(7, 3), setC)
	batch := cmd("batch", pos(5, 2), pos(7, 3), inner)
	setB := cmd("set", pos(4, 2), pos(4, 10))
	transfer := cmd("transfer", pos(8, 2), pos(8, 20))
	outer := block(pos(3, 18), pos(9, 1), setB, batch, transfer)
	using := cmd("using", pos(3, 0), pos(9, 1), &ast.AddressLiteral{Value: "0x"}, outer)
	using.Module = "erc20"

	return ast.NewProgram([]*ast.CommandExpression{
		cmd("load", pos(1, 0), pos(1, 10)),
		cmd("set", pos(2, 0), pos(2, 8)),
		using,
		cmd("print", pos(10, 0), pos(10, 8)),
	})
}

func names(cmds []*ast.CommandExpression) []string {
	out := make([]string, len(cmds))
	for i, c := range cmds {
		out[i] = c.FullName()
	}
	return out
}

func TestCommandAtLine(t *testing.T) {
	p := sampleProgram()
	assert.Equal(t, "load", p.CommandAtLine(1).Name)
	assert.Equal(t, "erc20:using", p.CommandAtLine(3).FullName())
	assert.Equal(t, "batch", p.CommandAtLine(5).Name)
	assert.Equal(t, pos(6, 4), p.CommandAtLine(6).Loc.Start)
	assert.Nil(t, p.CommandAtLine(7))
	assert.Nil(t, p.CommandAtLine(42))
}

func TestCommandsUntilLine(t *testing.T) {
	p := sampleProgram()

	assert.Equal(t, []string{"load", "set", "erc20:using", "set"},
		names(p.CommandsUntilLine(5, nil)))

	// the batch block closes on line 7, so $c is out of scope from there on
	assert.Equal(t, []string{"load", "set", "erc20:using", "set", "batch"},
		names(p.CommandsUntilLine(7, nil)))
	assert.Equal(t, []string{"load", "set", "erc20:using", "set", "batch"},
		names(p.CommandsUntilLine(8, nil)))

	// everything inside the using block is gone after line 9
	assert.Equal(t, []string{"set", "set"},
		names(p.CommandsUntilLine(5, []string{"set"})))
	assert.Equal(t, []string{"set"},
		names(p.CommandsUntilLine(10, []string{"set"})))
}

func TestBlockCommandsAtLine(t *testing.T) {
	p := sampleProgram()
	assert.Equal(t, []string{"erc20:using", "batch"}, names(p.BlockCommandsAtLine(6)))
	assert.Equal(t, []string{"erc20:using"}, names(p.BlockCommandsAtLine(8)))
	assert.Empty(t, p.BlockCommandsAtLine(10))
}

func TestWalk(t *testing.T) {
	p := sampleProgram()
	var count int
	for _, c := range p.Body {
		ast.Walk(c, func(n ast.Node) bool {
			if _, ok := n.(*ast.CommandExpression); ok {
				count++
			}
			return true
		})
	}
	assert.Equal(t, 8, count)
}

func TestLocContains(t *testing.T) {
	outer := ast.Loc{Start: pos(1, 0), End: pos(3, 1)}
	assert.True(t, outer.Contains(ast.Loc{Start: pos(2, 0), End: pos(2, 5)}))
	assert.False(t, outer.Contains(ast.Loc{Start: pos(3, 0), End: pos(3, 2)}))
	assert.True(t, outer.ContainsPos(pos(3, 1)))
	assert.False(t, outer.ContainsPos(pos(0, 5)))
}

func TestCommandString(t *testing.T) {
	c := &ast.CommandExpression{
		Module: "std",
		Name:   "exec",
		Args: []ast.Node{
			&ast.AddressLiteral{Value: "0x44fA8E6f47987339850636F88629646662444217"},
			&ast.ProbableIdentifier{Value: "transfer(address,uint256)"},
			&ast.BinaryExpression{Operator: '*', Left: &ast.NumberLiteral{Value: "2"}, Right: &ast.NumberLiteral{Value: "1", Power: 18}},
		},
		Opts: []*ast.CommandOpt{{Name: "gas", Value: &ast.NumberLiteral{Value: "21000"}}},
	}
	assert.Equal(t, "std:exec 0x44fA8E6f47987339850636F88629646662444217 transfer(address,uint256) (2 * 1e18) --gas 21000", c.String())
}
