package ast

// Program is the indexed view over a parsed script used by the interpreter
// and the language service.
type Program struct {
	Body []*CommandExpression
}

// NewProgram wraps a parsed command list.
func NewProgram(body []*CommandExpression) *Program {
	return &Program{Body: body}
}

// CommandAtLine returns the innermost command that starts on line, searching
// inside blocks. It returns nil when no command starts there.
func (p *Program) CommandAtLine(line int) *CommandExpression {
	return commandAtLine(p.Body, line)
}

func commandAtLine(cmds []*CommandExpression, line int) *CommandExpression {
	for _, c := range cmds {
		if c.Loc.Start.Line == line {
			return c
		}
		if c.Loc.Start.Line < line && line <= c.Loc.End.Line {
			for _, b := range c.Blocks() {
				if found := commandAtLine(b.Body, line); found != nil {
					return found
				}
			}
		}
	}
	return nil
}

// CommandsUntilLine returns, in source order, the commands that start strictly
// before line and are in scope at line: top-level commands, and the commands
// of every block that is still open at line. Commands inside blocks that closed
// before line are skipped because their bindings died with the block. When
// names is non-empty only commands with one of those names are returned.
func (p *Program) CommandsUntilLine(line int, names []string) []*CommandExpression {
	var out []*CommandExpression
	collectUntilLine(p.Body, line, names, &out)
	return out
}

func collectUntilLine(cmds []*CommandExpression, line int, names []string, out *[]*CommandExpression) {
	for _, c := range cmds {
		if c.Loc.Start.Line >= line {
			return
		}
		if matchesName(c, names) {
			*out = append(*out, c)
		}
		for _, b := range c.Blocks() {
			if spansLine(b, line) {
				collectUntilLine(b.Body, line, names, out)
			}
		}
	}
}

// BlockCommandsAtLine returns the commands whose block spans line, outermost
// first. These commands define the module context of a cursor on that line.
func (p *Program) BlockCommandsAtLine(line int) []*CommandExpression {
	var out []*CommandExpression
	cmds := p.Body
	for {
		var next []*CommandExpression
		for _, c := range cmds {
			for _, b := range c.Blocks() {
				if spansLine(b, line) {
					out = append(out, c)
					next = b.Body
				}
			}
		}
		if next == nil {
			return out
		}
		cmds = next
	}
}

// spansLine reports whether line is strictly inside the block body: after the
// opening line and before the line holding the closing parenthesis.
func spansLine(b *BlockExpression, line int) bool {
	return b.Loc.Start.Line < line && line < b.Loc.End.Line
}

func matchesName(c *CommandExpression, names []string) bool {
	if len(names) == 0 {
		return true
	}
	for _, n := range names {
		if c.Name == n {
			return true
		}
	}
	return false
}

// Children returns the direct child nodes of n in source order.
func Children(n Node) []Node {
	switch n := n.(type) {
	case *ArrayExpression:
		return n.Elements
	case *BinaryExpression:
		return []Node{n.Left, n.Right}
	case *BlockExpression:
		out := make([]Node, len(n.Body))
		for i, c := range n.Body {
			out[i] = c
		}
		return out
	case *CallExpression:
		return append([]Node{n.Target}, n.Args...)
	case *CommandExpression:
		out := append([]Node{}, n.Args...)
		for _, o := range n.Opts {
			out = append(out, o)
		}
		for _, c := range n.Captures {
			out = append(out, c)
		}
		return out
	case *HelperFunctionExpression:
		return n.Args
	case *CommandOpt:
		return []Node{n.Value}
	case *EventCapture:
		if n.Filter != nil {
			return []Node{n.Filter}
		}
		return nil
	default:
		return nil
	}
}

// Walk calls fn for n and every descendant, depth first. Returning false from
// fn skips the children of that node.
func Walk(n Node, fn func(Node) bool) {
	if !fn(n) {
		return
	}
	for _, c := range Children(n) {
		Walk(c, fn)
	}
}
