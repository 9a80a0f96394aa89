// Package ast defines the located syntax tree produced by the evml parser.
//
// Node is a closed sum type: every node kind in this package implements the
// unexported node() method, so code outside the package dispatches over the
// concrete types with a type switch and the set of cases is fixed here.
package ast

import (
	"fmt"
	"strings"
)

// Position is a location in script text. Line is 1-based, Col is 0-based
// (the number of characters on the line before the position).
type Position struct {
	Line int
	Col  int
}

// Before reports whether p comes strictly before o.
func (p Position) Before(o Position) bool {
	return p.Line < o.Line || (p.Line == o.Line && p.Col < o.Col)
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Col)
}

// Loc is the span a node was parsed from. End is exclusive.
type Loc struct {
	Start Position
	End   Position
}

// Contains reports whether o lies inside l.
func (l Loc) Contains(o Loc) bool {
	return !o.Start.Before(l.Start) && !l.End.Before(o.End)
}

// ContainsPos reports whether pos lies inside l, treating End as inclusive so
// that a cursor placed right after a node still belongs to it.
func (l Loc) ContainsPos(pos Position) bool {
	return !pos.Before(l.Start) && !l.End.Before(pos)
}

// Node is any evml syntax node.
type Node interface {
	Location() Loc
	String() string
	node()
}

// AddressLiteral is a 20-byte hex address, e.g. 0x44fA8E6f47987339850636F88629646662444217.
type AddressLiteral struct {
	Value string
	Loc   Loc
}

// BoolLiteral is true or false.
type BoolLiteral struct {
	Value bool
	Loc   Loc
}

// BytesLiteral is any 0x-prefixed hex string that is not an address.
type BytesLiteral struct {
	Value string
	Loc   Loc
}

// NumberLiteral keeps the textual parts of a number: the decimal digits,
// the scientific exponent and the optional time unit.
type NumberLiteral struct {
	Value    string // "1.5"
	Power    int    // exponent from "e18"
	TimeUnit string // "", "s", "m", "h", "d", "w", "mo", "y"
	Loc      Loc
}

// StringLiteral is a single- or double-quoted string with escapes resolved.
type StringLiteral struct {
	Value string
	Loc   Loc
}

// ArrayExpression is [a, b, c].
type ArrayExpression struct {
	Elements []Node
	Loc      Loc
}

// BinaryExpression is an arithmetic expression inside parentheses.
type BinaryExpression struct {
	Operator byte // one of + - * / ^
	Left     Node
	Right    Node
	Loc      Loc
}

// BlockExpression is the body of a block argument, executed in a new scope.
type BlockExpression struct {
	Body []*CommandExpression
	Loc  Loc
}

// CallExpression is target::method(args). Chains nest through Target.
type CallExpression struct {
	Target Node
	Method string
	Args   []Node
	Loc    Loc
}

// CommandExpression is one script statement.
type CommandExpression struct {
	Module   string // explicit module prefix, "" when absent
	Name     string
	Args     []Node
	Opts     []*CommandOpt
	Captures []*EventCapture
	Loc      Loc
}

// HelperFunctionExpression is @name or @name(args).
type HelperFunctionExpression struct {
	Name string
	Args []Node
	Loc  Loc
}

// ProbableIdentifier is a bareword. It always evaluates to its own text.
type ProbableIdentifier struct {
	Value string
	Loc   Loc
}

// VariableIdentifier is $name. Value includes the leading '$'.
type VariableIdentifier struct {
	Value string
	Loc   Loc
}

// CommandOpt is --name value.
type CommandOpt struct {
	Name  string
	Value Node
	Loc   Loc
}

// EventParam is one entry of an inline event type list.
type EventParam struct {
	Type    string
	Indexed bool
	Name    string // optional
}

// CaptureBinding selects one decoded value and names the destination variable.
// Field is empty for positional selection; Path holds the positional indices
// that follow the field (or the whole selector when Field is empty).
type CaptureBinding struct {
	Field    string
	Path     []int
	Variable string
	Loc      Loc
}

// EventCapture is -> [filter:]Event[(types)][#occurrence] binding+.
type EventCapture struct {
	Filter     Node // nil when no contract filter was given
	Event      string
	Params     []EventParam // nil when the ABI must supply the event shape
	Occurrence int
	Bindings   []*CaptureBinding
	Loc        Loc
}

func (n *AddressLiteral) Location() Loc           { return n.Loc }
func (n *BoolLiteral) Location() Loc              { return n.Loc }
func (n *BytesLiteral) Location() Loc             { return n.Loc }
func (n *NumberLiteral) Location() Loc            { return n.Loc }
func (n *StringLiteral) Location() Loc            { return n.Loc }
func (n *ArrayExpression) Location() Loc          { return n.Loc }
func (n *BinaryExpression) Location() Loc         { return n.Loc }
func (n *BlockExpression) Location() Loc          { return n.Loc }
func (n *CallExpression) Location() Loc           { return n.Loc }
func (n *CommandExpression) Location() Loc        { return n.Loc }
func (n *HelperFunctionExpression) Location() Loc { return n.Loc }
func (n *ProbableIdentifier) Location() Loc       { return n.Loc }
func (n *VariableIdentifier) Location() Loc       { return n.Loc }
func (n *CommandOpt) Location() Loc               { return n.Loc }
func (n *EventCapture) Location() Loc             { return n.Loc }

func (*AddressLiteral) node()           {}
func (*BoolLiteral) node()              {}
func (*BytesLiteral) node()             {}
func (*NumberLiteral) node()            {}
func (*StringLiteral) node()            {}
func (*ArrayExpression) node()          {}
func (*BinaryExpression) node()         {}
func (*BlockExpression) node()          {}
func (*CallExpression) node()           {}
func (*CommandExpression) node()        {}
func (*HelperFunctionExpression) node() {}
func (*ProbableIdentifier) node()       {}
func (*VariableIdentifier) node()       {}
func (*CommandOpt) node()               {}
func (*EventCapture) node()             {}

func (n *AddressLiteral) String() string { return n.Value }

func (n *BoolLiteral) String() string {
	if n.Value {
		return "true"
	}
	return "false"
}

func (n *BytesLiteral) String() string { return n.Value }

func (n *NumberLiteral) String() string {
	var b strings.Builder
	b.WriteString(n.Value)
	if n.Power != 0 {
		fmt.Fprintf(&b, "e%d", n.Power)
	}
	b.WriteString(n.TimeUnit)
	return b.String()
}

func (n *StringLiteral) String() string { return fmt.Sprintf("%q", n.Value) }

func (n *ArrayExpression) String() string {
	return "[" + joinNodes(n.Elements, ", ") + "]"
}

func (n *BinaryExpression) String() string {
	return fmt.Sprintf("(%s %c %s)", n.Left, n.Operator, n.Right)
}

func (n *BlockExpression) String() string {
	var b strings.Builder
	b.WriteString("(\n")
	for _, c := range n.Body {
		b.WriteString("  ")
		b.WriteString(c.String())
		b.WriteString("\n")
	}
	b.WriteString(")")
	return b.String()
}

func (n *CallExpression) String() string {
	return fmt.Sprintf("%s::%s(%s)", n.Target, n.Method, joinNodes(n.Args, ", "))
}

func (n *CommandExpression) String() string {
	var b strings.Builder
	b.WriteString(n.FullName())
	for _, a := range n.Args {
		b.WriteString(" ")
		b.WriteString(a.String())
	}
	for _, o := range n.Opts {
		b.WriteString(" ")
		b.WriteString(o.String())
	}
	for _, c := range n.Captures {
		b.WriteString(" ")
		b.WriteString(c.String())
	}
	return b.String()
}

func (n *HelperFunctionExpression) String() string {
	if len(n.Args) == 0 {
		return "@" + n.Name
	}
	return fmt.Sprintf("@%s(%s)", n.Name, joinNodes(n.Args, ", "))
}

func (n *ProbableIdentifier) String() string { return n.Value }
func (n *VariableIdentifier) String() string { return n.Value }

func (n *CommandOpt) String() string {
	return fmt.Sprintf("--%s %s", n.Name, n.Value)
}

func (n *EventCapture) String() string {
	var b strings.Builder
	b.WriteString("-> ")
	if n.Filter != nil {
		b.WriteString(n.Filter.String())
		b.WriteString(":")
	}
	b.WriteString(n.Event)
	if n.Params != nil {
		parts := make([]string, len(n.Params))
		for i, p := range n.Params {
			parts[i] = p.Type
			if p.Indexed {
				parts[i] += " indexed"
			}
		}
		b.WriteString("(" + strings.Join(parts, ",") + ")")
	}
	if n.Occurrence != 0 {
		fmt.Fprintf(&b, "#%d", n.Occurrence)
	}
	for _, bind := range n.Bindings {
		b.WriteString(" ")
		b.WriteString(bind.String())
	}
	return b.String()
}

func (c *CaptureBinding) String() string {
	var b strings.Builder
	if c.Field != "" {
		b.WriteString(":" + c.Field)
	}
	for _, i := range c.Path {
		fmt.Fprintf(&b, ":%d", i)
	}
	if b.Len() > 0 {
		b.WriteString(" ")
	}
	b.WriteString(c.Variable)
	return b.String()
}

// FullName returns module:name, or name when no module prefix was written.
func (n *CommandExpression) FullName() string {
	if n.Module == "" {
		return n.Name
	}
	return n.Module + ":" + n.Name
}

// Opt returns the option with the given name.
func (n *CommandExpression) Opt(name string) (*CommandOpt, bool) {
	for _, o := range n.Opts {
		if o.Name == name {
			return o, true
		}
	}
	return nil, false
}

// Blocks returns the block arguments of the command in source order.
func (n *CommandExpression) Blocks() []*BlockExpression {
	var blocks []*BlockExpression
	for _, a := range n.Args {
		if b, ok := a.(*BlockExpression); ok {
			blocks = append(blocks, b)
		}
	}
	return blocks
}

func joinNodes(nodes []Node, sep string) string {
	parts := make([]string, len(nodes))
	for i, n := range nodes {
		parts[i] = n.String()
	}
	return strings.Join(parts, sep)
}
