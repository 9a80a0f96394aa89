// Package parser turns evml script text into a located syntax tree.
//
// The parser is hand-written recursive descent over a character scanner.
// Malformed lines never abort the parse: the offending argument (or the whole
// line when the command name itself is bad) is skipped and a positioned
// ParseError is recorded. The only fatal condition is a block left open at end
// of input, which Parse reports as an error unless WithRecoverBlocks is set.
package parser

import (
	"fmt"
	"strings"

	"github.com/evmcrispr/evml/core/ast"
	"github.com/evmcrispr/evml/core/invariant"
	"github.com/evmcrispr/evml/runtime/lexer"
)

// exprContext decides which characters end a bareword or literal.
type exprContext int

const (
	ctxCommand exprContext = iota // command argument: whitespace ends it
	ctxList                       // inside (...) or [...]: ',' ')' ']' end it too
	ctxArith                      // arithmetic operand: operators end it too
)

// Parse parses a whole script. The returned tree is always usable; the error
// is non-nil only for a fatal failure.
func Parse(source []byte, opts ...ParserOpt) (*ParseTree, error) {
	config := &ParserConfig{startLine: 1}
	for _, opt := range opts {
		opt(config)
	}

	p := &parser{
		s:      lexer.NewScanner(source, config.startLine),
		lines:  strings.Split(string(source), "\n"),
		config: config,
	}

	body, _ := p.commands(false)
	tree := &ParseTree{
		Source:  source,
		Program: ast.NewProgram(body),
		Errors:  p.errors,
	}
	invariant.Postcondition(tree.Program != nil, "parse must produce a program")
	if p.fatal != nil {
		return tree, *p.fatal
	}
	return tree, nil
}

// ParseString is a convenience wrapper for tests.
func ParseString(input string, opts ...ParserOpt) (*ParseTree, error) {
	return Parse([]byte(input), opts...)
}

type parser struct {
	s      *lexer.Scanner
	lines  []string
	config *ParserConfig
	errors []ParseError
	fatal  *ParseError
}

// commands parses command lines until end of input or, inside a block, until
// a line starting with ')'. closed reports whether that ')' was found; it is
// left unconsumed.
func (p *parser) commands(inBlock bool) (cmds []*ast.CommandExpression, closed bool) {
	s := p.s
	for {
		s.SkipBlankLines()
		if s.EOF() {
			return cmds, false
		}
		if s.Peek() == ')' {
			if inBlock {
				return cmds, true
			}
			p.errorf(s.Pos(), "", "unexpected ')'")
			s.SkipToLineEnd()
			continue
		}

		prev := s.Offset()
		if cmd := p.command(); cmd != nil {
			cmds = append(cmds, cmd)
		}
		invariant.Invariant(s.Offset() > prev, "command parser must consume input at %s", s.Pos())
	}
}

// command parses one command line: [module:]name (arg | --opt [val])* (-> capture)*
func (p *parser) command() *ast.CommandExpression {
	s := p.s
	start := s.Mark()

	nameTok, ok := s.LexCommandName()
	if !ok {
		p.errorf(start.Pos, "", "invalid command name")
		s.SkipToLineEnd()
		return nil
	}
	cmd := &ast.CommandExpression{Name: nameTok.Value}

	if s.Peek() == ':' && lexer.IsLetter(s.PeekAt(1)) {
		s.Advance()
		inner, _ := s.LexCommandName()
		cmd.Module, cmd.Name = nameTok.Value, inner.Value
	}

	if !p.atSeparator() {
		s.SkipToWhitespace()
		p.errorf(start.Pos, "", "invalid command name %q", s.Since(start))
		s.SkipToLineEnd()
		return nil
	}

	cmd.Loc = ast.Loc{Start: start.Pos, End: s.Pos()}
	p.commandBody(cmd)
	return cmd
}

// atSeparator reports whether the scanner sits where one command element may
// end: whitespace, newline or end of input.
func (p *parser) atSeparator() bool {
	ch := p.s.Peek()
	return p.s.EOF() || ch == '\n' || lexer.IsWhitespace(ch)
}

func (p *parser) commandBody(cmd *ast.CommandExpression) {
	s := p.s
	seen := map[string]bool{}

	for {
		spaced := s.SkipSpaces()
		if s.EOF() || s.Peek() == '\n' {
			return
		}
		if s.Peek() == '#' && spaced {
			s.SkipComment()
			return
		}

		prev := s.Offset()
		elemStart := s.Pos()

		switch {
		case s.HasPrefix("->"):
			if c := p.capture(); c != nil {
				cmd.Captures = append(cmd.Captures, c)
				cmd.Loc.End = s.Pos()
			}

		case len(cmd.Captures) > 0:
			p.errorf(elemStart, "command", "arguments and options must come before event captures")
			s.SkipToWhitespace()

		case s.HasPrefix("--") && lexer.IsLetter(s.PeekAt(2)):
			if opt := p.option(); opt != nil {
				if seen[opt.Name] {
					p.errorf(opt.Loc.Start, "command", "duplicate option --%s", opt.Name)
				} else {
					seen[opt.Name] = true
					cmd.Opts = append(cmd.Opts, opt)
				}
				cmd.Loc.End = opt.Loc.End
			}

		default:
			if arg := p.argument(); arg != nil {
				cmd.Args = append(cmd.Args, arg)
				cmd.Loc.End = arg.Location().End
			}
		}

		if !p.atSeparator() {
			p.errorf(s.Pos(), "command", "unexpected %q", string(s.Peek()))
			s.SkipToWhitespace()
		}
		invariant.Invariant(s.Offset() > prev, "command element parser must consume input at %s", s.Pos())
	}
}

// argument parses a positional command argument: a block when '(' ends the
// line, an expression otherwise. Errors are recorded and nil returned with the
// scanner moved past the bad text.
func (p *parser) argument() ast.Node {
	s := p.s
	if s.Peek() == '(' {
		m := s.Mark()
		s.Advance()
		opensBlock := s.AtLineEnd()
		s.Reset(m)
		if opensBlock {
			return p.block()
		}
	}
	n := p.expression(ctxCommand)
	if n == nil {
		s.SkipToWhitespace()
	}
	return n
}

func (p *parser) block() ast.Node {
	s := p.s
	open := s.Mark()
	s.Advance()
	s.SkipToLineEnd()

	body, closed := p.commands(true)
	blk := &ast.BlockExpression{Body: body}

	if !closed {
		err := p.newError(open.Pos, "", "unclosed block")
		err.Suggestion = "add a line containing ')' after the last command of the block"
		if !p.config.recoverBlocks {
			if p.fatal == nil {
				p.fatal = &err
			}
		} else {
			p.errors = append(p.errors, err)
		}
		// a recovered block spans every line up to end of input
		blk.Loc = ast.Loc{Start: open.Pos, End: ast.Position{Line: s.Pos().Line + 1}}
		return blk
	}

	s.Advance()
	blk.Loc = ast.Loc{Start: open.Pos, End: s.Pos()}
	for _, c := range body {
		l := c.Location()
		invariant.Contains(span(blk.Loc.Start), span(blk.Loc.End), span(l.Start), span(l.End), "block command")
	}
	return blk
}

func span(p ast.Position) [2]int { return [2]int{p.Line, p.Col} }

// option parses --name [value]. A missing value means true.
func (p *parser) option() *ast.CommandOpt {
	s := p.s
	start := s.Mark()
	s.AdvanceN(2)
	name, _ := s.LexWord()

	opt := &ast.CommandOpt{Name: name.Value}
	if !p.atSeparator() {
		p.errorf(s.Pos(), "option", "invalid option name")
		s.SkipToWhitespace()
		return nil
	}

	afterName := s.Mark()
	s.SkipSpaces()
	if s.AtLineEnd() || s.HasPrefix("--") || s.HasPrefix("->") {
		s.Reset(afterName)
		opt.Value = &ast.BoolLiteral{Value: true, Loc: ast.Loc{Start: start.Pos, End: afterName.Pos}}
		opt.Loc = ast.Loc{Start: start.Pos, End: afterName.Pos}
		return opt
	}

	value := p.expression(ctxCommand)
	if value == nil {
		s.SkipToWhitespace()
		return nil
	}
	opt.Value = value
	opt.Loc = ast.Loc{Start: start.Pos, End: value.Location().End}
	return opt
}

// expression parses a primary followed by any ::method(args) calls.
func (p *parser) expression(ctx exprContext) ast.Node {
	s := p.s
	start := s.Pos()

	n := p.primary(ctx)
	if n == nil {
		return nil
	}

	for s.HasPrefix("::") {
		s.AdvanceN(2)
		method, ok := s.LexWord()
		if !ok {
			p.errorf(s.Pos(), "method call", "missing method name")
			return nil
		}
		call := &ast.CallExpression{Target: n, Method: method.Value}
		if s.Peek() == '(' {
			args, ok := p.list('(', ')', false, "method call arguments")
			if !ok {
				return nil
			}
			call.Args = args
		}
		call.Loc = ast.Loc{Start: start, End: s.Pos()}
		n = call
	}
	return n
}

func (p *parser) primary(ctx exprContext) ast.Node {
	s := p.s
	start := s.Mark()
	isEnd := p.endTest(ctx)

	switch s.Peek() {
	case '"', '\'':
		tok, err := s.LexString()
		if err != nil {
			p.errorf(start.Pos, "string", "%v", err)
			return nil
		}
		return &ast.StringLiteral{Value: tok.Value, Loc: tok.Loc()}

	case '$':
		if tok, ok := s.LexVariable(); ok {
			return &ast.VariableIdentifier{Value: tok.Value, Loc: tok.Loc()}
		}

	case '@':
		if n := p.helper(); n != nil || s.Offset() != start.Offset {
			return n
		}

	case '[':
		args, ok := p.list('[', ']', true, "array")
		if !ok {
			return nil
		}
		return &ast.ArrayExpression{Elements: args, Loc: ast.Loc{Start: start.Pos, End: s.Pos()}}

	case '(':
		return p.arithmetic()
	}

	if tok, ok := s.LexHexUntil(isEnd); ok {
		if tok.Type == lexer.ADDRESS {
			return &ast.AddressLiteral{Value: tok.Value, Loc: tok.Loc()}
		}
		return &ast.BytesLiteral{Value: tok.Value, Loc: tok.Loc()}
	}
	if tok, ok := s.LexNumberUntil(isEnd); ok {
		return &ast.NumberLiteral{Value: tok.Value, Power: tok.Power, TimeUnit: tok.Unit, Loc: tok.Loc()}
	}
	for _, word := range []string{"true", "false"} {
		if s.HasPrefix(word) && isEnd(s.PeekAt(len(word))) {
			s.AdvanceN(len(word))
			return &ast.BoolLiteral{Value: word == "true", Loc: ast.Loc{Start: start.Pos, End: s.Pos()}}
		}
	}
	return p.bareword(ctx)
}

// endTest returns the boundary test literals must satisfy in ctx.
func (p *parser) endTest(ctx exprContext) func(byte) bool {
	if ctx == ctxArith {
		return func(ch byte) bool { return lexer.IsBoundary(ch) || isOperator(ch) }
	}
	return lexer.IsBoundary
}

// bareword reads the least specific primary: any run of characters up to the
// context's terminator. Balanced parentheses belong to the word, so
// transfer(address,uint256) is one bareword.
func (p *parser) bareword(ctx exprContext) ast.Node {
	s := p.s
	start := s.Mark()
	depth := 0

	for !s.EOF() {
		ch := s.Peek()
		if ch == '\n' {
			break
		}
		if depth == 0 {
			if lexer.IsWhitespace(ch) || ch == ')' || s.HasPrefix("::") {
				break
			}
			if ctx != ctxCommand && (ch == ',' || ch == ']') {
				break
			}
			if ctx == ctxArith && isOperator(ch) {
				break
			}
		}
		switch ch {
		case '(':
			depth++
		case ')':
			depth--
		}
		s.Advance()
	}

	if s.Offset() == start.Offset {
		if s.EOF() || s.Peek() == '\n' {
			p.errorf(start.Pos, "", "missing value")
		} else {
			p.errorf(start.Pos, "", "unexpected %q", string(s.Peek()))
			s.Advance()
		}
		return nil
	}
	return &ast.ProbableIdentifier{Value: s.Since(start), Loc: ast.Loc{Start: start.Pos, End: s.Pos()}}
}

// helper parses @name or @name(args). It returns nil without consuming input
// when '@' is not followed by a helper name.
func (p *parser) helper() ast.Node {
	s := p.s
	start := s.Mark()
	tok, ok := s.LexHelperName()
	if !ok {
		return nil
	}
	h := &ast.HelperFunctionExpression{Name: tok.Value}
	if s.Peek() == '(' {
		args, ok := p.list('(', ')', false, "helper arguments")
		if !ok {
			return nil
		}
		h.Args = args
	}
	h.Loc = ast.Loc{Start: start.Pos, End: s.Pos()}
	return h
}

// list parses open elem (, elem)* close. Newlines are allowed between
// elements only when multiline is set.
func (p *parser) list(open, close byte, multiline bool, what string) ([]ast.Node, bool) {
	s := p.s
	invariant.Precondition(s.Peek() == open, "list must start at %q", open)
	s.Advance()

	elems := []ast.Node{}
	for {
		p.skipListSpace(multiline)
		switch {
		case s.Peek() == close:
			s.Advance()
			return elems, true
		case s.EOF() || s.Peek() == '\n':
			p.errorf(s.Pos(), what, "missing '%c'", close)
			return nil, false
		case len(elems) > 0:
			if s.Peek() != ',' {
				p.errorf(s.Pos(), what, "expected ',' or '%c'", close)
				return nil, false
			}
			s.Advance()
			p.skipListSpace(multiline)
		}

		elem := p.expression(ctxList)
		if elem == nil {
			return nil, false
		}
		elems = append(elems, elem)
	}
}

func (p *parser) skipListSpace(multiline bool) {
	if multiline {
		p.s.SkipBlankLines()
		return
	}
	p.s.SkipSpaces()
}

// arithmetic parses ( expr ) on a single line.
func (p *parser) arithmetic() ast.Node {
	s := p.s
	start := s.Mark()
	s.Advance()
	s.SkipSpaces()

	n := p.binary(0)
	if n == nil {
		return nil
	}
	s.SkipSpaces()
	if s.Peek() != ')' {
		p.errorf(s.Pos(), "arithmetic expression", "missing ')'")
		return nil
	}
	s.Advance()

	if bin, ok := n.(*ast.BinaryExpression); ok {
		bin.Loc = ast.Loc{Start: start.Pos, End: s.Pos()}
	}
	return n
}

func isOperator(ch byte) bool {
	return precedence(ch) > 0
}

func precedence(op byte) int {
	switch op {
	case '+', '-':
		return 1
	case '*', '/':
		return 2
	case '^':
		return 3
	default:
		return 0
	}
}

// binary is precedence climbing. '^' is right associative.
func (p *parser) binary(minPrec int) ast.Node {
	s := p.s
	left := p.operand()
	if left == nil {
		return nil
	}

	for {
		m := s.Mark()
		s.SkipSpaces()
		op := s.Peek()
		prec := precedence(op)
		if prec == 0 || prec < minPrec {
			s.Reset(m)
			return left
		}
		s.Advance()
		s.SkipSpaces()

		next := prec + 1
		if op == '^' {
			next = prec
		}
		right := p.binary(next)
		if right == nil {
			return nil
		}
		left = &ast.BinaryExpression{
			Operator: op,
			Left:     left,
			Right:    right,
			Loc:      ast.Loc{Start: left.Location().Start, End: right.Location().End},
		}
	}
}

func (p *parser) operand() ast.Node {
	if p.s.Peek() == '(' {
		return p.arithmetic()
	}
	if p.s.EOF() || p.s.Peek() == '\n' || p.s.Peek() == ')' {
		p.errorf(p.s.Pos(), "arithmetic expression", "missing operand")
		return nil
	}
	return p.expression(ctxArith)
}

func (p *parser) newError(pos ast.Position, context, format string, args ...interface{}) ParseError {
	line := ""
	if i := pos.Line - p.config.startLine; i >= 0 && i < len(p.lines) {
		line = strings.TrimRight(p.lines[i], "\r")
	}
	return ParseError{
		Filename: p.config.filename,
		Position: pos,
		Message:  fmt.Sprintf(format, args...),
		Context:  context,
		Line:     line,
	}
}

func (p *parser) errorf(pos ast.Position, context, format string, args ...interface{}) {
	p.errors = append(p.errors, p.newError(pos, context, format, args...))
}
