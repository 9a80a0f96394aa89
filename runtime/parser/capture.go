package parser

import (
	"strings"

	"github.com/evmcrispr/evml/core/ast"
	"github.com/evmcrispr/evml/runtime/lexer"
)

// capture parses -> [filter:]Event[(types)][#occurrence] binding+
func (p *parser) capture() *ast.EventCapture {
	s := p.s
	start := s.Mark()
	s.AdvanceN(2)
	s.SkipSpaces()

	c := &ast.EventCapture{}
	fail := func() *ast.EventCapture {
		s.SkipToWhitespace()
		return nil
	}

	filter, ok := p.captureFilter()
	if !ok {
		return fail()
	}
	c.Filter = filter

	event, ok := s.LexCommandName()
	if !ok {
		p.errorf(s.Pos(), "event capture", "missing event name")
		return fail()
	}
	c.Event = event.Value

	if s.Peek() == '(' {
		params, ok := p.eventParams()
		if !ok {
			return fail()
		}
		c.Params = params
	}

	if s.Peek() == '#' {
		s.Advance()
		n, ok := s.LexDigits()
		if !ok {
			p.errorf(s.Pos(), "event capture", "invalid occurrence index")
			return fail()
		}
		c.Occurrence = n
	}

	m := s.Mark()
	s.SkipSpaces()
	if s.Peek() != ':' && s.Peek() != '$' {
		s.Reset(m)
		p.errorf(s.Pos(), "event capture", "missing capture binding")
		p.errors[len(p.errors)-1].Suggestion = "bind a value to a variable, e.g. -> " + c.Event + " :0 $value"
		return fail()
	}

	for {
		b, ok := p.captureBinding()
		if !ok {
			return fail()
		}
		c.Bindings = append(c.Bindings, b)

		m := s.Mark()
		s.SkipSpaces()
		if s.Peek() != ':' && s.Peek() != '$' {
			s.Reset(m)
			break
		}
	}

	c.Loc = ast.Loc{Start: start.Pos, End: s.Pos()}
	return c
}

// captureFilter parses the optional $var:, 0xaddress: or @helper: prefix.
func (p *parser) captureFilter() (ast.Node, bool) {
	s := p.s
	var filter ast.Node

	switch {
	case s.Peek() == '$':
		if tok, ok := s.LexVariable(); ok {
			filter = &ast.VariableIdentifier{Value: tok.Value, Loc: tok.Loc()}
		}
	case s.HasPrefix("0x"):
		if tok, ok := s.LexHex(); ok && tok.Type == lexer.ADDRESS {
			filter = &ast.AddressLiteral{Value: tok.Value, Loc: tok.Loc()}
		}
	case s.Peek() == '@':
		filter = p.helper()
	default:
		return nil, true
	}

	if filter == nil {
		p.errorf(s.Pos(), "event capture", "invalid event filter")
		return nil, false
	}
	if s.Peek() != ':' || s.PeekAt(1) == ':' {
		p.errorf(s.Pos(), "event capture", "expected ':' after event filter")
		return nil, false
	}
	s.Advance()
	return filter, true
}

// eventParams parses an inline (type [indexed], ...) list.
func (p *parser) eventParams() ([]ast.EventParam, bool) {
	s := p.s
	open := s.Pos()
	s.Advance()

	var raw strings.Builder
	depth := 0
	for {
		ch := s.Peek()
		if s.EOF() || ch == '\n' {
			p.errorf(open, "event parameter types", "missing ')'")
			return nil, false
		}
		if ch == ')' && depth == 0 {
			s.Advance()
			break
		}
		switch ch {
		case '(':
			depth++
		case ')':
			depth--
		}
		raw.WriteByte(ch)
		s.Advance()
	}

	params := []ast.EventParam{}
	text := strings.TrimSpace(raw.String())
	if text == "" {
		return params, true
	}
	for _, part := range splitTopLevel(text) {
		fields := strings.Fields(part)
		// type | type indexed | type name | type indexed name
		valid := len(fields) >= 1 && len(fields) <= 3 && (len(fields) < 3 || fields[1] == "indexed")
		if !valid {
			p.errorf(open, "event parameter types", "invalid parameter %q", strings.TrimSpace(part))
			return nil, false
		}
		param := ast.EventParam{Type: fields[0], Indexed: len(fields) > 1 && fields[1] == "indexed"}
		if len(fields) == 3 || (len(fields) == 2 && !param.Indexed) {
			param.Name = fields[len(fields)-1]
		}
		params = append(params, param)
	}
	return params, true
}

// splitTopLevel splits on commas outside parentheses.
func splitTopLevel(s string) []string {
	var parts []string
	depth, last := 0, 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
		case ',':
			if depth == 0 {
				parts = append(parts, s[last:i])
				last = i + 1
			}
		}
	}
	return append(parts, s[last:])
}

// captureBinding parses [:selector] $var.
func (p *parser) captureBinding() (*ast.CaptureBinding, bool) {
	s := p.s
	b := &ast.CaptureBinding{}
	start := s.Pos()

	if s.Peek() == ':' {
		s.Advance()
		switch {
		case lexer.IsDigit(s.Peek()):
			n, ok := s.LexDigits()
			if !ok {
				p.errorf(s.Pos(), "capture selector", "invalid index")
				return nil, false
			}
			b.Path = []int{n}
		case lexer.IsLetter(s.Peek()) || s.Peek() == '_':
			field, _ := s.LexWord()
			b.Field = field.Value
		default:
			p.errorf(s.Pos(), "capture selector", "expected field name or index")
			return nil, false
		}

		for s.Peek() == ':' && lexer.IsDigit(s.PeekAt(1)) {
			s.Advance()
			n, ok := s.LexDigits()
			if !ok {
				p.errorf(s.Pos(), "capture selector", "invalid index")
				return nil, false
			}
			b.Path = append(b.Path, n)
		}
		s.SkipSpaces()
	}

	tok, ok := s.LexVariable()
	if !ok {
		p.errorf(s.Pos(), "event capture", "expected variable after capture selector")
		return nil, false
	}
	b.Variable = tok.Value
	b.Loc = ast.Loc{Start: start, End: s.Pos()}
	return b, true
}
