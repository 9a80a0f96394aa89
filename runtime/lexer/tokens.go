package lexer

import (
	"fmt"
	"strings"

	"github.com/evmcrispr/evml/core/ast"
)

// TokenType classifies a literal read by the scanner.
type TokenType int

const (
	ILLEGAL TokenType = iota
	NUMBER
	STRING
	ADDRESS
	BYTES
	VARIABLE
	HELPER
	IDENTIFIER
)

var tokenNames = [...]string{"ILLEGAL", "NUMBER", "STRING", "ADDRESS", "BYTES", "VARIABLE", "HELPER", "IDENTIFIER"}

func (t TokenType) String() string {
	if int(t) < len(tokenNames) {
		return tokenNames[t]
	}
	return fmt.Sprintf("TokenType(%d)", int(t))
}

// Token is one literal with its location.
type Token struct {
	Type  TokenType
	Text  string // raw source text
	Value string // decoded value: string contents, number digits, names

	// Numbers only.
	Power int
	Unit  string

	Start ast.Position
	End   ast.Position
}

// Loc returns the token span.
func (t Token) Loc() ast.Loc { return ast.Loc{Start: t.Start, End: t.End} }

// unitOrder lists the time suffixes of types.TimeUnits, longest first so
// "mo" wins over "m".
var unitOrder = []string{"mo", "s", "m", "h", "d", "w", "y"}

func (s *Scanner) token(typ TokenType, start Mark, value string) Token {
	return Token{Type: typ, Text: s.Since(start), Value: value, Start: start.Pos, End: s.Pos()}
}

// LexNumber reads digits['.'digits][('e'|'E')digits][unit]. The literal must
// end at a boundary; otherwise nothing is consumed and ok is false, leaving
// the text to be read as a bareword (1hive).
func (s *Scanner) LexNumber() (tok Token, ok bool) {
	return s.LexNumberUntil(IsBoundary)
}

// LexNumberUntil is LexNumber with a caller supplied boundary test.
func (s *Scanner) LexNumberUntil(isEnd func(byte) bool) (tok Token, ok bool) {
	start := s.Mark()

	digits := s.readWhile(&isDigit)
	if digits == "" {
		return Token{}, false
	}
	value := digits

	if s.Peek() == '.' && IsDigit(s.PeekAt(1)) {
		s.Advance()
		value += "." + s.readWhile(&isDigit)
	}

	power := 0
	if (s.Peek() == 'e' || s.Peek() == 'E') && IsDigit(s.PeekAt(1)) {
		s.Advance()
		exp := s.readWhile(&isDigit)
		if len(exp) > 4 {
			s.Reset(start)
			return Token{}, false
		}
		for _, d := range exp {
			power = power*10 + int(d-'0')
		}
	}

	unit := ""
	for _, u := range unitOrder {
		if s.HasPrefix(u) && isEnd(s.PeekAt(len(u))) {
			unit = u
			s.AdvanceN(len(u))
			break
		}
	}

	if !isEnd(s.Peek()) {
		s.Reset(start)
		return Token{}, false
	}

	tok = s.token(NUMBER, start, value)
	tok.Power = power
	tok.Unit = unit
	return tok, true
}

// LexHex reads 0x followed by hex digits ending at a boundary. Exactly 40
// digits make an ADDRESS; any other even count makes BYTES. Odd counts are not
// hex literals and nothing is consumed.
func (s *Scanner) LexHex() (Token, bool) {
	return s.LexHexUntil(IsBoundary)
}

// LexHexUntil is LexHex with a caller supplied boundary test.
func (s *Scanner) LexHexUntil(isEnd func(byte) bool) (Token, bool) {
	if !s.HasPrefix("0x") && !s.HasPrefix("0X") {
		return Token{}, false
	}
	start := s.Mark()
	s.AdvanceN(2)
	digits := s.readWhile(&isHexDigit)

	if !isEnd(s.Peek()) || len(digits)%2 != 0 {
		s.Reset(start)
		return Token{}, false
	}

	text := s.Since(start)
	if len(digits) == 40 {
		return s.token(ADDRESS, start, text), true
	}
	return s.token(BYTES, start, text), true
}

// LexString reads a single- or double-quoted string. Escapes \n \t \r \\ and
// an escaped delimiter are decoded; any other escaped character is kept as is.
// A string left open at the end of the line is an error and the scanner stops
// at the newline.
func (s *Scanner) LexString() (Token, error) {
	start := s.Mark()
	quote := s.Peek()
	if quote != '"' && quote != '\'' {
		return Token{}, fmt.Errorf("expected string")
	}
	s.Advance()

	var b strings.Builder
	for {
		ch := s.Peek()
		switch {
		case s.EOF() || ch == '\n':
			return s.token(ILLEGAL, start, b.String()), fmt.Errorf("unterminated string")
		case ch == quote:
			s.Advance()
			return s.token(STRING, start, b.String()), nil
		case ch == '\\' && s.PeekAt(1) != 0 && s.PeekAt(1) != '\n':
			s.Advance()
			esc := s.Peek()
			switch esc {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case 'r':
				b.WriteByte('\r')
			default:
				b.WriteByte(esc)
			}
			s.Advance()
		default:
			m := s.Mark()
			s.Advance()
			b.WriteString(s.Since(m))
		}
	}
}

// LexVariable reads $name. The value includes the '$'.
func (s *Scanner) LexVariable() (Token, bool) {
	if s.Peek() != '$' || s.PeekAt(1) >= 128 || !isVariablePart[s.PeekAt(1)] {
		return Token{}, false
	}
	start := s.Mark()
	s.Advance()
	s.readWhile(&isVariablePart)
	text := s.Since(start)
	return s.token(VARIABLE, start, text), true
}

// LexHelperName reads @name and returns the name without '@'. Arguments are
// left to the parser.
func (s *Scanner) LexHelperName() (Token, bool) {
	if s.Peek() != '@' || s.PeekAt(1) >= 128 || !isHelperStart[s.PeekAt(1)] {
		return Token{}, false
	}
	start := s.Mark()
	s.Advance()
	name := s.readWhile(&isHelperPart)
	return s.token(HELPER, start, name), true
}

// LexCommandName reads a command or module name.
func (s *Scanner) LexCommandName() (Token, bool) {
	if !IsLetter(s.Peek()) {
		return Token{}, false
	}
	start := s.Mark()
	name := s.readWhile(&isCommandPart)
	return s.token(IDENTIFIER, start, name), true
}

// LexWord reads a run of letters, digits, '_' and '-'. Used for option names,
// event names and capture fields.
func (s *Scanner) LexWord() (Token, bool) {
	start := s.Mark()
	word := s.readWhile(&isCommandPart)
	if word == "" {
		return Token{}, false
	}
	return s.token(IDENTIFIER, start, word), true
}

// LexDigits reads a non-negative decimal integer.
func (s *Scanner) LexDigits() (int, bool) {
	digits := s.readWhile(&isDigit)
	if digits == "" || len(digits) > 9 {
		return 0, false
	}
	n := 0
	for _, d := range digits {
		n = n*10 + int(d-'0')
	}
	return n, true
}
