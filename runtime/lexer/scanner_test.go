package lexer

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evmcrispr/evml/core/ast"
)

func TestScannerPositions(t *testing.T) {
	s := NewScanner([]byte("ab\ncé d"), 1)
	s.AdvanceN(2)
	assert.Equal(t, ast.Position{Line: 1, Col: 2}, s.Pos())
	s.Advance()
	assert.Equal(t, ast.Position{Line: 2, Col: 0}, s.Pos())
	s.AdvanceN(2)
	assert.Equal(t, ast.Position{Line: 2, Col: 2}, s.Pos(), "multi-byte rune is one column")
	assert.Equal(t, 6, s.Offset())
	s.SkipSpaces()
	assert.Equal(t, byte('d'), s.Peek())
	s.Advance()
	assert.True(t, s.EOF())
	assert.Equal(t, byte(0), s.Peek())
}

func TestScannerStartLine(t *testing.T) {
	s := NewScanner([]byte("x"), 7)
	assert.Equal(t, ast.Position{Line: 7, Col: 0}, s.Pos())
}

func TestScannerMarkReset(t *testing.T) {
	s := NewScanner([]byte("hello\nworld"), 1)
	m := s.Mark()
	s.AdvanceN(8)
	assert.Equal(t, "hello\nwo", s.Since(m))
	s.Reset(m)
	assert.Equal(t, ast.Position{Line: 1, Col: 0}, s.Pos())
	assert.True(t, s.HasPrefix("hello"))
}

func TestAtLineEnd(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"", true},
		{"   ", true},
		{"  \nnext", true},
		{"  # comment", true},
		{"  x", false},
	}
	for _, tt := range tests {
		s := NewScanner([]byte(tt.input), 1)
		assert.Equal(t, tt.want, s.AtLineEnd(), "input %q", tt.input)
	}
}

func TestSkipBlankLines(t *testing.T) {
	s := NewScanner([]byte("\n  # c\n\t\n  set"), 1)
	s.SkipBlankLines()
	assert.Equal(t, ast.Position{Line: 4, Col: 2}, s.Pos())
}

func TestLexNumber(t *testing.T) {
	tests := []struct {
		name  string
		input string
		ok    bool
		want  Token
		rest  string
	}{
		{
			name:  "integer",
			input: "42 rest",
			ok:    true,
			want:  Token{Type: NUMBER, Text: "42", Value: "42", Start: ast.Position{Line: 1}, End: ast.Position{Line: 1, Col: 2}},
			rest:  " rest",
		},
		{
			name:  "decimal with exponent",
			input: "1.5e18",
			ok:    true,
			want:  Token{Type: NUMBER, Text: "1.5e18", Value: "1.5", Power: 18, Start: ast.Position{Line: 1}, End: ast.Position{Line: 1, Col: 6}},
		},
		{
			name:  "month unit",
			input: "3mo)",
			ok:    true,
			want:  Token{Type: NUMBER, Text: "3mo", Value: "3", Unit: "mo", Start: ast.Position{Line: 1}, End: ast.Position{Line: 1, Col: 3}},
			rest:  ")",
		},
		{
			name:  "minute unit",
			input: "5m,",
			ok:    true,
			want:  Token{Type: NUMBER, Text: "5m", Value: "5", Unit: "m", Start: ast.Position{Line: 1}, End: ast.Position{Line: 1, Col: 2}},
			rest:  ",",
		},
		{
			name:  "exponent and unit",
			input: "2e1d",
			ok:    true,
			want:  Token{Type: NUMBER, Text: "2e1d", Value: "2", Power: 1, Unit: "d", Start: ast.Position{Line: 1}, End: ast.Position{Line: 1, Col: 4}},
		},
		{name: "word starting with digit", input: "1hive", ok: false, rest: "1hive"},
		{name: "unknown unit", input: "10months", ok: false, rest: "10months"},
		{name: "not a number", input: "abc", ok: false, rest: "abc"},
		{name: "hex prefix", input: "0x12", ok: false, rest: "0x12"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewScanner([]byte(tt.input), 1)
			got, ok := s.LexNumber()
			require.Equal(t, tt.ok, ok)
			if ok {
				if diff := cmp.Diff(tt.want, got); diff != "" {
					t.Errorf("token mismatch (-want +got):\n%s", diff)
				}
			}
			assert.Equal(t, tt.rest, string(s.Input()[s.Offset():]))
		})
	}
}

func TestLexHex(t *testing.T) {
	addr := "0x44fA8E6f47987339850636F88629646662444217"

	s := NewScanner([]byte(addr+"::balanceOf"), 1)
	tok, ok := s.LexHex()
	require.True(t, ok)
	assert.Equal(t, ADDRESS, tok.Type)
	assert.Equal(t, addr, tok.Value)
	assert.True(t, s.HasPrefix("::"))

	s = NewScanner([]byte("0xa9059cbb "), 1)
	tok, ok = s.LexHex()
	require.True(t, ok)
	assert.Equal(t, BYTES, tok.Type)

	s = NewScanner([]byte("0xabc"), 1)
	_, ok = s.LexHex()
	assert.False(t, ok, "odd length")
	assert.Equal(t, 0, s.Offset())

	s = NewScanner([]byte("0xzz"), 1)
	_, ok = s.LexHex()
	assert.False(t, ok)
}

func TestLexString(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr string
	}{
		{name: "double", input: `"hello world"`, want: "hello world"},
		{name: "single", input: `'it''`, want: "it"},
		{name: "escapes", input: `"a\"b\nc\\"`, want: "a\"b\nc\\"},
		{name: "unicode", input: `"héllo"`, want: "héllo"},
		{name: "unterminated", input: "\"abc\nnext", wantErr: "unterminated string"},
		{name: "unterminated at eof", input: `'abc`, wantErr: "unterminated string"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewScanner([]byte(tt.input), 1)
			tok, err := s.LexString()
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, STRING, tok.Type)
			assert.Equal(t, tt.want, tok.Value)
		})
	}
}

func TestLexVariableAndHelper(t *testing.T) {
	s := NewScanner([]byte("$my.var-1 "), 1)
	tok, ok := s.LexVariable()
	require.True(t, ok)
	assert.Equal(t, "$my.var-1", tok.Value)

	s = NewScanner([]byte("$ "), 1)
	_, ok = s.LexVariable()
	assert.False(t, ok)

	s = NewScanner([]byte("@token.amount(x)"), 1)
	tok, ok = s.LexHelperName()
	require.True(t, ok)
	assert.Equal(t, "token.amount", tok.Value)
	assert.Equal(t, "@token.amount", tok.Text)
	assert.Equal(t, byte('('), s.Peek())
}

func TestLexCommandName(t *testing.T) {
	s := NewScanner([]byte("new-token:x"), 1)
	tok, ok := s.LexCommandName()
	require.True(t, ok)
	assert.Equal(t, "new-token", tok.Value)

	s = NewScanner([]byte("1abc"), 1)
	_, ok = s.LexCommandName()
	assert.False(t, ok)

	assert.True(t, IsCommandName("exec"))
	assert.False(t, IsCommandName("_exec"))
	assert.False(t, IsCommandName("ex ec"))
}

func TestLexDigits(t *testing.T) {
	s := NewScanner([]byte("12:3"), 1)
	n, ok := s.LexDigits()
	require.True(t, ok)
	assert.Equal(t, 12, n)

	s = NewScanner([]byte("x"), 1)
	_, ok = s.LexDigits()
	assert.False(t, ok)
}
