// Package lexer provides the character scanner the evml parser is built on.
//
// evml is line oriented and context sensitive (a run of characters can be a
// number, a bareword or the start of a helper depending on what follows), so
// the parser drives the scanner directly instead of consuming a token stream.
// The scanner owns all line/column bookkeeping and offers readers for the
// lexical primitives: numbers, strings, hex literals, variables, helper and
// command names.
package lexer

import (
	"unicode/utf8"

	"github.com/evmcrispr/evml/core/ast"
)

// Scanner walks script text keeping track of the current line and column.
// Lines are 1-based (or start at the configured first line); columns count
// characters from 0.
type Scanner struct {
	input  []byte
	offset int
	line   int
	col    int
}

// Mark is a saved scanner position.
type Mark struct {
	Offset int
	Pos    ast.Position
}

// NewScanner creates a scanner over input whose first line is startLine.
func NewScanner(input []byte, startLine int) *Scanner {
	if startLine < 1 {
		startLine = 1
	}
	return &Scanner{input: input, line: startLine}
}

// Input returns the scanned text.
func (s *Scanner) Input() []byte { return s.input }

// Offset returns the current byte offset.
func (s *Scanner) Offset() int { return s.offset }

// Pos returns the current position.
func (s *Scanner) Pos() ast.Position { return ast.Position{Line: s.line, Col: s.col} }

// Mark saves the current position.
func (s *Scanner) Mark() Mark { return Mark{Offset: s.offset, Pos: s.Pos()} }

// Reset restores a saved position.
func (s *Scanner) Reset(m Mark) {
	s.offset = m.Offset
	s.line = m.Pos.Line
	s.col = m.Pos.Col
}

// EOF reports whether the whole input was consumed.
func (s *Scanner) EOF() bool { return s.offset >= len(s.input) }

// Peek returns the current byte, or 0 at end of input.
func (s *Scanner) Peek() byte { return s.PeekAt(0) }

// PeekAt returns the byte n positions ahead, or 0 past end of input.
func (s *Scanner) PeekAt(n int) byte {
	if s.offset+n >= len(s.input) {
		return 0
	}
	return s.input[s.offset+n]
}

// HasPrefix reports whether the remaining input starts with p.
func (s *Scanner) HasPrefix(p string) bool {
	if len(s.input)-s.offset < len(p) {
		return false
	}
	return string(s.input[s.offset:s.offset+len(p)]) == p
}

// Advance moves past one character.
func (s *Scanner) Advance() {
	if s.offset >= len(s.input) {
		return
	}

	ch := s.input[s.offset]
	if ch < utf8.RuneSelf {
		s.offset++
		if ch == '\n' {
			s.line++
			s.col = 0
		} else {
			s.col++
		}
		return
	}

	_, size := utf8.DecodeRune(s.input[s.offset:])
	if size <= 0 {
		size = 1
	}
	s.offset += size
	s.col++
}

// AdvanceN moves past n characters.
func (s *Scanner) AdvanceN(n int) {
	for i := 0; i < n; i++ {
		s.Advance()
	}
}

// Slice returns the text between two marks.
func (s *Scanner) Slice(from, to Mark) string {
	return string(s.input[from.Offset:to.Offset])
}

// Since returns the text from m to the current position.
func (s *Scanner) Since(m Mark) string {
	return string(s.input[m.Offset:s.offset])
}

// SkipSpaces skips spaces and tabs on the current line and reports whether
// anything was skipped.
func (s *Scanner) SkipSpaces() bool {
	start := s.offset
	for s.offset < len(s.input) && IsWhitespace(s.input[s.offset]) {
		s.Advance()
	}
	return s.offset > start
}

// SkipComment skips a '#' comment up to (not including) the newline.
func (s *Scanner) SkipComment() bool {
	if s.Peek() != '#' {
		return false
	}
	s.SkipToLineEnd()
	return true
}

// SkipToLineEnd moves to the next newline (or end of input) without consuming it.
func (s *Scanner) SkipToLineEnd() {
	for s.offset < len(s.input) && s.input[s.offset] != '\n' {
		s.Advance()
	}
}

// SkipToWhitespace moves to the next whitespace, newline or end of input.
// Used by the parser to resynchronise after a bad argument.
func (s *Scanner) SkipToWhitespace() {
	for s.offset < len(s.input) {
		ch := s.input[s.offset]
		if ch == '\n' || IsWhitespace(ch) {
			return
		}
		s.Advance()
	}
}

// AtLineEnd reports whether only spaces and an optional comment remain on the
// current line. It does not move the scanner.
func (s *Scanner) AtLineEnd() bool {
	i := s.offset
	for i < len(s.input) && IsWhitespace(s.input[i]) {
		i++
	}
	return i >= len(s.input) || s.input[i] == '\n' || s.input[i] == '#'
}

// SkipBlankLines skips whitespace, comments and newlines.
func (s *Scanner) SkipBlankLines() {
	for {
		s.SkipSpaces()
		s.SkipComment()
		if s.Peek() != '\n' {
			return
		}
		s.Advance()
	}
}

// readWhile consumes ASCII bytes accepted by table and returns them.
func (s *Scanner) readWhile(table *[128]bool) string {
	start := s.offset
	for s.offset < len(s.input) {
		ch := s.input[s.offset]
		if ch >= 128 || !table[ch] {
			break
		}
		s.Advance()
	}
	return string(s.input[start:s.offset])
}
