package parser

import (
	"fmt"
	"strings"

	"github.com/evmcrispr/evml/core/ast"
)

// ParseError is a positioned syntax error.
type ParseError struct {
	Filename string
	Position ast.Position

	Message    string // "missing ')'"
	Context    string // what was being parsed: "helper arguments"
	Suggestion string // optional fix

	Line string // source line the error points into, for the snippet
}

// Short renders "line:col: message", prefixed by the file name when known.
func (e ParseError) Short() string {
	loc := e.Position.String()
	if e.Filename != "" {
		loc = e.Filename + ":" + loc
	}
	if e.Context != "" {
		return fmt.Sprintf("%s: %s in %s", loc, e.Message, e.Context)
	}
	return fmt.Sprintf("%s: %s", loc, e.Message)
}

// Error renders the short form followed by a code snippet.
func (e ParseError) Error() string {
	var b strings.Builder
	b.WriteString(e.Short())
	if snippet := e.createCodeSnippet(); snippet != "" {
		b.WriteString("\n")
		b.WriteString(snippet)
	}
	if e.Suggestion != "" {
		b.WriteString("\n   = help: ")
		b.WriteString(e.Suggestion)
	}
	return b.String()
}

// createCodeSnippet renders the offending line with a caret under the column:
//
//	 --> 3:7
//	  |
//	3 | exec 0x12 "unterminated
//	  |           ^
func (e ParseError) createCodeSnippet() string {
	if e.Position.Line == 0 {
		return ""
	}

	var snippet strings.Builder
	fmt.Fprintf(&snippet, "  --> %s\n", e.Position)
	snippet.WriteString("   |\n")
	fmt.Fprintf(&snippet, "%2d | %s\n", e.Position.Line, e.Line)
	snippet.WriteString("   | ")
	if e.Position.Col <= len([]rune(e.Line)) {
		snippet.WriteString(strings.Repeat(" ", e.Position.Col) + "^")
	}
	return snippet.String()
}

// ErrorList aggregates recoverable parse errors.
type ErrorList []ParseError

func (l ErrorList) Error() string {
	switch len(l) {
	case 0:
		return "no errors"
	case 1:
		return l[0].Short()
	}
	msgs := make([]string, len(l))
	for i, e := range l {
		msgs[i] = e.Short()
	}
	return fmt.Sprintf("%d parse errors:\n  %s", len(l), strings.Join(msgs, "\n  "))
}
