package parser

import "github.com/evmcrispr/evml/core/ast"

// ParseTree is the result of a parse: the program built from every line that
// parsed, plus the errors recorded for the lines that did not.
type ParseTree struct {
	Source  []byte
	Program *ast.Program
	Errors  []ParseError
}

// HasErrors reports whether any recoverable error was recorded.
func (t *ParseTree) HasErrors() bool {
	return len(t.Errors) > 0
}

// Err returns the recorded errors as one error, or nil.
func (t *ParseTree) Err() error {
	if len(t.Errors) == 0 {
		return nil
	}
	return ErrorList(t.Errors)
}
