package parser

// ParserOpt configures a parse.
type ParserOpt func(*ParserConfig)

// ParserConfig holds parser configuration.
type ParserConfig struct {
	startLine     int
	recoverBlocks bool
	filename      string
}

// WithStartLine numbers the first line of the input as line instead of 1.
// Used when re-parsing a single line cut out of a larger document.
func WithStartLine(line int) ParserOpt {
	return func(c *ParserConfig) {
		c.startLine = line
	}
}

// WithRecoverBlocks closes blocks left open at end of input and records a
// recoverable error instead of failing the whole parse. Editors parse
// half-typed text this way.
func WithRecoverBlocks() ParserOpt {
	return func(c *ParserConfig) {
		c.recoverBlocks = true
	}
}

// WithFilename sets the file name reported in parse errors.
func WithFilename(name string) ParserOpt {
	return func(c *ParserConfig) {
		c.filename = name
	}
}
