package lexer

// ASCII lookup tables. Callers bounds-check first:
//
//	if ch < 128 && isDigit[ch] { ... }
//
// Non-ASCII bytes never belong to a token class except barewords and string
// contents, which the parser consumes byte-wise.
var (
	isWhitespace   [128]bool // space, tab, carriage return, form feed (not newline)
	isLetter       [128]bool // a-z, A-Z
	isDigit        [128]bool // 0-9
	isHexDigit     [128]bool // 0-9, a-f, A-F
	isCommandPart  [128]bool // letter, digit, _ or -
	isVariablePart [128]bool // letter, digit, _, . or -
	isHelperStart  [128]bool // letter or _
	isHelperPart   [128]bool // letter, digit, _ or .
	isBoundary     [128]bool // characters that may end a literal
)

func init() {
	for i := 0; i < 128; i++ {
		ch := byte(i)

		isWhitespace[i] = ch == ' ' || ch == '\t' || ch == '\r' || ch == '\f'
		isLetter[i] = ('a' <= ch && ch <= 'z') || ('A' <= ch && ch <= 'Z')
		isDigit[i] = '0' <= ch && ch <= '9'
		isHexDigit[i] = isDigit[i] || ('a' <= ch && ch <= 'f') || ('A' <= ch && ch <= 'F')

		isCommandPart[i] = isLetter[i] || isDigit[i] || ch == '_' || ch == '-'
		isVariablePart[i] = isLetter[i] || isDigit[i] || ch == '_' || ch == '.' || ch == '-'
		isHelperStart[i] = isLetter[i] || ch == '_'
		isHelperPart[i] = isLetter[i] || isDigit[i] || ch == '_' || ch == '.'

		isBoundary[i] = isWhitespace[i] || ch == 0 || ch == '\n' ||
			ch == ',' || ch == ')' || ch == ']' || ch == ':'
	}
}

// IsWhitespace reports whether ch separates tokens on a line.
func IsWhitespace(ch byte) bool { return ch < 128 && isWhitespace[ch] }

// IsDigit reports whether ch is an ASCII digit.
func IsDigit(ch byte) bool { return ch < 128 && isDigit[ch] }

// IsLetter reports whether ch is an ASCII letter.
func IsLetter(ch byte) bool { return ch < 128 && isLetter[ch] }

// IsBoundary reports whether ch may follow a complete literal. The NUL byte
// stands for end of input.
func IsBoundary(ch byte) bool { return ch < 128 && isBoundary[ch] }

// IsCommandName reports whether s is a valid command name.
func IsCommandName(s string) bool {
	if s == "" || !IsLetter(s[0]) {
		return false
	}
	for i := 1; i < len(s); i++ {
		if s[i] >= 128 || !isCommandPart[s[i]] {
			return false
		}
	}
	return true
}
