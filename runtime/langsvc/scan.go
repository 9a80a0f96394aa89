package langsvc

import (
	"strings"
	"unicode/utf8"
)

// token is one top-level element of a command line.
type token struct {
	text  string
	start int // byte column
}

// lineScan is a lexical view of a command line up to the cursor. It is
// deliberately forgiving: it never fails on half-typed input.
type lineScan struct {
	tokens   []token // top-level tokens, the word under the cursor included
	trailing bool    // the prefix ends with whitespace
	comment  bool    // the cursor sits in a comment

	// innermost helper call still open at the cursor
	helper      string
	helperStart int
	helperArg   int // index of the argument under the cursor
}

// lineAt returns line (1-based) of text, or "".
func lineAt(text string, line int) string {
	lines := strings.Split(text, "\n")
	if line < 1 || line > len(lines) {
		return ""
	}
	return strings.TrimRight(lines[line-1], "\r")
}

// prefixAt cuts line at col, clamped to the line length.
func prefixAt(line string, col int) string {
	if col < 0 {
		return ""
	}
	if col >= len(line) {
		return line
	}
	for col > 0 && !utf8.RuneStart(line[col]) {
		col--
	}
	return line[:col]
}

type frame struct {
	open   byte
	helper string
	start  int
	commas int
}

// scanLine splits prefix into top-level tokens and tracks open brackets.
func scanLine(prefix string) lineScan {
	var (
		sc    lineScan
		stack []frame
		cur   strings.Builder
		start = -1
		quote byte
	)
	flush := func() {
		if start >= 0 {
			sc.tokens = append(sc.tokens, token{text: cur.String(), start: start})
		}
		cur.Reset()
		start = -1
	}

	for i := 0; i < len(prefix); i++ {
		ch := prefix[i]
		if quote != 0 {
			cur.WriteByte(ch)
			if ch == '\\' && i+1 < len(prefix) {
				i++
				cur.WriteByte(prefix[i])
			} else if ch == quote {
				quote = 0
			}
			continue
		}
		if len(stack) == 0 && (ch == ' ' || ch == '\t') {
			flush()
			continue
		}
		if len(stack) == 0 && ch == '#' && start < 0 {
			sc.comment = true
			return finish(sc, stack, true)
		}
		if start < 0 {
			start = i
		}
		cur.WriteByte(ch)
		switch ch {
		case '"', '\'':
			quote = ch
		case '(', '[':
			f := frame{open: ch, start: i}
			if ch == '(' {
				f.helper = helperBefore(prefix[:i])
			}
			stack = append(stack, f)
		case ')', ']':
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		case ',':
			if len(stack) > 0 {
				stack[len(stack)-1].commas++
			}
		}
	}
	trailing := start < 0 && len(prefix) > 0
	flush()
	return finish(sc, stack, trailing)
}

func finish(sc lineScan, stack []frame, trailing bool) lineScan {
	sc.trailing = trailing
	for i := len(stack) - 1; i >= 0; i-- {
		if stack[i].open == '(' && stack[i].helper != "" {
			sc.helper = stack[i].helper
			sc.helperStart = stack[i].start
			sc.helperArg = stack[i].commas
			break
		}
	}
	return sc
}

// helperBefore returns the helper name written right before an opening
// parenthesis, "" when there is none.
func helperBefore(s string) string {
	i := len(s)
	for i > 0 && isHelperPart(s[i-1]) {
		i--
	}
	if i == len(s) || i == 0 || s[i-1] != '@' {
		return ""
	}
	return s[i:]
}

func isHelperPart(ch byte) bool {
	return ch == '_' || ch == '.' || ch >= '0' && ch <= '9' || ch >= 'a' && ch <= 'z' || ch >= 'A' && ch <= 'Z'
}

// word returns the partial word under the cursor: the last token unless the
// prefix ends with whitespace.
func (sc lineScan) word() string {
	if sc.trailing || len(sc.tokens) == 0 {
		return ""
	}
	return sc.tokens[len(sc.tokens)-1].text
}

// atCommandName reports whether the cursor is on the first word of the line.
func (sc lineScan) atCommandName() bool {
	return len(sc.tokens) == 0 || (len(sc.tokens) == 1 && !sc.trailing)
}

// commandName is the first token, module prefix included.
func (sc lineScan) commandName() string {
	if len(sc.tokens) == 0 {
		return ""
	}
	return sc.tokens[0].text
}

// argIndex counts the positional arguments before the cursor, skipping
// options and their values.
func (sc lineScan) argIndex() (index int, inOption bool) {
	if len(sc.tokens) == 0 {
		return 0, false
	}
	args := sc.tokens[1:]
	if !sc.trailing && len(args) > 0 {
		args = args[:len(args)-1]
	}
	optValue := false
	for _, t := range args {
		switch {
		case strings.HasPrefix(t.text, "->"):
			return index, true
		case strings.HasPrefix(t.text, "--"):
			optValue = true
		case optValue:
			optValue = false
		default:
			index++
		}
	}
	return index, optValue
}

// splitCommandName splits "module:name".
func splitCommandName(s string) (mod, name string) {
	if i := strings.IndexByte(s, ':'); i > 0 {
		return s[:i], s[i+1:]
	}
	return "", s
}
