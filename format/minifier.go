package format

import (
	"strings"

	"scorelang/lexer"
)

var minifySpaceBefore = map[lexer.Kind]bool{
	lexer.NOTE: true, lexer.REST: true, lexer.CHORD_START: true,
}

// Minify strips whitespace to the minimum needed to keep the source
// re-tokenizable: newlines only before CONTEXT_DELIM, STAVE_DECL and
// YAML_CONTENT tokens, single spaces only between adjacent NOTE/REST/CHORD_START
// tokens, everything else elided.
func Minify(source string) string {
	toks, _ := lexer.Tokenize(source)

	var sb strings.Builder
	var lastKind lexer.Kind
	wroteAnything := false

	for _, t := range toks {
		switch t.Kind {
		case lexer.WHITESPACE, lexer.NEWLINE, lexer.COMMENT, lexer.EOF:
			continue
		case lexer.CONTEXT_DELIM, lexer.STAVE_DECL, lexer.YAML_CONTENT:
			if wroteAnything {
				sb.WriteByte('\n')
			}
			sb.WriteString(t.Text)
		default:
			if wroteAnything && minifySpaceBefore[lastKind] && minifySpaceBefore[t.Kind] {
				sb.WriteByte(' ')
			}
			sb.WriteString(t.Text)
		}
		lastKind = t.Kind
		wroteAnything = true
	}

	sb.WriteByte('\n')
	return sb.String()
}
