// Package format implements the pretty-printer and minifier, both built
// directly over the token stream rather than the AST. Each uses a
// strings.Builder accumulator, small per-construct helper functions, and a
// final pass that joins pieces with the right separators.
package format

import (
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"scorelang/lexer"
)

// Options controls formatter output. Zero values are replaced by defaults
// in Format.
type Options struct {
	IndentSize             int
	NotesPerLine           int
	SpaceAroundConnectives bool
}

func withDefaults(opts Options) Options {
	if opts.IndentSize <= 0 {
		opts.IndentSize = 2
	}
	if opts.NotesPerLine <= 0 {
		opts.NotesPerLine = 8
	}
	return opts
}

// Format re-renders source in canonical style: context blocks re-dumped
// with canonical key ordering, stave bodies wrapped every NotesPerLine
// notes, connectives rendered without surrounding space unless requested.
// Format is idempotent: Format(Format(s)) == Format(s).
func Format(source string, opts Options) string {
	opts = withDefaults(opts)
	toks, _ := lexer.Tokenize(source)

	var sb strings.Builder
	wroteAnything := false
	i := 0
	for i < len(toks) {
		t := toks[i]
		switch t.Kind {
		case lexer.CONTEXT_DELIM:
			if wroteAnything {
				sb.WriteByte('\n')
			}
			wroteAnything = true
			i++
			var lines []string
			for i < len(toks) && toks[i].Kind != lexer.CONTEXT_DELIM {
				if toks[i].Kind == lexer.YAML_CONTENT {
					lines = append(lines, toks[i].Text)
				}
				i++
			}
			if i < len(toks) {
				i++ // consume closing delimiter
			}
			sb.WriteString("---\n")
			if body := redumpContext(strings.Join(lines, "\n")); body != "" {
				sb.WriteString(body)
				sb.WriteByte('\n')
			}
			sb.WriteString("---\n")

		case lexer.STAVE_DECL:
			if wroteAnything {
				sb.WriteByte('\n')
			}
			wroteAnything = true
			sb.WriteString(t.Text)
			i++
			if i < len(toks) && toks[i].Kind == lexer.STAVE_BODY_START {
				i++
			}
			sb.WriteString(" { ")
			var body string
			body, i = formatBody(toks, i, lexer.STAVE_BODY_END, opts)
			sb.WriteString(body)
			if i < len(toks) && toks[i].Kind == lexer.STAVE_BODY_END {
				i++
			}
			sb.WriteString(" }")
			if i < len(toks) && toks[i].Kind == lexer.ANNOTATION_BLOCK_START {
				i++
				sb.WriteString(" { ")
				var abody string
				abody, i = formatBody(toks, i, lexer.ANNOTATION_BLOCK_END, opts)
				sb.WriteString(abody)
				if i < len(toks) && toks[i].Kind == lexer.ANNOTATION_BLOCK_END {
					i++
				}
				sb.WriteString(" }")
			}
			sb.WriteByte('\n')

		case lexer.COMMENT:
			if wroteAnything {
				sb.WriteByte('\n')
			}
			wroteAnything = true
			sb.WriteString(t.Text)
			sb.WriteByte('\n')
			i++

		default:
			i++
		}
	}

	out := sb.String()
	if !strings.HasSuffix(out, "\n") {
		out += "\n"
	}
	return out
}

// --- stave / annotation body rendering ---

func formatBody(toks []lexer.Token, start int, end lexer.Kind, opts Options) (string, int) {
	var atoms [][]lexer.Token
	i := start
	for i < len(toks) && toks[i].Kind != end {
		if toks[i].Kind == lexer.WHITESPACE || toks[i].Kind == lexer.NEWLINE {
			i++
			continue
		}
		var atom []lexer.Token
		atom, i = consumeAtom(toks, i)
		atoms = append(atoms, stripTrivia(atom))
	}

	indent := strings.Repeat(" ", opts.IndentSize*2)
	var sb strings.Builder
	noteCount := 0
	for idx, atom := range atoms {
		connective := isConnectiveAtom(atom)
		if idx > 0 {
			prevConnective := isConnectiveAtom(atoms[idx-1])
			switch {
			case !connective && noteCount > 0 && noteCount%opts.NotesPerLine == 0:
				sb.WriteByte('\n')
				sb.WriteString(indent)
			case connective || prevConnective:
				if opts.SpaceAroundConnectives {
					sb.WriteByte(' ')
				}
			default:
				sb.WriteByte(' ')
			}
		}
		sb.WriteString(renderAtom(atom))
		if !connective {
			noteCount++
		}
	}
	return sb.String(), i
}

// consumeAtom reads one visual unit starting at i: a note plus its
// trailing octave/duration/fingering modifiers, a rest plus duration, a
// bracketed chord, a parenthesized beam group, an inline function call, a
// grace note, or a single bare token (connective, volta, repeat mark).
func consumeAtom(toks []lexer.Token, i int) ([]lexer.Token, int) {
	switch toks[i].Kind {
	case lexer.NOTE:
		j := i + 1
		for j < len(toks) && isNoteModifier(toks[j].Kind) {
			j++
		}
		return toks[i:j], j
	case lexer.REST:
		j := i + 1
		if j < len(toks) && toks[j].Kind == lexer.DURATION {
			j++
		}
		return toks[i:j], j
	case lexer.GRACE:
		j := i + 1
		if j < len(toks) && toks[j].Kind == lexer.NOTE {
			j++
			for j < len(toks) && isNoteModifier(toks[j].Kind) {
				j++
			}
		}
		return toks[i:j], j
	case lexer.CHORD_START:
		j := i + 1
		for j < len(toks) && toks[j].Kind != lexer.CHORD_END {
			j++
		}
		if j < len(toks) {
			j++
		}
		for j < len(toks) && isNoteModifier(toks[j].Kind) {
			j++
		}
		return toks[i:j], j
	case lexer.BEAM_START:
		j := i + 1
		depth := 1
		for j < len(toks) && depth > 0 {
			switch toks[j].Kind {
			case lexer.PAREN_OPEN:
				depth++
			case lexer.PAREN_CLOSE:
				depth--
			}
			j++
		}
		return toks[i:j], j
	case lexer.FUNCTION:
		j := i + 1
		if j < len(toks) && toks[j].Kind == lexer.PAREN_OPEN {
			depth := 1
			j++
			for j < len(toks) && depth > 0 {
				switch toks[j].Kind {
				case lexer.PAREN_OPEN:
					depth++
				case lexer.PAREN_CLOSE:
					depth--
				}
				j++
			}
		}
		return toks[i:j], j
	default:
		return toks[i : i+1], i + 1
	}
}

func isNoteModifier(k lexer.Kind) bool {
	return k == lexer.OCTAVE_MOD || k == lexer.DURATION || k == lexer.FINGERING
}

func isConnectiveAtom(atom []lexer.Token) bool {
	if len(atom) != 1 {
		return false
	}
	switch atom[0].Kind {
	case lexer.TIE, lexer.SLUR, lexer.PEDAL:
		return true
	default:
		return false
	}
}

func stripTrivia(atom []lexer.Token) []lexer.Token {
	out := make([]lexer.Token, 0, len(atom))
	for _, t := range atom {
		if t.Kind == lexer.WHITESPACE || t.Kind == lexer.NEWLINE || t.Kind == lexer.COMMENT {
			continue
		}
		out = append(out, t)
	}
	return out
}

func renderAtom(atom []lexer.Token) string {
	var sb strings.Builder
	for idx, t := range atom {
		if idx > 0 && needsInlineSpace(atom[idx-1].Kind, t.Kind) {
			sb.WriteByte(' ')
		}
		sb.WriteString(t.Text)
	}
	return sb.String()
}

var noteish = map[lexer.Kind]bool{
	lexer.NOTE: true, lexer.REST: true, lexer.CHORD_START: true, lexer.GRACE: true,
}

func needsInlineSpace(prev, cur lexer.Kind) bool {
	if noteish[prev] && noteish[cur] {
		return true
	}
	return prev == lexer.COMMA
}

// --- context block re-dump ---

var staveKeyPattern = regexp.MustCompile(`(?m)^(\s*)(&[A-Za-z0-9]+(?:\+[A-Za-z0-9]+)?)(\s*:)`)

func quoteStaveKeys(text string) string {
	return staveKeyPattern.ReplaceAllString(text, `$1"$2"$3`)
}

// canonicalKeyOrder is the fixed field order the formatter re-dumps a
// context block's scalar keys in; stave declarations and any unrecognized
// key keep their relative order after the canonical fields.
var canonicalKeyOrder = []string{"title", "composer", "key", "time", "tempo", "octave"}

// redumpContext decodes a context block's YAML_CONTENT and re-emits it
// with canonical key ordering. Invalid YAML is preserved verbatim.
func redumpContext(raw string) string {
	trimmed := strings.TrimRight(raw, "\n")
	if strings.TrimSpace(trimmed) == "" {
		return ""
	}

	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(quoteStaveKeys(trimmed)), &doc); err != nil || len(doc.Content) == 0 {
		return trimmed
	}
	mapping := doc.Content[0]
	if mapping.Kind != yaml.MappingNode {
		return trimmed
	}

	ordered := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	taken := make(map[string]bool, len(canonicalKeyOrder))
	for _, key := range canonicalKeyOrder {
		if k, v, ok := findPair(mapping, key); ok {
			ordered.Content = append(ordered.Content, k, v)
			taken[key] = true
		}
	}
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		k := mapping.Content[i]
		if taken[k.Value] {
			continue
		}
		ordered.Content = append(ordered.Content, k, mapping.Content[i+1])
	}

	out, err := yaml.Marshal(ordered)
	if err != nil {
		return trimmed
	}
	return strings.TrimRight(string(out), "\n")
}

func findPair(mapping *yaml.Node, key string) (*yaml.Node, *yaml.Node, bool) {
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		if mapping.Content[i].Value == key {
			return mapping.Content[i], mapping.Content[i+1], true
		}
	}
	return nil, nil, false
}
