package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"scorelang/ast"
)

// frontmatterBlock is the decoded result of one context block: the scalar
// fields present, plus any stave declarations found in declaration order.
type frontmatterBlock struct {
	Title            string
	Composer         string
	Key              string
	Time             *ast.TimeSignature
	Tempo            int
	HasDefaultOctave bool
	DefaultOctave    int
	Staves           []ast.DeclaredStave
}

// staveClause models a stave declaration's value, which may arrive as
// either a bare clef scalar ("&main: treble") or a mapping
// ("&main:\n  clef: treble\n  voice: 1"). Tries one decode, falls back to
// the other, in the style of a scalar-or-mapping custom unmarshaler.
type staveClause struct {
	Clef  string
	Voice string
}

func (c *staveClause) UnmarshalYAML(node *yaml.Node) error {
	var scalar string
	if err := node.Decode(&scalar); err == nil {
		c.Clef = scalar
		return nil
	}

	var mapping struct {
		Clef  string `yaml:"clef"`
		Voice string `yaml:"voice"`
	}
	if err := node.Decode(&mapping); err == nil {
		c.Clef = mapping.Clef
		c.Voice = mapping.Voice
		return nil
	}

	return nil
}

var staveKeyPattern = regexp.MustCompile(`(?m)^(\s*)(&[A-Za-z0-9]+(?:\+[A-Za-z0-9]+)?)(\s*:)`)

// quoteStaveKeys preprocesses raw context-block text so that keys
// beginning with "&" (which a standard YAML decoder would otherwise read
// as an anchor) are quoted before decoding.
func quoteStaveKeys(text string) string {
	return staveKeyPattern.ReplaceAllString(text, `$1"$2"$3`)
}

var validClef = map[ast.Clef]bool{
	ast.ClefTreble: true, ast.ClefBass: true, ast.ClefAlto: true,
	ast.ClefTenor: true, ast.ClefTreble8: true, ast.ClefBass8: true,
}

// decodeFrontmatter decodes one context block's joined YAML_CONTENT lines.
// line/col locate the block for diagnostics (its opening CONTEXT_DELIM).
func decodeFrontmatter(text string, line, col int) (frontmatterBlock, []ast.Diagnostic) {
	var block frontmatterBlock
	if strings.TrimSpace(text) == "" {
		return block, nil
	}

	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(quoteStaveKeys(text)), &doc); err != nil {
		return block, []ast.Diagnostic{{
			Severity: ast.SeverityError,
			Message:  fmt.Sprintf("YAML error: %s", err),
			Line:     line, Column: col,
		}}
	}
	if len(doc.Content) == 0 {
		return block, nil
	}
	mapping := doc.Content[0]
	if mapping.Kind != yaml.MappingNode {
		return block, nil
	}

	for i := 0; i+1 < len(mapping.Content); i += 2 {
		keyNode, valNode := mapping.Content[i], mapping.Content[i+1]
		switch key := keyNode.Value; {
		case key == "title":
			valNode.Decode(&block.Title)
		case key == "composer":
			valNode.Decode(&block.Composer)
		case key == "key":
			valNode.Decode(&block.Key)
		case key == "time":
			var s string
			if valNode.Decode(&s) == nil {
				block.Time = parseTimeSignature(s)
			}
		case key == "tempo":
			valNode.Decode(&block.Tempo)
		case key == "octave":
			var o int
			if valNode.Decode(&o) == nil {
				block.DefaultOctave = o
				block.HasDefaultOctave = true
			}
		case strings.HasPrefix(key, "&"):
			var clause staveClause
			valNode.Decode(&clause)
			clef := ast.Clef(clause.Clef)
			if !validClef[clef] {
				clef = ast.ClefTreble
			}
			block.Staves = append(block.Staves, ast.DeclaredStave{
				Name: strings.TrimPrefix(key, "&"),
				Clef: clef,
			})
		}
	}
	return block, nil
}

func parseTimeSignature(s string) *ast.TimeSignature {
	parts := strings.SplitN(s, "/", 2)
	if len(parts) != 2 {
		return nil
	}
	beats, err1 := strconv.Atoi(strings.TrimSpace(parts[0]))
	beatType, err2 := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err1 != nil || err2 != nil || beats <= 0 {
		return nil
	}
	return &ast.TimeSignature{Beats: beats, BeatType: beatType}
}
