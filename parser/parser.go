// Package parser turns a Scorelang token stream into a Score AST: frontmatter
// decoding, recursive-descent stave body parsing, inline and annotation-block
// function application, and time-signature-driven measure partitioning.
//
// Frontmatter decoding uses gopkg.in/yaml.v3 with a custom UnmarshalYAML
// type (frontmatter.go); the stave body parser and measure partitioner are
// hand-written recursive descent.
package parser

import (
	"fmt"
	"strconv"
	"strings"

	"scorelang/ast"
	"scorelang/lexer"
	"scorelang/theory"
)

// Parse decodes source into a Score AST plus every diagnostic raised along
// the way (lexer, frontmatter, and structural). ast is nil only when a
// defensive recover() catches an internal failure, in which case a
// synthetic "Unknown parse error" diagnostic is appended.
func Parse(source string) (score *ast.Score, diagnostics []ast.Diagnostic) {
	tokens, lexDiags := lexer.Tokenize(source)
	p := newParserState(tokens)

	defer func() {
		if r := recover(); r != nil {
			score = nil
			line, col := p.currentPos()
			p.diags = append(p.diags, ast.Diagnostic{
				Severity: ast.SeverityError,
				Message:  "Unknown parse error",
				Line:     line, Column: col,
			})
		}
		diagnostics = append(append([]ast.Diagnostic{}, lexDiags...), p.diags...)
	}()

	score = p.parseScore()
	return score, nil // overwritten by the deferred assignment above
}

type attrKey struct {
	key             string
	beats, beatType int
}

type parserState struct {
	toks  []lexer.Token
	pos   int
	diags []ast.Diagnostic

	meta ast.Metadata

	currentDuration ast.Duration

	staffOrder   []string
	staffByName  map[string]*ast.Staff
	declaredClef map[string]ast.Clef
	lastAttrs    map[string]attrKey

	slurOpen  bool
	pedalOpen bool
}

func newParserState(toks []lexer.Token) *parserState {
	return &parserState{
		toks:            toks,
		meta:            ast.Metadata{DefaultOctave: 4},
		currentDuration: ast.Duration{Base: ast.DurationQuarter},
		staffByName:     map[string]*ast.Staff{},
		declaredClef:    map[string]ast.Clef{},
		lastAttrs:       map[string]attrKey{},
	}
}

// --- cursor ---

func (p *parserState) atEnd() bool {
	return p.pos >= len(p.toks) || p.toks[p.pos].Kind == lexer.EOF
}

func (p *parserState) peek() lexer.Token {
	if p.pos >= len(p.toks) {
		return lexer.Token{Kind: lexer.EOF}
	}
	return p.toks[p.pos]
}

func (p *parserState) advance() lexer.Token {
	t := p.peek()
	if p.pos < len(p.toks) {
		p.pos++
	}
	return t
}

func (p *parserState) currentPos() (int, int) {
	t := p.peek()
	return t.Line, t.Column
}

func toLoc(tok lexer.Token) ast.Location {
	return ast.Location{Line: tok.Line, Column: tok.Column, ByteStart: tok.ByteStart, ByteEnd: tok.ByteEnd}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// --- top level ---

func (p *parserState) parseScore() *ast.Score {
	for !p.atEnd() {
		switch p.peek().Kind {
		case lexer.CONTEXT_DELIM:
			p.parseContextBlock()
		case lexer.STAVE_DECL:
			p.parseStaveBody()
		default:
			p.advance() // unknown token outside chord/function/body: skipped, no diagnostic
		}
	}
	return p.finishScore()
}

func (p *parserState) finishScore() *ast.Score {
	staves := make([]ast.Staff, 0, len(p.staffOrder))
	for _, name := range p.staffOrder {
		if s, ok := p.staffByName[name]; ok {
			staves = append(staves, *s)
			continue
		}
		clef, ok := p.declaredClef[name]
		if !ok {
			clef = ast.ClefTreble
		}
		staves = append(staves, ast.Staff{Name: name, Clef: clef})
	}
	return &ast.Score{Metadata: p.meta, Staves: staves}
}

func (p *parserState) effectiveTime() ast.TimeSignature {
	if p.meta.Time == nil {
		return ast.TimeSignature{Beats: 4, BeatType: 4}
	}
	return *p.meta.Time
}

// --- Phase A: frontmatter / context blocks ---

func (p *parserState) parseContextBlock() {
	start := p.advance() // CONTEXT_DELIM

	var lines []string
	for !p.atEnd() && p.peek().Kind != lexer.CONTEXT_DELIM {
		t := p.advance()
		if t.Kind == lexer.YAML_CONTENT {
			lines = append(lines, t.Text)
		}
	}
	if !p.atEnd() {
		p.advance() // closing CONTEXT_DELIM
	}

	block, diags := decodeFrontmatter(strings.Join(lines, "\n"), start.Line, start.Column)
	p.diags = append(p.diags, diags...)
	p.applyFrontmatterBlock(block)
}

func (p *parserState) applyFrontmatterBlock(b frontmatterBlock) {
	if b.Title != "" {
		p.meta.Title = b.Title
	}
	if b.Composer != "" {
		p.meta.Composer = b.Composer
	}
	if b.Tempo != 0 {
		p.meta.Tempo = b.Tempo
	}
	if b.HasDefaultOctave {
		p.meta.DefaultOctave = b.DefaultOctave
	}

	changed := false
	if b.Key != "" && b.Key != p.meta.Key {
		p.meta.Key = b.Key
		changed = true
	}
	if b.Time != nil && (p.meta.Time == nil || *p.meta.Time != *b.Time) {
		p.meta.Time = b.Time
		changed = true
	}

	for _, s := range b.Staves {
		if _, ok := p.declaredClef[s.Name]; !ok {
			p.meta.DeclaredStaves = append(p.meta.DeclaredStaves, s)
		}
		p.declaredClef[s.Name] = s.Clef
		if !contains(p.staffOrder, s.Name) {
			p.staffOrder = append(p.staffOrder, s.Name)
		}
	}

	if changed {
		// a mid-score key/time change marks every staff known so far so
		// its next occurrence carries updated measure attributes.
		for name := range p.staffByName {
			delete(p.lastAttrs, name)
		}
		for _, name := range p.staffOrder {
			delete(p.lastAttrs, name)
		}
	}
}

// --- Phase B: stave body parsing ---

func (p *parserState) parseStaveBody() {
	declTok := p.advance() // STAVE_DECL, e.g. "&main" or "&main+1"
	name := strings.TrimPrefix(declTok.Text, "&")

	if p.peek().Kind != lexer.STAVE_BODY_START {
		return // malformed per grammar; nothing to recover
	}
	p.advance() // STAVE_BODY_START
	p.slurOpen, p.pedalOpen = false, false // bare ~ / % toggles pair up within one body

	var elements []ast.Element
	for !p.atEnd() && p.peek().Kind != lexer.STAVE_BODY_END {
		p.parseOneElement(&elements)
	}
	var endTok lexer.Token
	if !p.atEnd() {
		endTok = p.advance() // STAVE_BODY_END
	}

	if !p.atEnd() && p.peek().Kind == lexer.ANNOTATION_BLOCK_START {
		p.parseAnnotationBlock(elements)
	}

	p.commitStaffBody(name, elements, ast.Span(toLoc(declTok), toLoc(endTok)))
}

func (p *parserState) parseOneElement(out *[]ast.Element) {
	switch p.peek().Kind {
	case lexer.REST:
		*out = append(*out, p.parseRest())
	case lexer.CHORD_START:
		*out = append(*out, p.parseChord())
	case lexer.BEAM_START:
		*out = append(*out, p.parseBeamGroup()...)
	case lexer.GRACE:
		if n, ok := p.tryParseGraceNote(); ok {
			*out = append(*out, n)
		}
	case lexer.FUNCTION:
		*out = append(*out, p.parseInlineFunction()...)
	case lexer.NOTE:
		*out = append(*out, p.parseNote())
	case lexer.TIE:
		p.advance()
		setTied(*out)
	case lexer.SLUR:
		p.advance()
		p.toggleSlur(out)
	case lexer.PEDAL:
		p.advance()
		p.togglePedal(out)
	case lexer.VOLTA, lexer.REPEAT_START, lexer.REPEAT_END:
		p.advance() // lexed but given no deeper semantics (non-goal)
	default:
		p.advance()
	}
}

func setTied(elems []ast.Element) {
	if len(elems) == 0 {
		return
	}
	switch v := elems[len(elems)-1].(type) {
	case *ast.Note:
		v.Tied = true
	case *ast.Chord:
		v.Tied = true
	}
}

func (p *parserState) toggleSlur(elems *[]ast.Element) {
	if len(*elems) == 0 {
		return
	}
	a := ann((*elems)[len(*elems)-1])
	if !p.slurOpen {
		a.SlurStart = true
	} else {
		a.SlurEnd = true
	}
	p.slurOpen = !p.slurOpen
}

func (p *parserState) togglePedal(elems *[]ast.Element) {
	if len(*elems) == 0 {
		return
	}
	a := ann((*elems)[len(*elems)-1])
	if !p.pedalOpen {
		a.PedalStart = true
	} else {
		a.PedalEnd = true
	}
	p.pedalOpen = !p.pedalOpen
}

func ann(e ast.Element) *ast.Annotation {
	switch v := e.(type) {
	case *ast.Note:
		if v.Annotation == nil {
			v.Annotation = &ast.Annotation{}
		}
		return v.Annotation
	case *ast.Chord:
		if v.Annotation == nil {
			v.Annotation = &ast.Annotation{}
		}
		return v.Annotation
	default:
		return &ast.Annotation{} // Rest: annotations are discarded
	}
}

func (p *parserState) parseRest() ast.Element {
	tok := p.advance() // REST "_"
	dur := p.currentDuration
	if p.peek().Kind == lexer.DURATION {
		dtok := p.advance()
		dur = parseDurationToken(dtok)
		p.currentDuration = dur
	}
	return &ast.Rest{Loc: toLoc(tok), Duration: dur}
}

func (p *parserState) parseChord() ast.Element {
	startTok := p.advance() // CHORD_START "["
	var pitches []ast.Pitch
	for !p.atEnd() && p.peek().Kind != lexer.CHORD_END {
		if p.peek().Kind != lexer.NOTE {
			p.advance()
			continue
		}
		ntok := p.advance()
		pitch, explicit := parsePitchText(ntok)
		if !explicit {
			pitch.Octave = p.meta.DefaultOctave
		}
		if p.peek().Kind == lexer.OCTAVE_MOD {
			mtok := p.advance()
			pitch.Octave = saturateOctave(pitch.Octave + octaveModDelta(mtok.Text))
		}
		for p.peek().Kind == lexer.DURATION || p.peek().Kind == lexer.FINGERING {
			p.advance() // per-pitch duration/fingering inside a chord is non-standard; discard
		}
		pitches = append(pitches, pitch)
	}
	var endTok lexer.Token
	if !p.atEnd() {
		endTok = p.advance() // CHORD_END "]"
	}

	dur := p.currentDuration
	if p.peek().Kind == lexer.DURATION {
		dtok := p.advance()
		dur = parseDurationToken(dtok)
		p.currentDuration = dur
	}

	c := &ast.Chord{Loc: ast.Span(toLoc(startTok), toLoc(endTok)), Pitches: pitches, Duration: dur}
	if p.peek().Kind == lexer.FINGERING {
		ftok := p.advance()
		c.Annotation = &ast.Annotation{Fingering: parseFingering(ftok.Text)}
	}
	return c
}

func (p *parserState) parseBeamGroup() []ast.Element {
	p.advance() // BEAM_START "=("
	var out []ast.Element
	for !p.atEnd() && p.peek().Kind != lexer.PAREN_CLOSE {
		switch p.peek().Kind {
		case lexer.NOTE:
			out = append(out, p.parseNote())
		case lexer.GRACE:
			if n, ok := p.tryParseGraceNote(); ok {
				out = append(out, n)
			}
		default:
			p.advance()
		}
	}
	if !p.atEnd() {
		p.advance() // PAREN_CLOSE
	}
	for _, e := range out {
		if n, ok := e.(*ast.Note); ok {
			n.IsBeamed = true
		}
	}
	return out
}

func (p *parserState) tryParseGraceNote() (*ast.Note, bool) {
	p.advance() // GRACE
	if p.peek().Kind != lexer.NOTE {
		return nil, false
	}
	n := p.parseNote().(*ast.Note)
	n.Grace = true
	return n, true
}

func (p *parserState) parseNote() ast.Element {
	tok := p.advance() // NOTE, e.g. "C", "C#4"
	pitch, explicit := parsePitchText(tok)
	if !explicit {
		pitch.Octave = p.meta.DefaultOctave
	}
	if p.peek().Kind == lexer.OCTAVE_MOD {
		mtok := p.advance()
		pitch.Octave = saturateOctave(pitch.Octave + octaveModDelta(mtok.Text))
	}

	dur := p.currentDuration
	if p.peek().Kind == lexer.DURATION {
		dtok := p.advance()
		dur = parseDurationToken(dtok)
		p.currentDuration = dur
	}

	n := &ast.Note{Loc: toLoc(tok), Pitch: pitch, Duration: dur}
	if p.peek().Kind == lexer.FINGERING {
		ftok := p.advance()
		n.Annotation = &ast.Annotation{Fingering: parseFingering(ftok.Text)}
	}
	return n
}

// parsePitchText splits a NOTE token's text into letter, accidental, and an
// optional explicit octave digit; explicit reports whether a digit was
// present so the caller knows whether to fall back to the default octave.
func parsePitchText(tok lexer.Token) (ast.Pitch, bool) {
	text := tok.Text
	note := text[0]
	i := 1
	acc := ast.AccidentalNone
	switch {
	case strings.HasPrefix(text[i:], "##"):
		acc, i = ast.AccidentalDoubleSharp, i+2
	case strings.HasPrefix(text[i:], "#"):
		acc, i = ast.AccidentalSharp, i+1
	case strings.HasPrefix(text[i:], "bb"):
		acc, i = ast.AccidentalDoubleFlat, i+2
	case strings.HasPrefix(text[i:], "b"):
		acc, i = ast.AccidentalFlat, i+1
	}
	if i < len(text) {
		return ast.Pitch{Loc: toLoc(tok), Note: note, Accidental: acc, Octave: int(text[i] - '0')}, true
	}
	return ast.Pitch{Loc: toLoc(tok), Note: note, Accidental: acc}, false
}

func octaveModDelta(text string) int {
	switch text {
	case "+":
		return 1
	case "++":
		return 2
	case "-":
		return -1
	case "--":
		return -2
	default:
		return 0
	}
}

func saturateOctave(o int) int {
	if o < 0 {
		return 0
	}
	if o > 8 {
		return 8
	}
	return o
}

func parseFingering(text string) int {
	if len(text) < 2 {
		return 0
	}
	return int(text[1] - '0')
}

func parseDurationToken(tok lexer.Token) ast.Duration {
	text := tok.Text
	if strings.HasPrefix(text, ".") {
		return ast.Duration{Loc: toLoc(tok), Base: ast.DurationQuarter, Dots: len(text)}
	}
	body := strings.TrimPrefix(text, "/")
	i := 0
	for i < len(body) && body[i] != '.' {
		i++
	}
	base, ok := lexer.DurationBaseFromDigits(body[:i])
	if !ok {
		base = ast.DurationQuarter
	}
	return ast.Duration{Loc: toLoc(tok), Base: base, Dots: len(body) - i}
}

// --- inline functions: fn(notes...) within a stave body ---

func (p *parserState) parseInlineFunction() []ast.Element {
	fnTok := p.advance() // FUNCTION
	if p.peek().Kind != lexer.PAREN_OPEN {
		return nil
	}
	p.advance() // PAREN_OPEN

	var elems []ast.Element
	for !p.atEnd() && p.peek().Kind != lexer.PAREN_CLOSE {
		switch p.peek().Kind {
		case lexer.NOTE:
			elems = append(elems, p.parseNote())
		case lexer.CHORD_START:
			elems = append(elems, p.parseChord())
		case lexer.REST:
			elems = append(elems, p.parseRest())
		case lexer.GRACE:
			if n, ok := p.tryParseGraceNote(); ok {
				elems = append(elems, n)
			}
		default:
			p.advance()
		}
	}
	if !p.atEnd() {
		p.advance() // PAREN_CLOSE
	}

	applyInlineFunction(fnTok.Text, elems)
	return elems
}

func applyInlineFunction(name string, elems []ast.Element) {
	if len(elems) == 0 {
		return
	}
	first, last := elems[0], elems[len(elems)-1]
	needsSpan := name == "slur" || name == "legato" ||
		name == "cresc" || name == "crescendo" || name == "<" ||
		name == "decresc" || name == "dim" || name == ">"
	if needsSpan && len(elems) < 2 {
		return
	}
	switch {
	case theory.Dynamics[name]:
		ann(first).Dynamic = name
	case theory.Articulations[name]:
		for _, e := range elems {
			a := ann(e)
			a.Articulations = append(a.Articulations, name)
		}
	case name == "slur" || name == "legato":
		ann(first).SlurStart = true
		ann(last).SlurEnd = true
	case name == "cresc" || name == "crescendo" || name == "<":
		ann(first).Crescendo = ast.WedgeStart
		ann(last).Crescendo = ast.WedgeEnd
	case name == "decresc" || name == "dim" || name == ">":
		ann(first).Decrescendo = ast.WedgeStart
		ann(last).Decrescendo = ast.WedgeEnd
	}
}

// --- annotation block: a trailing { fn(range, args...) ... } ---

func (p *parserState) parseAnnotationBlock(elements []ast.Element) {
	p.advance() // ANNOTATION_BLOCK_START
	for !p.atEnd() && p.peek().Kind != lexer.ANNOTATION_BLOCK_END {
		if p.peek().Kind != lexer.FUNCTION {
			p.advance()
			continue
		}
		p.parseAnnotationCall(elements)
	}
	if !p.atEnd() {
		p.advance() // ANNOTATION_BLOCK_END
	}
}

func (p *parserState) parseAnnotationCall(elements []ast.Element) {
	fnTok := p.advance() // FUNCTION
	if p.peek().Kind != lexer.PAREN_OPEN {
		return
	}
	p.advance() // PAREN_OPEN

	var args []lexer.Token
	for !p.atEnd() && p.peek().Kind != lexer.PAREN_CLOSE {
		if p.peek().Kind == lexer.COMMA {
			p.advance()
			continue
		}
		args = append(args, p.advance())
	}
	if !p.atEnd() {
		p.advance() // PAREN_CLOSE
	}

	p.applyAnnotationCall(fnTok, args, elements)
}

func (p *parserState) applyAnnotationCall(fnTok lexer.Token, args []lexer.Token, elements []ast.Element) {
	name := fnTok.Text
	if len(args) == 0 || len(elements) == 0 {
		return
	}
	lo, hi, ok := parseRangeArg(args[0])
	if !ok {
		return
	}
	clamp := func(i int) int {
		if i < 1 {
			return 1
		}
		if i > len(elements) {
			return len(elements)
		}
		return i
	}
	lo, hi = clamp(lo), clamp(hi)
	if lo > hi {
		return
	}

	needsSpan := name == "cresc" || name == "crescendo" || name == "decresc" || name == "dim" || name == "slur"
	if needsSpan && lo == hi {
		p.diags = append(p.diags, ast.Diagnostic{
			Severity: ast.SeverityWarning,
			Message:  fmt.Sprintf("%s requires a multi-element range, got a single index", name),
			Line:     fnTok.Line, Column: fnTok.Column,
		})
		return
	}

	switch {
	case theory.Dynamics[name]:
		for i := lo; i <= hi; i++ {
			ann(elements[i-1]).Dynamic = name
		}
	case theory.Articulations[name]:
		for i := lo; i <= hi; i++ {
			a := ann(elements[i-1])
			a.Articulations = append(a.Articulations, name)
		}
	case name == "cresc" || name == "crescendo":
		ann(elements[lo-1]).Crescendo = ast.WedgeStart
		ann(elements[hi-1]).Crescendo = ast.WedgeEnd
	case name == "decresc" || name == "dim":
		ann(elements[lo-1]).Decrescendo = ast.WedgeStart
		ann(elements[hi-1]).Decrescendo = ast.WedgeEnd
	case name == "text":
		if len(args) >= 2 {
			ann(elements[lo-1]).Text = unquoteString(args[1].Text)
		}
	case name == "finger":
		if len(args) >= 2 {
			n, _ := strconv.Atoi(args[1].Text)
			for i := lo; i <= hi; i++ {
				ann(elements[i-1]).Fingering = n
			}
		}
	case name == "tie":
		for i := lo; i <= hi; i++ {
			switch v := elements[i-1].(type) {
			case *ast.Note:
				v.Tied = true
			case *ast.Chord:
				v.Tied = true
			}
		}
	case name == "slur":
		ann(elements[lo-1]).SlurStart = true
		ann(elements[hi-1]).SlurEnd = true
	default:
		p.diags = append(p.diags, ast.Diagnostic{
			Severity: ast.SeverityInfo,
			Message:  fmt.Sprintf("unknown annotation function %q", name),
			Line:     fnTok.Line, Column: fnTok.Column,
		})
	}
}

func parseRangeArg(tok lexer.Token) (int, int, bool) {
	switch tok.Kind {
	case lexer.NUMBER:
		n, err := strconv.Atoi(tok.Text)
		if err != nil {
			return 0, 0, false
		}
		return n, n, true
	case lexer.RANGE:
		parts := strings.SplitN(tok.Text, "-", 2)
		if len(parts) != 2 {
			return 0, 0, false
		}
		lo, err1 := strconv.Atoi(parts[0])
		hi, err2 := strconv.Atoi(parts[1])
		if err1 != nil || err2 != nil {
			return 0, 0, false
		}
		return lo, hi, true
	default:
		return 0, 0, false
	}
}

func unquoteString(text string) string {
	if len(text) >= 2 && text[0] == '"' && text[len(text)-1] == '"' {
		text = text[1 : len(text)-1]
	}
	var b strings.Builder
	for i := 0; i < len(text); i++ {
		if text[i] == '\\' && i+1 < len(text) {
			i++
			b.WriteByte(text[i])
			continue
		}
		b.WriteByte(text[i])
	}
	return b.String()
}

// --- Phase C driver: commit a finished body's elements as measures ---

func (p *parserState) commitStaffBody(name string, elements []ast.Element, loc ast.Location) {
	clef, hasClef := p.declaredClef[name]
	if !hasClef {
		clef = ast.ClefTreble
	}

	first := p.staffByName[name] == nil
	if first {
		p.staffByName[name] = &ast.Staff{Name: name, Clef: clef, Loc: loc}
	}
	if !contains(p.staffOrder, name) {
		p.staffOrder = append(p.staffOrder, name)
	}
	staff := p.staffByName[name]

	effTime := p.effectiveTime()
	key := p.meta.Key

	last, seen := p.lastAttrs[name]
	attrsChanged := first || !seen || last.key != key || last.beats != effTime.Beats || last.beatType != effTime.BeatType
	p.lastAttrs[name] = attrKey{key: key, beats: effTime.Beats, beatType: effTime.BeatType}

	measures := partitionMeasures(elements, effTime)
	if len(measures) > 0 && attrsChanged {
		attrs := &ast.MeasureAttributes{Time: &ast.TimeSignature{Beats: effTime.Beats, BeatType: effTime.BeatType}}
		if key != "" {
			attrs.Key = key
		}
		if first {
			attrs.Clef = clef
		}
		measures[0].Attributes = attrs
	}
	staff.Measures = append(staff.Measures, measures...)
}
