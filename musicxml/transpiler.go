// Package musicxml transpiles a Score AST into a MusicXML partwise 4.0
// document: a single pure function, an owned string in, an owned string
// out, matching the rest of the pipeline's no-shared-state contract.
//
// The writer is a hand-rolled strings.Builder accumulator rather than
// encoding/xml struct marshaling, because document shape here is
// conditional at nearly every level (optional work/identification,
// optional part-group, per-measure attribute diffing, direction elements
// inserted immediately before the note they modify) in a way that fights
// a fixed struct shape.
package musicxml

import (
	"fmt"
	"math"
	"strings"

	"scorelang/ast"
	"scorelang/theory"
)

// Options controls document-level rendering choices.
type Options struct {
	IncludeXMLDeclaration bool
	PrettyPrint           bool
}

// Transpile renders score as a MusicXML partwise 4.0 document string.
func Transpile(score *ast.Score, opts Options) string {
	w := &writer{pretty: opts.PrettyPrint}

	if opts.IncludeXMLDeclaration {
		w.sb.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
		w.sb.WriteByte('\n')
		w.sb.WriteString(`<!DOCTYPE score-partwise PUBLIC "-//Recordare//DTD MusicXML 4.0 Partwise//EN" "http://www.musicxml.org/dtds/partwise.dtd">`)
		w.sb.WriteByte('\n')
	}

	w.open("score-partwise", "version", "4.0")
	if score.Metadata.Title != "" {
		w.open("work")
		w.leaf("work-title", score.Metadata.Title)
		w.close("work")
	}
	if score.Metadata.Composer != "" {
		w.open("identification")
		w.leaf("creator", score.Metadata.Composer, "type", "composer")
		w.close("identification")
	}

	w.writePartList(score.Staves)

	maxMeasures := 0
	for _, s := range score.Staves {
		if len(s.Measures) > maxMeasures {
			maxMeasures = len(s.Measures)
		}
	}
	for i, s := range score.Staves {
		w.writePart(i+1, s, maxMeasures, score)
	}

	w.close("score-partwise")
	w.sb.WriteByte('\n')
	return w.sb.String()
}

func scoreTime(score *ast.Score) ast.TimeSignature {
	if score.Metadata.Time != nil {
		return *score.Metadata.Time
	}
	return ast.TimeSignature{Beats: 4, BeatType: 4}
}

func partID(n int) string { return fmt.Sprintf("P%d", n) }

// --- writer: a small indenting XML accumulator ---

type writer struct {
	sb     strings.Builder
	pretty bool
	depth  int
}

func (w *writer) nl() {
	if w.pretty {
		w.sb.WriteByte('\n')
		w.sb.WriteString(strings.Repeat("  ", w.depth))
	}
}

func (w *writer) writeAttrs(attrs []string) {
	for i := 0; i+1 < len(attrs); i += 2 {
		fmt.Fprintf(&w.sb, ` %s="%s"`, attrs[i], escape(attrs[i+1]))
	}
}

func (w *writer) open(name string, attrs ...string) {
	w.nl()
	w.sb.WriteByte('<')
	w.sb.WriteString(name)
	w.writeAttrs(attrs)
	w.sb.WriteByte('>')
	w.depth++
}

func (w *writer) close(name string) {
	w.depth--
	w.nl()
	fmt.Fprintf(&w.sb, "</%s>", name)
}

func (w *writer) selfClose(name string, attrs ...string) {
	w.nl()
	w.sb.WriteByte('<')
	w.sb.WriteString(name)
	w.writeAttrs(attrs)
	w.sb.WriteString("/>")
}

func (w *writer) leaf(name, text string, attrs ...string) {
	w.nl()
	w.sb.WriteByte('<')
	w.sb.WriteString(name)
	w.writeAttrs(attrs)
	w.sb.WriteByte('>')
	w.sb.WriteString(escape(text))
	fmt.Fprintf(&w.sb, "</%s>", name)
}

var xmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&apos;",
)

func escape(s string) string { return xmlEscaper.Replace(s) }

// --- part-list ---

func (w *writer) writePartList(staves []ast.Staff) {
	w.open("part-list")
	grouped := len(staves) > 1
	if grouped {
		w.open("part-group", "type", "start", "number", "1")
		w.leaf("group-symbol", "bracket")
		w.close("part-group")
	}
	for i, s := range staves {
		w.open("score-part", "id", partID(i+1))
		w.leaf("part-name", s.Name)
		w.close("score-part")
	}
	if grouped {
		w.selfClose("part-group", "type", "stop", "number", "1")
	}
	w.close("part-list")
}

// --- part / measure ---

func (w *writer) writePart(n int, s ast.Staff, maxMeasures int, score *ast.Score) {
	w.open("part", "id", partID(n))

	currentTime := scoreTime(score)
	currentKey := score.Metadata.Key

	for i := 0; i < maxMeasures; i++ {
		hasMeasure := i < len(s.Measures)
		var m ast.Measure
		if hasMeasure {
			m = s.Measures[i]
			if m.Attributes != nil {
				if m.Attributes.Time != nil {
					currentTime = *m.Attributes.Time
				}
				if m.Attributes.Key != "" {
					currentKey = m.Attributes.Key
				}
			}
		}

		w.open("measure", "number", fmt.Sprintf("%d", i+1))
		full := i == 0
		if full || (hasMeasure && m.Attributes != nil) {
			w.writeAttributes(m.Attributes, currentKey, currentTime, s.Clef, full)
		}
		if hasMeasure {
			w.writeMeasureElements(m.Elements)
		} else {
			w.writeWholeRest(currentTime)
		}
		w.close("measure")
	}

	w.close("part")
}

func (w *writer) writeAttributes(attrs *ast.MeasureAttributes, key string, time ast.TimeSignature, clef ast.Clef, full bool) {
	w.open("attributes")
	if full {
		w.leaf("divisions", "4")
	}
	if full || (attrs != nil && attrs.Key != "") {
		w.open("key")
		w.leaf("fifths", fmt.Sprintf("%d", theory.Fifths(key)))
		if theory.IsMinor(theory.NormalizeKey(key)) {
			w.leaf("mode", "minor")
		} else {
			w.leaf("mode", "major")
		}
		w.close("key")
	}
	if full || (attrs != nil && attrs.Time != nil) {
		w.open("time")
		w.leaf("beats", fmt.Sprintf("%d", time.Beats))
		w.leaf("beat-type", fmt.Sprintf("%d", time.BeatType))
		w.close("time")
	}
	if full {
		sign, line := theory.ClefSignLine(string(clef))
		w.open("clef")
		w.leaf("sign", sign)
		w.leaf("line", fmt.Sprintf("%d", line))
		w.close("clef")
	}
	w.close("attributes")
}

func (w *writer) writeWholeRest(time ast.TimeSignature) {
	w.open("note")
	w.selfClose("rest", "measure", "yes")
	w.leaf("duration", fmt.Sprintf("%d", int(math.Round(float64(time.MeasureCapacityTicks())/8.0))))
	w.close("note")
}

// --- measure contents ---

func (w *writer) writeMeasureElements(elements []ast.Element) {
	for i, e := range elements {
		switch v := e.(type) {
		case *ast.Note:
			w.writeDirection(v.Annotation)
			w.writeNote(noteInput{
				grace: v.Grace, pitch: v.Pitch, dur: v.Duration, tied: v.Tied,
				beam: beamState(elements, i), annotation: v.Annotation,
			})
		case *ast.Rest:
			w.writeRest(v.Duration)
		case *ast.Chord:
			for j, p := range v.Pitches {
				if j == 0 {
					w.writeDirection(v.Annotation)
				}
				w.writeNote(noteInput{
					pitch: p, dur: v.Duration, tied: v.Tied,
					annotation:  v.Annotation,
					chordMember: j > 0,
				})
			}
		}
	}
}

func beamState(elements []ast.Element, i int) string {
	if !isBeamed(elements[i]) {
		return ""
	}
	prevBeamed := i > 0 && isBeamed(elements[i-1])
	nextBeamed := i+1 < len(elements) && isBeamed(elements[i+1])
	switch {
	case !prevBeamed && nextBeamed:
		return "begin"
	case prevBeamed && nextBeamed:
		return "continue"
	case prevBeamed && !nextBeamed:
		return "end"
	default:
		return ""
	}
}

func isBeamed(e ast.Element) bool {
	n, ok := e.(*ast.Note)
	return ok && n.IsBeamed
}

func (w *writer) writeDirection(a *ast.Annotation) {
	if a == nil {
		return
	}
	if a.Dynamic != "" {
		w.open("direction")
		w.open("direction-type")
		w.open("dynamics")
		w.selfClose(a.Dynamic)
		w.close("dynamics")
		w.close("direction-type")
		w.close("direction")
	}
	if a.Crescendo != "" {
		w.writeWedge(wedgeType(a.Crescendo, "crescendo"))
	}
	if a.Decrescendo != "" {
		w.writeWedge(wedgeType(a.Decrescendo, "diminuendo"))
	}
}

func wedgeType(state ast.WedgeState, startType string) string {
	if state == ast.WedgeStart {
		return startType
	}
	return "stop"
}

func (w *writer) writeWedge(typ string) {
	w.open("direction")
	w.open("direction-type")
	w.selfClose("wedge", "type", typ)
	w.close("direction-type")
	w.close("direction")
}

// --- notes / rests ---

type noteInput struct {
	grace       bool
	pitch       ast.Pitch
	dur         ast.Duration
	tied        bool
	beam        string
	annotation  *ast.Annotation
	chordMember bool
}

var xmlTypeNames = map[ast.DurationBase]string{
	ast.DurationWhole:        "whole",
	ast.DurationHalf:         "half",
	ast.DurationQuarter:      "quarter",
	ast.DurationEighth:       "eighth",
	ast.DurationSixteenth:    "16th",
	ast.DurationThirtySecond: "32nd",
}

// durationXML converts a duration into MusicXML <duration> divisions, 4
// per quarter note: ticks (32 per quarter) / 8, rounded.
func durationXML(d ast.Duration) int {
	return int(math.Round(float64(d.Ticks()) / 8.0))
}

func (w *writer) writeNote(n noteInput) {
	w.open("note")
	if n.grace {
		w.selfClose("grace")
	}
	if n.chordMember {
		w.selfClose("chord")
	}
	w.open("pitch")
	w.leaf("step", string(n.pitch.Note))
	if alter := theory.AccidentalAlter[string(n.pitch.Accidental)]; alter != 0 {
		w.leaf("alter", fmt.Sprintf("%d", alter))
	}
	w.leaf("octave", fmt.Sprintf("%d", n.pitch.Octave))
	w.close("pitch")
	w.leaf("duration", fmt.Sprintf("%d", durationXML(n.dur)))
	if n.tied {
		w.selfClose("tie", "type", "start")
	}
	w.leaf("type", xmlTypeNames[n.dur.Base])
	for i := 0; i < n.dur.Dots; i++ {
		w.selfClose("dot")
	}
	if n.pitch.Accidental != "" {
		if label, ok := theory.AccidentalLabel[string(n.pitch.Accidental)]; ok {
			w.leaf("accidental", label)
		}
	}
	if n.beam != "" {
		w.leaf("beam", n.beam, "number", "1")
	}
	w.writeNotations(n)
	w.close("note")
}

func (w *writer) writeNotations(n noteInput) {
	a := n.annotation
	hasSlur := a != nil && (a.SlurStart || a.SlurEnd)
	hasArtic := a != nil && len(a.Articulations) > 0
	hasTrill := a != nil && hasTrillArticulation(a.Articulations)
	hasFinger := a != nil && a.Fingering != 0
	if !n.tied && !hasSlur && !hasArtic && !hasFinger {
		return
	}

	w.open("notations")
	if n.tied {
		w.selfClose("tied", "type", "start")
	}
	if hasSlur {
		typ := "stop"
		if a.SlurStart {
			typ = "start"
		}
		w.selfClose("slur", "type", typ, "number", "1")
	}
	if hasArtic {
		w.open("articulations")
		for _, name := range a.Articulations {
			if el, ok := theory.ArticulationElement(name); ok && !theory.IsTrill(name) {
				w.selfClose(el)
			}
		}
		w.close("articulations")
	}
	if hasTrill {
		w.open("ornaments")
		w.selfClose("trill-mark")
		w.close("ornaments")
	}
	if hasFinger {
		w.open("technical")
		w.leaf("fingering", fmt.Sprintf("%d", a.Fingering))
		w.close("technical")
	}
	w.close("notations")
}

func hasTrillArticulation(list []string) bool {
	for _, n := range list {
		if theory.IsTrill(n) {
			return true
		}
	}
	return false
}

func (w *writer) writeRest(dur ast.Duration) {
	w.open("note")
	w.selfClose("rest")
	w.leaf("duration", fmt.Sprintf("%d", durationXML(dur)))
	w.leaf("type", xmlTypeNames[dur.Base])
	for i := 0; i < dur.Dots; i++ {
		w.selfClose("dot")
	}
	w.close("note")
}
