package parser

import (
	"strings"
	"testing"

	"scorelang/ast"
)

func TestParseSimpleStaveProducesTwoMeasures(t *testing.T) {
	src := "---\ntime: 4/4\n&main:\n  clef: treble\n---\n&main { C D E F G A B C }"
	score, diags := Parse(src)
	for _, d := range diags {
		if d.Severity == ast.SeverityError {
			t.Fatalf("unexpected error diagnostic: %+v", d)
		}
	}
	if score == nil {
		t.Fatal("expected non-nil ast")
	}
	if len(score.Staves) != 1 {
		t.Fatalf("expected 1 staff, got %d", len(score.Staves))
	}
	staff := score.Staves[0]
	if len(staff.Measures) != 2 {
		t.Fatalf("expected 2 measures, got %d", len(staff.Measures))
	}
	if len(staff.Measures[0].Elements) != 4 || len(staff.Measures[1].Elements) != 4 {
		t.Fatalf("expected 4 notes per measure, got %d and %d",
			len(staff.Measures[0].Elements), len(staff.Measures[1].Elements))
	}
	attrs := staff.Measures[0].Attributes
	if attrs == nil {
		t.Fatal("first measure should carry attributes")
	}
	if attrs.Time == nil || attrs.Time.Beats != 4 || attrs.Time.BeatType != 4 {
		t.Errorf("expected 4/4 time, got %+v", attrs.Time)
	}
	if attrs.Clef != ast.ClefTreble {
		t.Errorf("expected treble clef, got %v", attrs.Clef)
	}
	if staff.Measures[1].Attributes != nil {
		t.Errorf("second measure should not repeat attributes")
	}
}

func TestParseAccidentalsAndOctaveSaturation(t *testing.T) {
	src := "---\n&m:\n  clef: treble\n---\n&m { C# Bb F## Ebb C8++ }"
	score, diags := Parse(src)
	for _, d := range diags {
		if d.Severity == ast.SeverityError {
			t.Fatalf("unexpected error: %+v", d)
		}
	}
	// five quarters in the default 4/4 span two measures (4 + 1)
	var elems []ast.Element
	for _, m := range score.Staves[0].Measures {
		elems = append(elems, m.Elements...)
	}
	if len(elems) != 5 {
		t.Fatalf("expected 5 notes, got %d", len(elems))
	}
	want := []ast.Accidental{ast.AccidentalSharp, ast.AccidentalFlat, ast.AccidentalDoubleSharp, ast.AccidentalDoubleFlat, ast.AccidentalNone}
	for i, e := range elems {
		n := e.(*ast.Note)
		if n.Pitch.Accidental != want[i] {
			t.Errorf("note %d: accidental = %q, want %q", i, n.Pitch.Accidental, want[i])
		}
	}
	last := elems[4].(*ast.Note)
	if last.Pitch.Octave != 8 {
		t.Errorf("expected octave saturated to 8, got %d", last.Pitch.Octave)
	}
}

func TestParseDurationStickiness(t *testing.T) {
	src := "---\n&m:\n  clef: treble\n---\n&m { C/8 D E }"
	score, _ := Parse(src)
	elems := score.Staves[0].Measures[0].Elements
	for i, e := range elems {
		n := e.(*ast.Note)
		if n.Duration.Base != ast.DurationEighth {
			t.Errorf("note %d: expected inherited eighth duration, got %v", i, n.Duration.Base)
		}
	}
}

func TestParseChordDuration(t *testing.T) {
	src := "---\n&m:\n  clef: treble\n---\n&m { [C E G]/2 }"
	score, diags := Parse(src)
	for _, d := range diags {
		if d.Severity == ast.SeverityError {
			t.Fatalf("unexpected error: %+v", d)
		}
	}
	elems := score.Staves[0].Measures[0].Elements
	if len(elems) != 1 {
		t.Fatalf("expected 1 chord element, got %d", len(elems))
	}
	c := elems[0].(*ast.Chord)
	if len(c.Pitches) != 3 {
		t.Fatalf("expected 3 pitches, got %d", len(c.Pitches))
	}
	if c.Duration.Base != ast.DurationHalf {
		t.Errorf("expected half duration, got %v", c.Duration.Base)
	}
}

func TestParseAnnotationBlockCrescendo(t *testing.T) {
	src := "---\n&m:\n  clef: treble\n---\n&m { C D E F } { cresc(1-4) }"
	score, _ := Parse(src)
	elems := score.Staves[0].Measures[0].Elements
	first := elems[0].(*ast.Note)
	last := elems[3].(*ast.Note)
	if first.Annotation == nil || first.Annotation.Crescendo != ast.WedgeStart {
		t.Errorf("expected crescendo start on first note")
	}
	if last.Annotation == nil || last.Annotation.Crescendo != ast.WedgeEnd {
		t.Errorf("expected crescendo end on last note")
	}
}

func TestParseAnnotationBlockSlur(t *testing.T) {
	src := "---\n&m:\n  clef: treble\n---\n&m { C D E F } { slur(1-4) }"
	score, _ := Parse(src)
	elems := score.Staves[0].Measures[0].Elements
	first := elems[0].(*ast.Note)
	last := elems[3].(*ast.Note)
	if !first.Annotation.SlurStart {
		t.Errorf("expected slur start on first note")
	}
	if !last.Annotation.SlurEnd {
		t.Errorf("expected slur end on last note")
	}
}

func TestParseAnnotationBlockSingleIndexCrescendoRejected(t *testing.T) {
	src := "---\n&m:\n  clef: treble\n---\n&m { C D E F } { cresc(3) }"
	score, diags := Parse(src)
	note := score.Staves[0].Measures[0].Elements[2].(*ast.Note)
	if note.Annotation != nil && note.Annotation.Crescendo != "" {
		t.Errorf("expected no crescendo marker on a single-index range, got %v", note.Annotation.Crescendo)
	}
	found := false
	for _, d := range diags {
		if strings.Contains(d.Message, "cresc") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a diagnostic warning about the single-index range, got %v", diags)
	}
}

func TestParseAnnotationBlockSingleIndexSlurRejected(t *testing.T) {
	src := "---\n&m:\n  clef: treble\n---\n&m { C D E F } { slur(2) }"
	score, _ := Parse(src)
	note := score.Staves[0].Measures[0].Elements[1].(*ast.Note)
	if note.Annotation != nil && (note.Annotation.SlurStart || note.Annotation.SlurEnd) {
		t.Errorf("expected no slur marker on a single-index range")
	}
}

func TestParseInlineCrescendoSingleNoteIsNoop(t *testing.T) {
	src := "---\n&m:\n  clef: treble\n---\n&m { cresc(C) D E F }"
	score, _ := Parse(src)
	note := score.Staves[0].Measures[0].Elements[0].(*ast.Note)
	if note.Annotation != nil && note.Annotation.Crescendo != "" {
		t.Errorf("expected no crescendo marker on a single-note inline group, got %v", note.Annotation.Crescendo)
	}
}

func TestParseInlineDynamicFunction(t *testing.T) {
	src := "---\n&m:\n  clef: treble\n---\n&m { mf(C D) E }"
	score, _ := Parse(src)
	elems := score.Staves[0].Measures[0].Elements
	if len(elems) != 3 {
		t.Fatalf("expected 3 notes, got %d", len(elems))
	}
	first := elems[0].(*ast.Note)
	if first.Annotation == nil || first.Annotation.Dynamic != "mf" {
		t.Errorf("expected dynamic mf on first note of inline group")
	}
}

func TestParseBeamGroup(t *testing.T) {
	src := "---\n&m:\n  clef: treble\n---\n&m { =(C D E) F }"
	score, _ := Parse(src)
	elems := score.Staves[0].Measures[0].Elements
	for i := 0; i < 3; i++ {
		n := elems[i].(*ast.Note)
		if !n.IsBeamed {
			t.Errorf("note %d should be beamed", i)
		}
	}
	last := elems[3].(*ast.Note)
	if last.IsBeamed {
		t.Errorf("note after beam group should not be beamed")
	}
}

func TestParseStaveOrderDeclaredThenFirstUse(t *testing.T) {
	src := "---\n&r:\n  clef: treble\n&l:\n  clef: bass\n---\n&extra { C }\n&r { C }\n&l { C }"
	score, _ := Parse(src)
	var names []string
	for _, s := range score.Staves {
		names = append(names, s.Name)
	}
	want := []string{"r", "l", "extra"}
	if len(names) != len(want) {
		t.Fatalf("got %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("staff %d: got %q, want %q", i, names[i], want[i])
		}
	}
}

func TestParseUndeclaredStaveDefaultsToTreble(t *testing.T) {
	src := "&solo { C }"
	score, _ := Parse(src)
	if len(score.Staves) != 1 {
		t.Fatalf("expected 1 staff, got %d", len(score.Staves))
	}
	if score.Staves[0].Clef != ast.ClefTreble {
		t.Errorf("expected default treble clef, got %v", score.Staves[0].Clef)
	}
}

func TestParseEmptyChordIsKeptForValidator(t *testing.T) {
	src := "---\n&m:\n  clef: treble\n---\n&m { [] }"
	score, _ := Parse(src)
	elems := score.Staves[0].Measures[0].Elements
	if len(elems) != 1 {
		t.Fatalf("expected 1 element, got %d", len(elems))
	}
	c := elems[0].(*ast.Chord)
	if len(c.Pitches) != 0 {
		t.Errorf("expected empty chord to stay empty, got %d pitches", len(c.Pitches))
	}
}

func TestParseMidScoreKeyChangeMarksNextOccurrence(t *testing.T) {
	src := "---\ntime: 4/4\nkey: C major\n&m:\n  clef: treble\n---\n" +
		"&m { C D E F }\n" +
		"---\nkey: G major\n---\n" +
		"&m { G A B C }"
	score, diags := Parse(src)
	for _, d := range diags {
		if d.Severity == ast.SeverityError {
			t.Fatalf("unexpected error: %+v", d)
		}
	}
	staff := score.Staves[0]
	if len(staff.Measures) != 2 {
		t.Fatalf("expected 2 measures, got %d", len(staff.Measures))
	}
	if staff.Measures[1].Attributes == nil {
		t.Fatal("expected second body's measure to carry attributes after key change")
	}
	if staff.Measures[1].Attributes.Key != "G major" {
		t.Errorf("expected updated key, got %q", staff.Measures[1].Attributes.Key)
	}
}
