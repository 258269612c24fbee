package validator

import (
	"testing"

	"scorelang/ast"
)

func loc(line int) ast.Location { return ast.Location{Line: line, Column: 1} }

func TestValidateOctaveOutOfRange(t *testing.T) {
	score := &ast.Score{
		Staves: []ast.Staff{{
			Name: "m",
			Measures: []ast.Measure{{Elements: []ast.Element{
				&ast.Note{Loc: loc(1), Pitch: ast.Pitch{Loc: loc(1), Note: 'C', Octave: 9}, Duration: ast.Duration{Base: ast.DurationQuarter}},
			}}},
		}},
	}
	diags := Validate(score)
	if len(diags) != 1 || diags[0].Severity != ast.SeverityError {
		t.Fatalf("expected one error diagnostic, got %+v", diags)
	}
}

func TestValidateEmptyChordIsError(t *testing.T) {
	score := &ast.Score{
		Staves: []ast.Staff{{
			Name: "m",
			Measures: []ast.Measure{{Elements: []ast.Element{
				&ast.Chord{Loc: loc(1), Duration: ast.Duration{Base: ast.DurationQuarter}},
			}}},
		}},
	}
	diags := Validate(score)
	found := false
	for _, d := range diags {
		if d.Severity == ast.SeverityError && d.Message == "empty chord" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected an empty chord error, got %+v", diags)
	}
}

func TestValidateUndeclaredStaveWarning(t *testing.T) {
	score := &ast.Score{
		Metadata: ast.Metadata{DeclaredStaves: []ast.DeclaredStave{{Name: "main", Clef: ast.ClefTreble}}},
		Staves: []ast.Staff{
			{Name: "main"},
			{Name: "extra"},
		},
	}
	diags := Validate(score)
	found := false
	for _, d := range diags {
		if d.Severity == ast.SeverityWarning {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected an undeclared-stave warning, got %+v", diags)
	}
}

func TestValidateFingeringOutOfRange(t *testing.T) {
	score := &ast.Score{
		Staves: []ast.Staff{{
			Name: "m",
			Measures: []ast.Measure{{Elements: []ast.Element{
				&ast.Note{
					Loc:        loc(1),
					Pitch:      ast.Pitch{Loc: loc(1), Note: 'C', Octave: 4},
					Duration:   ast.Duration{Base: ast.DurationQuarter},
					Annotation: &ast.Annotation{Fingering: 7},
				},
			}}},
		}},
	}
	diags := Validate(score)
	found := false
	for _, d := range diags {
		if d.Severity == ast.SeverityError {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a fingering-out-of-range error, got %+v", diags)
	}
}

func TestValidateExcessiveDotsWarning(t *testing.T) {
	score := &ast.Score{
		Staves: []ast.Staff{{
			Name: "m",
			Measures: []ast.Measure{{Elements: []ast.Element{
				&ast.Rest{Loc: loc(1), Duration: ast.Duration{Base: ast.DurationQuarter, Dots: 3}},
			}}},
		}},
	}
	diags := Validate(score)
	if len(diags) != 1 || diags[0].Severity != ast.SeverityWarning {
		t.Fatalf("expected one warning, got %+v", diags)
	}
}

func TestValidateEnharmonicInfo(t *testing.T) {
	score := &ast.Score{
		Staves: []ast.Staff{{
			Name: "m",
			Measures: []ast.Measure{{Elements: []ast.Element{
				&ast.Note{Loc: loc(1), Pitch: ast.Pitch{Loc: loc(1), Note: 'C', Accidental: ast.AccidentalFlat, Octave: 4}, Duration: ast.Duration{Base: ast.DurationQuarter}},
			}}},
		}},
	}
	diags := Validate(score)
	found := false
	for _, d := range diags {
		if d.Severity == ast.SeverityInfo {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected an info diagnostic for Cb, got %+v", diags)
	}
}
