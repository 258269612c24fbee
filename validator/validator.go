// Package validator walks a parsed Score and reports semantic diagnostics.
// It never mutates the AST; the parser has already partitioned measures by
// time signature, so this package treats that partitioning as authoritative
// and does not re-check beat totals.
package validator

import (
	"fmt"

	"scorelang/ast"
	"scorelang/theory"
)

// Validate walks every staff, measure, and element of score and returns
// diagnostics at error, warning, and info severity.
func Validate(score *ast.Score) []ast.Diagnostic {
	if score == nil {
		return nil
	}

	var diags []ast.Diagnostic

	declared := make(map[string]bool, len(score.Metadata.DeclaredStaves))
	for _, s := range score.Metadata.DeclaredStaves {
		declared[s.Name] = true
	}
	anyDeclared := len(score.Metadata.DeclaredStaves) > 0

	for _, staff := range score.Staves {
		if anyDeclared && !declared[staff.Name] {
			diags = append(diags, ast.Diagnostic{
				Severity: ast.SeverityWarning,
				Message:  fmt.Sprintf("stave %q used in body but not declared in frontmatter", staff.Name),
				Line:     staff.Loc.Line, Column: staff.Loc.Column,
			})
		}
		for _, m := range staff.Measures {
			for _, el := range m.Elements {
				diags = append(diags, validateElement(el)...)
			}
		}
	}
	return diags
}

func validateElement(el ast.Element) []ast.Diagnostic {
	switch v := el.(type) {
	case *ast.Note:
		return append(validatePitch(v.Pitch), validateAnnotation(v.Loc, v.Annotation, v.Duration)...)
	case *ast.Chord:
		var diags []ast.Diagnostic
		if len(v.Pitches) == 0 {
			diags = append(diags, ast.Diagnostic{
				Severity: ast.SeverityError,
				Message:  "empty chord",
				Line:     v.Loc.Line, Column: v.Loc.Column,
			})
		}
		for _, p := range v.Pitches {
			diags = append(diags, validatePitch(p)...)
		}
		diags = append(diags, validateAnnotation(v.Loc, v.Annotation, v.Duration)...)
		return diags
	case *ast.Rest:
		return validateDuration(v.Loc, v.Duration)
	default:
		return nil
	}
}

func validatePitch(p ast.Pitch) []ast.Diagnostic {
	var diags []ast.Diagnostic
	if p.Octave < 0 || p.Octave > 8 {
		diags = append(diags, ast.Diagnostic{
			Severity: ast.SeverityError,
			Message:  fmt.Sprintf("pitch octave %d outside 0..=8", p.Octave),
			Line:     p.Loc.Line, Column: p.Loc.Column,
		})
	}
	spelling := string(p.Note) + string(p.Accidental)
	if msg, ok := theory.EnharmonicInfo[spelling]; ok {
		diags = append(diags, ast.Diagnostic{
			Severity: ast.SeverityInfo,
			Message:  fmt.Sprintf("unusual spelling %s (%s)", spelling, msg),
			Line:     p.Loc.Line, Column: p.Loc.Column,
		})
	}
	return diags
}

func validateAnnotation(loc ast.Location, a *ast.Annotation, dur ast.Duration) []ast.Diagnostic {
	diags := validateDuration(loc, dur)
	if a == nil {
		return diags
	}
	if a.Fingering != 0 && (a.Fingering < 1 || a.Fingering > 5) {
		diags = append(diags, ast.Diagnostic{
			Severity: ast.SeverityError,
			Message:  fmt.Sprintf("fingering %d outside 1..=5", a.Fingering),
			Line:     loc.Line, Column: loc.Column,
		})
	}
	return diags
}

func validateDuration(loc ast.Location, dur ast.Duration) []ast.Diagnostic {
	if dur.Dots > 2 {
		return []ast.Diagnostic{{
			Severity: ast.SeverityWarning,
			Message:  fmt.Sprintf("duration has %d dots, more than 2", dur.Dots),
			Line:     loc.Line, Column: loc.Column,
		}}
	}
	return nil
}
