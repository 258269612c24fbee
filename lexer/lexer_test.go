package lexer

import "testing"

func kinds(tokens []Token) []Kind {
	out := make([]Kind, 0, len(tokens))
	for _, t := range tokens {
		if t.Kind == WHITESPACE || t.Kind == NEWLINE {
			continue
		}
		out = append(out, t.Kind)
	}
	return out
}

func TestTokenizeSimpleStaveBody(t *testing.T) {
	src := `&main { C D E }`
	tokens, diags := Tokenize(src)
	if len(diags) != 0 {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}
	got := kinds(tokens)
	want := []Kind{STAVE_DECL, STAVE_BODY_START, NOTE, NOTE, NOTE, STAVE_BODY_END, EOF}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("token %d: got %v, want %v", i, got[i], want[i])
		}
	}
}

func TestTokenizeNoteWithOctaveDurationFingering(t *testing.T) {
	src := `C+/8@3`
	tokens, _ := Tokenize(src)
	got := kinds(tokens)
	want := []Kind{NOTE, OCTAVE_MOD, DURATION, FINGERING, EOF}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("token %d: got %v, want %v", i, got[i], want[i])
		}
	}
}

func TestTokenizeAdjacentNotesIsError(t *testing.T) {
	src := `&m { CD }`
	_, diags := Tokenize(src)
	if len(diags) != 1 {
		t.Fatalf("expected exactly one diagnostic, got %d: %v", len(diags), diags)
	}
	if diags[0].Severity != "error" {
		t.Errorf("expected error severity, got %s", diags[0].Severity)
	}
}

func TestTokenizeChordNotesAdjacentAllowed(t *testing.T) {
	src := `&m { [CEG]/2 }`
	_, diags := Tokenize(src)
	if len(diags) != 0 {
		t.Fatalf("unexpected diagnostics inside chord: %v", diags)
	}
}

func TestTokenizeContextMode(t *testing.T) {
	src := "---\ntime: 4/4\n&main:\n  clef: treble\n---\n&main { C }"
	tokens, _ := Tokenize(src)
	got := kinds(tokens)
	if got[0] != CONTEXT_DELIM {
		t.Fatalf("expected leading CONTEXT_DELIM, got %v", got[0])
	}
	foundYaml := false
	for _, k := range got {
		if k == YAML_CONTENT {
			foundYaml = true
		}
	}
	if !foundYaml {
		t.Errorf("expected YAML_CONTENT tokens inside context block")
	}
}

func TestTokenizeAnnotationBlockAfterStaveBody(t *testing.T) {
	src := `&m { C D } { cresc(1-2) }`
	tokens, _ := Tokenize(src)
	got := kinds(tokens)
	want := []Kind{
		STAVE_DECL, STAVE_BODY_START, NOTE, NOTE, STAVE_BODY_END,
		ANNOTATION_BLOCK_START, FUNCTION, PAREN_OPEN, RANGE, PAREN_CLOSE, ANNOTATION_BLOCK_END,
		EOF,
	}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("token %d: got %v, want %v", i, got[i], want[i])
		}
	}
}

func TestTokenizeSecondStaveAfterFirstBodyIsNotAnnotation(t *testing.T) {
	src := `&r { C } &l { C }`
	tokens, _ := Tokenize(src)
	got := kinds(tokens)
	want := []Kind{
		STAVE_DECL, STAVE_BODY_START, NOTE, STAVE_BODY_END,
		STAVE_DECL, STAVE_BODY_START, NOTE, STAVE_BODY_END,
		EOF,
	}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("token %d: got %v, want %v", i, got[i], want[i])
		}
	}
}

func TestTokenizeUnclosedBlockComment(t *testing.T) {
	src := "/* never closes"
	tokens, diags := Tokenize(src)
	if len(diags) != 0 {
		t.Fatalf("unclosed comment should not itself be an error: %v", diags)
	}
	if tokens[0].Kind != COMMENT {
		t.Fatalf("expected COMMENT, got %v", tokens[0].Kind)
	}
	if tokens[0].Text != src {
		t.Errorf("expected comment to consume to EOF, got %q", tokens[0].Text)
	}
}

func TestTokenizeUnknownByteDoesNotAbort(t *testing.T) {
	src := `&m { C $ D }`
	tokens, _ := Tokenize(src)
	got := kinds(tokens)
	sawUnknown := false
	for _, k := range got {
		if k == UNKNOWN {
			sawUnknown = true
		}
	}
	if !sawUnknown {
		t.Errorf("expected an UNKNOWN token for '$', got %v", got)
	}
	if got[len(got)-1] != EOF {
		t.Errorf("lexer should still reach EOF, got %v", got)
	}
}

func TestByteRangesAreMonotonic(t *testing.T) {
	src := "---\ntime: 4/4\n&m:\n  clef: treble\n---\n&m { [C E]/2~ C^ _4 }"
	tokens, _ := Tokenize(src)
	for i := 0; i+1 < len(tokens); i++ {
		if tokens[i].ByteEnd > tokens[i+1].ByteStart {
			t.Fatalf("token %d (%v %q) overlaps token %d (%v %q)",
				i, tokens[i].Kind, tokens[i].Text, i+1, tokens[i+1].Kind, tokens[i+1].Text)
		}
	}
}
