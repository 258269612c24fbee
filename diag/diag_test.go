package diag

import (
	"bytes"
	"strings"
	"testing"

	"scorelang/ast"
)

func TestPrintNoDiagnostics(t *testing.T) {
	var buf bytes.Buffer
	Print(&buf, "test.score", nil)
	if !strings.Contains(buf.String(), "no diagnostics") {
		t.Fatalf("expected a no-diagnostics line, got:\n%s", buf.String())
	}
}

func TestPrintIncludesSourceLineAndColumn(t *testing.T) {
	var buf bytes.Buffer
	Print(&buf, "test.score", []ast.Diagnostic{
		{Severity: ast.SeverityError, Message: "pitch octave 9 outside 0..=8", Line: 3, Column: 5},
	})
	out := buf.String()
	if !strings.Contains(out, "test.score:3:5:") {
		t.Fatalf("expected a file:line:col prefix, got:\n%s", out)
	}
	if !strings.Contains(out, "pitch octave 9 outside 0..=8") {
		t.Fatalf("expected the diagnostic message, got:\n%s", out)
	}
}

func TestPrintCountsEachSeverity(t *testing.T) {
	var buf bytes.Buffer
	Print(&buf, "", []ast.Diagnostic{
		{Severity: ast.SeverityError, Message: "e"},
		{Severity: ast.SeverityWarning, Message: "w"},
		{Severity: ast.SeverityInfo, Message: "i"},
	})
	out := buf.String()
	if !strings.Contains(out, "1 error(s), 1 warning(s), 1 info") {
		t.Fatalf("expected a summary counting each severity, got:\n%s", out)
	}
	if !strings.Contains(out, "<input>:0:0:") {
		t.Fatalf("expected the <input> fallback source label, got:\n%s", out)
	}
}
