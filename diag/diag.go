// Package diag renders diagnostics to a terminal: a boxed summary header
// plus one colored line per diagnostic, in the order given.
//
// The header box is drawn with plain box-drawing characters; each
// diagnostic line is colored by severity with lipgloss.
package diag

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"scorelang/ast"
)

var (
	errorStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

func styleFor(sev ast.Severity) lipgloss.Style {
	switch sev {
	case ast.SeverityError:
		return errorStyle
	case ast.SeverityWarning:
		return warningStyle
	default:
		return infoStyle
	}
}

// Print writes a boxed summary line followed by one rendered line per
// diagnostic, in the order given, to w.
func Print(w io.Writer, source string, diags []ast.Diagnostic) {
	counts := map[ast.Severity]int{}
	for _, d := range diags {
		counts[d.Severity]++
	}

	header := fmt.Sprintf("%d error(s), %d warning(s), %d info", counts[ast.SeverityError], counts[ast.SeverityWarning], counts[ast.SeverityInfo])
	fmt.Fprintf(w, "┌─ %s ─┐\n", header)
	fmt.Fprintf(w, "└%s┘\n", strings.Repeat("─", len(header)+4))

	if len(diags) == 0 {
		fmt.Fprintln(w, dimStyle.Render("no diagnostics"))
		return
	}

	for _, d := range diags {
		line := fmt.Sprintf("%s:%d:%d: %s", sourceLabel(source), d.Line, d.Column, d.Message)
		fmt.Fprintln(w, styleFor(d.Severity).Render(fmt.Sprintf("[%s] %s", d.Severity, line)))
	}
}

func sourceLabel(source string) string {
	if source == "" {
		return "<input>"
	}
	return source
}
