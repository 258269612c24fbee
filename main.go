package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"scorelang/ast"
	"scorelang/diag"
	"scorelang/format"
	"scorelang/lexer"
	"scorelang/musicxml"
	"scorelang/parser"
	"scorelang/validator"
)

// Global flags, set by parseArgs.
var (
	prettyXML bool
	noDeclXML bool
)

func main() {
	args := parseArgs(os.Args[1:])

	if len(args) < 1 {
		printUsage()
		os.Exit(1)
	}

	command := args[0]
	rest := args[1:]

	switch command {
	case "tokenize":
		if len(rest) < 1 {
			fmt.Println("Error: tokenize requires a .score file")
			printUsage()
			os.Exit(1)
		}
		runTokenize(rest[0])
	case "parse":
		if len(rest) < 1 {
			fmt.Println("Error: parse requires a .score file")
			printUsage()
			os.Exit(1)
		}
		runParse(rest[0])
	case "lint":
		if len(rest) < 1 {
			fmt.Println("Error: lint requires a .score file")
			printUsage()
			os.Exit(1)
		}
		runLint(rest[0])
	case "xml":
		if len(rest) < 1 {
			fmt.Println("Error: xml requires a .score file")
			printUsage()
			os.Exit(1)
		}
		out := ""
		if len(rest) >= 2 {
			out = rest[1]
		}
		runXML(rest[0], out)
	case "fmt":
		if len(rest) < 1 {
			fmt.Println("Error: fmt requires a .score file")
			printUsage()
			os.Exit(1)
		}
		out := ""
		if len(rest) >= 2 {
			out = rest[1]
		}
		runFormat(rest[0], out)
	case "minify":
		if len(rest) < 1 {
			fmt.Println("Error: minify requires a .score file")
			printUsage()
			os.Exit(1)
		}
		out := ""
		if len(rest) >= 2 {
			out = rest[1]
		}
		runMinify(rest[0], out)
	default:
		printUsage()
		os.Exit(1)
	}
}

// parseArgs extracts flags and returns remaining positional args, scanning
// os.Args for known --flag pairs before dispatching on the first positional
// argument.
func parseArgs(args []string) []string {
	var remaining []string

	for i := 0; i < len(args); i++ {
		arg := args[i]

		switch {
		case arg == "--pretty":
			prettyXML = true
		case arg == "--no-decl":
			noDeclXML = true
		case arg == "--help" || arg == "-h":
			printUsage()
			os.Exit(0)
		default:
			remaining = append(remaining, arg)
		}
	}

	return remaining
}

func readSource(filename string) string {
	data, err := os.ReadFile(filename)
	if err != nil {
		fmt.Printf("Error reading %s: %v\n", filename, err)
		os.Exit(1)
	}
	return string(data)
}

func writeOutput(outputPath, defaultPath, content string) {
	if outputPath == "" {
		outputPath = defaultPath
	}
	if err := os.WriteFile(outputPath, []byte(content), 0644); err != nil {
		fmt.Printf("Error writing %s: %v\n", outputPath, err)
		os.Exit(1)
	}
	fmt.Printf("✓ Wrote %s\n", outputPath)
}

func withExt(filename, ext string) string {
	base := filepath.Base(filename)
	return strings.TrimSuffix(base, filepath.Ext(base)) + ext
}

func runTokenize(filename string) {
	source := readSource(filename)
	toks, diags := lexer.Tokenize(source)
	for _, t := range toks {
		fmt.Printf("%-22s %q (%d:%d)\n", t.Kind, t.Text, t.Line, t.Column)
	}
	diag.Print(os.Stderr, filename, diags)
	exitOnError(diags)
}

func runParse(filename string) {
	source := readSource(filename)
	score, diags := parser.Parse(source)
	if score == nil {
		fmt.Println("parse failed: no AST produced")
	} else {
		fmt.Printf("parsed %d stave(s)\n", len(score.Staves))
	}
	diag.Print(os.Stderr, filename, diags)
	exitOnError(diags)
}

func runLint(filename string) {
	source := readSource(filename)
	score, diags := parser.Parse(source)
	if score != nil {
		diags = append(diags, validator.Validate(score)...)
	}
	diag.Print(os.Stderr, filename, diags)
	exitOnError(diags)
}

func runXML(filename, outputPath string) {
	source := readSource(filename)
	score, diags := parser.Parse(source)
	if score != nil {
		diags = append(diags, validator.Validate(score)...)
	}
	diag.Print(os.Stderr, filename, diags)
	if score == nil {
		os.Exit(1)
	}

	xml := musicxml.Transpile(score, musicxml.Options{
		PrettyPrint:           prettyXML,
		IncludeXMLDeclaration: !noDeclXML,
	})
	writeOutput(outputPath, withExt(filename, ".musicxml"), xml)
	exitOnError(diags)
}

func runFormat(filename, outputPath string) {
	source := readSource(filename)
	writeOutput(outputPath, withExt(filename, ".score"), format.Format(source, format.Options{}))
}

func runMinify(filename, outputPath string) {
	source := readSource(filename)
	writeOutput(outputPath, withExt(filename, ".score"), format.Minify(source))
}

func exitOnError(diags []ast.Diagnostic) {
	for _, d := range diags {
		if d.Severity == ast.SeverityError {
			os.Exit(1)
		}
	}
}

func printUsage() {
	fmt.Println("Scorelang Compiler v0.1")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  scorelang tokenize <file.score>          Print the token stream")
	fmt.Println("  scorelang parse <file.score>              Parse and print diagnostics")
	fmt.Println("  scorelang lint <file.score>                Parse, validate, print diagnostics")
	fmt.Println("  scorelang xml <file.score> [out.musicxml]  Emit MusicXML")
	fmt.Println("  scorelang fmt <file.score> [out.score]     Pretty-print")
	fmt.Println("  scorelang minify <file.score> [out.score]  Minify")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  --pretty        Indent MusicXML output (xml command)")
	fmt.Println("  --no-decl       Omit the <?xml?> declaration (xml command)")
	fmt.Println("  --help, -h      Show this help")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  scorelang lint examples/prelude.score")
	fmt.Println("  scorelang xml --pretty examples/prelude.score prelude.musicxml")
	fmt.Println("  scorelang fmt examples/prelude.score")
}
