// Package ast defines the Scorelang abstract syntax tree: the owned,
// immutable value returned by parser.Parse and consumed by validator.Validate
// and musicxml.Transpile.
package ast

// Location is a source span, byte-offset and line/column based, 1-indexed
// for line and column per spec.
type Location struct {
	Line      int
	Column    int
	ByteStart int
	ByteEnd   int
}

// Span returns the union of two locations: from the start of a to the end
// of b. Used to build composite-node spans from first-child/last-child.
func Span(a, b Location) Location {
	return Location{
		Line:      a.Line,
		Column:    a.Column,
		ByteStart: a.ByteStart,
		ByteEnd:   b.ByteEnd,
	}
}

// Severity is one of the three diagnostic levels produced across the
// lexer, parser and validator.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Diagnostic is the single shared error-reporting value for every stage.
type Diagnostic struct {
	Severity Severity
	Message  string
	Line     int
	Column   int
	EndLine  int
	EndColumn int
}

// Accidental is a pitch alteration marker.
type Accidental string

const (
	AccidentalNone         Accidental = ""
	AccidentalSharp        Accidental = "#"
	AccidentalDoubleSharp  Accidental = "##"
	AccidentalFlat         Accidental = "b"
	AccidentalDoubleFlat   Accidental = "bb"
)

// Pitch is a single named pitch: a letter, an accidental, and an octave.
type Pitch struct {
	Loc        Location
	Note       byte // 'A'..'G'
	Accidental Accidental
	Octave     int // 0..=8; octave-modifier arithmetic saturates, an explicit digit 9 is kept for the validator to flag
}

// DurationBase is the base note value, before dots.
type DurationBase string

const (
	DurationWhole      DurationBase = "w"
	DurationHalf       DurationBase = "h"
	DurationQuarter    DurationBase = "q"
	DurationEighth     DurationBase = "8"
	DurationSixteenth  DurationBase = "16"
	DurationThirtySecond DurationBase = "32"
)

// Duration is a base note value plus augmentation dots.
type Duration struct {
	Loc  Location
	Base DurationBase
	Dots int // validated 0..=2; >2 warns but is kept as-authored
}

// WedgeState marks one endpoint of a crescendo/decrescendo hairpin.
type WedgeState string

const (
	WedgeStart WedgeState = "start"
	WedgeEnd   WedgeState = "end"
)

// SlurState marks one endpoint of a slur.
type SlurState string

const (
	SlurStart SlurState = "start"
	SlurEnd   SlurState = "end"
)

// PedalState marks one endpoint of a sustain-pedal marking.
type PedalState string

const (
	PedalStart PedalState = "start"
	PedalEnd   PedalState = "end"
)

// Annotation holds the optional modifiers that may attach to a Note, Rest,
// or Chord via inline functions or an annotation block.
type Annotation struct {
	Dynamic       string   // "" when unset; one of the fixed dynamics vocabulary
	Articulations []string // ordered, may contain duplicates
	Fingering     int      // 0 when unset; else 1..=5
	Text          string
	Crescendo     WedgeState  // "" when unset
	Decrescendo   WedgeState  // "" when unset
	SlurStart     bool
	SlurEnd       bool
	PedalStart    bool
	PedalEnd      bool
}

// IsZero reports whether the annotation carries no information at all, so
// callers can skip allocating/emitting one.
func (a *Annotation) IsZero() bool {
	if a == nil {
		return true
	}
	return a.Dynamic == "" && len(a.Articulations) == 0 && a.Fingering == 0 &&
		a.Text == "" && a.Crescendo == "" && a.Decrescendo == "" &&
		!a.SlurStart && !a.SlurEnd && !a.PedalStart && !a.PedalEnd
}

// Element is the sum type of things that occupy a beat position inside a
// measure: Note, Rest, or Chord. The transpiler and validator each switch
// on it exhaustively.
type Element interface {
	element()
	Location() Location
	GetDuration() Duration
	Beamed() bool
}

// Note is a single pitched, possibly-tied, possibly-beamed event.
type Note struct {
	Loc        Location
	Pitch      Pitch
	Duration   Duration
	Tied       bool
	IsBeamed   bool
	Grace      bool
	Annotation *Annotation
}

func (*Note) element()                {}
func (n *Note) Location() Location    { return n.Loc }
func (n *Note) GetDuration() Duration { return n.Duration }
func (n *Note) Beamed() bool          { return n.IsBeamed }

// Rest is a silent event with a duration.
type Rest struct {
	Loc      Location
	Duration Duration
}

func (*Rest) element()                {}
func (r *Rest) Location() Location    { return r.Loc }
func (r *Rest) GetDuration() Duration { return r.Duration }
func (r *Rest) Beamed() bool          { return false }

// Chord is a simultaneous group of pitches sharing one duration.
type Chord struct {
	Loc        Location
	Pitches    []Pitch // non-empty
	Duration   Duration
	Tied       bool
	Annotation *Annotation
}

func (*Chord) element()                {}
func (c *Chord) Location() Location    { return c.Loc }
func (c *Chord) GetDuration() Duration { return c.Duration }
func (c *Chord) Beamed() bool          { return false }

// Clef is a staff clef.
type Clef string

const (
	ClefTreble   Clef = "treble"
	ClefBass     Clef = "bass"
	ClefAlto     Clef = "alto"
	ClefTenor    Clef = "tenor"
	ClefTreble8  Clef = "treble-8"
	ClefBass8    Clef = "bass-8"
)

// TimeSignature is a beats/beatType pair, e.g. 4/4.
type TimeSignature struct {
	Beats    int
	BeatType int // one of 2, 4, 8, 16
}

// MeasureAttributes carries the context (key/time/clef) active at the start
// of a measure. Non-nil only on a staff's first measure, or at a mid-score
// context change for that staff.
type MeasureAttributes struct {
	Key   string // normalized key/mode string, e.g. "G", "Em"; "" when unset
	Time  *TimeSignature
	Clef  Clef
}

// Barline is the terminating barline style of a measure. Scorelang lexes
// repeat/volta markers but does not give them deeper semantics (Non-goal),
// so this is a thin marker: the parser sets BarlineNormal on every measure
// and the transpiler emits no barline element from it.
type Barline string

const (
	BarlineNormal Barline = "normal"
	BarlineRepeatStart Barline = "repeat-start"
	BarlineRepeatEnd   Barline = "repeat-end"
)

// Measure is a beat-bounded span of elements within a Staff.
type Measure struct {
	Loc        Location
	Elements   []Element
	Barline    Barline
	Attributes *MeasureAttributes // nil unless this measure changes context
}

// Staff is one horizontal musical line (a MusicXML part).
type Staff struct {
	Loc      Location
	Name     string
	Clef     Clef
	Measures []Measure
}

// DeclaredStave is a stave declared in the frontmatter, before any body use.
type DeclaredStave struct {
	Name string
	Clef Clef
}

// Metadata is the decoded frontmatter: title/composer/key/time/tempo plus
// the default octave and the declared staves.
type Metadata struct {
	Title          string
	Composer       string
	Key            string
	Time           *TimeSignature
	Tempo          int
	DefaultOctave  int
	DeclaredStaves []DeclaredStave
}

// Score is the root AST node: metadata plus ordered staves.
type Score struct {
	Metadata Metadata
	Staves   []Staff
}
