// Package theory holds Scorelang's compile-time music-theory tables: key
// signature fifths, accidental alters, clef sign/line pairs, and the fixed
// dynamics/articulation vocabulary recognized by inline and annotation-block
// functions.
//
// Built as map[X]Y constants plus small pure lookup functions over them,
// covering the key-signature and notation bookkeeping the transpiler and
// parser need.
package theory

import "strings"

// fifths maps a normalized key name (root + optional trailing "m" for
// minor) to its MusicXML fifths count.
var fifths = map[string]int{
	"C": 0, "Am": 0,
	"G": 1, "Em": 1,
	"D": 2, "Bm": 2,
	"A": 3, "F#m": 3,
	"E": 4, "C#m": 4,
	"B": 5, "G#m": 5,
	"F#": 6, "D#m": 6,
	"F": -1, "Dm": -1,
	"Bb": -2, "Gm": -2,
	"Eb": -3, "Cm": -3,
	"Ab": -4, "Fm": -4,
	"Db": -5, "Bbm": -5,
	"Gb": -6, "Ebm": -6,
}

// NormalizeKey strips " major"/"maj" and collapses " minor"/"min" to a
// trailing "m".
func NormalizeKey(key string) string {
	k := strings.TrimSpace(key)
	if k == "" {
		return "C"
	}
	lower := strings.ToLower(k)
	switch {
	case strings.HasSuffix(lower, " major"):
		return strings.TrimSpace(k[:len(k)-len(" major")])
	case strings.HasSuffix(lower, "maj"):
		return strings.TrimSpace(k[:len(k)-len("maj")])
	case strings.HasSuffix(lower, " minor"):
		return strings.TrimSpace(k[:len(k)-len(" minor")]) + "m"
	case strings.HasSuffix(lower, "min"):
		return strings.TrimSpace(k[:len(k)-len("min")]) + "m"
	default:
		return k
	}
}

// IsMinor reports whether a normalized key name denotes a minor key: it
// ends in "m" (but not a root name that is itself just "m"-less, e.g. a
// bare accidental) or matches /minor|min$/i before normalization.
func IsMinor(normalized string) bool {
	return strings.HasSuffix(normalized, "m") && normalized != "m"
}

// Fifths returns the MusicXML fifths value for a key string such as
// "C major", "Dm", "F#". Unknown keys default to 0 (C major).
func Fifths(key string) int {
	n := NormalizeKey(key)
	if v, ok := fifths[n]; ok {
		return v
	}
	return 0
}

// ClefSignLine returns the MusicXML <sign>/<line> pair for a clef.
func ClefSignLine(clef string) (sign string, line int) {
	switch clef {
	case "bass", "bass-8":
		return "F", 4
	case "alto":
		return "C", 3
	case "tenor":
		return "C", 4
	default: // treble, treble-8, and any unrecognized clef default to treble
		return "G", 2
	}
}

// AccidentalAlter maps an accidental marker to its MusicXML <alter> value.
var AccidentalAlter = map[string]int{
	"":   0,
	"#":  1,
	"##": 2,
	"b":  -1,
	"bb": -2,
}

// AccidentalLabel maps an accidental marker to its MusicXML
// <accidental> element text.
var AccidentalLabel = map[string]string{
	"#":  "sharp",
	"##": "double-sharp",
	"b":  "flat",
	"bb": "flat-flat",
}

// Dynamics is the fixed vocabulary of dynamic markings recognized as inline
// or annotation-block functions.
var Dynamics = map[string]bool{
	"ppp": true, "pp": true, "p": true, "mp": true, "mf": true,
	"f": true, "ff": true, "fff": true, "fp": true, "sfz": true,
}

// articulationXML maps an articulation function name to the MusicXML
// element it emits inside <articulations>.
var articulationXML = map[string]string{
	"st": "staccato",
	"tn": "tenuto",
	"ac": "accent",
	"mc": "strong-accent",
	"fm": "fermata",
	"tr": "trill-mark", // rendered under <ornaments>, not <articulations>
}

// Articulations is the fixed vocabulary of articulation function names.
var Articulations = map[string]bool{
	"st": true, "tn": true, "ac": true, "mc": true, "fm": true, "tr": true,
}

// ArticulationElement returns the MusicXML element name for an articulation
// function name, and whether it is recognized.
func ArticulationElement(name string) (string, bool) {
	el, ok := articulationXML[name]
	return el, ok
}

// IsTrill reports whether an articulation name denotes the ornament trill
// mark, which the transpiler places under <ornaments> rather than
// <articulations>.
func IsTrill(name string) bool { return name == "tr" }

// EnharmonicInfo names the note/accidental pairs the validator flags at
// info severity as unusual spellings.
var EnharmonicInfo = map[string]string{
	"Cb": "enharmonic with B",
	"Fb": "enharmonic with E",
	"E#": "enharmonic with F",
	"B#": "enharmonic with C",
}
