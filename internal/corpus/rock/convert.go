// Package rock parses the Rock Corpus (Temperley & de Clercq)
// .clt/.nlt harmony/melody transcriptions into song.Song values. See
// spec.md §6.2 and corpus/rs/{__init__,convert}.py.
package rock

import (
	"fmt"
	"strings"

	"github.com/aftertouch/harmonia/internal/chord"
)

// romanNumerals indexes Rock Corpus Roman-numeral roots, identical to
// the formatter package's table but kept local so this parser has no
// dependency on chord naming.
var romanNumerals = [12]string{
	"I", "bII", "II", "bIII", "III", "IV", "#IV", "V", "bVI", "VI", "bVII", "VII",
}

// identifyRomanNumeral resolves a bare (no figured-bass suffix) Roman
// numeral symbol to its scale-degree root and triad quality.
func identifyRomanNumeral(symbol string) (int, chord.Quality, error) {
	if symbol == "bV" {
		symbol = "#IV"
	}
	for i, rn := range romanNumerals {
		if rn == symbol {
			return i, chord.Maj, nil
		}
		if strings.ToLower(rn) == symbol {
			return i, chord.Min, nil
		}
	}
	return 0, 0, fmt.Errorf("rock: can't identify roman numeral %q", symbol)
}

// cut trims suffix from *s and reports whether it was present.
func cut(s *string, suffix string) bool {
	if strings.HasSuffix(*s, suffix) {
		*s = (*s)[:len(*s)-len(suffix)]
		return true
	}
	return false
}

// Convert parses a Temperley/de Clercq Roman-numeral chord symbol (e.g.
// "iih65", "Vd7/V") into a chord.Chord, following the figured-bass and
// quality-qualifier suffix grammar documented in spec.md §6.2.
func Convert(symbol string) (chord.Chord, error) {
	relativeBase := 0
	seventh := "" // "", "?" (pending), "min", "maj", "dim"
	inversions := 0
	qualityOverride := "" // "", "aug", "flat5", "sus4", "dim"

	if idx := strings.IndexByte(symbol, '/'); idx >= 0 {
		base := symbol[idx+1:]
		symbol = symbol[:idx]
		baseMidi, _, err := identifyRomanNumeral(base)
		if err != nil {
			return chord.Chord{}, err
		}
		relativeBase = baseMidi
	}

	if cut(&symbol, "+11") {
		qualityOverride = "aug"
		seventh = "min"
	}
	if cut(&symbol, "b5") {
		qualityOverride = "flat5"
	}
	if cut(&symbol, "s4") {
		qualityOverride = "sus4"
	}

	switch {
	case cut(&symbol, "64"):
		inversions = 2
	case cut(&symbol, "65"):
		inversions = 1
		seventh = "?"
	case cut(&symbol, "43"):
		inversions = 2
		seventh = "?"
	case cut(&symbol, "42"):
		inversions = 3
		seventh = "?"
	case cut(&symbol, "6"):
		inversions = 1
	case cut(&symbol, "11"):
		seventh = "?"
	case cut(&symbol, "9"):
		seventh = "?"
	case cut(&symbol, "7"):
		seventh = "?"
	}

	switch {
	case cut(&symbol, "x"), cut(&symbol, "o"):
		qualityOverride = "dim"
		if seventh != "" {
			seventh = "dim"
		}
	case cut(&symbol, "d"):
		seventh = "min"
	case cut(&symbol, "h"):
		qualityOverride = "dim"
		seventh = "min"
	case cut(&symbol, "+"), cut(&symbol, "a"):
		qualityOverride = "aug"
	}

	midi, quality, err := identifyRomanNumeral(symbol)
	if err != nil {
		return chord.Chord{}, err
	}

	if seventh == "?" {
		if midi == 7 && quality == chord.Maj {
			seventh = "min"
		} else if quality == chord.Maj {
			seventh = "maj"
		} else {
			seventh = "min"
		}
	}

	if qualityOverride == "flat5" {
		if quality == chord.Maj {
			quality = chord.MajFlat5
		} else {
			quality = chord.Dim
		}
	} else if qualityOverride == "aug" {
		quality = chord.Aug
	} else if qualityOverride == "sus4" {
		quality = chord.Sus4
	} else if qualityOverride == "dim" {
		quality = chord.Dim
	}

	var sev chord.Seventh
	switch seventh {
	case "maj":
		sev = chord.MajSeventh
	case "min":
		sev = chord.MinSeventh
	case "dim":
		sev = chord.DimSeventh
	default:
		sev = chord.NoSeventh
	}

	root := (midi+relativeBase)%12 + 12
	root %= 12

	return chord.NewChord(root, chord.RelativeChord{Quality: quality, Seventh: sev, Inversions: inversions}), nil
}

// chordTypeLabel buckets a Rock Corpus chord symbol into the same
// human-readable categories the original's get_chord_type diagnostic
// used, for corpus ingestion sanity-checking (spec.md §6.2's supplemented
// TabulateChordTypes feature).
func chordTypeLabel(symbol string) string {
	base, additions := intermediateChordType(symbol)
	switch base + additions {
	case "I":
		return "major"
	case "I#9":
		return "major sharp 9th"
	case "I+9":
		return "augmented 9th"
	case "I42":
		return "major 7th, 3rd inversion"
	case "I6":
		return "major, 1st inversion"
	case "I64":
		return "major, 2nd inversion"
	case "I65":
		return "major 7th, 1st inversion"
	case "I7":
		return "major 7th"
	case "I9":
		return "major 9th"
	case "Ib5":
		return "major flat 5"
	case "Id43":
		return "dominant 7th, 2nd inversion"
	case "Id7":
		return "dominant 7th"
	case "Id7#9":
		return "dominant 7th sharp 9th"
	case "Id9":
		return "dominant 9th"
	case "Is4":
		return "suspended 4th"
	case "V":
		return "major"
	case "V+11":
		return "augmented 11th"
	case "V11":
		return "major 11th"
	case "V42":
		return "dominant 7th, 3rd inversion"
	case "V43":
		return "dominant 7th, 2nd inversion"
	case "V6":
		return "major, 1st inversion"
	case "V64":
		return "major, 2nd inversion"
	case "V65":
		return "dominant 7th, 1st inversion"
	case "V7":
		return "dominant 7th"
	case "V7b9":
		return "dominant 7th flat 9th"
	case "V7s4":
		return "dominant 7th with suspended 4th"
	case "V9":
		return "dominant 9th"
	case "Va":
		return "augmented"
	case "Va65":
		return "augmented 7th, 1st inversion"
	case "Va7":
		return "augmented 7th"
	case "Vs4":
		return "suspended 4th"
	case "i":
		return "minor"
	case "i11":
		return "minor 11th"
	case "i42":
		return "minor 7th, 3rd inversion"
	case "i43":
		return "minor 7th, 2nd inversion"
	case "i6":
		return "minor, 1st inversion"
	case "i64":
		return "minor, 2nd inversion"
	case "i65":
		return "minor 7th, 1st inversion"
	case "i7":
		return "minor 7th"
	case "i7s4":
		return "minor 7th with suspended 4th"
	case "i9":
		return "minor 9th"
	case "ih42":
		return "half-diminished 7th, 3rd inversion"
	case "ih43":
		return "half-diminished 7th, 2nd inversion"
	case "ih65":
		return "half-diminished 7th, 1st inversion"
	case "ih7":
		return "half-diminished 7th"
	case "io":
		return "diminished"
	case "io6":
		return "diminished, 1st inversion"
	case "is4":
		return "suspended 4th"
	case "ix42":
		return "diminished 7th, 3rd inversion"
	case "ix43":
		return "diminished 7th, 2rd inversion"
	case "ix7":
		return "diminished 7th"
	default:
		return base + additions
	}
}

// intermediateChordType mirrors get_intermediate_chord_type: it strips
// the same suffixes as Convert but only to classify a symbol's coarse
// shape, not to build a full Chord.
func intermediateChordType(symbol string) (string, string) {
	if idx := strings.IndexByte(symbol, '/'); idx >= 0 {
		symbol = symbol[:idx]
	}
	var additions string
	prepend := func(s string) { additions = s + additions }

	if cut(&symbol, "+11") {
		prepend("+11")
	}
	if cut(&symbol, "#9") {
		prepend("#9")
	}
	if cut(&symbol, "b5") {
		prepend("b5")
	}
	if cut(&symbol, "7b9") {
		prepend("7b9")
	}
	if cut(&symbol, "s4") {
		prepend("s4")
	}

	switch {
	case cut(&symbol, "64"):
		prepend("64")
	case cut(&symbol, "65"):
		prepend("65")
	case cut(&symbol, "43"):
		prepend("43")
	case cut(&symbol, "42"):
		prepend("42")
	case cut(&symbol, "6"):
		prepend("6")
	case cut(&symbol, "11"):
		prepend("11")
	case cut(&symbol, "9"):
		prepend("9")
	case cut(&symbol, "7"):
		prepend("7")
	}

	switch {
	case cut(&symbol, "x"), cut(&symbol, "o"):
	case cut(&symbol, "d"):
		prepend("d")
	case cut(&symbol, "h"):
		prepend("h")
	case cut(&symbol, "+"), cut(&symbol, "a"):
	}

	if symbol == "V" {
		return "V", additions
	}
	_, quality, err := identifyRomanNumeral(symbol)
	if err != nil {
		return symbol, additions
	}
	if quality == chord.Maj {
		return "I", additions
	}
	return "i", additions
}
