// Package formatter renders chord.Chord values into human-readable names:
// conventional chord symbols (spelled enharmonically via the circle of
// fifths) and Roman-numeral analysis. See spec.md §4.3.
package formatter

import (
	"fmt"
	"strings"

	"github.com/aftertouch/harmonia/internal/chord"
)

// circleOfFifths lists natural note letters starting from Fb's neighbor,
// indexed by fifths-offset-from-F mod 7.
const circleOfFifths = "FCGDAEB"

var romanNumerals = [12]string{
	"I", "bII", "II", "bIII", "III", "IV", "#IV", "V", "bVI", "VI", "bVII", "VII",
}

// PitchName spells a pitch class (relativeSemitone above the tonic)
// enharmonically, choosing sharps or flats based on how far the note sits
// from F on the circle of fifths once the key signature's own sharps/flats
// are folded in. keySig is a circle-of-fifths position (0 = C major, 1 =
// G major, -1 = F major, ...).
func PitchName(relativeSemitone, keySig int) string {
	circleOfFifthsPosition := mod(relativeSemitone*7+4, 12) - 4
	fifthsOffsetFromF := keySig + circleOfFifthsPosition + 1
	root := mod(fifthsOffsetFromF, 7)
	modifier := floorDiv(fifthsOffsetFromF, 7)

	letter := string(circleOfFifths[root])
	if modifier < 0 {
		return letter + strings.Repeat("♭", -modifier)
	}
	return letter + strings.Repeat("♯", modifier)
}

// ChordName renders a conventional chord symbol, e.g. "Cmaj7", "Am",
// "F♯dim7/A", given the key signature that roots are expressed relative
// to (0 if root is already absolute).
func ChordName(c chord.Chord, keySignature int) string {
	if !c.HasRoot {
		return "N.C."
	}
	base := PitchName(c.Root, keySignature)
	if !c.HasRelative {
		return base + "pedal"
	}

	rc := c.Relative
	switch rc.Quality {
	case chord.Maj, chord.MajFlat5, chord.Sus2, chord.Sus4:
		switch rc.Seventh {
		case chord.NoSeventh:
		case chord.MajSeventh:
			base += "maj7"
		case chord.MinSeventh:
			base += "7"
		case chord.DimSeventh:
			base += "6"
		}
		switch rc.Quality {
		case chord.MajFlat5:
			base += "b5"
		case chord.Sus2:
			base += "sus2"
		case chord.Sus4:
			base += "sus4"
		}
	case chord.Min:
		switch rc.Seventh {
		case chord.NoSeventh:
			base += "m"
		case chord.MajSeventh:
			base += "minMaj7"
		case chord.MinSeventh:
			base += "m7"
		case chord.DimSeventh:
			base += "m6"
		}
	case chord.Dim:
		switch rc.Seventh {
		case chord.NoSeventh:
			base += "dim"
		case chord.MajSeventh:
			base += "dimMaj7"
		case chord.MinSeventh:
			base += "dimMin7"
		case chord.DimSeventh:
			base += "dim7"
		}
	case chord.Aug:
		switch rc.Seventh {
		case chord.NoSeventh:
			base += "aug"
		case chord.MajSeventh:
			base += "aug7"
		case chord.MinSeventh:
			base += "augMin7"
		case chord.DimSeventh:
			base += "augDim7"
		}
	}

	if rc.Inversions != 0 {
		rendered := c.Render()
		base += "/" + PitchName(rendered[0], keySignature)
	}

	return base
}

// ToRomanNumeral renders figured-bass Roman-numeral analysis relative to
// the chord's own root field (the caller is expected to pass a relative
// chord, i.e. one already expressed as scale degrees above the tonic).
func ToRomanNumeral(c chord.Chord) string {
	if !c.HasRoot {
		return "N.C."
	}
	base := romanNumerals[c.Root]
	if !c.HasRelative {
		return base + "pedal"
	}
	rc := c.Relative

	switch rc.Quality {
	case chord.Min:
		base = strings.ToLower(base)
	case chord.Aug:
		base += "+"
	case chord.Dim:
		base = strings.ToLower(base)
		if rc.Seventh == chord.MinSeventh {
			base += "h"
		} else {
			base += "o"
		}
	default: // maj, majb5, sus2, sus4
		if rc.Seventh == chord.MinSeventh {
			base += "d"
		}
	}

	if rc.Seventh != chord.NoSeventh {
		figures := [4]string{"7", "65", "43", "42"}
		base += figures[rc.Inversions%4]
	} else {
		figures := [3]string{"", "6", "64"}
		base += figures[rc.Inversions%3]
	}

	switch rc.Quality {
	case chord.Sus2:
		base += "s2"
	case chord.Sus4:
		base += "s4"
	case chord.MajFlat5:
		base += "b5"
	}

	return base
}

// String is a catch-all debug rendering, used by log lines and tests that
// don't care which naming convention applies.
func String(c chord.Chord) string {
	return fmt.Sprintf("%s (%s)", ChordName(c, 0), ToRomanNumeral(c))
}

func mod(a, b int) int {
	m := a % b
	if m < 0 {
		m += b
	}
	return m
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
