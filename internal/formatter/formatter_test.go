package formatter

import (
	"testing"

	"github.com/aftertouch/harmonia/internal/chord"
)

func TestPitchNameKeyC(t *testing.T) {
	cases := map[int]string{
		0:  "C",
		1:  "C♯",
		2:  "D",
		5:  "F",
		7:  "G",
		11: "B",
	}
	for semitone, want := range cases {
		got := PitchName(semitone, 0)
		if got != want {
			t.Errorf("PitchName(%d, key=C) = %q, want %q", semitone, got, want)
		}
	}
}

func TestChordNameMajorMinor(t *testing.T) {
	tonic := chord.NewChord(0, chord.RelativeChord{Quality: chord.Maj})
	if got := ChordName(tonic, 0); got != "C" {
		t.Errorf("ChordName(I) = %q, want %q", got, "C")
	}

	vi := chord.NewChord(9, chord.RelativeChord{Quality: chord.Min})
	if got := ChordName(vi, 0); got != "Am" {
		t.Errorf("ChordName(vi) = %q, want %q", got, "Am")
	}
}

func TestChordNameNoChordAndPedal(t *testing.T) {
	if got := ChordName(chord.NoChord, 0); got != "N.C." {
		t.Errorf("ChordName(NoChord) = %q, want N.C.", got)
	}
	pedal := chord.NewPedal(7)
	if got := ChordName(pedal, 0); got != "Gpedal" {
		t.Errorf("ChordName(pedal G) = %q, want Gpedal", got)
	}
}

func TestToRomanNumeralTriads(t *testing.T) {
	I := chord.NewChord(0, chord.RelativeChord{Quality: chord.Maj})
	if got := ToRomanNumeral(I); got != "I" {
		t.Errorf("ToRomanNumeral(I) = %q, want I", got)
	}
	ii := chord.NewChord(2, chord.RelativeChord{Quality: chord.Min})
	if got := ToRomanNumeral(ii); got != "ii" {
		t.Errorf("ToRomanNumeral(ii) = %q, want ii", got)
	}
	V7 := chord.NewChord(7, chord.RelativeChord{Quality: chord.Maj, Seventh: chord.MinSeventh})
	if got := ToRomanNumeral(V7); got != "Vd7" {
		t.Errorf("ToRomanNumeral(V7) = %q, want Vd7", got)
	}
}

func TestToRomanNumeralDiminished(t *testing.T) {
	viiHalfDim := chord.NewChord(11, chord.RelativeChord{Quality: chord.Dim, Seventh: chord.MinSeventh})
	if got := ToRomanNumeral(viiHalfDim); got != "viih7" {
		t.Errorf("ToRomanNumeral(vii half-dim) = %q, want viih7", got)
	}
	viiFullDim := chord.NewChord(11, chord.RelativeChord{Quality: chord.Dim, Seventh: chord.DimSeventh})
	if got := ToRomanNumeral(viiFullDim); got != "viio7" {
		t.Errorf("ToRomanNumeral(vii full-dim) = %q, want viio7", got)
	}
}
