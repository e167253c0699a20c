package abc

import (
	"strings"
	"testing"

	"github.com/aftertouch/harmonia/internal/chord"
)

const sampleTune = `X:1
T:Sample Jig
M:6/8
L:1/8
K:C
"C"CDE "G7"GAB|"F"FGA "C"cde|
`

func TestParseSplitsSectionsAndNotes(t *testing.T) {
	songs, err := Parse("sample.abc", strings.NewReader(sampleTune))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(songs) != 1 {
		t.Fatalf("expected 1 song, got %d", len(songs))
	}
	sg := songs[0]
	if sg.ModeTag != "major" {
		t.Errorf("mode = %q, want major", sg.ModeTag)
	}
	if len(sg.Measures) != 4 {
		t.Fatalf("expected 4 chord changes, got %d: %+v", len(sg.Measures), sg.Measures)
	}
	if got := sg.Measures[0].Chord; got != chord.NewChord(0, chord.RelativeChord{Quality: chord.Maj}) {
		t.Errorf("measure 0 chord = %+v, want C major", got)
	}
	if got := sg.Measures[1].Chord; got != chord.NewChord(7, chord.RelativeChord{Quality: chord.Maj, Seventh: chord.MinSeventh}) {
		t.Errorf("measure 1 chord = %+v, want G7", got)
	}
	if len(sg.Measures[0].MelodyNotes) != 3 {
		t.Errorf("measure 0 should have 3 melody notes, got %d", len(sg.Measures[0].MelodyNotes))
	}
}

func TestParseKeyChangeStartsNewSection(t *testing.T) {
	tune := "X:1\nT:Modulator\nK:C\n\"C\"CDE|\nK:G\n\"G\"GAB|\n"
	songs, err := Parse("mod.abc", strings.NewReader(tune))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(songs) != 2 {
		t.Fatalf("expected 2 sections, got %d", len(songs))
	}
	if !strings.HasSuffix(songs[0].Name, "/0") || !strings.HasSuffix(songs[1].Name, "/1") {
		t.Errorf("section names = %q, %q, want suffixes /0 and /1", songs[0].Name, songs[1].Name)
	}
}

func TestParseChordSymbolVariants(t *testing.T) {
	cases := map[string]chord.RelativeChord{
		"Dm":  {Quality: chord.Min},
		"Dm7": {Quality: chord.Min, Seventh: chord.MinSeventh},
		"D7":  {Quality: chord.Maj, Seventh: chord.MinSeventh},
		"B-":  {Quality: chord.Maj}, // '-' is the Nottingham flat marker
		"C6":  {Quality: chord.Maj},
	}
	for symbol, want := range cases {
		c, err := parseChordSymbol(symbol, 0)
		if err != nil {
			t.Fatalf("parseChordSymbol(%q): %v", symbol, err)
		}
		if c.Relative != want {
			t.Errorf("parseChordSymbol(%q).Relative = %+v, want %+v", symbol, c.Relative, want)
		}
	}
}

func TestParseChordSymbolSlashBassInfersInversion(t *testing.T) {
	// D/f#: a D major triad (D F# A) with F# in the bass is first inversion.
	c, err := parseChordSymbol("D/f#", 0)
	if err != nil {
		t.Fatalf("parseChordSymbol(D/f#): %v", err)
	}
	if c.Relative.Inversions != 1 {
		t.Errorf("Inversions = %d, want 1", c.Relative.Inversions)
	}
}

func TestParseUnrecognizedKeyErrors(t *testing.T) {
	tune := "X:1\nT:Bad\nK:Zz\n\"C\"CDE|\n"
	if _, err := Parse("bad.abc", strings.NewReader(tune)); err == nil {
		t.Fatalf("expected an error for an unrecognized key signature")
	}
}

func TestParseDurationModifiers(t *testing.T) {
	cases := []struct {
		line string
		want float64
	}{
		{"C", 1},
		{"C2", 2},
		{"C/2", 0.5},
		{"C3/2", 1.5},
	}
	for _, tc := range cases {
		runes := []rune(tc.line)
		_, consumed := parseNote(runes)
		got := parseDuration(runes, consumed)
		if got != tc.want {
			t.Errorf("parseDuration(%q) = %v, want %v", tc.line, got, tc.want)
		}
	}
}
