package marg

import (
	"strings"
	"testing"

	"github.com/aftertouch/harmonia/internal/chord"
)

const sampleCSV = `key_fifths,key_mode,note_root,note_duration,measure,chord_root,chord_type
0,major,C0,1.0,1,C0,maj
0,major,E0,1.0,1,C0,maj
0,major,D0,0.5,2,D0,min
0,major,F0,0.5,2,D0,min
`

func TestParseCSVGroupsNotesByMeasure(t *testing.T) {
	sg, err := ParseCSV("sample.csv", strings.NewReader(sampleCSV))
	if err != nil {
		t.Fatalf("ParseCSV: %v", err)
	}
	if len(sg.Measures) != 2 {
		t.Fatalf("expected 2 measures, got %d", len(sg.Measures))
	}
	if len(sg.Measures[0].MelodyNotes) != 2 {
		t.Errorf("measure 0 should have 2 melody notes, got %d", len(sg.Measures[0].MelodyNotes))
	}
	want0 := chord.NewChord(0, chord.RelativeChord{Quality: chord.Maj})
	if sg.Measures[0].Chord != want0 {
		t.Errorf("measure 0 chord = %+v, want %+v", sg.Measures[0].Chord, want0)
	}
	want1 := chord.NewChord(2, chord.RelativeChord{Quality: chord.Min})
	if sg.Measures[1].Chord != want1 {
		t.Errorf("measure 1 chord = %+v, want %+v", sg.Measures[1].Chord, want1)
	}
}

func TestParseCSVMissingColumnErrors(t *testing.T) {
	bad := "a,b,c\n1,2,3\n"
	if _, err := ParseCSV("bad.csv", strings.NewReader(bad)); err == nil {
		t.Fatalf("expected an error for a CSV missing required columns")
	}
}

func TestResolveChordNoChordSentinel(t *testing.T) {
	c := resolveChord("C0", 0, "[]")
	if c != chord.NoChord {
		t.Errorf("resolveChord with chord_type []= %+v, want NoChord", c)
	}
}
