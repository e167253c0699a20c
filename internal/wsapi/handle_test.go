package wsapi

import (
	"testing"

	"github.com/aftertouch/harmonia/internal/chord"
	"github.com/aftertouch/harmonia/internal/modelset"
	"github.com/aftertouch/harmonia/internal/song"
)

func sampleModelSet() modelset.ModelSet {
	maj := func(root int) chord.Chord { return chord.NewChord(root, chord.RelativeChord{Quality: chord.Maj}) }
	measure := func(c chord.Chord) song.Measure { return song.Measure{Chord: c, Reps: 1} }
	rock := []song.Song{
		{Measures: []song.Measure{measure(maj(0)), measure(maj(7)), measure(maj(0))}},
		{Measures: []song.Measure{measure(maj(0)), measure(maj(5)), measure(maj(7)), measure(maj(0))}},
	}
	return modelset.Build(rock, nil, nil)
}

func TestHandleProducesOneSlotPerConstraint(t *testing.T) {
	ms := sampleModelSet()
	req := Request{
		Seq:         1,
		Music:       Music{Notes: []Note{{Pitch: 60, Start: 0, End: 1}, {Pitch: 67, Start: 1, End: 2}}},
		ChordLength: 1,
		Mode:        "major",
		Tolerance:   0.01,
		Constraints: []Constraint{{Time: 0}, {Time: 1}},
	}
	resp, err := Handle(ms, req)
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if resp.Seq != 1 {
		t.Errorf("Seq = %d, want 1", resp.Seq)
	}
	if len(resp.Result) != 2 {
		t.Fatalf("expected 2 result slots, got %d", len(resp.Result))
	}
	if len(resp.AllChords) == 0 {
		t.Errorf("expected a non-empty allChords universe")
	}
}

func TestHandleEmptyNotesAndConstraintsIsAnError(t *testing.T) {
	ms := sampleModelSet()
	req := Request{Mode: "major", ChordLength: 1}
	if _, err := Handle(ms, req); err == nil {
		t.Fatalf("expected an error with no notes and no constraints")
	}
}

func TestHandlePreserveForcesChosenChord(t *testing.T) {
	ms := sampleModelSet()
	preserved := chord.NewChord(5, chord.RelativeChord{Quality: chord.Maj}).Stringify()
	req := Request{
		Music:       Music{Notes: []Note{{Pitch: 60, Start: 0, End: 1}}},
		ChordLength: 1,
		Mode:        "major",
		Tolerance:   0.01,
		Preserve:    true,
		Constraints: []Constraint{{Time: 0, Value: preserved, Locked: false}},
	}
	resp, err := Handle(ms, req)
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if resp.Result[0].Value.Value != preserved {
		t.Errorf("chosen value = %q, want preserved value %q", resp.Result[0].Value.Value, preserved)
	}
}

func TestHandleUnrecognizedModeStillProducesAResult(t *testing.T) {
	ms := sampleModelSet()
	req := Request{
		Music:       Music{Notes: []Note{{Pitch: 60, Start: 0, End: 1}}},
		ChordLength: 1,
		Mode:        "not-a-real-mode",
		Tolerance:   0.01,
	}
	if _, err := Handle(ms, req); err != nil {
		t.Fatalf("Handle with an unrecognized mode should still produce a result (falls back to major): %v", err)
	}
}
