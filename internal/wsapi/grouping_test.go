package wsapi

import "testing"

func TestBuildMeasuresGroupsByConstraintBoundary(t *testing.T) {
	notes := []Note{
		{Pitch: 60, Start: 0, End: 1}, // C, slot 0
		{Pitch: 64, Start: 1, End: 2}, // E, slot 1
		{Pitch: 67, Start: 2, End: 3}, // G, slot 1 (trailing)
	}
	constraints := []Constraint{{Time: 0}, {Time: 1}}
	grouped, outConstraints, preserve, err := BuildMeasures(notes, constraints, 1, 0.01, 0, false)
	if err != nil {
		t.Fatalf("BuildMeasures: %v", err)
	}
	if len(outConstraints) != 2 {
		t.Fatalf("expected constraints to pass through unchanged, got %d", len(outConstraints))
	}
	if preserve {
		t.Errorf("preserve should stay false when constraints were supplied")
	}
	if len(grouped) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(grouped))
	}
	if len(grouped[0]) != 1 || grouped[0][0] != 0 {
		t.Errorf("slot 0 = %v, want [0] (C relative to C major)", grouped[0])
	}
	if len(grouped[1]) != 2 {
		t.Errorf("slot 1 should contain both the second and trailing note, got %v", grouped[1])
	}
}

func TestBuildMeasuresSynthesizesConstraintsFromChordLength(t *testing.T) {
	notes := []Note{{Pitch: 60, Start: 0, End: 3.5}}
	grouped, constraints, preserve, err := BuildMeasures(notes, nil, 2, 0.01, 0, true)
	if err != nil {
		t.Fatalf("BuildMeasures: %v", err)
	}
	// last_end=3.5, chordLength=2 -> 1 + floor(3.5/2) = 1 + 1 = 2 slots.
	if len(constraints) != 2 {
		t.Fatalf("expected 2 synthesized constraints, got %d", len(constraints))
	}
	if preserve {
		t.Errorf("preserve should be forced false when constraints are synthesized")
	}
	if len(grouped) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(grouped))
	}
}

func TestBuildMeasuresErrorsWithNoNotesOrConstraints(t *testing.T) {
	if _, _, _, err := BuildMeasures(nil, nil, 1, 0.01, 0, false); err == nil {
		t.Fatalf("expected an error when there are neither notes nor constraints")
	}
}
