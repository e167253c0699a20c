package wsapi

import (
	"testing"

	"github.com/aftertouch/harmonia/internal/chord"
)

func TestProductionizeRendersNameValueAndMidis(t *testing.T) {
	c := chord.NewChord(0, chord.RelativeChord{Quality: chord.Maj})
	pc := productionize(c, 0, 0.5, 60)
	if pc.Name == "" {
		t.Errorf("expected a non-empty chord name")
	}
	if pc.Score != 0.5 {
		t.Errorf("Score = %v, want 0.5", pc.Score)
	}
	if len(pc.Midis) != 3 {
		t.Errorf("expected 3 MIDI notes for a triad, got %d: %v", len(pc.Midis), pc.Midis)
	}
	for _, m := range pc.Midis {
		if m < 60 {
			t.Errorf("MIDI note %d should be at or above bottomBass 60", m)
		}
	}
}
