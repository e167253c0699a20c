package wsapi

import (
	"github.com/aftertouch/harmonia/internal/chord"
	"github.com/aftertouch/harmonia/internal/formatter"
)

// productionize renders a relative chord.Chord for the wire, mirroring
// server.py's productionize_chord: a display name, the caller's score, the
// chord's absolute wire value, and the MIDI notes to sound it with, voiced
// above bottomBass starting from the key's own tonic pitch.
func productionize(c chord.Chord, keySignature int, score float64, bottomBass int) ProductionChord {
	midiRoot := mod(keySignature*7, 12)
	return ProductionChord{
		Name:  formatter.ChordName(c, keySignature),
		Score: score,
		Value: c.RelativeToAbsolute(keySignature).Stringify(),
		Midis: c.RenderOffset(midiRoot, bottomBass),
	}
}

func mod(a, b int) int {
	m := a % b
	if m < 0 {
		m += b
	}
	return m
}
