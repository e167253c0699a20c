// Package song holds the Measure/Song value types that corpus parsers
// produce and the statistical model builder consumes.
package song

import "github.com/aftertouch/harmonia/internal/chord"

// MelodyNote is a single melodic note, its pitch class relative to the
// tonic of the implied major key, and its duration in beats.
type MelodyNote struct {
	Semitone int
	Duration float64
}

// Measure is one chord-slot's worth of source material: the chord that
// sounded, the raw label it came from, its time span, how many
// slot-repeats it spans (its weight during statistics accumulation), and
// the melody notes that fell within it.
type Measure struct {
	Chord       chord.Chord
	ChordName   string
	Start       float64
	End         float64
	Reps        int
	MelodyNotes []MelodyNote
}

// Transpose shifts the chord and all melody note pitch classes by
// semitones, mod 12.
func (m Measure) Transpose(semitones int) Measure {
	out := m
	out.Chord = m.Chord.Transpose(semitones)
	out.MelodyNotes = make([]MelodyNote, len(m.MelodyNotes))
	for i, n := range m.MelodyNotes {
		out.MelodyNotes[i] = MelodyNote{Semitone: mod(n.Semitone+semitones, 12), Duration: n.Duration}
	}
	return out
}

// ModifyChord applies f to this measure's chord, leaving everything else
// untouched.
func (m Measure) ModifyChord(f func(chord.Chord) chord.Chord) Measure {
	out := m
	out.Chord = f(m.Chord)
	return out
}

// Song is a named sequence of measures, tagged with whatever mode
// metadata its source corpus carried (e.g. "major"/"minor", or a blank
// string for corpora that don't track it).
type Song struct {
	Name     string
	ModeTag  string
	Measures []Measure
}

// Transpose shifts every measure in the song.
func (s Song) Transpose(semitones int) Song {
	out := s
	out.Measures = make([]Measure, len(s.Measures))
	for i, m := range s.Measures {
		out.Measures[i] = m.Transpose(semitones)
	}
	return out
}

// ModifyChord applies f to every measure's chord in the song.
func (s Song) ModifyChord(f func(chord.Chord) chord.Chord) Song {
	out := s
	out.Measures = make([]Measure, len(s.Measures))
	for i, m := range s.Measures {
		out.Measures[i] = m.ModifyChord(f)
	}
	return out
}

func mod(a, b int) int {
	m := a % b
	if m < 0 {
		m += b
	}
	return m
}
