package wsapi

import (
	"fmt"
	"math"

	"github.com/aftertouch/harmonia/internal/chord"
)

// BuildMeasures buckets a request's melody notes into one group per chord
// slot, mirroring server.py's echo handler: slot boundaries come from
// req.Constraints when given, or are synthesized evenly from ChordLength
// when the client sends none (in which case Preserve is forced off, since
// there's nothing meaningful to preserve against). A note belongs to the
// slot it starts in, allowing Tolerance slack before the next slot's
// boundary; any notes left over after the last boundary fall into the
// final slot. Pitches are returned as semitones relative to the major
// tonic implied by keySignature. Notes are assumed pre-sorted by Start, as
// the original assumes.
func BuildMeasures(notes []Note, constraints []Constraint, chordLength, tolerance float64, keySignature int, preserve bool) (grouped [][]int, outConstraints []Constraint, outPreserve bool, err error) {
	outConstraints = constraints
	outPreserve = preserve

	if len(outConstraints) == 0 {
		if len(notes) == 0 {
			return nil, nil, false, fmt.Errorf("wsapi: no notes and no constraints to build measures from")
		}
		if chordLength <= 0 {
			return nil, nil, false, fmt.Errorf("wsapi: chordLength must be positive to synthesize constraints")
		}
		lastEnd := notes[0].End
		for _, n := range notes[1:] {
			if n.End > lastEnd {
				lastEnd = n.End
			}
		}
		count := 1 + int(math.Floor(lastEnd/chordLength))
		outConstraints = make([]Constraint, count)
		for i := range outConstraints {
			outConstraints[i] = Constraint{Time: float64(i) * chordLength}
		}
		outPreserve = false
	}

	midiRootOfMajor := mod(keySignature*7, 12)
	grouped = make([][]int, 0, len(outConstraints))
	idx := 0
	for i := 0; i < len(outConstraints)-1; i++ {
		end := outConstraints[i+1].Time
		var group []int
		for idx < len(notes) && notes[idx].Start < end-tolerance {
			group = append(group, mod(notes[idx].Pitch-midiRootOfMajor, 12))
			idx++
		}
		grouped = append(grouped, group)
	}
	var last []int
	for ; idx < len(notes); idx++ {
		last = append(last, mod(notes[idx].Pitch-midiRootOfMajor, 12))
	}
	grouped = append(grouped, last)

	return grouped, outConstraints, outPreserve, nil
}

// ResolveConstraints parses each constraint's wire chord value (an
// absolute chord.Stringify string) into a key-relative chord.Chord,
// producing parallel locked/preserved slices for hmm.Predict. A constraint
// slot's locked pointer is nil unless that constraint is locked; the
// preserved slice is nil entirely unless preserve is true, in which case
// every slot gets one (server.py's "preserve even unlocked stuff").
func ResolveConstraints(constraints []Constraint, keySignature int, preserve bool) (locked, preserved []*chord.Chord, err error) {
	locked = make([]*chord.Chord, len(constraints))
	for i, c := range constraints {
		if !c.Locked {
			continue
		}
		parsed, err := chord.Parse(c.Value)
		if err != nil {
			return nil, nil, fmt.Errorf("wsapi: locked constraint %d: %w", i, err)
		}
		rel := parsed.AbsoluteToRelative(keySignature)
		locked[i] = &rel
	}

	if !preserve {
		return locked, nil, nil
	}
	preserved = make([]*chord.Chord, len(constraints))
	for i, c := range constraints {
		parsed, err := chord.Parse(c.Value)
		if err != nil {
			return nil, nil, fmt.Errorf("wsapi: preserved constraint %d: %w", i, err)
		}
		rel := parsed.AbsoluteToRelative(keySignature)
		preserved[i] = &rel
	}
	return locked, preserved, nil
}
