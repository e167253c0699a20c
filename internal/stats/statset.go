// Package stats builds and mixes the StatSet tables (marginal, forward
// and backward transition, and first/other-note emission counts) that the
// HMM engine in internal/hmm draws on. See spec.md §4.1.
package stats

import (
	"math"

	"github.com/aftertouch/harmonia/internal/chord"
	"github.com/aftertouch/harmonia/internal/song"
)

// LogPMissing is the finite sentinel used in place of log 0 so that
// arithmetic over many missing entries stays closed: sums of sentinels
// don't collapse to -Inf, and exp(LogPMissing) stays representable (it
// underflows to 0, which is fine) without becoming a NaN source.
const LogPMissing = -1e3

// StatSet is a single corpus view's statistics, immutable once built.
type StatSet struct {
	Marginal map[chord.Chord]float64
	Forward  map[chord.Chord]map[chord.Chord]float64
	Backward map[chord.Chord]map[chord.Chord]float64

	// FirstEmit/OtherEmit are raw counts, not log-probabilities: the
	// first-note weight that turns them into an emission distribution is
	// an engine-time parameter (spec.md §3), so the counts are kept as-is.
	FirstEmit map[chord.Chord]map[int]int
	OtherEmit map[chord.Chord]map[int]int
}

// MarginalLogP returns the marginal log-probability of c, or
// LogPMissing if c was never observed.
func (s StatSet) MarginalLogP(c chord.Chord) float64 {
	if v, ok := s.Marginal[c]; ok {
		return v
	}
	return LogPMissing
}

// ForwardLogP returns log P(next | prev). A missing prev-row (prev never
// transitioned anywhere in this corpus) still returns LogPMissing here;
// the mixed-marginal fallback (spec.md §4.1) is applied by Mixed, not by
// a single StatSet, since it depends on which chords other mixed-in
// StatSets have seen.
func (s StatSet) ForwardLogP(prev, next chord.Chord) float64 {
	row, ok := s.Forward[prev]
	if !ok {
		return LogPMissing
	}
	if v, ok := row[next]; ok {
		return v
	}
	return LogPMissing
}

// BackwardLogP returns log P(prev | next), symmetric to ForwardLogP.
func (s StatSet) BackwardLogP(next, prev chord.Chord) float64 {
	row, ok := s.Backward[next]
	if !ok {
		return LogPMissing
	}
	if v, ok := row[prev]; ok {
		return v
	}
	return LogPMissing
}

// AllChords returns every chord this StatSet has a marginal for. Every
// key appearing in Forward or Backward is guaranteed to appear here too
// (spec.md §3 invariant).
func (s StatSet) AllChords() []chord.Chord {
	out := make([]chord.Chord, 0, len(s.Marginal))
	for c := range s.Marginal {
		out = append(out, c)
	}
	return out
}

// Build constructs a StatSet from a corpus view. Each measure contributes
// Reps to its chord's marginal count, one forward transition from the
// previous measure's chord (within the same song), and Reps-1
// self-transitions when Reps > 1 (modeling a held chord).
func Build(songs []song.Song) StatSet {
	seen := map[chord.Chord]int{}
	transitions := map[chord.Chord]map[chord.Chord]int{}
	first := map[chord.Chord]map[int]int{}
	nonfirst := map[chord.Chord]map[int]int{}

	addTransition := func(from, to chord.Chord, n int) {
		row, ok := transitions[from]
		if !ok {
			row = map[chord.Chord]int{}
			transitions[from] = row
		}
		row[to] += n
	}

	for _, sg := range songs {
		var prev *song.Measure
		for i := range sg.Measures {
			m := sg.Measures[i]
			reps := m.Reps
			if reps < 1 {
				reps = 1
			}
			seen[m.Chord] += reps

			for j, note := range m.MelodyNotes {
				if j == 0 {
					bucket, ok := first[m.Chord]
					if !ok {
						bucket = map[int]int{}
						first[m.Chord] = bucket
					}
					bucket[note.Semitone]++
				} else {
					bucket, ok := nonfirst[m.Chord]
					if !ok {
						bucket = map[int]int{}
						nonfirst[m.Chord] = bucket
					}
					bucket[note.Semitone]++
				}
			}

			if reps > 1 {
				addTransition(m.Chord, m.Chord, reps-1)
			}
			if prev != nil {
				addTransition(prev.Chord, m.Chord, 1)
			}
			prev = &sg.Measures[i]
		}
	}

	return StatSet{
		Marginal:  computeMarginalLogP(seen),
		Forward:   forwardLogP(seen, transitions),
		Backward:  backwardLogP(seen, transitions),
		FirstEmit: first,
		OtherEmit: nonfirst,
	}
}

func computeMarginalLogP(seen map[chord.Chord]int) map[chord.Chord]float64 {
	total := 0
	for _, n := range seen {
		total += n
	}
	out := make(map[chord.Chord]float64, len(seen))
	for c, n := range seen {
		out[c] = math.Log(float64(n) / float64(total))
	}
	return out
}

// forwardLogP computes P(next|prev) = count(prev->next) / marginal(prev).
// The denominator is deliberately the marginal count of prev, not the sum
// of prev's outgoing transitions, so that forward and backward arithmetic
// stay reversible (spec.md §4.1 "asymmetry note").
func forwardLogP(seen map[chord.Chord]int, transitions map[chord.Chord]map[chord.Chord]int) map[chord.Chord]map[chord.Chord]float64 {
	out := make(map[chord.Chord]map[chord.Chord]float64, len(transitions))
	for prev, nexts := range transitions {
		denom := float64(seen[prev])
		row := make(map[chord.Chord]float64, len(nexts))
		for next, n := range nexts {
			row[next] = math.Log(float64(n) / denom)
		}
		out[prev] = row
	}
	return out
}

// backwardLogP computes P(prev|next) = count(prev->next) / marginal(next),
// the same asymmetric denominator pattern in the other direction.
func backwardLogP(seen map[chord.Chord]int, transitions map[chord.Chord]map[chord.Chord]int) map[chord.Chord]map[chord.Chord]float64 {
	byNext := map[chord.Chord]map[chord.Chord]int{}
	for prev, nexts := range transitions {
		for next, n := range nexts {
			row, ok := byNext[next]
			if !ok {
				row = map[chord.Chord]int{}
				byNext[next] = row
			}
			row[prev] += n
		}
	}

	out := make(map[chord.Chord]map[chord.Chord]float64, len(byNext))
	for next, prevs := range byNext {
		denom := float64(seen[next])
		row := make(map[chord.Chord]float64, len(prevs))
		for prev, n := range prevs {
			row[prev] = math.Log(float64(n) / denom)
		}
		out[next] = row
	}
	return out
}

// LogSumExp is the standard numerically-stable log-sum-exp. It returns
// LogPMissing if xs is empty or every entry is so small the inner sum
// underflows to zero.
func LogSumExp(xs []float64) float64 {
	if len(xs) == 0 {
		return LogPMissing
	}
	m := xs[0]
	for _, x := range xs[1:] {
		if x > m {
			m = x
		}
	}
	sum := 0.0
	for _, x := range xs {
		sum += math.Exp(x - m)
	}
	if sum <= 0 {
		return LogPMissing
	}
	return m + math.Log(sum)
}
