package stats

import (
	"math"

	"github.com/aftertouch/harmonia/internal/chord"
)

// Weighted pairs a StatSet with the weight it contributes to a mix.
// Weights are not required to sum to 1: the mixing is a weighted sum of
// log-probabilities, not a true probability mixture (spec.md §4.1 calls
// this out explicitly as the "MySong-style" linear mix).
type Weighted struct {
	Weight float64
	Set    StatSet
}

// Mixed is the per-request linear combination of one or more StatSets'
// marginal and transition tables.
type Mixed struct {
	Marginal map[chord.Chord]float64
	Forward  map[chord.Chord]map[chord.Chord]float64
	Backward map[chord.Chord]map[chord.Chord]float64
}

// MarginalLogP returns the mixed marginal log-probability of c, or
// LogPMissing if no mixed-in StatSet ever saw it.
func (m Mixed) MarginalLogP(c chord.Chord) float64 {
	if v, ok := m.Marginal[c]; ok {
		return v
	}
	return LogPMissing
}

// ForwardLogP returns the mixed log P(next|prev). If prev's row is absent
// from every mixed-in StatSet (prev was never seen to transition
// anywhere), this falls back to the mixed marginal of next rather than
// LOGP_MISSING, so a chord that only ever appears as a song's final
// measure doesn't forbid every possible continuation after it. If prev's
// row exists but lacks next specifically, the plain LogPMissing sentinel
// applies (this asymmetry is intentional: see spec.md §9 design notes).
func (m Mixed) ForwardLogP(prev, next chord.Chord) float64 {
	row, ok := m.Forward[prev]
	if !ok {
		return m.MarginalLogP(next)
	}
	if v, ok := row[next]; ok {
		return v
	}
	return LogPMissing
}

// BackwardLogP is ForwardLogP's mirror: falls back to the mixed marginal
// of prev when next's row is entirely absent.
func (m Mixed) BackwardLogP(next, prev chord.Chord) float64 {
	row, ok := m.Backward[next]
	if !ok {
		return m.MarginalLogP(prev)
	}
	if v, ok := row[prev]; ok {
		return v
	}
	return LogPMissing
}

// MixMarginal linearly combines the marginal log-probabilities of the
// given weighted StatSets. A StatSet missing a chord contributes
// LogPMissing for it, not zero.
func MixMarginal(weighted []Weighted) map[chord.Chord]float64 {
	keys := map[chord.Chord]struct{}{}
	for _, w := range weighted {
		for c := range w.Set.Marginal {
			keys[c] = struct{}{}
		}
	}
	out := make(map[chord.Chord]float64, len(keys))
	for c := range keys {
		sum := 0.0
		for _, w := range weighted {
			sum += w.Weight * w.Set.MarginalLogP(c)
		}
		out[c] = sum
	}
	return out
}

// MixForward linearly combines the forward transition tables of the given
// weighted StatSets. Only rows (prev chords) present in at least one
// StatSet's transition table are included; a row absent from every
// StatSet is left out entirely so that Mixed.ForwardLogP can apply the
// marginal fallback for it.
func MixForward(weighted []Weighted) map[chord.Chord]map[chord.Chord]float64 {
	return mixNested(weighted, func(s StatSet) map[chord.Chord]map[chord.Chord]float64 { return s.Forward })
}

// MixBackward is MixForward over each StatSet's backward table.
func MixBackward(weighted []Weighted) map[chord.Chord]map[chord.Chord]float64 {
	return mixNested(weighted, func(s StatSet) map[chord.Chord]map[chord.Chord]float64 { return s.Backward })
}

func mixNested(weighted []Weighted, table func(StatSet) map[chord.Chord]map[chord.Chord]float64) map[chord.Chord]map[chord.Chord]float64 {
	outerKeys := map[chord.Chord]struct{}{}
	for _, w := range weighted {
		for k1 := range table(w.Set) {
			outerKeys[k1] = struct{}{}
		}
	}

	out := make(map[chord.Chord]map[chord.Chord]float64, len(outerKeys))
	for k1 := range outerKeys {
		innerKeys := map[chord.Chord]struct{}{}
		for _, w := range weighted {
			if row, ok := table(w.Set)[k1]; ok {
				for k2 := range row {
					innerKeys[k2] = struct{}{}
				}
			}
		}
		row := make(map[chord.Chord]float64, len(innerKeys))
		for k2 := range innerKeys {
			sum := 0.0
			for _, w := range weighted {
				val := LogPMissing
				if r, ok := table(w.Set)[k1]; ok {
					if v, ok := r[k2]; ok {
						val = v
					}
				}
				sum += w.Weight * val
			}
			row[k2] = sum
		}
		out[k1] = row
	}
	return out
}

// MixEmission combines raw first/other-note counts from several weighted
// StatSets into a single emission log-probability distribution for one
// chord, applying firstNoteWeight (f) to up-weight (or down-weight) notes
// that fell in a measure's first slot relative to its other slots
// (spec.md §3's "first-note weighting" design note — deliberately applied
// again at prediction time to each slot's first note, on top of this training-time
// weighting; see spec.md §9 on preserving that double application).
func MixEmission(weighted []Weighted, c chord.Chord, firstNoteWeight float64) map[int]float64 {
	noteKeys := map[int]struct{}{}
	for _, w := range weighted {
		for n := range w.Set.FirstEmit[c] {
			noteKeys[n] = struct{}{}
		}
		for n := range w.Set.OtherEmit[c] {
			noteKeys[n] = struct{}{}
		}
	}
	if len(noteKeys) == 0 {
		return nil
	}

	perSet := make([]map[int]float64, len(weighted))
	for i, w := range weighted {
		first := w.Set.FirstEmit[c]
		other := w.Set.OtherEmit[c]
		total := 0.0
		weight := make(map[int]float64, len(noteKeys))
		for n := range noteKeys {
			v := firstNoteWeight*float64(first[n]) + float64(other[n])
			weight[n] = v
			total += v
		}
		dist := make(map[int]float64, len(noteKeys))
		for n, v := range weight {
			if total <= 0 || v <= 0 {
				dist[n] = LogPMissing
				continue
			}
			dist[n] = math.Log(v / total)
		}
		perSet[i] = dist
	}

	out := make(map[int]float64, len(noteKeys))
	for n := range noteKeys {
		sum := 0.0
		for i, w := range weighted {
			sum += w.Weight * perSet[i][n]
		}
		out[n] = sum
	}
	return out
}
