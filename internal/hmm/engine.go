// Package hmm implements the mixed hidden Markov model engine that turns
// a melody plus one or more weighted StatSets into a chord progression
// and a per-slot ranked list of alternatives. See spec.md §4.2.
package hmm

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/aftertouch/harmonia/internal/chord"
	"github.com/aftertouch/harmonia/internal/stats"
)

// ScoredChord pairs a chord with its rescored, renormalized likelihood
// (the top entry in any recommendation list is always exactly 1.0).
type ScoredChord struct {
	Score float64
	Chord chord.Chord
}

// SlotResult is one measure's worth of output: the chord actually chosen
// (a locked/preserved chord if one applies, otherwise the model's own
// suggestion), the model's own suggestion when it differs from the
// chosen chord, and a ranked list of alternatives.
type SlotResult struct {
	Chosen          ScoredChord
	Suggested       *ScoredChord
	Recommendations []ScoredChord
}

// Options configures a single prediction call.
type Options struct {
	// NumberOfRecommendations caps each slot's recommendation list.
	// Values below 2 are raised to 2: the chosen/suggested substitution
	// rule needs room for both.
	NumberOfRecommendations int

	// Jazziness shifts emphasis between melody fit (+) and chord
	// frequency/transition plausibility (-). 0 weighs both equally.
	Jazziness float64

	// FirstNoteWeight up- or down-weights a measure's first melody note
	// relative to its other notes, both when the StatSets were built and
	// again here at prediction time for each measure's own first note.
	// This double application is intentional: see spec.md §9.
	FirstNoteWeight float64

	// Seed selects sampled generation (weighted by DeterminismWeight)
	// instead of the deterministic Viterbi-style best path.
	Seed *int64

	// DeterminismWeight (τ) exponentiates the sampling weights when Seed
	// is set: higher values bias sampling more strongly toward the
	// likelier chords. Ignored when Seed is nil.
	DeterminismWeight float64
}

// Predict runs the mixed HMM over measures (each measure's melody notes,
// given as relative semitones), returning one SlotResult per measure.
//
// lockedChords and preserveChords are parallel to measures; a nil entry
// means "no constraint at this slot". A locked chord pins the Viterbi
// backtrack/sampling at that slot; a preserved chord overrides what ends
// up in SlotResult.Chosen regardless of what the model would have picked.
func Predict(weighted []stats.Weighted, measures [][]int, lockedChords, preserveChords []*chord.Chord, opts Options) ([]SlotResult, error) {
	n := len(measures)
	if n == 0 {
		return nil, fmt.Errorf("hmm: measures must be non-empty")
	}
	if len(weighted) == 0 {
		return nil, fmt.Errorf("hmm: at least one weighted StatSet is required")
	}
	numRecs := opts.NumberOfRecommendations
	if numRecs < 2 {
		numRecs = 2
	}

	appearanceWeight := 1.0 + opts.Jazziness
	transitionWeight := 1.0 - opts.Jazziness

	mixedMarginal := stats.MixMarginal(weighted)
	mixed := stats.Mixed{
		Marginal: mixedMarginal,
		Forward:  stats.MixForward(weighted),
		Backward: stats.MixBackward(weighted),
	}

	allChords := collectChords(weighted, lockedChords, preserveChords)
	inv := make(map[chord.Chord]int, len(allChords))
	for i, c := range allChords {
		inv[c] = i
	}
	m := len(allChords)

	emission := make(map[chord.Chord]map[int]float64, m)
	for _, c := range allChords {
		emission[c] = stats.MixEmission(weighted, c, opts.FirstNoteWeight)
	}
	emissionLogP := func(c chord.Chord, note int) float64 {
		dist, ok := emission[c]
		if !ok {
			return stats.LogPMissing
		}
		if v, ok := dist[note]; ok {
			return v
		}
		return stats.LogPMissing
	}

	// chordAppearance[i][ci]: melody-fit score of chord ci at measure i,
	// with the measure's own first note re-weighted by FirstNoteWeight.
	chordAppearance := make([][]float64, n)
	for i, notes := range measures {
		row := make([]float64, m)
		for ci, c := range allChords {
			sum := 0.0
			for j, note := range notes {
				w := 1.0
				if j == 0 {
					w = opts.FirstNoteWeight
				}
				sum += w * emissionLogP(c, note)
			}
			row[ci] = sum
		}
		chordAppearance[i] = row
	}

	marginalList := make([]float64, m)
	for ci, c := range allChords {
		marginalList[ci] = mixed.MarginalLogP(c)
	}
	forwardTable := make([][]float64, m)
	backwardTable := make([][]float64, m)
	for i, c1 := range allChords {
		fRow := make([]float64, m)
		bRow := make([]float64, m)
		for j, c2 := range allChords {
			fRow[j] = mixed.ForwardLogP(c1, c2)
			bRow[j] = mixed.BackwardLogP(c1, c2)
		}
		forwardTable[i] = fRow
		backwardTable[i] = bRow
	}

	lockedAt := func(i int) (chord.Chord, bool) {
		if i < 0 || i >= len(lockedChords) || lockedChords[i] == nil {
			return chord.Chord{}, false
		}
		return *lockedChords[i], true
	}

	bestPrev := make([][]int, n)
	optPrefix := make([][]float64, n)
	totalPrefix := make([][]float64, n)
	optSuffix := make([][]float64, n)
	for i := range optPrefix {
		optPrefix[i] = make([]float64, m)
		totalPrefix[i] = make([]float64, m)
		optSuffix[i] = make([]float64, m)
		bestPrev[i] = make([]int, m)
		for ci := range bestPrev[i] {
			bestPrev[i][ci] = -1
		}
	}

	// forward pass
	for i := 0; i < n; i++ {
		if i == 0 {
			for ci := range allChords {
				lp := transitionWeight*marginalList[ci] + appearanceWeight*chordAppearance[i][ci]
				optPrefix[i][ci] = lp
				totalPrefix[i][ci] = lp
			}
			continue
		}
		prevLocked, hasPrevLocked := lockedAt(i - 1)
		for ci := range allChords {
			var prevIdx int
			var prevLogProb float64
			var totalPrevLogProb float64
			if hasPrevLocked {
				prevIdx = inv[prevLocked]
				prevLogProb = transitionWeight*forwardTable[prevIdx][ci] + optPrefix[i-1][prevIdx]
				totalPrevLogProb = prevLogProb
			} else {
				best := math.Inf(-1)
				bestIdx := 0
				sumTerms := make([]float64, m)
				for pci := range allChords {
					v := transitionWeight*forwardTable[pci][ci] + optPrefix[i-1][pci]
					if v > best {
						best = v
						bestIdx = pci
					}
					sumTerms[pci] = transitionWeight*forwardTable[pci][ci] + totalPrefix[i-1][pci]
				}
				prevIdx = bestIdx
				prevLogProb = best
				totalPrevLogProb = stats.LogSumExp(sumTerms)
			}
			optPrefix[i][ci] = prevLogProb + appearanceWeight*chordAppearance[i][ci]
			bestPrev[i][ci] = prevIdx
			totalPrefix[i][ci] = totalPrevLogProb + appearanceWeight*chordAppearance[i][ci]
		}
	}

	// backward pass
	for i := n - 1; i >= 0; i-- {
		if i == n-1 {
			for ci := range allChords {
				optSuffix[i][ci] = transitionWeight*marginalList[ci] + appearanceWeight*chordAppearance[i][ci]
			}
			continue
		}
		nextLocked, hasNextLocked := lockedAt(i + 1)
		for ci := range allChords {
			var nextLogProb float64
			if hasNextLocked {
				nci := inv[nextLocked]
				nextLogProb = transitionWeight*backwardTable[nci][ci] + optSuffix[i+1][nci]
			} else {
				best := math.Inf(-1)
				for nci := range allChords {
					v := transitionWeight*backwardTable[nci][ci] + optSuffix[i+1][nci]
					if v > best {
						best = v
					}
				}
				nextLogProb = best
			}
			optSuffix[i][ci] = nextLogProb + appearanceWeight*chordAppearance[i][ci]
		}
	}

	suggested := make([]chord.Chord, n)
	if opts.Seed == nil {
		lastIdx := 0
		if lc, ok := lockedAt(n - 1); ok {
			lastIdx = inv[lc]
		} else {
			best := math.Inf(-1)
			for ci := range allChords {
				if optPrefix[n-1][ci] > best {
					best = optPrefix[n-1][ci]
					lastIdx = ci
				}
			}
		}
		path := make([]int, n)
		path[n-1] = lastIdx
		for i := n - 1; i > 0; i-- {
			path[i-1] = bestPrev[i][path[i]]
		}
		for i, idx := range path {
			suggested[i] = allChords[idx]
		}
	} else {
		rng := rand.New(rand.NewSource(*opts.Seed))
		tau := opts.DeterminismWeight

		lastIdx := 0
		if lc, ok := lockedAt(n - 1); ok {
			lastIdx = inv[lc]
		} else {
			weights := make([]float64, m)
			for ci := range allChords {
				weights[ci] = math.Exp(tau * totalPrefix[n-1][ci])
			}
			lastIdx = weightedChoice(rng, weights)
		}
		path := make([]int, n)
		path[n-1] = lastIdx
		for i := n - 1; i > 0; i-- {
			nextIdx := path[i]
			if lc, ok := lockedAt(i - 1); ok {
				path[i-1] = inv[lc]
				continue
			}
			weights := make([]float64, m)
			for ci := range allChords {
				weights[ci] = math.Exp(tau * (totalPrefix[i-1][ci] + transitionWeight*forwardTable[ci][nextIdx]))
			}
			path[i-1] = weightedChoice(rng, weights)
		}
		for i, idx := range path {
			suggested[i] = allChords[idx]
		}
	}

	score := func(i, ci int) float64 {
		return optPrefix[i][ci] + optSuffix[i][ci] - transitionWeight*marginalList[ci] - appearanceWeight*chordAppearance[i][ci]
	}

	results := make([]SlotResult, n)
	for i := 0; i < n; i++ {
		type candidate struct {
			score float64
			chord chord.Chord
		}
		cands := make([]candidate, m)
		for ci, c := range allChords {
			cands[ci] = candidate{score(i, ci), c}
		}
		sort.Slice(cands, func(a, b int) bool {
			if cands[a].score != cands[b].score {
				return cands[a].score > cands[b].score
			}
			return cands[a].chord.Stringify() < cands[b].chord.Stringify()
		})
		if numRecs < len(cands) {
			cands = cands[:numRecs]
		}

		maxScore := cands[0].score
		rescored := make([]ScoredChord, len(cands))
		for j, cd := range cands {
			rescored[j] = ScoredChord{Score: math.Exp(cd.score - maxScore), Chord: cd.chord}
		}

		suggestedChord := suggested[i]
		chosenChord := suggestedChord
		if preserveChords != nil && i < len(preserveChords) && preserveChords[i] != nil {
			chosenChord = *preserveChords[i]
		}
		scoredSuggested := ScoredChord{Score: math.Exp(score(i, inv[suggestedChord]) - maxScore), Chord: suggestedChord}
		scoredChosen := ScoredChord{Score: math.Exp(score(i, inv[chosenChord]) - maxScore), Chord: chosenChord}

		last := len(rescored) - 1
		secondLast := len(rescored) - 2

		containsIdx := func(sc ScoredChord) int {
			for idx, r := range rescored {
				if r == sc {
					return idx
				}
			}
			return -1
		}

		if containsIdx(scoredChosen) < 0 {
			rescored[last] = scoredChosen
			if containsIdx(scoredSuggested) < 0 {
				rescored[secondLast] = scoredSuggested
			}
		} else if containsIdx(scoredSuggested) < 0 {
			if rescored[last] == scoredChosen {
				rescored[secondLast] = scoredSuggested
			} else {
				rescored[last] = scoredSuggested
			}
		}

		var suggestedPtr *ScoredChord
		if scoredSuggested != scoredChosen {
			s := scoredSuggested
			suggestedPtr = &s
		}

		results[i] = SlotResult{
			Chosen:          scoredChosen,
			Suggested:       suggestedPtr,
			Recommendations: rescored,
		}
	}

	return results, nil
}

// collectChords builds the candidate chord universe: every chord with
// any recorded melody note across the weighted StatSets, plus any locked
// or preserved chord, in a stable order independent of map iteration.
func collectChords(weighted []stats.Weighted, lockedChords, preserveChords []*chord.Chord) []chord.Chord {
	set := map[chord.Chord]struct{}{}
	for _, w := range weighted {
		for c := range w.Set.FirstEmit {
			set[c] = struct{}{}
		}
		for c := range w.Set.OtherEmit {
			set[c] = struct{}{}
		}
	}
	for _, c := range lockedChords {
		if c != nil {
			set[*c] = struct{}{}
		}
	}
	for _, c := range preserveChords {
		if c != nil {
			set[*c] = struct{}{}
		}
	}
	out := make([]chord.Chord, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Stringify() < out[j].Stringify() })
	return out
}

// weightedChoice picks an index with probability proportional to its
// weight. Falls back to index 0 if every weight is non-positive.
func weightedChoice(rng *rand.Rand, weights []float64) int {
	total := 0.0
	for _, w := range weights {
		total += w
	}
	if total <= 0 {
		return 0
	}
	r := rng.Float64() * total
	cum := 0.0
	for i, w := range weights {
		cum += w
		if r < cum {
			return i
		}
	}
	return len(weights) - 1
}
