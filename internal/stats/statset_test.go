package stats

import (
	"math"
	"testing"

	"github.com/aftertouch/harmonia/internal/chord"
	"github.com/aftertouch/harmonia/internal/song"
)

func maj(root int) chord.Chord { return chord.NewChord(root, chord.RelativeChord{Quality: chord.Maj}) }

func measure(c chord.Chord, reps int, notes ...int) song.Measure {
	m := song.Measure{Chord: c, Reps: reps}
	for _, n := range notes {
		m.MelodyNotes = append(m.MelodyNotes, song.MelodyNote{Semitone: n, Duration: 1})
	}
	return m
}

func TestMarginalProbabilitiesSumToOne(t *testing.T) {
	songs := []song.Song{
		{Measures: []song.Measure{measure(maj(0), 1), measure(maj(7), 2), measure(maj(5), 1)}},
		{Measures: []song.Measure{measure(maj(0), 1), measure(maj(5), 1)}},
	}
	s := Build(songs)

	total := 0.0
	for _, c := range s.AllChords() {
		total += math.Exp(s.MarginalLogP(c))
	}
	if math.Abs(total-1.0) > 1e-9 {
		t.Fatalf("marginal probabilities sum to %v, want 1", total)
	}
}

func TestAsymmetricTransitionDenominators(t *testing.T) {
	// I appears 3 times, V appears 1 time; I->V occurs once.
	songs := []song.Song{
		{Measures: []song.Measure{measure(maj(0), 1), measure(maj(0), 1), measure(maj(0), 1), measure(maj(7), 1)}},
	}
	s := Build(songs)

	// forward: P(V|I) = count(I->V) / marginal(I) = 1/3 (only the third I
	// transitions to V; the first two transition to I itself).
	forward := math.Exp(s.ForwardLogP(maj(0), maj(7)))
	if math.Abs(forward-1.0/3.0) > 1e-9 {
		t.Errorf("forward P(V|I) = %v, want 1/3", forward)
	}

	// backward: P(I|V) = count(I->V) / marginal(V) = 1/1 = 1.
	backward := math.Exp(s.BackwardLogP(maj(7), maj(0)))
	if math.Abs(backward-1.0) > 1e-9 {
		t.Errorf("backward P(I|V) = %v, want 1", backward)
	}
}

func TestSelfTransitionFromReps(t *testing.T) {
	songs := []song.Song{
		{Measures: []song.Measure{measure(maj(0), 3)}},
	}
	s := Build(songs)
	// marginal(I) = 3; I->I count = reps-1 = 2, so P(I|I) = 2/3.
	selfP := math.Exp(s.ForwardLogP(maj(0), maj(0)))
	if math.Abs(selfP-2.0/3.0) > 1e-9 {
		t.Errorf("self-transition P(I|I) = %v, want 2/3", selfP)
	}
}

func TestMixedForwardFallsBackToMarginalForUnseenRow(t *testing.T) {
	// Set A: IV never transitions anywhere (always the last measure).
	// Set B: I and V both seen, with I->V transitions.
	a := Build([]song.Song{{Measures: []song.Measure{measure(maj(5), 1)}}})
	b := Build([]song.Song{
		{Measures: []song.Measure{measure(maj(0), 1), measure(maj(7), 1)}},
		{Measures: []song.Measure{measure(maj(7), 1), measure(maj(0), 1)}},
	})

	weighted := []Weighted{{Weight: 0.5, Set: a}, {Weight: 0.5, Set: b}}
	mixed := Mixed{
		Marginal: MixMarginal(weighted),
		Forward:  MixForward(weighted),
		Backward: MixBackward(weighted),
	}

	// IV never appears as an outer (prev) key in either set's forward
	// table, so looking up any next chord after it should fall back to
	// that chord's mixed marginal rather than LogPMissing.
	got := mixed.ForwardLogP(maj(5), maj(0))
	want := mixed.MarginalLogP(maj(0))
	if got != want {
		t.Errorf("ForwardLogP(IV, I) = %v, want fallback to marginal %v", got, want)
	}

	// A present row with a genuinely-unseen target still returns
	// LogPMissing, not the marginal fallback (spec.md §9 asymmetry note).
	specific := mixed.ForwardLogP(maj(0), maj(5))
	if specific != LogPMissing {
		t.Errorf("ForwardLogP(I, IV) = %v, want LogPMissing (row present, target unseen)", specific)
	}
}

func TestLogSumExpMatchesNaiveSum(t *testing.T) {
	xs := []float64{-1, -2, -3, LogPMissing}
	got := LogSumExp(xs)
	want := 0.0
	for _, x := range xs {
		want += math.Exp(x)
	}
	want = math.Log(want)
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("LogSumExp = %v, want %v", got, want)
	}
}

func TestMixEmissionWeightsFirstNoteSeparately(t *testing.T) {
	c := maj(0)
	s1 := Build([]song.Song{{Measures: []song.Measure{measure(c, 1, 0, 4, 7)}}})
	weighted := []Weighted{{Weight: 1, Set: s1}}

	dist := MixEmission(weighted, c, 2.0)
	// note 0 is the first-slot note (count 1, weighted by f=2 -> 2),
	// notes 4 and 7 are "other" notes (count 1 each, weight 1 each).
	// total weight = 2 + 1 + 1 = 4, so P(0) = 2/4 = 0.5.
	got := math.Exp(dist[0])
	if math.Abs(got-0.5) > 1e-9 {
		t.Errorf("P(note 0) = %v, want 0.5", got)
	}
}
