package hmm

import (
	"math"
	"testing"

	"github.com/aftertouch/harmonia/internal/chord"
	"github.com/aftertouch/harmonia/internal/song"
	"github.com/aftertouch/harmonia/internal/stats"
)

func maj(root int) chord.Chord { return chord.NewChord(root, chord.RelativeChord{Quality: chord.Maj}) }

func measure(c chord.Chord, reps int, notes ...int) song.Measure {
	m := song.Measure{Chord: c, Reps: reps}
	for _, n := range notes {
		m.MelodyNotes = append(m.MelodyNotes, song.MelodyNote{Semitone: n, Duration: 1})
	}
	return m
}

func sampleCorpus() stats.Weighted {
	songs := []song.Song{
		{Measures: []song.Measure{
			measure(maj(0), 1, 0, 4),
			measure(maj(5), 1, 5, 9),
			measure(maj(7), 1, 7, 11),
			measure(maj(0), 1, 0, 4),
		}},
		{Measures: []song.Measure{
			measure(maj(0), 1, 0),
			measure(maj(9), 1, 9),
			measure(maj(5), 1, 5),
			measure(maj(7), 1, 7),
			measure(maj(0), 1, 0),
		}},
	}
	return stats.Weighted{Weight: 1.0, Set: stats.Build(songs)}
}

func defaultOpts() Options {
	return Options{NumberOfRecommendations: 5, FirstNoteWeight: 1.5, DeterminismWeight: 1.0}
}

func TestTopRecommendationScoreIsOne(t *testing.T) {
	w := sampleCorpus()
	measures := [][]int{{0, 4}, {5}, {7}, {0}}
	results, err := Predict([]stats.Weighted{w}, measures, make([]*chord.Chord, 4), nil, defaultOpts())
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	for i, r := range results {
		if len(r.Recommendations) == 0 {
			t.Fatalf("slot %d: empty recommendations", i)
		}
		if math.Abs(r.Recommendations[0].Score-1.0) > 1e-9 {
			t.Errorf("slot %d: top recommendation score = %v, want 1.0", i, r.Recommendations[0].Score)
		}
	}
}

func TestChosenAndSuggestedAlwaysInRecommendations(t *testing.T) {
	w := sampleCorpus()
	measures := [][]int{{0, 4}, {5}, {7}, {0}}
	results, err := Predict([]stats.Weighted{w}, measures, make([]*chord.Chord, 4), nil, defaultOpts())
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	for i, r := range results {
		foundChosen := false
		for _, rec := range r.Recommendations {
			if rec.Chord == r.Chosen.Chord {
				foundChosen = true
			}
		}
		if !foundChosen {
			t.Errorf("slot %d: chosen chord %+v missing from recommendations %+v", i, r.Chosen, r.Recommendations)
		}
		if r.Suggested != nil {
			found := false
			for _, rec := range r.Recommendations {
				if rec.Chord == r.Suggested.Chord {
					found = true
				}
			}
			if !found {
				t.Errorf("slot %d: suggested chord %+v missing from recommendations", i, r.Suggested)
			}
		}
	}
}

func TestLockedChordIsForced(t *testing.T) {
	w := sampleCorpus()
	measures := [][]int{{0}, {5}, {7}, {0}}
	locked := make([]*chord.Chord, 4)
	v := maj(9)
	locked[1] = &v

	results, err := Predict([]stats.Weighted{w}, measures, locked, nil, defaultOpts())
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if results[1].Chosen.Chord != v {
		t.Errorf("locked slot: chosen = %+v, want %+v", results[1].Chosen.Chord, v)
	}
}

func TestPreserveChordOverridesChosenRegardlessOfModel(t *testing.T) {
	w := sampleCorpus()
	measures := [][]int{{0}, {5}, {7}, {0}}
	preserve := make([]*chord.Chord, 4)
	v := maj(2) // a chord never seen in the corpus at all
	preserve[2] = &v

	results, err := Predict([]stats.Weighted{w}, measures, make([]*chord.Chord, 4), preserve, defaultOpts())
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if results[2].Chosen.Chord != v {
		t.Errorf("preserved slot: chosen = %+v, want %+v", results[2].Chosen.Chord, v)
	}
	if results[2].Suggested == nil {
		t.Errorf("preserved slot: expected Suggested to be set since the model's own pick differs from the preserved chord")
	}
}

func TestSameSeedIsDeterministic(t *testing.T) {
	w := sampleCorpus()
	measures := [][]int{{0, 4}, {5}, {7}, {0}}
	seed := int64(42)
	opts := defaultOpts()
	opts.Seed = &seed

	r1, err := Predict([]stats.Weighted{w}, measures, make([]*chord.Chord, 4), nil, opts)
	if err != nil {
		t.Fatalf("Predict (run 1): %v", err)
	}
	r2, err := Predict([]stats.Weighted{w}, measures, make([]*chord.Chord, 4), nil, opts)
	if err != nil {
		t.Fatalf("Predict (run 2): %v", err)
	}
	for i := range r1 {
		if r1[i].Chosen.Chord != r2[i].Chosen.Chord {
			t.Errorf("slot %d: same seed produced different chords: %+v vs %+v", i, r1[i].Chosen.Chord, r2[i].Chosen.Chord)
		}
	}
}

func TestEmptyMeasuresIsAnError(t *testing.T) {
	w := sampleCorpus()
	_, err := Predict([]stats.Weighted{w}, nil, nil, nil, defaultOpts())
	if err == nil {
		t.Fatalf("expected an error for empty measures, got nil")
	}
}

func TestRecommendationCountIsRaisedToMinimumTwo(t *testing.T) {
	w := sampleCorpus()
	measures := [][]int{{0}, {5}}
	opts := defaultOpts()
	opts.NumberOfRecommendations = 1

	results, err := Predict([]stats.Weighted{w}, measures, make([]*chord.Chord, 2), nil, opts)
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	for i, r := range results {
		if len(r.Recommendations) < 2 {
			t.Errorf("slot %d: got %d recommendations, want at least 2", i, len(r.Recommendations))
		}
	}
}
