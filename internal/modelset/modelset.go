// Package modelset builds the major/parallel-minor/relative-minor
// statistical models the prediction engine mixes from, and partitions a
// corpus by the major/minor/mixed tonal center its songs actually use.
// Grounded on server.py's startup wiring and corpus/rs/__init__.py's
// load_songs partitioning.
package modelset

import (
	"sort"

	"github.com/aftertouch/harmonia/internal/chord"
	"github.com/aftertouch/harmonia/internal/song"
	"github.com/aftertouch/harmonia/internal/stats"
)

// tonicMajor and tonicMinor are the I/i triads a song is tested against to
// classify its tonal center.
var (
	tonicMajor = chord.NewChord(0, chord.RelativeChord{Quality: chord.Maj}).Simplified()
	tonicMinor = chord.NewChord(0, chord.RelativeChord{Quality: chord.Min}).Simplified()
)

// PartitionByMode splits songs into "all", "maj" (ever hits I, never i),
// "min" (ever hits i, never I), and "mix" (hits both) buckets, the way
// corpus/rs's load_songs does. A song that hits neither is dropped, same
// as the original's assertion would have excluded it from every load.
func PartitionByMode(songs []song.Song) map[string][]song.Song {
	out := map[string][]song.Song{"all": songs}
	for _, sg := range songs {
		hasMajor, hasMinor := false, false
		for _, m := range sg.Measures {
			sc := m.Chord.Simplified()
			switch sc {
			case tonicMajor:
				hasMajor = true
			case tonicMinor:
				hasMinor = true
			}
		}
		switch {
		case hasMajor && hasMinor:
			out["mix"] = append(out["mix"], sg)
		case hasMajor:
			out["maj"] = append(out["maj"], sg)
		case hasMinor:
			out["min"] = append(out["min"], sg)
		}
	}
	return out
}

// ModelSet holds the three StatSets the engine mixes between: the major
// key's own statistics, the parallel minor's (same tonic, minor mode), and
// the relative minor's (the minor-mode statistics re-expressed as if they
// were in the relative major, i.e. transposed down three semitones before
// counting).
type ModelSet struct {
	Major         stats.StatSet
	ParallelMinor stats.StatSet
	RelativeMinor stats.StatSet
	AllChords     []chord.Chord
}

// Build assembles a ModelSet from the three parsed corpora, following
// server.py's startup sequence: Rock Corpus major+mixed songs, ABC major
// songs, and every MARG song feed the major model; Rock Corpus and ABC
// minor songs feed the two minor models. Every song's chords are beta-
// collapsed (quality coarsened to {maj, min, dim}, inversions dropped)
// before counting, matching the original.
func Build(rockSongs, abcSongs, margSongs []song.Song) ModelSet {
	rockParts := PartitionByMode(rockSongs)
	abcParts := PartitionByMode(abcSongs)

	var majorSongs []song.Song
	majorSongs = append(majorSongs, rockParts["maj"]...)
	majorSongs = append(majorSongs, rockParts["mix"]...)
	majorSongs = append(majorSongs, abcParts["maj"]...)
	majorSongs = append(majorSongs, margSongs...)

	var minorSongs []song.Song
	minorSongs = append(minorSongs, rockParts["min"]...)
	minorSongs = append(minorSongs, abcParts["min"]...)

	majorSongs = collapseAll(majorSongs)
	minorSongs = collapseAll(minorSongs)

	relativeMinorSongs := make([]song.Song, len(minorSongs))
	for i, sg := range minorSongs {
		relativeMinorSongs[i] = sg.Transpose(-3)
	}

	major := stats.Build(majorSongs)
	parallelMinor := stats.Build(minorSongs)
	relativeMinor := stats.Build(relativeMinorSongs)

	return ModelSet{
		Major:         major,
		ParallelMinor: parallelMinor,
		RelativeMinor: relativeMinor,
		AllChords:     unionChords(major, parallelMinor, relativeMinor),
	}
}

func collapseAll(songs []song.Song) []song.Song {
	out := make([]song.Song, len(songs))
	for i, sg := range songs {
		out[i] = sg.ModifyChord(func(c chord.Chord) chord.Chord { return c.BetaCollapse() })
	}
	return out
}

func unionChords(sets ...stats.StatSet) []chord.Chord {
	seen := map[chord.Chord]bool{}
	var out []chord.Chord
	for _, ss := range sets {
		for _, c := range ss.AllChords() {
			if !seen[c] {
				seen[c] = true
				out = append(out, c)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Stringify() < out[j].Stringify() })
	return out
}

// SelectWeighted resolves a wire-protocol mode string (and, for the mixed
// modes, a minorness in [0,1]) into the weighted StatSet list the engine
// mixes over, following server.py's mode dispatch exactly. An unrecognized
// mode falls back to the major model alone, same as the original's
// catch-all branch.
func SelectWeighted(ms ModelSet, mode string, minorness float64) []stats.Weighted {
	switch mode {
	case "major":
		return []stats.Weighted{{Weight: 1.0, Set: ms.Major}}
	case "parallel-minor":
		return []stats.Weighted{{Weight: 1.0, Set: ms.ParallelMinor}}
	case "relative-minor":
		return []stats.Weighted{{Weight: 1.0, Set: ms.RelativeMinor}}
	case "mixed-parallel":
		return []stats.Weighted{
			{Weight: 1.0 - minorness, Set: ms.Major},
			{Weight: minorness, Set: ms.ParallelMinor},
		}
	case "mixed-relative":
		return []stats.Weighted{
			{Weight: 1.0 - minorness, Set: ms.Major},
			{Weight: minorness, Set: ms.RelativeMinor},
		}
	default:
		return []stats.Weighted{{Weight: 1.0, Set: ms.Major}}
	}
}
