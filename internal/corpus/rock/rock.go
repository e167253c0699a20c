package rock

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/aftertouch/harmonia/internal/chord"
	"github.com/aftertouch/harmonia/internal/song"
)

// melodyRange is one contiguous melodic note: the measure-time interval
// it spans and its semitone offset above the chord root in effect then.
type melodyRange struct {
	start, end float64
	semitones  int
}

// ParseHarmony reads a .clt file's lines into measures, following
// spec.md §6.2's whitespace-separated harmony format: each line is
// `real_t measure_t chord_name chrom_root diatonic_root key abs_root`,
// and the file ends with a line ending in the literal token "End".
func ParseHarmony(lines []string) ([]song.Measure, error) {
	var measures []song.Measure
	var lastChord chord.Chord
	var lastChordName string
	var lastChordT float64
	haveLast := false

	for _, raw := range lines {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		fields := strings.Fields(line)

		if fields[len(fields)-1] == "End" {
			measureT, err := strconv.ParseFloat(fields[1], 64)
			if err != nil {
				return nil, fmt.Errorf("rock: bad harmony End time in %q: %w", line, err)
			}
			if !haveLast {
				return nil, fmt.Errorf("rock: harmony End with no preceding chord")
			}
			reps := int(measureT) - int(lastChordT)
			if reps < 1 {
				reps = 1
			}
			measures = append(measures, song.Measure{
				Chord:     lastChord,
				ChordName: lastChordName,
				Start:     lastChordT,
				End:       measureT,
				Reps:      reps,
			})
			continue
		}

		if len(fields) != 7 {
			return nil, fmt.Errorf("rock: malformed harmony line %q", line)
		}
		measureT, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return nil, fmt.Errorf("rock: bad harmony measure time in %q: %w", line, err)
		}
		chordName := fields[2]
		c, err := Convert(chordName)
		if err != nil {
			return nil, fmt.Errorf("rock: unrecognized chord symbol %q: %w", chordName, err)
		}

		if haveLast {
			reps := int(measureT) - int(lastChordT)
			if reps < 1 {
				reps = 1
			}
			if reps > 4 {
				reps = 4
			}
			measures = append(measures, song.Measure{
				Chord:     lastChord,
				ChordName: lastChordName,
				Start:     lastChordT,
				End:       measureT,
				Reps:      reps,
			})
		}

		lastChord = c
		lastChordName = chordName
		lastChordT = measureT
		haveLast = true
	}

	return measures, nil
}

// ParseMelody reads a .nlt file's lines into melodyRanges, following
// spec.md §6.2's `real_t measure_t midi semitones_above_root` format.
func ParseMelody(lines []string) ([]melodyRange, error) {
	var ranges []melodyRange
	haveLast := false
	var lastNote int
	var lastNoteT float64

	for _, raw := range lines {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "Error:") {
			continue
		}
		fields := strings.Fields(line)

		if fields[len(fields)-1] == "End" {
			measureT, err := strconv.ParseFloat(fields[1], 64)
			if err != nil {
				return nil, fmt.Errorf("rock: bad melody End time in %q: %w", line, err)
			}
			if haveLast {
				ranges = append(ranges, melodyRange{start: lastNoteT, end: measureT, semitones: lastNote})
			}
			continue
		}

		if len(fields) != 4 {
			return nil, fmt.Errorf("rock: malformed melody line %q", line)
		}
		measureT, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return nil, fmt.Errorf("rock: bad melody measure time in %q: %w", line, err)
		}
		semitones, err := strconv.Atoi(fields[3])
		if err != nil {
			return nil, fmt.Errorf("rock: bad melody semitone offset in %q: %w", line, err)
		}
		if haveLast {
			ranges = append(ranges, melodyRange{start: lastNoteT, end: measureT, semitones: lastNote})
		}
		lastNote = semitones
		lastNoteT = measureT
		haveLast = true
	}

	return ranges, nil
}

// BuildSong assembles a song.Song from one song's harmony and melody
// lines, pairing melodic notes to the measure whose span precedes them
// (spec.md §6.2's "paired to the harmony by measure_t intervals").
func BuildSong(name string, harmonyLines, melodyLines []string) (song.Song, error) {
	measures, err := ParseHarmony(harmonyLines)
	if err != nil {
		return song.Song{}, err
	}
	ranges, err := ParseMelody(melodyLines)
	if err != nil {
		return song.Song{}, err
	}
	if len(measures) == 0 {
		return song.Song{}, fmt.Errorf("rock: %s: no harmony measures", name)
	}

	idx := 0
	for i := range measures {
		for idx < len(ranges) && ranges[idx].start < measures[i].Start {
			if i > 0 {
				r := ranges[idx]
				measures[i-1].MelodyNotes = append(measures[i-1].MelodyNotes, song.MelodyNote{
					Semitone: r.semitones, Duration: r.end - r.start,
				})
			}
			idx++
		}
	}
	for ; idx < len(ranges); idx++ {
		r := ranges[idx]
		last := len(measures) - 1
		measures[last].MelodyNotes = append(measures[last].MelodyNotes, song.MelodyNote{
			Semitone: r.semitones, Duration: r.end - r.start,
		})
	}

	return song.Song{Name: name, Measures: measures}, nil
}

// LoadDir walks a directory containing rs200_harmony_clt and
// rs200_melody_nlt subdirectories and parses every paired .clt/.nlt file
// into a song.Song. Songs whose melody file is missing or empty are
// still included (spec.md notes some Rock Corpus songs have no melody).
func LoadDir(root string) ([]song.Song, error) {
	harmonyDir := filepath.Join(root, "rs200_harmony_clt")
	melodyDir := filepath.Join(root, "rs200_melody_nlt")

	entries, err := os.ReadDir(harmonyDir)
	if err != nil {
		return nil, fmt.Errorf("rock: reading harmony directory: %w", err)
	}

	var songs []song.Song
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".clt") {
			continue
		}
		base := strings.TrimSuffix(entry.Name(), ".clt")
		harmonyLines, err := readLines(filepath.Join(harmonyDir, entry.Name()))
		if err != nil {
			return nil, err
		}
		melodyLines, err := readLines(filepath.Join(melodyDir, base+".nlt"))
		if err != nil && !os.IsNotExist(err) {
			return nil, err
		}
		sg, err := BuildSong(entry.Name(), harmonyLines, melodyLines)
		if err != nil {
			return nil, err
		}
		songs = append(songs, sg)
	}
	return songs, nil
}

func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil && err != io.EOF {
		return nil, err
	}
	return lines, nil
}

// TabulateChordTypes scans every .clt file under root, classifying each
// chord occurrence via chordTypeLabel. If countReps is true, a chord
// held for several measures is counted once per measure it spans rather
// than once per appearance (spec.md §6.2's supplemented diagnostic,
// ported from corpus/rs/convert.py's tabulate_chord_types, exposed via
// cmd/corpusbuild -stats).
func TabulateChordTypes(root string, countReps bool) (map[string]int, error) {
	harmonyDir := filepath.Join(root, "rs200_harmony_clt")
	entries, err := os.ReadDir(harmonyDir)
	if err != nil {
		return nil, fmt.Errorf("rock: reading harmony directory: %w", err)
	}

	counts := map[string]int{}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".clt") {
			continue
		}
		lines, err := readLines(filepath.Join(harmonyDir, entry.Name()))
		if err != nil {
			return nil, err
		}

		var lastChordName string
		var lastChordT float64
		haveLast := false
		for _, raw := range lines {
			line := strings.TrimSpace(raw)
			if line == "" {
				continue
			}
			fields := strings.Fields(line)

			if fields[len(fields)-1] == "End" {
				measureT, err := strconv.ParseFloat(fields[1], 64)
				if err != nil {
					return nil, err
				}
				reps := 1
				if countReps {
					reps = int(measureT) - int(lastChordT)
					if reps < 1 {
						reps = 1
					}
				}
				counts[chordTypeLabel(lastChordName)] += reps
				continue
			}

			measureT, err := strconv.ParseFloat(fields[1], 64)
			if err != nil {
				return nil, err
			}
			if haveLast {
				reps := 1
				if countReps {
					reps = int(measureT) - int(lastChordT)
					if reps < 1 {
						reps = 1
					}
				}
				counts[chordTypeLabel(lastChordName)] += reps
			}
			lastChordName = fields[2]
			lastChordT = measureT
			haveLast = true
		}
	}
	return counts, nil
}
