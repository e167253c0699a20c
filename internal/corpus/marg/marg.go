// Package marg parses the MARG (Seoul National University) CSV leadsheet
// corpus into song.Song values. See spec.md §6.2 and corpus/marg/__init__.py.
package marg

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/aftertouch/harmonia/internal/chord"
	"github.com/aftertouch/harmonia/internal/song"
)

var scale = strings.Fields("C0 C# D0 D# E0 F0 F# G0 G# A0 A# B0 B#")

// unscale resolves a MARG pitch-class label (e.g. "F#", "D0") to a
// semitone above C, or -1 if the row carries no pitch (a rest, or a
// label the corpus doesn't otherwise document).
func unscale(note string) int {
	for i, s := range scale {
		if s == note {
			return i
		}
	}
	return -1
}

// chordMerger maps a MARG chord_type label to a RelativeChord; the
// sentinel labels "[]" or blank (N.C.) and "pedal" (a bare pedal tone) are
// not in it and are handled by resolveChord. chordMerger mirrors the original's chord_merger table verbatim,
// including its acknowledged guesses (flagged inline there too).
var chordMerger = map[string]chord.RelativeChord{
	"major":            {Quality: chord.Maj},
	"minor":            {Quality: chord.Min},
	"dominant":         {Quality: chord.Maj, Seventh: chord.MinSeventh},
	"minor-seventh":    {Quality: chord.Min, Seventh: chord.MinSeventh},
	"minor-sixth":      {Quality: chord.Min},
	"dominant-ninth":   {Quality: chord.Maj, Seventh: chord.MinSeventh},
	"augmented":        {Quality: chord.Aug},
	"augmented-seventh": {Quality: chord.Aug, Seventh: chord.MinSeventh},
	"major-seventh":    {Quality: chord.Maj, Seventh: chord.MajSeventh},
	"major-sixth":      {Quality: chord.Maj},
	"suspended-fourth": {Quality: chord.Sus4},
	"minor-major":      {Quality: chord.Min, Seventh: chord.MajSeventh},
	"diminished":       {Quality: chord.Dim},
	"dominant-seventh": {Quality: chord.Maj, Seventh: chord.MinSeventh},
	"major-ninth":      {Quality: chord.Maj, Seventh: chord.MajSeventh},
	"half-diminished":  {Quality: chord.Dim, Seventh: chord.MinSeventh},
	"minor-ninth":      {Quality: chord.Min, Seventh: chord.MinSeventh},
	"minor-11th":       {Quality: chord.Min, Seventh: chord.MinSeventh},
	"diminished-seventh": {Quality: chord.Dim, Seventh: chord.DimSeventh},
	"power":            {Quality: chord.Maj}, // sketchy, per the original
	"dominant-11th":    {Quality: chord.Maj, Seventh: chord.MinSeventh},
	"dominant-13th":    {Quality: chord.Maj, Seventh: chord.MinSeventh},
	"maj":              {Quality: chord.Maj},
	"7":                {Quality: chord.Maj, Seventh: chord.MinSeventh},
	"min":              {Quality: chord.Min},
	"min7":             {Quality: chord.Min, Seventh: chord.MinSeventh},
	"major-minor":      {Quality: chord.Maj, Seventh: chord.MinSeventh}, // this just means dominant
	"dim":              {Quality: chord.Dim},
	"dim7":             {Quality: chord.Dim, Seventh: chord.DimSeventh},
	"maj7":             {Quality: chord.Maj, Seventh: chord.MajSeventh},
	"minMaj7":          {Quality: chord.Min, Seventh: chord.MajSeventh},
	"sus47":            {Quality: chord.Sus4, Seventh: chord.MinSeventh},
	"suspended-second": {Quality: chord.Sus2},
	"9":                {Quality: chord.Maj, Seventh: chord.MinSeventh},
	"aug":              {Quality: chord.Aug},
	"augmented-ninth":  {Quality: chord.Aug, Seventh: chord.MinSeventh},
	"m7b5":             {Quality: chord.Dim, Seventh: chord.MinSeventh},
	"6":                {Quality: chord.Maj},
	"maj9":             {Quality: chord.Maj, Seventh: chord.MajSeventh},
	"maj69":            {Quality: chord.Maj, Seventh: chord.MajSeventh},
	" dim7":            {Quality: chord.Dim, Seventh: chord.DimSeventh},
	"minor-13th":       {Quality: chord.Min, Seventh: chord.MinSeventh},
	"min9":             {Quality: chord.Min, Seventh: chord.MinSeventh},
}

const (
	chordTypeNoChord = "[]"
	chordTypePedal   = "pedal"
)

// resolveChord builds the chord for a measure from its (absolute) chord
// root pitch-class label, the tonic in effect, and the chord_type label.
func resolveChord(chordRootLabel string, tonic int, chordType string) chord.Chord {
	chordRoot := unscale(chordRootLabel)
	if chordRoot < 0 {
		return chord.NoChord
	}
	relativeRoot := mod(chordRoot-tonic, 12)

	if chordType == chordTypeNoChord || chordType == "" {
		return chord.NoChord
	}
	if chordType == chordTypePedal {
		return chord.NewPedal(relativeRoot)
	}
	rc, ok := chordMerger[chordType]
	if !ok {
		return chord.NewPedal(relativeRoot)
	}
	return chord.NewChord(relativeRoot, rc)
}

// ParseCSV parses one MARG leadsheet CSV (already opened as rows,
// header included) into a song.Song. Each row's key_fifths/key_mode
// describe the song's key; note_root/note_duration describe a melody
// note; chord_root/chord_type change only at measure boundaries (spec.md
// §6.2).
func ParseCSV(name string, r io.Reader) (song.Song, error) {
	reader := csv.NewReader(r)
	rows, err := reader.ReadAll()
	if err != nil {
		return song.Song{}, fmt.Errorf("marg: %s: %w", name, err)
	}
	if len(rows) < 2 {
		return song.Song{}, fmt.Errorf("marg: %s: no data rows", name)
	}
	header := rows[0]
	col := make(map[string]int, len(header))
	for i, h := range header {
		col[h] = i
	}
	required := []string{"key_fifths", "key_mode", "note_root", "note_duration", "measure", "chord_root", "chord_type"}
	for _, c := range required {
		if _, ok := col[c]; !ok {
			return song.Song{}, fmt.Errorf("marg: %s: missing column %q", name, c)
		}
	}

	var measures []song.Measure
	var measureLabel string
	haveMeasure := false
	var mode string

	for _, row := range rows[1:] {
		keyFifths, err := strconv.Atoi(row[col["key_fifths"]])
		if err != nil {
			return song.Song{}, fmt.Errorf("marg: %s: bad key_fifths %q: %w", name, row[col["key_fifths"]], err)
		}
		tonic := mod(7*keyFifths, 12)
		mode = row[col["key_mode"]]

		duration, err := strconv.ParseFloat(row[col["note_duration"]], 64)
		if err != nil {
			return song.Song{}, fmt.Errorf("marg: %s: bad note_duration %q: %w", name, row[col["note_duration"]], err)
		}
		noteSemitone := -1
		if abs := unscale(row[col["note_root"]]); abs >= 0 {
			noteSemitone = mod(abs-tonic, 12)
		}

		label := row[col["measure"]]
		if label != measureLabel || !haveMeasure {
			measureLabel = label
			if ct := row[col["chord_type"]]; ct != chordTypeNoChord && ct != "" && ct != chordTypePedal {
				if _, ok := chordMerger[ct]; !ok {
					return song.Song{}, fmt.Errorf("marg: %s: unknown chord_type %q", name, ct)
				}
			}
			c := resolveChord(row[col["chord_root"]], tonic, row[col["chord_type"]])
			m := song.Measure{
				Chord:     c,
				ChordName: row[col["chord_type"]],
				Reps:      1,
			}
			if noteSemitone >= 0 {
				m.MelodyNotes = append(m.MelodyNotes, song.MelodyNote{Semitone: noteSemitone, Duration: duration})
			}
			measures = append(measures, m)
			haveMeasure = true
		} else {
			last := &measures[len(measures)-1]
			if noteSemitone >= 0 {
				last.MelodyNotes = append(last.MelodyNotes, song.MelodyNote{Semitone: noteSemitone, Duration: duration})
			}
		}
	}

	return song.Song{Name: name, ModeTag: mode, Measures: measures}, nil
}

// LoadDir parses every .csv file directly under dir.
func LoadDir(dir string) ([]song.Song, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("marg: reading directory: %w", err)
	}
	var songs []song.Song
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".csv") {
			continue
		}
		f, err := os.Open(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		sg, err := ParseCSV(entry.Name(), f)
		f.Close()
		if err != nil {
			return nil, err
		}
		songs = append(songs, sg)
	}
	return songs, nil
}

// TabulateChordTypes counts raw chord_type label occurrences across
// every CSV in dir, one count each time a new measure starts or the
// chord_type label changes within a measure (spec.md
// §6.2's supplemented diagnostic, ported from corpus/marg's
// tabulate_chord_types).
func TabulateChordTypes(dir string) (map[string]int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("marg: reading directory: %w", err)
	}
	counts := map[string]int{}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".csv") {
			continue
		}
		f, err := os.Open(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		reader := csv.NewReader(f)
		rows, err := reader.ReadAll()
		f.Close()
		if err != nil {
			return nil, err
		}
		if len(rows) < 2 {
			continue
		}
		header := rows[0]
		col := make(map[string]int, len(header))
		for i, h := range header {
			col[h] = i
		}

		var lastLabel, lastChord string
		for _, row := range rows[1:] {
			measureLabel := row[col["measure"]]
			chordType := row[col["chord_type"]]
			if measureLabel != lastLabel || lastChord != chordType {
				lastLabel = measureLabel
				lastChord = chordType
				counts[chordType]++
			}
		}
	}
	return counts, nil
}

func mod(a, b int) int {
	m := a % b
	if m < 0 {
		m += b
	}
	return m
}
