// Package abc is a hand-rolled reader for the Nottingham Music Database
// ABC tunebook format. No ABC-notation library appears anywhere in the
// retrieved example pack (the original leans on Python's music21), so
// this is a from-scratch line-oriented parser rather than a stdlib
// stand-in for a concern the pack covers elsewhere. See spec.md §6.2.
package abc

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode"

	"github.com/aftertouch/harmonia/internal/chord"
	"github.com/aftertouch/harmonia/internal/song"
)

// keyTonics maps an ABC key-signature field (e.g. "C", "G", "F#m", "Bb")
// to its tonic pitch class (0=C) and mode tag.
var keyTonics = map[string]struct {
	tonic int
	mode  string
}{
	"C": {0, "major"}, "G": {7, "major"}, "D": {2, "major"}, "A": {9, "major"},
	"E": {4, "major"}, "B": {11, "major"}, "F#": {6, "major"}, "C#": {1, "major"},
	"F": {5, "major"}, "Bb": {10, "major"}, "Eb": {3, "major"}, "Ab": {8, "major"},
	"Db": {1, "major"}, "Gb": {6, "major"}, "Cb": {11, "major"},
	"Am": {9, "minor"}, "Em": {4, "minor"}, "Bm": {11, "minor"}, "F#m": {6, "minor"},
	"C#m": {1, "minor"}, "G#m": {8, "minor"}, "D#m": {3, "minor"}, "A#m": {10, "minor"},
	"Dm": {2, "minor"}, "Gm": {7, "minor"}, "Cm": {0, "minor"}, "Fm": {5, "minor"},
	"Bbm": {10, "minor"}, "Ebm": {3, "minor"},
}

func parseKey(field string) (tonic int, mode string, err error) {
	field = strings.TrimSpace(field)
	// Keep only the text before the first space (tonic letter, accidental,
	// minor marker); a mode word written without a space, such as "Gdor",
	// is not stripped and fails the lookup below.
	for i, r := range field {
		if unicode.IsSpace(r) {
			field = field[:i]
			break
		}
	}
	k, ok := keyTonics[field]
	if !ok {
		return 0, "", fmt.Errorf("abc: unrecognized key signature %q", field)
	}
	return k.tonic, k.mode, nil
}

// noteDict is the Nottingham ABC corpus's chord-annotation note spelling:
// lowercase letter name to semitone above C. Sharps/flats are suffixed
// ('#'/'-') onto the letter rather than baked into the table.
var noteDict = map[string]int{"c": 0, "d": 2, "e": 4, "f": 5, "g": 7, "a": 9, "b": 11}

// identifyNote resolves a (possibly accidental-suffixed) note name to a
// semitone above C, recursing through trailing '#'/'-' the way the
// original's identify_note does.
func identifyNote(s string) (int, error) {
	if strings.HasSuffix(s, "#") {
		v, err := identifyNote(s[:len(s)-1])
		return v + 1, err
	}
	if strings.HasSuffix(s, "-") {
		v, err := identifyNote(s[:len(s)-1])
		return mod(v-1, 12), err
	}
	v, ok := noteDict[strings.ToLower(s)]
	if !ok {
		return 0, fmt.Errorf("unrecognized note name %q", s)
	}
	return v, nil
}

func mod(a, b int) int {
	m := a % b
	if m < 0 {
		m += b
	}
	return m
}

// parseChordSymbol interprets an ABC chord annotation (the text inside a
// quoted string placed above the staff, e.g. "Gm7", "D/f#", "B-") as a
// chord.Chord relative to tonic. It only recognizes the vocabulary the
// Nottingham corpus actually uses: a major/minor triad, an optional
// (always minor) seventh, an optional bare sixth (dropped, same as the
// original drops it), and an optional slash bass used solely to infer
// the inversion.
func parseChordSymbol(s string, tonic int) (chord.Chord, error) {
	symbol := strings.ReplaceAll(s, " ", "")
	symbol = strings.ReplaceAll(symbol, "+", "#")
	if symbol == "" {
		return chord.NoChord, nil
	}

	var bass *int
	if idx := strings.IndexByte(symbol, '/'); idx >= 0 {
		b, err := identifyNote(symbol[idx+1:])
		if err != nil {
			return chord.Chord{}, err
		}
		bass = &b
		symbol = symbol[:idx]
	}

	cut := func(suffix string) bool {
		if strings.HasSuffix(symbol, suffix) {
			symbol = symbol[:len(symbol)-len(suffix)]
			return true
		}
		return false
	}

	seventh := chord.NoSeventh
	if cut("7b9") || cut("7") {
		seventh = chord.MinSeventh
	}
	cut("6")
	quality := chord.Maj
	if cut("m") {
		quality = chord.Min
	}

	midi, err := identifyNote(symbol)
	if err != nil {
		return chord.Chord{}, fmt.Errorf("abc: unrecognized chord root in %q: %w", s, err)
	}

	inversions := 0
	if bass != nil {
		rendered := chord.NewChord(mod(midi, 12), chord.RelativeChord{Quality: quality, Seventh: seventh}).Render()
		for i, n := range rendered {
			if mod(n, 12) == *bass {
				inversions = i
				break
			}
		}
	}

	root := mod(midi-tonic, 12)
	return chord.NewChord(root, chord.RelativeChord{Quality: quality, Seventh: seventh, Inversions: inversions}), nil
}

// chordTypeLabel classifies a raw chord annotation for the
// TabulateChordTypes diagnostic, mirroring the original's get_chord_type:
// quality plus whether a seventh or sixth is present, plus an inversion
// annotation when a slash bass is a chord tone other than the root, or the
// bass's semitone distance above the root when it is not a chord tone.
func chordTypeLabel(s string) string {
	symbol := strings.ReplaceAll(s, " ", "")
	if symbol == "" {
		return "no chord"
	}

	var bass *int
	if idx := strings.IndexByte(symbol, '/'); idx >= 0 {
		if b, err := identifyNote(symbol[idx+1:]); err == nil {
			bass = &b
		}
		symbol = symbol[:idx]
	}

	cut := func(suffix string) bool {
		if strings.HasSuffix(symbol, suffix) {
			symbol = symbol[:len(symbol)-len(suffix)]
			return true
		}
		return false
	}

	if cut("7b9") {
		return s
	}
	seventh := chord.NoSeventh
	if cut("7") {
		seventh = chord.MinSeventh
	}
	sixth := cut("6")
	quality := chord.Maj
	if cut("m") {
		quality = chord.Min
	}

	midi, err := identifyNote(symbol)
	if err != nil {
		return s
	}

	bassAnnotation := ""
	if bass != nil {
		rendered := chord.NewChord(mod(midi, 12), chord.RelativeChord{Quality: quality, Seventh: seventh}).Render()
		found := false
		for i, n := range rendered {
			if mod(n, 12) == *bass {
				if i > 0 {
					ordinal := [...]string{"", "1st", "2nd", "3rd"}[i]
					bassAnnotation = ", " + ordinal + " inversion"
				}
				found = true
				break
			}
		}
		if !found {
			bassAnnotation = fmt.Sprintf(", semitone %d in bass", mod(*bass-midi, 12))
		}
	}

	var label string
	if quality == chord.Min {
		if seventh == chord.MinSeventh {
			label = "minor 7th"
		} else {
			label = "minor"
		}
	} else {
		if seventh == chord.MinSeventh {
			label = "dominant 7th"
		} else {
			label = "major"
		}
	}
	if sixth {
		label += " sixth"
	}
	return label + bassAnnotation
}

// tuneBuilder accumulates one tune's measures as the body is scanned.
type tuneBuilder struct {
	filename string
	title    string
	section  int
	songs    []song.Song

	tonic    int
	mode     string
	haveKey  bool
	measures []song.Measure
	cur      *song.Measure
}

func (b *tuneBuilder) flushMeasure() {
	if b.cur != nil {
		b.measures = append(b.measures, *b.cur)
		b.cur = nil
	}
}

func (b *tuneBuilder) flushSection() {
	b.flushMeasure()
	if len(b.measures) > 0 {
		b.songs = append(b.songs, song.Song{
			Name:     fmt.Sprintf("%s/%s/%d", b.filename, b.title, b.section),
			ModeTag:  b.mode,
			Measures: b.measures,
		})
		b.section++
		b.measures = nil
	}
}

func (b *tuneBuilder) setKey(field string) error {
	tonic, mode, err := parseKey(field)
	if err != nil {
		return err
	}
	b.flushSection()
	b.tonic, b.mode, b.haveKey = tonic, mode, true
	return nil
}

func (b *tuneBuilder) addChord(c chord.Chord) {
	b.flushMeasure()
	b.cur = &song.Measure{Chord: c, Reps: 1}
}

func (b *tuneBuilder) addNote(absoluteSemitone int, duration float64) {
	if b.cur == nil {
		return
	}
	rel := ((absoluteSemitone-b.tonic)%12 + 12) % 12
	b.cur.MelodyNotes = append(b.cur.MelodyNotes, song.MelodyNote{Semitone: rel, Duration: duration})
}

// parseBodyLine scans one line of tune body, emitting chord-symbol
// changes, bar-line measure breaks, and melody notes.
func parseBodyLine(b *tuneBuilder, line string) error {
	runes := []rune(line)
	i := 0
	for i < len(runes) {
		r := runes[i]
		switch {
		case r == '%':
			return nil // rest of line is a comment
		case r == '"':
			j := i + 1
			for j < len(runes) && runes[j] != '"' {
				j++
			}
			if j >= len(runes) {
				return fmt.Errorf("abc: unterminated chord annotation in %q", line)
			}
			if !b.haveKey {
				return fmt.Errorf("abc: chord symbol before any key signature in %q", line)
			}
			symbol := string(runes[i+1 : j])
			c, err := parseChordSymbol(symbol, b.tonic)
			if err != nil {
				return err
			}
			b.addChord(c)
			i = j + 1
			continue
		case r == '|':
			b.flushMeasure()
			i++
			continue
		case unicode.IsUpper(r) && noteLetterOK(r), unicode.IsLower(r) && noteLetterOK(unicode.ToUpper(r)):
			sem, consumed := parseNote(runes[i:])
			b.addNote(sem, parseDuration(runes, i+consumed))
			i += consumed + durationWidth(runes, i+consumed)
			continue
		case r == '^' || r == '_' || r == '=':
			j := i
			for j < len(runes) && (runes[j] == '^' || runes[j] == '_' || runes[j] == '=') {
				j++
			}
			if j < len(runes) && noteLetterOK(unicode.ToUpper(runes[j])) {
				sem, consumed := parseNote(runes[i:])
				b.addNote(sem, parseDuration(runes, i+consumed))
				i += consumed + durationWidth(runes, i+consumed)
				continue
			}
			i = j
		default:
			i++
		}
	}
	return nil
}

// noteLetters maps an uppercase ABC tune-body note letter to its semitone
// above C, the tune-body analogue of noteDict's chord-annotation spelling.
var noteLetters = map[rune]int{'C': 0, 'D': 2, 'E': 4, 'F': 5, 'G': 7, 'A': 9, 'B': 11}

func noteLetterOK(r rune) bool {
	_, ok := noteLetters[r]
	return ok
}

// parseNote reads an accidental-prefixed, octave-suffixed note starting
// at runes[0] (a letter) and returns its absolute semitone (not yet key-
// relative; octave marks don't affect pitch class, so they're consumed
// but not scored) plus how many runes it consumed.
func parseNote(runes []rune) (int, int) {
	i := 0
	accidental := 0
	for i < len(runes) && (runes[i] == '^' || runes[i] == '_' || runes[i] == '=') {
		switch runes[i] {
		case '^':
			accidental++
		case '_':
			accidental--
		}
		i++
	}
	letter := unicode.ToUpper(runes[i])
	semitone := noteLetters[letter] + accidental
	i++
	for i < len(runes) && (runes[i] == '\'' || runes[i] == ',') {
		i++ // octave marks don't affect pitch class
	}
	return ((semitone % 12) + 12) % 12, i
}

// durationWidth returns how many runes starting at pos make up a length
// modifier (digits and/or slashes).
func durationWidth(runes []rune, pos int) int {
	i := pos
	for i < len(runes) && (unicode.IsDigit(runes[i]) || runes[i] == '/') {
		i++
	}
	return i - pos
}

// parseDuration reads the length modifier starting at pos (digits for a
// multiple of the unit length, slashes to divide it) and returns the
// resulting duration in unit-length beats. A bare note with no modifier
// is one unit.
func parseDuration(runes []rune, pos int) float64 {
	i := pos
	numStr := ""
	for i < len(runes) && unicode.IsDigit(runes[i]) {
		numStr += string(runes[i])
		i++
	}
	num := 1.0
	if numStr != "" {
		if n, err := strconv.Atoi(numStr); err == nil {
			num = float64(n)
		}
	}
	slashes := 0
	denomStr := ""
	for i < len(runes) && runes[i] == '/' {
		slashes++
		i++
		for i < len(runes) && unicode.IsDigit(runes[i]) {
			denomStr += string(runes[i])
			i++
		}
	}
	if slashes == 0 {
		return num
	}
	if denomStr != "" {
		if d, err := strconv.Atoi(denomStr); err == nil && d != 0 {
			return num / float64(d)
		}
	}
	denom := 1
	for k := 0; k < slashes; k++ {
		denom *= 2
	}
	return num / float64(denom)
}

// Parse reads one ABC file (potentially several tunes, each starting with
// an "X:" reference-number header) and returns one song.Song per
// contiguous same-key section, matching the original's rule that "each
// song is only a song in which the key doesn't change".
func Parse(filename string, r io.Reader) ([]song.Song, error) {
	scanner := bufio.NewScanner(r)
	var b *tuneBuilder
	var out []song.Song

	finishTune := func() {
		if b != nil {
			b.flushSection()
			out = append(out, b.songs...)
		}
	}

	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		if len(line) >= 2 && line[1] == ':' {
			field, value := line[0], strings.TrimSpace(line[2:])
			switch field {
			case 'X':
				finishTune()
				b = &tuneBuilder{filename: filename}
			case 'T':
				if b != nil && b.title == "" {
					b.title = value
				}
			case 'K':
				if b == nil {
					return nil, fmt.Errorf("abc: %s: key field before tune header", filename)
				}
				if err := b.setKey(value); err != nil {
					return nil, fmt.Errorf("abc: %s: %w", filename, err)
				}
			}
			continue
		}
		if b == nil || !b.haveKey {
			continue // header fields we don't track, or stray text
		}
		if err := parseBodyLine(b, line); err != nil {
			return nil, fmt.Errorf("abc: %s: %w", filename, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("abc: %s: %w", filename, err)
	}
	finishTune()
	return out, nil
}

// LoadDir parses every .abc file directly under dir into song.Song values,
// one per contiguous same-key section across all tunes in all files.
func LoadDir(dir string) ([]song.Song, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("abc: reading directory: %w", err)
	}
	var out []song.Song
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".abc") {
			continue
		}
		f, err := os.Open(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		songs, err := Parse(entry.Name(), f)
		f.Close()
		if err != nil {
			return nil, err
		}
		out = append(out, songs...)
	}
	return out, nil
}

// TabulateChordTypes scans every .abc file under dir, classifying each
// chord annotation via chordTypeLabel (spec.md §6.2's supplemented
// diagnostic, ported from corpus/abc/convert.py's get_chord_type, exposed
// via cmd/corpusbuild -stats).
func TabulateChordTypes(dir string) (map[string]int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("abc: reading directory: %w", err)
	}
	counts := map[string]int{}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".abc") {
			continue
		}
		f, err := os.Open(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			line := scanner.Text()
			runes := []rune(line)
			for i := 0; i < len(runes); i++ {
				if runes[i] != '"' {
					continue
				}
				j := i + 1
				for j < len(runes) && runes[j] != '"' {
					j++
				}
				if j >= len(runes) {
					break
				}
				counts[chordTypeLabel(string(runes[i+1:j]))]++
				i = j
			}
		}
		err = scanner.Err()
		f.Close()
		if err != nil {
			return nil, err
		}
	}
	return counts, nil
}
