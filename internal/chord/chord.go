// Package chord implements the relative-chord / chord value types that
// everything else in the engine is keyed on: emission tables, transition
// tables, locks, and recommendations all index by chord.Chord.
package chord

import (
	"fmt"
	"strconv"
	"strings"
)

// Quality is the triad/tetrad shape of a RelativeChord.
type Quality int

const (
	Maj Quality = iota
	Min
	Dim
	Aug
	MajFlat5
	Sus2
	Sus4
)

func (q Quality) String() string {
	switch q {
	case Maj:
		return "maj"
	case Min:
		return "min"
	case Dim:
		return "dim"
	case Aug:
		return "aug"
	case MajFlat5:
		return "majb5"
	case Sus2:
		return "sus2"
	case Sus4:
		return "sus4"
	default:
		return "unknown"
	}
}

func parseQuality(s string) (Quality, error) {
	switch s {
	case "maj":
		return Maj, nil
	case "min":
		return Min, nil
	case "dim":
		return Dim, nil
	case "aug":
		return Aug, nil
	case "majb5":
		return MajFlat5, nil
	case "sus2":
		return Sus2, nil
	case "sus4":
		return Sus4, nil
	default:
		return 0, fmt.Errorf("chord: unknown quality %q", s)
	}
}

// Seventh is the optional seventh layered on top of a triad.
type Seventh int

const (
	NoSeventh Seventh = iota
	MajSeventh
	MinSeventh
	DimSeventh
)

func (s Seventh) String() string {
	switch s {
	case NoSeventh:
		return "none"
	case MajSeventh:
		return "maj"
	case MinSeventh:
		return "min"
	case DimSeventh:
		return "dim"
	default:
		return "unknown"
	}
}

func parseSeventh(s string) (Seventh, error) {
	switch s {
	case "none":
		return NoSeventh, nil
	case "maj":
		return MajSeventh, nil
	case "min":
		return MinSeventh, nil
	case "dim":
		return DimSeventh, nil
	default:
		return 0, fmt.Errorf("chord: unknown seventh %q", s)
	}
}

// RelativeChord is a chord shape independent of root: a quality, an
// optional seventh, and an inversion count. It is a plain comparable
// struct so it works directly as a map key.
type RelativeChord struct {
	Quality    Quality
	Seventh    Seventh
	Inversions int
}

// SimpleQuality coarsens to {maj, min}; dim collapses to min, everything
// else (including the suspensions) collapses to maj.
func (rc RelativeChord) SimpleQuality() Quality {
	if rc.Quality == Min || rc.Quality == Dim {
		return Min
	}
	return Maj
}

// BetaQuality coarsens to {maj, min, dim}, preserving dim as distinct.
func (rc RelativeChord) BetaQuality() Quality {
	switch rc.Quality {
	case Min:
		return Min
	case Dim:
		return Dim
	default:
		return Maj
	}
}

// RSCollapse drops everything except simple quality and whether a minor
// seventh over a major triad (dominant 7th) is present, and drops
// inversions.
func (rc RelativeChord) RSCollapse() RelativeChord {
	sq := rc.SimpleQuality()
	seventh := NoSeventh
	if rc.Seventh == MinSeventh && sq == Maj {
		seventh = MinSeventh
	}
	return RelativeChord{Quality: sq, Seventh: seventh}
}

// BetaCollapse is RSCollapse but preserves dim as a distinct quality.
func (rc RelativeChord) BetaCollapse() RelativeChord {
	bq := rc.BetaQuality()
	seventh := NoSeventh
	if rc.Seventh == MinSeventh && bq == Maj {
		seventh = MinSeventh
	}
	return RelativeChord{Quality: bq, Seventh: seventh}
}

// Simplified drops everything but the simple quality.
func (rc RelativeChord) Simplified() RelativeChord {
	return RelativeChord{Quality: rc.SimpleQuality()}
}

// RenderOffsets produces the semitone offsets of the triad/seventh from
// the root, then rotates left once per inversion, adding 12 to each note
// that departs the bass.
func (rc RelativeChord) RenderOffsets() []int {
	offsets := []int{0}
	switch rc.Quality {
	case Maj:
		offsets = append(offsets, 4, 7)
	case Min:
		offsets = append(offsets, 3, 7)
	case Dim:
		offsets = append(offsets, 3, 6)
	case Aug:
		offsets = append(offsets, 4, 8)
	case MajFlat5:
		offsets = append(offsets, 4, 6)
	case Sus2:
		offsets = append(offsets, 2, 7)
	case Sus4:
		offsets = append(offsets, 5, 7)
	}

	switch rc.Seventh {
	case MajSeventh:
		offsets = append(offsets, 11)
	case MinSeventh:
		offsets = append(offsets, 10)
	case DimSeventh:
		offsets = append(offsets, 9)
	}

	for i := 0; i < rc.Inversions; i++ {
		offsets = append(offsets[1:], offsets[0]+12)
	}
	return offsets
}

// Stringify renders a compact, parseable form.
func (rc RelativeChord) Stringify() string {
	return fmt.Sprintf("%s %s %d", rc.Quality, rc.Seventh, rc.Inversions)
}

// ParseRelativeChord parses the output of Stringify.
func ParseRelativeChord(s string) (RelativeChord, error) {
	parts := strings.Fields(s)
	if len(parts) != 3 {
		return RelativeChord{}, fmt.Errorf("chord: malformed relative chord %q", s)
	}
	q, err := parseQuality(parts[0])
	if err != nil {
		return RelativeChord{}, err
	}
	sev, err := parseSeventh(parts[1])
	if err != nil {
		return RelativeChord{}, err
	}
	inv, err := strconv.Atoi(parts[2])
	if err != nil {
		return RelativeChord{}, fmt.Errorf("chord: bad inversion count in %q: %w", s, err)
	}
	return RelativeChord{Quality: q, Seventh: sev, Inversions: inv}, nil
}

// Chord is a root semitone (0..11, or absent for "no chord") plus an
// optional RelativeChord (absent means a bare pedal on the root). It is a
// plain comparable struct and works directly as a map key.
type Chord struct {
	Root        int
	HasRoot     bool
	Relative    RelativeChord
	HasRelative bool
}

// NoChord is the "N.C." sentinel: no root, no shape.
var NoChord = Chord{}

// NewChord builds a full chord (root + shape).
func NewChord(root int, rc RelativeChord) Chord {
	return Chord{Root: ((root % 12) + 12) % 12, HasRoot: true, Relative: rc, HasRelative: true}
}

// NewPedal builds a pedal chord: a root with no implied shape.
func NewPedal(root int) Chord {
	return Chord{Root: ((root % 12) + 12) % 12, HasRoot: true}
}

// SimpleQuality returns the coarsened quality, or false if this is N.C. or
// a pedal.
func (c Chord) SimpleQuality() (Quality, bool) {
	if !c.HasRoot || !c.HasRelative {
		return 0, false
	}
	return c.Relative.SimpleQuality(), true
}

// Render returns the absolute semitones of the chord (relative to
// whatever frame Root is expressed in), in RenderOffsets order: inversions
// applied, so the bass note comes first.
func (c Chord) Render() []int {
	if !c.HasRoot {
		return nil
	}
	if !c.HasRelative {
		return []int{c.Root}
	}
	offsets := c.Relative.RenderOffsets()
	out := make([]int, len(offsets))
	for i, off := range offsets {
		out[i] = c.Root + off
	}
	return out
}

// RenderOffset renders the chord with its bass voiced at the nearest
// pitch at or above bottomBass congruent to (root+offset) mod 12.
func (c Chord) RenderOffset(offset, bottomBass int) []int {
	rendered := c.Render()
	if len(rendered) == 0 {
		return nil
	}
	bass := rendered[0]
	newBass := mod(bass+offset-bottomBass, 12) + bottomBass
	shift := newBass - bass
	out := make([]int, len(rendered))
	for i, n := range rendered {
		out[i] = n + shift
	}
	return out
}

func (c Chord) RSCollapse() Chord {
	if !c.HasRelative {
		return c
	}
	c.Relative = c.Relative.RSCollapse()
	return c
}

func (c Chord) BetaCollapse() Chord {
	if !c.HasRelative {
		return c
	}
	c.Relative = c.Relative.BetaCollapse()
	return c
}

func (c Chord) Simplified() Chord {
	if !c.HasRelative {
		return c
	}
	c.Relative = c.Relative.Simplified()
	return c
}

// Transpose shifts the root by steps semitones, mod 12. N.C. is
// unaffected.
func (c Chord) Transpose(steps int) Chord {
	if !c.HasRoot {
		return c
	}
	c.Root = mod(c.Root+steps, 12)
	return c
}

// RelativeToAbsolute converts a chord stored relative to the tonic of the
// implied major key into an absolute chord, given the key signature
// (circle-of-fifths position, 0 = C).
func (c Chord) RelativeToAbsolute(keySignature int) Chord {
	return c.Transpose(keySignature * 7)
}

// AbsoluteToRelative is the inverse of RelativeToAbsolute.
func (c Chord) AbsoluteToRelative(keySignature int) Chord {
	return c.Transpose(keySignature * 5)
}

// Stringify renders a compact, parseable form: "" for N.C., "<root>" for
// a pedal, "<root>:<relative>" otherwise.
func (c Chord) Stringify() string {
	if !c.HasRoot {
		return ""
	}
	if !c.HasRelative {
		return fmt.Sprintf("%02d", c.Root)
	}
	return fmt.Sprintf("%02d:%s", c.Root, c.Relative.Stringify())
}

// Parse parses the output of Stringify.
func Parse(s string) (Chord, error) {
	if s == "" {
		return NoChord, nil
	}
	root, rest, hasRelative := strings.Cut(s, ":")
	r, err := strconv.Atoi(root)
	if err != nil {
		return Chord{}, fmt.Errorf("chord: bad root in %q: %w", s, err)
	}
	if !hasRelative {
		return NewPedal(r), nil
	}
	rc, err := ParseRelativeChord(rest)
	if err != nil {
		return Chord{}, err
	}
	return NewChord(r, rc), nil
}

func mod(a, b int) int {
	m := a % b
	if m < 0 {
		m += b
	}
	return m
}
