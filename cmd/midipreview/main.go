// Command midipreview renders a Roman-numeral chord progression to a
// Standard MIDI File, for auditioning a progression outside the browser
// client.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/aftertouch/harmonia/internal/corpus/rock"
	"github.com/aftertouch/harmonia/internal/formatter"
)

func main() {
	fs := flag.NewFlagSet("midipreview", flag.ExitOnError)
	out := fs.String("out", "progression.mid", "output .mid file path")
	keySignature := fs.Int("key", 0, "key signature, in fifths from C")
	bottomBass := fs.Int("bottom-bass", 48, "lowest MIDI pitch a chord may be voiced at")
	beats := fs.Float64("beats", 4, "beats held per chord slot")
	velocity := fs.Int("velocity", 90, "MIDI note-on velocity")
	fs.Parse(os.Args[1:])

	symbols := fs.Args()
	if len(symbols) == 0 {
		fmt.Fprintln(os.Stderr, "usage: midipreview [flags] <roman-numeral> [<roman-numeral> ...]")
		fmt.Fprintln(os.Stderr, `example: midipreview I vi IV V`)
		os.Exit(2)
	}

	midiRoot := mod(*keySignature*7, 12)

	slots := make([]formatter.ProgressionSlot, 0, len(symbols))
	for _, sym := range symbols {
		c, err := rock.Convert(strings.TrimSpace(sym))
		if err != nil {
			fmt.Fprintf(os.Stderr, "can't parse chord %q: %v\n", sym, err)
			os.Exit(1)
		}
		slots = append(slots, formatter.ProgressionSlot{
			Midis: c.RenderOffset(midiRoot, *bottomBass),
			Beats: *beats,
		})
	}

	s := formatter.WriteProgressionSMF(slots, uint8(*velocity), 0)
	if err := s.WriteFile(*out); err != nil {
		fmt.Fprintf(os.Stderr, "failed to write %s: %v\n", *out, err)
		os.Exit(1)
	}

	fmt.Printf("wrote %s (%d chords)\n", *out, len(slots))
}

func mod(a, b int) int {
	m := a % b
	if m < 0 {
		m += b
	}
	return m
}
