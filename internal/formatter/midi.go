package formatter

import (
	"sort"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

// ticksPerQuarter is the resolution used for every rendered file; chord
// durations are expressed in quarter notes and converted against it.
const ticksPerQuarter = 960

// ProgressionSlot is one chord voicing held for a number of beats, as
// produced by the recommendation engine for a single measure slot.
type ProgressionSlot struct {
	Midis []int
	Beats float64
}

// WriteProgressionSMF renders a chord progression to a single-track Standard
// MIDI File, one note-on/note-off pair per voiced note per slot, all notes in
// a slot struck together and released together.
func WriteProgressionSMF(slots []ProgressionSlot, velocity uint8, channel uint8) *smf.SMF {
	type event struct {
		tick uint32
		msg  midi.Message
	}
	var events []event

	var tick uint32
	for _, slot := range slots {
		duration := uint32(slot.Beats * ticksPerQuarter)
		if duration == 0 {
			duration = ticksPerQuarter
		}
		for _, m := range slot.Midis {
			if m < 0 || m > 127 {
				continue
			}
			events = append(events, event{tick, midi.NoteOn(channel, uint8(m), velocity)})
			events = append(events, event{tick + duration, midi.NoteOff(channel, uint8(m))})
		}
		tick += duration
	}

	sort.SliceStable(events, func(i, j int) bool { return events[i].tick < events[j].tick })

	var tr smf.Track
	tr.Add(0, smf.MetaInstrument("chords"))
	var last uint32
	for _, e := range events {
		tr.Add(e.tick-last, e.msg)
		last = e.tick
	}
	tr.Close(0)

	s := smf.New()
	s.TimeFormat = smf.MetricTicks(ticksPerQuarter)
	s.Add(tr)
	return s
}
