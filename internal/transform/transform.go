package transform

import (
	"time"

	"gitlab.com/gomidi/midi/v2"

	"sixstring-bridge/internal/midicodec"
)

// Event pairs a raw MIDI message with its optional capture timestamp.
// The timestamp, when set, is preserved verbatim across transformation.
type Event struct {
	Msg       midi.Message
	Timestamp time.Time
}

// Transform rewrites note-on/note-off events per the current Config and
// tracks in-flight suppressed/replaced notes so that every emitted
// note-on is eventually paired with exactly one note-off. It is not
// internally synchronised: per spec.md §5, the owning Bridge's single
// coarse lock protects the whole transform-and-dispatch critical
// section, so Transform itself assumes single-threaded access between
// calls to Reset.
type Transform struct {
	cfg *Config

	// suppressedNotes holds (channel<<8)|originalNote keys for note-ons
	// dropped by the diatonic filter, so the matching note-off is also
	// dropped. channel here is the 0-based inbound MIDI channel.
	suppressedNotes map[int]struct{}
	// replacedNotes maps the same key to the replacement note chosen by
	// the ReplaceUp policy.
	replacedNotes map[int]int
}

// New returns a Transform bound to cfg. cfg may be mutated concurrently
// by configuration calls; Transform always reads the live value.
func New(cfg *Config) *Transform {
	return &Transform{
		cfg:             cfg,
		suppressedNotes: make(map[int]struct{}),
		replacedNotes:   make(map[int]int),
	}
}

// Reset clears all note-tracking state. Called on detach; no suppressed
// or replaced entry survives an attach/detach cycle.
func (t *Transform) Reset() {
	t.suppressedNotes = make(map[int]struct{})
	t.replacedNotes = make(map[int]int)
}

func trackKey(channel0 int, note int) int {
	return (channel0 << 8) | (note & 0xFF)
}

// Process returns the outbound event and whether it should be forwarded.
// Non-note messages always pass through unchanged.
func (t *Transform) Process(ev Event) (Event, bool) {
	var channel, note, velocity uint8

	if ev.Msg.GetNoteOn(&channel, &note, &velocity) {
		return t.processNoteOn(ev, channel, note, velocity)
	}
	if ev.Msg.GetNoteOff(&channel, &note, &velocity) {
		return t.processNoteOff(ev, channel, note)
	}
	return ev, true
}

func (t *Transform) processNoteOn(ev Event, channel0, note, velocity uint8) (Event, bool) {
	channel1 := int(channel0) + 1
	key := trackKey(int(channel0), int(note))

	stringIndex, identified := t.cfg.stringIndexForChannel(channel1)

	finalNote := int(note)
	scale := 10
	if identified {
		shift := 12*t.cfg.octaveShift[stringIndex] + t.cfg.semitoneShift[stringIndex]
		finalNote = midicodec.Clamp(int(note)+shift, 0, 127)
		scale = t.cfg.stringVelocityScale[stringIndex]
	}

	if t.cfg.filterEnabled && t.cfg.diatonicMode != DiatonicOff {
		pc := midicodec.PitchClass(finalNote)
		if !t.cfg.AllowsPitchClass(pc) {
			switch t.cfg.diatonicMode {
			case DiatonicFilter:
				t.suppressedNotes[key] = struct{}{}
				return Event{}, false
			case DiatonicReplaceUp:
				candidate, ok := t.nextAllowedNote(finalNote)
				if !ok {
					t.suppressedNotes[key] = struct{}{}
					return Event{}, false
				}
				t.replacedNotes[key] = candidate
				finalNote = candidate
			}
		}
	}

	finalVelocity := midicodec.Clamp(roundDiv(int(velocity)*scale, 10), 1, 127)

	out := Event{
		Msg:       midi.NoteOn(channel0, uint8(finalNote), uint8(finalVelocity)),
		Timestamp: ev.Timestamp,
	}
	return out, true
}

func (t *Transform) processNoteOff(ev Event, channel0, note uint8) (Event, bool) {
	channel1 := int(channel0) + 1
	key := trackKey(int(channel0), int(note))

	stringIndex, identified := t.cfg.stringIndexForChannel(channel1)

	shifted := int(note)
	if identified {
		shift := 12*t.cfg.octaveShift[stringIndex] + t.cfg.semitoneShift[stringIndex]
		shifted = midicodec.Clamp(int(note)+shift, 0, 127)
	}

	outbound := shifted
	if replaced, ok := t.replacedNotes[key]; ok {
		outbound = replaced
		delete(t.replacedNotes, key)
	} else if _, ok := t.suppressedNotes[key]; ok {
		delete(t.suppressedNotes, key)
		return Event{}, false
	}

	out := Event{
		Msg:       midi.NoteOff(channel0, uint8(outbound)),
		Timestamp: ev.Timestamp,
	}
	return out, true
}

// nextAllowedNote searches note+1..note+12 for the first pitch class
// allowed by the current mask that is also <= 127, per the ReplaceUp
// policy in spec.md §4.2.
func (t *Transform) nextAllowedNote(note int) (int, bool) {
	for delta := 1; delta <= 12; delta++ {
		candidate := note + delta
		if candidate > 127 {
			return 0, false
		}
		if t.cfg.AllowsPitchClass(midicodec.PitchClass(candidate)) {
			return candidate, true
		}
	}
	return 0, false
}

// roundDiv computes round(num/den) using integer arithmetic, matching
// the "round half away from zero" behaviour expected of v' = round(v*s/10).
func roundDiv(num, den int) int {
	if den == 0 {
		return 0
	}
	if (num < 0) != (den < 0) {
		return -roundDiv(-num, den)
	}
	return (num + den/2) / den
}

// Idle reports whether all note-tracking state has drained, i.e. every
// emitted note-on has been matched by its note-off. Used by tests to
// assert the pairing invariant in spec.md §8.
func (t *Transform) Idle() bool {
	return len(t.suppressedNotes) == 0 && len(t.replacedNotes) == 0
}
