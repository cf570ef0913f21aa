// Package transform rewrites note-on/note-off events per per-string
// configuration and a diatonic-scale policy, while preserving the
// invariant that every emitted note-on eventually produces exactly one
// matching note-off on the same post-transform channel and note number.
package transform

import "sixstring-bridge/internal/midicodec"

// NumStrings is the number of guitar strings the bridge understands.
const NumStrings = 6

// DiatonicMode selects what happens to an out-of-scale note-on.
type DiatonicMode int

const (
	// DiatonicOff disables the diatonic policy entirely.
	DiatonicOff DiatonicMode = iota
	// DiatonicFilter drops out-of-scale notes (and their matching note-off).
	DiatonicFilter
	// DiatonicReplaceUp snaps an out-of-scale note up to the nearest
	// allowed pitch class, within an octave.
	DiatonicReplaceUp
)

// MajorIntervals are the pitch-class offsets from the root for a
// diatonic major scale, used by SetScale.
var MajorIntervals = []int{0, 2, 4, 5, 7, 9, 11}

// Config is the Configuration value record from spec.md §3. Every field
// is independently settable and clamped to its documented domain. The
// zero value has every velocity scale at 0, which turns every note-on
// velocity into 1; use NewConfig for the documented defaults.
type Config struct {
	stringVelocityScale [NumStrings]int // 1..10
	octaveShift         [NumStrings]int // -4..+4
	semitoneShift       [NumStrings]int // -12..+12
	channelMap          [NumStrings]int // 1..16, 0 means "unset"

	rootPC        int // 0..11
	diatonicMask  [12]bool
	filterEnabled bool
	diatonicMode  DiatonicMode
}

// NewConfig returns a Config with the documented defaults: velocity
// scale 10 (unity), no shifts, direct channel map (string i -> channel
// i+1), filter disabled, mode Filter per the original's member
// initialiser.
func NewConfig() *Config {
	c := &Config{diatonicMode: DiatonicFilter}
	for i := 0; i < NumStrings; i++ {
		c.stringVelocityScale[i] = 10
		c.channelMap[i] = i + 1
	}
	c.SetScale(0, MajorIntervals)
	return c
}

// SetStringVelocityScale sets the 1..10 velocity multiplier for string i,
// clamping out-of-range input silently.
func (c *Config) SetStringVelocityScale(stringIndex, scale int) {
	if stringIndex < 0 || stringIndex >= NumStrings {
		return
	}
	c.stringVelocityScale[stringIndex] = midicodec.Clamp(scale, 1, 10)
}

// StringVelocityScale returns the configured scale for string i.
func (c *Config) StringVelocityScale(stringIndex int) int {
	if stringIndex < 0 || stringIndex >= NumStrings {
		return 10
	}
	return c.stringVelocityScale[stringIndex]
}

// SetStringOctaveShift sets the octave shift (-4..+4) for string i.
func (c *Config) SetStringOctaveShift(stringIndex, shift int) {
	if stringIndex < 0 || stringIndex >= NumStrings {
		return
	}
	c.octaveShift[stringIndex] = midicodec.Clamp(shift, -4, 4)
}

// SetStringSemitoneShift sets the semitone shift (-12..+12) for string i.
func (c *Config) SetStringSemitoneShift(stringIndex, shift int) {
	if stringIndex < 0 || stringIndex >= NumStrings {
		return
	}
	c.semitoneShift[stringIndex] = midicodec.Clamp(shift, -12, 12)
}

// SetStringChannel maps string i (0..5) to the inbound MIDI channel
// (1..16) that identifies it.
func (c *Config) SetStringChannel(stringIndex, channel int) {
	if stringIndex < 0 || stringIndex >= NumStrings {
		return
	}
	c.channelMap[stringIndex] = midicodec.Clamp(channel, 1, 16)
}

// StringChannel returns the MIDI channel mapped to string i.
func (c *Config) StringChannel(stringIndex int) int {
	if stringIndex < 0 || stringIndex >= NumStrings {
		return stringIndex + 1
	}
	return c.channelMap[stringIndex]
}

// SetScale sets the diatonic root (0=C..11=B) and derives the allowed
// pitch-class mask from a list of interval offsets from the root.
func (c *Config) SetScale(rootPC int, intervals []int) {
	c.rootPC = ((rootPC % 12) + 12) % 12
	for i := range c.diatonicMask {
		c.diatonicMask[i] = false
	}
	for _, iv := range intervals {
		pc := ((c.rootPC+iv)%12 + 12) % 12
		c.diatonicMask[pc] = true
	}
}

// RootPC returns the configured scale root pitch class.
func (c *Config) RootPC() int { return c.rootPC }

// SetFilterEnabled toggles the diatonic gate.
func (c *Config) SetFilterEnabled(enabled bool) { c.filterEnabled = enabled }

// FilterEnabled reports whether the diatonic gate is on.
func (c *Config) FilterEnabled() bool { return c.filterEnabled }

// SetDiatonicMode selects the out-of-scale policy.
func (c *Config) SetDiatonicMode(mode DiatonicMode) { c.diatonicMode = mode }

// DiatonicMode returns the configured out-of-scale policy.
func (c *Config) DiatonicMode() DiatonicMode { return c.diatonicMode }

// AllowsPitchClass reports whether pc is in the current diatonic mask.
func (c *Config) AllowsPitchClass(pc int) bool {
	return c.diatonicMask[((pc%12)+12)%12]
}

// stringIndexForChannel resolves the string index that owns channel
// (1..16), falling back to direct mapping (channel-1) when no entry in
// channelMap matches, per spec.md §4.2.
func (c *Config) stringIndexForChannel(channel int) (int, bool) {
	for i, ch := range c.channelMap {
		if ch == channel {
			return i, true
		}
	}
	if channel >= 1 && channel <= NumStrings {
		return channel - 1, true
	}
	return 0, false
}
