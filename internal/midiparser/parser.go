// Package midiparser reconstructs complete MIDI messages from a raw byte
// feed, including running status, SysEx, and the embedded debug-message
// extension (status 0xFF followed by a length byte). It is a direct port
// of the MidiSerialBridge byte-handling state machine.
package midiparser

import (
	"sixstring-bridge/internal/midicodec"
)

// FrameKind distinguishes a reconstructed MIDI message from a decoded
// debug frame.
type FrameKind int

const (
	// FrameMIDI is a complete MIDI message ready to forward.
	FrameMIDI FrameKind = iota
	// FrameDebug is a decoded 0xFF debug extension frame.
	FrameDebug
)

// Frame is one fully-formed output of the parser.
type Frame struct {
	Kind FrameKind
	// Raw holds the raw MIDI bytes when Kind == FrameMIDI.
	Raw []byte
	// Text holds the decoded UTF-8 debug payload when Kind == FrameDebug.
	Text string
}

// Warning describes a non-fatal parse anomaly the caller may want to
// surface to an observer. The parser never stops on a warning; it always
// re-synchronises at the next status byte.
type Warning struct {
	Message string
}

// Parser consumes bytes one at a time and emits complete Frames. It is
// not safe for concurrent use; callers owning a Parser must serialise
// access (the Bridge does this with its single coarse lock).
type Parser struct {
	runningStatus byte
	expected      int
	buf           []byte

	// sysExSoftCap bounds an in-progress SysEx buffer; exceeding it emits
	// a warning but does not drop the message.
	sysExSoftCap int
	warnedLong   bool
}

// DefaultSysExSoftCap matches the "4 KiB soft cap" extension suggested in
// spec.md §9.
const DefaultSysExSoftCap = 4096

// New returns a Parser ready to consume bytes for one attach session.
func New() *Parser {
	return &Parser{sysExSoftCap: DefaultSysExSoftCap}
}

// Reset clears all in-flight state. Called on detach.
func (p *Parser) Reset() {
	p.runningStatus = 0
	p.expected = 0
	p.buf = nil
	p.warnedLong = false
}

// Feed processes one incoming byte and returns any frames it completed
// (normally at most one, but a truncation flush followed by the new
// frame can yield two) plus any warnings raised along the way.
func (p *Parser) Feed(b byte) ([]Frame, []Warning) {
	var frames []Frame
	var warnings []Warning

	if midicodec.IsStatusByte(b) {
		frames, warnings = p.onStatusByte(b)
	} else {
		frames, warnings = p.onDataByte(b)
	}

	if p.expected == 0 && len(p.buf) > 0 {
		if f, ok := p.drain(); ok {
			frames = append(frames, f)
		}
	}

	return frames, warnings
}

func (p *Parser) onStatusByte(b byte) ([]Frame, []Warning) {
	var frames []Frame
	var warnings []Warning

	if b == midicodec.MsgSysExEnd && len(p.buf) > 0 && p.buf[0] == midicodec.MsgSysExStart {
		p.buf = append(p.buf, b)
		if f, ok := p.drain(); ok {
			frames = append(frames, f)
		}
		p.expected = 0
		return frames, warnings
	}

	if p.expected > 0 {
		warnings = append(warnings, Warning{Message: "truncated MIDI message flushed on unexpected status byte"})
		if f, ok := p.drain(); ok {
			frames = append(frames, f)
		}
	}

	tag := b & midicodec.TagMask
	if midicodec.IsVoiceMessage(tag) {
		p.runningStatus = b
	}
	if midicodec.IsSysCommon(b) {
		p.runningStatus = 0
	}
	// Real-time status bytes (0xF8..0xFE) leave running status untouched
	// and are forwarded as conservative single-byte frames (Open Question
	// in spec.md §9: a conservative implementation forwards them).

	p.expected = midicodec.DataLength(b)
	p.warnedLong = false

	if p.expected == midicodec.UnknownStatus {
		warnings = append(warnings, Warning{Message: "unknown status byte, resynchronising"})
		p.expected = 0
	}

	p.buf = []byte{b}
	return frames, warnings
}

func (p *Parser) onDataByte(b byte) ([]Frame, []Warning) {
	var warnings []Warning

	if p.expected == 0 && p.runningStatus != 0 {
		_, w := p.onStatusByte(p.runningStatus)
		warnings = append(warnings, w...)
	}

	if p.expected == 0 {
		warnings = append(warnings, Warning{Message: "unexpected data byte with no running status, dropped"})
		return nil, warnings
	}

	p.buf = append(p.buf, b)
	p.expected--

	if p.buf[0] == midicodec.MsgDebug && p.expected == 0 && len(p.buf) == 4 {
		p.expected += int(p.buf[3])
	}

	if p.buf[0] == midicodec.MsgSysExStart && p.sysExSoftCap > 0 &&
		len(p.buf) > p.sysExSoftCap && !p.warnedLong {
		p.warnedLong = true
		warnings = append(warnings, Warning{Message: "SysEx too long, continuing to accumulate"})
	}

	return nil, warnings
}

// drain emits the buffered frame, if any, and resets buffering state.
func (p *Parser) drain() (Frame, bool) {
	if len(p.buf) == 0 {
		return Frame{}, false
	}

	data := p.buf
	p.buf = nil
	p.expected = 0

	if data[0] == midicodec.MsgDebug && len(data) > 4 {
		return Frame{Kind: FrameDebug, Text: string(data[4:])}, true
	}

	raw := make([]byte, len(data))
	copy(raw, data)
	return Frame{Kind: FrameMIDI, Raw: raw}, true
}
