package midiparser

import (
	"testing"
	"testing/quick"

	"sixstring-bridge/internal/midicodec"
)

func feedAll(p *Parser, bytes []byte) []Frame {
	var frames []Frame
	for _, b := range bytes {
		fs, _ := p.Feed(b)
		frames = append(frames, fs...)
	}
	return frames
}

// Scenario S1: running status.
func TestRunningStatus(t *testing.T) {
	p := New()
	frames := feedAll(p, []byte{0x90, 0x3C, 0x50, 0x3E, 0x60})

	if len(frames) != 2 {
		t.Fatalf("got %d frames, want 2", len(frames))
	}
	if string(frames[0].Raw) != string([]byte{0x90, 0x3C, 0x50}) {
		t.Errorf("frame 0 = % X", frames[0].Raw)
	}
	if string(frames[1].Raw) != string([]byte{0x90, 0x3E, 0x60}) {
		t.Errorf("frame 1 = % X", frames[1].Raw)
	}
}

// Scenario S2: debug frame.
func TestDebugFrame(t *testing.T) {
	p := New()
	frames := feedAll(p, []byte{0xFF, 0x00, 0x00, 0x03, 'H', 'i', '!'})

	if len(frames) != 1 {
		t.Fatalf("got %d frames, want 1", len(frames))
	}
	if frames[0].Kind != FrameDebug {
		t.Fatalf("frame kind = %v, want FrameDebug", frames[0].Kind)
	}
	if frames[0].Text != "Hi!" {
		t.Errorf("frame text = %q, want %q", frames[0].Text, "Hi!")
	}
}

// Property 3: any SysEx byte sequence 0xF0 d1..dk 0xF7 (di < 0x80) yields
// exactly one SysEx frame containing those bytes.
func TestSysExProperty(t *testing.T) {
	property := func(payload []byte) bool {
		clamped := make([]byte, 0, len(payload))
		for _, b := range payload {
			clamped = append(clamped, b&0x7F)
		}

		msg := append([]byte{0xF0}, clamped...)
		msg = append(msg, 0xF7)

		p := New()
		frames := feedAll(p, msg)

		if len(frames) != 1 || frames[0].Kind != FrameMIDI {
			return false
		}
		return string(frames[0].Raw) == string(msg)
	}

	// testing/quick's default generator keeps slices shorter than 50 bytes.
	if err := quick.Check(property, nil); err != nil {
		t.Error(err)
	}
}

// Property 1: parser round-trip for any valid single-status voice
// message with 2 data bytes.
func TestVoiceMessageRoundTrip(t *testing.T) {
	property := func(tag byte, channel, d1, d2 byte) bool {
		voiceTags := []byte{0x80, 0x90, 0xA0, 0xB0, 0xE0}
		status := voiceTags[int(tag)%len(voiceTags)]
		status = (status & 0xF0) | (channel & 0x0F)
		d1 &= 0x7F
		d2 &= 0x7F

		msg := []byte{status, d1, d2}

		p := New()
		frames := feedAll(p, msg)

		if len(frames) != 1 || frames[0].Kind != FrameMIDI {
			return false
		}
		return string(frames[0].Raw) == string(msg)
	}

	if err := quick.Check(property, nil); err != nil {
		t.Error(err)
	}
}

func TestTruncationFlushesAndResynchronises(t *testing.T) {
	p := New()
	// NoteOn with only 1 of 2 data bytes, then a new NoteOn: the
	// truncated message is flushed (best-effort) before the new one
	// starts.
	frames := feedAll(p, []byte{0x90, 0x3C, 0x91, 0x40, 0x50})

	if len(frames) != 2 {
		t.Fatalf("got %d frames, want 2 (truncated flush + new message)", len(frames))
	}
	if string(frames[0].Raw) != string([]byte{0x90, 0x3C}) {
		t.Errorf("flushed frame = % X", frames[0].Raw)
	}
	if string(frames[1].Raw) != string([]byte{0x91, 0x40, 0x50}) {
		t.Errorf("new frame = % X", frames[1].Raw)
	}
}

func TestUnexpectedDataByteDropped(t *testing.T) {
	p := New()
	frames, warnings := p.Feed(0x3C)
	if len(frames) != 0 {
		t.Errorf("expected no frames for a stray data byte, got %d", len(frames))
	}
	if len(warnings) != 1 {
		t.Errorf("expected one warning for a stray data byte, got %d", len(warnings))
	}
}

// DataLength's table covers every status byte 0x80..0xFF, so UnknownStatus
// is unreachable through Feed; exercise it directly instead.
func TestUnknownStatusDataLength(t *testing.T) {
	if got := midicodec.DataLength(0x00); got != midicodec.UnknownStatus {
		t.Errorf("DataLength(0x00) = %d, want UnknownStatus", got)
	}
	if got := midicodec.DataLength(0x70); got != midicodec.UnknownStatus {
		t.Errorf("DataLength(0x70) = %d, want UnknownStatus", got)
	}
}

func TestRunningStatusSurvivesRealtimeAndDebugBytes(t *testing.T) {
	p := New()

	// A realtime byte (clock) mid-message is a status byte: it flushes the
	// truncated message and is emitted as its own one-byte frame. Running
	// status is left untouched, so the next data byte starts a new 0x90
	// message.
	frames := feedAll(p, []byte{0x90, 0x3C, 0xF8, 0x50})
	if len(frames) != 2 {
		t.Fatalf("got %d frames, want 2 (truncated flush + realtime byte)", len(frames))
	}
	if string(frames[0].Raw) != string([]byte{0x90, 0x3C}) {
		t.Errorf("frame 0 = % X", frames[0].Raw)
	}
	if string(frames[1].Raw) != string([]byte{0xF8}) {
		t.Errorf("frame 1 = % X", frames[1].Raw)
	}

	// Running status must still apply after an embedded debug frame. The
	// debug status byte first flushes the pending running-status message.
	frames = feedAll(p, []byte{0xFF, 0x00, 0x00, 0x02, 'H', 'i', 0x3E, 0x60})
	if len(frames) != 3 {
		t.Fatalf("got %d frames, want 3 (truncated flush + debug frame + running-status note)", len(frames))
	}
	if frames[0].Kind != FrameMIDI || string(frames[0].Raw) != string([]byte{0x90, 0x50}) {
		t.Errorf("frame 0 = % X", frames[0].Raw)
	}
	if frames[1].Kind != FrameDebug || frames[1].Text != "Hi" {
		t.Errorf("frame 1 = %+v", frames[1])
	}
	if frames[2].Kind != FrameMIDI || string(frames[2].Raw) != string([]byte{0x90, 0x3E, 0x60}) {
		t.Errorf("frame 2 = % X", frames[2].Raw)
	}
}

func TestReset(t *testing.T) {
	p := New()
	feedAll(p, []byte{0x90, 0x3C}) // leaves expected > 0

	p.Reset()

	frames := feedAll(p, []byte{0x50}) // would complete the old message if not reset
	if len(frames) != 0 {
		t.Errorf("expected no frames after Reset with a bare data byte, got %d", len(frames))
	}
}
