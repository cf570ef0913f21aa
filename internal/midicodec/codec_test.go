package midicodec

import "testing"

func TestDataLengthTable(t *testing.T) {
	cases := []struct {
		status byte
		want   int
	}{
		{0x80, 2}, // Note Off
		{0x93, 2}, // Note On, channel 3
		{0xA0, 2}, // Key pressure
		{0xB0, 2}, // Controller
		{0xC0, 1}, // Program change
		{0xD0, 1}, // Channel pressure
		{0xE0, 2}, // Pitch bend
		{MsgSysExStart, SysExLength},
		{0xF1, 2}, // channel nibble 1 < 3
		{0xF2, 2}, // channel nibble 2 < 3
		{0xF3, 1}, // channel nibble 3, <6
		{0xF5, 1}, // channel nibble 5, <6
		{0xF6, 0}, // channel nibble 6
		{MsgDebug, 3},
		{0x00, UnknownStatus},
		{0x70, UnknownStatus},
	}

	for _, c := range cases {
		if got := DataLength(c.status); got != c.want {
			t.Errorf("DataLength(0x%02X) = %d, want %d", c.status, got, c.want)
		}
	}
}

func TestIsVoiceSysCommonRealtime(t *testing.T) {
	if !IsVoiceMessage(0x90) || IsVoiceMessage(0xF0) {
		t.Error("IsVoiceMessage misclassified")
	}
	if !IsSysCommon(0xF0) || !IsSysCommon(0xF7) || IsSysCommon(0xF8) || IsSysCommon(0x90) {
		t.Error("IsSysCommon misclassified")
	}
	if !IsRealtime(0xF8) || !IsRealtime(0xFE) || IsRealtime(0xFF) || IsRealtime(0xF7) {
		t.Error("IsRealtime misclassified")
	}
}

func TestDescribeNoteOn(t *testing.T) {
	got := Describe([]byte{0x90, 60, 100})
	want := "Ch 1: Note 60 on  velocity 100"
	if got != want {
		t.Errorf("Describe = %q, want %q", got, want)
	}
}

func TestDescribeSysEx(t *testing.T) {
	got := Describe([]byte{0xF0, 0x01, 0x02, 0xF7})
	want := "SysEx Message: 0x01 0x02 "
	if got != want {
		t.Errorf("Describe = %q, want %q", got, want)
	}
}

func TestDescribeEmpty(t *testing.T) {
	if got := Describe(nil); got != "Empty message" {
		t.Errorf("Describe(nil) = %q", got)
	}
}

func TestPitchClass(t *testing.T) {
	cases := map[int]int{0: 0, 12: 0, 60: 0, 61: 1, 127: 7, -1: 11}
	for note, want := range cases {
		if got := PitchClass(note); got != want {
			t.Errorf("PitchClass(%d) = %d, want %d", note, got, want)
		}
	}
}

func TestClamp(t *testing.T) {
	if Clamp(200, 0, 127) != 127 {
		t.Error("Clamp did not cap high")
	}
	if Clamp(-5, 0, 127) != 0 {
		t.Error("Clamp did not cap low")
	}
	if Clamp(64, 0, 127) != 64 {
		t.Error("Clamp altered in-range value")
	}
}
