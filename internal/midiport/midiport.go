// Package midiport resolves human-readable MIDI device names to opened
// input/output streams and wires callback delivery, the platform half of
// spec.md §9's MidiPortFactory capability contract. Grounded on
// odaacabeef-midi-cable's drivers.Ins()/Outs() + Listen/Send idiom.
package midiport

import (
	"fmt"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
)

// InHandler receives every message delivered by an open input stream,
// alongside its driver-reported timestamp in milliseconds.
type InHandler func(msg midi.Message, timestampMS int32)

// In is the capability contract for an opened MIDI input stream.
type In interface {
	Listen(handler InHandler) (stop func(), err error)
	Close() error
	String() string
}

// Out is the capability contract for an opened MIDI output stream.
type Out interface {
	Send(msg midi.Message) error
	Close() error
	String() string
}

// Factory is spec.md §9's MidiPortFactory: it enumerates and opens named
// MIDI endpoints. Enumeration lives outside the bridge core; only
// open-by-name is exercised by the Bridge.
type Factory interface {
	OpenIn(name string) (In, error)
	OpenOut(name string) (Out, error)
	Ins() ([]string, error)
	Outs() ([]string, error)
}

// DriverFactory is a Factory backed by gitlab.com/gomidi/midi/v2's
// rtmididrv driver.
type DriverFactory struct{}

// NewDriverFactory returns a Factory that resolves device names against
// the platform's rtmidi-backed MIDI subsystem.
func NewDriverFactory() *DriverFactory { return &DriverFactory{} }

func (f *DriverFactory) Ins() ([]string, error) {
	ins, err := drivers.Ins()
	if err != nil {
		return nil, fmt.Errorf("list MIDI inputs: %w", err)
	}
	names := make([]string, len(ins))
	for i, in := range ins {
		names[i] = in.String()
	}
	return names, nil
}

func (f *DriverFactory) Outs() ([]string, error) {
	outs, err := drivers.Outs()
	if err != nil {
		return nil, fmt.Errorf("list MIDI outputs: %w", err)
	}
	names := make([]string, len(outs))
	for i, out := range outs {
		names[i] = out.String()
	}
	return names, nil
}

// OpenIn resolves name against the available inputs and opens it.
func (f *DriverFactory) OpenIn(name string) (In, error) {
	ins, err := drivers.Ins()
	if err != nil {
		return nil, fmt.Errorf("list MIDI inputs: %w", err)
	}

	for _, in := range ins {
		if in.String() != name {
			continue
		}
		if err := in.Open(); err != nil {
			return nil, fmt.Errorf("open MIDI input %q: %w", name, err)
		}
		return &driverIn{port: in}, nil
	}
	return nil, fmt.Errorf("MIDI input %q not found", name)
}

// OpenOut resolves name against the available outputs and opens it.
func (f *DriverFactory) OpenOut(name string) (Out, error) {
	outs, err := drivers.Outs()
	if err != nil {
		return nil, fmt.Errorf("list MIDI outputs: %w", err)
	}

	for _, out := range outs {
		if out.String() != name {
			continue
		}
		if err := out.Open(); err != nil {
			return nil, fmt.Errorf("open MIDI output %q: %w", name, err)
		}
		return &driverOut{port: out}, nil
	}
	return nil, fmt.Errorf("MIDI output %q not found", name)
}

type driverIn struct {
	port drivers.In
}

func (d *driverIn) Listen(handler InHandler) (func(), error) {
	stop, err := d.port.Listen(func(msg []byte, timestampms int32) {
		handler(midi.Message(msg), timestampms)
	}, drivers.ListenConfig{})
	if err != nil {
		return nil, fmt.Errorf("listen on MIDI input %q: %w", d.port.String(), err)
	}
	return stop, nil
}

func (d *driverIn) Close() error { return d.port.Close() }
func (d *driverIn) String() string { return d.port.String() }

type driverOut struct {
	port drivers.Out
}

func (d *driverOut) Send(msg midi.Message) error { return d.port.Send(msg) }
func (d *driverOut) Close() error                { return d.port.Close() }
func (d *driverOut) String() string              { return d.port.String() }
