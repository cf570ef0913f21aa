// Package serialio opens and drives the byte-oriented serial link at
// 115200 8-N-1, the transport half of the MIDI<->serial bridge. Grounded
// on the github.com/tarm/serial usage in the pack's Tsunami driver
// (serial.Config{Name, Baud, ReadTimeout}, serial.OpenPort).
package serialio

import (
	"fmt"
	"time"

	"github.com/tarm/serial"
)

// pollReadTimeout bounds how long a single Read call may block. The
// Bridge's poll task calls Read once per 20ms tick, so a short timeout
// keeps the read effectively non-blocking from the caller's perspective
// without busy-spinning the underlying fd.
const pollReadTimeout = 5 * time.Millisecond

// Link is the capability contract the Bridge depends on for the serial
// endpoint (spec.md §9's SerialDevice capability contract). The concrete
// implementation below wraps github.com/tarm/serial; tests substitute a
// fake.
type Link interface {
	Open(name string) error
	Close() error
	IsOpen() bool
	Read(buf []byte) (int, error)
	Write(data []byte) (int, error)
}

// TarmLink is a Link backed by github.com/tarm/serial at 115200 8-N-1.
type TarmLink struct {
	port *serial.Port
}

// NewTarmLink returns an unopened serial link.
func NewTarmLink() *TarmLink {
	return &TarmLink{}
}

// Open opens name at 115200 baud, 8 data bits, no parity, 1 stop bit.
func (l *TarmLink) Open(name string) error {
	cfg := &serial.Config{
		Name:        name,
		Baud:        115200,
		Size:        8,
		Parity:      serial.ParityNone,
		StopBits:    serial.Stop1,
		ReadTimeout: pollReadTimeout,
	}

	port, err := serial.OpenPort(cfg)
	if err != nil {
		return fmt.Errorf("open serial port %q: %w", name, err)
	}
	l.port = port
	return nil
}

// Close closes the port. Idempotent.
func (l *TarmLink) Close() error {
	if l.port == nil {
		return nil
	}
	err := l.port.Close()
	l.port = nil
	return err
}

// IsOpen reports whether the port is currently open.
func (l *TarmLink) IsOpen() bool { return l.port != nil }

// Read drains whatever bytes are currently available into buf, bounded
// by the configured read timeout. A transient I/O error is treated as 0
// bytes read, per spec.md §7.
func (l *TarmLink) Read(buf []byte) (int, error) {
	if l.port == nil {
		return 0, nil
	}
	n, err := l.port.Read(buf)
	if err != nil {
		return 0, nil
	}
	return n, nil
}

// Write sends data verbatim. A transient I/O error is treated as 0 bytes
// written, per spec.md §7.
func (l *TarmLink) Write(data []byte) (int, error) {
	if l.port == nil {
		return 0, nil
	}
	n, err := l.port.Write(data)
	if err != nil {
		return 0, nil
	}
	return n, nil
}
