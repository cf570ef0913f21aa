// Package bridge composes SerialLink, MIDI input/output, the byte
// parser, and the transform engine into the attach/detach-able
// controller described in spec.md §4.3. It owns the per-attach polling
// scheduler and exposes a thread-safe configuration surface.
package bridge

import (
	"fmt"
	"sync"
	"time"

	"gitlab.com/gomidi/midi/v2"

	"sixstring-bridge/internal/midicodec"
	"sixstring-bridge/internal/midiparser"
	"sixstring-bridge/internal/midiport"
	"sixstring-bridge/internal/serialio"
	"sixstring-bridge/internal/transform"
)

// PollInterval is the poll-task cadence from spec.md §4.3/§9: a design
// choice balancing latency against CPU.
const PollInterval = 20 * time.Millisecond

// serialReadBufSize bounds a single poll tick's drain, per spec.md §4.3
// ("read up to 1024 bytes").
const serialReadBufSize = 1024

// Bridge orchestrates the three I/O endpoints as a unit. The zero value
// is not usable; construct with New.
type Bridge struct {
	midiFactory midiport.Factory
	serial      serialio.Link
	logger      Logger

	// mu protects everything below: configuration, transform note-
	// tracking state, and the handles to the two open MIDI endpoints.
	// Per spec.md §5 it is the single coarse lock covering the whole
	// transform-and-dispatch critical section; blocking I/O is always
	// performed after releasing it.
	mu         sync.Mutex
	cfg        *transform.Config
	xform      *transform.Transform
	parser     *midiparser.Parser
	midiIn     midiport.In
	midiOut    midiport.Out
	attachTime time.Time

	observersMu sync.Mutex
	observers   []Observer

	stopListen func()
	stopPoll   chan struct{}
	pollDone   chan struct{}
}

// New returns a detached Bridge using factory to resolve MIDI endpoints
// and serial to drive the serial transport.
func New(factory midiport.Factory, serial serialio.Link, logger Logger) *Bridge {
	if logger == nil {
		logger = NoopLogger{}
	}
	cfg := transform.NewConfig()
	return &Bridge{
		midiFactory: factory,
		serial:      serial,
		logger:      logger,
		cfg:         cfg,
		xform:       transform.New(cfg),
		parser:      midiparser.New(),
	}
}

// AddObserver registers an observer. Safe to call at any time.
func (b *Bridge) AddObserver(o Observer) {
	b.observersMu.Lock()
	defer b.observersMu.Unlock()
	b.observers = append(b.observers, o)
}

func (b *Bridge) notify(fn func(Observer)) {
	b.observersMu.Lock()
	obs := make([]Observer, len(b.observers))
	copy(obs, b.observers)
	b.observersMu.Unlock()

	for _, o := range obs {
		fn(o)
	}
}

func (b *Bridge) display(format string, args ...interface{}) {
	msg := b.timestamped(fmt.Sprintf(format, args...))
	b.logger.Infof("%s", msg)
	b.notify(func(o Observer) { o.OnDisplayMessage(msg) })
}

func (b *Bridge) debug(format string, args ...interface{}) {
	msg := b.timestamped(fmt.Sprintf(format, args...))
	b.logger.Debugf("%s", msg)
	b.notify(func(o Observer) { o.OnDebugMessage(msg) })
}

func (b *Bridge) timestamped(message string) string {
	b.mu.Lock()
	at := b.attachTime
	b.mu.Unlock()
	if at.IsZero() {
		return message
	}
	return fmt.Sprintf("+%.1f - %s", time.Since(at).Seconds(), message)
}

// Attach opens the named endpoints. An empty name skips that endpoint.
// Any open failure is reported via the display observer hook and does
// not prevent the other endpoints from opening. Idempotent: a prior
// attach session is torn down first.
func (b *Bridge) Attach(serialName, midiInName, midiOutName string) {
	b.Detach()

	b.mu.Lock()
	b.attachTime = time.Now()
	b.mu.Unlock()

	if serialName != "" {
		b.display("Opening serial port '%s'...", serialName)
		if err := b.serial.Open(serialName); err != nil {
			b.display("Failed to open serial port '%s': %v", serialName, err)
		} else {
			b.display("Serial port opened successfully")
			b.startPoll()
		}
	}

	if midiInName != "" {
		b.display("Opening MIDI Input '%s'...", midiInName)
		in, err := b.midiFactory.OpenIn(midiInName)
		if err != nil {
			b.display("Failed to open MIDI Input: %v", err)
		} else {
			stop, err := in.Listen(b.handleIncomingMidiMessage)
			if err != nil {
				b.display("Failed to start MIDI Input listener: %v", err)
				in.Close()
			} else {
				b.mu.Lock()
				b.midiIn = in
				b.stopListen = stop
				b.mu.Unlock()
				b.display("MIDI Input opened successfully")
			}
		}
	}

	if midiOutName != "" {
		b.display("Opening MIDI Output '%s'...", midiOutName)
		out, err := b.midiFactory.OpenOut(midiOutName)
		if err != nil {
			b.display("Failed to open MIDI Output: %v", err)
		} else {
			b.mu.Lock()
			b.midiOut = out
			b.mu.Unlock()
			b.display("MIDI Output opened successfully")
		}
	}
}

// Detach stops the poll task, quiesces the MIDI input callback, closes
// both MIDI handles and the serial port, and clears all parser and
// transform state. Always succeeds; safe to call when already detached.
func (b *Bridge) Detach() {
	b.stopPollTask()

	b.mu.Lock()
	stopListen := b.stopListen
	midiIn := b.midiIn
	midiOut := b.midiOut
	b.stopListen = nil
	b.midiIn = nil
	b.midiOut = nil
	b.mu.Unlock()

	if stopListen != nil {
		stopListen()
	}
	if midiIn != nil {
		midiIn.Close()
	}
	if midiOut != nil {
		midiOut.Close()
	}
	b.serial.Close()

	b.mu.Lock()
	b.parser.Reset()
	b.xform.Reset()
	b.mu.Unlock()
}

// IsActive reports whether any of the three endpoints is currently open.
func (b *Bridge) IsActive() bool {
	b.mu.Lock()
	active := b.serial.IsOpen() || b.midiIn != nil || b.midiOut != nil
	b.mu.Unlock()
	return active
}

func (b *Bridge) startPoll() {
	b.stopPoll = make(chan struct{})
	b.pollDone = make(chan struct{})

	stopCh := b.stopPoll
	doneCh := b.pollDone

	go func() {
		defer close(doneCh)
		ticker := time.NewTicker(PollInterval)
		defer ticker.Stop()

		for {
			select {
			case <-stopCh:
				return
			case <-ticker.C:
				b.pollOnce()
			}
		}
	}()
}

func (b *Bridge) stopPollTask() {
	if b.stopPoll == nil {
		return
	}
	close(b.stopPoll)
	<-b.pollDone
	b.stopPoll = nil
	b.pollDone = nil
}

// pollOnce drains whatever bytes are available on the serial link and
// feeds them through the parser, per spec.md §4.3's Serial poll task.
func (b *Bridge) pollOnce() {
	if !b.serial.IsOpen() {
		return
	}

	buf := make([]byte, serialReadBufSize)
	n, err := b.serial.Read(buf)
	if err != nil || n == 0 {
		return
	}

	var traffic bool
	for i := 0; i < n; i++ {
		b.mu.Lock()
		frames, warnings := b.parser.Feed(buf[i])
		b.mu.Unlock()

		for _, w := range warnings {
			b.display("Warning: %s", w.Message)
		}

		for _, f := range frames {
			traffic = true
			b.handleParsedFrame(f)
		}
	}

	if traffic {
		b.notify(func(o Observer) { o.OnSerialTraffic() })
	}
}

func (b *Bridge) handleParsedFrame(f midiparser.Frame) {
	if f.Kind == midiparser.FrameDebug {
		b.display("Serial Says: %s", f.Text)
		return
	}

	b.debug("Serial In: %s", midicodec.Describe(f.Raw))

	ev := transform.Event{Msg: midi.Message(f.Raw)}

	b.mu.Lock()
	out, keep := b.xform.Process(ev)
	midiOut := b.midiOut
	b.mu.Unlock()

	if !keep || midiOut == nil {
		return
	}
	if err := midiOut.Send(out.Msg); err != nil {
		b.logger.Warnf("send to MIDI output failed: %v", err)
		return
	}
	b.notify(func(o Observer) { o.OnMidiSent() })
}

// handleIncomingMidiMessage is the MIDI-input callback delivered by the
// platform driver thread, per spec.md §4.3's MIDI-input callback
// routing: transform, then forward to both the serial link and the MIDI
// output on pass.
func (b *Bridge) handleIncomingMidiMessage(msg midi.Message, _ int32) {
	b.debug("MIDI In: %s", midicodec.Describe(msg))
	b.notify(func(o Observer) { o.OnMidiReceived() })

	ev := transform.Event{Msg: msg, Timestamp: time.Now()}

	b.mu.Lock()
	out, keep := b.xform.Process(ev)
	midiOut := b.midiOut
	b.mu.Unlock()

	if !keep {
		return
	}

	if b.serial.IsOpen() {
		if _, err := b.serial.Write(out.Msg); err != nil {
			b.logger.Warnf("write to serial link failed: %v", err)
		} else {
			b.notify(func(o Observer) { o.OnSerialTraffic() })
		}
	}

	if midiOut != nil {
		if err := midiOut.Send(out.Msg); err != nil {
			b.logger.Warnf("send to MIDI output failed: %v", err)
		} else {
			b.notify(func(o Observer) { o.OnMidiSent() })
		}
	}
}

// --- Configuration surface, §3 -------------------------------------------

// SetStringVelocityScale sets the 1..10 velocity multiplier for string i.
func (b *Bridge) SetStringVelocityScale(stringIndex, scale int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cfg.SetStringVelocityScale(stringIndex, scale)
}

// SetStringOctaveShift sets the octave shift (-4..+4) for string i.
func (b *Bridge) SetStringOctaveShift(stringIndex, shift int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cfg.SetStringOctaveShift(stringIndex, shift)
}

// SetStringSemitoneShift sets the semitone shift (-12..+12) for string i.
func (b *Bridge) SetStringSemitoneShift(stringIndex, shift int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cfg.SetStringSemitoneShift(stringIndex, shift)
}

// SetStringChannel maps string i (0..5) to inbound MIDI channel (1..16).
func (b *Bridge) SetStringChannel(stringIndex, channel int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cfg.SetStringChannel(stringIndex, channel)
}

// SetScale sets the diatonic root and interval list.
func (b *Bridge) SetScale(rootPC int, intervals []int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cfg.SetScale(rootPC, intervals)
}

// SetFilterEnabled toggles the diatonic gate.
func (b *Bridge) SetFilterEnabled(enabled bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cfg.SetFilterEnabled(enabled)
}

// SetDiatonicMode selects the out-of-scale policy.
func (b *Bridge) SetDiatonicMode(mode transform.DiatonicMode) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cfg.SetDiatonicMode(mode)
}
