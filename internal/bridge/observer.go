package bridge

// Observer receives the five low-rate signals spec.md §6 calls the
// "observer surface": human-readable status text, per-message developer
// traces, and activity pulses suitable for driving UI indicators. A
// registered Observer is never called concurrently with itself for a
// single event, but may be called from either the MIDI-input thread or
// the poll task (see spec.md §5).
type Observer interface {
	OnDisplayMessage(message string)
	OnDebugMessage(message string)
	OnMidiReceived()
	OnMidiSent()
	OnSerialTraffic()
}

// NoopObserver implements Observer with no-ops. Embed it to satisfy the
// interface while overriding only the hooks a caller cares about.
type NoopObserver struct{}

func (NoopObserver) OnDisplayMessage(string) {}
func (NoopObserver) OnDebugMessage(string)   {}
func (NoopObserver) OnMidiReceived()         {}
func (NoopObserver) OnMidiSent()             {}
func (NoopObserver) OnSerialTraffic()        {}

// Logger is the narrow structured-logging contract the bridge depends
// on, mirroring leandrodaf-midi's contracts.Logger split: the core
// depends on this interface, and cmd/sixstring-bridge wires a concrete
// zap.SugaredLogger behind it.
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// NoopLogger discards everything. Used when no Logger is supplied.
type NoopLogger struct{}

func (NoopLogger) Debugf(string, ...interface{}) {}
func (NoopLogger) Infof(string, ...interface{})  {}
func (NoopLogger) Warnf(string, ...interface{})  {}
func (NoopLogger) Errorf(string, ...interface{}) {}
