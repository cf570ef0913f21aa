// Command sixstring-bridge bridges a MIDI input/output device pair with
// a byte-oriented serial link, applying per-string velocity, pitch, and
// diatonic-scale transforms tuned for a six-string guitar-to-MIDI
// controller. Modelled on odaacabeef-midi-cable's flag-free argument
// dispatch, generalized to subcommands the way leafo-midirouter's
// flag-based CLI does.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"sixstring-bridge/internal/bridge"
	"sixstring-bridge/internal/midiport"
	"sixstring-bridge/internal/serialio"
	"sixstring-bridge/internal/transform"
)

type zapLogger struct {
	s *zap.SugaredLogger
}

func (l zapLogger) Debugf(format string, args ...interface{}) { l.s.Debugf(format, args...) }
func (l zapLogger) Infof(format string, args ...interface{})  { l.s.Infof(format, args...) }
func (l zapLogger) Warnf(format string, args ...interface{})  { l.s.Warnf(format, args...) }
func (l zapLogger) Errorf(format string, args ...interface{}) { l.s.Errorf(format, args...) }

type consoleObserver struct {
	bridge.NoopObserver
}

func (consoleObserver) OnDisplayMessage(message string) { fmt.Println(message) }
func (consoleObserver) OnDebugMessage(message string)   { fmt.Println(message) }

func usage() {
	fmt.Println("Usage: sixstring-bridge <command> [flags]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  list                      list available MIDI input/output device names")
	fmt.Println("  run                       attach and bridge until interrupted")
	fmt.Println()
	fmt.Println("Run 'sixstring-bridge run -h' to list the run flags.")
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "list":
		runList()
	case "run":
		runBridge(os.Args[2:])
	default:
		usage()
		os.Exit(1)
	}
}

func runList() {
	factory := midiport.NewDriverFactory()

	ins, err := factory.Ins()
	if err != nil {
		fmt.Printf("Error getting inputs: %v\n", err)
	} else {
		fmt.Println("Available MIDI Input Ports:")
		for i, name := range ins {
			fmt.Printf("  %d: %s\n", i, name)
		}
	}

	outs, err := factory.Outs()
	if err != nil {
		fmt.Printf("Error getting outputs: %v\n", err)
	} else {
		fmt.Println("\nAvailable MIDI Output Ports:")
		for i, name := range outs {
			fmt.Printf("  %d: %s\n", i, name)
		}
	}
}

func runBridge(args []string) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	serialName := fs.String("serial", "", "serial device name (e.g. /dev/ttyACM0)")
	midiInName := fs.String("midi-in", "", "MIDI input device name")
	midiOutName := fs.String("midi-out", "", "MIDI output device name")
	rootNote := fs.String("root", "C", "diatonic scale root (C, C#, D, ... B)")
	diatonicMode := fs.String("diatonic", "off", "diatonic policy: off, filter, replace-up")
	scaleStr := fs.String("scale", "", "comma-separated per-string velocity scale, e.g. 10,10,10,10,10,10")
	verbose := fs.Bool("verbose", false, "enable debug-level logging")
	fs.Parse(args)

	zapCfg := zap.NewProductionConfig()
	if *verbose {
		zapCfg = zap.NewDevelopmentConfig()
	}
	zl, err := zapCfg.Build()
	if err != nil {
		fmt.Printf("failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer zl.Sync()
	logger := zapLogger{s: zl.Sugar()}

	br := bridge.New(midiport.NewDriverFactory(), serialio.NewTarmLink(), logger)
	br.AddObserver(consoleObserver{})

	if err := applyScaleFlag(br, *scaleStr); err != nil {
		logger.Errorf("invalid -scale flag: %v", err)
		os.Exit(1)
	}
	if pc, ok := noteNameToPitchClass(*rootNote); ok {
		br.SetScale(pc, transform.MajorIntervals)
	} else {
		logger.Errorf("invalid -root flag %q", *rootNote)
		os.Exit(1)
	}

	switch strings.ToLower(*diatonicMode) {
	case "off":
		br.SetFilterEnabled(false)
		br.SetDiatonicMode(transform.DiatonicOff)
	case "filter":
		br.SetFilterEnabled(true)
		br.SetDiatonicMode(transform.DiatonicFilter)
	case "replace-up":
		br.SetFilterEnabled(true)
		br.SetDiatonicMode(transform.DiatonicReplaceUp)
	default:
		logger.Errorf("invalid -diatonic flag %q", *diatonicMode)
		os.Exit(1)
	}

	br.Attach(*serialName, *midiInName, *midiOutName)
	if !br.IsActive() {
		logger.Errorf("no endpoint could be opened, exiting")
		os.Exit(1)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	br.Detach()
}

func applyScaleFlag(br *bridge.Bridge, raw string) error {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	if len(parts) != transform.NumStrings {
		return fmt.Errorf("expected %d comma-separated values, got %d", transform.NumStrings, len(parts))
	}
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return fmt.Errorf("value %d: %w", i, err)
		}
		br.SetStringVelocityScale(i, v)
	}
	return nil
}

func noteNameToPitchClass(name string) (int, bool) {
	names := map[string]int{
		"C": 0, "C#": 1, "DB": 1, "D": 2, "D#": 3, "EB": 3,
		"E": 4, "F": 5, "F#": 6, "GB": 6, "G": 7, "G#": 8, "AB": 8,
		"A": 9, "A#": 10, "BB": 10, "B": 11,
	}
	pc, ok := names[strings.ToUpper(strings.TrimSpace(name))]
	return pc, ok
}
