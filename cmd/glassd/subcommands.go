package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"glassd/internal/gesture"
)

// replayFile is the on-disk form of a synthetic touch trace.
type replayFile struct {
	TickMS   int               `yaml:"tick_ms"`
	StartMS  uint32            `yaml:"start_ms"`
	Segments []gesture.Segment `yaml:"segments"`
}

func loadReplayFile(path string) (replayFile, error) {
	b, err := os.ReadFile(ExpandPath(path))
	if err != nil {
		return replayFile{}, fmt.Errorf("read trace: %w", err)
	}
	return parseReplayFile(b)
}

func parseReplayFile(b []byte) (replayFile, error) {
	var rf replayFile
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&rf); err != nil {
		return replayFile{}, fmt.Errorf("decode trace yaml: %w", err)
	}
	if len(rf.Segments) == 0 {
		return replayFile{}, errors.New("trace has no segments")
	}
	return rf, nil
}

func printReplayUsage() {
	fmt.Printf("glassd replay v%s\n", version)
	fmt.Println()
	fmt.Println("USAGE:")
	fmt.Println("  glassd replay -trace FILE [OPTIONS]")
	fmt.Println()
	fmt.Println("DESCRIPTION:")
	fmt.Println("  Runs the gesture classifier over a synthetic touch trace and prints")
	fmt.Println("  every decoded gesture with its time offset. No hardware is touched.")
	fmt.Println()
	fmt.Println("OPTIONS:")
	fmt.Println("  -trace string")
	fmt.Println("        YAML trace: {tick_ms, start_ms, segments: [{contact, duration_ms, value}]}")
	fmt.Println("  -config string")
	fmt.Println("        Daemon config whose touch section supplies the tuning")
	fmt.Println("  -tick-ms int")
	fmt.Println("        Override the poll interval of the trace")
	fmt.Println("  -json")
	fmt.Println("        Print detections as a JSON array")
	fmt.Println()
}

// runReplaySubcommand implements "glassd replay".
func runReplaySubcommand(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("replay", flag.ContinueOnError)
	tracePath := fs.String("trace", "", "YAML trace file")
	configPath := fs.String("config", "", "Daemon config file for touch tuning")
	tickMS := fs.Int("tick-ms", 0, "Poll interval override in ms")
	asJSON := fs.Bool("json", false, "Print detections as JSON")
	fs.Usage = printReplayUsage
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *tracePath == "" {
		printReplayUsage()
		return errors.New("-trace is required")
	}

	cfg := DefaultConfig()
	if *configPath != "" {
		var err error
		if cfg, err = LoadConfigFile(*configPath); err != nil {
			return err
		}
	}
	gcfg, err := cfg.GestureConfig()
	if err != nil {
		return fmt.Errorf("touch config: %w", err)
	}

	rf, err := loadReplayFile(*tracePath)
	if err != nil {
		return err
	}
	tick := rf.TickMS
	if *tickMS > 0 {
		tick = *tickMS
	}
	if tick <= 0 {
		tick = cfg.Touch.PollIntervalMS
	}

	dets, err := gesture.Replay(gcfg, rf.Segments, gesture.Millis(tick), gesture.Millis(rf.StartMS))
	if err != nil {
		return err
	}

	if *asJSON {
		if dets == nil {
			dets = []gesture.Detection{}
		}
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(dets)
	}
	for _, d := range dets {
		fmt.Fprintln(stdout, d)
	}
	if len(dets) == 0 {
		fmt.Fprintln(stdout, "no gestures")
	}
	return nil
}

func printInjectUsage() {
	fmt.Printf("glassd inject v%s\n", version)
	fmt.Println()
	fmt.Println("USAGE:")
	fmt.Println("  glassd inject [OPTIONS] <single_tap|double_tap|long_press>")
	fmt.Println()
	fmt.Println("DESCRIPTION:")
	fmt.Println("  Sends a gesture to a running daemon over the IPC socket. The daemon")
	fmt.Println("  dispatches it exactly like a decoded touch.")
	fmt.Println()
	fmt.Println("OPTIONS:")
	fmt.Println("  -ipc-socket string")
	fmt.Println("        Unix domain socket path for IPC (default \"/tmp/glassd.sock\")")
	fmt.Println()
}

// runInjectSubcommand implements "glassd inject".
func runInjectSubcommand(args []string) error {
	fs := flag.NewFlagSet("inject", flag.ContinueOnError)
	socketPath := fs.String("ipc-socket", DefaultConfig().IPC.SocketPath, "Unix domain socket path for IPC")
	fs.Usage = printInjectUsage
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		printInjectUsage()
		return errors.New("exactly one gesture is required")
	}
	k, err := gesture.ParseKind(fs.Arg(0))
	if err != nil {
		return err
	}
	if k == gesture.None {
		return errors.New("gesture must not be none")
	}
	return SendIPCEvent(*socketPath, InjectGesture{Gesture: k})
}
