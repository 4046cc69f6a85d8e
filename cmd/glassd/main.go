package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"glassd/internal/gesture"
)

const version = "1.0.0"

func printVersion() {
	fmt.Printf("glassd v%s\n", version)
	fmt.Println("Touch gesture daemon for smart-glasses controllers")
}

func printUsage() {
	printVersion()
	fmt.Println()
	fmt.Println("USAGE:")
	fmt.Println("  glassd [OPTIONS]")
	fmt.Println("  glassd replay -trace FILE [OPTIONS]")
	fmt.Println("  glassd inject [OPTIONS] GESTURE")
	fmt.Println()
	fmt.Println("DESCRIPTION:")
	fmt.Println("  Polls a capacitive touch pad, decodes single taps, double taps and long")
	fmt.Println("  presses, and dispatches them:")
	fmt.Println("    single tap  -> toggle display")
	fmt.Println("    double tap  -> toggle mute")
	fmt.Println("    long press  -> cycle power mode (normal, eco, ultra_low)")
	fmt.Println()
	fmt.Println("OPTIONS:")
	fmt.Println("  -config string")
	fmt.Println("        YAML config file (defaults are used when omitted)")
	fmt.Println()
	fmt.Println("  -touch-source string")
	fmt.Println("        Touch sampler: i2c, gpio, serial, none (default \"none\")")
	fmt.Println()
	fmt.Println("  -touch-threshold int")
	fmt.Println("        Contact threshold, 0 picks the source default (40 serial, 511 gpio, 12 i2c)")
	fmt.Println()
	fmt.Println("  -poll-interval-ms int")
	fmt.Printf("        Touch poll interval in ms, at most %d (default %d)\n", maxPollIntervalMS, defaultPollIntervalMS)
	fmt.Println()
	fmt.Println("  -ipc-socket string")
	fmt.Println("        Unix domain socket path for IPC (default \"/tmp/glassd.sock\")")
	fmt.Println()
	fmt.Println("  -http-port int")
	fmt.Println("        HTTP API and state websocket port, 0 disables (default 3002)")
	fmt.Println()
	fmt.Println("  -log-level string")
	fmt.Println("        Log level: error, warn, info, debug (default \"info\")")
	fmt.Println()
	fmt.Println("  -version")
	fmt.Println("        Print version and exit")
	fmt.Println()
	fmt.Println("  -help")
	fmt.Println("        Print this help message")
	fmt.Println()
	fmt.Println("SUBCOMMANDS:")
	fmt.Println("  replay   Run the classifier over a YAML touch trace")
	fmt.Println("  inject   Send a gesture to a running daemon")
	fmt.Println()
	fmt.Println("EXAMPLES:")
	fmt.Println("  glassd -config /etc/glassd.yaml")
	fmt.Println("  glassd -touch-source i2c -log-level debug")
	fmt.Println("  glassd replay -trace testdata/double_tap.yaml")
	fmt.Println("  glassd inject double_tap")
	fmt.Println()
}

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "replay":
			if err := runReplaySubcommand(os.Args[2:], os.Stdout); err != nil {
				fmt.Fprintln(os.Stderr, "error:", err)
				os.Exit(1)
			}
			return
		case "inject":
			if err := runInjectSubcommand(os.Args[2:]); err != nil {
				fmt.Fprintln(os.Stderr, "error:", err)
				os.Exit(1)
			}
			return
		}
	}

	var (
		configPath     = flag.String("config", "", "YAML config file")
		touchSource    = flag.String("touch-source", "none", "Touch sampler: i2c, gpio, serial, none")
		touchThreshold = flag.Int("touch-threshold", 0, "Contact threshold (0 = source default)")
		pollIntervalMS = flag.Int("poll-interval-ms", defaultPollIntervalMS, "Touch poll interval in ms")
		ipcSocketPath  = flag.String("ipc-socket", "/tmp/glassd.sock", "Unix domain socket path for IPC")
		httpPort       = flag.Int("http-port", 3002, "HTTP API port (0 disables)")
		logLevelStr    = flag.String("log-level", "info", "Log level: error, warn, info, debug")
		showVersion    = flag.Bool("version", false, "Print version and exit")
		showHelp       = flag.Bool("help", false, "Print help message")
	)
	flag.Usage = printUsage
	flag.Parse()

	if *showHelp {
		printUsage()
		return
	}
	if *showVersion {
		printVersion()
		return
	}

	cfg := DefaultConfig()
	if *configPath != "" {
		var err error
		if cfg, err = LoadConfigFile(*configPath); err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			os.Exit(1)
		}
	}

	// Only explicitly set flags override the config file.
	var ov FlagOverrides
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "touch-source":
			ov.TouchSource = touchSource
		case "touch-threshold":
			ov.TouchThreshold = touchThreshold
		case "poll-interval-ms":
			ov.PollIntervalMS = pollIntervalMS
		case "ipc-socket":
			ov.IPCSocketPath = ipcSocketPath
		case "http-port":
			ov.HTTPPort = httpPort
		case "log-level":
			ov.LogLevel = logLevelStr
		}
	})
	ov.Apply(&cfg)

	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}

	logLevel, _ := parseLogLevel(cfg.Logging.Level)
	logger := setupLogger(logLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("glassd exited with error", "error", err)
		os.Exit(1)
	}
	logger.Info("shut down")
}

// run wires the backends, the daemon loop and the network surfaces, and
// blocks until ctx is canceled or a component fails.
func run(ctx context.Context, cfg Config, logger *slog.Logger) error {
	gcfg, err := cfg.GestureConfig()
	if err != nil {
		return err
	}
	initialMode, err := ParsePowerMode(cfg.Power.InitialMode)
	if err != nil {
		return err
	}

	touch := openTouchSource(ctx, cfg.Touch, logger)
	defer touch.Close()

	classifier, err := gesture.New(gcfg, touch)
	if err != nil {
		return fmt.Errorf("gesture classifier: %w", err)
	}

	display := openDisplay(cfg.Display, logger)
	defer display.Close()

	audio := openAudio(ctx, cfg.Audio, logger)
	defer audio.Close()

	backends := Backends{
		Display: display,
		Audio:   audio,
		Power:   newSysfsPower(cfg.Power, logger),
	}

	var journal *Journal
	if cfg.Journal.Path != "" {
		journal, err = OpenJournal(cfg.Journal.Path)
		if err != nil {
			return fmt.Errorf("open journal: %w", err)
		}
		defer journal.Close()
		backends.Journal = journal
	}

	logger.Info("starting glassd",
		"version", version,
		"touch_source", cfg.Touch.Source,
		"threshold", gcfg.Threshold,
		"polarity", gcfg.Polarity,
		"poll_interval_ms", cfg.Touch.PollIntervalMS,
		"display", cfg.Display.Driver,
		"audio", cfg.Audio.Backend,
		"power_mode", initialMode,
		"ipc", cfg.IPC.SocketPath,
		"http_port", cfg.HTTP.Port,
		"journal", cfg.Journal.Path)

	events := make(chan Event, 64)
	var broadcasts chan StateBroadcast
	if cfg.HTTP.Enabled {
		broadcasts = make(chan StateBroadcast, 64)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		runDaemon(gctx, events, classifier, newClock(), backends, cfg.ReducerConfig(), &DaemonState{},
			initialCommands(initialMode), time.Duration(cfg.Touch.PollIntervalMS)*time.Millisecond, broadcasts, logger)
		return nil
	})

	g.Go(func() error {
		return runIPCServer(gctx, cfg.IPC.SocketPath, events, logger)
	})

	if cfg.HTTP.Enabled {
		ws := NewServer(logger, events, HubConfig{})
		api := &API{events: events, ws: ws, logger: logger}
		if journal != nil {
			api.journal = journal
		}

		g.Go(func() error {
			ws.Hub().Run(gctx)
			return nil
		})
		g.Go(func() error {
			RunBroadcaster(gctx, ws.Hub(), broadcasts, logger)
			return nil
		})
		g.Go(func() error {
			return runHTTPServer(gctx, cfg.HTTP.Port, NewRouter(api), logger)
		})
	}

	return g.Wait()
}
